package annotations

import (
	"context"
	"maps"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Set adds or overwrites the given annotations.
func Set(values map[string]string) types.Transformer {
	return func(_ context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		current := obj.GetAnnotations()
		if current == nil {
			current = make(map[string]string, len(values))
		}

		maps.Copy(current, values)
		obj.SetAnnotations(current)

		return obj, nil
	}
}

// Remove deletes the given annotation keys.
func Remove(keys ...string) types.Transformer {
	return func(_ context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		current := obj.GetAnnotations()
		if current == nil {
			return obj, nil
		}

		for _, k := range keys {
			delete(current, k)
		}

		obj.SetAnnotations(current)

		return obj, nil
	}
}
