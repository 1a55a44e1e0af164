package labels

import (
	"context"
	"maps"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Set adds or overwrites the given labels.
func Set(values map[string]string) types.Transformer {
	return func(_ context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		current := obj.GetLabels()
		if current == nil {
			current = make(map[string]string, len(values))
		}

		maps.Copy(current, values)
		obj.SetLabels(current)

		return obj, nil
	}
}

// Remove deletes the given label keys. Objects without labels are left
// untouched and an emptied label map is kept as an empty map.
func Remove(keys ...string) types.Transformer {
	return func(_ context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		current := obj.GetLabels()
		if current == nil {
			return obj, nil
		}

		for _, k := range keys {
			delete(current, k)
		}

		obj.SetLabels(current)

		return obj, nil
	}
}
