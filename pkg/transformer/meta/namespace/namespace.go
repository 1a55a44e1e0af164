package namespace

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Set overwrites metadata.namespace on every object.
func Set(namespace string) types.Transformer {
	return func(_ context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		obj.SetNamespace(namespace)

		return obj, nil
	}
}

// EnsureDefault sets metadata.namespace only on objects that have none.
func EnsureDefault(namespace string) types.Transformer {
	set := Set(namespace)

	return func(ctx context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		if obj.GetNamespace() != "" {
			return obj, nil
		}

		return set(ctx, obj)
	}
}
