// Package transformer provides combinators for composing transformers.
package transformer

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Chain applies transformers in order, each one receiving the output of the
// previous. The first error stops the chain.
func Chain(transformers ...types.Transformer) types.Transformer {
	return func(ctx context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		current := obj

		for _, t := range transformers {
			next, err := t(ctx, current)
			if err != nil {
				return unstructured.Unstructured{}, Wrap(current, err)
			}

			current = next
		}

		return current, nil
	}
}

// If applies t only to objects accepted by condition; other objects are
// returned unchanged.
func If(condition types.Filter, t types.Transformer) types.Transformer {
	return func(ctx context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		ok, err := condition(ctx, obj)
		if err != nil {
			return unstructured.Unstructured{}, Wrap(obj, err)
		}

		if !ok {
			return obj, nil
		}

		return t(ctx, obj)
	}
}
