// Package filter provides combinators for composing filters using boolean logic.
package filter

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// And passes when every filter passes. It short-circuits on the first
// rejection or error; with no filters it always passes.
func And(filters ...types.Filter) types.Filter {
	return func(ctx context.Context, obj unstructured.Unstructured) (bool, error) {
		for _, f := range filters {
			ok, err := f(ctx, obj)
			if err != nil {
				return false, Wrap(obj, err)
			}
			if !ok {
				return false, nil
			}
		}

		return true, nil
	}
}

// Or passes when at least one filter passes. With no filters it always passes.
func Or(filters ...types.Filter) types.Filter {
	if len(filters) == 0 {
		return And()
	}

	return func(ctx context.Context, obj unstructured.Unstructured) (bool, error) {
		for _, f := range filters {
			ok, err := f(ctx, obj)
			if err != nil {
				return false, Wrap(obj, err)
			}
			if ok {
				return true, nil
			}
		}

		return false, nil
	}
}

// Not inverts f.
func Not(f types.Filter) types.Filter {
	return func(ctx context.Context, obj unstructured.Unstructured) (bool, error) {
		ok, err := f(ctx, obj)
		if err != nil {
			return false, Wrap(obj, err)
		}

		return !ok, nil
	}
}
