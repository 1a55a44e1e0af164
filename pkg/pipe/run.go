package pipe

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/filter"
	"github.com/lburgazzoli/kpipe/pkg/transformer"
	"github.com/lburgazzoli/kpipe/pkg/types"
)

// ApplyFilters keeps the objects accepted by every filter.
func ApplyFilters(
	ctx context.Context,
	objects []unstructured.Unstructured,
	filters []types.Filter,
) ([]unstructured.Unstructured, error) {
	if len(filters) == 0 {
		return objects, nil
	}

	accept := filter.And(filters...)
	kept := make([]unstructured.Unstructured, 0, len(objects))

	for _, obj := range objects {
		ok, err := accept(ctx, obj)
		if err != nil {
			return nil, err
		}

		if ok {
			kept = append(kept, obj)
		}
	}

	return kept, nil
}

// ApplyTransformers runs every object through the transformers in order.
func ApplyTransformers(
	ctx context.Context,
	objects []unstructured.Unstructured,
	transformers []types.Transformer,
) ([]unstructured.Unstructured, error) {
	if len(transformers) == 0 {
		return objects, nil
	}

	chain := transformer.Chain(transformers...)
	transformed := make([]unstructured.Unstructured, 0, len(objects))

	for _, obj := range objects {
		out, err := chain(ctx, obj)
		if err != nil {
			return nil, err
		}

		transformed = append(transformed, out)
	}

	return transformed, nil
}

// Run filters objects and then transforms the survivors.
func Run(
	ctx context.Context,
	objects []unstructured.Unstructured,
	filters []types.Filter,
	transformers []types.Transformer,
) ([]unstructured.Unstructured, error) {
	filtered, err := ApplyFilters(ctx, objects, filters)
	if err != nil {
		return nil, fmt.Errorf("filter error: %w", err)
	}

	transformed, err := ApplyTransformers(ctx, filtered, transformers)
	if err != nil {
		return nil, fmt.Errorf("transformer error: %w", err)
	}

	return transformed, nil
}
