package jq

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/transformer"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util/jq"
	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
)

// Transform replaces each object with the result of expression, which
// must evaluate to a single object.
func Transform(expression string, opts ...jq.Option) (types.Transformer, error) {
	engine, err := jq.NewEngine(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating jq engine: %w", err)
	}

	return func(ctx context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		v, err := engine.Run(ctx, obj.Object)
		if err != nil {
			return unstructured.Unstructured{}, transformer.Wrap(obj, err)
		}

		content, err := utilk8s.ToObject(v)
		if err != nil {
			return unstructured.Unstructured{}, transformer.Wrap(obj, fmt.Errorf("jq expression must return an object: %w", err))
		}

		return unstructured.Unstructured{Object: content}, nil
	}, nil
}
