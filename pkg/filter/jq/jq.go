package jq

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/filter"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util/jq"
)

// Filter keeps objects for which expression evaluates to true.
func Filter(expression string, opts ...jq.Option) (types.Filter, error) {
	engine, err := jq.NewEngine(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating jq engine: %w", err)
	}

	return func(ctx context.Context, obj unstructured.Unstructured) (bool, error) {
		v, err := engine.Run(ctx, obj.Object)
		if err != nil {
			return false, filter.Wrap(obj, err)
		}

		b, ok := v.(bool)
		if !ok {
			return false, filter.Wrap(obj, fmt.Errorf("jq expression must return a boolean, got %T", v))
		}

		return b, nil
	}, nil
}
