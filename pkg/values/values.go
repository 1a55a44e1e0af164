// Package values provides transformers for Helm-style values documents.
package values

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util"
	"github.com/lburgazzoli/kpipe/pkg/util/jq"
	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
)

// ErrEmptyPath is returned when a path has no segments.
var ErrEmptyPath = errors.New("values path cannot be empty")

// Set stores value at path, creating intermediate maps as needed. It fails
// when an intermediate segment exists but is not a map.
func Set(value any, path ...string) types.ValuesTransformer {
	return func(_ context.Context, values map[string]any) (map[string]any, error) {
		if len(path) == 0 {
			return nil, ErrEmptyPath
		}

		v, err := utilk8s.ToJSONValue(value)
		if err != nil {
			return nil, fmt.Errorf("unable to set %s: %w", strings.Join(path, "."), err)
		}

		if values == nil {
			values = make(map[string]any)
		}

		parent, err := lookupParent(values, path, true)
		if err != nil {
			return nil, err
		}

		parent[path[len(path)-1]] = v

		return values, nil
	}
}

// Remove deletes the key at path. Missing keys are ignored.
func Remove(path ...string) types.ValuesTransformer {
	return func(_ context.Context, values map[string]any) (map[string]any, error) {
		if len(path) == 0 {
			return nil, ErrEmptyPath
		}

		parent, err := lookupParent(values, path, false)
		if err != nil {
			return nil, err
		}

		if parent != nil {
			delete(parent, path[len(path)-1])
		}

		return values, nil
	}
}

// Merge deep merges overlay into the values.
func Merge(overlay map[string]any) types.ValuesTransformer {
	return func(_ context.Context, values map[string]any) (map[string]any, error) {
		return util.DeepMerge(values, overlay), nil
	}
}

// JQ replaces the values with the result of expression, which must be an object.
func JQ(expression string, opts ...jq.Option) (types.ValuesTransformer, error) {
	engine, err := jq.NewEngine(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating jq engine: %w", err)
	}

	return func(ctx context.Context, values map[string]any) (map[string]any, error) {
		v, err := engine.Run(ctx, values)
		if err != nil {
			return nil, err
		}

		out, err := utilk8s.ToObject(v)
		if err != nil {
			return nil, fmt.Errorf("jq expression must return an object: %w", err)
		}

		return out, nil
	}, nil
}

// lookupParent walks all but the last segment of path. With create set,
// missing maps are added; otherwise a missing segment yields a nil parent.
func lookupParent(values map[string]any, path []string, create bool) (map[string]any, error) {
	current := values

	for i, segment := range path[:len(path)-1] {
		next, ok := current[segment]
		if !ok || next == nil {
			if !create {
				return nil, nil
			}

			m := make(map[string]any)
			current[segment] = m
			current = m

			continue
		}

		m, ok := next.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("values path %s is a %T, not a map", strings.Join(path[:i+1], "."), next)
		}

		current = m
	}

	return current, nil
}
