// Package engine aggregates renderers and post-processes their output.
package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
)

// Engine renders a set of renderers and post-processes the aggregated result.
type Engine struct {
	options engineOptions
}

// New creates a new Engine with the given options.
func New(opts ...EngineOption) *Engine {
	options := engineOptions{
		renderers: make([]types.Renderer, 0),
		renderOptions: renderOptions{
			filters:      make([]types.Filter, 0),
			transformers: make([]types.Transformer, 0),
		},
	}

	for _, opt := range opts {
		opt.ApplyTo(&options)
	}

	return &Engine{
		options: options,
	}
}

// Render runs every renderer and returns the aggregated objects, in
// renderer order even when rendering in parallel.
//
// Filters and transformers run at three levels: inside each renderer,
// then the engine-level ones, then the render-time ones passed in opts,
// which are appended to the engine-level ones. Render-time values are
// merged over the engine-level values and handed to every renderer.
func (e *Engine) Render(ctx context.Context, opts ...RenderOption) ([]unstructured.Unstructured, error) {
	start := time.Now()

	renderOpts := renderOptions{
		filters:      slices.Clone(e.options.filters),
		transformers: slices.Clone(e.options.transformers),
		values:       util.DeepCopy(e.options.values),
	}

	for _, opt := range opts {
		opt.ApplyTo(&renderOpts)
	}

	var objects []unstructured.Unstructured
	var err error

	if e.options.parallel {
		objects, err = e.renderParallel(ctx, renderOpts.values)
	} else {
		objects, err = e.renderSequential(ctx, renderOpts.values)
	}

	if err != nil {
		return nil, err
	}

	filtered, err := pipe.ApplyFilters(ctx, objects, renderOpts.filters)
	if err != nil {
		return nil, fmt.Errorf("engine filter error: %w", err)
	}

	transformed, err := pipe.ApplyTransformers(ctx, filtered, renderOpts.transformers)
	if err != nil {
		return nil, fmt.Errorf("engine transformer error: %w", err)
	}

	metrics.ObserveRender(ctx, time.Since(start), len(transformed))

	logger.FromContext(ctx).Debug("render completed",
		zap.Int("renderers", len(e.options.renderers)),
		zap.Int("objects", len(transformed)),
		zap.Duration("duration", time.Since(start)))

	return transformed, nil
}

func (e *Engine) processRenderer(ctx context.Context, renderer types.Renderer, values map[string]any) ([]unstructured.Unstructured, error) {
	objects, err := renderer.Process(ctx, util.DeepCopy(values))
	if err != nil {
		return nil, fmt.Errorf("error processing renderer %q (%T): %w", renderer.Name(), renderer, err)
	}

	return objects, nil
}

func (e *Engine) renderSequential(ctx context.Context, values map[string]any) ([]unstructured.Unstructured, error) {
	allObjects := make([]unstructured.Unstructured, 0)

	for _, renderer := range e.options.renderers {
		objects, err := e.processRenderer(ctx, renderer, values)
		if err != nil {
			return nil, err
		}

		allObjects = append(allObjects, objects...)
	}

	return allObjects, nil
}

func (e *Engine) renderParallel(ctx context.Context, values map[string]any) ([]unstructured.Unstructured, error) {
	results := make([][]unstructured.Unstructured, len(e.options.renderers))

	g, gctx := errgroup.WithContext(ctx)

	for i, renderer := range e.options.renderers {
		g.Go(func() error {
			objects, err := e.processRenderer(gctx, renderer, values)
			if err != nil {
				return err
			}

			results[i] = objects

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.Concat(results...), nil
}
