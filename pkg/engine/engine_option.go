package engine

import (
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util"
)

// EngineOption is a generic option for engineOptions.
type EngineOption = util.Option[engineOptions]

// RenderOption is a generic option for renderOptions.
type RenderOption = util.Option[renderOptions]

type engineOptions struct {
	renderOptions

	renderers []types.Renderer
	parallel  bool
}

type renderOptions struct {
	filters      []types.Filter
	transformers []types.Transformer
	values       map[string]any
}

// EngineOptions is a struct-based option that can set multiple engine options at once.
type EngineOptions struct {
	// Renderers are the chart sources to process.
	Renderers []types.Renderer

	// Filters are applied to the aggregated objects of every render.
	Filters []types.Filter

	// Transformers are applied to the aggregated objects of every render.
	Transformers []types.Transformer

	// Values are handed to every renderer on every render.
	Values map[string]any

	// Parallel runs the renderers concurrently.
	Parallel bool
}

func (opts EngineOptions) ApplyTo(target *engineOptions) {
	target.renderers = opts.Renderers
	target.filters = opts.Filters
	target.transformers = opts.Transformers
	target.values = opts.Values
	target.parallel = opts.Parallel
}

// RenderOptions is a struct-based option that can set multiple render options at once.
type RenderOptions struct {
	// Filters are appended to the engine-level filters for one Render call.
	Filters []types.Filter

	// Transformers are appended to the engine-level transformers for one Render call.
	Transformers []types.Transformer

	// Values are merged over the engine-level values for one Render call.
	Values map[string]any
}

func (opts RenderOptions) ApplyTo(target *renderOptions) {
	target.filters = append(target.filters, opts.Filters...)
	target.transformers = append(target.transformers, opts.Transformers...)
	target.values = util.DeepMerge(target.values, opts.Values)
}

// WithRenderer adds a renderer to the engine.
func WithRenderer(r types.Renderer) EngineOption {
	return util.FunctionalOption[engineOptions](func(o *engineOptions) {
		o.renderers = append(o.renderers, r)
	})
}

// WithFilter adds an engine-level filter. For renderer-specific filtering
// use the renderer's own WithFilter, e.g. helm.WithFilter.
func WithFilter(f types.Filter) EngineOption {
	return util.FunctionalOption[engineOptions](func(o *engineOptions) {
		o.filters = append(o.filters, f)
	})
}

// WithTransformer adds an engine-level transformer.
func WithTransformer(t types.Transformer) EngineOption {
	return util.FunctionalOption[engineOptions](func(o *engineOptions) {
		o.transformers = append(o.transformers, t)
	})
}

// WithValues sets the engine-level values.
func WithValues(values map[string]any) EngineOption {
	return util.FunctionalOption[engineOptions](func(o *engineOptions) {
		o.values = util.DeepMerge(o.values, values)
	})
}

// WithParallel toggles concurrent rendering.
func WithParallel(enabled bool) EngineOption {
	return util.FunctionalOption[engineOptions](func(o *engineOptions) {
		o.parallel = enabled
	})
}

// WithRenderFilter adds a filter for a single Render call.
func WithRenderFilter(f types.Filter) RenderOption {
	return util.FunctionalOption[renderOptions](func(o *renderOptions) {
		o.filters = append(o.filters, f)
	})
}

// WithRenderTransformer adds a transformer for a single Render call.
func WithRenderTransformer(t types.Transformer) RenderOption {
	return util.FunctionalOption[renderOptions](func(o *renderOptions) {
		o.transformers = append(o.transformers, t)
	})
}

// WithRenderValues merges values over the engine-level values for a single Render call.
func WithRenderValues(values map[string]any) RenderOption {
	return util.FunctionalOption[renderOptions](func(o *renderOptions) {
		o.values = util.DeepMerge(o.values, values)
	})
}
