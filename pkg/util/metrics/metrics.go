package metrics

import (
	"context"
	"time"
)

// PipeMetric observes pipe runs.
//
// It is called once per Kube or Values invocation. Implementations must be
// safe for concurrent use, the generator runs one pipe per cluster in parallel.
type PipeMetric interface {
	// Observe records a single pipe run.
	//
	//   - pipe: "kube" or "values"
	//   - duration: wall time of the run, decoding and encoding included
	//   - documentCount: number of documents written (0 when err is non-nil)
	//   - err: the error that aborted the run, if any
	Observe(ctx context.Context, pipe string, duration time.Duration, documentCount int, err error)
}

// MutatorMetric observes individual mutator applications.
type MutatorMetric interface {
	// Observe records that a mutator was evaluated against one document.
	// applied is false when the document did not match.
	Observe(ctx context.Context, mutator string, applied bool, err error)
}

// RenderMetric observes engine-level render operations, once per Engine.Render call.
type RenderMetric interface {
	Observe(ctx context.Context, duration time.Duration, objectCount int)
}

// RendererMetric observes individual renderer executions (helm, kustomize, yaml).
type RendererMetric interface {
	Observe(ctx context.Context, rendererType string, duration time.Duration, objectCount int, err error)
}

// Metrics holds the collectors attached to a context. Every field is optional.
//
//	m := &metrics.Metrics{
//		PipeMetric:    memory.NewPipeMetric(),
//		MutatorMetric: memory.NewMutatorMetric(),
//	}
//	ctx := metrics.WithMetrics(context.Background(), m)
type Metrics struct {
	PipeMetric     PipeMetric
	MutatorMetric  MutatorMetric
	RenderMetric   RenderMetric
	RendererMetric RendererMetric
}

type contextKey struct{}

// WithMetrics returns a context carrying m.
func WithMetrics(ctx context.Context, m *Metrics) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the metrics attached to ctx, or nil.
func FromContext(ctx context.Context) *Metrics {
	if m, ok := ctx.Value(contextKey{}).(*Metrics); ok {
		return m
	}

	return nil
}

// ObservePipe records a pipe run if a PipeMetric is configured.
func ObservePipe(ctx context.Context, pipe string, duration time.Duration, documentCount int, err error) {
	if m := FromContext(ctx); m != nil && m.PipeMetric != nil {
		m.PipeMetric.Observe(ctx, pipe, duration, documentCount, err)
	}
}

// ObserveMutator records a mutator evaluation if a MutatorMetric is configured.
func ObserveMutator(ctx context.Context, mutator string, applied bool, err error) {
	if m := FromContext(ctx); m != nil && m.MutatorMetric != nil {
		m.MutatorMetric.Observe(ctx, mutator, applied, err)
	}
}

// ObserveRenderer records a renderer execution if a RendererMetric is configured.
func ObserveRenderer(ctx context.Context, rendererType string, duration time.Duration, objectCount int, err error) {
	if m := FromContext(ctx); m != nil && m.RendererMetric != nil {
		m.RendererMetric.Observe(ctx, rendererType, duration, objectCount, err)
	}
}

// ObserveRender records an engine render if a RenderMetric is configured.
func ObserveRender(ctx context.Context, duration time.Duration, objectCount int) {
	if m := FromContext(ctx); m != nil && m.RenderMetric != nil {
		m.RenderMetric.Observe(ctx, duration, objectCount)
	}
}
