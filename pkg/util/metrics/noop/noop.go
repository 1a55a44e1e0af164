package noop

import (
	"context"
	"time"
)

// PipeMetric discards all observations.
type PipeMetric struct{}

func (PipeMetric) Observe(_ context.Context, _ string, _ time.Duration, _ int, _ error) {}

// MutatorMetric discards all observations.
type MutatorMetric struct{}

func (MutatorMetric) Observe(_ context.Context, _ string, _ bool, _ error) {}

// RenderMetric discards all observations.
type RenderMetric struct{}

func (RenderMetric) Observe(_ context.Context, _ time.Duration, _ int) {}

// RendererMetric discards all observations.
type RendererMetric struct{}

func (RendererMetric) Observe(_ context.Context, _ string, _ time.Duration, _ int, _ error) {}
