// Package kustomize renders kustomization directories into unstructured objects.
package kustomize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	kustomizetypes "sigs.k8s.io/kustomize/api/types"
	"sigs.k8s.io/kustomize/kyaml/filesys"

	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util/cache"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
)

const rendererType = "kustomize"

// ErrPathEmpty is returned when a Source has no path.
var ErrPathEmpty = errors.New("path cannot be empty or whitespace-only")

// Source is a kustomization directory.
type Source struct {
	// Path is the directory holding the kustomization file.
	Path string

	// Values are merged with render-time values and exposed to the
	// kustomization as a ConfigMap named "values" at Path/values.yaml. The
	// kustomization decides whether and how to use it, typically by listing
	// values.yaml in resources and reading it through replacements.
	Values func(context.Context) (map[string]any, error)

	// LoadRestrictions overrides the renderer-wide restrictions when set.
	LoadRestrictions kustomizetypes.LoadRestrictions
}

// Renderer renders kustomizations. It implements types.Renderer.
type Renderer struct {
	inputs []Source
	engine *Engine
	opts   RendererOptions
}

// New creates a Renderer for inputs.
func New(inputs []Source, opts ...RendererOption) (*Renderer, error) {
	rendererOpts := RendererOptions{
		Filters:          make([]types.Filter, 0),
		Transformers:     make([]types.Transformer, 0),
		LoadRestrictions: kustomizetypes.LoadRestrictionsRootOnly,
		FileSystem:       filesys.MakeFsOnDisk(),
	}

	for _, opt := range opts {
		opt.ApplyTo(&rendererOpts)
	}

	for i := range inputs {
		if strings.TrimSpace(inputs[i].Path) == "" {
			return nil, fmt.Errorf("input[%d]: %w", i, ErrPathEmpty)
		}
	}

	return &Renderer{
		inputs: inputs,
		engine: NewEngine(rendererOpts.FileSystem, &rendererOpts),
		opts:   rendererOpts,
	}, nil
}

// Process renders every source. renderTimeValues take precedence over the
// values of each Source.
func (r *Renderer) Process(ctx context.Context, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	start := time.Now()

	result, err := r.process(ctx, renderTimeValues)
	metrics.ObserveRenderer(ctx, rendererType, time.Since(start), len(result), err)

	return result, err
}

func (r *Renderer) process(ctx context.Context, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	allObjects := make([]unstructured.Unstructured, 0)

	for i, input := range r.inputs {
		objects, err := r.renderSingle(ctx, input, renderTimeValues)
		if err != nil {
			return nil, fmt.Errorf("error rendering kustomize[%d] path %s: %w", i, input.Path, err)
		}

		transformed, err := pipe.Run(ctx, objects, r.opts.Filters, r.opts.Transformers)
		if err != nil {
			return nil, fmt.Errorf("error applying filters/transformers to kustomize[%d] path %s: %w", i, input.Path, err)
		}

		allObjects = append(allObjects, transformed...)
	}

	return allObjects, nil
}

// Name returns the renderer type identifier.
func (r *Renderer) Name() string {
	return rendererType
}

func (r *Renderer) renderSingle(ctx context.Context, input Source, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	values, err := computeValues(ctx, input, renderTimeValues)
	if err != nil {
		return nil, err
	}

	var cacheKey string

	if r.opts.Cache != nil {
		cacheKey = cache.Key(struct {
			Path   string
			Values map[string]string
		}{
			Path:   input.Path,
			Values: values,
		})

		r.opts.Cache.Sync()

		if cached, found := r.opts.Cache.Get(cacheKey); found {
			logger.FromContext(ctx).Debug("kustomize cache hit", zap.String("path", input.Path))
			return cached, nil
		}
	}

	result, err := r.engine.Run(input, values)
	if err != nil {
		return nil, err
	}

	if r.opts.Cache != nil {
		r.opts.Cache.Set(cacheKey, result)
	}

	return result, nil
}
