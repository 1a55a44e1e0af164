// Package yaml loads plain manifest files from an fs.FS.
package yaml

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util/cache"
	"github.com/lburgazzoli/kpipe/pkg/util/k8s"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
)

const rendererType = "yaml"

// Source is a set of manifest files.
type Source struct {
	// FS holds the manifests; embed.FS, os.DirFS and fstest.MapFS all work.
	FS fs.FS

	// Path is a glob pattern, e.g. "charts/infra/*.yaml".
	Path string

	// Exclude lists base name patterns to skip, e.g. "values*.yaml".
	Exclude []string
}

// Renderer loads manifests. It implements types.Renderer; render-time
// values are ignored since plain manifests carry no templates.
type Renderer struct {
	inputs []sourceHolder
	opts   RendererOptions
}

// New creates a Renderer for inputs.
func New(inputs []Source, opts ...RendererOption) (*Renderer, error) {
	holders := make([]sourceHolder, len(inputs))
	for i := range inputs {
		holders[i] = sourceHolder{Source: inputs[i]}
		if err := holders[i].Validate(); err != nil {
			return nil, fmt.Errorf("input[%d]: %w", i, err)
		}
	}

	rendererOpts := RendererOptions{
		Filters:      make([]types.Filter, 0),
		Transformers: make([]types.Transformer, 0),
	}

	for _, opt := range opts {
		opt.ApplyTo(&rendererOpts)
	}

	return &Renderer{
		inputs: holders,
		opts:   rendererOpts,
	}, nil
}

// Process loads every source.
func (r *Renderer) Process(ctx context.Context, _ map[string]any) ([]unstructured.Unstructured, error) {
	start := time.Now()

	result, err := r.process(ctx)
	metrics.ObserveRenderer(ctx, rendererType, time.Since(start), len(result), err)

	return result, err
}

func (r *Renderer) process(ctx context.Context) ([]unstructured.Unstructured, error) {
	allObjects := make([]unstructured.Unstructured, 0)

	for i := range r.inputs {
		objects, err := r.renderSingle(ctx, &r.inputs[i])
		if err != nil {
			return nil, fmt.Errorf("error rendering YAML[%d] pattern %s: %w", i, r.inputs[i].Path, err)
		}

		transformed, err := pipe.Run(ctx, objects, r.opts.Filters, r.opts.Transformers)
		if err != nil {
			return nil, fmt.Errorf("error applying filters/transformers to YAML pattern %s: %w", r.inputs[i].Path, err)
		}

		allObjects = append(allObjects, transformed...)
	}

	return allObjects, nil
}

// Name returns the renderer type identifier.
func (r *Renderer) Name() string {
	return rendererType
}

func (r *Renderer) renderSingle(ctx context.Context, holder *sourceHolder) ([]unstructured.Unstructured, error) {
	var cacheKey string

	if r.opts.Cache != nil {
		cacheKey = cache.Key(struct {
			Path    string
			Exclude []string
		}{
			Path:    holder.Path,
			Exclude: holder.Exclude,
		})

		r.opts.Cache.Sync()

		if cached, found := r.opts.Cache.Get(cacheKey); found {
			return cached, nil
		}
	}

	matches, err := fs.Glob(holder.FS, holder.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to match pattern %s: %w", holder.Path, err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no files matched pattern: %s", holder.Path)
	}

	slices.Sort(matches)

	result := make([]unstructured.Unstructured, 0)

	for _, match := range matches {
		if holder.excluded(match) {
			logger.FromContext(ctx).Debug("skipping excluded file", zap.String("file", match))
			continue
		}

		objects, err := r.load(holder.FS, match)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", match, err)
		}

		result = append(result, objects...)
	}

	if r.opts.Cache != nil {
		r.opts.Cache.Set(cacheKey, result)
	}

	return result, nil
}

func (r *Renderer) load(fsys fs.FS, name string) ([]unstructured.Unstructured, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", name)
	}

	if ext := path.Ext(name); ext != ".yaml" && ext != ".yml" {
		return nil, nil
	}

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	objects, err := k8s.DecodeYAML(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	if r.opts.SourceAnnotations {
		for i := range objects {
			annotations := objects[i].GetAnnotations()
			if annotations == nil {
				annotations = make(map[string]string)
			}

			annotations[types.AnnotationSourceType] = rendererType
			annotations[types.AnnotationSourceFile] = name

			objects[i].SetAnnotations(annotations)
		}
	}

	return objects, nil
}
