// Package gotemplate renders manifest templates with text/template and the
// sprig functions, using the chart values as data.
package gotemplate

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util"
	"github.com/lburgazzoli/kpipe/pkg/util/cache"
	"github.com/lburgazzoli/kpipe/pkg/util/k8s"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
)

const rendererType = "gotemplate"

// Source is a set of manifest templates.
type Source struct {
	// FS holds the templates; embed.FS, os.DirFS and fstest.MapFS all work.
	FS fs.FS

	// Path is a glob pattern, e.g. "*.yaml.tpl".
	Path string

	// Values are merged with the render-time values; render-time values win.
	Values func(context.Context) (map[string]any, error)
}

// Renderer executes templates. It implements types.Renderer and is safe for
// concurrent use; templates are parsed once per source.
type Renderer struct {
	inputs []*sourceHolder
	opts   RendererOptions
}

// New creates a Renderer for inputs.
func New(inputs []Source, opts ...RendererOption) (*Renderer, error) {
	rendererOpts := RendererOptions{
		Filters:      make([]types.Filter, 0),
		Transformers: make([]types.Transformer, 0),
	}

	for _, opt := range opts {
		opt.ApplyTo(&rendererOpts)
	}

	holders := make([]*sourceHolder, len(inputs))
	for i := range inputs {
		holders[i] = &sourceHolder{Source: inputs[i]}
		if err := holders[i].Validate(); err != nil {
			return nil, fmt.Errorf("input[%d]: %w", i, err)
		}
	}

	return &Renderer{
		inputs: holders,
		opts:   rendererOpts,
	}, nil
}

// Process executes the templates of every source with renderTimeValues
// merged over the source values.
func (r *Renderer) Process(ctx context.Context, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	start := time.Now()

	result, err := r.process(ctx, renderTimeValues)
	metrics.ObserveRenderer(ctx, rendererType, time.Since(start), len(result), err)

	return result, err
}

func (r *Renderer) process(ctx context.Context, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	allObjects := make([]unstructured.Unstructured, 0)

	for i := range r.inputs {
		objects, err := r.renderSingle(ctx, r.inputs[i], renderTimeValues)
		if err != nil {
			return nil, fmt.Errorf("error rendering gotemplate[%d] pattern %s: %w", i, r.inputs[i].Path, err)
		}

		transformed, err := pipe.Run(ctx, objects, r.opts.Filters, r.opts.Transformers)
		if err != nil {
			return nil, fmt.Errorf("error applying filters/transformers to gotemplate pattern %s: %w", r.inputs[i].Path, err)
		}

		allObjects = append(allObjects, transformed...)
	}

	return allObjects, nil
}

// Name returns the renderer type identifier.
func (r *Renderer) Name() string {
	return rendererType
}

func (r *Renderer) values(ctx context.Context, holder *sourceHolder, renderTimeValues map[string]any) (map[string]any, error) {
	var sourceValues map[string]any

	if holder.Values != nil {
		v, err := holder.Values(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get values: %w", err)
		}

		sourceValues = v
	}

	values := util.DeepMerge(sourceValues, renderTimeValues)
	if values == nil {
		values = map[string]any{}
	}

	return values, nil
}

func (r *Renderer) renderSingle(ctx context.Context, holder *sourceHolder, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	templates, err := holder.LoadTemplates()
	if err != nil {
		return nil, err
	}

	values, err := r.values(ctx, holder, renderTimeValues)
	if err != nil {
		return nil, err
	}

	var cacheKey string

	if r.opts.Cache != nil {
		cacheKey = cache.Key(struct {
			Path   string
			Values map[string]any
		}{
			Path:   holder.Path,
			Values: values,
		})

		r.opts.Cache.Sync()

		if cached, found := r.opts.Cache.Get(cacheKey); found {
			logger.FromContext(ctx).Debug("gotemplate cache hit", zap.String("path", holder.Path))
			return cached, nil
		}
	}

	// Templates() has no stable order
	all := templates.Templates()
	slices.SortFunc(all, func(a, b *template.Template) int {
		return strings.Compare(a.Name(), b.Name())
	})

	result := make([]unstructured.Unstructured, 0)

	for _, t := range all {
		if t.Name() == "" {
			continue
		}

		var buf bytes.Buffer
		if err := t.Execute(&buf, values); err != nil {
			return nil, fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
		}

		objs, err := k8s.DecodeYAML(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to decode YAML from template %s: %w", t.Name(), err)
		}

		if r.opts.SourceAnnotations {
			for i := range objs {
				annotations := objs[i].GetAnnotations()
				if annotations == nil {
					annotations = make(map[string]string)
				}

				annotations[types.AnnotationSourceType] = rendererType
				annotations[types.AnnotationSourcePath] = holder.Path
				annotations[types.AnnotationSourceFile] = t.Name()

				objs[i].SetAnnotations(annotations)
			}
		}

		result = append(result, objs...)
	}

	if r.opts.Cache != nil {
		r.opts.Cache.Set(cacheKey, result)
	}

	return result, nil
}
