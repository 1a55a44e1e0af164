// Package helm renders local or remote Helm charts into unstructured objects.
package helm

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/engine"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util"
	"github.com/lburgazzoli/kpipe/pkg/util/cache"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
)

const (
	rendererType = "helm"

	// DefaultReleaseName is the release every workshop chart is rendered as.
	DefaultReleaseName = "workshopctl"

	// DefaultNamespace is used when a Source has no namespace.
	DefaultNamespace = "default"
)

// Source defines a Helm chart to render.
type Source struct {
	// Chart is a local chart directory, an OCI reference or a chart name in Repo.
	Chart string

	// Repo is the repository URL for chart lookup. Optional for local or OCI charts.
	Repo string

	// ReleaseName defaults to DefaultReleaseName.
	ReleaseName string

	// ReleaseVersion constrains the chart version to fetch. Optional.
	ReleaseVersion string

	// Namespace is the release namespace; defaults to DefaultNamespace.
	Namespace string

	// Values are merged with the chart defaults; render-time values win.
	Values func(context.Context) (map[string]any, error)

	// ProcessDependencies enables chartutil.ProcessDependencies.
	ProcessDependencies bool
}

// Renderer renders Helm charts. It implements types.Renderer and is safe
// for concurrent use: charts are loaded lazily, once per Source.
type Renderer struct {
	settings   *cli.EnvSettings
	inputs     []*sourceHolder
	helmEngine engine.Engine
	opts       RendererOptions
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

	settings := rendererOpts.Settings
	if settings == nil {
		settings = cli.New()
	}

	holders := make([]*sourceHolder, len(inputs))
	for i := range inputs {
		holders[i] = newSourceHolder(inputs[i])
		if err := holders[i].Validate(); err != nil {
			return nil, err
		}
	}

	return &Renderer{
		settings: settings,
		inputs:   holders,
		helmEngine: engine.Engine{
			Strict: rendererOpts.Strict,
		},
		opts: rendererOpts,
	}, nil
}

// Process renders every source with renderTimeValues merged over its values.
func (r *Renderer) Process(ctx context.Context, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	start := time.Now()

	result, err := r.process(ctx, renderTimeValues)
	metrics.ObserveRenderer(ctx, rendererType, time.Since(start), len(result), err)

	return result, err
}

func (r *Renderer) process(ctx context.Context, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	allObjects := make([]unstructured.Unstructured, 0)

	for _, holder := range r.inputs {
		objects, err := r.renderSingle(ctx, holder, renderTimeValues)
		if err != nil {
			return nil, fmt.Errorf("error rendering helm chart %s (release: %s): %w", holder.Chart, holder.ReleaseName, err)
		}

		transformed, err := pipe.Run(ctx, objects, r.opts.Filters, r.opts.Transformers)
		if err != nil {
			return nil, fmt.Errorf("error applying filters/transformers to helm chart %s (release: %s): %w", holder.Chart, holder.ReleaseName, err)
		}

		allObjects = append(allObjects, transformed...)
	}

	return allObjects, nil
}

// Name returns the renderer type identifier.
func (r *Renderer) Name() string {
	return rendererType
}

func (r *Renderer) prepareRenderValues(ctx context.Context, holder *sourceHolder, renderTimeValues map[string]any) (chartutil.Values, error) {
	values := map[string]any{}

	if holder.Values != nil {
		v, err := holder.Values(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get values: %w", err)
		}

		values = v
	}

	values = util.DeepMerge(values, renderTimeValues)

	if holder.ProcessDependencies {
		if err := chartutil.ProcessDependencies(holder.chart, values); err != nil {
			return nil, fmt.Errorf("failed to process dependencies: %w", err)
		}
	}

	renderValues, err := chartutil.ToRenderValues(
		holder.chart,
		values,
		chartutil.ReleaseOptions{
			Name:      holder.ReleaseName,
			Namespace: holder.Namespace,
			Revision:  1,
			IsInstall: true,
		},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare render values: %w", err)
	}

	return renderValues, nil
}

func (r *Renderer) renderSingle(ctx context.Context, holder *sourceHolder, renderTimeValues map[string]any) ([]unstructured.Unstructured, error) {
	chart, err := holder.LoadChart(r.settings)
	if err != nil {
		return nil, err
	}

	renderValues, err := r.prepareRenderValues(ctx, holder, renderTimeValues)
	if err != nil {
		return nil, err
	}

	var cacheKey string

	if r.opts.Cache != nil {
		cacheKey = cache.Key(struct {
			Chart          string
			ReleaseName    string
			ReleaseVersion string
			Namespace      string
			RenderValues   chartutil.Values
		}{
			Chart:          holder.Chart,
			ReleaseName:    holder.ReleaseName,
			ReleaseVersion: holder.ReleaseVersion,
			Namespace:      holder.Namespace,
			RenderValues:   renderValues,
		})

		r.opts.Cache.Sync()

		if cached, found := r.opts.Cache.Get(cacheKey); found {
			logger.FromContext(ctx).Debug("helm cache hit", zap.String("chart", holder.Chart))
			return cached, nil
		}
	}

	files, err := r.helmEngine.Render(chart, renderValues)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	crdObjects, err := r.processCRDs(chart, holder)
	if err != nil {
		return nil, err
	}

	templateObjects, err := r.processRenderedTemplates(files, holder)
	if err != nil {
		return nil, err
	}

	result := slices.Concat(crdObjects, templateObjects)

	if r.opts.Cache != nil {
		r.opts.Cache.Set(cacheKey, result)
	}

	return result, nil
}
