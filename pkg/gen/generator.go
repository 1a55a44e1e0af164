package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	kustomizetypes "sigs.k8s.io/kustomize/api/types"

	"github.com/lburgazzoli/kpipe/pkg/engine"
	"github.com/lburgazzoli/kpipe/pkg/params"
	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/renderer/gotemplate"
	"github.com/lburgazzoli/kpipe/pkg/renderer/helm"
	"github.com/lburgazzoli/kpipe/pkg/renderer/kustomize"
	"github.com/lburgazzoli/kpipe/pkg/renderer/yaml"
	"github.com/lburgazzoli/kpipe/pkg/values"
	"github.com/lburgazzoli/kpipe/pkg/workshop"

	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Generator renders charts into root/clusters/NN/<chart>.yaml.
type Generator struct {
	root string
	opts GeneratorOptions
}

// New creates a Generator writing below root.
func New(root string, opts ...GeneratorOption) *Generator {
	options := GeneratorOptions{
		Presets: workshop.Lookup,
	}

	for _, opt := range opts {
		opt.ApplyTo(&options)
	}

	return &Generator{
		root: root,
		opts: options,
	}
}

// OutputPath returns the file the chart is written to for cluster n.
func (g *Generator) OutputPath(chart Chart, n params.ClusterNumber) string {
	return filepath.Join(g.root, filepath.FromSlash(n.Dir()), chart.Name+".yaml")
}

// Generate renders chart for the cluster described by p:
//
//  1. values-override.yaml (or values.yaml) is templated with p and the
//     generator settings, run through the values pipeline with the preset
//     values mutators and the generator settings are added below workshopctl
//  2. the chart is rendered with those values
//  3. the kube pipeline applies the preset mutators
//  4. the provider chart processors run over the stream
//  5. escaped template braces are restored
//
// Unescaping comes last since restored braces are not valid YAML anymore.
// The result is written to OutputPath, or logged when dry-running.
func (g *Generator) Generate(ctx context.Context, chart Chart, p params.Parameters) error {
	start := time.Now()

	l := logger.FromContext(ctx).With(
		zap.String("chart", chart.Name),
		zap.String("cluster", p.ClusterNumber.String()))

	ctx = logger.WithLogger(ctx, l)

	preset := g.opts.Presets(chart.Name)

	renderValues, err := g.values(ctx, chart, p, preset)
	if err != nil {
		return fmt.Errorf("chart %s: %w", chart.Name, err)
	}

	rendered, err := g.render(ctx, chart, renderValues)
	if err != nil {
		return fmt.Errorf("chart %s: %w", chart.Name, err)
	}

	var mutated bytes.Buffer
	if err := pipe.Kube(ctx, bytes.NewReader(rendered), &mutated, preset.KubeMutators()...); err != nil {
		return fmt.Errorf("chart %s: %w", chart.Name, err)
	}

	out, err := g.process(p.Provider, mutated.Bytes())
	if err != nil {
		return fmt.Errorf("chart %s: %w", chart.Name, err)
	}

	out = values.Unescape(out)

	target := g.OutputPath(chart, p.ClusterNumber)

	if g.opts.DryRun {
		l.Info("dry-run, not writing chart",
			zap.String("path", target),
			zap.Int("bytes", len(out)),
			zap.ByteString("content", out))

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("chart %s: unable to create output directory: %w", chart.Name, err)
	}

	if err := os.WriteFile(target, out, filePerm); err != nil {
		return fmt.Errorf("chart %s: unable to write %s: %w", chart.Name, target, err)
	}

	l.Info("chart generated",
		zap.String("path", target),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// GenerateAll renders every chart for clusters 1..clusters.
func (g *Generator) GenerateAll(ctx context.Context, charts []Chart, p params.Parameters, clusters uint16) error {
	return ForClusters(ctx, clusters, func(ctx context.Context, n params.ClusterNumber) error {
		cp := p.WithCluster(n)
		if err := cp.Validate(); err != nil {
			return fmt.Errorf("cluster %s: %w", n, err)
		}

		for _, chart := range charts {
			if err := g.Generate(ctx, chart, cp); err != nil {
				return fmt.Errorf("cluster %s: %w", n, err)
			}
		}

		return nil
	})
}

// ForClusters runs fn for clusters 1..n concurrently. Every started cluster
// runs to completion and the errors of all failed clusters are joined.
// Clusters not yet started when ctx is done are skipped with ctx.Err().
func ForClusters(ctx context.Context, n uint16, fn func(ctx context.Context, n params.ClusterNumber) error) error {
	errs := make([]error, n)

	var g errgroup.Group

	for i := range n {
		g.Go(func() error {
			cluster := params.ClusterNumber(i + 1)

			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("cluster %s: %w", cluster, err)

				return nil
			}

			errs[i] = fn(ctx, cluster)

			return nil
		})
	}

	_ = g.Wait()

	return errors.Join(errs...)
}

func (g *Generator) values(ctx context.Context, chart Chart, p params.Parameters, preset workshop.Preset) (map[string]any, error) {
	path := chart.ValuesPath()

	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to read values: %w", err)
	}

	generated, err := p.GeneratorValues(g.opts.Generator)
	if err != nil {
		return nil, err
	}

	templated, err := values.Template(filepath.Base(path), content, p, generated)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pipe.Values(ctx, pipe.Bytes(templated), &buf, p, preset.ValuesMutators...); err != nil {
		return nil, err
	}

	docs, err := utilk8s.DecodeDocuments(&buf)
	if err != nil {
		return nil, err
	}

	result := map[string]any{}
	if len(docs) > 0 {
		result = docs[0]
	}

	scope, ok := result[params.ValuesKey].(map[string]any)
	if !ok {
		scope = map[string]any{}
	}

	for k, v := range generated {
		scope[k] = v
	}

	result[params.ValuesKey] = scope

	return result, nil
}

func (g *Generator) render(ctx context.Context, chart Chart, renderValues map[string]any) ([]byte, error) {
	e, err := g.engine(chart)
	if err != nil {
		return nil, err
	}

	objects, err := e.Render(ctx, engine.WithRenderValues(renderValues))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := utilk8s.EncodeYAML(&buf, objects); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g *Generator) engine(chart Chart) (*engine.Engine, error) {
	switch chart.Layout {
	case LayoutHelm:
		return engine.Helm(
			helm.Source{
				Chart:       chart.Dir,
				ReleaseName: helm.DefaultReleaseName,
				Namespace:   chart.Namespace,
			},
			helm.WithSourceAnnotations(g.opts.SourceAnnotations),
			helm.WithStrict(g.opts.Strict))
	case LayoutKustomize:
		return engine.Kustomize(
			kustomize.Source{
				Path: chart.Dir,
			},
			// bases may live in hidden directories next to the chart
			kustomize.WithLoadRestrictions(kustomizetypes.LoadRestrictionsNone),
			kustomize.WithSourceAnnotations(g.opts.SourceAnnotations))
	case LayoutTemplate:
		return engine.GoTemplate(
			gotemplate.Source{
				FS:   os.DirFS(chart.Dir),
				Path: TemplatePattern,
			},
			gotemplate.WithSourceAnnotations(g.opts.SourceAnnotations))
	case LayoutYaml:
		return engine.Yaml(
			yaml.Source{
				FS:      os.DirFS(chart.Dir),
				Path:    "*.y*ml",
				Exclude: []string{"values*.yaml"},
			},
			yaml.WithSourceAnnotations(g.opts.SourceAnnotations))
	default:
		return nil, fmt.Errorf("unsupported chart layout %q", chart.Layout)
	}
}

func (g *Generator) process(provider string, content []byte) ([]byte, error) {
	processors, err := workshop.ChartProcessors(provider)
	if err != nil {
		return nil, err
	}

	if len(processors) == 0 {
		return content, nil
	}

	var out bytes.Buffer
	if err := pipe.KYAML(bytes.NewReader(content), &out, processors...); err != nil {
		return nil, fmt.Errorf("unable to run %s chart processors: %w", provider, err)
	}

	return out.Bytes(), nil
}
