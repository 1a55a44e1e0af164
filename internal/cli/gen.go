package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lburgazzoli/kpipe/internal/config"
	"github.com/lburgazzoli/kpipe/internal/watch"
	"github.com/lburgazzoli/kpipe/pkg/gen"
	"github.com/lburgazzoli/kpipe/pkg/params"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics/memory"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics/noop"
)

func newGenCommand() *cobra.Command {
	var (
		watchCharts       bool
		debounce          time.Duration
		sourceAnnotations bool
		strict            bool
	)

	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Render every chart for every cluster",
		Long: `Renders each directory of <root>/charts for clusters 1..N and writes the
result to <root>/clusters/NN/<chart>.yaml. Helm charts, kustomizations,
*.yaml.tpl template directories and plain manifest directories are supported; the built-in presets and the DNS
provider processors are applied on top.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			opts := []gen.GeneratorOption{
				gen.WithDryRun(cfg.DryRun),
				gen.WithGenerator(cfg.Generator()),
				gen.WithSourceAnnotations(sourceAnnotations),
				gen.WithStrict(strict),
			}

			if watchCharts {
				return watch.Run(ctx, watch.Options{
					Dir:      filepath.Join(cfg.Root, gen.ChartsDir),
					Debounce: debounce,
				}, func(ctx context.Context) error {
					return generate(ctx, cfg, opts...)
				})
			}

			return generate(ctx, cfg, opts...)
		},
	}

	cmd.Flags().String("root", defaults.Root, "workshop root directory holding charts/ and clusters/")
	cmd.Flags().Uint16("clusters", defaults.Clusters, "number of clusters to render")
	cmd.Flags().Bool("dry-run", defaults.DryRun, "log the manifests instead of writing them")
	cmd.Flags().String("letsencrypt-email", defaults.LetsEncryptEmail, "email used for Let's Encrypt certificates")
	cmd.Flags().String("tutorials-repo", defaults.TutorialsRepo, "git repository holding the workshop tutorials")
	cmd.Flags().String("tutorials-dir", defaults.TutorialsDir, "directory of the tutorials inside the tutorials repository")
	cmd.Flags().String("cluster-username", defaults.ClusterUsername, "basic auth username of the workshop clusters")
	cmd.Flags().BoolVar(&watchCharts, "watch", false, "render again whenever a chart changes")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail helm charts whose templates reference missing values")
	cmd.Flags().BoolVar(&sourceAnnotations, "source-annotations", false, "annotate every object with the file it was rendered from")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before rendering again in watch mode")

	return cmd
}

func generate(ctx context.Context, cfg *config.Config, opts ...gen.GeneratorOption) error {
	l := logger.FromContext(ctx)

	m := &metrics.Metrics{
		PipeMetric:     noop.PipeMetric{},
		RendererMetric: noop.RendererMetric{},
	}

	// summaries are only logged at debug level
	var (
		pipes     *memory.PipeMetric
		renderers *memory.RendererMetric
	)

	if l.Core().Enabled(zapcore.DebugLevel) {
		pipes = memory.NewPipeMetric()
		renderers = memory.NewRendererMetric()

		m.PipeMetric = pipes
		m.RendererMetric = renderers
	}

	ctx = metrics.WithMetrics(ctx, m)

	charts, err := gen.Discover(filepath.Join(cfg.Root, gen.ChartsDir))
	if err != nil {
		return err
	}

	g := gen.New(cfg.Root, opts...)

	if err := g.GenerateAll(ctx, charts, cfg.Parameters(params.DefaultClusterNumber), cfg.Clusters); err != nil {
		return err
	}

	if pipes != nil {
		logSummaries(l, pipes, renderers)
	}

	l.Info("generation completed",
		zap.Int("charts", len(charts)),
		zap.Uint16("clusters", cfg.Clusters),
		zap.Bool("dryRun", cfg.DryRun))

	return nil
}

func logSummaries(l *zap.Logger, pipes *memory.PipeMetric, renderers *memory.RendererMetric) {
	for name, s := range pipes.Summary() {
		l.Debug("pipe summary",
			zap.String("pipe", name),
			zap.Int("executions", s.Executions),
			zap.Int("documents", s.TotalDocuments),
			zap.Duration("average", s.AverageDuration))
	}

	for name, s := range renderers.Summary() {
		l.Debug("renderer summary",
			zap.String("renderer", name),
			zap.Int("executions", s.Executions),
			zap.Int("objects", s.TotalDocuments),
			zap.Duration("average", s.AverageDuration))
	}
}
