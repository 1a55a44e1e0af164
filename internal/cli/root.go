// Package cli implements the kpipe command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lburgazzoli/kpipe/internal/config"
	"github.com/lburgazzoli/kpipe/internal/logging"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// NewRootCommand builds the kpipe command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "kpipe",
		Short: "Template and patch Kubernetes manifests for workshop clusters",
		Long: `kpipe runs Kubernetes manifest streams and Helm values files through
chains of mutators, and renders the workshop charts for every cluster.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			l, err := logging.FromConfig(cfg)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			ctx := cmd.Context()
			ctx = config.WithConfig(ctx, cfg)
			ctx = logger.WithLogger(ctx, l)
			cmd.SetContext(ctx)

			l.Debug("configuration loaded",
				zap.String("file", cfg.ConfigFile),
				zap.String("logLevel", cfg.LogLevel),
				zap.String("logFormat", cfg.LogFormat))

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			_ = logger.FromContext(cmd.Context()).Sync()
		},
	}

	defaults := config.Default()

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .kpipe.yaml)")
	pf.String("log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	pf.String("log-format", defaults.LogFormat, "log format: console, json")
	pf.String("domain", defaults.Domain, "root domain of the workshop clusters")
	pf.String("git-repo", defaults.GitRepo, "git repository the clusters sync from")
	pf.String("provider", defaults.Provider, "cloud and DNS provider")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newKubeCommand(),
		newValuesCommand(),
		newGenCommand(),
		newPresetsCommand(),
	)

	return cmd
}
