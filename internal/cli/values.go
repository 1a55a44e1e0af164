package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/lburgazzoli/kpipe/internal/config"
	"github.com/lburgazzoli/kpipe/pkg/params"
	"github.com/lburgazzoli/kpipe/pkg/pipe"
)

func newValuesCommand() *cobra.Command {
	var (
		preset   string
		file     string
		showDiff bool
	)

	cmd := &cobra.Command{
		Use:   "values",
		Short: "Inject the workshop parameters into a values file and apply the preset values mutators",
		Long: `Reads the first document of the values file, stores the workshop parameters
under the "workshopctl" key, applies the values mutators of the preset and
writes the result to stdout. A missing values file yields a document that only
holds the parameters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			p, err := lookupPreset(preset)
			if err != nil {
				return err
			}

			parameters := cfg.Parameters(params.ClusterNumber(cfg.Cluster))
			if err := parameters.Validate(); err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			in, err := os.ReadFile(file)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("unable to read %s: %w", file, err)
			}

			var out bytes.Buffer
			if err := pipe.Values(ctx, pipe.File(file), &out, parameters, p.ValuesMutators...); err != nil {
				return err
			}

			return writeResult(cmd, in, out.Bytes(), showDiff)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "preset whose values mutators are applied")
	cmd.Flags().StringVarP(&file, "file", "f", "values.yaml", "values file")
	cmd.Flags().Uint16("cluster", config.Default().Cluster, "cluster number")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a unified diff instead of the result")

	return cmd
}
