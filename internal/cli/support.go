package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lburgazzoli/kpipe/pkg/util/diff"
	"github.com/lburgazzoli/kpipe/pkg/workshop"
)

// lookupPreset resolves name; an empty name selects an empty preset.
func lookupPreset(name string) (workshop.Preset, error) {
	if name == "" {
		return workshop.Preset{}, nil
	}

	p, ok := workshop.Get(name)
	if !ok {
		return workshop.Preset{}, &ExitError{
			Code: 2,
			Err:  fmt.Errorf("unknown preset %q, available: %s", name, strings.Join(workshop.Names(), ", ")),
		}
	}

	return p, nil
}

// writeResult prints out, or the unified diff from in to out when showDiff is set.
func writeResult(cmd *cobra.Command, in []byte, out []byte, showDiff bool) error {
	if !showDiff {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}

	d, err := diff.Unified("input", "output", string(in), string(out))
	if err != nil {
		return fmt.Errorf("unable to compute diff: %w", err)
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), d)

	return err
}
