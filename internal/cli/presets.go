package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lburgazzoli/kpipe/pkg/workshop"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in chart presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			fmt.Fprintln(w, "NAME\tNAMESPACE\tMUTATORS\tVALUES MUTATORS")

			for _, name := range workshop.Names() {
				p := workshop.Lookup(name)

				namespace := p.Namespace
				if namespace == "" {
					namespace = "-"
				}

				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", name, namespace, len(p.Mutators), len(p.ValuesMutators))
			}

			return w.Flush()
		},
	}
}
