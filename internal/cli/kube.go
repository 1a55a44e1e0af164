package cli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lburgazzoli/kpipe/pkg/filter/jq"
	"github.com/lburgazzoli/kpipe/pkg/filter/meta/labels"
	"github.com/lburgazzoli/kpipe/pkg/filter/meta/namespace"
	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/transformer/meta/annotations"
	"github.com/lburgazzoli/kpipe/pkg/types"

	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
)

type kubeOptions struct {
	preset    string
	namespace string
	showDiff  bool

	selector    string
	where       string
	namespaces  []string
	annotations map[string]string
}

func newKubeCommand() *cobra.Command {
	var opts kubeOptions

	cmd := &cobra.Command{
		Use:   "kube",
		Short: "Apply the mutators of a preset to a manifest stream",
		Long: `Reads a multi-document YAML stream from stdin, applies the kube mutators
of the preset to every document and writes the stream to stdout.

The result can be narrowed with --selector, --where and --only-namespace
and annotated with --annotate.`,
		Example: `  helm template workshopctl charts/kubernetes-dashboard | kpipe kube --preset kubernetes-dashboard
  kpipe kube --preset core-workshop-infra --where '.kind == "Deployment"' < infra.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := lookupPreset(opts.preset)
			if err != nil {
				return err
			}

			if opts.namespace != "" {
				p.Namespace = opts.namespace
			}

			filters, transformers, err := opts.stages()
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			in, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("unable to read input: %w", err)
			}

			var out bytes.Buffer
			if err := pipe.Kube(cmd.Context(), bytes.NewReader(in), &out, p.KubeMutators()...); err != nil {
				return err
			}

			result := out.Bytes()

			if len(filters) > 0 || len(transformers) > 0 {
				result, err = narrow(cmd, result, filters, transformers)
				if err != nil {
					return err
				}
			}

			return writeResult(cmd, in, result, opts.showDiff)
		},
	}

	cmd.Flags().StringVar(&opts.preset, "preset", "", "preset whose mutators are applied")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "namespace set on every document, overrides the preset one")
	cmd.Flags().BoolVar(&opts.showDiff, "diff", false, "print a unified diff instead of the result")
	cmd.Flags().StringVarP(&opts.selector, "selector", "l", "", "keep only documents matching this label selector")
	cmd.Flags().StringVar(&opts.where, "where", "", "keep only documents for which this jq expression is true")
	cmd.Flags().StringSliceVar(&opts.namespaces, "only-namespace", nil, "keep only documents in these namespaces")
	cmd.Flags().StringToStringVar(&opts.annotations, "annotate", nil, "annotations set on every emitted document")

	return cmd
}

func (o kubeOptions) stages() ([]types.Filter, []types.Transformer, error) {
	filters := make([]types.Filter, 0)
	transformers := make([]types.Transformer, 0)

	if o.selector != "" {
		f, err := labels.Selector(o.selector)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid selector %q: %w", o.selector, err)
		}

		filters = append(filters, f)
	}

	if o.where != "" {
		f, err := jq.Filter(o.where)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid jq expression %q: %w", o.where, err)
		}

		filters = append(filters, f)
	}

	if len(o.namespaces) > 0 {
		filters = append(filters, namespace.Filter(o.namespaces...))
	}

	if len(o.annotations) > 0 {
		transformers = append(transformers, annotations.Set(o.annotations))
	}

	return filters, transformers, nil
}

// narrow runs filters and transformers over the mutated stream. Documents
// without a kind are kept, as pipe.Kube keeps them.
func narrow(cmd *cobra.Command, content []byte, filters []types.Filter, transformers []types.Transformer) ([]byte, error) {
	objects, err := utilk8s.DecodeObjects(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	objects, err = pipe.Run(cmd.Context(), objects, filters, transformers)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := utilk8s.EncodeYAML(&out, objects); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
