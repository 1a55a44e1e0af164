// Package pipe implements the kube and values pipelines: read a YAML
// document stream, run mutators over it and write it back.
package pipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/mutator"
	"github.com/lburgazzoli/kpipe/pkg/transformer"
	utilerrors "github.com/lburgazzoli/kpipe/pkg/util/errors"
	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
)

const (
	KubePipe   = "kube"
	ValuesPipe = "values"
)

// Kube reads every document from r, applies the mutators and writes the
// resulting stream to w. Null documents are dropped and order is kept.
// Output is buffered: on error nothing is written.
func Kube(ctx context.Context, r io.Reader, w io.Writer, mutators ...mutator.Mutator) error {
	start := time.Now()

	count, err := kube(ctx, r, w, mutators)
	metrics.ObservePipe(ctx, KubePipe, time.Since(start), count, err)

	return err
}

func kube(ctx context.Context, r io.Reader, w io.Writer, mutators []mutator.Mutator) (int, error) {
	if err := validate(mutators); err != nil {
		return 0, err
	}

	objects, err := utilk8s.DecodeObjects(r)
	if err != nil {
		return 0, err
	}

	out, err := Apply(ctx, objects, mutators...)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	if err := utilk8s.EncodeYAML(&buf, out); err != nil {
		return 0, err
	}

	if _, err := buf.WriteTo(w); err != nil {
		return 0, fmt.Errorf("unable to write documents: %w", err)
	}

	return len(out), nil
}

// Apply runs the mutators over objects. Every document is handed to every
// mutator in declaration order, and a mutator sees the output of the
// previous one. The input slice is not modified.
func Apply(ctx context.Context, objects []unstructured.Unstructured, mutators ...mutator.Mutator) ([]unstructured.Unstructured, error) {
	if err := validate(mutators); err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	result := make([]unstructured.Unstructured, 0, len(objects))

	for i := range objects {
		obj := *objects[i].DeepCopy()

		for _, m := range mutators {
			if !m.Matches(ctx, obj) {
				metrics.ObserveMutator(ctx, m.String(), false, nil)
				continue
			}

			l.Debug("applying mutator",
				zap.String("mutator", m.String()),
				zap.Int("document", i),
				zap.String("object", utilk8s.Describe(obj)))

			out, err := m.Func(ctx, obj)
			metrics.ObserveMutator(ctx, m.String(), true, err)

			if err != nil {
				return nil, fmt.Errorf("unable to apply mutator %s to document[%d]: %w", m, i, transformer.Wrap(obj, err))
			}

			obj = out
		}

		result = append(result, obj)
	}

	return result, nil
}

func validate(mutators []mutator.Mutator) error {
	for i, m := range mutators {
		if m.Func == nil {
			return fmt.Errorf("mutator[%d] %s: %w", i, m, utilerrors.ErrNilTransform)
		}
	}

	return nil
}
