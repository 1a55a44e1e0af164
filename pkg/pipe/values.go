package pipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lburgazzoli/kpipe/pkg/mutator"
	"github.com/lburgazzoli/kpipe/pkg/params"
	"github.com/lburgazzoli/kpipe/pkg/util"
	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
	"github.com/lburgazzoli/kpipe/pkg/util/logger"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
)

// Source opens a values document.
type Source func() (io.ReadCloser, error)

// File reads values from a file on disk.
func File(path string) Source {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// FS reads values from name in fsys.
func FS(fsys fs.FS, name string) Source {
	return func() (io.ReadCloser, error) {
		return fsys.Open(name)
	}
}

// Reader reads values from r.
func Reader(r io.Reader) Source {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	}
}

// Bytes reads values from an in-memory document.
func Bytes(data []byte) Source {
	return Reader(bytes.NewReader(data))
}

// Values reads the first document of src, stores p under "workshopctl",
// runs the mutators and writes the result to w as a single document.
//
// When src cannot be opened the mutators are skipped and the output only
// holds the parameters.
func Values(ctx context.Context, src Source, w io.Writer, p params.Parameters, mutators ...mutator.ValuesMutator) error {
	start := time.Now()

	err := values(ctx, src, w, p, mutators)

	count := 1
	if err != nil {
		count = 0
	}

	metrics.ObservePipe(ctx, ValuesPipe, time.Since(start), count, err)

	return err
}

func values(ctx context.Context, src Source, w io.Writer, p params.Parameters, mutators []mutator.ValuesMutator) error {
	var out map[string]any

	rc, err := src()
	if err != nil {
		logger.FromContext(ctx).Debug("values source not readable, emitting parameters only", zap.Error(err))

		out = map[string]any{
			params.ValuesKey: p.ToMap(),
		}
	} else {
		defer func() { _ = rc.Close() }()

		docs, err := utilk8s.DecodeDocuments(rc)
		if err != nil {
			return fmt.Errorf("unable to read values: %w", err)
		}

		in := map[string]any{}
		if len(docs) > 0 {
			in = docs[0]
		}

		out, err = ApplyValues(ctx, in, p, mutators...)
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := utilk8s.EncodeDocuments(&buf, []map[string]any{out}); err != nil {
		return err
	}

	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("unable to write values: %w", err)
	}

	return nil
}

// ApplyValues stores p under "workshopctl" in a copy of values and runs
// every mutator that has a function, in order.
func ApplyValues(ctx context.Context, values map[string]any, p params.Parameters, mutators ...mutator.ValuesMutator) (map[string]any, error) {
	result := util.DeepCopy(values)
	if result == nil {
		result = make(map[string]any)
	}

	result[params.ValuesKey] = p.ToMap()

	for i, m := range mutators {
		if m.Func == nil {
			continue
		}

		out, err := m.Func(ctx, result)
		metrics.ObserveMutator(ctx, fmt.Sprintf("values[%d]", i), true, err)

		if err != nil {
			return nil, fmt.Errorf("unable to apply values mutator[%d]: %w", i, err)
		}

		result = out
	}

	return result, nil
}
