package logger_test

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lburgazzoli/kpipe/pkg/util/logger"

	. "github.com/onsi/gomega"
)

func TestFromContext(t *testing.T) {
	t.Run("should return the attached logger", func(t *testing.T) {
		g := NewWithT(t)

		core, logs := observer.New(zapcore.DebugLevel)
		ctx := logger.WithLogger(t.Context(), zap.New(core))

		logger.FromContext(ctx).Debug("mutating", zap.String("kind", "Deployment"))

		g.Expect(logs.FilterMessage("mutating").Len()).To(Equal(1))
	})

	t.Run("should fall back to a no-op logger", func(t *testing.T) {
		g := NewWithT(t)

		l := logger.FromContext(t.Context())
		g.Expect(l).ToNot(BeNil())
		g.Expect(func() { l.Info("discarded") }).ToNot(Panic())
	})
}
