package memory_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lburgazzoli/kpipe/pkg/util/metrics/memory"

	. "github.com/onsi/gomega"
)

func TestPipeMetric(t *testing.T) {
	t.Run("should aggregate runs per pipe", func(t *testing.T) {
		g := NewWithT(t)
		ctx := t.Context()

		m := memory.NewPipeMetric()
		m.Observe(ctx, "kube", 100*time.Millisecond, 4, nil)
		m.Observe(ctx, "kube", 300*time.Millisecond, 2, nil)
		m.Observe(ctx, "values", 10*time.Millisecond, 1, nil)

		summary := m.Summary()
		g.Expect(summary).To(HaveLen(2))
		g.Expect(summary["kube"].Executions).To(Equal(2))
		g.Expect(summary["kube"].TotalDocuments).To(Equal(6))
		g.Expect(summary["kube"].AverageDuration).To(Equal(200 * time.Millisecond))
		g.Expect(summary["values"].TotalDocuments).To(Equal(1))
	})

	t.Run("should count errors", func(t *testing.T) {
		g := NewWithT(t)

		m := memory.NewPipeMetric()
		m.Observe(t.Context(), "kube", time.Millisecond, 0, errors.New("boom"))

		g.Expect(m.Summary()["kube"].Errors).To(Equal(1))
	})

	t.Run("should be safe for concurrent use", func(t *testing.T) {
		g := NewWithT(t)

		m := memory.NewPipeMetric()

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.Observe(t.Context(), "kube", time.Millisecond, 1, nil)
			}()
		}
		wg.Wait()

		g.Expect(m.Summary()["kube"].Executions).To(Equal(50))
	})
}

func TestMutatorMetric(t *testing.T) {
	g := NewWithT(t)
	ctx := t.Context()

	m := memory.NewMutatorMetric()
	m.Observe(ctx, "apps/v1, Kind=Deployment/external-dns", true, nil)
	m.Observe(ctx, "apps/v1, Kind=Deployment/external-dns", false, nil)
	m.Observe(ctx, "namespace", true, errors.New("boom"))

	summary := m.Summary()
	g.Expect(summary["apps/v1, Kind=Deployment/external-dns"]).To(Equal(memory.MutatorStats{
		Evaluated: 2,
		Applied:   1,
	}))
	g.Expect(summary["namespace"]).To(Equal(memory.MutatorStats{
		Evaluated: 1,
		Applied:   1,
		Errors:    1,
	}))
}

func TestRendererMetric(t *testing.T) {
	g := NewWithT(t)
	ctx := t.Context()

	m := memory.NewRendererMetric()
	m.Observe(ctx, "helm", 100*time.Millisecond, 10, nil)
	m.Observe(ctx, "kustomize", 50*time.Millisecond, 0, errors.New("missing kustomization"))

	summary := m.Summary()
	g.Expect(summary["helm"].TotalDocuments).To(Equal(10))
	g.Expect(summary["kustomize"].Errors).To(Equal(1))
}

func TestRenderMetric(t *testing.T) {
	t.Run("should average renders", func(t *testing.T) {
		g := NewWithT(t)
		ctx := t.Context()

		m := &memory.RenderMetric{}
		m.Observe(ctx, 100*time.Millisecond, 10)
		m.Observe(ctx, 300*time.Millisecond, 5)

		g.Expect(m.Summary()).To(Equal(memory.RenderSummary{
			TotalRenders:    2,
			AverageDuration: 200 * time.Millisecond,
			TotalObjects:    15,
		}))
	})

	t.Run("should handle zero renders", func(t *testing.T) {
		g := NewWithT(t)

		m := &memory.RenderMetric{}
		g.Expect(m.Summary()).To(Equal(memory.RenderSummary{}))
	})
}
