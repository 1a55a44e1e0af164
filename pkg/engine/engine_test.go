package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/engine"
	"github.com/lburgazzoli/kpipe/pkg/filter/meta/gvk"
	"github.com/lburgazzoli/kpipe/pkg/transformer/meta/labels"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics/memory"

	jqmatcher "github.com/lburgazzoli/gomega-matchers/pkg/matchers/jq"
	. "github.com/onsi/gomega"
)

func TestEngineRender(t *testing.T) {
	t.Run("should render with single renderer", func(t *testing.T) {
		g := NewWithT(t)

		e := engine.New(engine.WithRenderer(newMockRenderer(makePod("pod1"), makePod("pod2"))))

		objects, err := e.Render(t.Context())
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(2))
		g.Expect(objects[0].GetName()).To(Equal("pod1"))
		g.Expect(objects[1].GetName()).To(Equal("pod2"))
	})

	t.Run("should keep renderer order", func(t *testing.T) {
		defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

		g := NewWithT(t)

		for _, parallel := range []bool{false, true} {
			slow := newMockRenderer(makePod("first"))
			slow.delay = 20 * time.Millisecond

			e := engine.New(
				engine.WithParallel(parallel),
				engine.WithRenderer(slow),
				engine.WithRenderer(newMockRenderer(makeService("second"))),
			)

			objects, err := e.Render(t.Context())
			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(objects).To(HaveLen(2))
			g.Expect(objects[0].GetName()).To(Equal("first"))
			g.Expect(objects[1].GetName()).To(Equal("second"))
		}
	})

	t.Run("should handle no renderers", func(t *testing.T) {
		g := NewWithT(t)

		objects, err := engine.New().Render(t.Context())
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(BeEmpty())
	})

	t.Run("should combine engine-level and render-time filters", func(t *testing.T) {
		g := NewWithT(t)

		e := engine.New(
			engine.WithRenderer(newMockRenderer(makePod("pod1"), makePodInNamespace("pod2", "workshopctl"), makeService("svc"))),
			engine.WithFilter(gvk.Filter(corev1.SchemeGroupVersion.WithKind("Pod"))),
		)

		objects, err := e.Render(t.Context())
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(2))

		objects, err = e.Render(t.Context(), engine.WithRenderFilter(func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
			return obj.GetNamespace() == "workshopctl", nil
		}))
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(1))
		g.Expect(objects[0].GetName()).To(Equal("pod2"))

		objects, err = e.Render(t.Context())
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(2))
	})

	t.Run("should combine engine-level and render-time transformers", func(t *testing.T) {
		g := NewWithT(t)

		e := engine.New(
			engine.WithRenderer(newMockRenderer(makePod("pod1"))),
			engine.WithTransformer(labels.Set(map[string]string{"engine": "true"})),
		)

		objects, err := e.Render(t.Context(), engine.WithRenderTransformer(labels.Set(map[string]string{"render": "true"})))
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects[0].Object).To(jqmatcher.Match(`.metadata.labels == {"engine": "true", "render": "true"}`))
	})

	t.Run("should merge render-time values over engine values", func(t *testing.T) {
		g := NewWithT(t)

		renderer := newMockRenderer()

		e := engine.New(
			engine.WithRenderer(renderer),
			engine.WithValues(map[string]any{
				"workshopctl": map[string]any{"clusterNumber": "01", "domain": "kubernetesfinland.com"},
			}),
		)

		_, err := e.Render(t.Context(), engine.WithRenderValues(map[string]any{
			"workshopctl": map[string]any{"clusterNumber": "02"},
		}))
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(renderer.values).To(Equal(map[string]any{
			"workshopctl": map[string]any{"clusterNumber": "02", "domain": "kubernetesfinland.com"},
		}))

		_, err = e.Render(t.Context())
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(renderer.values).To(HaveKeyWithValue("workshopctl", HaveKeyWithValue("clusterNumber", "01")))
	})

	t.Run("should return error from failing renderer", func(t *testing.T) {
		g := NewWithT(t)

		boom := errors.New("boom")

		for _, parallel := range []bool{false, true} {
			e := engine.New(
				engine.WithParallel(parallel),
				engine.WithRenderer(newMockRenderer(makePod("pod1"))),
				engine.WithRenderer(&mockRenderer{err: boom}),
			)

			_, err := e.Render(t.Context())
			g.Expect(err).To(MatchError(boom))
			g.Expect(err.Error()).To(ContainSubstring(`renderer "mock"`))
		}
	})

	t.Run("should return error from failing filter and transformer", func(t *testing.T) {
		g := NewWithT(t)

		boom := errors.New("boom")

		e := engine.New(
			engine.WithRenderer(newMockRenderer(makePod("pod1"))),
			engine.WithFilter(func(context.Context, unstructured.Unstructured) (bool, error) {
				return false, boom
			}),
		)

		_, err := e.Render(t.Context())
		g.Expect(err).To(MatchError(boom))
		g.Expect(err.Error()).To(HavePrefix("engine filter error"))

		e = engine.New(
			engine.WithRenderer(newMockRenderer(makePod("pod1"))),
			engine.WithTransformer(func(context.Context, unstructured.Unstructured) (unstructured.Unstructured, error) {
				return unstructured.Unstructured{}, boom
			}),
		)

		_, err = e.Render(t.Context())
		g.Expect(err).To(MatchError(boom))
		g.Expect(err.Error()).To(HavePrefix("engine transformer error"))
	})

	t.Run("should record render metrics", func(t *testing.T) {
		g := NewWithT(t)

		renders := &memory.RenderMetric{}
		ctx := metrics.WithMetrics(t.Context(), &metrics.Metrics{RenderMetric: renders})

		e := engine.New(engine.WithRenderer(newMockRenderer(makePod("pod1"), makePod("pod2"))))

		_, err := e.Render(ctx)
		g.Expect(err).ToNot(HaveOccurred())
		_, err = e.Render(ctx)
		g.Expect(err).ToNot(HaveOccurred())

		summary := renders.Summary()
		g.Expect(summary.TotalRenders).To(Equal(2))
		g.Expect(summary.TotalObjects).To(Equal(4))
	})

	t.Run("should apply struct based options", func(t *testing.T) {
		g := NewWithT(t)

		renderer := newMockRenderer(makePod("pod1"))

		e := engine.New(engine.EngineOptions{
			Renderers: []types.Renderer{renderer},
			Parallel:  true,
			Values:    map[string]any{"a": "b"},
		})

		objects, err := e.Render(t.Context(), engine.RenderOptions{Values: map[string]any{"c": "d"}})
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(1))
		g.Expect(renderer.values).To(Equal(map[string]any{"a": "b", "c": "d"}))
		g.Expect(renderer.calls.Load()).To(BeNumerically("==", 1))
	})
}

func makePod(name string) unstructured.Unstructured {
	return makePodInNamespace(name, "")
}

func makePodInNamespace(name string, namespace string) unstructured.Unstructured {
	obj := unstructured.Unstructured{}
	obj.SetGroupVersionKind(corev1.SchemeGroupVersion.WithKind("Pod"))
	obj.SetName(name)

	if namespace != "" {
		obj.SetNamespace(namespace)
	}

	return obj
}

func makeService(name string) unstructured.Unstructured {
	obj := unstructured.Unstructured{}
	obj.SetGroupVersionKind(corev1.SchemeGroupVersion.WithKind("Service"))
	obj.SetName(name)

	return obj
}

func newMockRenderer(objects ...unstructured.Unstructured) *mockRenderer {
	return &mockRenderer{objects: objects}
}

type mockRenderer struct {
	objects []unstructured.Unstructured
	err     error
	delay   time.Duration

	calls  atomic.Int32
	values map[string]any
}

func (m *mockRenderer) Process(ctx context.Context, values map[string]any) ([]unstructured.Unstructured, error) {
	m.calls.Add(1)
	m.values = values

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.err != nil {
		return nil, m.err
	}

	result := make([]unstructured.Unstructured, len(m.objects))
	for i := range m.objects {
		result[i] = *m.objects[i].DeepCopy()
	}

	return result, nil
}

func (m *mockRenderer) Name() string {
	return "mock"
}
