package gotemplate_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/lburgazzoli/kpipe/pkg/filter/meta/gvk"
	"github.com/lburgazzoli/kpipe/pkg/renderer/gotemplate"
	"github.com/lburgazzoli/kpipe/pkg/transformer/meta/labels"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics"
	"github.com/lburgazzoli/kpipe/pkg/util/metrics/memory"

	utilerrors "github.com/lburgazzoli/kpipe/pkg/util/errors"

	jqmatcher "github.com/lburgazzoli/gomega-matchers/pkg/matchers/jq"
	. "github.com/onsi/gomega"
)

const deploymentTemplate = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: {{ .name }}
  labels:
    cluster: {{ .workshopctl.clusterNumber | quote }}
spec:
  replicas: {{ get . "replicas" | default 1 }}
`

const configMapTemplate = `
apiVersion: v1
kind: ConfigMap
metadata:
  name: {{ .name }}-config
data:
  host: {{ printf "cluster-%s.%s" .workshopctl.clusterNumber .workshopctl.domain | quote }}
`

func templates() fstest.MapFS {
	return fstest.MapFS{
		"a-deployment.yaml.tpl": {Data: []byte(deploymentTemplate)},
		"b-configmap.yaml.tpl":  {Data: []byte(configMapTemplate)},
		"notes.txt":             {Data: []byte("ignored")},
	}
}

func workshopValues() map[string]any {
	return map[string]any{
		"name": "traefik",
		"workshopctl": map[string]any{
			"clusterNumber": "02",
			"domain":        "kubernetesfinland.com",
		},
	}
}

func TestRenderer(t *testing.T) {
	t.Run("should render templates in name order", func(t *testing.T) {
		g := NewWithT(t)

		r, err := gotemplate.New([]gotemplate.Source{{
			FS:     templates(),
			Path:   "*.yaml.tpl",
			Values: gotemplate.Values(workshopValues()),
		}})
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(r.Name()).To(Equal("gotemplate"))

		objects, err := r.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(2))

		g.Expect(objects[0].Object).To(And(
			jqmatcher.Match(`.kind == "Deployment"`),
			jqmatcher.Match(`.metadata.name == "traefik"`),
			jqmatcher.Match(`.metadata.labels.cluster == "02"`),
			jqmatcher.Match(`.spec.replicas == 1`),
		))
		g.Expect(objects[1].Object).To(And(
			jqmatcher.Match(`.kind == "ConfigMap"`),
			jqmatcher.Match(`.data.host == "cluster-02.kubernetesfinland.com"`),
		))
	})

	t.Run("should merge render-time values over source values", func(t *testing.T) {
		g := NewWithT(t)

		r, err := gotemplate.New([]gotemplate.Source{{
			FS:     templates(),
			Path:   "a-*.yaml.tpl",
			Values: gotemplate.Values(workshopValues()),
		}})
		g.Expect(err).ToNot(HaveOccurred())

		objects, err := r.Process(t.Context(), map[string]any{
			"replicas": 3,
			"workshopctl": map[string]any{
				"clusterNumber": "07",
			},
		})
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(1))
		g.Expect(objects[0].Object).To(And(
			jqmatcher.Match(`.spec.replicas == 3`),
			jqmatcher.Match(`.metadata.labels.cluster == "07"`),
		))
	})

	t.Run("should apply renderer filters and transformers", func(t *testing.T) {
		g := NewWithT(t)

		r, err := gotemplate.New(
			[]gotemplate.Source{{
				FS:     templates(),
				Path:   "*.yaml.tpl",
				Values: gotemplate.Values(workshopValues()),
			}},
			gotemplate.WithFilter(gvk.Kind("ConfigMap")),
			gotemplate.WithTransformer(labels.Set(map[string]string{"workshop": "true"})),
		)
		g.Expect(err).ToNot(HaveOccurred())

		objects, err := r.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(1))
		g.Expect(objects[0].GetLabels()).To(HaveKeyWithValue("workshop", "true"))
	})

	t.Run("should add source annotations", func(t *testing.T) {
		g := NewWithT(t)

		r, err := gotemplate.New(
			[]gotemplate.Source{{
				FS:     templates(),
				Path:   "b-*.yaml.tpl",
				Values: gotemplate.Values(workshopValues()),
			}},
			gotemplate.WithSourceAnnotations(true),
		)
		g.Expect(err).ToNot(HaveOccurred())

		objects, err := r.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(1))
		g.Expect(objects[0].GetAnnotations()).To(And(
			HaveKeyWithValue(types.AnnotationSourceType, "gotemplate"),
			HaveKeyWithValue(types.AnnotationSourcePath, "b-*.yaml.tpl"),
			HaveKeyWithValue(types.AnnotationSourceFile, "b-configmap.yaml.tpl"),
		))
	})

	t.Run("should serve repeated renders from the cache", func(t *testing.T) {
		g := NewWithT(t)

		calls := 0

		r, err := gotemplate.New(
			[]gotemplate.Source{{
				FS:   templates(),
				Path: "*.yaml.tpl",
				Values: func(context.Context) (map[string]any, error) {
					calls++
					return workshopValues(), nil
				},
			}},
			gotemplate.WithCache(),
		)
		g.Expect(err).ToNot(HaveOccurred())

		first, err := r.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(first).To(HaveLen(2))

		first[0].SetName("mutated")

		second, err := r.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(second).To(HaveLen(2))
		g.Expect(second[0].GetName()).To(Equal("traefik"))

		g.Expect(calls).To(Equal(2))
	})

	t.Run("should record renderer metrics", func(t *testing.T) {
		g := NewWithT(t)

		rm := memory.NewRendererMetric()
		ctx := metrics.WithMetrics(t.Context(), &metrics.Metrics{RendererMetric: rm})

		r, err := gotemplate.New([]gotemplate.Source{{
			FS:     templates(),
			Path:   "*.yaml.tpl",
			Values: gotemplate.Values(workshopValues()),
		}})
		g.Expect(err).ToNot(HaveOccurred())

		_, err = r.Process(ctx, nil)
		g.Expect(err).ToNot(HaveOccurred())

		summary := rm.Summary()
		g.Expect(summary).To(HaveKey("gotemplate"))
		g.Expect(summary["gotemplate"].Executions).To(BeNumerically("==", 1))
		g.Expect(summary["gotemplate"].TotalDocuments).To(BeNumerically("==", 2))
	})
}

func TestRendererErrors(t *testing.T) {
	t.Run("should reject invalid sources", func(t *testing.T) {
		g := NewWithT(t)

		_, err := gotemplate.New([]gotemplate.Source{{Path: "*.tpl"}})
		g.Expect(err).To(MatchError(utilerrors.ErrFsRequired))

		_, err = gotemplate.New([]gotemplate.Source{{FS: templates(), Path: " "}})
		g.Expect(err).To(MatchError(utilerrors.ErrPathEmpty))
	})

	t.Run("should fail on missing keys", func(t *testing.T) {
		g := NewWithT(t)

		r, err := gotemplate.New([]gotemplate.Source{{
			FS:   templates(),
			Path: "b-*.yaml.tpl",
		}})
		g.Expect(err).ToNot(HaveOccurred())

		_, err = r.Process(t.Context(), map[string]any{"name": "x"})
		g.Expect(err).To(HaveOccurred())
		g.Expect(err.Error()).To(ContainSubstring("b-configmap.yaml.tpl"))
	})

	t.Run("should fail when nothing matches", func(t *testing.T) {
		g := NewWithT(t)

		r, err := gotemplate.New([]gotemplate.Source{{
			FS:   templates(),
			Path: "*.missing",
		}})
		g.Expect(err).ToNot(HaveOccurred())

		_, err = r.Process(t.Context(), nil)
		g.Expect(err).To(HaveOccurred())
	})

	t.Run("should propagate values errors", func(t *testing.T) {
		g := NewWithT(t)

		errValues := errors.New("values unavailable")

		r, err := gotemplate.New([]gotemplate.Source{{
			FS:   templates(),
			Path: "*.yaml.tpl",
			Values: func(context.Context) (map[string]any, error) {
				return nil, errValues
			},
		}})
		g.Expect(err).ToNot(HaveOccurred())

		_, err = r.Process(t.Context(), nil)
		g.Expect(err).To(MatchError(errValues))
	})
}
