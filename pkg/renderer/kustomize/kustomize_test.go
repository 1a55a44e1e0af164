package kustomize_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/kustomize/kyaml/filesys"

	"github.com/lburgazzoli/kpipe/pkg/filter/meta/gvk"
	"github.com/lburgazzoli/kpipe/pkg/renderer/kustomize"
	"github.com/lburgazzoli/kpipe/pkg/transformer/meta/labels"
	"github.com/lburgazzoli/kpipe/pkg/types"

	jqmatcher "github.com/lburgazzoli/gomega-matchers/pkg/matchers/jq"
	. "github.com/onsi/gomega"
)

const infraKustomization = `
apiVersion: kustomize.config.k8s.io/v1beta1
kind: Kustomization

namespace: workshopctl

resources:
- deployment.yaml
- service.yaml
`

const valuesKustomization = `
apiVersion: kustomize.config.k8s.io/v1beta1
kind: Kustomization

resources:
- deployment.yaml
- values.yaml
`

const infraDeployment = `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: external-dns
spec:
  selector:
    matchLabels:
      app: external-dns
  template:
    metadata:
      labels:
        app: external-dns
    spec:
      containers:
      - name: external-dns
        image: registry.k8s.io/external-dns/external-dns
`

const infraService = `
apiVersion: v1
kind: Service
metadata:
  name: external-dns
spec:
  ports:
  - port: 7979
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	return dir
}

func infraDir(t *testing.T) string {
	t.Helper()

	return writeFiles(t, map[string]string{
		"kustomization.yaml": infraKustomization,
		"deployment.yaml":    infraDeployment,
		"service.yaml":       infraService,
	})
}

func byKind(objects []unstructured.Unstructured, kind string) map[string]any {
	for i := range objects {
		if objects[i].GetKind() == kind {
			return objects[i].Object
		}
	}

	return nil
}

func TestRenderer(t *testing.T) {
	t.Run("should render a kustomization", func(t *testing.T) {
		g := NewWithT(t)

		renderer, err := kustomize.New([]kustomize.Source{{Path: infraDir(t)}})
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(renderer.Name()).To(Equal("kustomize"))

		objects, err := renderer.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(2))
		g.Expect(objects).To(HaveEach(HaveField("Object", jqmatcher.Match(`.metadata.namespace == "workshopctl"`))))
	})

	t.Run("should apply filters and transformers", func(t *testing.T) {
		g := NewWithT(t)

		renderer, err := kustomize.New(
			[]kustomize.Source{{Path: infraDir(t)}},
			kustomize.WithFilter(gvk.Filter(appsv1.SchemeGroupVersion.WithKind("Deployment"))),
			kustomize.WithTransformer(labels.Set(map[string]string{"workshopctl.io/chart": "infra"})),
		)
		g.Expect(err).ToNot(HaveOccurred())

		objects, err := renderer.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(1))
		g.Expect(objects[0].Object).To(And(
			jqmatcher.Match(`.kind == "Deployment"`),
			jqmatcher.Match(`.metadata.labels["workshopctl.io/chart"] == "infra"`),
		))
	})

	t.Run("should expose values as a ConfigMap without touching the disk", func(t *testing.T) {
		g := NewWithT(t)

		dir := writeFiles(t, map[string]string{
			"kustomization.yaml": valuesKustomization,
			"deployment.yaml":    infraDeployment,
		})

		renderer, err := kustomize.New([]kustomize.Source{{
			Path: dir,
			Values: kustomize.Values(map[string]any{
				"replicas": 1,
				"ingress":  map[string]any{"enabled": true},
			}),
		}})
		g.Expect(err).ToNot(HaveOccurred())

		objects, err := renderer.Process(t.Context(), map[string]any{
			"replicas":    2,
			"workshopctl": map[string]any{"clusterNumber": "01", "domain": "kubernetesfinland.com"},
		})
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(2))
		g.Expect(byKind(objects, "ConfigMap")).To(And(
			jqmatcher.Match(`.metadata.name == "values"`),
			jqmatcher.Match(`.data.replicas == "2"`),
			jqmatcher.Match(`.data["ingress.enabled"] == "true"`),
			jqmatcher.Match(`.data["workshopctl.clusterNumber"] == "01"`),
			jqmatcher.Match(`.data["workshopctl.domain"] == "kubernetesfinland.com"`),
		))

		g.Expect(filepath.Join(dir, "values.yaml")).ToNot(BeAnExistingFile())
	})

	t.Run("should read from a custom filesystem", func(t *testing.T) {
		g := NewWithT(t)

		fs := filesys.MakeFsInMemory()
		g.Expect(fs.WriteFile("/charts/infra/kustomization.yaml", []byte(infraKustomization))).To(Succeed())
		g.Expect(fs.WriteFile("/charts/infra/deployment.yaml", []byte(infraDeployment))).To(Succeed())
		g.Expect(fs.WriteFile("/charts/infra/service.yaml", []byte(infraService))).To(Succeed())

		g.Expect(kustomize.IsKustomization(fs, "/charts/infra")).To(BeTrue())
		g.Expect(kustomize.IsKustomization(fs, "/charts")).To(BeFalse())

		renderer, err := kustomize.New([]kustomize.Source{{Path: "/charts/infra"}}, kustomize.WithFileSystem(fs))
		g.Expect(err).ToNot(HaveOccurred())

		objects, err := renderer.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(objects).To(HaveLen(2))
	})

	t.Run("should add source annotations", func(t *testing.T) {
		g := NewWithT(t)

		dir := infraDir(t)

		renderer, err := kustomize.New([]kustomize.Source{{Path: dir}}, kustomize.WithSourceAnnotations(true))
		g.Expect(err).ToNot(HaveOccurred())

		objects, err := renderer.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())

		g.Expect(byKind(objects, "Deployment")).To(And(
			jqmatcher.Match(`.metadata.annotations[%q] == "kustomize"`, types.AnnotationSourceType),
			jqmatcher.Match(`.metadata.annotations[%q] == %q`, types.AnnotationSourcePath, dir),
			jqmatcher.Match(`.metadata.annotations[%q] == "deployment.yaml"`, types.AnnotationSourceFile),
			jqmatcher.Match(`.metadata.annotations | has("config.kubernetes.io/origin") | not`),
		))
	})

	t.Run("should reject sources without path", func(t *testing.T) {
		g := NewWithT(t)

		_, err := kustomize.New([]kustomize.Source{{Path: " "}})
		g.Expect(err).To(MatchError(kustomize.ErrPathEmpty))
	})

	t.Run("should fail without kustomization", func(t *testing.T) {
		g := NewWithT(t)

		renderer, err := kustomize.New([]kustomize.Source{{Path: t.TempDir()}})
		g.Expect(err).ToNot(HaveOccurred())

		_, err = renderer.Process(t.Context(), nil)
		g.Expect(err).To(HaveOccurred())
		g.Expect(err.Error()).To(ContainSubstring("no kustomization file"))
	})

	t.Run("should propagate values errors", func(t *testing.T) {
		g := NewWithT(t)

		boom := errors.New("boom")

		renderer, err := kustomize.New([]kustomize.Source{{
			Path: infraDir(t),
			Values: func(context.Context) (map[string]any, error) {
				return nil, boom
			},
		}})
		g.Expect(err).ToNot(HaveOccurred())

		_, err = renderer.Process(t.Context(), nil)
		g.Expect(err).To(MatchError(boom))
	})
}

func TestCache(t *testing.T) {
	t.Run("should return clones of cached results", func(t *testing.T) {
		g := NewWithT(t)

		renderer, err := kustomize.New([]kustomize.Source{{Path: infraDir(t)}}, kustomize.WithCache())
		g.Expect(err).ToNot(HaveOccurred())

		first, err := renderer.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())

		first[0].SetName("mutated")

		second, err := renderer.Process(t.Context(), nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(second[0].GetName()).To(Equal("external-dns"))
	})
}
