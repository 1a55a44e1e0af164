package jq_test

import (
	"errors"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/filter"
	"github.com/lburgazzoli/kpipe/pkg/filter/jq"
	utiljq "github.com/lburgazzoli/kpipe/pkg/util/jq"

	. "github.com/onsi/gomega"
)

func deployment(name string, replicas int64, labels map[string]string) unstructured.Unstructured {
	obj := unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata": map[string]any{
			"name":      name,
			"namespace": "workshopctl",
		},
		"spec": map[string]any{
			"replicas": replicas,
		},
	}}
	obj.SetLabels(labels)

	return obj
}

func TestFilter(t *testing.T) {
	t.Run("should select by kind and name", func(t *testing.T) {
		g := NewWithT(t)

		f, err := jq.Filter(`.kind == "Deployment" and .metadata.name == "external-dns"`)
		g.Expect(err).ShouldNot(HaveOccurred())

		ok, err := f(t.Context(), deployment("external-dns", 1, nil))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(ok).Should(BeTrue())

		ok, err = f(t.Context(), deployment("traefik", 1, nil))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(ok).Should(BeFalse())
	})

	t.Run("should compare int64 fields", func(t *testing.T) {
		g := NewWithT(t)

		f, err := jq.Filter(`.spec.replicas > 1`)
		g.Expect(err).ShouldNot(HaveOccurred())

		ok, err := f(t.Context(), deployment("traefik", 3, nil))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(ok).Should(BeTrue())
	})

	t.Run("should handle missing fields", func(t *testing.T) {
		g := NewWithT(t)

		f, err := jq.Filter(`.metadata.labels.app == "traefik"`)
		g.Expect(err).ShouldNot(HaveOccurred())

		ok, err := f(t.Context(), deployment("traefik", 1, nil))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(ok).Should(BeFalse())
	})

	t.Run("should use variables", func(t *testing.T) {
		g := NewWithT(t)

		f, err := jq.Filter(`.metadata.namespace == $ns`, utiljq.WithVariable("ns", "workshopctl"))
		g.Expect(err).ShouldNot(HaveOccurred())

		ok, err := f(t.Context(), deployment("traefik", 1, nil))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(ok).Should(BeTrue())
	})

	t.Run("should fail on invalid expression", func(t *testing.T) {
		g := NewWithT(t)

		_, err := jq.Filter(`.kind ==`)
		g.Expect(err).Should(HaveOccurred())
	})

	t.Run("should fail on non boolean result", func(t *testing.T) {
		g := NewWithT(t)

		f, err := jq.Filter(`.kind`)
		g.Expect(err).ShouldNot(HaveOccurred())

		_, err = f(t.Context(), deployment("traefik", 1, nil))
		g.Expect(err).Should(HaveOccurred())
		g.Expect(err.Error()).Should(ContainSubstring("must return a boolean"))

		var ferr *filter.Error
		g.Expect(errors.As(err, &ferr)).Should(BeTrue())
	})
}
