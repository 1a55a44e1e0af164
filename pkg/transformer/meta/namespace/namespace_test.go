package namespace_test

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/transformer/meta/namespace"

	. "github.com/onsi/gomega"
)

func object(ns string) unstructured.Unstructured {
	obj := unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "apps/v1",
		"kind":       "Deployment",
		"metadata":   map[string]any{"name": "external-dns"},
	}}
	obj.SetNamespace(ns)

	return obj
}

func TestSet(t *testing.T) {
	t.Run("should set missing namespace", func(t *testing.T) {
		g := NewWithT(t)

		out, err := namespace.Set("workshopctl")(t.Context(), object(""))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(out.GetNamespace()).Should(Equal("workshopctl"))
	})

	t.Run("should overwrite existing namespace", func(t *testing.T) {
		g := NewWithT(t)

		out, err := namespace.Set("workshopctl")(t.Context(), object("default"))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(out.GetNamespace()).Should(Equal("workshopctl"))
	})

	t.Run("should create metadata when absent", func(t *testing.T) {
		g := NewWithT(t)

		in := unstructured.Unstructured{Object: map[string]any{"kind": "ConfigMap"}}

		out, err := namespace.Set("kube-system")(t.Context(), in)
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(out.GetNamespace()).Should(Equal("kube-system"))
	})
}

func TestEnsureDefault(t *testing.T) {
	g := NewWithT(t)

	out, err := namespace.EnsureDefault("default")(t.Context(), object(""))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(out.GetNamespace()).Should(Equal("default"))

	out, err = namespace.EnsureDefault("default")(t.Context(), object("workshopctl"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(out.GetNamespace()).Should(Equal("workshopctl"))
}
