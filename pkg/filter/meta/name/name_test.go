package name_test

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/filter/meta/name"

	. "github.com/onsi/gomega"
)

func named(n string) unstructured.Unstructured {
	obj := unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "v1",
		"kind":       "Service",
	}}
	obj.SetName(n)

	return obj
}

func TestExact(t *testing.T) {
	g := NewWithT(t)

	f := name.Exact("external-dns", "traefik")

	ok, err := f(t.Context(), named("traefik"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(ok).Should(BeTrue())

	ok, err = f(t.Context(), named("traefik-dashboard"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(ok).Should(BeFalse())
}

func TestPrefix(t *testing.T) {
	g := NewWithT(t)

	f := name.Prefix("workshopctl-")

	ok, err := f(t.Context(), named("workshopctl-kubernetes-dashboard"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(ok).Should(BeTrue())

	ok, err = f(t.Context(), named("kubernetes-dashboard"))
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(ok).Should(BeFalse())
}

func TestRegex(t *testing.T) {
	t.Run("should match names", func(t *testing.T) {
		g := NewWithT(t)

		f, err := name.Regex(`^cluster-\d{2}$`)
		g.Expect(err).ShouldNot(HaveOccurred())

		ok, err := f(t.Context(), named("cluster-07"))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(ok).Should(BeTrue())

		ok, err = f(t.Context(), named("cluster-7"))
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(ok).Should(BeFalse())
	})

	t.Run("should reject invalid patterns", func(t *testing.T) {
		g := NewWithT(t)

		_, err := name.Regex(`(`)
		g.Expect(err).Should(HaveOccurred())
		g.Expect(err.Error()).Should(ContainSubstring("invalid name pattern"))
	})
}
