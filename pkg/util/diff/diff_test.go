package diff_test

import (
	"testing"

	"github.com/lburgazzoli/kpipe/pkg/util/diff"

	. "github.com/onsi/gomega"
)

func TestUnified(t *testing.T) {
	t.Run("should be empty for equal input", func(t *testing.T) {
		g := NewWithT(t)

		out, err := diff.Unified("a", "b", "kind: Service\n", "kind: Service\n")
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(out).To(BeEmpty())
	})

	t.Run("should report changed lines", func(t *testing.T) {
		g := NewWithT(t)

		before := "metadata:\n  name: dashboard\n  namespace: default\n"
		after := "metadata:\n  name: dashboard\n  namespace: kube-system\n"

		out, err := diff.Unified("input", "output", before, after)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(out).To(ContainSubstring("--- input"))
		g.Expect(out).To(ContainSubstring("+++ output"))
		g.Expect(out).To(ContainSubstring("-  namespace: default"))
		g.Expect(out).To(ContainSubstring("+  namespace: kube-system"))
	})
}
