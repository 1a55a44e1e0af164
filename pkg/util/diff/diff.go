package diff

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Unified returns a unified diff between before and after, or an empty
// string when they are equal.
func Unified(fromName string, toName string, before string, after string) (string, error) {
	if before == after {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
}
