package name

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Exact keeps objects named exactly one of names.
func Exact(names ...string) types.Filter {
	allowed := sets.New(names...)

	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return allowed.Has(obj.GetName()), nil
	}
}

// Prefix keeps objects whose name starts with prefix.
func Prefix(prefix string) types.Filter {
	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return strings.HasPrefix(obj.GetName(), prefix), nil
	}
}

// Regex keeps objects whose name matches pattern.
func Regex(pattern string) (types.Filter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}

	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return re.MatchString(obj.GetName()), nil
	}, nil
}
