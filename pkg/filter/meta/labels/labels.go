package labels

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// HasLabel keeps objects carrying key, whatever its value.
func HasLabel(key string) types.Filter {
	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return labels.Set(obj.GetLabels()).Has(key), nil
	}
}

// MatchLabels keeps objects carrying every key/value pair of match.
func MatchLabels(match map[string]string) types.Filter {
	return selectorFilter(labels.SelectorFromSet(match))
}

// Selector keeps objects matching a label selector expression such as
// "app=traefik,tier!=frontend".
func Selector(selector string) (types.Filter, error) {
	sel, err := labels.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid label selector %q: %w", selector, err)
	}

	return selectorFilter(sel), nil
}

func selectorFilter(sel labels.Selector) types.Filter {
	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return sel.Matches(labels.Set(obj.GetLabels())), nil
	}
}
