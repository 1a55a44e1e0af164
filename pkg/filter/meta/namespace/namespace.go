package namespace

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Filter keeps objects in one of namespaces. The empty namespace selects
// cluster-scoped objects and objects that were never assigned one.
func Filter(namespaces ...string) types.Filter {
	allowed := sets.New(namespaces...)

	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return allowed.Has(obj.GetNamespace()), nil
	}
}
