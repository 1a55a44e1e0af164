package gvk

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Filter keeps objects whose apiVersion and kind match one of gvks.
func Filter(gvks ...schema.GroupVersionKind) types.Filter {
	allowed := sets.New(gvks...)

	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return allowed.Has(obj.GroupVersionKind()), nil
	}
}

// Kind keeps objects of one of kinds, whatever their group and version.
func Kind(kinds ...string) types.Filter {
	allowed := sets.New(kinds...)

	return func(_ context.Context, obj unstructured.Unstructured) (bool, error) {
		return allowed.Has(obj.GetKind()), nil
	}
}
