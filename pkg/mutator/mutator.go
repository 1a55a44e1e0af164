// Package mutator defines the matching rules of the kube and values pipes.
//
// A Mutator targets documents by optional type (apiVersion and kind) and
// optional name; a nil type or an empty name match anything.
package mutator

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/lburgazzoli/kpipe/pkg/filter"
	"github.com/lburgazzoli/kpipe/pkg/filter/meta/gvk"
	"github.com/lburgazzoli/kpipe/pkg/filter/meta/name"
	"github.com/lburgazzoli/kpipe/pkg/transformer/meta/namespace"
	"github.com/lburgazzoli/kpipe/pkg/types"
)

// Mutator applies Func to every document matched by GVK and Name.
type Mutator struct {
	GVK  *schema.GroupVersionKind
	Name string
	Func types.Transformer
}

// Kube builds a Mutator. gvk may be nil and name may be empty.
func Kube(gvk *schema.GroupVersionKind, name string, fn types.Transformer) Mutator {
	return Mutator{
		GVK:  gvk,
		Name: name,
		Func: fn,
	}
}

// WithNamespace builds a Mutator that moves every document to ns.
func WithNamespace(ns string) Mutator {
	return Kube(nil, "", namespace.Set(ns))
}

// Filter returns the filter equivalent of the matching rules.
func (m Mutator) Filter() types.Filter {
	filters := make([]types.Filter, 0, 2)

	if m.GVK != nil {
		filters = append(filters, gvk.Filter(*m.GVK))
	}
	if m.Name != "" {
		filters = append(filters, name.Exact(m.Name))
	}

	return filter.And(filters...)
}

// Matches reports whether obj is targeted by m.
func (m Mutator) Matches(ctx context.Context, obj unstructured.Unstructured) bool {
	// the matching filters never fail
	ok, _ := m.Filter()(ctx, obj)

	return ok
}

// String identifies the mutator in logs and metrics.
func (m Mutator) String() string {
	target := "*"
	if m.GVK != nil {
		target = m.GVK.GroupVersion().String() + ", Kind=" + m.GVK.Kind
	}
	if m.Name != "" {
		target += "/" + m.Name
	}

	return target
}

// ValuesMutator transforms a values document.
type ValuesMutator struct {
	Func types.ValuesTransformer
}

// Values builds a ValuesMutator.
func Values(fn types.ValuesTransformer) ValuesMutator {
	return ValuesMutator{
		Func: fn,
	}
}
