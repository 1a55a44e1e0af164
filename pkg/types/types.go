package types

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Filter decides whether a single object is selected.
// It returns true if the object matches, false otherwise.
type Filter func(ctx context.Context, object unstructured.Unstructured) (bool, error)

// Transformer processes a single object and returns the mutated object.
type Transformer func(ctx context.Context, object unstructured.Unstructured) (unstructured.Unstructured, error)

// ValuesTransformer processes a values document (as found in a Helm-style
// values.yaml file) and returns the mutated document.
type ValuesTransformer func(ctx context.Context, values map[string]any) (map[string]any, error)

// Renderer produces objects from a chart-like source. Values are the
// render-time values, merged on top of any values configured on the source.
type Renderer interface {
	// Process renders all configured sources of this renderer.
	Process(ctx context.Context, values map[string]any) ([]unstructured.Unstructured, error)

	// Name returns the renderer type identifier (helm, kustomize, yaml).
	Name() string
}
