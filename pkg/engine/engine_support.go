package engine

import (
	"fmt"

	"github.com/lburgazzoli/kpipe/pkg/renderer/gotemplate"
	"github.com/lburgazzoli/kpipe/pkg/renderer/helm"
	"github.com/lburgazzoli/kpipe/pkg/renderer/kustomize"
	"github.com/lburgazzoli/kpipe/pkg/renderer/yaml"
)

// Helm creates an Engine with a single Helm renderer.
//
//	e, _ := engine.Helm(helm.Source{
//	    Chart:     "charts/kubernetes-dashboard",
//	    Namespace: "kube-system",
//	})
//	objects, _ := e.Render(ctx, engine.WithRenderValues(values))
func Helm(source helm.Source, opts ...helm.RendererOption) (*Engine, error) {
	renderer, err := helm.New([]helm.Source{source}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create helm renderer: %w", err)
	}

	return New(WithRenderer(renderer)), nil
}

// Kustomize creates an Engine with a single Kustomize renderer.
func Kustomize(source kustomize.Source, opts ...kustomize.RendererOption) (*Engine, error) {
	renderer, err := kustomize.New([]kustomize.Source{source}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kustomize renderer: %w", err)
	}

	return New(WithRenderer(renderer)), nil
}

// Yaml creates an Engine with a single YAML renderer.
func Yaml(source yaml.Source, opts ...yaml.RendererOption) (*Engine, error) {
	renderer, err := yaml.New([]yaml.Source{source}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create yaml renderer: %w", err)
	}

	return New(WithRenderer(renderer)), nil
}

// GoTemplate creates an Engine with a single Go template renderer.
func GoTemplate(source gotemplate.Source, opts ...gotemplate.RendererOption) (*Engine, error) {
	renderer, err := gotemplate.New([]gotemplate.Source{source}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gotemplate renderer: %w", err)
	}

	return New(WithRenderer(renderer)), nil
}
