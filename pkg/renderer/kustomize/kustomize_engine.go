package kustomize

import (
	"fmt"
	"path/filepath"
	"slices"

	goyaml "gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/kustomize/api/krusty"
	"sigs.k8s.io/kustomize/api/resmap"
	kresource "sigs.k8s.io/kustomize/api/resource"
	kustomizetypes "sigs.k8s.io/kustomize/api/types"
	"sigs.k8s.io/kustomize/kyaml/filesys"

	"github.com/lburgazzoli/kpipe/pkg/renderer/kustomize/unionfs"
	"github.com/lburgazzoli/kpipe/pkg/types"
)

const originAnnotation = "config.kubernetes.io/origin"

// Engine runs kustomize builds over a filesystem.
type Engine struct {
	fs   filesys.FileSystem
	opts *RendererOptions
}

// NewEngine creates an Engine reading from fs.
func NewEngine(fs filesys.FileSystem, opts *RendererOptions) *Engine {
	return &Engine{
		fs:   fs,
		opts: opts,
	}
}

// Run builds input with values exposed as the "values" ConfigMap.
func (e *Engine) Run(input Source, values map[string]string) ([]unstructured.Unstructured, error) {
	restrictions := e.opts.LoadRestrictions
	if input.LoadRestrictions != kustomizetypes.LoadRestrictionsUnknown {
		restrictions = input.LoadRestrictions
	}

	kustomizer := krusty.MakeKustomizer(&krusty.Options{
		LoadRestrictions: restrictions,
		PluginConfig:     &kustomizetypes.PluginConfig{},
	})

	kust, name, err := readKustomization(e.fs, input.Path)
	if err != nil {
		return nil, err
	}

	fs, trackOrigin, err := e.overlay(input.Path, kust, name, values)
	if err != nil {
		return nil, err
	}

	resources, err := kustomizer.Run(fs, input.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to run kustomize: %w", err)
	}

	return e.convert(resources, input.Path, trackOrigin)
}

// overlay returns fs with the values ConfigMap and, when source annotations
// are on, a kustomization asking for origin annotations. The returned flag
// reports whether origin annotations were requested by the overlay.
func (e *Engine) overlay(
	path string,
	kust *kustomizetypes.Kustomization,
	kustName string,
	values map[string]string,
) (filesys.FileSystem, bool, error) {
	trackOrigin := e.opts.SourceAnnotations && !slices.Contains(kust.BuildMetadata, kustomizetypes.OriginAnnotations)

	if !trackOrigin && len(values) == 0 {
		return e.fs, false, nil
	}

	dir, file, err := e.fs.CleanedAbs(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	if file != "" {
		return nil, false, fmt.Errorf("path %q must be a directory", path)
	}

	files := make(map[string][]byte)

	if trackOrigin {
		kust.BuildMetadata = append(kust.BuildMetadata, kustomizetypes.OriginAnnotations)

		data, err := goyaml.Marshal(kust)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal kustomization: %w", err)
		}

		files[filepath.Join(dir.String(), kustName)] = data
	}

	if len(values) > 0 {
		data, err := valuesConfigMapYAML(values)
		if err != nil {
			return nil, false, err
		}

		files[filepath.Join(dir.String(), valuesFile)] = data
	}

	fs, err := unionfs.New(e.fs, files)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create union filesystem: %w", err)
	}

	return fs, trackOrigin, nil
}

func (e *Engine) convert(resources resmap.ResMap, path string, trackOrigin bool) ([]unstructured.Unstructured, error) {
	result := make([]unstructured.Unstructured, resources.Size())

	for i, res := range resources.Resources() {
		m, err := res.Map()
		if err != nil {
			return nil, fmt.Errorf("failed to convert resource %s to map: %w", res.CurId(), err)
		}

		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(m, &result[i]); err != nil {
			return nil, fmt.Errorf("failed to convert resource %s to unstructured: %w", res.CurId(), err)
		}

		e.annotate(&result[i], path, res, trackOrigin)
	}

	return result, nil
}

func (e *Engine) annotate(obj *unstructured.Unstructured, path string, res *kresource.Resource, trackOrigin bool) {
	if !e.opts.SourceAnnotations {
		return
	}

	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = make(map[string]string)
	}

	annotations[types.AnnotationSourceType] = rendererType
	annotations[types.AnnotationSourcePath] = path

	if origin, err := res.GetOrigin(); err == nil && origin != nil {
		annotations[types.AnnotationSourceFile] = origin.Path
	}

	if trackOrigin {
		delete(annotations, originAnnotation)
	}

	obj.SetAnnotations(annotations)
}
