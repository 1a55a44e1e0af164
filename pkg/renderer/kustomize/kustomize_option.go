package kustomize

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	kustomizetypes "sigs.k8s.io/kustomize/api/types"
	"sigs.k8s.io/kustomize/kyaml/filesys"

	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util"
	"github.com/lburgazzoli/kpipe/pkg/util/cache"
)

// RendererOption is a generic option for RendererOptions.
type RendererOption = util.Option[RendererOptions]

// RendererOptions is a struct-based option that can set multiple renderer options at once.
type RendererOptions struct {
	// Filters are applied to the objects of every source.
	Filters []types.Filter

	// Transformers are applied to the objects of every source, after Filters.
	Transformers []types.Transformer

	// LoadRestrictions controls filesystem access of kustomize.
	LoadRestrictions kustomizetypes.LoadRestrictions

	// FileSystem the kustomizations are read from; defaults to the disk.
	FileSystem filesys.FileSystem

	// Cache stores render results keyed by path and values.
	Cache cache.Interface[[]unstructured.Unstructured]

	// SourceAnnotations adds source tracking annotations to every object.
	SourceAnnotations bool
}

// ApplyTo applies the renderer options to the target configuration.
func (opts RendererOptions) ApplyTo(target *RendererOptions) {
	target.Filters = opts.Filters
	target.Transformers = opts.Transformers

	if opts.LoadRestrictions != kustomizetypes.LoadRestrictionsUnknown {
		target.LoadRestrictions = opts.LoadRestrictions
	}
	if opts.FileSystem != nil {
		target.FileSystem = opts.FileSystem
	}
	if opts.Cache != nil {
		target.Cache = opts.Cache
	}

	target.SourceAnnotations = opts.SourceAnnotations
}

// WithFilter adds a renderer-level filter.
func WithFilter(f types.Filter) RendererOption {
	return util.FunctionalOption[RendererOptions](func(opts *RendererOptions) {
		opts.Filters = append(opts.Filters, f)
	})
}

// WithTransformer adds a renderer-level transformer.
func WithTransformer(t types.Transformer) RendererOption {
	return util.FunctionalOption[RendererOptions](func(opts *RendererOptions) {
		opts.Transformers = append(opts.Transformers, t)
	})
}

// WithLoadRestrictions sets the default load restrictions.
func WithLoadRestrictions(restrictions kustomizetypes.LoadRestrictions) RendererOption {
	return util.FunctionalOption[RendererOptions](func(opts *RendererOptions) {
		opts.LoadRestrictions = restrictions
	})
}

// WithFileSystem reads kustomizations from fs instead of the disk.
func WithFileSystem(fs filesys.FileSystem) RendererOption {
	return util.FunctionalOption[RendererOptions](func(opts *RendererOptions) {
		opts.FileSystem = fs
	})
}

// WithCache enables render result caching. Caching is off by default.
func WithCache(opts ...cache.Option) RendererOption {
	return util.FunctionalOption[RendererOptions](func(rendererOpts *RendererOptions) {
		rendererOpts.Cache = cache.NewRenderCache(opts...)
	})
}

// WithSourceAnnotations toggles the source tracking annotations; source.file
// is taken from the kustomize origin of each resource.
func WithSourceAnnotations(enabled bool) RendererOption {
	return util.FunctionalOption[RendererOptions](func(opts *RendererOptions) {
		opts.SourceAnnotations = enabled
	})
}
