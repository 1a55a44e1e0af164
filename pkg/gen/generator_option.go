package gen

import (
	"github.com/lburgazzoli/kpipe/pkg/params"
	"github.com/lburgazzoli/kpipe/pkg/util"
	"github.com/lburgazzoli/kpipe/pkg/workshop"
)

// GeneratorOption is a generic option for GeneratorOptions.
type GeneratorOption = util.Option[GeneratorOptions]

// GeneratorOptions is a struct-based option that can set multiple generator options at once.
type GeneratorOptions struct {
	// DryRun logs the generated manifests instead of writing them.
	DryRun bool

	// Generator holds the settings exposed to charts next to the parameters.
	Generator params.Generator

	// Presets resolves the preset of a chart by name. Defaults to workshop.Lookup.
	Presets func(name string) workshop.Preset

	// SourceAnnotations keeps the renderer source annotations in the output.
	SourceAnnotations bool

	// Strict fails helm charts whose templates reference missing values.
	Strict bool
}

// ApplyTo applies the generator options to the target configuration.
func (opts GeneratorOptions) ApplyTo(target *GeneratorOptions) {
	target.DryRun = opts.DryRun
	target.Generator = opts.Generator

	if opts.Presets != nil {
		target.Presets = opts.Presets
	}

	target.SourceAnnotations = opts.SourceAnnotations
	target.Strict = opts.Strict
}

// WithDryRun toggles dry-run mode.
func WithDryRun(enabled bool) GeneratorOption {
	return util.FunctionalOption[GeneratorOptions](func(opts *GeneratorOptions) {
		opts.DryRun = enabled
	})
}

// WithGenerator sets the generator settings.
func WithGenerator(settings params.Generator) GeneratorOption {
	return util.FunctionalOption[GeneratorOptions](func(opts *GeneratorOptions) {
		opts.Generator = settings
	})
}

// WithPresets sets the preset lookup.
func WithPresets(lookup func(name string) workshop.Preset) GeneratorOption {
	return util.FunctionalOption[GeneratorOptions](func(opts *GeneratorOptions) {
		opts.Presets = lookup
	})
}

// WithSourceAnnotations toggles the renderer source annotations.
func WithSourceAnnotations(enabled bool) GeneratorOption {
	return util.FunctionalOption[GeneratorOptions](func(opts *GeneratorOptions) {
		opts.SourceAnnotations = enabled
	})
}

// WithStrict toggles strict helm rendering.
func WithStrict(enabled bool) GeneratorOption {
	return util.FunctionalOption[GeneratorOptions](func(opts *GeneratorOptions) {
		opts.Strict = enabled
	})
}
