package kustomize

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	goyaml "gopkg.in/yaml.v3"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	kustomizetypes "sigs.k8s.io/kustomize/api/types"
	"sigs.k8s.io/kustomize/kyaml/filesys"

	"github.com/lburgazzoli/kpipe/pkg/util"
)

const (
	valuesFile      = "values.yaml"
	valuesConfigMap = "values"
)

//nolint:gochecknoglobals
var kustomizationFiles = []string{
	"kustomization.yaml",
	"kustomization.yml",
	"Kustomization",
}

// Values returns a Values function that always returns values.
func Values(values map[string]any) func(context.Context) (map[string]any, error) {
	return func(_ context.Context) (map[string]any, error) {
		return values, nil
	}
}

// IsKustomization reports whether dir holds a kustomization file.
func IsKustomization(fs filesys.FileSystem, dir string) bool {
	for _, name := range kustomizationFiles {
		if fs.Exists(filepath.Join(dir, name)) {
			return true
		}
	}

	return false
}

func computeValues(ctx context.Context, input Source, renderTimeValues map[string]any) (map[string]string, error) {
	sourceValues := map[string]any{}

	if input.Values != nil {
		v, err := input.Values(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get values: %w", err)
		}

		sourceValues = v
	}

	result := make(map[string]string)
	if err := flatten("", util.DeepMerge(sourceValues, renderTimeValues), result); err != nil {
		return nil, err
	}

	return result, nil
}

// flatten turns nested values into ConfigMap data: map keys are joined with
// dots, strings are kept verbatim and anything else is encoded as JSON.
func flatten(prefix string, values map[string]any, out map[string]string) error {
	for k, v := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		case string:
			out[key] = val
		default:
			data, err := utiljson.Marshal(val)
			if err != nil {
				return fmt.Errorf("unable to encode value %s: %w", key, err)
			}

			out[key] = string(data)
		}
	}

	return nil
}

func valuesConfigMapYAML(values map[string]string) ([]byte, error) {
	data, err := goyaml.Marshal(map[string]any{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata": map[string]string{
			"name": valuesConfigMap,
		},
		"data": values,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal values ConfigMap: %w", err)
	}

	return data, nil
}

func readKustomization(fs filesys.FileSystem, path string) (*kustomizetypes.Kustomization, string, error) {
	for _, name := range kustomizationFiles {
		file := filepath.Join(path, name)
		if !fs.Exists(file) {
			continue
		}

		content, err := fs.ReadFile(file)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read kustomization from %s: %w", file, err)
		}

		kust := &kustomizetypes.Kustomization{}
		if err := kust.Unmarshal(content); err != nil {
			return nil, "", fmt.Errorf("failed to unmarshal kustomization from %s: %w", file, err)
		}

		return kust, name, nil
	}

	return nil, "", fmt.Errorf("no kustomization file (%s) found in %s", strings.Join(kustomizationFiles, ", "), path)
}
