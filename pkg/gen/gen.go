// Package gen renders the workshop charts for every cluster and runs the
// kube and values pipelines over them.
package gen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"sigs.k8s.io/kustomize/kyaml/filesys"

	"github.com/lburgazzoli/kpipe/pkg/renderer/kustomize"
)

const (
	// ChartsDir is the directory, relative to the root, holding one directory per chart.
	ChartsDir = "charts"

	// NamespaceFile optionally holds the namespace a chart is rendered into.
	NamespaceFile = "namespace"

	ValuesFile         = "values.yaml"
	ValuesOverrideFile = "values-override.yaml"

	// TemplatePattern matches the manifests of a template chart.
	TemplatePattern = "*.yaml.tpl"

	helmChartFile    = "Chart.yaml"
	defaultNamespace = "default"
)

// Layout tells how a chart directory is rendered.
type Layout string

const (
	LayoutHelm      Layout = "helm"
	LayoutKustomize Layout = "kustomize"
	LayoutTemplate  Layout = "template"
	LayoutYaml      Layout = "yaml"
)

// Chart is a chart directory found by Discover.
type Chart struct {
	Name      string
	Dir       string
	Namespace string
	Layout    Layout
}

// ValuesPath returns values-override.yaml when present, values.yaml otherwise.
// The returned file may not exist.
func (c Chart) ValuesPath() string {
	override := filepath.Join(c.Dir, ValuesOverrideFile)
	if _, err := os.Stat(override); err == nil {
		return override
	}

	return filepath.Join(c.Dir, ValuesFile)
}

// Discover lists the chart directories of chartsDir, sorted by name.
func Discover(chartsDir string) ([]Chart, error) {
	entries, err := os.ReadDir(chartsDir)
	if err != nil {
		return nil, fmt.Errorf("unable to list charts in %s: %w", chartsDir, err)
	}

	charts := make([]Chart, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		chart, err := LoadChart(filepath.Join(chartsDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		charts = append(charts, chart)
	}

	slices.SortFunc(charts, func(a Chart, b Chart) int {
		return strings.Compare(a.Name, b.Name)
	})

	return charts, nil
}

// LoadChart describes the chart in dir.
func LoadChart(dir string) (Chart, error) {
	namespace, err := readNamespace(dir)
	if err != nil {
		return Chart{}, err
	}

	return Chart{
		Name:      filepath.Base(dir),
		Dir:       dir,
		Namespace: namespace,
		Layout:    detectLayout(dir),
	}, nil
}

func readNamespace(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, NamespaceFile))

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return defaultNamespace, nil
	case err != nil:
		return "", fmt.Errorf("unable to read namespace of chart %s: %w", dir, err)
	}

	if ns := strings.TrimSpace(string(data)); ns != "" {
		return ns, nil
	}

	return defaultNamespace, nil
}

func detectLayout(dir string) Layout {
	if _, err := os.Stat(filepath.Join(dir, helmChartFile)); err == nil {
		return LayoutHelm
	}

	if kustomize.IsKustomization(filesys.MakeFsOnDisk(), dir) {
		return LayoutKustomize
	}

	if matches, _ := filepath.Glob(filepath.Join(dir, TemplatePattern)); len(matches) > 0 {
		return LayoutTemplate
	}

	return LayoutYaml
}
