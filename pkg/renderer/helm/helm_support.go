package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/registry"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/util/k8s"
)

// maxReleaseNameLength is imposed by Kubernetes label value constraints.
const maxReleaseNameLength = 53

var (
	// ErrChartEmpty is returned when a chart name is empty or whitespace-only.
	ErrChartEmpty = errors.New("chart cannot be empty or whitespace-only")

	// ErrReleaseNameTooLong is returned when a release name exceeds the maximum length.
	ErrReleaseNameTooLong = errors.New("release name exceeds maximum length")
)

// Values returns a Values function that always returns values.
func Values(values map[string]any) func(context.Context) (map[string]any, error) {
	return func(_ context.Context) (map[string]any, error) {
		return values, nil
	}
}

type sourceHolder struct {
	Source

	mu    sync.Mutex
	chart *chart.Chart
}

func newSourceHolder(s Source) *sourceHolder {
	if strings.TrimSpace(s.ReleaseName) == "" {
		s.ReleaseName = DefaultReleaseName
	}
	if strings.TrimSpace(s.Namespace) == "" {
		s.Namespace = DefaultNamespace
	}

	return &sourceHolder{Source: s}
}

// Validate checks the Source configuration.
func (h *sourceHolder) Validate() error {
	if len(strings.TrimSpace(h.Chart)) == 0 {
		return ErrChartEmpty
	}

	if n := len(strings.TrimSpace(h.ReleaseName)); n > maxReleaseNameLength {
		return fmt.Errorf("%w: must not exceed %d characters (got %d)", ErrReleaseNameTooLong, maxReleaseNameLength, n)
	}

	return nil
}

// LoadChart returns the chart, loading it on first use.
func (h *sourceHolder) LoadChart(settings *cli.EnvSettings) (*chart.Chart, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.chart != nil {
		return h.chart, nil
	}

	path, err := h.locate(settings)
	if err != nil {
		return nil, err
	}

	c, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart (repo: %s, name: %s, version: %s): %w", h.Repo, h.Chart, h.ReleaseVersion, err)
	}

	h.chart = c

	return h.chart, nil
}

// locate resolves the chart to a path on disk. Local directories are used
// as they are; anything else goes through the Helm chart downloader.
func (h *sourceHolder) locate(settings *cli.EnvSettings) (string, error) {
	if h.Repo == "" {
		if fi, err := os.Stat(h.Chart); err == nil && fi.IsDir() {
			return h.Chart, nil
		}
	}

	c, err := registry.NewClient()
	if err != nil {
		return "", fmt.Errorf("unable to create registry client: %w", err)
	}

	install := action.NewInstall(&action.Configuration{
		RegistryClient: c,
	})

	opt := install.ChartPathOptions
	opt.RepoURL = h.Repo
	opt.Version = h.ReleaseVersion

	path, err := opt.LocateChart(h.Chart, settings)
	if err != nil {
		return "", fmt.Errorf("unable to locate chart (repo: %s, name: %s, version: %s): %w", h.Repo, h.Chart, h.ReleaseVersion, err)
	}

	return path, nil
}

func (r *Renderer) addSourceAnnotations(objects []unstructured.Unstructured, chartPath string, fileName string) {
	if !r.opts.SourceAnnotations {
		return
	}

	for i := range objects {
		annotations := objects[i].GetAnnotations()
		if annotations == nil {
			annotations = make(map[string]string)
		}

		annotations[types.AnnotationSourceType] = rendererType
		annotations[types.AnnotationSourcePath] = chartPath
		annotations[types.AnnotationSourceFile] = fileName

		objects[i].SetAnnotations(annotations)
	}
}

func (r *Renderer) processCRDs(helmChart *chart.Chart, holder *sourceHolder) ([]unstructured.Unstructured, error) {
	result := make([]unstructured.Unstructured, 0)

	for _, crd := range helmChart.CRDObjects() {
		objects, err := k8s.DecodeYAML(crd.File.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode CRD %s: %w", crd.Name, err)
		}

		r.addSourceAnnotations(objects, holder.Chart, crd.Name)
		result = append(result, objects...)
	}

	return result, nil
}

// processRenderedTemplates decodes the YAML outputs of the Helm engine in
// file name order, so that the result is stable across runs.
func (r *Renderer) processRenderedTemplates(files map[string]string, holder *sourceHolder) ([]unstructured.Unstructured, error) {
	names := make([]string, 0, len(files))
	for k := range files {
		if strings.HasSuffix(k, ".yaml") || strings.HasSuffix(k, ".yml") {
			names = append(names, k)
		}
	}

	sort.Strings(names)

	result := make([]unstructured.Unstructured, 0)

	for _, k := range names {
		objects, err := k8s.DecodeYAML([]byte(files[k]))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", k, err)
		}

		r.addSourceAnnotations(objects, holder.Chart, k)
		result = append(result, objects...)
	}

	return result, nil
}
