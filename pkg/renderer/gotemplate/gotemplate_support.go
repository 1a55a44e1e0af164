package gotemplate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	utilerrors "github.com/lburgazzoli/kpipe/pkg/util/errors"
)

// Values returns a Values function that always returns values.
func Values(values map[string]any) func(context.Context) (map[string]any, error) {
	return func(_ context.Context) (map[string]any, error) {
		return values, nil
	}
}

type sourceHolder struct {
	Source

	mu        sync.Mutex
	templates *template.Template
}

// Validate checks the Source configuration.
func (h *sourceHolder) Validate() error {
	if h.FS == nil {
		return utilerrors.ErrFsRequired
	}
	if len(strings.TrimSpace(h.Path)) == 0 {
		return utilerrors.ErrPathEmpty
	}

	return nil
}

// LoadTemplates parses the templates on first use.
func (h *sourceHolder) LoadTemplates() (*template.Template, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.templates != nil {
		return h.templates, nil
	}

	tmpl, err := template.New("").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		ParseFS(h.FS, h.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates (path: %s): %w", h.Path, err)
	}

	h.templates = tmpl

	return h.templates, nil
}
