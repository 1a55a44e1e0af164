package yaml

import (
	"path"
	"strings"

	utilerrors "github.com/lburgazzoli/kpipe/pkg/util/errors"
)

type sourceHolder struct {
	Source
}

// Validate checks the Source configuration, patterns included.
func (h *sourceHolder) Validate() error {
	if h.FS == nil {
		return utilerrors.ErrFsRequired
	}
	if len(strings.TrimSpace(h.Path)) == 0 {
		return utilerrors.ErrPathEmpty
	}

	for _, pattern := range append([]string{h.Path}, h.Exclude...) {
		if _, err := path.Match(pattern, ""); err != nil {
			return err
		}
	}

	return nil
}

func (h *sourceHolder) excluded(name string) bool {
	base := path.Base(name)

	for _, pattern := range h.Exclude {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}

	return false
}
