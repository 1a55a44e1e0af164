package filter

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
)

// Error reports a filter failure together with the object being evaluated.
type Error struct {
	Object unstructured.Unstructured
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("filter error for %s: %v", utilk8s.Describe(e.Object), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches obj to err, unless err already carries a filter Error.
func Wrap(obj unstructured.Unstructured, err error) error {
	if err == nil {
		return nil
	}

	var filterErr *Error
	if errors.As(err, &filterErr) {
		return err
	}

	return &Error{
		Object: obj,
		Err:    err,
	}
}
