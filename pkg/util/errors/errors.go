package errors

import "errors"

// Validation errors shared by renderers and pipes.
var (
	// ErrFsRequired is returned when a required filesystem is nil.
	ErrFsRequired = errors.New("fs is required")

	// ErrPathEmpty is returned when a required path is empty or whitespace-only.
	ErrPathEmpty = errors.New("path cannot be empty or whitespace-only")

	// ErrNilTransform is returned when a mutator is built without a transform function.
	ErrNilTransform = errors.New("transform function is required")

	// ErrNotAnObject is returned when a values document is not a mapping.
	ErrNotAnObject = errors.New("document is not an object")
)
