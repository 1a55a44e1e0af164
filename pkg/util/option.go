package util

// Option configures a target of type T.
type Option[T any] interface {
	ApplyTo(target *T)
}

// FunctionalOption adapts a plain function to Option.
type FunctionalOption[T any] func(*T)

// ApplyTo calls the wrapped function on target.
func (f FunctionalOption[T]) ApplyTo(target *T) {
	f(target)
}
