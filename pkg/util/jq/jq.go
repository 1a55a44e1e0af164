package jq

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/lburgazzoli/kpipe/pkg/util"
)

var (
	// ErrNoResult is returned when a program produces no value.
	ErrNoResult = errors.New("jq: no results returned")

	// ErrMultipleResults is returned by Run when a program produces more than one value.
	ErrMultipleResults = errors.New("jq: multiple results returned")
)

type function struct {
	minarity int
	maxarity int
	impl     func(any, []any) any
}

// Engine is a compiled jq program together with the variables it is run with.
type Engine struct {
	code      *gojq.Code
	functions map[string]function
	variables map[string]any
}

// Option is a generic option for Engine.
type Option = util.Option[Engine]

// WithFunction registers a custom function with the program.
func WithFunction(name string, minarity, maxarity int, impl func(any, []any) any) Option {
	return util.FunctionalOption[Engine](func(e *Engine) {
		e.functions[name] = function{
			minarity: minarity,
			maxarity: maxarity,
			impl:     impl,
		}
	})
}

// WithVariable binds a variable; the leading $ is optional.
func WithVariable(name string, value any) Option {
	return util.FunctionalOption[Engine](func(e *Engine) {
		if !strings.HasPrefix(name, "$") {
			name = "$" + name
		}

		e.variables[name] = value
	})
}

// WithVariables binds every entry of vars as a variable.
func WithVariables(vars map[string]any) Option {
	return util.FunctionalOption[Engine](func(e *Engine) {
		for k, v := range vars {
			WithVariable(k, v).ApplyTo(e)
		}
	})
}

// NewEngine parses and compiles expression.
func NewEngine(expression string, opts ...Option) (*Engine, error) {
	e := &Engine{
		functions: make(map[string]function),
		variables: make(map[string]any),
	}

	for _, opt := range opts {
		opt.ApplyTo(e)
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JQ expression: %w", err)
	}

	compilerOpts := make([]gojq.CompilerOption, 0, len(e.functions)+1)
	for name, fn := range e.functions {
		compilerOpts = append(compilerOpts, gojq.WithFunction(name, fn.minarity, fn.maxarity, fn.impl))
	}

	compilerOpts = append(compilerOpts, gojq.WithVariables(e.variableNames()))

	code, err := gojq.Compile(query, compilerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile JQ expression: %w", err)
	}

	e.code = code

	return e, nil
}

// variableNames returns the bound variable names in a stable order; values
// are passed to the program in the same order.
func (e *Engine) variableNames() []string {
	return slices.Sorted(maps.Keys(e.variables))
}

func (e *Engine) variableValues() []any {
	names := e.variableNames()

	values := make([]any, len(names))
	for i, name := range names {
		values[i] = e.variables[name]
	}

	return values
}

// Run executes the program on input and returns its single result.
func (e *Engine) Run(ctx context.Context, input any) (any, error) {
	iter := e.code.RunWithContext(ctx, input, e.variableValues()...)

	v, ok := iter.Next()
	if !ok {
		return nil, ErrNoResult
	}

	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("jq: error during execution: %w", err)
	}

	if _, ok := iter.Next(); ok {
		return nil, ErrMultipleResults
	}

	return v, nil
}

// RunAll executes the program on input and collects every result.
func (e *Engine) RunAll(ctx context.Context, input any) ([]any, error) {
	iter := e.code.RunWithContext(ctx, input, e.variableValues()...)

	results := make([]any, 0)

	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}

			return nil, fmt.Errorf("jq: error during execution: %w", err)
		}

		results = append(results, v)
	}

	return results, nil
}
