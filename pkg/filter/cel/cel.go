package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apiserver/pkg/cel/library"

	"github.com/lburgazzoli/kpipe/pkg/filter"
	"github.com/lburgazzoli/kpipe/pkg/types"
)

// ObjectVariable is the name the evaluated object is bound to.
const ObjectVariable = "object"

// Filter keeps objects for which the CEL expression evaluates to true, e.g.
//
//	object.kind == "Deployment" && object.metadata.name.startsWith("workshopctl-")
func Filter(expression string) (types.Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable(ObjectVariable, cel.DynType),
		ext.Strings(),
		library.Lists(),
		library.Regex(),
		library.URLs(),
		library.Quantity(),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("unable to compile CEL expression: %w", issues.Err())
	}

	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must return a boolean, got %s", t)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("unable to build CEL program: %w", err)
	}

	return func(ctx context.Context, obj unstructured.Unstructured) (bool, error) {
		out, _, err := prg.ContextEval(ctx, map[string]any{
			ObjectVariable: obj.Object,
		})
		if err != nil {
			return false, filter.Wrap(obj, fmt.Errorf("unable to evaluate CEL expression: %w", err))
		}

		b, ok := out.Value().(bool)
		if !ok {
			return false, filter.Wrap(obj, fmt.Errorf("CEL expression must return a boolean, got %s", out.Type()))
		}

		return b, nil
	}, nil
}
