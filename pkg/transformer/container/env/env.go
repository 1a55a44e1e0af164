package env

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/lburgazzoli/kpipe/pkg/transformer"
	"github.com/lburgazzoli/kpipe/pkg/types"
)

var (
	// ErrNoContainers is returned when an object has no pod spec containers.
	ErrNoContainers = errors.New("object has no containers")

	// ErrContainerNotFound is returned when the named container does not exist.
	ErrContainerNotFound = errors.New("container not found")
)

// pod spec locations, most common first.
var containerPaths = [][]string{
	{"spec", "template", "spec", "containers"},
	{"spec", "jobTemplate", "spec", "template", "spec", "containers"},
	{"spec", "containers"},
}

// SecretKeyRef builds an EnvVar sourcing its value from a secret key.
func SecretKeyRef(name string, secret string, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secret},
				Key:                  key,
			},
		},
	}
}

// Append adds envVars to the env list of the container called name, or of
// the first container when name is empty. The env list is created when absent.
func Append(name string, envVars ...corev1.EnvVar) types.Transformer {
	return func(_ context.Context, obj unstructured.Unstructured) (unstructured.Unstructured, error) {
		entries := make([]any, 0, len(envVars))
		for i := range envVars {
			u, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&envVars[i])
			if err != nil {
				return unstructured.Unstructured{}, transformer.Wrap(obj, fmt.Errorf("unable to convert env var %s: %w", envVars[i].Name, err))
			}

			entries = append(entries, u)
		}

		path, containers, err := findContainers(obj)
		if err != nil {
			return unstructured.Unstructured{}, transformer.Wrap(obj, err)
		}

		idx, err := indexOf(containers, name)
		if err != nil {
			return unstructured.Unstructured{}, transformer.Wrap(obj, err)
		}

		container, ok := containers[idx].(map[string]any)
		if !ok {
			return unstructured.Unstructured{}, transformer.Wrap(obj, fmt.Errorf("container[%d] is not an object", idx))
		}

		current, _, err := unstructured.NestedSlice(container, "env")
		if err != nil {
			return unstructured.Unstructured{}, transformer.Wrap(obj, fmt.Errorf("invalid env of container[%d]: %w", idx, err))
		}

		container["env"] = append(current, entries...)
		containers[idx] = container

		if err := unstructured.SetNestedSlice(obj.Object, containers, path...); err != nil {
			return unstructured.Unstructured{}, transformer.Wrap(obj, err)
		}

		return obj, nil
	}
}

func findContainers(obj unstructured.Unstructured) ([]string, []any, error) {
	for _, path := range containerPaths {
		containers, found, err := unstructured.NestedSlice(obj.Object, path...)
		if err != nil {
			return nil, nil, err
		}
		if found && len(containers) > 0 {
			return path, containers, nil
		}
	}

	return nil, nil, ErrNoContainers
}

func indexOf(containers []any, name string) (int, error) {
	if name == "" {
		return 0, nil
	}

	for i, c := range containers {
		if m, ok := c.(map[string]any); ok && m["name"] == name {
			return i, nil
		}
	}

	return -1, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
}
