package k8s

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	sigsyaml "sigs.k8s.io/yaml"

	utilerrors "github.com/lburgazzoli/kpipe/pkg/util/errors"
)

const documentSeparator = "---\n"

// DeepCloneUnstructuredSlice creates a deep copy of a slice of unstructured objects.
func DeepCloneUnstructuredSlice(objects []unstructured.Unstructured) []unstructured.Unstructured {
	if objects == nil {
		return nil
	}

	result := make([]unstructured.Unstructured, len(objects))
	for i, obj := range objects {
		result[i] = *obj.DeepCopy()
	}

	return result
}

// DecodeDocuments reads a YAML document stream and returns every non-null
// document in stream order. Values are normalized to their JSON form
// (int64, float64, string, bool, map[string]any, []any) so that the result
// can be safely wrapped in unstructured.Unstructured and deep copied.
//
// A document that is neither null nor a mapping is an error.
func DecodeDocuments(r io.Reader) ([]map[string]any, error) {
	results := make([]map[string]any, 0)

	yd := yaml.NewDecoder(r)

	for i := 0; ; i++ {
		var node yaml.Node

		err := yd.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to decode YAML document[%d]: %w", i, err)
		}

		doc, err := normalize(&node)
		if err != nil {
			return nil, fmt.Errorf("unable to decode YAML document[%d]: %w", i, err)
		}

		if doc == nil {
			continue
		}

		results = append(results, doc)
	}

	return results, nil
}

// normalize converts a decoded YAML node into its JSON-compatible form.
// It returns nil for null documents.
func normalize(node *yaml.Node) (map[string]any, error) {
	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return nil, nil
	}

	raw, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}

	data, err := sigsyaml.YAMLToJSON(raw)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if len(data) == 0 || data[0] != '{' {
		return nil, utilerrors.ErrNotAnObject
	}

	out := make(map[string]any)
	if err := utiljson.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// DecodeObjects decodes every non-null document of r into an unstructured
// object. Unlike DecodeYAML, documents without a kind are kept.
func DecodeObjects(r io.Reader) ([]unstructured.Unstructured, error) {
	docs, err := DecodeDocuments(r)
	if err != nil {
		return nil, err
	}

	objects := make([]unstructured.Unstructured, len(docs))
	for i := range docs {
		objects[i] = unstructured.Unstructured{Object: docs[i]}
	}

	return objects, nil
}

// DecodeYAML decodes rendered manifests into unstructured objects.
// Null documents and documents without a kind are skipped.
func DecodeYAML(content []byte) ([]unstructured.Unstructured, error) {
	docs, err := DecodeDocuments(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	results := make([]unstructured.Unstructured, 0, len(docs))
	for _, doc := range docs {
		if kind, _ := doc["kind"].(string); kind == "" {
			continue
		}

		results = append(results, unstructured.Unstructured{Object: doc})
	}

	return results, nil
}

// EncodeDocuments writes docs to w as a YAML document stream.
func EncodeDocuments(w io.Writer, docs []map[string]any) error {
	for i, doc := range docs {
		if i > 0 {
			if _, err := io.WriteString(w, documentSeparator); err != nil {
				return err
			}
		}

		data, err := sigsyaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("unable to encode YAML document[%d]: %w", i, err)
		}

		if _, err := w.Write(data); err != nil {
			return err
		}
	}

	return nil
}

// EncodeYAML writes objects to w as a YAML document stream.
func EncodeYAML(w io.Writer, objects []unstructured.Unstructured) error {
	docs := make([]map[string]any, len(objects))
	for i := range objects {
		docs[i] = objects[i].Object
	}

	return EncodeDocuments(w, docs)
}

// ToObject converts an arbitrary value (for instance the result of a jq
// program) into a JSON-normalized object.
func ToObject(v any) (map[string]any, error) {
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("%w, got %T", utilerrors.ErrNotAnObject, v)
	}

	data, err := utiljson.Marshal(v)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	if err := utiljson.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Describe renders a short identifier for obj, suitable for errors and logs:
// "apps/v1, Kind=Deployment workshopctl/external-dns".
func Describe(obj unstructured.Unstructured) string {
	name := obj.GetName()
	if ns := obj.GetNamespace(); ns != "" {
		name = ns + "/" + name
	}

	return fmt.Sprintf("%s %s", obj.GroupVersionKind(), name)
}

// ToJSONValue converts v into its JSON-normalized form, turning typed
// slices and maps into []any and map[string]any.
func ToJSONValue(v any) (any, error) {
	data, err := utiljson.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	if err := utiljson.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
