package pipe

import (
	"io"

	"sigs.k8s.io/kustomize/kyaml/kio"
	kyaml "sigs.k8s.io/kustomize/kyaml/yaml"
)

// NodeFunc transforms a single resource node in place or returns a new one.
type NodeFunc func(node *kyaml.RNode) (*kyaml.RNode, error)

// KYAML runs fns over every resource of the stream read from r and writes
// the result to w. Unlike Kube it works on YAML nodes, so comments, field
// order and formatting of untouched fields survive.
func KYAML(r io.Reader, w io.Writer, fns ...NodeFunc) error {
	apply := kio.FilterFunc(func(nodes []*kyaml.RNode) ([]*kyaml.RNode, error) {
		for i := range nodes {
			for _, fn := range fns {
				out, err := fn(nodes[i])
				if err != nil {
					return nil, err
				}
				if out != nil {
					nodes[i] = out
				}
			}
		}

		return nodes, nil
	})

	return kio.Pipeline{
		Inputs:  []kio.Reader{&kio.ByteReader{Reader: r}},
		Filters: []kio.Filter{apply},
		Outputs: []kio.Writer{kio.ByteWriter{Writer: w}},
	}.Execute()
}

// Match selects resources by kind, name and namespace; empty fields match
// anything. Func runs on every selected node.
type Match struct {
	Kind      string
	Name      string
	Namespace string
	Func      func(node *kyaml.RNode) error
}

func (m Match) matches(meta kyaml.ResourceMeta) bool {
	switch {
	case m.Kind != "" && m.Kind != meta.Kind:
		return false
	case m.Name != "" && m.Name != meta.Name:
		return false
	case m.Namespace != "" && m.Namespace != meta.Namespace:
		return false
	default:
		return true
	}
}

// MatchMeta runs the Func of every match selecting node, in order.
func MatchMeta(node *kyaml.RNode, matches ...Match) error {
	meta, err := node.GetMeta()
	if err != nil {
		return err
	}

	for _, m := range matches {
		if !m.matches(meta) {
			continue
		}

		if err := m.Func(node); err != nil {
			return err
		}
	}

	return nil
}

// MatchFunc adapts MatchMeta to a NodeFunc.
func MatchFunc(matches ...Match) NodeFunc {
	return func(node *kyaml.RNode) (*kyaml.RNode, error) {
		return node, MatchMeta(node, matches...)
	}
}
