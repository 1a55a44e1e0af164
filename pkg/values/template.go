package values

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/lburgazzoli/kpipe/pkg/params"
)

// Template renders content as a Go template before it is parsed as YAML.
// The parameters are available as .workshopctl, sprig functions are
// registered and referencing an unknown key is an error. Entries of extra
// are added below .workshopctl next to the parameters.
func Template(name string, content []byte, p params.Parameters, extra ...map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("unable to parse template %s: %w", name, err)
	}

	scope := p.ToMap()
	for _, m := range extra {
		for k, v := range m {
			scope[k] = v
		}
	}

	data := map[string]any{
		params.ValuesKey: scope,
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("unable to render template %s: %w", name, err)
	}

	return out.Bytes(), nil
}

// Unescape turns \{ and \} back into { and } so that templates escaped in a
// chart survive helm rendering.
func Unescape(content []byte) []byte {
	content = bytes.ReplaceAll(content, []byte(`\{`), []byte(`{`))
	content = bytes.ReplaceAll(content, []byte(`\}`), []byte(`}`))

	return content
}
