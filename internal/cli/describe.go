package cli

import (
	"fmt"
	"io"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/blimu-dev/webapi/pkg/ir"
)

type apiView struct {
	Variables map[string]string `yaml:"variables,omitempty"`
	Classes   []classView       `yaml:"classes"`
}

type classView struct {
	Name      string       `yaml:"name"`
	Arguments []string     `yaml:"arguments,omitempty"`
	Methods   []methodView `yaml:"methods"`
}

type methodView struct {
	Name          string      `yaml:"name"`
	Verb          string      `yaml:"verb"`
	URL           string      `yaml:"url"`
	Arguments     []string    `yaml:"arguments,omitempty"`
	RefreshMethod string      `yaml:"refresh_method,omitempty"`
	Query         []fieldView `yaml:"query,omitempty"`
	Headers       []fieldView `yaml:"headers,omitempty"`
}

// fieldView is one request field and where its value comes from.
type fieldView struct {
	Field    string `yaml:"field"`
	Literal  string `yaml:"literal,omitempty"`
	Argument string `yaml:"argument,omitempty"`
	Scope    string `yaml:"scope,omitempty"`
}

func describe(api *ir.API) apiView {
	v := apiView{Variables: api.Variables}
	for _, c := range api.Classes {
		cv := classView{Name: c.Name, Arguments: c.Arguments}
		for _, m := range c.Methods {
			cv.Methods = append(cv.Methods, methodView{
				Name:          m.Name,
				Verb:          m.Verb,
				URL:           m.URL,
				Arguments:     m.Arguments,
				RefreshMethod: m.RefreshName,
				Query:         fields(m, ir.LocationQuery, m.DataLiterals),
				Headers:       fields(m, ir.LocationHeader, m.HeaderLiterals),
			})
		}
		v.Classes = append(v.Classes, cv)
	}
	return v
}

func fields(m *ir.Method, loc ir.Location, literals map[string]string) []fieldView {
	var out []fieldView
	for f, val := range literals {
		out = append(out, fieldView{Field: f, Literal: val})
	}
	for _, scope := range []ir.Scope{ir.ConstructionTime, ir.CallTime} {
		for arg, fs := range m.Bindings(scope, loc) {
			for _, f := range fs {
				out = append(out, fieldView{Field: f, Argument: arg, Scope: scope.String()})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

const describeTemplate = `
{{- with .Variables }}variables:
{{- range $name, $value := . }}
  ${{ $name }} = {{ $value | quote }}
{{- end }}

{{ end -}}
{{- range .Classes }}class {{ .Name }}({{ .Arguments | join ", " }})
{{- range .Methods }}
  {{ .Name }}({{ .Arguments | join ", " }})  {{ .Verb }} {{ .URL }}
  {{- if .RefreshMethod }}
    cached, refreshed by {{ .RefreshMethod }}()
  {{- end }}
  {{- range .Query }}
    query  {{ template "field" . }}
  {{- end }}
  {{- range .Headers }}
    header {{ template "field" . }}
  {{- end }}
{{- end }}

{{ end -}}
{{ define "field" }}{{ .Field }} = {{ if .Argument }}@{{ .Argument }} ({{ .Scope }}){{ else }}{{ .Literal | quote }}{{ end }}{{ end }}`

var describeTmpl = template.Must(template.New("describe").Funcs(sprig.TxtFuncMap()).Parse(describeTemplate))

// writeDescription renders api as "text" or "yaml".
func writeDescription(w io.Writer, api *ir.API, format string) error {
	view := describe(api)
	switch format {
	case "", "text":
		return describeTmpl.Execute(w, view)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q: want text or yaml", format)
	}
}
