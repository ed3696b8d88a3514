// Package openapi describes a compiled API as an OpenAPI 3 document. Each
// method becomes one operation; its data fields are query parameters and its
// headers are header parameters.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/ir"
	"github.com/blimu-dev/webapi/pkg/utils"
)

const (
	// ExtRefresh names the refresh method of a cached operation.
	ExtRefresh = "x-refresh-method"
	// ExtScope is "construction" or "call" on parameters bound to an argument.
	ExtScope = "x-binding-scope"
	// ExtArgument is the argument a parameter is bound to.
	ExtArgument = "x-argument"
	// ExtPath is the request path of an operation filed under a
	// disambiguated key because another operation already holds its path
	// and verb.
	ExtPath = "x-path"
)

// Info is the document's info block.
type Info struct {
	Title   string
	Version string
}

// Export builds and validates the OpenAPI document of api.
func Export(ctx context.Context, api *ir.API, info Info) (*openapi3.T, error) {
	if info.Title == "" {
		info.Title = "webapi"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: info.Title, Version: info.Version},
		Paths:   openapi3.NewPaths(),
	}

	ids := map[string]string{}
	for _, cls := range api.Classes {
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: cls.Name})
		for _, m := range cls.Methods {
			id := utils.OperationID(m.Class, m.Name)
			if prev, ok := ids[id]; ok {
				return nil, apierr.Schemaf(m.Op(), "operation id %q is already used by %s", id, prev)
			}
			ids[id] = m.Op()
			if err := addOperation(doc, m, id); err != nil {
				return nil, err
			}
		}
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, apierr.Schemaf("openapi", "generated document is invalid: %v", err)
	}
	return doc, nil
}

func addOperation(doc *openapi3.T, m *ir.Method, id string) error {
	u, err := url.Parse(m.URL)
	if err != nil {
		return apierr.Schemaf(m.Op(), "url: %v", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	// methods on different hosts, or in different classes, may share a path
	// and verb; the first keeps the path and later ones are keyed by id
	op := openapi3.NewOperation()
	key := path
	if item := doc.Paths.Value(path); item != nil && item.GetOperation(m.Verb) != nil {
		key = path + "#" + id
		op.Extensions = map[string]any{ExtPath: path}
	}
	item := doc.Paths.Value(key)
	if item == nil {
		item = &openapi3.PathItem{}
		doc.Paths.Set(key, item)
	}

	op.OperationID = id
	op.Summary = m.Op()
	op.Tags = []string{m.Class}
	op.Responses = responses(m)
	if u.Scheme != "" && u.Host != "" {
		op.Servers = &openapi3.Servers{{URL: u.Scheme + "://" + u.Host}}
	}
	if m.Cached() {
		if op.Extensions == nil {
			op.Extensions = map[string]any{}
		}
		op.Extensions[ExtRefresh] = m.RefreshName
	}

	params := parameterSet{}
	for _, loc := range []ir.Location{ir.LocationQuery, ir.LocationHeader} {
		for _, scope := range []ir.Scope{ir.CallTime, ir.ConstructionTime} {
			b := m.Bindings(scope, loc)
			for _, arg := range b.Args() {
				for _, field := range b[arg] {
					params.add(bound(loc, field, arg, scope))
				}
			}
		}
	}
	for _, name := range sortedKeys(m.DataLiterals) {
		params.add(fixed(ir.LocationQuery, name, m.DataLiterals[name]))
	}
	for _, name := range sortedKeys(m.HeaderLiterals) {
		params.add(fixed(ir.LocationHeader, name, m.HeaderLiterals[name]))
	}
	for name, values := range u.Query() {
		params.add(fixed(ir.LocationQuery, name, values[0]))
	}
	op.Parameters = params.list()

	item.SetOperation(m.Verb, op)
	return nil
}

func responses(m *ir.Method) *openapi3.Responses {
	rs := openapi3.NewResponses()
	rs.Delete("default")
	description := fmt.Sprintf("JSON payload of %s", m.Op())
	rs.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchema(openapi3.NewSchema()),
		},
	})
	return rs
}

func bound(loc ir.Location, field, arg string, scope ir.Scope) *openapi3.Parameter {
	p := newParameter(loc, field).WithSchema(openapi3.NewStringSchema())
	p.Required = true
	if scope == ir.ConstructionTime {
		p.Description = fmt.Sprintf("Bound to constructor argument %q.", arg)
	} else {
		p.Description = fmt.Sprintf("Bound to call argument %q.", arg)
	}
	p.Extensions = map[string]any{ExtScope: scope.String(), ExtArgument: arg}
	return p
}

func fixed(loc ir.Location, name, value string) *openapi3.Parameter {
	p := newParameter(loc, name).WithSchema(openapi3.NewStringSchema().WithEnum(value).WithDefault(value))
	p.Description = "Fixed by the schema."
	return p
}

func newParameter(loc ir.Location, name string) *openapi3.Parameter {
	if loc == ir.LocationHeader {
		return openapi3.NewHeaderParameter(name)
	}
	return openapi3.NewQueryParameter(name)
}

// parameterSet keeps the first parameter per location and case-folded name.
type parameterSet struct {
	seen  map[string]bool
	items openapi3.Parameters
}

func (s *parameterSet) add(p *openapi3.Parameter) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	key := p.In + ":" + p.Name
	if p.In == openapi3.ParameterInHeader {
		key = strings.ToLower(key)
	}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.items = append(s.items, &openapi3.ParameterRef{Value: p})
}

func (s *parameterSet) list() openapi3.Parameters {
	sort.SliceStable(s.items, func(i, j int) bool {
		a, b := s.items[i].Value, s.items[j].Value
		if a.In != b.In {
			return a.In > b.In
		}
		return a.Name < b.Name
	})
	return s.items
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode serializes doc as "json" or "yaml".
func Encode(doc *openapi3.T, format string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	switch format {
	case "", "json":
		return append(data, '\n'), nil
	case "yaml", "yml":
		// go through a node tree so key order survives
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		blockStyle(&node)
		return yaml.Marshal(&node)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && needsQuotes(n.Value) {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// needsQuotes reports whether a plain scalar would be read back as another
// type.
func needsQuotes(s string) bool {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return true
	}
	_, ok := v.(string)
	return !ok
}

// Load reads and validates an OpenAPI document from a file path or an HTTP(S)
// URL.
func Load(ctx context.Context, input string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	var (
		doc *openapi3.T
		err error
	)
	if u, perr := url.Parse(input); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		doc, err = loader.LoadFromURI(u)
	} else {
		doc, err = loader.LoadFromFile(input)
	}
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}
