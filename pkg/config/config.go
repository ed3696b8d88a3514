// Package config holds the schema document that describes remote endpoints and
// the runtime settings used by the command line tool.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blimu-dev/webapi/pkg/apierr"
)

// Document is the root of a schema file.
type Document struct {
	// Variables are static values visible to every class.
	Variables map[string]any       `yaml:"variables" json:"variables"`
	Classes   Ordered[ClassSchema] `yaml:"classes" json:"classes"`
}

// ClassSchema describes one client class.
type ClassSchema struct {
	// Fields are static values visible to this class only.
	Fields map[string]any `yaml:"fields" json:"fields"`
	// Arguments are the construction-time argument names, in declaration order.
	Arguments []string `yaml:"arguments" json:"arguments" validate:"dive,required"`

	Methods Ordered[MethodSchema] `yaml:"methods" json:"methods"`
}

// MethodSchema describes one remote endpoint.
type MethodSchema struct {
	URL string `yaml:"url" json:"url" validate:"required"`
	// Verb defaults to GET.
	Verb string `yaml:"verb" json:"verb" validate:"omitempty,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	// Arguments are the call-time argument names.
	Arguments     []string       `yaml:"arguments" json:"arguments" validate:"dive,required"`
	Data          map[string]any `yaml:"data" json:"data"`
	Headers       map[string]any `yaml:"headers" json:"headers"`
	RefreshMethod string         `yaml:"refresh_method" json:"refresh_method"`
}

// Entry is one name/value pair of an Ordered mapping.
type Entry[T any] struct {
	Name  string
	Value T
}

// Ordered is a mapping that keeps declaration order and duplicate keys, so
// redeclarations can be reported instead of silently collapsed.
type Ordered[T any] []Entry[T]

// Get returns the first value declared under name.
func (o Ordered[T]) Get(name string) (T, bool) {
	for _, e := range o {
		if e.Name == name {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

// Names returns the declared names in order, duplicates included.
func (o Ordered[T]) Names() []string {
	out := make([]string, 0, len(o))
	for _, e := range o {
		out = append(out, e.Name)
	}
	return out
}

// UnmarshalYAML decodes a mapping node, keeping its key order.
func (o *Ordered[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make(Ordered[T], 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var v T
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, Entry[T]{Name: name, Value: v})
	}
	*o = out
	return nil
}

// UnmarshalJSON decodes an object, keeping its key order. Numbers decode as
// json.Number.
func (o *Ordered[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("expected an object")
	}
	out := Ordered[T]{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var v T
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, Entry[T]{Name: name, Value: v})
	}
	*o = out
	return nil
}

// Load reads a schema document from a JSON or YAML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a schema document. JSON is used when ext is ".json" or the
// content starts with '{'; YAML otherwise.
func Parse(data []byte, ext string) (*Document, error) {
	var doc Document
	trimmed := bytes.TrimSpace(data)
	if strings.EqualFold(ext, ".json") || bytes.HasPrefix(trimmed, []byte("{")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, &apierr.Error{Kind: apierr.KindSchema, Message: "parse json", Err: err}
		}
	} else if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, &apierr.Error{Kind: apierr.KindSchema, Message: "parse yaml", Err: err}
	}
	return &doc, nil
}
