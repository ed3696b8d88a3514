package compiler

import (
	"fmt"
	"strings"

	"github.com/blimu-dev/webapi/pkg/ir"
)

// TokenKind classifies a raw schema value.
type TokenKind int

const (
	// Literal is a plain value sent as is.
	Literal TokenKind = iota
	// Static is a $name reference, resolved at compile time.
	Static
	// Argument is an @name reference, bound at construction or call time.
	Argument
)

const (
	staticPrefix   = "$"
	argumentPrefix = "@"
)

// Token is a parsed schema value.
type Token struct {
	Kind TokenKind
	// Name is the referenced name for Static and Argument tokens.
	Name string
	// Value is the literal for Literal tokens.
	Value any
}

// ParseToken splits a raw value into its kind and name. Only strings can be
// references; numbers and booleans are always literals.
func ParseToken(raw any) (Token, error) {
	s, ok := raw.(string)
	if !ok {
		return Token{Kind: Literal, Value: raw}, nil
	}
	switch {
	case strings.HasPrefix(s, staticPrefix):
		return named(Static, s, staticPrefix)
	case strings.HasPrefix(s, argumentPrefix):
		return named(Argument, s, argumentPrefix)
	default:
		return Token{Kind: Literal, Value: s}, nil
	}
}

func named(kind TokenKind, s, prefix string) (Token, error) {
	name := strings.TrimPrefix(s, prefix)
	if name == "" {
		return Token{}, fmt.Errorf("empty reference %q", s)
	}
	return Token{Kind: kind, Name: name}, nil
}

// Resolve returns the literal a token stands for. A $name is looked up in
// variables first, then in fields. Argument references cannot be resolved.
func Resolve(raw any, fields, variables map[string]string) (string, error) {
	tok, err := ParseToken(raw)
	if err != nil {
		return "", err
	}
	switch tok.Kind {
	case Static:
		if v, ok := variables[tok.Name]; ok {
			return v, nil
		}
		if v, ok := fields[tok.Name]; ok {
			return v, nil
		}
		return "", fmt.Errorf("unresolved variable %q", tok.Name)
	case Argument:
		return "", fmt.Errorf("argument reference %q is not allowed here", argumentPrefix+tok.Name)
	default:
		return ir.FormatValue(tok.Value)
	}
}

// resolveAll stringifies a table of static values.
func resolveAll(values map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for name, v := range values {
		s, err := ir.FormatValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}
