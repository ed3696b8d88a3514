// Package compiler turns a schema document into compiled class and method
// descriptors. Static references are resolved here; argument references are
// classified into construction-time and call-time bindings.
package compiler

import (
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/config"
	"github.com/blimu-dev/webapi/pkg/ir"
)

// ReservedNames are the accessor names of the client API container. A class
// may not be named after one of them (compared case-insensitively).
var ReservedNames = []string{"class", "classes", "descriptor", "names", "new", "variables"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Option configures a Compiler.
type Option func(*Compiler)

// WithStrictArguments makes a construction-time reference to an argument the
// class does not declare a schema error. By default such references are
// accepted and only fail when an instance is constructed.
func WithStrictArguments() Option {
	return func(c *Compiler) { c.strict = true }
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// Compiler compiles schema documents.
type Compiler struct {
	strict bool
	logger zerolog.Logger
}

// New creates a compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compile compiles a whole document with a default compiler.
func Compile(doc *config.Document, opts ...Option) (*ir.API, error) {
	return New(opts...).Compile(doc)
}

// Compile compiles every class of doc. Any error aborts the compile and no
// API is returned.
func (c *Compiler) Compile(doc *config.Document) (*ir.API, error) {
	variables, err := resolveAll(doc.Variables)
	if err != nil {
		return nil, apierr.Schemaf("variables", "%v", err)
	}

	api := &ir.API{Variables: variables}
	var errs []error
	seen := map[string]bool{}
	for _, entry := range doc.Classes {
		if seen[entry.Name] {
			errs = append(errs, apierr.Schemaf(entry.Name, "class redeclared"))
			continue
		}
		seen[entry.Name] = true
		if isReserved(entry.Name) {
			errs = append(errs, apierr.Schemaf(entry.Name, "class name is reserved"))
			continue
		}
		cls, err := c.compileClass(entry.Name, entry.Value, variables)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		api.Classes = append(api.Classes, cls)
	}
	if len(errs) > 0 {
		return nil, apierr.Join("api", errs)
	}
	c.logger.Debug().Int("classes", len(api.Classes)).Msg("compiled api")
	return api, nil
}

// CompileClass compiles a single class against a table of global variables.
func (c *Compiler) CompileClass(name string, schema config.ClassSchema, variables map[string]any) (*ir.Class, error) {
	vars, err := resolveAll(variables)
	if err != nil {
		return nil, apierr.Schemaf("variables", "%v", err)
	}
	return c.compileClass(name, schema, vars)
}

func (c *Compiler) compileClass(name string, schema config.ClassSchema, variables map[string]string) (*ir.Class, error) {
	if name == "" {
		return nil, apierr.Schemaf("", "class name is empty")
	}
	if err := validate.Struct(schema); err != nil {
		return nil, apierr.Schemaf(name, "%s", describeValidation(err))
	}
	if dup := firstDuplicate(schema.Arguments); dup != "" {
		return nil, apierr.Schemaf(name, "argument %q declared twice", dup)
	}
	fields, err := resolveAll(schema.Fields)
	if err != nil {
		return nil, apierr.Schemaf(name, "fields: %v", err)
	}

	cls := &ir.Class{
		Name:      name,
		Fields:    fields,
		Arguments: slices.Clone(schema.Arguments),
	}

	var errs []error
	// method and refresh names share one namespace
	declared := map[string]string{}
	declare := func(n, what string) bool {
		if prev, ok := declared[n]; ok {
			errs = append(errs, apierr.Schemaf(name+"."+n, "%s redeclares %s", what, prev))
			return false
		}
		declared[n] = what
		return true
	}

	for _, entry := range schema.Methods {
		ok := declare(entry.Name, "method")
		if entry.Value.RefreshMethod != "" {
			ok = declare(entry.Value.RefreshMethod, fmt.Sprintf("refresh method of %q", entry.Name)) && ok
		}
		if !ok {
			continue
		}
		m, err := c.compileMethod(cls, entry.Name, entry.Value, variables)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cls.Methods = append(cls.Methods, m)
	}
	if len(errs) > 0 {
		return nil, apierr.Join(name, errs)
	}

	c.logger.Debug().Str("class", name).Int("methods", len(cls.Methods)).Msg("compiled class")
	return cls, nil
}

func (c *Compiler) compileMethod(cls *ir.Class, name string, schema config.MethodSchema, variables map[string]string) (*ir.Method, error) {
	op := cls.Name + "." + name
	if name == "" {
		return nil, apierr.Schemaf(op, "method name is empty")
	}

	schema.Verb = strings.ToUpper(schema.Verb)
	if schema.Verb == "" {
		schema.Verb = "GET"
	}
	if err := validate.Struct(schema); err != nil {
		return nil, apierr.Schemaf(op, "%s", describeValidation(err))
	}
	if dup := firstDuplicate(schema.Arguments); dup != "" {
		return nil, apierr.Schemaf(op, "argument %q declared twice", dup)
	}

	url, err := Resolve(schema.URL, cls.Fields, variables)
	if err != nil {
		return nil, apierr.Schemaf(op, "url: %v", err)
	}
	if _, err := neturl.Parse(url); err != nil {
		return nil, apierr.Schemaf(op, "url: %v", err)
	}
	if a, b := headerClash(schema.Headers); a != "" {
		return nil, apierr.Schemaf(op, "headers %q and %q name the same header", a, b)
	}

	m := &ir.Method{
		Class:       cls.Name,
		Name:        name,
		URL:         url,
		Verb:        schema.Verb,
		Arguments:   slices.Clone(schema.Arguments),
		RefreshName: schema.RefreshMethod,
	}

	data := newBindingSet()
	m.DataLiterals, err = c.compileLocation(cls, op, schema.Data, schema.Arguments, variables, data)
	if err != nil {
		return nil, apierr.Schemaf(op, "data: %v", err)
	}
	m.DataConstructionArgs, m.DataCallArgs = data.construction, data.call

	headers := newBindingSet()
	m.HeaderLiterals, err = c.compileLocation(cls, op, schema.Headers, schema.Arguments, variables, headers)
	if err != nil {
		return nil, apierr.Schemaf(op, "headers: %v", err)
	}
	m.HeaderConstructionArgs, m.HeaderCallArgs = headers.construction, headers.call

	return m, nil
}

// compileLocation splits the tokens of one request location into literals and
// argument bindings.
func (c *Compiler) compileLocation(cls *ir.Class, op string, tokens map[string]any, methodArgs []string, variables map[string]string, bindings bindingSet) (map[string]string, error) {
	literals := map[string]string{}
	fields := make([]string, 0, len(tokens))
	for f := range tokens {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		tok, err := ParseToken(tokens[field])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		if tok.Kind != Argument {
			v, err := Resolve(tokens[field], cls.Fields, variables)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			literals[field] = v
			continue
		}
		scope := Classify(tok.Name, methodArgs)
		if scope == ir.ConstructionTime && !slices.Contains(cls.Arguments, tok.Name) {
			if c.strict {
				return nil, fmt.Errorf("%s: argument %q is declared by neither the method nor the class", field, tok.Name)
			}
			c.logger.Warn().Str("method", op).Str("argument", tok.Name).
				Msg("argument is not declared by the class; instances cannot be constructed")
		}
		bindings.add(scope, tok.Name, field)
	}
	return literals, nil
}

// headerClash returns two header fields that differ only in case.
func headerClash(headers map[string]any) (string, string) {
	names := make([]string, 0, len(headers))
	for h := range headers {
		names = append(names, h)
	}
	sort.Strings(names)
	seen := make(map[string]string, len(names))
	for _, h := range names {
		key := http.CanonicalHeaderKey(h)
		if prev, ok := seen[key]; ok {
			return prev, h
		}
		seen[key] = h
	}
	return "", ""
}

func isReserved(name string) bool {
	for _, r := range ReservedNames {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
