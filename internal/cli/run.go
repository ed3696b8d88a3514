package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blimu-dev/webapi"
	"github.com/blimu-dev/webapi/pkg/openapi"
)

// RunValidate compiles the schema and reports what it declares.
func RunValidate(env *Env, schema string) error {
	api, err := webapi.Validate(schema, env.schemaOptions()...)
	if err != nil {
		return err
	}
	methods := 0
	for _, c := range api.Classes {
		methods += len(c.Methods)
	}
	fmt.Fprintf(env.Out, "%s: ok (%d classes, %d methods)\n", schema, len(api.Classes), methods)
	return nil
}

// RunDescribe prints the compiled classes and where every request field
// takes its value from.
func RunDescribe(env *Env, schema, format string) error {
	api, err := webapi.Validate(schema, env.schemaOptions()...)
	if err != nil {
		return err
	}
	return writeDescription(env.Out, api, format)
}

type RunCallParams struct {
	Schema string
	Class  string
	// Args are the constructor arguments as name=value pairs.
	Args   []string
	Method string
	// Params are the call arguments as name=value pairs.
	Params []string
}

// RunCall constructs one instance, calls one method and prints the decoded
// result as JSON.
func RunCall(ctx context.Context, env *Env, p RunCallParams) error {
	if p.Class == "" || p.Method == "" {
		return errors.New("--class and --method are required")
	}
	ctorArgs, err := ParseAssignments(p.Args)
	if err != nil {
		return err
	}
	callArgs, err := ParseAssignments(p.Params)
	if err != nil {
		return err
	}

	api, release, err := env.Open(ctx, p.Schema)
	if err != nil {
		return err
	}
	defer release()

	inst, err := api.New(p.Class, ctorArgs)
	if err != nil {
		return err
	}
	result, err := inst.Call(ctx, p.Method, callArgs)
	if err != nil {
		return err
	}
	return printJSON(env, result)
}

type RunOpenAPIParams struct {
	Schema  string
	Out     string
	Title   string
	Version string
}

// RunOpenAPI exports the compiled schema as an OpenAPI 3 document, to Out or
// to stdout. The format follows Out's extension and defaults to YAML.
func RunOpenAPI(ctx context.Context, env *Env, p RunOpenAPIParams) error {
	api, err := webapi.Validate(p.Schema, env.schemaOptions()...)
	if err != nil {
		return err
	}
	title := p.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(p.Schema), filepath.Ext(p.Schema))
	}
	doc, err := openapi.Export(ctx, api, openapi.Info{Title: title, Version: p.Version})
	if err != nil {
		return err
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(p.Out), ".json") {
		format = "json"
	}
	data, err := openapi.Encode(doc, format)
	if err != nil {
		return err
	}
	if p.Out == "" {
		_, err = env.Out.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.Out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(p.Out, data, 0o644); err != nil {
		return err
	}
	env.Logger.Info().Str("path", p.Out).Int("paths", doc.Paths.Len()).Msg("wrote openapi document")
	return nil
}

func printJSON(env *Env, v any) error {
	enc := json.NewEncoder(env.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
