package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cli "github.com/blimu-dev/webapi/internal/cli"
)

func main() {
	var settingsPath string

	root := &cobra.Command{
		Use:           "webapi",
		Short:         "Compile API schemas into clients and call them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to webapi.yaml settings (default ./webapi.yaml)")

	env := func() (*cli.Env, error) {
		return cli.NewEnv(settingsPath, os.Stdin, os.Stdout, os.Stderr)
	}

	root.AddCommand(newValidateCmd(env))
	root.AddCommand(newDescribeCmd(env))
	root.AddCommand(newCallCmd(env))
	root.AddCommand(newOpenAPICmd(env))
	root.AddCommand(newShellCmd(env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Println(err)
		stop()
		os.Exit(1)
	}
}

type envFunc func() (*cli.Env, error)

func newValidateCmd(env envFunc) *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile a schema and report schema errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env()
			if err != nil {
				return err
			}
			return cli.RunValidate(e, schema)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "Schema file (json/yaml)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newDescribeCmd(env envFunc) *cobra.Command {
	var schema string
	var format string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "List classes, methods and argument bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env()
			if err != nil {
				return err
			}
			return cli.RunDescribe(e, schema, format)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "Schema file (json/yaml)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text or yaml)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newCallCmd(env envFunc) *cobra.Command {
	var p cli.RunCallParams
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Construct an instance, call one method and print the JSON result",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env()
			if err != nil {
				return err
			}
			return cli.RunCall(cmd.Context(), e, p)
		},
	}
	cmd.Flags().StringVar(&p.Schema, "schema", "", "Schema file (json/yaml)")
	cmd.Flags().StringVar(&p.Class, "class", "", "Class to construct")
	cmd.Flags().StringArrayVar(&p.Args, "arg", nil, "Constructor argument as name=value (repeatable)")
	cmd.Flags().StringVar(&p.Method, "method", "", "Method to call")
	cmd.Flags().StringArrayVar(&p.Params, "param", nil, "Call argument as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func newOpenAPICmd(env envFunc) *cobra.Command {
	var p cli.RunOpenAPIParams
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Export the compiled schema as an OpenAPI 3 document",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env()
			if err != nil {
				return err
			}
			return cli.RunOpenAPI(cmd.Context(), e, p)
		},
	}
	cmd.Flags().StringVar(&p.Schema, "schema", "", "Schema file (json/yaml)")
	cmd.Flags().StringVar(&p.Out, "out", "", "Output file; .json writes JSON, anything else YAML (default stdout)")
	cmd.Flags().StringVar(&p.Title, "title", "", "Document title (default schema file name)")
	cmd.Flags().StringVar(&p.Version, "version", "", "Document version")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newShellCmd(env envFunc) *cobra.Command {
	var schema string
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session over a schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env()
			if err != nil {
				return err
			}
			return cli.RunShell(cmd.Context(), e, schema, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "Schema file (json/yaml)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
