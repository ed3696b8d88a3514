// Package webapi builds HTTP API clients from a declarative schema.
//
// A schema names classes, their constructor arguments and their methods. Each
// method describes one request: a URL, a verb, query data and headers whose
// values are literals, $name static references or @name argument references.
// Compiling the schema yields client classes; constructing a class binds its
// arguments, and calling a method binds the rest and decodes the JSON reply.
//
// Quick Start:
//
//	api, err := webapi.Load("./steam.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	inv, err := api.New("Inventory", client.Args{"key": "ABC"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	items, err := inv.Call(ctx, "get_items", client.Args{"app_id": 440})
//
// Methods that declare a refresh_method are cached per instance, keyed by their
// call arguments; calling the refresh method fetches again and overwrites the
// entry.
package webapi

import (
	"github.com/rs/zerolog"

	"github.com/blimu-dev/webapi/pkg/client"
	"github.com/blimu-dev/webapi/pkg/compiler"
	"github.com/blimu-dev/webapi/pkg/config"
	"github.com/blimu-dev/webapi/pkg/ir"
)

// Option configures Load, Parse and Validate.
type Option func(*options)

type options struct {
	compiler []compiler.Option
	client   []client.Option
}

// WithStrictArguments rejects schemas that reference an argument neither the
// method nor its class declares.
func WithStrictArguments() Option {
	return func(o *options) { o.compiler = append(o.compiler, compiler.WithStrictArguments()) }
}

// WithLogger sets the logger of the compiler and of the built clients.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.compiler = append(o.compiler, compiler.WithLogger(l))
		o.client = append(o.client, client.WithLogger(l))
	}
}

// WithClientOptions passes options to the built API, e.g. a transport or a
// cache backend.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) { o.client = append(o.client, opts...) }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load reads and compiles the schema file at path.
//
// Example:
//
//	api, err := webapi.Load("./steam.yaml",
//		webapi.WithStrictArguments(),
//		webapi.WithClientOptions(client.WithCache(cache.MemoryFactory())),
//	)
func Load(path string, opts ...Option) (*client.API, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return Compile(doc, opts...)
}

// Parse compiles a schema held in memory. ext is the file extension the data
// would have on disk (".json", ".yaml"); it only guides format detection.
func Parse(data []byte, ext string, opts ...Option) (*client.API, error) {
	doc, err := config.Parse(data, ext)
	if err != nil {
		return nil, err
	}
	return Compile(doc, opts...)
}

// Compile compiles a decoded schema document.
func Compile(doc *config.Document, opts ...Option) (*client.API, error) {
	o := collect(opts)
	desc, err := compiler.Compile(doc, o.compiler...)
	if err != nil {
		return nil, err
	}
	return client.NewAPI(desc, o.client...), nil
}

// Validate loads and compiles the schema at path without building clients.
// This is useful for checking a schema in CI.
//
// Example:
//
//	if _, err := webapi.Validate("./steam.json"); err != nil {
//		log.Fatalf("invalid schema: %v", err)
//	}
func Validate(path string, opts ...Option) (*ir.API, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(doc, collect(opts).compiler...)
}
