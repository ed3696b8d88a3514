package compiler

import (
	"testing"

	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/config"
	"github.com/blimu-dev/webapi/pkg/ir"
)

func inventoryDoc() *config.Document {
	return &config.Document{
		Variables: map[string]any{"host": "https://api.example.com", "version": 1},
		Classes: config.Ordered[config.ClassSchema]{
			{Name: "Inventory", Value: config.ClassSchema{
				Fields:    map[string]any{"format": "json"},
				Arguments: []string{"key", "app_id"},
				Methods: config.Ordered[config.MethodSchema]{
					{Name: "get_items", Value: config.MethodSchema{
						URL:       "https://api.example.com/items",
						Arguments: []string{"app_id"},
						Data: map[string]any{
							"key":     "@key",
							"appid":   "@app_id",
							"app":     "@app_id",
							"format":  "$format",
							"version": "$version",
							"limit":   50,
						},
						Headers:       map[string]any{"X-Key": "@key", "Accept": "application/json"},
						RefreshMethod: "refresh_items",
					}},
					{Name: "get_schema", Value: config.MethodSchema{
						URL:  "$host",
						Verb: "post",
					}},
				},
			}},
		},
	}
}

func TestCompileInventory(t *testing.T) {
	api, err := Compile(inventoryDoc())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cls, ok := api.Class("Inventory")
	if !ok {
		t.Fatal("Inventory not compiled")
	}
	m, ok := cls.Method("get_items")
	if !ok {
		t.Fatal("get_items not compiled")
	}
	if m.Verb != "GET" {
		t.Errorf("Verb = %q, want GET", m.Verb)
	}
	if !m.Cached() || m.RefreshName != "refresh_items" {
		t.Errorf("RefreshName = %q", m.RefreshName)
	}

	wantLiterals := map[string]string{"format": "json", "version": "1", "limit": "50"}
	for k, v := range wantLiterals {
		if m.DataLiterals[k] != v {
			t.Errorf("DataLiterals[%q] = %q, want %q", k, m.DataLiterals[k], v)
		}
	}

	// app_id is declared by both the class and the method: call time wins.
	if got := m.DataCallArgs["app_id"]; len(got) != 2 || got[0] != "app" || got[1] != "appid" {
		t.Errorf("DataCallArgs[app_id] = %v, want [app appid]", got)
	}
	if _, ok := m.DataConstructionArgs["app_id"]; ok {
		t.Error("app_id must not be bound at construction time")
	}
	if got := m.DataConstructionArgs["key"]; len(got) != 1 || got[0] != "key" {
		t.Errorf("DataConstructionArgs[key] = %v", got)
	}
	if got := m.HeaderConstructionArgs["key"]; len(got) != 1 || got[0] != "X-Key" {
		t.Errorf("HeaderConstructionArgs[key] = %v", got)
	}
	if m.HeaderLiterals["Accept"] != "application/json" {
		t.Errorf("HeaderLiterals = %v", m.HeaderLiterals)
	}

	schema, _ := cls.Method("get_schema")
	if schema.URL != "https://api.example.com" || schema.Verb != "POST" {
		t.Errorf("get_schema = %s %s", schema.Verb, schema.URL)
	}
	if schema.Cached() {
		t.Error("get_schema has no refresh method and must not be cached")
	}
}

func TestCompileRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Document)
	}{
		{"redeclared method", func(d *config.Document) {
			d.Classes[0].Value.Methods = append(d.Classes[0].Value.Methods,
				config.Entry[config.MethodSchema]{Name: "get_items", Value: config.MethodSchema{URL: "https://x"}})
		}},
		{"refresh collides with method", func(d *config.Document) {
			d.Classes[0].Value.Methods[1].Value.RefreshMethod = "get_items"
		}},
		{"refresh collides with refresh", func(d *config.Document) {
			d.Classes[0].Value.Methods[1].Value.RefreshMethod = "refresh_items"
		}},
		{"method collides with refresh", func(d *config.Document) {
			d.Classes[0].Value.Methods = append(d.Classes[0].Value.Methods,
				config.Entry[config.MethodSchema]{Name: "refresh_items", Value: config.MethodSchema{URL: "https://x"}})
		}},
		{"refresh named like its method", func(d *config.Document) {
			d.Classes[0].Value.Methods[1].Value.RefreshMethod = "get_schema"
		}},
		{"unresolved variable", func(d *config.Document) {
			d.Classes[0].Value.Methods[0].Value.Data["missing"] = "$nope"
		}},
		{"argument url", func(d *config.Document) {
			d.Classes[0].Value.Methods[1].Value.URL = "@key"
		}},
		{"missing url", func(d *config.Document) {
			d.Classes[0].Value.Methods[1].Value.URL = ""
		}},
		{"unknown verb", func(d *config.Document) {
			d.Classes[0].Value.Methods[1].Value.Verb = "fetch"
		}},
		{"empty reference", func(d *config.Document) {
			d.Classes[0].Value.Methods[0].Value.Headers["X-Empty"] = "@"
		}},
		{"nested literal", func(d *config.Document) {
			d.Classes[0].Value.Methods[0].Value.Data["nested"] = map[string]any{"a": 1}
		}},
		{"duplicate construction argument", func(d *config.Document) {
			d.Classes[0].Value.Arguments = []string{"key", "key"}
		}},
		{"duplicate call argument", func(d *config.Document) {
			d.Classes[0].Value.Methods[0].Value.Arguments = []string{"app_id", "app_id"}
		}},
		{"redeclared class", func(d *config.Document) {
			d.Classes = append(d.Classes, d.Classes[0])
		}},
		{"reserved class name", func(d *config.Document) {
			d.Classes = append(d.Classes, config.Entry[config.ClassSchema]{Name: "Classes"})
		}},
		{"class named after the descriptor accessor", func(d *config.Document) {
			d.Classes = append(d.Classes, config.Entry[config.ClassSchema]{Name: "descriptor"})
		}},
		{"headers differing only in case", func(d *config.Document) {
			d.Classes[0].Value.Methods[0].Value.Headers["x-key"] = "lit"
		}},
		{"malformed url", func(d *config.Document) {
			d.Classes[0].Value.Methods[1].Value.URL = "http://[::1"
		}},
		{"invalid variable", func(d *config.Document) {
			d.Variables["list"] = []any{1, 2}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := inventoryDoc()
			tt.mutate(doc)
			api, err := Compile(doc)
			if !apierr.IsSchema(err) {
				t.Fatalf("expected schema error, got %v", err)
			}
			if api != nil {
				t.Fatal("no API may be returned when compilation fails")
			}
		})
	}
}

func TestCompileUndeclaredConstructionArgument(t *testing.T) {
	doc := inventoryDoc()
	doc.Classes[0].Value.Methods[0].Value.Data["session"] = "@session"

	api, err := Compile(doc)
	if err != nil {
		t.Fatalf("permissive compile failed: %v", err)
	}
	m, _ := api.Classes[0].Method("get_items")
	if got := m.DataConstructionArgs["session"]; len(got) != 1 {
		t.Errorf("session should be bound at construction time, got %v", m.DataConstructionArgs)
	}

	if _, err := Compile(doc, WithStrictArguments()); !apierr.IsSchema(err) {
		t.Fatalf("strict compile: expected schema error, got %v", err)
	}
}

func TestCompileClass(t *testing.T) {
	doc := inventoryDoc()
	cls, err := New().CompileClass("Inventory", doc.Classes[0].Value, doc.Variables)
	if err != nil {
		t.Fatalf("CompileClass: %v", err)
	}
	if len(cls.Methods) != 2 || cls.Methods[0].Name != "get_items" || cls.Methods[1].Name != "get_schema" {
		t.Errorf("methods out of declaration order: %+v", cls.Methods)
	}
	if cls.Methods[0].Op() != "Inventory.get_items" {
		t.Errorf("Op() = %q", cls.Methods[0].Op())
	}
}

func TestResolve(t *testing.T) {
	fields := map[string]string{"format": "json", "shared": "field"}
	variables := map[string]string{"host": "h", "shared": "variable"}
	tests := []struct {
		raw     any
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"$format", "json", false},
		{"$host", "h", false},
		{"$shared", "variable", false},
		{"$missing", "", true},
		{"@key", "", true},
		{42, "42", false},
		{true, "true", false},
		{2.5, "2.5", false},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.raw, fields, variables)
		if (err != nil) != tt.wantErr {
			t.Errorf("Resolve(%v) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%v) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	args := []string{"app_id", "steam_id"}
	if Classify("app_id", args) != ir.CallTime {
		t.Error("app_id should be call time")
	}
	if Classify("key", args) != ir.ConstructionTime {
		t.Error("key should be construction time")
	}
	if Classify("key", nil) != ir.ConstructionTime {
		t.Error("key should be construction time without method arguments")
	}
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		raw  any
		kind TokenKind
		name string
	}{
		{"literal", Literal, ""},
		{"$var", Static, "var"},
		{"@arg", Argument, "arg"},
		{7, Literal, ""},
	}
	for _, tt := range tests {
		tok, err := ParseToken(tt.raw)
		if err != nil {
			t.Fatalf("ParseToken(%v): %v", tt.raw, err)
		}
		if tok.Kind != tt.kind || tok.Name != tt.name {
			t.Errorf("ParseToken(%v) = %+v", tt.raw, tok)
		}
	}
	if _, err := ParseToken("$"); err == nil {
		t.Error("expected error for empty static reference")
	}
}
