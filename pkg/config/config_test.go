package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blimu-dev/webapi/pkg/apierr"
)

const inventoryJSON = `{
	"variables": {"host": "https://api.example.com"},
	"classes": {
		"Inventory": {
			"fields": {"format": "json"},
			"arguments": ["key"],
			"methods": {
				"get_items": {
					"url": "https://api.example.com/items",
					"arguments": ["app_id"],
					"data": {"key": "@key", "appid": "@app_id", "limit": 50},
					"refresh_method": "refresh_items"
				},
				"get_schema": {"url": "https://api.example.com/schema"},
				"get_items": {"url": "https://api.example.com/other"}
			}
		}
	}
}`

const inventoryYAML = `
variables:
  host: https://api.example.com
classes:
  Inventory:
    arguments: [key]
    methods:
      get_items:
        url: https://api.example.com/items
        verb: get
        arguments: [app_id]
        data:
          key: "@key"
          appid: "@app_id"
        refresh_method: refresh_items
      get_schema:
        url: $host
  Market:
    methods:
      prices:
        url: https://api.example.com/prices
`

func TestParseJSONKeepsOrderAndDuplicates(t *testing.T) {
	doc, err := Parse([]byte(inventoryJSON), ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cls, ok := doc.Classes.Get("Inventory")
	if !ok {
		t.Fatal("Inventory not found")
	}
	got := cls.Methods.Names()
	want := []string{"get_items", "get_schema", "get_items"}
	if len(got) != len(want) {
		t.Fatalf("method names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("method names = %v, want %v", got, want)
		}
	}
	m, _ := cls.Methods.Get("get_items")
	if m.RefreshMethod != "refresh_items" {
		t.Errorf("RefreshMethod = %q", m.RefreshMethod)
	}
	if n, ok := m.Data["limit"].(json.Number); !ok || n.String() != "50" {
		t.Errorf("limit = %#v, want json.Number 50", m.Data["limit"])
	}
}

func TestParseYAML(t *testing.T) {
	doc, err := Parse([]byte(inventoryYAML), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if names := doc.Classes.Names(); len(names) != 2 || names[0] != "Inventory" || names[1] != "Market" {
		t.Fatalf("class names = %v", names)
	}
	cls, _ := doc.Classes.Get("Inventory")
	if len(cls.Arguments) != 1 || cls.Arguments[0] != "key" {
		t.Errorf("Arguments = %v", cls.Arguments)
	}
	m, _ := cls.Methods.Get("get_items")
	if m.Verb != "get" {
		t.Errorf("Verb = %q", m.Verb)
	}
	if m.Data["appid"] != "@app_id" {
		t.Errorf("appid token = %v", m.Data["appid"])
	}
	if doc.Variables["host"] != "https://api.example.com" {
		t.Errorf("host = %v", doc.Variables["host"])
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"broken json", `{"classes": {`, ".json"},
		{"classes not a mapping", "classes: [a, b]", ".yaml"},
		{"methods not an object", `{"classes": {"A": {"methods": []}}}`, ".json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.ext)
			if !apierr.IsSchema(err) {
				t.Fatalf("expected schema error, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.json")
	if err := os.WriteFile(path, []byte(inventoryJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Classes) != 1 {
		t.Errorf("classes = %d, want 1", len(doc.Classes))
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", s.Timeout)
	}
	if !s.FailOnStatus {
		t.Error("FailOnStatus should default to true")
	}
	if s.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q", s.Cache.Backend)
	}
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := `
timeout: 5s
strict_arguments: true
cache:
  backend: redis
  redis:
    addr: cache:6379
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WEBAPI_LOG_LEVEL", "debug")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", s.Timeout)
	}
	if !s.StrictArguments {
		t.Error("StrictArguments = false")
	}
	if s.Cache.Backend != "redis" || s.Cache.Redis.Addr != "cache:6379" {
		t.Errorf("Cache = %+v", s.Cache)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from env", s.LogLevel)
	}
}

func TestLoadSettingsRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  backend: disk\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatal("expected error")
	}
}
