package openapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/blimu-dev/webapi/pkg/apierr"
	"github.com/blimu-dev/webapi/pkg/compiler"
	"github.com/blimu-dev/webapi/pkg/config"
	"github.com/blimu-dev/webapi/pkg/ir"
)

const schema = `{
	"classes": {
		"Inventory": {
			"arguments": ["key"],
			"methods": {
				"get_items": {
					"url": "https://api.example.com/items?format=json",
					"arguments": ["app_id"],
					"data": {"key": "@key", "appid": "@app_id", "limit": 50},
					"headers": {"Accept": "application/json"},
					"refresh_method": "refresh_items"
				},
				"get_schema": {"url": "https://api.example.com/schema", "verb": "post"}
			}
		}
	}
}`

func compile(t *testing.T, src string) *ir.API {
	t.Helper()
	doc, err := config.Parse([]byte(src), ".json")
	require.NoError(t, err)
	api, err := compiler.Compile(doc)
	require.NoError(t, err)
	return api
}

func param(op *openapi3.Operation, in, name string) *openapi3.Parameter {
	for _, p := range op.Parameters {
		if p.Value.In == in && p.Value.Name == name {
			return p.Value
		}
	}
	return nil
}

func TestExport(t *testing.T) {
	doc, err := Export(context.Background(), compile(t, schema), Info{Title: "Inventory"})
	require.NoError(t, err)
	assert.Equal(t, "Inventory", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)

	item := doc.Paths.Value("/items")
	require.NotNil(t, item)
	op := item.Get
	require.NotNil(t, op)
	assert.Equal(t, "inventoryGetItems", op.OperationID)
	assert.Equal(t, []string{"Inventory"}, op.Tags)
	assert.Equal(t, "refresh_items", op.Extensions[ExtRefresh])
	require.NotNil(t, op.Servers)
	assert.Equal(t, "https://api.example.com", (*op.Servers)[0].URL)

	key := param(op, "query", "key")
	require.NotNil(t, key)
	assert.True(t, key.Required)
	assert.Equal(t, "construction", key.Extensions[ExtScope])

	appid := param(op, "query", "appid")
	require.NotNil(t, appid)
	assert.Equal(t, "call", appid.Extensions[ExtScope])
	assert.Equal(t, "app_id", appid.Extensions[ExtArgument])

	limit := param(op, "query", "limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.Schema.Value.Default)

	assert.NotNil(t, param(op, "query", "format"), "query of the url is exported")
	assert.NotNil(t, param(op, "header", "Accept"))

	post := doc.Paths.Value("/schema").Post
	require.NotNil(t, post)
	assert.Empty(t, post.Parameters)
	assert.Nil(t, post.Extensions[ExtRefresh])
}

func TestExportSharedPathOnDifferentHosts(t *testing.T) {
	api := compile(t, `{"classes": {"A": {"methods": {
		"one": {"url": "https://x.test/same"},
		"two": {"url": "https://y.test/same"}}}}}`)
	doc, err := Export(context.Background(), api, Info{})
	require.NoError(t, err)

	one := doc.Paths.Value("/same").Get
	require.NotNil(t, one)
	assert.Equal(t, "aOne", one.OperationID)
	assert.Equal(t, "https://x.test", (*one.Servers)[0].URL)
	assert.Nil(t, one.Extensions[ExtPath])

	two := doc.Paths.Value("/same#aTwo").Get
	require.NotNil(t, two)
	assert.Equal(t, "https://y.test", (*two.Servers)[0].URL)
	assert.Equal(t, "/same", two.Extensions[ExtPath])
}

func TestExportSharedEndpointAcrossClasses(t *testing.T) {
	api := compile(t, `{"classes": {
		"A": {"methods": {"m": {"url": "https://x.test/a", "data": {"k": "1"}}}},
		"B": {"arguments": ["k"], "methods": {"m": {"url": "https://x.test/a", "data": {"k": "@k"}}}}}}`)
	doc, err := Export(context.Background(), api, Info{})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Paths.Len())

	a := doc.Paths.Value("/a").Get
	require.NotNil(t, a)
	assert.Equal(t, "aM", a.OperationID)

	b := doc.Paths.Value("/a#bM").Get
	require.NotNil(t, b)
	assert.Equal(t, []string{"B"}, b.Tags)
	assert.Equal(t, "/a", b.Extensions[ExtPath])
	assert.Equal(t, "k", param(b, "query", "k").Extensions[ExtArgument])

	_, err = Encode(doc, "yaml")
	require.NoError(t, err)
}

func TestExportRejectsOperationIDCollision(t *testing.T) {
	api := compile(t, `{"classes": {"A": {"methods": {
		"get_items": {"url": "https://x.test/one"},
		"getItems": {"url": "https://x.test/two"}}}}}`)
	_, err := Export(context.Background(), api, Info{})
	assert.True(t, apierr.IsSchema(err), "got %v", err)
}

func TestEncodeAndLoad(t *testing.T) {
	ctx := context.Background()
	doc, err := Export(ctx, compile(t, schema), Info{})
	require.NoError(t, err)

	dir := t.TempDir()
	for _, format := range []string{"json", "yaml"} {
		data, err := Encode(doc, format)
		require.NoError(t, err)

		path := filepath.Join(dir, "api."+format)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		loaded, err := Load(ctx, path)
		require.NoError(t, err, format)
		assert.Equal(t, "inventoryGetItems", loaded.Paths.Value("/items").Get.OperationID)
	}

	data, err := Encode(doc, "yaml")
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "3.0.3", raw["openapi"])

	_, err = Encode(doc, "toml")
	assert.Error(t, err)
}
