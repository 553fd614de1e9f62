package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strtpl/internal/compiler"
)

func TestCompileValidCatalog(t *testing.T) {
	dir := writeFiles(t, map[string]string{"sites.cue": validCatalog})

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 site(s) into 2 linkage(s)")
	assert.Contains(t, out, "count: 1 slot(s) [int]")
	assert.Contains(t, out, "greet: 1 slot(s) [any]")
}

func TestCompileValidCatalogJSON(t *testing.T) {
	dir := writeFiles(t, map[string]string{"sites.cue": validCatalog})

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(2), data["linkages"])

	sites, ok := data["sites"].([]any)
	require.True(t, ok)
	require.Len(t, sites, 2)

	first := sites[0].(map[string]any)
	assert.Equal(t, "count", first["name"])
	assert.Equal(t, `\{n} items`, first["source"])
	assert.Equal(t, []any{"int"}, first["types"])
	assert.Equal(t, []any{"n"}, first["expressions"])
	assert.NotEmpty(t, first["linkage_id"])
	assert.NotEmpty(t, first["site_key"])
}

func TestCompileMultipleFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.cue": "package test\n\nsite: a: source: \"A \\\\{x}\"\n",
		"b.cue": "package test\n\nsite: b: { source: \"B \\\\{x}\", types: [\"bool\"] }\n",
	})

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 2 site(s)")
}

func TestCompileOutputFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"sites.cue": validCatalog})
	outFile := filepath.Join(t.TempDir(), "sites.json")

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote compiled sites to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Sites, 2)
	assert.Equal(t, "greet", result.Sites[1].Name)
	assert.Equal(t, []string{"any"}, result.Sites[1].Types)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		code    string
	}{
		{
			name:    "duplicate linkage",
			catalog: "package test\n\nsite: a: source: \"x \\\\{v}\"\nsite: b: source: \"x \\\\{w}\"\n",
			code:    compiler.ErrDuplicateSite,
		},
		{
			name:    "unknown type",
			catalog: "package test\n\nsite: a: { source: \"\\\\{v}\", types: [\"decimal\"] }\n",
			code:    ErrCodeTypes,
		},
		{
			name:    "type count",
			catalog: "package test\n\nsite: a: { source: \"\\\\{v}\", types: [\"int\", \"int\"] }\n",
			code:    ErrCodeTypes,
		},
		{
			name:    "missing source",
			catalog: "package test\n\nsite: a: types: []\n",
			code:    ErrCodeSource,
		},
		{
			name:    "unterminated embedding",
			catalog: "package test\n\nsite: a: source: \"\\\\{v\"\n",
			code:    ErrCodeSource,
		},
		{
			name:    "invalid site name",
			catalog: "package test\n\nsite: \"1st\": source: \"x\"\n",
			code:    compiler.ErrInvalidSiteName,
		},
		{
			name:    "invalid expression",
			catalog: "package test\n\nsite: a: source: \"\\\\{a + b}\"\n",
			code:    compiler.ErrInvalidExpression,
		},
		{
			name:    "no site struct",
			catalog: "package test\n\nother: 1\n",
			code:    ErrCodeNoSites,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"sites.cue": tt.catalog})

			out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), dir)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp, _ := decodeResponse(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code, resp.Error.Message)
		})
	}
}

func TestCompileCollectsAllErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{"sites.cue": `
package test

site: a: { source: "\\{v}", types: ["decimal"] }
site: b: source: "\\{v"
site: c: source: "fine"
`})

	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, ErrCodeTypes)
	assert.Contains(t, out, ErrCodeSource)
	assert.Contains(t, err.Error(), "2 error(s)")
}

func TestCompileLoadErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), "/nonexistent/catalog")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, ErrCodeNotFound)
	})

	t.Run("no cue files", func(t *testing.T) {
		out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), t.TempDir())
		require.Error(t, err)
		assert.Contains(t, out, ErrCodeNoFiles)
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"bad.cue": "package test\n\nsite: {\n"})
		_, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), dir)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("file instead of directory", func(t *testing.T) {
		dir := writeFiles(t, map[string]string{"sites.cue": validCatalog})
		out, err := execute(t, NewCompileCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "sites.cue"))
		require.Error(t, err)
		assert.Contains(t, out, "not a directory")
	})
}

func TestCompileRespectsMaxSlots(t *testing.T) {
	dir := writeFiles(t, map[string]string{"sites.cue": `
package test

site: pair: source: "\\{a} \\{b}"
`})

	opts := &RootOptions{Format: "json", Config: withMaxSlots(1)}
	out, err := execute(t, NewCompileCommand(opts), dir)
	require.Error(t, err)

	resp, _ := decodeResponse(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSiteValue, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "too many embedded values")
}
