package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strtpl/internal/ir"
)

func TestCompileSource(t *testing.T) {
	spec, err := CompileSource("greet", `Hello \{name}, you are \{age}`, []string{"string", "int"})
	require.NoError(t, err)

	assert.Equal(t, "greet", spec.Name)
	assert.Equal(t, []string{"Hello ", ", you are ", ""}, spec.Fragments)
	assert.Equal(t, []string{"name", "age"}, spec.Expressions)
	assert.Equal(t, ir.Signature{ir.TypeString, ir.TypeInt}, spec.Types)
}

func TestCompileSourceDefaultsToAny(t *testing.T) {
	spec, err := CompileSource("p", `\{a}\{b}`, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Signature{ir.TypeAny, ir.TypeAny}, spec.Types)
}

func TestCompileSourceErrors(t *testing.T) {
	_, err := CompileSource("p", `\{a`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")

	_, err = CompileSource("p", `\{a}`, []string{"int", "int"})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "types", ce.Field)

	_, err = CompileSource("p", `\{a}`, []string{"decimal"})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "types", ce.Field)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
site: sum: {
	source: "\\{x} + \\{y}"
	types: ["int", "int"]
}
site: greet: source: "hi \\{who}"
`), 0o644))

	specs, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "greet", specs[0].Name)
	assert.Equal(t, "sum", specs[1].Name)
	assert.Equal(t, []string{"", " + ", ""}, specs[1].Fragments)
}

func TestLoadCatalogFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalogFile(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.cue")
	require.NoError(t, os.WriteFile(empty, []byte(`other: 1`), 0o644))
	_, err = LoadCatalogFile(empty)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "site", ce.Field)

	broken := filepath.Join(dir, "broken.cue")
	require.NoError(t, os.WriteFile(broken, []byte(`site: {`), 0o644))
	_, err = LoadCatalogFile(broken)
	assert.Error(t, err)
}
