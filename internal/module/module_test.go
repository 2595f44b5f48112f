package module_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	thornerrors "thorn/internal/errors"
	"thorn/internal/eval"
	"thorn/internal/lexer"
	"thorn/internal/module"
	"thorn/internal/native"
	"thorn/internal/parser"
	"thorn/internal/value"
)

type captureBuf struct{ strings.Builder }

func (c *captureBuf) Print(s string) { c.WriteString(s) }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runFile(t *testing.T, path string, loader *module.Loader) (string, *thornerrors.ThornError) {
	t.Helper()
	src, err := os.ReadFile(path)
	require.NoError(t, err)

	scan := lexer.NewScannerWithFile(string(src), path)
	tokens := scan.ScanTokens()
	require.False(t, scan.Diagnostics().HasErrors())

	diags := &thornerrors.Diagnostics{}
	p := parser.NewParserWithFile(tokens, path, diags)
	stmts := p.Parse()
	require.False(t, diags.HasErrors(), "parse errors: %s", diags.Report())

	var buf captureBuf
	reg := native.New(&buf)
	interp := eval.New(path, diags)
	reg.InstallInto(interp.Globals)
	interp.Importer = loader

	rtErr := interp.Interpret(stmts)
	return buf.String(), rtErr
}

// TestImportRelativeToImportingFile checks spec §6's first resolution
// rule: a module path resolves relative to the importing file's own
// directory before any stdlib or THORN_PATH search.
func TestImportRelativeToImportingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.thorn", `export $ double(x) { return x * 2; }`)
	main := writeFile(t, dir, "main.thorn", `import { double } from "util";
print(double(21));`)

	loader := module.New("", nil)
	out, err := runFile(t, main, loader)
	require.Nil(t, err)
	assert.Equal(t, "42\n", out)
}

// TestImportNonExportedNameFails checks that a non-exported top-level
// declaration is not visible to an importer.
func TestImportNonExportedNameFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.thorn", `$ hidden() { return 1; }
export $ visible() { return 2; }`)
	main := writeFile(t, dir, "main.thorn", `import { hidden } from "util";
print(hidden());`)

	loader := module.New("", nil)
	_, err := runFile(t, main, loader)
	require.NotNil(t, err)
}

// TestImportCycleDetected checks spec §6: a cycle in the import graph
// aborts with ImportError rather than recursing forever.
func TestImportCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.thorn", `import { b } from "b";
export $ a() { return b(); }`)
	writeFile(t, dir, "b.thorn", `import { a } from "a";
export $ b() { return a(); }`)
	main := writeFile(t, dir, "main.thorn", `import { a } from "a";
print(a());`)

	loader := module.New("", nil)
	_, err := runFile(t, main, loader)
	require.NotNil(t, err)
	assert.Equal(t, thornerrors.ImportError, err.Kind)
}

// TestImportCachedByCanonicalPath checks that a module imported twice
// (directly and transitively) is loaded and executed only once: a
// top-level side effect in the shared module must appear a single time.
func TestImportCachedByCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.thorn", `print("loaded shared");
export $ value() { return 1; }`)
	writeFile(t, dir, "mid.thorn", `import { value } from "shared";
export $ relay() { return value(); }`)
	main := writeFile(t, dir, "main.thorn", `import { value } from "shared";
import { relay } from "mid";
print(value() + relay());`)

	loader := module.New("", nil)
	out, err := runFile(t, main, loader)
	require.Nil(t, err)
	assert.Equal(t, "loaded shared\n2\n", out)
}

// TestImportMissingModule checks spec §7: an unresolved import path
// aborts with ImportError.
func TestImportMissingModule(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.thorn", `import { x } from "does_not_exist";
print(x);`)

	loader := module.New("", nil)
	_, err := runFile(t, main, loader)
	require.NotNil(t, err)
	assert.Equal(t, thornerrors.ImportError, err.Kind)
}

func TestExportNamesSorted(t *testing.T) {
	names := module.ExportNames(nil)
	assert.Empty(t, names)

	names = module.ExportNames(map[string]value.Value{"b": value.Null{}, "a": value.Null{}})
	assert.Equal(t, []string{"a", "b"}, names)
}
