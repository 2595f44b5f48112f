package native_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	thornerrors "thorn/internal/errors"
	"thorn/internal/eval"
	"thorn/internal/lexer"
	"thorn/internal/native"
	"thorn/internal/parser"
)

type captureBuf struct{ strings.Builder }

func (c *captureBuf) Print(s string) { c.WriteString(s) }

func run(t *testing.T, src string) (string, *thornerrors.ThornError) {
	t.Helper()
	scan := lexer.NewScanner(src)
	tokens := scan.ScanTokens()
	require.False(t, scan.Diagnostics().HasErrors())

	diags := &thornerrors.Diagnostics{}
	p := parser.NewParserWithFile(tokens, "<test>", diags)
	stmts := p.Parse()
	require.False(t, diags.HasErrors())

	var buf captureBuf
	reg := native.New(&buf)
	interp := eval.New("<test>", diags)
	reg.InstallInto(interp.Globals)

	err := interp.Interpret(stmts)
	return buf.String(), err
}

func TestPrintJoinsArgsWithNoSeparator(t *testing.T) {
	out, err := run(t, `print(1, "-", 2);`)
	require.Nil(t, err)
	assert.Equal(t, "1-2\n", out)
}

func TestOkAndErrorConstructors(t *testing.T) {
	out, err := run(t, `print(Ok(5).is_ok());
print(Error("bad").is_error());
print(Ok(5).unwrap_or(0));
print(Error("bad").unwrap_or(0));`)
	require.Nil(t, err)
	assert.Equal(t, "true\ntrue\n5\n0\n", out)
}

func TestTypeof(t *testing.T) {
	out, err := run(t, `print(typeof(1));
print(typeof("s"));
print(typeof(null));
print(typeof([1,2]));`)
	require.Nil(t, err)
	assert.Equal(t, "number\nstring\nnull\nArray\n", out)
}

func TestHumanizeSamples(t *testing.T) {
	out, err := run(t, `print(humanize_bytes(1500));
print(humanize_ordinal(3));`)
	require.Nil(t, err)
	assert.Equal(t, "1.5 kB\n3rd\n", out)
}

func TestUUIDNativeProducesDistinctValues(t *testing.T) {
	out, err := run(t, `print(uuid() == uuid());`)
	require.Nil(t, err)
	assert.Equal(t, "false\n", out)
}

func TestRegistryNamesIncludesCoreNatives(t *testing.T) {
	reg := native.New(&captureBuf{})
	names := reg.Names()
	for _, want := range []string{"print", "Ok", "Error", "typeof"} {
		assert.Contains(t, names, want)
	}
}
