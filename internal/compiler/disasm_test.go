package compiler_test

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"thorn/internal/compiler"
	thornerrors "thorn/internal/errors"
	"thorn/internal/lexer"
	"thorn/internal/parser"
)

func parse(t *testing.T, src string) []parser.Stmt {
	t.Helper()
	scan := lexer.NewScanner(src)
	tokens := scan.ScanTokens()
	require.False(t, scan.Diagnostics().HasErrors(), "lex errors: %s", scan.Diagnostics().Report())

	diags := &thornerrors.Diagnostics{}
	p := parser.NewParserWithFile(tokens, "<test>", diags)
	stmts := p.Parse()
	require.False(t, diags.HasErrors(), "parse errors: %s", diags.Report())
	return stmts
}

// TestDisassembleSnapshots exercises the --disassemble config knob (spec
// §6) over programs that hit the compiler's superinstruction and upvalue
// paths, snapshotted with go-snaps the way the teacher pack golden-tests
// disassembler/formatter output.
func TestDisassembleSnapshots(t *testing.T) {
	cases := map[string]string{
		"inc_local_superinstruction": `$ count(n) {
	i = 0;
	while (i < n) {
		i = i + 1;
	}
	return i;
}
print(count(5));`,
		"closure_upvalue": `$ mk() {
	c = 0;
	return $() => {
		c = c + 1;
		return c;
	};
}
f = mk();
print(f() + "," + f());`,
		"class_and_match": `class Box {
	$ init(v) {
		this.v = v;
	}
	$ get() {
		return this.v;
	}
}
b = Box(7);
print(match (b.get()) {
	0 => "zero",
	n => n,
});`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			stmts := parse(t, src)
			prog, err := compiler.Compile(stmts, "<test>")
			require.Nil(t, err, "compile error: %v", err)

			var buf strings.Builder
			compiler.Disassemble(&buf, prog)
			snaps.MatchSnapshot(t, buf.String())
		})
	}
}
