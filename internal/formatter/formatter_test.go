package formatter_test

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	thornerrors "thorn/internal/errors"
	"thorn/internal/formatter"
	"thorn/internal/lexer"
	"thorn/internal/parser"
)

// parse lexes and parses src, failing the test on any diagnostic since a
// broken fixture isn't what these tests are exercising.
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

// TestFormatSnapshots exercises spec §8 property 4 (format/re-parse round
// trip) over a representative slice of the grammar: classes, lambdas,
// match, slices, imports, type aliases. Snapshotted with go-snaps rather
// than inlined expected strings, matching the teacher pack's own
// golden-output convention for multi-line renderer output.
func TestFormatSnapshots(t *testing.T) {
	cases := map[string]string{
		"fib": `$ fib(n) {
	if (n <= 1) return n;
	return fib(n-1) + fib(n-2);
}
print(fib(10));`,
		"class_and_match": `class Counter {
	$ init(start) {
		this.n = start;
	}
	$ bump() {
		this.n = this.n + 1;
		return this.n;
	}
}
c = Counter(0);
print(match (c.bump()) {
	0 => "zero",
	n => "n:" + n,
});`,
		"lambda_and_slice": `mk = $(x) => { return x * 2; };
a = [1, 2, 3, 4, 5];
print(a[-2:]);
print(mk(a[0]));`,
		"import_export_alias": `import { helper as h } from "util";
export $ wrapped(x) {
	return h(x);
}
% Pair = Dict[string, number];`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			stmts := parse(t, src)
			out := formatter.Format(stmts)

			reparsed := parse(t, out)
			require.Len(t, reparsed, len(stmts), "re-parse produced a different statement count")

			snaps.MatchSnapshot(t, out)
		})
	}
}

// TestFormatMatchNestedInCall guards the formatter bug where VisitMatch
// once wrote its closing-brace indent straight to the shared output
// buffer instead of its local builder, corrupting any match expression
// nested inside another expression (e.g. passed as a call argument).
func TestFormatMatchNestedInCall(t *testing.T) {
	src := `print(match (x) {
	1 => "one",
	_ => "other",
});`
	stmts := parse(t, src)
	out := formatter.Format(stmts)
	snaps.MatchSnapshot(t, out)

	reparsed := parse(t, out)
	require.Len(t, reparsed, 1)
}
