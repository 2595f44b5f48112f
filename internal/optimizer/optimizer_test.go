package optimizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	thornerrors "thorn/internal/errors"
	"thorn/internal/eval"
	"thorn/internal/lexer"
	"thorn/internal/native"
	"thorn/internal/optimizer"
	"thorn/internal/parser"
)

type captureBuf struct{ strings.Builder }

func (c *captureBuf) Print(s string) { c.WriteString(s) }

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

func runOptimized(t *testing.T, stmts []parser.Stmt, level optimizer.Level) string {
	t.Helper()
	optimized := optimizer.New(level).Run(stmts)

	var buf captureBuf
	diags := &thornerrors.Diagnostics{}
	reg := native.New(&buf)
	interp := eval.New("<test>", diags)
	reg.InstallInto(interp.Globals)

	err := interp.Interpret(optimized)
	require.Nil(t, err, "unexpected abort at level %d: %v", level, err)
	return buf.String()
}

// TestOptimizerSoundness checks spec §8 property 3: O0 output equals O1
// equals O2 equals O3 for programs with no native I/O or timing
// dependence. Each source here is chosen to exercise a specific pass
// (constant folding, branch simplification, CSE, LICM, strength
// reduction, loop unrolling, inlining, tail-call-to-loop) so a
// regression in any one pass's correctness shows up here rather than
// only in its own unit test.
func TestOptimizerSoundness(t *testing.T) {
	cases := map[string]string{
		"constant_folding": `print(1 + 2 * 3 - (4 / 2));`,
		"branch_simplification": `if (true) { print("a"); } else { print("b"); }
if (1 == 2) { print("c"); }`,
		"dead_code_after_return": `$ f() { return 1; print("unreachable"); }
print(f());`,
		"copy_and_dead_store": `x = 1;
y = x;
y = 2;
print(y);`,
		"cse_pure_subexpr": `a = 3;
b = 4;
print((a*a + b*b) + (a*a + b*b));`,
		"loop_invariant": `n = 5;
total = 0;
i = 0;
while (i < 3) {
	total = total + (n * 2);
	i = i + 1;
}
print(total);`,
		"strength_reduction_mul": `total = 0;
for (i in [1,2,3,4]) {
	total = total + i ** 2;
}
print(total);`,
		"small_unrollable_loop": `total = 0;
for (i in [1,2,3]) {
	total = total + i;
}
print(total);`,
		"inlinable_function": `$ square(x) { return x * x; }
print(square(3) + square(4));`,
		"tail_recursive_sum": `$ sum(n, acc) {
	if (n == 0) { return acc; }
	return sum(n-1, acc+n);
}
print(sum(100, 0));`,
		"overload_and_match": `$ g(){return "0"} $ g(x){return "1:"+x}
print(match (g(5)) { "0" => "zero", s => s });`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			stmts := parse(t, src)
			o0 := runOptimized(t, stmts, optimizer.O0)
			for _, lvl := range []optimizer.Level{optimizer.O1, optimizer.O2, optimizer.O3} {
				out := runOptimized(t, parse(t, src), lvl)
				assert.Equal(t, o0, out, "level %d diverged from O0 for %s", lvl, name)
			}
		})
	}
}

// TestOptimizerIdempotence checks spec §8 property 5: running each level's
// pipeline a second time on its own output changes nothing further.
func TestOptimizerIdempotence(t *testing.T) {
	src := `$ square(x) { return x * x; }
total = 0;
for (i in [1,2,3]) {
	total = total + square(i) + square(i);
}
print(total);`

	for _, lvl := range []optimizer.Level{optimizer.O1, optimizer.O2, optimizer.O3} {
		once := optimizer.New(lvl).Run(parse(t, src))
		twice := optimizer.New(lvl).Run(once)

		var bufOnce, bufTwice captureBuf
		diags1, diags2 := &thornerrors.Diagnostics{}, &thornerrors.Diagnostics{}
		reg1, reg2 := native.New(&bufOnce), native.New(&bufTwice)
		interp1, interp2 := eval.New("<test>", diags1), eval.New("<test>", diags2)
		reg1.InstallInto(interp1.Globals)
		reg2.InstallInto(interp2.Globals)

		require.Nil(t, interp1.Interpret(once))
		require.Nil(t, interp2.Interpret(twice))
		assert.Equal(t, bufOnce.String(), bufTwice.String(), "level %d not idempotent", lvl)
	}
}
