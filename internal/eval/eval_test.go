package eval_test

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

// run lexes, parses, and tree-evaluates src, returning everything printed
// and any aborting error. Parse errors fail the test immediately since
// they indicate a broken fixture, not the behavior under test.
func run(t *testing.T, src string) (string, *thornerrors.ThornError) {
	t.Helper()
	scan := lexer.NewScanner(src)
	tokens := scan.ScanTokens()
	require.False(t, scan.Diagnostics().HasErrors(), "lex errors: %s", scan.Diagnostics().Report())

	diags := &thornerrors.Diagnostics{}
	p := parser.NewParserWithFile(tokens, "<test>", diags)
	stmts := p.Parse()
	require.False(t, diags.HasErrors(), "parse errors: %s", diags.Report())

	var buf captureBuf
	reg := native.New(&buf)
	interp := eval.New("<test>", diags)
	reg.InstallInto(interp.Globals)

	err := interp.Interpret(stmts)
	return buf.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, `print(1 + 2 * 3)`)
	require.Nil(t, err)
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print("a" + "b")`)
	require.Nil(t, err)
	assert.Equal(t, "ab\n", out)
}

func TestVarAndMutation(t *testing.T) {
	out, err := run(t, `
x = 1
x = x + 1
print(x)
`)
	require.Nil(t, err)
	assert.Equal(t, "2\n", out)
}

func TestImmutableAssignmentIsAssignError(t *testing.T) {
	_, err := run(t, `
@immut x = 1
x = 2
`)
	require.NotNil(t, err)
	assert.Equal(t, thornerrors.AssignError, err.Kind)
}

func TestUndefinedVariableIsResolveError(t *testing.T) {
	_, err := run(t, `print(nope)`)
	require.NotNil(t, err)
	assert.Equal(t, thornerrors.ResolveError, err.Kind)
}

func TestIfElse(t *testing.T) {
	out, err := run(t, `
if (1 < 2) {
  print("yes")
} else {
  print("no")
}
`)
	require.Nil(t, err)
	assert.Equal(t, "yes\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `
i = 0
while (i < 3) {
  print(i)
  i = i + 1
}
`)
	require.Nil(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestForInOverList(t *testing.T) {
	out, err := run(t, `
for (x in [1, 2, 3]) {
  print(x)
}
`)
	require.Nil(t, err)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestBreakAndContinue(t *testing.T) {
	out, err := run(t, `
i = 0
while (i < 5) {
  i = i + 1
  if (i == 2) { continue }
  if (i == 4) { break }
  print(i)
}
`)
	require.Nil(t, err)
	assert.Equal(t, "1\n3\n", out)
}

func TestFunctionDeclarationAndCall(t *testing.T) {
	out, err := run(t, `
$ add(a, b) { return a + b }
print(add(2, 3))
`)
	require.Nil(t, err)
	assert.Equal(t, "5\n", out)
}

func TestOverloadDispatchByArity(t *testing.T) {
	out, err := run(t, `
$ greet(name) { print("hi " + name) }
$ greet(name, greeting) { print(greeting + " " + name) }
greet("Ann")
greet("Bo", "hey")
`)
	require.Nil(t, err)
	assert.Equal(t, "hi Ann\nhey Bo\n", out)
}

func TestClassesAndMethods(t *testing.T) {
	out, err := run(t, `
class Counter {
  $ init(start) {
    count = start
  }
  $ incr() {
    this.count = this.count + 1
    return this.count
  }
}
c = Counter(10)
print(c.incr())
print(c.incr())
`)
	require.Nil(t, err)
	assert.Equal(t, "11\n12\n", out)
}

func TestClosureCapturesMutableLocal(t *testing.T) {
	out, err := run(t, `
$ makeCounter() {
  n = 0
  $ next() {
    n = n + 1
    return n
  }
  return next
}
counter = makeCounter()
print(counter())
print(counter())
`)
	require.Nil(t, err)
	assert.Equal(t, "1\n2\n", out)
}

func TestTryCatchFinally(t *testing.T) {
	out, err := run(t, `
try {
  print("try")
  x = [1][5]
  print("unreachable")
} catch (e) {
  print("caught")
} finally {
  print("finally")
}
`)
	require.Nil(t, err)
	assert.Equal(t, "try\ncaught\nfinally\n", out)
}

func TestListIndexOutOfBoundsIsBoundsError(t *testing.T) {
	_, err := run(t, `x = [1, 2][10]`)
	require.NotNil(t, err)
	assert.Equal(t, thornerrors.BoundsError, err.Kind)
}

func TestMatchExpressionLiteralAndGuard(t *testing.T) {
	out, err := run(t, `
$ describe(n) {
  return match (n) {
    0 => "zero",
    x if (x < 0) => "negative",
    x => "positive"
  }
}
print(describe(0))
print(describe(-3))
print(describe(5))
`)
	require.Nil(t, err)
	assert.Equal(t, "zero\nnegative\npositive\n", out)
}

func TestDictLiteralAndIndex(t *testing.T) {
	out, err := run(t, `
d = {"a": 1, "b": 2}
print(d["a"])
print(d["missing"])
`)
	require.Nil(t, err)
	assert.Equal(t, "1\nnull\n", out)
}

func TestResultOkAndError(t *testing.T) {
	out, err := run(t, `
r = Ok(42)
print(r)
e = Error("bad")
print(e)
`)
	require.Nil(t, err)
	assert.Equal(t, "Ok(42)\nError(\"bad\")\n", out)
}

func TestLambdaExpression(t *testing.T) {
	out, err := run(t, `
double = $(x) => x * 2
print(double(21))
`)
	require.Nil(t, err)
	assert.Equal(t, "42\n", out)
}

func TestNullCoalescing(t *testing.T) {
	out, err := run(t, `
d = {}
print(d["missing"] ?? "default")
`)
	require.Nil(t, err)
	assert.Equal(t, "default\n", out)
}
