package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thorn/internal/lexer"
)

// parseString scans and parses input, returning the statements and any
// accumulated parse diagnostics (spec §4.2: errors accumulate rather than
// aborting the whole parse).
func parseString(input string) ([]Stmt, []*stmtError) {
	scanner := lexer.NewScanner(input)
	tokens := scanner.ScanTokens()
	p := NewParser(tokens)
	stmts := p.Parse()
	var errs []*stmtError
	for _, e := range p.Diagnostics().Errors() {
		errs = append(errs, &stmtError{e.Error()})
	}
	return stmts, errs
}

type stmtError struct{ msg string }

func assertParses(t *testing.T, input string) []Stmt {
	t.Helper()
	stmts, errs := parseString(input)
	require.Empty(t, errs, "expected no parse errors for %q", input)
	return stmts
}

func assertParseFails(t *testing.T, input string) {
	t.Helper()
	_, errs := parseString(input)
	assert.NotEmpty(t, errs, "expected a parse error for %q", input)
}

func TestVarDeclarations(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"plain binding", `x = 5`, true},
		{"immutable binding", `@immut PI = 3`, true},
		{"typed binding", `x: number = 5`, true},
		{"reassign existing", "x = 5\nx = 10", true},
		{"missing initializer", `x:`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestStringLiterals(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"simple string", `x = "hello"`, true},
		{"escapes", `x = "hello\nworld"`, true},
		{"interpolated", "x = `hello ${name}`", true},
		{"unterminated", `x = "hello`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestDictLiterals(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"empty dict", `x = {}`, true},
		{"string keys", `x = {"a": 1, "b": 2}`, true},
		{"nested dict", `x = {"outer": {"inner": 1}}`, true},
		{"missing colon", `x = {"a" 1}`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestFunctionDeclarations(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"simple function", `$ f() { return 1 }`, true},
		{"with params", `$ add(a, b) { return a + b }`, true},
		{"typed params and return", `$ add(a: number, b: number): number { return a + b }`, true},
		{"lambda expression", `f = $(x) => x * 2`, true},
		{"lambda block body", `f = $(x) => { return x * 2 }`, true},
		{"recursive", `$ fact(n) { if (n <= 1) { return 1 } return n * fact(n - 1) }`, true},
		{"overload group", `$ g() { return 0 } $ g(x) { return x }`, true},
		{"missing body", `$ f()`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestClassDeclarations(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"empty class", `class Point { }`, true},
		{"with init and method", `class Point { $ init(x, y) { this.x = x } $ sum() { return this.x } }`, true},
		{"typed class", `class Box[T] { }`, true},
		{"bad member", `class Point { x = 1 }`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"for-in", `for (x in [1, 2, 3]) { print(x) }`, true},
		{"c-style for", `for (i = 0; i < 10; i = i + 1) { print(i) }`, true},
		{"while", `while (x < 10) { x = x + 1 }`, true},
		{"break/continue", `while (true) { if (x == 5) { break } continue }`, true},
		{"for missing parens", `for x in [1,2,3] { print(x) }`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestTryCatchFinally(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"try-catch", `try { risky() } catch (e) { print(e) }`, true},
		{"try-catch-finally", `try { risky() } catch (e) { print(e) } finally { cleanup() }`, true},
		{"try-finally", `try { risky() } finally { cleanup() }`, true},
		{"bare try", `try { risky() }`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestMatchExpressions(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"literal and wildcard arms", `print(match (x) { 1 => "one", _ => "other" })`, true},
		{"result patterns", `print(match (d(10, 0)) { Ok(v) => v, Error(e) => e })`, true},
		{"guard", `print(match (x) { n if n > 0 => "pos", _ => "other" })`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestImportExport(t *testing.T) {
	tests := []struct {
		name, input string
		ok          bool
	}{
		{"named import", `import { a, b } from "./mod"`, true},
		{"aliased import", `import { a as c } from "./mod"`, true},
		{"export function", `export $ f() { return 1 }`, true},
		{"export var", `export x = 5`, true},
		{"missing from", `import { a }`, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.ok {
				assertParses(t, tc.input)
			} else {
				assertParseFails(t, tc.input)
			}
		})
	}
}

func TestSlicingAndIndexing(t *testing.T) {
	assertParses(t, `a = [1, 2, 3, 4, 5]\nprint(a[-2:])`)
	assertParses(t, `a[0] = 1`)
	assertParses(t, `d = {"a": 1}\nd["a"]`)
	assertParses(t, `a[1:3]`)
}

func TestTypeAlias(t *testing.T) {
	assertParses(t, `% Name = string`)
	assertParses(t, `% Callback = Function[(number), number]`)
}

func TestOperatorPrecedence(t *testing.T) {
	stmts := assertParses(t, `x = 1 + 2 * 3`)
	require.Len(t, stmts, 1)
	v, ok := stmts[0].(*Var)
	require.True(t, ok)
	bin, ok := v.Initializer.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Operator)
	rhs, ok := bin.Right.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "*", rhs.Operator)
}

func TestNullCoalescingPrecedence(t *testing.T) {
	assertParses(t, `y = x ?? "default"`)
}

func TestPowerIsRightAssociative(t *testing.T) {
	stmts := assertParses(t, `x = 2 ** 3 ** 2`)
	v := stmts[0].(*Var)
	bin := v.Initializer.(*Binary)
	assert.Equal(t, "**", bin.Operator)
	_, rightIsBinary := bin.Right.(*Binary)
	assert.True(t, rightIsBinary, "** must associate to the right")
}

func TestErrorRecoverySkipsToNextStatement(t *testing.T) {
	// The first statement is malformed (missing initializer); the parser
	// must still recover and parse the second as a normal statement (spec
	// §4.2's error-recovery contract).
	stmts, errs := parseString("x = ;\nprint(1)")
	assert.NotEmpty(t, errs)
	require.Len(t, stmts, 1)
	_, ok := stmts[0].(*ExpressionStmt)
	assert.True(t, ok)
}

func BenchmarkParseSimpleProgram(b *testing.B) {
	input := `x = 5\ny = 10\nz = x + y`
	for i := 0; i < b.N; i++ {
		parseString(input)
	}
}

func BenchmarkParseFibonacci(b *testing.B) {
	input := `$ fib(n) { if (n <= 1) { return n } return fib(n - 1) + fib(n - 2) } print(fib(10))`
	for i := 0; i < b.N; i++ {
		parseString(input)
	}
}
