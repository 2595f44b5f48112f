package vm_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thorn/internal/compiler"
	thornerrors "thorn/internal/errors"
	"thorn/internal/lexer"
	"thorn/internal/native"
	"thorn/internal/parser"
	"thorn/internal/vm"
)

type captureBuf struct{ strings.Builder }

func (c *captureBuf) Print(s string) { c.WriteString(s) }

// run lexes, parses, compiles, and runs src on the VM, returning
// everything printed and any aborting error — the VM-backend twin of
// internal/eval's eval_test.go run helper, kept deliberately parallel so
// the same source fixtures can be asserted against both backends (spec
// §8 property 2, "backend equivalence").
func run(t *testing.T, src string) (string, *thornerrors.ThornError) {
	t.Helper()
	scan := lexer.NewScanner(src)
	tokens := scan.ScanTokens()
	require.False(t, scan.Diagnostics().HasErrors(), "lex errors: %s", scan.Diagnostics().Report())

	diags := &thornerrors.Diagnostics{}
	p := parser.NewParserWithFile(tokens, "<test>", diags)
	stmts := p.Parse()
	require.False(t, diags.HasErrors(), "parse errors: %s", diags.Report())

	prog, cerr := compiler.Compile(stmts, "<test>")
	require.Nil(t, cerr, "compile error: %v", cerr)

	var buf captureBuf
	reg := native.New(&buf)
	machine := vm.New(prog, "<test>", reg.Globals())

	_, err := machine.Run()
	return buf.String(), err
}

// TestScenarios runs spec §8's literal seed scenarios (S1-S8) against the
// VM backend.
func TestScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "S1_fib",
			src:  `$ fib(n){ if (n<=1) return n; return fib(n-1)+fib(n-2); } print(fib(10));`,
			want: "55\n",
		},
		{
			name: "S2_match_result",
			src: `$ d(a,b){ if (b==0) return Error("div0"); return Ok(a/b); }
print(match (d(10,0)) { Ok(v) => v, Error(e) => "err:"+e });`,
			want: "err:div0\n",
		},
		{
			name: "S3_overload",
			src: `$ g(){return "0"} $ g(x){return "1:"+x} $ g(x,y){return "2"}
print(g()+","+g(7)+","+g(1,2));`,
			want: "0,1:7,2\n",
		},
		{
			name: "S4_closure_counter",
			src: `$ mk(){ c=0; return $() => { c=c+1; return c; }; }
f=mk(); print(f()+","+f()+","+f());`,
			want: "1,2,3\n",
		},
		{
			name: "S5_dict_ordering",
			src:  `d={"a":1,"b":2,"c":3}; for (k in d.keys()) print(k);`,
			want: "a\nb\nc\n",
		},
		{
			name: "S7_slice_negative",
			src:  `a=[1,2,3,4,5]; print(a[-2:]);`,
			want: "[4, 5]\n",
		},
		{
			name: "S8_null_coalescing",
			src:  `x=null; y=x ?? "default"; print(y);`,
			want: "default\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, tc.src)
			require.Nil(t, err, "unexpected abort: %v", err)
			assert.Equal(t, tc.want, out)
		})
	}
}

// TestS6Immutability checks spec S6: reassigning an @immut binding aborts
// with an AssignError rather than completing silently.
func TestS6Immutability(t *testing.T) {
	_, err := run(t, `@immut PI=3; PI=4;`)
	require.NotNil(t, err)
	assert.Equal(t, thornerrors.AssignError, err.Kind)
}

// TestNullCoalescingShortCircuit guards spec §8 property 7: the
// right-hand side of `??` must not evaluate when the left is non-null.
func TestNullCoalescingShortCircuit(t *testing.T) {
	out, err := run(t, `$ boom(){ print("evaluated"); return "x"; }
y = "present" ?? boom();
print(y);`)
	require.Nil(t, err)
	assert.Equal(t, "present\n", out)
}

// TestClassThisBinding exercises instance construction, init-as-field
// assignment, and bound-method invocation (spec §4.6, §8 property 9).
func TestClassThisBinding(t *testing.T) {
	out, err := run(t, `class Counter {
	$ init(start) {
		this.n = start;
	}
	$ bump() {
		this.n = this.n + 1;
		return this.n;
	}
}
c = Counter(10);
m = c.bump;
print(m()+","+m()+","+c.bump());`)
	require.Nil(t, err)
	assert.Equal(t, "11,12,13\n", out)
}

// TestDivisionByZeroIsResultError checks spec §4.3: division by zero
// produces a Result::Error, not an abort.
func TestDivisionByZeroIsResultError(t *testing.T) {
	out, err := run(t, `print(match (1/0) { Ok(v) => "ok:"+v, Error(e) => "err:"+e });`)
	require.Nil(t, err)
	assert.Equal(t, "err:Division by zero\n", out)
}

// TestStackOverflow checks spec §7's StackOverflow kind fires on
// unbounded recursion rather than crashing the host process.
func TestStackOverflow(t *testing.T) {
	_, err := run(t, `$ loop(n){ return loop(n+1); } print(loop(0));`)
	require.NotNil(t, err)
	assert.Equal(t, thornerrors.StackOverflow, err.Kind)
}
