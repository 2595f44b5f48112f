package errors_test

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	thornerrors "thorn/internal/errors"
)

func TestErrorRenderingMatchesExpectedFormat(t *testing.T) {
	e := thornerrors.New(thornerrors.TypeError, "cannot add Number and String",
		thornerrors.Location{File: "main.thorn", Line: 3, Column: 5})

	got := e.Error()
	want := "Error at main.thorn:3:5: cannot add Number and String"
	assert.Equal(t, want, got)
}

func TestErrorRenderingIncludesHintAndSourceCaret(t *testing.T) {
	e := thornerrors.New(thornerrors.ResolveError, "undefined variable 'x'",
		thornerrors.Location{File: "main.thorn", Line: 1, Column: 5}).
		WithHint("did you mean 'y'?").
		WithSource("print(x)")

	got := e.Error()
	want := "Error at main.thorn:1:5: undefined variable 'x'. did you mean 'y'?" +
		"\n  1 | print(x)" +
		"\n          ^"

	if got != want {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(want),
			B:        difflib.SplitLines(got),
			FromFile: "want",
			ToFile:   "got",
			Context:  2,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("error text mismatch:\n%s", text)
	}
}

func TestErrorRenderingAppendsCallStackFrames(t *testing.T) {
	e := thornerrors.New(thornerrors.DispatchError, "no matching overload",
		thornerrors.Location{Line: 10, Column: 1}).
		PushFrame(thornerrors.StackFrame{Function: "main", Location: thornerrors.Location{Line: 10, Column: 1}}).
		PushFrame(thornerrors.StackFrame{Location: thornerrors.Location{Line: 2, Column: 1}})

	got := e.Error()
	assert.Contains(t, got, "at main (10:1)")
	assert.Contains(t, got, "at 2:1")
}

func TestDiagnosticsAccumulatesAndReportsInOrder(t *testing.T) {
	d := &thornerrors.Diagnostics{}
	assert.False(t, d.HasErrors())

	d.Add(thornerrors.New(thornerrors.LexError, "first", thornerrors.Location{Line: 1}))
	d.Add(thornerrors.New(thornerrors.LexError, "second", thornerrors.Location{Line: 2}))

	require.True(t, d.HasErrors())
	require.Len(t, d.Errors(), 2)

	report := d.Report()
	assert.Contains(t, report, "first")
	assert.Contains(t, report, "second")
}

func TestLocationStringOmitsFileWhenEmpty(t *testing.T) {
	loc := thornerrors.Location{Line: 4, Column: 2}
	assert.Equal(t, "4:2", loc.String())

	locWithFile := thornerrors.Location{File: "a.thorn", Line: 4, Column: 2}
	assert.Equal(t, "a.thorn:4:2", locWithFile.String())
}
