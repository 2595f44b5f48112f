// Package errors defines Thorn's diagnostic taxonomy (spec §7): the single
// shape every user-visible failure takes, whether it originates in the
// scanner, the parser, the tree evaluator, or the virtual machine.
package errors

import (
	"fmt"
	"strings"
)

// Kind enumerates the diagnostic categories from spec §7. It is a kind, not
// a Go type: every diagnostic is a *ThornError carrying one of these.
type Kind string

const (
	LexError      Kind = "LexError"
	ParseError    Kind = "ParseError"
	ResolveError  Kind = "ResolveError"
	TypeError     Kind = "TypeError"
	BoundsError   Kind = "BoundsError"
	AssignError   Kind = "AssignError"
	DispatchError Kind = "DispatchError"
	ImportError   Kind = "ImportError"
	StackOverflow Kind = "StackOverflow"
)

// Location pinpoints a diagnostic in source text.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// StackFrame is one entry of a call-stack trace attached to an abort.
type StackFrame struct {
	Function string
	Location Location
}

// ThornError is the single diagnostic type for the whole core. Programmer
// errors (ResolveError, TypeError, BoundsError, AssignError, DispatchError,
// ImportError, StackOverflow) abort the run; LexError/ParseError accumulate
// and are reported together before execution begins.
type ThornError struct {
	Kind      Kind
	Message   string
	Location  Location
	Source    string // the offending source line, when available
	Hint      string
	CallStack []StackFrame
}

func New(kind Kind, message string, loc Location) *ThornError {
	return &ThornError{Kind: kind, Message: message, Location: loc}
}

func (e *ThornError) WithSource(line string) *ThornError {
	e.Source = line
	return e
}

func (e *ThornError) WithHint(hint string) *ThornError {
	e.Hint = hint
	return e
}

func (e *ThornError) WithStack(stack []StackFrame) *ThornError {
	e.CallStack = stack
	return e
}

func (e *ThornError) PushFrame(frame StackFrame) *ThornError {
	e.CallStack = append(e.CallStack, frame)
	return e
}

// Error renders the diagnostic in the user-visible format mandated by spec
// §7: "Error at <file>:<line>:<col>: <message>. <optional hint>".
func (e *ThornError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error at %s: %s", e.Location, e.Message)
	if e.Hint != "" {
		fmt.Fprintf(&sb, ". %s", e.Hint)
	}
	if e.Source != "" {
		fmt.Fprintf(&sb, "\n  %d | %s", e.Location.Line, e.Source)
		pad := strings.Repeat(" ", len(fmt.Sprintf("%d | ", e.Location.Line))+maxInt(0, e.Location.Column-1))
		sb.WriteString("\n  " + pad + "^")
	}
	for _, frame := range e.CallStack {
		if frame.Function != "" {
			fmt.Fprintf(&sb, "\n  at %s (%s)", frame.Function, frame.Location)
		} else {
			fmt.Fprintf(&sb, "\n  at %s", frame.Location)
		}
	}
	return sb.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Diagnostics accumulates Lex/Parse errors so a run can report every syntax
// problem in a file before deciding whether to execute (spec §7: "Lex and
// Parse errors accumulate per file and are all reported before execution
// begins; any Lex/Parse error aborts the run").
type Diagnostics struct {
	errs []*ThornError
}

func (d *Diagnostics) Add(e *ThornError) {
	d.errs = append(d.errs, e)
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.errs) > 0
}

func (d *Diagnostics) Errors() []*ThornError {
	return d.errs
}

func (d *Diagnostics) Report() string {
	var sb strings.Builder
	for i, e := range d.errs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.Error())
	}
	return sb.String()
}
