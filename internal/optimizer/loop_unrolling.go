package optimizer

import "thorn/internal/parser"

// UnrollThreshold bounds how many iterations LoopUnrolling will expand
// inline (spec §6 "loop-unroll threshold"). A package-level default;
// internal/config wires the configured value in via SetUnrollThreshold.
var UnrollThreshold = 8

func SetUnrollThreshold(n int) {
	if n > 0 {
		UnrollThreshold = n
	}
}

// LoopUnrolling expands `for (x in [lit, lit, ...]) body` loops whose
// iteration count is a known small literal into a straight-line sequence
// of copies of body, one per element, each in its own block scope (spec §4.7, O2: "unroll loops
// whose iteration count is a known small literal"). Only list-literal
// iterables are recognized, since that is the one shape the AST can
// prove a compile-time count for without a range/interval construct.
type LoopUnrolling struct{}

func (*LoopUnrolling) Name() string { return "loop-unrolling" }
func (*LoopUnrolling) Description() string {
	return "unrolls for-loops over a small literal list into straight-line copies of the body"
}

func (lu *LoopUnrolling) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := transformStmtsDeep(stmts, func(s parser.Stmt) parser.Stmt {
		if unrolled, ok := lu.unroll(s); ok {
			changed = true
			return unrolled
		}
		return s
	})
	return out, changed
}

// unroll rewrites a *parser.For whose Iterable is a ListExpr of literals
// with length in (0, UnrollThreshold] into a Block of per-element Blocks,
// each binding the loop variable to that element's literal (a plain,
// non-@immut Var) and
// inlining a copy of the body.
func (lu *LoopUnrolling) unroll(s parser.Stmt) (parser.Stmt, bool) {
	f, ok := s.(*parser.For)
	if !ok {
		return s, false
	}
	list, ok := f.Iterable.(*parser.ListExpr)
	if !ok || len(list.Elements) == 0 || len(list.Elements) > UnrollThreshold {
		return s, false
	}
	for _, el := range list.Elements {
		if _, isLit := el.(*parser.Literal); !isLit {
			return s, false
		}
	}
	if containsBreakOrContinue(f.Body.Stmts) {
		return s, false
	}
	var iterBlocks []parser.Stmt
	for _, el := range list.Elements {
		iter := &parser.Block{
			Stmts: append([]parser.Stmt{
				&parser.Var{Name: f.Var, Initializer: el, Immutable: false},
			}, copyStmts(f.Body.Stmts)...),
		}
		iterBlocks = append(iterBlocks, iter)
	}
	return &parser.Block{Stmts: iterBlocks}, true
}

// containsBreakOrContinue reports whether body uses break/continue,
// which would behave differently once the loop's own control-flow
// target disappears under unrolling.
func containsBreakOrContinue(stmts []parser.Stmt) bool {
	found := false
	walkStmts(stmts, func(s parser.Stmt) {
		switch s.(type) {
		case *parser.Break, *parser.Continue:
			found = true
		}
	})
	return found
}

// copyStmts returns a shallow copy of the slice header so splicing the
// same body into multiple unrolled iterations never lets one iteration's
// later pass mutate another's copy in place.
func copyStmts(stmts []parser.Stmt) []parser.Stmt {
	out := make([]parser.Stmt, len(stmts))
	copy(out, stmts)
	return out
}

// transformStmtsDeep applies f to every statement, bottom-up (children
// rewritten before parents), across the full nested structure.
func transformStmtsDeep(stmts []parser.Stmt, f func(parser.Stmt) parser.Stmt) []parser.Stmt {
	out := make([]parser.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = transformStmtDeep(s, f)
	}
	return out
}

func transformStmtDeep(s parser.Stmt, f func(parser.Stmt) parser.Stmt) parser.Stmt {
	switch n := s.(type) {
	case *parser.Block:
		c := *n
		c.Stmts = transformStmtsDeep(n.Stmts, f)
		return f(&c)
	case *parser.If:
		c := *n
		c.Then = transformStmtDeep(n.Then, f).(*parser.Block)
		if n.Else != nil {
			c.Else = transformStmtDeep(n.Else, f)
		}
		return f(&c)
	case *parser.While:
		c := *n
		c.Body = transformStmtDeep(n.Body, f).(*parser.Block)
		return f(&c)
	case *parser.For:
		c := *n
		c.Body = transformStmtDeep(n.Body, f).(*parser.Block)
		return f(&c)
	case *parser.Function:
		c := *n
		c.Body = transformStmtsDeep(n.Body, f)
		return f(&c)
	case *parser.Class:
		c := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = transformStmtDeep(m, f).(*parser.Function)
		}
		c.Methods = methods
		return f(&c)
	case *parser.Export:
		c := *n
		c.Decl = transformStmtDeep(n.Decl, f)
		return f(&c)
	case *parser.Try:
		c := *n
		c.Body = transformStmtDeep(n.Body, f).(*parser.Block)
		if n.CatchBody != nil {
			c.CatchBody = transformStmtDeep(n.CatchBody, f).(*parser.Block)
		}
		if n.FinallyBody != nil {
			c.FinallyBody = transformStmtDeep(n.FinallyBody, f).(*parser.Block)
		}
		return f(&c)
	default:
		return f(s)
	}
}
