package optimizer

import "thorn/internal/parser"

// InlineThreshold bounds the body size (statement count) FunctionInlining
// will substitute at a call site (spec §6 "inline size threshold").
var InlineThreshold = 3

func SetInlineThreshold(n int) {
	if n > 0 {
		InlineThreshold = n
	}
}

// FunctionInlining replaces a call to a top-level, non-recursive,
// single-return function whose body is small with the callee's body,
// substituting arguments for parameters (spec §4.7, O2: "inline
// functions whose body size <= threshold, non-recursive, single-return").
// A call is only inlined when every argument is pure (so evaluation
// order and side effects are preserved) and the callee has exactly one
// Return statement, which must be its last statement — this keeps the
// rewrite a plain expression substitution instead of needing control-flow
// splicing for an early return.
type FunctionInlining struct{}

func (*FunctionInlining) Name() string { return "function-inlining" }
func (*FunctionInlining) Description() string {
	return "substitutes small, non-recursive, single-return function calls with their body"
}

func (fi *FunctionInlining) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	candidates := collectInlineCandidates(stmts)
	changed := false
	out := transformStmts(stmts, func(e parser.Expr) parser.Expr {
		call, ok := e.(*parser.Call)
		if !ok {
			return e
		}
		v, ok := call.Callee.(*parser.Variable)
		if !ok {
			return e
		}
		fn, ok := candidates[v.Name]
		if !ok || len(fn.Params) != len(call.Args) {
			return e
		}
		for _, a := range call.Args {
			if !isPure(a) {
				return e
			}
		}
		inlined, ok := inlineBody(fn, call.Args)
		if !ok {
			return e
		}
		changed = true
		return inlined
	})
	return out, changed
}

// collectInlineCandidates finds top-level function declarations that are
// small, non-recursive, and end in exactly one Return.
func collectInlineCandidates(stmts []parser.Stmt) map[string]*parser.Function {
	out := map[string]*parser.Function{}
	for _, s := range stmts {
		fn, ok := s.(*parser.Function)
		if !ok {
			continue
		}
		if len(fn.Body) == 0 || len(fn.Body) > InlineThreshold {
			continue
		}
		if countReturns(fn.Body) != 1 {
			continue
		}
		if _, last := fn.Body[len(fn.Body)-1].(*parser.Return); !last {
			continue
		}
		if callsName(fn.Body, fn.Name) {
			continue
		}
		out[fn.Name] = fn
	}
	return out
}

func countReturns(stmts []parser.Stmt) int {
	n := 0
	walkStmts(stmts, func(s parser.Stmt) {
		if _, ok := s.(*parser.Return); ok {
			n++
		}
	})
	return n
}

// callsName reports whether any Call in stmts has the bare name as its
// callee, which catches direct self-recursion. A reference to name passed
// as an argument, or a cycle through another function (mutual recursion),
// is not detected.
func callsName(stmts []parser.Stmt, name string) bool {
	found := false
	var visit exprFn
	visit = func(e parser.Expr) parser.Expr {
		if call, ok := e.(*parser.Call); ok {
			if v, ok := call.Callee.(*parser.Variable); ok && v.Name == name {
				found = true
			}
		}
		return e
	}
	for _, s := range stmts {
		transformStmt(s, visit)
	}
	return found
}

// inlineBody substitutes args for fn's parameters throughout its single
// trailing Return's expression, returning that expression (everything
// before the Return in a 1-statement body is the common case this pass
// targets; bodies with leading non-return statements are left alone
// since an expression can't sequence statements before itself).
func inlineBody(fn *parser.Function, args []parser.Expr) (parser.Expr, bool) {
	if len(fn.Body) != 1 {
		return nil, false
	}
	ret, ok := fn.Body[0].(*parser.Return)
	if !ok || ret.Value == nil {
		return nil, false
	}
	subst := map[string]parser.Expr{}
	for i, p := range fn.Params {
		subst[p.Name] = args[i]
	}
	return transformExpr(ret.Value, func(e parser.Expr) parser.Expr {
		if v, ok := e.(*parser.Variable); ok {
			if repl, ok := subst[v.Name]; ok {
				return repl
			}
		}
		return e
	}), true
}
