package optimizer

import "thorn/internal/parser"

// TailCallToLoop rewrites a self-recursive tail call into parameter
// reassignment plus a `while (true)` wrapper (spec §4.7, O3; spec §8
// property 10: "a self-recursive tail-call loop of depth N at O3 uses
// O(1) call-stack frames"). Recognized shape: a function whose body's
// final statement is `return name(args...)` where name is the function's
// own name (a direct tail call, not nested inside a branch) — the common
// accumulator-style recursive pattern. Conditional tail-recursion
// (`if (base) return x; return f(...)`) is handled because the body's
// final statement is exactly that trailing return; the earlier
// conditional return is left as an ordinary return, which breaks out of
// the synthesized while-loop via the wrapping function's own Return
// semantics (spec §4.6: Return unwinds to the enclosing function frame).
type TailCallToLoop struct{}

func (*TailCallToLoop) Name() string { return "tail-call-to-loop" }
func (*TailCallToLoop) Description() string {
	return "rewrites a self-recursive tail call into parameter reassignment inside a while(true) loop"
}

func (t *TailCallToLoop) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := transformStmtsDeep(stmts, func(s parser.Stmt) parser.Stmt {
		fn, ok := s.(*parser.Function)
		if !ok || len(fn.Body) == 0 {
			return s
		}
		rewritten, ok := rewriteTailRecursive(fn)
		if !ok {
			return s
		}
		changed = true
		return rewritten
	})
	return out, changed
}

// rewriteTailRecursive checks whether fn's last statement is a direct
// tail-recursive return and, if so, produces a new Function whose body
// reassigns each parameter from the recursive call's arguments and loops
// instead of recursing. All arguments are evaluated into temporaries
// before any parameter is reassigned, so an argument that reads another
// parameter sees its value from the current iteration.
func rewriteTailRecursive(fn *parser.Function) (*parser.Function, bool) {
	last := fn.Body[len(fn.Body)-1]
	ret, ok := last.(*parser.Return)
	if !ok || ret.Value == nil {
		return nil, false
	}
	call, ok := ret.Value.(*parser.Call)
	if !ok {
		return nil, false
	}
	v, ok := call.Callee.(*parser.Variable)
	if !ok || v.Name != fn.Name || len(call.Args) != len(fn.Params) {
		return nil, false
	}
	var reassigns []parser.Stmt
	temps := make([]string, len(fn.Params))
	for i := range fn.Params {
		temps[i] = nextCSEName()
		reassigns = append(reassigns, &parser.Var{Name: temps[i], Initializer: call.Args[i]})
	}
	for i, p := range fn.Params {
		reassigns = append(reassigns, &parser.ExpressionStmt{
			Expr: &parser.Assign{Name: p.Name, Value: &parser.Variable{Name: temps[i]}},
		})
	}
	reassigns = append(reassigns, &parser.Continue{})
	loopBody := append(append([]parser.Stmt{}, fn.Body[:len(fn.Body)-1]...), reassigns...)
	loop := &parser.While{
		Condition: parser.NewLiteral(fn.Span(), true),
		Body:      &parser.Block{Stmts: loopBody},
	}
	cp := *fn
	cp.Body = []parser.Stmt{loop}
	return &cp, true
}
