package optimizer

import "thorn/internal/parser"

// LoopInvariantCodeMotion hoists pure sub-expressions out of while/for
// loop bodies when none of their free variables are assigned anywhere in
// the loop body (spec §4.7, O2). The hoisted computation is bound once,
// immutably, just before the loop, and every occurrence inside the body
// is rewritten to read that binding.
type LoopInvariantCodeMotion struct{}

func (*LoopInvariantCodeMotion) Name() string { return "loop-invariant-code-motion" }
func (*LoopInvariantCodeMotion) Description() string {
	return "hoists pure, loop-invariant sub-expressions out of while/for bodies"
}

func (l *LoopInvariantCodeMotion) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := make([]parser.Stmt, 0, len(stmts))
	for _, s := range stmts {
		hoisted, rewritten := l.hoistFromStmt(s, &changed)
		out = append(out, hoisted...)
		out = append(out, rewritten)
	}
	return out, changed
}

// hoistFromStmt recurses into s's nested bodies first (innermost loops
// hoist first), then — if s is itself a loop — hoists its own invariant
// subexpressions into statements returned alongside it for the caller to
// splice in immediately before s.
func (l *LoopInvariantCodeMotion) hoistFromStmt(s parser.Stmt, changed *bool) ([]parser.Stmt, parser.Stmt) {
	switch n := s.(type) {
	case *parser.Block:
		c := *n
		c.Stmts = l.Apply0(n.Stmts, changed)
		return nil, &c
	case *parser.If:
		c := *n
		c.Then = &parser.Block{Stmts: l.Apply0(n.Then.Stmts, changed)}
		if n.Else != nil {
			_, c.Else = l.hoistFromStmt(n.Else, changed)
		}
		return nil, &c
	case *parser.Function:
		c := *n
		c.Body = l.Apply0(n.Body, changed)
		return nil, &c
	case *parser.Class:
		c := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			_, r := l.hoistFromStmt(m, changed)
			methods[i] = r.(*parser.Function)
		}
		c.Methods = methods
		return nil, &c
	case *parser.Export:
		c := *n
		_, c.Decl = l.hoistFromStmt(n.Decl, changed)
		return nil, &c
	case *parser.While:
		body := l.Apply0(n.Body.Stmts, changed)
		assigned := assignedNamesIn(body)
		assigned = append(assigned, assignedNamesInExpr(n.Condition)...)
		hoist, body := hoistInvariants(body, assigned, changed)
		c := *n
		c.Body = &parser.Block{Stmts: body}
		return hoist, &c
	case *parser.For:
		body := l.Apply0(n.Body.Stmts, changed)
		assigned := append(assignedNamesIn(body), n.Var)
		hoist, body := hoistInvariants(body, assigned, changed)
		c := *n
		c.Body = &parser.Block{Stmts: body}
		return hoist, &c
	default:
		return nil, s
	}
}

// Apply0 runs the same pass over a nested statement list without
// re-wrapping the (hoisted, changed) pair, since a nested block's own
// hoists stay inside that block (only a loop's hoists escape upward, to
// just before the loop itself).
func (l *LoopInvariantCodeMotion) Apply0(stmts []parser.Stmt, changed *bool) []parser.Stmt {
	out := make([]parser.Stmt, 0, len(stmts))
	for _, s := range stmts {
		hoisted, rewritten := l.hoistFromStmt(s, changed)
		out = append(out, hoisted...)
		out = append(out, rewritten)
	}
	return out
}

// hoistInvariants finds pure expressions in body whose free variables are
// never in assigned, hoists the first such expression found (conservative:
// one per pass invocation keeps the rewrite simple, and the pipeline runs
// to fixpoint so repeated invariants are all hoisted over successive
// rounds), and rewrites its occurrences to a synthetic local.
func hoistInvariants(body []parser.Stmt, assigned []string, changed *bool) ([]parser.Stmt, []parser.Stmt) {
	assignedSet := map[string]bool{}
	for _, n := range assigned {
		assignedSet[n] = true
	}
	var candidate parser.Expr
	for _, s := range body {
		var exprs []parser.Expr
		collectTopExprs(s, &exprs)
		for _, e := range exprs {
			if isInvariant(e, assignedSet) && !isTrivial(e) {
				candidate = e
				break
			}
		}
		if candidate != nil {
			break
		}
	}
	if candidate == nil {
		return nil, body
	}
	key, ok := exprKey(candidate)
	if !ok {
		return nil, body
	}
	local := nextCSEName()
	rewritten := make([]parser.Stmt, len(body))
	for i, s := range body {
		rewritten[i] = rewriteStmtExprs(s, func(e parser.Expr) parser.Expr {
			if k, ok := exprKey(e); ok && k == key {
				return &parser.Variable{Name: local}
			}
			return e
		})
	}
	*changed = true
	hoist := []parser.Stmt{&parser.Var{Name: local, Initializer: candidate, Immutable: true}}
	return hoist, rewritten
}

func isTrivial(e parser.Expr) bool {
	switch e.(type) {
	case *parser.Literal, *parser.Variable, *parser.This:
		return true
	default:
		return false
	}
}

// isInvariant reports whether e is pure and none of its free variables
// are in assigned.
func isInvariant(e parser.Expr, assigned map[string]bool) bool {
	if !isPure(e) {
		return false
	}
	invariant := true
	var walk func(parser.Expr)
	walk = func(n parser.Expr) {
		if n == nil || !invariant {
			return
		}
		switch t := n.(type) {
		case *parser.Variable:
			if assigned[t.Name] {
				invariant = false
			}
		case *parser.Binary:
			walk(t.Left)
			walk(t.Right)
		case *parser.Unary:
			walk(t.Operand)
		case *parser.Logical:
			walk(t.Left)
			walk(t.Right)
		case *parser.Index:
			walk(t.Object)
			walk(t.Key)
		case *parser.Grouping:
			walk(t.Inner)
		}
	}
	walk(e)
	return invariant
}

// assignedNamesIn collects every name directly assigned or declared
// anywhere in stmts (conservative over-approximation: includes Var
// declarations as well as Assign targets, since a redeclared name
// shadows rather than being loop-invariant across iterations).
func assignedNamesIn(stmts []parser.Stmt) []string {
	var names []string
	walkStmts(stmts, func(s parser.Stmt) {
		switch n := s.(type) {
		case *parser.Var:
			names = append(names, n.Name)
		case *parser.ExpressionStmt:
			names = append(names, assignTargets(n.Expr)...)
		}
	})
	return names
}

func assignedNamesInExpr(e parser.Expr) []string {
	return assignTargets(e)
}

func assignTargets(e parser.Expr) []string {
	switch n := e.(type) {
	case *parser.Assign:
		return append([]string{n.Name}, assignTargets(n.Value)...)
	case *parser.Binary:
		return append(assignTargets(n.Left), assignTargets(n.Right)...)
	case *parser.Call:
		var out []string
		for _, a := range n.Args {
			out = append(out, assignTargets(a)...)
		}
		return out
	default:
		return nil
	}
}
