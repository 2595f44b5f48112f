package optimizer

import "thorn/internal/parser"

// CommonSubexpressionElimination hoists a pure expression that appears
// more than once within a basic block into a synthetic immutable local,
// rewriting every repeated occurrence to read that local instead of
// recomputing it (spec §4.7, O2: "within a basic block, hoist repeated
// pure expressions into a synthetic local"). A basic block here is one
// statement list with no internal branch: Block/Function/Class-method
// bodies are each walked independently, and a nested If/While/For body
// starts its own block rather than sharing the parent's candidate table,
// since a branch may not execute at all.
type CommonSubexpressionElimination struct{}

func (*CommonSubexpressionElimination) Name() string { return "common-subexpression-elimination" }
func (*CommonSubexpressionElimination) Description() string {
	return "hoists expressions computed more than once in a block into a shared local"
}

func (cse *CommonSubexpressionElimination) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := cse.runBlock(stmts, &changed)
	return out, changed
}

var cseCounter int

func nextCSEName() string {
	cseCounter++
	return "__cse" + itoa(cseCounter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// runBlock finds every pure expression appearing 2+ times (by structural
// key) anywhere within stmts' own non-nested expressions, introduces one
// synthetic `@immut` local per repeated key right before the statement
// that first uses it, and rewrites every occurrence at or after that
// point within the same block to reference the local. Nested blocks are
// processed independently via the existing statement recursion.
func (cse *CommonSubexpressionElimination) runBlock(stmts []parser.Stmt, changed *bool) []parser.Stmt {
	counts := map[string]int{}
	var exprs []parser.Expr
	for _, s := range stmts {
		collectTopExprs(s, &exprs)
	}
	for _, e := range exprs {
		if key, ok := exprKey(e); ok && key != "" {
			counts[key]++
		}
	}
	names := map[string]string{}
	out := make([]parser.Stmt, 0, len(stmts)+4)
	for _, s := range stmts {
		s = cse.recurseNested(s, changed)
		var hoist []parser.Stmt
		s = rewriteStmtExprs(s, func(e parser.Expr) parser.Expr {
			key, ok := exprKey(e)
			if !ok || key == "" || counts[key] < 2 {
				return e
			}
			if _, exists := names[key]; !exists {
				local := nextCSEName()
				names[key] = local
				hoist = append(hoist, &parser.Var{Name: local, Initializer: e, Immutable: true})
			}
			*changed = true
			return &parser.Variable{Name: names[key]}
		})
		out = append(out, hoist...)
		out = append(out, s)
	}
	return out
}

// recurseNested applies CSE independently inside a statement's own
// nested bodies (each is its own basic block).
func (cse *CommonSubexpressionElimination) recurseNested(s parser.Stmt, changed *bool) parser.Stmt {
	switch n := s.(type) {
	case *parser.Block:
		c := *n
		c.Stmts = cse.runBlock(n.Stmts, changed)
		return &c
	case *parser.If:
		c := *n
		c.Then = &parser.Block{Stmts: cse.runBlock(n.Then.Stmts, changed)}
		if n.Else != nil {
			c.Else = cse.recurseNested(n.Else, changed)
		}
		return &c
	case *parser.While:
		c := *n
		c.Body = &parser.Block{Stmts: cse.runBlock(n.Body.Stmts, changed)}
		return &c
	case *parser.For:
		c := *n
		c.Body = &parser.Block{Stmts: cse.runBlock(n.Body.Stmts, changed)}
		return &c
	case *parser.Function:
		c := *n
		c.Body = cse.runBlock(n.Body, changed)
		return &c
	case *parser.Class:
		c := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = cse.recurseNested(m, changed).(*parser.Function)
		}
		c.Methods = methods
		return &c
	case *parser.Export:
		c := *n
		c.Decl = cse.recurseNested(n.Decl, changed)
		return &c
	default:
		return s
	}
}

// collectTopExprs gathers the expressions directly owned by s (not
// descending into nested statement bodies, which form their own block).
func collectTopExprs(s parser.Stmt, out *[]parser.Expr) {
	switch n := s.(type) {
	case *parser.ExpressionStmt:
		collectSubExprs(n.Expr, out)
	case *parser.Var:
		collectSubExprs(n.Initializer, out)
	case *parser.Return:
		collectSubExprs(n.Value, out)
	case *parser.If:
		collectSubExprs(n.Condition, out)
	case *parser.While:
		collectSubExprs(n.Condition, out)
	case *parser.For:
		collectSubExprs(n.Iterable, out)
	}
}

// collectSubExprs records e and every pure sub-expression reachable from
// it, so `a.x+1` appearing twice and `a.x` appearing a third time both
// get recognized.
func collectSubExprs(e parser.Expr, out *[]parser.Expr) {
	if e == nil {
		return
	}
	*out = append(*out, e)
	switch n := e.(type) {
	case *parser.Binary:
		collectSubExprs(n.Left, out)
		collectSubExprs(n.Right, out)
	case *parser.Unary:
		collectSubExprs(n.Operand, out)
	case *parser.Logical:
		collectSubExprs(n.Left, out)
		collectSubExprs(n.Right, out)
	case *parser.Index:
		collectSubExprs(n.Object, out)
		collectSubExprs(n.Key, out)
	case *parser.Grouping:
		collectSubExprs(n.Inner, out)
	}
}

// rewriteStmtExprs rewrites every expression directly owned by s (not
// descending into nested bodies) with f, post-order.
func rewriteStmtExprs(s parser.Stmt, f exprFn) parser.Stmt {
	switch n := s.(type) {
	case *parser.ExpressionStmt:
		c := *n
		c.Expr = transformExpr(n.Expr, f)
		return &c
	case *parser.Var:
		c := *n
		c.Initializer = transformExpr(n.Initializer, f)
		return &c
	case *parser.Return:
		c := *n
		c.Value = transformExpr(n.Value, f)
		return &c
	case *parser.If:
		c := *n
		c.Condition = transformExpr(n.Condition, f)
		return &c
	case *parser.While:
		c := *n
		c.Condition = transformExpr(n.Condition, f)
		return &c
	case *parser.For:
		c := *n
		c.Iterable = transformExpr(n.Iterable, f)
		return &c
	default:
		return s
	}
}
