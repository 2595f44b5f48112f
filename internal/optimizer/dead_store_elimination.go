package optimizer

import "thorn/internal/parser"

// DeadStoreElimination drops a Var binding whose initializer is pure
// (a literal or a bare variable reference, never a call) when the name
// it binds is never read anywhere later in the same statement list,
// including inside nested blocks, loops, and closures (spec §4.7, O1).
// A store that a later statement overwrites is dropped only when no later
// statement reads the name at all: in `x = 1; x = 2; print(x);` the first
// store is kept.
type DeadStoreElimination struct{}

func (*DeadStoreElimination) Name() string { return "dead-store-elimination" }
func (*DeadStoreElimination) Description() string {
	return "removes variable bindings whose value is never read before being overwritten or going out of scope"
}

func (d *DeadStoreElimination) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := d.eliminateBlock(stmts, &changed)
	return out, changed
}

func (d *DeadStoreElimination) eliminateBlock(stmts []parser.Stmt, changed *bool) []parser.Stmt {
	out := make([]parser.Stmt, 0, len(stmts))
	for i, s := range stmts {
		rewritten := d.rewriteOne(s, changed)
		if v, ok := rewritten.(*parser.Var); ok && isPureInit(v.Initializer) {
			if !usesName(stmts[i+1:], v.Name) {
				*changed = true
				continue
			}
		}
		out = append(out, rewritten)
	}
	return out
}

func isPureInit(e parser.Expr) bool {
	switch e.(type) {
	case nil, *parser.Literal, *parser.Variable:
		return true
	default:
		return false
	}
}

func usesName(stmts []parser.Stmt, name string) bool {
	found := false
	transformStmts(stmts, func(e parser.Expr) parser.Expr {
		if v, ok := e.(*parser.Variable); ok && v.Name == name {
			found = true
		}
		return e
	})
	return found
}

func (d *DeadStoreElimination) rewriteOne(s parser.Stmt, changed *bool) parser.Stmt {
	switch n := s.(type) {
	case *parser.Block:
		c := *n
		c.Stmts = d.eliminateBlock(n.Stmts, changed)
		return &c
	case *parser.If:
		c := *n
		c.Then = &parser.Block{Stmts: d.eliminateBlock(n.Then.Stmts, changed)}
		if n.Else != nil {
			c.Else = d.rewriteOne(n.Else, changed)
		}
		return &c
	case *parser.While:
		c := *n
		c.Body = &parser.Block{Stmts: d.eliminateBlock(n.Body.Stmts, changed)}
		return &c
	case *parser.For:
		c := *n
		c.Body = &parser.Block{Stmts: d.eliminateBlock(n.Body.Stmts, changed)}
		return &c
	case *parser.Function:
		c := *n
		c.Body = d.eliminateBlock(n.Body, changed)
		return &c
	case *parser.Class:
		c := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = d.rewriteOne(m, changed).(*parser.Function)
		}
		c.Methods = methods
		return &c
	case *parser.Export:
		c := *n
		c.Decl = d.rewriteOne(n.Decl, changed)
		return &c
	case *parser.Try:
		c := *n
		c.Body = &parser.Block{Stmts: d.eliminateBlock(n.Body.Stmts, changed)}
		if n.CatchBody != nil {
			c.CatchBody = &parser.Block{Stmts: d.eliminateBlock(n.CatchBody.Stmts, changed)}
		}
		if n.FinallyBody != nil {
			c.FinallyBody = &parser.Block{Stmts: d.eliminateBlock(n.FinallyBody.Stmts, changed)}
		}
		return &c
	default:
		return s
	}
}
