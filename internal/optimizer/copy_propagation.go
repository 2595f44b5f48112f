package optimizer

import "thorn/internal/parser"

// CopyPropagation replaces uses of an immutable binding that is just a
// copy of another variable (`@immut b = a`) with the source variable,
// within the block that declared it, until either name is reassigned
// (spec §4.7, O1). Only @immut copies are propagated: a plain `b = a`
// binding can later be reassigned to something unrelated to a (the
// declare-or-mutate rule in internal/environment), and substituting a
// for b past that point would change behavior.
type CopyPropagation struct{}

func (*CopyPropagation) Name() string { return "copy-propagation" }
func (*CopyPropagation) Description() string {
	return "replaces uses of an immutable alias with its source variable"
}

func (cp *CopyPropagation) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := cp.propagateBlock(stmts, &changed)
	return out, changed
}

func (cp *CopyPropagation) propagateBlock(stmts []parser.Stmt, changed *bool) []parser.Stmt {
	copyOf := map[string]string{}
	out := make([]parser.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = cp.rewriteStmt(s, copyOf, changed)
		invalidate(copyOf, assignedNames(out[i])...)
		if v, ok := out[i].(*parser.Var); ok && v.Immutable {
			if src, isVarRef := v.Initializer.(*parser.Variable); isVarRef {
				copyOf[v.Name] = src.Name
			}
		}
	}
	return out
}

// rewriteStmt substitutes known copies into s's own expressions, and
// recurses into nested statement lists as independent scopes.
func (cp *CopyPropagation) rewriteStmt(s parser.Stmt, copyOf map[string]string, changed *bool) parser.Stmt {
	sub := func(e parser.Expr) parser.Expr {
		return transformExpr(e, func(node parser.Expr) parser.Expr {
			v, ok := node.(*parser.Variable)
			if !ok {
				return node
			}
			if src, ok := copyOf[v.Name]; ok {
				*changed = true
				cpy := *v
				cpy.Name = src
				return &cpy
			}
			return node
		})
	}
	switch n := s.(type) {
	case *parser.ExpressionStmt:
		c := *n
		c.Expr = sub(n.Expr)
		return &c
	case *parser.Var:
		c := *n
		c.Initializer = sub(n.Initializer)
		return &c
	case *parser.Return:
		c := *n
		c.Value = sub(n.Value)
		return &c
	case *parser.Block:
		c := *n
		c.Stmts = cp.propagateBlock(n.Stmts, changed)
		return &c
	case *parser.If:
		c := *n
		c.Condition = sub(n.Condition)
		c.Then = &parser.Block{Stmts: cp.propagateBlock(n.Then.Stmts, changed)}
		if n.Else != nil {
			c.Else = cp.rewriteStmt(n.Else, copyOf, changed)
		}
		return &c
	case *parser.While:
		c := *n
		c.Condition = sub(n.Condition)
		c.Body = &parser.Block{Stmts: cp.propagateBlock(n.Body.Stmts, changed)}
		return &c
	case *parser.For:
		c := *n
		c.Iterable = sub(n.Iterable)
		c.Body = &parser.Block{Stmts: cp.propagateBlock(n.Body.Stmts, changed)}
		return &c
	case *parser.Function:
		c := *n
		c.Body = cp.propagateBlock(n.Body, changed)
		return &c
	case *parser.Class:
		c := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = cp.rewriteStmt(m, map[string]string{}, changed).(*parser.Function)
		}
		c.Methods = methods
		return &c
	case *parser.Export:
		c := *n
		c.Decl = cp.rewriteStmt(n.Decl, copyOf, changed)
		return &c
	default:
		return s
	}
}

// assignedNames returns the names a statement directly binds or
// mutates, used to invalidate stale copy-propagation facts.
func assignedNames(s parser.Stmt) []string {
	switch n := s.(type) {
	case *parser.Var:
		return []string{n.Name}
	}
	return nil
}

func invalidate(copyOf map[string]string, names ...string) {
	for _, name := range names {
		delete(copyOf, name)
		for k, v := range copyOf {
			if v == name {
				delete(copyOf, k)
			}
		}
	}
}
