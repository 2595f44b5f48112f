package optimizer

import "thorn/internal/parser"

// BranchSimplification collapses an If whose condition has folded down
// to a literal boolean into just the branch that runs, and drops while
// loops whose condition is a literal false (spec §4.7, O1). It runs
// after ConstantFolding in the pipeline, so conditions built from
// literal subexpressions have already become *parser.Literal by the
// time this pass sees them.
type BranchSimplification struct{}

func (*BranchSimplification) Name() string { return "branch-simplification" }
func (*BranchSimplification) Description() string {
	return "collapses if/while statements with a literal boolean condition to the branch that always runs"
}

func (bs *BranchSimplification) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := bs.simplifyList(stmts, &changed)
	return out, changed
}

func (bs *BranchSimplification) simplifyList(stmts []parser.Stmt, changed *bool) []parser.Stmt {
	var out []parser.Stmt
	for _, s := range stmts {
		out = append(out, bs.simplifyOne(s, changed)...)
	}
	return out
}

// simplifyOne returns the replacement(s) for a single statement: one
// element in the common case, zero or several when an If collapses.
func (bs *BranchSimplification) simplifyOne(s parser.Stmt, changed *bool) []parser.Stmt {
	switch n := s.(type) {
	case *parser.If:
		lit, isLit := n.Condition.(*parser.Literal)
		if isLit {
			*changed = true
			if truthyOf(lit.Value) {
				return bs.simplifyList(n.Then.Stmts, changed)
			}
			if n.Else == nil {
				return nil
			}
			return bs.simplifyOne(n.Else, changed)
		}
		cp := *n
		cp.Then = &parser.Block{Stmts: bs.simplifyList(n.Then.Stmts, changed)}
		if n.Else != nil {
			elseOut := bs.simplifyOne(n.Else, changed)
			switch len(elseOut) {
			case 0:
				cp.Else = nil
			case 1:
				cp.Else = elseOut[0]
			default:
				cp.Else = &parser.Block{Stmts: elseOut}
			}
		}
		return []parser.Stmt{&cp}
	case *parser.While:
		if lit, ok := n.Condition.(*parser.Literal); ok && !truthyOf(lit.Value) {
			*changed = true
			return nil
		}
		cp := *n
		cp.Body = &parser.Block{Stmts: bs.simplifyList(n.Body.Stmts, changed)}
		return []parser.Stmt{&cp}
	case *parser.Block:
		cp := *n
		cp.Stmts = bs.simplifyList(n.Stmts, changed)
		return []parser.Stmt{&cp}
	case *parser.For:
		cp := *n
		cp.Body = &parser.Block{Stmts: bs.simplifyList(n.Body.Stmts, changed)}
		return []parser.Stmt{&cp}
	case *parser.Function:
		cp := *n
		cp.Body = bs.simplifyList(n.Body, changed)
		return []parser.Stmt{&cp}
	case *parser.Class:
		cp := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			r := bs.simplifyOne(m, changed)
			methods[i] = r[0].(*parser.Function)
		}
		cp.Methods = methods
		return []parser.Stmt{&cp}
	case *parser.Export:
		cp := *n
		r := bs.simplifyOne(n.Decl, changed)
		if len(r) == 1 {
			cp.Decl = r[0]
		}
		return []parser.Stmt{&cp}
	case *parser.Try:
		cp := *n
		cp.Body = &parser.Block{Stmts: bs.simplifyList(n.Body.Stmts, changed)}
		if n.CatchBody != nil {
			cp.CatchBody = &parser.Block{Stmts: bs.simplifyList(n.CatchBody.Stmts, changed)}
		}
		if n.FinallyBody != nil {
			cp.FinallyBody = &parser.Block{Stmts: bs.simplifyList(n.FinallyBody.Stmts, changed)}
		}
		return []parser.Stmt{&cp}
	default:
		return []parser.Stmt{s}
	}
}
