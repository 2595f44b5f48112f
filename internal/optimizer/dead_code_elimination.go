package optimizer

import "thorn/internal/parser"

// DeadCodeElimination drops statements that can provably never run:
// anything after an unconditional return/break/continue in the same
// statement list (spec §4.7, O1).
type DeadCodeElimination struct{}

func (*DeadCodeElimination) Name() string { return "dead-code-elimination" }
func (*DeadCodeElimination) Description() string {
	return "removes statements unreachable after a return, break, or continue"
}

func (dce *DeadCodeElimination) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := dce.prune(stmts, &changed)
	return out, changed
}

func (dce *DeadCodeElimination) prune(stmts []parser.Stmt, changed *bool) []parser.Stmt {
	out := make([]parser.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, dce.pruneOne(s, changed))
		if terminates(s) && hasMore(stmts, s) {
			*changed = true
			break
		}
	}
	return out
}

// terminates reports whether s unconditionally transfers control out of
// the enclosing statement list (a bare return/break/continue; an if
// whose every branch terminates).
func terminates(s parser.Stmt) bool {
	switch n := s.(type) {
	case *parser.Return, *parser.Break, *parser.Continue:
		return true
	case *parser.If:
		if n.Else == nil {
			return false
		}
		return blockTerminates(n.Then) && terminates(n.Else)
	case *parser.Block:
		return blockTerminates(n)
	}
	return false
}

func blockTerminates(b *parser.Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	return terminates(b.Stmts[len(b.Stmts)-1])
}

func hasMore(all []parser.Stmt, cur parser.Stmt) bool {
	for i, s := range all {
		if s == cur {
			return i < len(all)-1
		}
	}
	return false
}

func (dce *DeadCodeElimination) pruneOne(s parser.Stmt, changed *bool) parser.Stmt {
	switch n := s.(type) {
	case *parser.Block:
		cp := *n
		cp.Stmts = dce.prune(n.Stmts, changed)
		return &cp
	case *parser.If:
		cp := *n
		cp.Then = &parser.Block{Stmts: dce.prune(n.Then.Stmts, changed)}
		if n.Else != nil {
			cp.Else = dce.pruneOne(n.Else, changed)
		}
		return &cp
	case *parser.While:
		cp := *n
		cp.Body = &parser.Block{Stmts: dce.prune(n.Body.Stmts, changed)}
		return &cp
	case *parser.For:
		cp := *n
		cp.Body = &parser.Block{Stmts: dce.prune(n.Body.Stmts, changed)}
		return &cp
	case *parser.Function:
		cp := *n
		cp.Body = dce.prune(n.Body, changed)
		return &cp
	case *parser.Class:
		cp := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = dce.pruneOne(m, changed).(*parser.Function)
		}
		cp.Methods = methods
		return &cp
	case *parser.Export:
		cp := *n
		cp.Decl = dce.pruneOne(n.Decl, changed)
		return &cp
	case *parser.Try:
		cp := *n
		cp.Body = &parser.Block{Stmts: dce.prune(n.Body.Stmts, changed)}
		if n.CatchBody != nil {
			cp.CatchBody = &parser.Block{Stmts: dce.prune(n.CatchBody.Stmts, changed)}
		}
		if n.FinallyBody != nil {
			cp.FinallyBody = &parser.Block{Stmts: dce.prune(n.FinallyBody.Stmts, changed)}
		}
		return &cp
	default:
		return s
	}
}
