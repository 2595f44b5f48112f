package optimizer

import "thorn/internal/parser"

// exprFn rewrites one expression node after its children have already
// been rewritten (post-order), returning the (possibly new) node.
type exprFn func(parser.Expr) parser.Expr

// transformExpr recurses into e's children, rewrites each with f, then
// rebuilds e from the rewritten children and applies f to the result.
// Every pass that only needs to rewrite expressions (constant folding,
// strength reduction, CSE's use-site rewrite) is built on this.
func transformExpr(e parser.Expr, f exprFn) parser.Expr {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *parser.Literal, *parser.Variable, *parser.This:
		return f(e)
	case *parser.Assign:
		cp := *n
		cp.Value = transformExpr(n.Value, f)
		return f(&cp)
	case *parser.Binary:
		cp := *n
		cp.Left = transformExpr(n.Left, f)
		cp.Right = transformExpr(n.Right, f)
		return f(&cp)
	case *parser.Unary:
		cp := *n
		cp.Operand = transformExpr(n.Operand, f)
		return f(&cp)
	case *parser.Logical:
		cp := *n
		cp.Left = transformExpr(n.Left, f)
		cp.Right = transformExpr(n.Right, f)
		return f(&cp)
	case *parser.Call:
		cp := *n
		cp.Callee = transformExpr(n.Callee, f)
		args := make([]parser.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = transformExpr(a, f)
		}
		cp.Args = args
		return f(&cp)
	case *parser.Get:
		cp := *n
		cp.Object = transformExpr(n.Object, f)
		return f(&cp)
	case *parser.Set:
		cp := *n
		cp.Object = transformExpr(n.Object, f)
		cp.Value = transformExpr(n.Value, f)
		return f(&cp)
	case *parser.Index:
		cp := *n
		cp.Object = transformExpr(n.Object, f)
		cp.Key = transformExpr(n.Key, f)
		return f(&cp)
	case *parser.IndexSet:
		cp := *n
		cp.Object = transformExpr(n.Object, f)
		cp.Key = transformExpr(n.Key, f)
		cp.Value = transformExpr(n.Value, f)
		return f(&cp)
	case *parser.Slice:
		cp := *n
		cp.Object = transformExpr(n.Object, f)
		cp.Start = transformExpr(n.Start, f)
		cp.End = transformExpr(n.End, f)
		return f(&cp)
	case *parser.Grouping:
		cp := *n
		cp.Inner = transformExpr(n.Inner, f)
		return f(&cp)
	case *parser.Lambda:
		cp := *n
		cp.Body = transformStmts(n.Body, f)
		return f(&cp)
	case *parser.ListExpr:
		cp := *n
		elems := make([]parser.Expr, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = transformExpr(el, f)
		}
		cp.Elements = elems
		return f(&cp)
	case *parser.Dict:
		cp := *n
		keys := make([]parser.Expr, len(n.Keys))
		vals := make([]parser.Expr, len(n.Values))
		for i := range n.Keys {
			keys[i] = transformExpr(n.Keys[i], f)
			vals[i] = transformExpr(n.Values[i], f)
		}
		cp.Keys, cp.Values = keys, vals
		return f(&cp)
	case *parser.Match:
		cp := *n
		cp.Scrutinee = transformExpr(n.Scrutinee, f)
		arms := make([]parser.MatchArm, len(n.Arms))
		for i, arm := range n.Arms {
			arm.Guard = transformExpr(arm.Guard, f)
			arm.Body = transformStmts(arm.Body, f)
			arms[i] = arm
		}
		cp.Arms = arms
		return f(&cp)
	default:
		return f(e)
	}
}

// transformStmt rewrites every expression reachable from s with f,
// recursing into nested statement lists (block bodies, branches, loop
// bodies, function/method/lambda bodies).
func transformStmt(s parser.Stmt, f exprFn) parser.Stmt {
	switch n := s.(type) {
	case *parser.ExpressionStmt:
		cp := *n
		cp.Expr = transformExpr(n.Expr, f)
		return &cp
	case *parser.Var:
		cp := *n
		cp.Initializer = transformExpr(n.Initializer, f)
		return &cp
	case *parser.Block:
		cp := *n
		cp.Stmts = transformStmts(n.Stmts, f)
		return &cp
	case *parser.If:
		cp := *n
		cp.Condition = transformExpr(n.Condition, f)
		cp.Then = transformStmt(n.Then, f).(*parser.Block)
		if n.Else != nil {
			cp.Else = transformStmt(n.Else, f)
		}
		return &cp
	case *parser.While:
		cp := *n
		cp.Condition = transformExpr(n.Condition, f)
		cp.Body = transformStmt(n.Body, f).(*parser.Block)
		return &cp
	case *parser.For:
		cp := *n
		cp.Iterable = transformExpr(n.Iterable, f)
		cp.Body = transformStmt(n.Body, f).(*parser.Block)
		return &cp
	case *parser.Function:
		cp := *n
		cp.Body = transformStmts(n.Body, f)
		return &cp
	case *parser.Return:
		cp := *n
		cp.Value = transformExpr(n.Value, f)
		return &cp
	case *parser.Class:
		cp := *n
		methods := make([]*parser.Function, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = transformStmt(m, f).(*parser.Function)
		}
		cp.Methods = methods
		return &cp
	case *parser.Export:
		cp := *n
		cp.Decl = transformStmt(n.Decl, f)
		return &cp
	case *parser.Try:
		cp := *n
		cp.Body = transformStmt(n.Body, f).(*parser.Block)
		if n.CatchBody != nil {
			cp.CatchBody = transformStmt(n.CatchBody, f).(*parser.Block)
		}
		if n.FinallyBody != nil {
			cp.FinallyBody = transformStmt(n.FinallyBody, f).(*parser.Block)
		}
		return &cp
	default:
		return s
	}
}

func transformStmts(stmts []parser.Stmt, f exprFn) []parser.Stmt {
	out := make([]parser.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = transformStmt(s, f)
	}
	return out
}

// walkStmts calls visit on every statement in the tree (pre-order,
// including nested bodies), for passes that need to observe structure
// rather than rewrite expressions (dead code elimination, inlining).
func walkStmts(stmts []parser.Stmt, visit func(parser.Stmt)) {
	for _, s := range stmts {
		visit(s)
		switch n := s.(type) {
		case *parser.Block:
			walkStmts(n.Stmts, visit)
		case *parser.If:
			walkStmts(n.Then.Stmts, visit)
			if n.Else != nil {
				walkStmts([]parser.Stmt{n.Else}, visit)
			}
		case *parser.While:
			walkStmts(n.Body.Stmts, visit)
		case *parser.For:
			walkStmts(n.Body.Stmts, visit)
		case *parser.Function:
			walkStmts(n.Body, visit)
		case *parser.Class:
			for _, m := range n.Methods {
				walkStmts(m.Body, visit)
			}
		case *parser.Export:
			walkStmts([]parser.Stmt{n.Decl}, visit)
		case *parser.Try:
			walkStmts(n.Body.Stmts, visit)
			if n.CatchBody != nil {
				walkStmts(n.CatchBody.Stmts, visit)
			}
			if n.FinallyBody != nil {
				walkStmts(n.FinallyBody.Stmts, visit)
			}
		}
	}
}
