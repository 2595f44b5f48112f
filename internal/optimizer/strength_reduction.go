package optimizer

import "thorn/internal/parser"

// StrengthReduction rewrites arithmetic with an identity or
// annihilator operand into a cheaper equivalent form, even when the
// other operand isn't a literal (spec §4.7, O2): x+0, x-0, x*1, 1*x,
// x/1 collapse to x; x*0 and 0*x collapse to 0; x**2 becomes x*x for a
// side-effect-free operand.
type StrengthReduction struct{}

func (*StrengthReduction) Name() string { return "strength-reduction" }
func (*StrengthReduction) Description() string {
	return "replaces arithmetic with identity/annihilator operands by a cheaper equivalent"
}

func (sr *StrengthReduction) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := transformStmts(stmts, func(e parser.Expr) parser.Expr {
		if reduced, ok := sr.reduce(e); ok {
			changed = true
			return reduced
		}
		return e
	})
	return out, changed
}

func numberLit(e parser.Expr) (float64, bool) {
	lit, ok := e.(*parser.Literal)
	if !ok {
		return 0, false
	}
	n, ok := lit.Value.(float64)
	return n, ok
}

// pureOperand reports whether duplicating e (for x**2 => x*x) cannot
// duplicate a side effect: only true for variable reads and literals.
func pureOperand(e parser.Expr) bool {
	switch e.(type) {
	case *parser.Variable, *parser.Literal:
		return true
	default:
		return false
	}
}

func (sr *StrengthReduction) reduce(e parser.Expr) (parser.Expr, bool) {
	n, ok := e.(*parser.Binary)
	if !ok {
		return nil, false
	}
	lnum, lok := numberLit(n.Left)
	rnum, rok := numberLit(n.Right)
	switch n.Operator {
	case "+":
		if rok && rnum == 0 {
			return n.Left, true
		}
		if lok && lnum == 0 {
			return n.Right, true
		}
	case "-":
		if rok && rnum == 0 {
			return n.Left, true
		}
	case "*":
		if rok && rnum == 1 {
			return n.Left, true
		}
		if lok && lnum == 1 {
			return n.Right, true
		}
		if (rok && rnum == 0) || (lok && lnum == 0) {
			return parser.NewLiteral(n.Span(), 0.0), true
		}
	case "/":
		if rok && rnum == 1 {
			return n.Left, true
		}
	case "**":
		if rok && rnum == 1 {
			return n.Left, true
		}
		if rok && rnum == 2 && pureOperand(n.Left) {
			return &parser.Binary{Left: n.Left, Operator: "*", Right: n.Left}, true
		}
	}
	return nil, false
}
