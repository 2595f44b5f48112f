package optimizer

import (
	"math"

	"thorn/internal/parser"
	"thorn/internal/value"
)

// ConstantFolding evaluates binary/unary/logical expressions whose
// operands are both literals at optimization time, replacing the node
// with the literal result (spec §4.7, O1). Division and modulo by a
// literal zero are left unfolded: spec §4.3 requires those to produce
// a Result::Error at run time, not a compile-time abort.
type ConstantFolding struct{}

func (*ConstantFolding) Name() string { return "constant-folding" }
func (*ConstantFolding) Description() string {
	return "evaluates literal arithmetic, comparison, and logical expressions at compile time"
}

func (cf *ConstantFolding) Apply(stmts []parser.Stmt) ([]parser.Stmt, bool) {
	changed := false
	out := transformStmts(stmts, func(e parser.Expr) parser.Expr {
		folded, ok := cf.fold(e)
		if ok {
			changed = true
			return folded
		}
		return e
	})
	return out, changed
}

func (cf *ConstantFolding) fold(e parser.Expr) (parser.Expr, bool) {
	switch n := e.(type) {
	case *parser.Grouping:
		if lit, ok := n.Inner.(*parser.Literal); ok {
			return parser.NewLiteral(n.Span(), lit.Value), true
		}
	case *parser.Unary:
		lit, ok := n.Operand.(*parser.Literal)
		if !ok {
			return nil, false
		}
		switch n.Operator {
		case "-":
			num, ok := lit.Value.(float64)
			if !ok {
				return nil, false
			}
			return parser.NewLiteral(n.Span(), -num), true
		case "!":
			return parser.NewLiteral(n.Span(), !value.Truthy(asValue(lit.Value))), true
		}
	case *parser.Binary:
		left, lok := n.Left.(*parser.Literal)
		right, rok := n.Right.(*parser.Literal)
		if !lok || !rok {
			return nil, false
		}
		if (n.Operator == "/" || n.Operator == "%") && right.Value == 0.0 {
			return nil, false
		}
		res, ok := foldBinary(n.Operator, left.Value, right.Value)
		if !ok {
			return nil, false
		}
		return parser.NewLiteral(n.Span(), res), true
	case *parser.Logical:
		left, lok := n.Left.(*parser.Literal)
		if !lok {
			return nil, false
		}
		lt := truthyOf(left.Value)
		switch n.Operator {
		case "&&":
			if !lt {
				return parser.NewLiteral(n.Span(), false), true
			}
			if right, ok := n.Right.(*parser.Literal); ok {
				return parser.NewLiteral(n.Span(), truthyOf(right.Value)), true
			}
		case "||":
			if lt {
				return parser.NewLiteral(n.Span(), true), true
			}
			if right, ok := n.Right.(*parser.Literal); ok {
				return parser.NewLiteral(n.Span(), truthyOf(right.Value)), true
			}
		}
	}
	return nil, false
}

func truthyOf(v interface{}) bool {
	return value.Truthy(asValue(v))
}

// foldBinary evaluates a binary op over two literal payloads using
// plain Go arithmetic/comparison, mirroring internal/eval's binaryOp
// semantics (spec §4.3) for the literal-only case.
func foldBinary(op string, l, r interface{}) (interface{}, bool) {
	switch op {
	case "+":
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, true
			}
			return nil, false
		}
		ln, lok := l.(float64)
		rn, rok := r.(float64)
		if lok && rok {
			return ln + rn, true
		}
	case "-", "*", "/", "%", "**":
		ln, lok := l.(float64)
		rn, rok := r.(float64)
		if !lok || !rok {
			return nil, false
		}
		switch op {
		case "-":
			return ln - rn, true
		case "*":
			return ln * rn, true
		case "/":
			return ln / rn, true
		case "%":
			return math.Mod(ln, rn), true
		case "**":
			return math.Pow(ln, rn), true
		}
	case "==", "!=":
		eq := value.Equals(asValue(l), asValue(r))
		if op == "==" {
			return eq, true
		}
		return !eq, true
	case "<", "<=", ">", ">=":
		lt, comparable := value.LessThan(asValue(l), asValue(r))
		if !comparable {
			return nil, false
		}
		eq := value.Equals(asValue(l), asValue(r))
		switch op {
		case "<":
			return lt, true
		case "<=":
			return lt || eq, true
		case ">":
			return !lt && !eq, true
		case ">=":
			return !lt, true
		}
	}
	return nil, false
}
