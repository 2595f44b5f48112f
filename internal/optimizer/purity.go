package optimizer

import (
	"strconv"

	"thorn/internal/parser"
)

// isPure reports whether evaluating e cannot perform an observable side
// effect (spec §4.7: "purity is approximated conservatively: calls to
// unknown functions are assumed impure"). Shared by the passes that hoist
// or duplicate expressions (CSE, loop-invariant motion, strength
// reduction's x**2 rewrite already has its own narrower pureOperand).
func isPure(e parser.Expr) bool {
	switch n := e.(type) {
	case nil:
		return true
	case *parser.Literal, *parser.Variable, *parser.This:
		return true
	case *parser.Grouping:
		return isPure(n.Inner)
	case *parser.Unary:
		return isPure(n.Operand)
	case *parser.Binary:
		return isPure(n.Left) && isPure(n.Right)
	case *parser.Logical:
		return isPure(n.Left) && isPure(n.Right)
	case *parser.Index:
		return isPure(n.Object) && isPure(n.Key)
	case *parser.Slice:
		return isPure(n.Object) && isPure(n.Start) && isPure(n.End)
	case *parser.ListExpr:
		for _, el := range n.Elements {
			if !isPure(el) {
				return false
			}
		}
		return true
	case *parser.Dict:
		for i := range n.Keys {
			if !isPure(n.Keys[i]) || !isPure(n.Values[i]) {
				return false
			}
		}
		return true
	default:
		// Call, Get (property access can run a getter-like native), Set,
		// Assign, IndexSet, Lambda, Match: assumed impure or order-sensitive.
		return false
	}
}

// exprKey produces a structural string key for e so equal-looking pure
// expressions can be recognized as the same computation (CSE) or the
// same loop-invariant candidate (LICM). Returns ok=false for anything
// isPure would already reject, since those are never hoisted/reused.
func exprKey(e parser.Expr) (string, bool) {
	if !isPure(e) {
		return "", false
	}
	return exprKeyUnchecked(e), true
}

func exprKeyUnchecked(e parser.Expr) string {
	switch n := e.(type) {
	case *parser.Literal:
		return literalKey(n.Value)
	case *parser.Variable:
		return "var:" + n.Name
	case *parser.This:
		return "this"
	case *parser.Grouping:
		return exprKeyUnchecked(n.Inner)
	case *parser.Unary:
		return "u(" + n.Operator + "," + exprKeyUnchecked(n.Operand) + ")"
	case *parser.Binary:
		return "b(" + n.Operator + "," + exprKeyUnchecked(n.Left) + "," + exprKeyUnchecked(n.Right) + ")"
	case *parser.Logical:
		return "l(" + n.Operator + "," + exprKeyUnchecked(n.Left) + "," + exprKeyUnchecked(n.Right) + ")"
	case *parser.Index:
		return "i(" + exprKeyUnchecked(n.Object) + "," + exprKeyUnchecked(n.Key) + ")"
	default:
		return ""
	}
}

func literalKey(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "lit:null"
	case bool:
		if t {
			return "lit:true"
		}
		return "lit:false"
	case float64:
		return "lit:n:" + floatKey(t)
	case string:
		return "lit:s:" + t
	default:
		return "lit:?"
	}
}

func floatKey(f float64) string {
	return strconv.FormatFloat(f, 'x', -1, 64)
}
