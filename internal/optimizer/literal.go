package optimizer

import "thorn/internal/value"

// asValue converts a parsed Literal's Go-native payload (nil, bool,
// float64, or string, per parser.Literal's doc comment) into a
// value.Value so constant folding can reuse the same arithmetic and
// comparison semantics the runtime uses (spec §4.3), rather than
// re-deriving them.
func asValue(lit interface{}) value.Value {
	switch v := lit.(type) {
	case nil:
		return value.Null{}
	case bool:
		return value.Bool(v)
	case float64:
		return value.Number(v)
	case string:
		return value.String(v)
	default:
		return nil
	}
}

// fromValue is asValue's inverse, for writing a folded result back
// into a parser.Literal. Returns ok=false for a value kind a Literal
// node cannot represent (lists, dicts, functions, instances, results),
// meaning the fold must be abandoned.
func fromValue(v value.Value) (interface{}, bool) {
	switch x := v.(type) {
	case value.Null:
		return nil, true
	case value.Bool:
		return bool(x), true
	case value.Number:
		return float64(x), true
	case value.String:
		return string(x), true
	default:
		return nil, false
	}
}
