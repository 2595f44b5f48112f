// Overload dispatch (spec §4.5), the VM's counterpart to
// internal/eval/dispatch.go. Scoring follows the same table, reading a
// compiled ParamType off a *compiler.FunctionProto instead of a
// *parser.Param off a *parser.Function, since the VM never holds onto the
// AST. The scoring parallels eval's so both backends choose the same
// overload for the same arguments (spec §8 property 2, "backend
// equivalence"); the no-match error text differs, listing each overload
// as name/arity rather than name(params).
package vm

import (
	"fmt"
	"strings"

	"thorn/internal/compiler"
	"thorn/internal/value"
)

func selectOverload(overloads []value.Value, args []value.Value) (value.Value, error) {
	type candidate struct {
		fn    value.Value
		score int
	}
	var candidates []candidate
	for _, o := range overloads {
		closure, ok := o.(*Closure)
		if !ok {
			if arityOf(o) == len(args) {
				candidates = append(candidates, candidate{fn: o, score: 0})
			}
			continue
		}
		if closure.Proto.Arity != len(args) {
			continue
		}
		score := scoreParams(closure.Proto.ParamTypes, args)
		if score < 0 {
			continue
		}
		candidates = append(candidates, candidate{fn: o, score: score})
	}
	best := -1 << 31
	var bestFn value.Value
	found := false
	for _, c := range candidates {
		if c.score >= best {
			best = c.score
			bestFn = c.fn
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("no overload matches %d argument(s); candidates: %s", len(args), describeOverloads(overloads))
	}
	return bestFn, nil
}

func arityOf(v value.Value) int {
	switch fn := v.(type) {
	case *NativeFunction:
		return fn.Arity
	case *BoundMethod:
		return fn.Method.Proto.Arity
	default:
		return -1
	}
}

func scoreParams(params []compiler.ParamType, args []value.Value) int {
	total := 0
	for i, p := range params {
		total += scoreOne(p, args[i])
	}
	return total
}

func scoreOne(p compiler.ParamType, arg value.Value) int {
	_, isNull := arg.(value.Null)
	if p.Kind == "" {
		if isNull {
			return 10 + 30
		}
		return 10
	}
	if isNull && isNonPrimitive(p.Kind) {
		return 50
	}
	if p.Kind == "Any" {
		return 50
	}
	if kindMatches(p, arg) {
		return 100
	}
	return -1000
}

func isNonPrimitive(kind string) bool {
	switch kind {
	case "Array", "Dict", "Function", "Class", "Alias":
		return true
	default:
		return false
	}
}

func kindMatches(p compiler.ParamType, arg value.Value) bool {
	switch p.Kind {
	case "number":
		return arg.Kind() == value.KindNumber
	case "string":
		return arg.Kind() == value.KindString
	case "boolean":
		return arg.Kind() == value.KindBool
	case "null":
		return arg.Kind() == value.KindNull
	case "Array":
		return arg.Kind() == value.KindList
	case "Dict":
		return arg.Kind() == value.KindDict
	case "Function":
		return arg.Kind() == value.KindFunction
	case "Class":
		return arg.Kind() == value.KindClass
	case "Alias":
		inst, ok := arg.(*Instance)
		return ok && inst.Class.Name == p.Name
	default:
		return false
	}
}

func describeOverloads(overloads []value.Value) string {
	var parts []string
	for _, o := range overloads {
		if c, ok := o.(*Closure); ok {
			parts = append(parts, fmt.Sprintf("%s/%d", c.Proto.Name, c.Proto.Arity))
			continue
		}
		parts = append(parts, o.String())
	}
	return strings.Join(parts, "; ")
}
