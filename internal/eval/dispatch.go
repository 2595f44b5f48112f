// Overload dispatch (spec §4.5): given a FunctionGroup's overloads and a
// concrete argument list, pick the best match by arity then a per-
// parameter type score. Used by internal/eval; internal/vm/dispatch.go
// holds a parallel copy of the same scoring for the VM's CALL opcode.
package eval

import (
	"fmt"
	"strings"

	"thorn/internal/environment"
	"thorn/internal/parser"
	"thorn/internal/value"
)

// SelectOverload is selectOverload exported. internal/vm does not call
// it; the VM uses its own selectOverload in internal/vm/dispatch.go.
func SelectOverload(overloads []value.Value, args []value.Value) (value.Value, error) {
	return selectOverload(overloads, args)
}

func selectOverload(overloads []value.Value, args []value.Value) (value.Value, error) {
	type candidate struct {
		idx   int
		fn    value.Value
		score int
	}
	var candidates []candidate
	for i, o := range overloads {
		closure, ok := o.(*environment.Closure)
		if !ok {
			// A native function or bound method in a group is scored by
			// arity only (no parameter type annotations to inspect).
			if arityOf(o) == len(args) {
				candidates = append(candidates, candidate{idx: i, fn: o, score: 0})
			}
			continue
		}
		params := closure.Params()
		if len(params) != len(args) {
			continue
		}
		score := scoreParams(params, args)
		candidates = append(candidates, candidate{idx: i, fn: o, score: score})
	}
	best := -1
	var bestFn value.Value
	bestScore := -1 << 31
	for _, c := range candidates {
		if c.score < 0 {
			continue
		}
		// last-defined wins ties: >= so later candidates overwrite on a tie.
		if c.score >= bestScore {
			bestScore = c.score
			bestFn = c.fn
			best = c.idx
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("no overload matches %d argument(s); candidates: %s", len(args), describeOverloads(overloads))
	}
	return bestFn, nil
}

func arityOf(v value.Value) int {
	switch fn := v.(type) {
	case *environment.NativeFunction:
		return fn.Arity
	case *environment.BoundMethod:
		return len(fn.Method.Params())
	default:
		return -1
	}
}

// scoreParams implements spec §4.5's per-parameter scoring table.
func scoreParams(params []parser.Param, args []value.Value) int {
	total := 0
	for i, p := range params {
		total += scoreOne(p, args[i])
	}
	return total
}

func scoreOne(p parser.Param, arg value.Value) int {
	_, isNull := arg.(value.Null)
	if p.Type == nil {
		if isNull {
			return 10 + 30
		}
		return 10
	}
	if isNull && isNonPrimitive(p.Type) {
		return 50
	}
	if p.Type.Kind == "Any" {
		return 50
	}
	if kindMatches(p.Type, arg) {
		return 100
	}
	return -1000
}

func isNonPrimitive(t *parser.TypeAnnot) bool {
	switch t.Kind {
	case "Array", "Dict", "Function", "Class", "Alias":
		return true
	default:
		return false
	}
}

func kindMatches(t *parser.TypeAnnot, arg value.Value) bool {
	switch t.Kind {
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
		inst, ok := arg.(*environment.Instance)
		return ok && inst.Class.Name == t.Name
	default:
		return false
	}
}

func describeOverloads(overloads []value.Value) string {
	var parts []string
	for _, o := range overloads {
		if c, ok := o.(*environment.Closure); ok {
			names := make([]string, len(c.Params()))
			for i, p := range c.Params() {
				names[i] = p.Name
			}
			parts = append(parts, fmt.Sprintf("%s(%s)", c.Name(), strings.Join(names, ", ")))
			continue
		}
		parts = append(parts, o.String())
	}
	return strings.Join(parts, "; ")
}
