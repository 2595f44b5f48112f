// Package builtins implements the built-in list/dict/string methods
// described in spec §4.9 ("Built-in methods"): length, push, pop, shift,
// unshift, includes, indexOf, slice for lists; keys, values, has, size,
// remove, get, set for dicts; length for strings. Both the tree evaluator
// (internal/eval) and the virtual machine (internal/vm) call these, so
// the method tables and error formatting stay identical across backends
// (spec §8 property 2, "backend equivalence").
package builtins

import (
	"fmt"

	thornerrors "thorn/internal/errors"
	"thorn/internal/value"
)

// Method is a bound built-in callable; Arity of -1 accepts any count
// (list push/unshift/slice, and dict's get, which takes 1 or 2 args).
type Method struct {
	Name  string
	Arity int
	Call  func(args []value.Value) (value.Value, *thornerrors.ThornError)
}

func typeErr(format string, a ...interface{}) *thornerrors.ThornError {
	return thornerrors.New(thornerrors.TypeError, fmt.Sprintf(format, a...), thornerrors.Location{})
}

func boundsErr(format string, a ...interface{}) *thornerrors.ThornError {
	return thornerrors.New(thornerrors.BoundsError, fmt.Sprintf(format, a...), thornerrors.Location{})
}

// ListMethodNames returns list method names in the order spec §4.9 lists
// them (used for "available: ..." diagnostics on an unknown property).
func ListMethodNames() []string {
	return []string{"length", "push", "pop", "shift", "unshift", "includes", "indexOf", "slice"}
}

func DictMethodNames() []string {
	return []string{"keys", "values", "has", "size", "remove", "get", "set"}
}

func StringMethodNames() []string {
	return []string{"length"}
}

// ListMethod resolves a list's built-in property by name.
func ListMethod(l *value.List, name string) (Method, bool) {
	switch name {
	case "length":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.Number(len(l.Elements)), nil
		}}, true
	case "push":
		return Method{Name: name, Arity: -1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			l.Elements = append(l.Elements, args...)
			return value.Number(len(l.Elements)), nil
		}}, true
	case "pop":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			if len(l.Elements) == 0 {
				return nil, boundsErr("pop on empty list")
			}
			last := l.Elements[len(l.Elements)-1]
			l.Elements = l.Elements[:len(l.Elements)-1]
			return last, nil
		}}, true
	case "shift":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			if len(l.Elements) == 0 {
				return nil, boundsErr("shift on empty list")
			}
			first := l.Elements[0]
			l.Elements = l.Elements[1:]
			return first, nil
		}}, true
	case "unshift":
		return Method{Name: name, Arity: -1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			l.Elements = append(append([]value.Value{}, args...), l.Elements...)
			return value.Number(len(l.Elements)), nil
		}}, true
	case "includes":
		return Method{Name: name, Arity: 1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			for _, e := range l.Elements {
				if value.Equals(e, args[0]) {
					return value.Bool(true), nil
				}
			}
			return value.Bool(false), nil
		}}, true
	case "indexOf":
		return Method{Name: name, Arity: 1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			for i, e := range l.Elements {
				if value.Equals(e, args[0]) {
					return value.Number(i), nil
				}
			}
			return value.Number(-1), nil
		}}, true
	case "slice":
		return Method{Name: name, Arity: -1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			var start, end *int
			if len(args) > 0 {
				n, ok := args[0].(value.Number)
				if !ok {
					return nil, typeErr("slice start must be a number")
				}
				i := int(n)
				start = &i
			}
			if len(args) > 1 {
				n, ok := args[1].(value.Number)
				if !ok {
					return nil, typeErr("slice end must be a number")
				}
				i := int(n)
				end = &i
			}
			s, e := value.NormalizeSlice(start, end, len(l.Elements))
			return value.NewList(append([]value.Value{}, l.Elements[s:e]...)), nil
		}}, true
	default:
		return Method{}, false
	}
}

func DictMethod(d *value.Dict, name string) (Method, bool) {
	switch name {
	case "keys":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.NewList(d.Keys()), nil
		}}, true
	case "values":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.NewList(d.Values()), nil
		}}, true
	case "has":
		return Method{Name: name, Arity: 1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.Bool(d.Has(args[0])), nil
		}}, true
	case "size":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.Number(d.Size()), nil
		}}, true
	case "remove":
		return Method{Name: name, Arity: 1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.Bool(d.Remove(args[0])), nil
		}}, true
	case "get":
		return Method{Name: name, Arity: -1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			if len(args) == 0 {
				return nil, typeErr("get requires a key argument")
			}
			if v, ok := d.Get(args[0]); ok {
				return v, nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return value.Null{}, nil
		}}, true
	case "set":
		return Method{Name: name, Arity: 2, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			d.Set(args[0], args[1])
			return value.Null{}, nil
		}}, true
	default:
		return Method{}, false
	}
}

func StringMethod(s value.String, name string) (Method, bool) {
	switch name {
	case "length":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.Number(len([]rune(string(s)))), nil
		}}, true
	default:
		return Method{}, false
	}
}

// ResultMethodNames lists the Result helpers from spec §3: "exposes
// helpers is_ok(), is_error(), unwrap_or(default)".
func ResultMethodNames() []string {
	return []string{"is_ok", "is_error", "unwrap_or"}
}

// ResultMethod resolves a Result's built-in property by name (spec §3).
func ResultMethod(r *value.Result, name string) (Method, bool) {
	switch name {
	case "is_ok":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.Bool(r.IsOk()), nil
		}}, true
	case "is_error":
		return Method{Name: name, Arity: 0, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return value.Bool(r.IsError), nil
		}}, true
	case "unwrap_or":
		return Method{Name: name, Arity: 1, Call: func(args []value.Value) (value.Value, *thornerrors.ThornError) {
			return r.UnwrapOr(args[0]), nil
		}}, true
	default:
		return Method{}, false
	}
}
