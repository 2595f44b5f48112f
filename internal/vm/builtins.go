package vm

import (
	"thorn/internal/builtins"
	"thorn/internal/value"
)

// builtinProperty mirrors internal/eval's function of the same name
// byte-for-byte (spec §8 property 2, "backend equivalence"): both
// backends must resolve a list/dict/string/Result property to the exact
// same bound native.
func builtinProperty(obj value.Value, name string) (value.Value, bool) {
	switch c := obj.(type) {
	case *value.List:
		m, ok := builtins.ListMethod(c, name)
		if !ok {
			return nil, false
		}
		return &NativeFunction{FnName: name, Arity: m.Arity, Fn: m.Call}, true
	case *value.Dict:
		m, ok := builtins.DictMethod(c, name)
		if !ok {
			return nil, false
		}
		return &NativeFunction{FnName: name, Arity: m.Arity, Fn: m.Call}, true
	case value.String:
		m, ok := builtins.StringMethod(c, name)
		if !ok {
			return nil, false
		}
		return &NativeFunction{FnName: name, Arity: m.Arity, Fn: m.Call}, true
	case *value.Result:
		m, ok := builtins.ResultMethod(c, name)
		if !ok {
			return nil, false
		}
		return &NativeFunction{FnName: name, Arity: m.Arity, Fn: m.Call}, true
	default:
		return nil, false
	}
}

func builtinPropertyNames(obj value.Value) []string {
	switch obj.(type) {
	case *value.List:
		return builtins.ListMethodNames()
	case *value.Dict:
		return builtins.DictMethodNames()
	case value.String:
		return builtins.StringMethodNames()
	case *value.Result:
		return builtins.ResultMethodNames()
	default:
		return nil
	}
}
