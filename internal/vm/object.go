// Package vm is Thorn's register-based bytecode virtual machine (spec
// §4.9, component H of spec §2), executing a *compiler.Program produced
// by internal/compiler. It is grounded on the teacher's
// internal/vmregister/vm.go: a call-frame stack addressing a per-frame
// register file, open/closed upvalues for closures, and a recover-at-
// the-frame-boundary convention for aborts — adapted here to the
// current AST/value model and with the teacher's JIT and native-stdlib
// machinery left out (spec §1 Non-goals: no JIT or native code
// generation).
package vm

import (
	"fmt"

	"thorn/internal/compiler"
	"thorn/internal/environment"
	"thorn/internal/value"
)

// Upvalue is a variable captured by a closure from an enclosing call
// frame (spec §4.9). Open, it aliases a live register in the frame that
// declared it, so later writes from either side are observed by the
// other. Close snapshots the current value; the VM never calls it, since
// a returned frame's register slice stays alive for as long as an
// upvalue references it.
type Upvalue struct {
	stack  []value.Value
	index  int
	closed *value.Value
}

func (u *Upvalue) Get() value.Value {
	if u.closed != nil {
		return *u.closed
	}
	return u.stack[u.index]
}

func (u *Upvalue) Set(v value.Value) {
	if u.closed != nil {
		*u.closed = v
		return
	}
	u.stack[u.index] = v
}

func (u *Upvalue) Close() {
	if u.closed == nil {
		v := u.stack[u.index]
		u.closed = &v
	}
}

// Closure is a compiled function value plus the upvalues it captured at
// creation time (spec §3 Closure, compiled form).
type Closure struct {
	Proto  *compiler.FunctionProto
	Upvals []*Upvalue
}

func (*Closure) Kind() value.Kind { return value.KindFunction }
func (c *Closure) String() string { return fmt.Sprintf("<function %s>", c.Proto.Name) }

// BoundMethod is produced by instance.method property access (spec
// §4.6); calling it installs Receiver as `this` for the call.
type BoundMethod struct {
	Receiver *Instance
	Method   *Closure
}

func (*BoundMethod) Kind() value.Kind { return value.KindFunction }
func (b *BoundMethod) String() string { return fmt.Sprintf("<bound method %s>", b.Method.Proto.Name) }

// Class holds a compiled method table (spec §3 Class).
type Class struct {
	Name       string
	Methods    map[string]*Closure
	TypeParams []string
}

func (*Class) Kind() value.Kind  { return value.KindClass }
func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

func (c *Class) FindMethod(name string) (*Closure, bool) {
	m, ok := c.Methods[name]
	return m, ok
}

// Instance holds a class reference and a field map (spec §3 Instance).
// Fields reuses internal/environment's scope type purely as an ordered
// name->value store; the VM never chains it to a parent, so Environment's
// generic Define/Get/Assign give instance fields the exact same
// shadow/overwrite behavior the tree evaluator gets from the same type.
type Instance struct {
	Class  *Class
	Fields *environment.Environment
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: environment.New(nil)}
}

func (*Instance) Kind() value.Kind  { return value.KindInstance }
func (i *Instance) String() string { return fmt.Sprintf("<instance %s>", i.Class.Name) }

func (i *Instance) GetField(name string) (value.Value, bool) {
	if v, ok := i.Fields.Get(name); ok {
		return v, true
	}
	if m, ok := i.Class.FindMethod(name); ok {
		return &BoundMethod{Receiver: i, Method: m}, true
	}
	return value.Null{}, false
}

func (i *Instance) SetField(name string, val value.Value) {
	i.Fields.Define(name, val, false)
}

// FunctionGroup overload sets reuse internal/environment's type directly:
// it is already just a []value.Value slice with no AST dependency, so
// both backends share one representation, each scored by its own
// parallel overload selector (spec §8 property 2). See
// internal/vm/dispatch.go.
type FunctionGroup = environment.FunctionGroup

// NativeFunction values also come straight from internal/environment
// (spec §3: "native registry entry" is backend-agnostic by construction);
// internal/native registers the same *environment.NativeFunction values
// into both the tree evaluator's globals and the VM's globals.
type NativeFunction = environment.NativeFunction
