// Package environment implements Thorn's lexical scope chain (spec §4.4)
// and the runtime object types that close over it: closures, classes,
// instances, bound methods, and function groups (spec §3, §4.5, §4.6).
// These live here rather than in internal/value because they reference
// the AST (internal/parser) and the scope chain itself, and
// internal/value must stay free of both to avoid an import cycle.
package environment

import (
	"fmt"
	"strings"

	thornerrors "thorn/internal/errors"
	"thorn/internal/parser"
	"thorn/internal/value"
)

type binding struct {
	val       value.Value
	immutable bool
}

// Environment is an ordered name->(value,immutable) association with an
// optional parent (spec §4.4). Scopes are created for: module,
// function/lambda bodies, class bodies, each block, each for-iteration
// variable, and each match arm's bindings.
type Environment struct {
	vars   map[string]*binding
	order  []string
	parent *Environment
	// exports holds the names an Export statement has recorded in this
	// scope (spec §4.2: "export <decl> records the declaration's bound
	// names in the enclosing module's export set"); only meaningful on a
	// module-level Environment.
	exports map[string]bool
}

func New(parent *Environment) *Environment {
	return &Environment{vars: make(map[string]*binding), parent: parent}
}

// Define installs name in the current scope (spec §4.4). If name already
// holds a FunctionGroup (or a bare closure) here and val is also
// callable, the definitions are merged into one FunctionGroup rather than
// shadowing (spec §4.5: "subsequent definitions append to a group").
func (e *Environment) Define(name string, val value.Value, immutable bool) {
	if existing, ok := e.vars[name]; ok && isCallable(existing.val) && isCallable(val) {
		existing.val = mergeIntoGroup(existing.val, val)
		return
	}
	if _, ok := e.vars[name]; !ok {
		e.order = append(e.order, name)
	}
	e.vars[name] = &binding{val: val, immutable: immutable}
}

func isCallable(v value.Value) bool {
	switch v.(type) {
	case *Closure, *NativeFunction, *FunctionGroup, *BoundMethod:
		return true
	default:
		return false
	}
}

func mergeIntoGroup(existing, next value.Value) value.Value {
	if g, ok := existing.(*FunctionGroup); ok {
		g.Overloads = append(g.Overloads, next)
		return g
	}
	return &FunctionGroup{Overloads: []value.Value{existing, next}}
}

// Get walks the parent chain looking for name (spec §4.4); ok is false if
// unbound anywhere, which callers translate into a ResolveError carrying
// source position.
func (e *Environment) Get(name string) (value.Value, bool) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.vars[name]; ok {
			return b.val, true
		}
	}
	return value.Null{}, false
}

// Assign mutates the innermost existing binding for name, walking
// parents (spec §4.4). found is false if name is unbound anywhere;
// immutable is true (and nothing is changed) if the binding found is
// immutable. Turning either case into an error is left to the caller —
// see DefineOrAssign for the statement-level sugar that auto-declares
// instead of failing.
func (e *Environment) Assign(name string, val value.Value) (found bool, immutable bool) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.vars[name]; ok {
			if b.immutable {
				return true, true
			}
			b.val = val
			return true, false
		}
	}
	return false, false
}

// DefineOrAssign implements the bare `name = expr` statement's sugar:
// if name is already bound
// anywhere in the chain, mutate it in place there (this is what makes
// closures over mutable locals work, e.g. a counter lambda incrementing
// its maker's local); otherwise declare it fresh in the current scope.
// A name bound immutably is left unchanged and no error is reported.
// @immut bindings never use this path — they always call Define directly
// so each `@immut` statement shadows freshly in its own scope.
func (e *Environment) DefineOrAssign(name string, val value.Value) {
	if found, immutable := e.Assign(name, val); found {
		_ = immutable
		return
	}
	e.Define(name, val, false)
}

// Ancestor walks up depth parents; used by closures to reach captured
// scopes directly when the compiler has resolved a fixed lexical depth.
func (e *Environment) Ancestor(depth int) *Environment {
	env := e
	for i := 0; i < depth && env != nil; i++ {
		env = env.parent
	}
	return env
}

func (e *Environment) Parent() *Environment { return e.parent }

// MarkExported records name in this scope's export set (spec §4.2).
func (e *Environment) MarkExported(name string) {
	if e.exports == nil {
		e.exports = make(map[string]bool)
	}
	e.exports[name] = true
}

func (e *Environment) IsExported(name string) bool {
	return e.exports != nil && e.exports[name]
}

// Exports returns the bound values for every name this scope has marked
// exported, as a map keyed by name (used by internal/module when another
// file imports this one).
func (e *Environment) Exports() map[string]value.Value {
	out := make(map[string]value.Value)
	for name := range e.exports {
		if b, ok := e.vars[name]; ok {
			out[name] = b.val
		}
	}
	return out
}

// ---- callable runtime objects ----

// Closure is a function value plus its captured lexical environment
// (spec §3 Closure). Both free-standing functions/lambdas and unbound
// class methods are represented as a Closure; a method becomes callable
// as `this`-bound via BoundMethod at property-access time.
type Closure struct {
	Decl     *parser.Function
	Lambda   *parser.Lambda // set instead of Decl for anonymous lambdas
	Captured *Environment
}

func (*Closure) Kind() value.Kind { return value.KindFunction }

func (c *Closure) String() string {
	if c.Decl != nil {
		return fmt.Sprintf("<function %s>", c.Decl.Name)
	}
	return "<lambda>"
}

func (c *Closure) Params() []parser.Param {
	if c.Decl != nil {
		return c.Decl.Params
	}
	return c.Lambda.Params
}

func (c *Closure) Body() []parser.Stmt {
	if c.Decl != nil {
		return c.Decl.Body
	}
	return c.Lambda.Body
}

func (c *Closure) Name() string {
	if c.Decl != nil {
		return c.Decl.Name
	}
	return "<lambda>"
}

// NativeFunction wraps a host-provided Go function so it participates in
// the Value/FunctionGroup machinery like any Thorn closure (spec §3:
// Function is "one of: user closure, builtin, bound method, overload
// group, native registry entry").
type NativeFunction struct {
	FnName string
	Arity  int // -1 means variadic
	Fn     func(args []value.Value) (value.Value, *thornerrors.ThornError)
}

func (*NativeFunction) Kind() value.Kind { return value.KindFunction }
func (n *NativeFunction) String() string { return fmt.Sprintf("<native %s>", n.FnName) }

// BoundMethod is produced by `instance.method` access: calling it installs
// `this` in a fresh scope enclosing the method's captured environment
// (spec §4.6: "method access instance.m returns a bound callable").
type BoundMethod struct {
	Receiver *Instance
	Method   *Closure
}

func (*BoundMethod) Kind() value.Kind { return value.KindFunction }
func (b *BoundMethod) String() string { return fmt.Sprintf("<bound method %s>", b.Method.Name()) }

// FunctionGroup holds overloads sharing a name (spec §3, §4.5); dispatch
// scoring lives in internal/eval and internal/vm since it needs runtime
// argument values, not just the group itself.
type FunctionGroup struct {
	Overloads []value.Value
}

func (*FunctionGroup) Kind() value.Kind { return value.KindFunction }

func (g *FunctionGroup) String() string {
	var names []string
	for _, o := range g.Overloads {
		names = append(names, o.String())
	}
	return "<overload group " + strings.Join(names, ", ") + ">"
}

// Class holds the method table and class name (spec §3 Class). Methods
// are resolved lazily from the declaration the first time the class
// value is evaluated (spec §4.6: "Class evaluates method bodies later").
type Class struct {
	Name       string
	Methods    map[string]*Closure
	TypeParams []string
}

func (*Class) Kind() value.Kind { return value.KindClass }
func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

func (c *Class) FindMethod(name string) (*Closure, bool) {
	m, ok := c.Methods[name]
	return m, ok
}

// Instance holds a class reference and a field map (spec §3 Instance).
// Fields is an *Environment rather than a bare map so that init's
// "assignment in init creates a property" rule (spec §4.6) falls out for
// free: during init execution the instance's field map is installed as
// the innermost scope, and DefineOrAssign's usual declare-fresh behavior
// writes straight into Fields.
type Instance struct {
	Class  *Class
	Fields *Environment
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: New(nil)}
}

func (*Instance) Kind() value.Kind { return value.KindInstance }
func (i *Instance) String() string { return fmt.Sprintf("<instance %s>", i.Class.Name) }

// GetField implements spec §4.3/§4.6 instance field lookup falling
// through to the class's method table, with methods bound at access time.
func (i *Instance) GetField(name string) (value.Value, bool) {
	if b, ok := i.Fields.vars[name]; ok {
		return b.val, true
	}
	if m, ok := i.Class.FindMethod(name); ok {
		return &BoundMethod{Receiver: i, Method: m}, true
	}
	return value.Null{}, false
}

func (i *Instance) SetField(name string, val value.Value) {
	i.Fields.Define(name, val, false)
}
