// Package eval is Thorn's tree-walking evaluator (spec §4.6, component F
// of spec §2), the reference backend that the bytecode VM (internal/vm)
// must match for backend equivalence (spec §8 property 2, spec §9).
//
// Control flow follows the teacher's VM convention of panicking on an
// abort and recovering at a single boundary (see vm.Run's recover in the
// teacher's internal/vm/vm.go), adapted to a tree walk: Break/Continue/
// Return unwind via typed panics caught by their matching loop or call
// frame, and programmer errors (spec §7's ResolveError/TypeError/
// BoundsError/AssignError/DispatchError/ImportError/StackOverflow) unwind
// as a *thornerrors.ThornError caught once at Interpret's top level.
package eval

import (
	"fmt"
	"strings"

	"thorn/internal/environment"
	thornerrors "thorn/internal/errors"
	"thorn/internal/parser"
	"thorn/internal/value"
)

const maxCallDepth = 1024

// breakSignal / continueSignal / returnSignal are control-flow panics,
// never user-visible errors.
type breakSignal struct{}
type continueSignal struct{}
type returnSignal struct{ val value.Value }

// Interpreter holds the module's global scope and the call stack's
// current environment and `this` binding. One Interpreter instance per
// module/run; instances share no mutable state (spec §9 "Global state").
type Interpreter struct {
	Globals  *environment.Environment
	env      *environment.Environment
	file     string
	diags    *thornerrors.Diagnostics
	thisVals []value.Value
	depth    int
	Importer Importer
}

// Importer resolves `import { ... } from "path"` (spec §6); supplied by
// internal/module so eval stays decoupled from filesystem search.
type Importer interface {
	Import(fromFile, path string) (map[string]value.Value, *thornerrors.ThornError)
}

func New(file string, diags *thornerrors.Diagnostics) *Interpreter {
	globals := environment.New(nil)
	return &Interpreter{Globals: globals, env: globals, file: file, diags: diags}
}

// Interpret runs a program's top-level statements and recovers any
// aborting programmer error, returning it instead of letting it escape
// as a Go panic (spec §7's abort policy, translated to a normal return).
func (in *Interpreter) Interpret(stmts []parser.Stmt) (err *thornerrors.ThornError) {
	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*thornerrors.ThornError); ok {
				err = te
				return
			}
			panic(r)
		}
	}()
	for _, s := range stmts {
		in.exec(s)
	}
	return nil
}

func (in *Interpreter) exec(s parser.Stmt) { s.Accept(in) }

func (in *Interpreter) eval(e parser.Expr) value.Value {
	return e.Accept(in).(value.Value)
}

func (in *Interpreter) abort(kind thornerrors.Kind, span parser.Span, message string, hint string) {
	loc := thornerrors.Location{File: in.file, Line: span.Line, Column: span.Col}
	e := thornerrors.New(kind, message, loc)
	if hint != "" {
		e.WithHint(hint)
	}
	panic(e)
}

// ---- statements ----

func (in *Interpreter) VisitExpressionStmt(s *parser.ExpressionStmt) interface{} {
	in.eval(s.Expr)
	return nil
}

func (in *Interpreter) VisitVar(s *parser.Var) interface{} {
	var v value.Value = value.Null{}
	if s.Initializer != nil {
		v = in.eval(s.Initializer)
	}
	if s.Immutable {
		in.env.Define(s.Name, v, true)
	} else if found, immutable := in.env.Assign(s.Name, v); immutable {
		in.abort(thornerrors.AssignError, s.Span(), fmt.Sprintf("cannot reassign immutable binding %q", s.Name), "")
	} else if !found {
		in.env.Define(s.Name, v, false)
	}
	return nil
}

func (in *Interpreter) VisitBlock(s *parser.Block) interface{} {
	in.execBlockIn(s.Stmts, environment.New(in.env))
	return nil
}

// execBlockIn runs stmts with scope installed as the current environment,
// always restoring the caller's environment (spec §5 "Resource
// discipline": every { opens a scope; every matching } pops it on all
// exit paths, including early return/break/error).
func (in *Interpreter) execBlockIn(stmts []parser.Stmt, scope *environment.Environment) {
	prev := in.env
	in.env = scope
	defer func() { in.env = prev }()
	for _, st := range stmts {
		in.exec(st)
	}
}

func (in *Interpreter) VisitIf(s *parser.If) interface{} {
	if value.Truthy(in.eval(s.Condition)) {
		in.exec(s.Then)
	} else if s.Else != nil {
		in.exec(s.Else)
	}
	return nil
}

func (in *Interpreter) VisitWhile(s *parser.While) interface{} {
	for value.Truthy(in.eval(s.Condition)) {
		if in.runLoopBody(s.Body) {
			break
		}
	}
	return nil
}

// runLoopBody executes one loop iteration's block, catching Break
// (returns true, caller stops) and Continue (returns false, caller
// proceeds to the next iteration). Both unwind out of the block's own
// defer-protected scope restoration above.
func (in *Interpreter) runLoopBody(body *parser.Block) (brk bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				brk = true
			case continueSignal:
				brk = false
			default:
				panic(r)
			}
		}
	}()
	in.exec(body)
	return false
}

func (in *Interpreter) VisitFor(s *parser.For) interface{} {
	iterable := in.eval(s.Iterable)
	items := iterationItems(iterable)
	for _, item := range items {
		scope := environment.New(in.env)
		scope.Define(s.Var, item, false)
		if in.runLoopBodyIn(s.Body, scope) {
			break
		}
	}
	return nil
}

func (in *Interpreter) runLoopBodyIn(body *parser.Block, scope *environment.Environment) (brk bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				brk = true
			case continueSignal:
				brk = false
			default:
				panic(r)
			}
		}
	}()
	in.execBlockIn(body.Stmts, scope)
	return false
}

// iterationItems implements spec §4.6's For iterator: list binds each
// element value (not its index — the element is what S5's
// `for (k in d.keys())` observably binds, since d.keys() is itself a
// List),
// dict binds each key in insertion order, string binds each character.
func iterationItems(v value.Value) []value.Value {
	switch t := v.(type) {
	case *value.List:
		return append([]value.Value{}, t.Elements...)
	case *value.Dict:
		return t.Keys()
	case value.String:
		runes := []rune(string(t))
		out := make([]value.Value, len(runes))
		for i, r := range runes {
			out[i] = value.String(string(r))
		}
		return out
	default:
		return nil
	}
}

func (in *Interpreter) VisitFunction(s *parser.Function) interface{} {
	closure := &environment.Closure{Decl: s, Captured: in.env}
	in.env.Define(s.Name, closure, false)
	return nil
}

func (in *Interpreter) VisitReturn(s *parser.Return) interface{} {
	var v value.Value = value.Null{}
	if s.Value != nil {
		v = in.eval(s.Value)
	}
	panic(returnSignal{val: v})
}

func (in *Interpreter) VisitClass(s *parser.Class) interface{} {
	methods := make(map[string]*environment.Closure, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name] = &environment.Closure{Decl: m, Captured: in.env}
	}
	class := &environment.Class{Name: s.Name, Methods: methods, TypeParams: s.TypeParams}
	in.env.Define(s.Name, class, false)
	return nil
}

func (in *Interpreter) VisitExport(s *parser.Export) interface{} {
	in.exec(s.Decl)
	for _, name := range exportedNames(s.Decl) {
		in.env.MarkExported(name)
	}
	return nil
}

func exportedNames(s parser.Stmt) []string {
	switch d := s.(type) {
	case *parser.Function:
		return []string{d.Name}
	case *parser.Class:
		return []string{d.Name}
	case *parser.Var:
		return []string{d.Name}
	case *parser.TypeAlias:
		return []string{d.Name}
	default:
		return nil
	}
}

func (in *Interpreter) VisitImport(s *parser.Import) interface{} {
	if in.Importer == nil {
		in.abort(thornerrors.ImportError, s.Span(), "no module importer configured", "")
	}
	exports, err := in.Importer.Import(in.file, s.Path)
	if err != nil {
		panic(err)
	}
	for _, n := range s.Names {
		v, ok := exports[n.Name]
		if !ok {
			in.abort(thornerrors.ImportError, s.Span(), fmt.Sprintf("module %q has no export %q", s.Path, n.Name), "")
		}
		in.env.Define(n.Alias, v, false)
	}
	return nil
}

func (in *Interpreter) VisitTypeAlias(s *parser.TypeAlias) interface{} {
	return nil
}

func (in *Interpreter) VisitBreak(s *parser.Break) interface{} {
	panic(breakSignal{})
}

func (in *Interpreter) VisitContinue(s *parser.Continue) interface{} {
	panic(continueSignal{})
}

// VisitTry runs try/catch/finally: any abort raised inside Body is
// caught and its message, as a string value, is bound to CatchVar before
// CatchBody runs; FinallyBody always runs, on every exit path.
func (in *Interpreter) VisitTry(s *parser.Try) interface{} {
	if s.FinallyBody != nil {
		defer in.exec(s.FinallyBody)
	}
	in.runTryBody(s)
	return nil
}

func (in *Interpreter) runTryBody(s *parser.Try) {
	defer func() {
		if r := recover(); r != nil {
			te, ok := r.(*thornerrors.ThornError)
			if !ok {
				panic(r)
			}
			if s.CatchBody == nil {
				panic(r)
			}
			scope := environment.New(in.env)
			if s.CatchVar != "" {
				scope.Define(s.CatchVar, value.String(te.Message), false)
			}
			in.execBlockIn(s.CatchBody.Stmts, scope)
		}
	}()
	in.exec(s.Body)
}

// ---- expressions ----

func (in *Interpreter) VisitLiteral(e *parser.Literal) interface{} {
	return toValue(e.Value)
}

func toValue(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null{}
	case bool:
		return value.Bool(t)
	case float64:
		return value.Number(t)
	case string:
		return value.String(t)
	default:
		return value.Null{}
	}
}

func (in *Interpreter) VisitVariable(e *parser.Variable) interface{} {
	v, ok := in.env.Get(e.Name)
	if !ok {
		in.abort(thornerrors.ResolveError, e.Span(), fmt.Sprintf("unbound name %q", e.Name), "")
	}
	return v
}

func (in *Interpreter) VisitAssign(e *parser.Assign) interface{} {
	v := in.eval(e.Value)
	found, immutable := in.env.Assign(e.Name, v)
	if !found {
		in.abort(thornerrors.ResolveError, e.Span(), fmt.Sprintf("assign to undeclared name %q", e.Name), "")
	}
	if immutable {
		in.abort(thornerrors.AssignError, e.Span(), fmt.Sprintf("cannot reassign immutable binding %q", e.Name), "")
	}
	return v
}

func (in *Interpreter) VisitBinary(e *parser.Binary) interface{} {
	left := in.eval(e.Left)
	right := in.eval(e.Right)
	return in.binaryOp(e.Operator, left, right, e.Span())
}

func (in *Interpreter) binaryOp(op string, left, right value.Value, span parser.Span) value.Value {
	switch op {
	case "+":
		return in.addOp(left, right)
	case "-", "*", "/", "%", "**":
		return in.arithOp(op, left, right, span)
	case "==":
		return value.Bool(value.Equals(left, right))
	case "!=":
		return value.Bool(!value.Equals(left, right))
	case "<", "<=", ">", ">=":
		return in.compareOp(op, left, right, span)
	default:
		in.abort(thornerrors.TypeError, span, fmt.Sprintf("unknown operator %q", op), "")
	}
	return value.Null{}
}

// addOp implements spec §4.3: two numbers add; if either side is a
// string, both sides are stringified and concatenated.
func (in *Interpreter) addOp(left, right value.Value) value.Value {
	ln, lok := left.(value.Number)
	rn, rok := right.(value.Number)
	if lok && rok {
		return ln + rn
	}
	return value.String(stringify(left) + stringify(right))
}

func stringify(v value.Value) string {
	return v.String()
}

func (in *Interpreter) arithOp(op string, left, right value.Value, span parser.Span) value.Value {
	ln, lok := left.(value.Number)
	rn, rok := right.(value.Number)
	if !lok || !rok {
		in.abort(thornerrors.TypeError, span, fmt.Sprintf("operator %q requires two numbers, got %s and %s", op, left.Kind(), right.Kind()), "")
	}
	switch op {
	case "-":
		return ln - rn
	case "*":
		return ln * rn
	case "/":
		if rn == 0 {
			return value.ErrorVal(value.String("Division by zero"))
		}
		return ln / rn
	case "%":
		if rn == 0 {
			return value.ErrorVal(value.String("Division by zero"))
		}
		return value.Number(floatMod(float64(ln), float64(rn)))
	case "**":
		return value.Number(floatPow(float64(ln), float64(rn)))
	}
	return value.Null{}
}

func (in *Interpreter) compareOp(op string, left, right value.Value, span parser.Span) value.Value {
	lt, ok := value.LessThan(left, right)
	if !ok {
		in.abort(thornerrors.TypeError, span, fmt.Sprintf("cannot order %s and %s", left.Kind(), right.Kind()), "")
	}
	eq := value.Equals(left, right)
	switch op {
	case "<":
		return value.Bool(lt)
	case "<=":
		return value.Bool(lt || eq)
	case ">":
		return value.Bool(!lt && !eq)
	case ">=":
		return value.Bool(!lt || eq)
	}
	return value.Bool(false)
}

func (in *Interpreter) VisitUnary(e *parser.Unary) interface{} {
	v := in.eval(e.Operand)
	switch e.Operator {
	case "!":
		return value.Bool(!value.Truthy(v))
	case "-":
		n, ok := v.(value.Number)
		if !ok {
			in.abort(thornerrors.TypeError, e.Span(), fmt.Sprintf("unary '-' requires a number, got %s", v.Kind()), "")
		}
		return -n
	}
	return value.Null{}
}

func (in *Interpreter) VisitLogical(e *parser.Logical) interface{} {
	left := in.eval(e.Left)
	switch e.Operator {
	case "&&":
		if !value.Truthy(left) {
			return left
		}
		return in.eval(e.Right)
	case "||":
		if value.Truthy(left) {
			return left
		}
		return in.eval(e.Right)
	case "??":
		if _, isNull := left.(value.Null); isNull {
			return in.eval(e.Right)
		}
		return left
	}
	return value.Null{}
}

func (in *Interpreter) VisitCall(e *parser.Call) interface{} {
	callee := in.eval(e.Callee)
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = in.eval(a)
	}
	return in.call(callee, args, e.Span())
}

func (in *Interpreter) call(callee value.Value, args []value.Value, span parser.Span) value.Value {
	switch fn := callee.(type) {
	case *environment.Class:
		return in.construct(fn, args, span)
	case *environment.Closure:
		return in.invokeClosure(fn, args, nil, span)
	case *environment.BoundMethod:
		return in.invokeClosure(fn.Method, args, fn.Receiver, span)
	case *environment.NativeFunction:
		return in.invokeNative(fn, args, span)
	case *environment.FunctionGroup:
		chosen, err := selectOverload(fn.Overloads, args)
		if err != nil {
			in.abort(thornerrors.DispatchError, span, err.Error(), "")
		}
		return in.call(chosen, args, span)
	default:
		in.abort(thornerrors.TypeError, span, fmt.Sprintf("%s is not callable", callee.Kind()), "")
	}
	return value.Null{}
}

func (in *Interpreter) invokeNative(fn *environment.NativeFunction, args []value.Value, span parser.Span) value.Value {
	if fn.Arity >= 0 && len(args) != fn.Arity {
		in.abort(thornerrors.DispatchError, span, fmt.Sprintf("%s expects %d arguments, got %d", fn.FnName, fn.Arity, len(args)), "")
	}
	v, err := fn.Fn(args)
	if err != nil {
		panic(err)
	}
	return v
}

// construct implements spec §4.6 class-as-constructor: allocate an empty
// instance, then if init exists, execute it with its innermost scope
// equal to the instance's field map (so bare assignment in init writes a
// field) and arguments bound directly as fields.
func (in *Interpreter) construct(class *environment.Class, args []value.Value, span parser.Span) value.Value {
	inst := environment.NewInstance(class)
	init, ok := class.FindMethod("init")
	if !ok {
		return inst
	}
	params := init.Params()
	if len(args) != len(params) {
		in.abort(thornerrors.DispatchError, span, fmt.Sprintf("%s.init expects %d arguments, got %d", class.Name, len(params), len(args)), "")
	}
	scope := environment.New(init.Captured)
	for i, p := range params {
		scope.Define(p.Name, args[i], false)
	}
	inst.Fields = scope
	in.runFunctionBody(init.Body(), scope, inst)
	return inst
}

// invokeClosure calls a plain function/lambda/bound-method closure.
// receiver is non-nil for a bound method call (This resolves to it);
// init's own scope-as-fields rule is handled separately in construct.
func (in *Interpreter) invokeClosure(fn *environment.Closure, args []value.Value, receiver *environment.Instance, span parser.Span) value.Value {
	params := fn.Params()
	if len(args) != len(params) {
		in.abort(thornerrors.DispatchError, span, fmt.Sprintf("%s expects %d arguments, got %d", fn.Name(), len(params), len(args)), "")
	}
	scope := environment.New(fn.Captured)
	for i, p := range params {
		scope.Define(p.Name, args[i], false)
	}
	var thisVal value.Value = value.Null{}
	if receiver != nil {
		thisVal = receiver
	}
	return in.runFunctionBody(fn.Body(), scope, thisVal)
}

func (in *Interpreter) runFunctionBody(body []parser.Stmt, scope *environment.Environment, thisVal value.Value) (result value.Value) {
	in.depth++
	if in.depth > maxCallDepth {
		in.depth--
		in.abort(thornerrors.StackOverflow, parser.Span{}, "call depth exceeds limit", "")
	}
	in.thisVals = append(in.thisVals, thisVal)
	prev := in.env
	in.env = scope
	defer func() {
		in.env = prev
		in.thisVals = in.thisVals[:len(in.thisVals)-1]
		in.depth--
		if r := recover(); r != nil {
			if rs, ok := r.(returnSignal); ok {
				result = rs.val
				return
			}
			panic(r)
		}
	}()
	for _, s := range body {
		in.exec(s)
	}
	return value.Null{}
}

func (in *Interpreter) VisitGet(e *parser.Get) interface{} {
	obj := in.eval(e.Object)
	if inst, ok := obj.(*environment.Instance); ok {
		if v, found := inst.GetField(e.Name); found {
			return v
		}
		in.abort(thornerrors.ResolveError, e.Span(), fmt.Sprintf("instance %s has no field or method %q", inst.Class.Name, e.Name), "")
	}
	if v, ok := builtinProperty(obj, e.Name); ok {
		return v
	}
	in.abort(thornerrors.TypeError, e.Span(), fmt.Sprintf("%s has no property %q", obj.Kind(), e.Name), availablePropertiesHint(obj))
	return value.Null{}
}

func (in *Interpreter) VisitSet(e *parser.Set) interface{} {
	obj := in.eval(e.Object)
	inst, ok := obj.(*environment.Instance)
	if !ok {
		in.abort(thornerrors.TypeError, e.Span(), fmt.Sprintf("cannot set property on %s", obj.Kind()), "")
	}
	v := in.eval(e.Value)
	inst.SetField(e.Name, v)
	return v
}

func (in *Interpreter) VisitIndex(e *parser.Index) interface{} {
	obj := in.eval(e.Object)
	key := in.eval(e.Key)
	return in.indexGet(obj, key, e.Span())
}

func (in *Interpreter) indexGet(obj, key value.Value, span parser.Span) value.Value {
	switch c := obj.(type) {
	case *value.List:
		idxF, ok := key.(value.Number)
		if !ok {
			in.abort(thornerrors.TypeError, span, "list index must be a number", "")
		}
		idx, inBounds := value.NormalizeIndex(int(idxF), len(c.Elements))
		if !inBounds {
			in.abort(thornerrors.BoundsError, span, fmt.Sprintf("list index %v out of range (length %d)", idxF, len(c.Elements)), "")
		}
		return c.Elements[idx]
	case *value.Dict:
		v, _ := c.Get(key)
		return v
	case value.String:
		idxF, ok := key.(value.Number)
		if !ok {
			in.abort(thornerrors.TypeError, span, "string index must be a number", "")
		}
		runes := []rune(string(c))
		idx, inBounds := value.NormalizeIndex(int(idxF), len(runes))
		if !inBounds {
			in.abort(thornerrors.BoundsError, span, fmt.Sprintf("string index %v out of range (length %d)", idxF, len(runes)), "")
		}
		return value.String(string(runes[idx]))
	default:
		in.abort(thornerrors.TypeError, span, fmt.Sprintf("cannot index %s", obj.Kind()), "")
	}
	return value.Null{}
}

func (in *Interpreter) VisitIndexSet(e *parser.IndexSet) interface{} {
	obj := in.eval(e.Object)
	key := in.eval(e.Key)
	v := in.eval(e.Value)
	switch c := obj.(type) {
	case *value.List:
		idxF, ok := key.(value.Number)
		if !ok {
			in.abort(thornerrors.TypeError, e.Span(), "list index must be a number", "")
		}
		idx, inBounds := value.NormalizeIndex(int(idxF), len(c.Elements))
		if !inBounds {
			in.abort(thornerrors.BoundsError, e.Span(), fmt.Sprintf("list index %v out of range (length %d)", idxF, len(c.Elements)), "")
		}
		c.Elements[idx] = v
	case *value.Dict:
		c.Set(key, v)
	default:
		in.abort(thornerrors.TypeError, e.Span(), fmt.Sprintf("cannot index-assign into %s", obj.Kind()), "")
	}
	return v
}

func (in *Interpreter) VisitSlice(e *parser.Slice) interface{} {
	obj := in.eval(e.Object)
	var start, end *int
	if e.Start != nil {
		n := int(in.eval(e.Start).(value.Number))
		start = &n
	}
	if e.End != nil {
		n := int(in.eval(e.End).(value.Number))
		end = &n
	}
	switch c := obj.(type) {
	case *value.List:
		s, en := value.NormalizeSlice(start, end, len(c.Elements))
		return value.NewList(append([]value.Value{}, c.Elements[s:en]...))
	case value.String:
		runes := []rune(string(c))
		s, en := value.NormalizeSlice(start, end, len(runes))
		return value.String(string(runes[s:en]))
	default:
		in.abort(thornerrors.TypeError, e.Span(), fmt.Sprintf("cannot slice %s", obj.Kind()), "")
	}
	return value.Null{}
}

func (in *Interpreter) VisitGrouping(e *parser.Grouping) interface{} {
	return in.eval(e.Inner)
}

func (in *Interpreter) VisitLambda(e *parser.Lambda) interface{} {
	return &environment.Closure{Lambda: e, Captured: in.env}
}

func (in *Interpreter) VisitListExpr(e *parser.ListExpr) interface{} {
	elems := make([]value.Value, len(e.Elements))
	for i, el := range e.Elements {
		elems[i] = in.eval(el)
	}
	return value.NewList(elems)
}

func (in *Interpreter) VisitDict(e *parser.Dict) interface{} {
	d := value.NewDict()
	for i, k := range e.Keys {
		d.Set(in.eval(k), in.eval(e.Values[i]))
	}
	return d
}

func (in *Interpreter) VisitThis(e *parser.This) interface{} {
	if len(in.thisVals) == 0 {
		return value.Null{}
	}
	return in.thisVals[len(in.thisVals)-1]
}

// VisitMatch implements spec §4.6: evaluate scrutinee once, try arms in
// order, binding pattern variables in a fresh scope, evaluating the
// optional guard in that scope; falls through to Null with a recorded
// warning diagnostic if nothing matches (never aborts).
func (in *Interpreter) VisitMatch(e *parser.Match) interface{} {
	scrutinee := in.eval(e.Scrutinee)
	for _, arm := range e.Arms {
		scope := environment.New(in.env)
		if !bindPattern(arm.Pattern, scrutinee, scope) {
			continue
		}
		if arm.Guard != nil {
			prev := in.env
			in.env = scope
			guardOK := value.Truthy(in.eval(arm.Guard))
			in.env = prev
			if !guardOK {
				continue
			}
		}
		return in.evalArmBody(arm.Body, scope)
	}
	if in.diags != nil {
		loc := thornerrors.Location{File: in.file, Line: e.Span().Line, Column: e.Span().Col}
		in.diags.Add(thornerrors.New(thornerrors.ResolveError, "no match arm matched the scrutinee", loc).WithHint("evaluated to null"))
	}
	return value.Null{}
}

// evalArmBody runs an arm's body (a block whose final expression
// statement is its value) in scope and returns that value.
func (in *Interpreter) evalArmBody(body []parser.Stmt, scope *environment.Environment) value.Value {
	prev := in.env
	in.env = scope
	defer func() { in.env = prev }()
	var last value.Value = value.Null{}
	for i, s := range body {
		if es, ok := s.(*parser.ExpressionStmt); ok && i == len(body)-1 {
			last = in.eval(es.Expr)
			continue
		}
		in.exec(s)
	}
	return last
}

func bindPattern(p parser.Pattern, v value.Value, scope *environment.Environment) bool {
	switch pat := p.(type) {
	case parser.WildcardPattern:
		return true
	case parser.LiteralPattern:
		return value.Equals(v, toValue(pat.Value))
	case parser.BindPattern:
		scope.Define(pat.Name, v, false)
		return true
	case parser.OkPattern:
		r, ok := v.(*value.Result)
		if !ok || r.IsError {
			return false
		}
		return bindPattern(pat.Inner, r.Payload, scope)
	case parser.ErrorPattern:
		r, ok := v.(*value.Result)
		if !ok || !r.IsError {
			return false
		}
		return bindPattern(pat.Inner, r.Payload, scope)
	default:
		return false
	}
}

func availablePropertiesHint(v value.Value) string {
	names := builtinPropertyNames(v)
	if len(names) == 0 {
		return ""
	}
	return "available: " + strings.Join(names, ", ")
}
