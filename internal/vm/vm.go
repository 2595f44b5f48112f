// Package vm's VM type executes a *compiler.Program (spec §4.9, component
// H of spec §2). Grounded on the teacher's internal/vmregister/vm.go: a
// call-frame stack over a per-frame register file, and a single
// recover-at-the-top abort boundary exactly like internal/eval's
// Interpreter.Interpret, so both backends report the identical
// *thornerrors.ThornError shape for the identical programmer mistake
// (spec §8 property 2, "backend equivalence").
package vm

import (
	"fmt"
	"strings"

	"thorn/internal/compiler"
	thornerrors "thorn/internal/errors"
	"thorn/internal/value"
)

// maxFrames bounds call depth (spec §7 StackOverflow), matching
// internal/eval's maxCallDepth so a program that blows the stack on one
// backend blows it on the other at the same recursion depth.
const maxFrames = 1024

// Frame is one call's register file plus the `this` binding active for
// its body (spec §4.9: "a call frame addresses its own register window").
type Frame struct {
	closure   *Closure
	registers []value.Value
	this      value.Value
}

// VM holds one run's global table, call-frame stack, and the auxiliary
// operand stack OpPush/consumers use for variable-arity operands
// (bytecode.go's OpPush doc comment).
type VM struct {
	prog    *compiler.Program
	file    string
	globals map[string]value.Value
	stack   []value.Value
	frames  []*Frame
}

// New builds a VM over prog. globals seeds the module's global table —
// typically internal/native's Registry.Globals(), installed identically
// into both backends so CALL on an unresolved name behaves the same way
// on either (spec §4.9).
func New(prog *compiler.Program, file string, globals map[string]value.Value) *VM {
	g := make(map[string]value.Value, len(globals))
	for k, v := range globals {
		g[k] = v
	}
	return &VM{prog: prog, file: file, globals: g}
}

// Run executes the program's module body and returns its final value (the
// last top-level expression statement falls through as Null, matching
// internal/eval's Interpret returning no value — Run's return is mainly
// useful for embedding/test harnesses that want the last computed value).
func (vm *VM) Run() (result value.Value, err *thornerrors.ThornError) {
	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*thornerrors.ThornError); ok {
				err = te
				return
			}
			panic(r)
		}
	}()
	main := vm.prog.Functions[vm.prog.Main]
	closure := &Closure{Proto: main}
	result = vm.invoke(closure, nil, value.Null{}, compiler.Pos{})
	return result, nil
}

// Globals exposes the post-run global table (internal/repl reads this
// back between successive top-level statements).
func (vm *VM) Globals() map[string]value.Value { return vm.globals }

func (vm *VM) abort(kind thornerrors.Kind, pos compiler.Pos, message, hint string) {
	loc := thornerrors.Location{File: vm.file, Line: pos.Line, Column: pos.Col}
	e := thornerrors.New(kind, message, loc)
	if hint != "" {
		e.WithHint(hint)
	}
	panic(e)
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

// popN pops n values, returning them in the order they were pushed (LIFO
// pop, reversed back to push order) — every variable-arity consumer
// (CALL, NEW_LIST, NEW_DICT, SET_INDEX, SLICE, TRY_EXEC) wants its
// operands in the order the compiler staged them.
func (vm *VM) popN(n int) []value.Value {
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = vm.pop()
	}
	return out
}

func (vm *VM) constValue(idx uint8) value.Value {
	switch v := vm.prog.Constants[idx].(type) {
	case nil:
		return value.Null{}
	case bool:
		return value.Bool(v)
	case float64:
		return value.Number(v)
	case string:
		return value.String(v)
	default:
		return value.Null{}
	}
}

// buildUpvalues materializes MAKE_CLOSURE/NEW_CLASS's captured upvalues:
// a local capture aliases the defining frame's register slice directly
// (Go's GC keeps that backing array alive for as long as any Upvalue
// still references it, so unlike the teacher's explicit Close()-at-return
// step, nothing here ever needs to snapshot — see internal/vm/object.go's
// Upvalue doc comment), a non-local capture forwards the enclosing
// closure's own already-built Upvalue.
func (vm *VM) buildUpvalues(frame *Frame, descs []compiler.UpvalueDesc) []*Upvalue {
	out := make([]*Upvalue, len(descs))
	for i, d := range descs {
		if d.IsLocal {
			out[i] = &Upvalue{stack: frame.registers, index: d.Slot}
		} else {
			out[i] = frame.closure.Upvals[d.Slot]
		}
	}
	return out
}

// invoke runs cl with args bound to its first registers and this active
// for the duration of the call, recursing through Go's own call stack one
// level per Thorn call — the same structural choice internal/eval makes
// for runFunctionBody, kept here for the same reason: a real frame array
// with an explicit instruction pointer per suspended caller buys nothing
// in an interpreter that never suspends a frame mid-instruction, and
// reusing Go's stack keeps this backend's control flow exactly as
// legible as the tree evaluator's.
func (vm *VM) invoke(cl *Closure, args []value.Value, this value.Value, pos compiler.Pos) value.Value {
	if len(args) != cl.Proto.Arity {
		vm.abort(thornerrors.DispatchError, pos, fmt.Sprintf("%s expects %d arguments, got %d", cl.Proto.Name, cl.Proto.Arity, len(args)), "")
	}
	if len(vm.frames) > maxFrames {
		vm.abort(thornerrors.StackOverflow, pos, "call depth exceeds limit", "")
	}
	regs := make([]value.Value, cl.Proto.NumRegisters)
	for i := range regs {
		regs[i] = value.Null{}
	}
	copy(regs, args)
	frame := &Frame{closure: cl, registers: regs, this: this}
	vm.frames = append(vm.frames, frame)
	result := vm.runFrame(frame)
	vm.frames = vm.frames[:len(vm.frames)-1]
	return result
}

func (vm *VM) invokeNative(fn *NativeFunction, args []value.Value, pos compiler.Pos) value.Value {
	if fn.Arity >= 0 && len(args) != fn.Arity {
		vm.abort(thornerrors.DispatchError, pos, fmt.Sprintf("%s expects %d arguments, got %d", fn.FnName, fn.Arity, len(args)), "")
	}
	v, err := fn.Fn(args)
	if err != nil {
		panic(err)
	}
	return v
}

// construct implements spec §4.6 class-as-constructor, the VM's
// counterpart to internal/eval's construct: allocate an empty instance
// and, if init exists, run it with `this` bound to the new instance.
// init's "bare assignment creates a field" rule is implemented entirely
// at compile time (funcState.isInit in internal/compiler), so invoke
// needs no special case here beyond passing inst as this.
func (vm *VM) construct(class *Class, args []value.Value, pos compiler.Pos) value.Value {
	inst := NewInstance(class)
	init, ok := class.FindMethod("init")
	if !ok {
		return inst
	}
	if len(args) != init.Proto.Arity {
		vm.abort(thornerrors.DispatchError, pos, fmt.Sprintf("%s.init expects %d arguments, got %d", class.Name, init.Proto.Arity, len(args)), "")
	}
	vm.invoke(init, args, inst, pos)
	return inst
}

func (vm *VM) callValue(callee value.Value, args []value.Value, pos compiler.Pos) value.Value {
	switch fn := callee.(type) {
	case *Class:
		return vm.construct(fn, args, pos)
	case *Closure:
		return vm.invoke(fn, args, value.Null{}, pos)
	case *BoundMethod:
		return vm.invoke(fn.Method, args, fn.Receiver, pos)
	case *NativeFunction:
		return vm.invokeNative(fn, args, pos)
	case *FunctionGroup:
		chosen, err := selectOverload(fn.Overloads, args)
		if err != nil {
			vm.abort(thornerrors.DispatchError, pos, err.Error(), "")
		}
		return vm.callValue(chosen, args, pos)
	default:
		vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("%s is not callable", callee.Kind()), "")
	}
	return value.Null{}
}

func (vm *VM) getProperty(obj value.Value, name string, pos compiler.Pos) value.Value {
	if inst, ok := obj.(*Instance); ok {
		if v, found := inst.GetField(name); found {
			return v
		}
		vm.abort(thornerrors.ResolveError, pos, fmt.Sprintf("instance %s has no field or method %q", inst.Class.Name, name), "")
	}
	if v, ok := builtinProperty(obj, name); ok {
		return v
	}
	vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("%s has no property %q", obj.Kind(), name), availablePropertiesHint(obj))
	return value.Null{}
}

func (vm *VM) setProperty(obj value.Value, name string, val value.Value, pos compiler.Pos) {
	inst, ok := obj.(*Instance)
	if !ok {
		vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("cannot set property on %s", obj.Kind()), "")
		return
	}
	inst.SetField(name, val)
}

func (vm *VM) getIndex(obj, key value.Value, pos compiler.Pos) value.Value {
	switch c := obj.(type) {
	case *value.List:
		idxF, ok := key.(value.Number)
		if !ok {
			vm.abort(thornerrors.TypeError, pos, "list index must be a number", "")
		}
		idx, inBounds := value.NormalizeIndex(int(idxF), len(c.Elements))
		if !inBounds {
			vm.abort(thornerrors.BoundsError, pos, fmt.Sprintf("list index %v out of range (length %d)", idxF, len(c.Elements)), "")
		}
		return c.Elements[idx]
	case *value.Dict:
		v, _ := c.Get(key)
		return v
	case value.String:
		idxF, ok := key.(value.Number)
		if !ok {
			vm.abort(thornerrors.TypeError, pos, "string index must be a number", "")
		}
		runes := []rune(string(c))
		idx, inBounds := value.NormalizeIndex(int(idxF), len(runes))
		if !inBounds {
			vm.abort(thornerrors.BoundsError, pos, fmt.Sprintf("string index %v out of range (length %d)", idxF, len(runes)), "")
		}
		return value.String(string(runes[idx]))
	default:
		vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("cannot index %s", obj.Kind()), "")
	}
	return value.Null{}
}

func (vm *VM) setIndex(obj, key, val value.Value, pos compiler.Pos) {
	switch c := obj.(type) {
	case *value.List:
		idxF, ok := key.(value.Number)
		if !ok {
			vm.abort(thornerrors.TypeError, pos, "list index must be a number", "")
		}
		idx, inBounds := value.NormalizeIndex(int(idxF), len(c.Elements))
		if !inBounds {
			vm.abort(thornerrors.BoundsError, pos, fmt.Sprintf("list index %v out of range (length %d)", idxF, len(c.Elements)), "")
		}
		c.Elements[idx] = val
	case *value.Dict:
		c.Set(key, val)
	default:
		vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("cannot index-assign into %s", obj.Kind()), "")
	}
}

// doSlice mirrors internal/eval's VisitSlice; a Null bound register means
// "omitted" (compiler.compileSlice's convention).
func (vm *VM) doSlice(obj, startV, endV value.Value, pos compiler.Pos) value.Value {
	var start, end *int
	if n, ok := startV.(value.Number); ok {
		i := int(n)
		start = &i
	}
	if n, ok := endV.(value.Number); ok {
		i := int(n)
		end = &i
	}
	switch c := obj.(type) {
	case *value.List:
		s, e := value.NormalizeSlice(start, end, len(c.Elements))
		return value.NewList(append([]value.Value{}, c.Elements[s:e]...))
	case value.String:
		runes := []rune(string(c))
		s, e := value.NormalizeSlice(start, end, len(runes))
		return value.String(string(runes[s:e]))
	default:
		vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("cannot slice %s", obj.Kind()), "")
	}
	return value.Null{}
}

// iterationItems mirrors internal/eval's free function of the same name
// (spec §4.6's For iterator).
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

func availablePropertiesHint(v value.Value) string {
	names := builtinPropertyNames(v)
	if len(names) == 0 {
		return ""
	}
	return "available: " + strings.Join(names, ", ")
}

// runTryBody runs body, catching an abort and routing it to catchVal (a
// *Closure expecting the error message as its one argument) when present,
// re-panicking otherwise — the VM's counterpart to internal/eval's
// runTryBody.
func (vm *VM) runTryBody(bodyVal, catchVal value.Value, pos compiler.Pos) (result value.Value) {
	defer func() {
		if r := recover(); r != nil {
			te, ok := r.(*thornerrors.ThornError)
			if !ok {
				panic(r)
			}
			catchClosure, ok2 := catchVal.(*Closure)
			if !ok2 {
				panic(r)
			}
			result = vm.invoke(catchClosure, []value.Value{value.String(te.Message)}, value.Null{}, pos)
		}
	}()
	body := bodyVal.(*Closure)
	return vm.invoke(body, nil, value.Null{}, pos)
}

// runTry implements try/catch/finally (SPEC_FULL.md supplement): finally
// always runs on every exit path, mirroring internal/eval's `defer
// in.exec(s.FinallyBody)`.
func (vm *VM) runTry(bodyVal, catchVal, finallyVal value.Value, pos compiler.Pos) (result value.Value) {
	if finallyClosure, ok := finallyVal.(*Closure); ok {
		defer func() { vm.invoke(finallyClosure, nil, value.Null{}, pos) }()
	}
	return vm.runTryBody(bodyVal, catchVal, pos)
}

// runFrame is the bytecode dispatch loop for one call frame (spec §4.8).
// JUMP/JUMP_IF_FALSE/JUMP_IF_TRUE set ip directly and `continue`;
// everything else falls through to the trailing ip++.
func (vm *VM) runFrame(frame *Frame) value.Value {
	code := frame.closure.Proto.Code
	positions := frame.closure.Proto.Positions
	ip := 0
	for {
		instr := code[ip]
		pos := positions[ip]
		switch instr.Op() {
		case compiler.OpLoadConst:
			kIdx, _ := instr.B()
			frame.registers[instr.A()] = vm.constValue(kIdx)
		case compiler.OpLoadNull:
			frame.registers[instr.A()] = value.Null{}
		case compiler.OpLoadBool:
			b, _ := instr.B()
			frame.registers[instr.A()] = value.Bool(b != 0)
		case compiler.OpMove:
			src, _ := instr.B()
			frame.registers[instr.A()] = frame.registers[src]
		case compiler.OpLoadGlobal:
			kIdx, _ := instr.B()
			name := string(vm.constValue(kIdx).(value.String))
			v, ok := vm.globals[name]
			if !ok {
				vm.abort(thornerrors.ResolveError, pos, fmt.Sprintf("unbound name %q", name), "")
			}
			frame.registers[instr.A()] = v
		case compiler.OpStoreGlobal:
			kIdx, _ := instr.B()
			name := string(vm.constValue(kIdx).(value.String))
			vm.globals[name] = mergeGlobal(vm.globals[name], frame.registers[instr.A()])
		case compiler.OpGetUpval:
			idx, _ := instr.B()
			frame.registers[instr.A()] = frame.closure.Upvals[idx].Get()
		case compiler.OpSetUpval:
			srcIdx, _ := instr.B()
			frame.closure.Upvals[instr.A()].Set(frame.registers[srcIdx])

		case compiler.OpAdd:
			l, _ := instr.B()
			r, _ := instr.C()
			frame.registers[instr.A()] = vm.addOp(frame.registers[l], frame.registers[r])
		case compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod, compiler.OpPow:
			l, _ := instr.B()
			r, _ := instr.C()
			frame.registers[instr.A()] = vm.arithOp(instr.Op(), frame.registers[l], frame.registers[r], pos)
		case compiler.OpNeg:
			src, _ := instr.B()
			n, ok := frame.registers[src].(value.Number)
			if !ok {
				vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("unary '-' requires a number, got %s", frame.registers[src].Kind()), "")
			}
			frame.registers[instr.A()] = -n
		case compiler.OpNot:
			src, _ := instr.B()
			frame.registers[instr.A()] = value.Bool(!value.Truthy(frame.registers[src]))

		case compiler.OpIncLocal:
			a := instr.A()
			n, ok := frame.registers[a].(value.Number)
			if !ok {
				vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("increment requires a number, got %s", frame.registers[a].Kind()), "")
			}
			frame.registers[a] = n + 1
		case compiler.OpAddConstLocal:
			l, _ := instr.B()
			k, _ := instr.C()
			frame.registers[instr.A()] = vm.addOp(frame.registers[l], vm.constValue(k))
		case compiler.OpAddLocals:
			l, _ := instr.B()
			r, _ := instr.C()
			frame.registers[instr.A()] = vm.addOp(frame.registers[l], frame.registers[r])

		case compiler.OpEq:
			l, _ := instr.B()
			r, _ := instr.C()
			frame.registers[instr.A()] = value.Bool(value.Equals(frame.registers[l], frame.registers[r]))
		case compiler.OpNe:
			l, _ := instr.B()
			r, _ := instr.C()
			frame.registers[instr.A()] = value.Bool(!value.Equals(frame.registers[l], frame.registers[r]))
		case compiler.OpLt, compiler.OpLe, compiler.OpGt, compiler.OpGe:
			l, _ := instr.B()
			r, _ := instr.C()
			frame.registers[instr.A()] = vm.compareOp(instr.Op(), frame.registers[l], frame.registers[r], pos)

		case compiler.OpPush:
			vm.push(frame.registers[instr.A()])

		case compiler.OpJump:
			ip = ip + 1 + instr.Offset()
			continue
		case compiler.OpJumpIfFalse:
			condIdx, _ := instr.B()
			if !value.Truthy(frame.registers[condIdx]) {
				ip = ip + 1 + instr.Offset()
				continue
			}
		case compiler.OpJumpIfTrue:
			condIdx, _ := instr.B()
			if value.Truthy(frame.registers[condIdx]) {
				ip = ip + 1 + instr.Offset()
				continue
			}

		case compiler.OpCall, compiler.OpTailCall:
			argCount, _ := instr.B()
			popped := vm.popN(int(argCount) + 1)
			frame.registers[instr.A()] = vm.callValue(popped[0], popped[1:], pos)
		case compiler.OpReturn:
			return frame.registers[instr.A()]

		case compiler.OpNewList:
			count, _ := instr.B()
			elems := vm.popN(int(count))
			frame.registers[instr.A()] = value.NewList(elems)
		case compiler.OpNewDict:
			pairCount, _ := instr.B()
			items := vm.popN(int(pairCount) * 2)
			d := value.NewDict()
			for i := 0; i < len(items); i += 2 {
				d.Set(items[i], items[i+1])
			}
			frame.registers[instr.A()] = d
		case compiler.OpMakeClosure:
			funcIdx, _ := instr.B()
			upvalCount, _ := instr.C()
			proto := vm.prog.Functions[funcIdx]
			_ = upvalCount
			frame.registers[instr.A()] = &Closure{Proto: proto, Upvals: vm.buildUpvalues(frame, proto.Upvalues)}
		case compiler.OpNewClass:
			classIdx, _ := instr.B()
			classProto := vm.prog.Classes[classIdx]
			methods := make(map[string]*Closure, len(classProto.MethodProtos))
			for name, fnIdx := range classProto.MethodProtos {
				proto := vm.prog.Functions[fnIdx]
				methods[name] = &Closure{Proto: proto, Upvals: vm.buildUpvalues(frame, proto.Upvalues)}
			}
			frame.registers[instr.A()] = &Class{Name: classProto.Name, Methods: methods, TypeParams: classProto.TypeParams}
		case compiler.OpGetProperty:
			objIdx, _ := instr.B()
			kIdx, _ := instr.C()
			name := string(vm.constValue(kIdx).(value.String))
			frame.registers[instr.A()] = vm.getProperty(frame.registers[objIdx], name, pos)
		case compiler.OpSetProperty:
			kIdx, _ := instr.B()
			valIdx, _ := instr.C()
			name := string(vm.constValue(kIdx).(value.String))
			vm.setProperty(frame.registers[instr.A()], name, frame.registers[valIdx], pos)
		case compiler.OpGetIndex:
			objIdx, _ := instr.B()
			keyIdx, _ := instr.C()
			frame.registers[instr.A()] = vm.getIndex(frame.registers[objIdx], frame.registers[keyIdx], pos)
		case compiler.OpSetIndex:
			count, _ := instr.B()
			popped := vm.popN(int(count)) // [obj, key]
			vm.setIndex(popped[0], popped[1], frame.registers[instr.A()], pos)
		case compiler.OpSlice:
			count, _ := instr.C()
			popped := vm.popN(int(count)) // [start, end]
			objIdx, _ := instr.B()
			frame.registers[instr.A()] = vm.doSlice(frame.registers[objIdx], popped[0], popped[1], pos)
		case compiler.OpThis:
			frame.registers[instr.A()] = frame.this
		case compiler.OpIterItems:
			srcIdx, _ := instr.B()
			frame.registers[instr.A()] = value.NewList(iterationItems(frame.registers[srcIdx]))
		case compiler.OpResultIsOk:
			srcIdx, _ := instr.B()
			if r, ok := frame.registers[srcIdx].(*value.Result); ok {
				frame.registers[instr.A()] = value.Bool(r.IsOk())
			} else {
				frame.registers[instr.A()] = value.Null{}
			}
		case compiler.OpResultPayload:
			srcIdx, _ := instr.B()
			if r, ok := frame.registers[srcIdx].(*value.Result); ok {
				frame.registers[instr.A()] = r.Payload
			} else {
				frame.registers[instr.A()] = value.Null{}
			}
		case compiler.OpTryExec:
			n, _ := instr.B()
			popped := vm.popN(int(n)) // [body, catch, finally]
			frame.registers[instr.A()] = vm.runTry(popped[0], popped[1], popped[2], pos)

		case compiler.OpHalt:
			return value.Null{}
		case compiler.OpNop:
			// no-op

		// BREAK_SIGNAL/CONTINUE_SIGNAL/CALL_LOOP_BODY are reserved for a
		// future bytecode-level peephole pass; this compiler lowers
		// break/continue directly to JUMP patch lists (internal/compiler's
		// loopCtx) and never emits them.
		default:
			vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("vm: unhandled opcode %s", instr.Op()), "")
		}
		ip++
	}
}

func (vm *VM) addOp(left, right value.Value) value.Value {
	ln, lok := left.(value.Number)
	rn, rok := right.(value.Number)
	if lok && rok {
		return ln + rn
	}
	return value.String(left.String() + right.String())
}

func (vm *VM) arithOp(op compiler.Opcode, left, right value.Value, pos compiler.Pos) value.Value {
	ln, lok := left.(value.Number)
	rn, rok := right.(value.Number)
	if !lok || !rok {
		vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("operator %q requires two numbers, got %s and %s", op, left.Kind(), right.Kind()), "")
	}
	switch op {
	case compiler.OpSub:
		return ln - rn
	case compiler.OpMul:
		return ln * rn
	case compiler.OpDiv:
		if rn == 0 {
			return value.ErrorVal(value.String("Division by zero"))
		}
		return ln / rn
	case compiler.OpMod:
		if rn == 0 {
			return value.ErrorVal(value.String("Division by zero"))
		}
		return value.Number(floatMod(float64(ln), float64(rn)))
	case compiler.OpPow:
		return value.Number(floatPow(float64(ln), float64(rn)))
	}
	return value.Null{}
}

func (vm *VM) compareOp(op compiler.Opcode, left, right value.Value, pos compiler.Pos) value.Value {
	lt, ok := value.LessThan(left, right)
	if !ok {
		vm.abort(thornerrors.TypeError, pos, fmt.Sprintf("cannot order %s and %s", left.Kind(), right.Kind()), "")
	}
	eq := value.Equals(left, right)
	switch op {
	case compiler.OpLt:
		return value.Bool(lt)
	case compiler.OpLe:
		return value.Bool(lt || eq)
	case compiler.OpGt:
		return value.Bool(!lt && !eq)
	case compiler.OpGe:
		return value.Bool(!lt || eq)
	}
	return value.Bool(false)
}

// mergeGlobal gives the global table the same overload-group-merge
// behavior as internal/environment.Define, so two top-level `function`
// declarations sharing a name still form a FunctionGroup under the VM
// (spec §4.5) instead of the second silently shadowing the first.
func mergeGlobal(existing, next value.Value) value.Value {
	if existing == nil {
		return next
	}
	if !isCallableVM(existing) || !isCallableVM(next) {
		return next
	}
	if g, ok := existing.(*FunctionGroup); ok {
		g.Overloads = append(g.Overloads, next)
		return g
	}
	return &FunctionGroup{Overloads: []value.Value{existing, next}}
}

func isCallableVM(v value.Value) bool {
	switch v.(type) {
	case *Closure, *NativeFunction, *FunctionGroup, *BoundMethod:
		return true
	default:
		return false
	}
}
