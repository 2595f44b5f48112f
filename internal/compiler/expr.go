package compiler

import "thorn/internal/parser"

// compileExpr lowers e into zero or more instructions and returns the
// register holding its result. Variable reads of an already-resident
// local return that local's register directly (no MOVE), matching the
// teacher's register compiler's "locals are registers" convention;
// everything else allocates a fresh temporary.
func (c *compiler) compileExpr(fs *funcState, e parser.Expr) uint8 {
	fs.pendingPos = Pos{Line: e.Span().Line, Col: e.Span().Col}
	switch ex := e.(type) {
	case *parser.Literal:
		return c.compileLiteral(fs, ex)
	case *parser.Variable:
		return c.compileVariableRead(fs, ex.Name)
	case *parser.Assign:
		return c.compileAssign(fs, ex)
	case *parser.Binary:
		return c.compileBinary(fs, ex)
	case *parser.Unary:
		return c.compileUnary(fs, ex)
	case *parser.Logical:
		return c.compileLogical(fs, ex)
	case *parser.Call:
		return c.compileCall(fs, ex)
	case *parser.Get:
		return c.compileGet(fs, ex)
	case *parser.Set:
		return c.compileSet(fs, ex)
	case *parser.Index:
		return c.compileIndex(fs, ex)
	case *parser.IndexSet:
		return c.compileIndexSet(fs, ex)
	case *parser.Slice:
		return c.compileSlice(fs, ex)
	case *parser.Grouping:
		return c.compileExpr(fs, ex.Inner)
	case *parser.Lambda:
		return c.compileLambda(fs, ex)
	case *parser.ListExpr:
		return c.compileListExpr(fs, ex)
	case *parser.Dict:
		return c.compileDict(fs, ex)
	case *parser.This:
		dst := fs.alloc()
		fs.emit(OpThis, dst, 0, 0, false, false)
		return dst
	case *parser.Match:
		return c.compileMatch(fs, ex)
	default:
		c.fail(e.Span(), "compiler: unhandled expression")
		dst := fs.alloc()
		fs.emit(OpLoadNull, dst, 0, 0, false, false)
		return dst
	}
}

func (c *compiler) compileLiteral(fs *funcState, e *parser.Literal) uint8 {
	dst := fs.alloc()
	switch v := e.Value.(type) {
	case nil:
		fs.emit(OpLoadNull, dst, 0, 0, false, false)
	case bool:
		b := uint8(0)
		if v {
			b = 1
		}
		fs.emit(OpLoadBool, dst, b, 0, false, false)
	default:
		k := c.constantIndex(v)
		fs.emit(OpLoadConst, dst, k, 0, true, false)
	}
	return dst
}

// compileVariableRead resolves name as a local (direct register, no
// instruction), an upvalue (GET_UPVAL), or a global (LOAD_GLOBAL),
// mirroring internal/environment.Get's own parent-chain walk (spec §4.4).
func (c *compiler) compileVariableRead(fs *funcState, name string) uint8 {
	if reg, ok := fs.resolveLocal(name); ok {
		return reg
	}
	if idx, ok := fs.resolveUpvalue(name); ok {
		dst := fs.alloc()
		fs.emit(OpGetUpval, dst, uint8(idx), 0, false, false)
		return dst
	}
	return c.loadGlobal(fs, name)
}

// compileAssign implements the nested-expression `name = value` form
// (spec §4.4 Assign: innermost matching binding). Unlike compileVarStmt's
// declare-or-mutate sugar, this always targets an existing binding; a
// name that resolves to neither a local, an upvalue, nor an existing
// global still falls back to defining a fresh global here, since the VM
// has no static pre-pass to detect an unbound assignment at compile time
// (documented VM/evaluator parity gap, spec §9).
func (c *compiler) compileAssign(fs *funcState, e *parser.Assign) uint8 {
	valReg := c.compileExpr(fs, e.Value)
	if reg, ok := fs.resolveLocal(e.Name); ok {
		fs.emit(OpMove, reg, valReg, 0, false, false)
		return reg
	}
	if idx, ok := fs.resolveUpvalue(e.Name); ok {
		fs.emit(OpSetUpval, uint8(idx), valReg, 0, false, false)
		return valReg
	}
	if fs.isInit {
		c.emitSetThisField(fs, e.Name, valReg)
		return valReg
	}
	c.storeGlobal(fs, e.Name, valReg)
	return valReg
}

var binaryOpcode = map[string]Opcode{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod, "**": OpPow,
	"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,
}

func (c *compiler) compileBinary(fs *funcState, e *parser.Binary) uint8 {
	left := c.compileExpr(fs, e.Left)
	right := c.compileExpr(fs, e.Right)
	op, ok := binaryOpcode[e.Operator]
	if !ok {
		c.fail(e.Span(), "compiler: unknown binary operator "+e.Operator)
		op = OpAdd
	}
	dst := fs.alloc()
	fs.emit(op, dst, left, right, false, false)
	return dst
}

func (c *compiler) compileUnary(fs *funcState, e *parser.Unary) uint8 {
	operand := c.compileExpr(fs, e.Operand)
	dst := fs.alloc()
	switch e.Operator {
	case "!":
		fs.emit(OpNot, dst, operand, 0, false, false)
	case "-":
		fs.emit(OpNeg, dst, operand, 0, false, false)
	default:
		c.fail(e.Span(), "compiler: unknown unary operator "+e.Operator)
	}
	return dst
}

// compileLogical implements short-circuit evaluation (spec §8 property 7)
// as a jump rather than always evaluating both sides: && skips Right when
// Left is falsey, || skips it when Left is truthy, ?? skips it unless
// Left is exactly Null.
func (c *compiler) compileLogical(fs *funcState, e *parser.Logical) uint8 {
	left := c.compileExpr(fs, e.Left)
	dst := fs.alloc()
	fs.emit(OpMove, dst, left, 0, false, false)
	switch e.Operator {
	case "&&":
		j := fs.emitJump(OpJumpIfFalse, dst)
		right := c.compileExpr(fs, e.Right)
		fs.emit(OpMove, dst, right, 0, false, false)
		fs.patchJumpHere(j)
	case "||":
		j := fs.emitJump(OpJumpIfTrue, dst)
		right := c.compileExpr(fs, e.Right)
		fs.emit(OpMove, dst, right, 0, false, false)
		fs.patchJumpHere(j)
	case "??":
		isNullReg := fs.alloc()
		fs.emit(OpLoadNull, isNullReg, 0, 0, false, false)
		fs.emit(OpEq, isNullReg, dst, isNullReg, false, false)
		j := fs.emitJump(OpJumpIfFalse, isNullReg)
		right := c.compileExpr(fs, e.Right)
		fs.emit(OpMove, dst, right, 0, false, false)
		fs.patchJumpHere(j)
	default:
		c.fail(e.Span(), "compiler: unknown logical operator "+e.Operator)
	}
	return dst
}

// compileCall stages the callee and arguments on the VM's auxiliary
// operand stack via OpPush (bytecode.go's note on why Call can't address
// a variable-length argument list through a 3-operand ABC instruction),
// then emits CALL with the argument count in B.
func (c *compiler) compileCall(fs *funcState, e *parser.Call) uint8 {
	calleeReg := c.compileExpr(fs, e.Callee)
	fs.emit(OpPush, calleeReg, 0, 0, false, false)
	for _, a := range e.Args {
		argReg := c.compileExpr(fs, a)
		fs.emit(OpPush, argReg, 0, 0, false, false)
	}
	dst := fs.alloc()
	fs.emit(OpCall, dst, uint8(len(e.Args)), 0, false, false)
	return dst
}

func (c *compiler) compileGet(fs *funcState, e *parser.Get) uint8 {
	objReg := c.compileExpr(fs, e.Object)
	dst := fs.alloc()
	k := c.constantIndex(e.Name)
	fs.emit(OpGetProperty, dst, objReg, k, false, true)
	return dst
}

func (c *compiler) compileSet(fs *funcState, e *parser.Set) uint8 {
	objReg := c.compileExpr(fs, e.Object)
	valReg := c.compileExpr(fs, e.Value)
	k := c.constantIndex(e.Name)
	fs.emit(OpSetProperty, objReg, k, valReg, true, false)
	return valReg
}

func (c *compiler) compileIndex(fs *funcState, e *parser.Index) uint8 {
	objReg := c.compileExpr(fs, e.Object)
	keyReg := c.compileExpr(fs, e.Key)
	dst := fs.alloc()
	fs.emit(OpGetIndex, dst, objReg, keyReg, false, false)
	return dst
}

func (c *compiler) compileIndexSet(fs *funcState, e *parser.IndexSet) uint8 {
	objReg := c.compileExpr(fs, e.Object)
	keyReg := c.compileExpr(fs, e.Key)
	valReg := c.compileExpr(fs, e.Value)
	fs.emit(OpPush, objReg, 0, 0, false, false)
	fs.emit(OpPush, keyReg, 0, 0, false, false)
	fs.emit(OpSetIndex, valReg, 2, 0, false, false)
	return valReg
}

// compileSlice stages start/end on the operand stack; an omitted bound
// pushes a Null-holding register (Null is never a valid slice bound
// otherwise), which the VM reads back as "bound omitted" (spec §4.3:
// "either bound optional").
func (c *compiler) compileSlice(fs *funcState, e *parser.Slice) uint8 {
	objReg := c.compileExpr(fs, e.Object)
	var startReg uint8
	if e.Start != nil {
		startReg = c.compileExpr(fs, e.Start)
	} else {
		startReg = fs.alloc()
		fs.emit(OpLoadNull, startReg, 0, 0, false, false)
	}
	var endReg uint8
	if e.End != nil {
		endReg = c.compileExpr(fs, e.End)
	} else {
		endReg = fs.alloc()
		fs.emit(OpLoadNull, endReg, 0, 0, false, false)
	}
	dst := fs.alloc()
	fs.emit(OpPush, startReg, 0, 0, false, false)
	fs.emit(OpPush, endReg, 0, 0, false, false)
	fs.emit(OpSlice, dst, objReg, 2, false, false)
	return dst
}

func (c *compiler) compileLambda(fs *funcState, e *parser.Lambda) uint8 {
	proto := &FunctionProto{Name: "<lambda>", Arity: len(e.Params), ParamTypes: paramTypesOf(e.Params)}
	idx := len(c.prog.Functions)
	c.prog.Functions = append(c.prog.Functions, proto)
	inner := &funcState{parent: fs, proto: proto}
	inner.pushScope()
	for _, p := range e.Params {
		inner.declareLocal(p.Name)
	}
	for _, s := range e.Body {
		c.compileStmt(inner, s)
	}
	// Bare-expression lambdas (`$ (x) => x+1`) already carry an explicit
	// Return the parser synthesized (lambdaExpr); a block-bodied lambda
	// (`$ (x) => { ... }`) follows the same implicit-Null-return rule as a
	// named function (spec §4.6 runFunctionBody: "falls through to Null").
	if len(proto.Code) == 0 || proto.Code[len(proto.Code)-1].Op() != OpReturn {
		nullReg := inner.alloc()
		inner.emit(OpLoadNull, nullReg, 0, 0, false, false)
		inner.emit(OpReturn, nullReg, 0, 0, false, false)
	}
	inner.popScope()
	return c.emitMakeClosure(fs, idx, proto.Upvalues)
}

func (c *compiler) compileListExpr(fs *funcState, e *parser.ListExpr) uint8 {
	for _, el := range e.Elements {
		r := c.compileExpr(fs, el)
		fs.emit(OpPush, r, 0, 0, false, false)
	}
	dst := fs.alloc()
	fs.emit(OpNewList, dst, uint8(len(e.Elements)), 0, false, false)
	return dst
}

func (c *compiler) compileDict(fs *funcState, e *parser.Dict) uint8 {
	for i, k := range e.Keys {
		kr := c.compileExpr(fs, k)
		vr := c.compileExpr(fs, e.Values[i])
		fs.emit(OpPush, kr, 0, 0, false, false)
		fs.emit(OpPush, vr, 0, 0, false, false)
	}
	dst := fs.alloc()
	fs.emit(OpNewDict, dst, uint8(len(e.Keys)), 0, false, false)
	return dst
}

// compileMatch implements spec §4.6's match expression: the scrutinee is
// evaluated once, and each arm's pattern test is compiled as a sequence
// of inline checks over dedicated RESULT_IS_OK/RESULT_PAYLOAD opcodes for
// Ok(..)/Error(..) patterns, falling through to the next arm's test block
// on a mismatch and to a Null result (matching the tree evaluator's
// unmatched-arm behavior) if every arm fails.
func (c *compiler) compileMatch(fs *funcState, e *parser.Match) uint8 {
	scrutinee := c.compileExpr(fs, e.Scrutinee)
	dst := fs.alloc()
	fs.emit(OpLoadNull, dst, 0, 0, false, false)
	var endJumps []int
	for _, arm := range e.Arms {
		failJumps := c.compileArmPattern(fs, arm.Pattern, scrutinee)
		if arm.Guard != nil {
			g := c.compileExpr(fs, arm.Guard)
			failJumps = append(failJumps, fs.emitJump(OpJumpIfFalse, g))
		}
		bodyReg := c.compileArmBody(fs, arm.Body)
		fs.emit(OpMove, dst, bodyReg, 0, false, false)
		endJumps = append(endJumps, fs.emitJump(OpJump, 0))
		for _, fj := range failJumps {
			fs.patchJumpHere(fj)
		}
	}
	for _, ej := range endJumps {
		fs.patchJumpHere(ej)
	}
	return dst
}

// compileArmPattern emits the test for one pattern against valReg,
// returning a list of JUMP_IF_FALSE placeholders that must be patched to
// the arm's failure landing pad (the start of the next arm's test).
// BindPattern/WildcardPattern always succeed; LiteralPattern compares by
// EQ; Ok()/Error() test RESULT_IS_OK and recurse on the unwrapped payload.
func (c *compiler) compileArmPattern(fs *funcState, p parser.Pattern, valReg uint8) []int {
	switch pat := p.(type) {
	case parser.WildcardPattern:
		return nil
	case parser.BindPattern:
		reg := fs.declareLocal(pat.Name)
		fs.emit(OpMove, reg, valReg, 0, false, false)
		return nil
	case parser.LiteralPattern:
		lit := &parser.Literal{Value: pat.Value}
		litReg := c.compileLiteral(fs, lit)
		cmp := fs.alloc()
		fs.emit(OpEq, cmp, valReg, litReg, false, false)
		return []int{fs.emitJump(OpJumpIfFalse, cmp)}
	case parser.OkPattern:
		// RESULT_IS_OK writes Bool(true)/Bool(false) for an Ok/Error Result
		// and Null for anything else, so comparing against the literal
		// `true`/`false` (rather than a bare truthy jump) is what correctly
		// rejects a non-Result scrutinee from matching either variant.
		isOk := fs.alloc()
		fs.emit(OpResultIsOk, isOk, valReg, 0, false, false)
		trueReg := c.compileLiteral(fs, &parser.Literal{Value: true})
		cmp := fs.alloc()
		fs.emit(OpEq, cmp, isOk, trueReg, false, false)
		jumps := []int{fs.emitJump(OpJumpIfFalse, cmp)}
		payload := fs.alloc()
		fs.emit(OpResultPayload, payload, valReg, 0, false, false)
		return append(jumps, c.compileArmPattern(fs, pat.Inner, payload)...)
	case parser.ErrorPattern:
		isOk := fs.alloc()
		fs.emit(OpResultIsOk, isOk, valReg, 0, false, false)
		falseReg := c.compileLiteral(fs, &parser.Literal{Value: false})
		cmp := fs.alloc()
		fs.emit(OpEq, cmp, isOk, falseReg, false, false)
		jumps := []int{fs.emitJump(OpJumpIfFalse, cmp)}
		payload := fs.alloc()
		fs.emit(OpResultPayload, payload, valReg, 0, false, false)
		return append(jumps, c.compileArmPattern(fs, pat.Inner, payload)...)
	default:
		return nil
	}
}

// compileArmBody evaluates a match arm's block, whose final expression
// statement is the arm's value (spec §4.2: "Body is an expression or a
// block whose final expression is the arm's value").
func (c *compiler) compileArmBody(fs *funcState, body []parser.Stmt) uint8 {
	fs.pushScope()
	defer fs.popScope()
	if len(body) == 0 {
		dst := fs.alloc()
		fs.emit(OpLoadNull, dst, 0, 0, false, false)
		return dst
	}
	for _, s := range body[:len(body)-1] {
		c.compileStmt(fs, s)
	}
	last := body[len(body)-1]
	if es, ok := last.(*parser.ExpressionStmt); ok {
		return c.compileExpr(fs, es.Expr)
	}
	c.compileStmt(fs, last)
	dst := fs.alloc()
	fs.emit(OpLoadNull, dst, 0, 0, false, false)
	return dst
}
