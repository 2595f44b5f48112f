package compiler

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of every function in prog
// to w (spec §6's "enable bytecode disassembly to stderr" config knob).
// Grounded on CWBudde-go-dws's internal/bytecode.Disassembler — a
// constants-pool dump followed by one line per instruction — narrowed to
// Thorn's fixed 3-operand ABC/AJump encoding, which needs no per-opcode
// operand-shape dispatch table the way go-dws's variable-width bytecode
// does.
func Disassemble(w io.Writer, prog *Program) {
	fmt.Fprintf(w, "== constants (%d) ==\n", len(prog.Constants))
	for i, c := range prog.Constants {
		fmt.Fprintf(w, "  [%04d] %#v\n", i, c)
	}
	for i, proto := range prog.Functions {
		marker := ""
		if i == prog.Main {
			marker = " (main)"
		}
		disassembleFunction(w, i, proto, marker)
	}
	for _, class := range prog.Classes {
		fmt.Fprintf(w, "== class %s ==\n", class.Name)
		for name, idx := range class.MethodProtos {
			fmt.Fprintf(w, "  %s -> function %d\n", name, idx)
		}
	}
}

func disassembleFunction(w io.Writer, idx int, proto *FunctionProto, marker string) {
	fmt.Fprintf(w, "== function %d: %s/%d registers=%d%s ==\n", idx, proto.Name, proto.Arity, proto.NumRegisters, marker)
	for pc, inst := range proto.Code {
		line := 0
		if pc < len(proto.Positions) {
			line = proto.Positions[pc].Line
		}
		fmt.Fprintf(w, "  %04d  line %-4d  %s\n", pc, line, disassembleInstruction(inst))
	}
	for i, uv := range proto.Upvalues {
		kind := "upvalue"
		if uv.IsLocal {
			kind = "local"
		}
		fmt.Fprintf(w, "  upvalue[%d] %s <- %s %d\n", i, uv.Name, kind, uv.Slot)
	}
}

func disassembleInstruction(inst Instruction) string {
	op := inst.Op()
	switch op {
	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		b, _ := inst.B()
		return fmt.Sprintf("%-16s offset=%d cond=R%d", op, inst.Offset(), b)
	default:
		a := inst.A()
		b, bConst := inst.B()
		c, cConst := inst.C()
		return fmt.Sprintf("%-16s A=%d B=%s C=%s", op, a, operand(b, bConst), operand(c, cConst))
	}
}

func operand(idx uint8, isConst bool) string {
	if isConst {
		return fmt.Sprintf("K%d", idx)
	}
	return fmt.Sprintf("R%d", idx)
}
