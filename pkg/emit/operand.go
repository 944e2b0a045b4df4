package emit

import (
	"fmt"
	"strings"

	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// operand renders op in AT&T syntax at the given width in bytes (1, 2,
// 4, or 16). A Variable without a register is, by the time emission
// runs, always a frame-layout spill slot: emitted directly as an
// ebp-relative memory operand rather than through a separate reload
// pass, since GAS accepts a register-or-memory form almost everywhere a
// single operand is needed.
func (e *Emitter) operand(op x86.Operand, width int) string {
	switch o := op.(type) {
	case *x86.Variable:
		return e.variableOperand(o, width)
	case x86.VariableSplit:
		return e.memOperand(o.ToMemory(ebpVar))
	case x86.Memory:
		return e.memOperand(o)
	case x86.Immediate:
		return e.immOperand(o)
	}
	panic(fmt.Sprintf("ice: emit: unhandled operand type %T", op))
}

func (e *Emitter) variableOperand(v *x86.Variable, width int) string {
	if v.HasReg() {
		return "%" + v.Reg().NameForWidth(width)
	}
	return e.memOperand(x86.Memory{Ty: v.Ty, Base: ebpVar, Offset: v.StackOffset()})
}

// ebpVar is a throwaway register-only Variable used purely to drive
// memOperand's Base-printing path when a spill slot is rendered inline;
// its register is always ebp, the only base spills are ever relative to.
var ebpVar = pinnedForEmit(x86.EBP)

func pinnedForEmit(r x86.RegID) *x86.Variable {
	v := x86.NewVariable(-1, ir.I32)
	v.SetReg(r)
	return v
}

func (e *Emitter) memOperand(m x86.Memory) string {
	var sb strings.Builder
	if m.Seg == x86.SegGS {
		sb.WriteString("%gs:")
	}
	switch {
	case m.Reloc != "":
		sb.WriteString(m.Reloc)
		if m.Offset != 0 {
			fmt.Fprintf(&sb, "+%d", m.Offset)
		}
	case m.Offset != 0 || (m.Base == nil && m.Index == nil):
		fmt.Fprintf(&sb, "%d", m.Offset)
	}
	if m.Base != nil || m.Index != nil {
		sb.WriteString("(")
		if m.Base != nil {
			sb.WriteString("%" + m.Base.Reg().NameForWidth(4))
		}
		if m.Index != nil {
			scale := m.Scale
			if scale == 0 {
				scale = 1
			}
			fmt.Fprintf(&sb, ",%%%s,%d", m.Index.Reg().NameForWidth(4), scale)
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Emitter) immOperand(imm x86.Immediate) string {
	switch imm.Kind {
	case x86.ImmInt:
		return fmt.Sprintf("$%d", imm.Int)
	case x86.ImmReloc:
		return "$" + imm.Sym
	case x86.ImmFloat:
		panic("ice: emit: a float immediate must reach an instruction through the constant pool, never inline")
	}
	panic("ice: emit: unrecognized immediate kind")
}

// callTarget renders a call's Immediate operand as a bare symbol, never
// $-prefixed: call takes a relocatable address, not an immediate value.
func (e *Emitter) callTarget(op x86.Operand) string {
	imm, ok := op.(x86.Immediate)
	if !ok || imm.Kind != x86.ImmReloc {
		panic(fmt.Sprintf("ice: emit: call target must be a relocatable symbol, got %T", op))
	}
	return imm.Sym
}

// width picks the operand width in bytes a pseudo-instruction's GPR
// operands should be printed at, from its Dest (or, for a Dest-less
// instruction such as cmp/test, its first Src).
func width(inst *x86.Inst) int {
	op := inst.Dest
	if op == nil && len(inst.Src) > 0 {
		op = inst.Src[0]
	}
	return operandWidth(op)
}

func operandWidth(op x86.Operand) int {
	switch o := op.(type) {
	case *x86.Variable:
		return tyWidth(o.Ty)
	case x86.VariableSplit:
		return 4
	case x86.Memory:
		return tyWidth(o.Ty)
	case x86.Immediate:
		return tyWidth(o.Ty)
	}
	return 4
}

func tyWidth(ty ir.Type) int {
	if ty.IsVector() {
		return 16
	}
	switch ty.ByteSize() {
	case 1, 2, 4:
		return ty.ByteSize()
	default:
		return 4
	}
}
