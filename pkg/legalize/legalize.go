// Package legalize implements operand legalization and 64-bit
// splitting, in the spirit of Subzero's TargetX8632::legalize() and
// Int64Helper. Every per-opcode lowering rule in pkg/lower routes its
// operands through Legalize before building a machine instruction, so
// that no instruction ever sees an operand shape the real x86 encoding
// can't hold.
package legalize

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// Emitter is the narrow interface legalize needs from the lowering
// builder: mint a fresh virtual register and append an instruction to
// the block currently being built. Kept separate from pkg/lower's
// concrete Builder type to avoid a import cycle (pkg/lower depends on
// pkg/legalize, not the reverse).
type Emitter interface {
	FreshVariable(ty ir.Type) *x86.Variable
	Emit(inst *x86.Inst)
	MovOpFor(ty ir.Type) x86.Op
	ZeroVector(ty ir.Type) *x86.Variable
}

// Hint optionally pins the register a copy-to-register must land in
// (e.g. imul i8 wants its first operand in AL, a variable shift count
// must be in CL).
type Hint struct {
	Reg RegHint
}

// RegHint is a pinned physical register, or NoHint.
type RegHint struct {
	Reg  x86.RegID
	Set  bool
}

// NoHint is the zero-value Hint: no pinned register.
var NoHint = Hint{}

// PinTo builds a Hint pinning the copy target to r.
func PinTo(r x86.RegID) Hint { return Hint{Reg: RegHint{Reg: r, Set: true}} }

// Legalize transforms op into a form whose x86.Class is a member of
// allowed, inserting a move into a fresh virtual register when it isn't
// already.
func Legalize(e Emitter, op x86.Operand, allowed x86.Class, hint Hint) x86.Operand {
	switch o := op.(type) {
	case x86.Memory:
		return legalizeMemory(e, o, allowed, hint)

	case x86.VariableSplit:
		// A half-view of a not-yet-spilled Variable reaching legalize
		// directly (rather than through Lo/Hi, which materialize a
		// register instead) can only mean the parent is being treated
		// as address-only; fall back to copying it to a register.
		return copyToReg(e, o, hint)

	case x86.Immediate:
		if o.Kind == x86.ImmUndef {
			if o.Ty.IsVector() {
				return e.ZeroVector(o.Ty)
			}
			o = zeroImmediate(o.Ty)
		}
		cls := x86.ClassOf(o)
		if cls&allowed == 0 || o.Kind == x86.ImmFloat || o.Kind == x86.ImmDouble {
			// Floating constants never reach an instruction directly:
			// they live in the constant pool and arrive as memory.
			return copyToReg(e, o, hint)
		}
		return o

	case *x86.Variable:
		satisfiesAllowed := allowed&x86.ClassReg != 0 && (o.HasReg() || o.Weight == x86.WeightInfinite)
		satisfiesHint := !hint.Reg.Set || (o.HasReg() && o.Reg() == hint.Reg.Reg)
		if satisfiesAllowed && satisfiesHint {
			return o
		}
		return copyToReg(e, o, hint)
	}
	panic("ice: legalize: unknown operand kind")
}

// ToVariable is the tighter wrapper that demands a *x86.Variable result.
func ToVariable(e Emitter, op x86.Operand, hint Hint) *x86.Variable {
	result := Legalize(e, op, x86.ClassReg, hint)
	v, ok := result.(*x86.Variable)
	if !ok {
		panic("ice: legalize_to_var: legalize did not produce a register")
	}
	return v
}

func legalizeMemory(e Emitter, m x86.Memory, allowed x86.Class, hint Hint) x86.Operand {
	if m.Base != nil {
		m.Base = ToVariable(e, m.Base, NoHint)
	}
	if m.Index != nil {
		m.Index = ToVariable(e, m.Index, NoHint)
	}
	if allowed&x86.ClassMem == 0 {
		return copyToReg(e, m, hint)
	}
	return m
}

func copyToReg(e Emitter, op x86.Operand, hint Hint) *x86.Variable {
	ty := operandType(op)
	dest := e.FreshVariable(ty)
	if hint.Reg.Set {
		dest.SetReg(hint.Reg.Reg)
	}
	e.Emit(&x86.Inst{Op: e.MovOpFor(ty), Dest: dest, Src: []x86.Operand{op}})
	return dest
}

func operandType(op x86.Operand) ir.Type {
	switch o := op.(type) {
	case *x86.Variable:
		return o.Ty
	case x86.Memory:
		return o.Ty
	case x86.Immediate:
		return o.Ty
	case x86.VariableSplit:
		return ir.I32
	}
	panic("ice: operandType: unknown operand kind")
}

func zeroImmediate(ty ir.Type) x86.Immediate {
	if ty.IsFloat() {
		if ty == ir.F64 {
			return x86.Immediate{Kind: x86.ImmDouble, Ty: ty, F64: 0}
		}
		return x86.Immediate{Kind: x86.ImmFloat, Ty: ty, F32: 0}
	}
	return x86.Immediate{Kind: x86.ImmInt, Ty: ty, Int: 0}
}
