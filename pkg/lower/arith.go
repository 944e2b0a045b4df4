package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerBinOp dispatches IBinOp to the rule matching its operand type: i64
// arithmetic, vector arithmetic, scalar float arithmetic, or plain
// scalar integer arithmetic.
func lowerBinOp(b *Builder, in ir.IBinOp) error {
	switch {
	case in.Ty.Is64() && !in.Ty.IsFloat():
		return lowerBinOp64(b, in)
	case in.Ty.IsVector():
		return lowerBinOpVector(b, in)
	case in.Ty.IsFloat():
		lowerBinOpFloat(b, in)
		return nil
	default:
		return lowerBinOpScalar(b, in)
	}
}

var opTable = map[ir.BinOpKind]x86.Op{
	ir.Add: x86.OpAdd,
	ir.Sub: x86.OpSub,
	ir.And: x86.OpAnd,
	ir.Or:  x86.OpOr,
	ir.Xor: x86.OpXor,
	ir.Shl: x86.OpShl,
	ir.Lshr: x86.OpShr,
	ir.Ashr: x86.OpSar,
}

// lowerBinOpScalar handles Add/Sub/And/Or/Xor/Mul/shifts/div/rem on any
// scalar integer type narrower than i64.
func lowerBinOpScalar(b *Builder, in ir.IBinOp) error {
	dest := b.VarFor(in.Dest, in.Ty)
	lhs := b.Resolve(in.LHS)
	rhs := b.Resolve(in.RHS)

	switch in.Op {
	case ir.Udiv, ir.Sdiv, ir.Urem, ir.Srem:
		lowerScalarDivRem(b, in, dest, lhs, rhs)
		return nil

	case ir.Mul:
		lowerScalarMul(b, in, dest, lhs, rhs)
		return nil

	case ir.Shl, ir.Lshr, ir.Ashr:
		op := opTable[in.Op]
		t := b.toVar(lhs, legalize.NoHint)
		count := b.legalize(rhs, x86.ClassImm, legalize.NoHint)
		if _, isImm := count.(x86.Immediate); !isImm {
			count = b.legalize(rhs, x86.ClassReg, legalize.PinTo(x86.ECX))
		}
		b.Emit(&x86.Inst{Op: op, Dest: t, Src: []x86.Operand{t, count}})
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{t}})
		return nil

	default:
		op, ok := opTable[in.Op]
		if !ok {
			panic("ice: lowerBinOpScalar: unexpected op " + in.Op.String())
		}
		t := b.toVar(lhs, legalize.NoHint)
		rhs = b.legalize(rhs, x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
		b.Emit(&x86.Inst{Op: op, Dest: t, Src: []x86.Operand{t, rhs}})
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{t}})
		return nil
	}
}

// lowerScalarMul implements imul, pinning the accumulator to al for an i8
// result: imul i8 pins T to al.
func lowerScalarMul(b *Builder, in ir.IBinOp, dest *x86.Variable, lhs, rhs x86.Operand) {
	hint := legalize.NoHint
	if in.Ty == ir.I8 {
		hint = legalize.PinTo(x86.EAX)
	}
	t := b.toVar(lhs, hint)
	rhs = b.legalize(rhs, x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpImul, Dest: t, Src: []x86.Operand{t, rhs}})
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{t}})
}

// lowerScalarDivRem implements hardware div/idiv: the dividend occupies
// edx:eax (sign- or zero-extended from eax for signed/unsigned), the
// divisor must be in a register or memory (never an immediate), and the
// result is read back from eax (quotient) or edx (remainder).
func lowerScalarDivRem(b *Builder, in ir.IBinOp, dest *x86.Variable, lhs, rhs x86.Operand) {
	signed := in.Op == ir.Sdiv || in.Op == ir.Srem
	wantRem := in.Op == ir.Urem || in.Op == ir.Srem

	eax := b.toVar(lhs, legalize.PinTo(x86.EAX))
	divisor := b.legalize(rhs, x86.ClassReg|x86.ClassMem, legalize.NoHint)

	edx := b.fresh(in.Ty)
	edx.SetReg(x86.EDX)
	if signed {
		// sign-extend eax into edx (cdq), modeled as an arithmetic shift
		// of a copy rather than a dedicated cdq opcode: copy eax into edx,
		// then sar edx by 31 to replicate the sign bit across edx.
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: edx, Src: []x86.Operand{eax}})
		b.Emit(&x86.Inst{Op: x86.OpSar, Dest: edx, Src: []x86.Operand{edx, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 31}}})
	} else {
		b.Emit(&x86.Inst{Op: x86.OpXor, Dest: edx, Src: []x86.Operand{edx, edx}})
	}

	op := x86.OpDiv
	if signed {
		op = x86.OpIdiv
	}
	eaxDest := b.fresh(in.Ty)
	eaxDest.SetReg(x86.EAX)
	edxDest := b.fresh(in.Ty)
	edxDest.SetReg(x86.EDX)
	b.Emit(&x86.Inst{Op: op, Dest: eaxDest, Src: []x86.Operand{eax, edx, divisor}, FakeRegs: []*x86.Variable{edxDest}})

	if wantRem {
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{edxDest}})
	} else {
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{eaxDest}})
	}
}
