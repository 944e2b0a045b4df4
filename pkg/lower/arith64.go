package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerBinOp64 implements i64 arithmetic.
func lowerBinOp64(b *Builder, in ir.IBinOp) error {
	dest := b.VarFor(in.Dest, in.Ty)
	destLo, destHi := b.split64(dest)

	lhs := b.Resolve(in.LHS)
	rhs := b.Resolve(in.RHS)
	lhsLo, lhsHi := b.lo(lhs), b.hi(lhs)
	rhsLo, rhsHi := b.lo(rhs), b.hi(rhs)

	switch in.Op {
	case ir.Add:
		tLo := b.toVar(lhsLo, legalize.NoHint)
		tHi := b.toVar(lhsHi, legalize.NoHint)
		b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: tLo, Src: []x86.Operand{tLo, rhsLo}})
		b.Emit(&x86.Inst{Op: x86.OpAdc, Dest: tHi, Src: []x86.Operand{tHi, rhsHi}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tLo}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tHi}})
		return nil

	case ir.Sub:
		tLo := b.toVar(lhsLo, legalize.NoHint)
		tHi := b.toVar(lhsHi, legalize.NoHint)
		b.Emit(&x86.Inst{Op: x86.OpSub, Dest: tLo, Src: []x86.Operand{tLo, rhsLo}})
		b.Emit(&x86.Inst{Op: x86.OpSbb, Dest: tHi, Src: []x86.Operand{tHi, rhsHi}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tLo}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tHi}})
		return nil

	case ir.And, ir.Or, ir.Xor:
		op := opTable[in.Op]
		tLo := b.toVar(lhsLo, legalize.NoHint)
		tHi := b.toVar(lhsHi, legalize.NoHint)
		b.Emit(&x86.Inst{Op: op, Dest: tLo, Src: []x86.Operand{tLo, rhsLo}})
		b.Emit(&x86.Inst{Op: op, Dest: tHi, Src: []x86.Operand{tHi, rhsHi}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tLo}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tHi}})
		return nil

	case ir.Mul:
		lowerMul64(b, destLo, destHi, lhsLo, lhsHi, rhsLo, rhsHi)
		return nil

	case ir.Shl:
		lowerShl64(b, destLo, destHi, lhsLo, lhsHi, rhsLo)
		return nil
	case ir.Lshr:
		lowerShr64(b, destLo, destHi, lhsLo, lhsHi, rhsLo, false)
		return nil
	case ir.Ashr:
		lowerShr64(b, destLo, destHi, lhsLo, lhsHi, rhsLo, true)
		return nil

	case ir.Udiv, ir.Sdiv, ir.Urem, ir.Srem:
		lowerDivRem64(b, in, dest, lhs, rhs)
		return nil
	}
	panic("ice: lowerBinOp64: fp or unsupported op on i64: " + in.Op.String())
}

// lowerMul64 is gcc's schoolbook 64x64->64 expansion: t1 = hi(a)*lo(b),
// t2 = lo(a)*hi(b) (both truncated to 32 bits, discarding overflow since
// only the low 64 bits of the product are kept), edx:eax = lo(a)*lo(b)
// via the widening unsigned mul, dest.lo = eax, dest.hi = edx+t1+t2.
func lowerMul64(b *Builder, destLo, destHi *x86.Variable, lhsLo, lhsHi, rhsLo, rhsHi x86.Operand) {
	t1 := b.toVar(lhsHi, legalize.NoHint)
	rhsLoForT1 := b.legalize(rhsLo, x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpImul, Dest: t1, Src: []x86.Operand{t1, rhsLoForT1}})

	t2 := b.toVar(rhsHi, legalize.NoHint)
	lhsLoForT2 := b.legalize(lhsLo, x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpImul, Dest: t2, Src: []x86.Operand{t2, lhsLoForT2}})

	eax := b.toVar(lhsLo, legalize.PinTo(x86.EAX))
	rhsLoForMul := b.legalize(rhsLo, x86.ClassReg|x86.ClassMem, legalize.NoHint)
	edx := b.fresh(ir.I32)
	edx.SetReg(x86.EDX)
	b.Emit(&x86.Inst{Op: x86.OpMul, Dest: eax, Src: []x86.Operand{eax, rhsLoForMul}, FakeRegs: []*x86.Variable{edx}})

	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{eax}})
	hi := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: hi, Src: []x86.Operand{edx}})
	b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: hi, Src: []x86.Operand{hi, t1}})
	b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: hi, Src: []x86.Operand{hi, t2}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{hi}})
}

// lowerShl64 is the double-shift pattern: shld shifts bits of lo into hi
// by count, then shl applies the same count to lo; when count's bit 5
// (≥32) is set, the result that matters is lo shifted into hi with hi
// cleared — a test-and-branch corrects across the 32-bit boundary.
func lowerShl64(b *Builder, destLo, destHi *x86.Variable, lhsLo, lhsHi, count x86.Operand) {
	cl := b.legalize(count, x86.ClassImm, legalize.NoHint)
	if _, isImm := cl.(x86.Immediate); !isImm {
		cl = b.legalize(count, x86.ClassReg, legalize.PinTo(x86.ECX))
	}
	tLo := b.toVar(lhsLo, legalize.NoHint)
	tHi := b.toVar(lhsHi, legalize.NoHint)

	b.Emit(&x86.Inst{Op: x86.OpShld, Dest: tHi, Src: []x86.Operand{tHi, tLo, cl}})
	b.Emit(&x86.Inst{Op: x86.OpShl, Dest: tLo, Src: []x86.Operand{tLo, cl}})

	corrected := b.MachFn.NewLabel()
	done := b.MachFn.NewLabel()
	b.Emit(&x86.Inst{Op: x86.OpTest, Src: []x86.Operand{cl, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 32}}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, Target: corrected, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tLo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tHi}})
	b.Emit(&x86.Inst{Op: x86.OpJmp, Target: done, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: corrected, HasTarget: true})
	zero := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpXor, Dest: zero, Src: []x86.Operand{zero, zero}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{zero}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tLo}})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: done, HasTarget: true})
}

// lowerShr64 mirrors lowerShl64 for lshr/ashr: shrd shifts hi into lo,
// then shr/sar applies to hi; ashr substitutes a sign-fill sar …,31 for
// the corrected-branch case instead of zeroing.
func lowerShr64(b *Builder, destLo, destHi *x86.Variable, lhsLo, lhsHi, count x86.Operand, arith bool) {
	cl := b.legalize(count, x86.ClassImm, legalize.NoHint)
	if _, isImm := cl.(x86.Immediate); !isImm {
		cl = b.legalize(count, x86.ClassReg, legalize.PinTo(x86.ECX))
	}
	tLo := b.toVar(lhsLo, legalize.NoHint)
	tHi := b.toVar(lhsHi, legalize.NoHint)

	shiftHiOp := x86.OpShr
	if arith {
		shiftHiOp = x86.OpSar
	}
	b.Emit(&x86.Inst{Op: x86.OpShrd, Dest: tLo, Src: []x86.Operand{tLo, tHi, cl}})
	b.Emit(&x86.Inst{Op: shiftHiOp, Dest: tHi, Src: []x86.Operand{tHi, cl}})

	corrected := b.MachFn.NewLabel()
	done := b.MachFn.NewLabel()
	b.Emit(&x86.Inst{Op: x86.OpTest, Src: []x86.Operand{cl, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 32}}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, Target: corrected, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tLo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tHi}})
	b.Emit(&x86.Inst{Op: x86.OpJmp, Target: done, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: corrected, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tHi}})
	if arith {
		fill := b.fresh(ir.I32)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: fill, Src: []x86.Operand{tHi}})
		b.Emit(&x86.Inst{Op: x86.OpSar, Dest: fill, Src: []x86.Operand{fill, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 31}}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{fill}})
	} else {
		zero := b.fresh(ir.I32)
		b.Emit(&x86.Inst{Op: x86.OpXor, Dest: zero, Src: []x86.Operand{zero, zero}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{zero}})
	}
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: done, HasTarget: true})
}

var divHelperKey = map[ir.BinOpKind]string{
	ir.Udiv: "udiv64", ir.Sdiv: "sdiv64", ir.Urem: "urem64", ir.Srem: "srem64",
}

func lowerDivRem64(b *Builder, in ir.IBinOp, dest *x86.Variable, lhs, rhs x86.Operand) {
	result := b.callHelper(divHelperKey[in.Op], []x86.Operand{lhs, rhs}, ir.I64)
	lo, hi := b.split64(result)
	destLo, destHi := b.split64(dest)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{lo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{hi}})
}
