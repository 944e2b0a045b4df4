package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

var icmpCC = map[ir.IntPredicate]x86.CondCode{
	ir.ICmpEq: x86.CCe, ir.ICmpNe: x86.CCne,
	ir.ICmpUgt: x86.CCa, ir.ICmpUge: x86.CCae, ir.ICmpUlt: x86.CCb, ir.ICmpUle: x86.CCbe,
	ir.ICmpSgt: x86.CCg, ir.ICmpSge: x86.CCge, ir.ICmpSlt: x86.CCl, ir.ICmpSle: x86.CCle,
}

// lowerIcmpToBool materializes icmp's i1 result into a register (the
// unfused path: used whenever the compare isn't immediately consumed by a
// single conditional branch).
func lowerIcmpToBool(b *Builder, in ir.IIcmp) {
	if in.Ty.IsVector() {
		dest := b.VarFor(in.Dest, boolVecTypeFor(in.Ty))
		lowerIcmpVector(b, in, dest)
		return
	}

	dest := b.VarFor(in.Dest, ir.I1)
	if in.Ty.Is64() {
		lowerIcmp64ToBool(b, in, dest)
		return
	}

	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.legalize(b.Resolve(in.RHS), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhs, rhs}})
	b.Emit(&x86.Inst{Op: x86.OpSetcc, CC: icmpCC[in.Pred], Dest: dest})
}

// lowerIcmpBranchFused implements the peephole that fuses icmp
// immediately followed by a conditional branch on the compare's single
// use into a single cmp; j<cc> sequence.
func lowerIcmpBranchFused(b *Builder, in ir.IIcmp, br ir.IBr) {
	if in.Ty.IsVector() {
		// Vector compares never feed a scalar branch directly; fall back
		// to materializing the bool and branching on it.
		dest := b.VarFor(in.Dest, ir.I1)
		lowerIcmpVector(b, in, dest)
		emitTestBranch(b, dest, br)
		return
	}
	if in.Ty.Is64() {
		lowerIcmp64Branch(b, in, br)
		return
	}
	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.legalize(b.Resolve(in.RHS), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhs, rhs}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: icmpCC[in.Pred], IRTarget: string(br.True)})
	b.Emit(&x86.Inst{Op: x86.OpJmp, IRTarget: string(br.False)})
}

func emitTestBranch(b *Builder, cond *x86.Variable, br ir.IBr) {
	b.Emit(&x86.Inst{Op: x86.OpTest, Src: []x86.Operand{cond, cond}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, IRTarget: string(br.True)})
	b.Emit(&x86.Inst{Op: x86.OpJmp, IRTarget: string(br.False)})
}

type pred64 struct{ c1, c2, c3 x86.CondCode }

var icmp64Order = map[ir.IntPredicate]pred64{
	ir.ICmpUgt: {x86.CCa, x86.CCb, x86.CCa},
	ir.ICmpUge: {x86.CCa, x86.CCb, x86.CCae},
	ir.ICmpUlt: {x86.CCb, x86.CCa, x86.CCb},
	ir.ICmpUle: {x86.CCb, x86.CCa, x86.CCbe},
	ir.ICmpSgt: {x86.CCg, x86.CCl, x86.CCa},
	ir.ICmpSge: {x86.CCg, x86.CCl, x86.CCae},
	ir.ICmpSlt: {x86.CCl, x86.CCg, x86.CCb},
	ir.ICmpSle: {x86.CCl, x86.CCg, x86.CCbe},
}

func lowerIcmp64ToBool(b *Builder, in ir.IIcmp, dest *x86.Variable) {
	lhs := b.Resolve(in.LHS)
	rhs := b.Resolve(in.RHS)
	lhsLo, lhsHi := b.toVar(b.lo(lhs), legalize.NoHint), b.toVar(b.hi(lhs), legalize.NoHint)
	rhsLo, rhsHi := b.legalize(b.lo(rhs), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint), b.legalize(b.hi(rhs), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)

	trueL, falseL, doneL := b.MachFn.NewLabel(), b.MachFn.NewLabel(), b.MachFn.NewLabel()

	if in.Pred == ir.ICmpEq || in.Pred == ir.ICmpNe {
		wantEq := in.Pred == ir.ICmpEq
		b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsHi, rhsHi}})
		b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, Target: falseL, HasTarget: true})
		b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsLo, rhsLo}})
		eqCC := x86.CCe
		if !wantEq {
			eqCC = x86.CCne
		}
		b.Emit(&x86.Inst{Op: x86.OpSetcc, CC: eqCC, Dest: dest})
		b.Emit(&x86.Inst{Op: x86.OpJmp, Target: doneL, HasTarget: true})
		b.Emit(&x86.Inst{Op: x86.OpLabel, Target: falseL, HasTarget: true})
		falseVal := int64(0)
		if !wantEq {
			falseVal = 1
		}
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: falseVal}}})
		b.Emit(&x86.Inst{Op: x86.OpLabel, Target: doneL, HasTarget: true})
		return
	}

	p := icmp64Order[in.Pred]
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsHi, rhsHi}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: p.c1, Target: trueL, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: p.c2, Target: falseL, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsLo, rhsLo}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: p.c3, Target: trueL, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: falseL, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: 0}}})
	b.Emit(&x86.Inst{Op: x86.OpJmp, Target: doneL, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: trueL, HasTarget: true})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: 1}}})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: doneL, HasTarget: true})
}

// lowerIcmp64Branch is the fused form: identical compare tree, but the
// true/false legs jump straight to the IR-level branch targets instead of
// materializing 0/1.
func lowerIcmp64Branch(b *Builder, in ir.IIcmp, br ir.IBr) {
	lhs := b.Resolve(in.LHS)
	rhs := b.Resolve(in.RHS)
	lhsLo, lhsHi := b.toVar(b.lo(lhs), legalize.NoHint), b.toVar(b.hi(lhs), legalize.NoHint)
	rhsLo, rhsHi := b.legalize(b.lo(rhs), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint), b.legalize(b.hi(rhs), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)

	if in.Pred == ir.ICmpEq || in.Pred == ir.ICmpNe {
		onHiMismatch := br.False
		onMatch := br.True
		if in.Pred == ir.ICmpNe {
			onHiMismatch, onMatch = br.True, br.False
		}
		b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsHi, rhsHi}})
		b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, IRTarget: string(onHiMismatch)})
		b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsLo, rhsLo}})
		eqCC := x86.CCe
		if in.Pred == ir.ICmpNe {
			eqCC = x86.CCne
		}
		b.Emit(&x86.Inst{Op: x86.OpJcc, CC: eqCC, IRTarget: string(onMatch)})
		b.Emit(&x86.Inst{Op: x86.OpJmp, IRTarget: string(onHiMismatch)})
		return
	}

	p := icmp64Order[in.Pred]
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsHi, rhsHi}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: p.c1, IRTarget: string(br.True)})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: p.c2, IRTarget: string(br.False)})
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{lhsLo, rhsLo}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: p.c3, IRTarget: string(br.True)})
	b.Emit(&x86.Inst{Op: x86.OpJmp, IRTarget: string(br.False)})
}

type vecPredRule struct {
	useGt   bool // false: pcmpeq; true: pcmpgt
	swap    bool // pcmpgt(rhs, lhs) instead of pcmpgt(lhs, rhs)
	negate  bool
}

var vecPredTable = map[ir.IntPredicate]vecPredRule{
	ir.ICmpEq:  {useGt: false},
	ir.ICmpNe:  {useGt: false, negate: true},
	ir.ICmpUgt: {useGt: true},
	ir.ICmpUge: {useGt: true, swap: true, negate: true},
	ir.ICmpUlt: {useGt: true, swap: true},
	ir.ICmpUle: {useGt: true, negate: true},
	ir.ICmpSgt: {useGt: true},
	ir.ICmpSge: {useGt: true, swap: true, negate: true},
	ir.ICmpSlt: {useGt: true, swap: true},
	ir.ICmpSle: {useGt: true, negate: true},
}

func isUnsignedPred(p ir.IntPredicate) bool {
	switch p {
	case ir.ICmpUgt, ir.ICmpUge, ir.ICmpUlt, ir.ICmpUle:
		return true
	}
	return false
}

func lowerIcmpVector(b *Builder, in ir.IIcmp, dest *x86.Variable) {
	eqOp, gtOp, flipPattern := vecCmpOpsFor(in.Ty)
	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.toVar(b.Resolve(in.RHS), legalize.NoHint)

	if isUnsignedPred(in.Pred) {
		mask := b.loadVectorMask(flipPattern, in.Ty)
		flLhs := b.fresh(in.Ty)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: flLhs, Src: []x86.Operand{lhs}})
		b.Emit(&x86.Inst{Op: x86.OpPxor, Dest: flLhs, Src: []x86.Operand{flLhs, mask}})
		flRhs := b.fresh(in.Ty)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: flRhs, Src: []x86.Operand{rhs}})
		b.Emit(&x86.Inst{Op: x86.OpPxor, Dest: flRhs, Src: []x86.Operand{flRhs, mask}})
		lhs, rhs = flLhs, flRhs
	}

	rule := vecPredTable[in.Pred]
	op := eqOp
	a, c := lhs, rhs
	if rule.useGt {
		op = gtOp
		if rule.swap {
			a, c = rhs, lhs
		}
	}
	result := b.fresh(in.Ty)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: result, Src: []x86.Operand{a}})
	b.Emit(&x86.Inst{Op: op, Dest: result, Src: []x86.Operand{result, c}})

	if rule.negate {
		ones := b.fresh(in.Ty)
		b.Emit(&x86.Inst{Op: eqOp, Dest: ones, Src: []x86.Operand{ones, ones}})
		b.Emit(&x86.Inst{Op: x86.OpPxor, Dest: result, Src: []x86.Operand{result, ones}})
	}

	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
}

func vecCmpOpsFor(ty ir.Type) (eq, gt x86.Op, flipPattern string) {
	switch ty {
	case ir.V16i8:
		return x86.OpPcmpeqb, x86.OpPcmpgtb, "80808080808080808080808080808080"
	case ir.V8i16:
		return x86.OpPcmpeqw, x86.OpPcmpgtw, "00800080008000800080008000800080"
	case ir.V4i32:
		return x86.OpPcmpeqd, x86.OpPcmpgtd, "00000080000000800000008000000080"
	}
	panic("ice: vecCmpOpsFor: unsupported type " + ty.String())
}

func boolVecTypeFor(ty ir.Type) ir.Type {
	switch ty {
	case ir.V16i8:
		return ir.V16i1
	case ir.V8i16:
		return ir.V8i1
	case ir.V4i32:
		return ir.V4i1
	}
	panic("ice: boolVecTypeFor: unsupported type " + ty.String())
}

// loadVectorMask materializes the sign-flip mask for ty into a fresh
// register, reading it from the vector constant pool.
func (b *Builder) loadVectorMask(hexPattern string, ty ir.Type) *x86.Variable {
	label, _ := b.Ctx.VectorPoolLabel(hexPattern)
	dest := b.fresh(ty)
	mem := x86.Memory{Ty: ty, Reloc: label}
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{mem}})
	return dest
}
