package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// fcmpRule is one row of the 16-entry fcmp table. Default/C1/C2 drive
// the scalar ucomiss form; Pred/SwapVector/Combine drive the vector
// cmpps form. One and Ueq need no single cmpps predicate, just a
// NaN-safe AND/OR of two; every other predicate maps to one of the eight
// hardware cmpps predicates, several of which (the N-prefixed ones) are
// already NaN-inclusive by construction, so no extra branch or OR is
// needed there despite the scalar form needing one.
type fcmpRule struct {
	constResult int64 // only for False/True: no compare at all
	isConst     bool
	dflt        int64
	c1          x86.CondCode
	hasC1       bool
	c2          x86.CondCode
	hasC2       bool
	pred        x86.CmpPred
	swapVector  bool
	combine     combineKind
}

type combineKind int

const (
	combineNone combineKind = iota
	combineOneAnd                  // ordered AND not-equal: cmpps(neq) & cmpps(ord)
	combineUeqOr                   // equal OR unordered: cmpps(eq) | cmpps(unord)
)

var fcmpTable = map[ir.FloatPredicate]fcmpRule{
	ir.FCmpFalse: {isConst: true, constResult: 0},
	ir.FCmpTrue:  {isConst: true, constResult: 1},

	ir.FCmpOeq: {dflt: 0, c1: x86.CCne, hasC1: true, c2: x86.CCp, hasC2: true, pred: x86.CmpEq},
	ir.FCmpOgt: {dflt: 1, c1: x86.CCa, hasC1: true, pred: x86.CmpLt, swapVector: true},
	ir.FCmpOge: {dflt: 1, c1: x86.CCae, hasC1: true, pred: x86.CmpLe, swapVector: true},
	ir.FCmpOlt: {dflt: 1, c1: x86.CCb, hasC1: true, pred: x86.CmpLt},
	ir.FCmpOle: {dflt: 1, c1: x86.CCbe, hasC1: true, pred: x86.CmpLe},
	ir.FCmpOne: {dflt: 1, c1: x86.CCne, hasC1: true, combine: combineOneAnd},
	ir.FCmpOrd: {dflt: 0, c1: x86.CCp, hasC1: true, pred: x86.CmpOrd},

	ir.FCmpUeq: {dflt: 1, c1: x86.CCe, hasC1: true, combine: combineUeqOr},
	ir.FCmpUgt: {dflt: 1, c1: x86.CCa, hasC1: true, c2: x86.CCp, hasC2: true, pred: x86.CmpNle},
	ir.FCmpUge: {dflt: 1, c1: x86.CCae, hasC1: true, c2: x86.CCp, hasC2: true, pred: x86.CmpNlt},
	ir.FCmpUlt: {dflt: 1, c1: x86.CCb, hasC1: true, c2: x86.CCp, hasC2: true, pred: x86.CmpNle, swapVector: true},
	ir.FCmpUle: {dflt: 1, c1: x86.CCbe, hasC1: true, c2: x86.CCp, hasC2: true, pred: x86.CmpNlt, swapVector: true},
	ir.FCmpUne: {dflt: 1, c1: x86.CCne, hasC1: true, c2: x86.CCp, hasC2: true, pred: x86.CmpNeq},
	ir.FCmpUno: {dflt: 1, c1: x86.CCp, hasC1: true, pred: x86.CmpUnord},
}

// lowerFcmp implements fcmp for both scalar and vector operand types.
func lowerFcmp(b *Builder, in ir.IFcmp) {
	rule := fcmpTable[in.Pred]

	if in.Ty.IsVector() {
		lowerFcmpVector(b, in, rule)
		return
	}

	dest := b.VarFor(in.Dest, ir.I1)
	if rule.isConst {
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: rule.constResult}}})
		return
	}

	ucomi := x86.OpUcomiss
	if in.Ty == ir.F64 {
		ucomi = x86.OpUcomisd
	}
	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.legalize(b.Resolve(in.RHS), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: ucomi, Src: []x86.Operand{lhs, rhs}})

	doneL := b.MachFn.NewLabel()
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: rule.dflt}}})
	if rule.hasC1 {
		b.Emit(&x86.Inst{Op: x86.OpJcc, CC: rule.c1, Target: doneL, HasTarget: true})
	}
	if rule.hasC2 {
		b.Emit(&x86.Inst{Op: x86.OpJcc, CC: rule.c2, Target: doneL, HasTarget: true})
	}
	notDflt := int64(1) - rule.dflt
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: notDflt}}})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: doneL, HasTarget: true})
}

func lowerFcmpVector(b *Builder, in ir.IFcmp, rule fcmpRule) {
	dest := b.VarFor(in.Dest, ir.V4i1)

	if rule.isConst {
		result := b.fresh(ir.V4f32)
		if rule.constResult == 0 {
			b.Emit(&x86.Inst{Op: x86.OpPxor, Dest: result, Src: []x86.Operand{result, result}})
		} else {
			b.Emit(&x86.Inst{Op: x86.OpPcmpeqd, Dest: result, Src: []x86.Operand{result, result}})
		}
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
		return
	}

	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.toVar(b.Resolve(in.RHS), legalize.NoHint)

	if rule.combine != combineNone {
		var predA, predB x86.CmpPred
		if rule.combine == combineOneAnd {
			predA, predB = x86.CmpNeq, x86.CmpOrd
		} else {
			predA, predB = x86.CmpEq, x86.CmpUnord
		}
		a := b.fresh(ir.V4f32)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: a, Src: []x86.Operand{lhs}})
		b.Emit(&x86.Inst{Op: x86.OpCmpps, Dest: a, Src: []x86.Operand{a, rhs, imm8(int64(predA))}})
		c := b.fresh(ir.V4f32)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: c, Src: []x86.Operand{lhs}})
		b.Emit(&x86.Inst{Op: x86.OpCmpps, Dest: c, Src: []x86.Operand{c, rhs, imm8(int64(predB))}})
		combineOp := x86.OpPand
		if rule.combine == combineUeqOr {
			combineOp = x86.OpPor
		}
		b.Emit(&x86.Inst{Op: combineOp, Dest: a, Src: []x86.Operand{a, c}})
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{a}})
		return
	}

	a, c := lhs, rhs
	if rule.swapVector {
		a, c = rhs, lhs
	}
	result := b.fresh(ir.V4f32)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: result, Src: []x86.Operand{a}})
	b.Emit(&x86.Inst{Op: x86.OpCmpps, Dest: result, Src: []x86.Operand{result, c, imm8(int64(rule.pred))}})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
}
