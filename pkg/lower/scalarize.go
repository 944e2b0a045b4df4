package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// Scalarize handles a vector op lacking a direct packed
// form, build the result lane-by-lane — extract both operands' lane i,
// apply the scalar rule for in.Op, insert into the accumulator.
func Scalarize(b *Builder, in ir.IBinOp, dest *x86.Variable) error {
	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.toVar(b.Resolve(in.RHS), legalize.NoHint)
	elemTy := in.Ty.ElemType()

	accum := b.ZeroVector(in.Ty)
	for i := 0; i < in.Ty.Elements(); i++ {
		lhsLane := extractLane(b, lhs, i, in.Ty)
		rhsLane := extractLane(b, rhs, i, in.Ty)
		laneDest := b.fresh(elemTy)
		scalarBinOpInto(b, in.Op, elemTy, lhsLane, rhsLane, laneDest)
		accum = insertLane(b, accum, laneDest, i, in.Ty)
	}
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{accum}})
	return nil
}

// scalarBinOpInto computes laneDest = lhsLane op rhsLane for the scalar
// element type, reusing the exact scalar rules arith.go uses for a
// standalone i8/i16/i32 op (a synthetic single-lane IBinOp drives them).
func scalarBinOpInto(b *Builder, op ir.BinOpKind, elemTy ir.Type, lhsLane, rhsLane, laneDest *x86.Variable) {
	fake := ir.IBinOp{Op: op, Ty: elemTy}

	switch op {
	case ir.Udiv, ir.Sdiv, ir.Urem, ir.Srem:
		lowerScalarDivRem(b, fake, laneDest, lhsLane, rhsLane)
	case ir.Mul:
		lowerScalarMul(b, fake, laneDest, lhsLane, rhsLane)
	case ir.Shl, ir.Lshr, ir.Ashr:
		opc := opTable[op]
		t := b.toVar(lhsLane, legalize.NoHint)
		count := b.legalize(rhsLane, x86.ClassImm, legalize.NoHint)
		if _, isImm := count.(x86.Immediate); !isImm {
			count = b.legalize(rhsLane, x86.ClassReg, legalize.PinTo(x86.ECX))
		}
		b.Emit(&x86.Inst{Op: opc, Dest: t, Src: []x86.Operand{t, count}})
		b.Emit(&x86.Inst{Op: b.MovOpFor(elemTy), Dest: laneDest, Src: []x86.Operand{t}})
	default:
		opc := opTable[op]
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: laneDest, Src: []x86.Operand{lhsLane}})
		b.Emit(&x86.Inst{Op: opc, Dest: laneDest, Src: []x86.Operand{laneDest, rhsLane}})
	}
}
