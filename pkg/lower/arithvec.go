package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

type vecOpSet struct{ add, sub, and, or, xor x86.Op }

var vecOps = map[ir.Type]vecOpSet{
	ir.V16i8: {x86.OpPaddb, x86.OpPsubb, x86.OpPand, x86.OpPor, x86.OpPxor},
	ir.V8i16: {x86.OpPaddw, x86.OpPsubw, x86.OpPand, x86.OpPor, x86.OpPxor},
	ir.V4i32: {x86.OpPaddd, x86.OpPsubd, x86.OpPand, x86.OpPor, x86.OpPxor},
}

// lowerBinOpVector implements vector arithmetic.
func lowerBinOpVector(b *Builder, in ir.IBinOp) error {
	dest := b.VarFor(in.Dest, in.Ty)

	if in.Ty == ir.V4f32 {
		lowerBinOpVectorFloat(b, in, dest)
		return nil
	}

	switch in.Op {
	case ir.Udiv, ir.Sdiv, ir.Urem, ir.Srem, ir.Shl, ir.Lshr, ir.Ashr:
		return Scalarize(b, in, dest)
	case ir.Mul:
		return lowerVectorMul(b, in, dest)
	}

	set, ok := vecOps[in.Ty]
	if !ok {
		panic("ice: lowerBinOpVector: no packed form for " + in.Ty.String())
	}
	op := map[ir.BinOpKind]x86.Op{ir.Add: set.add, ir.Sub: set.sub, ir.And: set.and, ir.Or: set.or, ir.Xor: set.xor}[in.Op]
	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.legalize(b.Resolve(in.RHS), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: op, Dest: lhs, Src: []x86.Operand{lhs, rhs}})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{lhs}})
	return nil
}

func lowerBinOpVectorFloat(b *Builder, in ir.IBinOp, dest *x86.Variable) {
	op := map[ir.BinOpKind]x86.Op{
		ir.Fadd: x86.OpAddps, ir.Fsub: x86.OpSubps, ir.Fmul: x86.OpMulps, ir.Fdiv: x86.OpDivps,
	}[in.Op]
	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.legalize(b.Resolve(in.RHS), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: op, Dest: lhs, Src: []x86.Operand{lhs, rhs}})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{lhs}})
}

// lowerVectorMul special-cases v4i32 (pmulld when SSE4.1 is assumed,
// otherwise a pmuludq+pshufd+shufps sequence producing the low 32 bits of
// each lane product) and scalarizes everything else (v16i8, and v8i16
// for lack of a packed-word-multiply opcode in this backend's Op set).
func lowerVectorMul(b *Builder, in ir.IBinOp, dest *x86.Variable) error {
	if in.Ty != ir.V4i32 {
		return Scalarize(b, in, dest)
	}
	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.legalize(b.Resolve(in.RHS), x86.ClassReg|x86.ClassMem, legalize.NoHint)

	if b.Ctx.HasSSE41() {
		b.Emit(&x86.Inst{Op: x86.OpPmulld, Dest: lhs, Src: []x86.Operand{lhs, rhs}})
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{lhs}})
		return nil
	}

	rhsVar := b.toVar(rhs, legalize.NoHint)
	// even-lane products: lanes 0,2 of lhs*rhs, 64-bit-widened into a
	// v2i64-shaped xmm (pmuludq only reads even lanes of its operands).
	evenLo := b.fresh(ir.V4i32)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: evenLo, Src: []x86.Operand{lhs}})
	b.Emit(&x86.Inst{Op: x86.OpPmuludq, Dest: evenLo, Src: []x86.Operand{evenLo, rhsVar}})

	// odd-lane products: shift both operands right one lane first.
	oddLhs := b.fresh(ir.V4i32)
	b.Emit(&x86.Inst{Op: x86.OpPshufd, Dest: oddLhs, Src: []x86.Operand{lhs, imm8(0xF5)}})
	oddRhs := b.fresh(ir.V4i32)
	b.Emit(&x86.Inst{Op: x86.OpPshufd, Dest: oddRhs, Src: []x86.Operand{rhsVar, imm8(0xF5)}})
	evenHi := b.fresh(ir.V4i32)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: evenHi, Src: []x86.Operand{oddLhs}})
	b.Emit(&x86.Inst{Op: x86.OpPmuludq, Dest: evenHi, Src: []x86.Operand{evenHi, oddRhs}})

	// shufps interleaves the low 32 bits of each 64-bit product lane back
	// into lane order 0,2,1,3, matching Subzero's no-SSE4.1 v4i32 mul
	// fallback.
	packed := b.fresh(ir.V4i32)
	b.Emit(&x86.Inst{Op: x86.OpShufps, Dest: packed, Src: []x86.Operand{evenLo, evenHi, imm8(0x88)}})
	result := b.fresh(ir.V4i32)
	b.Emit(&x86.Inst{Op: x86.OpPshufd, Dest: result, Src: []x86.Operand{packed, imm8(0xD8)}})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
	return nil
}

func imm8(v int64) x86.Immediate { return x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: v} }
