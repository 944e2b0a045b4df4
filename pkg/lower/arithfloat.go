package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerBinOpFloat implements scalar float arithmetic: straight
// addss/subss/mulss/divss (or the sd forms for f64); frem is a helper
// call to fmodf/fmod.
func lowerBinOpFloat(b *Builder, in ir.IBinOp) {
	dest := b.VarFor(in.Dest, in.Ty)

	if in.Op == ir.Frem {
		key := "fmodf"
		if in.Ty == ir.F64 {
			key = "fmod"
		}
		result := b.callHelper(key, []x86.Operand{b.Resolve(in.LHS), b.Resolve(in.RHS)}, in.Ty)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{result}})
		return
	}

	ss := map[ir.BinOpKind]x86.Op{ir.Fadd: x86.OpAddss, ir.Fsub: x86.OpSubss, ir.Fmul: x86.OpMulss, ir.Fdiv: x86.OpDivss}
	sd := map[ir.BinOpKind]x86.Op{ir.Fadd: x86.OpAddsd, ir.Fsub: x86.OpSubsd, ir.Fmul: x86.OpMulsd, ir.Fdiv: x86.OpDivsd}
	table := ss
	if in.Ty == ir.F64 {
		table = sd
	}

	lhs := b.toVar(b.Resolve(in.LHS), legalize.NoHint)
	rhs := b.legalize(b.Resolve(in.RHS), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: table[in.Op], Dest: lhs, Src: []x86.Operand{lhs, rhs}})
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{lhs}})
}
