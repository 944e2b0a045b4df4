package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerAlloca implements alloca: forces frame-pointer addressing
// (esp moves unpredictably relative to the rest of the frame once an
// alloca is live), realigns esp when the requested alignment exceeds the
// 16-byte stack alignment, and subtracts the rounded-up size — computed
// at lowering time for a constant Size, at runtime otherwise.
func lowerAlloca(b *Builder, in ir.IAlloca) {
	b.MachFn.UsesFramePtr = true
	dest := b.VarFor(in.Dest, ir.I32)

	align := in.Align
	if align < 1 {
		align = 1
	}
	if align > 16 {
		b.Emit(&x86.Inst{Op: x86.OpAnd, Dest: espVar(), Src: []x86.Operand{espVar(), x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(-align)}}})
	}

	if c, ok := in.Size.(ir.ConstInt); ok {
		total := roundUp(c.Value*int64(in.ElemSize), int64(align))
		b.Emit(&x86.Inst{Op: x86.OpSub, Dest: espVar(), Src: []x86.Operand{espVar(), x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: total}}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{espVar()}})
		return
	}

	b.MachFn.DynamicAlloca = true
	size := b.toVar(b.Resolve(in.Size), legalize.NoHint)
	total := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpImul, Dest: total, Src: []x86.Operand{size, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(in.ElemSize)}}})
	b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: total, Src: []x86.Operand{total, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(align - 1)}}})
	b.Emit(&x86.Inst{Op: x86.OpAnd, Dest: total, Src: []x86.Operand{total, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(-align)}}})
	b.Emit(&x86.Inst{Op: x86.OpSub, Dest: espVar(), Src: []x86.Operand{espVar(), total}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{espVar()}})
}

func roundUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
