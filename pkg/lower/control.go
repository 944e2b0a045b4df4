package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerBr implements the unfused branch rule. The icmp+branch
// peephole (lowerIcmpBranchFused) bypasses this entirely when it applies;
// this handles an unconditional jump or a condition computed some other
// way (a phi-copied bool, a call result, ...).
func lowerBr(b *Builder, in ir.IBr) {
	if in.Cond == nil {
		b.Emit(&x86.Inst{Op: x86.OpJmp, IRTarget: string(in.True)})
		return
	}
	cond := b.legalize(b.Resolve(in.Cond), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{cond, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: 0}}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, IRTarget: string(in.True)})
	b.Emit(&x86.Inst{Op: x86.OpJmp, IRTarget: string(in.False)})
}

// lowerSelect implements select.
func lowerSelect(b *Builder, in ir.ISelect) {
	dest := b.VarFor(in.Dest, in.Ty)

	if in.Ty.IsVector() {
		lowerSelectVector(b, in, dest)
		return
	}

	cond := b.legalize(b.Resolve(in.Cond), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{cond, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: 0}}})
	doneL := b.MachFn.NewLabel()

	if in.Ty.Is64() {
		trueVal := b.Resolve(in.TrueVal)
		falseVal := b.Resolve(in.FalseVal)
		destLo, destHi := b.split64(dest)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{b.lo(trueVal)}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{b.hi(trueVal)}})
		b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, Target: doneL, HasTarget: true})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{b.lo(falseVal)}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{b.hi(falseVal)}})
		b.Emit(&x86.Inst{Op: x86.OpLabel, Target: doneL, HasTarget: true})
		return
	}

	trueVal := b.legalize(b.Resolve(in.TrueVal), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
	falseVal := b.legalize(b.Resolve(in.FalseVal), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{trueVal}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, Target: doneL, HasTarget: true})
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{falseVal}})
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: doneL, HasTarget: true})
}

func lowerSelectVector(b *Builder, in ir.ISelect, dest *x86.Variable) {
	trueVal := b.toVar(b.Resolve(in.TrueVal), legalize.NoHint)
	falseVal := b.toVar(b.Resolve(in.FalseVal), legalize.NoHint)
	cond := b.toVar(b.Resolve(in.Cond), legalize.NoHint)

	if b.Ctx.HasSSE41() {
		maskReg := b.fresh(in.CondTy)
		maskReg.SetReg(x86.XMM0)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: maskReg, Src: []x86.Operand{cond}})
		blend := x86.OpBlendvps
		if in.Ty != ir.V4f32 && in.Ty != ir.V4i32 {
			blend = x86.OpPblendvb
		}
		result := b.fresh(in.Ty)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: result, Src: []x86.Operand{falseVal}})
		b.Emit(&x86.Inst{Op: blend, Dest: result, Src: []x86.Operand{result, trueVal, maskReg}})
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
		return
	}

	// (true & mask) | (false & ~mask)
	maskedTrue := b.fresh(in.Ty)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: maskedTrue, Src: []x86.Operand{trueVal}})
	b.Emit(&x86.Inst{Op: x86.OpPand, Dest: maskedTrue, Src: []x86.Operand{maskedTrue, cond}})
	notMask := b.fresh(in.Ty)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: notMask, Src: []x86.Operand{falseVal}})
	b.Emit(&x86.Inst{Op: x86.OpPandn, Dest: notMask, Src: []x86.Operand{cond, notMask}})
	b.Emit(&x86.Inst{Op: x86.OpPor, Dest: maskedTrue, Src: []x86.Operand{maskedTrue, notMask}})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{maskedTrue}})
}

// lowerSwitch implements a switch: linear cmp/je per case, default
// as a trailing jmp.
func lowerSwitch(b *Builder, in ir.ISwitch) {
	val := b.toVar(b.Resolve(in.Value), legalize.NoHint)
	for _, c := range in.Cases {
		b.Emit(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{val, x86.Immediate{Kind: x86.ImmInt, Ty: in.Ty, Int: c.Value}}})
		b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCe, IRTarget: string(c.Target)})
	}
	b.Emit(&x86.Inst{Op: x86.OpJmp, IRTarget: string(in.Default)})
}
