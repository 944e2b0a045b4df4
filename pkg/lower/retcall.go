package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerRet implements a return: scalar i32/narrower in eax, i64 in
// eax:edx, f32/f64 in x87 st(0) via fld, vector in xmm0. A fake use of esp
// pins its liveness across the whole function (the frame-layout pass
// reads this to know esp must stay live through the epilog).
func lowerRet(b *Builder, in ir.IRet) {
	if in.Val != nil {
		val := b.Resolve(in.Val)
		switch {
		case in.Ty.Is64():
			v := b.toVar(val, legalize.NoHint)
			lo, hi := b.split64(v)
			eax := b.fresh(ir.I32)
			eax.SetReg(x86.EAX)
			edx := b.fresh(ir.I32)
			edx.SetReg(x86.EDX)
			b.Emit(&x86.Inst{Op: x86.OpMov, Dest: eax, Src: []x86.Operand{lo}})
			b.Emit(&x86.Inst{Op: x86.OpMov, Dest: edx, Src: []x86.Operand{hi}})
		case in.Ty == ir.F32 || in.Ty == ir.F64:
			operand := b.legalize(val, x86.ClassReg|x86.ClassMem, legalize.NoHint)
			b.Emit(&x86.Inst{Op: x86.OpFld, Src: []x86.Operand{operand}})
		case in.Ty.IsVector():
			v := b.toVar(val, legalize.NoHint)
			xmm0 := b.fresh(in.Ty)
			xmm0.SetReg(x86.XMM0)
			b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: xmm0, Src: []x86.Operand{v}})
		default:
			eax := b.fresh(in.Ty)
			eax.SetReg(x86.EAX)
			operand := b.legalize(val, x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
			b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: eax, Src: []x86.Operand{operand}})
		}
	}
	b.Emit(&x86.Inst{Op: x86.OpFakeUse, FakeRegs: []*x86.Variable{espVar()}})
	b.Emit(&x86.Inst{Op: x86.OpRet})
}

// lowerCall implements a call: caller aligns the stack to 16 bytes,
// the first four vector args go in xmm0..xmm3, everything else pushes
// right-to-left (vector stack args 16-byte aligned, scalars 4-byte). A
// FakeKill of the caller-save registers follows the call; a FakeUse of
// each register argument precedes it so the allocator sees those
// registers as live across the kill; a side-effecting call with a
// discarded result gets a trailing FakeUse of Dest.
func lowerCall(b *Builder, in ir.ICall) {
	var vectorArgs, stackArgs []int
	vecSlot := 0
	for i, ty := range in.ArgTys {
		if ty.IsVector() && vecSlot < 4 {
			vectorArgs = append(vectorArgs, i)
			vecSlot++
			continue
		}
		stackArgs = append(stackArgs, i)
	}

	var pushBytes int32
	for i := len(stackArgs) - 1; i >= 0; i-- {
		idx := stackArgs[i]
		ty := in.ArgTys[idx]
		arg := b.Resolve(in.Args[idx])
		if ty.Is64() {
			v := b.toVar(arg, legalize.NoHint)
			lo, hi := b.split64(v)
			b.Emit(&x86.Inst{Op: x86.OpPush, Src: []x86.Operand{hi}})
			b.Emit(&x86.Inst{Op: x86.OpPush, Src: []x86.Operand{lo}})
			pushBytes += 8
			continue
		}
		operand := b.legalize(arg, x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
		b.Emit(&x86.Inst{Op: x86.OpPush, Src: []x86.Operand{operand}})
		pushBytes += 4
		if ty.IsVector() {
			pushBytes += 12 // rounds the 16-byte vector arg up to 16-byte alignment
		}
	}

	var fakeUses []*x86.Variable
	xmmReg := [...]x86.RegID{x86.XMM0, x86.XMM1, x86.XMM2, x86.XMM3}
	for slot, idx := range vectorArgs {
		v := b.toVar(b.Resolve(in.Args[idx]), legalize.PinTo(xmmReg[slot]))
		fakeUses = append(fakeUses, v)
	}

	callee := b.legalize(b.Resolve(in.Callee), x86.ClassReg|x86.ClassReloc, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpFakeUse, FakeRegs: fakeUses})
	b.Emit(&x86.Inst{Op: x86.OpCall, Src: []x86.Operand{callee}})

	killed := make([]*x86.Variable, 0, len(x86.CallerSaveGPR)+len(x86.XMMRegs))
	for _, r := range x86.CallerSaveGPR {
		v := b.fresh(ir.I32)
		v.SetReg(r)
		killed = append(killed, v)
	}
	for _, r := range x86.XMMRegs {
		v := b.fresh(ir.F32)
		v.SetReg(r)
		killed = append(killed, v)
	}
	b.Emit(&x86.Inst{Op: x86.OpFakeKill, FakeRegs: killed})

	if pushBytes > 0 {
		b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: espVar(), Src: []x86.Operand{espVar(), x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(pushBytes)}}})
	}

	if in.Dest == nil {
		return
	}
	dest := b.VarFor(*in.Dest, in.RetTy)
	switch {
	case in.RetTy.Is64():
		eax := b.fresh(ir.I32)
		eax.SetReg(x86.EAX)
		edx := b.fresh(ir.I32)
		edx.SetReg(x86.EDX)
		destLo, destHi := b.split64(dest)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{eax}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{edx}})
	case in.RetTy == ir.F32 || in.RetTy == ir.F64:
		op := x86.OpFstp
		b.Emit(&x86.Inst{Op: op, Dest: dest})
	case in.RetTy.IsVector():
		xmm0 := b.fresh(in.RetTy)
		xmm0.SetReg(x86.XMM0)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{xmm0}})
	default:
		eax := b.fresh(in.RetTy)
		eax.SetReg(x86.EAX)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.RetTy), Dest: dest, Src: []x86.Operand{eax}})
	}
	if in.HasSideEffects {
		b.Emit(&x86.Inst{Op: x86.OpFakeUse, FakeRegs: []*x86.Variable{dest}})
	}
}
