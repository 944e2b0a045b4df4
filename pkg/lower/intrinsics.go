package lower

import (
	"fmt"

	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerIntrinsic dispatches by IntrinsicKind.
func lowerIntrinsic(b *Builder, in ir.IIntrinsic) error {
	switch in.Kind {
	case ir.AtomicLoad:
		lowerAtomicLoad(b, in)
	case ir.AtomicStore:
		lowerAtomicStore(b, in)
	case ir.AtomicCmpxchg:
		lowerAtomicCmpxchg(b, in)
	case ir.AtomicRMWAdd, ir.AtomicRMWSub:
		lowerAtomicRMWAddSub(b, in)
	case ir.AtomicRMWOr, ir.AtomicRMWAnd, ir.AtomicRMWXor:
		lowerAtomicRMWLoop(b, in)
	case ir.AtomicRMWXchg:
		lowerAtomicRMWXchg(b, in)
	case ir.AtomicFence, ir.AtomicFenceAll:
		b.Emit(&x86.Inst{Op: x86.OpMfence})
	case ir.AtomicIsLockFree:
		lowerAtomicIsLockFree(b, in)
	case ir.Bswap:
		lowerBswap(b, in)
	case ir.Ctlz:
		lowerCtlz(b, in)
	case ir.Cttz:
		lowerCttz(b, in)
	case ir.Ctpop:
		lowerCtpop(b, in)
	case ir.Sqrt:
		lowerSqrt(b, in)
	case ir.Memcpy:
		lowerHelperVoid(b, "memcpy", in.Args)
	case ir.Memmove:
		lowerHelperVoid(b, "memmove", in.Args)
	case ir.Memset:
		lowerHelperVoid(b, "memset", in.Args)
	case ir.Longjmp:
		lowerHelperVoid(b, "longjmp", in.Args)
	case ir.Setjmp:
		lowerHelperResult(b, in, "setjmp")
	case ir.Stacksave:
		lowerStacksave(b, in)
	case ir.Stackrestore:
		lowerStackrestore(b, in)
	case ir.NaClReadTP:
		lowerNaClReadTP(b, in)
	case ir.Trap:
		b.Emit(&x86.Inst{Op: x86.OpUd2})
	default:
		return fmt.Errorf("lower: unhandled intrinsic kind %d", in.Kind)
	}
	return nil
}

// lowerAtomicLoad implements "AtomicLoad (≤32 bit): lowered as a normal
// load; i64 goes through an XMM movq spill/reload wrapped in a bitcast."
func lowerAtomicLoad(b *Builder, in ir.IIntrinsic) {
	mem := addrMemory(b, in.Args[0], in.Ty)
	dest := b.VarFor(*in.Dest, in.Ty)

	if !in.Ty.Is64() {
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{mem}})
		return
	}
	mem.Ty = ir.F64
	tmp := b.fresh(ir.F64)
	b.Emit(&x86.Inst{Op: x86.OpMovq, Dest: tmp, Src: []x86.Operand{mem}})
	tmpLo, tmpHi := b.split64(tmp)
	destLo, destHi := b.split64(dest)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tmpLo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tmpHi}})
}

// lowerAtomicStore implements "AtomicStore (≤32 bit): normal store plus
// mfence after; i64 via the same XMM movq/bitcast path as the load."
func lowerAtomicStore(b *Builder, in ir.IIntrinsic) {
	mem := addrMemory(b, in.Args[0], in.Ty)
	val := b.Resolve(in.Args[1])

	if !in.Ty.Is64() {
		val = b.legalize(val, x86.ClassReg|x86.ClassImm, legalize.NoHint)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: mem, Src: []x86.Operand{val}})
		b.Emit(&x86.Inst{Op: x86.OpMfence})
		return
	}
	valVar := b.toVar(val, legalize.NoHint)
	valLo, valHi := b.split64(valVar)
	tmp := b.fresh(ir.F64)
	tmpLo, tmpHi := b.split64(tmp)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: tmpLo, Src: []x86.Operand{valLo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: tmpHi, Src: []x86.Operand{valHi}})
	mem.Ty = ir.F64
	b.Emit(&x86.Inst{Op: x86.OpMovq, Dest: mem, Src: []x86.Operand{tmp}})
	b.Emit(&x86.Inst{Op: x86.OpMfence})
}

// lowerAtomicCmpxchg implements the cmpxchg intrinsic for i32 (single
// cmpxchg) and i64 (cmpxchg8b with both value pairs pinned).
func lowerAtomicCmpxchg(b *Builder, in ir.IIntrinsic) {
	mem := addrMemory(b, in.Args[0], in.Ty)

	if !in.Ty.Is64() {
		eax := b.toVar(b.Resolve(in.Args[1]), legalize.PinTo(x86.EAX))
		desired := b.legalize(b.Resolve(in.Args[2]), x86.ClassReg, legalize.NoHint)
		result := b.fresh(in.Ty)
		result.SetReg(x86.EAX)
		b.Emit(&x86.Inst{Op: x86.OpLockCmpxchg, Dest: mem, Src: []x86.Operand{eax, desired}})
		if in.Dest != nil {
			dest := b.VarFor(*in.Dest, in.Ty)
			b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{result}})
		}
		return
	}

	expected := b.toVar(b.Resolve(in.Args[1]), legalize.NoHint)
	expLo, expHi := b.split64(expected)
	eax := b.fresh(ir.I32)
	eax.SetReg(x86.EAX)
	edx := b.fresh(ir.I32)
	edx.SetReg(x86.EDX)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: eax, Src: []x86.Operand{expLo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: edx, Src: []x86.Operand{expHi}})

	desired := b.toVar(b.Resolve(in.Args[2]), legalize.NoHint)
	desLo, desHi := b.split64(desired)
	ebx := b.fresh(ir.I32)
	ebx.SetReg(x86.EBX)
	ecx := b.fresh(ir.I32)
	ecx.SetReg(x86.ECX)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: ebx, Src: []x86.Operand{desLo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: ecx, Src: []x86.Operand{desHi}})

	resultLo := b.fresh(ir.I32)
	resultLo.SetReg(x86.EAX)
	resultHi := b.fresh(ir.I32)
	resultHi.SetReg(x86.EDX)
	b.Emit(&x86.Inst{Op: x86.OpLockCmpxchg8b, Dest: mem, Src: []x86.Operand{eax, edx, ebx, ecx}, FakeRegs: []*x86.Variable{resultHi}})

	if in.Dest != nil {
		dest := b.VarFor(*in.Dest, in.Ty)
		destLo, destHi := b.split64(dest)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{resultLo}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{resultHi}})
	}
}

// lowerAtomicRMWAddSub implements the 32-bit-or-narrower "add/sub → lock
// xadd" rule; i64 falls back to the generic cmpxchg loop (no xadd-r64
// exists on this 32-bit target).
func lowerAtomicRMWAddSub(b *Builder, in ir.IIntrinsic) {
	if in.Ty.Is64() {
		lowerAtomicRMWLoop(b, in)
		return
	}
	mem := addrMemory(b, in.Args[0], in.Ty)
	val := b.toVar(b.Resolve(in.Args[1]), legalize.NoHint)
	if in.Kind == ir.AtomicRMWSub {
		b.Emit(&x86.Inst{Op: x86.OpNeg, Dest: val, Src: []x86.Operand{val}})
	}
	b.Emit(&x86.Inst{Op: x86.OpLockXadd, Dest: mem, Src: []x86.Operand{val}})
	if in.Dest != nil {
		dest := b.VarFor(*in.Dest, in.Ty)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{val}})
	}
}

// lowerAtomicRMWXchg implements "xchg→xchg (no lock needed)" for ≤32-bit;
// i64 falls back to the generic cmpxchg loop.
func lowerAtomicRMWXchg(b *Builder, in ir.IIntrinsic) {
	if in.Ty.Is64() {
		lowerAtomicRMWLoop(b, in)
		return
	}
	mem := addrMemory(b, in.Args[0], in.Ty)
	val := b.toVar(b.Resolve(in.Args[1]), legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpXchg, Dest: mem, Src: []x86.Operand{val}})
	if in.Dest != nil {
		dest := b.VarFor(*in.Dest, in.Ty)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{val}})
	}
}

var rmwLoopOp = map[ir.IntrinsicKind]x86.Op{
	ir.AtomicRMWOr:  x86.OpOr,
	ir.AtomicRMWAnd: x86.OpAnd,
	ir.AtomicRMWXor: x86.OpXor,
	ir.AtomicRMWAdd: x86.OpAdd,
	ir.AtomicRMWSub: x86.OpSub,
}

// lowerAtomicRMWLoop implements the cmpxchg-loop form: or/and/xor and
// 64-bit variants expand to a cmpxchg loop with the operation applied to
// a register copy of the current value; the loop back-edge is jne."
func lowerAtomicRMWLoop(b *Builder, in ir.IIntrinsic) {
	if in.Ty.Is64() {
		lowerAtomicRMWLoop64(b, in)
		return
	}
	mem := addrMemory(b, in.Args[0], in.Ty)
	operand := b.legalize(b.Resolve(in.Args[1]), x86.ClassReg|x86.ClassMem, legalize.NoHint)

	loop := b.MachFn.NewLabel()
	eax := b.fresh(in.Ty)
	eax.SetReg(x86.EAX)
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: loop, HasTarget: true})
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: eax, Src: []x86.Operand{mem}})
	newVal := b.fresh(in.Ty)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: newVal, Src: []x86.Operand{eax}})
	if in.Kind == ir.AtomicRMWXchg {
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: newVal, Src: []x86.Operand{operand}})
	} else {
		op := rmwLoopOp[in.Kind]
		b.Emit(&x86.Inst{Op: op, Dest: newVal, Src: []x86.Operand{newVal, operand}})
	}
	b.Emit(&x86.Inst{Op: x86.OpLockCmpxchg, Dest: mem, Src: []x86.Operand{eax, newVal}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, Target: loop, HasTarget: true})

	if in.Dest != nil {
		dest := b.VarFor(*in.Dest, in.Ty)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{eax}})
	}
}

func lowerAtomicRMWLoop64(b *Builder, in ir.IIntrinsic) {
	mem := addrMemory(b, in.Args[0], in.Ty)
	operand := b.toVar(b.Resolve(in.Args[1]), legalize.NoHint)
	opLo, opHi := b.split64(operand)

	loop := b.MachFn.NewLabel()
	eax := b.fresh(ir.I32)
	eax.SetReg(x86.EAX)
	edx := b.fresh(ir.I32)
	edx.SetReg(x86.EDX)
	b.Emit(&x86.Inst{Op: x86.OpLabel, Target: loop, HasTarget: true})
	loMem, hiMem := mem, mem
	loMem.Ty, hiMem.Ty = ir.I32, ir.I32
	hiMem.Offset += 4
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: eax, Src: []x86.Operand{loMem}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: edx, Src: []x86.Operand{hiMem}})

	ebx := b.fresh(ir.I32)
	ebx.SetReg(x86.EBX)
	ecx := b.fresh(ir.I32)
	ecx.SetReg(x86.ECX)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: ebx, Src: []x86.Operand{eax}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: ecx, Src: []x86.Operand{edx}})
	if in.Kind == ir.AtomicRMWXchg {
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: ebx, Src: []x86.Operand{opLo}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: ecx, Src: []x86.Operand{opHi}})
	} else {
		op := rmwLoopOp[in.Kind]
		b.Emit(&x86.Inst{Op: op, Dest: ebx, Src: []x86.Operand{ebx, opLo}})
		b.Emit(&x86.Inst{Op: op, Dest: ecx, Src: []x86.Operand{ecx, opHi}})
	}
	b.Emit(&x86.Inst{Op: x86.OpLockCmpxchg8b, Dest: mem, Src: []x86.Operand{eax, edx, ebx, ecx}})
	b.Emit(&x86.Inst{Op: x86.OpJcc, CC: x86.CCne, Target: loop, HasTarget: true})

	if in.Dest != nil {
		dest := b.VarFor(*in.Dest, in.Ty)
		destLo, destHi := b.split64(dest)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{eax}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{edx}})
	}
}

// lowerAtomicIsLockFree implements "constant-fold to 1 for sz∈{1,2,4,8},
// else 0 (for 32-bit target)."
func lowerAtomicIsLockFree(b *Builder, in ir.IIntrinsic) {
	if in.Dest == nil {
		return
	}
	sz, ok := in.Args[0].(ir.ConstInt)
	result := int64(0)
	if ok {
		switch sz.Value {
		case 1, 2, 4, 8:
			result = 1
		}
	}
	dest := b.VarFor(*in.Dest, ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: result}}})
}

// lowerBswap implements "i32 — bswap; i64 — bswap both halves and swap
// them; i16 — rol r16, 8."
func lowerBswap(b *Builder, in ir.IIntrinsic) {
	dest := b.VarFor(*in.Dest, in.Ty)
	src := b.toVar(b.Resolve(in.Args[0]), legalize.NoHint)

	switch in.Ty {
	case ir.I16:
		t := b.fresh(ir.I16)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: t, Src: []x86.Operand{src}})
		b.Emit(&x86.Inst{Op: x86.OpRol, Dest: t, Src: []x86.Operand{t, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: 8}}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{t}})
	case ir.I32:
		t := b.fresh(ir.I32)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: t, Src: []x86.Operand{src}})
		b.Emit(&x86.Inst{Op: x86.OpBswap, Dest: t, Src: []x86.Operand{t}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{t}})
	case ir.I64:
		lo, hi := b.split64(src)
		destLo, destHi := b.split64(dest)
		tLo := b.fresh(ir.I32)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: tLo, Src: []x86.Operand{lo}})
		b.Emit(&x86.Inst{Op: x86.OpBswap, Dest: tLo, Src: []x86.Operand{tLo}})
		tHi := b.fresh(ir.I32)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: tHi, Src: []x86.Operand{hi}})
		b.Emit(&x86.Inst{Op: x86.OpBswap, Dest: tHi, Src: []x86.Operand{tHi}})
		// swap the bswapped halves: low word of the result comes from the
		// high word's byte-reversal and vice versa.
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{tHi}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{tLo}})
	default:
		panic("ice: lowerBswap: unsupported type " + in.Ty.String())
	}
}

// lowerCttz32 computes the trailing-zero count (0..32) of a 32-bit value
// via bsf + cmov, the building block shared by both the plain
// i32 case and the i64 composition.
func lowerCttz32(b *Builder, src x86.Operand) *x86.Variable {
	tmp := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpBsf, Dest: tmp, Src: []x86.Operand{src}})
	dest := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 32}}})
	b.Emit(&x86.Inst{Op: x86.OpCmovcc, CC: x86.CCne, Dest: dest, Src: []x86.Operand{tmp}})
	return dest
}

// lowerCtlz32 computes the leading-zero count (0..32) via bsr + cmov:
// dest starts at 63 and takes bsr's highest-set-bit index when the input
// is non-zero; XORing with 31 then turns the index into a leading-zero
// count and 63 into 32 for a zero input.
func lowerCtlz32(b *Builder, src x86.Operand) *x86.Variable {
	tmp := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpBsr, Dest: tmp, Src: []x86.Operand{src}})
	dest := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 63}}})
	b.Emit(&x86.Inst{Op: x86.OpCmovcc, CC: x86.CCne, Dest: dest, Src: []x86.Operand{tmp}})
	b.Emit(&x86.Inst{Op: x86.OpXor, Dest: dest, Src: []x86.Operand{dest, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 31}}})
	return dest
}

func lowerCttz(b *Builder, in ir.IIntrinsic) {
	src := b.legalize(b.Resolve(in.Args[0]), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	dest := b.VarFor(*in.Dest, in.Ty)

	if in.Ty != ir.I64 {
		result := lowerCttz32(b, src)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{result}})
		return
	}
	srcVar := b.toVar(src, legalize.NoHint)
	lo, hi := b.split64(srcVar)
	loCount := lowerCttz32(b, lo)
	hiCount := lowerCttz32(b, hi)
	hiPlus32 := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: hiPlus32, Src: []x86.Operand{hiCount, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 32}}})
	b.Emit(&x86.Inst{Op: x86.OpTest, Src: []x86.Operand{lo, lo}})
	result := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: result, Src: []x86.Operand{loCount}})
	b.Emit(&x86.Inst{Op: x86.OpCmovcc, CC: x86.CCe, Dest: result, Src: []x86.Operand{hiPlus32}})
	destLo, destHi := b.split64(dest)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{result}})
	b.Emit(&x86.Inst{Op: x86.OpXor, Dest: destHi, Src: []x86.Operand{destHi, destHi}})
}

func lowerCtlz(b *Builder, in ir.IIntrinsic) {
	src := b.legalize(b.Resolve(in.Args[0]), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	dest := b.VarFor(*in.Dest, in.Ty)

	if in.Ty != ir.I64 {
		result := lowerCtlz32(b, src)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{result}})
		return
	}
	srcVar := b.toVar(src, legalize.NoHint)
	lo, hi := b.split64(srcVar)
	hiCount := lowerCtlz32(b, hi)
	loCount := lowerCtlz32(b, lo)
	loPlus32 := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: loPlus32, Src: []x86.Operand{loCount, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 32}}})
	b.Emit(&x86.Inst{Op: x86.OpTest, Src: []x86.Operand{hi, hi}})
	result := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: result, Src: []x86.Operand{hiCount}})
	b.Emit(&x86.Inst{Op: x86.OpCmovcc, CC: x86.CCe, Dest: result, Src: []x86.Operand{loPlus32}})
	destLo, destHi := b.split64(dest)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{result}})
	b.Emit(&x86.Inst{Op: x86.OpXor, Dest: destHi, Src: []x86.Operand{destHi, destHi}})
}

// lowerCtpop implements "helper call; upper 32 bits of i64 result zeroed."
func lowerCtpop(b *Builder, in ir.IIntrinsic) {
	if in.Dest == nil {
		return
	}
	src := b.Resolve(in.Args[0])
	key := "popcount32"
	if in.Ty == ir.I64 {
		key = "popcount64"
	}
	result := b.callHelper(key, []x86.Operand{src}, ir.I32)
	dest := b.VarFor(*in.Dest, in.Ty)
	if in.Ty != ir.I64 {
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{result}})
		return
	}
	destLo, destHi := b.split64(dest)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{result}})
	b.Emit(&x86.Inst{Op: x86.OpXor, Dest: destHi, Src: []x86.Operand{destHi, destHi}})
}

func lowerSqrt(b *Builder, in ir.IIntrinsic) {
	if in.Ty != ir.F32 {
		panic("ice: lowerSqrt: only f32 has a direct sqrtss form on this target")
	}
	dest := b.VarFor(*in.Dest, in.Ty)
	src := b.legalize(b.Resolve(in.Args[0]), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpSqrtss, Dest: dest, Src: []x86.Operand{src}})
}

func lowerHelperVoid(b *Builder, key string, args []ir.Value) {
	ops := make([]x86.Operand, len(args))
	for i, a := range args {
		ops[i] = b.Resolve(a)
	}
	b.callHelper(key, ops, ir.Void)
}

func lowerHelperResult(b *Builder, in ir.IIntrinsic, key string) {
	ops := make([]x86.Operand, len(in.Args))
	for i, a := range in.Args {
		ops[i] = b.Resolve(a)
	}
	result := b.callHelper(key, ops, in.Ty)
	if in.Dest != nil {
		dest := b.VarFor(*in.Dest, in.Ty)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{result}})
	}
}

func lowerStacksave(b *Builder, in ir.IIntrinsic) {
	if in.Dest == nil {
		return
	}
	dest := b.VarFor(*in.Dest, ir.I32)
	esp := espVar()
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{esp}})
}

func lowerStackrestore(b *Builder, in ir.IIntrinsic) {
	src := b.legalize(b.Resolve(in.Args[0]), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: espVar(), Src: []x86.Operand{src}})
}

// lowerNaClReadTP implements "sandbox-mode path mov dest, gs:[0];
// otherwise helper call."
func lowerNaClReadTP(b *Builder, in ir.IIntrinsic) {
	if in.Dest == nil {
		return
	}
	dest := b.VarFor(*in.Dest, ir.I32)
	if b.Ctx.Sandboxed {
		mem := x86.Memory{Ty: ir.I32, Seg: x86.SegGS, Offset: 0}
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{mem}})
		return
	}
	result := b.callHelper("readTP", nil, ir.I32)
	b.Emit(&x86.Inst{Op: b.MovOpFor(ir.I32), Dest: dest, Src: []x86.Operand{result}})
}
