package emit

import (
	"fmt"

	"github.com/gox8632/x8632cc/pkg/x86"
)

// emitInst prints one non-deleted pseudo-instruction. FakeDef/FakeUse/
// FakeKill carry no machine semantics (they only shape liveness analysis)
// and are silently skipped.
func (e *Emitter) emitInst(mf *x86.MachFunction, inst *x86.Inst) {
	switch inst.Op {
	case x86.OpFakeDef, x86.OpFakeUse, x86.OpFakeKill:
		return
	case x86.OpNop:
		fmt.Fprintf(e.w, "\tnop\n")
		return
	case x86.OpLabel:
		fmt.Fprintf(e.w, "%s:\n", internalLabel(mf.Name, inst.Target))
		return
	}

	w := width(inst)

	switch inst.Op {
	// data movement
	case x86.OpMov:
		e.line2("mov", inst.Src[0], inst.Dest, w)
	case x86.OpMovzx:
		e.line2(extendMnemonic("movz", inst.Src[0], inst.Dest), inst.Src[0], inst.Dest, 0)
	case x86.OpMovsx:
		e.line2(extendMnemonic("movs", inst.Src[0], inst.Dest), inst.Src[0], inst.Dest, 0)
	case x86.OpLea:
		e.line2("lea", inst.Src[0], inst.Dest, 4)
	case x86.OpPush:
		e.line1("push", inst.Src[0], 4)
	case x86.OpPop:
		e.line1("pop", inst.Dest, 4)

	// arithmetic / logic, read-modify-write
	case x86.OpAdd:
		e.rmw("add", inst, w)
	case x86.OpAdc:
		e.rmw("adc", inst, w)
	case x86.OpSub:
		e.rmw("sub", inst, w)
	case x86.OpSbb:
		e.rmw("sbb", inst, w)
	case x86.OpAnd:
		e.rmw("and", inst, w)
	case x86.OpOr:
		e.rmw("or", inst, w)
	case x86.OpXor:
		e.rmw("xor", inst, w)
	case x86.OpShl:
		e.rmw("shl", inst, w)
	case x86.OpShr:
		e.rmw("shr", inst, w)
	case x86.OpSar:
		e.rmw("sar", inst, w)
	case x86.OpRol:
		e.rmw("rol", inst, w)
	case x86.OpRor:
		e.rmw("ror", inst, w)
	case x86.OpShld:
		e.shiftDouble("shld", inst, w)
	case x86.OpShrd:
		e.shiftDouble("shrd", inst, w)

	case x86.OpNot:
		e.line1("not", inst.Dest, w)
	case x86.OpNeg:
		e.line1("neg", inst.Dest, w)
	case x86.OpBswap:
		e.line1("bswap", inst.Dest, w)
	case x86.OpBsf:
		e.line2("bsf", inst.Src[0], inst.Dest, w)
	case x86.OpBsr:
		e.line2("bsr", inst.Src[0], inst.Dest, w)

	case x86.OpImul:
		e.imul(inst, w)
	case x86.OpMul:
		e.line1("mul", inst.Src[0], w)
	case x86.OpIdiv:
		e.line1("idiv", inst.Src[0], w)
	case x86.OpDiv:
		e.line1("div", inst.Src[0], w)

	case x86.OpTest:
		e.cmpLike("test", inst, w)
	case x86.OpCmp:
		e.cmpLike("cmp", inst, w)
	case x86.OpSetcc:
		fmt.Fprintf(e.w, "\tset%s\t%s\n", inst.CC, e.operand(inst.Dest, 1))
	case x86.OpCmovcc:
		fmt.Fprintf(e.w, "\tcmov%s\t%s, %s\n", inst.CC, e.operand(inst.Src[len(inst.Src)-1], w), e.operand(inst.Dest, w))

	// control flow
	case x86.OpJmp:
		fmt.Fprintf(e.w, "\tjmp\t%s\n", e.branchTarget(mf, inst))
	case x86.OpJcc:
		fmt.Fprintf(e.w, "\tj%s\t%s\n", inst.CC, e.branchTarget(mf, inst))
	case x86.OpCall:
		fmt.Fprintf(e.w, "\tcall\t%s\n", e.callTarget(inst.Src[0]))
	case x86.OpRet:
		fmt.Fprintf(e.w, "\tret\n")

	// atomics / fences
	case x86.OpLockCmpxchg:
		fmt.Fprintf(e.w, "\tlock cmpxchg\t%s, %s\n", e.operand(inst.Src[len(inst.Src)-1], w), e.operand(inst.Dest, w))
	case x86.OpLockCmpxchg8b:
		fmt.Fprintf(e.w, "\tlock cmpxchg8b\t%s\n", e.operand(inst.Dest, 8))
	case x86.OpLockXadd:
		fmt.Fprintf(e.w, "\tlock xadd\t%s, %s\n", e.operand(inst.Src[len(inst.Src)-1], w), e.operand(inst.Dest, w))
	case x86.OpXchg:
		fmt.Fprintf(e.w, "\txchg\t%s, %s\n", e.operand(inst.Src[len(inst.Src)-1], w), e.operand(inst.Dest, w))
	case x86.OpMfence:
		fmt.Fprintf(e.w, "\tmfence\n")
	case x86.OpUd2:
		fmt.Fprintf(e.w, "\tud2\n")

	// scalar SSE
	case x86.OpMovss:
		e.line2("movss", inst.Src[0], inst.Dest, 4)
	case x86.OpMovsd:
		e.line2("movsd", inst.Src[0], inst.Dest, 8)
	case x86.OpMovaps:
		e.line2("movaps", inst.Src[0], inst.Dest, 16)
	case x86.OpMovups:
		e.line2("movups", inst.Src[0], inst.Dest, 16)
	case x86.OpAddss:
		e.rmw("addss", inst, 4)
	case x86.OpSubss:
		e.rmw("subss", inst, 4)
	case x86.OpMulss:
		e.rmw("mulss", inst, 4)
	case x86.OpDivss:
		e.rmw("divss", inst, 4)
	case x86.OpAddsd:
		e.rmw("addsd", inst, 8)
	case x86.OpSubsd:
		e.rmw("subsd", inst, 8)
	case x86.OpMulsd:
		e.rmw("mulsd", inst, 8)
	case x86.OpDivsd:
		e.rmw("divsd", inst, 8)
	case x86.OpUcomiss:
		e.cmpLike("ucomiss", inst, 4)
	case x86.OpUcomisd:
		e.cmpLike("ucomisd", inst, 8)
	case x86.OpCvtsi2ss:
		e.line2("cvtsi2ss", inst.Src[0], inst.Dest, 4)
	case x86.OpCvtsi2sd:
		e.line2("cvtsi2sd", inst.Src[0], inst.Dest, 4)
	case x86.OpCvttss2si:
		e.line2("cvttss2si", inst.Src[0], inst.Dest, 4)
	case x86.OpCvttsd2si:
		e.line2("cvttsd2si", inst.Src[0], inst.Dest, 4)
	case x86.OpCvtss2sd:
		e.line2("cvtss2sd", inst.Src[0], inst.Dest, 4)
	case x86.OpCvtsd2ss:
		e.line2("cvtsd2ss", inst.Src[0], inst.Dest, 8)
	case x86.OpSqrtss:
		e.line2("sqrtss", inst.Src[len(inst.Src)-1], inst.Dest, 4)

	// packed / vector
	case x86.OpMovdqa:
		e.line2("movdqa", inst.Src[0], inst.Dest, 16)
	case x86.OpMovdqu:
		e.line2("movdqu", inst.Src[0], inst.Dest, 16)
	case x86.OpMovd:
		e.line2("movd", inst.Src[0], inst.Dest, 4)
	case x86.OpMovq:
		e.line2("movq", inst.Src[0], inst.Dest, 8)
	case x86.OpPaddd:
		e.rmw("paddd", inst, 16)
	case x86.OpPaddb:
		e.rmw("paddb", inst, 16)
	case x86.OpPaddw:
		e.rmw("paddw", inst, 16)
	case x86.OpPsubd:
		e.rmw("psubd", inst, 16)
	case x86.OpPsubb:
		e.rmw("psubb", inst, 16)
	case x86.OpPsubw:
		e.rmw("psubw", inst, 16)
	case x86.OpPand:
		e.rmw("pand", inst, 16)
	case x86.OpPandn:
		e.rmw("pandn", inst, 16)
	case x86.OpPor:
		e.rmw("por", inst, 16)
	case x86.OpPxor:
		e.rmw("pxor", inst, 16)
	case x86.OpPcmpeqd:
		e.rmw("pcmpeqd", inst, 16)
	case x86.OpPcmpeqb:
		e.rmw("pcmpeqb", inst, 16)
	case x86.OpPcmpeqw:
		e.rmw("pcmpeqw", inst, 16)
	case x86.OpPcmpgtd:
		e.rmw("pcmpgtd", inst, 16)
	case x86.OpPcmpgtb:
		e.rmw("pcmpgtb", inst, 16)
	case x86.OpPcmpgtw:
		e.rmw("pcmpgtw", inst, 16)
	case x86.OpPmuludq:
		e.rmw("pmuludq", inst, 16)
	case x86.OpPmulld:
		e.rmw("pmulld", inst, 16)
	case x86.OpAddps:
		e.rmw("addps", inst, 16)
	case x86.OpSubps:
		e.rmw("subps", inst, 16)
	case x86.OpMulps:
		e.rmw("mulps", inst, 16)
	case x86.OpDivps:
		e.rmw("divps", inst, 16)

	case x86.OpPshufd:
		e.shuffle("pshufd", inst)
	case x86.OpShufps:
		e.shuffle("shufps", inst)
	case x86.OpCmpps:
		e.shuffle("cmpps", inst)
	case x86.OpInsertps:
		e.shuffle("insertps", inst)
	case x86.OpPextrb:
		e.shuffle("pextrb", inst)
	case x86.OpPextrw:
		e.shuffle("pextrw", inst)
	case x86.OpPextrd:
		e.shuffle("pextrd", inst)
	case x86.OpPinsrb:
		e.shuffle("pinsrb", inst)
	case x86.OpPinsrw:
		e.shuffle("pinsrw", inst)
	case x86.OpPinsrd:
		e.shuffle("pinsrd", inst)

	case x86.OpBlendvps:
		// the blend mask is always implicit xmm0 in the legacy SSE4.1
		// encoding, never written out as an explicit operand.
		e.line2("blendvps", inst.Src[len(inst.Src)-2], inst.Dest, 16)
	case x86.OpPblendvb:
		e.line2("pblendvb", inst.Src[len(inst.Src)-2], inst.Dest, 16)
	case x86.OpMovss2xmm:
		e.line2("movd", inst.Src[0], inst.Dest, 4)

	// x87
	case x86.OpFld:
		fmt.Fprintf(e.w, "\tfld\t%s\n", e.operand(inst.Src[0], operandWidth(inst.Src[0])))
	case x86.OpFstp:
		fmt.Fprintf(e.w, "\tfstp\t%s\n", e.operand(inst.Dest, operandWidth(inst.Dest)))

	default:
		panic(fmt.Sprintf("ice: emit: unhandled opcode %v", inst.Op))
	}
}

// line2 prints "mnemonic src, dst" — the vast majority of two-operand
// forms, movs and explicit-destination conversions included.
func (e *Emitter) line2(mnemonic string, src, dst x86.Operand, w int) {
	srcW, dstW := w, w
	if w == 0 {
		srcW, dstW = operandWidth(src), operandWidth(dst)
	}
	fmt.Fprintf(e.w, "\t%s\t%s, %s\n", mnemonic, e.operand(src, srcW), e.operand(dst, dstW))
}

func (e *Emitter) line1(mnemonic string, op x86.Operand, w int) {
	fmt.Fprintf(e.w, "\t%s\t%s\n", mnemonic, e.operand(op, w))
}

// rmw prints a read-modify-write binary op: Dest is also the first
// source by construction (lowering always builds RMW ops this way), so
// only the trailing Src entry needs printing alongside Dest.
func (e *Emitter) rmw(mnemonic string, inst *x86.Inst, w int) {
	fmt.Fprintf(e.w, "\t%s\t%s, %s\n", mnemonic, e.operand(inst.Src[len(inst.Src)-1], w), e.operand(inst.Dest, w))
}

// cmpLike prints a two-source, no-destination comparison: AT&T order is
// reversed from Src's left-to-right reading (cmp b, a tests a - b).
func (e *Emitter) cmpLike(mnemonic string, inst *x86.Inst, w int) {
	fmt.Fprintf(e.w, "\t%s\t%s, %s\n", mnemonic, e.operand(inst.Src[1], w), e.operand(inst.Src[0], w))
}

// shiftDouble prints shld/shrd's three operands: count, src, dst — count
// is always the last Src entry by lowering convention.
func (e *Emitter) shiftDouble(mnemonic string, inst *x86.Inst, w int) {
	count := inst.Src[len(inst.Src)-1]
	src := inst.Src[len(inst.Src)-2]
	fmt.Fprintf(e.w, "\t%s\t%s, %s, %s\n", mnemonic, e.operand(count, 1), e.operand(src, w), e.operand(inst.Dest, w))
}

// imul handles all three x86 forms the OpImul pseudo-op can take: the
// two-operand read-modify-write form (dest *= src), and the three-operand
// form (dest = src * immediate) lowering uses for multiply-by-constant.
func (e *Emitter) imul(inst *x86.Inst, w int) {
	if len(inst.Src) == 2 {
		if _, destIsFirstSrc := sameVariable(inst.Dest, inst.Src[0]); destIsFirstSrc {
			e.rmw("imul", inst, w)
			return
		}
		fmt.Fprintf(e.w, "\timul\t%s, %s, %s\n", e.operand(inst.Src[1], w), e.operand(inst.Src[0], w), e.operand(inst.Dest, w))
		return
	}
	e.line1("imul", inst.Src[0], w)
}

func sameVariable(a, b x86.Operand) (*x86.Variable, bool) {
	av, aok := a.(*x86.Variable)
	bv, bok := b.(*x86.Variable)
	return av, aok && bok && av == bv
}

// shuffle prints an immediate-controlled SSE op: $ctrl always trails Src,
// immediately preceded by the one register/memory source operand these
// pseudo-ops carry alongside their destination.
func (e *Emitter) shuffle(mnemonic string, inst *x86.Inst) {
	ctrl := inst.Src[len(inst.Src)-1]
	src := inst.Src[len(inst.Src)-2]
	fmt.Fprintf(e.w, "\t%s\t%s, %s, %s\n", mnemonic, e.operand(ctrl, 1), e.operand(src, operandWidth(src)), e.operand(inst.Dest, operandWidth(inst.Dest)))
}

// extendMnemonic picks the b/w source-width and l destination-width
// suffix pair movzx/movsx need (GAS has no bare "movzx"/"movsx").
func extendMnemonic(prefix string, src, dst x86.Operand) string {
	s := "b"
	if operandWidth(src) == 2 {
		s = "w"
	}
	d := "l"
	if operandWidth(dst) == 2 {
		d = "w"
	}
	return prefix + s + d
}
