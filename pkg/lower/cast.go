package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerCast dispatches ICast to the cast rule matching its kind
// and operand shape.
func lowerCast(b *Builder, in ir.ICast) error {
	switch in.Kind {
	case ir.Sext, ir.Zext:
		lowerExtend(b, in)
	case ir.Trunc:
		lowerTrunc(b, in)
	case ir.Fptrunc, ir.Fpext:
		lowerFloatWidthCast(b, in)
	case ir.Fptosi, ir.Fptoui, ir.Sitofp, ir.Uitofp:
		lowerFloatIntCast(b, in)
	case ir.Bitcast:
		lowerBitcast(b, in)
	default:
		panic("ice: lowerCast: unknown cast kind")
	}
	return nil
}

func lowerExtend(b *Builder, in ir.ICast) {
	if in.DestTy.IsVector() {
		lowerExtendVector(b, in)
		return
	}
	if in.DestTy.Is64() {
		lowerExtendTo64(b, in)
		return
	}
	if in.SrcTy == ir.I1 {
		lowerExtendFromI1(b, in)
		return
	}

	dest := b.VarFor(in.Dest, in.DestTy)
	src := b.legalize(b.Resolve(in.Src), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	op := x86.OpMovzx
	if in.Kind == ir.Sext {
		op = x86.OpMovsx
	}
	b.Emit(&x86.Inst{Op: op, Dest: dest, Src: []x86.Operand{src}})
}

// lowerExtendFromI1 implements "extend then shift-left-then-shift-right
// by (bitwidth-1) for sign; mask with 1 for zero."
func lowerExtendFromI1(b *Builder, in ir.ICast) {
	dest := b.VarFor(in.Dest, in.DestTy)
	src := b.legalize(b.Resolve(in.Src), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpMovzx, Dest: dest, Src: []x86.Operand{src}})

	if in.Kind == ir.Zext {
		b.Emit(&x86.Inst{Op: x86.OpAnd, Dest: dest, Src: []x86.Operand{dest, x86.Immediate{Kind: x86.ImmInt, Ty: in.DestTy, Int: 1}}})
		return
	}
	width := int64(in.DestTy.ByteSize() * 8)
	b.Emit(&x86.Inst{Op: x86.OpShl, Dest: dest, Src: []x86.Operand{dest, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: width - 1}}})
	b.Emit(&x86.Inst{Op: x86.OpSar, Dest: dest, Src: []x86.Operand{dest, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: width - 1}}})
}

// lowerExtendTo64 implements "extend low half; high half is sign-fill
// (sar …, 31) or zero."
func lowerExtendTo64(b *Builder, in ir.ICast) {
	dest := b.VarFor(in.Dest, ir.I64)
	destLo, destHi := b.split64(dest)

	src := b.legalize(b.Resolve(in.Src), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	switch in.SrcTy {
	case ir.I1:
		b.Emit(&x86.Inst{Op: x86.OpMovzx, Dest: destLo, Src: []x86.Operand{src}})
		if in.Kind == ir.Zext {
			b.Emit(&x86.Inst{Op: x86.OpAnd, Dest: destLo, Src: []x86.Operand{destLo, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
		} else {
			b.Emit(&x86.Inst{Op: x86.OpShl, Dest: destLo, Src: []x86.Operand{destLo, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: 31}}})
			b.Emit(&x86.Inst{Op: x86.OpSar, Dest: destLo, Src: []x86.Operand{destLo, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: 31}}})
		}
	default:
		op := x86.OpMovzx
		if in.Kind == ir.Sext {
			op = x86.OpMovsx
		}
		b.Emit(&x86.Inst{Op: op, Dest: destLo, Src: []x86.Operand{src}})
	}

	if in.Kind == ir.Zext {
		b.Emit(&x86.Inst{Op: x86.OpXor, Dest: destHi, Src: []x86.Operand{destHi, destHi}})
	} else {
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{destLo}})
		b.Emit(&x86.Inst{Op: x86.OpSar, Dest: destHi, Src: []x86.Operand{destHi, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: 31}}})
	}
}

// lowerExtendVector implements "Sext/Zext to vector: AND/compare with an
// all-ones mask; for sign-extend on v16i8 compare-greater-than against
// zero." Every vector Sext/Zext in this IR widens a boolean vector
// (already all-ones/all-zero per lane, the representation our icmp/fcmp
// lowering produces) to its matching integer lane type: Sext is the
// identity everywhere except v16i8, which needs handling of its own
// (re-derived via pcmpgtb against zero rather than reused as-is); Zext
// masks each lane down to 0/1 with a per-lane low-bit mask.
func lowerExtendVector(b *Builder, in ir.ICast) {
	dest := b.VarFor(in.Dest, in.DestTy)
	src := b.toVar(b.Resolve(in.Src), legalize.NoHint)

	if in.Kind == ir.Sext {
		if in.DestTy == ir.V16i8 {
			zero := b.ZeroVector(ir.V16i8)
			result := b.fresh(ir.V16i8)
			b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: result, Src: []x86.Operand{src}})
			b.Emit(&x86.Inst{Op: x86.OpPcmpgtb, Dest: result, Src: []x86.Operand{result, zero}})
			b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
			return
		}
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{src}})
		return
	}
	mask := b.loadVectorMask(oneMaskPattern(in.DestTy), in.DestTy)
	b.Emit(&x86.Inst{Op: x86.OpPand, Dest: dest, Src: []x86.Operand{src, mask}})
}

func oneMaskPattern(ty ir.Type) string {
	switch ty {
	case ir.V16i8:
		return "01010101010101010101010101010101"
	case ir.V8i16:
		return "01000100010001000100010001000100"
	case ir.V4i32:
		return "01000000010000000100000001000000"
	}
	panic("ice: oneMaskPattern: unsupported type " + ty.String())
}

// lowerTrunc implements "truncate via move; for i1 AND with 1."
func lowerTrunc(b *Builder, in ir.ICast) {
	dest := b.VarFor(in.Dest, in.DestTy)
	src := b.Resolve(in.Src)
	if in.SrcTy.Is64() {
		src = b.lo(src)
	}
	src = b.legalize(src, x86.ClassReg|x86.ClassMem, legalize.NoHint)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{src}})
	if in.DestTy == ir.I1 {
		b.Emit(&x86.Inst{Op: x86.OpAnd, Dest: dest, Src: []x86.Operand{dest, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I1, Int: 1}}})
	}
}

func lowerFloatWidthCast(b *Builder, in ir.ICast) {
	dest := b.VarFor(in.Dest, in.DestTy)
	src := b.legalize(b.Resolve(in.Src), x86.ClassReg|x86.ClassMem, legalize.NoHint)
	op := x86.OpCvtss2sd
	if in.Kind == ir.Fptrunc {
		op = x86.OpCvtsd2ss
	}
	b.Emit(&x86.Inst{Op: op, Dest: dest, Src: []x86.Operand{src}})
}

func lowerFloatIntCast(b *Builder, in ir.ICast) {
	dest := b.VarFor(in.Dest, in.DestTy)
	src := b.Resolve(in.Src)

	switch in.Kind {
	case ir.Fptosi:
		if in.DestTy.Is64() {
			key := "fptosi64"
			if in.SrcTy == ir.F64 {
				key = "dptosi64"
			}
			result := b.callHelper(key, []x86.Operand{src}, ir.I64)
			lo, hi := b.split64(result)
			destLo, destHi := b.split64(dest)
			b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{lo}})
			b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{hi}})
			return
		}
		op := x86.OpCvttss2si
		if in.SrcTy == ir.F64 {
			op = x86.OpCvttsd2si
		}
		b.Emit(&x86.Inst{Op: op, Dest: dest, Src: []x86.Operand{b.legalize(src, x86.ClassReg|x86.ClassMem, legalize.NoHint)}})

	case ir.Fptoui:
		key := map[ir.Type]string{ir.F32: "fptoui32", ir.F64: "dptoui32"}[in.SrcTy]
		if in.DestTy.Is64() {
			key = map[ir.Type]string{ir.F32: "fptoui64", ir.F64: "dptoui64"}[in.SrcTy]
		}
		result := b.callHelper(key, []x86.Operand{src}, in.DestTy)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.DestTy), Dest: dest, Src: []x86.Operand{result}})

	case ir.Sitofp:
		if in.SrcTy.Is64() {
			key := "si64tof"
			if in.DestTy == ir.F64 {
				key = "si64tod"
			}
			result := b.callHelper(key, []x86.Operand{src}, in.DestTy)
			b.Emit(&x86.Inst{Op: b.MovOpFor(in.DestTy), Dest: dest, Src: []x86.Operand{result}})
			return
		}
		op := x86.OpCvtsi2ss
		if in.DestTy == ir.F64 {
			op = x86.OpCvtsi2sd
		}
		widened := src
		if in.SrcTy != ir.I32 {
			w := b.fresh(ir.I32)
			b.Emit(&x86.Inst{Op: x86.OpMovsx, Dest: w, Src: []x86.Operand{b.legalize(src, x86.ClassReg|x86.ClassMem, legalize.NoHint)}})
			widened = w
		}
		b.Emit(&x86.Inst{Op: op, Dest: dest, Src: []x86.Operand{b.legalize(widened, x86.ClassReg|x86.ClassMem, legalize.NoHint)}})

	case ir.Uitofp:
		key := "ui32tof"
		if in.DestTy == ir.F64 {
			key = "ui32tod"
		}
		if in.SrcTy.Is64() {
			key = "ui64tof"
			if in.DestTy == ir.F64 {
				key = "ui64tod"
			}
		}
		result := b.callHelper(key, []x86.Operand{src}, in.DestTy)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.DestTy), Dest: dest, Src: []x86.Operand{result}})
	}
}

// lowerBitcast implements bitcast. Same-width same-domain casts
// are a plain assign; crossing the GPR/XMM domain (i32<->f32, i64<->f64)
// round-trips through a stack-slot alias pair; narrow bool-vector
// bitcasts invoke helpers; other vector-to-vector bitcasts are packed
// moves.
func lowerBitcast(b *Builder, in ir.ICast) {
	dest := b.VarFor(in.Dest, in.DestTy)
	src := b.Resolve(in.Src)

	switch {
	case in.SrcTy == ir.I32 && in.DestTy == ir.F32, in.SrcTy == ir.F32 && in.DestTy == ir.I32:
		b.bitcastViaStack(src, in.SrcTy, dest)

	case in.SrcTy == ir.I64 && in.DestTy == ir.F64, in.SrcTy == ir.F64 && in.DestTy == ir.I64:
		lowerBitcast64(b, in, dest)

	case in.SrcTy == ir.I8 && in.DestTy == ir.V8i1:
		result := b.callHelper("bitcastI8V8i1", []x86.Operand{src}, in.DestTy)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
	case in.SrcTy == ir.V8i1 && in.DestTy == ir.I8:
		result := b.callHelper("bitcastV8i1I8", []x86.Operand{src}, in.DestTy)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{result}})
	case in.SrcTy == ir.I16 && in.DestTy == ir.V16i1:
		result := b.callHelper("bitcastI16V16i1", []x86.Operand{src}, in.DestTy)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
	case in.SrcTy == ir.V16i1 && in.DestTy == ir.I16:
		result := b.callHelper("bitcastV16i1I16", []x86.Operand{src}, in.DestTy)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{result}})

	case in.SrcTy.IsVector() && in.DestTy.IsVector():
		srcVar := b.toVar(src, legalize.NoHint)
		b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{srcVar}})

	default:
		srcLegal := b.legalize(src, x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
		b.Emit(&x86.Inst{Op: b.MovOpFor(in.DestTy), Dest: dest, Src: []x86.Operand{srcLegal}})
	}
}

// bitcastViaStack mints an alias pair (MachFunction.AliasPairs): a
// store through the source's typed view followed by a load through the
// destination's, both addressing the same stack bytes once frame layout
// assigns them a shared offset.
func (b *Builder) bitcastViaStack(src x86.Operand, srcTy ir.Type, dest *x86.Variable) {
	storeView := b.fresh(srcTy)
	b.Emit(&x86.Inst{Op: b.MovOpFor(srcTy), Dest: storeView, Src: []x86.Operand{b.legalize(src, x86.ClassReg|x86.ClassMem, legalize.NoHint)}})
	b.MachFn.AliasPairs = append(b.MachFn.AliasPairs, [2]*x86.Variable{storeView, dest})
	b.Emit(&x86.Inst{Op: b.MovOpFor(dest.Ty), Dest: dest, Src: []x86.Operand{storeView}})
}

// lowerBitcast64 implements "i64↔f64 uses movq plus a VariableSplit pair
// to get the halves": both the i64 and f64 side already carry a (lo,hi)
// i32 split (Split64 treats i64 and f64 identically), so the bitcast is
// just a cross-wiring of one side's halves into the other's.
func lowerBitcast64(b *Builder, in ir.ICast, dest *x86.Variable) {
	srcVar := b.toVar(b.Resolve(in.Src), legalize.NoHint)
	srcLo, srcHi := b.split64(srcVar)
	destLo, destHi := b.split64(dest)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{srcLo}})
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{srcHi}})
}
