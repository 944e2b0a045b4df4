package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerExtractElement implements extract-element.
func lowerExtractElement(b *Builder, in ir.IExtractElement) {
	vec := b.toVar(b.Resolve(in.Vec), legalize.NoHint)
	dest := b.VarFor(in.Dest, in.VecTy.ElemType())
	result := extractLane(b, vec, in.Index, in.VecTy)
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.VecTy.ElemType()), Dest: dest, Src: []x86.Operand{result}})
}

// extractLane pulls lane index out of vec: pextr{b,w,d} when SSE4.1
// covers the lane width, else pshufd the chosen lane into lane 0 and
// movd/movss it out.
func extractLane(b *Builder, vec *x86.Variable, index int, vecTy ir.Type) *x86.Variable {
	elemTy := vecTy.InVectorElemType()

	if vecTy == ir.V4f32 {
		lane0 := vec
		if index != 0 {
			lane0 = b.fresh(ir.V4f32)
			b.Emit(&x86.Inst{Op: x86.OpPshufd, Dest: lane0, Src: []x86.Operand{vec, imm8(int64(index))}})
		}
		dest := b.fresh(ir.F32)
		b.Emit(&x86.Inst{Op: x86.OpMovss, Dest: dest, Src: []x86.Operand{lane0}})
		return dest
	}

	if op, ok := pextrOpFor(elemTy); ok && b.Ctx.HasSSE41() {
		dest := b.fresh(elemTy)
		b.Emit(&x86.Inst{Op: op, Dest: dest, Src: []x86.Operand{vec, imm8(int64(index))}})
		return dest
	}

	lane0 := vec
	if index != 0 {
		lane0 = b.fresh(vecTy)
		b.Emit(&x86.Inst{Op: x86.OpPshufd, Dest: lane0, Src: []x86.Operand{vec, imm8(int64(index))}})
	}
	word := b.fresh(ir.I32)
	b.Emit(&x86.Inst{Op: x86.OpMovd, Dest: word, Src: []x86.Operand{lane0}})
	if elemTy == ir.I32 {
		return word
	}
	dest := b.fresh(elemTy)
	b.Emit(&x86.Inst{Op: x86.OpMov, Dest: dest, Src: []x86.Operand{word}})
	return dest
}

func pextrOpFor(elemTy ir.Type) (x86.Op, bool) {
	switch elemTy {
	case ir.I8:
		return x86.OpPextrb, true
	case ir.I16:
		return x86.OpPextrw, true
	case ir.I32:
		return x86.OpPextrd, true
	}
	return x86.OpNop, false
}

// lowerInsertElement implements insert-element.
func lowerInsertElement(b *Builder, in ir.IInsertElement) {
	vec := b.toVar(b.Resolve(in.Vec), legalize.NoHint)
	elem := b.Resolve(in.Elem)
	dest := b.VarFor(in.Dest, in.VecTy)
	result := insertLane(b, vec, elem, in.Index, in.VecTy)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: dest, Src: []x86.Operand{result}})
}

// insertLane writes elem into lane index of accum, returning the updated
// vector: insertps/pinsr{b,w,d} when SSE4.1 covers the lane width, a
// shufps-sequence keyed on index for v4*32 without SSE4.1, else a stack
// spill-and-store.
func insertLane(b *Builder, accum *x86.Variable, elem x86.Operand, index int, vecTy ir.Type) *x86.Variable {
	result := b.fresh(vecTy)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: result, Src: []x86.Operand{accum}})

	if vecTy == ir.V4f32 {
		elemVar := b.toVar(elem, legalize.NoHint)
		if b.Ctx.HasSSE41() {
			b.Emit(&x86.Inst{Op: x86.OpInsertps, Dest: result, Src: []x86.Operand{result, elemVar, imm8(int64(index << 4))}})
		} else {
			insertV4f32Fallback(b, result, elemVar, index)
		}
		return result
	}

	op, ok := pinsrOpFor(vecTy.InVectorElemType())
	elemVal := b.legalize(elem, x86.ClassReg|x86.ClassMem, legalize.NoHint)
	if ok && b.Ctx.HasSSE41() {
		b.Emit(&x86.Inst{Op: op, Dest: result, Src: []x86.Operand{result, elemVal, imm8(int64(index))}})
	} else {
		insertViaStack(b, result, elemVal, vecTy, index)
	}
	return result
}

func pinsrOpFor(elemTy ir.Type) (x86.Op, bool) {
	switch elemTy {
	case ir.I8:
		return x86.OpPinsrb, true
	case ir.I16:
		return x86.OpPinsrw, true
	case ir.I32:
		return x86.OpPinsrd, true
	}
	return x86.OpNop, false
}

// insertV4f32Fallback implements the v4*32 insert-element fallback
// without SSE4.1 (a shufps sequence keyed on index ∈ {1,2,3}): broadcast
// elem to every lane, then shufps picks elem's lane into the target slot
// while keeping result's own lanes everywhere else.
func insertV4f32Fallback(b *Builder, result, elem *x86.Variable, index int) {
	broadcast := b.fresh(ir.V4f32)
	b.Emit(&x86.Inst{Op: x86.OpPshufd, Dest: broadcast, Src: []x86.Operand{elem, imm8(0)}})
	ctrl := map[int]int64{1: 0x80, 2: 0x20, 3: 0x30}[index]
	merged := b.fresh(ir.V4f32)
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: merged, Src: []x86.Operand{result}})
	b.Emit(&x86.Inst{Op: x86.OpShufps, Dest: merged, Src: []x86.Operand{merged, broadcast, imm8(ctrl)}})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: result, Src: []x86.Operand{merged}})
}

// insertViaStack is the stack spill-and-store fallback: spill the vector,
// overwrite the one lane at its byte offset, reload.
func insertViaStack(b *Builder, vec *x86.Variable, elem x86.Operand, vecTy ir.Type, index int) {
	laneSize := int32(vecTy.InVectorElemType().ByteSize())
	slot := b.fresh(vecTy)
	b.MachFn.AliasPairs = append(b.MachFn.AliasPairs, [2]*x86.Variable{vec, slot})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: slot, Src: []x86.Operand{vec}})
	laneMem := x86.Memory{Ty: vecTy.InVectorElemType(), Base: slot, Offset: int32(index) * laneSize}
	b.Emit(&x86.Inst{Op: b.MovOpFor(vecTy.InVectorElemType()), Dest: laneMem, Src: []x86.Operand{elem}})
	b.Emit(&x86.Inst{Op: x86.OpMovdqa, Dest: vec, Src: []x86.Operand{slot}})
}
