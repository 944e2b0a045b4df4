// Package addropt implements address-mode optimization: folding chains
// of add/mul/assign into the base+index*scale+offset form a load/store's
// x86.Memory operand can express directly, so the emitted code
// addresses memory in one instruction instead of materializing the
// pointer arithmetic into a register first. The same fold-an-address-
// expression idea other backends run forward over an expression tree
// while selecting an addressing mode; here it runs backward over the
// already-linear pseudo-instruction stream this target's single-pass
// lowering produces, since x86-32 has no separate instruction-selection
// stage to fold during.
package addropt

import "github.com/gox8632/x8632cc/pkg/x86"

// Run folds addressing chains in place across every block of mf.
func Run(mf *x86.MachFunction) {
	for _, blk := range mf.Blocks {
		defIdx := buildDefIdx(blk)
		original := blk.Insts
		out := make([]*x86.Inst, 0, len(original))
		for i, inst := range original {
			if inst.Deleted {
				out = append(out, inst)
				continue
			}
			if folded, ok := foldInst(inst, defIdx, original, i); ok {
				inst.Deleted = true
				out = append(out, inst, folded)
				continue
			}
			out = append(out, inst)
		}
		blk.Insts = out
	}
}

// buildDefIdx maps a Variable's id to the index, within blk's original
// instruction list, of the single instruction that defines it. A
// variable defined in a different block is simply absent: the fold
// below terminates the moment a lookup misses, which is exactly
// "terminate when ... multi-block lifetimes would be extended" for the
// common case of a def that lives in another block entirely.
func buildDefIdx(blk *x86.MachBlock) map[int]int {
	defIdx := make(map[int]int, len(blk.Insts))
	for i, inst := range blk.Insts {
		if v, ok := inst.Dest.(*x86.Variable); ok && v != nil {
			defIdx[v.ID] = i
		}
	}
	return defIdx
}

// foldInst looks for a Memory operand in inst (Dest for a store, a Src
// entry for a load) and attempts to fold its addressing chain. It
// returns a replacement instruction and true when folding made any
// change, else (nil, false).
func foldInst(inst *x86.Inst, defIdx map[int]int, insts []*x86.Inst, selfIdx int) (*x86.Inst, bool) {
	if mem, ok := inst.Dest.(x86.Memory); ok {
		if folded, changed := foldAddress(mem, defIdx, insts, selfIdx); changed {
			clone := *inst
			clone.Dest = folded
			return &clone, true
		}
		return nil, false
	}
	for i, src := range inst.Src {
		mem, ok := src.(x86.Memory)
		if !ok {
			continue
		}
		folded, changed := foldAddress(mem, defIdx, insts, selfIdx)
		if !changed {
			continue
		}
		clone := *inst
		clone.Src = append([]x86.Operand(nil), inst.Src...)
		clone.Src[i] = folded
		return &clone, true
	}
	return nil, false
}

// foldAddress repeatedly absorbs base's and index's defining instructions
// into mem's base/index/scale/offset fields until nothing more folds.
func foldAddress(mem x86.Memory, defIdx map[int]int, insts []*x86.Inst, selfIdx int) (x86.Memory, bool) {
	scale := mem.Scale
	if scale == 0 {
		scale = 1
	}
	base, index, offset := mem.Base, mem.Index, mem.Offset
	changed := false

	for {
		if base != nil {
			if nb, ni, ns, noff, ok := foldBase(base, index, scale, offset, defIdx, insts, selfIdx); ok {
				base, index, scale, offset = nb, ni, ns, noff
				changed = true
				continue
			}
		}
		if index != nil {
			if ni, ns, ok := foldIndex(index, scale, defIdx, insts, selfIdx); ok {
				index, scale = ni, ns
				changed = true
				continue
			}
		}
		break
	}

	mem.Base, mem.Offset = base, offset
	if index != nil {
		mem.Index, mem.Scale = index, scale
	} else {
		mem.Index, mem.Scale = nil, 0
	}
	return mem, changed
}

// foldBase inspects base's defining instruction and tries, in order: plain
// propagation through a mov; absorbing an add of two single-block
// variables into base+index; absorbing an add/sub of a constant into
// offset. It never touches index unless base's def is the base+index add
// itself (index must already be empty for that fold to apply).
func foldBase(base, index *x86.Variable, scale int8, offset int32, defIdx map[int]int, insts []*x86.Inst, selfIdx int) (newBase, newIndex *x86.Variable, newScale int8, newOffset int32, ok bool) {
	idx, found := defIdx[base.ID]
	if !found || idx >= selfIdx {
		return nil, nil, 0, 0, false
	}
	def := insts[idx]

	switch def.Op {
	case x86.OpMov:
		if src, ok := def.Src[0].(*x86.Variable); ok && src != nil && !src.IsMultiBlock() {
			return src, index, scale, offset, true
		}

	case x86.OpAdd:
		if index == nil {
			if lv, lok := def.Src[0].(*x86.Variable); lok && lv != nil {
				if rv, rok := def.Src[1].(*x86.Variable); rok && rv != nil && !lv.IsMultiBlock() && !rv.IsMultiBlock() {
					return lv, rv, 1, offset, true
				}
			}
		}
		if lv, lok := def.Src[0].(*x86.Variable); lok && lv != nil {
			if imm, iok := def.Src[1].(x86.Immediate); iok && imm.Kind == x86.ImmInt {
				return lv, index, scale, offset + int32(imm.Int), true
			}
		}
		if rv, rok := def.Src[1].(*x86.Variable); rok && rv != nil {
			if imm, iok := def.Src[0].(x86.Immediate); iok && imm.Kind == x86.ImmInt {
				return rv, index, scale, offset + int32(imm.Int), true
			}
		}

	case x86.OpSub:
		if lv, lok := def.Src[0].(*x86.Variable); lok && lv != nil {
			if imm, iok := def.Src[1].(x86.Immediate); iok && imm.Kind == x86.ImmInt {
				return lv, index, scale, offset - int32(imm.Int), true
			}
		}
	}
	return nil, nil, 0, 0, false
}

// foldIndex inspects index's defining instruction: plain propagation
// through a mov, or absorbing a multiply by a constant into the
// existing scale, so long as the combined scale stays one of the four
// x86 SIB encodes (1, 2, 4, 8).
func foldIndex(index *x86.Variable, scale int8, defIdx map[int]int, insts []*x86.Inst, selfIdx int) (*x86.Variable, int8, bool) {
	idx, found := defIdx[index.ID]
	if !found || idx >= selfIdx {
		return nil, 0, false
	}
	def := insts[idx]

	switch def.Op {
	case x86.OpMov:
		if src, ok := def.Src[0].(*x86.Variable); ok && src != nil && !src.IsMultiBlock() {
			return src, scale, true
		}

	case x86.OpImul:
		var v *x86.Variable
		var mult int64
		if lv, lok := def.Src[0].(*x86.Variable); lok && lv != nil {
			if imm, iok := def.Src[1].(x86.Immediate); iok && imm.Kind == x86.ImmInt {
				v, mult = lv, imm.Int
			}
		}
		if v == nil {
			if rv, rok := def.Src[1].(*x86.Variable); rok && rv != nil {
				if imm, iok := def.Src[0].(x86.Immediate); iok && imm.Kind == x86.ImmInt {
					v, mult = rv, imm.Int
				}
			}
		}
		if v != nil && !v.IsMultiBlock() {
			combined := int64(scale) * mult
			if combined == 1 || combined == 2 || combined == 4 || combined == 8 {
				return v, int8(combined), true
			}
		}
	}
	return nil, 0, false
}
