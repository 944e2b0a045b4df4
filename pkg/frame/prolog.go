package frame

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// pinned returns a throwaway Variable pre-colored to reg, the same idiom
// pkg/lower's espVar uses to express a fixed physical register in a
// pseudo-instruction stream without allocating it as a virtual one.
func pinned(reg x86.RegID) *x86.Variable {
	v := x86.NewVariable(-1, ir.I32)
	v.SetReg(reg)
	return v
}

// emitProlog prepends mf's entry block with: push ebp / mov ebp, esp (if
// UsesFramePtr), push each used callee-save register in calleeSaveOrder,
// sub esp, StackSize, and, if needsRealign, and esp, -16 — return
// address, preserved registers, then spill area, top-down.
func emitProlog(mf *x86.MachFunction, needsRealign bool) {
	if len(mf.Blocks) == 0 {
		return
	}
	var prolog []*x86.Inst

	if mf.UsesFramePtr {
		prolog = append(prolog,
			&x86.Inst{Op: x86.OpPush, Src: []x86.Operand{pinned(x86.EBP)}},
			&x86.Inst{Op: x86.OpMov, Dest: pinned(x86.EBP), Src: []x86.Operand{pinned(x86.ESP)}},
		)
	}
	for _, r := range mf.CalleeSaved {
		prolog = append(prolog, &x86.Inst{Op: x86.OpPush, Src: []x86.Operand{pinned(r)}})
	}
	if mf.StackSize > 0 {
		prolog = append(prolog, &x86.Inst{
			Op:   x86.OpSub,
			Dest: pinned(x86.ESP),
			Src:  []x86.Operand{pinned(x86.ESP), x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(mf.StackSize)}},
		})
	}
	if needsRealign {
		prolog = append(prolog, &x86.Inst{
			Op:   x86.OpAnd,
			Dest: pinned(x86.ESP),
			Src:  []x86.Operand{pinned(x86.ESP), x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: -16}},
		})
	}

	entry := mf.Blocks[0]
	entry.Insts = append(prolog, entry.Insts...)
}

// emitEpilogs inserts, immediately before every ret in mf, the mirror of
// emitProlog: restore esp to just above the callee-save pushes, pop each
// callee-save register in reverse order, then — in frame-pointer mode —
// pop ebp.
//
// The restore always goes through ebp (lea esp, [ebp-calleeSaveBytes])
// rather than undoing the sub/and directly whenever hadAlloca is true:
// an alloca inside the body moves esp by an amount frame layout never
// tracks, so only a fresh computation from the untouched ebp is safe —
// and since that lea is correct unconditionally, it is also what
// reverses the realignment mask, which is otherwise unrecoverable.
func emitEpilogs(mf *x86.MachFunction, needsRealign, hadAlloca bool) {
	calleeSaveBytes := int32(4 * len(mf.CalleeSaved))

	for _, blk := range mf.Blocks {
		out := make([]*x86.Inst, 0, len(blk.Insts))
		for _, inst := range blk.Insts {
			if inst.Op == x86.OpRet {
				out = append(out, epilog(mf, calleeSaveBytes, needsRealign, hadAlloca)...)
			}
			out = append(out, inst)
		}
		blk.Insts = out
	}
}

func epilog(mf *x86.MachFunction, calleeSaveBytes int32, needsRealign, hadAlloca bool) []*x86.Inst {
	var insts []*x86.Inst

	if mf.UsesFramePtr && (mf.StackSize > 0 || needsRealign || hadAlloca) {
		insts = append(insts, &x86.Inst{
			Op:   x86.OpLea,
			Dest: pinned(x86.ESP),
			Src:  []x86.Operand{x86.Memory{Ty: ir.I32, Base: pinned(x86.EBP), Offset: -calleeSaveBytes}},
		})
	} else if !mf.UsesFramePtr && mf.StackSize > 0 {
		insts = append(insts, &x86.Inst{
			Op:   x86.OpAdd,
			Dest: pinned(x86.ESP),
			Src:  []x86.Operand{pinned(x86.ESP), x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(mf.StackSize)}},
		})
	}

	for i := len(mf.CalleeSaved) - 1; i >= 0; i-- {
		insts = append(insts, &x86.Inst{Op: x86.OpPop, Dest: pinned(mf.CalleeSaved[i])})
	}
	if mf.UsesFramePtr {
		insts = append(insts, &x86.Inst{Op: x86.OpPop, Dest: pinned(x86.EBP)})
	}
	return insts
}
