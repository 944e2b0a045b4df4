package frame

import (
	"testing"

	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

func multiBlock(id int, ty ir.Type) *x86.Variable {
	return x86.NewVariable(id, ty) // DefBlock left "" => multi-block
}

func local(id int, ty ir.Type, block string) *x86.Variable {
	v := x86.NewVariable(id, ty)
	v.DefBlock = block
	return v
}

func TestLayoutLeavesTrivialFunctionUntouched(t *testing.T) {
	mf := &x86.MachFunction{Name: "f"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	eax := x86.NewVariable(1, ir.I32)
	eax.SetReg(x86.EAX)
	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: eax, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
	blk.Append(&x86.Inst{Op: x86.OpRet})

	Layout(mf)

	if mf.UsesFramePtr {
		t.Error("a function with no spills, calls, or alloca should not need a frame pointer")
	}
	if mf.StackSize != 0 {
		t.Errorf("expected StackSize 0, got %d", mf.StackSize)
	}
	if len(blk.Insts) != 2 {
		t.Errorf("expected no prolog/epilog instructions inserted, got %d instructions", len(blk.Insts))
	}
}

func TestLayoutAssignsGlobalSpillOffset(t *testing.T) {
	mf := &x86.MachFunction{Name: "f"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	spilled := multiBlock(1, ir.I32)
	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: spilled, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
	blk.Append(&x86.Inst{Op: x86.OpRet})

	Layout(mf)

	if !mf.UsesFramePtr {
		t.Fatal("a spilled variable should force frame-pointer mode")
	}
	if !spilled.HasStackOffset() {
		t.Fatal("spilled variable never got a stack offset")
	}
	if spilled.StackOffset() >= 0 {
		t.Errorf("expected a negative (below ebp) offset, got %d", spilled.StackOffset())
	}
	if mf.StackSize < 4 {
		t.Errorf("expected StackSize to cover at least the one spilled i32, got %d", mf.StackSize)
	}

	first := blk.Insts[0]
	if first.Op != x86.OpPush {
		t.Errorf("expected prolog to start with push ebp, got op %v", first.Op)
	}
}

func TestLayoutCoalescesLocalsAcrossBlocksWithoutSetjmp(t *testing.T) {
	mf := &x86.MachFunction{Name: "f"}
	a := &x86.MachBlock{IRLabel: "a"}
	b := &x86.MachBlock{IRLabel: "b"}
	mf.Blocks = append(mf.Blocks, a, b)

	va := local(1, ir.I32, "a")
	vb := local(2, ir.I32, "b")
	a.Append(&x86.Inst{Op: x86.OpMov, Dest: va, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
	a.Append(&x86.Inst{Op: x86.OpRet})
	b.Append(&x86.Inst{Op: x86.OpMov, Dest: vb, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 2}}})
	b.Append(&x86.Inst{Op: x86.OpRet})

	Layout(mf)

	if va.StackOffset() != vb.StackOffset() {
		t.Errorf("locals confined to different blocks should overlay the same slot absent a returns-twice call: got %d and %d", va.StackOffset(), vb.StackOffset())
	}
}

func TestLayoutKeepsLocalsDisjointAcrossSetjmp(t *testing.T) {
	mf := &x86.MachFunction{Name: "f"}
	a := &x86.MachBlock{IRLabel: "a"}
	b := &x86.MachBlock{IRLabel: "b"}
	mf.Blocks = append(mf.Blocks, a, b)

	va := local(1, ir.I32, "a")
	vb := local(2, ir.I32, "b")
	a.Append(&x86.Inst{Op: x86.OpMov, Dest: va, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
	a.Append(&x86.Inst{Op: x86.OpCall, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmReloc, Ty: ir.I32, Sym: "setjmp"}}})
	a.Append(&x86.Inst{Op: x86.OpRet})
	b.Append(&x86.Inst{Op: x86.OpMov, Dest: vb, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 2}}})
	b.Append(&x86.Inst{Op: x86.OpRet})

	Layout(mf)

	if va.StackOffset() == vb.StackOffset() {
		t.Error("a returns-twice function must not coalesce per-block local regions")
	}
}

func TestLayoutAssignsAliasPairTheSameOffset(t *testing.T) {
	mf := &x86.MachFunction{Name: "f"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	asInt := multiBlock(1, ir.I32)
	asFloat := multiBlock(2, ir.F32)
	mf.AliasPairs = append(mf.AliasPairs, [2]*x86.Variable{asInt, asFloat})
	blk.Append(&x86.Inst{Op: x86.OpRet})

	Layout(mf)

	if !asInt.HasStackOffset() || !asFloat.HasStackOffset() {
		t.Fatal("both members of an alias pair should get a stack offset")
	}
	if asInt.StackOffset() != asFloat.StackOffset() {
		t.Errorf("alias pair members should share one slot, got %d and %d", asInt.StackOffset(), asFloat.StackOffset())
	}
}

func TestLayoutEmitsRealignAndCalleeSavesAroundACall(t *testing.T) {
	mf := &x86.MachFunction{Name: "f"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	ebx := x86.NewVariable(1, ir.I32)
	ebx.SetReg(x86.EBX)
	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: ebx, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
	blk.Append(&x86.Inst{Op: x86.OpCall, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmReloc, Ty: ir.I32, Sym: "helper"}}})
	blk.Append(&x86.Inst{Op: x86.OpRet})

	Layout(mf)

	if len(mf.CalleeSaved) != 1 || mf.CalleeSaved[0] != x86.EBX {
		t.Fatalf("expected ebx recorded as the sole callee-save, got %v", mf.CalleeSaved)
	}

	sawPushEbx, sawAnd := false, false
	for _, inst := range blk.Insts {
		if inst.Op == x86.OpPush {
			if v, ok := inst.Src[0].(*x86.Variable); ok && v.HasReg() && v.Reg() == x86.EBX {
				sawPushEbx = true
			}
		}
		if inst.Op == x86.OpAnd {
			sawAnd = true
		}
	}
	if !sawPushEbx {
		t.Error("expected the prolog to push the used callee-save register ebx")
	}
	if !sawAnd {
		t.Error("expected a call to force 16-byte realignment (and esp, -16)")
	}
}
