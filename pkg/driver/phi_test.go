package driver

import (
	"testing"

	"github.com/gox8632/x8632cc/pkg/ir"
)

func diamondFn() *ir.Function {
	return &ir.Function{
		Name:  "diamond",
		RetTy: ir.I32,
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{
				ir.IBr{Cond: ir.Use{Reg: 1, Ty: ir.I1}, True: "left", False: "right"},
			}},
			{Label: "left", Instr: []ir.Instr{
				ir.IAssign{Dest: 2, Src: ir.ConstInt{Ty: ir.I32, Value: 10}, Ty: ir.I32},
				ir.IBr{True: "merge"},
			}},
			{Label: "right", Instr: []ir.Instr{
				ir.IAssign{Dest: 3, Src: ir.ConstInt{Ty: ir.I32, Value: 20}, Ty: ir.I32},
				ir.IBr{True: "merge"},
			}},
			{Label: "merge", Instr: []ir.Instr{
				ir.IPhi{Dest: 4, Ty: ir.I32, Incoming: []ir.PhiIncoming{
					{Pred: "left", Value: ir.Use{Reg: 2, Ty: ir.I32}},
					{Pred: "right", Value: ir.Use{Reg: 3, Ty: ir.I32}},
				}},
				ir.IRet{Val: ir.Use{Reg: 4, Ty: ir.I32}, Ty: ir.I32},
			}},
		},
		NextReg: 4,
	}
}

func TestEliminatePhisRemovesPhiAndCopiesIntoBothPredecessors(t *testing.T) {
	fn := diamondFn()
	if err := eliminatePhis(fn); err != nil {
		t.Fatalf("eliminatePhis: %v", err)
	}

	merge := fn.Block("merge")
	if _, ok := merge.Instr[0].(ir.IPhi); ok {
		t.Fatalf("phi should have been stripped from merge, got %#v", merge.Instr[0])
	}

	for _, label := range []ir.Label{"left", "right"} {
		blk := fn.Block(label)
		if len(blk.Instr) < 3 {
			t.Fatalf("block %q: expected at least one copy inserted before its terminator, got %d instrs", label, len(blk.Instr))
		}
		last := blk.Instr[len(blk.Instr)-1]
		if !isTerminatorInstr(last) {
			t.Fatalf("block %q: last instruction must remain the terminator, got %#v", label, last)
		}
		assignsToDest4 := false
		for _, in := range blk.Instr {
			if a, ok := in.(ir.IAssign); ok && a.Dest == 4 {
				assignsToDest4 = true
			}
		}
		if !assignsToDest4 {
			t.Fatalf("block %q: expected a copy assigning to the phi's destination reg 4", label)
		}
	}
}

func swapFn() *ir.Function {
	return &ir.Function{
		Name:  "loop_swap",
		RetTy: ir.Void,
		Blocks: []*ir.BasicBlock{
			{Label: "loop", Instr: []ir.Instr{
				ir.IPhi{Dest: 10, Ty: ir.I32, Incoming: []ir.PhiIncoming{
					{Pred: "loop", Value: ir.Use{Reg: 11, Ty: ir.I32}},
				}},
				ir.IPhi{Dest: 11, Ty: ir.I32, Incoming: []ir.PhiIncoming{
					{Pred: "loop", Value: ir.Use{Reg: 10, Ty: ir.I32}},
				}},
				ir.IBr{True: "loop"},
			}},
		},
		NextReg: 11,
	}
}

func TestEliminatePhisSequentializesASwapThroughTemporaries(t *testing.T) {
	fn := swapFn()
	if err := eliminatePhis(fn); err != nil {
		t.Fatalf("eliminatePhis: %v", err)
	}

	blk := fn.Block("loop")
	if len(blk.Instr) != 5 { // 2 temp copies + 2 real assigns + terminator
		t.Fatalf("expected 5 instructions after elimination, got %d: %#v", len(blk.Instr), blk.Instr)
	}

	// the first two instructions must both read the OLD r10/r11 values
	// (into fresh temporaries) before either real destination is written.
	for i := 0; i < 2; i++ {
		a, ok := blk.Instr[i].(ir.IAssign)
		if !ok {
			t.Fatalf("instr %d: expected IAssign, got %#v", i, blk.Instr[i])
		}
		if a.Dest == 10 || a.Dest == 11 {
			t.Fatalf("instr %d: temp stage must not write directly to 10 or 11, wrote %d", i, a.Dest)
		}
	}
	for i := 2; i < 4; i++ {
		a, ok := blk.Instr[i].(ir.IAssign)
		if !ok {
			t.Fatalf("instr %d: expected IAssign, got %#v", i, blk.Instr[i])
		}
		if a.Dest != 10 && a.Dest != 11 {
			t.Fatalf("instr %d: expected a write to 10 or 11, got dest %d", i, a.Dest)
		}
	}
	if !isTerminatorInstr(blk.Instr[4]) {
		t.Fatalf("last instruction must be the terminator, got %#v", blk.Instr[4])
	}
}

func TestEliminatePhisLeavesPhiFreeBlocksUntouched(t *testing.T) {
	fn := &ir.Function{
		Name:  "straight",
		RetTy: ir.Void,
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{ir.IRet{Ty: ir.Void}}},
		},
	}
	before := len(fn.Blocks[0].Instr)
	if err := eliminatePhis(fn); err != nil {
		t.Fatalf("eliminatePhis: %v", err)
	}
	if len(fn.Blocks[0].Instr) != before {
		t.Errorf("expected no change to a phi-free block, got %d instrs (was %d)", len(fn.Blocks[0].Instr), before)
	}
}
