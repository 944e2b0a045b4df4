package driver

import (
	"testing"

	"github.com/gox8632/x8632cc/pkg/x86"
)

func TestInsertNopsFillsAnEmptyBlock(t *testing.T) {
	mf := &x86.MachFunction{Blocks: []*x86.MachBlock{{IRLabel: "entry"}}}
	insertNops(mf)

	insts := mf.Blocks[0].Insts
	if len(insts) != 1 || insts[0].Op != x86.OpNop {
		t.Fatalf("expected a single OpNop in an empty block, got %#v", insts)
	}
}

func TestInsertNopsFillsABlockWhoseOnlyInstructionWasDeleted(t *testing.T) {
	mf := &x86.MachFunction{Blocks: []*x86.MachBlock{{
		IRLabel: "folded",
		Insts:   []*x86.Inst{{Op: x86.OpMov, Deleted: true}},
	}}}
	insertNops(mf)

	insts := mf.Blocks[0].Insts
	if len(insts) != 2 || insts[1].Op != x86.OpNop {
		t.Fatalf("expected the deleted inst to survive plus a trailing nop, got %#v", insts)
	}
}

func TestInsertNopsLeavesANonEmptyBlockUntouched(t *testing.T) {
	mf := &x86.MachFunction{Blocks: []*x86.MachBlock{{
		IRLabel: "real",
		Insts:   []*x86.Inst{{Op: x86.OpRet}},
	}}}
	insertNops(mf)

	insts := mf.Blocks[0].Insts
	if len(insts) != 1 || insts[0].Op != x86.OpRet {
		t.Fatalf("expected no change, got %#v", insts)
	}
}
