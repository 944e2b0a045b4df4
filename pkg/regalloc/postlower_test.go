package regalloc

import (
	"testing"

	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// buildStraightLine builds x1 = 1; x2 = x1 + x1; x3 = x2 + x1; eax = x3; ret
// — four infinite-weight i32 virtuals plus one precolored eax, so Om1 must
// reuse a register once x1 is dead.
func buildStraightLine() *x86.MachFunction {
	mf := &x86.MachFunction{Name: "f"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	x1 := x86.NewVariable(1, ir.I32)
	x2 := x86.NewVariable(2, ir.I32)
	x3 := x86.NewVariable(3, ir.I32)
	eax := x86.NewVariable(4, ir.I32)
	eax.SetReg(x86.EAX)

	one := x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}
	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: x1, Src: []x86.Operand{one}})
	blk.Append(&x86.Inst{Op: x86.OpAdd, Dest: x2, Src: []x86.Operand{x1, x1}})
	blk.Append(&x86.Inst{Op: x86.OpAdd, Dest: x3, Src: []x86.Operand{x2, x1}})
	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: eax, Src: []x86.Operand{x3}})
	blk.Append(&x86.Inst{Op: x86.OpRet})
	return mf
}

func TestAssignOm1AssignsDistinctRegisters(t *testing.T) {
	mf := buildStraightLine()
	AssignOm1(mf)

	seen := make(map[x86.RegID]int)
	for _, blk := range mf.Blocks {
		for _, inst := range blk.Insts {
			v, ok := inst.Dest.(*x86.Variable)
			if ok && v != nil && !v.HasReg() {
				t.Fatalf("variable %d left unassigned by Om1", v.ID)
			}
		}
	}

	for _, id := range []int{1, 2, 3} {
		v := findVar(mf, id)
		if !v.HasReg() {
			t.Fatalf("variable %d has no register", id)
		}
		if v.Reg() == x86.EAX {
			t.Errorf("variable %d should not reuse the precolored eax", id)
		}
		seen[v.Reg()]++
	}

	// x1 is dead after node 2 (its last use), so its register may be
	// reused by x3; x2 is live into node 2, so it must not collide with x1
	// at that point. We only assert each got *some* non-eax register here —
	// the liveness test suite covers the live-range math directly.
	if len(seen) == 0 {
		t.Fatal("expected at least one register assignment")
	}
}

func TestAssignOm1RestrictsI8ToByteAddressable(t *testing.T) {
	mf := &x86.MachFunction{Name: "f8"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	x1 := x86.NewVariable(1, ir.I8)
	eax := x86.NewVariable(2, ir.I32)
	eax.SetReg(x86.EAX)

	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: x1, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I8, Int: 5}}})
	blk.Append(&x86.Inst{Op: x86.OpRet})

	AssignOm1(mf)

	v := findVar(mf, 1)
	if !v.HasReg() {
		t.Fatal("i8 variable left unassigned")
	}
	if !byteAddressableGPR[v.Reg()] {
		t.Errorf("i8 variable assigned non-byte-addressable register %v", v.Reg())
	}
}

func findVar(mf *x86.MachFunction, id int) *x86.Variable {
	var found *x86.Variable
	mf.AllInsts(func(_ *x86.MachBlock, _ int, inst *x86.Inst) bool {
		if v, ok := inst.Dest.(*x86.Variable); ok && v != nil && v.ID == id {
			found = v
		}
		for _, s := range inst.Src {
			if v, ok := s.(*x86.Variable); ok && v != nil && v.ID == id {
				found = v
			}
		}
		return true
	})
	return found
}
