package regalloc

import (
	"testing"

	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// buildManyLive builds n simultaneously-live i32 variables (each assigned
// from a distinct immediate, all referenced together by a final fake use
// so every one of their intervals spans the whole block) plus a ret —
// enough to exhaust AllocatableGPR(false)'s 7 registers and force O2 to
// spill the lowest-weight interval.
func buildManyLive(n int) (*x86.MachFunction, []*x86.Variable) {
	mf := &x86.MachFunction{Name: "f"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	vars := make([]*x86.Variable, n)
	for i := 0; i < n; i++ {
		v := x86.NewVariable(i+1, ir.I32)
		v.Weight = x86.Weight(i + 1) // distinct finite weights, ascending
		vars[i] = v
		blk.Append(&x86.Inst{Op: x86.OpMov, Dest: v, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(i)}}})
	}
	blk.Append(&x86.Inst{Op: x86.OpFakeUse, FakeRegs: vars})
	blk.Append(&x86.Inst{Op: x86.OpRet})
	return mf, vars
}

func TestAssignO2SpillsLowestWeightWhenPoolExhausted(t *testing.T) {
	mf, vars := buildManyLive(9) // more variables than AllocatableGPR(false) has slots
	AssignO2(mf)

	assigned := 0
	for _, v := range vars {
		if v.HasReg() {
			assigned++
		}
	}
	if assigned != len(x86.AllocatableGPR(mf.UsesFramePtr)) {
		t.Errorf("expected exactly %d variables to hold registers, got %d", len(x86.AllocatableGPR(mf.UsesFramePtr)), assigned)
	}

	// the lowest-weight variable (vars[0], weight 1) shares its whole
	// interval with everyone else, so when the pool runs out it must be
	// among those spilled, never keeping a register while a
	// higher-weight, same-span variable is spilled instead.
	if vars[0].HasReg() {
		for _, v := range vars[1:] {
			if !v.HasReg() {
				t.Errorf("lower-weight variable %d kept a register while higher-weight variable %d was spilled", vars[0].ID, v.ID)
			}
		}
	}
}

// TestAssignO2NeverSpillsInfiniteWeight keeps exactly as many
// simultaneously-live infinite-weight variables as there are registers (so
// satisfying all of them is actually possible) plus two finite-weight ones
// that must give way instead.
func TestAssignO2NeverSpillsInfiniteWeight(t *testing.T) {
	poolSize := len(x86.AllocatableGPR(false))
	mf, vars := buildManyLive(poolSize + 2)
	for i := range vars {
		vars[i].Weight = x86.WeightInfinite
	}
	vars[0].Weight = 1
	vars[1].Weight = 2

	AssignO2(mf)

	for _, v := range vars[2:] {
		if !v.HasReg() {
			t.Errorf("infinite-weight variable %d was left without a register", v.ID)
		}
	}
	if vars[0].HasReg() || vars[1].HasReg() {
		t.Error("the two finite-weight variables should have been spilled instead of an infinite-weight one")
	}
}

// TestAssignO2DisjointIntervalsGetAssigned builds more sequential,
// non-overlapping intervals than AllocatableGPR has registers; since no two
// are ever simultaneously live, every one of them must still get a
// register — which can only happen if expired intervals' registers are
// reused, not just handed out once each.
func TestAssignO2DisjointIntervalsGetAssigned(t *testing.T) {
	mf := &x86.MachFunction{Name: "f"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	one := x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}
	n := len(x86.AllocatableGPR(false)) + 3
	vars := make([]*x86.Variable, n)
	for i := 0; i < n; i++ {
		v := x86.NewVariable(i+1, ir.I32)
		vars[i] = v
		blk.Append(&x86.Inst{Op: x86.OpMov, Dest: v, Src: []x86.Operand{one}})
		blk.Append(&x86.Inst{Op: x86.OpFakeUse, FakeRegs: []*x86.Variable{v}})
	}
	blk.Append(&x86.Inst{Op: x86.OpRet})

	AssignO2(mf)

	for _, v := range vars {
		if !v.HasReg() {
			t.Errorf("variable %d should have gotten a register: no interval overlaps another", v.ID)
		}
	}
}
