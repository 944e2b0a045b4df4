package liveness

import (
	"testing"

	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

func TestRegSetOperations(t *testing.T) {
	t.Run("Add and Contains", func(t *testing.T) {
		s := NewRegSet()
		s.Add(1)
		s.Add(2)
		if !s.Contains(1) || !s.Contains(2) {
			t.Error("set should contain 1 and 2")
		}
		if s.Contains(3) {
			t.Error("set should not contain 3")
		}
	})

	t.Run("Union", func(t *testing.T) {
		s1 := NewRegSet()
		s1.Add(1)
		s2 := NewRegSet()
		s2.Add(2)
		u := s1.Union(s2)
		if !u.Contains(1) || !u.Contains(2) {
			t.Error("union should contain both elements")
		}
	})

	t.Run("Minus", func(t *testing.T) {
		s1 := NewRegSet()
		s1.Add(1)
		s1.Add(2)
		s2 := NewRegSet()
		s2.Add(2)
		diff := s1.Minus(s2)
		if !diff.Contains(1) || diff.Contains(2) {
			t.Error("difference should contain only 1")
		}
	})

	t.Run("Equal and Copy", func(t *testing.T) {
		s1 := NewRegSet()
		s1.Add(1)
		c := s1.Copy()
		if !s1.Equal(c) {
			t.Error("copy should equal original")
		}
		c.Add(2)
		if s1.Equal(c) {
			t.Error("mutating the copy must not affect the original")
		}
	})
}

// buildLinear builds a five-instruction straight-line MachFunction:
//
//	0: x1 = 1
//	1: x2 = x1
//	2: x2 = add(x2, x1)
//	3: eax = x2
//	4: ret
func buildLinear() *x86.MachFunction {
	mf := &x86.MachFunction{Name: "linear"}
	blk := &x86.MachBlock{IRLabel: "entry"}
	mf.Blocks = append(mf.Blocks, blk)

	x1 := x86.NewVariable(1, ir.I32)
	x2 := x86.NewVariable(2, ir.I32)
	eax := x86.NewVariable(3, ir.I32)
	eax.SetReg(x86.EAX)

	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: x1, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: x2, Src: []x86.Operand{x1}})
	blk.Append(&x86.Inst{Op: x86.OpAdd, Dest: x2, Src: []x86.Operand{x2, x1}})
	blk.Append(&x86.Inst{Op: x86.OpMov, Dest: eax, Src: []x86.Operand{x2}})
	blk.Append(&x86.Inst{Op: x86.OpRet})
	return mf
}

func TestAnalyzeLivenessSimple(t *testing.T) {
	mf := buildLinear()
	info := Analyze(mf)

	// node 0 defines x1 (id 1); it is used at node 1 and node 2, so must
	// be live out of node 0.
	if !info.LiveOut[0].Contains(1) {
		t.Errorf("x1 should be live out of node 0, live_out=%v", info.LiveOut[0].Slice())
	}
	// node 4 is the ret: nothing should be live out of it.
	if len(info.LiveOut[4]) != 0 {
		t.Errorf("nothing should be live out of the ret, got %v", info.LiveOut[4].Slice())
	}
	// x2 (id 2) is defined at node 1 and used at node 2 and node 3: live
	// across that span.
	if !info.LiveOut[1].Contains(2) {
		t.Error("x2 should be live out of node 1")
	}
	if !info.LiveIn[3].Contains(2) {
		t.Error("x2 should be live in at node 3")
	}
}

func TestAnalyzeLivenessWithBranch(t *testing.T) {
	mf := &x86.MachFunction{Name: "branch"}
	entry := &x86.MachBlock{IRLabel: "entry"}
	thenB := &x86.MachBlock{IRLabel: "then"}
	joinB := &x86.MachBlock{IRLabel: "join"}
	mf.Blocks = []*x86.MachBlock{entry, thenB, joinB}

	x1 := x86.NewVariable(1, ir.I32)
	x2 := x86.NewVariable(2, ir.I32)

	entry.Append(&x86.Inst{Op: x86.OpMov, Dest: x1, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 1}}})
	entry.Append(&x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{x1, x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 0}}})
	entry.Append(&x86.Inst{Op: x86.OpJcc, CC: x86.CCe, IRTarget: "then"})
	entry.Append(&x86.Inst{Op: x86.OpJmp, IRTarget: "join"})

	thenB.Append(&x86.Inst{Op: x86.OpMov, Dest: x2, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: 10}}})
	thenB.Append(&x86.Inst{Op: x86.OpJmp, IRTarget: "join"})

	joinB.Append(&x86.Inst{Op: x86.OpRet})

	info := Analyze(mf)

	// the compare at node 1 reads x1 (its result feeds the conditional
	// jump at node 2), so x1 is live into the compare.
	if !info.LiveIn[1].Contains(1) {
		t.Error("x1 should be live at the compare")
	}
}
