package lower

import (
	"testing"

	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

func countOps(mf *x86.MachFunction, op x86.Op) int {
	n := 0
	for _, blk := range mf.Blocks {
		for _, in := range blk.Insts {
			if in.Op == op {
				n++
			}
		}
	}
	return n
}

func TestFunctionLowersAScalarAddAndReturn(t *testing.T) {
	irFn := &ir.Function{
		Name:  "add",
		RetTy: ir.I32,
		Params: []ir.Param{
			{Reg: 1, Ty: ir.I32},
			{Reg: 2, Ty: ir.I32},
		},
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{
				ir.IBinOp{Op: ir.Add, Dest: 3, Ty: ir.I32, LHS: ir.Use{Reg: 1, Ty: ir.I32}, RHS: ir.Use{Reg: 2, Ty: ir.I32}},
				ir.IRet{Ty: ir.I32, Val: ir.Use{Reg: 3, Ty: ir.I32}},
			}},
		},
	}

	b := NewBuilder(ctx.New(), irFn)
	b.SetBlock(b.Block("entry"))
	if err := Function(b); err != nil {
		t.Fatalf("Function() = %v", err)
	}

	if countOps(b.MachFn, x86.OpAdd) != 1 {
		t.Errorf("expected exactly one add pseudo-instruction, got %d", countOps(b.MachFn, x86.OpAdd))
	}
	if countOps(b.MachFn, x86.OpRet) != 1 {
		t.Errorf("expected exactly one ret pseudo-instruction, got %d", countOps(b.MachFn, x86.OpRet))
	}
}

func TestFunctionFusesIcmpAndBranchIntoAConditionalJumpWithoutMaterializingTheBool(t *testing.T) {
	irFn := &ir.Function{
		Name:  "k",
		RetTy: ir.I32,
		Params: []ir.Param{
			{Reg: 1, Ty: ir.I32},
		},
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{
				ir.IIcmp{Pred: ir.ICmpEq, Dest: 2, Ty: ir.I32, LHS: ir.Use{Reg: 1, Ty: ir.I32}, RHS: ir.ConstInt{Ty: ir.I32, Value: 7}},
				ir.IBr{Cond: ir.Use{Reg: 2, Ty: ir.I1}, True: "T", False: "F"},
			}},
			{Label: "T", Instr: []ir.Instr{
				ir.IRet{Ty: ir.I32, Val: ir.ConstInt{Ty: ir.I32, Value: 1}},
			}},
			{Label: "F", Instr: []ir.Instr{
				ir.IRet{Ty: ir.I32, Val: ir.ConstInt{Ty: ir.I32, Value: 0}},
			}},
		},
	}

	b := NewBuilder(ctx.New(), irFn)
	if err := Function(b); err != nil {
		t.Fatalf("Function() = %v", err)
	}

	if countOps(b.MachFn, x86.OpCmp) != 1 {
		t.Errorf("expected exactly one cmp from the fused peephole, got %d", countOps(b.MachFn, x86.OpCmp))
	}
	if countOps(b.MachFn, x86.OpJcc) != 1 {
		t.Errorf("expected exactly one conditional jump, got %d", countOps(b.MachFn, x86.OpJcc))
	}
	if countOps(b.MachFn, x86.OpSetcc) != 0 {
		t.Error("fused icmp+branch must not materialize the boolean with setcc")
	}
}

func TestFunctionRejectsAPhiThatReachesPerOpcodeLowering(t *testing.T) {
	irFn := &ir.Function{
		Name:  "bad",
		RetTy: ir.I32,
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{
				ir.IRet{Ty: ir.I32, Val: ir.ConstInt{Ty: ir.I32, Value: 0}},
			}},
		},
	}
	b := NewBuilder(ctx.New(), irFn)
	err := Instr(b, ir.IPhi{Dest: 1, Ty: ir.I32})
	if err == nil {
		t.Fatal("Instr(IPhi) = nil error, want an error (phis must be eliminated before per-opcode lowering)")
	}
}
