package driver

import (
	"strings"
	"testing"

	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/ir"
)

// These cover a scalar add-and-return and a fused compare-and-branch,
// constructed as ir.Function values directly (pkg/irtext, a textual front
// end for the same programs, is a separate demo-only concern — see
// DESIGN.md). Each asserts substring/order properties rather than a full
// golden listing, in the same spirit as cmd/ralph-cc/integration_test.go's
// Expect/ExpectOrder table.

func TestScenarioAddReturnsWithNoCalleeSavesAndZeroStackAdjust(t *testing.T) {
	mod := &ir.Module{Functions: []*ir.Function{{
		Name:  "f",
		RetTy: ir.I32,
		Params: []ir.Param{
			{Reg: 1, Ty: ir.I32},
			{Reg: 2, Ty: ir.I32},
		},
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{
				ir.IBinOp{Op: ir.Add, Dest: 3, Ty: ir.I32, LHS: ir.Use{Reg: 1, Ty: ir.I32}, RHS: ir.Use{Reg: 2, Ty: ir.I32}},
				ir.IRet{Val: ir.Use{Reg: 3, Ty: ir.I32}, Ty: ir.I32},
			}},
		},
		NextReg: 3,
	}}}

	c := ctx.New()
	out, err := TranslateO2(c, mod)
	if err != nil {
		t.Fatalf("TranslateO2: %v", err)
	}

	if strings.Count(out, "\tret\n") != 1 {
		t.Errorf("expected exactly one ret, got:\n%s", out)
	}
	if strings.Contains(out, "push\t%ebx") || strings.Contains(out, "push\t%esi") || strings.Contains(out, "push\t%edi") {
		t.Errorf("a leaf function with no spills should save no callee-save registers, got:\n%s", out)
	}
	if strings.Contains(out, "sub\t$0, %esp") {
		t.Errorf("a zero-size frame should emit no stack adjustment at all, got:\n%s", out)
	}
	if !strings.Contains(out, "add\t") {
		t.Errorf("expected an add instruction, got:\n%s", out)
	}
}

func TestScenarioFusedIcmpBranchSkipsBoolMaterialization(t *testing.T) {
	mod := &ir.Module{Functions: []*ir.Function{{
		Name:  "k",
		RetTy: ir.I32,
		Params: []ir.Param{{Reg: 1, Ty: ir.I32}},
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{
				ir.IIcmp{Pred: ir.ICmpEq, Dest: 2, Ty: ir.I32, LHS: ir.Use{Reg: 1, Ty: ir.I32}, RHS: ir.ConstInt{Ty: ir.I32, Value: 7}},
				ir.IBr{Cond: ir.Use{Reg: 2, Ty: ir.I1}, True: "T", False: "F"},
			}},
			{Label: "T", Instr: []ir.Instr{ir.IRet{Val: ir.ConstInt{Ty: ir.I32, Value: 1}, Ty: ir.I32}}},
			{Label: "F", Instr: []ir.Instr{ir.IRet{Val: ir.ConstInt{Ty: ir.I32, Value: 0}, Ty: ir.I32}}},
		},
		NextReg: 2,
	}}}

	c := ctx.New()
	out, err := TranslateO2(c, mod)
	if err != nil {
		t.Fatalf("TranslateO2: %v", err)
	}

	cmpIdx := strings.Index(out, "cmp\t")
	jeIdx := strings.Index(out, "je\t")
	jmpIdx := strings.Index(out, "jmp\t")
	if cmpIdx < 0 || jeIdx < 0 || jmpIdx < 0 {
		t.Fatalf("expected cmp, je, and jmp all present, got:\n%s", out)
	}
	if !(cmpIdx < jeIdx && jeIdx < jmpIdx) {
		t.Errorf("expected cmp, je, jmp in that order, got:\n%s", out)
	}
	if strings.Contains(out, "sete") || strings.Contains(out, "movzx") {
		t.Errorf("fused icmp+branch must never materialize an intermediate boolean, got:\n%s", out)
	}
	if strings.Count(out, "\tret\n") != 2 {
		t.Errorf("expected exactly one ret per arm (2 total), got:\n%s", out)
	}
}
