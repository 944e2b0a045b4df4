package emit

import (
	"strings"
	"testing"

	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

func reg(id int, ty ir.Type, r x86.RegID) *x86.Variable {
	v := x86.NewVariable(id, ty)
	v.SetReg(r)
	return v
}

func oneBlockFn(name string, insts ...*x86.Inst) *x86.MachFunction {
	return &x86.MachFunction{
		Name:   name,
		Blocks: []*x86.MachBlock{{IRLabel: "entry", Insts: insts}},
	}
}

func TestEmitFunctionMovAndRet(t *testing.T) {
	eax := reg(1, ir.I32, x86.EAX)
	ebx := reg(2, ir.I32, x86.EBX)
	mf := oneBlockFn("add_one",
		&x86.Inst{Op: x86.OpMov, Dest: eax, Src: []x86.Operand{ebx}},
		&x86.Inst{Op: x86.OpRet},
	)

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	out := sb.String()

	if !strings.Contains(out, "\t.globl\tadd_one\n") {
		t.Errorf("missing globl directive:\n%s", out)
	}
	if !strings.Contains(out, "mov\t%ebx, %eax\n") {
		t.Errorf("expected AT&T-order mov, got:\n%s", out)
	}
	if !strings.Contains(out, "\tret\n") {
		t.Errorf("expected ret, got:\n%s", out)
	}
	if !strings.Contains(out, "\t.size\tadd_one, .-add_one\n") {
		t.Errorf("missing size directive:\n%s", out)
	}
}

func TestEmitRMWBinaryOp(t *testing.T) {
	eax := reg(1, ir.I32, x86.EAX)
	ebx := reg(2, ir.I32, x86.EBX)
	mf := oneBlockFn("sum", &x86.Inst{Op: x86.OpAdd, Dest: eax, Src: []x86.Operand{eax, ebx}})

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	if !strings.Contains(sb.String(), "add\t%ebx, %eax\n") {
		t.Errorf("expected rmw add operand order, got:\n%s", sb.String())
	}
}

func TestEmitCmpOperandOrderIsReversed(t *testing.T) {
	eax := reg(1, ir.I32, x86.EAX)
	ebx := reg(2, ir.I32, x86.EBX)
	mf := oneBlockFn("cmp_fn", &x86.Inst{Op: x86.OpCmp, Src: []x86.Operand{eax, ebx}})

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	if !strings.Contains(sb.String(), "cmp\t%ebx, %eax\n") {
		t.Errorf("expected cmp b, a for a - b, got:\n%s", sb.String())
	}
}

func TestEmitSpilledVariableAsMemoryOperand(t *testing.T) {
	v := x86.NewVariable(1, ir.I32)
	v.SetStackOffset(-12)
	eax := reg(2, ir.I32, x86.EAX)
	mf := oneBlockFn("spilled", &x86.Inst{Op: x86.OpMov, Dest: v, Src: []x86.Operand{eax}})

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	if !strings.Contains(sb.String(), "mov\t%eax, -12(%ebp)\n") {
		t.Errorf("expected spill slot rendered as ebp-relative memory, got:\n%s", sb.String())
	}
}

func TestEmitSkipsFakeAndDeletedInstructions(t *testing.T) {
	eax := reg(1, ir.I32, x86.EAX)
	mf := oneBlockFn("skipper",
		&x86.Inst{Op: x86.OpFakeDef, Dest: eax},
		&x86.Inst{Op: x86.OpFakeUse, Src: []x86.Operand{eax}},
		&x86.Inst{Op: x86.OpAdd, Deleted: true, Dest: eax, Src: []x86.Operand{eax, eax}},
		&x86.Inst{Op: x86.OpRet},
	)

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	out := sb.String()
	if strings.Contains(out, "fake") || strings.Contains(out, "add") {
		t.Errorf("expected fake/deleted insts to be skipped entirely, got:\n%s", out)
	}
}

func TestEmitBranchTargetsIRBlockOrInternalLabel(t *testing.T) {
	jmpToBlock := &x86.Inst{Op: x86.OpJmp, IRTarget: "loop"}
	internal := x86.Label(3)
	jmpToInternal := &x86.Inst{Op: x86.OpJmp, Target: internal, HasTarget: true}
	mf := oneBlockFn("branches", jmpToBlock, jmpToInternal)

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	out := sb.String()
	if !strings.Contains(out, "jmp\t.Lbranches$loop\n") {
		t.Errorf("expected jmp to IR block label, got:\n%s", out)
	}
	if !strings.Contains(out, "jmp\t.Lbranches$i3\n") {
		t.Errorf("expected jmp to internal label, got:\n%s", out)
	}
}

func TestEmitSetccAndCmovcc(t *testing.T) {
	al := reg(1, ir.I8, x86.EAX)
	eax := reg(2, ir.I32, x86.EAX)
	ebx := reg(3, ir.I32, x86.EBX)
	mf := oneBlockFn("condmove",
		&x86.Inst{Op: x86.OpSetcc, CC: x86.CCe, Dest: al},
		&x86.Inst{Op: x86.OpCmovcc, CC: x86.CCne, Dest: eax, Src: []x86.Operand{eax, ebx}},
	)

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	out := sb.String()
	if !strings.Contains(out, "sete\t%al\n") {
		t.Errorf("expected sete, got:\n%s", out)
	}
	if !strings.Contains(out, "cmovne\t%ebx, %eax\n") {
		t.Errorf("expected cmovne, got:\n%s", out)
	}
}

func TestEmitCallUsesBareSymbol(t *testing.T) {
	mf := oneBlockFn("caller",
		&x86.Inst{Op: x86.OpCall, Src: []x86.Operand{x86.Immediate{Kind: x86.ImmReloc, Ty: ir.I32, Sym: "memcpy"}}},
	)

	var sb strings.Builder
	NewEmitter(&sb).EmitFunction(mf)
	if !strings.Contains(sb.String(), "call\tmemcpy\n") {
		t.Errorf("expected bare call target, got:\n%s", sb.String())
	}
}

func TestEmitModuleWritesGlobalsAndConstPool(t *testing.T) {
	c := ctx.New()
	c.ConstPoolLabel(4, 0x3f800000)

	mf := oneBlockFn("f", &x86.Inst{Op: x86.OpRet})
	globals := []Global{{Name: "counter", Size: 4, Align: 4, ExportIt: true}}

	var sb strings.Builder
	NewEmitter(&sb).EmitModule(c, []*x86.MachFunction{mf}, globals)
	out := sb.String()

	if !strings.Contains(out, "\t.text\n") {
		t.Errorf("expected leading .text, got:\n%s", out)
	}
	if !strings.Contains(out, "\t.data\n") || !strings.Contains(out, "counter:\n") {
		t.Errorf("expected counter global in .data, got:\n%s", out)
	}
	if !strings.Contains(out, ".rodata.cst4") {
		t.Errorf("expected const pool section, got:\n%s", out)
	}
}
