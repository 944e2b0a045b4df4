package irtext

import (
	"strings"
	"testing"

	"github.com/gox8632/x8632cc/pkg/ir"
)

func TestParseModuleParsesASimpleAddFunction(t *testing.T) {
	src := `
(module
  (func @f
    (ret i32)
    (params (i32 %1) (i32 %2))
    (block entry
      (binop %3 i32 add (use i32 %1) (use i32 %2))
      (ret i32 (use i32 %3)))))`

	p := NewParser(NewLexer(src))
	mod := p.ParseModule()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	if len(mod.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(mod.Functions))
	}
	fn := mod.Functions[0]
	if fn.Name != "f" || fn.RetTy != ir.I32 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if len(fn.Params) != 2 || fn.Params[0].Reg != 1 || fn.Params[1].Reg != 2 {
		t.Fatalf("unexpected params: %+v", fn.Params)
	}
	if fn.NextReg != 3 {
		t.Errorf("expected NextReg to be recovered as 3, got %d", fn.NextReg)
	}
	if len(fn.Blocks) != 1 || len(fn.Blocks[0].Instr) != 2 {
		t.Fatalf("unexpected blocks: %+v", fn.Blocks)
	}
	bin, ok := fn.Blocks[0].Instr[0].(ir.IBinOp)
	if !ok || bin.Op != ir.Add || bin.Dest != 3 {
		t.Fatalf("expected an add into %%3, got %#v", fn.Blocks[0].Instr[0])
	}
	ret, ok := fn.Blocks[0].Instr[1].(ir.IRet)
	if !ok || ret.Ty != ir.I32 {
		t.Fatalf("expected a ret i32, got %#v", fn.Blocks[0].Instr[1])
	}
}

func TestParseModuleParsesGlobalsAndFusedIcmpBranch(t *testing.T) {
	src := `
(module
  (global @buf 64 16 false)
  (func @k
    (ret i32)
    (params (i32 %1))
    (block entry
      (icmp %2 i32 eq (use i32 %1) (const i32 7))
      (br (use i1 %2) T F))
    (block T
      (ret i32 (const i32 1)))
    (block F
      (ret i32 (const i32 0)))))`

	p := NewParser(NewLexer(src))
	mod := p.ParseModule()
	if len(p.Errors()) != 0 {
		t.Fatalf("unexpected parse errors: %v", p.Errors())
	}
	if len(mod.Globals) != 1 || mod.Globals[0].Name != "buf" || mod.Globals[0].Size != 64 || mod.Globals[0].Align != 16 {
		t.Fatalf("unexpected globals: %+v", mod.Globals)
	}
	fn := mod.Functions[0]
	if len(fn.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(fn.Blocks))
	}
	icmp, ok := fn.Blocks[0].Instr[0].(ir.IIcmp)
	if !ok || icmp.Pred != ir.ICmpEq {
		t.Fatalf("expected an icmp eq, got %#v", fn.Blocks[0].Instr[0])
	}
	br, ok := fn.Blocks[0].Instr[1].(ir.IBr)
	if !ok || br.True != "T" || br.False != "F" || br.Cond == nil {
		t.Fatalf("expected a conditional br to T/F, got %#v", fn.Blocks[0].Instr[1])
	}
}

func TestParseModuleRecordsErrorForUnknownInstruction(t *testing.T) {
	src := `(module (func @bad (ret void) (params) (block entry (bogus))))`
	p := NewParser(NewLexer(src))
	p.ParseModule()
	if len(p.Errors()) == 0 {
		t.Fatal("expected a parse error for the unrecognized instruction keyword")
	}
}

func TestPrinterRoundTripsParamsAndBlockLabels(t *testing.T) {
	src := `
(module
  (func @f
    (ret i32)
    (params (i32 %1) (i32 %2))
    (block entry
      (binop %3 i32 add (use i32 %1) (use i32 %2))
      (ret i32 (use i32 %3)))))`
	mod := NewParser(NewLexer(src)).ParseModule()

	var sb strings.Builder
	NewPrinter(&sb).PrintModule(mod)
	out := sb.String()

	reparsed := NewParser(NewLexer(out)).ParseModule()
	if len(reparsed.Functions) != 1 || reparsed.Functions[0].Name != "f" {
		t.Fatalf("printed output failed to reparse:\n%s", out)
	}
}
