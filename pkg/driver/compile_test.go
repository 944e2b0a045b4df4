package driver

import (
	"errors"
	"strings"
	"testing"

	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

func voidRetFn(name string) *ir.Function {
	return &ir.Function{
		Name:  name,
		RetTy: ir.Void,
		Blocks: []*ir.BasicBlock{
			{Label: "entry", Instr: []ir.Instr{ir.IRet{Ty: ir.Void}}},
		},
	}
}

func TestCompileFunctionProducesRetForAMinimalVoidFunction(t *testing.T) {
	c := ctx.New()
	mf, err := CompileFunction(c, voidRetFn("nop_fn"), O2)
	if err != nil {
		t.Fatalf("CompileFunction: %v", err)
	}
	found := false
	mf.AllInsts(func(_ *x86.MachBlock, _ int, inst *x86.Inst) bool {
		if inst.Op == x86.OpRet {
			found = true
		}
		return true
	})
	if !found {
		t.Error("expected a ret instruction in the compiled function")
	}
}

func TestCompileFunctionReportsClass1ErrorForInvalidIR(t *testing.T) {
	c := ctx.New()
	fn := &ir.Function{Name: "empty_fn"} // no blocks: a verifier violation
	mf, err := CompileFunction(c, fn, O2)
	if err == nil {
		t.Fatal("expected a FuncError for a function with no blocks")
	}
	if mf != nil {
		t.Error("expected no machine function on a class 1 error")
	}
	var fe *ctx.FuncError
	if !errors.As(err, &fe) {
		t.Fatalf("expected a *ctx.FuncError, got %T: %v", err, err)
	}
	if fe.Function != "empty_fn" {
		t.Errorf("expected FuncError to name the offending function, got %q", fe.Function)
	}
}

func TestModuleCompilePreservesOrderAndIsolatesFailures(t *testing.T) {
	mod := &ir.Module{Functions: []*ir.Function{
		voidRetFn("a"),
		{Name: "bad"},
		voidRetFn("c"),
	}}
	m := &Module{IR: mod}
	c := ctx.New()
	results := m.Compile(c, Om1)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Name != "a" || results[0].Err != nil {
		t.Errorf("result 0: expected successful compile of %q, got %+v", "a", results[0])
	}
	if results[1].Name != "bad" || results[1].Err == nil {
		t.Errorf("result 1: expected a class 1 error for %q, got %+v", "bad", results[1])
	}
	if results[2].Name != "c" || results[2].Err != nil {
		t.Errorf("result 2: expected successful compile of %q, got %+v", "c", results[2])
	}
}

func TestTranslateO2RendersEveryGoodFunctionAndJoinsErrors(t *testing.T) {
	mod := &ir.Module{Functions: []*ir.Function{voidRetFn("ok"), {Name: "broken"}}}
	c := ctx.New()

	out, err := TranslateO2(c, mod)
	if err == nil {
		t.Fatal("expected a joined error reporting the broken function")
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("expected the good function's label in the output, got:\n%s", out)
	}
	if strings.Contains(out, "broken") {
		t.Errorf("did not expect the broken function's name to appear in emitted output, got:\n%s", out)
	}
}

