// Package driver owns the parts of the pipeline that are not any one
// pass's responsibility — phi lowering before per-opcode lowering runs,
// module-level concurrency across functions, and end-to-end
// orchestration from an ir.Module down to assembly text: one stage
// function per pipeline phase, driven from a single entry point, the
// way a one-file-at-a-time CLI would, generalized here to compile every
// function in a module concurrently.
package driver

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/gox8632/x8632cc/pkg/addropt"
	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/emit"
	"github.com/gox8632/x8632cc/pkg/frame"
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/lower"
	"github.com/gox8632/x8632cc/pkg/regalloc"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// Mode selects one of two named optimization levels: O2's linear-scan
// allocator (pkg/regalloc.AssignO2) or Om1's single-pass local
// assignment (pkg/regalloc.AssignOm1).
type Mode int

const (
	O2 Mode = iota
	Om1
)

// Result is one function's compiled output, or the reason compilation
// stopped for it. A non-nil Err is always a user IR violation surfaced
// as an error: an unreachable internal-state failure panics instead,
// aborting the whole compilation deterministically rather than reporting
// a per-function error.
type Result struct {
	Name string
	Fn   *x86.MachFunction
	Err  error
}

// CompileFunction runs fn through the full per-function pipeline: phi
// lowering, per-opcode lowering (pkg/lower), address-mode fusion
// (pkg/addropt), register allocation (pkg/regalloc, per mode), frame
// layout (pkg/frame), and nop insertion. c's constant pool and
// name-mangling cache are the only state this shares with a concurrent
// call on another function; Legalize/Lower/AssignO2/AssignOm1/Layout all
// meet that through ctx.Context.Mu.
func CompileFunction(c *ctx.Context, fn *ir.Function, mode Mode) (*x86.MachFunction, error) {
	if err := ir.Verify(fn); err != nil {
		return nil, ctx.NewFuncError(fn.Name, err)
	}
	if err := eliminatePhis(fn); err != nil {
		return nil, ctx.NewFuncError(fn.Name, err)
	}

	b := lower.NewBuilder(c, fn)
	if err := lower.Function(b); err != nil {
		return nil, ctx.NewFuncError(fn.Name, err)
	}
	mf := b.MachFn

	addropt.Run(mf)

	switch mode {
	case Om1:
		regalloc.AssignOm1(mf)
	default:
		regalloc.AssignO2(mf)
	}

	frame.Layout(mf)
	insertNops(mf)

	return mf, nil
}

// Module wraps an ir.Module with the concurrency this package adds on
// top of it.
type Module struct {
	IR *ir.Module
}

// Compile runs every function in m through CompileFunction over a
// worker pool bounded by runtime.GOMAXPROCS: functions may compile in
// parallel, since no state within one function's compilation is shared
// across threads. Results are returned in m.IR.Functions' order
// regardless of which worker finished first or which functions failed.
func (m *Module) Compile(c *ctx.Context, mode Mode) []Result {
	fns := m.IR.Functions
	results := make([]Result, len(fns))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(fns) {
		workers = len(fns)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				mf, err := CompileFunction(c, fns[i], mode)
				results[i] = Result{Name: fns[i].Name, Fn: mf, Err: err}
			}
		}()
	}
	for i := range fns {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// TranslateO2 compiles every function of mod at O2 and renders the
// resulting module as assembly text. A per-function error leaves that
// function out of the output — the driver continues with the next
// function — and is joined into the returned error.
func TranslateO2(c *ctx.Context, mod *ir.Module) (string, error) {
	return translate(c, mod, O2)
}

// TranslateOm1 compiles every function of mod at Om1 and renders the
// resulting module as assembly text.
func TranslateOm1(c *ctx.Context, mod *ir.Module) (string, error) {
	return translate(c, mod, Om1)
}

func translate(c *ctx.Context, mod *ir.Module, mode Mode) (string, error) {
	m := &Module{IR: mod}
	results := m.Compile(c, mode)

	var fns []*x86.MachFunction
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		fns = append(fns, r.Fn)
	}

	var sb strings.Builder
	emit.NewEmitter(&sb).EmitModule(c, fns, globalsFor(mod))

	if len(errs) > 0 {
		return sb.String(), errors.Join(errs...)
	}
	return sb.String(), nil
}

func globalsFor(mod *ir.Module) []emit.Global {
	globals := make([]emit.Global, 0, len(mod.Globals))
	for _, g := range mod.Globals {
		globals = append(globals, emit.Global{
			Name:     g.Name,
			Align:    g.Align,
			Size:     int(g.Size),
			Const:    g.ReadOnly,
			ExportIt: true,
		})
	}
	return globals
}
