// Package emit renders a lowered x86.MachFunction as GAS (AT&T syntax)
// assembly text for 32-bit ELF: an io.Writer-backed struct, one exported
// Print*-style entry point per section, a big switch over the
// instruction enum printing tab-indented mnemonic/operand lines via
// fmt.Fprintf. Follows the AT&T conventions GNU as expects: %-prefixed
// registers, $-prefixed immediates, offset(%base,%index,scale) memory
// operands. Mnemonics carry no width suffix (mov, push) except the
// movz/movs extensions, whose suffix names both operand widths.
package emit

import (
	"fmt"
	"io"

	"github.com/gox8632/x8632cc/pkg/constpool"
	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// Emitter writes assembly text for one module to w.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter { return &Emitter{w: w} }

// EmitModule writes every function in fns, followed by any non-function
// globals and then the module's pooled float/double/vector constants.
func (e *Emitter) EmitModule(c *ctx.Context, fns []*x86.MachFunction, globals []Global) {
	fmt.Fprintf(e.w, "\t.text\n")
	for _, mf := range fns {
		e.EmitFunction(mf)
	}
	e.emitGlobals(globals)
	constpool.Emit(c, e.w)
}

// EmitFunction writes one function's label, body, and size directive.
func (e *Emitter) EmitFunction(mf *x86.MachFunction) {
	fmt.Fprintf(e.w, "\t.globl\t%s\n", mf.Name)
	fmt.Fprintf(e.w, "\t.type\t%s, @function\n", mf.Name)
	fmt.Fprintf(e.w, "%s:\n", mf.Name)

	for _, blk := range mf.Blocks {
		fmt.Fprintf(e.w, "%s:\n", blockLabel(mf.Name, blk.IRLabel))
		for _, inst := range blk.Insts {
			if inst.Deleted {
				continue
			}
			e.emitInst(mf, inst)
		}
	}

	fmt.Fprintf(e.w, "\t.size\t%s, .-%s\n\n", mf.Name, mf.Name)
}

func blockLabel(fn, irLabel string) string { return fmt.Sprintf(".L%s$%s", fn, irLabel) }

func internalLabel(fn string, l x86.Label) string { return fmt.Sprintf(".L%s$i%d", fn, int(l)) }

func (e *Emitter) branchTarget(mf *x86.MachFunction, inst *x86.Inst) string {
	if inst.HasTarget {
		return internalLabel(mf.Name, inst.Target)
	}
	return blockLabel(mf.Name, inst.IRTarget)
}
