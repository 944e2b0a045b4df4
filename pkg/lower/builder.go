// Package lower implements the per-opcode lowering rules and intrinsic
// lowering: the dominant share of the backend. Each
// opcode gets one function matching on the ir.Instr's concrete type and
// appending x86.Inst pseudo-instructions to the block under construction
// — "a single match-on-opcode function per IR instruction kind; no
// virtual tables across the lowering API".
package lower

import (
	"fmt"

	"github.com/gox8632/x8632cc/pkg/ctx"
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// Builder accumulates pseudo-instructions for one function as lowering
// rules run. It owns the fresh-variable counter and implements
// legalize.Emitter so legalization can mint temporaries and append moves
// without importing pkg/lower.
type Builder struct {
	Ctx     *ctx.Context
	MachFn  *x86.MachFunction
	IRFn    *ir.Function
	block   *x86.MachBlock
	nextVar int

	// varOf maps an ir.Reg to its backing x86.Variable, populated as
	// instructions are lowered (a Reg's Variable is created the first
	// time it is used as a Dest).
	varOf map[ir.Reg]*x86.Variable

	// blockByLabel indexes b.MachFn.Blocks for jump-target resolution.
	blockByLabel map[string]*x86.MachBlock
}

// NewBuilder creates a Builder for irFn, pre-populating one MachBlock per
// IR basic block (so branch targets can always be resolved) and a
// Variable for every parameter.
func NewBuilder(c *ctx.Context, irFn *ir.Function) *Builder {
	mf := &x86.MachFunction{Name: irFn.Name}
	b := &Builder{
		Ctx:          c,
		MachFn:       mf,
		IRFn:         irFn,
		varOf:        make(map[ir.Reg]*x86.Variable),
		blockByLabel: make(map[string]*x86.MachBlock),
	}
	for _, blk := range irFn.Blocks {
		mb := &x86.MachBlock{IRLabel: string(blk.Label)}
		mf.Blocks = append(mf.Blocks, mb)
		b.blockByLabel[string(blk.Label)] = mb
	}
	for _, p := range irFn.Params {
		b.varOf[p.Reg] = b.FreshVariable(p.Ty)
	}
	return b
}

// SetBlock directs subsequent Emit calls at mb.
func (b *Builder) SetBlock(mb *x86.MachBlock) { b.block = mb }

// Block returns the MachBlock backing an IR label.
func (b *Builder) Block(label string) *x86.MachBlock { return b.blockByLabel[label] }

// FreshVariable mints a new virtual register of type ty.
func (b *Builder) FreshVariable(ty ir.Type) *x86.Variable {
	b.nextVar++
	return x86.NewVariable(b.nextVar, ty)
}

// Emit appends inst to the current block.
func (b *Builder) Emit(inst *x86.Inst) {
	if b.block == nil {
		panic("ice: builder: Emit called with no current block")
	}
	b.block.Append(inst)
}

// VarFor returns the Variable backing reg, creating it (as an
// infinite-weight temporary of ty) the first time it's requested. Every
// later use of the same Reg resolves to the same Variable, which is how
// SSA def/use identity survives translation to the machine IR.
func (b *Builder) VarFor(reg ir.Reg, ty ir.Type) *x86.Variable {
	if v, ok := b.varOf[reg]; ok {
		return v
	}
	v := b.FreshVariable(ty)
	b.varOf[reg] = v
	return v
}

// Resolve turns an ir.Value into an x86.Operand: a Use becomes its
// backing Variable, constants become the matching x86.Immediate kind.
func (b *Builder) Resolve(v ir.Value) x86.Operand {
	switch val := v.(type) {
	case ir.Use:
		return b.VarFor(val.Reg, val.Ty)
	case ir.ConstInt:
		return x86.Immediate{Kind: x86.ImmInt, Ty: val.Ty, Int: val.Value}
	case ir.ConstFloat:
		return x86.Immediate{Kind: x86.ImmFloat, Ty: ir.F32, F32: val.Value}
	case ir.ConstDouble:
		return x86.Immediate{Kind: x86.ImmDouble, Ty: ir.F64, F64: val.Value}
	case ir.ConstRelocatable:
		return x86.Immediate{Kind: x86.ImmReloc, Ty: val.Ty, Sym: val.Name, Add: val.Offset}
	case ir.ConstUndef:
		return x86.Immediate{Kind: x86.ImmUndef, Ty: val.Ty}
	}
	panic(fmt.Sprintf("ice: resolve: unhandled ir.Value %T", v))
}

// MovOpFor returns the x86 opcode that copies a value of type ty between
// two operands of matching kind (register-register, register-memory, or
// immediate-register).
func (b *Builder) MovOpFor(ty ir.Type) x86.Op {
	switch {
	case ty == ir.F32:
		return x86.OpMovss
	case ty == ir.F64:
		return x86.OpMovsd
	case ty.IsVector():
		return x86.OpMovdqa
	default:
		return x86.OpMov
	}
}

// ZeroVector materializes an all-zero vector of type ty via pxor, the
// canonical way to build a zero XMM value ("Undef becomes the
// all-zero constant of that type (for vectors, a freshly-created zero
// vector built with pxor)").
func (b *Builder) ZeroVector(ty ir.Type) *x86.Variable {
	dest := b.FreshVariable(ty)
	b.Emit(&x86.Inst{Op: x86.OpPxor, Dest: dest, Src: []x86.Operand{dest, dest}})
	return dest
}

// legalize/split64 convenience wrappers bound to this builder.

func (b *Builder) legalize(op x86.Operand, allowed x86.Class, hint legalize.Hint) x86.Operand {
	return legalize.Legalize(b, op, allowed, hint)
}

func (b *Builder) toVar(op x86.Operand, hint legalize.Hint) *x86.Variable {
	return legalize.ToVariable(b, op, hint)
}

func (b *Builder) split64(v *x86.Variable) (lo, hi *x86.Variable) {
	return legalize.Split64(b, v)
}

func (b *Builder) lo(op x86.Operand) x86.Operand { return legalize.Lo(b, op) }
func (b *Builder) hi(op x86.Operand) x86.Operand { return legalize.Hi(b, op) }

// fresh is shorthand for FreshVariable used throughout the per-opcode
// rule files.
func (b *Builder) fresh(ty ir.Type) *x86.Variable { return b.FreshVariable(ty) }
