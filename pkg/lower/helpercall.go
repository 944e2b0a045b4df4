package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// callHelper emits a call to a named runtime ABI helper (the sandboxed
// ABI's runtime helpers follow plain cdecl, distinct from the richer
// IR-level call convention applying only to calls the source program
// itself makes): each arg is pushed right-to-left, the callee is
// addressed by its relocatable symbol, and the caller cleans the stack
// afterward. A 64-bit arg (i64/f64) is pushed as its hi word followed by
// its lo word, so it occupies two 32-bit slots with the same
// little-endian layout as an in-memory i64 (lo at the lower address),
// and counts as 8 bytes toward the cleanup rather than 4. The result
// comes back in eax (retTy narrower than 64 bits) or edx:eax (retTy is
// i64/f64, reassembled into one Variable via Split64).
func (b *Builder) callHelper(key string, args []x86.Operand, retTy ir.Type) *x86.Variable {
	sig, ok := x86.Helpers[key]
	if !ok {
		panic("ice: callHelper: unknown helper " + key)
	}
	var pushedBytes int64
	for i := len(args) - 1; i >= 0; i-- {
		if operandType(args[i]).Is64() {
			hi := b.legalize(b.hi(args[i]), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
			lo := b.legalize(b.lo(args[i]), x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
			b.Emit(&x86.Inst{Op: x86.OpPush, Src: []x86.Operand{hi}})
			b.Emit(&x86.Inst{Op: x86.OpPush, Src: []x86.Operand{lo}})
			pushedBytes += 8
			continue
		}
		arg := b.legalize(args[i], x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
		b.Emit(&x86.Inst{Op: x86.OpPush, Src: []x86.Operand{arg}})
		pushedBytes += 4
	}
	callee := x86.Immediate{Kind: x86.ImmReloc, Ty: ir.I32, Sym: sig.Name}
	b.Emit(&x86.Inst{Op: x86.OpCall, Src: []x86.Operand{callee}})
	if pushedBytes > 0 {
		b.Emit(&x86.Inst{Op: x86.OpAdd, Dest: espVar(), Src: []x86.Operand{espVar(), x86.Immediate{
			Kind: x86.ImmInt, Ty: ir.I32, Int: pushedBytes,
		}}})
	}

	if retTy == ir.Void {
		return nil
	}
	if retTy.Is64() {
		dest := b.fresh(retTy)
		lo, hi := b.split64(dest)
		eax := b.fresh(ir.I32)
		eax.SetReg(x86.EAX)
		edx := b.fresh(ir.I32)
		edx.SetReg(x86.EDX)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: lo, Src: []x86.Operand{eax}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: hi, Src: []x86.Operand{edx}})
		return dest
	}
	result := b.fresh(retTy)
	eax := b.fresh(retTy)
	eax.SetReg(x86.EAX)
	b.Emit(&x86.Inst{Op: b.MovOpFor(retTy), Dest: result, Src: []x86.Operand{eax}})
	return result
}

// espVar returns a throwaway Variable pre-colored to ESP, used only to
// express "add esp, n" in the pseudo-instruction stream; frame layout and
// emission both special-case esp arithmetic rather than treating it as an
// allocatable virtual register.
func espVar() *x86.Variable {
	v := x86.NewVariable(-1, ir.I32)
	v.SetReg(x86.ESP)
	return v
}

// operandType recovers the ir.Type an already-resolved x86.Operand
// carries, so callHelper can tell a 64-bit argument from a 32-bit one
// before deciding how many words to push.
func operandType(op x86.Operand) ir.Type {
	switch o := op.(type) {
	case *x86.Variable:
		return o.Ty
	case x86.Memory:
		return o.Ty
	case x86.Immediate:
		return o.Ty
	case x86.VariableSplit:
		return ir.I32
	}
	panic("ice: operandType: unknown operand kind")
}
