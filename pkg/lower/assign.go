package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// lowerAssign implements a plain copy. Legalize's contract (it handles
// undef, constant folding to zero, and register placement) does all the
// real work; assign itself is just "move src into dest's home".
func lowerAssign(b *Builder, in ir.IAssign) error {
	src := b.Resolve(in.Src)
	dest := b.VarFor(in.Dest, in.Ty)

	if in.Ty.Is64() {
		srcLo, srcHi := b.lo(src), b.hi(src)
		destLo, destHi := b.split64(dest)
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{srcLo}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{srcHi}})
		return nil
	}

	src = b.legalize(src, x86.ClassReg|x86.ClassMem|x86.ClassImm, legalize.NoHint)
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{src}})
	return nil
}
