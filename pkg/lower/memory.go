package lower

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/legalize"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// addrMemory wraps an address Value as an x86.Memory operand of type ty,
// wrapping the source address as a memory operand the way a "Load" lowering needs.
// Address-mode optimization (pkg/addropt) later folds arithmetic into
// Base/Index/Offset; at lowering time every address is just [base].
func addrMemory(b *Builder, addr ir.Value, ty ir.Type) x86.Memory {
	base := b.toVar(b.Resolve(addr), legalize.NoHint)
	return x86.Memory{Ty: ty, Base: base}
}

// lowerLoad implements a plain load for the unfused case (the fusion
// peephole, when applicable, is applied by fuseLoadArith before this ever
// runs — see lower.go's Function loop).
func lowerLoad(b *Builder, in ir.ILoad) {
	mem := addrMemory(b, in.Addr, in.Ty)
	dest := b.VarFor(in.Dest, in.Ty)

	if in.Ty.Is64() {
		destLo, destHi := b.split64(dest)
		loMem, hiMem := mem, mem
		hiMem.Offset += 4
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destLo, Src: []x86.Operand{loMem}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: destHi, Src: []x86.Operand{hiMem}})
		return
	}
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: dest, Src: []x86.Operand{mem}})
}

// lowerStore implements a store: i64 splits into two stores of
// halves; vectors use a packed store; scalars accept an immediate or
// register source directly.
func lowerStore(b *Builder, in ir.IStore) {
	mem := addrMemory(b, in.Addr, in.Ty)
	val := b.Resolve(in.Val)

	if in.Ty.Is64() {
		loMem, hiMem := mem, mem
		hiMem.Offset += 4
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: loMem, Src: []x86.Operand{b.lo(val)}})
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: hiMem, Src: []x86.Operand{b.hi(val)}})
		return
	}

	val = b.legalize(val, x86.ClassReg|x86.ClassImm, legalize.NoHint)
	b.Emit(&x86.Inst{Op: b.MovOpFor(in.Ty), Dest: mem, Src: []x86.Operand{val}})
}

// fuseLoadArith implements the load-fusion peephole: a peephole fuses a
// load into an immediately following arithmetic when the load's
// destination is the arithmetic's last use and does not alias the other
// source; for commutative ops, either position matches." It reports
// whether it fired (the driver skips both instructions when it does).
//
// Aliasing is approximated the way a single-pass local peephole can: the
// load's Dest reg must not appear anywhere else in bin (a second read
// within the same instruction would need the loaded value twice, which
// this fused form can't express since the memory operand is read once).
func fuseLoadArith(b *Builder, ld ir.ILoad, bin ir.IBinOp) bool {
	if ld.Ty.Is64() || ld.Ty.IsVector() || ld.Ty.IsFloat() {
		return false
	}
	op, ok := opTable[bin.Op]
	if !ok {
		return false
	}
	lhsUse, lhsIsLoad := bin.LHS.(ir.Use)
	rhsUse, rhsIsLoad := bin.RHS.(ir.Use)
	lhsIsLoad = lhsIsLoad && lhsUse.Reg == ld.Dest
	rhsIsLoad = rhsIsLoad && rhsUse.Reg == ld.Dest
	if lhsIsLoad == rhsIsLoad {
		// either both sides read the loaded value (can't express with one
		// memory read) or neither does (fusion doesn't apply).
		return false
	}
	mem := addrMemory(b, ld.Addr, ld.Ty)
	dest := b.VarFor(bin.Dest, bin.Ty)

	var other x86.Operand
	if lhsIsLoad {
		other = b.Resolve(bin.RHS)
	} else {
		other = b.Resolve(bin.LHS)
	}
	other = b.legalize(other, x86.ClassReg|x86.ClassImm, legalize.NoHint)

	t := b.fresh(bin.Ty)
	if lhsIsLoad {
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: t, Src: []x86.Operand{mem}})
		b.Emit(&x86.Inst{Op: op, Dest: t, Src: []x86.Operand{t, other}})
	} else {
		b.Emit(&x86.Inst{Op: x86.OpMov, Dest: t, Src: []x86.Operand{other}})
		b.Emit(&x86.Inst{Op: op, Dest: t, Src: []x86.Operand{t, mem}})
	}
	b.Emit(&x86.Inst{Op: b.MovOpFor(bin.Ty), Dest: dest, Src: []x86.Operand{t}})
	return true
}
