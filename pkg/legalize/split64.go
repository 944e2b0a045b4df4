package legalize

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// Split64 ensures v.Lo/v.Hi exist as fresh i32 Variables, for a Variable
// of type i64 or f64. Idempotent: calling it twice on the same Variable
// returns the same (lo, hi) pair both times.
func Split64(e Emitter, v *x86.Variable) (lo, hi *x86.Variable) {
	if !v.Ty.Is64() {
		panic("ice: split64: variable is not i64/f64")
	}
	if v.Lo == nil {
		v.Lo = e.FreshVariable(ir.I32)
		v.Hi = e.FreshVariable(ir.I32)
	}
	return v.Lo, v.Hi
}

// Lo returns the low 32-bit view of a 64-bit operand: for a Variable,
// this materializes (via Split64) and returns the low register; for an
// i64 integer constant, the low 32 bits of its value; for a Memory
// operand, the same address unchanged (the low half lives at offset 0).
func Lo(e Emitter, op x86.Operand) x86.Operand {
	switch o := op.(type) {
	case *x86.Variable:
		lo, _ := Split64(e, o)
		return lo
	case x86.Immediate:
		if o.Ty == ir.I64 {
			return x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(int32(o.Int))}
		}
		panic("ice: lo: immediate is not i64")
	case x86.Memory:
		m := o
		m.Ty = ir.I32
		return m
	case x86.VariableSplit:
		panic("ice: lo: operand is already a half-view")
	}
	panic("ice: lo: unknown operand kind")
}

// Hi returns the high 32-bit view of a 64-bit operand: for a Variable,
// the materialized high register; for an i64 constant, its value
// arithmetic-shifted right 32; for a Memory operand, the address offset
// by +4 bytes (little-endian layout: high half follows low half).
func Hi(e Emitter, op x86.Operand) x86.Operand {
	switch o := op.(type) {
	case *x86.Variable:
		_, hi := Split64(e, o)
		return hi
	case x86.Immediate:
		if o.Ty == ir.I64 {
			return x86.Immediate{Kind: x86.ImmInt, Ty: ir.I32, Int: int64(int32(o.Int >> 32))}
		}
		panic("ice: hi: immediate is not i64")
	case x86.Memory:
		m := o
		m.Ty = ir.I32
		m.Offset += 4
		return m
	case x86.VariableSplit:
		panic("ice: hi: operand is already a half-view")
	}
	panic("ice: hi: unknown operand kind")
}
