package ir

import "fmt"

// Reg names an SSA virtual register: a small positive integer, unique
// within a Function. Reg 0 is never issued (the zero value doubles as
// "no register").
type Reg int

func (r Reg) String() string { return fmt.Sprintf("%%%d", int(r)) }

// Label names a basic block, unique within a Function.
type Label string

// Value is an IR-level operand: either a Reg produced by some earlier
// instruction, or one of the closed set of constant kinds.
type Value interface {
	implValue()
	Type() Type
}

// Use wraps a Reg as a Value, carrying the type it was defined with.
// The verifier does not compare it against the defining instruction's
// Dest type.
type Use struct {
	Reg Reg
	Ty  Type
}

func (Use) implValue()     {}
func (u Use) Type() Type   { return u.Ty }
func (u Use) String() string { return u.Reg.String() }

// ConstInt is an integer constant of a scalar integer type (i1..i64).
type ConstInt struct {
	Ty    Type
	Value int64
}

func (ConstInt) implValue()   {}
func (c ConstInt) Type() Type { return c.Ty }

// ConstFloat is an f32 constant.
type ConstFloat struct{ Value float32 }

func (ConstFloat) implValue()   {}
func (ConstFloat) Type() Type   { return F32 }

// ConstDouble is an f64 constant.
type ConstDouble struct{ Value float64 }

func (ConstDouble) implValue()   {}
func (ConstDouble) Type() Type   { return F64 }

// ConstRelocatable names a global symbol plus a constant byte addend
// (the result of earlier GEP/offset folding). It reaches a machine
// instruction only through legalization, which may copy it to a
// register when the instruction doesn't accept a Reloc operand.
type ConstRelocatable struct {
	Ty     Type
	Name   string
	Offset int32
}

func (ConstRelocatable) implValue()   {}
func (c ConstRelocatable) Type() Type { return c.Ty }

// ConstUndef is the undef value of a given type. Legalization resolves
// it to an all-zero constant (or a freshly materialized zero vector).
type ConstUndef struct{ Ty Type }

func (ConstUndef) implValue()   {}
func (c ConstUndef) Type() Type { return c.Ty }
