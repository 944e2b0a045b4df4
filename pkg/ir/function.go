package ir

// Param is one formal parameter: its IR type and the Reg it binds to on
// function entry.
type Param struct {
	Reg Reg
	Ty  Type
}

// BasicBlock is an ordered instruction list reached only through explicit
// control flow; the last instruction is always a terminator (IBr, ISwitch,
// or IRet). Any IPhi instructions occupy a run at the head of the block.
type BasicBlock struct {
	Label Label
	Instr []Instr
}

// Terminator returns the block's last instruction, or nil if the block is
// empty (a verifier error).
func (b *BasicBlock) Terminator() Instr {
	if len(b.Instr) == 0 {
		return nil
	}
	return b.Instr[len(b.Instr)-1]
}

// Function is a single IR function: an ordered list of basic blocks (the
// first is the entry block), its formal parameters, and its declared
// return type.
type Function struct {
	Name    string
	Params  []Param
	RetTy   Type
	Blocks  []*BasicBlock
	NextReg Reg // watermark for minting fresh registers during lowering
}

// Block looks up a block by label.
func (f *Function) Block(l Label) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == l {
			return b
		}
	}
	return nil
}

// FreshReg mints a new, function-unique Reg.
func (f *Function) FreshReg() Reg {
	f.NextReg++
	return f.NextReg
}

// Module is an ordered collection of functions plus the global variables
// they reference. Global-variable initialization proper is out of scope;
// Module only carries enough to resolve ConstRelocatable names during
// address-mode optimization and emission.
type Module struct {
	Functions []*Function
	Globals   []GlobalVar
}

// GlobalVar is a named, sized, optionally read-only global.
type GlobalVar struct {
	Name     string
	Size     int64
	Align    int
	ReadOnly bool
}
