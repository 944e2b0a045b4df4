package x86

// Op is the pseudo-instruction's x86 opcode. Lowering targets this one
// flat enum rather than a family of per-opcode Go types: a
// pseudo-instruction is a tagged record carrying the opcode, a
// destination Variable, source operands, an optional condition code, and
// an optional branch target, which is exactly one struct shape with a
// big switch, not a type per mnemonic.
type Op int

const (
	OpNop Op = iota
	OpMov
	OpMovzx
	OpMovsx
	OpLea
	OpPush
	OpPop

	OpAdd
	OpAdc
	OpSub
	OpSbb
	OpAnd
	OpOr
	OpXor
	OpNot
	OpNeg
	OpImul
	OpMul // unsigned mul, implicit edx:eax = eax * src
	OpIdiv
	OpDiv
	OpShl
	OpShr
	OpSar
	OpShld
	OpShrd
	OpRol
	OpRor
	OpBswap
	OpBsf
	OpBsr
	OpTest
	OpCmp
	OpSetcc
	OpCmovcc

	OpJmp
	OpJcc
	OpCall
	OpRet
	OpLabel // pseudo marker: defines an internal label at this point

	OpLockCmpxchg
	OpLockCmpxchg8b
	OpLockXadd
	OpXchg
	OpMfence
	OpUd2

	// scalar floating-point / SSE2
	OpMovss
	OpMovsd
	OpMovaps
	OpMovups
	OpAddss
	OpSubss
	OpMulss
	OpDivss
	OpAddsd
	OpSubsd
	OpMulsd
	OpDivsd
	OpUcomiss
	OpUcomisd
	OpCvtsi2ss
	OpCvtsi2sd
	OpCvttss2si
	OpCvttsd2si
	OpCvtss2sd
	OpCvtsd2ss
	OpSqrtss

	// packed / vector
	OpMovdqa
	OpMovdqu
	OpMovd
	OpMovq
	OpPaddd
	OpPaddb
	OpPaddw
	OpPsubd
	OpPsubb
	OpPsubw
	OpPand
	OpPandn
	OpPor
	OpPxor
	OpPcmpeqd
	OpPcmpeqb
	OpPcmpeqw
	OpPcmpgtd
	OpPcmpgtb
	OpPcmpgtw
	OpPmuludq
	OpPmulld // SSE4.1
	OpPshufd
	OpShufps
	OpAddps
	OpSubps
	OpMulps
	OpDivps
	OpCmpps // takes an immediate predicate byte
	OpBlendvps
	OpPblendvb // SSE4.1
	OpPextrb
	OpPextrw
	OpPextrd
	OpPinsrb
	OpPinsrw
	OpPinsrd
	OpInsertps
	OpMovss2xmm

	// x87 (scalar float return)
	OpFld
	OpFstp

	// fake liveness markers: no machine semantics
	OpFakeDef
	OpFakeUse
	OpFakeKill
)

// CmpPred is the immediate byte cmpps/cmpss/cmpsd take, selecting which
// of the 8 SSE predicates to apply.
type CmpPred int8

const (
	CmpEq CmpPred = iota
	CmpLt
	CmpLe
	CmpUnord
	CmpNeq
	CmpNlt
	CmpNle
	CmpOrd
)

// Label is an internal branch target minted during lowering, distinct
// from an ir.Label (a source-level block name): the driver mints these
// for mid-block control flow a single IR instruction can expand into
// (e.g. the three-way i64 icmp sequence, or Om1's shift correction
// branch). Numbered per function by a monotonically increasing counter.
type Label int

// Inst is the machine pseudo-instruction record.
type Inst struct {
	Op   Op
	Dest Operand // nil when Op produces no result (cmp, store, jmp, ...)
	Src  []Operand
	CC   CondCode
	// one of Target/IRTarget is set for branches; Target for an
	// internally-minted Label, IRTarget for a branch to an IR-level block.
	Target   Label
	HasTarget bool
	IRTarget string
	Deleted  bool // true once a later pass (e.g. address-mode fusion) subsumes this instruction

	// FakeRegs lists the physical registers a FakeKill clobbers, or the
	// Variables a FakeUse/FakeDef constrains; empty for every other Op.
	FakeRegs []*Variable
}

// MachBlock is one lowered basic block: the IR block it came from plus
// the pseudo-instructions lowering emitted for it, in program order.
type MachBlock struct {
	IRLabel string
	Insts   []*Inst
}

// Append adds inst to the end of the block.
func (b *MachBlock) Append(inst *Inst) { b.Insts = append(b.Insts, inst) }

// MachFunction is a fully lowered function: its blocks, its stack-frame
// facts (filled in by pkg/frame), and the monotonically increasing label
// counter backing NewLabel.
type MachFunction struct {
	Name          string
	Blocks        []*MachBlock
	nextLabel     int
	UsesFramePtr  bool
	StackSize     int32
	CalleeSaved   []RegID
	DynamicAlloca bool

	// AliasPairs lists stack-slot unions minted by cross-domain bitcasts
	// (pkg/lower/cast.go): frame layout (pkg/frame) assigns both members
	// of a pair the same stack offset and never a register, so a value
	// written through one typed view and read through the other
	// round-trips its exact bit pattern.
	AliasPairs [][2]*Variable
}

// NewLabel mints a fresh internal Label, unique within f.
func (f *MachFunction) NewLabel() Label {
	f.nextLabel++
	return Label(f.nextLabel)
}

// Block looks up a MachBlock by its originating IR label.
func (f *MachFunction) Block(irLabel string) *MachBlock {
	for _, b := range f.Blocks {
		if b.IRLabel == irLabel {
			return b
		}
	}
	return nil
}

// AllInsts iterates every non-deleted instruction across all blocks, in
// program order — the view every post-lowering pass (address-mode
// fusion, liveness, frame generation, nop insertion, emission) operates
// over.
func (f *MachFunction) AllInsts(yield func(b *MachBlock, i int, inst *Inst) bool) {
	for _, b := range f.Blocks {
		for i, inst := range b.Insts {
			if inst.Deleted {
				continue
			}
			if !yield(b, i, inst) {
				return
			}
		}
	}
}
