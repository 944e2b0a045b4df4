// Package x86 defines the x86-32 machine-level vocabulary the lowering
// pipeline targets: physical register identities and their names at each
// width, the operand universe (Variable/Memory/Immediate/Relocatable/
// Undef/VariableSplit), and the pseudo-instruction record lowering rules
// build. Register constants and concrete-offset instruction shapes live
// in one package here, rather than split across separate assembler and
// machine-instruction layers, since there is a single machine
// pseudo-instruction form carried from lowering through emission for
// this target.
package x86

import "fmt"

// RegID names one physical register, stable across all widths.
type RegID int

const (
	EAX RegID = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	NumRegs
)

// regInfo carries one physical register's name at each width the
// assembler needs to print. byteName is empty for ESP/EBP/ESI/EDI: x86-32
// (unlike x86-64 with REX) has no byte-addressable encoding for those
// four without a prefix the sandboxed ABI doesn't allow, so legalization
// must never ask for an 8-bit view of them (imul i8 and friends pin to AL
// specifically for this reason, see pkg/lower/arith.go).
type regInfo struct {
	dword, word, byteLo, xmm string
}

var regTable = [NumRegs]regInfo{
	EAX:  {"eax", "ax", "al", ""},
	ECX:  {"ecx", "cx", "cl", ""},
	EDX:  {"edx", "dx", "dl", ""},
	EBX:  {"ebx", "bx", "bl", ""},
	ESP:  {"esp", "sp", "", ""},
	EBP:  {"ebp", "bp", "", ""},
	ESI:  {"esi", "si", "", ""},
	EDI:  {"edi", "di", "", ""},
	XMM0: {"", "", "", "xmm0"},
	XMM1: {"", "", "", "xmm1"},
	XMM2: {"", "", "", "xmm2"},
	XMM3: {"", "", "", "xmm3"},
	XMM4: {"", "", "", "xmm4"},
	XMM5: {"", "", "", "xmm5"},
	XMM6: {"", "", "", "xmm6"},
	XMM7: {"", "", "", "xmm7"},
}

// NameForWidth returns the assembler mnemonic for r at the given width in
// bytes (1, 2, 4, or 16 for a full XMM reference).
func (r RegID) NameForWidth(width int) string {
	info := regTable[r]
	switch width {
	case 1:
		if info.byteLo == "" {
			panic(fmt.Sprintf("ice: register %v has no byte-addressable form", r))
		}
		return info.byteLo
	case 2:
		return info.word
	case 4:
		return info.dword
	case 16:
		return info.xmm
	}
	panic(fmt.Sprintf("ice: no register exactly fits width %d", width))
}

func (r RegID) String() string { return "%" + r.NameForWidth(r.nativeWidth()) }

func (r RegID) nativeWidth() int {
	if r.IsXMM() {
		return 16
	}
	return 4
}

// IsXMM reports whether r is one of the eight XMM registers.
func (r RegID) IsXMM() bool { return r >= XMM0 && r <= XMM7 }

// IsGPR reports whether r is one of the eight general-purpose registers.
func (r RegID) IsGPR() bool { return r >= EAX && r <= EDI }

// GPRegs lists the eight general-purpose registers in encoding order.
var GPRegs = [...]RegID{EAX, ECX, EDX, EBX, ESP, EBP, ESI, EDI}

// XMMRegs lists the eight XMM registers.
var XMMRegs = [...]RegID{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}

// CallerSave lists the GPRs a call clobbers under the cdecl-derived
// sandboxed ABI: EAX, ECX, EDX. All XMM registers are also caller-save.
var CallerSaveGPR = [...]RegID{EAX, ECX, EDX}

// CalleeSave lists the GPRs a callee must preserve: EBX, ESI, EDI, EBP.
var CalleeSaveGPR = [...]RegID{EBX, ESI, EDI, EBP}

// AllocatableGPR lists the GPRs available to the register allocator for
// general values, in preference order. ESP is never allocatable (it is
// the stack pointer); EBP is excluded in frame-pointer mode and included
// in stack-pointer-addressing mode.
func AllocatableGPR(framePointer bool) []RegID {
	if framePointer {
		return []RegID{EAX, ECX, EDX, EBX, ESI, EDI}
	}
	return []RegID{EAX, ECX, EDX, EBX, ESI, EDI, EBP}
}

// Seg names an x86 segment override, used only for the sandboxed
// thread-pointer read (gs:[0]).
type Seg int

const (
	SegNone Seg = iota
	SegGS
)

// CondCode is an x86 condition code, the suffix on jCC/setCC/cmovCC.
type CondCode int

const (
	CCe CondCode = iota
	CCne
	CCa
	CCae
	CCb
	CCbe
	CCg
	CCge
	CCl
	CCle
	CCs
	CCns
	CCo
	CCno
	CCp
	CCnp
)

func (c CondCode) String() string {
	names := [...]string{"e", "ne", "a", "ae", "b", "be", "g", "ge", "l", "le", "s", "ns", "o", "no", "p", "np"}
	if int(c) < len(names) {
		return names[c]
	}
	return "?cc?"
}

// Negate returns the condition code testing the opposite outcome.
func (c CondCode) Negate() CondCode {
	pairs := [...]CondCode{
		CCe: CCne, CCne: CCe,
		CCa: CCbe, CCbe: CCa,
		CCae: CCb, CCb: CCae,
		CCg: CCle, CCle: CCg,
		CCge: CCl, CCl: CCge,
		CCs: CCns, CCns: CCs,
		CCo: CCno, CCno: CCo,
		CCp: CCnp, CCnp: CCp,
	}
	return pairs[c]
}
