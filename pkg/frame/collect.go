package frame

import (
	"github.com/gox8632/x8632cc/pkg/liveness"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// spillEntry is one unit of stack space frame layout hands out a single
// offset to: ordinarily one Variable, but an AliasPairs entry collapses
// two Variables (a cross-domain bitcast's two typed views of the same
// bits) into one slot sized by the wider of the pair.
type spillEntry struct {
	vars  []*x86.Variable
	size  int
	align int
	block string // "" for a global (multi-block) entry
}

func (e *spillEntry) assign(offset int32) {
	for _, v := range e.vars {
		if !v.HasStackOffset() {
			v.SetStackOffset(offset)
		}
	}
}

// collectSpills walks every instruction of mf and returns the Variables
// needing a stack slot (no register, no offset yet), split into globals
// (multi-block lifetime) and locals (grouped by the single block they
// live in) — the split layoutCoalesced and layoutBucketed key off of.
// AliasPairs members are collected as single combined entries and
// excluded from the generic per-Variable scan so they never get two
// independent offsets.
func collectSpills(mf *x86.MachFunction) (globals, locals []*spillEntry) {
	aliased := make(map[int]bool)
	for _, pair := range mf.AliasPairs {
		a, b := pair[0], pair[1]
		aliased[a.ID] = true
		aliased[b.ID] = true

		size := a.Ty.ByteSize()
		if b.Ty.ByteSize() > size {
			size = b.Ty.ByteSize()
		}
		align := a.Ty.Align()
		if b.Ty.Align() > align {
			align = b.Ty.Align()
		}
		block := a.DefBlock
		if a.IsMultiBlock() || b.IsMultiBlock() || b.DefBlock != a.DefBlock {
			block = ""
		}
		e := &spillEntry{vars: []*x86.Variable{a, b}, size: size, align: align, block: block}
		if block == "" {
			globals = append(globals, e)
		} else {
			locals = append(locals, e)
		}
	}

	seen := make(map[int]bool)
	mf.AllInsts(func(_ *x86.MachBlock, _ int, inst *x86.Inst) bool {
		for _, v := range liveness.OperandVars(inst) {
			if v.HasReg() || v.HasStackOffset() || aliased[v.ID] || seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			e := &spillEntry{vars: []*x86.Variable{v}, size: v.Ty.ByteSize(), align: v.Ty.Align(), block: v.DefBlock}
			if v.IsMultiBlock() {
				globals = append(globals, e)
			} else {
				locals = append(locals, e)
			}
		}
		return true
	})

	return globals, locals
}
