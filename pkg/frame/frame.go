// Package frame turns the spilled Variables and callee-save register
// usage a lowered, register-allocated x86.MachFunction ended up with
// into a concrete stack frame — an offset for every spill, a prolog that
// establishes it, and a mirrored epilog at every return: bucket-by-section
// sizing of the spill area, a used-register scan for which callee-saves
// need a push/pop pair, and a push/pop-ordered prolog and epilog.
//
// Layout must run after pkg/addropt and pkg/regalloc: both can still
// reference a spilled Variable's identity (never its offset) while they
// run, and frame layout is the single place stack offsets get assigned,
// once and for all, for the whole function.
package frame

import (
	"sort"

	"github.com/gox8632/x8632cc/pkg/liveness"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// calleeSaveOrder is the fixed push order for the non-frame-pointer
// callee-save registers; the epilog pops them in the reverse of this
// order. EBP is handled separately (see Layout) since in frame-pointer
// mode it is never a candidate for this list at all.
var calleeSaveOrder = []x86.RegID{x86.EBX, x86.ESI, x86.EDI}

// Layout computes mf's frame and rewrites it with a prolog and, before
// every ret, a mirrored epilog. It is the single entry point this
// package exposes: offset assignment and prolog/epilog shape are too
// entangled (the epilog's esp-restore depends on exactly how the prolog
// built the frame) to usefully split across two calls.
func Layout(mf *x86.MachFunction) {
	hadFramePtr := mf.UsesFramePtr
	hasCall := hasAnyCall(mf)
	returnsTwice := hasSetjmpCall(mf)

	globals, locals := collectSpills(mf)
	hasSpills := len(globals) > 0 || len(locals) > 0

	// Spilled variables are addressed ebp-relative for the whole function
	// body; esp moves temporarily for every call's argument pushes, so
	// only a frame pointer gives spills a stable base.
	// Realignment is reversible only through a saved, call-independent
	// anchor, which is this same frame pointer — so both conditions force
	// frame-pointer mode on, not just spills alone.
	mf.UsesFramePtr = hadFramePtr || hasSpills || hasCall
	mf.CalleeSaved = usedCalleeSaveRegs(mf)
	needsRealign := hadFramePtr || hasCall

	// spill slots start below the callee-save pushes, which sit directly
	// under the saved ebp.
	cs := int32(4 * len(mf.CalleeSaved))
	bytes := layoutBucketed(globals, cs)
	if returnsTwice {
		// a returns-twice call (setjmp) can resume execution in any block
		// of this function with a fresh call stack above it; overlaying
		// per-block local regions would let two concurrently-live blocks'
		// locals alias the same slot, so every local gets its own space.
		bytes = layoutBucketed(locals, bytes)
	} else {
		bytes = layoutCoalesced(locals, bytes)
	}
	mf.StackSize = bytes - cs

	emitProlog(mf, needsRealign)
	emitEpilogs(mf, needsRealign, hadFramePtr)
}

// usedCalleeSaveRegs scans every Variable reaching a register assignment
// and returns which of EBX/ESI/EDI (and, outside frame-pointer mode,
// EBP) it occupies — the set the prolog must push and the epilog must
// pop. Order matches calleeSaveOrder, with EBP appended last since it is
// only ever a candidate when UsesFramePtr is false.
func usedCalleeSaveRegs(mf *x86.MachFunction) []x86.RegID {
	used := make(map[x86.RegID]bool)
	mf.AllInsts(func(_ *x86.MachBlock, _ int, inst *x86.Inst) bool {
		for _, v := range liveness.OperandVars(inst) {
			if v.HasReg() {
				used[v.Reg()] = true
			}
		}
		return true
	})

	var regs []x86.RegID
	for _, r := range calleeSaveOrder {
		if used[r] {
			regs = append(regs, r)
		}
	}
	if !mf.UsesFramePtr && used[x86.EBP] {
		regs = append(regs, x86.EBP)
	}
	return regs
}

// hasAnyCall reports whether mf contains a call: its presence is what
// forces both the frame pointer and the 16-byte realignment decision.
func hasAnyCall(mf *x86.MachFunction) bool {
	found := false
	mf.AllInsts(func(_ *x86.MachBlock, _ int, inst *x86.Inst) bool {
		if inst.Op == x86.OpCall {
			found = true
			return false
		}
		return true
	})
	return found
}

// hasSetjmpCall reports whether mf calls the setjmp helper, the one
// "returns-twice" case this backend's helper surface has (pkg/lower's
// callHelper addresses every helper, including setjmp, by its
// relocatable symbol name).
func hasSetjmpCall(mf *x86.MachFunction) bool {
	found := false
	mf.AllInsts(func(_ *x86.MachBlock, _ int, inst *x86.Inst) bool {
		if inst.Op != x86.OpCall || len(inst.Src) == 0 {
			return true
		}
		if imm, ok := inst.Src[0].(x86.Immediate); ok && imm.Kind == x86.ImmReloc && imm.Sym == "setjmp" {
			found = true
			return false
		}
		return true
	})
	return found
}

// bucketSort groups entries by descending natural alignment: placing the
// widest-aligned entries first means the running byte count stays a
// multiple of each subsequent entry's alignment without extra padding
// between them.
func bucketSort(entries []*spillEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].align > entries[j].align })
}

// layoutBucketed assigns each entry a stack offset below the current
// byte count (growing the count by the entry's size), returning the new
// byte count.
func layoutBucketed(entries []*spillEntry, bytes int32) int32 {
	bucketSort(entries)
	for _, e := range entries {
		bytes = alignUp32(bytes, int32(e.align))
		bytes += int32(e.size)
		e.assign(-bytes)
	}
	return bytes
}

// layoutCoalesced lays out per-block local spill regions overlaid on top
// of each other starting at the same offset: since only one block
// executes at a time (absent a returns-twice call), each block's locals
// can reuse the same bytes a sibling block's locals used, and the region
// only needs to be as wide as the single heaviest block.
func layoutCoalesced(entries []*spillEntry, bytes int32) int32 {
	byBlock := make(map[string][]*spillEntry)
	for _, e := range entries {
		byBlock[e.block] = append(byBlock[e.block], e)
	}
	maxGrowth := int32(0)
	for _, blockEntries := range byBlock {
		grown := layoutBucketed(blockEntries, bytes) - bytes
		if grown > maxGrowth {
			maxGrowth = grown
		}
	}
	return bytes + maxGrowth
}

func alignUp32(n, align int32) int32 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
