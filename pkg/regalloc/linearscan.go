package regalloc

import (
	"sort"

	"github.com/gox8632/x8632cc/pkg/liveness"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// interval is one variable's live range expressed as the span between its
// first and last reference among pkg/liveness's flat node indices. This is
// a conservative approximation of the variable's true live range (it does
// not punch holes for gaps between uses the way a full lifetime-hole-aware
// allocator would); a correct but occasionally-pessimistic interval only
// costs an extra spill, never correctness.
type interval struct {
	v          *x86.Variable
	start, end int
}

// AssignO2 implements a simplified Poletto-Sarkar linear-scan allocator
// over pkg/liveness's dataflow result: a free-register pool with
// spill-on-exhaustion, but no interference graph or iterated coalescing
// — this target wants linear-scan specifically, not graph coloring.
// Variables already holding a register (precolored by lowering) are
// excluded from the pool for the whole function, matching AssignOm1's
// blacklist strategy rather than interval-aware reservation. A variable
// AssignO2 leaves without a register is left for pkg/frame to give a
// stack slot.
func AssignO2(mf *x86.MachFunction) {
	info := liveness.Analyze(mf)
	intervals := buildIntervals(info.Insts())

	blacklist := make(map[x86.RegID]bool)
	for _, iv := range intervals {
		if iv.v.HasReg() {
			blacklist[iv.v.Reg()] = true
		}
	}

	var gprIntervals, xmmIntervals []*interval
	for _, iv := range intervals {
		if iv.v.HasReg() {
			continue
		}
		if isXMMClass(iv.v.Ty) {
			xmmIntervals = append(xmmIntervals, iv)
		} else {
			gprIntervals = append(gprIntervals, iv)
		}
	}

	linearScan(gprIntervals, filterRegs(x86.AllocatableGPR(mf.UsesFramePtr), blacklist))
	linearScan(xmmIntervals, filterRegs(x86.XMMRegs[:], blacklist))
}

// buildIntervals scans insts in program order, growing each referenced
// variable's interval to cover every node that touches it, then returns
// the intervals sorted by start (the order classic linear-scan processes
// them in).
func buildIntervals(insts []*x86.Inst) []*interval {
	byID := make(map[int]*interval)
	for idx, inst := range insts {
		for _, v := range liveness.OperandVars(inst) {
			iv, ok := byID[v.ID]
			if !ok {
				byID[v.ID] = &interval{v: v, start: idx, end: idx}
				continue
			}
			if idx < iv.start {
				iv.start = idx
			}
			if idx > iv.end {
				iv.end = idx
			}
		}
	}
	out := make([]*interval, 0, len(byID))
	for _, iv := range byID {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// linearScan walks intervals in start order, assigning each a free
// register from pool when one is available and otherwise spilling: the
// worst candidate among the currently active intervals and the one that
// just ran out of registers, by weight first (infinite weight is never
// spilled) and furthest end second (freeing the register for the longest
// remaining stretch).
func linearScan(intervals []*interval, pool []x86.RegID) {
	free := append([]x86.RegID(nil), pool...)
	var active []*interval
	heldBy := make(map[*interval]x86.RegID)
	rank := make(map[x86.RegID]int, len(pool))
	for i, r := range pool {
		rank[r] = i
	}

	expire := func(cur *interval) {
		kept := active[:0:0]
		for _, a := range active {
			if a.end < cur.start {
				free = append(free, heldBy[a])
				delete(heldBy, a)
			} else {
				kept = append(kept, a)
			}
		}
		active = kept
		// keep the free list in the pool's preference order so a freed
		// caller-save register is reused before an untouched callee-save one
		sort.Slice(free, func(i, j int) bool { return rank[free[i]] < rank[free[j]] })
	}

	spillCandidate := func(cur *interval) *interval {
		best := cur
		for _, a := range active {
			if a.v.Weight == x86.WeightInfinite {
				continue
			}
			switch {
			case best.v.Weight == x86.WeightInfinite:
				best = a
			case a.v.Weight < best.v.Weight:
				best = a
			case a.v.Weight == best.v.Weight && a.end > best.end:
				best = a
			}
		}
		return best
	}

	// final records the register each interval ends up with; an evicted
	// victim is removed from it, so only survivors are assigned below.
	final := make(map[*interval]x86.RegID)

	for _, iv := range intervals {
		expire(iv)

		if len(free) > 0 {
			r := free[0]
			free = free[1:]
			final[iv] = r
			heldBy[iv] = r
			active = append(active, iv)
			continue
		}

		victim := spillCandidate(iv)
		if victim == iv {
			if iv.v.Weight == x86.WeightInfinite {
				panic("ice: AssignO2: no register available for an infinite-weight variable")
			}
			continue // left unassigned; pkg/frame gives it a stack slot
		}

		r := heldBy[victim]
		delete(heldBy, victim)
		delete(final, victim)
		for i, a := range active {
			if a == victim {
				active = append(active[:i], active[i+1:]...)
				break
			}
		}
		final[iv] = r
		heldBy[iv] = r
		active = append(active, iv)
	}

	for iv, r := range final {
		iv.v.SetReg(r)
	}
}
