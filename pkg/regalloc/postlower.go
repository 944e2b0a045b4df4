// Package regalloc assigns physical registers and stack slots to the
// infinite-weight virtual registers pkg/lower emitted: a simplified
// linear-scan pass for O2 (linearscan.go, consuming pkg/liveness) and a
// live-range-ignorant local assignment for Om1 (this file), using the
// same colors/spillSlot-maps-plus-free-register-worklist shape an
// iterated-coalescing allocator would, kept deliberately simpler since
// this target only needs linear-scan, not graph coloring.
package regalloc

import (
	"github.com/gox8632/x8632cc/pkg/ir"
	"github.com/gox8632/x8632cc/pkg/liveness"
	"github.com/gox8632/x8632cc/pkg/x86"
)

// byteAddressableGPR are the only GPRs with an 8-bit sub-register
// encoding on x86-32; an i8 variable may only ever be assigned one of
// these (regs.go's regInfo table has no byteLo entry for esp/ebp/esi/edi).
var byteAddressableGPR = map[x86.RegID]bool{
	x86.EAX: true, x86.ECX: true, x86.EDX: true, x86.EBX: true,
}

// AssignOm1 runs two linear passes over mf's instructions.
// Pass one builds the whitelist (blacklisting any register a precolored
// variable already occupies) and each variable's last reference; pass
// two hands out free registers to infinite-weight variables as they're
// first seen and returns them to the pool at their last use. FakeKill
// instructions are ignored in both passes.
func AssignOm1(mf *x86.MachFunction) {
	var insts []*x86.Inst
	mf.AllInsts(func(_ *x86.MachBlock, _ int, inst *x86.Inst) bool {
		insts = append(insts, inst)
		return true
	})

	blacklist := make(map[x86.RegID]bool)
	lastUse := make(map[int]int)

	for idx, inst := range insts {
		if inst.Op == x86.OpFakeKill {
			continue
		}
		for _, v := range liveness.OperandVars(inst) {
			if v.HasReg() {
				blacklist[v.Reg()] = true
				continue
			}
			lastUse[v.ID] = idx
		}
	}

	freeGPR := filterRegs(x86.AllocatableGPR(mf.UsesFramePtr), blacklist)
	freeXMM := filterRegs(x86.XMMRegs[:], blacklist)
	fromPool := make(map[int]bool)

	for idx, inst := range insts {
		if inst.Op == x86.OpFakeKill {
			continue
		}
		for _, v := range liveness.OperandVars(inst) {
			if v.HasReg() {
				continue
			}
			if isXMMClass(v.Ty) {
				freeXMM = assign(v, freeXMM, nil)
			} else {
				want := byteAddressableGPR
				if v.Ty != ir.I8 {
					want = nil
				}
				freeGPR = assign(v, freeGPR, want)
			}
			fromPool[v.ID] = true
		}
		for _, v := range liveness.OperandVars(inst) {
			if fromPool[v.ID] && lastUse[v.ID] == idx {
				if isXMMClass(v.Ty) {
					freeXMM = append(freeXMM, v.Reg())
				} else {
					freeGPR = append(freeGPR, v.Reg())
				}
			}
		}
	}
}

func isXMMClass(ty ir.Type) bool {
	return ty == ir.F32 || ty == ir.F64 || ty.IsVector()
}

func filterRegs(regs []x86.RegID, blacklist map[x86.RegID]bool) []x86.RegID {
	out := make([]x86.RegID, 0, len(regs))
	for _, r := range regs {
		if !blacklist[r] {
			out = append(out, r)
		}
	}
	return out
}

// assign pins v to the first entry of pool matching restrict (every
// entry, if restrict is nil), removes that entry from pool, and returns
// the shrunk pool. Spilling is out of scope for Om1 (the mode exists
// precisely to avoid the bookkeeping a real allocator needs); a pool
// with nothing matching is a sign the function needs O2, not a case
// this pass recovers from.
func assign(v *x86.Variable, pool []x86.RegID, restrict map[x86.RegID]bool) []x86.RegID {
	for i, r := range pool {
		if restrict != nil && !restrict[r] {
			continue
		}
		v.SetReg(r)
		return append(pool[:i], pool[i+1:]...)
	}
	panic("ice: AssignOm1: no free register for variable of type " + v.Ty.String())
}
