package liveness

import "github.com/gox8632/x8632cc/pkg/x86"

// Info is the per-instruction liveness result: Def/Use/LiveIn/LiveOut
// keyed by a node's flat program-point index (see flatten below).
type Info struct {
	Def, Use, LiveIn, LiveOut map[int]RegSet

	// insts is the flattened, program-order instruction list Analyze built
	// this Info from; pkg/regalloc indexes back into it by node.
	insts []*x86.Inst
}

// Insts returns the flattened instruction order Analyze used, so a
// caller can map a node index back to its instruction.
func (info *Info) Insts() []*x86.Inst { return info.insts }

// flatten walks mf's blocks in order, skipping deleted instructions, and
// records enough structure to resolve every branch target to a node
// index: blockStart maps an IR block label to its first node, labelStart
// maps an internally-minted x86.Label (from OpLabel) to its node.
func flatten(mf *x86.MachFunction) (insts []*x86.Inst, blockStart map[string]int, labelStart map[x86.Label]int) {
	blockStart = make(map[string]int)
	labelStart = make(map[x86.Label]int)
	for _, blk := range mf.Blocks {
		started := false
		for _, inst := range blk.Insts {
			if inst.Deleted {
				continue
			}
			if !started {
				blockStart[blk.IRLabel] = len(insts)
				started = true
			}
			if inst.Op == x86.OpLabel && inst.HasTarget {
				labelStart[inst.Target] = len(insts)
			}
			insts = append(insts, inst)
		}
		if !started {
			// an empty block still needs a resolvable entry: point it at
			// whatever instruction comes next (handled by the caller once
			// the rest of the list is known, so just remember the gap as
			// the current end-of-list index).
			blockStart[blk.IRLabel] = len(insts)
		}
	}
	return insts, blockStart, labelStart
}

// successors returns the node indices control may transfer to after
// executing node n.
func successors(n int, insts []*x86.Inst, blockStart map[string]int, labelStart map[x86.Label]int) []int {
	inst := insts[n]
	resolve := func() (int, bool) {
		if inst.HasTarget {
			if t, ok := labelStart[inst.Target]; ok {
				return t, true
			}
			return 0, false
		}
		if inst.IRTarget != "" {
			if t, ok := blockStart[inst.IRTarget]; ok {
				return t, true
			}
		}
		return 0, false
	}

	switch inst.Op {
	case x86.OpJmp:
		if t, ok := resolve(); ok {
			return []int{t}
		}
		return nil
	case x86.OpJcc:
		var succs []int
		if n+1 < len(insts) {
			succs = append(succs, n+1)
		}
		if t, ok := resolve(); ok {
			succs = append(succs, t)
		}
		return succs
	case x86.OpRet:
		return nil
	default:
		if n+1 < len(insts) {
			return []int{n + 1}
		}
		return nil
	}
}

// addOperandRegs adds the virtual-register id backing op (if any) to s.
func addOperandRegs(s RegSet, op x86.Operand) {
	switch o := op.(type) {
	case *x86.Variable:
		if o != nil {
			s.Add(o.ID)
		}
	case x86.Memory:
		if o.Base != nil {
			s.Add(o.Base.ID)
		}
		if o.Index != nil {
			s.Add(o.Index.ID)
		}
	case x86.VariableSplit:
		if o.Parent != nil {
			s.Add(o.Parent.ID)
		}
	}
}

// DefUse computes the registers inst defines and uses. Fake markers
// carry their operands in FakeRegs rather than Dest/Src: FakeUse reads
// them, FakeDef and FakeKill both count as definitions (a kill clobbers
// a physical register the same way a redefinition would, from the
// allocator's point of view).
func DefUse(inst *x86.Inst) (def, use RegSet) {
	def, use = NewRegSet(), NewRegSet()

	switch inst.Op {
	case x86.OpFakeUse:
		for _, v := range inst.FakeRegs {
			if v != nil {
				use.Add(v.ID)
			}
		}
		return def, use
	case x86.OpFakeDef, x86.OpFakeKill:
		for _, v := range inst.FakeRegs {
			if v != nil {
				def.Add(v.ID)
			}
		}
		return def, use
	}

	if v, ok := inst.Dest.(*x86.Variable); ok && v != nil {
		def.Add(v.ID)
	} else if inst.Dest != nil {
		addOperandRegs(use, inst.Dest)
	}
	for _, s := range inst.Src {
		addOperandRegs(use, s)
	}
	// an instruction's FakeRegs list (e.g. a cmpxchg's extra clobbered
	// half) is an additional definition alongside Dest.
	for _, v := range inst.FakeRegs {
		if v != nil {
			def.Add(v.ID)
		}
	}
	return def, use
}

// OperandVars returns every x86.Variable inst's Dest, Src, or FakeRegs
// reference, in no particular order. pkg/regalloc's Om1 whitelist/
// last-use pass and its O2 interval builder both walk this same set, so
// it is exposed here rather than duplicated in each.
func OperandVars(inst *x86.Inst) []*x86.Variable {
	var vars []*x86.Variable
	add := func(op x86.Operand) {
		switch o := op.(type) {
		case *x86.Variable:
			if o != nil {
				vars = append(vars, o)
			}
		case x86.VariableSplit:
			if o.Parent != nil {
				vars = append(vars, o.Parent)
			}
		case x86.Memory:
			if o.Base != nil {
				vars = append(vars, o.Base)
			}
			if o.Index != nil {
				vars = append(vars, o.Index)
			}
		}
	}
	if inst.Dest != nil {
		add(inst.Dest)
	}
	for _, s := range inst.Src {
		add(s)
	}
	for _, v := range inst.FakeRegs {
		if v != nil {
			vars = append(vars, v)
		}
	}
	return vars
}

// ComputeDefUse computes Def/Use for every instruction in mf, keyed by
// flat node index.
func ComputeDefUse(mf *x86.MachFunction) (def, use map[int]RegSet) {
	insts, _, _ := flatten(mf)
	def = make(map[int]RegSet, len(insts))
	use = make(map[int]RegSet, len(insts))
	for i, inst := range insts {
		d, u := DefUse(inst)
		def[i] = d
		use[i] = u
	}
	return def, use
}

// Analyze runs the standard backward dataflow fixpoint:
//
//	live_out[n] = ∪ live_in[s] for s in succ(n)
//	live_in[n]  = use[n] ∪ (live_out[n] − def[n])
//
// Iterating until no set changes. This is the simple, live-range-
// ignorant dataflow fixpoint, favoring correctness over asymptotic
// elegance.
func Analyze(mf *x86.MachFunction) *Info {
	insts, blockStart, labelStart := flatten(mf)
	def, use := make(map[int]RegSet, len(insts)), make(map[int]RegSet, len(insts))
	liveIn, liveOut := make(map[int]RegSet, len(insts)), make(map[int]RegSet, len(insts))
	succs := make([][]int, len(insts))

	for i, inst := range insts {
		d, u := DefUse(inst)
		def[i], use[i] = d, u
		liveIn[i], liveOut[i] = NewRegSet(), NewRegSet()
		succs[i] = successors(i, insts, blockStart, labelStart)
	}

	maxIter := 10*len(insts) + 10
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := len(insts) - 1; i >= 0; i-- {
			out := NewRegSet()
			for _, s := range succs[i] {
				out = out.Union(liveIn[s])
			}
			in := use[i].Union(out.Minus(def[i]))
			if !out.Equal(liveOut[i]) || !in.Equal(liveIn[i]) {
				liveOut[i] = out
				liveIn[i] = in
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return &Info{Def: def, Use: use, LiveIn: liveIn, LiveOut: liveOut, insts: insts}
}
