package ir

import "fmt"

// Verify performs the minimal well-formedness checks the backend assumes
// of its input: every block ends in a terminator, phis only appear at a
// block's head, switch cases don't collide, and alloca sizes are i32.
// These are User IR violations when they fail: the caller should stop
// lowering this function and continue with the next one.
func Verify(fn *Function) error {
	if len(fn.Blocks) == 0 {
		return fmt.Errorf("function %q has no basic blocks", fn.Name)
	}
	labels := make(map[Label]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if labels[b.Label] {
			return fmt.Errorf("function %q: duplicate block label %q", fn.Name, b.Label)
		}
		labels[b.Label] = true
	}
	for _, b := range fn.Blocks {
		if err := verifyBlock(fn, b); err != nil {
			return err
		}
	}
	return nil
}

func verifyBlock(fn *Function, b *BasicBlock) error {
	if len(b.Instr) == 0 {
		return fmt.Errorf("function %q: block %q is empty", fn.Name, b.Label)
	}
	sawNonPhi := false
	for i, instr := range b.Instr {
		isLast := i == len(b.Instr)-1
		if _, ok := instr.(IPhi); ok {
			if sawNonPhi {
				return fmt.Errorf("function %q: block %q: phi after non-phi instruction", fn.Name, b.Label)
			}
			if isLast {
				return fmt.Errorf("function %q: block %q: phi cannot be a terminator", fn.Name, b.Label)
			}
			continue
		}
		sawNonPhi = true
		if isLast {
			if !isTerminator(instr) {
				return fmt.Errorf("function %q: block %q: last instruction is not a terminator", fn.Name, b.Label)
			}
		} else if isTerminator(instr) {
			return fmt.Errorf("function %q: block %q: terminator before end of block", fn.Name, b.Label)
		}
		if sw, ok := instr.(ISwitch); ok {
			if err := verifySwitch(fn, b, sw); err != nil {
				return err
			}
		}
		if ia, ok := instr.(IAlloca); ok {
			if c, ok := ia.Size.(ConstInt); ok && c.Ty != I32 {
				return fmt.Errorf("function %q: block %q: alloca size must be i32, got %s", fn.Name, b.Label, c.Ty)
			}
		}
		if ii, ok := instr.(IIntrinsic); ok {
			if err := verifyIntrinsic(fn, b, ii); err != nil {
				return err
			}
		}
	}
	return nil
}

func isTerminator(instr Instr) bool {
	switch instr.(type) {
	case IBr, ISwitch, IRet:
		return true
	}
	return false
}

func verifySwitch(fn *Function, b *BasicBlock, sw ISwitch) error {
	seen := make(map[int64]bool, len(sw.Cases))
	for _, c := range sw.Cases {
		if seen[c.Value] {
			return fmt.Errorf("function %q: block %q: switch has duplicate case %d", fn.Name, b.Label, c.Value)
		}
		seen[c.Value] = true
	}
	return nil
}

func verifyIntrinsic(fn *Function, b *BasicBlock, ii IIntrinsic) error {
	switch ii.Kind {
	case AtomicLoad, AtomicStore, AtomicCmpxchg, AtomicRMWAdd, AtomicRMWSub,
		AtomicRMWOr, AtomicRMWAnd, AtomicRMWXor, AtomicRMWXchg:
		if ii.OrderOK && ii.Order != SequentiallyConsistent {
			return fmt.Errorf("function %q: block %q: unsupported memory-ordering argument %d to atomic intrinsic (only sequentially-consistent is supported)",
				fn.Name, b.Label, ii.Order)
		}
	case AtomicIsLockFree:
		if len(ii.Args) != 1 {
			return fmt.Errorf("function %q: block %q: AtomicIsLockFree takes exactly one size argument", fn.Name, b.Label)
		}
		if _, ok := ii.Args[0].(ConstInt); !ok {
			return fmt.Errorf("function %q: block %q: AtomicIsLockFree size argument must be a compile-time constant", fn.Name, b.Label)
		}
	}
	return nil
}
