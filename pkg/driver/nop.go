package driver

import "github.com/gox8632/x8632cc/pkg/x86"

// insertNops is the pipeline's final stage before emission: it guarantees
// every block lowers to at least one concrete instruction. A block can
// otherwise end up empty — every instruction it held folded away under
// address-mode fusion, or it held nothing but a phi this package already
// stripped — leaving a label bound to nothing for the assembler to
// anchor a branch to. This is the minimal reading of the stage: Subzero's
// own nop insertion also pads with randomized diversification nops
// between real instructions, which this backend has no sandboxing use
// for and so leaves out.
func insertNops(mf *x86.MachFunction) {
	for _, blk := range mf.Blocks {
		if blockIsEmpty(blk) {
			blk.Insts = append(blk.Insts, &x86.Inst{Op: x86.OpNop})
		}
	}
}

func blockIsEmpty(blk *x86.MachBlock) bool {
	for _, inst := range blk.Insts {
		if !inst.Deleted {
			return false
		}
	}
	return true
}
