package lower

import (
	"fmt"

	"github.com/gox8632/x8632cc/pkg/ir"
)

// Instr lowers one IR instruction in b's current block. IPhi never
// reaches here: the driver lowers phis into predecessor-block copies
// before per-opcode lowering runs.
func Instr(b *Builder, instr ir.Instr) error {
	switch in := instr.(type) {
	case ir.IAssign:
		return lowerAssign(b, in)
	case ir.IBinOp:
		return lowerBinOp(b, in)
	case ir.IIcmp:
		lowerIcmpToBool(b, in)
		return nil
	case ir.IFcmp:
		lowerFcmp(b, in)
		return nil
	case ir.ICast:
		return lowerCast(b, in)
	case ir.IBr:
		lowerBr(b, in)
		return nil
	case ir.ISelect:
		lowerSelect(b, in)
		return nil
	case ir.ISwitch:
		lowerSwitch(b, in)
		return nil
	case ir.ILoad:
		lowerLoad(b, in)
		return nil
	case ir.IStore:
		lowerStore(b, in)
		return nil
	case ir.IRet:
		lowerRet(b, in)
		return nil
	case ir.ICall:
		lowerCall(b, in)
		return nil
	case ir.IAlloca:
		lowerAlloca(b, in)
		return nil
	case ir.IExtractElement:
		lowerExtractElement(b, in)
		return nil
	case ir.IInsertElement:
		lowerInsertElement(b, in)
		return nil
	case ir.IIntrinsic:
		return lowerIntrinsic(b, in)
	case ir.IPhi:
		return fmt.Errorf("phi instruction reached per-opcode lowering (dest %s): phi lowering must run first", in.Dest)
	}
	return fmt.Errorf("unhandled IR instruction %T", instr)
}

// Function lowers every instruction of every block of irFn in program
// order, returning the populated x86.MachFunction. The caller (pkg/driver)
// is responsible for running phi lowering beforehand.
//
// Two local peepholes (icmp+branch fusion, load+arithmetic fusion) are
// applied here, one instruction of lookahead at a time, rather than as a
// separate pass:
// both only ever fire across an adjacent pair, so folding them into the
// main walk avoids building then immediately re-scanning the pseudo-
// instruction list.
func Function(b *Builder) error {
	for _, blk := range b.IRFn.Blocks {
		b.SetBlock(b.Block(string(blk.Label)))
		instrs := blk.Instr
		i := 0
		for i < len(instrs) {
			in := instrs[i]
			if _, ok := in.(ir.IPhi); ok {
				i++
				continue
			}
			if ic, ok := in.(ir.IIcmp); ok && i+1 < len(instrs) {
				if br, ok2 := instrs[i+1].(ir.IBr); ok2 && isSoleCondUse(br, ic.Dest) {
					lowerIcmpBranchFused(b, ic, br)
					i += 2
					continue
				}
			}
			if ld, ok := in.(ir.ILoad); ok && i+1 < len(instrs) {
				if bin, ok2 := instrs[i+1].(ir.IBinOp); ok2 && fuseLoadArith(b, ld, bin) {
					i += 2
					continue
				}
			}
			if err := Instr(b, in); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

// isSoleCondUse reports whether br's condition is exactly the icmp result
// named by dest (the only shape of "single use" this local peephole can
// see without a full use-count pass over the function).
func isSoleCondUse(br ir.IBr, dest ir.Reg) bool {
	use, ok := br.Cond.(ir.Use)
	return ok && use.Reg == dest
}
