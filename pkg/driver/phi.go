package driver

import (
	"fmt"

	"github.com/gox8632/x8632cc/pkg/ir"
)

// phiCopy is one phi's value for one predecessor, destined to become a
// copy instruction at the end of that predecessor's block.
type phiCopy struct {
	dest ir.Reg
	ty   ir.Type
	val  ir.Value
}

// eliminatePhis rewrites fn in place, turning every IPhi into a copy
// inserted just before each predecessor's terminator — the usual
// phi-lowering data-flow step, which must run before pkg/lower.Function
// (lower.go's opcode switch rejects any IPhi that reaches it). Copies for
// a single target block are sequentialized
// through fresh temporary registers rather than assigned directly,
// avoiding the classic "lost copy"/swap hazard a parallel copy set can
// hit when one phi's incoming value is another phi's destination in the
// same block.
func eliminatePhis(fn *ir.Function) error {
	byPred := make(map[ir.Label][]phiCopy)

	for _, blk := range fn.Blocks {
		cut := 0
		var phis []ir.IPhi
		for _, in := range blk.Instr {
			p, ok := in.(ir.IPhi)
			if !ok {
				break
			}
			phis = append(phis, p)
			cut++
		}
		if len(phis) == 0 {
			continue
		}
		blk.Instr = blk.Instr[cut:]

		for _, p := range phis {
			for _, inc := range p.Incoming {
				byPred[inc.Pred] = append(byPred[inc.Pred], phiCopy{dest: p.Dest, ty: p.Ty, val: inc.Value})
			}
		}
	}

	for _, blk := range fn.Blocks {
		copies := byPred[blk.Label]
		if len(copies) == 0 {
			continue
		}
		if len(blk.Instr) == 0 || !isTerminatorInstr(blk.Instr[len(blk.Instr)-1]) {
			return fmt.Errorf("function %q: block %q has no terminator to attach phi copies to", fn.Name, blk.Label)
		}

		temps := make([]ir.Reg, len(copies))
		var staged []ir.Instr
		for i, c := range copies {
			t := fn.FreshReg()
			temps[i] = t
			staged = append(staged, ir.IAssign{Dest: t, Src: c.val, Ty: c.ty})
		}
		for i, c := range copies {
			staged = append(staged, ir.IAssign{Dest: c.dest, Src: ir.Use{Reg: temps[i], Ty: c.ty}, Ty: c.ty})
		}

		term := blk.Instr[len(blk.Instr)-1]
		body := blk.Instr[:len(blk.Instr)-1]
		blk.Instr = append(append(append([]ir.Instr{}, body...), staged...), term)
	}

	return nil
}

func isTerminatorInstr(in ir.Instr) bool {
	switch in.(type) {
	case ir.IBr, ir.ISwitch, ir.IRet:
		return true
	}
	return false
}
