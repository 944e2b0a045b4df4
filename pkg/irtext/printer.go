package irtext

import (
	"fmt"
	"io"

	"github.com/gox8632/x8632cc/pkg/ir"
)

// Printer renders an ir.Module back into irtext's notation, matching
// pkg/cminor.Printer's io.Writer-sink, NewPrinter(w) shape. It exists
// for -dirtext style round-trip debugging, not as a canonical form: two
// semantically identical modules need not print identically.
type Printer struct {
	w io.Writer
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) PrintModule(mod *ir.Module) {
	fmt.Fprintln(p.w, "(module")
	for _, g := range mod.Globals {
		fmt.Fprintf(p.w, "  (global @%s %d %d %t)\n", g.Name, g.Size, g.Align, g.ReadOnly)
	}
	for _, fn := range mod.Functions {
		p.printFunc(fn)
	}
	fmt.Fprintln(p.w, ")")
}

func (p *Printer) printFunc(fn *ir.Function) {
	fmt.Fprintf(p.w, "  (func @%s\n    (ret %s)\n    (params", fn.Name, fn.RetTy)
	for _, prm := range fn.Params {
		fmt.Fprintf(p.w, " (%s %%%d)", prm.Ty, prm.Reg)
	}
	fmt.Fprintln(p.w, ")")
	for _, blk := range fn.Blocks {
		fmt.Fprintf(p.w, "    (block %s\n", blk.Label)
		for _, in := range blk.Instr {
			fmt.Fprintf(p.w, "      %s\n", instrText(in))
		}
		fmt.Fprintln(p.w, "    )")
	}
	fmt.Fprintln(p.w, "  )")
}

func instrText(in ir.Instr) string {
	switch v := in.(type) {
	case ir.IAssign:
		return fmt.Sprintf("(assign %%%d %s %s)", v.Dest, v.Ty, valueText(v.Src))
	case ir.IBinOp:
		return fmt.Sprintf("(binop %%%d %s %s %s %s)", v.Dest, v.Ty, v.Op, valueText(v.LHS), valueText(v.RHS))
	case ir.IIcmp:
		return fmt.Sprintf("(icmp %%%d %s %s %s %s)", v.Dest, v.Ty, intPredText(v.Pred), valueText(v.LHS), valueText(v.RHS))
	case ir.IFcmp:
		return fmt.Sprintf("(fcmp %%%d %s %s %s %s)", v.Dest, v.Ty, floatPredText(v.Pred), valueText(v.LHS), valueText(v.RHS))
	case ir.ICast:
		return fmt.Sprintf("(cast %%%d %s %s %s %s)", v.Dest, v.Kind, v.DestTy, v.SrcTy, valueText(v.Src))
	case ir.IBr:
		if v.Cond == nil {
			return fmt.Sprintf("(br none %s)", v.True)
		}
		return fmt.Sprintf("(br %s %s %s)", valueText(v.Cond), v.True, v.False)
	case ir.ISelect:
		return fmt.Sprintf("(select %%%d %s %s %s %s %s)", v.Dest, v.Ty, v.CondTy, valueText(v.Cond), valueText(v.TrueVal), valueText(v.FalseVal))
	case ir.ILoad:
		return fmt.Sprintf("(load %%%d %s %s)", v.Dest, v.Ty, valueText(v.Addr))
	case ir.IStore:
		return fmt.Sprintf("(store %s %s %s)", v.Ty, valueText(v.Addr), valueText(v.Val))
	case ir.IRet:
		if v.Val == nil {
			return "(ret)"
		}
		return fmt.Sprintf("(ret %s %s)", v.Ty, valueText(v.Val))
	case ir.IAlloca:
		return fmt.Sprintf("(alloca %%%d %d %s %d)", v.Dest, v.ElemSize, valueText(v.Size), v.Align)
	case ir.IPhi:
		s := fmt.Sprintf("(phi %%%d %s", v.Dest, v.Ty)
		for _, inc := range v.Incoming {
			s += fmt.Sprintf(" (%s %s)", inc.Pred, valueText(inc.Value))
		}
		return s + ")"
	default:
		return fmt.Sprintf("(unprintable %#v)", in)
	}
}

func valueText(v ir.Value) string {
	switch c := v.(type) {
	case ir.Use:
		return fmt.Sprintf("(use %s %%%d)", c.Ty, c.Reg)
	case ir.ConstInt:
		return fmt.Sprintf("(const %s %d)", c.Ty, c.Value)
	case ir.ConstFloat:
		return fmt.Sprintf("(constf %g)", c.Value)
	case ir.ConstDouble:
		return fmt.Sprintf("(constd %g)", c.Value)
	case ir.ConstRelocatable:
		return fmt.Sprintf("(globaladdr %s @%s %d)", c.Ty, c.Name, c.Offset)
	case ir.ConstUndef:
		return fmt.Sprintf("(undef %s)", c.Ty)
	default:
		return "(unprintable-value)"
	}
}

func intPredText(p ir.IntPredicate) string {
	for name, v := range intPreds {
		if v == p {
			return name
		}
	}
	return "?"
}

func floatPredText(p ir.FloatPredicate) string {
	for name, v := range floatPreds {
		if v == p {
			return name
		}
	}
	return "?"
}
