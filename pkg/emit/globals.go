package emit

import "fmt"

// Global is one module-level data object: a zero-initialized region
// (Init nil, Size>0) or an explicit byte pattern (Init non-nil).
// Constant globals are placed in .rodata, everything else in .data.
type Global struct {
	Name     string
	Align    int
	Size     int
	Init     []byte
	Const    bool
	ExportIt bool // .global when true, .local otherwise
}

func (e *Emitter) emitGlobals(globals []Global) {
	var rodata, data []Global
	for _, g := range globals {
		if g.Const {
			rodata = append(rodata, g)
		} else {
			data = append(data, g)
		}
	}

	if len(rodata) > 0 {
		fmt.Fprintf(e.w, "\t.rodata\n")
		for _, g := range rodata {
			e.emitGlobal(g)
		}
	}
	if len(data) > 0 {
		fmt.Fprintf(e.w, "\t.data\n")
		for _, g := range data {
			e.emitGlobal(g)
		}
	}
}

func (e *Emitter) emitGlobal(g Global) {
	if g.ExportIt {
		fmt.Fprintf(e.w, "\t.global\t%s\n", g.Name)
	} else {
		fmt.Fprintf(e.w, "\t.local\t%s\n", g.Name)
	}
	if g.Align > 1 {
		fmt.Fprintf(e.w, "\t.align\t%d\n", g.Align)
	}
	fmt.Fprintf(e.w, "%s:\n", g.Name)
	if len(g.Init) > 0 {
		for _, b := range g.Init {
			fmt.Fprintf(e.w, "\t.byte\t%d\n", b)
		}
	} else {
		fmt.Fprintf(e.w, "\t.zero\t%d\n", g.Size)
	}
	fmt.Fprintf(e.w, "\t.size\t%s, %d\n", g.Name, g.Size)
}
