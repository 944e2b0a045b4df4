// Package constpool renders the float/double/vector constants a module's
// lowering pooled through ctx.Context into GNU-as textual directives:
// one ".rodata.cst<align>" section per distinct constant width, a label
// per entry, and the raw bit pattern, in the tab-indented
// fmt.Fprintf-straight-to-an-io.Writer style the rest of this backend's
// printers use.
//
// Deduplication and label-minting already live on ctx.Context
// (ConstPoolLabel/VectorPoolLabel): this package only ever reads the
// final snapshot (ConstPoolEntries/VectorPoolEntries) once a module has
// finished lowering every function, so it holds no state of its own.
package constpool

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/gox8632/x8632cc/pkg/ctx"
)

// typeTag identifies a scalar constant-pool width: 4 for f32, 8 for f64.
// Callers of ctx.ConstPoolLabel already pick these consistently; this
// package just needs to know which widths exist and how to print each.
const (
	tagF32 = 4
	tagF64 = 8
)

// Emit writes every pooled scalar and vector constant in c to w, grouped
// by alignment: one ".rodata.cst<align>" section per width, f32 entries
// before f64 before 16-byte vector masks, each internally sorted by
// label so output is deterministic across runs.
func Emit(c *ctx.Context, w io.Writer) {
	entries := c.ConstPoolEntries()

	var f32s, f64s []ctx.ConstPoolEntry
	for _, e := range entries {
		switch e.Type {
		case tagF32:
			f32s = append(f32s, e)
		case tagF64:
			f64s = append(f64s, e)
		}
	}

	emitScalarSection(w, f32s, 4, "long")
	emitScalarSection(w, f64s, 8, "quad")
	emitVectorSection(w, c.VectorPoolEntries())
}

func emitScalarSection(w io.Writer, entries []ctx.ConstPoolEntry, align int, directive string) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\t.section\t.rodata.cst%d,\"aM\",@progbits,%d\n", align, align)
	fmt.Fprintf(w, "\t.align\t%d\n", align)
	for _, e := range entries {
		fmt.Fprintf(w, "L$%d$%s:\n", e.Type, labelID(e.Label))
		fmt.Fprintf(w, "\t.%s\t%d\n", directive, e.Bits)
	}
}

func emitVectorSection(w io.Writer, entries []ctx.VectorPoolEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\t.section\t.rodata.cst16,\"aM\",@progbits,16\n")
	fmt.Fprintf(w, "\t.align\t16\n")
	for _, e := range entries {
		raw, err := hex.DecodeString(e.Pattern)
		if err != nil {
			panic("ice: constpool: malformed vector pattern " + e.Pattern)
		}
		fmt.Fprintf(w, "%s:\n", e.Label)
		for i := 0; i+4 <= len(raw); i += 4 {
			word := uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24
			fmt.Fprintf(w, "\t.long\t%d\n", word)
		}
	}
}

// labelID strips ctx's "L$<tag>$" prefix back to the bare numeric id,
// since Emit reconstructs the "L$<type_tag>$<id>:" label itself from the
// entry's own Type field rather than trusting the pre-built string.
func labelID(label string) string {
	for i := len(label) - 1; i >= 0; i-- {
		if label[i] == '$' {
			return label[i+1:]
		}
	}
	return label
}
