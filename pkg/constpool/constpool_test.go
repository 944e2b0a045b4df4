package constpool

import (
	"math"
	"strings"
	"testing"

	"github.com/gox8632/x8632cc/pkg/ctx"
)

func TestEmitWritesOneSectionPerWidth(t *testing.T) {
	c := ctx.New()
	c.ConstPoolLabel(tagF32, uint64(math.Float32bits(1.5)))
	c.ConstPoolLabel(tagF64, math.Float64bits(2.5))

	var sb strings.Builder
	Emit(c, &sb)
	out := sb.String()

	if strings.Count(out, ".rodata.cst4") != 1 {
		t.Errorf("expected exactly one f32 section, got:\n%s", out)
	}
	if strings.Count(out, ".rodata.cst8") != 1 {
		t.Errorf("expected exactly one f64 section, got:\n%s", out)
	}
	if !strings.Contains(out, ".long") {
		t.Error("expected a .long directive for the f32 entry")
	}
	if !strings.Contains(out, ".quad") {
		t.Error("expected a .quad directive for the f64 entry")
	}
}

func TestEmitDeduplicatesIdenticalBitPatterns(t *testing.T) {
	c := ctx.New()
	bits := uint64(math.Float32bits(3.25))
	label1, isNew1 := c.ConstPoolLabel(tagF32, bits)
	label2, isNew2 := c.ConstPoolLabel(tagF32, bits)

	if label1 != label2 {
		t.Errorf("identical bit patterns should share one label: %q vs %q", label1, label2)
	}
	if !isNew1 || isNew2 {
		t.Error("second lookup of the same pattern should not be reported as new")
	}

	var sb strings.Builder
	Emit(c, &sb)
	if strings.Count(sb.String(), ".long") != 1 {
		t.Errorf("expected exactly one emitted entry for a deduplicated pattern, got:\n%s", sb.String())
	}
}

func TestEmitVectorMaskAsFourWords(t *testing.T) {
	c := ctx.New()
	c.VectorPoolLabel(strings.Repeat("00000080", 4)) // sign-bit mask, one word repeated 4x

	var sb strings.Builder
	Emit(c, &sb)
	out := sb.String()

	if strings.Count(out, ".rodata.cst16") != 1 {
		t.Errorf("expected exactly one vector section, got:\n%s", out)
	}
	if strings.Count(out, ".long") != 4 {
		t.Errorf("expected 4 .long words for one 16-byte vector entry, got:\n%s", out)
	}
}

func TestEmitSkipsEmptySections(t *testing.T) {
	c := ctx.New()
	var sb strings.Builder
	Emit(c, &sb)
	if sb.Len() != 0 {
		t.Errorf("expected no output for an empty pool, got:\n%s", sb.String())
	}
}
