package ir

import "testing"

func TestTypeByteSizeAndAlignMatchX86_32Abi(t *testing.T) {
	cases := []struct {
		ty         Type
		size, align int
	}{
		{I1, 1, 1},
		{I8, 1, 1},
		{I16, 2, 2},
		{I32, 4, 4},
		{I64, 8, 4}, // cdecl aligns i64 to 4, not 8
		{F32, 4, 4},
		{F64, 8, 4},
		{V4i32, 16, 16},
		{V4f32, 16, 16},
	}
	for _, c := range cases {
		if got := c.ty.ByteSize(); got != c.size {
			t.Errorf("%s.ByteSize() = %d, want %d", c.ty, got, c.size)
		}
		if got := c.ty.Align(); got != c.align {
			t.Errorf("%s.Align() = %d, want %d", c.ty, got, c.align)
		}
	}
}

func TestTypeIsVectorElementsAndElemType(t *testing.T) {
	if V4i32.Elements() != 4 || V4i32.ElemType() != I32 {
		t.Errorf("v4i32: got elements=%d elemType=%s, want 4/i32", V4i32.Elements(), V4i32.ElemType())
	}
	if !V4i32.IsVector() || I32.IsVector() {
		t.Error("IsVector should distinguish v4i32 from i32")
	}
	if V4i1.InVectorElemType() != I32 {
		t.Errorf("v4i1 lanes occupy 32-bit slots in an XMM register, got %s", V4i1.InVectorElemType())
	}
	if V16i1.InVectorElemType() != I8 {
		t.Errorf("v16i1 lanes occupy 8-bit slots, got %s", V16i1.InVectorElemType())
	}
}

func TestTypeIsFloatIsIntegerAndIs64(t *testing.T) {
	for _, ty := range []Type{F32, F64, V4f32} {
		if !ty.IsFloat() {
			t.Errorf("%s.IsFloat() = false, want true", ty)
		}
		if ty.IsInteger() {
			t.Errorf("%s.IsInteger() = true, want false", ty)
		}
	}
	for _, ty := range []Type{I1, I8, I32, I64, V4i32} {
		if ty.IsFloat() {
			t.Errorf("%s.IsFloat() = true, want false", ty)
		}
		if !ty.IsInteger() {
			t.Errorf("%s.IsInteger() = false, want true", ty)
		}
	}
	if Void.IsInteger() {
		t.Error("void must not be considered an integer type")
	}
	if !I64.Is64() || !F64.Is64() {
		t.Error("i64 and f64 should both report Is64() == true")
	}
	if I32.Is64() || F32.Is64() {
		t.Error("i32 and f32 should both report Is64() == false")
	}
}

func TestTypeStringCoversEveryVariant(t *testing.T) {
	want := map[Type]string{
		Void: "void", I1: "i1", I8: "i8", I16: "i16", I32: "i32", I64: "i64",
		F32: "f32", F64: "f64",
		V4i1: "v4i1", V8i1: "v8i1", V16i1: "v16i1",
		V16i8: "v16i8", V8i16: "v8i16", V4i32: "v4i32", V4f32: "v4f32",
	}
	for ty, s := range want {
		if got := ty.String(); got != s {
			t.Errorf("Type(%d).String() = %q, want %q", ty, got, s)
		}
	}
	if got := Type(999).String(); got != "?type?" {
		t.Errorf("unknown Type.String() = %q, want %q", got, "?type?")
	}
}
