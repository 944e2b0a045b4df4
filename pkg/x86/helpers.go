package x86

// HelperSig names a runtime ABI function the generated code may call
// instead of lowering an operation inline: 64-bit division, float
// remainder, 64-bit float/int conversions, bit tricks without a direct
// x86-32 instruction, and the bulk-memory/control intrinsics. The backend
// assumes these are linked in by the enclosing toolchain; it never
// defines them itself.
type HelperSig struct {
	Name    string
	NumArgs int
}

// Helpers names every runtime helper the lowering rules in pkg/lower may
// reference, keyed by a short symbolic name used at call sites so a
// rename here doesn't require hunting through every lowering rule.
var Helpers = map[string]HelperSig{
	"udiv64": {"__udivdi3", 2},
	"sdiv64": {"__divdi3", 2},
	"urem64": {"__umoddi3", 2},
	"srem64": {"__moddi3", 2},

	"fmodf": {"fmodf", 2},
	"fmod":  {"fmod", 2},

	"fptosi64": {"cvtftosi64", 1},
	"dptosi64": {"cvtdtosi64", 1},
	"fptoui32": {"cvtftoui32", 1},
	"fptoui64": {"cvtftoui64", 1},
	"dptoui32": {"cvtdtoui32", 1},
	"dptoui64": {"cvtdtoui64", 1},
	"si64tof":  {"cvtsi64tof", 1},
	"si64tod":  {"cvtsi64tod", 1},
	"ui32tof":  {"cvtui32tof", 1},
	"ui32tod":  {"cvtui32tod", 1},
	"ui64tof":  {"cvtui64tof", 1},
	"ui64tod":  {"cvtui64tod", 1},

	"v4f32ToUi32":    {"Sz_fptoui_v4f32", 1},
	"ui32ToV4i32":    {"Sz_uitofp_v4i32", 1},
	"bitcastV8i1I8":  {"Sz_bitcast_v8i1_to_i8", 1},
	"bitcastV16i1I16": {"Sz_bitcast_v16i1_to_i16", 1},
	"bitcastI8V8i1":  {"Sz_bitcast_i8_to_v8i1", 1},
	"bitcastI16V16i1": {"Sz_bitcast_i16_to_v16i1", 1},

	"popcount32": {"__popcountsi2", 1},
	"popcount64": {"__popcountdi2", 2},

	"memcpy":  {"memcpy", 3},
	"memmove": {"memmove", 3},
	"memset":  {"memset", 3},
	"longjmp": {"longjmp", 2},
	"setjmp":  {"setjmp", 1},

	"readTP":     {"__nacl_read_tp", 0},
	"unreachable": {"ice_unreachable", 0},
}
