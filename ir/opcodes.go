package ir

// Feature flags, redeclared as FeatureFlag values in the exact
// declaration order of package feature's Flag enum so that binary and
// text readers can convert between the two with a plain numeric cast
// instead of this package importing feature (which would be a cycle,
// since feature has no reason to know about opcodes, but opcodes need
// to cite features).
const (
	FeatMutableGlobals FeatureFlag = iota
	FeatSaturatingFloatToInt
	FeatSignExtension
	FeatSIMD
	FeatThreads
	FeatMultiValue
	FeatTailCall
	FeatBulkMemory
	FeatReferenceTypes
	FeatExceptions
	FeatFunctionReferences
	FeatGC
)

// Bare (single-byte) opcodes, per the WebAssembly core spec and the
// sign-extension / reference-types proposals that assign bytes outside
// the prefixed ranges.
const (
	OpUnreachable Opcode = 0x00
	OpNop         Opcode = 0x01
	OpBlock       Opcode = 0x02
	OpLoop        Opcode = 0x03
	OpIf          Opcode = 0x04
	OpElse        Opcode = 0x05
	OpTry         Opcode = 0x06
	OpCatch       Opcode = 0x07
	OpThrow       Opcode = 0x08
	OpRethrow     Opcode = 0x09
	OpBrOnExn     Opcode = 0x0a
	OpEnd         Opcode = 0x0b
	OpBr          Opcode = 0x0c
	OpBrIf        Opcode = 0x0d
	OpBrTable     Opcode = 0x0e
	OpReturn      Opcode = 0x0f
	OpCall        Opcode = 0x10
	OpCallIndirect Opcode = 0x11
	OpReturnCall         Opcode = 0x12
	OpReturnCallIndirect Opcode = 0x13
	OpCallRef            Opcode = 0x14
	OpReturnCallRef      Opcode = 0x15
	OpFuncBind           Opcode = 0x16
	OpLet                Opcode = 0x17

	OpDrop   Opcode = 0x1a
	OpSelect Opcode = 0x1b
	OpSelectT Opcode = 0x1c

	OpLocalGet  Opcode = 0x20
	OpLocalSet  Opcode = 0x21
	OpLocalTee  Opcode = 0x22
	OpGlobalGet Opcode = 0x23
	OpGlobalSet Opcode = 0x24
	OpTableGet  Opcode = 0x25
	OpTableSet  Opcode = 0x26

	OpI32Load    Opcode = 0x28
	OpI64Load    Opcode = 0x29
	OpF32Load    Opcode = 0x2a
	OpF64Load    Opcode = 0x2b
	OpI32Load8S  Opcode = 0x2c
	OpI32Load8U  Opcode = 0x2d
	OpI32Load16S Opcode = 0x2e
	OpI32Load16U Opcode = 0x2f
	OpI64Load8S  Opcode = 0x30
	OpI64Load8U  Opcode = 0x31
	OpI64Load16S Opcode = 0x32
	OpI64Load16U Opcode = 0x33
	OpI64Load32S Opcode = 0x34
	OpI64Load32U Opcode = 0x35
	OpI32Store   Opcode = 0x36
	OpI64Store   Opcode = 0x37
	OpF32Store   Opcode = 0x38
	OpF64Store   Opcode = 0x39
	OpI32Store8  Opcode = 0x3a
	OpI32Store16 Opcode = 0x3b
	OpI64Store8  Opcode = 0x3c
	OpI64Store16 Opcode = 0x3d
	OpI64Store32 Opcode = 0x3e
	OpMemorySize Opcode = 0x3f
	OpMemoryGrow Opcode = 0x40

	OpI32Const Opcode = 0x41
	OpI64Const Opcode = 0x42
	OpF32Const Opcode = 0x43
	OpF64Const Opcode = 0x44

	OpI32Eqz Opcode = 0x45
	OpI32Eq  Opcode = 0x46
	OpI32Ne  Opcode = 0x47
	OpI32LtS Opcode = 0x48
	OpI32LtU Opcode = 0x49
	OpI32GtS Opcode = 0x4a
	OpI32GtU Opcode = 0x4b
	OpI32LeS Opcode = 0x4c
	OpI32LeU Opcode = 0x4d
	OpI32GeS Opcode = 0x4e
	OpI32GeU Opcode = 0x4f

	OpI64Eqz Opcode = 0x50
	OpI64Eq  Opcode = 0x51
	OpI64Ne  Opcode = 0x52
	OpI64LtS Opcode = 0x53
	OpI64LtU Opcode = 0x54
	OpI64GtS Opcode = 0x55
	OpI64GtU Opcode = 0x56
	OpI64LeS Opcode = 0x57
	OpI64LeU Opcode = 0x58
	OpI64GeS Opcode = 0x59
	OpI64GeU Opcode = 0x5a

	OpF32Eq Opcode = 0x5b
	OpF32Ne Opcode = 0x5c
	OpF32Lt Opcode = 0x5d
	OpF32Gt Opcode = 0x5e
	OpF32Le Opcode = 0x5f
	OpF32Ge Opcode = 0x60

	OpF64Eq Opcode = 0x61
	OpF64Ne Opcode = 0x62
	OpF64Lt Opcode = 0x63
	OpF64Gt Opcode = 0x64
	OpF64Le Opcode = 0x65
	OpF64Ge Opcode = 0x66

	OpI32Clz    Opcode = 0x67
	OpI32Ctz    Opcode = 0x68
	OpI32Popcnt Opcode = 0x69
	OpI32Add    Opcode = 0x6a
	OpI32Sub    Opcode = 0x6b
	OpI32Mul    Opcode = 0x6c
	OpI32DivS   Opcode = 0x6d
	OpI32DivU   Opcode = 0x6e
	OpI32RemS   Opcode = 0x6f
	OpI32RemU   Opcode = 0x70
	OpI32And    Opcode = 0x71
	OpI32Or     Opcode = 0x72
	OpI32Xor    Opcode = 0x73
	OpI32Shl    Opcode = 0x74
	OpI32ShrS   Opcode = 0x75
	OpI32ShrU   Opcode = 0x76
	OpI32Rotl   Opcode = 0x77
	OpI32Rotr   Opcode = 0x78

	OpI64Clz    Opcode = 0x79
	OpI64Ctz    Opcode = 0x7a
	OpI64Popcnt Opcode = 0x7b
	OpI64Add    Opcode = 0x7c
	OpI64Sub    Opcode = 0x7d
	OpI64Mul    Opcode = 0x7e
	OpI64DivS   Opcode = 0x7f
	OpI64DivU   Opcode = 0x80
	OpI64RemS   Opcode = 0x81
	OpI64RemU   Opcode = 0x82
	OpI64And    Opcode = 0x83
	OpI64Or     Opcode = 0x84
	OpI64Xor    Opcode = 0x85
	OpI64Shl    Opcode = 0x86
	OpI64ShrS   Opcode = 0x87
	OpI64ShrU   Opcode = 0x88
	OpI64Rotl   Opcode = 0x89
	OpI64Rotr   Opcode = 0x8a

	OpF32Abs      Opcode = 0x8b
	OpF32Neg      Opcode = 0x8c
	OpF32Ceil     Opcode = 0x8d
	OpF32Floor    Opcode = 0x8e
	OpF32Trunc    Opcode = 0x8f
	OpF32Nearest  Opcode = 0x90
	OpF32Sqrt     Opcode = 0x91
	OpF32Add      Opcode = 0x92
	OpF32Sub      Opcode = 0x93
	OpF32Mul      Opcode = 0x94
	OpF32Div      Opcode = 0x95
	OpF32Min      Opcode = 0x96
	OpF32Max      Opcode = 0x97
	OpF32Copysign Opcode = 0x98

	OpF64Abs      Opcode = 0x99
	OpF64Neg      Opcode = 0x9a
	OpF64Ceil     Opcode = 0x9b
	OpF64Floor    Opcode = 0x9c
	OpF64Trunc    Opcode = 0x9d
	OpF64Nearest  Opcode = 0x9e
	OpF64Sqrt     Opcode = 0x9f
	OpF64Add      Opcode = 0xa0
	OpF64Sub      Opcode = 0xa1
	OpF64Mul      Opcode = 0xa2
	OpF64Div      Opcode = 0xa3
	OpF64Min      Opcode = 0xa4
	OpF64Max      Opcode = 0xa5
	OpF64Copysign Opcode = 0xa6

	OpI32WrapI64        Opcode = 0xa7
	OpI32TruncF32S      Opcode = 0xa8
	OpI32TruncF32U      Opcode = 0xa9
	OpI32TruncF64S      Opcode = 0xaa
	OpI32TruncF64U      Opcode = 0xab
	OpI64ExtendI32S     Opcode = 0xac
	OpI64ExtendI32U     Opcode = 0xad
	OpI64TruncF32S      Opcode = 0xae
	OpI64TruncF32U      Opcode = 0xaf
	OpI64TruncF64S      Opcode = 0xb0
	OpI64TruncF64U      Opcode = 0xb1
	OpF32ConvertI32S    Opcode = 0xb2
	OpF32ConvertI32U    Opcode = 0xb3
	OpF32ConvertI64S    Opcode = 0xb4
	OpF32ConvertI64U    Opcode = 0xb5
	OpF32DemoteF64      Opcode = 0xb6
	OpF64ConvertI32S    Opcode = 0xb7
	OpF64ConvertI32U    Opcode = 0xb8
	OpF64ConvertI64S    Opcode = 0xb9
	OpF64ConvertI64U    Opcode = 0xba
	OpF64PromoteF32     Opcode = 0xbb
	OpI32ReinterpretF32 Opcode = 0xbc
	OpI64ReinterpretF64 Opcode = 0xbd
	OpF32ReinterpretI32 Opcode = 0xbe
	OpF64ReinterpretI64 Opcode = 0xbf

	OpI32Extend8S  Opcode = 0xc0
	OpI32Extend16S Opcode = 0xc1
	OpI64Extend8S  Opcode = 0xc2
	OpI64Extend16S Opcode = 0xc3
	OpI64Extend32S Opcode = 0xc4

	OpRefNull   Opcode = 0xd0
	OpRefIsNull Opcode = 0xd1
	OpRefFunc   Opcode = 0xd2
)

// Prefixed (0xfc) opcodes: saturating truncation (sign-extension's
// sibling proposal) plus bulk-memory and reference-types forms.
const (
	subI32TruncSatF32S uint32 = 0
	subI32TruncSatF32U uint32 = 1
	subI32TruncSatF64S uint32 = 2
	subI32TruncSatF64U uint32 = 3
	subI64TruncSatF32S uint32 = 4
	subI64TruncSatF32U uint32 = 5
	subI64TruncSatF64S uint32 = 6
	subI64TruncSatF64U uint32 = 7
	subMemoryInit       uint32 = 8
	subDataDrop          uint32 = 9
	subMemoryCopy        uint32 = 10
	subMemoryFill        uint32 = 11
	subTableInit         uint32 = 12
	subElemDrop          uint32 = 13
	subTableCopy         uint32 = 14
	subTableGrow         uint32 = 15
	subTableSize         uint32 = 16
	subTableFill         uint32 = 17
)

var (
	OpI32TruncSatF32S = PrefixedOpcode(PrefixBulkMemory, subI32TruncSatF32S)
	OpI32TruncSatF32U = PrefixedOpcode(PrefixBulkMemory, subI32TruncSatF32U)
	OpI32TruncSatF64S = PrefixedOpcode(PrefixBulkMemory, subI32TruncSatF64S)
	OpI32TruncSatF64U = PrefixedOpcode(PrefixBulkMemory, subI32TruncSatF64U)
	OpI64TruncSatF32S = PrefixedOpcode(PrefixBulkMemory, subI64TruncSatF32S)
	OpI64TruncSatF32U = PrefixedOpcode(PrefixBulkMemory, subI64TruncSatF32U)
	OpI64TruncSatF64S = PrefixedOpcode(PrefixBulkMemory, subI64TruncSatF64S)
	OpI64TruncSatF64U = PrefixedOpcode(PrefixBulkMemory, subI64TruncSatF64U)

	OpMemoryInit = PrefixedOpcode(PrefixBulkMemory, subMemoryInit)
	OpDataDrop   = PrefixedOpcode(PrefixBulkMemory, subDataDrop)
	OpMemoryCopy = PrefixedOpcode(PrefixBulkMemory, subMemoryCopy)
	OpMemoryFill = PrefixedOpcode(PrefixBulkMemory, subMemoryFill)
	OpTableInit  = PrefixedOpcode(PrefixBulkMemory, subTableInit)
	OpElemDrop   = PrefixedOpcode(PrefixBulkMemory, subElemDrop)
	OpTableCopy  = PrefixedOpcode(PrefixBulkMemory, subTableCopy)
	OpTableGrow  = PrefixedOpcode(PrefixBulkMemory, subTableGrow)
	OpTableSize  = PrefixedOpcode(PrefixBulkMemory, subTableSize)
	OpTableFill  = PrefixedOpcode(PrefixBulkMemory, subTableFill)
)

// Prefixed (0xfd) SIMD opcodes: a representative subset covering the
// v128 memory, const, splat, extract/replace-lane, and arithmetic
// families. The full SIMD proposal enumerates roughly 236 opcodes;
// decoding an unlisted 0xfd sub-opcode fails with an "unknown opcode"
// error, recorded as a malformed-encoding diagnostic, rather than
// silently accepting it.
var (
	OpV128Load     = PrefixedOpcode(PrefixSIMD, 0)
	OpV128Store    = PrefixedOpcode(PrefixSIMD, 11)
	OpV128Const    = PrefixedOpcode(PrefixSIMD, 12)
	OpI8x16Shuffle = PrefixedOpcode(PrefixSIMD, 13)
	OpI8x16Splat   = PrefixedOpcode(PrefixSIMD, 15)
	OpI16x8Splat   = PrefixedOpcode(PrefixSIMD, 16)
	OpI32x4Splat   = PrefixedOpcode(PrefixSIMD, 17)
	OpI64x2Splat   = PrefixedOpcode(PrefixSIMD, 18)
	OpF32x4Splat   = PrefixedOpcode(PrefixSIMD, 19)
	OpF64x2Splat   = PrefixedOpcode(PrefixSIMD, 20)

	OpI8x16ExtractLaneS = PrefixedOpcode(PrefixSIMD, 21)
	OpI8x16ExtractLaneU = PrefixedOpcode(PrefixSIMD, 22)
	OpI8x16ReplaceLane  = PrefixedOpcode(PrefixSIMD, 23)
	OpI16x8ExtractLaneS = PrefixedOpcode(PrefixSIMD, 24)
	OpI16x8ExtractLaneU = PrefixedOpcode(PrefixSIMD, 25)
	OpI16x8ReplaceLane  = PrefixedOpcode(PrefixSIMD, 26)
	OpI32x4ExtractLane  = PrefixedOpcode(PrefixSIMD, 27)
	OpI32x4ReplaceLane  = PrefixedOpcode(PrefixSIMD, 28)
	OpI64x2ExtractLane  = PrefixedOpcode(PrefixSIMD, 29)
	OpI64x2ReplaceLane  = PrefixedOpcode(PrefixSIMD, 30)
	OpF32x4ExtractLane  = PrefixedOpcode(PrefixSIMD, 31)
	OpF32x4ReplaceLane  = PrefixedOpcode(PrefixSIMD, 32)
	OpF64x2ExtractLane  = PrefixedOpcode(PrefixSIMD, 33)
	OpF64x2ReplaceLane  = PrefixedOpcode(PrefixSIMD, 34)

	OpI8x16Add = PrefixedOpcode(PrefixSIMD, 110)
	OpI16x8Add = PrefixedOpcode(PrefixSIMD, 142)
	OpI32x4Add = PrefixedOpcode(PrefixSIMD, 174)
	OpI64x2Add = PrefixedOpcode(PrefixSIMD, 190)
	OpF32x4Add = PrefixedOpcode(PrefixSIMD, 228)
	OpF64x2Add = PrefixedOpcode(PrefixSIMD, 240)
)

// Prefixed (0xfe) threads/atomics opcodes: a representative subset
// covering memory synchronization and i32 atomic read-modify-write.
var (
	OpMemoryAtomicNotify  = PrefixedOpcode(PrefixThreads, 0x00)
	OpMemoryAtomicWait32  = PrefixedOpcode(PrefixThreads, 0x01)
	OpMemoryAtomicWait64  = PrefixedOpcode(PrefixThreads, 0x02)
	OpAtomicFence         = PrefixedOpcode(PrefixThreads, 0x03)
	OpI32AtomicLoad       = PrefixedOpcode(PrefixThreads, 0x10)
	OpI64AtomicLoad       = PrefixedOpcode(PrefixThreads, 0x11)
	OpI32AtomicStore      = PrefixedOpcode(PrefixThreads, 0x17)
	OpI64AtomicStore      = PrefixedOpcode(PrefixThreads, 0x18)
	OpI32AtomicRmwAdd     = PrefixedOpcode(PrefixThreads, 0x1e)
	OpI64AtomicRmwAdd     = PrefixedOpcode(PrefixThreads, 0x1f)
	OpI32AtomicRmwCmpxchg = PrefixedOpcode(PrefixThreads, 0x48)
	OpI64AtomicRmwCmpxchg = PrefixedOpcode(PrefixThreads, 0x49)
)

func init() {
	registerControlOpcodes()
	registerParametricOpcodes()
	registerVariableOpcodes()
	registerMemoryOpcodes()
	registerNumericOpcodes()
	registerReferenceOpcodes()
	registerBulkMemoryOpcodes()
	registerSIMDOpcodes()
	registerThreadsOpcodes()
}

func registerControlOpcodes() {
	RegisterOpcode(OpUnreachable, "unreachable", ImmNone)
	RegisterOpcode(OpNop, "nop", ImmNone)
	RegisterOpcode(OpBlock, "block", ImmBlockType)
	RegisterOpcode(OpLoop, "loop", ImmBlockType)
	RegisterOpcode(OpIf, "if", ImmBlockType)
	RegisterOpcode(OpElse, "else", ImmNone)
	RegisterGatedOpcode(OpTry, "try", ImmBlockType, FeatExceptions)
	RegisterGatedOpcode(OpCatch, "catch", ImmIndex, FeatExceptions)
	RegisterGatedOpcode(OpThrow, "throw", ImmIndex, FeatExceptions)
	RegisterGatedOpcode(OpRethrow, "rethrow", ImmNone, FeatExceptions)
	RegisterGatedOpcode(OpBrOnExn, "br_on_exn", ImmBrOnExn, FeatExceptions)
	RegisterOpcode(OpEnd, "end", ImmNone)
	RegisterOpcode(OpBr, "br", ImmIndex)
	RegisterOpcode(OpBrIf, "br_if", ImmIndex)
	RegisterOpcode(OpBrTable, "br_table", ImmBrTable)
	RegisterOpcode(OpReturn, "return", ImmNone)
	RegisterOpcode(OpCall, "call", ImmIndex)
	RegisterOpcode(OpCallIndirect, "call_indirect", ImmCallIndirect)
	RegisterGatedOpcode(OpReturnCall, "return_call", ImmIndex, FeatTailCall)
	RegisterGatedOpcode(OpReturnCallIndirect, "return_call_indirect", ImmCallIndirect, FeatTailCall)
	RegisterGatedOpcode(OpCallRef, "call_ref", ImmIndex, FeatFunctionReferences)
	RegisterGatedOpcode(OpReturnCallRef, "return_call_ref", ImmIndex, FeatFunctionReferences)
	RegisterGatedOpcode(OpFuncBind, "func.bind", ImmIndex, FeatFunctionReferences)
	RegisterGatedOpcode(OpLet, "let", ImmLet, FeatFunctionReferences)
}

func registerParametricOpcodes() {
	RegisterOpcode(OpDrop, "drop", ImmNone)
	RegisterOpcode(OpSelect, "select", ImmNone)
	RegisterGatedOpcode(OpSelectT, "select", ImmSelectTypes, FeatReferenceTypes)
}

func registerVariableOpcodes() {
	RegisterOpcode(OpLocalGet, "local.get", ImmIndex)
	RegisterOpcode(OpLocalSet, "local.set", ImmIndex)
	RegisterOpcode(OpLocalTee, "local.tee", ImmIndex)
	RegisterOpcode(OpGlobalGet, "global.get", ImmIndex)
	RegisterOpcode(OpGlobalSet, "global.set", ImmIndex)
	RegisterGatedOpcode(OpTableGet, "table.get", ImmIndex, FeatReferenceTypes)
	RegisterGatedOpcode(OpTableSet, "table.set", ImmIndex, FeatReferenceTypes)
}

func registerMemoryOpcodes() {
	loads := []struct {
		op   Opcode
		name string
	}{
		{OpI32Load, "i32.load"}, {OpI64Load, "i64.load"}, {OpF32Load, "f32.load"}, {OpF64Load, "f64.load"},
		{OpI32Load8S, "i32.load8_s"}, {OpI32Load8U, "i32.load8_u"}, {OpI32Load16S, "i32.load16_s"}, {OpI32Load16U, "i32.load16_u"},
		{OpI64Load8S, "i64.load8_s"}, {OpI64Load8U, "i64.load8_u"}, {OpI64Load16S, "i64.load16_s"}, {OpI64Load16U, "i64.load16_u"},
		{OpI64Load32S, "i64.load32_s"}, {OpI64Load32U, "i64.load32_u"},
		{OpI32Store, "i32.store"}, {OpI64Store, "i64.store"}, {OpF32Store, "f32.store"}, {OpF64Store, "f64.store"},
		{OpI32Store8, "i32.store8"}, {OpI32Store16, "i32.store16"}, {OpI64Store8, "i64.store8"}, {OpI64Store16, "i64.store16"}, {OpI64Store32, "i64.store32"},
	}
	for _, l := range loads {
		RegisterOpcode(l.op, l.name, ImmMemArg)
	}
	RegisterOpcode(OpMemorySize, "memory.size", ImmIndex)
	RegisterOpcode(OpMemoryGrow, "memory.grow", ImmIndex)
}

func registerNumericOpcodes() {
	RegisterOpcode(OpI32Const, "i32.const", ImmS32)
	RegisterOpcode(OpI64Const, "i64.const", ImmS64)
	RegisterOpcode(OpF32Const, "f32.const", ImmF32)
	RegisterOpcode(OpF64Const, "f64.const", ImmF64)

	unary := map[Opcode]string{
		OpI32Eqz: "i32.eqz", OpI64Eqz: "i64.eqz",
		OpI32Clz: "i32.clz", OpI32Ctz: "i32.ctz", OpI32Popcnt: "i32.popcnt",
		OpI64Clz: "i64.clz", OpI64Ctz: "i64.ctz", OpI64Popcnt: "i64.popcnt",
		OpF32Abs: "f32.abs", OpF32Neg: "f32.neg", OpF32Ceil: "f32.ceil", OpF32Floor: "f32.floor",
		OpF32Trunc: "f32.trunc", OpF32Nearest: "f32.nearest", OpF32Sqrt: "f32.sqrt",
		OpF64Abs: "f64.abs", OpF64Neg: "f64.neg", OpF64Ceil: "f64.ceil", OpF64Floor: "f64.floor",
		OpF64Trunc: "f64.trunc", OpF64Nearest: "f64.nearest", OpF64Sqrt: "f64.sqrt",
		OpI32WrapI64: "i32.wrap_i64",
		OpI32TruncF32S: "i32.trunc_f32_s", OpI32TruncF32U: "i32.trunc_f32_u",
		OpI32TruncF64S: "i32.trunc_f64_s", OpI32TruncF64U: "i32.trunc_f64_u",
		OpI64ExtendI32S: "i64.extend_i32_s", OpI64ExtendI32U: "i64.extend_i32_u",
		OpI64TruncF32S: "i64.trunc_f32_s", OpI64TruncF32U: "i64.trunc_f32_u",
		OpI64TruncF64S: "i64.trunc_f64_s", OpI64TruncF64U: "i64.trunc_f64_u",
		OpF32ConvertI32S: "f32.convert_i32_s", OpF32ConvertI32U: "f32.convert_i32_u",
		OpF32ConvertI64S: "f32.convert_i64_s", OpF32ConvertI64U: "f32.convert_i64_u",
		OpF32DemoteF64: "f32.demote_f64",
		OpF64ConvertI32S: "f64.convert_i32_s", OpF64ConvertI32U: "f64.convert_i32_u",
		OpF64ConvertI64S: "f64.convert_i64_s", OpF64ConvertI64U: "f64.convert_i64_u",
		OpF64PromoteF32: "f64.promote_f32",
		OpI32ReinterpretF32: "i32.reinterpret_f32", OpI64ReinterpretF64: "i64.reinterpret_f64",
		OpF32ReinterpretI32: "f32.reinterpret_i32", OpF64ReinterpretI64: "f64.reinterpret_i64",
	}
	for op, name := range unary {
		RegisterOpcode(op, name, ImmNone)
	}

	binary := map[Opcode]string{
		OpI32Eq: "i32.eq", OpI32Ne: "i32.ne", OpI32LtS: "i32.lt_s", OpI32LtU: "i32.lt_u",
		OpI32GtS: "i32.gt_s", OpI32GtU: "i32.gt_u", OpI32LeS: "i32.le_s", OpI32LeU: "i32.le_u",
		OpI32GeS: "i32.ge_s", OpI32GeU: "i32.ge_u",
		OpI64Eq: "i64.eq", OpI64Ne: "i64.ne", OpI64LtS: "i64.lt_s", OpI64LtU: "i64.lt_u",
		OpI64GtS: "i64.gt_s", OpI64GtU: "i64.gt_u", OpI64LeS: "i64.le_s", OpI64LeU: "i64.le_u",
		OpI64GeS: "i64.ge_s", OpI64GeU: "i64.ge_u",
		OpF32Eq: "f32.eq", OpF32Ne: "f32.ne", OpF32Lt: "f32.lt", OpF32Gt: "f32.gt", OpF32Le: "f32.le", OpF32Ge: "f32.ge",
		OpF64Eq: "f64.eq", OpF64Ne: "f64.ne", OpF64Lt: "f64.lt", OpF64Gt: "f64.gt", OpF64Le: "f64.le", OpF64Ge: "f64.ge",
		OpI32Add: "i32.add", OpI32Sub: "i32.sub", OpI32Mul: "i32.mul", OpI32DivS: "i32.div_s", OpI32DivU: "i32.div_u",
		OpI32RemS: "i32.rem_s", OpI32RemU: "i32.rem_u", OpI32And: "i32.and", OpI32Or: "i32.or", OpI32Xor: "i32.xor",
		OpI32Shl: "i32.shl", OpI32ShrS: "i32.shr_s", OpI32ShrU: "i32.shr_u", OpI32Rotl: "i32.rotl", OpI32Rotr: "i32.rotr",
		OpI64Add: "i64.add", OpI64Sub: "i64.sub", OpI64Mul: "i64.mul", OpI64DivS: "i64.div_s", OpI64DivU: "i64.div_u",
		OpI64RemS: "i64.rem_s", OpI64RemU: "i64.rem_u", OpI64And: "i64.and", OpI64Or: "i64.or", OpI64Xor: "i64.xor",
		OpI64Shl: "i64.shl", OpI64ShrS: "i64.shr_s", OpI64ShrU: "i64.shr_u", OpI64Rotl: "i64.rotl", OpI64Rotr: "i64.rotr",
		OpF32Add: "f32.add", OpF32Sub: "f32.sub", OpF32Mul: "f32.mul", OpF32Div: "f32.div",
		OpF32Min: "f32.min", OpF32Max: "f32.max", OpF32Copysign: "f32.copysign",
		OpF64Add: "f64.add", OpF64Sub: "f64.sub", OpF64Mul: "f64.mul", OpF64Div: "f64.div",
		OpF64Min: "f64.min", OpF64Max: "f64.max", OpF64Copysign: "f64.copysign",
	}
	for op, name := range binary {
		RegisterOpcode(op, name, ImmNone)
	}

	signExtend := map[Opcode]string{
		OpI32Extend8S: "i32.extend8_s", OpI32Extend16S: "i32.extend16_s",
		OpI64Extend8S: "i64.extend8_s", OpI64Extend16S: "i64.extend16_s", OpI64Extend32S: "i64.extend32_s",
	}
	for op, name := range signExtend {
		RegisterGatedOpcode(op, name, ImmNone, FeatSignExtension)
	}

	satTrunc := map[Opcode]string{
		OpI32TruncSatF32S: "i32.trunc_sat_f32_s", OpI32TruncSatF32U: "i32.trunc_sat_f32_u",
		OpI32TruncSatF64S: "i32.trunc_sat_f64_s", OpI32TruncSatF64U: "i32.trunc_sat_f64_u",
		OpI64TruncSatF32S: "i64.trunc_sat_f32_s", OpI64TruncSatF32U: "i64.trunc_sat_f32_u",
		OpI64TruncSatF64S: "i64.trunc_sat_f64_s", OpI64TruncSatF64U: "i64.trunc_sat_f64_u",
	}
	for op, name := range satTrunc {
		RegisterGatedOpcode(op, name, ImmNone, FeatSaturatingFloatToInt)
	}
}

func registerReferenceOpcodes() {
	RegisterGatedOpcode(OpRefNull, "ref.null", ImmHeapType, FeatReferenceTypes)
	RegisterGatedOpcode(OpRefIsNull, "ref.is_null", ImmNone, FeatReferenceTypes)
	RegisterGatedOpcode(OpRefFunc, "ref.func", ImmIndex, FeatReferenceTypes)
}

func registerBulkMemoryOpcodes() {
	RegisterGatedOpcode(OpMemoryInit, "memory.init", ImmInit, FeatBulkMemory)
	RegisterGatedOpcode(OpDataDrop, "data.drop", ImmIndex, FeatBulkMemory)
	RegisterGatedOpcode(OpMemoryCopy, "memory.copy", ImmCopy, FeatBulkMemory)
	RegisterGatedOpcode(OpMemoryFill, "memory.fill", ImmNone, FeatBulkMemory)
	RegisterGatedOpcode(OpTableInit, "table.init", ImmInit, FeatBulkMemory)
	RegisterGatedOpcode(OpElemDrop, "elem.drop", ImmIndex, FeatBulkMemory)
	RegisterGatedOpcode(OpTableCopy, "table.copy", ImmCopy, FeatBulkMemory)
	RegisterGatedOpcode(OpTableGrow, "table.grow", ImmIndex, FeatBulkMemory)
	RegisterGatedOpcode(OpTableSize, "table.size", ImmIndex, FeatBulkMemory)
	RegisterGatedOpcode(OpTableFill, "table.fill", ImmIndex, FeatBulkMemory)
}

func registerSIMDOpcodes() {
	simd := map[Opcode]struct {
		name  string
		shape ImmediateShape
	}{
		OpV128Load:  {"v128.load", ImmMemArg},
		OpV128Store: {"v128.store", ImmMemArg},
		OpV128Const: {"v128.const", ImmV128},
		OpI8x16Shuffle: {"i8x16.shuffle", ImmShuffle},
		OpI8x16Splat: {"i8x16.splat", ImmNone},
		OpI16x8Splat: {"i16x8.splat", ImmNone},
		OpI32x4Splat: {"i32x4.splat", ImmNone},
		OpI64x2Splat: {"i64x2.splat", ImmNone},
		OpF32x4Splat: {"f32x4.splat", ImmNone},
		OpF64x2Splat: {"f64x2.splat", ImmNone},
		OpI8x16ExtractLaneS: {"i8x16.extract_lane_s", ImmSimdLane},
		OpI8x16ExtractLaneU: {"i8x16.extract_lane_u", ImmSimdLane},
		OpI8x16ReplaceLane:  {"i8x16.replace_lane", ImmSimdLane},
		OpI16x8ExtractLaneS: {"i16x8.extract_lane_s", ImmSimdLane},
		OpI16x8ExtractLaneU: {"i16x8.extract_lane_u", ImmSimdLane},
		OpI16x8ReplaceLane:  {"i16x8.replace_lane", ImmSimdLane},
		OpI32x4ExtractLane:  {"i32x4.extract_lane", ImmSimdLane},
		OpI32x4ReplaceLane:  {"i32x4.replace_lane", ImmSimdLane},
		OpI64x2ExtractLane:  {"i64x2.extract_lane", ImmSimdLane},
		OpI64x2ReplaceLane:  {"i64x2.replace_lane", ImmSimdLane},
		OpF32x4ExtractLane:  {"f32x4.extract_lane", ImmSimdLane},
		OpF32x4ReplaceLane:  {"f32x4.replace_lane", ImmSimdLane},
		OpF64x2ExtractLane:  {"f64x2.extract_lane", ImmSimdLane},
		OpF64x2ReplaceLane:  {"f64x2.replace_lane", ImmSimdLane},
		OpI8x16Add: {"i8x16.add", ImmNone},
		OpI16x8Add: {"i16x8.add", ImmNone},
		OpI32x4Add: {"i32x4.add", ImmNone},
		OpI64x2Add: {"i64x2.add", ImmNone},
		OpF32x4Add: {"f32x4.add", ImmNone},
		OpF64x2Add: {"f64x2.add", ImmNone},
	}
	for op, info := range simd {
		RegisterGatedOpcode(op, info.name, info.shape, FeatSIMD)
	}
}

func registerThreadsOpcodes() {
	threads := map[Opcode]struct {
		name  string
		shape ImmediateShape
	}{
		OpMemoryAtomicNotify: {"memory.atomic.notify", ImmMemArg},
		OpMemoryAtomicWait32: {"memory.atomic.wait32", ImmMemArg},
		OpMemoryAtomicWait64: {"memory.atomic.wait64", ImmMemArg},
		OpAtomicFence:        {"atomic.fence", ImmNone},
		OpI32AtomicLoad:      {"i32.atomic.load", ImmMemArg},
		OpI64AtomicLoad:      {"i64.atomic.load", ImmMemArg},
		OpI32AtomicStore:     {"i32.atomic.store", ImmMemArg},
		OpI64AtomicStore:     {"i64.atomic.store", ImmMemArg},
		OpI32AtomicRmwAdd:     {"i32.atomic.rmw.add", ImmMemArg},
		OpI64AtomicRmwAdd:     {"i64.atomic.rmw.add", ImmMemArg},
		OpI32AtomicRmwCmpxchg: {"i32.atomic.rmw.cmpxchg", ImmMemArg},
		OpI64AtomicRmwCmpxchg: {"i64.atomic.rmw.cmpxchg", ImmMemArg},
	}
	for op, info := range threads {
		RegisterGatedOpcode(op, info.name, info.shape, FeatThreads)
	}
}
