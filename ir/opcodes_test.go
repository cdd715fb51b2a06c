package ir

import "testing"

func TestOpcodeTableCoversEachProposal(t *testing.T) {
	cases := []struct {
		op      Opcode
		name    string
		gated   bool
		feature FeatureFlag
	}{
		{OpUnreachable, "unreachable", false, 0},
		{OpCallIndirect, "call_indirect", false, 0},
		{OpI32Extend8S, "i32.extend8_s", true, FeatSignExtension},
		{OpI32TruncSatF32S, "i32.trunc_sat_f32_s", true, FeatSaturatingFloatToInt},
		{OpMemoryCopy, "memory.copy", true, FeatBulkMemory},
		{OpTableGet, "table.get", true, FeatReferenceTypes},
		{OpReturnCall, "return_call", true, FeatTailCall},
		{OpCallRef, "call_ref", true, FeatFunctionReferences},
		{OpThrow, "throw", true, FeatExceptions},
		{OpI8x16Add, "i8x16.add", true, FeatSIMD},
		{OpI32AtomicRmwAdd, "i32.atomic.rmw.add", true, FeatThreads},
	}

	for _, c := range cases {
		info, ok := opcodeTable[c.op]
		if !ok {
			t.Fatalf("opcode %v not registered", c.op)
		}
		if info.name != c.name {
			t.Fatalf("opcode %v: got name %q, want %q", c.op, info.name, c.name)
		}
		feat, gated := RequiredFeature(c.op)
		if gated != c.gated {
			t.Fatalf("opcode %v: got gated=%v, want %v", c.op, gated, c.gated)
		}
		if gated && feat != c.feature {
			t.Fatalf("opcode %v: got feature %v, want %v", c.op, feat, c.feature)
		}
	}
}

func TestBulkMemoryPrefixDistinctFromSIMDAndThreads(t *testing.T) {
	if OpMemoryFill.Prefix() != PrefixBulkMemory {
		t.Fatalf("OpMemoryFill should carry the bulk-memory prefix")
	}
	if OpI8x16Add.Prefix() != PrefixSIMD {
		t.Fatalf("OpI8x16Add should carry the SIMD prefix")
	}
	if OpI32AtomicRmwAdd.Prefix() != PrefixThreads {
		t.Fatalf("OpI32AtomicRmwAdd should carry the threads prefix")
	}
}
