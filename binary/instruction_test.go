package binary

import (
	"testing"

	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
	"github.com/matovitch/wasp/leb128"
)

func TestReadOpcodeBare(t *testing.T) {
	c := NewCursor([]byte{0x20}, 0) // local.get
	op, err := readOpcode(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != ir.OpLocalGet {
		t.Fatalf("got %v, want local.get", op)
	}
}

func TestReadOpcodePrefixed(t *testing.T) {
	c := NewCursor([]byte{0xfc, 0x08}, 0) // memory.init
	op, err := readOpcode(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != ir.OpMemoryInit {
		t.Fatalf("got %v, want memory.init", op)
	}
}

func TestDecodeExprSimpleSequence(t *testing.T) {
	// i32.const 42; end
	var buf []byte
	buf = append(buf, 0x41)
	buf = leb128.WriteInt32(buf, 42)
	buf = append(buf, 0x0b)
	c := NewCursor(buf, 0)

	instrs, term, err := decodeExpr(c, feature.MVP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if term != ir.OpEnd {
		t.Fatalf("got terminator %v, want end", term)
	}
	if len(instrs) != 1 || instrs[0].Opcode != ir.OpI32Const || instrs[0].Immediate.S32 != 42 {
		t.Fatalf("got %+v", instrs)
	}
}

func TestDecodeExprStopsAtRequestedTerminator(t *testing.T) {
	// nop; else
	buf := []byte{0x01, 0x05}
	c := NewCursor(buf, 0)
	instrs, term, err := decodeExpr(c, feature.MVP, ir.OpElse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if term != ir.OpElse {
		t.Fatalf("got terminator %v, want else", term)
	}
	if len(instrs) != 1 || instrs[0].Opcode != ir.OpNop {
		t.Fatalf("got %+v", instrs)
	}
}

func TestDecodeInstructionBodyRejectsUngatedFeature(t *testing.T) {
	// try <blocktype=void> ... never reached since try itself is gated
	buf := []byte{0x06, 0x40, 0x0b}
	c := NewCursor(buf, 0)
	op, err := readOpcode(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := decodeInstructionBody(c, op, feature.MVP, c.Location()); err == nil {
		t.Fatalf("expected an error decoding `try` without the exceptions feature enabled")
	}
}

func TestDecodeInstructionBodyIfElse(t *testing.T) {
	// if (void) nop else nop end
	buf := []byte{0x04, 0x40, 0x01, 0x05, 0x01, 0x0b}
	c := NewCursor(buf, 0)
	op, err := readOpcode(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	instr, err := decodeInstructionBody(c, op, feature.MVP, c.Location())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instr.Body) != 1 || instr.Body[0].Opcode != ir.OpNop {
		t.Fatalf("got body %+v", instr.Body)
	}
	if len(instr.Else) != 1 || instr.Else[0].Opcode != ir.OpNop {
		t.Fatalf("got else %+v", instr.Else)
	}
}

func TestDecodeInstructionBodyTryCatch(t *testing.T) {
	// try (void) nop catch 0 nop end
	buf := []byte{0x06, 0x40, 0x01, 0x07, 0x00, 0x01, 0x0b}
	c := NewCursor(buf, 0)
	features := feature.NewSet(feature.Exceptions)
	op, err := readOpcode(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	instr, err := decodeInstructionBody(c, op, features, c.Location())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instr.Body) != 1 || instr.Body[0].Opcode != ir.OpNop {
		t.Fatalf("got body %+v", instr.Body)
	}
	if len(instr.Catches) != 1 || len(instr.Catches[0]) != 1 {
		t.Fatalf("got catches %+v", instr.Catches)
	}
}

func TestReadBlockTypeVoid(t *testing.T) {
	c := NewCursor([]byte{0x40}, 0)
	bt, err := readBlockType(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bt.IsVoid() {
		t.Fatalf("got %v, want void", bt)
	}
}

func TestReadBlockTypeValue(t *testing.T) {
	c := NewCursor([]byte{0x7f}, 0)
	bt, err := readBlockType(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bt.IsValue() || bt.Value() != ir.NumericValue(ir.I32) {
		t.Fatalf("got %v, want value i32", bt)
	}
}

func TestReadBlockTypeIndex(t *testing.T) {
	buf := leb128.WriteInt32(nil, 3)
	c := NewCursor(buf, 0)
	bt, err := readBlockType(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bt.IsIndex() || bt.Index() != 3 {
		t.Fatalf("got %v, want type index 3", bt)
	}
}

func TestReadBlockTypeRejectsNegativeIndex(t *testing.T) {
	buf := leb128.WriteInt32(nil, -100) // 0x9c 0x7f; -2 would be 0x7e, i.e. i64
	c := NewCursor(buf, 0)
	if _, err := readBlockType(c); err == nil {
		t.Fatalf("expected an error for a negative block type index")
	}
}

func TestReadCodeLocalsFlattens(t *testing.T) {
	// two runs: 2x i32, 1x f64
	buf := []byte{0x02, 0x02, 0x7f, 0x01, 0x7c}
	c := NewCursor(buf, 0)
	locals, err := readCodeLocals(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []ir.ValueType{ir.NumericValue(ir.I32), ir.NumericValue(ir.I32), ir.NumericValue(ir.F64)}
	if len(locals) != len(want) {
		t.Fatalf("got %v, want %v", locals, want)
	}
	for i := range want {
		if locals[i] != want[i] {
			t.Fatalf("local %d: got %v, want %v", i, locals[i], want[i])
		}
	}
}

func TestReadLocalsDeclGroupsRuns(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x7f}
	c := NewCursor(buf, 0)
	decls, err := readLocalsDecl(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decls) != 1 || len(decls[0].Names) != 2 || decls[0].Type != ir.NumericValue(ir.I32) {
		t.Fatalf("got %+v", decls)
	}
}

func TestDecodeImmediateMemArg(t *testing.T) {
	buf := []byte{0x02, 0x04} // align=2, offset=4
	c := NewCursor(buf, 0)
	imm, err := decodeImmediate(c, ir.ImmMemArg, feature.MVP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imm.MemArg.AlignLog2 != 2 || imm.MemArg.Offset != 4 {
		t.Fatalf("got %+v", imm.MemArg)
	}
}

func TestDecodeImmediateCallIndirectRejectsNonZeroTableWithoutReferenceTypes(t *testing.T) {
	buf := []byte{0x00, 0x01}
	c := NewCursor(buf, 0)
	if _, err := decodeImmediate(c, ir.ImmCallIndirect, feature.MVP); err == nil {
		t.Fatalf("expected an error for a non-zero table index without reference-types")
	}
}

func TestDecodeImmediateBrTable(t *testing.T) {
	buf := []byte{0x02, 0x00, 0x01, 0x02}
	c := NewCursor(buf, 0)
	imm, err := decodeImmediate(c, ir.ImmBrTable, feature.MVP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(imm.BrTable.Targets) != 2 || imm.BrTable.Targets[0] != 0 || imm.BrTable.Targets[1] != 1 || imm.BrTable.Default != 2 {
		t.Fatalf("got %+v", imm.BrTable)
	}
}
