package text

import (
	"testing"

	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
)

func parseOK(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, sink := ParseModule(src, feature.AllEnabled())
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	return m
}

func TestParseEmptyModule(t *testing.T) {
	m := parseOK(t, "(module)")
	if len(m.Functions) != 0 {
		t.Fatalf("got %+v", m)
	}
}

func TestParseFuncWithLocalsAndAdd(t *testing.T) {
	m := parseOK(t, `(module
		(func $add (param $a i32) (param $b i32) (result i32)
			local.get $a
			local.get $b
			i32.add))`)
	if len(m.Functions) != 1 {
		t.Fatalf("got %d functions", len(m.Functions))
	}
	body := m.Functions[0].Body
	if len(body) != 3 {
		t.Fatalf("got body %+v", body)
	}
	if body[0].Opcode != ir.OpLocalGet || body[0].Immediate.Index != 0 {
		t.Fatalf("got %+v", body[0])
	}
	if body[1].Opcode != ir.OpLocalGet || body[1].Immediate.Index != 1 {
		t.Fatalf("got %+v", body[1])
	}
	if body[2].Opcode != ir.OpI32Add {
		t.Fatalf("got %+v", body[2])
	}
}

func TestParseImportThenCallByIndexSpace(t *testing.T) {
	m := parseOK(t, `(module
		(import "env" "f" (func $f (param i32)))
		(func (export "g")
			i32.const 0
			call $f))`)
	if len(m.Imports) != 1 || m.Imports[0].Module != "env" || m.Imports[0].Name != "f" {
		t.Fatalf("got %+v", m.Imports)
	}
	if len(m.Exports) != 1 || m.Exports[0].Name != "g" || m.Exports[0].Index != 1 {
		t.Fatalf("got %+v", m.Exports)
	}
	body := m.Functions[0].Body
	if len(body) != 2 || body[1].Opcode != ir.OpCall || body[1].Immediate.Index != 0 {
		t.Fatalf("got %+v", body)
	}
}

func TestParseMemoryDataShorthand(t *testing.T) {
	m := parseOK(t, `(module (memory (data "abc")))`)
	if len(m.Memories) != 1 || m.Memories[0].Type.Limits.Min != 1 {
		t.Fatalf("got %+v", m.Memories)
	}
	if len(m.Data) != 1 || string(m.Data[0].Init) != "abc" {
		t.Fatalf("got %+v", m.Data)
	}
}

func TestParseTableElemShorthand(t *testing.T) {
	m := parseOK(t, `(module (func) (func) (table 2 2 funcref (elem 0 1)))`)
	if len(m.Elements) != 1 || len(m.Elements[0].Init) != 2 {
		t.Fatalf("got %+v", m.Elements)
	}
	if m.Elements[0].Init[0].FuncIndex != 0 || m.Elements[0].Init[1].FuncIndex != 1 {
		t.Fatalf("got %+v", m.Elements[0].Init)
	}
}

func TestParseMutableGlobal(t *testing.T) {
	m := parseOK(t, `(module (global $g (mut i32) (i32.const 5)))`)
	if len(m.Globals) != 1 || m.Globals[0].Type.Mut != ir.Var {
		t.Fatalf("got %+v", m.Globals)
	}
	if len(m.Globals[0].Init) != 1 || m.Globals[0].Init[0].Immediate.S32 != 5 {
		t.Fatalf("got %+v", m.Globals[0].Init)
	}
}

func TestParseStartField(t *testing.T) {
	m := parseOK(t, `(module (func $main) (start $main))`)
	if !m.HasStart || m.Start != 0 {
		t.Fatalf("got %+v", m)
	}
}

func TestParseFoldedInstrFlattensOperandsBeforeOp(t *testing.T) {
	m := parseOK(t, `(module (func (result i32) (i32.add (i32.const 1) (i32.const 2))))`)
	body := m.Functions[0].Body
	if len(body) != 3 {
		t.Fatalf("got %+v", body)
	}
	if body[0].Opcode != ir.OpI32Const || body[0].Immediate.S32 != 1 {
		t.Fatalf("got %+v", body[0])
	}
	if body[1].Opcode != ir.OpI32Const || body[1].Immediate.S32 != 2 {
		t.Fatalf("got %+v", body[1])
	}
	if body[2].Opcode != ir.OpI32Add {
		t.Fatalf("got %+v", body[2])
	}
}

func TestParseFoldedIfThenElse(t *testing.T) {
	m := parseOK(t, `(module (func (if (i32.const 1) (then) (else))))`)
	body := m.Functions[0].Body
	if len(body) != 2 {
		t.Fatalf("got %+v", body)
	}
	if body[0].Opcode != ir.OpI32Const {
		t.Fatalf("got %+v", body[0])
	}
	if body[1].Opcode != ir.OpIf || body[1].Body != nil || body[1].Else != nil {
		t.Fatalf("got %+v", body[1])
	}
}

func TestParsePlainTryCatch(t *testing.T) {
	m := parseOK(t, `(module (event $e) (func
		try
			nop
		catch $e
			nop
		end))`)
	body := m.Functions[0].Body
	if len(body) != 1 || body[0].Opcode != ir.OpTry {
		t.Fatalf("got %+v", body)
	}
	if len(body[0].Body) != 1 || body[0].Body[0].Opcode != ir.OpNop {
		t.Fatalf("got %+v", body[0].Body)
	}
	if len(body[0].Catches) != 1 || len(body[0].Catches[0]) != 1 || body[0].Catches[0][0].Opcode != ir.OpNop {
		t.Fatalf("got %+v", body[0].Catches)
	}
}

func TestParseDuplicateBindingDiagnostic(t *testing.T) {
	_, sink := ParseModule(`(module (func $a) (func $a))`, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a duplicate-binding diagnostic")
	}
}

func TestParseTypeUseDedup(t *testing.T) {
	m := parseOK(t, `(module (func (param i32)) (func (param i32)))`)
	if len(m.Types) != 1 {
		t.Fatalf("got %d types, want 1", len(m.Types))
	}
}

func TestParseMemArgOffsetAlign(t *testing.T) {
	m := parseOK(t, `(module (memory 1) (func
		i32.const 0
		i32.load offset=4 align=4))`)
	body := m.Functions[0].Body
	if len(body) != 2 || body[1].Opcode != ir.OpI32Load {
		t.Fatalf("got %+v", body)
	}
	if body[1].Immediate.MemArg.Offset != 4 || body[1].Immediate.MemArg.AlignLog2 != 2 {
		t.Fatalf("got %+v", body[1].Immediate.MemArg)
	}
}

func TestParseBrTable(t *testing.T) {
	m := parseOK(t, `(module (func
		block $a
			block $b
				i32.const 0
				br_table $b $a
			end
		end))`)
	body := m.Functions[0].Body
	inner := body[0].Body[0].Body
	brTable := inner[len(inner)-1]
	if brTable.Opcode != ir.OpBrTable {
		t.Fatalf("got %+v", brTable)
	}
	if len(brTable.Immediate.BrTable.Targets) != 1 || brTable.Immediate.BrTable.Targets[0] != 0 {
		t.Fatalf("got %+v", brTable.Immediate.BrTable)
	}
	if brTable.Immediate.BrTable.Default != 1 {
		t.Fatalf("got %+v", brTable.Immediate.BrTable)
	}
}
