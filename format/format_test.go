package format_test

import (
	"strings"
	"testing"

	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/format"
	"github.com/matovitch/wasp/ir"
	"github.com/matovitch/wasp/text"
)

func TestModuleRoundTripsThroughText(t *testing.T) {
	m := &ir.Module{
		Types: []ir.FunctionType{{
			Params:  []ir.ValueType{ir.NumericValue(ir.I32), ir.NumericValue(ir.I32)},
			Results: []ir.ValueType{ir.NumericValue(ir.I32)},
		}},
		Functions: []ir.Function{{
			TypeIndex: 0,
			Body: []ir.Instruction{
				{Opcode: ir.OpLocalGet, Immediate: ir.Immediate{Shape: ir.ImmIndex, Index: 0}},
				{Opcode: ir.OpLocalGet, Immediate: ir.Immediate{Shape: ir.ImmIndex, Index: 1}},
				{Opcode: ir.OpI32Add},
			},
		}},
		Exports: []ir.Export{{Name: "add", Kind: ir.ExternFunc, Index: 0}},
	}

	out, err := format.String(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "(module") || !strings.Contains(out, "i32.add") {
		t.Fatalf("got %s", out)
	}

	reparsed, sink := text.ParseModule(out, feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics reparsing: %v\n%s", sink.Diagnostics(), out)
	}
	if len(reparsed.Functions) != 1 || len(reparsed.Functions[0].Body) != 3 {
		t.Fatalf("got %+v", reparsed.Functions)
	}
	if reparsed.Functions[0].Body[2].Opcode != ir.OpI32Add {
		t.Fatalf("got %+v", reparsed.Functions[0].Body)
	}
	if len(reparsed.Exports) != 1 || reparsed.Exports[0].Name != "add" {
		t.Fatalf("got %+v", reparsed.Exports)
	}
}

func TestFormatBlockStructuredInstruction(t *testing.T) {
	m := &ir.Module{
		Types: []ir.FunctionType{{}},
		Functions: []ir.Function{{
			TypeIndex: 0,
			Body: []ir.Instruction{
				{
					Opcode:    ir.OpBlock,
					Immediate: ir.Immediate{Shape: ir.ImmBlockType, Block: ir.VoidBlockType},
					Body:      []ir.Instruction{{Opcode: ir.OpNop}},
				},
			},
		}},
	}
	out, err := format.String(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "block") || !strings.Contains(out, "nop") || !strings.Contains(out, "end") {
		t.Fatalf("got %s", out)
	}

	reparsed, sink := text.ParseModule(out, feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v\n%s", sink.Diagnostics(), out)
	}
	body := reparsed.Functions[0].Body
	if len(body) != 1 || body[0].Opcode != ir.OpBlock || len(body[0].Body) != 1 {
		t.Fatalf("got %+v", body)
	}
}

func TestFormatDataSegmentEscapesNonPrintable(t *testing.T) {
	m := &ir.Module{
		Memories: []ir.Memory{{Type: ir.MemoryType{Limits: ir.Limits{Min: 1, Max: 1, HasMax: true}}}},
		Data: []ir.DataSegment{{
			Type: ir.Active,
			Offset: []ir.Instruction{
				{Opcode: ir.OpI32Const, Immediate: ir.Immediate{Shape: ir.ImmS32, S32: 0}},
			},
			Init: []byte{'h', 'i', 0x00, 0xff},
		}},
	}
	out, err := format.String(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `\00\ff`) {
		t.Fatalf("got %s", out)
	}
}

func TestFormatElementSegmentRendersExprInits(t *testing.T) {
	m := &ir.Module{
		Tables: []ir.Table{{Type: ir.TableType{Limits: ir.Limits{Min: 1}, Element: ir.BareReference(ir.Funcref)}}},
		Elements: []ir.ElementSegment{{
			Type:       ir.Active,
			TableIndex: 0,
			Offset: []ir.Instruction{
				{Opcode: ir.OpI32Const, Immediate: ir.Immediate{Shape: ir.ImmS32, S32: 0}},
			},
			Init: []ir.ElementInit{
				{IsExpr: true, Expr: []ir.Instruction{
					{Opcode: ir.OpRefFunc, Immediate: ir.Immediate{Shape: ir.ImmIndex, Index: 0}},
				}},
			},
		}},
	}
	out, err := format.String(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "(ref.func 0)") {
		t.Fatalf("expr-form element entry not rendered, got %s", out)
	}
}
