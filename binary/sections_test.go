// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"testing"

	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
	"github.com/matovitch/wasp/leb128"
)

func TestReadTypeSection(t *testing.T) {
	// one entry: (param i32) (result)
	buf := []byte{0x01, 0x60, 0x01, 0x7f, 0x00}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readTypeSection(c, sink, m)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Types) != 1 || len(m.Types[0].Params) != 1 {
		t.Fatalf("got %+v", m.Types)
	}
}

func TestReadImportSectionAllKinds(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x04) // 4 imports

	appendName := func(s string) {
		buf = leb128.WriteUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}

	appendName("mod")
	appendName("f")
	buf = append(buf, 0x00, 0x00) // func, type index 0

	appendName("mod")
	appendName("t")
	buf = append(buf, 0x01, 0x70, 0x00, 0x01) // table: funcref, limits{min=1}

	appendName("mod")
	appendName("m")
	buf = append(buf, 0x02, 0x00, 0x01) // memory: limits{min=1}

	appendName("mod")
	appendName("g")
	buf = append(buf, 0x03, 0x7f, 0x01) // global: i32 mut

	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readImportSection(c, sink, m, feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Imports) != 4 {
		t.Fatalf("got %d imports, want 4", len(m.Imports))
	}
	if m.Imports[0].Desc.Kind != ir.ExternFunc || m.Imports[0].Name != "f" {
		t.Fatalf("got %+v", m.Imports[0])
	}
	if m.Imports[1].Desc.Kind != ir.ExternTable {
		t.Fatalf("got %+v", m.Imports[1])
	}
	if m.Imports[2].Desc.Kind != ir.ExternMemory {
		t.Fatalf("got %+v", m.Imports[2])
	}
	if m.Imports[3].Desc.Kind != ir.ExternGlobal || m.Imports[3].Desc.Global.Mut != ir.Var {
		t.Fatalf("got %+v", m.Imports[3])
	}
}

func TestReadImportSectionEventRequiresExceptions(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x01)
	buf = append(buf, 0x03) // "mod" len
	buf = append(buf, "mod"...)
	buf = append(buf, 0x01)
	buf = append(buf, "e"...)
	buf = append(buf, 0x04, 0x00, 0x00) // event kind, attr=0, typeidx=0

	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readImportSection(c, sink, m, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a feature-gated diagnostic for an event import without exceptions")
	}
}

func TestReadFunctionSection(t *testing.T) {
	buf := []byte{0x02, 0x00, 0x01}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readFunctionSection(c, sink, m)
	if len(m.Functions) != 2 || m.Functions[1].TypeIndex != 1 {
		t.Fatalf("got %+v", m.Functions)
	}
}

func TestReadExportSection(t *testing.T) {
	var buf []byte
	buf = append(buf, 0x01)
	buf = append(buf, 0x04)
	buf = append(buf, "main"...)
	buf = append(buf, 0x00, 0x00)
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readExportSection(c, sink, m)
	if len(m.Exports) != 1 || m.Exports[0].Name != "main" || m.Exports[0].Kind != ir.ExternFunc {
		t.Fatalf("got %+v", m.Exports)
	}
}

func TestReadStartSection(t *testing.T) {
	buf := []byte{0x07}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readStartSection(c, sink, m)
	if !m.HasStart || m.Start != 7 {
		t.Fatalf("got %+v", m)
	}
}

func TestReadDataCountSection(t *testing.T) {
	buf := []byte{0x03}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readDataCountSection(c, sink, m)
	if !m.HasDataCount || m.DataCount != 3 {
		t.Fatalf("got %+v", m)
	}
}

func TestReadEventSection(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x02}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readEventSection(c, sink, m)
	if len(m.Events) != 1 || m.Events[0].Type.TypeIndex != 2 {
		t.Fatalf("got %+v", m.Events)
	}
}

func TestReadGlobalSection(t *testing.T) {
	// i32 const, init = i32.const 5, end
	buf := []byte{0x01, 0x7f, 0x00, 0x41, 0x05, 0x0b}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readGlobalSection(c, sink, m, feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Globals) != 1 || len(m.Globals[0].Init) != 1 || m.Globals[0].Init[0].Immediate.S32 != 5 {
		t.Fatalf("got %+v", m.Globals)
	}
}

// TestReadElementSectionAllVariants builds a single-entry element
// section body for each of the 8 flags variants and checks the decoded
// segment's shape.
func TestReadElementSectionAllVariants(t *testing.T) {
	exprEnd := []byte{0x41, 0x00, 0x0b} // i32.const 0; end

	cases := []struct {
		name    string
		flags   byte
		body    []byte
		wantSeg func(t *testing.T, seg ir.ElementSegment)
	}{
		{
			name:  "flags0-active-funcidx",
			flags: 0,
			body:  append(append([]byte{}, exprEnd...), 0x01, 0x00), // offset expr, 1 func index 0
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Active || len(seg.Init) != 1 || seg.Init[0].IsExpr {
					t.Fatalf("got %+v", seg)
				}
			},
		},
		{
			name:  "flags1-passive-elemkind",
			flags: 1,
			body:  []byte{0x00, 0x01, 0x00}, // elemkind=0x00, 1 func index 0
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Passive {
					t.Fatalf("got %+v", seg)
				}
			},
		},
		{
			name:  "flags2-active-tableidx",
			flags: 2,
			body: func() []byte {
				b := []byte{0x00} // table index 0
				b = append(b, exprEnd...)
				b = append(b, 0x00, 0x01, 0x00) // elemkind, 1 func index 0
				return b
			}(),
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Active || seg.TableIndex != 0 {
					t.Fatalf("got %+v", seg)
				}
			},
		},
		{
			name:  "flags3-declared-elemkind",
			flags: 3,
			body:  []byte{0x00, 0x01, 0x00},
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Declared {
					t.Fatalf("got %+v", seg)
				}
			},
		},
		{
			name:  "flags4-active-exprs",
			flags: 4,
			body:  append(append([]byte{}, exprEnd...), 0x01, 0x41, 0x02, 0x0b),
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Active || len(seg.Init) != 1 || !seg.Init[0].IsExpr {
					t.Fatalf("got %+v", seg)
				}
			},
		},
		{
			name:  "flags5-passive-reftype-exprs",
			flags: 5,
			body:  append([]byte{0x70}, 0x01, 0x41, 0x02, 0x0b),
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Passive || seg.ElemKind != ir.BareReference(ir.Funcref) {
					t.Fatalf("got %+v", seg)
				}
			},
		},
		{
			name:  "flags6-active-tableidx-reftype-exprs",
			flags: 6,
			body: func() []byte {
				b := []byte{0x00} // table index 0
				b = append(b, exprEnd...)
				b = append(b, 0x70, 0x01) // elem reftype funcref, 1 expr
				b = append(b, 0x41, 0x02, 0x0b)
				return b
			}(),
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Active {
					t.Fatalf("got %+v", seg)
				}
			},
		},
		{
			name:  "flags7-declared-reftype-exprs",
			flags: 7,
			body:  append([]byte{0x70}, 0x01, 0x41, 0x02, 0x0b),
			wantSeg: func(t *testing.T, seg ir.ElementSegment) {
				if seg.Type != ir.Declared {
					t.Fatalf("got %+v", seg)
				}
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := append([]byte{0x01, c.flags}, c.body...)
			cur := NewCursor(buf, 0)
			sink := diag.NewSink()
			m := &ir.Module{}
			readElementSection(cur, sink, m, feature.NewSet(feature.BulkMemory, feature.ReferenceTypes))
			if sink.HasErrors() {
				t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
			}
			if len(m.Elements) != 1 {
				t.Fatalf("got %d elements, want 1", len(m.Elements))
			}
			c.wantSeg(t, m.Elements[0])
		})
	}
}

func TestReadElementSectionNonZeroFlagsRequiresBulkMemory(t *testing.T) {
	buf := []byte{0x01, 0x01, 0x00, 0x01, 0x00}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readElementSection(c, sink, m, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a feature-gated diagnostic")
	}
}

func TestReadDataSectionActivePassiveExplicitMemory(t *testing.T) {
	exprEnd := []byte{0x41, 0x00, 0x0b}

	var buf []byte
	buf = append(buf, 0x03) // 3 segments

	// flags=0: active, implicit memory 0
	buf = append(buf, 0x00)
	buf = append(buf, exprEnd...)
	buf = append(buf, 0x02, 'h', 'i')

	// flags=1: passive
	buf = append(buf, 0x01)
	buf = append(buf, 0x01, 'x')

	// flags=2: active, explicit memory index
	buf = append(buf, 0x02, 0x00)
	buf = append(buf, exprEnd...)
	buf = append(buf, 0x01, 'y')

	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readDataSection(c, sink, m, feature.NewSet(feature.BulkMemory))
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Data) != 3 {
		t.Fatalf("got %d segments, want 3", len(m.Data))
	}
	if m.Data[0].Type != ir.Active || string(m.Data[0].Init) != "hi" {
		t.Fatalf("got %+v", m.Data[0])
	}
	if m.Data[1].Type != ir.Passive || string(m.Data[1].Init) != "x" {
		t.Fatalf("got %+v", m.Data[1])
	}
	if m.Data[2].Type != ir.Active || m.Data[2].MemoryIndex != 0 || string(m.Data[2].Init) != "y" {
		t.Fatalf("got %+v", m.Data[2])
	}
}

func TestReadDataSectionPassiveRequiresBulkMemory(t *testing.T) {
	buf := []byte{0x01, 0x01, 0x00}
	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{}
	readDataSection(c, sink, m, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a feature-gated diagnostic for a passive data segment")
	}
}

func TestReadCodeSectionHappyPath(t *testing.T) {
	// one function body: no locals, nop; end
	body := []byte{0x00, 0x01, 0x0b}
	var buf []byte
	buf = append(buf, 0x01)
	buf = leb128.WriteUint32(buf, uint32(len(body)))
	buf = append(buf, body...)

	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{Functions: []ir.Function{{TypeIndex: 0}}}
	readCodeSection(c, sink, m, feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Functions[0].Body) != 1 || m.Functions[0].Body[0].Opcode != ir.OpNop {
		t.Fatalf("got %+v", m.Functions[0].Body)
	}
}

func TestReadCodeSectionContainsMalformedBodyToItsEntry(t *testing.T) {
	// first body is malformed (unknown opcode byte 0xff), second is fine.
	badBody := []byte{0x00, 0xff}
	goodBody := []byte{0x00, 0x01, 0x0b}

	var buf []byte
	buf = append(buf, 0x02)
	buf = leb128.WriteUint32(buf, uint32(len(badBody)))
	buf = append(buf, badBody...)
	buf = leb128.WriteUint32(buf, uint32(len(goodBody)))
	buf = append(buf, goodBody...)

	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{Functions: []ir.Function{{TypeIndex: 0}, {TypeIndex: 0}}}
	readCodeSection(c, sink, m, feature.MVP)

	if !sink.HasErrors() {
		t.Fatalf("expected a diagnostic for the malformed first body")
	}
	if len(m.Functions[0].Body) != 0 {
		t.Fatalf("the malformed body should not have produced instructions")
	}
	if len(m.Functions[1].Body) != 1 || m.Functions[1].Body[0].Opcode != ir.OpNop {
		t.Fatalf("the second, well-formed body should still decode: got %+v", m.Functions[1].Body)
	}
}

func TestReadCodeSectionRejectsUnmatchedEntry(t *testing.T) {
	body := []byte{0x00, 0x01, 0x0b}
	var buf []byte
	buf = append(buf, 0x01)
	buf = leb128.WriteUint32(buf, uint32(len(body)))
	buf = append(buf, body...)

	c := NewCursor(buf, 0)
	sink := diag.NewSink()
	m := &ir.Module{} // no matching function section entry
	readCodeSection(c, sink, m, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected an ordering diagnostic for an unmatched code entry")
	}
}

func TestBytesForVarU32(t *testing.T) {
	cases := []struct {
		v    uint32
		want int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{0xffffffff, 5},
	}
	for _, c := range cases {
		if got := bytesForVarU32(c.v); got != c.want {
			t.Fatalf("bytesForVarU32(%d): got %d, want %d", c.v, got, c.want)
		}
	}
}
