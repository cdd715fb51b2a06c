package text

import (
	"encoding/binary"
	"math"

	"github.com/matovitch/wasp/ir"
)

// parseImmediateGeneric parses the immediate of any non-block-structured
// opcode, dispatching on its registered ImmediateShape the same way
// binary.decodeImmediate does on the wire side. It returns the opcode
// actually used, since a handful of mnemonics (select) resolve to a
// different final opcode depending on what follows.
func (p *parser) parseImmediateGeneric(op ir.Opcode) (ir.Immediate, ir.Opcode) {
	shape, _ := ir.ShapeOf(op)
	switch shape {
	case ir.ImmNone:
		if op == ir.OpSelect && p.peekIsSExpr("result") {
			p.advance()
			p.advance()
			var types []ir.ValueType
			for !p.atRPar() {
				types = append(types, p.parseValueType())
			}
			p.expectExit()
			return ir.Immediate{Shape: ir.ImmSelectTypes, SelectTypes: types}, ir.OpSelectT
		}
		return ir.Immediate{Shape: ir.ImmNone}, op

	case ir.ImmS32:
		return ir.Immediate{Shape: shape, S32: p.expectS32()}, op
	case ir.ImmS64:
		return ir.Immediate{Shape: shape, S64: p.expectS64()}, op
	case ir.ImmF32:
		return ir.Immediate{Shape: shape, F32: p.expectF32()}, op
	case ir.ImmF64:
		return ir.Immediate{Shape: shape, F64: p.expectF64()}, op

	case ir.ImmV128:
		return ir.Immediate{Shape: shape, V128: p.parseV128Literal()}, op

	case ir.ImmIndex:
		return ir.Immediate{Shape: shape, Index: p.parseIndexForOpcode(op)}, op

	case ir.ImmMemArg:
		return ir.Immediate{Shape: shape, MemArg: p.parseMemArg()}, op

	case ir.ImmBrTable:
		return ir.Immediate{Shape: shape, BrTable: p.parseBrTable()}, op

	case ir.ImmBrOnExn:
		label := p.parseLabelIndex()
		event := p.parseIndex(p.events)
		return ir.Immediate{Shape: shape, BrOnExn: ir.BrOnExnImmediate{Label: label, Event: event}}, op

	case ir.ImmCallIndirect:
		tableIdx := uint32(0)
		if (p.tok.Kind == Nat || p.tok.Kind == Ident) && !p.peekIsSExpr("type") {
			tableIdx = p.parseIndex(p.tables)
		}
		tu := p.parseTypeUse()
		typeIdx := p.resolveTypeUse(tu)
		return ir.Immediate{Shape: shape, Call: ir.CallIndirectImmediate{TypeIndex: typeIdx, TableIndex: tableIdx}}, op

	case ir.ImmCopy:
		var dst, src uint32
		hasDst := false
		if p.tok.Kind == Nat || p.tok.Kind == Ident {
			dst = p.parseIndex(p.copyScope(op))
			src = p.parseIndex(p.copyScope(op))
			hasDst = true
		}
		return ir.Immediate{Shape: shape, Copy: ir.CopyImmediate{Dst: dst, Src: src, HasDst: hasDst}}, op

	case ir.ImmInit:
		seg := p.parseIndex(p.initSegScope(op))
		dst := uint32(0)
		hasDst := false
		if p.tok.Kind == Nat || p.tok.Kind == Ident {
			dst = p.parseIndex(p.copyScope(op))
			hasDst = true
		}
		return ir.Immediate{Shape: shape, Init: ir.InitImmediate{Segment: seg, Dst: dst, HasDst: hasDst}}, op

	case ir.ImmHeapType:
		return ir.Immediate{Shape: shape, Heap: p.parseHeapType()}, op

	case ir.ImmSelectTypes:
		var types []ir.ValueType
		p.expectEnter("result")
		for !p.atRPar() {
			types = append(types, p.parseValueType())
		}
		p.expectExit()
		return ir.Immediate{Shape: shape, SelectTypes: types}, op

	// Shuffle lanes and lane-index immediates are u8 on the wire; the
	// parser also accepts signed literals here and keeps their low 8
	// bits, so "-1" reads as 255. The formatter prints the unsigned form.
	case ir.ImmShuffle:
		var lanes [16]byte
		for i := range lanes {
			lanes[i] = byte(p.expectS32())
		}
		return ir.Immediate{Shape: shape, Shuffle: lanes}, op

	case ir.ImmSimdLane:
		return ir.Immediate{Shape: shape, Lane: uint8(p.expectS32())}, op

	default:
		p.errorf("immediate shape not supported by the text parser")
		return ir.Immediate{Shape: shape}, op
	}
}

// parseIndexForOpcode resolves an ImmIndex-shaped opcode's operand
// against the index space it actually names. memory.size/memory.grow
// default to memory 0 when no explicit index is given.
func (p *parser) parseIndexForOpcode(op ir.Opcode) uint32 {
	switch op {
	case ir.OpLocalGet, ir.OpLocalSet, ir.OpLocalTee:
		return p.parseIndex(p.locals)
	case ir.OpGlobalGet, ir.OpGlobalSet:
		return p.parseIndex(p.globals)
	case ir.OpTableGet, ir.OpTableSet, ir.OpTableGrow, ir.OpTableSize, ir.OpTableFill:
		return p.parseIndex(p.tables)
	case ir.OpCall, ir.OpReturnCall, ir.OpRefFunc:
		return p.parseIndex(p.funcs)
	case ir.OpCallRef, ir.OpReturnCallRef, ir.OpFuncBind:
		return p.parseIndex(p.types)
	case ir.OpBr, ir.OpBrIf:
		return p.parseLabelIndex()
	case ir.OpDataDrop:
		return p.parseIndex(p.datas)
	case ir.OpElemDrop:
		return p.parseIndex(p.elems)
	case ir.OpThrow:
		return p.parseIndex(p.events)
	case ir.OpMemorySize, ir.OpMemoryGrow:
		if p.tok.Kind == Nat || p.tok.Kind == Ident {
			return p.parseIndex(p.mems)
		}
		return 0
	default:
		p.errorf("no index space known for %s", op)
		return 0
	}
}

func (p *parser) copyScope(op ir.Opcode) *ir.Scope {
	if op == ir.OpTableCopy || op == ir.OpTableInit {
		return p.tables
	}
	return p.mems
}

func (p *parser) initSegScope(op ir.Opcode) *ir.Scope {
	if op == ir.OpTableInit {
		return p.elems
	}
	return p.datas
}

// parseMemArg parses the optional "offset=N" and "align=N" keyword
// operands of a memory instruction. Unspecified offset/align default
// to zero; the text format's natural-alignment default is not
// reconstructed here, a simplification recorded in DESIGN.md.
func (p *parser) parseMemArg() ir.MemArgImmediate {
	var arg ir.MemArgImmediate
	for p.tok.Kind == Keyword {
		if v, ok := parseKeywordValue(p.tok.Text, "offset="); ok {
			arg.Offset = uint32(v)
			p.advance()
			continue
		}
		if v, ok := parseKeywordValue(p.tok.Text, "align="); ok {
			arg.AlignLog2 = log2(uint32(v))
			p.advance()
			continue
		}
		break
	}
	return arg
}

func parseKeywordValue(text, prefix string) (uint64, bool) {
	if len(text) <= len(prefix) || text[:len(prefix)] != prefix {
		return 0, false
	}
	lit := &BigInt{Text: text[len(prefix):], Base: 10}
	if len(lit.Text) > 2 && lit.Text[:2] == "0x" {
		lit.Text = lit.Text[2:]
		lit.Base = 16
	}
	v, err := lit.U()
	if err != nil {
		return 0, false
	}
	return v, true
}

func log2(v uint32) uint32 {
	var n uint32
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

func (p *parser) parseBrTable() ir.BrTableImmediate {
	var indices []uint32
	for p.tok.Kind == Nat || p.tok.Kind == Ident {
		indices = append(indices, p.parseLabelIndex())
	}
	if len(indices) == 0 {
		p.errorf("br_table requires at least one label")
		return ir.BrTableImmediate{}
	}
	return ir.BrTableImmediate{Targets: indices[:len(indices)-1], Default: indices[len(indices)-1]}
}

// parseV128Literal parses "shape lane lane ...", e.g. "i32x4 1 2 3 4",
// packing the lanes into the 16-byte wire representation.
func (p *parser) parseV128Literal() [16]byte {
	var v [16]byte
	if p.tok.Kind != Keyword {
		p.errorf("expected a v128 shape keyword")
		return v
	}
	shape := p.tok.Text
	p.advance()
	switch shape {
	case "i8x16":
		for i := 0; i < 16; i++ {
			v[i] = byte(p.expectS32())
		}
	case "i16x8":
		for i := 0; i < 8; i++ {
			binary.LittleEndian.PutUint16(v[i*2:], uint16(p.expectS32()))
		}
	case "i32x4":
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(v[i*4:], uint32(p.expectS32()))
		}
	case "i64x2":
		for i := 0; i < 2; i++ {
			binary.LittleEndian.PutUint64(v[i*8:], uint64(p.expectS64()))
		}
	case "f32x4":
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(v[i*4:], math.Float32bits(p.expectF32()))
		}
	case "f64x2":
		for i := 0; i < 2; i++ {
			binary.LittleEndian.PutUint64(v[i*8:], math.Float64bits(p.expectF64()))
		}
	default:
		p.errorf("unrecognized v128 shape %q", shape)
	}
	return v
}
