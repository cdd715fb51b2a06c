package binary

import (
	"fmt"

	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
)

// toFeature converts an ir.FeatureFlag to its feature.Flag counterpart.
// The two enums are declared in the same order for exactly this
// purpose: ir has no import of feature (to stay a leaf package), so
// the conversion lives on the reader side, which already depends on
// both.
func toFeature(f ir.FeatureFlag) feature.Flag {
	return feature.Flag(uint(f))
}

// readOpcode reads one opcode byte, folding in a prefix byte
// (0xfc/0xfd/0xfe) and its LEB128 sub-opcode when present.
func readOpcode(c *Cursor) (ir.Opcode, error) {
	b, err := c.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case ir.PrefixBulkMemory, ir.PrefixSIMD, ir.PrefixThreads:
		sub, err := c.ReadVarU32()
		if err != nil {
			return 0, err
		}
		return ir.PrefixedOpcode(b, sub), nil
	default:
		return ir.BareOpcode(b), nil
	}
}

// decodeExpr reads instructions until a terminating opcode (end, or
// one of stopAt, e.g. else/catch) is reached. The terminator is
// consumed and returned so the caller can tell which one ended the run.
func decodeExpr(c *Cursor, features feature.Set, stopAt ...ir.Opcode) ([]ir.Instruction, ir.Opcode, error) {
	var out []ir.Instruction
	for {
		loc := c.Location()
		op, err := readOpcode(c)
		if err != nil {
			return out, 0, err
		}
		if op == ir.OpEnd {
			return out, op, nil
		}
		for _, s := range stopAt {
			if op == s {
				return out, op, nil
			}
		}
		instr, err := decodeInstructionBody(c, op, features, loc)
		if err != nil {
			return out, 0, err
		}
		out = append(out, instr)
	}
}

func decodeInstructionBody(c *Cursor, op ir.Opcode, features feature.Set, loc diag.Location) (ir.Instruction, error) {
	shape, known := ir.ShapeOf(op)
	if !known {
		return ir.Instruction{}, fmt.Errorf("binary: unknown opcode 0x%x", uint64(op))
	}
	if req, gated := ir.RequiredFeature(op); gated && !features.Has(toFeature(req)) {
		return ir.Instruction{}, fmt.Errorf("binary: opcode %s requires the %s feature to be enabled", op, toFeature(req))
	}

	instr := ir.Instruction{
		Located: ir.AtOffset(loc.Offset),
		Opcode:  op,
	}

	switch op {
	case ir.OpBlock, ir.OpLoop, ir.OpIf:
		bt, err := readBlockType(c)
		if err != nil {
			return ir.Instruction{}, err
		}
		instr.Immediate = ir.Immediate{Shape: ir.ImmBlockType, Block: bt}
		body, term, err := decodeExpr(c, features, ir.OpElse)
		if err != nil {
			return ir.Instruction{}, err
		}
		instr.Body = body
		if op == ir.OpIf && term == ir.OpElse {
			elseBody, _, err := decodeExpr(c, features)
			if err != nil {
				return ir.Instruction{}, err
			}
			instr.Else = elseBody
		}
		return instr, nil

	case ir.OpTry:
		bt, err := readBlockType(c)
		if err != nil {
			return ir.Instruction{}, err
		}
		instr.Immediate = ir.Immediate{Shape: ir.ImmBlockType, Block: bt}
		body, term, err := decodeExpr(c, features, ir.OpCatch)
		if err != nil {
			return ir.Instruction{}, err
		}
		instr.Body = body
		for term == ir.OpCatch {
			// catch's own immediate (the caught event's tag index) is
			// not retained on ir.Instruction.Catches; it must still be
			// consumed here or the next byte is misread as an opcode.
			if _, err := c.ReadVarU32(); err != nil {
				return ir.Instruction{}, err
			}
			var catchBody []ir.Instruction
			catchBody, term, err = decodeExpr(c, features, ir.OpCatch)
			if err != nil {
				return ir.Instruction{}, err
			}
			instr.Catches = append(instr.Catches, catchBody)
		}
		return instr, nil

	case ir.OpLet:
		bt, err := readBlockType(c)
		if err != nil {
			return ir.Instruction{}, err
		}
		locals, err := readLocalsDecl(c)
		if err != nil {
			return ir.Instruction{}, err
		}
		instr.Immediate = ir.Immediate{Shape: ir.ImmLet, Let: ir.LetImmediate{Block: bt, Locals: locals}}
		body, _, err := decodeExpr(c, features)
		if err != nil {
			return ir.Instruction{}, err
		}
		instr.Body = body
		return instr, nil
	}

	imm, err := decodeImmediate(c, shape, features)
	if err != nil {
		return ir.Instruction{}, err
	}
	instr.Immediate = imm
	return instr, nil
}

func decodeImmediate(c *Cursor, shape ir.ImmediateShape, features feature.Set) (ir.Immediate, error) {
	switch shape {
	case ir.ImmNone:
		return ir.Immediate{Shape: shape}, nil

	case ir.ImmS32:
		v, err := c.ReadVarS32()
		return ir.Immediate{Shape: shape, S32: v}, err

	case ir.ImmS64:
		v, err := c.ReadVarS64()
		return ir.Immediate{Shape: shape, S64: v}, err

	case ir.ImmF32:
		v, err := c.ReadF32()
		return ir.Immediate{Shape: shape, F32: v}, err

	case ir.ImmF64:
		v, err := c.ReadF64()
		return ir.Immediate{Shape: shape, F64: v}, err

	case ir.ImmV128:
		v, err := c.ReadV128()
		return ir.Immediate{Shape: shape, V128: v}, err

	case ir.ImmIndex:
		v, err := c.ReadVarU32()
		return ir.Immediate{Shape: shape, Index: v}, err

	case ir.ImmHeapType:
		h, err := readHeapType(c)
		return ir.Immediate{Shape: shape, Heap: h}, err

	case ir.ImmMemArg:
		align, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		offset, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		return ir.Immediate{Shape: shape, MemArg: ir.MemArgImmediate{AlignLog2: align, Offset: offset}}, nil

	case ir.ImmBrTable:
		n, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		targets := make([]uint32, 0, n)
		for i := uint32(0); i < n; i++ {
			t, err := c.ReadVarU32()
			if err != nil {
				return ir.Immediate{}, err
			}
			targets = append(targets, t)
		}
		def, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		return ir.Immediate{Shape: shape, BrTable: ir.BrTableImmediate{Targets: targets, Default: def}}, nil

	case ir.ImmBrOnExn:
		label, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		event, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		return ir.Immediate{Shape: shape, BrOnExn: ir.BrOnExnImmediate{Label: label, Event: event}}, nil

	case ir.ImmCallIndirect:
		typeIdx, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		tableIdx, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		if tableIdx != 0 && !features.Has(feature.ReferenceTypes) {
			return ir.Immediate{}, fmt.Errorf("binary: non-zero table index in call_indirect requires the reference-types feature")
		}
		return ir.Immediate{Shape: shape, Call: ir.CallIndirectImmediate{TypeIndex: typeIdx, TableIndex: tableIdx}}, nil

	case ir.ImmCopy:
		dst, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		src, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		return ir.Immediate{Shape: shape, Copy: ir.CopyImmediate{Dst: dst, Src: src, HasDst: true}}, nil

	case ir.ImmInit:
		seg, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		dst, err := c.ReadVarU32()
		if err != nil {
			return ir.Immediate{}, err
		}
		return ir.Immediate{Shape: shape, Init: ir.InitImmediate{Segment: seg, Dst: dst, HasDst: true}}, nil

	case ir.ImmSelectTypes:
		types, err := readValueTypeVec(c)
		return ir.Immediate{Shape: shape, SelectTypes: types}, err

	case ir.ImmShuffle:
		var shuffle [16]byte
		b, err := c.ReadBytes(16)
		if err != nil {
			return ir.Immediate{}, err
		}
		copy(shuffle[:], b)
		return ir.Immediate{Shape: shape, Shuffle: shuffle}, nil

	case ir.ImmSimdLane:
		lane, err := c.ReadByte()
		return ir.Immediate{Shape: shape, Lane: lane}, err

	default:
		return ir.Immediate{}, fmt.Errorf("binary: immediate shape %d not handled by the generic decoder", shape)
	}
}

// readBlockType decodes a block's result annotation: the single-byte
// void/value-type encodings share their bytes with value types, so a
// type-use index is distinguished by reading it as a signed LEB128 (a
// byte >= 0x80 always continues, so the two spaces never collide).
func readBlockType(c *Cursor) (ir.BlockType, error) {
	b, ok := c.PeekByte()
	if !ok {
		return ir.BlockType{}, ErrTruncated
	}
	if b == 0x40 {
		c.Advance(1)
		return ir.VoidBlockType, nil
	}
	switch b {
	case 0x7f, 0x7e, 0x7d, 0x7c, 0x7b, 0x70, 0x6f, 0x6d, 0x6e, 0x6c, 0x6a:
		v, err := readValueType(c)
		if err != nil {
			return ir.BlockType{}, err
		}
		return ir.ValueBlockType(v), nil
	}
	idx, err := c.ReadVarS32()
	if err != nil {
		return ir.BlockType{}, err
	}
	if idx < 0 {
		return ir.BlockType{}, fmt.Errorf("binary: negative block type index %d", idx)
	}
	return ir.IndexBlockType(uint32(idx)), nil
}

// readLocalsDecl reads the "let" instruction's locals declaration: a
// vector of (count, type) runs, kept grouped rather than flattened so
// the formatter can re-emit each run as its own (local ...) group.
func readLocalsDecl(c *Cursor) ([]ir.LocalsDecl, error) {
	n, err := c.ReadVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]ir.LocalsDecl, 0, n)
	for i := uint32(0); i < n; i++ {
		count, err := c.ReadVarU32()
		if err != nil {
			return nil, err
		}
		t, err := readValueType(c)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.LocalsDecl{Names: make([]string, count), Type: t})
	}
	return out, nil
}

// readCodeLocals reads a function body's locals declaration, the same
// wire shape as readLocalsDecl, but flattened to one entry per local
// since ir.Function.Locals is indexed directly by local index.
func readCodeLocals(c *Cursor) ([]ir.ValueType, error) {
	n, err := c.ReadVarU32()
	if err != nil {
		return nil, err
	}
	var out []ir.ValueType
	for i := uint32(0); i < n; i++ {
		count, err := c.ReadVarU32()
		if err != nil {
			return nil, err
		}
		t, err := readValueType(c)
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < count; j++ {
			out = append(out, t)
		}
	}
	return out, nil
}
