// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"fmt"

	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
)

// readVector reads a u32 count followed by that many elements read by
// elem. A decode error in one element aborts the remaining elements of
// this vector (there is no per-element length prefix to resynchronize
// on), but is recorded on sink rather than propagated to the caller, so
// a malformed vector in one section never prevents later sections from
// being read.
func readVector(c *Cursor, sink *diag.Sink, what string, elem func(*Cursor) error) {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading %s count: %v", what, err)
		return
	}
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		if err := elem(c); err != nil {
			sink.OnError(diag.MalformedEncoding, loc, "reading %s[%d]: %v", what, i, err)
			return
		}
	}
}

func readTypeSection(c *Cursor, sink *diag.Sink, m *ir.Module) {
	readVector(c, sink, "type", func(c *Cursor) error {
		ft, err := readFunctionType(c)
		if err != nil {
			return err
		}
		m.Types = append(m.Types, ft)
		return nil
	})
}

func readImportSection(c *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	readVector(c, sink, "import", func(c *Cursor) error {
		loc := c.Location()
		mod, err := c.ReadName()
		if err != nil {
			return err
		}
		name, err := c.ReadName()
		if err != nil {
			return err
		}
		kindByte, err := c.ReadByte()
		if err != nil {
			return err
		}
		desc := ir.ImportDesc{Kind: ir.ExternalKind(kindByte)}
		switch desc.Kind {
		case ir.ExternFunc:
			if desc.TypeIndex, err = c.ReadVarU32(); err != nil {
				return err
			}
		case ir.ExternTable:
			if desc.Table, err = readTableType(c, features); err != nil {
				return err
			}
		case ir.ExternMemory:
			if desc.Memory, err = readMemoryType(c, features); err != nil {
				return err
			}
		case ir.ExternGlobal:
			if desc.Global, err = readGlobalType(c); err != nil {
				return err
			}
		case ir.ExternEvent:
			if !features.Has(feature.Exceptions) {
				return errFeatureGated("event imports", feature.Exceptions)
			}
			attr, err := c.ReadVarU32()
			if err != nil {
				return err
			}
			typeIdx, err := c.ReadVarU32()
			if err != nil {
				return err
			}
			desc.Event = ir.EventType{Attribute: attr, TypeIndex: typeIdx}
		default:
			return fmt.Errorf("binary: unknown import external kind %d", kindByte)
		}
		m.Imports = append(m.Imports, ir.Import{Located: ir.AtOffset(loc.Offset), Module: mod, Name: name, Desc: desc})
		return nil
	})
}

func readFunctionSection(c *Cursor, sink *diag.Sink, m *ir.Module) {
	readVector(c, sink, "function", func(c *Cursor) error {
		loc := c.Location()
		idx, err := c.ReadVarU32()
		if err != nil {
			return err
		}
		m.Functions = append(m.Functions, ir.Function{Located: ir.AtOffset(loc.Offset), TypeIndex: idx})
		return nil
	})
}

func readTableSection(c *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	readVector(c, sink, "table", func(c *Cursor) error {
		loc := c.Location()
		t, err := readTableType(c, features)
		if err != nil {
			return err
		}
		m.Tables = append(m.Tables, ir.Table{Located: ir.AtOffset(loc.Offset), Type: t})
		return nil
	})
}

func readMemorySection(c *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	readVector(c, sink, "memory", func(c *Cursor) error {
		loc := c.Location()
		t, err := readMemoryType(c, features)
		if err != nil {
			return err
		}
		m.Memories = append(m.Memories, ir.Memory{Located: ir.AtOffset(loc.Offset), Type: t})
		return nil
	})
}

func readGlobalSection(c *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	readVector(c, sink, "global", func(c *Cursor) error {
		loc := c.Location()
		t, err := readGlobalType(c)
		if err != nil {
			return err
		}
		init, _, err := decodeExpr(c, features)
		if err != nil {
			return err
		}
		m.Globals = append(m.Globals, ir.Global{Located: ir.AtOffset(loc.Offset), Type: t, Init: init})
		return nil
	})
}

func readExportSection(c *Cursor, sink *diag.Sink, m *ir.Module) {
	readVector(c, sink, "export", func(c *Cursor) error {
		loc := c.Location()
		name, err := c.ReadName()
		if err != nil {
			return err
		}
		kindByte, err := c.ReadByte()
		if err != nil {
			return err
		}
		idx, err := c.ReadVarU32()
		if err != nil {
			return err
		}
		m.Exports = append(m.Exports, ir.Export{Located: ir.AtOffset(loc.Offset), Name: name, Kind: ir.ExternalKind(kindByte), Index: idx})
		return nil
	})
}

func readStartSection(c *Cursor, sink *diag.Sink, m *ir.Module) {
	idx, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading start section: %v", err)
		return
	}
	m.HasStart = true
	m.Start = idx
}

func readDataCountSection(c *Cursor, sink *diag.Sink, m *ir.Module) {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading data count section: %v", err)
		return
	}
	m.HasDataCount = true
	m.DataCount = n
}

func readEventSection(c *Cursor, sink *diag.Sink, m *ir.Module) {
	readVector(c, sink, "event", func(c *Cursor) error {
		loc := c.Location()
		attr, err := c.ReadVarU32()
		if err != nil {
			return err
		}
		typeIdx, err := c.ReadVarU32()
		if err != nil {
			return err
		}
		m.Events = append(m.Events, ir.Event{Located: ir.AtOffset(loc.Offset), Type: ir.EventType{Attribute: attr, TypeIndex: typeIdx}})
		return nil
	})
}

func readElementSection(c *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	readVector(c, sink, "element", func(c *Cursor) error {
		loc := c.Location()
		flags, err := c.ReadVarU32()
		if err != nil {
			return err
		}
		seg := ir.ElementSegment{Located: ir.AtOffset(loc.Offset)}

		switch flags {
		case 0:
			seg.Type = ir.Active
			if seg.Offset, _, err = decodeExpr(c, features); err != nil {
				return err
			}
			seg.ElemKind = ir.BareReference(ir.Funcref)
			if seg.Init, err = readElemIndices(c); err != nil {
				return err
			}
		case 1:
			seg.Type = ir.Passive
			if err := readElemKindByte(c); err != nil {
				return err
			}
			seg.ElemKind = ir.BareReference(ir.Funcref)
			if seg.Init, err = readElemIndices(c); err != nil {
				return err
			}
		case 2:
			seg.Type = ir.Active
			if seg.TableIndex, err = c.ReadVarU32(); err != nil {
				return err
			}
			if seg.Offset, _, err = decodeExpr(c, features); err != nil {
				return err
			}
			if err := readElemKindByte(c); err != nil {
				return err
			}
			seg.ElemKind = ir.BareReference(ir.Funcref)
			if seg.Init, err = readElemIndices(c); err != nil {
				return err
			}
		case 3:
			seg.Type = ir.Declared
			if err := readElemKindByte(c); err != nil {
				return err
			}
			seg.ElemKind = ir.BareReference(ir.Funcref)
			if seg.Init, err = readElemIndices(c); err != nil {
				return err
			}
		case 4:
			seg.Type = ir.Active
			if seg.Offset, _, err = decodeExpr(c, features); err != nil {
				return err
			}
			seg.ElemKind = ir.BareReference(ir.Funcref)
			if seg.Init, err = readElemExprs(c, features); err != nil {
				return err
			}
		case 5:
			seg.Type = ir.Passive
			if seg.ElemKind, err = readReferenceType(c); err != nil {
				return err
			}
			if seg.Init, err = readElemExprs(c, features); err != nil {
				return err
			}
		case 6:
			seg.Type = ir.Active
			if seg.TableIndex, err = c.ReadVarU32(); err != nil {
				return err
			}
			if seg.Offset, _, err = decodeExpr(c, features); err != nil {
				return err
			}
			if seg.ElemKind, err = readReferenceType(c); err != nil {
				return err
			}
			if seg.Init, err = readElemExprs(c, features); err != nil {
				return err
			}
		case 7:
			seg.Type = ir.Declared
			if seg.ElemKind, err = readReferenceType(c); err != nil {
				return err
			}
			if seg.Init, err = readElemExprs(c, features); err != nil {
				return err
			}
		default:
			return fmt.Errorf("binary: unknown element segment flags %d", flags)
		}

		if flags != 0 && !features.Has(feature.BulkMemory) {
			return errFeatureGated("passive/declared/explicit-table element segments", feature.BulkMemory)
		}
		m.Elements = append(m.Elements, seg)
		return nil
	})
}

func readElemKindByte(c *Cursor) error {
	b, err := c.ReadByte()
	if err != nil {
		return err
	}
	if b != 0x00 {
		return fmt.Errorf("binary: unknown elemkind byte 0x%x", b)
	}
	return nil
}

func readElemIndices(c *Cursor) ([]ir.ElementInit, error) {
	n, err := c.ReadVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]ir.ElementInit, 0, n)
	for i := uint32(0); i < n; i++ {
		idx, err := c.ReadVarU32()
		if err != nil {
			return nil, err
		}
		out = append(out, ir.ElementInit{FuncIndex: idx})
	}
	return out, nil
}

func readElemExprs(c *Cursor, features feature.Set) ([]ir.ElementInit, error) {
	n, err := c.ReadVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]ir.ElementInit, 0, n)
	for i := uint32(0); i < n; i++ {
		expr, _, err := decodeExpr(c, features)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.ElementInit{Expr: expr, IsExpr: true})
	}
	return out, nil
}

func readDataSection(c *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	readVector(c, sink, "data", func(c *Cursor) error {
		loc := c.Location()
		flags, err := c.ReadVarU32()
		if err != nil {
			return err
		}
		seg := ir.DataSegment{Located: ir.AtOffset(loc.Offset)}
		switch flags {
		case 0:
			seg.Type = ir.Active
			if seg.Offset, _, err = decodeExpr(c, features); err != nil {
				return err
			}
		case 1:
			seg.Type = ir.Passive
			if !features.Has(feature.BulkMemory) {
				return errFeatureGated("passive data segments", feature.BulkMemory)
			}
		case 2:
			seg.Type = ir.Active
			if !features.Has(feature.BulkMemory) {
				return errFeatureGated("explicit-memory-index data segments", feature.BulkMemory)
			}
			if seg.MemoryIndex, err = c.ReadVarU32(); err != nil {
				return err
			}
			if seg.Offset, _, err = decodeExpr(c, features); err != nil {
				return err
			}
		default:
			return fmt.Errorf("binary: unknown data segment flags %d", flags)
		}
		n, err := c.ReadVarU32()
		if err != nil {
			return err
		}
		if seg.Init, err = c.ReadBytes(int(n)); err != nil {
			return err
		}
		m.Data = append(m.Data, seg)
		return nil
	})
}

func readCodeSection(c *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading code section count: %v", err)
		return
	}
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		size, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading code[%d] size: %v", i, err)
			return
		}
		body, err := c.ReadBytes(int(size))
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading code[%d] body: %v", i, err)
			return
		}
		// A malformed function body is contained to this entry: size
		// is known up front, so the cursor can always resume at the
		// next entry even if decoding this one's instructions fails.
		if int(i) >= len(m.Functions) {
			sink.OnError(diag.Ordering, loc, "code[%d] has no matching function section entry", i)
			continue
		}
		bodyCursor := NewCursor(body, loc.Offset+bytesForVarU32(size))
		locals, err := readCodeLocals(bodyCursor)
		if err != nil {
			sink.OnError(diag.MalformedEncoding, loc, "reading code[%d] locals: %v", i, err)
			continue
		}
		instrs, _, err := decodeExpr(bodyCursor, features)
		if err != nil {
			sink.OnError(diag.MalformedEncoding, loc, "reading code[%d] body: %v", i, err)
			continue
		}
		m.Functions[i].Locals = locals
		m.Functions[i].Body = instrs
	}
}

func bytesForVarU32(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
