package binary

import (
	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/ir"
)

type linkingSubsectionID uint8

const (
	linkingSegmentInfo  linkingSubsectionID = 5
	linkingInitFuncs    linkingSubsectionID = 6
	linkingComdatInfo   linkingSubsectionID = 7
	linkingSymbolTable  linkingSubsectionID = 8
)

// readLinkingSection decodes the "linking" custom section emitted by
// object-file producers: a version varuint followed by subsections,
// each read independently of the others' success.
func readLinkingSection(c *Cursor, sink *diag.Sink) *ir.LinkingSection {
	ls := ir.NewLinkingSection()
	version, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading linking section version: %v", err)
		return ls
	}
	ls.Version = version

	for !c.AtEnd() {
		loc := c.Location()
		idByte, err := c.ReadByte()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading linking subsection id: %v", err)
			return ls
		}
		size, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading linking subsection size: %v", err)
			return ls
		}
		body, err := c.ReadBytes(int(size))
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading linking subsection body: %v", err)
			return ls
		}
		sc := NewCursor(body, loc.Offset)

		switch linkingSubsectionID(idByte) {
		case linkingSegmentInfo:
			ls.SegmentInfos = readSegmentInfos(sc, sink)
		case linkingInitFuncs:
			ls.InitFuncs = readInitFunctions(sc, sink)
		case linkingComdatInfo:
			ls.Comdats = readComdats(sc, sink)
		case linkingSymbolTable:
			ls.Symbols = readSymbolTable(sc, sink)
		default:
			sink.OnError(diag.UnknownTag, loc, "unknown linking subsection id %d", idByte)
		}
	}
	return ls
}

func readSegmentInfos(c *Cursor, sink *diag.Sink) []ir.SegmentInfo {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading segment info count: %v", err)
		return nil
	}
	out := make([]ir.SegmentInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		name, err := c.ReadName()
		if err != nil {
			sink.OnError(diag.MalformedEncoding, loc, "reading segment info[%d] name: %v", i, err)
			return out
		}
		align, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading segment info[%d] align: %v", i, err)
			return out
		}
		flags, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading segment info[%d] flags: %v", i, err)
			return out
		}
		out = append(out, ir.SegmentInfo{Name: name, AlignLog2: align, Flags: flags})
	}
	return out
}

func readInitFunctions(c *Cursor, sink *diag.Sink) []ir.InitFunction {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading init functions count: %v", err)
		return nil
	}
	out := make([]ir.InitFunction, 0, n)
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		priority, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading init function[%d] priority: %v", i, err)
			return out
		}
		idx, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading init function[%d] index: %v", i, err)
			return out
		}
		out = append(out, ir.InitFunction{Index: idx, Priority: priority})
	}
	return out
}

func readComdats(c *Cursor, sink *diag.Sink) []ir.ComdatInfo {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading comdat count: %v", err)
		return nil
	}
	out := make([]ir.ComdatInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		name, err := c.ReadName()
		if err != nil {
			sink.OnError(diag.MalformedEncoding, loc, "reading comdat[%d] name: %v", i, err)
			return out
		}
		flags, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading comdat[%d] flags: %v", i, err)
			return out
		}
		symCount, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading comdat[%d] symbol count: %v", i, err)
			return out
		}
		symbols := make([]ir.ComdatSymbol, 0, symCount)
		for j := uint32(0); j < symCount; j++ {
			kindByte, err := c.ReadByte()
			if err != nil {
				sink.OnError(diag.Truncation, loc, "reading comdat[%d] symbol[%d] kind: %v", i, j, err)
				return out
			}
			idx, err := c.ReadVarU32()
			if err != nil {
				sink.OnError(diag.Truncation, loc, "reading comdat[%d] symbol[%d] index: %v", i, j, err)
				return out
			}
			symbols = append(symbols, ir.ComdatSymbol{Kind: ir.SymbolInfoKind(kindByte), Index: idx})
		}
		out = append(out, ir.ComdatInfo{Name: name, Flags: flags, Symbols: symbols})
	}
	return out
}

func readSymbolTable(c *Cursor, sink *diag.Sink) []ir.SymbolInfo {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading symbol table count: %v", err)
		return nil
	}
	out := make([]ir.SymbolInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		kindByte, err := c.ReadByte()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading symbol[%d] kind: %v", i, err)
			return out
		}
		flagsRaw, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading symbol[%d] flags: %v", i, err)
			return out
		}
		info := ir.SymbolInfo{Kind: ir.SymbolInfoKind(kindByte), Flags: decodeSymbolFlags(flagsRaw)}

		switch info.Kind {
		case ir.SymbolData:
			name, err := c.ReadName()
			if err != nil {
				sink.OnError(diag.MalformedEncoding, loc, "reading data symbol[%d] name: %v", i, err)
				return out
			}
			info.DataName = name
			if !info.Flags.Undefined {
				idx, err := c.ReadVarU32()
				if err != nil {
					sink.OnError(diag.Truncation, loc, "reading data symbol[%d] segment index: %v", i, err)
					return out
				}
				off, err := c.ReadVarU32()
				if err != nil {
					sink.OnError(diag.Truncation, loc, "reading data symbol[%d] offset: %v", i, err)
					return out
				}
				size, err := c.ReadVarU32()
				if err != nil {
					sink.OnError(diag.Truncation, loc, "reading data symbol[%d] size: %v", i, err)
					return out
				}
				info.DataDefined = true
				info.Data = ir.DataSymbolDefinition{Index: idx, Offset: off, Size: size}
			}
		case ir.SymbolSection:
			idx, err := c.ReadVarU32()
			if err != nil {
				sink.OnError(diag.Truncation, loc, "reading section symbol[%d] index: %v", i, err)
				return out
			}
			info.SectionIndex = idx
		default: // Function, Global, Event
			idx, err := c.ReadVarU32()
			if err != nil {
				sink.OnError(diag.Truncation, loc, "reading symbol[%d] index: %v", i, err)
				return out
			}
			info.Index = idx
			if !info.Flags.Undefined || info.Flags.ExplicitName {
				name, err := c.ReadName()
				if err != nil {
					sink.OnError(diag.MalformedEncoding, loc, "reading symbol[%d] name: %v", i, err)
					return out
				}
				info.Name = name
			}
		}
		out = append(out, info)
	}
	return out
}

// Symbol flag bits, per the tool-conventions linking metadata.
const (
	symFlagWeak           uint32 = 1 << 0
	symFlagLocal          uint32 = 1 << 1
	symFlagHidden         uint32 = 1 << 2
	symFlagUndefined      uint32 = 1 << 4
	symFlagExplicitName   uint32 = 1 << 6
)

func decodeSymbolFlags(raw uint32) ir.SymbolFlags {
	f := ir.SymbolFlags{Binding: ir.BindingGlobal, Visibility: ir.VisibilityDefault}
	if raw&symFlagLocal != 0 {
		f.Binding = ir.BindingLocal
	} else if raw&symFlagWeak != 0 {
		f.Binding = ir.BindingWeak
	}
	if raw&symFlagHidden != 0 {
		f.Visibility = ir.VisibilityHidden
	}
	f.Undefined = raw&symFlagUndefined != 0
	f.ExplicitName = raw&symFlagExplicitName != 0
	return f
}

// readRelocationSection decodes a "reloc.<section>" custom section: a
// target section index followed by a vector of relocation entries.
func readRelocationSection(c *Cursor, sink *diag.Sink, targetName string) *ir.RelocationSection {
	secIdx, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading reloc.%s target section index: %v", targetName, err)
		return nil
	}
	rs := &ir.RelocationSection{SectionIndex: secIdx}

	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading reloc.%s entry count: %v", targetName, err)
		return rs
	}
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		typeByte, err := c.ReadByte()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading reloc.%s entry[%d] type: %v", targetName, i, err)
			return rs
		}
		offset, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading reloc.%s entry[%d] offset: %v", targetName, i, err)
			return rs
		}
		symbol, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading reloc.%s entry[%d] symbol: %v", targetName, i, err)
			return rs
		}
		entry := ir.RelocationEntry{Type: ir.RelocationType(typeByte), Offset: offset, Symbol: symbol}
		if relocationHasAddend(entry.Type) {
			addend, err := c.ReadVarS32()
			if err != nil {
				sink.OnError(diag.Truncation, loc, "reading reloc.%s entry[%d] addend: %v", targetName, i, err)
				return rs
			}
			entry.HasAddend = true
			entry.Addend = addend
		}
		rs.Entries = append(rs.Entries, entry)
	}
	return rs
}

func relocationHasAddend(t ir.RelocationType) bool {
	switch t {
	case ir.RelocMemoryAddrLEB, ir.RelocMemoryAddrSLEB, ir.RelocMemoryAddrI32,
		ir.RelocMemoryAddrRelSLEB, ir.RelocFunctionOffsetI32, ir.RelocSectionOffsetI32:
		return true
	default:
		return false
	}
}
