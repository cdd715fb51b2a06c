package binary

import (
	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/ir"
)

type nameSubsectionID uint8

const (
	nameSubsectionModule nameSubsectionID = 0
	nameSubsectionFunc   nameSubsectionID = 1
	nameSubsectionLocal  nameSubsectionID = 2
	nameSubsectionType         nameSubsectionID = 4
	nameSubsectionTable        nameSubsectionID = 5
	nameSubsectionMemory       nameSubsectionID = 6
	nameSubsectionGlobal       nameSubsectionID = 7
	nameSubsectionElemSegment  nameSubsectionID = 8
	nameSubsectionDataSegment  nameSubsectionID = 9
	nameSubsectionLabel        nameSubsectionID = 10
	nameSubsectionEvent        nameSubsectionID = 11
)

// readNameSection decodes the "name" custom section: a sequence of
// subsections, each a (id byte, u32 size, payload) triple, read
// independently so that one malformed subsection doesn't prevent the
// rest from being read.
func readNameSection(c *Cursor, sink *diag.Sink) *ir.NameSection {
	ns := ir.NewNameSection()
	for !c.AtEnd() {
		loc := c.Location()
		idByte, err := c.ReadByte()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading name subsection id: %v", err)
			return ns
		}
		size, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading name subsection size: %v", err)
			return ns
		}
		body, err := c.ReadBytes(int(size))
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading name subsection body: %v", err)
			return ns
		}
		sc := NewCursor(body, loc.Offset)

		switch nameSubsectionID(idByte) {
		case nameSubsectionModule:
			name, err := sc.ReadName()
			if err != nil {
				sink.OnError(diag.MalformedEncoding, loc, "reading module name: %v", err)
				continue
			}
			ns.HasModuleName = true
			ns.ModuleName = name
		case nameSubsectionFunc:
			readNameMap(sc, sink, ns.Functions)
		case nameSubsectionLocal:
			readIndirectNameMap(sc, sink, ns.Locals)
		case nameSubsectionType:
			readNameMap(sc, sink, ns.Types)
		case nameSubsectionTable:
			readNameMap(sc, sink, ns.Tables)
		case nameSubsectionMemory:
			readNameMap(sc, sink, ns.Memories)
		case nameSubsectionGlobal:
			readNameMap(sc, sink, ns.Globals)
		case nameSubsectionElemSegment:
			readNameMap(sc, sink, ns.ElementSegs)
		case nameSubsectionDataSegment:
			readNameMap(sc, sink, ns.DataSegs)
		case nameSubsectionLabel:
			readIndirectNameMap(sc, sink, ns.Labels)
		case nameSubsectionEvent:
			readNameMap(sc, sink, ns.Events)
		default:
			sink.OnError(diag.UnknownTag, loc, "unknown name subsection id %d", idByte)
		}
	}
	return ns
}

func readNameMap(c *Cursor, sink *diag.Sink, into *ir.NameMap) {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading name map count: %v", err)
		return
	}
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		idx, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading name map entry: %v", err)
			return
		}
		name, err := c.ReadName()
		if err != nil {
			sink.OnError(diag.MalformedEncoding, loc, "reading name map entry name: %v", err)
			return
		}
		into.Bind(idx, name)
	}
}

func readIndirectNameMap(c *Cursor, sink *diag.Sink, into *ir.LocalNameMap) {
	n, err := c.ReadVarU32()
	if err != nil {
		sink.OnError(diag.Truncation, c.Location(), "reading indirect name map count: %v", err)
		return
	}
	for i := uint32(0); i < n; i++ {
		loc := c.Location()
		outerIdx, err := c.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, loc, "reading indirect name map outer index: %v", err)
			return
		}
		readNameMap(c, sink, into.ForFunction(outerIdx))
	}
}
