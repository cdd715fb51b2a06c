// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binary decodes the WebAssembly binary format into the
// unified ir.Module tree. Decoding never panics: every problem is
// recorded on a diag.Sink and the reader yields a best-effort module
// alongside the diagnostics. A malformed code section entry is skipped
// on its own and the entries after it still decode; in every other
// vector-encoded section, the first malformed element ends the decode
// of the rest of that section's vector. Later sections still decode.
package binary

import (
	"bytes"
	"strings"

	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
	"github.com/willf/bitset"
)

var magicBytes = []byte{0x00, 0x61, 0x73, 0x6d}

const binaryVersion uint32 = 1

// ReadModule decodes data as a WebAssembly binary module, honoring
// features for every proposal-gated section or opcode encountered.
// It always returns a non-nil module; inspect the returned sink's
// HasErrors/Diagnostics to tell a clean decode from a degraded one.
func ReadModule(data []byte, features feature.Set) (*ir.Module, *diag.Sink) {
	sink := diag.NewSink()
	m := &ir.Module{}

	cur := NewCursor(data, 0)

	release := sink.Guard(cur.Location(), "module header")
	defer release()

	magic, err := cur.ReadBytes(4)
	if err != nil || !bytes.Equal(magic, magicBytes) {
		sink.OnError(diag.MalformedEncoding, cur.Location(), "magic header not detected")
		return m, sink
	}
	versionBytes, err := cur.ReadBytes(4)
	if err != nil {
		sink.OnError(diag.Truncation, cur.Location(), "truncated version field")
		return m, sink
	}
	version := uint32(versionBytes[0]) | uint32(versionBytes[1])<<8 | uint32(versionBytes[2])<<16 | uint32(versionBytes[3])<<24
	if version != binaryVersion {
		sink.OnError(diag.MalformedEncoding, cur.Location(), "unknown binary version %d", version)
		return m, sink
	}

	readSections(cur, sink, m, features)
	return m, sink
}

func readSections(cur *Cursor, sink *diag.Sink, m *ir.Module, features feature.Set) {
	lastOrder := 0
	var seenSections bitset.BitSet // one bit per known (non-custom) section id, for duplicate detection
	for !cur.AtEnd() {
		secLoc := cur.Location()
		idByte, err := cur.ReadByte()
		if err != nil {
			sink.OnError(diag.Truncation, secLoc, "reading section id: %v", err)
			return
		}
		size, err := cur.ReadVarU32()
		if err != nil {
			sink.OnError(diag.Truncation, secLoc, "reading section size: %v", err)
			return
		}
		body, err := cur.ReadBytes(int(size))
		if err != nil {
			sink.OnError(diag.Truncation, secLoc, "reading section body: %v", err)
			return
		}

		id := ir.SectionID(idByte)
		bodySpan := ir.Span{Data: body, Offset: secLoc.Offset + bytesForVarU32(size) + 1}
		bc := NewCursor(body, bodySpan.Offset)

		logger.Printf("section %s (%d bytes)", id, len(body))

		section := ir.Section{Located: ir.AtOffset(secLoc.Offset), ID: id, Body: bodySpan}

		if id == ir.SectionCustom {
			name, err := bc.ReadName()
			if err != nil {
				sink.OnError(diag.MalformedEncoding, bc.Location(), "reading custom section name: %v", err)
				m.Sections = append(m.Sections, section)
				continue
			}
			section.Name = name
			readCustomSection(bc, sink, m, name)
			m.Sections = append(m.Sections, section)
			continue
		}

		if order := id.CanonicalOrder(); order != 0 {
			if seenSections.Test(uint(id)) {
				sink.OnError(diag.Ordering, secLoc, "%s section appears more than once", id)
			} else if order <= lastOrder {
				sink.OnError(diag.Ordering, secLoc, "%s section is out of order", id)
			} else {
				lastOrder = order
			}
			seenSections.Set(uint(id))
		}

		release := sink.Guard(secLoc, section.String())
		switch id {
		case ir.SectionType:
			readTypeSection(bc, sink, m)
		case ir.SectionImport:
			readImportSection(bc, sink, m, features)
		case ir.SectionFunction:
			readFunctionSection(bc, sink, m)
		case ir.SectionTable:
			readTableSection(bc, sink, m, features)
		case ir.SectionMemory:
			readMemorySection(bc, sink, m, features)
		case ir.SectionGlobal:
			readGlobalSection(bc, sink, m, features)
		case ir.SectionExport:
			readExportSection(bc, sink, m)
		case ir.SectionStart:
			readStartSection(bc, sink, m)
		case ir.SectionElement:
			readElementSection(bc, sink, m, features)
		case ir.SectionCode:
			readCodeSection(bc, sink, m, features)
		case ir.SectionData:
			readDataSection(bc, sink, m, features)
		case ir.SectionDataCount:
			readDataCountSection(bc, sink, m)
		case ir.SectionEvent:
			if !features.Has(feature.Exceptions) {
				sink.OnError(diag.FeatureGated, secLoc, "event section requires the exceptions feature")
			} else {
				readEventSection(bc, sink, m)
			}
		default:
			sink.OnError(diag.UnknownTag, secLoc, "unknown section id %d", idByte)
		}
		release()

		m.Sections = append(m.Sections, section)
	}
}

func readCustomSection(bc *Cursor, sink *diag.Sink, m *ir.Module, name string) {
	release := sink.Guard(bc.Location(), "custom section "+name)
	defer release()

	switch {
	case name == "name":
		m.Names = readNameSection(bc, sink)
	case name == "linking":
		m.Linking = readLinkingSection(bc, sink)
	case strings.HasPrefix(name, "reloc."):
		if rs := readRelocationSection(bc, sink, strings.TrimPrefix(name, "reloc.")); rs != nil {
			m.Relocations = append(m.Relocations, *rs)
		}
	}
}
