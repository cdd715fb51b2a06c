// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"testing"

	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
	"github.com/matovitch/wasp/leb128"
)

func emptyModuleBytes() []byte {
	return append([]byte{}, magicBytes[0], magicBytes[1], magicBytes[2], magicBytes[3], 0x01, 0x00, 0x00, 0x00)
}

func TestReadModuleRejectsBadMagic(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6e, 0x01, 0x00, 0x00, 0x00}
	_, sink := ReadModule(data, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a diagnostic for a corrupted magic header")
	}
}

func TestReadModuleRejectsUnknownVersion(t *testing.T) {
	data := append([]byte{}, magicBytes...)
	data = append(data, 0x02, 0x00, 0x00, 0x00)
	_, sink := ReadModule(data, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a diagnostic for an unknown binary version")
	}
}

func TestReadModuleEmptyModule(t *testing.T) {
	m, sink := ReadModule(emptyModuleBytes(), feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Sections) != 0 {
		t.Fatalf("got %d sections, want 0", len(m.Sections))
	}
}

func TestReadModuleTypeAndFunctionSections(t *testing.T) {
	data := emptyModuleBytes()

	// type section: one entry, (param) (result i32)
	typeBody := []byte{0x01, 0x60, 0x00, 0x01, 0x7f}
	data = append(data, byte(ir.SectionType))
	data = leb128.WriteUint32(data, uint32(len(typeBody)))
	data = append(data, typeBody...)

	// function section: one function, type 0
	funcBody := []byte{0x01, 0x00}
	data = append(data, byte(ir.SectionFunction))
	data = leb128.WriteUint32(data, uint32(len(funcBody)))
	data = append(data, funcBody...)

	m, sink := ReadModule(data, feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Types) != 1 || len(m.Functions) != 1 {
		t.Fatalf("got %+v", m)
	}
	if len(m.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(m.Sections))
	}
}

func TestReadModuleDetectsOutOfOrderSections(t *testing.T) {
	data := emptyModuleBytes()
	// function section before type section.
	data = append(data, byte(ir.SectionFunction), 0x01, 0x00)
	data = append(data, byte(ir.SectionType), 0x04, 0x01, 0x60, 0x00, 0x00)

	_, sink := ReadModule(data, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected an ordering diagnostic")
	}
}

func TestReadModuleDetectsDuplicateSection(t *testing.T) {
	data := emptyModuleBytes()
	data = append(data, byte(ir.SectionType), 0x04, 0x01, 0x60, 0x00, 0x00)
	data = append(data, byte(ir.SectionType), 0x04, 0x01, 0x60, 0x00, 0x00)

	_, sink := ReadModule(data, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a diagnostic for a duplicated section")
	}
}

func TestReadModuleUnknownSectionID(t *testing.T) {
	data := emptyModuleBytes()
	data = append(data, 0x7f, 0x00) // section id 0x7f is not defined
	_, sink := ReadModule(data, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a diagnostic for an unknown section id")
	}
}

func TestReadModuleEventSectionRequiresExceptions(t *testing.T) {
	data := emptyModuleBytes()
	data = append(data, byte(ir.SectionEvent), 0x01, 0x00)
	_, sink := ReadModule(data, feature.MVP)
	if !sink.HasErrors() {
		t.Fatalf("expected a feature-gated diagnostic for an event section")
	}

	data2 := emptyModuleBytes()
	data2 = append(data2, byte(ir.SectionEvent), 0x01, 0x00)
	m, sink2 := ReadModule(data2, feature.NewSet(feature.Exceptions))
	if sink2.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink2.Diagnostics())
	}
	if len(m.Events) != 0 {
		t.Fatalf("got %+v", m.Events)
	}
}

func TestReadModuleCustomSectionPreservesName(t *testing.T) {
	data := emptyModuleBytes()
	body := []byte{0x07}
	body = append(body, "comment"...)
	body = append(body, "hi there"...)
	data = append(data, byte(ir.SectionCustom))
	data = leb128.WriteUint32(data, uint32(len(body)))
	data = append(data, body...)

	m, sink := ReadModule(data, feature.MVP)
	if sink.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", sink.Diagnostics())
	}
	if len(m.Sections) != 1 || m.Sections[0].Name != "comment" {
		t.Fatalf("got %+v", m.Sections)
	}
}
