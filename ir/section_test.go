package ir

import "testing"

func TestCanonicalOrderExemptsCustom(t *testing.T) {
	if SectionCustom.CanonicalOrder() != 0 {
		t.Fatalf("custom sections should have no canonical order")
	}
	if SectionType.CanonicalOrder() >= SectionImport.CanonicalOrder() {
		t.Fatalf("type section should precede import section")
	}
	if SectionCode.CanonicalOrder() >= SectionData.CanonicalOrder() {
		t.Fatalf("code section should precede data section")
	}
}

func TestSectionStringDistinguishesCustom(t *testing.T) {
	known := Section{ID: SectionType, Body: Span{Data: make([]byte, 4)}}
	if got := known.String(); got != "type section (4 bytes)" {
		t.Fatalf("got %q", got)
	}

	custom := Section{ID: SectionCustom, Name: "name", Body: Span{Data: make([]byte, 10)}}
	if got := custom.String(); got != `custom section "name" (10 bytes)` {
		t.Fatalf("got %q", got)
	}
}
