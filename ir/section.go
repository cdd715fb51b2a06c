package ir

import "fmt"

// SectionID identifies a known binary section, in canonical order.
type SectionID uint8

const (
	SectionCustom SectionID = iota
	SectionType
	SectionImport
	SectionFunction
	SectionTable
	SectionMemory
	SectionGlobal
	SectionExport
	SectionStart
	SectionElement
	SectionCode
	SectionData
	SectionDataCount
	SectionEvent
)

func (id SectionID) String() string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionDataCount:
		return "data count"
	case SectionEvent:
		return "event"
	default:
		return fmt.Sprintf("section(%d)", uint8(id))
	}
}

// CanonicalOrder is SectionID's position in the order the core spec
// requires known sections to appear in, used to diagnose out-of-order
// sections without aborting the decode. Custom sections are exempt.
func (id SectionID) CanonicalOrder() int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionGlobal:
		return 6
	case SectionExport:
		return 7
	case SectionStart:
		return 8
	case SectionElement:
		return 9
	case SectionDataCount:
		return 10
	case SectionCode:
		return 11
	case SectionData:
		return 12
	case SectionEvent:
		return 13
	default:
		return 0
	}
}

// Span is a byte range owned by a Module's backing buffer, used to give
// lazily-decoded sections and vector elements a restartable cursor
// without copying the underlying bytes.
type Span struct {
	Data   []byte
	Offset int // absolute offset of Data[0] in the original module bytes
}

func (s Span) Len() int { return len(s.Data) }

// Section is either a known section with an identified ID, or a
// custom section carrying its own name.
type Section struct {
	Located

	ID   SectionID
	Name string // non-empty only when ID == SectionCustom
	Body Span
}

func (s Section) String() string {
	if s.ID == SectionCustom {
		return fmt.Sprintf("custom section %q (%d bytes)", s.Name, s.Body.Len())
	}
	return fmt.Sprintf("%s section (%d bytes)", s.ID, s.Body.Len())
}
