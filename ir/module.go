package ir

// ImportDesc is the tagged union of what an import binds: a function
// signature, a table, a memory, a global, or an event tag.
type ImportDesc struct {
	Kind ExternalKind

	TypeIndex uint32 // Kind == ExternFunc
	Table     TableType
	Memory    MemoryType
	Global    GlobalType
	Event     EventType
}

// ExternalKind tags the four (five, with events) spaces an import or
// export may name.
type ExternalKind uint8

const (
	ExternFunc ExternalKind = iota
	ExternTable
	ExternMemory
	ExternGlobal
	ExternEvent
)

func (k ExternalKind) String() string {
	switch k {
	case ExternFunc:
		return "func"
	case ExternTable:
		return "table"
	case ExternMemory:
		return "memory"
	case ExternGlobal:
		return "global"
	case ExternEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Import binds an externally-supplied definition into one of a
// module's index spaces.
type Import struct {
	Located

	Module string
	Name   string
	Desc   ImportDesc
}

// Function is a locally-defined function: its declared type plus (once
// the code section has been read) its locals and body.
type Function struct {
	Located

	TypeIndex uint32

	// Locals and Body are populated once the owning Module's code
	// section has been decoded; a Function produced by reading only
	// the function section has neither.
	Locals []ValueType
	Body   []Instruction

	DebugName string // from the name section, "" if unbound
}

// Table is a locally-defined table.
type Table struct {
	Located
	Type TableType
}

// Memory is a locally-defined linear memory.
type Memory struct {
	Located
	Type MemoryType
}

// Global is a locally-defined global variable with its initializer
// expression.
type Global struct {
	Located
	Type GlobalType
	Init []Instruction
}

// Export makes one of a module's definitions visible under a name.
type Export struct {
	Located

	Name  string
	Kind  ExternalKind
	Index uint32
}

// ElementInit is one entry of an element segment: either a bare
// function index (MVP encoding) or a general constant expression
// (reference-types encoding).
type ElementInit struct {
	FuncIndex uint32
	Expr      []Instruction
	IsExpr    bool
}

// ElementSegment initializes a range of a table, or stands declared
// (for validation of ref.func) / passive (for table.init) without one.
type ElementSegment struct {
	Located

	Type SegmentType

	TableIndex uint32 // Type == Active
	Offset     []Instruction

	ElemKind ReferenceType // element type for Passive/Declared segments
	Init     []ElementInit
}

// DataSegment initializes a range of linear memory, or stands passive
// for use with memory.init.
type DataSegment struct {
	Located

	Type SegmentType

	MemoryIndex uint32 // Type == Active
	Offset      []Instruction

	Init []byte

	DebugName string // from the name section, "" if unbound
}

// Event declares an exception tag (exceptions proposal).
type Event struct {
	Located
	Type EventType
}

// Module is the root of the decoded intermediate representation: every
// index space, in declaration order, plus whatever custom sections
// were recognized as structured metadata.
type Module struct {
	Types     []FunctionType
	Imports   []Import
	Functions []Function
	Tables    []Table
	Memories  []Memory
	Globals   []Global
	Exports   []Export
	Elements  []ElementSegment
	Data      []DataSegment
	Events    []Event

	HasStart bool
	Start    uint32

	HasDataCount bool
	DataCount    uint32

	// Sections preserves every section as encountered, known and
	// custom alike, in file order. Readers populate the typed fields
	// above from these entries; a formatter wanting byte-exact custom
	// section passthrough can walk Sections instead.
	Sections []Section

	Names       *NameSection
	Linking     *LinkingSection
	Relocations []RelocationSection
}

// FuncCount returns the number of functions in the combined
// import+local function index space.
func (m *Module) FuncCount() int {
	n := len(m.Functions)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ExternFunc {
			n++
		}
	}
	return n
}

// FunctionType resolves a function's signature by its index in the
// combined import+local function index space.
func (m *Module) FunctionType(funcIndex uint32) (FunctionType, bool) {
	idx := int(funcIndex)
	importFuncs := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind != ExternFunc {
			continue
		}
		if importFuncs == idx {
			return m.typeAt(imp.Desc.TypeIndex)
		}
		importFuncs++
	}
	local := idx - importFuncs
	if local < 0 || local >= len(m.Functions) {
		return FunctionType{}, false
	}
	return m.typeAt(m.Functions[local].TypeIndex)
}

func (m *Module) typeAt(idx uint32) (FunctionType, bool) {
	if int(idx) >= len(m.Types) {
		return FunctionType{}, false
	}
	return m.Types[idx], true
}
