package ir

// SymbolInfoKind tags which index space a linking-metadata symbol
// names.
type SymbolInfoKind uint8

const (
	SymbolFunction SymbolInfoKind = iota
	SymbolData
	SymbolGlobal
	SymbolSection
	SymbolEvent
)

func (k SymbolInfoKind) String() string {
	switch k {
	case SymbolFunction:
		return "F"
	case SymbolData:
		return "D"
	case SymbolGlobal:
		return "G"
	case SymbolSection:
		return "S"
	case SymbolEvent:
		return "E"
	default:
		return "?"
	}
}

// SymbolBinding is a symbol's linkage binding.
type SymbolBinding uint8

const (
	BindingGlobal SymbolBinding = iota
	BindingWeak
	BindingLocal
)

// SymbolVisibility is a symbol's visibility outside its defining
// module.
type SymbolVisibility uint8

const (
	VisibilityDefault SymbolVisibility = iota
	VisibilityHidden
)

// SymbolFlags are the bitfield attributes attached to every
// SymbolInfo, decoded from the linking section's packed flags word.
type SymbolFlags struct {
	Binding      SymbolBinding
	Visibility   SymbolVisibility
	Undefined    bool
	ExplicitName bool
}

// DataSymbolDefinition locates a defined data symbol within a data
// segment.
type DataSymbolDefinition struct {
	Index  uint32
	Offset uint32
	Size   uint32
}

// SymbolInfo is one entry of the linking section's symbol table. Its
// meaning is selected by Kind; Function/Global/Event symbols reference
// an index-space entry by Index, Data symbols carry their own name and
// an optional definition, and Section symbols name a section by index.
type SymbolInfo struct {
	Kind  SymbolInfoKind
	Flags SymbolFlags

	// Function, Global, Event:
	Index uint32
	Name  string // explicit name, "" to fall back to the bound debug name

	// Data:
	DataName    string
	DataDefined bool
	Data        DataSymbolDefinition

	// Section:
	SectionIndex uint32
}

// SegmentInfo annotates one data segment with the linker metadata
// needed to merge and align it against other object files' segments.
type SegmentInfo struct {
	Name      string
	AlignLog2 uint32
	Flags     uint32
}

// InitFunction schedules a function to run before main, ordered by
// ascending Priority.
type InitFunction struct {
	Index    uint32
	Priority uint32
}

// ComdatSymbol references one symbol-table entry that belongs to a
// comdat group.
type ComdatSymbol struct {
	Kind  SymbolInfoKind
	Index uint32
}

// ComdatInfo is a COMDAT group: a set of symbols that must be included
// or excluded from the final link as a unit.
type ComdatInfo struct {
	Name    string
	Flags   uint32
	Symbols []ComdatSymbol
}

// LinkingSection is the decoded, structured form of the "linking"
// custom section emitted by object-file producers (e.g. compilers
// targeting the wasm32-unknown-unknown/wasi object format, prior to a
// final link).
type LinkingSection struct {
	Version      uint32
	SegmentInfos []SegmentInfo
	InitFuncs    []InitFunction
	Comdats      []ComdatInfo
	Symbols      []SymbolInfo
}

func NewLinkingSection() *LinkingSection {
	return &LinkingSection{}
}

// RelocationType is the kind of index a relocation entry patches.
type RelocationType uint8

const (
	RelocFunctionIndexLEB RelocationType = iota
	RelocTableIndexSLEB
	RelocTableIndexI32
	RelocMemoryAddrLEB
	RelocMemoryAddrSLEB
	RelocMemoryAddrI32
	RelocTypeIndexLEB
	RelocGlobalIndexLEB
	RelocFunctionOffsetI32
	RelocSectionOffsetI32
	RelocEventIndexLEB
	RelocMemoryAddrRelSLEB
	RelocTableIndexRelSLEB
	RelocGlobalIndexI32
)

// RelocationEntry patches one LEB128 or fixed-width index occurring at
// Offset within its section, once the final index for Symbol is known.
type RelocationEntry struct {
	Type    RelocationType
	Offset  uint32
	Symbol  uint32 // index into the linking section's symbol table
	HasAddend bool
	Addend  int32
}

// RelocationSection lists the patches to apply to one other section,
// identified by its index among all sections (including custom ones)
// in the module.
type RelocationSection struct {
	SectionIndex uint32
	Entries      []RelocationEntry
}
