// Package ir is the unified, language-neutral intermediate
// representation populated by both the binary decoder and the text
// parser, and traversed by the formatters and the validator entry.
//
// IR nodes are created once by a reader and never mutated thereafter;
// every node is owned by the module that contains it. Leaves carry an
// optional Location used for diagnostics and round-trip rendering.
package ir

import (
	"fmt"

	"github.com/matovitch/wasp/diag"
)

// NumericType is one of the WebAssembly scalar value types.
type NumericType uint8

const (
	I32 NumericType = iota
	I64
	F32
	F64
	V128
)

func (t NumericType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	default:
		return fmt.Sprintf("numtype(%d)", uint8(t))
	}
}

// RequiresSIMD reports whether this numeric type is gated by the SIMD
// proposal (only V128 is); I32/I64/F32/F64 are MVP and gated by nothing.
func (t NumericType) RequiresSIMD() bool {
	return t == V128
}

// ReferenceKind is a built-in reference type, as opposed to an indexed
// (type-use) heap type.
type ReferenceKind uint8

const (
	Funcref ReferenceKind = iota
	Externref
	Exnref
	Anyref
	Eqref
	I31ref
)

func (k ReferenceKind) String() string {
	switch k {
	case Funcref:
		return "funcref"
	case Externref:
		return "externref"
	case Exnref:
		return "exnref"
	case Anyref:
		return "anyref"
	case Eqref:
		return "eqref"
	case I31ref:
		return "i31ref"
	default:
		return fmt.Sprintf("refkind(%d)", uint8(k))
	}
}

// HeapType is either a built-in reference kind or an index into the
// type section (function-references / GC proposals).
type HeapType struct {
	Kind      ReferenceKind
	TypeIndex uint32
	IsIndex   bool
}

func HeapKind(k ReferenceKind) HeapType { return HeapType{Kind: k} }
func HeapTypeIndex(idx uint32) HeapType { return HeapType{TypeIndex: idx, IsIndex: true} }

func (h HeapType) String() string {
	if h.IsIndex {
		return fmt.Sprintf("type[%d]", h.TypeIndex)
	}
	return h.Kind.String()
}

// RefType is a heap type with explicit nullability, as introduced by the
// function-references and GC proposals.
type RefType struct {
	Null Null
	Heap HeapType
}

func (r RefType) String() string {
	if r.Null == Yes {
		return fmt.Sprintf("ref null %s", r.Heap)
	}
	return fmt.Sprintf("ref %s", r.Heap)
}

// ReferenceType is either a bare built-in reference kind (MVP /
// reference-types proposal) or a fully general RefType.
type ReferenceType struct {
	Kind  ReferenceKind
	Ref   RefType
	IsRef bool
}

func BareReference(k ReferenceKind) ReferenceType { return ReferenceType{Kind: k} }
func GeneralReference(r RefType) ReferenceType    { return ReferenceType{Ref: r, IsRef: true} }

func (r ReferenceType) String() string {
	if r.IsRef {
		return r.Ref.String()
	}
	return r.Kind.String()
}

// AsHeapType normalizes a bare reference kind to its HeapType form, so
// callers that only care about the heap type needn't branch on IsRef.
func (r ReferenceType) AsHeapType() HeapType {
	if r.IsRef {
		return r.Ref.Heap
	}
	return HeapKind(r.Kind)
}

// ValueType is a numeric or reference value type.
type ValueType struct {
	Numeric   NumericType
	Reference ReferenceType
	IsRef     bool
}

func NumericValue(n NumericType) ValueType     { return ValueType{Numeric: n} }
func ReferenceValue(r ReferenceType) ValueType { return ValueType{Reference: r, IsRef: true} }

func (v ValueType) String() string {
	if v.IsRef {
		return v.Reference.String()
	}
	return v.Numeric.String()
}

// BlockType is the result annotation of a structured control instruction.
type BlockType struct {
	kind  blockTypeKind
	value ValueType
	index uint32
}

type blockTypeKind uint8

const (
	blockVoid blockTypeKind = iota
	blockValue
	blockIndex
)

var VoidBlockType = BlockType{kind: blockVoid}

func ValueBlockType(v ValueType) BlockType  { return BlockType{kind: blockValue, value: v} }
func IndexBlockType(idx uint32) BlockType   { return BlockType{kind: blockIndex, index: idx} }

func (b BlockType) IsVoid() bool  { return b.kind == blockVoid }
func (b BlockType) IsValue() bool { return b.kind == blockValue }
func (b BlockType) IsIndex() bool { return b.kind == blockIndex }

func (b BlockType) Value() ValueType {
	return b.value
}

func (b BlockType) Index() uint32 {
	return b.index
}

func (b BlockType) String() string {
	switch b.kind {
	case blockVoid:
		return "[]"
	case blockValue:
		return fmt.Sprintf("[%s]", b.value)
	default:
		return fmt.Sprintf("type[%d]", b.index)
	}
}

// Mutability distinguishes constant from mutable globals.
type Mutability uint8

const (
	Const Mutability = iota
	Var
)

func (m Mutability) String() string {
	if m == Var {
		return "mut"
	}
	return "const"
}

// Shared marks a memory or table as usable from multiple agents
// (threads proposal).
type Shared uint8

const (
	NotShared Shared = iota
	SharedYes
)

// Null marks a reference type as accepting the null value.
type Null uint8

const (
	NonNull Null = iota
	Yes
)

// SegmentType is the initialization mode of an element or data segment.
type SegmentType uint8

const (
	Active SegmentType = iota
	Passive
	Declared
)

func (s SegmentType) String() string {
	switch s {
	case Active:
		return "active"
	case Passive:
		return "passive"
	case Declared:
		return "declared"
	default:
		return "unknown"
	}
}

// Limits bounds the size of a table or memory.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
	Shared Shared
}

// TableType describes a table's element type and size bounds.
type TableType struct {
	Limits  Limits
	Element ReferenceType
}

// MemoryType describes a linear memory's size bounds, in page units.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global variable's value type and mutability.
type GlobalType struct {
	Value ValueType
	Mut   Mutability
}

// EventType describes an exception tag (exceptions proposal).
type EventType struct {
	Attribute uint32
	TypeIndex uint32
}

// FunctionType is a function signature: ordered parameter and result
// value types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

func (f FunctionType) Equal(o FunctionType) bool {
	if len(f.Params) != len(o.Params) || len(f.Results) != len(o.Results) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range f.Results {
		if f.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

func (f FunctionType) String() string {
	s := ""
	if len(f.Params) != 0 {
		s += " (param"
		for _, p := range f.Params {
			s += " " + p.String()
		}
		s += ")"
	}
	if len(f.Results) != 0 {
		s += " (result"
		for _, r := range f.Results {
			s += " " + r.String()
		}
		s += ")"
	}
	return s
}

// BoundFunctionType is a FunctionType whose parameters may additionally
// carry a name binding, as produced by the text parser.
type BoundFunctionType struct {
	Type       FunctionType
	ParamNames []string // parallel to Type.Params; "" if unbound
}

// Located pairs any value with its source location. Embed it in a
// struct to make the struct a "leaf" per the IR's location contract.
type Located struct {
	Location diag.Location
	HasLoc   bool
}

func (l Located) Loc() (diag.Location, bool) { return l.Location, l.HasLoc }

func AtOffset(offset int) Located {
	return Located{Location: diag.Location{Offset: offset}, HasLoc: true}
}

func AtTextPos(line, column int) Located {
	return Located{Location: diag.Location{Line: line, Column: column}, HasLoc: true}
}
