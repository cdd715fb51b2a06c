// Package diag implements the error sink: an accumulator of diagnostics
// carrying a byte-offset context stack, shared by the binary reader and
// the text parser.
package diag

import (
	"fmt"
	"strings"
)

// Kind classifies a Diagnostic by the broad reason it was raised.
type Kind int

const (
	Truncation Kind = iota
	MalformedEncoding
	UnknownTag
	FeatureGated
	DuplicateBinding
	Ordering
	ShapeMismatch
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Truncation:
		return "truncation"
	case MalformedEncoding:
		return "malformed encoding"
	case UnknownTag:
		return "unknown tag"
	case FeatureGated:
		return "feature gated"
	case DuplicateBinding:
		return "duplicate binding"
	case Ordering:
		return "ordering"
	case ShapeMismatch:
		return "shape mismatch"
	case Semantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// Location is a source-byte span (binary) or line:column span (text).
// Only one of the two coordinate systems is meaningful for a given
// Location; the zero value of the unused one is left at zero.
type Location struct {
	Offset int // byte offset into the input, binary format
	Length int // span length in bytes, 0 if unknown/irrelevant

	Line, Column int // 1-based, text format
}

// IsText reports whether this Location carries line:column coordinates.
func (l Location) IsText() bool {
	return l.Line > 0
}

func (l Location) String() string {
	if l.IsText() {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("0x%x", l.Offset)
}

// Diagnostic is a single error or warning, with the breadcrumb of
// productions active when it was raised.
type Diagnostic struct {
	Kind     Kind
	Location Location
	Message  string
	Context  []string // outermost first, e.g. ["type_section", "function_type", "value_type"]
}

func (d *Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Location, d.Message)
	if len(d.Context) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(d.Context, " → "))
		b.WriteString(")")
	}
	return b.String()
}

// Sink accumulates diagnostics raised by a single decode and tracks the
// stack of production contexts currently active.
//
// A Sink is not safe for concurrent use; callers processing independent
// modules in parallel must use one Sink per module, per spec §5.
type Sink struct {
	diagnostics []Diagnostic
	stack       []contextFrame
}

type contextFrame struct {
	location    Location
	description string
}

// NewSink returns an empty error sink.
func NewSink() *Sink {
	return &Sink{}
}

// PushContext acquires a context frame, to be released with PopContext.
// Prefer Guard for guaranteed release on every exit path.
func (s *Sink) PushContext(loc Location, description string) {
	s.stack = append(s.stack, contextFrame{location: loc, description: description})
}

// PopContext releases the innermost context frame.
func (s *Sink) PopContext() {
	if len(s.stack) == 0 {
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
}

// OnError records a diagnostic at loc, tagged with the current context
// breadcrumb. It never aborts the caller; the caller decides whether the
// current production can continue.
func (s *Sink) OnError(kind Kind, loc Location, format string, args ...interface{}) {
	breadcrumb := make([]string, len(s.stack))
	for i, f := range s.stack {
		breadcrumb[i] = f.description
	}
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Kind:     kind,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
		Context:  breadcrumb,
	})
}

// Diagnostics returns every diagnostic raised so far, in the order
// they were recorded.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// HasErrors reports whether any diagnostic has been recorded.
func (s *Sink) HasErrors() bool {
	return len(s.diagnostics) > 0
}

// Guard acquires a context frame and returns a function that releases it.
// Intended for use with defer so the frame is released on every exit
// path, including early returns on error:
//
//	defer s.Guard(loc, "function_type")()
func (s *Sink) Guard(loc Location, description string) func() {
	s.PushContext(loc, description)
	return s.PopContext
}
