package text

import (
	"fmt"
	"math"
	"strings"

	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
)

// parser walks a token stream with one token of lookahead, after the
// teacher's wast.parser shape: two scans prime tok/next, and every
// subsequent advance keeps that invariant.
type parser struct {
	s    *Scanner
	tok  Token
	next Token

	sink     *diag.Sink
	features feature.Set

	types   *ir.Scope
	funcs   *ir.Scope
	tables  *ir.Scope
	mems    *ir.Scope
	globals *ir.Scope
	elems   *ir.Scope
	datas   *ir.Scope
	events  *ir.Scope

	locals *ir.Scope
	labels ir.LabelStack

	typeUse   map[string]uint32
	typeOrder []ir.FunctionType

	seenNonImport bool
	seenStart     bool

	module *ir.Module
}

// ParseModule parses a complete WebAssembly text format module and
// returns the populated IR plus whatever diagnostics were raised.
// Malformed input never panics; the parser resynchronizes at the
// nearest enclosing ')' and keeps going; ParseModule's caller checks
// sink.HasErrors() the same way binary.ReadModule's caller does.
func ParseModule(src string, features feature.Set) (*ir.Module, *diag.Sink) {
	sink := diag.NewSink()
	p := newParser(src, features, sink)
	p.parseModule()
	p.module.Types = p.typeOrder
	return p.module, sink
}

func newParser(src string, features feature.Set, sink *diag.Sink) *parser {
	p := &parser{
		s:        NewScanner(src),
		sink:     sink,
		features: features,
		types:    ir.NewScope(),
		funcs:    ir.NewScope(),
		tables:   ir.NewScope(),
		mems:     ir.NewScope(),
		globals:  ir.NewScope(),
		elems:    ir.NewScope(),
		datas:    ir.NewScope(),
		events:   ir.NewScope(),
		locals:   ir.NewScope(),
		typeUse:  make(map[string]uint32),
		module:   &ir.Module{},
	}
	p.advance()
	p.advance()
	return p
}

func (p *parser) advance() {
	p.tok = p.next
	t, err := p.s.Scan()
	if err != nil {
		p.errorf("%v", err)
		t = Token{Kind: EOF, Pos: p.tok.Pos}
	}
	p.next = t
}

func (p *parser) loc() diag.Location {
	return diag.Location{Line: p.tok.Pos.Line, Column: p.tok.Pos.Column}
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.sink.OnError(diag.Semantic, p.loc(), format, args...)
}

func (p *parser) atLPar() bool { return p.tok.Kind == LPar }
func (p *parser) atRPar() bool { return p.tok.Kind == RPar }

func (p *parser) isKeyword(word string) bool {
	return p.tok.Kind == Keyword && p.tok.Text == word
}

// peekIsSExpr reports whether the upcoming tokens open an S-expression
// headed by the given keyword, without consuming anything.
func (p *parser) peekIsSExpr(word string) bool {
	return p.tok.Kind == LPar && p.next.Kind == Keyword && p.next.Text == word
}

// tryEnter consumes "(" word if present and reports whether it did.
func (p *parser) tryEnter(word string) bool {
	if p.peekIsSExpr(word) {
		p.advance()
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectEnter(word string) {
	if !p.tryEnter(word) {
		p.errorf("expected (%s ...)", word)
	}
}

func (p *parser) expectExit() {
	if p.tok.Kind != RPar {
		p.errorf("expected )")
		p.skipToMatchingClose()
		return
	}
	p.advance()
}

func (p *parser) expectKeyword(word string) {
	if !p.isKeyword(word) {
		p.errorf("expected %q", word)
		return
	}
	p.advance()
}

// skipToMatchingClose discards tokens up to and including the ')'
// that balances one already-open '('. Used to resynchronize after a
// malformed production so one bad field doesn't abort the whole parse.
func (p *parser) skipToMatchingClose() {
	depth := 1
	for depth > 0 {
		switch p.tok.Kind {
		case EOF:
			return
		case LPar:
			depth++
			p.advance()
		case RPar:
			depth--
			p.advance()
		default:
			p.advance()
		}
	}
}

func (p *parser) optionalID() string {
	if p.tok.Kind == Ident {
		name := p.tok.Text
		p.advance()
		return name
	}
	return ""
}

// bind declares name in scope, assigning it the next sequential index
// regardless of whether name is empty or a duplicate, per spec.md
// §4.6's read_bind_var_opt: a duplicate still consumes an index, it
// just doesn't resolve.
func (p *parser) bind(scope *ir.Scope, name string) uint32 {
	idx, ok := scope.Declare(name)
	if !ok {
		p.sink.OnError(diag.DuplicateBinding, p.loc(), "duplicate binding $%s", name)
	}
	return idx
}

func (p *parser) expectText() string {
	if p.tok.Kind != Text {
		p.errorf("expected a string literal")
		return ""
	}
	s, _ := p.tok.Value.(string)
	p.advance()
	return s
}

// parseIndex resolves a numeric-or-symbolic reference into scope's
// index space.
func (p *parser) parseIndex(scope *ir.Scope) uint32 {
	switch p.tok.Kind {
	case Ident:
		name := p.tok.Text
		p.advance()
		idx, ok := scope.Resolve(name)
		if !ok {
			p.errorf("unresolved identifier $%s", name)
			return 0
		}
		return idx
	case Nat:
		lit, _ := p.tok.Value.(*BigInt)
		u, err := lit.U()
		if err != nil {
			p.errorf("%v", err)
		}
		p.advance()
		return uint32(u)
	default:
		p.errorf("expected an index")
		return 0
	}
}

// parseLabelIndex resolves a branch target, which lives in the label
// stack rather than a Scope since labels may shadow each other.
func (p *parser) parseLabelIndex() uint32 {
	switch p.tok.Kind {
	case Ident:
		name := p.tok.Text
		p.advance()
		depth, ok := p.labels.Resolve(name)
		if !ok {
			p.errorf("unresolved label $%s", name)
			return 0
		}
		return depth
	case Nat:
		lit, _ := p.tok.Value.(*BigInt)
		u, err := lit.U()
		if err != nil {
			p.errorf("%v", err)
		}
		p.advance()
		return uint32(u)
	default:
		p.errorf("expected a label")
		return 0
	}
}

func (p *parser) expectNat32() uint32 {
	if p.tok.Kind != Nat {
		p.errorf("expected an unsigned integer literal")
		return 0
	}
	lit, _ := p.tok.Value.(*BigInt)
	u, err := lit.U()
	if err != nil {
		p.errorf("%v", err)
	}
	p.advance()
	return uint32(u)
}

func (p *parser) expectS32() int32 {
	if p.tok.Kind != Nat && p.tok.Kind != Int {
		p.errorf("expected an i32 literal")
		return 0
	}
	lit, _ := p.tok.Value.(*BigInt)
	i, err := lit.I()
	if err != nil {
		p.errorf("%v", err)
	}
	p.advance()
	return int32(i)
}

func (p *parser) expectS64() int64 {
	if p.tok.Kind != Nat && p.tok.Kind != Int {
		p.errorf("expected an i64 literal")
		return 0
	}
	lit, _ := p.tok.Value.(*BigInt)
	i, err := lit.I()
	if err != nil {
		p.errorf("%v", err)
	}
	p.advance()
	return i
}

func (p *parser) expectF32() float32 {
	if p.tok.Kind != Nat && p.tok.Kind != Int && p.tok.Kind != Float {
		p.errorf("expected an f32 literal")
		return 0
	}
	lit, _ := p.tok.Value.(*BigInt)
	p.advance()
	if isNaN, payload, hasPayload := lit.IsNaN(); isNaN {
		bits := uint32(0x7fc00000)
		if hasPayload {
			bits = 0x7f800000 | (uint32(payload) & 0x7fffff)
		}
		if lit.Neg {
			bits |= 0x80000000
		}
		return math.Float32frombits(bits)
	}
	bf, err := lit.F()
	if err != nil {
		p.errorf("%v", err)
		return 0
	}
	f, _ := bf.Float32()
	return f
}

func (p *parser) expectF64() float64 {
	if p.tok.Kind != Nat && p.tok.Kind != Int && p.tok.Kind != Float {
		p.errorf("expected an f64 literal")
		return 0
	}
	lit, _ := p.tok.Value.(*BigInt)
	p.advance()
	if isNaN, payload, hasPayload := lit.IsNaN(); isNaN {
		bits := uint64(0x7ff8000000000000)
		if hasPayload {
			bits = 0x7ff0000000000000 | (payload & 0xfffffffffffff)
		}
		if lit.Neg {
			bits |= 0x8000000000000000
		}
		return math.Float64frombits(bits)
	}
	bf, err := lit.F()
	if err != nil {
		p.errorf("%v", err)
		return 0
	}
	f, _ := bf.Float64()
	return f
}

func constI32(v int32) ir.Instruction {
	return ir.Instruction{Opcode: ir.OpI32Const, Immediate: ir.Immediate{Shape: ir.ImmS32, S32: v}}
}

// toFeature converts an ir.FeatureFlag to its feature.Flag, mirroring
// binary.toFeature; the two enums share declaration order so that the
// decoder and the parser agree on which bit means what.
func toFeature(f ir.FeatureFlag) feature.Flag {
	return feature.Flag(uint(f))
}

func signatureKey(ft ir.FunctionType) string {
	var b strings.Builder
	for _, v := range ft.Params {
		fmt.Fprintf(&b, "%s,", v)
	}
	b.WriteByte(';')
	for _, v := range ft.Results {
		fmt.Fprintf(&b, "%s,", v)
	}
	return b.String()
}

// internType interns ft into the running type list, reusing an
// existing entry (explicit or previously-synthesized) with an
// identical signature. Per spec.md §4.6 this dedup should ideally
// span the whole module regardless of declaration order; this parser
// instead interns against only the types seen so far in the single
// left-to-right pass, a scoped simplification recorded in DESIGN.md.
func (p *parser) internType(ft ir.FunctionType) uint32 {
	key := signatureKey(ft)
	if idx, ok := p.typeUse[key]; ok {
		return idx
	}
	idx := uint32(len(p.typeOrder))
	p.typeOrder = append(p.typeOrder, ft)
	p.typeUse[key] = idx
	return idx
}
