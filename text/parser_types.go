package text

import "github.com/matovitch/wasp/ir"

func (p *parser) parseValueType() ir.ValueType {
	switch {
	case p.isKeyword("i32"):
		p.advance()
		return ir.NumericValue(ir.I32)
	case p.isKeyword("i64"):
		p.advance()
		return ir.NumericValue(ir.I64)
	case p.isKeyword("f32"):
		p.advance()
		return ir.NumericValue(ir.F32)
	case p.isKeyword("f64"):
		p.advance()
		return ir.NumericValue(ir.F64)
	case p.isKeyword("v128"):
		p.advance()
		return ir.NumericValue(ir.V128)
	case p.peekIsSExpr("ref"):
		return ir.ReferenceValue(p.parseGeneralReferenceType())
	default:
		return ir.ReferenceValue(p.parseBareReferenceType())
	}
}

func (p *parser) parseBareReferenceType() ir.ReferenceType {
	switch {
	case p.isKeyword("funcref"):
		p.advance()
		return ir.BareReference(ir.Funcref)
	case p.isKeyword("externref"):
		p.advance()
		return ir.BareReference(ir.Externref)
	case p.isKeyword("exnref"):
		p.advance()
		return ir.BareReference(ir.Exnref)
	case p.isKeyword("anyref"):
		p.advance()
		return ir.BareReference(ir.Anyref)
	case p.isKeyword("eqref"):
		p.advance()
		return ir.BareReference(ir.Eqref)
	case p.isKeyword("i31ref"):
		p.advance()
		return ir.BareReference(ir.I31ref)
	default:
		p.errorf("expected a reference type")
		return ir.BareReference(ir.Funcref)
	}
}

func (p *parser) parseGeneralReferenceType() ir.ReferenceType {
	p.expectEnter("ref")
	null := ir.NonNull
	if p.isKeyword("null") {
		p.advance()
		null = ir.Yes
	}
	heap := p.parseHeapType()
	p.expectExit()
	return ir.GeneralReference(ir.RefType{Null: null, Heap: heap})
}

func (p *parser) parseHeapType() ir.HeapType {
	switch {
	case p.isKeyword("func"):
		p.advance()
		return ir.HeapKind(ir.Funcref)
	case p.isKeyword("extern"):
		p.advance()
		return ir.HeapKind(ir.Externref)
	case p.isKeyword("exn"):
		p.advance()
		return ir.HeapKind(ir.Exnref)
	case p.isKeyword("any"):
		p.advance()
		return ir.HeapKind(ir.Anyref)
	case p.isKeyword("eq"):
		p.advance()
		return ir.HeapKind(ir.Eqref)
	case p.isKeyword("i31"):
		p.advance()
		return ir.HeapKind(ir.I31ref)
	default:
		idx := p.parseIndex(p.types)
		return ir.HeapTypeIndex(idx)
	}
}

func (p *parser) parseReferenceType() ir.ReferenceType {
	if p.peekIsSExpr("ref") {
		return p.parseGeneralReferenceType()
	}
	return p.parseBareReferenceType()
}

func (p *parser) parseLimits() ir.Limits {
	limits := ir.Limits{Min: p.expectNat32()}
	if p.tok.Kind == Nat {
		limits.Max = p.expectNat32()
		limits.HasMax = true
	}
	if p.isKeyword("shared") {
		p.advance()
		limits.Shared = ir.SharedYes
	}
	return limits
}

func (p *parser) parseTableType() ir.TableType {
	limits := p.parseLimits()
	elem := p.parseReferenceType()
	return ir.TableType{Limits: limits, Element: elem}
}

func (p *parser) parseGlobalType() ir.GlobalType {
	if p.tryEnter("mut") {
		v := p.parseValueType()
		p.expectExit()
		return ir.GlobalType{Value: v, Mut: ir.Var}
	}
	return ir.GlobalType{Value: p.parseValueType(), Mut: ir.Const}
}

// parseFuncSig parses zero or more (param ...) groups followed by zero
// or more (result ...) groups, as used by both (type (func ...)) and
// every function-type-use site.
func (p *parser) parseFuncSig() ir.BoundFunctionType {
	var bft ir.BoundFunctionType
	for p.peekIsSExpr("param") {
		p.advance()
		p.advance()
		if p.tok.Kind == Ident {
			name := p.tok.Text
			p.advance()
			bft.Type.Params = append(bft.Type.Params, p.parseValueType())
			bft.ParamNames = append(bft.ParamNames, name)
		} else {
			for !p.atRPar() {
				bft.Type.Params = append(bft.Type.Params, p.parseValueType())
				bft.ParamNames = append(bft.ParamNames, "")
			}
		}
		p.expectExit()
	}
	for p.peekIsSExpr("result") {
		p.advance()
		p.advance()
		for !p.atRPar() {
			bft.Type.Results = append(bft.Type.Results, p.parseValueType())
		}
		p.expectExit()
	}
	return bft
}

// typeUse is the parsed form of a function-type-use site: an optional
// explicit (type ...) index, plus whatever inline param/result groups
// followed it (spec.md §4.6's FunctionTypeUse).
type typeUse struct {
	hasIndex bool
	index    uint32
	sig      ir.BoundFunctionType
}

func (p *parser) parseTypeUse() typeUse {
	var tu typeUse
	if p.tryEnter("type") {
		tu.hasIndex = true
		tu.index = p.parseIndex(p.types)
		p.expectExit()
	}
	tu.sig = p.parseFuncSig()
	return tu
}

// resolveTypeUse returns the type index a typeUse refers to, interning
// its inline signature into the type list if no explicit index was given.
func (p *parser) resolveTypeUse(tu typeUse) uint32 {
	if tu.hasIndex {
		return tu.index
	}
	return p.internType(tu.sig.Type)
}

// resolveBlockType collapses a typeUse into a BlockType, preferring
// the compact void/single-value encodings when the signature allows.
func (p *parser) resolveBlockType(tu typeUse) ir.BlockType {
	if !tu.hasIndex && len(tu.sig.Type.Params) == 0 {
		switch len(tu.sig.Type.Results) {
		case 0:
			return ir.VoidBlockType
		case 1:
			return ir.ValueBlockType(tu.sig.Type.Results[0])
		}
	}
	return ir.IndexBlockType(p.resolveTypeUse(tu))
}
