package text

import (
	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/ir"
)

func (p *parser) parseModule() {
	hadOuter := p.tryEnter("module")
	if hadOuter && p.tok.Kind == Ident {
		name := p.tok.Text
		p.advance()
		if p.module.Names == nil {
			p.module.Names = ir.NewNameSection()
		}
		p.module.Names.HasModuleName = true
		p.module.Names.ModuleName = name
	}
	for !p.atRPar() && p.tok.Kind != EOF {
		p.parseModuleField()
	}
	if hadOuter {
		p.expectExit()
	}
}

func (p *parser) parseModuleField() {
	switch {
	case p.peekIsSExpr("type"):
		p.parseTypeField()
	case p.peekIsSExpr("import"):
		p.parseImportField()
	case p.peekIsSExpr("func"):
		p.parseFuncField()
	case p.peekIsSExpr("table"):
		p.parseTableField()
	case p.peekIsSExpr("memory"):
		p.parseMemoryField()
	case p.peekIsSExpr("global"):
		p.parseGlobalField()
	case p.peekIsSExpr("export"):
		p.parseExportField()
	case p.peekIsSExpr("start"):
		p.parseStartField()
	case p.peekIsSExpr("elem"):
		p.parseElemField()
	case p.peekIsSExpr("data"):
		p.parseDataField()
	case p.peekIsSExpr("event"):
		p.parseEventField()
	default:
		p.errorf("unrecognized module field")
		if p.tok.Kind == LPar {
			p.advance()
			p.skipToMatchingClose()
		} else {
			p.advance()
		}
	}
}

func (p *parser) parseTypeField() {
	p.advance() // '('
	p.advance() // 'type'
	name := p.optionalID()
	p.expectEnter("func")
	sig := p.parseFuncSig()
	p.expectExit()
	p.expectExit()

	idx := p.bind(p.types, name)
	p.typeOrder = append(p.typeOrder, sig.Type)
	p.typeUse[signatureKey(sig.Type)] = idx
}

func (p *parser) parseImportField() {
	loc := p.loc()
	p.advance()
	p.advance()
	if p.seenNonImport {
		p.sink.OnError(diag.Ordering, loc, "import declared after a non-import definition")
	}
	mod := p.expectText()
	name := p.expectText()
	desc := p.parseImportDesc()
	p.expectExit()
	p.module.Imports = append(p.module.Imports, ir.Import{
		Located: ir.AtTextPos(loc.Line, loc.Column),
		Module:  mod, Name: name, Desc: desc,
	})
}

func (p *parser) parseImportDesc() ir.ImportDesc {
	switch {
	case p.tryEnter("func"):
		name := p.optionalID()
		tu := p.parseTypeUse()
		p.expectExit()
		idx := p.resolveTypeUse(tu)
		p.bind(p.funcs, name)
		return ir.ImportDesc{Kind: ir.ExternFunc, TypeIndex: idx}
	case p.tryEnter("table"):
		name := p.optionalID()
		tt := p.parseTableType()
		p.expectExit()
		p.bind(p.tables, name)
		return ir.ImportDesc{Kind: ir.ExternTable, Table: tt}
	case p.tryEnter("memory"):
		name := p.optionalID()
		mt := ir.MemoryType{Limits: p.parseLimits()}
		p.expectExit()
		p.bind(p.mems, name)
		return ir.ImportDesc{Kind: ir.ExternMemory, Memory: mt}
	case p.tryEnter("global"):
		name := p.optionalID()
		gt := p.parseGlobalType()
		p.expectExit()
		p.bind(p.globals, name)
		return ir.ImportDesc{Kind: ir.ExternGlobal, Global: gt}
	case p.tryEnter("event"):
		name := p.optionalID()
		tu := p.parseTypeUse()
		p.expectExit()
		idx := p.resolveTypeUse(tu)
		p.bind(p.events, name)
		return ir.ImportDesc{Kind: ir.ExternEvent, Event: ir.EventType{TypeIndex: idx}}
	default:
		p.errorf("expected an import description")
		return ir.ImportDesc{}
	}
}

// parseInlineExports consumes zero or more leading (export "e") forms,
// the sugar shared by func/table/memory/global/event fields.
func (p *parser) parseInlineExports() []string {
	var names []string
	for p.peekIsSExpr("export") {
		p.advance()
		p.advance()
		names = append(names, p.expectText())
		p.expectExit()
	}
	return names
}

func (p *parser) bindExports(names []string, kind ir.ExternalKind, idx uint32) {
	for _, n := range names {
		p.module.Exports = append(p.module.Exports, ir.Export{Name: n, Kind: kind, Index: idx})
	}
}

func (p *parser) parseFuncField() {
	loc := p.loc()
	p.advance()
	p.advance()
	name := p.optionalID()
	exportNames := p.parseInlineExports()

	if p.peekIsSExpr("import") {
		if p.seenNonImport {
			p.sink.OnError(diag.Ordering, loc, "import declared after a non-import definition")
		}
		p.advance()
		p.advance()
		mod := p.expectText()
		iname := p.expectText()
		p.expectExit()
		tu := p.parseTypeUse()
		p.expectExit()
		idx := p.resolveTypeUse(tu)
		funcIdx := p.bind(p.funcs, name)
		p.module.Imports = append(p.module.Imports, ir.Import{
			Located: ir.AtTextPos(loc.Line, loc.Column),
			Module:  mod, Name: iname,
			Desc: ir.ImportDesc{Kind: ir.ExternFunc, TypeIndex: idx},
		})
		p.bindExports(exportNames, ir.ExternFunc, funcIdx)
		return
	}

	p.seenNonImport = true
	tu := p.parseTypeUse()
	funcIdx := p.bind(p.funcs, name)
	p.bindExports(exportNames, ir.ExternFunc, funcIdx)

	p.locals = ir.NewScope()
	for _, pn := range tu.sig.ParamNames {
		p.locals.Declare(pn)
	}
	var localTypes []ir.ValueType
	for p.peekIsSExpr("local") {
		p.advance()
		p.advance()
		if p.tok.Kind == Ident {
			lname := p.tok.Text
			p.advance()
			localTypes = append(localTypes, p.parseValueType())
			p.locals.Declare(lname)
		} else {
			for !p.atRPar() {
				localTypes = append(localTypes, p.parseValueType())
				p.locals.Declare("")
			}
		}
		p.expectExit()
	}

	p.labels = ir.LabelStack{}
	body := p.parseInstrList()
	p.expectExit()

	idx := p.resolveTypeUse(tu)
	p.module.Functions = append(p.module.Functions, ir.Function{
		Located:   ir.AtTextPos(loc.Line, loc.Column),
		TypeIndex: idx,
		Locals:    localTypes,
		Body:      body,
	})
}

func (p *parser) parseTableField() {
	loc := p.loc()
	p.advance()
	p.advance()
	name := p.optionalID()
	exportNames := p.parseInlineExports()

	if p.peekIsSExpr("import") {
		p.advance()
		p.advance()
		mod := p.expectText()
		iname := p.expectText()
		p.expectExit()
		tt := p.parseTableType()
		p.expectExit()
		idx := p.bind(p.tables, name)
		p.module.Imports = append(p.module.Imports, ir.Import{
			Located: ir.AtTextPos(loc.Line, loc.Column),
			Module:  mod, Name: iname, Desc: ir.ImportDesc{Kind: ir.ExternTable, Table: tt},
		})
		p.bindExports(exportNames, ir.ExternTable, idx)
		return
	}

	p.seenNonImport = true
	tt := p.parseTableType()
	idx := p.bind(p.tables, name)
	p.bindExports(exportNames, ir.ExternTable, idx)

	if p.peekIsSExpr("elem") {
		p.advance()
		p.advance()
		var inits []ir.ElementInit
		for !p.atRPar() {
			inits = append(inits, ir.ElementInit{FuncIndex: p.parseIndex(p.funcs)})
		}
		p.expectExit()
		count := uint32(len(inits))
		tt.Limits = ir.Limits{Min: count, Max: count, HasMax: true}
		p.module.Elements = append(p.module.Elements, ir.ElementSegment{
			Located:    ir.AtTextPos(loc.Line, loc.Column),
			Type:       ir.Active,
			TableIndex: idx,
			Offset:     []ir.Instruction{constI32(0)},
			ElemKind:   ir.BareReference(ir.Funcref),
			Init:       inits,
		})
	}
	p.expectExit()
	p.module.Tables = append(p.module.Tables, ir.Table{Located: ir.AtTextPos(loc.Line, loc.Column), Type: tt})
}

func (p *parser) parseMemoryField() {
	loc := p.loc()
	p.advance()
	p.advance()
	name := p.optionalID()
	exportNames := p.parseInlineExports()

	if p.peekIsSExpr("import") {
		p.advance()
		p.advance()
		mod := p.expectText()
		iname := p.expectText()
		p.expectExit()
		mt := ir.MemoryType{Limits: p.parseLimits()}
		p.expectExit()
		idx := p.bind(p.mems, name)
		p.module.Imports = append(p.module.Imports, ir.Import{
			Located: ir.AtTextPos(loc.Line, loc.Column),
			Module:  mod, Name: iname, Desc: ir.ImportDesc{Kind: ir.ExternMemory, Memory: mt},
		})
		p.bindExports(exportNames, ir.ExternMemory, idx)
		return
	}

	p.seenNonImport = true

	if p.peekIsSExpr("data") {
		p.advance()
		p.advance()
		var data []byte
		for p.tok.Kind == Text {
			s, _ := p.tok.Value.(string)
			data = append(data, []byte(s)...)
			p.advance()
		}
		p.expectExit()
		idx := p.bind(p.mems, name)
		p.bindExports(exportNames, ir.ExternMemory, idx)
		p.expectExit()

		pages := uint32((len(data) + 65535) / 65536)
		p.module.Memories = append(p.module.Memories, ir.Memory{
			Located: ir.AtTextPos(loc.Line, loc.Column),
			Type:    ir.MemoryType{Limits: ir.Limits{Min: pages, Max: pages, HasMax: true}},
		})
		p.module.Data = append(p.module.Data, ir.DataSegment{
			Located:     ir.AtTextPos(loc.Line, loc.Column),
			Type:        ir.Active,
			MemoryIndex: idx,
			Offset:      []ir.Instruction{constI32(0)},
			Init:        data,
		})
		return
	}

	mt := ir.MemoryType{Limits: p.parseLimits()}
	idx := p.bind(p.mems, name)
	p.bindExports(exportNames, ir.ExternMemory, idx)
	p.expectExit()
	p.module.Memories = append(p.module.Memories, ir.Memory{Located: ir.AtTextPos(loc.Line, loc.Column), Type: mt})
}

func (p *parser) parseGlobalField() {
	loc := p.loc()
	p.advance()
	p.advance()
	name := p.optionalID()
	exportNames := p.parseInlineExports()

	if p.peekIsSExpr("import") {
		p.advance()
		p.advance()
		mod := p.expectText()
		iname := p.expectText()
		p.expectExit()
		gt := p.parseGlobalType()
		p.expectExit()
		idx := p.bind(p.globals, name)
		p.module.Imports = append(p.module.Imports, ir.Import{
			Located: ir.AtTextPos(loc.Line, loc.Column),
			Module:  mod, Name: iname, Desc: ir.ImportDesc{Kind: ir.ExternGlobal, Global: gt},
		})
		p.bindExports(exportNames, ir.ExternGlobal, idx)
		return
	}

	p.seenNonImport = true
	gt := p.parseGlobalType()
	idx := p.bind(p.globals, name)
	p.bindExports(exportNames, ir.ExternGlobal, idx)
	init := p.parseInstrList()
	p.expectExit()
	p.module.Globals = append(p.module.Globals, ir.Global{Located: ir.AtTextPos(loc.Line, loc.Column), Type: gt, Init: init})
}

func (p *parser) parseExportField() {
	p.advance()
	p.advance()
	name := p.expectText()
	kind, idx := p.parseExportDesc()
	p.expectExit()
	p.module.Exports = append(p.module.Exports, ir.Export{Name: name, Kind: kind, Index: idx})
}

func (p *parser) parseExportDesc() (ir.ExternalKind, uint32) {
	switch {
	case p.tryEnter("func"):
		idx := p.parseIndex(p.funcs)
		p.expectExit()
		return ir.ExternFunc, idx
	case p.tryEnter("table"):
		idx := p.parseIndex(p.tables)
		p.expectExit()
		return ir.ExternTable, idx
	case p.tryEnter("memory"):
		idx := p.parseIndex(p.mems)
		p.expectExit()
		return ir.ExternMemory, idx
	case p.tryEnter("global"):
		idx := p.parseIndex(p.globals)
		p.expectExit()
		return ir.ExternGlobal, idx
	case p.tryEnter("event"):
		idx := p.parseIndex(p.events)
		p.expectExit()
		return ir.ExternEvent, idx
	default:
		p.errorf("expected an export description")
		return ir.ExternFunc, 0
	}
}

func (p *parser) parseStartField() {
	loc := p.loc()
	p.advance()
	p.advance()
	if p.seenStart {
		p.sink.OnError(diag.Semantic, loc, "a module may declare at most one start function")
	}
	p.seenStart = true
	idx := p.parseIndex(p.funcs)
	p.expectExit()
	p.module.HasStart = true
	p.module.Start = idx
}

// parseElemField covers the common active/declared/passive element
// segment forms with a funcidx element list. The general (non-funcidx)
// expression-list element forms are left to the binary reader, which
// already exercises all eight wire encodings exhaustively; see
// DESIGN.md for the text-syntax scoping rationale.
func (p *parser) parseElemField() {
	loc := p.loc()
	p.advance()
	p.advance()
	name := p.optionalID()

	seg := ir.ElementSegment{
		Located:  ir.AtTextPos(loc.Line, loc.Column),
		ElemKind: ir.BareReference(ir.Funcref),
	}

	switch {
	case p.isKeyword("declare"):
		p.advance()
		seg.Type = ir.Declared
	case p.peekIsSExpr("table"):
		p.advance()
		p.advance()
		seg.TableIndex = p.parseIndex(p.tables)
		p.expectExit()
		seg.Type = ir.Active
		seg.Offset = p.parseOffsetClause()
	case p.peekIsSExpr("offset"):
		seg.Type = ir.Active
		seg.Offset = p.parseOffsetClause()
	case p.atLPar():
		seg.Type = ir.Active
		seg.Offset = p.parseFoldedInstr()
	default:
		seg.Type = ir.Passive
	}

	if p.isKeyword("func") {
		p.advance()
	}
	var inits []ir.ElementInit
	for !p.atRPar() {
		inits = append(inits, ir.ElementInit{FuncIndex: p.parseIndex(p.funcs)})
	}
	seg.Init = inits
	p.expectExit()

	p.bind(p.elems, name)
	p.module.Elements = append(p.module.Elements, seg)
}

func (p *parser) parseOffsetClause() []ir.Instruction {
	p.advance()
	p.advance()
	offset := p.parseInstrList()
	p.expectExit()
	return offset
}

// parseDataField covers active (implicit or explicit memory index)
// and passive data segments, per spec.md §4.4's three wire variants.
func (p *parser) parseDataField() {
	loc := p.loc()
	p.advance()
	p.advance()
	name := p.optionalID()

	seg := ir.DataSegment{Located: ir.AtTextPos(loc.Line, loc.Column)}

	switch {
	case p.peekIsSExpr("memory"):
		p.advance()
		p.advance()
		seg.MemoryIndex = p.parseIndex(p.mems)
		p.expectExit()
		seg.Type = ir.Active
		seg.Offset = p.parseOffsetClause()
	case p.peekIsSExpr("offset"):
		seg.Type = ir.Active
		seg.Offset = p.parseOffsetClause()
	case p.atLPar():
		seg.Type = ir.Active
		seg.Offset = p.parseFoldedInstr()
	default:
		seg.Type = ir.Passive
	}

	var data []byte
	for p.tok.Kind == Text {
		s, _ := p.tok.Value.(string)
		data = append(data, []byte(s)...)
		p.advance()
	}
	seg.Init = data
	p.expectExit()

	idx := p.bind(p.datas, name)
	if ns := p.module.Names; ns != nil && name != "" {
		ns.DataSegs.Bind(idx, name)
	}
	p.module.Data = append(p.module.Data, seg)
}

func (p *parser) parseEventField() {
	loc := p.loc()
	p.advance()
	p.advance()
	name := p.optionalID()
	exportNames := p.parseInlineExports()
	tu := p.parseTypeUse()
	p.expectExit()
	idx := p.resolveTypeUse(tu)
	evIdx := p.bind(p.events, name)
	p.bindExports(exportNames, ir.ExternEvent, evIdx)
	p.module.Events = append(p.module.Events, ir.Event{
		Located: ir.AtTextPos(loc.Line, loc.Column),
		Type:    ir.EventType{TypeIndex: idx},
	})
}
