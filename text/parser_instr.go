package text

import (
	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/ir"
)

// parseInstrList parses a run of instructions, plain or folded, until
// the enclosing ')' (a function body, global initializer, or offset
// expression all end this way).
func (p *parser) parseInstrList() []ir.Instruction {
	var out []ir.Instruction
	for !p.atRPar() && p.tok.Kind != EOF {
		out = append(out, p.parseInstr()...)
	}
	return out
}

func (p *parser) parseInstr() []ir.Instruction {
	if p.atLPar() {
		return p.parseFoldedInstr()
	}
	return []ir.Instruction{p.parsePlainInstr()}
}

// parseBodyUntilKeyword collects plain-style instructions until the
// next bare keyword matches one of stops, which is left unconsumed.
func (p *parser) parseBodyUntilKeyword(stops ...string) ([]ir.Instruction, string) {
	var out []ir.Instruction
	for {
		if p.tok.Kind == EOF {
			return out, "end"
		}
		if p.tok.Kind == Keyword {
			for _, s := range stops {
				if p.tok.Text == s {
					return out, s
				}
			}
		}
		out = append(out, p.parseInstr()...)
	}
}

func (p *parser) parsePlainInstr() ir.Instruction {
	loc := p.loc()
	if p.tok.Kind != Keyword {
		p.errorf("expected an instruction")
		p.advance()
		return ir.Instruction{}
	}
	switch p.tok.Text {
	case "block":
		return p.parsePlainBlockLike(loc, ir.OpBlock)
	case "loop":
		return p.parsePlainBlockLike(loc, ir.OpLoop)
	case "if":
		return p.parsePlainIf(loc)
	case "try":
		return p.parsePlainTry(loc)
	case "let":
		return p.parsePlainLet(loc)
	default:
		word := p.tok.Text
		op, ok := ir.OpcodeByName(word)
		if !ok {
			p.errorf("unrecognized instruction %q", word)
			p.advance()
			return ir.Instruction{}
		}
		p.advance()
		imm, final := p.parseImmediateGeneric(op)
		return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: final, Immediate: imm}
	}
}

func (p *parser) parsePlainBlockLike(loc diag.Location, op ir.Opcode) ir.Instruction {
	p.advance() // 'block'/'loop'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()
	body, _ := p.parseBodyUntilKeyword("end")
	p.expectKeyword("end")
	p.optionalID()
	p.labels.Pop()
	return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: op, Immediate: ir.Immediate{Shape: ir.ImmBlockType, Block: bt}, Body: body}
}

func (p *parser) parsePlainIf(loc diag.Location) ir.Instruction {
	p.advance() // 'if'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()
	body, stop := p.parseBodyUntilKeyword("else", "end")
	var elseBody []ir.Instruction
	if stop == "else" {
		p.advance()
		p.optionalID()
		elseBody, _ = p.parseBodyUntilKeyword("end")
	}
	p.expectKeyword("end")
	p.optionalID()
	p.labels.Pop()
	return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: ir.OpIf, Immediate: ir.Immediate{Shape: ir.ImmBlockType, Block: bt}, Body: body, Else: elseBody}
}

// parsePlainTry mirrors the immediate-consumption discipline fixed in
// binary.decodeInstructionBody's OpTry case: a catch clause's own tag
// index is read and discarded here, not folded into Catches.
func (p *parser) parsePlainTry(loc diag.Location) ir.Instruction {
	p.advance() // 'try'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()
	body, stop := p.parseBodyUntilKeyword("catch", "end")
	var catches [][]ir.Instruction
	for stop == "catch" {
		p.advance()
		p.parseIndex(p.events)
		var cb []ir.Instruction
		cb, stop = p.parseBodyUntilKeyword("catch", "end")
		catches = append(catches, cb)
	}
	p.expectKeyword("end")
	p.optionalID()
	p.labels.Pop()
	return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: ir.OpTry, Immediate: ir.Immediate{Shape: ir.ImmBlockType, Block: bt}, Body: body, Catches: catches}
}

// parsePlainLet appends its locals onto the enclosing function's local
// scope rather than opening an independent index space; this is a
// scoped simplification, see DESIGN.md.
func (p *parser) parsePlainLet(loc diag.Location) ir.Instruction {
	p.advance() // 'let'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()
	decls := p.parseLocalsDecls()
	body, _ := p.parseBodyUntilKeyword("end")
	p.expectKeyword("end")
	p.optionalID()
	p.labels.Pop()
	return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: ir.OpLet, Immediate: ir.Immediate{Shape: ir.ImmLet, Let: ir.LetImmediate{Block: bt, Locals: decls}}, Body: body}
}

func (p *parser) parseLocalsDecls() []ir.LocalsDecl {
	var decls []ir.LocalsDecl
	for p.peekIsSExpr("local") {
		p.advance()
		p.advance()
		if p.tok.Kind == Ident {
			name := p.tok.Text
			p.advance()
			t := p.parseValueType()
			p.locals.Declare(name)
			decls = append(decls, ir.LocalsDecl{Names: []string{name}, Type: t})
		} else {
			for !p.atRPar() {
				t := p.parseValueType()
				p.locals.Declare("")
				decls = append(decls, ir.LocalsDecl{Names: []string{""}, Type: t})
			}
		}
		p.expectExit()
	}
	return decls
}

func (p *parser) parseBlockTypeText() ir.BlockType {
	tu := p.parseTypeUse()
	return p.resolveBlockType(tu)
}

// parseFoldedInstr parses one fully-parenthesized instruction,
// including any nested folded operands, which are flattened and
// returned ahead of the instruction itself so the result reads in
// stack-machine order.
func (p *parser) parseFoldedInstr() []ir.Instruction {
	loc := p.loc()
	p.advance() // '('
	if p.tok.Kind != Keyword {
		p.errorf("expected an instruction")
		p.skipToMatchingClose()
		return nil
	}
	switch p.tok.Text {
	case "block":
		return []ir.Instruction{p.parseFoldedBlockLike(loc, ir.OpBlock)}
	case "loop":
		return []ir.Instruction{p.parseFoldedBlockLike(loc, ir.OpLoop)}
	case "if":
		return p.parseFoldedIf(loc)
	case "try":
		return []ir.Instruction{p.parseFoldedTry(loc)}
	case "let":
		return []ir.Instruction{p.parseFoldedLet(loc)}
	default:
		word := p.tok.Text
		op, ok := ir.OpcodeByName(word)
		if !ok {
			p.errorf("unrecognized instruction %q", word)
			p.skipToMatchingClose()
			return nil
		}
		p.advance()
		imm, final := p.parseImmediateGeneric(op)
		var args []ir.Instruction
		for p.atLPar() {
			args = append(args, p.parseFoldedInstr()...)
		}
		p.expectExit()
		instr := ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: final, Immediate: imm}
		return append(args, instr)
	}
}

func (p *parser) parseFoldedBlockLike(loc diag.Location, op ir.Opcode) ir.Instruction {
	p.advance() // 'block'/'loop'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()
	body := p.parseInstrList()
	p.expectExit()
	p.labels.Pop()
	return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: op, Immediate: ir.Immediate{Shape: ir.ImmBlockType, Block: bt}, Body: body}
}

func (p *parser) parseFoldedIf(loc diag.Location) []ir.Instruction {
	p.advance() // 'if'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()

	var condArgs []ir.Instruction
	for p.atLPar() && !p.peekIsSExpr("then") {
		condArgs = append(condArgs, p.parseFoldedInstr()...)
	}

	p.expectEnter("then")
	thenBody := p.parseInstrList()
	p.expectExit()

	var elseBody []ir.Instruction
	if p.peekIsSExpr("else") {
		p.advance()
		p.advance()
		elseBody = p.parseInstrList()
		p.expectExit()
	}
	p.expectExit() // closes the (if ...)
	p.labels.Pop()

	instr := ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: ir.OpIf, Immediate: ir.Immediate{Shape: ir.ImmBlockType, Block: bt}, Body: thenBody, Else: elseBody}
	return append(condArgs, instr)
}

func (p *parser) parseFoldedTry(loc diag.Location) ir.Instruction {
	p.advance() // 'try'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()

	p.expectEnter("do")
	body := p.parseInstrList()
	p.expectExit()

	var catches [][]ir.Instruction
	for p.peekIsSExpr("catch") {
		p.advance()
		p.advance()
		p.parseIndex(p.events)
		cb := p.parseInstrList()
		p.expectExit()
		catches = append(catches, cb)
	}
	p.expectExit() // closes the (try ...)
	p.labels.Pop()
	return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: ir.OpTry, Immediate: ir.Immediate{Shape: ir.ImmBlockType, Block: bt}, Body: body, Catches: catches}
}

func (p *parser) parseFoldedLet(loc diag.Location) ir.Instruction {
	p.advance() // 'let'
	label := p.optionalID()
	p.labels.Push(label)
	bt := p.parseBlockTypeText()
	decls := p.parseLocalsDecls()
	body := p.parseInstrList()
	p.expectExit()
	p.labels.Pop()
	return ir.Instruction{Located: ir.AtTextPos(loc.Line, loc.Column), Opcode: ir.OpLet, Immediate: ir.Immediate{Shape: ir.ImmLet, Let: ir.LetImmediate{Block: bt, Locals: decls}}, Body: body}
}
