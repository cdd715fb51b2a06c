package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/matovitch/wasp/ir"
)

func (fw *writer) writeInstrList(instrs []ir.Instruction) {
	for _, instr := range instrs {
		fw.writeInstr(instr)
	}
}

func (fw *writer) writeInstr(instr ir.Instruction) {
	switch instr.Opcode {
	case ir.OpBlock, ir.OpLoop:
		fw.line("%s %s", instr.Opcode, formatBlockType(instr.Immediate.Block))
		fw.indent++
		fw.writeInstrList(instr.Body)
		fw.indent--
		fw.line("end")

	case ir.OpIf:
		fw.line("if %s", formatBlockType(instr.Immediate.Block))
		fw.indent++
		fw.writeInstrList(instr.Body)
		fw.indent--
		if len(instr.Else) > 0 {
			fw.line("else")
			fw.indent++
			fw.writeInstrList(instr.Else)
			fw.indent--
		}
		fw.line("end")

	case ir.OpTry:
		fw.line("try %s", formatBlockType(instr.Immediate.Block))
		fw.indent++
		fw.writeInstrList(instr.Body)
		fw.indent--
		for _, catch := range instr.Catches {
			// The caught event's own tag index is never retained on
			// ir.Instruction.Catches (see binary.decodeInstructionBody);
			// round-tripping a try/catch through the IR loses it.
			fw.line("catch 0")
			fw.indent++
			fw.writeInstrList(catch)
			fw.indent--
		}
		fw.line("end")

	case ir.OpLet:
		let := instr.Immediate.Let
		fw.line("let %s", formatBlockType(let.Block))
		fw.indent++
		for _, decl := range let.Locals {
			var b strings.Builder
			b.WriteString("(local")
			for range decl.Names {
				fmt.Fprintf(&b, " %s", decl.Type)
			}
			b.WriteString(")")
			fw.line("%s", b.String())
		}
		fw.writeInstrList(instr.Body)
		fw.indent--
		fw.line("end")

	default:
		fw.line("%s", formatPlainInstr(instr))
	}
}

func formatBlockType(bt ir.BlockType) string {
	switch {
	case bt.IsVoid():
		return ""
	case bt.IsValue():
		return fmt.Sprintf("(result %s)", bt.Value())
	default:
		return fmt.Sprintf("(type %d)", bt.Index())
	}
}

// formatPlainInstr renders any non-block-structured instruction as
// "mnemonic operand...", the inverse of parseImmediateGeneric.
func formatPlainInstr(instr ir.Instruction) string {
	imm := instr.Immediate
	switch imm.Shape {
	case ir.ImmNone:
		return instr.Opcode.String()
	case ir.ImmS32:
		return fmt.Sprintf("%s %d", instr.Opcode, imm.S32)
	case ir.ImmS64:
		return fmt.Sprintf("%s %d", instr.Opcode, imm.S64)
	case ir.ImmF32:
		return fmt.Sprintf("%s %s", instr.Opcode, formatF32(imm.F32))
	case ir.ImmF64:
		return fmt.Sprintf("%s %s", instr.Opcode, formatF64(imm.F64))
	case ir.ImmV128:
		return fmt.Sprintf("%s i32x4 %s", instr.Opcode, formatV128AsI32x4(imm.V128))
	case ir.ImmIndex:
		return fmt.Sprintf("%s %d", instr.Opcode, imm.Index)
	case ir.ImmMemArg:
		if imm.MemArg.Offset == 0 && imm.MemArg.AlignLog2 == 0 {
			return instr.Opcode.String()
		}
		return fmt.Sprintf("%s offset=%d align=%d", instr.Opcode, imm.MemArg.Offset, uint32(1)<<imm.MemArg.AlignLog2)
	case ir.ImmBrTable:
		var b strings.Builder
		fmt.Fprintf(&b, "%s", instr.Opcode)
		for _, t := range imm.BrTable.Targets {
			fmt.Fprintf(&b, " %d", t)
		}
		fmt.Fprintf(&b, " %d", imm.BrTable.Default)
		return b.String()
	case ir.ImmBrOnExn:
		return fmt.Sprintf("%s %d %d", instr.Opcode, imm.BrOnExn.Label, imm.BrOnExn.Event)
	case ir.ImmCallIndirect:
		if imm.Call.TableIndex != 0 {
			return fmt.Sprintf("%s %d (type %d)", instr.Opcode, imm.Call.TableIndex, imm.Call.TypeIndex)
		}
		return fmt.Sprintf("%s (type %d)", instr.Opcode, imm.Call.TypeIndex)
	case ir.ImmCopy:
		if !imm.Copy.HasDst {
			return instr.Opcode.String()
		}
		return fmt.Sprintf("%s %d %d", instr.Opcode, imm.Copy.Dst, imm.Copy.Src)
	case ir.ImmInit:
		if !imm.Init.HasDst {
			return fmt.Sprintf("%s %d", instr.Opcode, imm.Init.Segment)
		}
		return fmt.Sprintf("%s %d %d", instr.Opcode, imm.Init.Segment, imm.Init.Dst)
	case ir.ImmHeapType:
		return fmt.Sprintf("%s %s", instr.Opcode, imm.Heap)
	case ir.ImmSelectTypes:
		var b strings.Builder
		fmt.Fprintf(&b, "%s (result", instr.Opcode)
		for _, t := range imm.SelectTypes {
			fmt.Fprintf(&b, " %s", t)
		}
		b.WriteString(")")
		return b.String()
	case ir.ImmShuffle:
		var b strings.Builder
		fmt.Fprintf(&b, "%s", instr.Opcode)
		for _, lane := range imm.Shuffle {
			fmt.Fprintf(&b, " %d", lane)
		}
		return b.String()
	case ir.ImmSimdLane:
		return fmt.Sprintf("%s %d", instr.Opcode, imm.Lane)
	default:
		return instr.Opcode.String()
	}
}

// formatElemInit renders one element segment entry: a bare function
// index for the funcidx-vector encoding, or its expression wrapped in
// parens for the expr encoding (bulk-memory/reference-types), mirroring
// how validate.Visit walks init.Expr only when init.IsExpr is set.
func formatElemInit(init ir.ElementInit) string {
	if !init.IsExpr {
		return fmt.Sprintf("%d", init.FuncIndex)
	}
	parts := make([]string, len(init.Expr))
	for i, instr := range init.Expr {
		parts[i] = formatPlainInstr(instr)
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

func formatF32(f float32) string {
	if math.IsNaN(float64(f)) {
		return "nan"
	}
	return fmt.Sprintf("%g", f)
}

func formatF64(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	return fmt.Sprintf("%g", f)
}

func formatV128AsI32x4(v [16]byte) string {
	var lanes [4]uint32
	for i := range lanes {
		lanes[i] = uint32(v[i*4]) | uint32(v[i*4+1])<<8 | uint32(v[i*4+2])<<16 | uint32(v[i*4+3])<<24
	}
	return fmt.Sprintf("%d %d %d %d", lanes[0], lanes[1], lanes[2], lanes[3])
}
