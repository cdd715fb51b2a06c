package dump

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/matovitch/wasp/ir"
)

// row is one function's instruction-mix summary.
type row struct {
	Funcidx          int `csv:"funcidx"`
	In               int `csv:"in"`
	Out              int `csv:"out"`
	LocalCount       int `csv:"local count"`
	InstructionCount int `csv:"instruction count"`
	Unreachable      int `csv:"unreachable"`
	Nop              int `csv:"nop"`
	Block            int `csv:"block"`
	Loop             int `csv:"loop"`
	If               int `csv:"if"`
	Br               int `csv:"br"`
	BrIf             int `csv:"br_if"`
	BrTable          int `csv:"br_table"`
	Return           int `csv:"return"`
	Call             int `csv:"call"`
	CallIndirect     int `csv:"call_indirect"`
	Drop             int `csv:"drop"`
	Select           int `csv:"select"`
	LocalGet         int `csv:"local.get"`
	LocalSet         int `csv:"local.set"`
	LocalTee         int `csv:"local.tee"`
	GlobalGet        int `csv:"global.get"`
	GlobalSet        int `csv:"global.set"`
	Load             int `csv:"load"`
	Store            int `csv:"store"`
	MemorySize       int `csv:"memory.size"`
	MemoryGrow       int `csv:"memory.grow"`
	Const            int `csv:"const"`
	Compare          int `csv:"compare"`
	Arith            int `csv:"arith"`
	Convert          int `csv:"convert"`
}

// dumpStats writes one CSV row per function in m, summarizing its
// signature, local count, and a breakdown of its instruction mix by
// category. Control instructions are counted at every nesting depth,
// including inside try/catch handlers.
func dumpStats(w io.Writer, m *ir.Module) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	encoder := csvutil.NewEncoder(csvWriter)

	funcBase := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ir.ExternFunc {
			funcBase++
		}
	}

	for i, fn := range m.Functions {
		idx := funcBase + uint32(i)
		sig, _ := m.FunctionType(idx)

		r := row{
			Funcidx:          int(idx),
			In:               len(sig.Params),
			Out:              len(sig.Results),
			LocalCount:       len(fn.Locals),
			InstructionCount: countInstructions(fn.Body),
		}
		tallyInstrList(&r, fn.Body)

		if err := encoder.Encode(&r); err != nil {
			return err
		}
	}
	return nil
}

func countInstructions(instrs []ir.Instruction) int {
	n := 0
	for _, instr := range instrs {
		n++
		n += countInstructions(instr.Body)
		n += countInstructions(instr.Else)
		for _, catch := range instr.Catches {
			n += countInstructions(catch)
		}
	}
	return n
}

func tallyInstrList(r *row, instrs []ir.Instruction) {
	for _, instr := range instrs {
		tallyInstr(r, instr)
		tallyInstrList(r, instr.Body)
		tallyInstrList(r, instr.Else)
		for _, catch := range instr.Catches {
			tallyInstrList(r, catch)
		}
	}
}

func tallyInstr(r *row, instr ir.Instruction) {
	switch instr.Opcode {
	case ir.OpUnreachable:
		r.Unreachable++
	case ir.OpNop:
		r.Nop++
	case ir.OpBlock:
		r.Block++
	case ir.OpLoop:
		r.Loop++
	case ir.OpIf:
		r.If++
	case ir.OpBr:
		r.Br++
	case ir.OpBrIf:
		r.BrIf++
	case ir.OpBrTable:
		r.BrTable++
	case ir.OpReturn:
		r.Return++
	case ir.OpCall:
		r.Call++
	case ir.OpCallIndirect:
		r.CallIndirect++
	case ir.OpDrop:
		r.Drop++
	case ir.OpSelect, ir.OpSelectT:
		r.Select++
	case ir.OpLocalGet:
		r.LocalGet++
	case ir.OpLocalSet:
		r.LocalSet++
	case ir.OpLocalTee:
		r.LocalTee++
	case ir.OpGlobalGet:
		r.GlobalGet++
	case ir.OpGlobalSet:
		r.GlobalSet++
	case ir.OpMemorySize:
		r.MemorySize++
	case ir.OpMemoryGrow:
		r.MemoryGrow++
	case ir.OpI32Const, ir.OpI64Const, ir.OpF32Const, ir.OpF64Const:
		r.Const++
	default:
		switch {
		case isLoad(instr.Opcode):
			r.Load++
		case isStore(instr.Opcode):
			r.Store++
		case isCompare(instr.Opcode):
			r.Compare++
		case isConvert(instr.Opcode):
			r.Convert++
		case isArith(instr.Opcode):
			r.Arith++
		}
	}
}

func isLoad(op ir.Opcode) bool {
	switch op {
	case ir.OpI32Load, ir.OpI64Load, ir.OpF32Load, ir.OpF64Load,
		ir.OpI32Load8S, ir.OpI32Load8U, ir.OpI32Load16S, ir.OpI32Load16U,
		ir.OpI64Load8S, ir.OpI64Load8U, ir.OpI64Load16S, ir.OpI64Load16U,
		ir.OpI64Load32S, ir.OpI64Load32U:
		return true
	}
	return false
}

func isStore(op ir.Opcode) bool {
	switch op {
	case ir.OpI32Store, ir.OpI64Store, ir.OpF32Store, ir.OpF64Store,
		ir.OpI32Store8, ir.OpI32Store16, ir.OpI64Store8, ir.OpI64Store16, ir.OpI64Store32:
		return true
	}
	return false
}

func isCompare(op ir.Opcode) bool {
	return op >= ir.OpI32Eqz && op <= ir.OpF64Ge
}

func isArith(op ir.Opcode) bool {
	return op >= ir.OpI32Clz && op <= ir.OpF64Copysign
}

func isConvert(op ir.Opcode) bool {
	return op >= ir.OpI32WrapI64 && op <= ir.OpF64ReinterpretI64
}
