// Package validate drives a read-only traversal of an *ir.Module and
// dispatches pre/post hooks on a Visitor for every item in every index
// space. The traversal order and the index-space bookkeeping it
// maintains (imported vs. local counts, the combined function/table/
// memory/global spaces) follow the same fixed sequence a hand-written
// validator would use: types, functions (and their code), tables,
// memories, globals, elements, data, start, imports, exports.
//
// Rule bodies are not part of this package: Visitor hooks receive
// everything they need (the module, the running Context, the item) to
// decide whether an item is well-formed, and record a diagnostic on the
// Context's sink if it isn't. Visit itself never raises a diagnostic.
package validate

import (
	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/ir"
	"github.com/willf/bitset"
)

// Context is the validation state threaded through a single Visit
// call: the sink hooks report into, plus the per-function scratch state
// (locals, current signature) that changes as traversal enters and
// leaves a function body.
type Context struct {
	Module *ir.Module
	Sink   *diag.Sink

	// Locals holds the current function's parameter and declared-local
	// types, indexed by local index. Empty outside a function body.
	Locals []ir.ValueType

	// FuncSig is the signature of the function currently being
	// visited. Zero outside a function body.
	FuncSig ir.FunctionType

	// visited tracks, per index space, which indices a hook has
	// already been offered; Visitor implementations that need to
	// detect duplicate visits (e.g. re-entrant custom traversal) can
	// consult VisitedFunc/VisitedTable/VisitedMemory/VisitedGlobal
	// instead of keeping their own bitset.
	visitedFuncs, visitedTables, visitedMems, visitedGlobals bitset.BitSet
}

// VisitedFunc reports whether Visit has already dispatched hooks for
// the function at the given combined-index-space index, and marks it
// visited.
func (c *Context) VisitedFunc(idx uint32) bool {
	return markVisited(&c.visitedFuncs, idx)
}

// VisitedTable reports and marks visitation for a table index.
func (c *Context) VisitedTable(idx uint32) bool {
	return markVisited(&c.visitedTables, idx)
}

// VisitedMemory reports and marks visitation for a memory index.
func (c *Context) VisitedMemory(idx uint32) bool {
	return markVisited(&c.visitedMems, idx)
}

// VisitedGlobal reports and marks visitation for a global index.
func (c *Context) VisitedGlobal(idx uint32) bool {
	return markVisited(&c.visitedGlobals, idx)
}

func markVisited(b *bitset.BitSet, idx uint32) bool {
	u := uint(idx)
	if b.Test(u) {
		return true
	}
	b.Set(u)
	return false
}

// Visitor receives a pre/post hook for every item Visit walks. Embed
// NopVisitor to implement only the hooks a particular pass cares about.
type Visitor interface {
	EnterModule(ctx *Context, m *ir.Module)
	LeaveModule(ctx *Context, m *ir.Module)

	VisitType(ctx *Context, idx uint32, t ir.FunctionType)

	EnterFunction(ctx *Context, idx uint32, fn ir.Function)
	VisitInstruction(ctx *Context, idx uint32, instr ir.Instruction)
	LeaveFunction(ctx *Context, idx uint32, fn ir.Function)

	VisitTable(ctx *Context, idx uint32, t ir.Table)
	VisitMemory(ctx *Context, idx uint32, mem ir.Memory)

	EnterGlobal(ctx *Context, idx uint32, g ir.Global)
	LeaveGlobal(ctx *Context, idx uint32, g ir.Global)

	EnterElement(ctx *Context, idx uint32, seg ir.ElementSegment)
	LeaveElement(ctx *Context, idx uint32, seg ir.ElementSegment)

	EnterData(ctx *Context, idx uint32, seg ir.DataSegment)
	LeaveData(ctx *Context, idx uint32, seg ir.DataSegment)

	VisitStart(ctx *Context, funcIndex uint32)

	VisitImport(ctx *Context, idx uint32, imp ir.Import)
	VisitExport(ctx *Context, idx uint32, exp ir.Export)
}

// NopVisitor implements every Visitor hook as a no-op. Embedding it
// lets a caller override only the handful of hooks a given pass needs.
type NopVisitor struct{}

func (NopVisitor) EnterModule(*Context, *ir.Module) {}
func (NopVisitor) LeaveModule(*Context, *ir.Module) {}

func (NopVisitor) VisitType(*Context, uint32, ir.FunctionType) {}

func (NopVisitor) EnterFunction(*Context, uint32, ir.Function)     {}
func (NopVisitor) VisitInstruction(*Context, uint32, ir.Instruction) {}
func (NopVisitor) LeaveFunction(*Context, uint32, ir.Function)     {}

func (NopVisitor) VisitTable(*Context, uint32, ir.Table)   {}
func (NopVisitor) VisitMemory(*Context, uint32, ir.Memory) {}

func (NopVisitor) EnterGlobal(*Context, uint32, ir.Global) {}
func (NopVisitor) LeaveGlobal(*Context, uint32, ir.Global) {}

func (NopVisitor) EnterElement(*Context, uint32, ir.ElementSegment) {}
func (NopVisitor) LeaveElement(*Context, uint32, ir.ElementSegment) {}

func (NopVisitor) EnterData(*Context, uint32, ir.DataSegment) {}
func (NopVisitor) LeaveData(*Context, uint32, ir.DataSegment) {}

func (NopVisitor) VisitStart(*Context, uint32) {}

func (NopVisitor) VisitImport(*Context, uint32, ir.Import) {}
func (NopVisitor) VisitExport(*Context, uint32, ir.Export) {}

// Visit drives v over every item of m, in the order types, functions
// (entering/leaving each function body and visiting each of its
// instructions in between), tables, memories, globals, elements, data,
// start, imports, exports. It returns false iff v (or code reachable
// from it) recorded at least one diagnostic on ctx.Sink.
func Visit(m *ir.Module, v Visitor) bool {
	sink := diag.NewSink()
	ctx := &Context{Module: m, Sink: sink}

	v.EnterModule(ctx, m)

	for i, t := range m.Types {
		v.VisitType(ctx, uint32(i), t)
	}

	funcBase := importCount(m, ir.ExternFunc)
	for i, fn := range m.Functions {
		idx := funcBase + uint32(i)
		sig, _ := m.FunctionType(idx)
		ctx.FuncSig = sig
		ctx.Locals = localTypes(sig, fn.Locals)

		v.EnterFunction(ctx, idx, fn)
		visitInstrList(ctx, v, idx, fn.Body)
		v.LeaveFunction(ctx, idx, fn)

		ctx.Locals = nil
		ctx.FuncSig = ir.FunctionType{}
	}

	tableBase := importCount(m, ir.ExternTable)
	for i, tbl := range m.Tables {
		v.VisitTable(ctx, tableBase+uint32(i), tbl)
	}

	memBase := importCount(m, ir.ExternMemory)
	for i, mem := range m.Memories {
		v.VisitMemory(ctx, memBase+uint32(i), mem)
	}

	globalBase := importCount(m, ir.ExternGlobal)
	for i, g := range m.Globals {
		idx := globalBase + uint32(i)
		v.EnterGlobal(ctx, idx, g)
		visitInstrList(ctx, v, idx, g.Init)
		v.LeaveGlobal(ctx, idx, g)
	}

	for i, seg := range m.Elements {
		idx := uint32(i)
		v.EnterElement(ctx, idx, seg)
		visitInstrList(ctx, v, idx, seg.Offset)
		for _, init := range seg.Init {
			if init.IsExpr {
				visitInstrList(ctx, v, idx, init.Expr)
			}
		}
		v.LeaveElement(ctx, idx, seg)
	}

	for i, seg := range m.Data {
		idx := uint32(i)
		v.EnterData(ctx, idx, seg)
		visitInstrList(ctx, v, idx, seg.Offset)
		v.LeaveData(ctx, idx, seg)
	}

	if m.HasStart {
		v.VisitStart(ctx, m.Start)
	}

	for i, imp := range m.Imports {
		v.VisitImport(ctx, uint32(i), imp)
	}
	for i, exp := range m.Exports {
		v.VisitExport(ctx, uint32(i), exp)
	}

	v.LeaveModule(ctx, m)

	return !sink.HasErrors()
}

// visitInstrList dispatches VisitInstruction for instr and, recursively,
// for every instruction folded under a structured control instruction's
// Body/Else/Catches, matching the nesting the reader produced.
func visitInstrList(ctx *Context, v Visitor, owner uint32, instrs []ir.Instruction) {
	for _, instr := range instrs {
		v.VisitInstruction(ctx, owner, instr)
		if len(instr.Body) > 0 {
			visitInstrList(ctx, v, owner, instr.Body)
		}
		if len(instr.Else) > 0 {
			visitInstrList(ctx, v, owner, instr.Else)
		}
		for _, catch := range instr.Catches {
			visitInstrList(ctx, v, owner, catch)
		}
	}
}

func importCount(m *ir.Module, kind ir.ExternalKind) uint32 {
	n := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == kind {
			n++
		}
	}
	return n
}

func localTypes(sig ir.FunctionType, declared []ir.ValueType) []ir.ValueType {
	locals := make([]ir.ValueType, 0, len(sig.Params)+len(declared))
	locals = append(locals, sig.Params...)
	locals = append(locals, declared...)
	return locals
}
