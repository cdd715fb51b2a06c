// Package format renders an *ir.Module as WebAssembly text format
// source, in the same plain (non-folded, explicit "end") instruction
// style the text parser accepts, so that
// text.ParseModule(format.String(m)) reproduces m's semantics.
package format

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/matovitch/wasp/ir"
)

// writer accumulates module text, tracking an error from the first
// failed io.Writer call so callers needn't check every line.
type writer struct {
	w      io.Writer
	indent int
	err    error
}

// Module renders m to w. The rendering is deterministic: given the
// same module, Module always produces byte-identical text.
func Module(w io.Writer, m *ir.Module) error {
	fw := &writer{w: w}
	fw.writeModule(m)
	return fw.err
}

// String renders m and returns the result, for callers that don't
// need streaming output (tests, the dump CLI's default mode).
func String(m *ir.Module) (string, error) {
	var buf bytes.Buffer
	if err := Module(&buf, m); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (fw *writer) printf(format string, args ...interface{}) {
	if fw.err != nil {
		return
	}
	if _, err := fmt.Fprintf(fw.w, format, args...); err != nil {
		fw.err = err
	}
}

func (fw *writer) line(format string, args ...interface{}) {
	fw.printf("%s", strings.Repeat("  ", fw.indent))
	fw.printf(format, args...)
	fw.printf("\n")
}

func (fw *writer) writeModule(m *ir.Module) {
	fw.line("(module")
	fw.indent++

	for i, t := range m.Types {
		fw.writeTypeField(uint32(i), t)
	}
	for _, imp := range m.Imports {
		fw.writeImport(imp)
	}

	funcIdx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ir.ExternFunc {
			funcIdx++
		}
	}
	for i, fn := range m.Functions {
		fw.writeFunc(funcIdx+uint32(i), fn)
	}

	tableIdx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ir.ExternTable {
			tableIdx++
		}
	}
	for i, tbl := range m.Tables {
		fw.line("(table (;%d;) %s)", tableIdx+uint32(i), formatTableType(tbl.Type))
	}

	memIdx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ir.ExternMemory {
			memIdx++
		}
	}
	for i, mem := range m.Memories {
		fw.line("(memory (;%d;) %s)", memIdx+uint32(i), formatLimits(mem.Type.Limits))
	}

	globalIdx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ir.ExternGlobal {
			globalIdx++
		}
	}
	for i, g := range m.Globals {
		fw.writeGlobal(globalIdx+uint32(i), g)
	}

	for _, exp := range m.Exports {
		fw.line("(export %q (%s %d))", exp.Name, exp.Kind, exp.Index)
	}

	if m.HasStart {
		fw.line("(start %d)", m.Start)
	}

	for i, seg := range m.Elements {
		fw.writeElem(uint32(i), seg)
	}
	for i, seg := range m.Data {
		fw.writeData(uint32(i), seg)
	}

	eventIdx := uint32(0)
	for _, imp := range m.Imports {
		if imp.Desc.Kind == ir.ExternEvent {
			eventIdx++
		}
	}
	for i, ev := range m.Events {
		fw.line("(event (;%d;) (type %d))", eventIdx+uint32(i), ev.Type.TypeIndex)
	}

	fw.indent--
	fw.line(")")
}

func (fw *writer) writeTypeField(idx uint32, t ir.FunctionType) {
	fw.line("(type (;%d;) (func%s))", idx, formatSignature(t))
}

func formatSignature(t ir.FunctionType) string {
	var b strings.Builder
	if len(t.Params) > 0 {
		b.WriteString(" (param")
		for _, p := range t.Params {
			fmt.Fprintf(&b, " %s", p)
		}
		b.WriteString(")")
	}
	if len(t.Results) > 0 {
		b.WriteString(" (result")
		for _, r := range t.Results {
			fmt.Fprintf(&b, " %s", r)
		}
		b.WriteString(")")
	}
	return b.String()
}

func formatLimits(l ir.Limits) string {
	if l.HasMax {
		if l.Shared == ir.SharedYes {
			return fmt.Sprintf("%d %d shared", l.Min, l.Max)
		}
		return fmt.Sprintf("%d %d", l.Min, l.Max)
	}
	return fmt.Sprintf("%d", l.Min)
}

func formatTableType(t ir.TableType) string {
	return fmt.Sprintf("%s %s", formatLimits(t.Limits), t.Element)
}

func (fw *writer) writeImport(imp ir.Import) {
	switch imp.Desc.Kind {
	case ir.ExternFunc:
		fw.line("(import %q %q (func (type %d)))", imp.Module, imp.Name, imp.Desc.TypeIndex)
	case ir.ExternTable:
		fw.line("(import %q %q (table %s))", imp.Module, imp.Name, formatTableType(imp.Desc.Table))
	case ir.ExternMemory:
		fw.line("(import %q %q (memory %s))", imp.Module, imp.Name, formatLimits(imp.Desc.Memory.Limits))
	case ir.ExternGlobal:
		fw.line("(import %q %q (global %s))", imp.Module, imp.Name, formatGlobalType(imp.Desc.Global))
	case ir.ExternEvent:
		fw.line("(import %q %q (event (type %d)))", imp.Module, imp.Name, imp.Desc.Event.TypeIndex)
	}
}

func formatGlobalType(g ir.GlobalType) string {
	if g.Mut == ir.Var {
		return fmt.Sprintf("(mut %s)", g.Value)
	}
	return g.Value.String()
}

func (fw *writer) writeFunc(idx uint32, fn ir.Function) {
	fw.line("(func (;%d;) (type %d)", idx, fn.TypeIndex)
	fw.indent++
	if len(fn.Locals) > 0 {
		var b strings.Builder
		b.WriteString("(local")
		for _, l := range fn.Locals {
			fmt.Fprintf(&b, " %s", l)
		}
		b.WriteString(")")
		fw.line("%s", b.String())
	}
	fw.writeInstrList(fn.Body)
	fw.indent--
	fw.line(")")
}

func (fw *writer) writeGlobal(idx uint32, g ir.Global) {
	fw.line("(global (;%d;) %s", idx, formatGlobalType(g.Type))
	fw.indent++
	fw.writeInstrList(g.Init)
	fw.indent--
	fw.line(")")
}

func (fw *writer) writeElem(idx uint32, seg ir.ElementSegment) {
	switch seg.Type {
	case ir.Active:
		fw.line("(elem (;%d;) (table %d)", idx, seg.TableIndex)
		fw.indent++
		fw.writeInstrList(seg.Offset)
		fw.writeElemInits(seg.Init)
		fw.indent--
		fw.line(")")
	case ir.Declared:
		fw.printf("%s(elem (;%d;) declare func", strings.Repeat("  ", fw.indent), idx)
		for _, e := range seg.Init {
			fw.printf(" %s", formatElemInit(e))
		}
		fw.printf(")\n")
	default:
		fw.printf("%s(elem (;%d;) func", strings.Repeat("  ", fw.indent), idx)
		for _, e := range seg.Init {
			fw.printf(" %s", formatElemInit(e))
		}
		fw.printf(")\n")
	}
}

func (fw *writer) writeElemInits(inits []ir.ElementInit) {
	fw.printf("%s(func", strings.Repeat("  ", fw.indent))
	for _, e := range inits {
		fw.printf(" %s", formatElemInit(e))
	}
	fw.printf(")\n")
}

func (fw *writer) writeData(idx uint32, seg ir.DataSegment) {
	switch seg.Type {
	case ir.Active:
		fw.line("(data (;%d;) (memory %d)", idx, seg.MemoryIndex)
		fw.indent++
		fw.writeInstrList(seg.Offset)
		fw.line("%s", quoteBytes(seg.Init))
		fw.indent--
		fw.line(")")
	default:
		fw.line("(data (;%d;) %s)", idx, quoteBytes(seg.Init))
	}
}

// quoteBytes renders a data segment's bytes as a WAT string literal,
// escaping everything outside the printable ASCII range so the output
// re-tokenizes byte for byte.
func quoteBytes(data []byte) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range data {
		switch {
		case c == '"' || c == '\\':
			fmt.Fprintf(&b, "\\%c", c)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "\\%02x", c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
