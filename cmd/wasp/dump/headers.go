package dump

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/matovitch/wasp/ir"
)

func printHeaders(out io.Writer, m *ir.Module, filter string) {
	fmt.Fprintln(out, "Section Headers:")
	for _, s := range m.Sections {
		name := s.ID.String()
		if s.ID == ir.SectionCustom {
			name = s.Name
		}
		if !sectionMatches(name, filter) {
			continue
		}
		fmt.Fprintf(out, " %-12s offset=0x%06x size=0x%06x\n", name, s.Body.Offset, s.Body.Len())
	}
}

func printFullContents(out io.Writer, m *ir.Module, filter string) {
	fmt.Fprintln(out, "Contents of section:")
	for _, s := range m.Sections {
		name := s.ID.String()
		if s.ID == ir.SectionCustom {
			name = s.Name
		}
		if !sectionMatches(name, filter) {
			continue
		}
		fmt.Fprintf(out, " %s:\n", name)
		dump := hex.EncodeToString(s.Body.Data)
		for i := 0; i < len(dump); i += 32 {
			end := i + 32
			if end > len(dump) {
				end = len(dump)
			}
			fmt.Fprintf(out, " %06x %s\n", s.Body.Offset+i/2, dump[i:end])
		}
	}
}

func printDetails(out io.Writer, m *ir.Module, filter string) {
	if sectionMatches("type", filter) {
		fmt.Fprintln(out, "Type section:")
		for i, t := range m.Types {
			fmt.Fprintf(out, " - type[%d]%s\n", i, t.String())
		}
	}
	if sectionMatches("import", filter) {
		fmt.Fprintln(out, "Import section:")
		for i, imp := range m.Imports {
			fmt.Fprintf(out, " - import[%d] %s.%s: %s\n", i, imp.Module, imp.Name, imp.Desc.Kind)
		}
	}
	if sectionMatches("function", filter) || sectionMatches("code", filter) {
		fmt.Fprintln(out, "Function section:")
		for i, fn := range m.Functions {
			fmt.Fprintf(out, " - func[%d] sig=%d locals=%d instrs=%d\n", i, fn.TypeIndex, len(fn.Locals), len(fn.Body))
		}
	}
	if sectionMatches("table", filter) {
		fmt.Fprintln(out, "Table section:")
		for i, tbl := range m.Tables {
			fmt.Fprintf(out, " - table[%d] %s\n", i, tbl.Type.Element)
		}
	}
	if sectionMatches("memory", filter) {
		fmt.Fprintln(out, "Memory section:")
		for i, mem := range m.Memories {
			fmt.Fprintf(out, " - memory[%d] min=%d\n", i, mem.Type.Limits.Min)
		}
	}
	if sectionMatches("global", filter) {
		fmt.Fprintln(out, "Global section:")
		for i, g := range m.Globals {
			fmt.Fprintf(out, " - global[%d] %s mut=%v\n", i, g.Type.Value, g.Type.Mut == ir.Var)
		}
	}
	if sectionMatches("export", filter) {
		fmt.Fprintln(out, "Export section:")
		for i, exp := range m.Exports {
			fmt.Fprintf(out, " - export[%d] %q: %s[%d]\n", i, exp.Name, exp.Kind, exp.Index)
		}
	}
	if m.HasStart && sectionMatches("start", filter) {
		fmt.Fprintf(out, "Start section:\n - start function: %d\n", m.Start)
	}
	if sectionMatches("element", filter) {
		fmt.Fprintln(out, "Element section:")
		for i, seg := range m.Elements {
			fmt.Fprintf(out, " - elem[%d] type=%s entries=%d\n", i, seg.Type, len(seg.Init))
		}
	}
	if sectionMatches("data", filter) {
		fmt.Fprintln(out, "Data section:")
		for i, seg := range m.Data {
			fmt.Fprintf(out, " - data[%d] type=%s size=%d\n", i, seg.Type, len(seg.Init))
		}
	}
	if sectionMatches("event", filter) {
		for i, ev := range m.Events {
			fmt.Fprintf(out, " - event[%d] type=%d\n", i, ev.Type.TypeIndex)
		}
	}
}
