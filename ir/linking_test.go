package ir

import "testing"

func TestLinkingSectionAccumulatesSubsections(t *testing.T) {
	l := NewLinkingSection()
	l.SegmentInfos = append(l.SegmentInfos, SegmentInfo{Name: ".data", AlignLog2: 4})
	l.InitFuncs = append(l.InitFuncs, InitFunction{Index: 3, Priority: 100})
	l.Comdats = append(l.Comdats, ComdatInfo{
		Name: "group",
		Symbols: []ComdatSymbol{
			{Kind: SymbolFunction, Index: 3},
		},
	})

	if len(l.SegmentInfos) != 1 || l.SegmentInfos[0].Name != ".data" {
		t.Fatalf("segment info not recorded: %v", l.SegmentInfos)
	}
	if len(l.InitFuncs) != 1 || l.InitFuncs[0].Priority != 100 {
		t.Fatalf("init function not recorded: %v", l.InitFuncs)
	}
	if len(l.Comdats) != 1 || len(l.Comdats[0].Symbols) != 1 {
		t.Fatalf("comdat not recorded: %v", l.Comdats)
	}
}

func TestSymbolInfoKindString(t *testing.T) {
	cases := map[SymbolInfoKind]string{
		SymbolFunction: "F",
		SymbolData:     "D",
		SymbolGlobal:   "G",
		SymbolSection:  "S",
		SymbolEvent:    "E",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}
