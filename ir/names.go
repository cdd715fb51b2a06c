package ir

// NameMap is an index-to-name binding, as carried by one subsection of
// the "name" custom section. Binary decoding and text parsing both
// populate it, so the formatter can round-trip symbolic names even
// though the binary format itself is purely index-based.
type NameMap struct {
	entries map[uint32]string
	order   []uint32 // insertion order, for deterministic re-emission
}

func NewNameMap() *NameMap {
	return &NameMap{entries: make(map[uint32]string)}
}

// Bind records name for idx. Re-binding the same idx overwrites the
// name but does not duplicate it in Order.
func (m *NameMap) Bind(idx uint32, name string) {
	if _, exists := m.entries[idx]; !exists {
		m.order = append(m.order, idx)
	}
	m.entries[idx] = name
}

func (m *NameMap) Lookup(idx uint32) (string, bool) {
	name, ok := m.entries[idx]
	return name, ok
}

// Order returns the bound indices in the order they were first bound.
func (m *NameMap) Order() []uint32 {
	return m.order
}

func (m *NameMap) Len() int { return len(m.entries) }

// LocalNameMap carries the per-function local-variable name maps of
// the "name" section's locals subsection.
type LocalNameMap struct {
	ByFunction map[uint32]*NameMap
}

func NewLocalNameMap() *LocalNameMap {
	return &LocalNameMap{ByFunction: make(map[uint32]*NameMap)}
}

func (l *LocalNameMap) ForFunction(funcIndex uint32) *NameMap {
	m, ok := l.ByFunction[funcIndex]
	if !ok {
		m = NewNameMap()
		l.ByFunction[funcIndex] = m
	}
	return m
}

// NameSection is the decoded, structured form of the "name" custom
// section: a module name plus one NameMap per index space the name
// section subsections may describe.
type NameSection struct {
	HasModuleName bool
	ModuleName    string

	Functions      *NameMap
	Locals         *LocalNameMap
	Types          *NameMap
	Tables         *NameMap
	Memories       *NameMap
	Globals        *NameMap
	ElementSegs    *NameMap
	DataSegs       *NameMap
	Labels         *LocalNameMap
	Events         *NameMap
}

func NewNameSection() *NameSection {
	return &NameSection{
		Functions:   NewNameMap(),
		Locals:      NewLocalNameMap(),
		Types:       NewNameMap(),
		Tables:      NewNameMap(),
		Memories:    NewNameMap(),
		Globals:     NewNameMap(),
		ElementSegs: NewNameMap(),
		DataSegs:    NewNameMap(),
		Labels:      NewLocalNameMap(),
		Events:      NewNameMap(),
	}
}

// Scope is a lexical binding scope used by the text parser to resolve
// symbolic identifiers ($foo) against their numeric index, one per
// index space, plus a stack of label scopes for branch targets.
type Scope struct {
	byName map[string]uint32
	next   uint32
}

func NewScope() *Scope {
	return &Scope{byName: make(map[string]uint32)}
}

// Declare binds name (if non-empty) to the next sequential index in
// this scope and returns the assigned index. ok is false if name was
// already bound, signaling a duplicate-binding diagnostic upstream.
func (s *Scope) Declare(name string) (idx uint32, ok bool) {
	idx = s.next
	s.next++
	if name == "" {
		return idx, true
	}
	if _, dup := s.byName[name]; dup {
		return idx, false
	}
	s.byName[name] = idx
	return idx, true
}

func (s *Scope) Resolve(name string) (uint32, bool) {
	idx, ok := s.byName[name]
	return idx, ok
}

func (s *Scope) Len() int { return int(s.next) }

// LabelStack resolves branch-target depths against the $label
// identifiers bound by block/loop/if/try, following the shadowing
// rules of nested scopes: an inner label may reuse an outer one's
// name, and the innermost binding wins.
type LabelStack struct {
	names []string // "" for unbound labels; innermost is last
}

// Push enters a new label scope; its label becomes the innermost one
// (depth 0) until the matching Pop.
func (s *LabelStack) Push(name string) {
	s.names = append(s.names, name)
}

func (s *LabelStack) Pop() {
	s.names = s.names[:len(s.names)-1]
}

// Resolve finds the branch depth of name, counting outward from the
// innermost label (depth 0).
func (s *LabelStack) Resolve(name string) (depth uint32, ok bool) {
	for i := len(s.names) - 1; i >= 0; i-- {
		if s.names[i] == name {
			return uint32(len(s.names) - 1 - i), true
		}
	}
	return 0, false
}

func (s *LabelStack) Depth() int { return len(s.names) }
