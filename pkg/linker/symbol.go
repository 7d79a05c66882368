package linker

import "sync"

// Symbol is the indirection slot spec.md §4.2 requires: every holder of a
// symbol by name shares the same *Symbol, so when resolution swaps its
// Body (Lazy -> DefinedRegular, say) every existing reference observes
// the new definition without being revisited. Grounded on the teacher's
// Symbol/GetSymbolByName/Clear, generalized from its fixed
// File/InputSection/Value triple into the Body sum type.
type Symbol struct {
	Name string
	Body SymbolBody

	// NeedsGot/NeedsGotTp/NeedsPlt/NeedsTlsGd record scan-phase findings
	// (spec.md §5's "GOT/PLT entry assignment bookkeeping... is in scope,
	// the entries' own byte layout is not"). ScanRelocations sets NeedsGot
	// and NeedsPlt; nothing in this package sets NeedsGotTp or NeedsTlsGd.
	// The output coordinator reads them when sizing the GOT/PLT chunks.
	NeedsGot   bool
	NeedsGotTp bool
	NeedsPlt   bool
	NeedsTlsGd bool

	GotIdx   int32
	PltIdx   int32
	GotTpIdx int32

	// Needed records that some object's symbol table held an actual
	// undefined (SHN_UNDEF) reference to this name. extractNeededLazySymbols
	// only pulls an archive member in when its Lazy symbol is Needed --
	// merely existing in the table (every archive member's globals are
	// pre-registered as Lazy by LoadArchives) is not a reference.
	Needed bool

	mu sync.Mutex
}

func NewSymbol(name string) *Symbol {
	return &Symbol{Name: name, Body: Undefined{}, GotIdx: -1, PltIdx: -1, GotTpIdx: -1}
}

// Clear resets a symbol back to Undefined, used when an object providing
// its current body turns out to be unreachable from any GC root
// (RunGC's dead-object sweep in resolver.go, via ClearSymbols).
func (s *Symbol) Clear() {
	s.Body = Undefined{}
	s.NeedsGot, s.NeedsGotTp, s.NeedsPlt, s.NeedsTlsGd = false, false, false, false
}

func (s *Symbol) IsDefined() bool {
	return isDefined(s.Body)
}

// MarkNeeded records that something referenced this symbol as undefined,
// the demand that triggers a Lazy body's archive member to extract.
func (s *Symbol) MarkNeeded() {
	s.mu.Lock()
	s.Needed = true
	s.mu.Unlock()
}

// resolve swaps in candidate if it outranks the current body per the
// precedence lattice, returning whether the swap happened. Guarded by a
// per-symbol mutex so concurrent per-object resolution passes (spec.md
// §5) can call this without a global lock.
func (s *Symbol) resolve(candidate SymbolBody) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ec, ok := s.Body.(DefinedCommon); ok {
		if cc, ok := candidate.(DefinedCommon); ok {
			align := ec.Alignment
			if cc.Alignment > align {
				align = cc.Alignment
			}
			if cc.Size > ec.Size {
				cc.Alignment = align
				s.Body = cc
				return true
			}
			ec.Alignment = align
			s.Body = ec
			return false
		}
	}
	if compareBodies(s.Body, candidate) {
		s.Body = candidate
		return true
	}
	return false
}

// GetAddr dispatches on the current body to the address a reference to
// this symbol should resolve to, mirroring the teacher's
// SectionFragment.GetAddr but over the full Body set instead of a single
// fragment pointer.
func (s *Symbol) GetAddr() uint64 {
	switch b := s.Body.(type) {
	case DefinedRegular:
		if b.Section == nil {
			return b.Value
		}
		return b.Section.Representative().Addr + b.Value
	case DefinedAbsolute:
		return b.Value
	case DefinedSynthetic:
		if b.Resolver != nil {
			return b.Resolver()
		}
		if b.Section != nil {
			return b.Section.Addr + b.Value
		}
		return b.Value
	case DefinedCommon:
		return 0 // not yet assigned storage; output coordinator allocates common symbols into .bss
	default:
		return 0
	}
}

func (s *Symbol) IsWeak() bool {
	return s.Body.isWeak()
}

// SymbolTable is the name -> slot map the resolver and every object file
// share, grounded on the teacher's package-level GetSymbolByName plus its
// per-Context SymbolMap (generalized here into its own type, with a
// mutex, so Context just embeds one instead of hand-rolling the locking).
type SymbolTable struct {
	mu      sync.Mutex
	symbols map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*Symbol)}
}

// GetOrInsert returns the Symbol for name, creating an Undefined one on
// first sight. This is the single synchronization point multiple object
// files' resolution passes fan into.
func (t *SymbolTable) GetOrInsert(name string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sym, ok := t.symbols[name]; ok {
		return sym
	}
	sym := NewSymbol(name)
	t.symbols[name] = sym
	return sym
}

func (t *SymbolTable) Lookup(name string) *Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.symbols[name]
}

func (t *SymbolTable) Range(fn func(*Symbol)) {
	t.mu.Lock()
	syms := make([]*Symbol, 0, len(t.symbols))
	for _, s := range t.symbols {
		syms = append(syms, s)
	}
	t.mu.Unlock()
	for _, s := range syms {
		fn(s)
	}
}
