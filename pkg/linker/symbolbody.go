package linker

// SymbolBody is the sum type spec.md §4.2 describes: a symbol's body is
// exactly one of these variants at any point in resolution, and resolution
// is the act of replacing a lower-precedence body with a higher-precedence
// one behind the same Symbol slot. The teacher's Symbol carries a single
// fixed File/InputSection/Value triple; this generalizes that into the
// proper variant set original_source/ELF/Symbols.h's SymbolBody hierarchy
// describes (DefinedRegular/DefinedCommon/DefinedAbsolute/Undefined/Lazy).
type SymbolBody interface {
	bodyRank() int
	isWeak() bool
}

// DefinedRegular is a symbol defined by an ordinary atom: a byte range
// inside some InputSection.
type DefinedRegular struct {
	Section *InputSection
	Value   uint64 // offset within Section
	Weak    bool
}

func (DefinedRegular) bodyRank() int   { return rankDefinedRegular }
func (d DefinedRegular) isWeak() bool  { return d.Weak }

// DefinedCommon is a tentative (COMMON) definition: size+alignment only,
// no bytes yet. Multiple DefinedCommon bodies for the same name merge to
// the largest (original_source's mergeInCommon rule); a DefinedRegular
// always beats a DefinedCommon outright.
type DefinedCommon struct {
	Size      uint64
	Alignment uint64
	File      *ObjectFile
}

func (DefinedCommon) bodyRank() int  { return rankDefinedCommon }
func (DefinedCommon) isWeak() bool   { return false }

// DefinedAbsolute is a symbol with a fixed value, not tied to any section
// (linker-script-style ABS symbols, or st_shndx == SHN_ABS).
type DefinedAbsolute struct {
	Value uint64
	Weak  bool
}

func (DefinedAbsolute) bodyRank() int  { return rankDefinedRegular }
func (d DefinedAbsolute) isWeak() bool { return d.Weak }

// DefinedSynthetic is a symbol the linker itself manufactures: section
// boundary markers (__init_array_start, _end, ...), GOT/PLT entry labels.
type DefinedSynthetic struct {
	Value    uint64
	Section  *InputSection // nil for a pure absolute synthetic value
	Resolver func() uint64 // deferred: some synthetics aren't known until layout is final
	Weak     bool
}

func (DefinedSynthetic) bodyRank() int   { return rankDefinedSynthetic }
func (d DefinedSynthetic) isWeak() bool  { return d.Weak }

// DefinedBitcode stands in for a definition that exists only as an LTO
// bitcode symbol table entry, not yet materialized into a section. It
// acts as a strong def against Shared/Lazy/Undefined but yields to the
// eventual post-codegen DefinedRegular of the same name. Nothing in the
// output coordinator checks for a DefinedBitcode body that codegen never
// replaced (Non-goal: the LTO codegen step itself is out of scope,
// spec.md §2).
type DefinedBitcode struct {
	File *ObjectFile
	Weak bool
}

func (DefinedBitcode) bodyRank() int  { return rankDefinedBitcode }
func (d DefinedBitcode) isWeak() bool { return d.Weak }

// Shared is a definition satisfied by a dynamic shared object rather than
// a relocatable object. Bodies resolve against it the same as any other
// defined body, but the output coordinator never allocates it space.
type Shared struct {
	SOName string
}

func (Shared) bodyRank() int { return rankShared }
func (Shared) isWeak() bool  { return false }

// Undefined is the absence of a definition: the body a Symbol starts in
// before any object claims it, or settles into if nothing ever does.
type Undefined struct {
	File *ObjectFile // first file that referenced it, for diagnostics
}

func (Undefined) bodyRank() int { return rankUndefined }
func (Undefined) isWeak() bool  { return false }

// Lazy is a symbol satisfied by an as-yet-unextracted archive member. The
// resolver swaps a Lazy body out for whatever the member's own resolution
// produces the moment anything needs it (spec.md §4.3's extraction rule).
type Lazy struct {
	Archive *File
	Member  *File
}

func (Lazy) bodyRank() int { return rankLazy }
func (Lazy) isWeak() bool  { return false }

// Precedence lattice per spec.md §4.2, highest first: strong defs
// (Regular/Absolute/Synthetic), then DefinedCommon (yields to any strong
// def, otherwise merges to the larger size), then DefinedBitcode (acts as
// a strong def until LTO codegen replaces it), then Shared (satisfied by
// any local Defined -- this is why it ranks below Common and Bitcode, not
// above), then Lazy, then Undefined. DefinedRegular and DefinedSynthetic
// never compete for the same name in well-formed input, but DefinedSynthetic
// is allowed to lose to an explicit user definition of the same reserved
// name (e.g. a hand-written _end), hence the strictly lower rank.
const (
	rankDefinedRegular = iota
	rankDefinedSynthetic
	rankDefinedCommon
	rankDefinedBitcode
	rankShared
	rankLazy
	rankUndefined
)

// compareBodies reports whether candidate should replace existing behind
// a Symbol slot. Ties (equal rank) prefer the non-weak body, and a strong
// definition colliding with another strong, non-weak definition of the
// same name is a multiple-definition error the caller must raise itself;
// compareBodies only decides precedence, never raises diagnostics.
func compareBodies(existing, candidate SymbolBody) bool {
	er, cr := existing.bodyRank(), candidate.bodyRank()
	if cr != er {
		return cr < er
	}
	if er == rankDefinedCommon {
		return candidate.(DefinedCommon).Size > existing.(DefinedCommon).Size
	}
	if existing.isWeak() && !candidate.isWeak() {
		return true
	}
	return false
}

func isDefined(b SymbolBody) bool {
	switch b.(type) {
	case Undefined, Lazy:
		return false
	default:
		return true
	}
}

// needsPltEntry reports whether a call-site reference to a symbol with
// this body must indirect through a PLT stub rather than a direct branch:
// still unresolved (Undefined/Lazy), satisfied by a shared object (always
// indirected, since the real address is only known at load time), or a
// preemptible weak/bitcode definition subject to interposition.
func needsPltEntry(b SymbolBody) bool {
	if !isDefined(b) {
		return true
	}
	switch v := b.(type) {
	case Shared:
		return true
	case DefinedRegular:
		return v.Weak
	case DefinedBitcode:
		return v.Weak
	default:
		return false
	}
}

// needsExternalRelocGeneric implements the External-vs-internal routing
// predicate spec.md §4.1 names: a reference to sym must become a
// symbol-indexed external relocation (rather than a section-indexed
// internal one) in relocatable (-r) output whenever sym's final address
// cannot be known purely from this link -- i.e. it is still undefined,
// satisfied by a shared object, or a preemptible (weak+global-visible)
// definition subject to interposition.
func needsExternalRelocGeneric(sym *Symbol) bool {
	if sym == nil {
		return false
	}
	switch b := sym.Body.(type) {
	case Undefined, Lazy, Shared:
		return true
	case DefinedRegular:
		return b.Weak
	case DefinedAbsolute:
		return b.Weak
	case DefinedBitcode:
		return b.Weak
	default:
		return false
	}
}
