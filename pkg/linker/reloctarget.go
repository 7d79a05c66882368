package linker

// Reference is a relocation edge: an offset inside some InputSection that
// must be patched against a target (symbol, which may itself denote an
// atom via a section-local STT_SECTION symbol) plus an addend. This is
// "Reference" from spec.md §3 -- new relative to the teacher, which had
// no relocation model at all.
type Reference struct {
	Offset uint64  // offset-in-source
	Kind   uint32  // architecture-specific relocation-kind enum
	Sym    *Symbol // target-symbol-or-atom
	Addend int64

	// IsPcRel records whether the on-disk record was PC-relative (needed
	// to reconstruct the correct addend convention when re-emitting an
	// external relocation for -r output).
	IsPcRel bool
}

// ApplyContext carries everything an architecture's Apply function needs
// to compute the bytes for one Reference. FixupVA/InAtomVA/TargetVA are
// always virtual addresses in the *final* output; Final distinguishes the
// two apply paths spec.md §4.1 requires:
//
//   - Final: the stored displacement is computed directly against TargetVA.
//   - Relocatable (-r): when NeedsExternalReloc is set, the displacement is
//     computed against Addend alone, because the eventual consumer
//     re-applies the relocation; TargetVA must be ignored in that case.
type ApplyContext struct {
	FixupVA  uint64
	TargetVA uint64
	Addend   int64
	InAtomVA uint64

	TargetIsThumb bool

	Final              bool
	NeedsExternalReloc bool
}

// value returns the displacement/target value an Apply implementation
// should encode, honoring the Final/NeedsExternalReloc routing rule.
func (a ApplyContext) value() int64 {
	if !a.Final && a.NeedsExternalReloc {
		return a.Addend
	}
	return int64(a.TargetVA) + a.Addend
}

// Target is the per-architecture capability record described in spec.md
// §4.1/§9: a value holding the relocation-kind predicates plus decode/apply
// functions, standing in for what would otherwise be a
// Reader/Writer/TargetHandler inheritance graph.
type Target interface {
	Name() string

	// IsCallSite reports whether kind denotes a call/branch-class fixup
	// (candidates for PLT routing at scan time).
	IsCallSite(kind uint32) bool
	// IsPointer reports whether kind stores an absolute address (GOT/data
	// pointer-class fixup).
	IsPointer(kind uint32) bool
	// IsPaired reports whether kind only has meaning alongside a following
	// paired record (MIPS HI16/LO16, Mach-O-style SECTDIFF/PAIR).
	IsPaired(kind uint32) bool

	// FootprintBytes returns how many bytes of the source atom kind's
	// apply touches, for the offset+footprint(kind) <= source.size
	// invariant in spec.md §3.
	FootprintBytes(kind uint32) int

	// NeedsExternalReloc reports whether, for relocatable (-r) output, a
	// reference to sym must be emitted as a symbol-indexed external
	// relocation rather than a section-indexed one (spec.md §4.1's
	// "External-vs-internal routing").
	NeedsExternalReloc(sym *Symbol) bool

	// Apply writes the fixed-up bytes for ref into buf (buf is the
	// fixup-site's containing atom bytes, already sliced so buf[0] is the
	// byte at ref.Offset).
	Apply(buf []byte, ref *Reference, actx ApplyContext) error

	// DecodeField is the inverse of the bit-packing half of Apply: given
	// the bytes already written for kind, it recovers the value that was
	// encoded. Used both internally (MIPS HI16/LO16 carry, paired-addend
	// reconstruction) and by the round-trip property tests in spec.md §8.
	DecodeField(buf []byte, kind uint32) int64
}

// thumbBit clears (or, for function-pointer forms, preserves) the ARM
// Thumb discipline bit described in spec.md §4.1: "if the target atom is
// thumb, the low bit of the stored value must be cleared before treating
// it as an addend, then OR-restored only for function-pointer forms that
// require it."
func thumbBit(value int64, isThumb, restoreForFuncPointer bool) int64 {
	if !isThumb {
		return value
	}
	cleared := value &^ 1
	if restoreForFuncPointer {
		return cleared | 1
	}
	return cleared
}
