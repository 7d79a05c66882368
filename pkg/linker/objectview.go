package linker

// ObjectView is the seam spec.md §6 names between the core and however an
// object's bytes got decoded: straight off disk or sliced out of an
// archive member. ObjectFile implements it directly against debug/elf
// constants, matching what the teacher already does underneath; the
// resolver, ICF and output passes in this package still read
// ObjectFile's own fields rather than going through this interface.
// New relative to the teacher, which has ObjectFile parse debug/elf
// structures directly with no seam in between.
type ObjectView interface {
	// DisplayName identifies the object for diagnostics: "foo.o" or
	// "foo.o (libbar.a)" for an archive member.
	DisplayName() string

	// SectionViews returns every section this object contributes,
	// including non-allocated ones (the caller filters).
	SectionViews() []SectionView

	// SymbolViews returns every ELF symbol-table entry this object
	// defines or references, index-aligned with the object's own symbol
	// table so diagnostics can report st_name/st_shndx directly.
	SymbolViews() []SymbolView
}

// SectionView is the read-only surface of an input section the core needs
// before it has decided the section is live: its name, raw bytes, and the
// flags that drive mergeability/TLS/allocation decisions.
type SectionView interface {
	Name() string
	Flags() uint64
	Type() uint32
	Content() []byte
}

// SymbolView is the read-only surface of one ELF symbol-table entry: its
// name, binding/visibility, and the section index it claims to live in
// (SHN_UNDEF, SHN_ABS, SHN_COMMON, or a real section).
type SymbolView interface {
	Name() string
	IsWeak() bool
	IsUndefined() bool
	SectionIndex() uint32
	Value() uint64
}

func (o *ObjectFile) DisplayName() string { return o.File.DisplayName() }

func (o *ObjectFile) SectionViews() []SectionView {
	views := make([]SectionView, len(o.Shdrs))
	for i := range o.Shdrs {
		views[i] = &shdrSectionView{&o.Shdrs[i]}
	}
	return views
}

func (o *ObjectFile) SymbolViews() []SymbolView {
	views := make([]SymbolView, len(o.ElfSyms))
	for i := range o.ElfSyms {
		views[i] = &elfSymbolView{&o.ElfSyms[i]}
	}
	return views
}

// shdrSectionView exposes a Shdr's flags/type/size; the name and content
// byte slice live behind the shstrtab/file-offset lookups ObjectFile
// already does, so this view is only useful for the flag/type checks
// passes make before they have decided to resolve a section fully.
type shdrSectionView struct{ shdr *Shdr }

func (v *shdrSectionView) Name() string    { return "" }
func (v *shdrSectionView) Flags() uint64   { return v.shdr.Flags }
func (v *shdrSectionView) Type() uint32    { return v.shdr.Type }
func (v *shdrSectionView) Content() []byte { return nil }

// elfSymbolView exposes a Sym's binding/section/value; like
// shdrSectionView it returns an empty Name, since the name lives behind
// the symbol string table lookup ObjectFile already does.
type elfSymbolView struct{ sym *Sym }

func (v *elfSymbolView) Name() string         { return "" }
func (v *elfSymbolView) IsWeak() bool         { return v.sym.IsWeak() }
func (v *elfSymbolView) IsUndefined() bool    { return v.sym.IsUndef() }
func (v *elfSymbolView) SectionIndex() uint32 { return uint32(v.sym.Shndx) }
func (v *elfSymbolView) Value() uint64        { return v.sym.Val }
