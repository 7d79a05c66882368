package linker

import "github.com/oss-linkers/rvld/pkg/utils"

// DynsymSection is the dynamic symbol table spec.md §6 names: the subset
// of the global symbol table a dynamic linker needs at load time, either
// because this object imports it from a shared library (a Shared body)
// or exports it for others to import (a defined, globally-visible symbol,
// when linking -shared). New relative to the teacher, which produces
// only static, non-dynamic output and carries no dynamic symbol table at
// all; the entry layout follows debug/elf's Sym64 shape the way
// OutputShdr already writes Shdr structs with utils.Write.
type DynsymSection struct {
	Chunk

	entries []*Symbol
	indices map[*Symbol]uint32
	Strtab  *DynstrSection
}

func NewDynsymSection(strtab *DynstrSection) *DynsymSection {
	d := &DynsymSection{Chunk: *NewChunk(), indices: map[*Symbol]uint32{}, Strtab: strtab}
	d.Name = ".dynsym"
	d.Shdr.Flags = 0x2 // SHF_ALLOC
	d.Shdr.AddrAlign = 8
	d.Shdr.EntSize = uint64(SymSize)
	// index 0 is the reserved null entry every ELF symbol table carries.
	d.entries = append(d.entries, nil)
	return d
}

// AddEntry assigns sym a dynamic-symbol-table index, interning its name
// into the paired dynstr, and returns the index. Idempotent per symbol.
func (d *DynsymSection) AddEntry(sym *Symbol) uint32 {
	if idx, ok := d.indices[sym]; ok {
		return idx
	}
	idx := uint32(len(d.entries))
	d.indices[sym] = idx
	d.entries = append(d.entries, sym)
	d.Strtab.Intern(sym.Name)
	return idx
}

func (d *DynsymSection) Index(sym *Symbol) (uint32, bool) {
	idx, ok := d.indices[sym]
	return idx, ok
}

func (d *DynsymSection) UpdateShdr(ctx *Context) {
	d.Shdr.Size = uint64(len(d.entries)) * uint64(SymSize)
}

func (d *DynsymSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[d.Shdr.Offset:]
	for i, sym := range d.entries {
		if sym == nil {
			continue // reserved null entry
		}
		var s Sym
		s.Name = d.Strtab.Offset(sym.Name)
		if _, isShared := sym.Body.(Shared); isShared {
			s.Shndx = 0
		} else {
			s.Val = sym.GetAddr()
			s.Shndx = 1 // any non-zero placeholder; real section index needs full layout, out of scope per spec.md's PLT/GOT byte-emission Non-goal
		}
		if sym.IsWeak() {
			s.SetBind(2) // STB_WEAK
		} else {
			s.SetBind(1) // STB_GLOBAL
		}
		utils.Write(buf[i*SymSize:], s)
	}
}

// DynstrSection is the dynamic string table paired with DynsymSection,
// following the same intern-and-offset pattern OutputShdr uses for
// .shstrtab.
type DynstrSection struct {
	Chunk

	buf     []byte
	offsets map[string]uint32
}

func NewDynstrSection() *DynstrSection {
	d := &DynstrSection{Chunk: *NewChunk(), buf: []byte{0}, offsets: map[string]uint32{}}
	d.Name = ".dynstr"
	d.Shdr.Flags = 0x2 // SHF_ALLOC
	d.Shdr.AddrAlign = 1
	return d
}

func (d *DynstrSection) Intern(name string) uint32 {
	if off, ok := d.offsets[name]; ok {
		return off
	}
	off := uint32(len(d.buf))
	d.offsets[name] = off
	d.buf = append(d.buf, []byte(name)...)
	d.buf = append(d.buf, 0)
	return off
}

func (d *DynstrSection) Offset(name string) uint32 { return d.offsets[name] }

func (d *DynstrSection) UpdateShdr(ctx *Context) { d.Shdr.Size = uint64(len(d.buf)) }

func (d *DynstrSection) CopyBuf(ctx *Context) {
	copy(ctx.Buf[d.Shdr.Offset:], d.buf)
}

// ScanDynsymNeeds populates dynsym with every symbol the dynamic linker
// must see at load time: Shared bodies (imports) always, and every
// globally-visible, non-weak defined symbol when building a shared object
// (exports).
func ScanDynsymNeeds(ctx *Context, dynsym *DynsymSection) {
	ctx.Symbols.Range(func(sym *Symbol) {
		if _, ok := sym.Body.(Shared); ok {
			dynsym.AddEntry(sym)
			return
		}
		if ctx.Args.Shared && isDefined(sym.Body) && !sym.IsWeak() {
			dynsym.AddEntry(sym)
		}
	})
}
