package linker

import "encoding/binary"

// DynamicTag names the standard `.dynamic` entry kinds spec.md §6 lists.
type DynamicTag int64

const (
	DtNull     DynamicTag = 0
	DtNeeded   DynamicTag = 1
	DtHash     DynamicTag = 4
	DtStrtab   DynamicTag = 5
	DtSymtab   DynamicTag = 6
	DtStrsz    DynamicTag = 10
	DtSyment   DynamicTag = 11
	DtInit     DynamicTag = 12
	DtFini     DynamicTag = 13
	DtSoname   DynamicTag = 14
	DtRpath    DynamicTag = 15
	DtPltgot   DynamicTag = 3
	DtPltrelsz DynamicTag = 2
	DtJmprel   DynamicTag = 23
	DtRunpath  DynamicTag = 29
)

// dynamicEntry is one on-disk Elf64_Dyn (tag, value) pair.
type dynamicEntry struct {
	Tag DynamicTag
	Val uint64
}

// DynamicSection assembles the `.dynamic` table: DT_NEEDED, DT_SONAME,
// DT_RPATH, DT_HASH, DT_STRTAB, DT_SYMTAB, DT_STRSZ, DT_SYMENT, DT_INIT
// and DT_FINI, terminated by DT_NULL. It emits no DT_PLTGOT, DT_RELA*,
// DT_JMPREL, DT_PLTRELSZ or DT_RUNPATH entries. New relative to the
// teacher, which links static output only and carries no `.dynamic`
// section.
type DynamicSection struct {
	Chunk

	Needed  []string
	SOName  string
	RPath   string
	Init    string
	Fini    string

	Hash   *HashSection
	Dynsym *DynsymSection
	Dynstr *DynstrSection

	entries []dynamicEntry
}

func NewDynamicSection(hash *HashSection, dynsym *DynsymSection, dynstr *DynstrSection) *DynamicSection {
	d := &DynamicSection{Chunk: *NewChunk(), Hash: hash, Dynsym: dynsym, Dynstr: dynstr}
	d.Name = ".dynamic"
	d.Shdr.Flags = 0x3 // SHF_WRITE|SHF_ALLOC
	d.Shdr.AddrAlign = 8
	d.Shdr.EntSize = 16
	return d
}

// Build assembles the tag list from the section's configured fields plus
// its sibling chunks' addresses; must run after layout has assigned those
// chunks their final VAs.
func (d *DynamicSection) Build(ctx *Context) {
	d.entries = nil
	for _, needed := range d.Needed {
		d.entries = append(d.entries, dynamicEntry{DtNeeded, uint64(d.Dynstr.Intern(needed))})
	}
	if d.SOName != "" {
		d.entries = append(d.entries, dynamicEntry{DtSoname, uint64(d.Dynstr.Intern(d.SOName))})
	}
	if d.RPath != "" {
		d.entries = append(d.entries, dynamicEntry{DtRpath, uint64(d.Dynstr.Intern(d.RPath))})
	}
	d.entries = append(d.entries,
		dynamicEntry{DtHash, d.Hash.Shdr.Addr},
		dynamicEntry{DtStrtab, d.Dynstr.Shdr.Addr},
		dynamicEntry{DtSymtab, d.Dynsym.Shdr.Addr},
		dynamicEntry{DtStrsz, d.Dynstr.Shdr.Size},
		dynamicEntry{DtSyment, uint64(SymSize)},
	)
	if sym := ctx.Symbols.Lookup(d.Init); d.Init != "" && sym != nil {
		d.entries = append(d.entries, dynamicEntry{DtInit, sym.GetAddr()})
	}
	if sym := ctx.Symbols.Lookup(d.Fini); d.Fini != "" && sym != nil {
		d.entries = append(d.entries, dynamicEntry{DtFini, sym.GetAddr()})
	}
	d.entries = append(d.entries, dynamicEntry{DtNull, 0})
}

// UpdateShdr computes the tag count for sizing purposes. The address-
// dependent tag values (DT_HASH/DT_STRTAB/DT_SYMTAB) are not yet valid at
// this point -- layout has not run -- but the entry count they
// contribute is fixed regardless, so the size is already final.
func (d *DynamicSection) UpdateShdr(ctx *Context) {
	d.Build(ctx)
	d.Shdr.Size = uint64(len(d.entries)) * 16
}

func (d *DynamicSection) CopyBuf(ctx *Context) {
	d.Build(ctx) // addresses are final now; recompute with real values
	buf := ctx.Buf[d.Shdr.Offset:]
	for i, e := range d.entries {
		binary.LittleEndian.PutUint64(buf[i*16:], uint64(e.Tag))
		binary.LittleEndian.PutUint64(buf[i*16+8:], e.Val)
	}
}
