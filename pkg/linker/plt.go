package linker

// PltSection tracks which undefined-at-link-time, call-site-referenced
// symbols need a PLT slot and assigns each an index; writing the actual
// stub machine code for a real architecture is out of scope (spec.md's
// Non-goals), so this chunk only carries the index bookkeeping a later
// codegen layer would consume.
type PltSection struct {
	Chunk
	entries []*Symbol
	entrySize uint64
}

func NewPltSection(entrySize uint64) *PltSection {
	p := &PltSection{Chunk: *NewChunk(), entrySize: entrySize}
	p.Name = ".plt"
	p.Shdr.Flags = 0x6 // SHF_ALLOC|SHF_EXECINSTR
	p.Shdr.AddrAlign = 16
	return p
}

func (p *PltSection) AddEntry(sym *Symbol) {
	if sym.PltIdx >= 0 {
		return
	}
	sym.PltIdx = int32(len(p.entries))
	p.entries = append(p.entries, sym)
}

func (p *PltSection) GetAddr(idx int32) uint64 {
	return p.Shdr.Addr + uint64(idx)*p.entrySize
}

func (p *PltSection) UpdateShdr(ctx *Context) {
	p.Shdr.Size = uint64(len(p.entries)) * p.entrySize
}

// CopyBuf leaves every stub slot zeroed: no Non-goal-violating stub
// codegen runs here, only the slot layout the GOT-indirect call sequence
// would occupy.
func (p *PltSection) CopyBuf(ctx *Context) {}

func ScanPltNeeds(ctx *Context, plt *PltSection) {
	ctx.Symbols.Range(func(sym *Symbol) {
		if sym.NeedsPlt {
			plt.AddEntry(sym)
		}
	})
}
