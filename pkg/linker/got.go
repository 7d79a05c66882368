package linker

import "encoding/binary"

// GotSection records which symbols need a GOT entry and assigns each one
// an index; the entry's own byte layout (an 8-byte pointer slot written
// at relocation-apply time) is the only part spec.md keeps in scope --
// PLT stub machine code itself is a Non-goal. The Chunk embedding follows
// the teacher's OutputEhdr/OutputShdr shape; the GOT/GOTTP bookkeeping
// itself mirrors what the real Go linker's elfsetupplt does for amd64
// (MoZhonghua-go's cmd/link/internal/amd64/asm.go), generalized here to
// record index assignments only rather than writing PLT stub bytes.
type GotSection struct {
	Chunk
	entries []*Symbol
}

func NewGotSection() *GotSection {
	g := &GotSection{Chunk: *NewChunk()}
	g.Name = ".got"
	g.Shdr.Flags = 0x3 // SHF_WRITE|SHF_ALLOC
	g.Shdr.AddrAlign = 8
	g.Shdr.EntSize = 8
	return g
}

// AddEntry assigns sym a GOT index if it does not already have one.
func (g *GotSection) AddEntry(sym *Symbol) {
	if sym.GotIdx >= 0 {
		return
	}
	sym.GotIdx = int32(len(g.entries))
	g.entries = append(g.entries, sym)
}

func (g *GotSection) AddTlsEntry(sym *Symbol) {
	if sym.GotTpIdx >= 0 {
		return
	}
	sym.GotTpIdx = int32(len(g.entries))
	g.entries = append(g.entries, sym)
}

func (g *GotSection) GetAddr(idx int32) uint64 {
	return g.Shdr.Addr + uint64(idx)*8
}

func (g *GotSection) UpdateShdr(ctx *Context) {
	g.Shdr.Size = uint64(len(g.entries)) * 8
}

func (g *GotSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset:]
	for i, sym := range g.entries {
		binary.LittleEndian.PutUint64(buf[i*8:], sym.GetAddr())
	}
}

// ScanGotNeeds walks the symbol table and registers any symbol the scan
// phase flagged NeedsGot/NeedsGotTp into got.
func ScanGotNeeds(ctx *Context, got *GotSection) {
	ctx.Symbols.Range(func(sym *Symbol) {
		if sym.NeedsGot {
			got.AddEntry(sym)
		}
		if sym.NeedsGotTp {
			got.AddTlsEntry(sym)
		}
	})
}
