package linker

import "encoding/binary"

// HashSection builds the SysV-style `.hash` section spec.md §6 and §9's
// supplemented per-name-hash feature call for: a bucket array indexed by
// ELFHash(name)%nbucket, plus a chain array letting a lookup walk every
// dynsym entry with a colliding hash. Grounded on original_source's
// SymbolTable.cpp family (per-name `.hash` construction, §9 of
// SPEC_FULL.md); the teacher builds no dynamic sections at all.
type HashSection struct {
	Chunk

	Dynsym *DynsymSection
	nbucket uint32
	chain   []uint32
	bucket  []uint32
}

func NewHashSection(dynsym *DynsymSection) *HashSection {
	h := &HashSection{Chunk: *NewChunk(), Dynsym: dynsym}
	h.Name = ".hash"
	h.Shdr.Flags = 0x2 // SHF_ALLOC
	h.Shdr.AddrAlign = 4
	h.Shdr.EntSize = 4
	return h
}

// Build computes the bucket/chain arrays from the dynsym's current entry
// set. Must run after every AddEntry call on the paired DynsymSection.
func (h *HashSection) Build() {
	n := uint32(len(h.Dynsym.entries))
	h.nbucket = n
	if h.nbucket == 0 {
		h.nbucket = 1
	}
	h.bucket = make([]uint32, h.nbucket)
	h.chain = make([]uint32, n)
	for i, sym := range h.Dynsym.entries {
		if sym == nil {
			continue // reserved null entry, chain[0] stays 0
		}
		b := ELFHash(sym.Name) % h.nbucket
		h.chain[i] = h.bucket[b]
		h.bucket[b] = uint32(i)
	}
}

func (h *HashSection) UpdateShdr(ctx *Context) {
	h.Build()
	h.Shdr.Size = uint64(2+len(h.bucket)+len(h.chain)) * 4
}

func (h *HashSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[h.Shdr.Offset:]
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(h.bucket)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(h.chain)))
	off := 8
	for _, b := range h.bucket {
		binary.LittleEndian.PutUint32(buf[off:], b)
		off += 4
	}
	for _, c := range h.chain {
		binary.LittleEndian.PutUint32(buf[off:], c)
		off += 4
	}
}
