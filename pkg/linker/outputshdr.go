package linker

import "github.com/oss-linkers/rvld/pkg/utils"

// OutputShdr owns the section header table plus its accompanying
// .shstrtab, grounded on the teacher's OutputShdr/UpdateShdr/CopyBuf.
type OutputShdr struct {
	Chunk
	Shstrtab    []byte
	nameOffsets map[string]uint32
	ShstrtabIdx uint16
}

func NewOutputShdr() *OutputShdr {
	o := &OutputShdr{Chunk: *NewChunk(), nameOffsets: map[string]uint32{}}
	o.Name = "Shdr"
	o.Shstrtab = []byte{0}
	return o
}

func (o *OutputShdr) internName(name string) uint32 {
	if off, ok := o.nameOffsets[name]; ok {
		return off
	}
	off := uint32(len(o.Shstrtab))
	o.nameOffsets[name] = off
	o.Shstrtab = append(o.Shstrtab, []byte(name)...)
	o.Shstrtab = append(o.Shstrtab, 0)
	return off
}

// Build interns every chunk's name into .shstrtab and records the
// section-header-table's own entry count, grounded on the teacher's
// UpdateShdr.
func (o *OutputShdr) Build(ctx *Context) {
	for _, c := range ctx.Chunks {
		o.internName(c.GetName())
	}
	o.ShstrtabIdx = uint16(len(ctx.Chunks) + 1)
	o.Shdr.Size = uint64((len(ctx.Chunks) + 1) * ShdrSize)
}

func (o *OutputShdr) UpdateShdr(ctx *Context) {
	o.Shdr.Size = uint64((len(ctx.Chunks) + 1) * ShdrSize)
}

func (o *OutputShdr) CopyBuf(ctx *Context) {
	buf := ctx.Buf[o.Shdr.Offset:]
	// index 0 is the reserved null section header; leave it zeroed.
	for i, c := range ctx.Chunks {
		shdr := *c.GetShdr()
		shdr.Name = o.nameOffsets[c.GetName()]
		utils.Write(buf[(i+1)*ShdrSize:], shdr)
	}
}
