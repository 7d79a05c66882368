package linker

// InterpSection holds the PT_INTERP path string for a dynamically linked
// executable (--dynamic-linker), a one-field Chunk in the same shape as
// GotSection/PltSection.
type InterpSection struct {
	Chunk
	Path string
}

func NewInterpSection(path string) *InterpSection {
	i := &InterpSection{Chunk: *NewChunk(), Path: path}
	i.Name = ".interp"
	i.Shdr.Flags = 0x2 // SHF_ALLOC
	i.Shdr.AddrAlign = 1
	i.Shdr.Size = uint64(len(path)) + 1 // NUL-terminated
	return i
}

func (i *InterpSection) UpdateShdr(ctx *Context) {
	i.Shdr.Size = uint64(len(i.Path)) + 1
}

func (i *InterpSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[i.Shdr.Offset:]
	copy(buf, i.Path)
	buf[len(i.Path)] = 0
}
