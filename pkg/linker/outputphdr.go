package linker

import (
	"debug/elf"

	"github.com/oss-linkers/rvld/pkg/utils"
)

// OutputPhdr owns the program header table: the PT_PHDR/PT_INTERP/
// PT_LOAD/PT_TLS/PT_DYNAMIC set that tells the kernel how to map the
// image. Grounded on the teacher's OutputPhdr/ToPhdrFlags/CreatePhdr/
// UpdateShdr, generalized from its RISC-V-only segment set with the
// PT_PHDR self-reference entry CreatePhdr emits first.
type OutputPhdr struct {
	Chunk
	Entries []Phdr
}

func NewOutputPhdr() *OutputPhdr {
	o := &OutputPhdr{Chunk: *NewChunk()}
	o.Name = "Phdr"
	o.Shdr.Flags = 0x2 // SHF_ALLOC
	o.Shdr.AddrAlign = 8
	return o
}

func toPhdrFlags(shFlags uint64, omagic bool) uint32 {
	flags := uint32(elf.PF_R)
	if shFlags&0x1 != 0 || omagic { // SHF_WRITE, or --omagic makes everything writable
		flags |= uint32(elf.PF_W)
	}
	if shFlags&0x4 != 0 { // SHF_EXECINSTR
		flags |= uint32(elf.PF_X)
	}
	return flags
}

// CreatePhdr builds the segment list from the final, laid-out
// OutputSections, grounded on the teacher's CreatePhdr: one PT_LOAD per
// maximal run of sections sharing the same R/W/X flags, plus PT_PHDR,
// PT_INTERP (when ctx.Interp is set), PT_TLS (if any SHF_TLS section
// exists) and PT_DYNAMIC (when ctx.Dynamic is set). No PT_GNU_RELRO
// segment is emitted.
func (o *OutputPhdr) CreatePhdr(ctx *Context) {
	o.Entries = nil

	o.Entries = append(o.Entries, Phdr{
		Type: uint32(elf.PT_PHDR), Flags: uint32(elf.PF_R),
		Align: 8,
	})

	if ctx.Interp != nil {
		shdr := ctx.Interp.GetShdr()
		o.Entries = append(o.Entries, Phdr{
			Type: uint32(elf.PT_INTERP), Flags: uint32(elf.PF_R),
			Offset: shdr.Offset, VAddr: shdr.Addr, PAddr: shdr.Addr,
			FileSize: shdr.Size, MemSize: shdr.Size, Align: 1,
		})
	}

	var tlsStart, tlsEnd uint64
	var haveTLS bool

	var cur *Phdr
	var curFlags uint32
	flush := func() {
		if cur != nil {
			o.Entries = append(o.Entries, *cur)
			cur = nil
		}
	}
	for _, osec := range ctx.OutputSections {
		if osec.Shdr.Flags&0x2 == 0 { // not SHF_ALLOC
			flush()
			continue
		}
		flags := toPhdrFlags(osec.Shdr.Flags, ctx.Args.Omagic)
		if cur == nil || flags != curFlags {
			flush()
			cur = &Phdr{Type: uint32(elf.PT_LOAD), Flags: flags, Align: PageSize,
				Offset: osec.Shdr.Offset, VAddr: osec.Shdr.Addr, PAddr: osec.Shdr.Addr}
			curFlags = flags
		}
		end := osec.Shdr.Addr + osec.Shdr.Size
		cur.MemSize = end - cur.VAddr
		if osec.Shdr.Type != uint32(elf.SHT_NOBITS) {
			cur.FileSize = end - cur.VAddr
		}
		if osec.Shdr.Flags&0x400 != 0 { // SHF_TLS
			if !haveTLS {
				tlsStart = osec.Shdr.Addr
				haveTLS = true
			}
			tlsEnd = end
		}
	}
	flush()

	if haveTLS {
		o.Entries = append(o.Entries, Phdr{
			Type: uint32(elf.PT_TLS), Flags: uint32(elf.PF_R),
			VAddr: tlsStart, PAddr: tlsStart,
			MemSize: tlsEnd - tlsStart, FileSize: tlsEnd - tlsStart,
			Align: 8,
		})
	}

	if ctx.Dynamic != nil {
		shdr := ctx.Dynamic.GetShdr()
		o.Entries = append(o.Entries, Phdr{
			Type: uint32(elf.PT_DYNAMIC), Flags: uint32(elf.PF_R | elf.PF_W),
			Offset: shdr.Offset, VAddr: shdr.Addr, PAddr: shdr.Addr,
			FileSize: shdr.Size, MemSize: shdr.Size, Align: 8,
		})
	}

	o.Shdr.Size = uint64(len(o.Entries) * PhdrSize)
}

// FixupSelf points the PT_PHDR entry at the phdr table's own final
// location, once the output coordinator has assigned it one.
func (o *OutputPhdr) FixupSelf() {
	if len(o.Entries) == 0 || o.Entries[0].Type != uint32(elf.PT_PHDR) {
		return
	}
	o.Entries[0].Offset = o.Shdr.Offset
	o.Entries[0].VAddr = o.Shdr.Addr
	o.Entries[0].PAddr = o.Shdr.Addr
	o.Entries[0].FileSize = uint64(len(o.Entries) * PhdrSize)
	o.Entries[0].MemSize = o.Entries[0].FileSize
}

func (o *OutputPhdr) UpdateShdr(ctx *Context) {
	o.Shdr.Size = uint64(len(o.Entries) * PhdrSize)
}

func (o *OutputPhdr) CopyBuf(ctx *Context) {
	buf := ctx.Buf[o.Shdr.Offset:]
	for i, p := range o.Entries {
		utils.Write(buf[i*PhdrSize:], p)
	}
}
