package linker

import (
	"debug/elf"

	"github.com/oss-linkers/rvld/pkg/utils"
)

// OutputEhdr is the Chunker that owns the final ELF file header,
// grounded on the teacher's OutputEhdr/GetEntryAddress/GetFlags,
// generalized from a single hardcoded RISC-V e_flags value to one
// computed per MachineType.
type OutputEhdr struct {
	Chunk
}

func NewOutputEhdr() *OutputEhdr {
	o := &OutputEhdr{Chunk: *NewChunk()}
	o.Name = "Ehdr"
	o.Shdr.Size = uint64(EhdrSize)
	o.Shdr.Flags = 0x2 // SHF_ALLOC
	return o
}

func (o *OutputEhdr) UpdateShdr(ctx *Context) {}

func (o *OutputEhdr) CopyBuf(ctx *Context) {
	var ehdr Ehdr
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[4] = 2 // ELFCLASS64
	ehdr.Ident[5] = 1 // ELFDATA2LSB
	ehdr.Ident[6] = 1 // EV_CURRENT

	switch {
	case ctx.Args.Relocatable:
		ehdr.Type = uint16(elf.ET_REL)
	case ctx.Args.Shared:
		ehdr.Type = uint16(elf.ET_DYN)
	default:
		ehdr.Type = uint16(elf.ET_EXEC)
	}
	ehdr.Machine = elfMachineFor(ctx.Args.Emulation)
	ehdr.Version = 1
	ehdr.Entry = o.GetEntryAddress(ctx)
	ehdr.PhOff = ctx.Phdr.Shdr.Offset
	ehdr.ShOff = ctx.Shdr.Shdr.Offset
	ehdr.Flags = o.GetFlags(ctx)
	ehdr.EhSize = uint16(EhdrSize)
	ehdr.PhEntSize = uint16(PhdrSize)
	ehdr.PhNum = uint16(len(ctx.Phdr.Entries))
	ehdr.ShEntSize = uint16(ShdrSize)
	ehdr.ShNum = uint16(len(ctx.Chunks) + 1)
	ehdr.ShStrndx = ctx.Shdr.ShstrtabIdx

	utils.Write(ctx.Buf[o.Shdr.Offset:], ehdr)
}

// GetEntryAddress resolves the entry symbol's address: -e/--entry names
// it explicitly, otherwise `_start` is the implicit default the way a
// C runtime's crt1.o provides it. Relocatable (-r) output has no entry
// point at all.
func (o *OutputEhdr) GetEntryAddress(ctx *Context) uint64 {
	if ctx.Args.Relocatable {
		return 0
	}
	name := ctx.Args.Entry
	if name == "" {
		name = "_start"
	}
	sym := ctx.Symbols.Lookup(name)
	if sym == nil || !sym.IsDefined() {
		return 0
	}
	return sym.GetAddr()
}

// GetFlags returns the e_flags value for the target machine, grounded on
// the teacher's GetFlags (which only ever returned EF_RISCV_RVC).
func (o *OutputEhdr) GetFlags(ctx *Context) uint32 {
	if ctx.Args.Emulation == MachineTypeRISCV64 {
		return EF_RISCV_RVC
	}
	return 0
}

func elfMachineFor(m MachineType) uint16 {
	switch m {
	case MachineTypeRISCV64:
		return uint16(elf.EM_RISCV)
	case MachineTypeARM:
		return uint16(elf.EM_ARM)
	case MachineTypeX86_64:
		return uint16(elf.EM_X86_64)
	case MachineTypeHexagon:
		return uint16(emHexagon)
	case MachineTypeAArch64:
		return uint16(elf.EM_AARCH64)
	case MachineTypeI386:
		return uint16(elf.EM_386)
	case MachineTypeMIPS:
		return uint16(elf.EM_MIPS)
	case MachineTypePPC64:
		return uint16(elf.EM_PPC64)
	default:
		return 0
	}
}
