package linker

import "encoding/binary"

const (
	Riscv64None uint32 = iota
	Riscv64_64         // absolute 64-bit pointer
	Riscv64Call        // AUIPC+JALR pair, treated here as one 32-bit pc-relative word
	Riscv64Branch      // conditional branch, 12-bit word-aligned displacement
	// Riscv64Align is a pseudo-reference carrying no bytes of its own:
	// it marks where a linker-relaxation pass could delete NOP bytes, but
	// no pass in this package consumes it and no section is ever shrunk.
	// New: the teacher applies no relaxation either. Apply is a no-op for
	// it.
	Riscv64Align
)

type riscv64Target struct{}

func (riscv64Target) Name() string { return "riscv64" }

func (riscv64Target) IsCallSite(kind uint32) bool { return kind == Riscv64Call }

func (riscv64Target) IsPointer(kind uint32) bool { return kind == Riscv64_64 }

func (riscv64Target) IsPaired(uint32) bool { return false }

func (riscv64Target) FootprintBytes(kind uint32) int {
	switch kind {
	case Riscv64_64:
		return 8
	case Riscv64Align:
		return 0
	default:
		return 4
	}
}

func (riscv64Target) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

func (t riscv64Target) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case Riscv64_64:
		binary.LittleEndian.PutUint64(buf, uint64(a.value()))
		return nil
	case Riscv64Call:
		binary.LittleEndian.PutUint32(buf, uint32(a.value()-int64(a.FixupVA)))
		return nil
	case Riscv64Branch:
		disp := uint32(a.value()-int64(a.FixupVA)) & 0x1FFF
		instr := binary.LittleEndian.Uint32(buf)
		binary.LittleEndian.PutUint32(buf, (instr&^0x1FFF)|disp)
		return nil
	case Riscv64Align:
		return nil
	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (riscv64Target) DecodeField(buf []byte, kind uint32) int64 {
	switch kind {
	case Riscv64_64:
		return int64(binary.LittleEndian.Uint64(buf))
	case Riscv64Call:
		return int64(int32(binary.LittleEndian.Uint32(buf)))
	case Riscv64Branch:
		return int64(binary.LittleEndian.Uint32(buf) & 0x1FFF)
	default:
		return 0
	}
}
