package linker

import "encoding/binary"

const (
	Aarch64None uint32 = iota
	Aarch64Call26     // BL: 26-bit word displacement, bits[25:0]
	Aarch64Jump26     // B: same encoding, different call-site treatment
	Aarch64Pointer64  // absolute 64-bit pointer
	Aarch64MovwG0     // MOVZ/MOVK immediate, bits [63:0] quarter 0 (shift 0)
	Aarch64MovwG1     // quarter 1 (shift 16)
	Aarch64MovwG2     // quarter 2 (shift 32)
	Aarch64MovwG3     // quarter 3 (shift 48)
)

type aarch64Target struct{}

func (aarch64Target) Name() string { return "aarch64" }

func (aarch64Target) IsCallSite(kind uint32) bool {
	return kind == Aarch64Call26 || kind == Aarch64Jump26
}

func (aarch64Target) IsPointer(kind uint32) bool { return kind == Aarch64Pointer64 }

func (aarch64Target) IsPaired(uint32) bool { return false }

func (aarch64Target) FootprintBytes(kind uint32) int {
	if kind == Aarch64Pointer64 {
		return 8
	}
	return 4
}

func (aarch64Target) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

func movwQuarterShift(kind uint32) uint {
	switch kind {
	case Aarch64MovwG1:
		return 16
	case Aarch64MovwG2:
		return 32
	case Aarch64MovwG3:
		return 48
	default:
		return 0
	}
}

func (t aarch64Target) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case Aarch64Call26, Aarch64Jump26:
		disp := a.value() - int64(a.FixupVA)
		instr := binary.LittleEndian.Uint32(buf)
		instr = (instr &^ 0x03FFFFFF) | (uint32(disp>>2) & 0x03FFFFFF)
		binary.LittleEndian.PutUint32(buf, instr)
		return nil
	case Aarch64Pointer64:
		binary.LittleEndian.PutUint64(buf, uint64(a.value()))
		return nil
	case Aarch64MovwG0, Aarch64MovwG1, Aarch64MovwG2, Aarch64MovwG3:
		shift := movwQuarterShift(ref.Kind)
		imm16 := uint32(a.value()>>shift) & 0xFFFF
		instr := binary.LittleEndian.Uint32(buf)
		instr = (instr &^ (0xFFFF << 5)) | (imm16 << 5)
		binary.LittleEndian.PutUint32(buf, instr)
		return nil
	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (aarch64Target) DecodeField(buf []byte, kind uint32) int64 {
	switch kind {
	case Aarch64Call26, Aarch64Jump26:
		instr := binary.LittleEndian.Uint32(buf)
		field := instr & 0x03FFFFFF
		if field&(1<<25) != 0 {
			return (int64(field) - (1 << 26)) << 2
		}
		return int64(field) << 2
	case Aarch64Pointer64:
		return int64(binary.LittleEndian.Uint64(buf))
	case Aarch64MovwG0, Aarch64MovwG1, Aarch64MovwG2, Aarch64MovwG3:
		instr := binary.LittleEndian.Uint32(buf)
		imm16 := (instr >> 5) & 0xFFFF
		return int64(imm16) << movwQuarterShift(kind)
	default:
		return 0
	}
}
