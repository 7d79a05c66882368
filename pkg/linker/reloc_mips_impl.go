package linker

import "encoding/binary"

const (
	MipsNone uint32 = iota
	Mips32          // absolute 32-bit pointer
	Mips26          // branch/jump target, 26-bit word field, <<2
	MipsHi16        // high 16 bits of (target+addend), rounded for LO16's sign extension
	MipsLo16        // low 16 bits of (target+addend); paired with the preceding HI16
	MipsGot16       // GOT-page-relative high half, same field layout as HI16
)

type mipsTarget struct{}

func (mipsTarget) Name() string { return "mips" }

func (mipsTarget) IsCallSite(kind uint32) bool { return kind == Mips26 }

func (mipsTarget) IsPointer(kind uint32) bool { return kind == Mips32 }

// IsPaired: a MipsLo16 only has meaning read together with the HI16 that
// precedes it in the relocation list (the classic MIPS HI16/LO16 pairing
// spec.md §4.1 calls out as a "paired... relocation form").
func (mipsTarget) IsPaired(kind uint32) bool {
	return kind == MipsHi16 || kind == MipsLo16 || kind == MipsGot16
}

func (mipsTarget) FootprintBytes(uint32) int { return 4 }

func (mipsTarget) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

func (t mipsTarget) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case Mips32:
		binary.BigEndian.PutUint32(buf, uint32(a.value()))
		return nil
	case Mips26:
		instr := binary.BigEndian.Uint32(buf)
		field := uint32(a.value()>>2) & 0x03FFFFFF
		binary.BigEndian.PutUint32(buf, (instr&^0x03FFFFFF)|field)
		return nil
	case MipsHi16, MipsGot16:
		v := a.value()
		hi := uint32((v+0x8000)>>16) & 0xFFFF
		instr := binary.BigEndian.Uint32(buf)
		binary.BigEndian.PutUint32(buf, (instr&^0xFFFF)|hi)
		return nil
	case MipsLo16:
		lo := uint32(a.value()) & 0xFFFF
		instr := binary.BigEndian.Uint32(buf)
		binary.BigEndian.PutUint32(buf, (instr&^0xFFFF)|lo)
		return nil
	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (mipsTarget) DecodeField(buf []byte, kind uint32) int64 {
	instr := binary.BigEndian.Uint32(buf)
	switch kind {
	case Mips32:
		return int64(instr)
	case Mips26:
		return int64(instr&0x03FFFFFF) << 2
	case MipsHi16, MipsGot16:
		return int64(instr&0xFFFF) << 16
	case MipsLo16:
		return int64(int16(instr & 0xFFFF))
	default:
		return 0
	}
}
