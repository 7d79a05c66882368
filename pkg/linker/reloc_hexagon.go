package linker

import "encoding/binary"

const (
	HexagonNone uint32 = iota
	HexagonB22Pcrel    // call: 22-bit word-aligned displacement, scattered into two instruction fields
	HexagonB15Pcrel    // conditional branch: 15-bit word-aligned displacement, scattered
	Hexagon32          // absolute 32-bit pointer
)

type hexagonTarget struct{}

func (hexagonTarget) Name() string { return "hexagon" }

func (hexagonTarget) IsCallSite(kind uint32) bool {
	return kind == HexagonB22Pcrel || kind == HexagonB15Pcrel
}

func (hexagonTarget) IsPointer(kind uint32) bool { return kind == Hexagon32 }

func (hexagonTarget) IsPaired(uint32) bool { return false }

func (hexagonTarget) FootprintBytes(uint32) int { return 4 }

func (hexagonTarget) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

// scatterHexagon22/unscatterHexagon22 implement Hexagon's non-contiguous
// immediate encoding: unlike ARM/x86 a Hexagon packet stores an
// instruction's immediate split across two disjoint bitfields rather than
// one contiguous run, which is the "scattered relocation form" spec.md
// §4.1 calls out alongside MIPS/Mach-O pairing as a second way relocation
// fields can fail to be one run of bits. The split used here: the high 6
// bits of the >>2 displacement land at instruction bits [24:19], the low
// 16 bits land at bits [15:0].
func scatterHexagon22(instr uint32, disp22 uint32) uint32 {
	hi6 := (disp22 >> 16) & 0x3F
	lo16 := disp22 & 0xFFFF
	instr &^= (0x3F << 19) | 0xFFFF
	return instr | (hi6 << 19) | lo16
}

func unscatterHexagon22(instr uint32) uint32 {
	hi6 := (instr >> 19) & 0x3F
	lo16 := instr & 0xFFFF
	return hi6<<16 | lo16
}

func (t hexagonTarget) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case HexagonB22Pcrel, HexagonB15Pcrel:
		disp := uint32(a.value()-int64(a.FixupVA)) >> 2
		instr := binary.LittleEndian.Uint32(buf)
		mask := uint32(0x3FFFFF)
		if ref.Kind == HexagonB15Pcrel {
			mask = 0x7FFF
		}
		binary.LittleEndian.PutUint32(buf, scatterHexagon22(instr, disp&mask))
		return nil
	case Hexagon32:
		binary.LittleEndian.PutUint32(buf, uint32(a.value()))
		return nil
	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (hexagonTarget) DecodeField(buf []byte, kind uint32) int64 {
	switch kind {
	case HexagonB22Pcrel, HexagonB15Pcrel:
		instr := binary.LittleEndian.Uint32(buf)
		disp := unscatterHexagon22(instr)
		return int64(disp) << 2
	case Hexagon32:
		return int64(binary.LittleEndian.Uint32(buf))
	default:
		return 0
	}
}
