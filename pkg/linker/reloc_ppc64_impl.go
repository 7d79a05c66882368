package linker

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/ppc64/ppc64asm"
)

// verifyPPC64Branch cross-checks a patched PPC64Rel24 branch with
// ppc64asm, gated by the same verifyEncodings switch reloc_arm_impl.go's
// verifyArmBranch uses -- PowerPC instructions are fixed-width like ARM's,
// so buf here is the whole instruction word, not just a displacement field.
func verifyPPC64Branch(buf []byte, wantDisp int64) error {
	if !verifyEncodings {
		return nil
	}
	inst, err := ppc64asm.Decode(buf, binary.BigEndian)
	if err != nil {
		return fmt.Errorf("ppc64asm could not decode patched branch: %w", err)
	}
	for _, arg := range inst.Args {
		rel, ok := arg.(ppc64asm.PCRel)
		if !ok {
			continue
		}
		if got := int64(rel); got != wantDisp {
			return fmt.Errorf("ppc64asm decoded displacement %d, want %d", got, wantDisp)
		}
		return nil
	}
	return fmt.Errorf("ppc64asm decoded branch with no PCRel argument")
}

const (
	PPC64None uint32 = iota
	PPC64Addr64        // absolute 64-bit pointer
	PPC64Rel24         // branch: 24-bit word field <<2, bits[25:2]
	PPC64AddrHa        // high 16 bits of (target+addend), rounded for LO's sign extension
	PPC64AddrLo        // low 16 bits of (target+addend)
	PPC64TocBase       // target - TOC base pointer (carried as Addend by the caller)
)

type ppc64Target struct{}

func (ppc64Target) Name() string { return "ppc64" }

func (ppc64Target) IsCallSite(kind uint32) bool { return kind == PPC64Rel24 }

func (ppc64Target) IsPointer(kind uint32) bool { return kind == PPC64Addr64 }

// IsPaired: ADDR16_LO only makes sense alongside the ADDR16_HA that
// precedes it, the PowerPC analog of the MIPS HI16/LO16 pairing.
func (ppc64Target) IsPaired(kind uint32) bool {
	return kind == PPC64AddrHa || kind == PPC64AddrLo
}

func (ppc64Target) FootprintBytes(kind uint32) int {
	if kind == PPC64Addr64 {
		return 8
	}
	return 4
}

func (ppc64Target) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

func (t ppc64Target) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case PPC64Addr64:
		binary.BigEndian.PutUint64(buf, uint64(a.value()))
		return nil
	case PPC64Rel24:
		disp := a.value() - int64(a.FixupVA)
		instr := binary.BigEndian.Uint32(buf)
		instr = (instr &^ 0x03FFFFFC) | (uint32(disp) & 0x03FFFFFC)
		binary.BigEndian.PutUint32(buf, instr)
		return verifyPPC64Branch(buf, disp)
	case PPC64AddrHa, PPC64TocBase:
		v := a.value()
		ha := uint16((v + 0x8000) >> 16)
		binary.BigEndian.PutUint16(buf, ha)
		return nil
	case PPC64AddrLo:
		lo := uint16(a.value())
		binary.BigEndian.PutUint16(buf, lo)
		return nil
	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (ppc64Target) DecodeField(buf []byte, kind uint32) int64 {
	switch kind {
	case PPC64Addr64:
		return int64(binary.BigEndian.Uint64(buf))
	case PPC64Rel24:
		instr := binary.BigEndian.Uint32(buf)
		field := instr & 0x03FFFFFC
		if field&(1<<25) != 0 {
			return int64(field) - (1 << 26)
		}
		return int64(field)
	case PPC64AddrHa, PPC64TocBase:
		return int64(binary.BigEndian.Uint16(buf)) << 16
	case PPC64AddrLo:
		return int64(int16(binary.BigEndian.Uint16(buf)))
	default:
		return 0
	}
}
