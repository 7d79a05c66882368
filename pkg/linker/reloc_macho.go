package linker

// Mach-O scattered relocation decode, spec.md §4.1's "decode must
// recognize paired/scattered relocation forms" and §8 scenario 4
// (`.long _foo - .` emitting a scattered SECTDIFF + PAIR pair). Decode-side
// only, per SPEC_FULL.md §8: a full Mach-O object/archive writer is out of
// this core's scope, so there is no encode path back to an on-disk Mach-O
// load command here, only the bit layout a consuming driver would hand in
// and the delta32 computation spec.md's scenario names.
//
// The scattered_relocation_info bit layout below is the one
// debug/macho's pushSection decodes (r_scattered in bit 31 of the first
// word, r_address/r_type/r_length/r_pcrel packed into the rest, r_value
// as the full second word) -- there is no third-party Mach-O constant
// table anywhere in the pack worth displacing debug/macho's with, so this
// follows the same "stdlib is the constant source" rule §4.8 already
// applies to debug/elf.
const (
	machoScatteredBit = 1 << 31
	machoPcrelBit     = 1 << 30
	machoAddrMask     = 1<<24 - 1
)

// MachoRelocTypeGeneric mirrors debug/macho.RelocTypeGeneric's values
// without importing the package, since the only thing used here is the
// two constants scenario 4 names.
type MachoRelocTypeGeneric uint8

const (
	MachoGenericRelocVanilla       MachoRelocTypeGeneric = 0
	MachoGenericRelocPair          MachoRelocTypeGeneric = 1
	MachoGenericRelocSectdiff      MachoRelocTypeGeneric = 2
	MachoGenericRelocLocalSectdiff MachoRelocTypeGeneric = 4
)

// DecodeScatteredRelocationInfo unpacks one 8-byte scattered
// relocation_info record (first word with the scattered bit set, second
// word holding r_value) into its component fields.
func DecodeScatteredRelocationInfo(word1, word2 uint32) (addr uint32, typ MachoRelocTypeGeneric, length uint8, pcrel bool, value uint32) {
	addr = word1 & machoAddrMask
	typ = MachoRelocTypeGeneric((word1 >> 24) & 0xf)
	length = uint8((word1 >> 28) & 0x3)
	pcrel = word1&machoPcrelBit != 0
	value = word2
	return
}

// EncodeScatteredRelocationInfo packs one scattered relocation_info
// record, the inverse of DecodeScatteredRelocationInfo.
func EncodeScatteredRelocationInfo(addr uint32, typ MachoRelocTypeGeneric, length uint8, pcrel bool, value uint32) (word1, word2 uint32) {
	word1 = machoScatteredBit | (addr & machoAddrMask)
	word1 |= uint32(typ&0xf) << 24
	word1 |= uint32(length&0x3) << 28
	if pcrel {
		word1 |= machoPcrelBit
	}
	word2 = value
	return
}

// MachoScatteredPair is a decoded SECTDIFF+PAIR scattered relocation pair:
// a `delta32` fixup at FixupVA whose value is the difference between the
// SECTDIFF record's scattered target (TargetVA, "X" in spec.md §8
// scenario 4) and the fixup's own address ("F"), with the PAIR record's
// scattered value (PairVA) carried along for relocatable re-emission.
type MachoScatteredPair struct {
	FixupVA  uint64
	TargetVA uint64
	PairVA   uint64
}

// DecodeMachoScatteredPair reads a SECTDIFF record immediately followed
// by its PAIR record (each two words, per Mach-O's "generic" scattered
// relocation convention) into a MachoScatteredPair.
func DecodeMachoScatteredPair(sectdiffW1, sectdiffW2, pairW1, pairW2 uint32) MachoScatteredPair {
	addr, _, _, _, value := DecodeScatteredRelocationInfo(sectdiffW1, sectdiffW2)
	_, _, _, _, pairValue := DecodeScatteredRelocationInfo(pairW1, pairW2)
	return MachoScatteredPair{FixupVA: uint64(addr), TargetVA: uint64(value), PairVA: uint64(pairValue)}
}

// DeltaValue computes the `delta32` spec.md §8 scenario 4 describes:
// X - F, the distance from the fixup site to the scattered target.
func (p MachoScatteredPair) DeltaValue() int32 {
	return int32(int64(p.TargetVA) - int64(p.FixupVA))
}

// ApplyMachoScatteredDelta32 writes the little-endian 4-byte delta32
// value into buf[0:4], the exact byte form scenario 4 requires.
func ApplyMachoScatteredDelta32(buf []byte, p MachoScatteredPair) {
	v := uint32(p.DeltaValue())
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

// EncodeMachoScatteredPair re-emits the SECTDIFF+PAIR scattered
// relocation pair for relocatable (-r) output: the same bytes a source
// object's own scattered records would carry, since folding/layout never
// changes a scattered pair's *meaning*, only the VAs it refers to.
func EncodeMachoScatteredPair(p MachoScatteredPair) (sectdiffW1, sectdiffW2, pairW1, pairW2 uint32) {
	sectdiffW1, sectdiffW2 = EncodeScatteredRelocationInfo(uint32(p.FixupVA), MachoGenericRelocSectdiff, 2, false, uint32(p.TargetVA))
	pairW1, pairW2 = EncodeScatteredRelocationInfo(0, MachoGenericRelocPair, 2, false, uint32(p.PairVA))
	return
}
