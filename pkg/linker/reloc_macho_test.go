package linker

import "testing"

// TestMachoScatteredDelta32 exercises spec.md §8 scenario 4: `.long _foo - .`
// at fixup F with _foo at VA X decodes/applies to the 4 bytes X - F.
func TestMachoScatteredDelta32(t *testing.T) {
	const fixupVA = 0x2000
	const targetVA = 0x2010
	want := int32(targetVA - fixupVA)

	sectdiffW1, sectdiffW2 := EncodeScatteredRelocationInfo(fixupVA, MachoGenericRelocSectdiff, 2, false, targetVA)
	pairW1, pairW2 := EncodeScatteredRelocationInfo(0, MachoGenericRelocPair, 2, false, fixupVA)

	pair := DecodeMachoScatteredPair(sectdiffW1, sectdiffW2, pairW1, pairW2)
	if got := pair.DeltaValue(); got != want {
		t.Errorf("DeltaValue() = %#x, want %#x", got, want)
	}

	buf := make([]byte, 4)
	ApplyMachoScatteredDelta32(buf, pair)
	var got int32
	got = int32(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24)
	if got != want {
		t.Errorf("applied bytes decode to %#x, want %#x", got, want)
	}
}

// TestMachoScatteredRoundTrip checks decode(encode(...)) is the identity
// for a SECTDIFF+PAIR pair, the property every relocation kind's round
// trip test in this package asserts.
func TestMachoScatteredRoundTrip(t *testing.T) {
	original := MachoScatteredPair{FixupVA: 0x401004, TargetVA: 0x401100, PairVA: 0x401004}

	sectdiffW1, sectdiffW2, pairW1, pairW2 := EncodeMachoScatteredPair(original)
	got := DecodeMachoScatteredPair(sectdiffW1, sectdiffW2, pairW1, pairW2)

	if got != original {
		t.Errorf("round trip = %+v, want %+v", got, original)
	}
}

// TestDecodeScatteredRelocationInfoBits checks the bit-packing matches
// debug/macho's own scattered decode convention (the scattered flag in
// bit 31, type/length/pcrel packed into the remaining high bits of the
// first word, r_value as the full second word).
func TestDecodeScatteredRelocationInfoBits(t *testing.T) {
	w1, w2 := EncodeScatteredRelocationInfo(0x1234, MachoGenericRelocSectdiff, 2, true, 0xdeadbeef)
	if w1&machoScatteredBit == 0 {
		t.Fatalf("encoded word did not set the scattered bit: %#x", w1)
	}
	addr, typ, length, pcrel, value := DecodeScatteredRelocationInfo(w1, w2)
	if addr != 0x1234 {
		t.Errorf("addr = %#x, want %#x", addr, 0x1234)
	}
	if typ != MachoGenericRelocSectdiff {
		t.Errorf("type = %v, want %v", typ, MachoGenericRelocSectdiff)
	}
	if length != 2 {
		t.Errorf("length = %d, want 2", length)
	}
	if !pcrel {
		t.Errorf("pcrel = false, want true")
	}
	if value != 0xdeadbeef {
		t.Errorf("value = %#x, want %#x", value, 0xdeadbeef)
	}
}
