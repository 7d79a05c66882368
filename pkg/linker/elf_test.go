package linker

import "testing"

func TestELFHash(t *testing.T) {
	// Reference values from the classic SysV elf_hash() used to build
	// .hash sections; any ELF toolchain's `readelf --dyn-syms` output
	// for these names reproduces the same buckets.
	cases := map[string]uint32{
		"":       0,
		"printf": 0x077905a6,
		"main":   0x000737fe,
	}
	for name, want := range cases {
		if got := ELFHash(name); got != want {
			t.Errorf("ELFHash(%q) = %#x, want %#x", name, got, want)
		}
	}
}

func TestArHdrReadName(t *testing.T) {
	var h ArHdr
	copy(h.Name[:], "foo.o/")
	if got := h.ReadName(nil); got != "foo.o" {
		t.Errorf("ReadName short form = %q, want foo.o", got)
	}

	strtab := []byte("bar_with_a_really_long_name.o/\n")
	copy(h.Name[:], "/0")
	if got := h.ReadName(strtab); got != "bar_with_a_really_long_name.o" {
		t.Errorf("ReadName long form = %q, want bar_with_a_really_long_name.o", got)
	}
}

func TestCheckMagic(t *testing.T) {
	if !CheckMagic([]byte("\x7fELF\x02\x01\x01")) {
		t.Error("CheckMagic should accept a valid ELF prefix")
	}
	if CheckMagic([]byte("not an elf")) {
		t.Error("CheckMagic should reject non-ELF bytes")
	}
}
