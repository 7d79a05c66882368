package linker

import "testing"

func TestX86_64PointerRoundTrip(t *testing.T) {
	target := x86_64Target{}
	buf := make([]byte, 8)
	ref := &Reference{Kind: X86_64_64}
	actx := ApplyContext{TargetVA: 0x401000, Addend: 8, Final: true}

	if err := target.Apply(buf, ref, actx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := target.DecodeField(buf, X86_64_64), int64(0x401008); got != want {
		t.Errorf("decoded = %#x, want %#x", got, want)
	}
}

func TestX86_64PC32RoundTrip(t *testing.T) {
	target := x86_64Target{}
	buf := make([]byte, 4)
	ref := &Reference{Kind: X86_64_PC32}
	actx := ApplyContext{FixupVA: 0x401000, TargetVA: 0x401100, Final: true}

	if err := target.Apply(buf, ref, actx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := target.DecodeField(buf, X86_64_PC32)
	want := int64(0x401100) - int64(0x401000)
	if got != want {
		t.Errorf("decoded = %d, want %d", got, want)
	}
}

func TestX86_64ExternalRelocRouting(t *testing.T) {
	// In -r output, a reference to a symbol that still needs an external
	// relocation must encode only the addend, never the (meaningless at
	// this link) target address.
	actx := ApplyContext{FixupVA: 0x1000, TargetVA: 0x9999, Addend: 4, Final: false, NeedsExternalReloc: true}
	if got, want := actx.value(), int64(4); got != want {
		t.Errorf("value() = %d, want %d", got, want)
	}

	actx.NeedsExternalReloc = false
	if got, want := actx.value(), int64(0x9999+4); got != want {
		t.Errorf("value() = %d, want %d", got, want)
	}
}
