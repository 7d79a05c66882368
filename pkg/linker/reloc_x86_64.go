package linker

import "encoding/binary"

const (
	X86_64None uint32 = iota
	X86_64_64          // absolute 64-bit pointer
	X86_64_32          // absolute, truncated to 32 bits
	X86_64_32S         // absolute, truncated to 32 bits (range not checked)
	X86_64_PC32        // target - fixup, 32-bit
	X86_64_PLT32       // call site: target - fixup, 32-bit
	X86_64_GOTPCREL    // GOT-entry-relative pointer load
	X86_64_TPOFF32     // TLS block offset, 32-bit
)

type x86_64Target struct{}

func (x86_64Target) Name() string { return "x86_64" }

func (x86_64Target) IsCallSite(kind uint32) bool { return kind == X86_64_PLT32 }

func (x86_64Target) IsPointer(kind uint32) bool {
	return kind == X86_64_64 || kind == X86_64_GOTPCREL
}

func (x86_64Target) IsPaired(uint32) bool { return false }

func (x86_64Target) FootprintBytes(kind uint32) int {
	if kind == X86_64_64 {
		return 8
	}
	return 4
}

func (x86_64Target) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

func (t x86_64Target) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case X86_64_64:
		binary.LittleEndian.PutUint64(buf, uint64(a.value()))
		return nil
	case X86_64_32, X86_64_32S:
		binary.LittleEndian.PutUint32(buf, uint32(a.value()))
		return nil
	case X86_64_PC32, X86_64_PLT32, X86_64_GOTPCREL, X86_64_TPOFF32:
		v := a.value()
		if ref.Kind != X86_64_TPOFF32 {
			v -= int64(a.FixupVA)
		}
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return nil
	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (x86_64Target) DecodeField(buf []byte, kind uint32) int64 {
	if kind == X86_64_64 {
		return int64(binary.LittleEndian.Uint64(buf))
	}
	return int64(int32(binary.LittleEndian.Uint32(buf)))
}
