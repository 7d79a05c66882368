package linker

import "encoding/binary"

const (
	I386None uint32 = iota
	I386_32        // absolute 32-bit pointer
	I386_PC32      // target - fixup
	I386_PLT32     // call site
	I386_GOTOFF    // target - GOT base, carried in Addend by the caller
)

type i386Target struct{}

func (i386Target) Name() string { return "i386" }

func (i386Target) IsCallSite(kind uint32) bool { return kind == I386_PLT32 }

func (i386Target) IsPointer(kind uint32) bool { return kind == I386_32 }

func (i386Target) IsPaired(uint32) bool { return false }

func (i386Target) FootprintBytes(uint32) int { return 4 }

func (i386Target) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

func (t i386Target) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case I386_32, I386_GOTOFF:
		binary.LittleEndian.PutUint32(buf, uint32(a.value()))
		return nil
	case I386_PC32, I386_PLT32:
		binary.LittleEndian.PutUint32(buf, uint32(a.value()-int64(a.FixupVA)))
		return nil
	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (i386Target) DecodeField(buf []byte, _ uint32) int64 {
	return int64(int32(binary.LittleEndian.Uint32(buf)))
}
