package linker

import (
	"debug/elf"

	"github.com/oss-linkers/rvld/pkg/utils"
)

// MachineType enumerates the architectures the relocation engine (§4.1)
// carries a capability record for. The teacher only knew MachineTypeRISCV64;
// every other constant is new, added so the core can honor spec.md's
// "at least ARM/Thumb, x86-64 and Hexagon" plus the "analogous per-kind
// tables" for AArch64/i386/MIPS/PPC64 it calls for.
type MachineType uint8

// emHexagon is the ELF e_machine value for Qualcomm Hexagon (164). The
// debug/elf package does not define an EM_HEXAGON constant, so it is
// declared here.
const emHexagon elf.Machine = 164

const (
	MachineTypeNone MachineType = iota
	MachineTypeRISCV64
	MachineTypeARM
	MachineTypeX86_64
	MachineTypeHexagon
	MachineTypeAArch64
	MachineTypeI386
	MachineTypeMIPS
	MachineTypePPC64
)

func (m MachineType) String() string {
	switch m {
	case MachineTypeRISCV64:
		return "riscv64"
	case MachineTypeARM:
		return "arm"
	case MachineTypeX86_64:
		return "x86_64"
	case MachineTypeHexagon:
		return "hexagon"
	case MachineTypeAArch64:
		return "aarch64"
	case MachineTypeI386:
		return "i386"
	case MachineTypeMIPS:
		return "mips"
	case MachineTypePPC64:
		return "ppc64"
	default:
		return "none"
	}
}

// GetMachineTypeFromContents inspects an ELF object's e_machine/EI_CLASS
// fields and maps them onto a MachineType, the way the teacher's
// GetMachineTypeFromContext did for the single RISC-V case.
func GetMachineTypeFromContents(contents []byte) MachineType {
	if GetFileType(contents) != FileTypeObject {
		return MachineTypeNone
	}
	machine := elf.Machine(utils.Read[uint16](contents[18:]))
	class := elf.Class(contents[4])

	switch machine {
	case elf.EM_RISCV:
		if class == elf.ELFCLASS64 {
			return MachineTypeRISCV64
		}
	case elf.EM_ARM:
		return MachineTypeARM
	case elf.EM_X86_64:
		return MachineTypeX86_64
	case emHexagon:
		return MachineTypeHexagon
	case elf.EM_AARCH64:
		return MachineTypeAArch64
	case elf.EM_386:
		return MachineTypeI386
	case elf.EM_MIPS:
		return MachineTypeMIPS
	case elf.EM_PPC64:
		return MachineTypePPC64
	}
	return MachineTypeNone
}

// TargetFor returns the relocation capability record (§4.1/§9) for a
// machine type, or nil if the core carries no table for it.
func TargetFor(m MachineType) Target {
	switch m {
	case MachineTypeARM:
		return armTarget{}
	case MachineTypeX86_64:
		return x86_64Target{}
	case MachineTypeHexagon:
		return hexagonTarget{}
	case MachineTypeAArch64:
		return aarch64Target{}
	case MachineTypeI386:
		return i386Target{}
	case MachineTypeMIPS:
		return mipsTarget{}
	case MachineTypePPC64:
		return ppc64Target{}
	case MachineTypeRISCV64:
		return riscv64Target{}
	default:
		return nil
	}
}
