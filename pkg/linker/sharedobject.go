package linker

import (
	"debug/elf"

	"github.com/oss-linkers/rvld/pkg/utils"
)

// SharedFile wraps one ET_DYN input (`-lfoo` resolving to `libfoo.so`
// rather than `libfoo.a`): the producer side of the Shared(source-library,
// source-sym) body spec.md §3 names. New relative to the teacher, which
// only ever links relocatable objects and archives; this reuses
// ObjectFile.Parse's Shdr/Sym reading helpers (readShdrs/readSyms/
// sectionBytes) over SHT_DYNSYM instead of SHT_SYMTAB, since a shared
// object carries no regular .symtab in the general case.
type SharedFile struct {
	File *File

	Ehdr  Ehdr
	Shdrs []Shdr

	DynSyms    []Sym
	DynStrtab  []byte

	SOName string
}

func NewSharedFile(file *File) *SharedFile {
	return &SharedFile{File: file, SOName: file.Name}
}

// Parse reads the shared object's dynamic symbol table and resolves a
// Shared body into ctx.Symbols for every STB_GLOBAL/STB_WEAK defined
// entry it exports (STT_NOTYPE/SHN_UNDEF entries are this library's own
// unresolved imports, not something it can satisfy).
func (s *SharedFile) Parse(ctx *Context) {
	contents := s.File.Contents
	s.Ehdr = utils.Read[Ehdr](contents)
	s.Shdrs = readShdrs(contents, &s.Ehdr)

	var dynsymIdx = -1
	for i, shdr := range s.Shdrs {
		if elf.SectionType(shdr.Type) == elf.SHT_DYNSYM {
			dynsymIdx = i
			break
		}
	}
	if dynsymIdx < 0 {
		return
	}
	dynsym := &s.Shdrs[dynsymIdx]
	s.DynSyms = readSyms(sectionBytes(contents, dynsym))
	s.DynStrtab = sectionBytes(contents, &s.Shdrs[dynsym.Link])

	if shdr := s.findDynamicSoname(contents); shdr != "" {
		s.SOName = shdr
	}

	for _, sym := range s.DynSyms {
		if sym.IsUndef() {
			continue
		}
		name := GetNameFromTable(s.DynStrtab, sym.Name)
		if name == "" {
			continue
		}
		bind := ctx.Symbols.GetOrInsert(name)
		bind.resolve(Shared{SOName: s.SOName})
	}
}

// findDynamicSoname walks `.dynamic` for a DT_SONAME entry, falling back
// to the file's own name (FindLibrary's lib<name>.so path) when absent.
func (s *SharedFile) findDynamicSoname(contents []byte) string {
	var dynIdx = -1
	for i, shdr := range s.Shdrs {
		if elf.SectionType(shdr.Type) == elf.SHT_DYNAMIC {
			dynIdx = i
			break
		}
	}
	if dynIdx < 0 {
		return ""
	}
	dyn := &s.Shdrs[dynIdx]
	data := sectionBytes(contents, dyn)
	for off := 0; off+16 <= len(data); off += 16 {
		tag := DynamicTag(utils.Read[int64](data[off:]))
		val := utils.Read[uint64](data[off+8:])
		if tag == DtNull {
			break
		}
		if tag == DtSoname {
			return GetNameFromTable(s.DynStrtab, uint32(val))
		}
	}
	return ""
}
