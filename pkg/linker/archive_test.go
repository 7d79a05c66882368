package linker

import (
	"bytes"
	"debug/elf"
	"fmt"
	"testing"

	"github.com/oss-linkers/rvld/pkg/utils"
)

// testSym is the minimal description of one global ELF symbol this
// file's builders need: a name plus whether it is defined (SHN_ABS, at
// some fixed value) or left undefined (SHN_UNDEF).
type testSym struct {
	name    string
	defined bool
	value   uint64
}

// buildTestObject assembles a minimal, real ELF64 relocatable object: an
// Ehdr, a symbol table of global entries only (FirstGlobal == 0, so
// every entry in syms resolves through the shared symbol table the same
// way a compiler's global symbols would), a string table, and an empty
// section-header string table -- everything ObjectFile.Parse touches,
// nothing it doesn't (no .text is needed since every defined symbol here
// is SHN_ABS, so getSection is never reached).
func buildTestObject(syms []testSym) []byte {
	strtab := []byte{0}
	elfSyms := make([]Sym, len(syms))
	for i, s := range syms {
		off := len(strtab)
		strtab = append(strtab, append([]byte(s.name), 0)...)
		sym := Sym{Name: uint32(off), Val: s.value}
		sym.SetBind(uint8(elf.STB_GLOBAL))
		if !s.defined {
			sym.Shndx = uint16(elf.SHN_UNDEF)
		} else {
			sym.Shndx = uint16(elf.SHN_ABS)
		}
		elfSyms[i] = sym
	}
	shstrtab := []byte{0}

	symtabOff := EhdrSize
	symtabSize := len(elfSyms) * SymSize
	strtabOff := symtabOff + symtabSize
	shstrtabOff := strtabOff + len(strtab)
	shdrOff := shstrtabOff + len(shstrtab)
	total := shdrOff + 4*ShdrSize

	buf := make([]byte, total)

	ehdr := Ehdr{
		Type:     uint16(elf.ET_REL),
		Machine:  uint16(elf.EM_X86_64),
		Version:  1,
		ShOff:    uint64(shdrOff),
		EhSize:   uint16(EhdrSize),
		ShEntSize: uint16(ShdrSize),
		ShNum:    4,
		ShStrndx: 3,
	}
	copy(ehdr.Ident[:4], "\x7fELF")
	ehdr.Ident[4] = 2 // ELFCLASS64
	utils.Write(buf, ehdr)

	for i, s := range elfSyms {
		utils.Write(buf[symtabOff+i*SymSize:], s)
	}
	copy(buf[strtabOff:], strtab)
	copy(buf[shstrtabOff:], shstrtab)

	shdrs := [4]Shdr{
		{}, // SHT_NULL
		{Type: uint32(elf.SHT_SYMTAB), Offset: uint64(symtabOff), Size: uint64(symtabSize), Link: 2, Info: 0},
		{Type: uint32(elf.SHT_STRTAB), Offset: uint64(strtabOff), Size: uint64(len(strtab))},
		{Type: uint32(elf.SHT_STRTAB), Offset: uint64(shstrtabOff), Size: uint64(len(shstrtab))},
	}
	for i, shdr := range shdrs {
		utils.Write(buf[shdrOff+i*ShdrSize:], shdr)
	}
	return buf
}

// buildTestArchive packs named object byte slices into a System-V `ar`
// archive, grounded on ReadArchiveMembers' decode side: "!<arch>\n"
// magic, then one ArHdr (short inline name, decimal size, "`\n" magic)
// per member, each member's data padded to an even length.
func buildTestArchive(members map[string][]byte, order []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("!<arch>\n")
	for _, name := range order {
		data := members[name]
		var hdr ArHdr
		copy(hdr.Name[:], name+"/")
		for i := len(name) + 1; i < len(hdr.Name); i++ {
			hdr.Name[i] = ' '
		}
		sizeText := fmt.Sprintf("%-10d", len(data))
		copy(hdr.SizeText[:], sizeText)
		hdr.Fmag[0], hdr.Fmag[1] = '`', '\n'
		hdrBuf := make([]byte, ArHdrSize)
		utils.Write(hdrBuf, hdr)
		buf.Write(hdrBuf)
		buf.Write(data)
		if len(data)%2 == 1 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}

// TestArchiveCycleExtraction implements spec.md §8 scenario 2: F1
// references `a`; archive A holds Oa (defines `a`, references `b`) and Ob
// (defines `b`). With A loaded as an archive after F1, both Oa and Ob must
// load and resolution must converge with both `a` and `b` defined.
func TestArchiveCycleExtraction(t *testing.T) {
	ctx := NewContext(ContextArgs{})

	f1 := NewObjectFile(&File{Name: "f1.o", Contents: buildTestObject([]testSym{
		{name: "a", defined: false},
	})}, false)
	f1.Parse(ctx)
	ctx.Objs = []*ObjectFile{f1}

	oaBytes := buildTestObject([]testSym{
		{name: "a", defined: true, value: 0x1000},
		{name: "b", defined: false},
	})
	obBytes := buildTestObject([]testSym{
		{name: "b", defined: true, value: 0x2000},
	})
	archiveBytes := buildTestArchive(map[string][]byte{"oa.o": oaBytes, "ob.o": obBytes}, []string{"oa.o", "ob.o"})
	archiveFile := &File{Name: "liba.a", Contents: archiveBytes}

	LoadArchives(ctx, []*File{archiveFile})
	Resolve(ctx)

	if len(ctx.Objs) != 3 {
		t.Fatalf("expected F1 plus both extracted archive members in ctx.Objs, got %d objects", len(ctx.Objs))
	}

	a := ctx.Symbols.Lookup("a")
	b := ctx.Symbols.Lookup("b")
	da, ok := a.Body.(DefinedAbsolute)
	if !ok || da.Value != 0x1000 {
		t.Errorf("a.Body = %#v, want DefinedAbsolute{Value: 0x1000}", a.Body)
	}
	db, ok := b.Body.(DefinedAbsolute)
	if !ok || db.Value != 0x2000 {
		t.Errorf("b.Body = %#v, want DefinedAbsolute{Value: 0x2000}", b.Body)
	}
}
