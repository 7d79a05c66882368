package linker

import "testing"

var _ ObjectView = (*ObjectFile)(nil)

func TestObjectFileSatisfiesObjectView(t *testing.T) {
	obj := NewObjectFile(&File{Name: "t.o"}, false)
	obj.Shdrs = []Shdr{{Type: 1, Flags: 2}}
	obj.ElfSyms = []Sym{{Shndx: 0}}

	sections := obj.SectionViews()
	if len(sections) != 1 {
		t.Fatalf("len(SectionViews()) = %d, want 1", len(sections))
	}
	if sections[0].Flags() != 2 {
		t.Errorf("Flags() = %d, want 2", sections[0].Flags())
	}

	syms := obj.SymbolViews()
	if len(syms) != 1 {
		t.Fatalf("len(SymbolViews()) = %d, want 1", len(syms))
	}
	if !syms[0].IsUndefined() {
		t.Error("a Sym with Shndx == SHN_UNDEF should report IsUndefined")
	}
}
