package linker

import "testing"

func TestDynsymAddEntryAssignsIndices(t *testing.T) {
	strtab := NewDynstrSection()
	dynsym := NewDynsymSection(strtab)

	foo := NewSymbol("foo")
	bar := NewSymbol("bar")

	i0 := dynsym.AddEntry(foo)
	i1 := dynsym.AddEntry(bar)
	i0Again := dynsym.AddEntry(foo)

	if i0 == 0 {
		t.Error("index 0 is reserved for the null entry, AddEntry must not reuse it")
	}
	if i1 == i0 {
		t.Error("distinct symbols must get distinct indices")
	}
	if i0Again != i0 {
		t.Error("AddEntry must be idempotent for the same symbol")
	}
	if len(dynsym.entries) != 3 { // null, foo, bar
		t.Errorf("len(entries) = %d, want 3", len(dynsym.entries))
	}
	if _, ok := strtab.offsets["foo"]; !ok {
		t.Error("AddEntry must intern the symbol's name into the paired dynstr")
	}
}

func TestDynstrInternDedups(t *testing.T) {
	strtab := NewDynstrSection()
	a := strtab.Intern("foo")
	b := strtab.Intern("foo")
	c := strtab.Intern("bar")
	if a != b {
		t.Error("interning the same name twice must return the same offset")
	}
	if a == c {
		t.Error("distinct names must get distinct offsets")
	}
	if strtab.Offset("foo") != a {
		t.Error("Offset must agree with the offset Intern returned")
	}
}

func TestHashSectionBucketChainCoversEveryEntry(t *testing.T) {
	strtab := NewDynstrSection()
	dynsym := NewDynsymSection(strtab)
	names := []string{"foo", "bar", "baz", "qux"}
	for _, n := range names {
		dynsym.AddEntry(NewSymbol(n))
	}

	h := NewHashSection(dynsym)
	h.Build()

	if uint32(len(h.chain)) != uint32(len(dynsym.entries)) {
		t.Fatalf("chain length = %d, want %d", len(h.chain), len(dynsym.entries))
	}

	seen := make(map[uint32]bool)
	for _, b := range h.bucket {
		for i := b; i != 0; i = h.chain[i] {
			if seen[i] {
				t.Fatalf("cycle detected walking chain at index %d", i)
			}
			seen[i] = true
		}
	}
	for idx, sym := range dynsym.entries {
		if sym == nil {
			continue
		}
		if !seen[uint32(idx)] {
			t.Errorf("dynsym entry %d (%s) unreachable from its hash bucket chain", idx, sym.Name)
		}
	}
}

func TestScanDynsymNeedsCollectsSharedAndExports(t *testing.T) {
	ctx := NewContext(ContextArgs{Shared: true})
	imported := ctx.Symbols.GetOrInsert("malloc")
	imported.Body = Shared{SOName: "libc.so.6"}

	exported := ctx.Symbols.GetOrInsert("my_api")
	exported.Body = DefinedRegular{Value: 0x1000}

	weakExport := ctx.Symbols.GetOrInsert("weak_api")
	weakExport.Body = DefinedRegular{Value: 0x2000, Weak: true}

	strtab := NewDynstrSection()
	dynsym := NewDynsymSection(strtab)
	ScanDynsymNeeds(ctx, dynsym)

	if _, ok := dynsym.Index(imported); !ok {
		t.Error("a Shared-body symbol must always land in the dynamic symbol table")
	}
	if _, ok := dynsym.Index(exported); !ok {
		t.Error("a strong defined symbol must be exported when building -shared output")
	}
	if _, ok := dynsym.Index(weakExport); ok {
		t.Error("a weak definition should not be exported as a strong dynamic symbol")
	}
}

func TestDynamicSectionBuildOrdersNullLast(t *testing.T) {
	strtab := NewDynstrSection()
	dynsym := NewDynsymSection(strtab)
	hash := NewHashSection(dynsym)
	hash.Build()
	dyn := NewDynamicSection(hash, dynsym, strtab)
	dyn.Needed = []string{"libc.so.6"}
	dyn.SOName = "libfoo.so"

	ctx := NewContext(ContextArgs{})
	dyn.Build(ctx)

	if len(dyn.entries) == 0 {
		t.Fatal("Build produced no entries")
	}
	last := dyn.entries[len(dyn.entries)-1]
	if last.Tag != DtNull {
		t.Errorf("last tag = %v, want DtNull", last.Tag)
	}
	var sawNeeded, sawSoname bool
	for _, e := range dyn.entries {
		if e.Tag == DtNeeded {
			sawNeeded = true
		}
		if e.Tag == DtSoname {
			sawSoname = true
		}
	}
	if !sawNeeded {
		t.Error("DT_NEEDED entry missing for configured Needed library")
	}
	if !sawSoname {
		t.Error("DT_SONAME entry missing for configured SOName")
	}
}
