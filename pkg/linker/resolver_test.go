package linker

import "testing"

// TestExtractNeededLazySymbolsGatesOnDemand checks that a Lazy symbol
// nothing has referenced as undefined is never extracted, while one an
// object actually referenced (MarkNeeded, set by ResolveSymbols' IsUndef
// branch) is -- archive semantics depend on this: an archive contributes
// only the members something needs, not every member it holds.
func TestExtractNeededLazySymbolsGatesOnDemand(t *testing.T) {
	ctx := NewContext(ContextArgs{})

	wantedMember := &File{Name: "wanted.o"}
	unwantedMember := &File{Name: "unwanted.o"}

	wanted := ctx.Symbols.GetOrInsert("wanted")
	wanted.resolve(Lazy{Member: wantedMember})
	wanted.MarkNeeded()

	unwanted := ctx.Symbols.GetOrInsert("unwanted")
	unwanted.resolve(Lazy{Member: unwantedMember})
	// never marked needed: nothing referenced it as undefined.

	var extractedNames []string
	ctx.Symbols.Range(func(sym *Symbol) {
		if lazy, ok := sym.Body.(Lazy); ok && sym.Needed {
			extractedNames = append(extractedNames, lazy.Member.Name)
		}
	})

	if len(extractedNames) != 1 || extractedNames[0] != "wanted.o" {
		t.Errorf("needed-lazy scan = %v, want exactly [wanted.o]", extractedNames)
	}
}

// TestResolveSymbolsMarksUndefinedReferencesNeeded checks the other half
// of the gate: an object's SHN_UNDEF global entry must mark the shared
// Symbol Needed, the signal extractNeededLazySymbols keys on.
func TestResolveSymbolsMarksUndefinedReferencesNeeded(t *testing.T) {
	ctx := NewContext(ContextArgs{})
	obj := NewObjectFile(&File{Name: "f1.o", Contents: buildTestObject([]testSym{
		{name: "foo", defined: false},
	})}, false)
	obj.Parse(ctx)
	obj.ResolveSymbols(ctx)

	sym := ctx.Symbols.Lookup("foo")
	if sym == nil {
		t.Fatalf("expected a Symbol slot for foo")
	}
	if !sym.Needed {
		t.Errorf("foo.Needed = false, want true after ResolveSymbols saw its SHN_UNDEF entry")
	}
}
