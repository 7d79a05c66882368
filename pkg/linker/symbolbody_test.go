package linker

import "testing"

func TestCompareBodiesRankOrdering(t *testing.T) {
	cases := []struct {
		name      string
		existing  SymbolBody
		candidate SymbolBody
		replace   bool
	}{
		{"regular beats common", DefinedCommon{Size: 8}, DefinedRegular{Value: 0}, true},
		{"common does not beat regular", DefinedRegular{Value: 0}, DefinedCommon{Size: 8}, false},
		{"common beats lazy", Lazy{}, DefinedCommon{Size: 8}, true},
		{"lazy beats undefined", Undefined{}, Lazy{}, true},
		{"undefined never beats lazy", Lazy{}, Undefined{}, false},
		{"shared beats lazy", Lazy{}, Shared{SOName: "libc.so"}, true},
		{"regular beats shared", Shared{SOName: "libc.so"}, DefinedRegular{}, true},
	}
	for _, c := range cases {
		if got := compareBodies(c.existing, c.candidate); got != c.replace {
			t.Errorf("%s: compareBodies = %v, want %v", c.name, got, c.replace)
		}
	}
}

func TestCompareBodiesCommonSizeTiebreak(t *testing.T) {
	small := DefinedCommon{Size: 4}
	large := DefinedCommon{Size: 16}
	if !compareBodies(small, large) {
		t.Error("a larger common definition should replace a smaller one")
	}
	if compareBodies(large, small) {
		t.Error("a smaller common definition should not replace a larger one")
	}
}

func TestCompareBodiesWeakStrongTiebreak(t *testing.T) {
	weak := DefinedRegular{Value: 0, Weak: true}
	strong := DefinedRegular{Value: 4, Weak: false}
	if !compareBodies(weak, strong) {
		t.Error("a strong definition should replace a weak one of equal rank")
	}
	if compareBodies(strong, weak) {
		t.Error("a weak definition should not replace a strong one of equal rank")
	}
}

func TestIsDefined(t *testing.T) {
	if isDefined(Undefined{}) {
		t.Error("Undefined should not be defined")
	}
	if isDefined(Lazy{}) {
		t.Error("Lazy should not be defined (not yet extracted)")
	}
	if !isDefined(DefinedRegular{}) {
		t.Error("DefinedRegular should be defined")
	}
	if !isDefined(Shared{}) {
		t.Error("Shared should be defined")
	}
}

func TestNeedsExternalRelocGeneric(t *testing.T) {
	if needsExternalRelocGeneric(nil) {
		t.Error("nil symbol never needs an external relocation")
	}
	if !needsExternalRelocGeneric(&Symbol{Body: Undefined{}}) {
		t.Error("undefined symbol needs an external relocation")
	}
	if !needsExternalRelocGeneric(&Symbol{Body: Shared{SOName: "libc.so"}}) {
		t.Error("shared-object symbol needs an external relocation")
	}
	if needsExternalRelocGeneric(&Symbol{Body: DefinedRegular{Weak: false}}) {
		t.Error("strong regular definition should not need an external relocation")
	}
	if !needsExternalRelocGeneric(&Symbol{Body: DefinedRegular{Weak: true}}) {
		t.Error("weak regular definition is preemptible, needs an external relocation")
	}
}

func TestNeedsPltEntry(t *testing.T) {
	if !needsPltEntry(Undefined{}) {
		t.Error("a call site to an unresolved symbol needs a PLT entry")
	}
	if !needsPltEntry(Shared{SOName: "libc.so"}) {
		t.Error("a call site to a shared-object symbol always needs a PLT entry")
	}
	if needsPltEntry(DefinedRegular{Weak: false}) {
		t.Error("a call site to a strong regular definition needs no PLT entry")
	}
	if !needsPltEntry(DefinedRegular{Weak: true}) {
		t.Error("a weak definition is preemptible and needs a PLT entry")
	}
}

func TestSymbolResolvePrecedence(t *testing.T) {
	sym := NewSymbol("foo")
	if !sym.resolve(DefinedCommon{Size: 4}) {
		t.Fatal("first resolve into an Undefined slot should always succeed")
	}
	if sym.resolve(Lazy{}) {
		t.Error("a lazy body should not displace an existing common definition")
	}
	if !sym.resolve(DefinedRegular{Value: 8}) {
		t.Error("a regular definition should displace a common one")
	}
	if _, ok := sym.Body.(DefinedRegular); !ok {
		t.Errorf("sym.Body = %T, want DefinedRegular", sym.Body)
	}
}
