package linker

import (
	"encoding/binary"
	"testing"
)

func TestArmB24RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 0xEB000000) // BL opcode, field cleared
	target := armTarget{}

	fixup := uint64(0x1000)
	dest := uint64(0x2000)
	ref := &Reference{Offset: 0, Kind: ArmB24}
	actx := ApplyContext{FixupVA: fixup, TargetVA: dest, Final: true}

	if err := target.Apply(buf, ref, actx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := target.DecodeField(buf, ArmB24)
	want := int64(dest) - int64(fixup) - 8
	if got != want {
		t.Errorf("decoded displacement = %d, want %d", got, want)
	}
}

func TestThumbB22RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	target := armTarget{}

	fixup := uint64(0x4000)
	dest := uint64(0x4100)
	ref := &Reference{Offset: 0, Kind: ThumbB22}
	actx := ApplyContext{FixupVA: fixup, TargetVA: dest, Final: true}

	if err := target.Apply(buf, ref, actx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := target.DecodeField(buf, ThumbB22)
	want := int64(dest) - int64(fixup) - 4
	if got != want {
		t.Errorf("decoded displacement = %d, want %d", got, want)
	}
}

func TestArmMovwMovtRoundTrip(t *testing.T) {
	target := armTarget{}
	value := int64(0xDEADBEEF)

	movwBuf := make([]byte, 4)
	ref := &Reference{Kind: ArmMovwAbsNc}
	actx := ApplyContext{TargetVA: uint64(value), Final: true}
	if err := target.Apply(movwBuf, ref, actx); err != nil {
		t.Fatalf("Apply movw: %v", err)
	}
	if got := target.DecodeField(movwBuf, ArmMovwAbsNc); got != value&0xFFFF {
		t.Errorf("movw decoded = %#x, want %#x", got, value&0xFFFF)
	}

	movtBuf := make([]byte, 4)
	ref.Kind = ArmMovtAbs
	if err := target.Apply(movtBuf, ref, actx); err != nil {
		t.Fatalf("Apply movt: %v", err)
	}
	if got := target.DecodeField(movtBuf, ArmMovtAbs); got != (value>>16)&0xFFFF<<16 {
		t.Errorf("movt decoded = %#x, want %#x", got, (value>>16)&0xFFFF<<16)
	}
}

func TestArmThumbModeAtWalksPseudoReferences(t *testing.T) {
	file := &ObjectFile{File: &File{Name: "a.o"}}
	text := newTestSection(file, ".text", make([]byte, 8), []Reference{
		{Offset: 0, Kind: ArmModeThumbCode},
		{Offset: 4, Kind: ArmModeArmCode},
	})

	if !armThumbModeAt(text, 2) {
		t.Error("offset 2 falls after the $t transition at 0 and before $a at 4, should read as Thumb")
	}
	if armThumbModeAt(text, 6) {
		t.Error("offset 6 falls after the $a transition at 4, should read as ARM")
	}

	noModeRefs := newTestSection(file, ".text.other", make([]byte, 4), nil)
	if armThumbModeAt(noModeRefs, 0) {
		t.Error("a section with no mode pseudo-references should default to ARM")
	}
}

func TestIsTargetThumbFollowsDefiningSection(t *testing.T) {
	file := &ObjectFile{File: &File{Name: "a.o"}}
	thumbSec := newTestSection(file, ".text.thumb_fn", make([]byte, 4), []Reference{{Offset: 0, Kind: ArmModeThumbCode}})
	armSec := newTestSection(file, ".text.arm_fn", make([]byte, 4), nil)

	thumbSym := &Symbol{Name: "thumb_fn", Body: DefinedRegular{Section: thumbSec, Value: 0}}
	armSym := &Symbol{Name: "arm_fn", Body: DefinedRegular{Section: armSec, Value: 0}}
	externSym := &Symbol{Name: "extern_fn", Body: Undefined{}}

	if !isTargetThumb(thumbSym) {
		t.Error("isTargetThumb(thumbSym) = false, want true")
	}
	if isTargetThumb(armSym) {
		t.Error("isTargetThumb(armSym) = true, want false")
	}
	if isTargetThumb(externSym) {
		t.Error("a body with no section has no mode to report, want false")
	}
}

// TestArmInjectModePseudoRefsFromMappingSymbols checks the decode side:
// ARM ELF mapping symbols ($t, $a.N) in the local symbol table become
// ArmModeThumbCode/ArmModeArmCode pseudo-references on the section they
// map, at their recorded offset.
func TestArmInjectModePseudoRefsFromMappingSymbols(t *testing.T) {
	file := &ObjectFile{File: &File{Name: "a.o"}, Machine: MachineTypeARM}
	text := newTestSection(file, ".text", make([]byte, 8), nil)
	file.Sections = []*InputSection{nil, text}

	strtab := []byte{0}
	addName := func(name string) uint32 {
		off := uint32(len(strtab))
		strtab = append(strtab, append([]byte(name), 0)...)
		return off
	}
	tName := addName("$t")
	aName := addName("$a.1")
	file.SymbolStrtab = strtab
	file.FirstGlobal = 2
	file.ElfSyms = []Sym{
		{Name: tName, Shndx: 1, Val: 0},
		{Name: aName, Shndx: 1, Val: 4},
	}

	file.armInjectModePseudoRefs()

	if len(text.References) != 2 {
		t.Fatalf("expected 2 injected pseudo-references, got %d", len(text.References))
	}
	if !armThumbModeAt(text, 2) {
		t.Error("offset 2 should read as Thumb (after $t at 0, before $a.1 at 4)")
	}
	if armThumbModeAt(text, 6) {
		t.Error("offset 6 should read as ARM (after $a.1 at 4)")
	}
}

// TestApplyAllRelocationsSetsThumbBitForPointerToThumbTarget is the
// production-path check: a function pointer (ArmPointer32) to a symbol
// whose defining section's mode walk says Thumb must come out with its
// low bit set for interworking, even though the computed address itself
// is even. This only happens if applyAllRelocations actually derives
// ApplyContext.TargetIsThumb from the target's mode instead of leaving
// it at its zero value.
func TestApplyAllRelocationsSetsThumbBitForPointerToThumbTarget(t *testing.T) {
	file := &ObjectFile{File: &File{Name: "a.o"}, Machine: MachineTypeARM}

	callee := newTestSection(file, ".text.callee", make([]byte, 4), []Reference{{Offset: 0, Kind: ArmModeThumbCode}})
	callee.Addr = 0x8000
	calleeSym := &Symbol{Name: "callee", Body: DefinedRegular{Section: callee, Value: 0}}

	caller := newTestSection(file, ".data.ptr", make([]byte, 4), []Reference{{Offset: 0, Kind: ArmPointer32, Sym: calleeSym}})
	caller.Addr = 0x9000

	outSec := NewOutputSection(".data")
	callee.OutputSection = outSec
	caller.OutputSection = outSec

	file.Sections = []*InputSection{callee, caller}

	ctx := &Context{}
	ctx.Objs = []*ObjectFile{file}
	ctx.Buf = make([]byte, 16)

	applyAllRelocations(ctx)

	got := binary.LittleEndian.Uint32(ctx.Buf[caller.OutputOffset:])
	if got != 0x8001 {
		t.Errorf("function pointer to a Thumb-mode target = %#x, want 0x8001 (low bit set for interworking)", got)
	}
}

func TestThumbBit(t *testing.T) {
	if got := thumbBit(0x1001, true, false); got != 0x1000 {
		t.Errorf("thumbBit clear = %#x, want 0x1000", got)
	}
	if got := thumbBit(0x1000, true, true); got != 0x1001 {
		t.Errorf("thumbBit restore = %#x, want 0x1001", got)
	}
	if got := thumbBit(0x1001, false, false); got != 0x1001 {
		t.Errorf("thumbBit no-op for non-thumb = %#x, want 0x1001", got)
	}
}
