package linker

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm/armasm"
)

// verifyEncodings gates the disassembly cross-checks below. Off by default;
// a debug build or a test that wants a belt-and-suspenders check flips it on
// to confirm Apply's hand-rolled bit-packing produced bytes armasm itself
// decodes as the intended branch displacement -- the way bringing up a
// from-scratch assembler would catch an encoding bug.
var verifyEncodings = false

func verifyArmBranch(buf []byte, mode armasm.Mode, wantDisp int64) error {
	if !verifyEncodings {
		return nil
	}
	inst, err := armasm.Decode(buf, mode)
	if err != nil {
		return fmt.Errorf("armasm could not decode patched branch: %w", err)
	}
	switch inst.Op {
	case armasm.BL, armasm.B, armasm.BLX:
	default:
		return fmt.Errorf("armasm decoded %v, not a branch", inst.Op)
	}
	for _, arg := range inst.Args {
		rel, ok := arg.(armasm.PCRel)
		if !ok {
			continue
		}
		if got := int64(rel); got != wantDisp {
			return fmt.Errorf("armasm decoded displacement %d, want %d", got, wantDisp)
		}
		return nil
	}
	return fmt.Errorf("armasm decoded branch with no PCRel argument")
}

// ARM/Thumb relocation kinds. Bit-exact behavior for each of these is a
// MUST-reproduce example in spec.md §4.1.
const (
	ArmNone uint32 = iota
	ArmB24             // A32 BL/B: 24-bit signed word displacement
	ThumbB22           // T32 BL: split-field displacement, inverted-J bits
	ArmMovwAbsNc       // A32 MOVW: bits [15:0] of target+addend
	ArmMovtAbs         // A32 MOVT: bits [31:16] of target+addend
	ThumbMovwAbsNc     // T32 MOVW
	ThumbMovtAbs       // T32 MOVT
	ArmMovwPrel        // A32 MOVW, function-PC-relative value
	ArmMovtPrel        // A32 MOVT, function-PC-relative value
	ThumbMovwPrel      // T32 MOVW, function-PC-relative value
	ThumbMovtPrel      // T32 MOVT, function-PC-relative value
	ArmPointer32       // plain 32-bit pointer
	ArmDelta32         // target - fixup
	ArmModeThumbCode   // pseudo-reference: subsequent atom bytes are Thumb
	ArmModeArmCode     // pseudo-reference: subsequent atom bytes are A32
)

type armTarget struct{}

func (armTarget) Name() string { return "arm" }

func (armTarget) IsCallSite(kind uint32) bool {
	return kind == ArmB24 || kind == ThumbB22
}

func (armTarget) IsPointer(kind uint32) bool {
	return kind == ArmPointer32
}

func (armTarget) IsPaired(uint32) bool { return false }

func (armTarget) FootprintBytes(kind uint32) int {
	switch kind {
	case ArmModeThumbCode, ArmModeArmCode:
		return 0
	default:
		return 4
	}
}

func (armTarget) NeedsExternalReloc(sym *Symbol) bool {
	return needsExternalRelocGeneric(sym)
}

// movwMovtSplitARM encodes a 16-bit immediate into the A32 MOVW/MOVT
// imm4:imm12 field layout (bits [19:16] and [11:0]).
func movwMovtSplitARM(word uint32, imm16 uint32) uint32 {
	imm4 := (imm16 >> 12) & 0xF
	imm12 := imm16 & 0xFFF
	word &^= 0x000F0FFF
	return word | (imm4 << 16) | imm12
}

func movwMovtExtractARM(word uint32) uint32 {
	imm4 := (word >> 16) & 0xF
	imm12 := word & 0xFFF
	return imm4<<12 | imm12
}

// movwMovtSplitThumb encodes a 16-bit immediate into the T32 MOVW/MOVT
// i:imm4:imm3:imm8 field layout (bit 26, bits [19:16], [14:12], [7:0]).
func movwMovtSplitThumb(word uint32, imm16 uint32) uint32 {
	i := (imm16 >> 11) & 1
	imm4 := (imm16 >> 12) & 0xF
	imm3 := (imm16 >> 8) & 0x7
	imm8 := imm16 & 0xFF
	word &^= (1 << 26) | (0xF << 16) | (0x7 << 12) | 0xFF
	return word | (i << 26) | (imm4 << 16) | (imm3 << 12) | imm8
}

func movwMovtExtractThumb(word uint32) uint32 {
	i := (word >> 26) & 1
	imm4 := (word >> 16) & 0xF
	imm3 := (word >> 12) & 0x7
	imm8 := word & 0xFF
	return imm4<<12 | i<<11 | imm3<<8 | imm8
}

func (t armTarget) Apply(buf []byte, ref *Reference, a ApplyContext) error {
	switch ref.Kind {
	case ArmB24:
		v := thumbBit(a.value(), a.TargetIsThumb, false)
		disp := v - int64(a.FixupVA) - 8
		instr := binary.LittleEndian.Uint32(buf)
		instr = (instr &^ 0x00FFFFFF) | (uint32(disp>>2) & 0x00FFFFFF)
		binary.LittleEndian.PutUint32(buf, instr)
		return verifyArmBranch(buf, armasm.ModeARM, disp)

	case ThumbB22:
		v := thumbBit(a.value(), a.TargetIsThumb, false)
		disp := uint32(v - int64(a.FixupVA) - 4)
		s := (disp >> 24) & 1
		i1 := (disp >> 23) & 1
		i2 := (disp >> 22) & 1
		imm10 := (disp >> 12) & 0x3FF
		imm11 := (disp >> 1) & 0x7FF
		j1 := boolBit(i1 == s)
		j2 := boolBit(i2 == s)
		word := uint32(0xF800D000) | (((s << 10) | imm10) << 16) | ((j1 << 13) | (j2 << 11) | imm11)
		binary.LittleEndian.PutUint16(buf[0:2], uint16(word>>16))
		binary.LittleEndian.PutUint16(buf[2:4], uint16(word))
		return verifyArmBranch(buf, armasm.ModeThumb, int64(int32(disp)))

	case ArmMovwAbsNc, ArmMovtAbs, ArmMovwPrel, ArmMovtPrel:
		v := a.value()
		if ref.Kind == ArmMovwPrel || ref.Kind == ArmMovtPrel {
			v = a.value() - int64(a.InAtomVA)
		}
		var imm16 uint32
		if ref.Kind == ArmMovtAbs || ref.Kind == ArmMovtPrel {
			imm16 = uint32(v>>16) & 0xFFFF
		} else {
			imm16 = uint32(v) & 0xFFFF
		}
		instr := binary.LittleEndian.Uint32(buf)
		binary.LittleEndian.PutUint32(buf, movwMovtSplitARM(instr, imm16))
		return nil

	case ThumbMovwAbsNc, ThumbMovtAbs, ThumbMovwPrel, ThumbMovtPrel:
		v := a.value()
		if ref.Kind == ThumbMovwPrel || ref.Kind == ThumbMovtPrel {
			v = a.value() - int64(a.InAtomVA)
		}
		var imm16 uint32
		if ref.Kind == ThumbMovtAbs || ref.Kind == ThumbMovtPrel {
			imm16 = uint32(v>>16) & 0xFFFF
		} else {
			imm16 = uint32(v) & 0xFFFF
		}
		word := uint32(binary.LittleEndian.Uint16(buf[0:2]))<<16 | uint32(binary.LittleEndian.Uint16(buf[2:4]))
		word = movwMovtSplitThumb(word, imm16)
		binary.LittleEndian.PutUint16(buf[0:2], uint16(word>>16))
		binary.LittleEndian.PutUint16(buf[2:4], uint16(word))
		return nil

	case ArmPointer32:
		v := thumbBit(a.value(), a.TargetIsThumb, true)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return nil

	case ArmDelta32:
		v := a.value() - int64(a.FixupVA)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return nil

	case ArmModeThumbCode, ArmModeArmCode:
		return nil

	default:
		return unsupportedKind(t, ref.Kind)
	}
}

func (armTarget) DecodeField(buf []byte, kind uint32) int64 {
	switch kind {
	case ArmB24:
		instr := binary.LittleEndian.Uint32(buf)
		field := instr & 0x00FFFFFF
		return signExtend24(field) << 2
	case ThumbB22:
		word := uint32(binary.LittleEndian.Uint16(buf[0:2]))<<16 | uint32(binary.LittleEndian.Uint16(buf[2:4]))
		s := (word >> 26) & 1
		imm10 := (word >> 16) & 0x3FF
		j1 := (word >> 13) & 1
		j2 := (word >> 11) & 1
		imm11 := word & 0x7FF
		i1 := boolBit(j1 == 1) ^ s ^ 1
		i2 := boolBit(j2 == 1) ^ s ^ 1
		disp := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
		return signExtend25(disp)
	case ArmMovwAbsNc, ArmMovwPrel:
		instr := binary.LittleEndian.Uint32(buf)
		return int64(movwMovtExtractARM(instr))
	case ArmMovtAbs, ArmMovtPrel:
		instr := binary.LittleEndian.Uint32(buf)
		return int64(movwMovtExtractARM(instr)) << 16
	case ThumbMovwAbsNc, ThumbMovwPrel:
		word := uint32(binary.LittleEndian.Uint16(buf[0:2]))<<16 | uint32(binary.LittleEndian.Uint16(buf[2:4]))
		return int64(movwMovtExtractThumb(word))
	case ThumbMovtAbs, ThumbMovtPrel:
		word := uint32(binary.LittleEndian.Uint16(buf[0:2]))<<16 | uint32(binary.LittleEndian.Uint16(buf[2:4]))
		return int64(movwMovtExtractThumb(word)) << 16
	case ArmPointer32, ArmDelta32:
		return int64(binary.LittleEndian.Uint32(buf))
	default:
		return 0
	}
}

// armInjectModePseudoRefs scans this object's local symbol table for ARM
// ELF "mapping symbols" -- $a / $a.NNN for ARM-mode code, $t / $t.NNN for
// Thumb-mode code -- and inserts the ArmModeArmCode/ArmModeThumbCode
// pseudo-references spec.md §4.1's mode-tracking walk expects into the
// mapped section's References, one per mapping symbol, at that symbol's
// offset. Grounded on the ARM ELF ABI's mapping-symbol convention, the
// same mechanism readelf/objdump use to tell an ARM disassembler where a
// section switches between A32 and T32.
func (o *ObjectFile) armInjectModePseudoRefs() {
	for i := 0; i < o.FirstGlobal && i < len(o.ElfSyms); i++ {
		esym := &o.ElfSyms[i]
		name := GetNameFromTable(o.SymbolStrtab, esym.Name)
		var kind uint32
		switch {
		case name == "$a" || strings.HasPrefix(name, "$a."):
			kind = ArmModeArmCode
		case name == "$t" || strings.HasPrefix(name, "$t."):
			kind = ArmModeThumbCode
		default:
			continue
		}
		shndx := o.getShndx(esym, i)
		if shndx <= 0 || shndx >= len(o.Sections) || o.Sections[shndx] == nil {
			continue
		}
		isec := o.Sections[shndx]
		isec.References = append(isec.References, Reference{Offset: esym.Val, Kind: kind})
	}
}

// armThumbModeAt walks isec's References for the ArmModeArmCode/
// ArmModeThumbCode pseudo-references armInjectModePseudoRefs inserted and
// reports the mode in effect at offset -- spec.md §4.1's "mutable Thumb
// mode flag toggled by modeThumbCode/modeArmCode pseudo-references at
// known offsets", implemented as a walk instead of a stored flag since
// InputSection has no other mutable per-offset state to carry it in.
// Sections with no mapping symbols at all are treated as ARM throughout.
func armThumbModeAt(isec *InputSection, offset uint64) bool {
	thumb := false
	var lastOffset uint64
	seen := false
	for i := range isec.References {
		ref := &isec.References[i]
		var isThumb bool
		switch ref.Kind {
		case ArmModeThumbCode:
			isThumb = true
		case ArmModeArmCode:
			isThumb = false
		default:
			continue
		}
		if ref.Offset > offset {
			continue
		}
		if !seen || ref.Offset >= lastOffset {
			seen = true
			lastOffset = ref.Offset
			thumb = isThumb
		}
	}
	return thumb
}

// isTargetThumb resolves sym to its defining atom and reports whether
// that atom's mode-tracking walk places sym's value in a Thumb-mode run
// -- the "target atom is thumb" determination applyAllRelocations feeds
// into ApplyContext.TargetIsThumb. Bodies with no section (Shared,
// Undefined, DefinedAbsolute, DefinedCommon, ...) have no mode to
// report and are treated as ARM.
func isTargetThumb(sym *Symbol) bool {
	if sym == nil {
		return false
	}
	dr, ok := sym.Body.(DefinedRegular)
	if !ok || dr.Section == nil {
		return false
	}
	return armThumbModeAt(dr.Section, dr.Value)
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func signExtend24(v uint32) int64 {
	if v&(1<<23) != 0 {
		return int64(v) - (1 << 24)
	}
	return int64(v)
}

func signExtend25(v uint32) int64 {
	if v&(1<<24) != 0 {
		return int64(v) - (1 << 25)
	}
	return int64(v)
}
