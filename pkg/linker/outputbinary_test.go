package linker

import (
	"bytes"
	"testing"
)

// fakeChunk is a minimal Chunker satisfying extractBinary's two reads
// (GetShdr for Flags/Type/Size/Addr/Offset) without any of the real
// layout machinery a full OutputSection needs.
type fakeChunk struct {
	shdr Shdr
}

func (f *fakeChunk) GetName() string         { return "" }
func (f *fakeChunk) GetShdr() *Shdr          { return &f.shdr }
func (f *fakeChunk) UpdateShdr(ctx *Context) {}
func (f *fakeChunk) CopyBuf(ctx *Context)    {}

const shfAllocFlag = 0x2

// TestExtractBinaryScenario implements spec.md §8 scenario 6: a single
// `nop` followed by `.mysec.1` (byte 0x11) and `.mysec.2` (byte 0x22),
// with a trailing allocated gap out to an 8-byte window -- --oformat
// binary must emit exactly `90 11 22 00 00 00 00 00`.
func TestExtractBinaryScenario(t *testing.T) {
	ctx := &Context{Args: ContextArgs{OFormat: "binary"}}
	ctx.Buf = []byte{0x90, 0x11, 0x22, 0, 0, 0, 0, 0}

	ctx.Chunks = []Chunker{
		&fakeChunk{shdr: Shdr{Flags: shfAllocFlag, Addr: 0x1000, Offset: 0, Size: 1}}, // nop
		&fakeChunk{shdr: Shdr{Flags: shfAllocFlag, Addr: 0x1001, Offset: 1, Size: 1}}, // .mysec.1
		&fakeChunk{shdr: Shdr{Flags: shfAllocFlag, Addr: 0x1002, Offset: 2, Size: 1}}, // .mysec.2
		&fakeChunk{shdr: Shdr{Flags: shfAllocFlag, Addr: 0x1003, Offset: 3, Size: 5}}, // trailing gap out to the 8-byte window
	}

	got := extractBinary(ctx)
	want := []byte{0x90, 0x11, 0x22, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("extractBinary() = % x, want % x", got, want)
	}
}

// TestExtractBinarySkipsNobitsAndNonAlloc checks the two exclusions
// extractBinary documents: SHT_NOBITS (.bss-like) sections contribute no
// bytes, and non-SHF_ALLOC sections (debug info, symtab) are ignored
// entirely even though they may be part of ctx.Buf.
func TestExtractBinarySkipsNobitsAndNonAlloc(t *testing.T) {
	ctx := &Context{Args: ContextArgs{OFormat: "binary"}}
	ctx.Buf = []byte{0xaa, 0xbb}
	ctx.Chunks = []Chunker{
		&fakeChunk{shdr: Shdr{Flags: shfAllocFlag, Addr: 0x2000, Offset: 0, Size: 1}},
		&fakeChunk{shdr: Shdr{Flags: shfAllocFlag, Type: uint32(shtNobits), Addr: 0x2001, Offset: 1, Size: 1}},
		&fakeChunk{shdr: Shdr{Flags: 0, Addr: 0x2002, Offset: 1, Size: 1}},
	}
	got := extractBinary(ctx)
	want := []byte{0xaa}
	if !bytes.Equal(got, want) {
		t.Fatalf("extractBinary() = % x, want % x", got, want)
	}
}
