package linker

import "testing"

func minimalEhdr(t uint16) []byte {
	buf := make([]byte, EhdrSize)
	copy(buf, "\x7fELF\x02\x01\x01")
	buf[16] = byte(t)
	buf[17] = byte(t >> 8)
	return buf
}

func TestGetFileType(t *testing.T) {
	const (
		etRel = 1
		etDyn = 3
	)
	if got := GetFileType(minimalEhdr(etRel)); got != FileTypeObject {
		t.Errorf("ET_REL: GetFileType = %v, want FileTypeObject", got)
	}
	if got := GetFileType(minimalEhdr(etDyn)); got != FileTypeSharedObject {
		t.Errorf("ET_DYN: GetFileType = %v, want FileTypeSharedObject", got)
	}
	if got := GetFileType([]byte("!<arch>\n")); got != FileTypeArchive {
		t.Errorf("ar magic: GetFileType = %v, want FileTypeArchive", got)
	}
	if got := GetFileType(nil); got != FileTypeEmpty {
		t.Errorf("empty: GetFileType = %v, want FileTypeEmpty", got)
	}
	if got := GetFileType([]byte("garbage")); got != FileTypeUnknown {
		t.Errorf("garbage: GetFileType = %v, want FileTypeUnknown", got)
	}
}
