package linker

import (
	"bytes"
	"debug/elf"

	"github.com/oss-linkers/rvld/pkg/utils"
)

// FileType classifies a raw input buffer before any relocation-aware
// parsing happens.
type FileType uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeEmpty
	FileTypeObject
	FileTypeArchive
	FileTypeSharedObject
)

// GetFileType sniffs contents to decide how loadFile should handle it.
func GetFileType(contents []byte) FileType {
	if len(contents) == 0 {
		return FileTypeEmpty
	}
	if CheckMagic(contents) {
		typ := elf.Type(utils.Read[uint16](contents[16:]))
		switch typ {
		case elf.ET_REL:
			return FileTypeObject
		case elf.ET_DYN:
			return FileTypeSharedObject
		}
	}
	if bytes.HasPrefix(contents, []byte("!<arch>\n")) {
		return FileTypeArchive
	}
	return FileTypeUnknown
}
