package linker

import "github.com/oss-linkers/rvld/pkg/utils"

// ArchiveMember is one object file's bytes sliced out of a `.a`, still
// tagged with the archive it came from.
type ArchiveMember struct {
	Name string
	File *File
}

// ReadArchiveMembers walks a System-V `ar` archive, skipping the
// symbol-table (`/`) and extended-name (`//`) members, grounded on the
// teacher's ReadArchiveMembers, with the `__.SYMDEF`/`__.SYMDEF SORTED`
// BSD-style symbol-table member names also skipped since lazy extraction
// (resolver.go) makes the linker's own symbol index unnecessary either way.
func ReadArchiveMembers(file *File) []ArchiveMember {
	contents := file.Contents[8:] // skip "!<arch>\n" magic
	var strtab []byte
	var members []ArchiveMember

	for len(contents) >= ArHdrSize {
		hdr := utils.Read[ArHdr](contents[:ArHdrSize])
		contents = contents[ArHdrSize:]

		size := hdr.GetSize()
		if size > len(contents) {
			break
		}
		data := contents[:size]
		contents = contents[size:]
		if len(contents)%2 == 1 && len(contents) > 0 {
			contents = contents[1:] // 2-byte alignment padding
		}

		if hdr.IsStrtab() {
			strtab = data
			continue
		}
		if hdr.IsSymtab() {
			continue
		}
		name := hdr.ReadName(strtab)
		if name == "__.SYMDEF" || name == "__.SYMDEF SORTED" {
			continue
		}
		members = append(members, ArchiveMember{
			Name: name,
			File: &File{Name: name, Contents: data, Parent: file},
		})
	}
	return members
}
