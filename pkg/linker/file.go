package linker

import (
	"fmt"
	"os"

	"github.com/oss-linkers/rvld/pkg/utils"
)

// File is a named byte buffer: either a file read from disk, an archive
// member sliced out of a parent buffer, or an in-memory internal object
// synthesized by the linker itself. Parent tracks archive provenance so
// diagnostics can name "member inside archive.a" precisely.
type File struct {
	Name     string
	Contents []byte
	Parent   *File
}

// DisplayName renders the file's identity the way diagnostics want it:
// "member.o (libfoo.a)" for archive members, just the path otherwise.
func (f *File) DisplayName() string {
	if f.Parent != nil {
		return fmt.Sprintf("%s (%s)", f.Name, f.Parent.Name)
	}
	return f.Name
}

// MustNewFile reads filename off disk. Disk I/O is an external
// collaborator per spec.md §1; this thin helper exists only because the
// corpus's rvld family keeps it next to the core for convenience, and
// cmd/rvld needs some entrypoint to hand the core a *File.
func MustNewFile(filename string) *File {
	contents, err := os.ReadFile(filename)
	utils.MustNo(err)
	return &File{Name: filename, Contents: contents}
}

// OpenLibrary attempts to read filepath, returning nil instead of
// aborting when the file does not exist (used while probing -L search
// paths for `-lfoo`).
func OpenLibrary(filepath string) *File {
	contents, err := os.ReadFile(filepath)
	if err != nil {
		return nil
	}
	return &File{Name: filepath, Contents: contents}
}

// FindLibrary resolves `-lname` against the configured library search
// path, preferring the shared form (lib<name>.so) over the static-archive
// form (lib<name>.a) the way a real linker's default (non -static) mode
// does. The teacher only ever implements the .a half of this search.
func FindLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Args.LibraryPaths {
		if f := OpenLibrary(dir + "/lib" + name + ".so"); f != nil {
			return f
		}
	}
	for _, dir := range ctx.Args.LibraryPaths {
		if f := OpenLibrary(dir + "/lib" + name + ".a"); f != nil {
			return f
		}
	}
	utils.Fatal(fmt.Sprintf("library not found: -l%s", name))
	return nil
}
