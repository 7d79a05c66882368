package linker

// Node is one element of the input graph spec.md's §4.3/§9 supplement
// calls for: either a single file to load, or a group of nodes loaded
// together for `--start-group`/`--end-group`. Grounded on
// original_source/include/lld/Core/InputGraph.h's InputElement/Group.
type Node interface {
	// Parse loads this node's file(s) into ctx.Objs, returning every
	// ObjectFile it newly added (so the Group driver can resolve just
	// the new ones, not the whole set again).
	Parse(ctx *Context) []*ObjectFile
}

// FileNode wraps a single on-disk file (object or archive) as a Node.
type FileNode struct {
	File *File
}

func NewFileNode(file *File) *FileNode { return &FileNode{File: file} }

func (n *FileNode) Parse(ctx *Context) []*ObjectFile {
	return loadFile(ctx, n.File, false)
}

// GroupNode holds the member nodes of one --start-group/--end-group
// range. It parses each member once and does not re-offer them; archives
// inside it satisfy each other because Resolve keeps extracting needed
// archive members until a pass extracts none, whatever their link-line
// order. Grounded on InputGraph.h's Group; its resetNextIndex/
// notifyProgress re-scan has no counterpart here.
type GroupNode struct {
	Members []Node
}

func (g *GroupNode) AddFile(n Node) { g.Members = append(g.Members, n) }

// Parse loads every member exactly once and returns the objects they
// added. It tracks no progress flag and never loops over the group;
// repeated archive extraction happens in Resolve's fixed-point loop.
func (g *GroupNode) Parse(ctx *Context) []*ObjectFile {
	var objs []*ObjectFile
	for _, m := range g.Members {
		objs = append(objs, m.Parse(ctx)...)
	}
	return objs
}

// loadFile dispatches on file type: an object is parsed eagerly and
// becomes a GC root candidate; an archive is registered lazily, each
// member's global symbols becoming a Lazy body that Resolve only
// extracts into a full ObjectFile once something needs it (spec.md
// §4.3's extraction rule). Grounded on the teacher's ReadFile/
// CreateObjectFile, generalized with LoadArchives's lazy registration.
func loadFile(ctx *Context, file *File, isInArchive bool) []*ObjectFile {
	switch GetFileType(file.Contents) {
	case FileTypeObject:
		obj := NewObjectFile(file, isInArchive)
		obj.Parse(ctx)
		ctx.Objs = append(ctx.Objs, obj)
		return []*ObjectFile{obj}
	case FileTypeArchive:
		LoadArchives(ctx, []*File{file})
		return nil
	case FileTypeSharedObject:
		so := NewSharedFile(file)
		so.Parse(ctx)
		ctx.SharedObjects = append(ctx.SharedObjects, so)
		return nil
	default:
		return nil
	}
}

// ReadInputFiles parses every top-level node, grounded on the teacher's
// ReadInputFiles.
func ReadInputFiles(ctx *Context, nodes []Node) {
	for _, n := range nodes {
		n.Parse(ctx)
	}
}
