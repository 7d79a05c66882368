package linker

// OutputImage is the produced seam spec.md §6 describes: a sequence of
// output sections (name/flags/VA/file-offset/bytes, relocations already
// applied) plus, for dynamic output, the GOT/PLT/dynamic-symbol-table/
// dynamic-string-table/hash/.dynamic side tables. *Context implements it
// directly once Link has run; the interface exists so a caller (cmd/rvld,
// or a test) can walk the produced image without reaching into Context's
// internals. New relative to the teacher, which returns a raw []byte with
// no structured view of what it wrote.
type OutputImage interface {
	Sections() []OutputSectionView
	EntryPoint() uint64
}

// OutputSectionView exposes one output section's final placement and
// bytes, mirroring the Chunker contract (GetName/GetShdr) without
// exposing the mutation methods (UpdateShdr/CopyBuf) a read-only
// consumer has no business calling.
type OutputSectionView interface {
	Name() string
	Flags() uint64
	Addr() uint64
	Offset() uint64
	Size() uint64
}

func (ctx *Context) Sections() []OutputSectionView {
	views := make([]OutputSectionView, 0, len(ctx.Chunks))
	for _, c := range ctx.Chunks {
		views = append(views, &chunkSectionView{c})
	}
	return views
}

func (ctx *Context) EntryPoint() uint64 {
	if ctx.Ehdr == nil {
		return 0
	}
	return ctx.Ehdr.GetEntryAddress(ctx)
}

type chunkSectionView struct{ c Chunker }

func (v *chunkSectionView) Name() string  { return v.c.GetName() }
func (v *chunkSectionView) Flags() uint64 { return v.c.GetShdr().Flags }
func (v *chunkSectionView) Addr() uint64  { return v.c.GetShdr().Addr }
func (v *chunkSectionView) Offset() uint64 { return v.c.GetShdr().Offset }
func (v *chunkSectionView) Size() uint64  { return v.c.GetShdr().Size }
