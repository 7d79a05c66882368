package linker

import "sort"

// OutputSection groups every live InputSection that shares a name (after
// the standard .text.foo -> .text folding) into one contiguous output
// byte range. The grouping/folding logic is new; the Chunk embedding and
// GetShdr/UpdateShdr/CopyBuf shape follow the teacher's OutputEhdr.
type OutputSection struct {
	Chunk

	Members []*InputSection
}

func NewOutputSection(name string) *OutputSection {
	o := &OutputSection{Chunk: *NewChunk()}
	o.Name = name
	return o
}

func (o *OutputSection) GetShdr() *Shdr { return &o.Shdr }

func (o *OutputSection) UpdateShdr(ctx *Context) {
	var offset uint64
	for _, isec := range o.Members {
		offset = AlignUp(offset, isec.ShAlign)
		isec.OutputOffset = offset
		offset += isec.ShSize
		if isec.ShAlign > o.Shdr.AddrAlign {
			o.Shdr.AddrAlign = isec.ShAlign
		}
	}
	o.Shdr.Size = offset
}

func (o *OutputSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[o.Shdr.Offset:]
	for _, isec := range o.Members {
		if !isec.Live || len(isec.Content) == 0 {
			continue
		}
		copy(base[isec.OutputOffset:], isec.Content)
	}
}

func AlignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// BinSections assigns every live, non-merged InputSection to the
// OutputSection matching its (post-ICF) representative name, sorting the
// resulting set by name for a stable, reproducible section order.
func BinSections(ctx *Context) {
	byName := map[string]*OutputSection{}
	for _, obj := range ctx.Objs {
		for _, isec := range obj.Sections {
			if isec == nil || !isec.Live {
				continue
			}
			if isec.Representative() != isec {
				continue // folded away by ICF; its representative carries the bytes
			}
			name := outputSectionName(isec.Name)
			osec, ok := byName[name]
			if !ok {
				osec = NewOutputSection(name)
				byName[name] = osec
				ctx.OutputSections = append(ctx.OutputSections, osec)
			}
			isec.OutputSection = osec
			osec.Members = append(osec.Members, isec)
		}
	}
	sort.Slice(ctx.OutputSections, func(i, j int) bool {
		return ctx.OutputSections[i].Name < ctx.OutputSections[j].Name
	})
}

// outputSectionName folds .text.foo/.text.foo.bar into .text the way a
// default linker script does.
func outputSectionName(name string) string {
	for _, prefix := range []string{".text.", ".data.rel.ro.", ".data.", ".rodata.", ".bss.rel.ro.", ".bss.", ".init_array.", ".fini_array.", ".tbss.", ".tdata.", ".gcc_except_table."} {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return prefix[:len(prefix)-1]
		}
	}
	return name
}
