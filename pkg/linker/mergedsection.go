package linker

import "sort"

// MergedSection is the output-side home for every MergeableSection's
// fragments across every input object: one dedup'd byte blob with its
// fragments sorted by content, the merge-string-pool spec.md keeps in
// scope. Grounded on the
// teacher's SectionFragment/GetAddr, with the dedup/layout bookkeeping
// the teacher's minimal struct never implements written fresh.
type MergedSection struct {
	Chunk

	fragsByValue map[string]*SectionFragment
	frags        []*SectionFragment
}

func NewMergedSection(name string) *MergedSection {
	m := &MergedSection{Chunk: *NewChunk(), fragsByValue: map[string]*SectionFragment{}}
	m.Name = name
	return m
}

// Insert dedups value, returning the single fragment that will represent
// every equal byte sequence in the output.
func (m *MergedSection) Insert(value []byte, alignment uint64) *SectionFragment {
	key := string(value)
	if f, ok := m.fragsByValue[key]; ok {
		if alignment > m.Shdr.AddrAlign {
			m.Shdr.AddrAlign = alignment
		}
		return f
	}
	f := NewSectionFragment(m, value)
	m.fragsByValue[key] = f
	m.frags = append(m.frags, f)
	if alignment > m.Shdr.AddrAlign {
		m.Shdr.AddrAlign = alignment
	}
	return f
}

func (m *MergedSection) GetShdr() *Shdr { return &m.Shdr }

func (m *MergedSection) UpdateShdr(ctx *Context) {
	sort.Slice(m.frags, func(i, j int) bool {
		return string(m.frags[i].Value) < string(m.frags[j].Value)
	})
	var offset uint64
	align := m.Shdr.AddrAlign
	if align == 0 {
		align = 1
	}
	for _, f := range m.frags {
		offset = AlignUp(offset, align)
		f.Offset = offset
		offset += uint64(len(f.Value))
	}
	m.Shdr.Size = offset
}

func (m *MergedSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[m.Shdr.Offset:]
	for _, f := range m.frags {
		copy(base[f.Offset:], f.Value)
	}
}

// RegisterSectionPieces splits every object's mergeable sections into
// fragments and rewires any symbol whose value fell inside the original
// section to point at the matching fragment instead.
func RegisterSectionPieces(ctx *Context) {
	mergedByName := map[string]*MergedSection{}
	getMerged := func(name string) *MergedSection {
		name = outputSectionName(name)
		if m, ok := mergedByName[name]; ok {
			return m
		}
		m := NewMergedSection(name)
		mergedByName[name] = m
		ctx.MergedSections = append(ctx.MergedSections, m)
		return m
	}

	for _, obj := range ctx.Objs {
		for _, msec := range obj.MergeableSections {
			if msec == nil {
				continue
			}
			merged := getMerged(msec.parentName)
			msec.Parent = merged
			msec.Fragments = make([]*SectionFragment, len(msec.Strs))
			for i, s := range msec.Strs {
				msec.Fragments[i] = merged.Insert(s, msec.Alignment)
			}
		}
	}
}
