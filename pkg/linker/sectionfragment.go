package linker

// SectionFragment is one piece of a mergeable section (a single string in
// a .rodata.str1.1, or one fixed-size constant in a .rodata.cstNN): the
// unit MergedSection actually dedups and lays out, grounded on the
// teacher's SectionFragment.
type SectionFragment struct {
	Parent *MergedSection
	Offset uint64 // assigned once Parent's contents are laid out

	Value []byte

	isAlive bool
}

func NewSectionFragment(parent *MergedSection, value []byte) *SectionFragment {
	return &SectionFragment{Parent: parent, Value: value, isAlive: true}
}

func (f *SectionFragment) GetAddr() uint64 {
	return f.Parent.Chunk.Shdr.Addr + f.Offset
}
