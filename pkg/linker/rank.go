package linker

import "sort"

// sectionRank assigns a bit-packed ordering rank: writable sections after
// read-only, executable after non-executable within a writability tier,
// BSS-like (SHT_NOBITS) sections after the PROGBITS sections of the same
// tier, and TLS sections grouped together after every non-TLS section,
// so PT_LOAD segments never need to mix
// permissions or split a TLS block across segments. New relative to the
// teacher, which emits sections in input order with no permission-based
// sort.
func sectionRank(osec *OutputSection) uint32 {
	const (
		shfWrite = 0x1
		shfAlloc = 0x2
		shfExec  = 0x4
		shfTLS   = 0x400
	)
	flags := osec.Shdr.Flags
	if flags&shfAlloc == 0 {
		return 0xFFFFFFFF // non-allocated sections sort last, after every segment
	}

	var rank uint32
	if flags&shfTLS != 0 {
		rank |= 1 << 24
	}
	if flags&shfWrite != 0 {
		rank |= 1 << 20
	}
	if flags&shfExec != 0 {
		rank |= 1 << 16 // non-exec before exec within a writability tier
	}
	if osec.Shdr.Type == uint32(shtNobits) {
		rank |= 1 << 12
	}
	return rank
}

const shtNobits = 8 // elf.SHT_NOBITS

// SortOutputSections orders ctx.OutputSections by rank, breaking ties by name.
func SortOutputSections(ctx *Context) {
	sort.SliceStable(ctx.OutputSections, func(i, j int) bool {
		ri, rj := sectionRank(ctx.OutputSections[i]), sectionRank(ctx.OutputSections[j])
		if ri != rj {
			return ri < rj
		}
		return ctx.OutputSections[i].Name < ctx.OutputSections[j].Name
	})
}
