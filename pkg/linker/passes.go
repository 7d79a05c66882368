package linker

// CreateInternalFile synthesizes an empty, always-alive ObjectFile (no
// sections, no symbols) that Link appends to ctx.Objs and the GC roots.
// AddSyntheticSymbols does not use it: it installs DefinedSynthetic
// bodies directly in ctx.Symbols. New relative to the teacher, which
// never manufactures symbols of its own.
func CreateInternalFile(ctx *Context) *ObjectFile {
	f := &File{Name: "<internal>"}
	obj := NewObjectFile(f, false)
	obj.IsAlive = true
	return obj
}

// ClaimUnresolvedSymbols finalizes every Symbol that never got a real
// definition: still-undefined non-weak symbols are reported through
// ctx.Diag, weak undefined symbols resolve to absolute zero. New
// relative to the teacher, which never diagnoses unresolved symbols.
func ClaimUnresolvedSymbols(ctx *Context) {
	ctx.Symbols.Range(func(sym *Symbol) {
		switch b := sym.Body.(type) {
		case Undefined:
			if sym.IsWeak() {
				sym.Body = DefinedAbsolute{Value: 0}
				return
			}
			ctx.Diag.Errorf("%w", undefinedSymbolError(sym.Name, b.File))
		case Lazy:
			ctx.Diag.Errorf("%w", undefinedSymbolError(sym.Name, nil))
		}
	})
}

// AddSyntheticSymbols defines the section-boundary markers a C runtime's
// crt startup code expects -- __init_array_start/end,
// __fini_array_start/end, __preinit_array_start/end, _end -- as
// DefinedSynthetic bodies resolved against the relevant OutputSection's
// eventual address. New relative to the teacher, which defines none of
// these.
func AddSyntheticSymbols(ctx *Context) {
	define := func(name string, resolver func() uint64) {
		sym := ctx.Symbols.GetOrInsert(name)
		if isDefined(sym.Body) {
			return // an explicit user definition of a reserved name wins
		}
		sym.Body = DefinedSynthetic{Resolver: resolver}
	}

	boundary := func(section string, start bool) func() uint64 {
		return func() uint64 {
			for _, osec := range ctx.OutputSections {
				if osec.Name == section {
					if start {
						return osec.Shdr.Addr
					}
					return osec.Shdr.Addr + osec.Shdr.Size
				}
			}
			return 0
		}
	}

	for _, pair := range []struct{ section, startName, endName string }{
		{".init_array", "__init_array_start", "__init_array_end"},
		{".fini_array", "__fini_array_start", "__fini_array_end"},
		{".preinit_array", "__preinit_array_start", "__preinit_array_end"},
	} {
		define(pair.startName, boundary(pair.section, true))
		define(pair.endName, boundary(pair.section, false))
	}

	define("_end", func() uint64 {
		var max uint64
		for _, osec := range ctx.OutputSections {
			if osec.Shdr.Flags&0x2 == 0 {
				continue
			}
			if end := osec.Shdr.Addr + osec.Shdr.Size; end > max {
				max = end
			}
		}
		return max
	})
	define("__bss_start", func() uint64 {
		for _, osec := range ctx.OutputSections {
			if osec.Name == ".bss" {
				return osec.Shdr.Addr
			}
		}
		return 0
	})
}

// ComputeSectionSizes delegates to every OutputSection/MergedSection's
// own UpdateShdr, the way the teacher's OutputEhdr/OutputShdr participate
// in the same Chunker.UpdateShdr contract.
func ComputeSectionSizes(ctx *Context) {
	for _, osec := range ctx.OutputSections {
		osec.UpdateShdr(ctx)
	}
	for _, m := range ctx.MergedSections {
		m.UpdateShdr(ctx)
	}
}

// SetOsecOffsets assigns virtual addresses and file offsets to every
// output chunk in a single forward walk, respecting each chunk's own
// section alignment (--nmagic/--omagic disable this and pack every
// SHF_ALLOC chunk byte-adjacent instead, the way a real linker's NMAGIC/
// OMAGIC output does for tiny freestanding images). New relative to the
// teacher, which assigns no virtual addresses or file offsets at all.
func SetOsecOffsets(ctx *Context) uint64 {
	var addr uint64 = ImageBase
	var fileOff uint64
	packed := ctx.Args.Nmagic || ctx.Args.Omagic

	place := func(c Chunker) {
		shdr := c.GetShdr()
		align := shdr.AddrAlign
		if align == 0 || packed {
			align = 1
		}
		if shdr.Flags&0x2 != 0 { // SHF_ALLOC
			addr = AlignUp(addr, align)
			shdr.Addr = addr
			fileOff = AlignUp(fileOff, align)
			shdr.Offset = fileOff
			addr += shdr.Size
			if shdr.Type != uint32(shtNobits) {
				fileOff += shdr.Size
			}
		} else {
			fileOff = AlignUp(fileOff, align)
			shdr.Offset = fileOff
			fileOff += shdr.Size
		}
	}

	ctx.Ehdr.Shdr.Offset = 0
	ctx.Ehdr.Shdr.Addr = ImageBase
	fileOff = uint64(EhdrSize)
	addr = ImageBase + uint64(EhdrSize)

	place(ctx.Phdr)
	// ctx.Chunks is already built (.interp when present, output sections,
	// merged sections, then got/plt/dynamic side tables, in that order)
	// by the time this runs,
	// so one pass over it places everything; OutputSection members get an
	// extra fixup pass since they track addresses on the InputSection
	// itself, not just the owning chunk's Shdr.
	for _, c := range ctx.Chunks {
		place(c)
		if osec, ok := c.(*OutputSection); ok {
			for _, isec := range osec.Members {
				isec.Addr = osec.Shdr.Addr + isec.OutputOffset
			}
		}
	}
	place(ctx.Shdr)

	ctx.Phdr.FixupSelf()
	return fileOff
}
