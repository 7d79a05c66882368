package linker

// Link runs the full pipeline: load inputs (E), resolve symbols and scan
// relocations (B), fold identical sections (D), lay out and emit the
// final image (F). New relative to the teacher's main(), which only
// parses a single object and prints its symbol table; this generalizes
// that into one orchestration function instead
// of a bare main().
func Link(ctx *Context, nodes []Node) ([]byte, error) {
	for _, n := range nodes {
		n.Parse(ctx)
	}
	applyDefsyms(ctx)

	roots := append([]*ObjectFile(nil), ctx.Objs...)
	Resolve(ctx)

	internal := CreateInternalFile(ctx)
	ctx.Objs = append(ctx.Objs, internal)
	roots = append(roots, internal)

	if ctx.Args.GCSections {
		RunGC(ctx, roots)
	} else {
		for _, obj := range ctx.Objs {
			obj.IsAlive = true
		}
	}

	applyWraps(ctx)

	for _, obj := range ctx.Objs {
		obj.ScanRelocations(ctx)
	}

	RegisterSectionPieces(ctx)
	rewriteFragmentSymbols(ctx)

	runICF(ctx)

	BinSections(ctx)
	SortOutputSections(ctx)
	AddSyntheticSymbols(ctx)

	got := NewGotSection()
	plt := NewPltSection(16)
	ScanGotNeeds(ctx, got)
	ScanPltNeeds(ctx, plt)

	dynstr := NewDynstrSection()
	dynsym := NewDynsymSection(dynstr)
	ScanDynsymNeeds(ctx, dynsym)
	hash := NewHashSection(dynsym)
	dynamic := NewDynamicSection(hash, dynsym, dynstr)
	dynamic.SOName = ctx.Args.SOName
	dynamic.RPath = ctx.Args.RPath
	dynamic.Needed = ctx.Args.Needed
	dynamic.Init = ctx.Args.Init
	dynamic.Fini = ctx.Args.Fini
	if len(dynamic.Needed) == 0 {
		for _, so := range ctx.SharedObjects {
			dynamic.Needed = append(dynamic.Needed, so.SOName)
		}
	}

	ClaimUnresolvedSymbols(ctx)
	if ctx.Diag.HasErrors() {
		return nil, ctx.Diag.Combined()
	}

	ComputeSectionSizes(ctx)
	got.UpdateShdr(ctx)
	plt.UpdateShdr(ctx)
	hasDynamic := len(dynsym.entries) > 1 // more than just the reserved null entry
	if hasDynamic {
		dynsym.UpdateShdr(ctx)
		dynstr.UpdateShdr(ctx)
		hash.UpdateShdr(ctx)
		dynamic.UpdateShdr(ctx)
	}

	var interp *InterpSection
	if ctx.Args.DynamicLinker != "" {
		interp = NewInterpSection(ctx.Args.DynamicLinker)
		ctx.Interp = interp
	}
	if hasDynamic {
		ctx.Dynamic = dynamic
	}

	ctx.Ehdr = NewOutputEhdr()
	ctx.Phdr = NewOutputPhdr()
	ctx.Shdr = NewOutputShdr()
	ctx.Phdr.CreatePhdr(ctx)

	ctx.Chunks = nil
	if interp != nil {
		ctx.Chunks = append(ctx.Chunks, interp)
	}
	for _, osec := range ctx.OutputSections {
		ctx.Chunks = append(ctx.Chunks, osec)
	}
	for _, m := range ctx.MergedSections {
		ctx.Chunks = append(ctx.Chunks, m)
	}
	if len(got.entries) > 0 {
		ctx.Chunks = append(ctx.Chunks, got)
	}
	if len(plt.entries) > 0 {
		ctx.Chunks = append(ctx.Chunks, plt)
	}
	if hasDynamic {
		ctx.Chunks = append(ctx.Chunks, dynsym, dynstr, hash, dynamic)
	}

	ctx.Shdr.Build(ctx)
	total := SetOsecOffsets(ctx)
	// CreatePhdr's first pass (above) only needed to settle Entries'
	// count so place(ctx.Phdr) could size the table; its VAddr/Offset
	// fields were built against unlaid-out sections and are stale. Rerun
	// it now that every OutputSection has a final Shdr.Addr/Offset, then
	// reapply the PT_PHDR self-reference CreatePhdr just wiped.
	ctx.Phdr.CreatePhdr(ctx)
	ctx.Phdr.FixupSelf()
	ctx.Buf = make([]byte, total)

	applyAllRelocations(ctx)
	if ctx.Diag.HasErrors() {
		return nil, ctx.Diag.Combined()
	}

	ctx.Ehdr.CopyBuf(ctx)
	ctx.Phdr.CopyBuf(ctx)
	for _, c := range ctx.Chunks {
		c.CopyBuf(ctx)
	}
	ctx.Shdr.CopyBuf(ctx)

	if ctx.Args.OFormat == "binary" {
		return extractBinary(ctx), nil
	}
	return ctx.Buf, nil
}

// extractBinary implements --oformat binary: strip every ELF header and
// emit only the bytes of the SHF_ALLOC, non-SHT_NOBITS output chunks,
// each placed at its address relative to the lowest such chunk's address,
// with any gap between chunks zero-filled -- the same contract GNU objcopy's
// -O binary uses, applied here to ctx.Chunks instead of a libbfd
// section list.
func extractBinary(ctx *Context) []byte {
	var lowest uint64 = 1<<63 - 1
	var highest uint64
	for _, c := range ctx.Chunks {
		shdr := c.GetShdr()
		if shdr.Flags&0x2 == 0 || shdr.Type == uint32(shtNobits) || shdr.Size == 0 {
			continue
		}
		if shdr.Addr < lowest {
			lowest = shdr.Addr
		}
		if end := shdr.Addr + shdr.Size; end > highest {
			highest = end
		}
	}
	if highest <= lowest {
		return nil
	}
	out := make([]byte, highest-lowest)
	for _, c := range ctx.Chunks {
		shdr := c.GetShdr()
		if shdr.Flags&0x2 == 0 || shdr.Type == uint32(shtNobits) || shdr.Size == 0 {
			continue
		}
		src := ctx.Buf[shdr.Offset : shdr.Offset+shdr.Size]
		copy(out[shdr.Addr-lowest:], src)
	}
	return out
}

func applyDefsyms(ctx *Context) {
	for name, value := range ctx.Args.Defsyms {
		sym := ctx.Symbols.GetOrInsert(name)
		sym.Body = DefinedAbsolute{Value: value}
	}
}

// applyWraps implements --wrap=symbol (original_source Driver behavior):
// symbol's body is replaced by __wrap_symbol's, so every reference to
// symbol (not only call sites) resolves to __wrap_symbol, and the original
// definition becomes reachable as __real_symbol.
func applyWraps(ctx *Context) {
	for name := range ctx.Args.Wraps {
		wrapSym := ctx.Symbols.Lookup("__wrap_" + name)
		origSym := ctx.Symbols.Lookup(name)
		if wrapSym == nil || origSym == nil {
			continue
		}
		realSym := ctx.Symbols.GetOrInsert("__real_" + name)
		realSym.Body = origSym.Body
		origSym.Body = wrapSym.Body
	}
}

// rewriteFragmentSymbols points any DefinedRegular symbol whose Section
// was split into a MergeableSection at a fragment instead. New relative
// to the teacher, which never merges mergeable sections into fragments.
func rewriteFragmentSymbols(ctx *Context) {
	ctx.Symbols.Range(func(sym *Symbol) {
		dr, ok := sym.Body.(DefinedRegular)
		if !ok || dr.Section == nil {
			return
		}
		obj := dr.Section.File
		for i, isec := range obj.Sections {
			if isec != dr.Section {
				continue
			}
			msec := obj.MergeableSections[i]
			if msec == nil {
				return
			}
			frag, fragOff := msec.GetFragment(dr.Value)
			if frag == nil {
				return
			}
			sym.Body = DefinedSynthetic{Resolver: func() uint64 { return frag.GetAddr() + fragOff }, Weak: dr.Weak}
			return
		}
	})
}

// applyAllRelocations walks every live InputSection's References and
// writes the fixed-up bytes into ctx.Buf, the final step of the apply
// path spec.md §4.1 describes.
func applyAllRelocations(ctx *Context) {
	for _, obj := range ctx.Objs {
		target := TargetFor(obj.Machine)
		if target == nil {
			continue
		}
		for _, isec := range obj.Sections {
			if isec == nil || !isec.Live || isec.OutputSection == nil {
				continue
			}
			buf := ctx.Buf[isec.OutputSection.Shdr.Offset+isec.OutputOffset:]
			for i := range isec.References {
				ref := &isec.References[i]
				footprint := target.FootprintBytes(ref.Kind)
				if footprint == 0 || int(ref.Offset)+footprint > len(buf) {
					continue
				}
				actx := ApplyContext{
					FixupVA:            isec.Addr + ref.Offset,
					TargetVA:           ref.Sym.GetAddr(),
					Addend:             ref.Addend,
					InAtomVA:           isec.Addr,
					Final:              !ctx.Args.Relocatable,
					NeedsExternalReloc: target.NeedsExternalReloc(ref.Sym),
				}
				if target.Name() == "arm" {
					actx.TargetIsThumb = isTargetThumb(ref.Sym)
				}
				if err := target.Apply(buf[ref.Offset:ref.Offset+uint64(footprint)], ref, actx); err != nil {
					ctx.Diag.Errorf("%s: %w", isec.Name, err)
				}
			}
		}
	}
}
