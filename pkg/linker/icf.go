package linker

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"sort"

	"golang.org/x/sync/errgroup"
)

// runICF implements Identical Code Folding using the double-ID
// partition-refinement scheme spec.md §4.4 requires in place of the
// single-ID, stable_partition-based version original_source/ELF/ICF.cpp
// carries (that file's comments call the single-ID form historical).
// Two class-id cells per section let a round's writers
// (icf.go's refineRound) assign freshly split class ids while every
// reader in the *same* round still observes the previous round's ids --
// icfClassID/setICFClassID's cnt%2 discipline is exactly what makes a
// round safe to split across goroutines without a round-local mutex.
func runICF(ctx *Context) {
	if !ctx.Args.ICF {
		return
	}
	sections := eligibleSections(ctx)
	if len(sections) < 2 {
		return
	}

	cnt := 0
	assignInitialClasses(sections, cnt)
	cnt++

	refineConstantRound(sections, cnt)
	cnt++

	for {
		split := refineRound(ctx, sections, cnt)
		cnt++
		if !split {
			break
		}
	}

	mergeClasses(ctx, sections, cnt)
}

// isICFEligible mirrors ICF.cpp's isEligible: live, allocated, not
// writable, and not one of the sections a real linker never folds
// because other code depends on their distinct identity.
func isICFEligible(isec *InputSection) bool {
	const shfAlloc = 0x2
	const shfWrite = 0x1
	if !isec.Live || isec.ShFlags&shfAlloc == 0 || isec.ShFlags&shfWrite != 0 {
		return false
	}
	switch isec.Name {
	case ".init", ".fini":
		return false
	}
	return true
}

func eligibleSections(ctx *Context) []*InputSection {
	var out []*InputSection
	for _, obj := range ctx.Objs {
		for _, isec := range obj.Sections {
			if isec != nil && isICFEligible(isec) {
				isec.icfEligible = true
				out = append(out, isec)
			}
		}
	}
	return out
}

// sectionHash seeds the initial equivalence class from (flags, size,
// relocation count) alone, exactly as ICF.cpp's getHash documents: "the
// information about relocation targets is not included in the hash
// value." Neither is the content itself -- both are deliberately left for
// the constant/variable refinement passes that follow to discover.
// Hashing content or targets here would split sections into different
// initial groups before those passes ever run: two mutually-recursive
// functions calling two differently-named callees would seed into
// different groups and never be compared, breaking folding across any
// cyclic reference graph.
func sectionHash(isec *InputSection) uint32 {
	h := fnv.New32a()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], isec.ShFlags)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(isec.Content)))
	h.Write(buf[:])
	var nbuf [8]byte
	binary.LittleEndian.PutUint64(nbuf[:], uint64(len(isec.References)))
	h.Write(nbuf[:])
	return h.Sum32()
}

func assignInitialClasses(sections []*InputSection, cnt int) {
	type keyed struct {
		isec *InputSection
		hash uint32
	}
	keys := make([]keyed, len(sections))
	for i, isec := range sections {
		keys[i] = keyed{isec, sectionHash(isec)}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].hash < keys[j].hash })

	var id uint32
	for i, k := range keys {
		if i > 0 && k.hash != keys[i-1].hash {
			id++
		}
		k.isec.setICFClassID(cnt, id)
	}
}

// refineConstantRound runs ICF.cpp's segregate(V, equalsConstant) step:
// the one pass that is allowed to look at content bytes and a
// reference's own (offset, kind, addend), but never a reference's
// target. Sections whose layout differs this way can never fold
// regardless of what their references eventually resolve to, so doing
// this once up front keeps the variable-equality rounds that follow from
// having to re-check it every time.
func refineConstantRound(sections []*InputSection, cnt int) {
	groups := groupByClass(sections, cnt)
	var nextID uint32
	for _, group := range groups {
		for _, sub := range splitByConstantEquality(group) {
			id := nextID
			nextID++
			for _, isec := range sub {
				isec.setICFClassID(cnt, id)
			}
		}
	}
}

// splitByConstantEquality partitions group by exact content bytes plus
// each reference's (offset, kind, addend) -- never a reference's target,
// which is exactly the variable half equalsVariable/splitByVariableEquality
// handles once class ids exist to compare targets against.
func splitByConstantEquality(group []*InputSection) [][]*InputSection {
	if len(group) < 2 {
		return [][]*InputSection{group}
	}
	sig := func(isec *InputSection) string {
		b := append([]byte{}, isec.Content...)
		for _, ref := range isec.References {
			b = binary.LittleEndian.AppendUint64(b, ref.Offset)
			b = binary.LittleEndian.AppendUint32(b, ref.Kind)
			b = binary.LittleEndian.AppendUint64(b, uint64(ref.Addend))
		}
		return string(b)
	}

	type keyed struct {
		isec *InputSection
		sig  string
	}
	keys := make([]keyed, len(group))
	for i, isec := range group {
		keys[i] = keyed{isec, sig(isec)}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].sig < keys[j].sig })

	var out [][]*InputSection
	for i := 0; i < len(keys); {
		j := i + 1
		for j < len(keys) && keys[j].sig == keys[i].sig {
			j++
		}
		g := make([]*InputSection, j-i)
		for k := i; k < j; k++ {
			g[k-i] = keys[k].isec
		}
		out = append(out, g)
		i = j
	}
	return out
}

// refineRound runs one variable-equality refinement pass (constant
// equality is settled once, before the first round), grounded
// on ICF.cpp's segregate/forEachGroup/relocationEq, but splitting the
// variable-equality comparison across ctx.Args.Threads goroutines over
// disjoint groups via golang.org/x/sync/errgroup -- groups are disjoint
// by construction (each is one equivalence class from the previous
// round), so the only shared state is the single mutex-guarded counter
// handing out fresh class ids.
func refineRound(ctx *Context, sections []*InputSection, cnt int) bool {
	groups := groupByClass(sections, cnt)

	var nextID uint32
	mu := errgroupMutex{ch: make(chan struct{}, 1)}
	split := false

	eg, _ := errgroup.WithContext(context.Background())
	workers := ctx.Args.Threads
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	for _, group := range groups {
		group := group
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()
			subgroups := splitByVariableEquality(group, cnt)
			mu.Lock()
			if len(subgroups) > 1 {
				split = true
			}
			mu.Unlock()
			for _, sub := range subgroups {
				mu.Lock()
				id := nextID
				nextID++
				mu.Unlock()
				for _, isec := range sub {
					isec.setICFClassID(cnt, id)
				}
			}
			return nil
		})
	}
	_ = eg.Wait()
	return split
}

// groupByClass partitions sections into contiguous runs sharing the same
// class id, via a stable sort on (class-id, -alignment) rather than a map --
// map iteration order is randomized per run, which would make group order
// and representative selection nondeterministic across otherwise-identical
// links.
func groupByClass(sections []*InputSection, cnt int) [][]*InputSection {
	type keyed struct {
		isec *InputSection
		id   uint32
	}
	keys := make([]keyed, len(sections))
	for i, isec := range sections {
		keys[i] = keyed{isec, isec.icfClassID(cnt)}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].isec.ShAlign > keys[j].isec.ShAlign
	})

	var groups [][]*InputSection
	for i := 0; i < len(keys); {
		j := i + 1
		for j < len(keys) && keys[j].id == keys[i].id {
			j++
		}
		g := make([]*InputSection, j-i)
		for k := i; k < j; k++ {
			g[k-i] = keys[k].isec
		}
		groups = append(groups, g)
		i = j
	}
	return groups
}

// splitByVariableEquality partitions group by whether every Reference's
// target resolves, under the previous round's class ids, to the same
// sequence of (offset, kind, class-id, addend) tuples -- ICF.cpp's
// equalsVariable generalized over an arbitrary reference count instead
// of a fixed pair.
func splitByVariableEquality(group []*InputSection, cnt int) [][]*InputSection {
	if len(group) < 2 {
		return [][]*InputSection{group}
	}
	sig := func(isec *InputSection) string {
		var b []byte
		for _, ref := range isec.References {
			b = binary.LittleEndian.AppendUint64(b, ref.Offset)
			b = binary.LittleEndian.AppendUint32(b, ref.Kind)
			b = binary.LittleEndian.AppendUint64(b, uint64(ref.Addend))
			var target *InputSection
			if ref.Sym != nil {
				target = ref.Sym.referencedSection()
			}
			switch {
			case target != nil && target.icfEligible:
				var idBuf [4]byte
				binary.LittleEndian.PutUint32(idBuf[:], target.icfClassID(cnt))
				b = append(b, 'c')
				b = append(b, idBuf[:]...)
			case ref.Sym != nil:
				// ICF.cpp's variableEq short-circuits on "&SA == &SB" before
				// ever falling back to the DefinedRegular/GroupId comparison
				// above -- there is no class id to compare for a body with no
				// section (Undefined, Shared, DefinedAbsolute, DefinedCommon),
				// so two references are equal here iff they name the same
				// Symbol. spec.md §3 guarantees one Symbol slot per name, so
				// comparing names is comparing identity.
				b = append(b, 's')
				b = append(b, []byte(ref.Sym.Name)...)
				b = append(b, 0)
			default:
				b = append(b, 'n')
			}
		}
		return string(b)
	}

	type keyed struct {
		isec *InputSection
		sig  string
	}
	keys := make([]keyed, len(group))
	for i, isec := range group {
		keys[i] = keyed{isec, sig(isec)}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].sig < keys[j].sig })

	var out [][]*InputSection
	for i := 0; i < len(keys); {
		j := i + 1
		for j < len(keys) && keys[j].sig == keys[i].sig {
			j++
		}
		g := make([]*InputSection, j-i)
		for k := i; k < j; k++ {
			g[k-i] = keys[k].isec
		}
		out = append(out, g)
		i = j
	}
	return out
}

func (s *Symbol) referencedSection() *InputSection {
	if dr, ok := s.Body.(DefinedRegular); ok {
		return dr.Section
	}
	return nil
}

// mergeClasses replaces every non-representative member of a final class
// of size > 1 with the class's representative -- the member with the
// strictest alignment after the stable sort, so folding never under-aligns
// a caller that needed the stricter original -- implementing ICF.cpp's
// Head->replace(S) step. Logs one "selected"/"removed" pair per fold the
// way ICF.cpp's driver reports its decisions to stderr.
func mergeClasses(ctx *Context, sections []*InputSection, cnt int) {
	groups := groupByClass(sections, cnt)
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].ShAlign != group[j].ShAlign {
				return group[i].ShAlign > group[j].ShAlign
			}
			return group[i].File.File.Name+group[i].Name < group[j].File.File.Name+group[j].Name
		})
		rep := group[0]
		ctx.Log.Info("icf selected", "section", rep.Name, "file", rep.File.File.Name)
		for _, isec := range group[1:] {
			isec.Repr = rep
			isec.Live = false
			ctx.Log.Info("icf removed", "section", isec.Name, "file", isec.File.File.Name, "folded-into", rep.Name)
		}
	}
}

// errgroupMutex is a tiny mutex kept local to this file so the single
// shared counter in refineRound doesn't need a package-level lock whose
// scope would outlive one ICF run.
type errgroupMutex struct{ ch chan struct{} }

func (m *errgroupMutex) Lock() { m.ch <- struct{}{} }

func (m *errgroupMutex) Unlock() { <-m.ch }
