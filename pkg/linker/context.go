package linker

import "github.com/inconshreveable/log15"

// ContextArgs mirrors the CLI-observable flags spec.md §6 names, expanded
// from the teacher's single-field ContextArgs (Output, Emulation) with the
// group/ICF/relocatable/wrap/defsym knobs the rest of SPEC_FULL.md's
// components consume.
type ContextArgs struct {
	Output    string
	Emulation MachineType

	LibraryPaths []string

	// Relocatable selects the -r apply path (spec.md §4.1): when true
	// applyAllRelocations passes Final=false, so a reference that needs an
	// external relocation encodes only its addend instead of TargetVA.
	// Layout still assigns addresses exactly as it does for a final link.
	Relocatable bool

	// ICF enables the double-ID Identical Code Folding pass (spec.md §4.4).
	ICF bool

	GCSections bool

	// Wraps implements --wrap=symbol: calls to symbol resolve to
	// __wrap_symbol instead, and the original symbol becomes reachable as
	// __real_symbol (original_source's Driver --wrap handling).
	Wraps map[string]bool

	// Defsyms implements --defsym=name=value: synthesizes a DefinedAbsolute
	// symbol named name before resolution runs.
	Defsyms map[string]uint64

	// Shared selects -shared: the dynamic symbol table gains an entry for
	// every globally-visible, non-weak defined symbol (an export), not just the
	// Shared-body imports every link mode needs entries for.
	Shared bool
	SOName string
	RPath  string
	Needed []string

	// OFormat implements --oformat: "elf" (default) emits a normal ELF
	// image, "binary" strips every header and emits only the bytes of
	// the SHF_ALLOC output sections, each placed at its address relative
	// to the lowest allocated address, with gaps zero-filled -- the same
	// contract as GNU objcopy -O binary.
	OFormat string

	// DynamicLinker implements --dynamic-linker: the PT_INTERP path
	// recorded for a non-static, non-PIE executable.
	DynamicLinker string

	Entry string
	Init  string
	Fini  string

	// Nmagic (-n) and Omagic (-N) both make SetOsecOffsets ignore each
	// chunk's own alignment and pack chunks byte-adjacent; Omagic also
	// marks every PT_LOAD segment writable. SetOsecOffsets never
	// page-aligns chunks in either mode.
	Nmagic bool
	Omagic bool

	Threads int
}

// Context is the threaded-through link session state spec.md §1 calls
// for instead of global mutable config, grounded on the teacher's
// Context/NewContext, expanded with the Symbols table, Diagnostics sink,
// and Log field the rest of SPEC_FULL.md's components need.
type Context struct {
	Args ContextArgs

	Symbols *SymbolTable

	Diag *Diagnostics
	Log  log15.Logger

	Objs           []*ObjectFile
	SharedObjects  []*SharedFile
	Chunks         []Chunker
	OutputSections []*OutputSection

	MergedSections []*MergedSection

	Buf []byte

	Ehdr *OutputEhdr
	Shdr *OutputShdr
	Phdr *OutputPhdr

	// Interp and Dynamic, when non-nil, get a PT_INTERP / PT_DYNAMIC
	// segment from CreatePhdr once their Chunker siblings have been laid
	// out by SetOsecOffsets.
	Interp  *InterpSection
	Dynamic *DynamicSection
}

func NewContext(args ContextArgs) *Context {
	return &Context{
		Args:    args,
		Symbols: NewSymbolTable(),
		Diag:    NewDiagnostics(),
		Log:     newLogger(),
	}
}
