package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/oss-linkers/rvld/pkg/linker"
	"github.com/oss-linkers/rvld/pkg/utils"
)

// main is a thin driver: parse argv into a linker.ContextArgs plus the
// input-graph node list, then hand everything to linker.Link. Grounded
// on the teacher's rvld.go, expanded from its one-hardcoded-object-file
// smoke test into a real command line, hand-parsed the way a systems
// linker driver conventionally is rather than through a flags library --
// no CLI-parsing package appears anywhere in the corpus (see DESIGN.md).
func main() {
	args := linker.ContextArgs{
		Output:    "a.out",
		Emulation: linker.MachineTypeX86_64,
		Threads:   4,
		Wraps:     map[string]bool{},
		Defsyms:   map[string]uint64{},
	}

	var nodes []linker.Node
	var groupStack []*linker.GroupNode
	appendNode := func(n linker.Node) {
		if len(groupStack) > 0 {
			groupStack[len(groupStack)-1].AddFile(n)
		} else {
			nodes = append(nodes, n)
		}
	}

	argv := os.Args[1:]
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		switch {
		case a == "-o" || a == "--output":
			i++
			args.Output = argv[i]
		case strings.HasPrefix(a, "-o"):
			args.Output = a[2:]
		case a == "-L":
			i++
			args.LibraryPaths = append(args.LibraryPaths, argv[i])
		case strings.HasPrefix(a, "-L"):
			args.LibraryPaths = append(args.LibraryPaths, a[2:])
		case a == "-l":
			i++
			appendLibrary(&args, appendNode, argv[i])
		case strings.HasPrefix(a, "-l"):
			appendLibrary(&args, appendNode, a[2:])
		case a == "-r" || a == "--relocatable":
			args.Relocatable = true
		case a == "--icf":
			args.ICF = true
		case a == "--gc-sections":
			args.GCSections = true
		case a == "-shared" || a == "--shared":
			args.Shared = true
		case a == "-soname" || a == "-h":
			i++
			args.SOName = argv[i]
		case strings.HasPrefix(a, "-soname="):
			args.SOName = strings.TrimPrefix(a, "-soname=")
		case a == "-rpath":
			i++
			args.RPath = argv[i]
		case strings.HasPrefix(a, "-rpath="):
			args.RPath = strings.TrimPrefix(a, "-rpath=")
		case a == "--oformat":
			i++
			args.OFormat = argv[i]
		case strings.HasPrefix(a, "--oformat="):
			args.OFormat = strings.TrimPrefix(a, "--oformat=")
		case a == "--dynamic-linker":
			i++
			args.DynamicLinker = argv[i]
		case strings.HasPrefix(a, "--dynamic-linker="):
			args.DynamicLinker = strings.TrimPrefix(a, "--dynamic-linker=")
		case a == "-e" || a == "--entry":
			i++
			args.Entry = argv[i]
		case strings.HasPrefix(a, "-e"):
			args.Entry = a[2:]
		case strings.HasPrefix(a, "-init="):
			args.Init = strings.TrimPrefix(a, "-init=")
		case strings.HasPrefix(a, "-fini="):
			args.Fini = strings.TrimPrefix(a, "-fini=")
		case a == "--nmagic":
			args.Nmagic = true
		case a == "--omagic":
			args.Omagic = true
		case a == "--start-group":
			groupStack = append(groupStack, &linker.GroupNode{})
		case a == "--end-group":
			n := len(groupStack) - 1
			g := groupStack[n]
			groupStack = groupStack[:n]
			if len(groupStack) > 0 {
				groupStack[len(groupStack)-1].AddFile(g)
			} else {
				nodes = append(nodes, g)
			}
		case strings.HasPrefix(a, "--wrap="):
			args.Wraps[strings.TrimPrefix(a, "--wrap=")] = true
		case strings.HasPrefix(a, "--defsym="):
			parseDefsym(&args, strings.TrimPrefix(a, "--defsym="))
		case strings.HasPrefix(a, "-m"):
			args.Emulation = emulationFromFlag(a[2:])
		case strings.HasPrefix(a, "-"):
			// unrecognized flag: accepted and ignored, matching a real
			// linker driver's tolerance for flags it doesn't implement.
		default:
			appendNode(linker.NewFileNode(linker.MustNewFile(a)))
		}
	}

	ctx := linker.NewContext(args)
	out, err := linker.Link(ctx, nodes)
	if err != nil {
		utils.Fatal(err.Error())
	}

	utils.MustNo(os.WriteFile(args.Output, out, 0755))
}

func appendLibrary(args *linker.ContextArgs, appendNode func(linker.Node), name string) {
	ctx := linker.NewContext(*args)
	file := linker.FindLibrary(ctx, name)
	appendNode(linker.NewFileNode(file))
}

func parseDefsym(args *linker.ContextArgs, expr string) {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return
	}
	v, err := strconv.ParseUint(parts[1], 0, 64)
	if err != nil {
		return
	}
	args.Defsyms[parts[0]] = v
}

func emulationFromFlag(name string) linker.MachineType {
	switch name {
	case "elf_x86_64":
		return linker.MachineTypeX86_64
	case "armelf_linux_eabi":
		return linker.MachineTypeARM
	case "aarch64linux":
		return linker.MachineTypeAArch64
	case "elf64lriscv":
		return linker.MachineTypeRISCV64
	case "elf_i386":
		return linker.MachineTypeI386
	case "elf64ppc":
		return linker.MachineTypePPC64
	case "elf32_hexagon":
		return linker.MachineTypeHexagon
	default:
		return linker.MachineTypeX86_64
	}
}
