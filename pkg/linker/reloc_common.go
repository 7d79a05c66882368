package linker

import "fmt"

// unsupportedKind is the shared "this Target has no Apply case for this
// kind" error every per-architecture file raises from its default switch
// case, so the message format stays consistent across architectures.
func unsupportedKind(t Target, kind uint32) error {
	return fmt.Errorf("%s: unsupported relocation kind %d", t.Name(), kind)
}
