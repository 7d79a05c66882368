package linker

import (
	"fmt"
	"sync"

	"golang.org/x/xerrors"
)

// Diagnostics collects link-time errors the way a real linker accumulates
// every "undefined reference to" it finds before giving up, rather than
// aborting on the first one. Wrapped with golang.org/x/xerrors so each
// entry can carry a %w-chained cause (an underlying parse error, say)
// without losing it to a flattened string -- grounded on
// gagliardetto-codemill's vendored x/xerrors dependency (see DESIGN.md).
type Diagnostics struct {
	mu     sync.Mutex
	errs   []error
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

func (d *Diagnostics) Errorf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, xerrors.Errorf(format, args...))
}

func (d *Diagnostics) HasErrors() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.errs) > 0
}

func (d *Diagnostics) Errors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]error, len(d.errs))
	copy(out, d.errs)
	return out
}

// Combined folds every collected error into one, the way a linker's final
// exit-status message summarizes however many undefined symbols it found.
func (d *Diagnostics) Combined() error {
	errs := d.Errors()
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return xerrors.Errorf("%d link errors, first: %w", len(errs), errs[0])
}

func undefinedSymbolError(name string, from *ObjectFile) error {
	if from == nil {
		return fmt.Errorf("undefined symbol: %s", name)
	}
	return fmt.Errorf("undefined symbol: %s, referenced from %s", name, from.File.DisplayName())
}
