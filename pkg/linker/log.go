package linker

import (
	"os"

	"github.com/inconshreveable/log15"
)

// newLogger sets up the structured logger every pass logs progress and
// ICF fold decisions through (spec.md §4.4's "selected"/"removed"-style
// notices, the ambient stack's logging concern). Grounded on
// gagliardetto-codemill's indirect github.com/inconshreveable/log15
// dependency (see DESIGN.md) rather than stdlib log, matching the "never
// fall back to the standard library where the corpus shows an ecosystem
// way" rule.
func newLogger() log15.Logger {
	log := log15.New()
	log.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StreamHandler(os.Stderr, log15.TerminalFormat())))
	return log
}
