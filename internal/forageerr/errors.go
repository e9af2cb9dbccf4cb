// Package forageerr defines the error taxonomy shared by every Forage
// component so callers can branch on failure kind with errors.Is instead of
// string matching.
package forageerr

import "errors"

// Sentinel kinds. Wrap these with fmt.Errorf("...: %w", Kind) at the point
// a failure is first classified; errors.Is unwraps back to the sentinel.
var (
	// NotFound means a path, FP, or record the caller asked for does not
	// exist. Download reports the miss; verify treats it as fatal.
	NotFound = errors.New("forage: not found")

	// Integrity means a slice proof or full decode failed its hash check.
	// Verify reports failure; download aborts the one file and continues.
	Integrity = errors.New("forage: integrity check failed")

	// IO means a read/write/create call against the filesystem failed for
	// reasons other than absence. Each pipeline fails fast on the
	// offending file but the process survives.
	IO = errors.New("forage: io error")

	// Index means a duplicate FP on insert or an invariant violation was
	// observed in the metadata index. Bug-class, fatal to the operation.
	Index = errors.New("forage: index error")

	// Config means the config file was malformed. Fatal at startup.
	Config = errors.New("forage: config error")

	// NotImplemented marks CLI stub commands.
	NotImplemented = errors.New("forage: not yet implemented")
)
