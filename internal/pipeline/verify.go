package pipeline

import (
	"errors"
	"fmt"

	"github.com/fuzzrnet/forage-go/internal/codec"
	"github.com/fuzzrnet/forage-go/internal/forage"
	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// VerifyReport is the outcome of one spot-check.
type VerifyReport struct {
	Checked  bool // false when there was nothing in the store to check
	Path     string
	FP       string
	SliceIdx uint64
	OK       bool
	Err      error
}

// Verify draws one slice uniformly at random from the entire store and
// checks it against the owning record's root. It reports rather than
// returns an error on a failed check, since an integrity mismatch is an
// expected, actionable outcome rather than a programming fault.
func Verify(app *forage.App) (VerifyReport, error) {
	upper, err := app.Index.GetMaxSlice()
	if err != nil {
		return VerifyReport{}, fmt.Errorf("verify get max slice: %w", err)
	}
	if upper == 0 {
		return VerifyReport{Checked: false}, nil
	}

	rec, localIdx, err := app.Index.GetRandomSliceIndex(upper)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("verify pick slice: %w", err)
	}

	report := VerifyReport{Checked: true, Path: rec.Path, FP: rec.FP, SliceIdx: localIdx}

	root, err := codec.ParseTR(rec.TR)
	if err != nil {
		report.Err = err
		return report, nil
	}

	blobPath := app.Blobs.PathOf(rec.FP)
	proof, err := codec.SliceExtract(blobPath, int64(localIdx))
	if err != nil {
		report.Err = err
		return report, nil
	}

	if err := codec.SliceVerify(root, proof); err != nil {
		report.Err = err
		return report, nil
	}

	report.OK = true
	return report, nil
}

// ErrorKind classifies report.Err the way the CLI's exit-status logic
// wants: callers switch on this instead of unwrapping sentinels directly.
func (r VerifyReport) ErrorKind() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, forageerr.Integrity):
		return "integrity"
	case errors.Is(r.Err, forageerr.NotFound):
		return "not_found"
	case errors.Is(r.Err, forageerr.IO):
		return "io"
	default:
		return "unknown"
	}
}
