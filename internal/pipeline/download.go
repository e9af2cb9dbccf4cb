package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fuzzrnet/forage-go/internal/codec"
	"github.com/fuzzrnet/forage-go/internal/forage"
	"github.com/fuzzrnet/forage-go/internal/forageerr"
	"github.com/fuzzrnet/forage-go/internal/index"
	"github.com/fuzzrnet/forage-go/internal/walker"
)

// DownloadFailure records one record that couldn't be reconstructed,
// without aborting the rest of the work set.
type DownloadFailure struct {
	Path string
	Err  error
}

// ErrorKind classifies f.Err the way VerifyReport.ErrorKind does, for
// consistent CLI reporting across the two commands.
func (f DownloadFailure) ErrorKind() string {
	switch {
	case f.Err == nil:
		return ""
	case errors.Is(f.Err, forageerr.Integrity):
		return "integrity"
	case errors.Is(f.Err, forageerr.NotFound):
		return "not_found"
	case errors.Is(f.Err, forageerr.IO):
		return "io"
	default:
		return "unknown"
	}
}

// DownloadStats reports what a download run actually pulled.
type DownloadStats struct {
	FilesFetched int
	BytesWritten int64
	Elapsed      time.Duration
	Failures     []DownloadFailure
}

// Download computes the work set, records under prefix not already present
// locally by content, and extracts each one from the blob store into the
// data directory, recreating whatever path the record names. A single
// file's Integrity or NotFound failure is recorded in stats.Failures and
// does not stop the remaining files in the work set from being fetched.
func Download(app *forage.App, prefix string) (DownloadStats, error) {
	start := time.Now()
	var stats DownloadStats

	local, err := walker.Walk(app.Paths.DataDir, "", app.Secret)
	if err != nil {
		return stats, fmt.Errorf("download walk local: %w", err)
	}
	haveLocally := make(map[string]bool, len(local))
	for _, e := range local {
		haveLocally[e.FP.String()] = true
	}

	records, err := app.Index.GetFiles(nil, haveLocally)
	if err != nil {
		return stats, fmt.Errorf("download list files: %w", err)
	}

	for _, rec := range records {
		if prefix != "" && !strings.HasPrefix(rec.Path, prefix) {
			continue
		}

		if err := fetchOne(app, rec); err != nil {
			stats.Failures = append(stats.Failures, DownloadFailure{Path: rec.Path, Err: err})
			continue
		}

		stats.FilesFetched++
		stats.BytesWritten += rec.BytesRead
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func fetchOne(app *forage.App, rec index.FileRecord) error {
	root, err := codec.ParseTR(rec.TR)
	if err != nil {
		return fmt.Errorf("parse root %s: %w", rec.Path, err)
	}

	dstPath := filepath.Join(app.Paths.DataDir, filepath.FromSlash(rec.Path))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", rec.Path, err)
	}

	blobPath := app.Blobs.PathOf(rec.FP)
	if err := codec.Extract(blobPath, dstPath, root); err != nil {
		return fmt.Errorf("extract %s: %w", rec.Path, err)
	}
	return nil
}
