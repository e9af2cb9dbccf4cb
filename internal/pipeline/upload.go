// Package pipeline implements the three operations that sit on top of the
// walker, codec, blob store, and index: upload (ingest), download
// (reconstruct), and verify (spot-check).
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fuzzrnet/forage-go/internal/codec"
	"github.com/fuzzrnet/forage-go/internal/forage"
	"github.com/fuzzrnet/forage-go/internal/index"
	"github.com/fuzzrnet/forage-go/internal/walker"
)

// UploadStats are the observable metrics an upload run reports back to the
// caller: counts, byte totals, elapsed time, and write amplification.
type UploadStats struct {
	FilesUploaded int
	FilesSkipped  int // already in SeenSet
	BytesRead     int64
	BytesWritten  int64
	Elapsed       time.Duration
}

// WriteAmplification is (bytes_written/bytes_read - 1), 0 if nothing was
// read.
func (s UploadStats) WriteAmplification() float64 {
	if s.BytesRead == 0 {
		return 0
	}
	return float64(s.BytesWritten)/float64(s.BytesRead) - 1
}

// Upload walks app.Paths.DataDir for files under prefix and ingests each
// one not already present in the SeenSet: encoding it into the blob store,
// recording it in the index under its freshly allocated slice range, and
// marking any prior revision at the same path as dropped.
func Upload(app *forage.App, prefix string) (UploadStats, error) {
	start := time.Now()
	var stats UploadStats

	entries, err := walker.Walk(app.Paths.DataDir, prefix, app.Secret)
	if err != nil {
		return stats, fmt.Errorf("upload walk: %w", err)
	}

	for _, entry := range entries {
		fpHex := entry.FP.String()

		seen, err := app.Index.ContainsSeen(fpHex)
		if err != nil {
			return stats, fmt.Errorf("upload check seen %s: %w", entry.Path, err)
		}
		if seen {
			stats.FilesSkipped++
			continue
		}
		if err := app.Index.InsertSeen(fpHex); err != nil {
			return stats, fmt.Errorf("upload mark seen %s: %w", entry.Path, err)
		}

		srcPath := filepath.Join(app.Paths.DataDir, entry.Path)
		blobPath := app.Blobs.PathOf(fpHex)

		res, err := codec.Encode(srcPath, blobPath)
		if err != nil {
			return stats, fmt.Errorf("upload encode %s: %w", entry.Path, err)
		}

		parentFP, err := app.Index.UpsertPath(entry.Path, fpHex)
		if err != nil {
			return stats, fmt.Errorf("upload upsert path %s: %w", entry.Path, err)
		}

		mime, err := codec.SniffMIME(srcPath)
		if err != nil {
			return stats, fmt.Errorf("upload sniff mime %s: %w", entry.Path, err)
		}

		info, err := os.Stat(srcPath)
		if err != nil {
			return stats, fmt.Errorf("upload stat %s: %w", entry.Path, err)
		}
		nowMS := time.Now().UnixMilli()
		createdMS, modifiedMS, accessedMS := fileTimesMS(info, nowMS)

		numLeaves := codec.NumLeaves(res.BytesRead)

		rec := index.FileRecord{
			FP:           fpHex,
			TR:           res.Root.String(),
			BytesRead:    res.BytesRead,
			BytesWritten: res.BytesWritten,
			Path:         entry.Path,
			ParentRev:    parentFP,
			MimeType:     mime,
			CreatedMS:    createdMS,
			ModifiedMS:   modifiedMS,
			AccessedMS:   accessedMS,
		}

		if _, err := app.Index.AllocateAndInsert(rec, uint64(numLeaves)); err != nil {
			return stats, fmt.Errorf("upload insert record %s: %w", entry.Path, err)
		}

		if parentFP != "" {
			if err := app.Index.MarkDropped(parentFP); err != nil {
				return stats, fmt.Errorf("upload mark parent dropped %s: %w", entry.Path, err)
			}
		}

		stats.FilesUploaded++
		stats.BytesRead += res.BytesRead
		stats.BytesWritten += res.BytesWritten
	}

	if err := app.Index.Flush(); err != nil {
		return stats, fmt.Errorf("upload flush: %w", err)
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}
