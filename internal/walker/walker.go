// Package walker enumerates the data directory and fingerprints the files
// it finds: deterministic, streaming, and filtered to a textual path
// prefix.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fuzzrnet/forage-go/internal/codec"
	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// Entry is one (path, fingerprint) pair yielded by Walk, where path is
// relative to dataDir using forward slashes.
type Entry struct {
	Path string
	FP   codec.FP
}

// Walk enumerates every regular file under dataDir whose slash-separated
// relative path starts with prefix, fingerprinting each with key, and
// returns the entries ordered lexicographically by path so upload order is
// deterministic.
func Walk(dataDir, prefix string, key [32]byte) ([]Entry, error) {
	var paths []string

	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, forageerr.IO)
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, forageerr.IO)
		}
		rel = filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(rel, prefix) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("data dir %s: %w", dataDir, forageerr.NotFound)
		}
		return nil, err
	}

	sort.Strings(paths)

	entries := make([]Entry, 0, len(paths))
	for _, rel := range paths {
		fp, err := codec.Fingerprint(filepath.Join(dataDir, rel), key)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", rel, err)
		}
		entries = append(entries, Entry{Path: rel, FP: fp})
	}
	return entries, nil
}
