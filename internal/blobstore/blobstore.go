// Package blobstore implements the flat, content-addressed directory that
// holds encoded artifacts: one file per fingerprint, no fan-out, no
// listing, no garbage collection.
package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// Store is a single storage-path directory addressed by FP hex.
type Store struct {
	root string
}

// Open creates the root directory if needed and returns a handle to it.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("blobstore mkdir %s: %w", root, forageerr.IO)
	}
	return &Store{root: root}, nil
}

// PathOf returns the absolute path for the blob named fpHex. Used by the
// verify pipeline's prover side, which reads the blob directly.
func (s *Store) PathOf(fpHex string) string {
	return filepath.Join(s.root, fpHex)
}

// Exists reports whether a blob for fpHex has been written.
func (s *Store) Exists(fpHex string) (bool, error) {
	_, err := os.Stat(s.PathOf(fpHex))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("blobstore stat %s: %w", fpHex, forageerr.IO)
}

// Create truncates (or creates) the blob for fpHex and returns it for the
// caller to write into directly. The caller owns closing it.
func (s *Store) Create(fpHex string) (*os.File, error) {
	f, err := os.Create(s.PathOf(fpHex))
	if err != nil {
		return nil, fmt.Errorf("blobstore create %s: %w", fpHex, forageerr.IO)
	}
	return f, nil
}

// Open returns a readable handle to the blob for fpHex.
func (s *Store) Open(fpHex string) (*os.File, error) {
	f, err := os.Open(s.PathOf(fpHex))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", fpHex, forageerr.NotFound)
		}
		return nil, fmt.Errorf("blobstore open %s: %w", fpHex, forageerr.IO)
	}
	return f, nil
}

// Put writes data as the entire content of the blob for fpHex, via a
// temp-file-then-rename so a reader never observes a partial write.
func (s *Store) Put(fpHex string, r io.Reader) error {
	path := s.PathOf(fpHex)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("blobstore create temp %s: %w", fpHex, forageerr.IO)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("blobstore write %s: %w", fpHex, forageerr.IO)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("blobstore close %s: %w", fpHex, forageerr.IO)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("blobstore rename %s: %w", fpHex, forageerr.IO)
	}
	return nil
}

// Get reads the entire blob for fpHex.
func (s *Store) Get(fpHex string) ([]byte, error) {
	f, err := s.Open(fpHex)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("blobstore read %s: %w", fpHex, forageerr.IO)
	}
	return data, nil
}
