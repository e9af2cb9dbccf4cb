package codec

import (
	"fmt"
	"os"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// Extract performs a full verified decode: it streams every leaf from the
// blob at blobPath, checks that the recomputed root matches root, and
// writes exactly bytesRead bytes (the pre-pad plaintext length) to dstPath.
// On any integrity failure the destination file is left in an unspecified
// but bounded state; callers must assume partial content.
func Extract(blobPath, dstPath string, root TR) error {
	src, err := os.Open(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("extract blob %s: %w", blobPath, forageerr.NotFound)
		}
		return fmt.Errorf("extract open %s: %w", blobPath, forageerr.IO)
	}
	defer src.Close()

	bytesRead, numLeaves, leafOffset, err := readHeader(src)
	if err != nil {
		return err
	}

	leafHashes := make([][32]byte, numLeaves)
	for i := int64(0); i < numLeaves; i++ {
		data, err := readLeaf(src, leafOffset, i)
		if err != nil {
			return err
		}
		leafHashes[i] = leafHash(data)
	}
	_, computedRoot := buildTree(leafHashes)
	if computedRoot != [32]byte(root) {
		return fmt.Errorf("extract %s: recomputed root mismatch: %w", blobPath, forageerr.Integrity)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("extract create %s: %w", dstPath, forageerr.IO)
	}
	defer dst.Close()

	var written int64
	for i := int64(0); i < numLeaves && written < bytesRead; i++ {
		data, err := readLeaf(src, leafOffset, i)
		if err != nil {
			return err
		}
		remain := bytesRead - written
		if remain < Slice {
			data = data[:remain]
		}
		if _, err := dst.Write(data); err != nil {
			return fmt.Errorf("extract write %s: %w", dstPath, forageerr.IO)
		}
		written += int64(len(data))
	}
	if written != bytesRead {
		return fmt.Errorf("extract %s: wrote %d bytes, expected %d: %w", dstPath, written, bytesRead, forageerr.Integrity)
	}
	return nil
}
