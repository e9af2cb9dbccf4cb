// Package codec implements the Forage per-file encoding: a keyed content
// fingerprint, a verified-streaming encode/decode pair backed by a BLAKE3
// Merkle tree over the padded plaintext, and slice-granular inclusion
// proofs that let a verifier spot-check a remote blob without the prover
// ever seeing the query in advance.
//
// Tree shape follows the split-point construction used for RFC6962-style
// Merkle trees (largest power of two below n, recursed): the left subtree
// always holds a power-of-two count of leaves, which makes both proof
// construction and verification a simple recursive walk with no rebalancing.
// Leaf and internal node hashes are domain separated (0x00 / 0x01 prefix),
// the same convention the accumulator in a Merkle mountain range uses to
// keep leaf hashes from colliding with internal hashes of the same bytes.
package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// Slice is the fixed window size, in bytes, that every proof addresses.
const Slice = 1024

// fingerprintBuf is the streaming buffer size used when computing a keyed
// file fingerprint.
const fingerprintBuf = 64 * 1024

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// magic identifies a Forage encoded blob; version allows the on-disk layout
// to change without silently misreading an older artifact.
var magic = [4]byte{'F', 'R', 'G', '1'}

const headerSize = 4 + 8 + 8 // magic + bytesRead(uint64) + numLeaves(uint64)

// FP is a 32-byte keyed tree-hash fingerprint of a file's plaintext.
type FP [32]byte

// TR is a 32-byte unkeyed Merkle root over the encoded stream.
type TR [32]byte

func (f FP) String() string { return hexString(f[:]) }
func (t TR) String() string { return hexString(t[:]) }

func hexString(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

// ParseTR decodes a hex tree-root string as stored in the index back into a
// TR, for the download pipeline which only ever sees roots as text.
func ParseTR(s string) (TR, error) {
	b, err := hexDecode(s)
	if err != nil {
		return TR{}, err
	}
	var t TR
	copy(t[:], b)
	return t, nil
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string: %w", forageerr.Integrity)
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, ok1 := hexNibble(s[i*2])
		lo, ok2 := hexNibble(s[i*2+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid hex string %q: %w", s, forageerr.Integrity)
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// Fingerprint computes the keyed BLAKE3 tree hash of the plaintext at path,
// streamed in fingerprintBuf-sized reads. Deterministic for a fixed key.
func Fingerprint(path string, key [32]byte) (FP, error) {
	f, err := os.Open(path)
	if err != nil {
		return FP{}, fmt.Errorf("fingerprint open %s: %w", path, forageerr.IO)
	}
	defer f.Close()

	h := blake3.New(32, key[:])
	buf := make([]byte, fingerprintBuf)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return FP{}, fmt.Errorf("fingerprint read %s: %w", path, forageerr.IO)
	}

	var fp FP
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// EncodeResult is what Encode reports back to the upload pipeline.
type EncodeResult struct {
	Root         TR
	BytesRead    int64 // plaintext length, unpadded
	BytesWritten int64 // exact encoded artifact size
}

// SizeFormula returns the exact encoded size for a plaintext of length
// bytesRead, before any data is written. Encode reports this value as
// BytesWritten and checks it against the blob's size once written.
func SizeFormula(bytesRead int64) int64 {
	numLeaves := paddedLeaves(bytesRead)
	internalHashes := int64(0)
	if numLeaves > 1 {
		internalHashes = numLeaves - 1
	}
	return headerSize + internalHashes*32 + numLeaves*Slice
}

// NumLeaves returns the number of SLICE-sized leaves bytesRead pads out to.
// Padding is unconditional: pad = Slice - (bytesRead mod Slice), which is
// always in [1, Slice], so a length that's already slice-aligned still
// gets one full extra zero leaf rather than none. The upload pipeline uses
// this to size the slice range it allocates for a freshly encoded file.
func NumLeaves(bytesRead int64) int64 {
	return bytesRead/Slice + 1
}

func paddedLeaves(bytesRead int64) int64 {
	return NumLeaves(bytesRead)
}

// Encode streams the plaintext at srcPath into a freshly created/truncated
// blob at dstPath, producing a verified-streaming artifact: a header, the
// internal node hash table, then the zero-padded leaf data.
func Encode(srcPath, dstPath string) (EncodeResult, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("encode open %s: %w", srcPath, forageerr.IO)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return EncodeResult{}, fmt.Errorf("encode stat %s: %w", srcPath, forageerr.IO)
	}
	bytesRead := info.Size()
	numLeaves := paddedLeaves(bytesRead)

	dst, err := os.Create(dstPath)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("encode create %s: %w", dstPath, forageerr.IO)
	}
	defer dst.Close()

	w := bufio.NewWriterSize(dst, fingerprintBuf)

	// Reserve header + hash table space with zeros; backfilled once the
	// tree is known.
	internalCount := int64(0)
	if numLeaves > 1 {
		internalCount = numLeaves - 1
	}
	reserved := make([]byte, headerSize+internalCount*32)
	if _, err := w.Write(reserved); err != nil {
		return EncodeResult{}, fmt.Errorf("encode reserve header: %w", forageerr.IO)
	}

	leafHashes := make([][32]byte, numLeaves)
	buf := make([]byte, Slice)
	var leafIdx int64
	for {
		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			chunk := buf[:n]
			if n < Slice {
				padded := make([]byte, Slice)
				copy(padded, chunk)
				chunk = padded
			}
			leafHashes[leafIdx] = leafHash(chunk)
			if _, werr := w.Write(chunk); werr != nil {
				return EncodeResult{}, fmt.Errorf("encode write leaf: %w", forageerr.IO)
			}
			leafIdx++
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return EncodeResult{}, fmt.Errorf("encode read %s: %w", srcPath, forageerr.IO)
		}
	}
	// The read loop above writes every leaf when the length is not
	// slice-aligned (the last one zero-padded). A zero-length file writes
	// none, and a file whose length is already slice-aligned writes exactly
	// bytesRead/Slice full leaves, one short of numLeaves. Fill any
	// remainder with zero leaves.
	for leafIdx < numLeaves {
		zero := make([]byte, Slice)
		leafHashes[leafIdx] = leafHash(zero)
		if _, err := w.Write(zero); err != nil {
			return EncodeResult{}, fmt.Errorf("encode write pad leaf: %w", forageerr.IO)
		}
		leafIdx++
	}

	internalHashes, root := buildTree(leafHashes)

	if err := w.Flush(); err != nil {
		return EncodeResult{}, fmt.Errorf("encode flush: %w", forageerr.IO)
	}

	// Backfill header + internal hash table.
	header := make([]byte, headerSize+int64(len(internalHashes))*32)
	copy(header[0:4], magic[:])
	binary.BigEndian.PutUint64(header[4:12], uint64(bytesRead))
	binary.BigEndian.PutUint64(header[12:20], uint64(numLeaves))
	for i, h := range internalHashes {
		copy(header[headerSize+i*32:headerSize+(i+1)*32], h[:])
	}
	if _, err := dst.WriteAt(header, 0); err != nil {
		return EncodeResult{}, fmt.Errorf("encode backfill header: %w", forageerr.IO)
	}

	bytesWritten := SizeFormula(bytesRead)
	stat, err := dst.Stat()
	if err != nil {
		return EncodeResult{}, fmt.Errorf("encode restat: %w", forageerr.IO)
	}
	if stat.Size() != bytesWritten {
		return EncodeResult{}, fmt.Errorf("encode size formula mismatch: formula=%d actual=%d: %w",
			bytesWritten, stat.Size(), forageerr.Index)
	}

	return EncodeResult{Root: root, BytesRead: bytesRead, BytesWritten: bytesWritten}, nil
}

func leafHash(data []byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte{leafPrefix})
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func nodeHash(left, right [32]byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte{nodePrefix})
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// splitPoint returns the largest power of two strictly less than n, the
// boundary used to build a balanced-on-the-left Merkle tree over n leaves.
func splitPoint(n int64) int64 {
	k := int64(1)
	for k*2 < n {
		k *= 2
	}
	return k
}

// buildTree returns the internal node hashes in construction (post-order,
// left-subtree-first) order, and the root hash. There are always
// len(leaves)-1 internal nodes for len(leaves) >= 1 (0 when there is one
// leaf, in which case the root is the leaf hash itself).
func buildTree(leaves [][32]byte) ([][32]byte, [32]byte) {
	var internal [][32]byte
	root := buildSubtree(leaves, &internal)
	return internal, root
}

func buildSubtree(leaves [][32]byte, internal *[][32]byte) [32]byte {
	if len(leaves) == 1 {
		return leaves[0]
	}
	k := splitPoint(int64(len(leaves)))
	left := buildSubtree(leaves[:k], internal)
	right := buildSubtree(leaves[k:], internal)
	h := nodeHash(left, right)
	*internal = append(*internal, h)
	return h
}
