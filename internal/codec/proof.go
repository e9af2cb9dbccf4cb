package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// sibling is one hash consulted while walking from a leaf to the root.
type sibling struct {
	hash  [32]byte
	right bool // true if this sibling sits to the right of the path node
}

// rangeSpan is a [lo, hi) leaf range, used to replay the deterministic
// post-order construction so a stored internal hash can be located by the
// range it summarizes.
type rangeSpan struct{ lo, hi int64 }

// postorderRanges returns every internal-node range for a tree of n
// leaves, in the same post-order (left subtree, right subtree, self) that
// buildSubtree emits hashes in. Index i in the result is exactly index i
// of the internal hash table written to the blob by Encode.
func postorderRanges(n int64) []rangeSpan {
	var out []rangeSpan
	var rec func(lo, hi int64)
	rec = func(lo, hi int64) {
		if hi-lo <= 1 {
			return
		}
		k := lo + splitPoint(hi-lo)
		rec(lo, k)
		rec(k, hi)
		out = append(out, rangeSpan{lo, hi})
	}
	rec(0, n)
	return out
}

func internalIndexOf(ranges []rangeSpan, lo, hi int64) (int, bool) {
	for i, r := range ranges {
		if r.lo == lo && r.hi == hi {
			return i, true
		}
	}
	return -1, false
}

// readHeader parses the fixed header and returns bytesRead, numLeaves, and
// the byte offset where leaf data begins.
func readHeader(f *os.File) (bytesRead, numLeaves, leafOffset int64, err error) {
	buf := make([]byte, headerSize)
	if _, err = readFullAt(f, buf, 0); err != nil {
		return 0, 0, 0, fmt.Errorf("read header: %w", forageerr.IO)
	}
	if !bytes.Equal(buf[0:4], magic[:]) {
		return 0, 0, 0, fmt.Errorf("bad magic: %w", forageerr.Integrity)
	}
	bytesRead = int64(binary.BigEndian.Uint64(buf[4:12]))
	numLeaves = int64(binary.BigEndian.Uint64(buf[12:20]))
	internalCount := int64(0)
	if numLeaves > 1 {
		internalCount = numLeaves - 1
	}
	leafOffset = headerSize + internalCount*32
	return bytesRead, numLeaves, leafOffset, nil
}

func readFullAt(f *os.File, buf []byte, off int64) (int, error) {
	n, err := f.ReadAt(buf, off)
	if n == len(buf) {
		return n, nil
	}
	return n, err
}

func readInternalHash(f *os.File, idx int) ([32]byte, error) {
	var h [32]byte
	if _, err := readFullAt(f, h[:], int64(headerSize+idx*32)); err != nil {
		return h, fmt.Errorf("read internal hash %d: %w", idx, forageerr.IO)
	}
	return h, nil
}

func readLeaf(f *os.File, leafOffset, idx int64) ([]byte, error) {
	buf := make([]byte, Slice)
	if _, err := readFullAt(f, buf, leafOffset+idx*Slice); err != nil {
		return nil, fmt.Errorf("read leaf %d: %w", idx, forageerr.IO)
	}
	return buf, nil
}

// SliceProof is a self-contained inclusion proof for one leaf.
type SliceProof struct {
	LeafIndex int64
	NumLeaves int64
	LeafData  [Slice]byte
	Siblings  []sibling // bottom-up: leaf-level sibling first, root-level last
}

// SliceExtract emits the proof for slice index i of the blob at blobPath.
// Length is O(log numLeaves) hashes regardless of file size.
func SliceExtract(blobPath string, i int64) (SliceProof, error) {
	f, err := os.Open(blobPath)
	if err != nil {
		return SliceProof{}, fmt.Errorf("slice extract open %s: %w", blobPath, forageerr.IO)
	}
	defer f.Close()

	_, numLeaves, leafOffset, err := readHeader(f)
	if err != nil {
		return SliceProof{}, err
	}
	if i < 0 || i >= numLeaves {
		return SliceProof{}, fmt.Errorf("slice index %d out of range [0,%d): %w", i, numLeaves, forageerr.NotFound)
	}

	ranges := postorderRanges(numLeaves)

	leafBytes, err := readLeaf(f, leafOffset, i)
	if err != nil {
		return SliceProof{}, err
	}

	var topDown []sibling
	lo, hi := int64(0), numLeaves
	for hi-lo > 1 {
		k := lo + splitPoint(hi-lo)
		var sLo, sHi int64
		var right bool
		if i < k {
			sLo, sHi, right = k, hi, true
			hi = k
		} else {
			sLo, sHi, right = lo, k, false
			lo = k
		}

		var h [32]byte
		if sHi-sLo == 1 {
			lb, err := readLeaf(f, leafOffset, sLo)
			if err != nil {
				return SliceProof{}, err
			}
			h = leafHash(lb)
		} else {
			idx, ok := internalIndexOf(ranges, sLo, sHi)
			if !ok {
				return SliceProof{}, fmt.Errorf("no internal node for range [%d,%d): %w", sLo, sHi, forageerr.Index)
			}
			h, err = readInternalHash(f, idx)
			if err != nil {
				return SliceProof{}, err
			}
		}
		topDown = append(topDown, sibling{hash: h, right: right})
	}

	// Reverse to bottom-up order for verification.
	siblings := make([]sibling, len(topDown))
	for idx, s := range topDown {
		siblings[len(topDown)-1-idx] = s
	}

	var proof SliceProof
	proof.LeafIndex = i
	proof.NumLeaves = numLeaves
	copy(proof.LeafData[:], leafBytes)
	proof.Siblings = siblings
	return proof, nil
}

// SliceVerify recomputes the root from proof and compares it to root,
// returning a forageerr.Integrity-wrapped error on mismatch.
func SliceVerify(root TR, proof SliceProof) error {
	cur := leafHash(proof.LeafData[:])
	for _, s := range proof.Siblings {
		if s.right {
			cur = nodeHash(cur, s.hash)
		} else {
			cur = nodeHash(s.hash, cur)
		}
	}
	if cur != [32]byte(root) {
		return fmt.Errorf("slice %d: recomputed root does not match: %w", proof.LeafIndex, forageerr.Integrity)
	}
	return nil
}

// EncodeProof serializes a SliceProof to a self-contained byte string
// suitable for transport between prover and verifier.
func EncodeProof(p SliceProof) []byte {
	var buf bytes.Buffer
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(p.LeafIndex))
	buf.Write(tmp[:])
	binary.BigEndian.PutUint64(tmp[:], uint64(p.NumLeaves))
	buf.Write(tmp[:])
	buf.Write(p.LeafData[:])
	binary.BigEndian.PutUint32(tmp[:4], uint32(len(p.Siblings)))
	buf.Write(tmp[:4])
	for _, s := range p.Siblings {
		buf.Write(s.hash[:])
		if s.right {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

// DecodeProof parses the wire form produced by EncodeProof.
func DecodeProof(b []byte) (SliceProof, error) {
	var p SliceProof
	r := bytes.NewReader(b)
	readU64 := func() (int64, error) {
		var tmp [8]byte
		if _, err := readFullReader(r, tmp[:]); err != nil {
			return 0, err
		}
		return int64(binary.BigEndian.Uint64(tmp[:])), nil
	}
	li, err := readU64()
	if err != nil {
		return p, fmt.Errorf("decode proof leaf index: %w", forageerr.Integrity)
	}
	nl, err := readU64()
	if err != nil {
		return p, fmt.Errorf("decode proof num leaves: %w", forageerr.Integrity)
	}
	p.LeafIndex, p.NumLeaves = li, nl
	if _, err := readFullReader(r, p.LeafData[:]); err != nil {
		return p, fmt.Errorf("decode proof leaf data: %w", forageerr.Integrity)
	}
	var cnt [4]byte
	if _, err := readFullReader(r, cnt[:]); err != nil {
		return p, fmt.Errorf("decode proof sibling count: %w", forageerr.Integrity)
	}
	n := binary.BigEndian.Uint32(cnt[:])
	p.Siblings = make([]sibling, n)
	for i := range p.Siblings {
		var h [32]byte
		if _, err := readFullReader(r, h[:]); err != nil {
			return p, fmt.Errorf("decode proof sibling hash: %w", forageerr.Integrity)
		}
		var flag [1]byte
		if _, err := readFullReader(r, flag[:]); err != nil {
			return p, fmt.Errorf("decode proof sibling flag: %w", forageerr.Integrity)
		}
		p.Siblings[i] = sibling{hash: h, right: flag[0] == 1}
	}
	return p, nil
}

func readFullReader(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
