package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return p
}

func TestFingerprintDeterministic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.bin", []byte("hello forage"))
	var key [32]byte
	copy(key[:], []byte("test-key-0000000000000000000000"))

	fp1, err := Fingerprint(p, key)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	fp2, err := Fingerprint(p, key)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fp1 != fp2 {
		t.Error("fingerprint should be deterministic for fixed key and content")
	}

	var otherKey [32]byte
	copy(otherKey[:], []byte("different-key-00000000000000000"))
	fp3, _ := Fingerprint(p, otherKey)
	if fp1 == fp3 {
		t.Error("different keys should produce different fingerprints")
	}
}

func TestEncodeExtractRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	src := writeTemp(t, dir, "plain.bin", content)
	blob := filepath.Join(dir, "blob")

	res, err := Encode(src, blob)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if res.BytesRead != int64(len(content)) {
		t.Fatalf("bytes read = %d, want %d", res.BytesRead, len(content))
	}

	stat, err := os.Stat(blob)
	if err != nil {
		t.Fatalf("stat blob: %v", err)
	}
	if stat.Size() != res.BytesWritten {
		t.Fatalf("blob size = %d, want %d", stat.Size(), res.BytesWritten)
	}
	if SizeFormula(res.BytesRead) != res.BytesWritten {
		t.Fatalf("size formula mismatch")
	}

	out := filepath.Join(dir, "restored.bin")
	if err := Extract(blob, out, res.Root); err != nil {
		t.Fatalf("extract: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("round trip did not reproduce original content")
	}
}

func TestEncodeEmptyFile(t *testing.T) {
	dir := t.TempDir()
	src := writeTemp(t, dir, "empty.bin", nil)
	blob := filepath.Join(dir, "blob")

	res, err := Encode(src, blob)
	if err != nil {
		t.Fatalf("encode empty: %v", err)
	}
	if res.BytesRead != 0 {
		t.Fatalf("bytes read = %d, want 0", res.BytesRead)
	}

	out := filepath.Join(dir, "restored.bin")
	if err := Extract(blob, out, res.Root); err != nil {
		t.Fatalf("extract empty: %v", err)
	}
	got, _ := os.ReadFile(out)
	if len(got) != 0 {
		t.Fatalf("restored empty file has %d bytes", len(got))
	}
}

func TestSliceSoundness(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte{0xAB}, 1024*37+500) // 38 leaves: not a power of two
	src := writeTemp(t, dir, "plain.bin", content)
	blob := filepath.Join(dir, "blob")

	res, err := Encode(src, blob)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	numLeaves := (res.BytesRead + Slice - 1) / Slice
	for i := int64(0); i < numLeaves; i++ {
		proof, err := SliceExtract(blob, i)
		if err != nil {
			t.Fatalf("slice extract %d: %v", i, err)
		}
		if err := SliceVerify(res.Root, proof); err != nil {
			t.Fatalf("slice verify %d: %v", i, err)
		}

		// Wire round trip.
		wire := EncodeProof(proof)
		decoded, err := DecodeProof(wire)
		if err != nil {
			t.Fatalf("decode proof %d: %v", i, err)
		}
		if err := SliceVerify(res.Root, decoded); err != nil {
			t.Fatalf("slice verify decoded %d: %v", i, err)
		}
	}

	// Corrupting the blob must fail at least one slice's proof.
	corrupt, err := os.OpenFile(blob, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	if _, err := corrupt.WriteAt([]byte{0xFF}, 40); err != nil {
		t.Fatalf("corrupt write: %v", err)
	}
	corrupt.Close()

	failed := false
	for i := int64(0); i < numLeaves; i++ {
		proof, err := SliceExtract(blob, i)
		if err != nil {
			failed = true
			break
		}
		if err := SliceVerify(res.Root, proof); err != nil {
			failed = true
			break
		}
	}
	if !failed {
		t.Fatal("expected at least one slice to fail verification after corruption")
	}
}

func TestEncodeSliceAlignedSize(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte{0x42}, Slice*5) // exact multiple of Slice
	src := writeTemp(t, dir, "aligned.bin", content)
	blob := filepath.Join(dir, "blob")

	res, err := Encode(src, blob)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	wantLeaves := int64(len(content))/Slice + 1 // unconditional pad: one extra leaf
	if got := NumLeaves(res.BytesRead); got != wantLeaves {
		t.Fatalf("NumLeaves(%d) = %d, want %d (slice-aligned length must still pad)", res.BytesRead, got, wantLeaves)
	}

	stat, err := os.Stat(blob)
	if err != nil {
		t.Fatalf("stat blob: %v", err)
	}
	if stat.Size() != res.BytesWritten {
		t.Fatalf("blob size = %d, want %d", stat.Size(), res.BytesWritten)
	}
	if SizeFormula(res.BytesRead) != res.BytesWritten {
		t.Fatalf("size formula mismatch")
	}

	// The extra pad leaf must be extractable and verifiable like any other.
	proof, err := SliceExtract(blob, wantLeaves-1)
	if err != nil {
		t.Fatalf("slice extract pad leaf: %v", err)
	}
	if err := SliceVerify(res.Root, proof); err != nil {
		t.Fatalf("slice verify pad leaf: %v", err)
	}

	out := filepath.Join(dir, "restored.bin")
	if err := Extract(blob, out, res.Root); err != nil {
		t.Fatalf("extract: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("round trip did not reproduce original content")
	}
}

func TestSliceOutOfRange(t *testing.T) {
	dir := t.TempDir()
	src := writeTemp(t, dir, "plain.bin", []byte("short"))
	blob := filepath.Join(dir, "blob")
	if _, err := Encode(src, blob); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := SliceExtract(blob, 99); err == nil {
		t.Fatal("expected out-of-range slice extract to fail")
	}
}
