package blobstore

import (
	"bytes"
	"testing"
)

func TestPutGetExists(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	has, err := s.Exists("deadbeef")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if has {
		t.Fatal("fresh store should not have any blob")
	}

	if err := s.Put("deadbeef", bytes.NewReader([]byte("payload"))); err != nil {
		t.Fatalf("put: %v", err)
	}

	has, err = s.Exists("deadbeef")
	if err != nil || !has {
		t.Fatalf("exists after put: has=%v err=%v", has, err)
	}

	data, err := s.Get("deadbeef")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Fatalf("get returned %q", data)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := Open(t.TempDir())
	if _, err := s.Get("notthere"); err == nil {
		t.Fatal("expected error for missing blob")
	}
}
