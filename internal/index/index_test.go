package index

import "testing"

func TestUserSecretStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ix.Close()

	s1, err := ix.InitUserSecret()
	if err != nil {
		t.Fatalf("init user secret: %v", err)
	}
	s2, err := ix.InitUserSecret()
	if err != nil {
		t.Fatalf("init user secret again: %v", err)
	}
	if s1 != s2 {
		t.Fatal("user secret should be stable across calls in the same process")
	}
}

func TestUpsertPathReturnsPrevious(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ix.Close()

	old, err := ix.UpsertPath("p.txt", "fp-x")
	if err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	if old != "" {
		t.Fatalf("first upsert should have no previous value, got %q", old)
	}

	old, err = ix.UpsertPath("p.txt", "fp-y")
	if err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if old != "fp-x" {
		t.Fatalf("second upsert should return fp-x, got %q", old)
	}
}

func TestSeenSet(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ix.Close()

	has, _ := ix.ContainsSeen("fp-a")
	if has {
		t.Fatal("fresh seen set should not contain fp-a")
	}
	if err := ix.InsertSeen("fp-a"); err != nil {
		t.Fatalf("insert seen: %v", err)
	}
	has, _ = ix.ContainsSeen("fp-a")
	if !has {
		t.Fatal("seen set should contain fp-a after insert")
	}
	if err := ix.RemoveSeen("fp-a"); err != nil {
		t.Fatalf("remove seen: %v", err)
	}
	has, _ = ix.ContainsSeen("fp-a")
	if has {
		t.Fatal("seen set should not contain fp-a after remove")
	}
}

func TestAllocateAndInsertPartitionsSliceRanges(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ix.Close()

	r1, err := ix.AllocateAndInsert(FileRecord{FP: "fp1", Path: "a", CreatedMS: 1}, 5)
	if err != nil {
		t.Fatalf("allocate 1: %v", err)
	}
	if r1.MinSlice != 0 || r1.MaxSlice != 5 {
		t.Fatalf("r1 range = [%d,%d), want [0,5)", r1.MinSlice, r1.MaxSlice)
	}

	r2, err := ix.AllocateAndInsert(FileRecord{FP: "fp2", Path: "b", CreatedMS: 2}, 3)
	if err != nil {
		t.Fatalf("allocate 2: %v", err)
	}
	if r2.MinSlice != 5 || r2.MaxSlice != 8 {
		t.Fatalf("r2 range = [%d,%d), want [5,8)", r2.MinSlice, r2.MaxSlice)
	}

	max, err := ix.GetMaxSlice()
	if err != nil {
		t.Fatalf("get max slice: %v", err)
	}
	if max != 8 {
		t.Fatalf("max slice = %d, want 8", max)
	}
}

func TestDuplicateFPRejected(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ix.Close()

	if _, err := ix.AllocateAndInsert(FileRecord{FP: "dup", Path: "a", CreatedMS: 1}, 1); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := ix.AllocateAndInsert(FileRecord{FP: "dup", Path: "b", CreatedMS: 2}, 1); err == nil {
		t.Fatal("expected duplicate FP insert to fail")
	}
}

func TestRandomSliceIndexProportionalToSliceShare(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ix.Close()

	if _, err := ix.AllocateAndInsert(FileRecord{FP: "small", Path: "small", CreatedMS: 1}, 1); err != nil {
		t.Fatalf("allocate small: %v", err)
	}
	if _, err := ix.AllocateAndInsert(FileRecord{FP: "big", Path: "big", CreatedMS: 2}, 99); err != nil {
		t.Fatalf("allocate big: %v", err)
	}

	upper, err := ix.GetMaxSlice()
	if err != nil {
		t.Fatalf("max slice: %v", err)
	}

	counts := map[string]int{}
	const trials = 2000
	for i := 0; i < trials; i++ {
		rec, _, err := ix.GetRandomSliceIndex(upper)
		if err != nil {
			t.Fatalf("random slice index: %v", err)
		}
		counts[rec.FP]++
	}

	// "big" owns 99/100 of the slice range, so it should dominate the draws.
	if counts["big"] < counts["small"]*10 {
		t.Fatalf("expected big to dominate draws proportional to its slice share, got %v", counts)
	}
}

func TestGetHashesByPrefixExcludesDroppedAndExcluded(t *testing.T) {
	dir := t.TempDir()
	ix, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ix.Close()

	if _, err := ix.AllocateAndInsert(FileRecord{FP: "a", Path: "docs/a.txt", CreatedMS: 1}, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.AllocateAndInsert(FileRecord{FP: "b", Path: "docs/b.txt", CreatedMS: 2}, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.AllocateAndInsert(FileRecord{FP: "c", Path: "other/c.txt", CreatedMS: 3}, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.AllocateAndInsert(FileRecord{FP: "d", Path: "docs/d.txt", CreatedMS: 4}, 1); err != nil {
		t.Fatal(err)
	}
	if err := ix.MarkDropped("d"); err != nil {
		t.Fatal(err)
	}

	got, err := ix.GetHashesByPrefix("docs/", map[string]bool{"b": true})
	if err != nil {
		t.Fatalf("hashes by prefix: %v", err)
	}
	if len(got) != 1 || !got["a"] {
		t.Fatalf("got %v, want {a}", got)
	}
}
