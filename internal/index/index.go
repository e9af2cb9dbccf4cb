package index

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
)

// kvBackend is the PathMap/SeenSet/UserSecret surface, satisfied by the
// bbolt-backed kvStore and by memKV.
type kvBackend interface {
	initUserSecret() ([32]byte, error)
	upsertPath(path, fpHex string) (string, error)
	lookupPath(path string) (string, bool, error)
	insertSeen(fpHex string) error
	containsSeen(fpHex string) (bool, error)
	removeSeen(fpHex string) error
	pathsWithPrefix(prefix string) (map[string]string, error)
	flush() error
	Close() error
}

// recordBackend is the files/peers relational surface, satisfied by the
// sqlite-backed sqlStore and by memSQL.
type recordBackend interface {
	insertFile(r FileRecord) error
	markDropped(fpHex string) error
	markRemoved(fpHex string) error
	maxSlice() (uint64, error)
	randomSliceOwner(i uint64) (FileRecord, error)
	listFiles(include, exclude map[string]bool) ([]FileRecord, error)
	hashesByPrefix(prefix string, exclude map[string]bool) (map[string]bool, error)
	upsertPeer(p Peer) error
	listPeers() ([]Peer, error)
	Close() error
}

// WarnFunc receives a non-fatal degrade-to-in-memory notice.
type WarnFunc func(format string, args ...any)

// Index is the single handle the upload/download/verify pipelines use for
// all metadata operations.
type Index struct {
	kv  kvBackend
	rec recordBackend

	// allocMu serializes the compound get_max_slice -> insert_file
	// sequence across concurrent pipeline invocations.
	allocMu sync.Mutex
}

// Open opens (creating if absent) the bbolt kv tree at <cfgDir>/bbolt.db and
// the sqlite relational store at <cfgDir>/forage.db3. Either store that
// fails to open degrades to an in-memory replacement; warn is called with
// details but Open itself still succeeds.
func Open(cfgDir string, warn WarnFunc) (*Index, error) {
	if warn == nil {
		warn = func(string, ...any) {}
	}

	var kv kvBackend
	realKV, err := openKV(filepath.Join(cfgDir, "bbolt.db"))
	if err != nil {
		warn("kv store degraded to in-memory: %v", err)
		kv = newMemKV()
	} else {
		kv = realKV
	}

	var rec recordBackend
	realSQL, err := openSQL(filepath.Join(cfgDir, "forage.db3"))
	if err != nil {
		warn("relational store degraded to in-memory: %v", err)
		rec = newMemSQL()
	} else {
		rec = realSQL
	}

	return &Index{kv: kv, rec: rec}, nil
}

// Close releases both backends.
func (ix *Index) Close() error {
	err1 := ix.kv.Close()
	err2 := ix.rec.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Flush is the durability barrier the upload pipeline calls before
// returning to the user.
func (ix *Index) Flush() error {
	return ix.kv.flush()
}

// InitUserSecret returns the persisted UserSecret, deriving and persisting
// one on first call.
func (ix *Index) InitUserSecret() ([32]byte, error) {
	return ix.kv.initUserSecret()
}

// UpsertPath replaces any prior mapping for path and returns the FP hex it
// replaced, or "" if there was none.
func (ix *Index) UpsertPath(path, fpHex string) (string, error) {
	return ix.kv.upsertPath(path, fpHex)
}

// LookupPath returns the current FP hex for path.
func (ix *Index) LookupPath(path string) (string, bool, error) {
	return ix.kv.lookupPath(path)
}

// InsertSeen, ContainsSeen, RemoveSeen implement the SeenSet.
func (ix *Index) InsertSeen(fpHex string) error         { return ix.kv.insertSeen(fpHex) }
func (ix *Index) ContainsSeen(fpHex string) (bool, error) { return ix.kv.containsSeen(fpHex) }
func (ix *Index) RemoveSeen(fpHex string) error         { return ix.kv.removeSeen(fpHex) }

// MarkDropped, MarkRemoved set the corresponding flags idempotently.
func (ix *Index) MarkDropped(fpHex string) error { return ix.rec.markDropped(fpHex) }
func (ix *Index) MarkRemoved(fpHex string) error { return ix.rec.markRemoved(fpHex) }

// GetMaxSlice returns MAX(max_slice) over non-removed records, 0 if empty.
func (ix *Index) GetMaxSlice() (uint64, error) {
	return ix.rec.maxSlice()
}

// GetFiles returns non-dropped records, optionally filtered by include
// and/or exclude FP-hex sets (either may be nil).
func (ix *Index) GetFiles(include, exclude map[string]bool) ([]FileRecord, error) {
	return ix.rec.listFiles(include, exclude)
}

// GetHashesByPrefix returns the FP hex set of non-dropped files whose path
// starts with prefix and is not present in exclude.
func (ix *Index) GetHashesByPrefix(prefix string, exclude map[string]bool) (map[string]bool, error) {
	return ix.rec.hashesByPrefix(prefix, exclude)
}

// GetPathsByPrefix delegates to the PathMap for prefix scans over every
// path ever seen, regardless of index/dropped state. It reads only the
// PathMap, not the files records.
func (ix *Index) GetPathsByPrefix(prefix string) (map[string]string, error) {
	return ix.kv.pathsWithPrefix(prefix)
}

// UpsertPeer and ListPeers back the provider-connection stub commands.
func (ix *Index) UpsertPeer(p Peer) error    { return ix.rec.upsertPeer(p) }
func (ix *Index) ListPeers() ([]Peer, error) { return ix.rec.listPeers() }

// AllocateAndInsert performs a compound read-modify-write: it reads the
// current global slice high-water mark, computes
// rec's [min_slice, max_slice) range from its own leaf count, and inserts
// the record, all under one critical section so concurrent uploads cannot
// observe or produce overlapping ranges. leafCount is the number of SLICE
// leaves rec's encoded content occupies.
func (ix *Index) AllocateAndInsert(rec FileRecord, leafCount uint64) (FileRecord, error) {
	ix.allocMu.Lock()
	defer ix.allocMu.Unlock()

	min, err := ix.rec.maxSlice()
	if err != nil {
		return FileRecord{}, fmt.Errorf("allocate slice range: %w", err)
	}
	rec.MinSlice = min
	rec.MaxSlice = min + leafCount

	if err := ix.rec.insertFile(rec); err != nil {
		return FileRecord{}, err
	}
	return rec, nil
}

// GetRandomSliceIndex draws i uniformly from [0, upper) and returns the
// unique non-removed record owning it, along with the file-local slice
// index (i - record.MinSlice).
func (ix *Index) GetRandomSliceIndex(upper uint64) (rec FileRecord, localIndex uint64, err error) {
	if upper == 0 {
		return FileRecord{}, 0, fmt.Errorf("empty global slice range")
	}
	i := uint64(rand.Int63n(int64(upper)))
	rec, err = ix.rec.randomSliceOwner(i)
	if err != nil {
		return FileRecord{}, 0, err
	}
	return rec, i - rec.MinSlice, nil
}
