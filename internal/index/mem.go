package index

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// In-memory fallbacks used when the on-disk kv or sql store fails to open.
// The caller observes a warning through an error-reporting callback but the
// operation itself does not fail.

type memKV struct {
	mu     sync.Mutex
	secret *[32]byte
	paths  map[string]string
	seen   map[string]bool
}

func newMemKV() *memKV {
	return &memKV{paths: make(map[string]string), seen: make(map[string]bool)}
}

func (m *memKV) initUserSecret() ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secret == nil {
		var seed [32]byte
		if _, err := rand.Read(seed[:]); err != nil {
			return [32]byte{}, fmt.Errorf("draw user secret randomness: %w", forageerr.IO)
		}
		derived, err := deriveKey(seed)
		if err != nil {
			return [32]byte{}, err
		}
		m.secret = &derived
	}
	return *m.secret, nil
}

func (m *memKV) upsertPath(path, fpHex string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.paths[path]
	m.paths[path] = fpHex
	return old, nil
}

func (m *memKV) lookupPath(path string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.paths[path]
	return v, ok, nil
}

func (m *memKV) insertSeen(fpHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[fpHex] = true
	return nil
}

func (m *memKV) containsSeen(fpHex string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[fpHex], nil
}

func (m *memKV) removeSeen(fpHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, fpHex)
	return nil
}

func (m *memKV) pathsWithPrefix(prefix string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for p, fp := range m.paths {
		if hasPrefix([]byte(p), []byte(prefix)) {
			out[p] = fp
		}
	}
	return out, nil
}

func (m *memKV) flush() error { return nil }
func (m *memKV) Close() error { return nil }

type memSQL struct {
	mu    sync.Mutex
	files map[string]FileRecord // keyed by FP hex
	peers map[string]Peer
}

func newMemSQL() *memSQL {
	return &memSQL{files: make(map[string]FileRecord), peers: make(map[string]Peer)}
}

func (m *memSQL) insertFile(r FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.files[r.FP]; exists {
		return fmt.Errorf("file %s already indexed: %w", r.FP, forageerr.Index)
	}
	m.files[r.FP] = r
	return nil
}

func (m *memSQL) markDropped(fpHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.files[fpHex]; ok {
		r.Dropped = true
		m.files[fpHex] = r
	}
	return nil
}

func (m *memSQL) markRemoved(fpHex string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.files[fpHex]; ok {
		r.Removed = true
		m.files[fpHex] = r
	}
	return nil
}

func (m *memSQL) maxSlice() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max uint64
	for _, r := range m.files {
		if !r.Removed && r.MaxSlice > max {
			max = r.MaxSlice
		}
	}
	return max, nil
}

func (m *memSQL) randomSliceOwner(i uint64) (FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.files {
		if !r.Removed && r.MinSlice <= i && i < r.MaxSlice {
			return r, nil
		}
	}
	return FileRecord{}, fmt.Errorf("no owner for slice %d: %w", i, forageerr.NotFound)
}

func (m *memSQL) listFiles(include, exclude map[string]bool) ([]FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FileRecord
	for _, r := range m.files {
		if r.Dropped {
			continue
		}
		if include != nil && !include[r.FP] {
			continue
		}
		if exclude != nil && exclude[r.FP] {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedMS < out[j].CreatedMS })
	return out, nil
}

func (m *memSQL) hashesByPrefix(prefix string, exclude map[string]bool) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, r := range m.files {
		if r.Dropped {
			continue
		}
		if !hasPrefix([]byte(r.Path), []byte(prefix)) {
			continue
		}
		if exclude != nil && exclude[r.FP] {
			continue
		}
		out[r.FP] = true
	}
	return out, nil
}

func (m *memSQL) upsertPeer(p Peer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[p.TorV3] = p
	return nil
}

func (m *memSQL) listPeers() ([]Peer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedMS < out[j].AddedMS })
	return out, nil
}

func (m *memSQL) Close() error { return nil }
