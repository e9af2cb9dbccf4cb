// Package index is the metadata index: the persistent record of files,
// revisions, and slice ranges, the path→fingerprint map, the seen-fingerprint
// set, and the persisted per-installation user secret. It collapses two
// logical stores into one *Index handle: a bbolt tree
// (internal/index/kv.go) for UserSecret/PathMap/SeenSet, and a SQLite
// relational store (internal/index/sql.go) for files and peers.
package index

// FileRecord mirrors the files table and its per-revision invariants: a
// fingerprint is inserted once, carries an immutable slice range, and is
// retired via dropped/removed flags rather than deletion.
type FileRecord struct {
	FP           string // blake3_hash, hex, primary key
	TR           string // bao_hash (tree root), hex
	BytesRead    int64
	BytesWritten int64
	MinSlice     uint64
	MaxSlice     uint64
	Path         string
	ParentRev    string // empty when this is the first revision of Path
	MimeType     string
	CreatedMS    int64
	ModifiedMS   int64
	AccessedMS   int64
	Dropped      bool
	Removed      bool
}

// Peer mirrors the peers table. Only the connection stub commands touch
// this today; the network/Tor transport itself is not implemented here.
type Peer struct {
	TorV3       string // primary key
	Alias       string
	AddedMS     int64
	LastSeenMS  int64
	BytesStored int64
}
