package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// schema is the files/peers DDL.
const schema = `
CREATE TABLE IF NOT EXISTS files (
	blake3_hash TEXT PRIMARY KEY,
	bao_hash TEXT NOT NULL,
	bytes_read INTEGER NOT NULL,
	bytes_written INTEGER NOT NULL,
	min_slice INTEGER NOT NULL,
	max_slice INTEGER NOT NULL,
	path TEXT NOT NULL,
	parent_rev TEXT,
	mime_type TEXT NOT NULL,
	date_created INTEGER NOT NULL,
	date_modified INTEGER NOT NULL,
	date_accessed INTEGER NOT NULL,
	dropped INTEGER NOT NULL DEFAULT 0,
	removed INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_files_blake3_hash ON files (blake3_hash);
CREATE INDEX IF NOT EXISTS idx_files_path ON files (path);

CREATE TABLE IF NOT EXISTS peers (
	tor_v3 TEXT PRIMARY KEY,
	alias TEXT NOT NULL DEFAULT '',
	added_ms INTEGER NOT NULL,
	last_seen_ms INTEGER NOT NULL,
	bytes_stored INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_peers_tor_v3 ON peers (tor_v3);
`

type sqlStore struct{ db *sql.DB }

func openSQL(path string) (*sqlStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

func (s *sqlStore) insertFile(r FileRecord) error {
	const q = `INSERT INTO files (
		blake3_hash, bao_hash, bytes_read, bytes_written, min_slice, max_slice,
		path, parent_rev, mime_type, date_created, date_modified, date_accessed,
		dropped, removed
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	var parentRev sql.NullString
	if r.ParentRev != "" {
		parentRev = sql.NullString{String: r.ParentRev, Valid: true}
	}

	_, err := s.db.Exec(q,
		r.FP, r.TR, r.BytesRead, r.BytesWritten, r.MinSlice, r.MaxSlice,
		r.Path, parentRev, r.MimeType, r.CreatedMS, r.ModifiedMS, r.AccessedMS,
		boolToInt(r.Dropped), boolToInt(r.Removed),
	)
	if err != nil {
		if isUniqueConstraint(err) {
			return fmt.Errorf("file %s already indexed: %w", r.FP, forageerr.Index)
		}
		return fmt.Errorf("insert file %s: %w", r.FP, forageerr.Index)
	}
	return nil
}

func (s *sqlStore) markDropped(fpHex string) error {
	_, err := s.db.Exec(`UPDATE files SET dropped = 1 WHERE blake3_hash = ?`, fpHex)
	if err != nil {
		return fmt.Errorf("mark dropped %s: %w", fpHex, forageerr.Index)
	}
	return nil
}

func (s *sqlStore) markRemoved(fpHex string) error {
	_, err := s.db.Exec(`UPDATE files SET removed = 1 WHERE blake3_hash = ?`, fpHex)
	if err != nil {
		return fmt.Errorf("mark removed %s: %w", fpHex, forageerr.Index)
	}
	return nil
}

func (s *sqlStore) maxSlice() (uint64, error) {
	var max sql.NullInt64
	row := s.db.QueryRow(`SELECT MAX(max_slice) FROM files WHERE removed = 0`)
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("get max slice: %w", forageerr.Index)
	}
	if !max.Valid {
		return 0, nil
	}
	return uint64(max.Int64), nil
}

// randomSliceOwner selects the unique non-removed record whose
// [min_slice, max_slice) range contains i.
func (s *sqlStore) randomSliceOwner(i uint64) (FileRecord, error) {
	const q = `SELECT blake3_hash, bao_hash, bytes_read, bytes_written, min_slice,
		max_slice, path, parent_rev, mime_type, date_created, date_modified,
		date_accessed, dropped, removed
		FROM files WHERE removed = 0 AND min_slice <= ? AND ? < max_slice LIMIT 1`
	row := s.db.QueryRow(q, i, i)
	rec, err := scanFileRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRecord{}, fmt.Errorf("no owner for slice %d: %w", i, forageerr.NotFound)
	}
	if err != nil {
		return FileRecord{}, fmt.Errorf("random slice owner %d: %w", i, forageerr.Index)
	}
	return rec, nil
}

// listFiles returns records where dropped = false, optionally filtered by
// an include or exclude set of FP hex strings. include/exclude may be nil.
func (s *sqlStore) listFiles(include, exclude map[string]bool) ([]FileRecord, error) {
	const q = `SELECT blake3_hash, bao_hash, bytes_read, bytes_written, min_slice,
		max_slice, path, parent_rev, mime_type, date_created, date_modified,
		date_accessed, dropped, removed
		FROM files WHERE dropped = 0 ORDER BY date_created ASC`
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", forageerr.Index)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanFileRecordRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file record: %w", forageerr.Index)
		}
		if include != nil && !include[rec.FP] {
			continue
		}
		if exclude != nil && exclude[rec.FP] {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// hashesByPrefix returns the FP hex set for non-dropped files whose path
// starts with prefix and is not in exclude.
func (s *sqlStore) hashesByPrefix(prefix string, exclude map[string]bool) (map[string]bool, error) {
	const q = `SELECT blake3_hash FROM files WHERE dropped = 0 AND path LIKE ? ESCAPE '\'`
	rows, err := s.db.Query(q, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("hashes by prefix: %w", forageerr.Index)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan hash: %w", forageerr.Index)
		}
		if exclude != nil && exclude[fp] {
			continue
		}
		out[fp] = true
	}
	return out, rows.Err()
}

func likePrefix(prefix string) string {
	escaped := ""
	for _, r := range prefix {
		switch r {
		case '\\', '%', '_':
			escaped += "\\" + string(r)
		default:
			escaped += string(r)
		}
	}
	return escaped + "%"
}

func (s *sqlStore) upsertPeer(p Peer) error {
	const q = `INSERT INTO peers (tor_v3, alias, added_ms, last_seen_ms, bytes_stored)
		VALUES (?,?,?,?,?)
		ON CONFLICT(tor_v3) DO UPDATE SET
			alias = excluded.alias,
			last_seen_ms = excluded.last_seen_ms,
			bytes_stored = excluded.bytes_stored`
	_, err := s.db.Exec(q, p.TorV3, p.Alias, p.AddedMS, p.LastSeenMS, p.BytesStored)
	if err != nil {
		return fmt.Errorf("upsert peer %s: %w", p.TorV3, forageerr.Index)
	}
	return nil
}

func (s *sqlStore) listPeers() ([]Peer, error) {
	rows, err := s.db.Query(`SELECT tor_v3, alias, added_ms, last_seen_ms, bytes_stored FROM peers ORDER BY added_ms ASC`)
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", forageerr.Index)
	}
	defer rows.Close()

	var out []Peer
	for rows.Next() {
		var p Peer
		if err := rows.Scan(&p.TorV3, &p.Alias, &p.AddedMS, &p.LastSeenMS, &p.BytesStored); err != nil {
			return nil, fmt.Errorf("scan peer: %w", forageerr.Index)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row *sql.Row) (FileRecord, error) {
	return scanFileRecordGeneric(row)
}

func scanFileRecordRows(rows *sql.Rows) (FileRecord, error) {
	return scanFileRecordGeneric(rows)
}

func scanFileRecordGeneric(s scanner) (FileRecord, error) {
	var r FileRecord
	var parentRev sql.NullString
	var dropped, removed int
	err := s.Scan(
		&r.FP, &r.TR, &r.BytesRead, &r.BytesWritten, &r.MinSlice, &r.MaxSlice,
		&r.Path, &parentRev, &r.MimeType, &r.CreatedMS, &r.ModifiedMS, &r.AccessedMS,
		&dropped, &removed,
	)
	if err != nil {
		return FileRecord{}, err
	}
	r.ParentRev = parentRev.String
	r.Dropped = dropped != 0
	r.Removed = removed != 0
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
