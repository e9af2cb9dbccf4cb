package index

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// Buckets.
var (
	bucketSecret  = []byte("user_secret")  // single key "key" -> 32 raw bytes
	bucketPathMap = []byte("path_map")     // plaintext relative path -> FP hex
	bucketSeenSet = []byte("seen_set")     // FP hex -> single marker byte
)

const secretKey = "key"

type kvStore struct{ db *bbolt.DB }

func openKV(path string) (*kvStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSecret, bucketPathMap, bucketSeenSet} {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &kvStore{db: db}, nil
}

func (k *kvStore) Close() error { return k.db.Close() }

func (k *kvStore) getSecret() ([32]byte, bool, error) {
	var out [32]byte
	var found bool
	err := k.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSecret).Get([]byte(secretKey))
		if v == nil {
			return nil
		}
		if len(v) != 32 {
			return fmt.Errorf("stored user secret has length %d, want 32: %w", len(v), forageerr.Index)
		}
		copy(out[:], v)
		found = true
		return nil
	})
	return out, found, err
}

func (k *kvStore) putSecret(secret [32]byte) error {
	return k.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSecret).Put([]byte(secretKey), secret[:])
	})
}

// upsertPath stores path -> fpHex and returns the previous FP hex for path,
// if any.
func (k *kvStore) upsertPath(path, fpHex string) (string, error) {
	var old string
	err := k.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPathMap)
		if v := b.Get([]byte(path)); v != nil {
			old = string(v)
		}
		return b.Put([]byte(path), []byte(fpHex))
	})
	return old, err
}

func (k *kvStore) lookupPath(path string) (string, bool, error) {
	var fpHex string
	var found bool
	err := k.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketPathMap).Get([]byte(path))
		if v != nil {
			fpHex, found = string(v), true
		}
		return nil
	})
	return fpHex, found, err
}

func (k *kvStore) insertSeen(fpHex string) error {
	return k.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSeenSet).Put([]byte(fpHex), []byte{1})
	})
}

func (k *kvStore) containsSeen(fpHex string) (bool, error) {
	var found bool
	err := k.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketSeenSet).Get([]byte(fpHex)) != nil
		return nil
	})
	return found, err
}

func (k *kvStore) removeSeen(fpHex string) error {
	return k.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSeenSet).Delete([]byte(fpHex))
	})
}

// pathsWithPrefix returns every (path, fpHex) pair whose path starts with
// prefix, iterating in lexicographic order (bbolt keeps keys sorted), which
// is also the order the walker yields paths in.
func (k *kvStore) pathsWithPrefix(prefix string) (map[string]string, error) {
	out := make(map[string]string)
	err := k.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketPathMap).Cursor()
		p := []byte(prefix)
		for key, val := c.Seek(p); key != nil && hasPrefix(key, p); key, val = c.Next() {
			out[string(key)] = string(val)
		}
		return nil
	})
	return out, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(prefix) > len(b) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k *kvStore) flush() error {
	return k.db.Sync()
}
