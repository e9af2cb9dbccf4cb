package index

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// kdfContext is the labeled info string every UserSecret is derived under.
const kdfContext = "Forage Storage User Hash Key"

// initUserSecret returns the existing UserSecret if one is persisted;
// otherwise it draws 32 bytes of cryptographic randomness, runs them
// through a labeled HKDF (extract-then-expand) step, persists the derived key, and
// returns it. The raw random seed is never itself used as the key.
func (k *kvStore) initUserSecret() ([32]byte, error) {
	if existing, found, err := k.getSecret(); err != nil {
		return [32]byte{}, fmt.Errorf("load user secret: %v: %w", err, forageerr.Index)
	} else if found {
		return existing, nil
	}

	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return [32]byte{}, fmt.Errorf("draw user secret randomness: %w", forageerr.IO)
	}

	derived, err := deriveKey(seed)
	if err != nil {
		return [32]byte{}, err
	}

	if err := k.putSecret(derived); err != nil {
		return [32]byte{}, fmt.Errorf("persist user secret: %w", forageerr.Index)
	}
	return derived, nil
}

func deriveKey(seed [32]byte) ([32]byte, error) {
	var out [32]byte
	r := hkdf.New(sha256.New, seed[:], nil, []byte(kdfContext))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, fmt.Errorf("derive user secret: %w", forageerr.IO)
	}
	return out, nil
}
