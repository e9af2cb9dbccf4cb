// Package paths resolves the filesystem locations Forage needs at startup:
// the user's home directory, the config directory, the data directory, and
// the blob storage directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// Resolved holds every startup path.
type Resolved struct {
	Home      string
	ConfigDir string
	DataDir   string
	StoreDir  string
}

// ConfigDir returns FORAGE_CFG_DIR if set, else <os config dir>/forage.
func ConfigDir() (string, error) {
	if v := os.Getenv("FORAGE_CFG_DIR"); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", forageerr.Config)
	}
	return filepath.Join(base, "forage"), nil
}

// Home returns the user's home directory.
func Home() (string, error) {
	h, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", forageerr.Config)
	}
	return h, nil
}

// DefaultDataDir returns "<home>/Forage Data".
func DefaultDataDir(home string) string {
	return filepath.Join(home, "Forage Data")
}

// DefaultStoreDir is the fallback blob directory when no volume is
// configured.
const DefaultStoreDir = "/tmp/forage_data"

// Resolve computes every startup path, creating the config directory if
// it's missing, given a data dir and store dir already decided by the
// loaded config (see internal/appconfig).
func Resolve(dataDir, storeDir string) (Resolved, error) {
	home, err := Home()
	if err != nil {
		return Resolved{}, err
	}
	cfgDir, err := ConfigDir()
	if err != nil {
		return Resolved{}, err
	}
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return Resolved{}, fmt.Errorf("create config dir %s: %w", cfgDir, forageerr.IO)
	}
	if dataDir == "" {
		dataDir = DefaultDataDir(home)
	}
	if storeDir == "" {
		storeDir = DefaultStoreDir
	}
	return Resolved{Home: home, ConfigDir: cfgDir, DataDir: dataDir, StoreDir: storeDir}, nil
}
