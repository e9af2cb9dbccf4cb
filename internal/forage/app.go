// Package forage wires the config, blob store, index, and user secret
// into the application context the pipelines run against: one
// explicit, constructor-injected handle rather than process-wide
// singletons, so tests can open independent Apps in parallel.
package forage

import (
	"fmt"
	"log"

	"github.com/fuzzrnet/forage-go/internal/appconfig"
	"github.com/fuzzrnet/forage-go/internal/blobstore"
	"github.com/fuzzrnet/forage-go/internal/index"
	"github.com/fuzzrnet/forage-go/internal/paths"
)

// App holds every handle a pipeline needs.
type App struct {
	Paths  paths.Resolved
	Config appconfig.Config
	Index  *index.Index
	Blobs  *blobstore.Store
	Secret [32]byte
}

// Open resolves paths, loads the config, and opens the index and blob
// store. Callers should defer App.Close().
func Open() (*App, error) {
	home, err := paths.Home()
	if err != nil {
		return nil, err
	}
	cfgDir, err := paths.ConfigDir()
	if err != nil {
		return nil, err
	}

	cfg, err := appconfig.Load(cfgDir)
	if err != nil {
		return nil, err
	}

	dataDir := cfg.ForageDataDir
	storeDir := cfg.FirstVolumePath()
	resolved, err := paths.Resolve(dataDir, storeDir)
	if err != nil {
		return nil, err
	}
	resolved.Home = home

	ix, err := index.Open(resolved.ConfigDir, func(format string, args ...any) {
		log.Printf("warning: "+format, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	blobs, err := blobstore.Open(resolved.StoreDir)
	if err != nil {
		ix.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	secret, err := ix.InitUserSecret()
	if err != nil {
		ix.Close()
		return nil, fmt.Errorf("init user secret: %w", err)
	}

	return &App{
		Paths:  resolved,
		Config: cfg,
		Index:  ix,
		Blobs:  blobs,
		Secret: secret,
	}, nil
}

// Close releases the index. The blob store holds no open handles to close.
func (a *App) Close() error {
	if a.Index == nil {
		return nil
	}
	return a.Index.Close()
}
