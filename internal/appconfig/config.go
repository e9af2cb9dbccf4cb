// Package appconfig loads and saves Forage's cfg.toml: an optional
// forage_data_dir override and zero or more [[volume]] entries naming a
// storage path and its allocation.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/fuzzrnet/forage-go/internal/forageerr"
)

// Volume is one [[volume]] entry.
type Volume struct {
	Path      string `toml:"path"`
	Allocated uint64 `toml:"allocated"`
}

// Config is the parsed cfg.toml.
type Config struct {
	ForageDataDir string   `toml:"forage_data_dir"`
	Volumes       []Volume `toml:"volume"`
}

// FileName is the config file's name within the config directory.
const FileName = "cfg.toml"

// Load reads <cfgDir>/cfg.toml, defaulting and rewriting it if any
// recognized field is missing.
func Load(cfgDir string) (Config, error) {
	path := filepath.Join(cfgDir, FileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Config{}
		if werr := Save(cfgDir, cfg); werr != nil {
			return Config{}, werr
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, forageerr.Config)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, forageerr.Config)
	}

	rewritten := !md.IsDefined("forage_data_dir")
	if cfg.Volumes == nil {
		cfg.Volumes = []Volume{}
		rewritten = true
	}
	if rewritten {
		if err := Save(cfgDir, cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Save writes cfg to <cfgDir>/cfg.toml.
func Save(cfgDir string, cfg Config) error {
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir %s: %w", cfgDir, forageerr.IO)
	}
	path := filepath.Join(cfgDir, FileName)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config %s: %w", path, forageerr.IO)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config %s: %w", path, forageerr.Config)
	}
	return nil
}

// FirstVolumePath returns the first configured volume's path, or "" if
// none is configured.
func (c Config) FirstVolumePath() string {
	if len(c.Volumes) == 0 {
		return ""
	}
	return c.Volumes[0].Path
}
