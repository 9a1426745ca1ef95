package config

import (
	"path/filepath"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// DefaultMaxResultsFloor and DefaultMaxResultsCeil bound
// default_max_results (spec §4.10, §4.8).
const (
	DefaultMaxResultsFloor = 1
	DefaultMaxResultsCeil  = 15
)

// ServerConfig is the fully-resolved shape `minerva serve`/`serve-http`
// reads (spec §4.10).
type ServerConfig struct {
	ChromaDBPath      string `json:"chromadb_path"`
	DefaultMaxResults int    `json:"default_max_results"`
	Host              string `json:"host,omitempty"`
	Port              int    `json:"port,omitempty"`
}

// LoadServerConfig reads and validates a server config file.
func LoadServerConfig(path string) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := readJSON(path, &cfg); err != nil {
		return nil, err
	}

	dir := filepath.Dir(mustAbs(path))
	cfg.ChromaDBPath = resolvePath(dir, cfg.ChromaDBPath)

	if cfg.ChromaDBPath == "" {
		return nil, minerrors.ConfigError("chromadb_path is required", nil).
			WithDetail("field", "chromadb_path")
	}
	if cfg.DefaultMaxResults < DefaultMaxResultsFloor || cfg.DefaultMaxResults > DefaultMaxResultsCeil {
		return nil, minerrors.ConfigError("default_max_results must be between 1 and 15", nil).
			WithDetail("field", "default_max_results")
	}

	return &cfg, nil
}
