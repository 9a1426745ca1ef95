package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// CollectionConfig describes the collection an index run targets.
type CollectionConfig struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	JSONFile         string `json:"json_file"`
	ChunkSize        int    `json:"chunk_size,omitempty"`
	ForceRecreate    bool   `json:"force_recreate,omitempty"`
	SkipAIValidation bool   `json:"skip_ai_validation,omitempty"`
}

// IndexConfig is the fully-resolved shape `minerva index --config` reads
// (spec §4.10).
type IndexConfig struct {
	ChromaDBPath string           `json:"chromadb_path"`
	Collection   CollectionConfig `json:"collection"`
	Provider     ProviderConfig   `json:"provider"`
}

// LoadIndexConfig reads and validates an index config file, resolving
// chromadb_path and collection.json_file against the file's directory.
func LoadIndexConfig(path string) (*IndexConfig, error) {
	var cfg IndexConfig
	if err := readJSON(path, &cfg); err != nil {
		return nil, err
	}

	dir := filepath.Dir(mustAbs(path))
	cfg.ChromaDBPath = resolvePath(dir, cfg.ChromaDBPath)
	cfg.Collection.JSONFile = resolvePath(dir, cfg.Collection.JSONFile)

	if cfg.ChromaDBPath == "" {
		return nil, minerrors.ConfigError("chromadb_path is required", nil).
			WithDetail("field", "chromadb_path")
	}
	if cfg.Collection.Name == "" {
		return nil, minerrors.ConfigError("collection.name is required", nil).
			WithDetail("field", "collection.name")
	}
	if cfg.Collection.JSONFile == "" {
		return nil, minerrors.ConfigError("collection.json_file is required", nil).
			WithDetail("field", "collection.json_file")
	}
	if err := validateProvider("provider", cfg.Provider); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// readJSON reads and unmarshals a JSON config file, producing
// Minerva's structured taxonomy rather than a bare stdlib error.
func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return minerrors.New(minerrors.ErrCodeConfigNotFound, "config file not found: "+path, err)
		}
		return minerrors.ConfigError("failed to read config file "+path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return minerrors.ConfigError("failed to parse config file "+path, err)
	}
	return nil
}
