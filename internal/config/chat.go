package config

import (
	"path/filepath"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// ChatConfig is the fully-resolved shape chat clients read (spec §4.10).
type ChatConfig struct {
	ChromaDBPath      string         `json:"chromadb_path"`
	Provider          ProviderConfig `json:"provider"`
	MCPServerURL      string         `json:"mcp_server_url"`
	ConversationDir   string         `json:"conversation_dir"`
	EnableStreaming   bool           `json:"enable_streaming,omitempty"`
	MaxToolIterations int            `json:"max_tool_iterations,omitempty"`
}

// LoadChatConfig reads and validates a chat config file.
func LoadChatConfig(path string) (*ChatConfig, error) {
	var cfg ChatConfig
	if err := readJSON(path, &cfg); err != nil {
		return nil, err
	}

	dir := filepath.Dir(mustAbs(path))
	cfg.ChromaDBPath = resolvePath(dir, cfg.ChromaDBPath)
	cfg.ConversationDir = resolvePath(dir, cfg.ConversationDir)

	if cfg.ChromaDBPath == "" {
		return nil, minerrors.ConfigError("chromadb_path is required", nil).
			WithDetail("field", "chromadb_path")
	}
	if cfg.MCPServerURL == "" {
		return nil, minerrors.ConfigError("mcp_server_url is required", nil).
			WithDetail("field", "mcp_server_url")
	}
	if cfg.ConversationDir == "" {
		return nil, minerrors.ConfigError("conversation_dir is required", nil).
			WithDetail("field", "conversation_dir")
	}
	if err := validateProvider("provider", cfg.Provider); err != nil {
		return nil, err
	}

	return &cfg, nil
}
