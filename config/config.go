// Package config loads the optional TOML configuration for the recall CLI
// and server. Every field has a usable default; a missing file is only an
// error when its path was given explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all tunable settings.
type Config struct {
	// Endpoint is the model server base URL.
	Endpoint string `toml:"endpoint"`

	// Model is the generation model identifier.
	Model string `toml:"model"`

	// EmbedModel is the embedding model identifier.
	EmbedModel string `toml:"embed_model"`

	// DataDir holds memory store artifacts.
	DataDir string `toml:"data_dir"`

	// ListenAddr is the serve command's bind address.
	ListenAddr string `toml:"listen_addr"`

	// SearchTopK is the result count for search commands.
	SearchTopK int `toml:"search_top_k"`

	// AskTopK is the context fragment count for questions.
	AskTopK int `toml:"ask_top_k"`
}

// Default returns the standard configuration.
func Default() *Config {
	dataDir := ".recall"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".recall")
	}

	return &Config{
		Endpoint:   "http://localhost:11434",
		Model:      "llama2",
		EmbedModel: "nomic-embed-text",
		DataDir:    dataDir,
		ListenAddr: ":8080",
		SearchTopK: 3,
		AskTopK:    2,
	}
}

// Load reads the config file at path and fills unset fields with defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var fromFile Config
	if _, err := toml.DecodeFile(path, &fromFile); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.merge(&fromFile)

	return cfg, nil
}

// merge overlays non-zero fields from other.
func (c *Config) merge(other *Config) {
	if other.Endpoint != "" {
		c.Endpoint = other.Endpoint
	}
	if other.Model != "" {
		c.Model = other.Model
	}
	if other.EmbedModel != "" {
		c.EmbedModel = other.EmbedModel
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if other.ListenAddr != "" {
		c.ListenAddr = other.ListenAddr
	}
	if other.SearchTopK != 0 {
		c.SearchTopK = other.SearchTopK
	}
	if other.AskTopK != 0 {
		c.AskTopK = other.AskTopK
	}
}

// ArchivePath returns the archive artifact path for a named store.
func (c *Config) ArchivePath(name string) string {
	return filepath.Join(c.DataDir, name+".rcl")
}

// IndexPath returns the index artifact path for a named store.
func (c *Config) IndexPath(name string) string {
	return filepath.Join(c.DataDir, name+"_index.json")
}
