package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Node configures this member of the Raft cluster
type Node struct {
	ID        string   `toml:"id"`
	RaftAddr  string   `toml:"raft_addr"`
	RaftDir   string   `toml:"raft_dir"`
	HTTPAddr  string   `toml:"http_addr"`
	Bootstrap bool     `toml:"bootstrap"`
	JoinAddr  string   `toml:"join"`
	Peers     []string `toml:"peers"`
}

// Storage configures where uploaded archives and backups live
type Storage struct {
	// DataDir holds the blob store. Empty keeps blobs in memory.
	DataDir string `toml:"data_dir"`
}

// Import limits preset uploads
type Import struct {
	PerMinute   int `toml:"per_minute"`
	MaxUploadMB int `toml:"max_upload_mb"`
}

// Logging configures zap
type Logging struct {
	Level string `toml:"level"`
}

// Config represents the application configuration
type Config struct {
	Node    Node    `toml:"node"`
	Storage Storage `toml:"storage"`
	Import  Import  `toml:"import"`
	Logging Logging `toml:"logging"`
}

// Default returns the configuration used when no file or flag says otherwise
func Default() Config {
	return Config{
		Node: Node{
			RaftAddr:  "127.0.0.1:7000",
			RaftDir:   "data/raft",
			HTTPAddr:  "127.0.0.1:8080",
			Bootstrap: true,
		},
		Storage: Storage{DataDir: "data/store"},
		Import: Import{
			PerMinute:   30,
			MaxUploadMB: 16,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a TOML file over Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Normalize expands paths, splits comma separated peers and derives the node
// id from the Raft directory when none is set.
func (c *Config) Normalize() error {
	var err error
	if c.Node.RaftDir, err = expandPath(c.Node.RaftDir); err != nil {
		return fmt.Errorf("node.raft_dir: %w", err)
	}
	if c.Storage.DataDir, err = expandPath(c.Storage.DataDir); err != nil {
		return fmt.Errorf("storage.data_dir: %w", err)
	}

	var peers []string
	for _, entry := range c.Node.Peers {
		for _, peer := range strings.Split(entry, ",") {
			if peer = strings.TrimSpace(peer); peer != "" {
				peers = append(peers, peer)
			}
		}
	}
	c.Node.Peers = peers

	if strings.TrimSpace(c.Node.ID) == "" && c.Node.RaftDir != "" {
		c.Node.ID = filepath.Base(c.Node.RaftDir)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate ensures the configuration is usable. It never modifies c.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Node.ID) == "" {
		return errors.New("node.id must be set")
	}
	if c.Node.RaftDir == "" {
		return errors.New("node.raft_dir must be set")
	}
	if err := validateAddr("node.raft_addr", c.Node.RaftAddr); err != nil {
		return err
	}
	if err := validateAddr("node.http_addr", c.Node.HTTPAddr); err != nil {
		return err
	}
	for _, peer := range c.Node.Peers {
		if err := validateAddr("node.peers", peer); err != nil {
			return err
		}
	}
	if c.Node.Bootstrap && c.Node.JoinAddr != "" {
		return errors.New("node.bootstrap and node.join are mutually exclusive")
	}
	if c.Import.PerMinute < 0 {
		return errors.New("import.per_minute must be zero (unlimited) or positive")
	}
	if c.Import.MaxUploadMB <= 0 {
		return errors.New("import.max_upload_mb must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}

// MaxUploadBytes is the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Import.MaxUploadMB) << 20
}

func validateAddr(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s must be set", field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}
