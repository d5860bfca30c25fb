// Package config loads run configuration files for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/persistence/middleware"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// StoreConfig selects where blocks and properties are kept.
type StoreConfig struct {
	Kind        string `yaml:"kind" json:"kind"`
	Dir         string `yaml:"dir" json:"dir"`
	RedisAddr   string `yaml:"redis_addr" json:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix" json:"redis_prefix"`
	SQLitePath  string `yaml:"sqlite_path" json:"sqlite_path"`

	// EncryptionKey, if set, is a hex AES-256 key every block is sealed with.
	// FallbackKeys still open blocks written under earlier keys.
	EncryptionKey string   `yaml:"encryption_key" json:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// Config is the content of a run configuration file.
type Config struct {
	Variant        string `yaml:"variant" json:"variant"`
	Dimension      int    `yaml:"dimension" json:"dimension"`
	Width          int    `yaml:"width" json:"width"`
	InitialValue   int64  `yaml:"initial_value" json:"initial_value"`
	Background     int64  `yaml:"background" json:"background"`
	Mode           string `yaml:"mode" json:"mode"`
	Threads        int    `yaml:"threads" json:"threads"`
	BlockSizeBytes int64  `yaml:"block_size_bytes" json:"block_size_bytes"`

	Steps       int64 `yaml:"steps" json:"steps"`
	BackupEvery int64 `yaml:"backup_every" json:"backup_every"`

	// Store holds the swap blocks of the run. Backup, if set, receives the periodic backups.
	Store  StoreConfig `yaml:"store" json:"store"`
	Backup StoreConfig `yaml:"backup" json:"backup"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	d := toppling.DefaultConfig()
	return Config{
		Variant:        string(d.Variant),
		Dimension:      d.Dimension,
		Width:          d.Width,
		InitialValue:   d.InitialValue,
		Mode:           string(d.Mode),
		Threads:        d.Threads,
		BlockSizeBytes: d.BlockSizeBytes,
		Store:          StoreConfig{Kind: StoreMemory},
		LogLevel:       "info",
	}
}

// Load reads a YAML or JSON file over the defaults. Fields the file omits keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the run settings and both stores.
func (c Config) Validate() error {
	if err := c.Model().Validate(); err != nil {
		return err
	}
	if c.Steps < 0 || c.BackupEvery < 0 {
		return fmt.Errorf("%w: negative steps or backup interval", domain.ErrInvalidConfig)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.Backup.Kind != "" {
		if err := c.Backup.Validate(); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}
	return nil
}

// Validate checks that the fields the store kind needs are set.
func (s StoreConfig) Validate() error {
	switch s.Kind {
	case StoreMemory:
	case StoreFile:
		if s.Dir == "" {
			return fmt.Errorf("%w: file store needs dir", domain.ErrInvalidConfig)
		}
	case StoreRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("%w: redis store needs redis_addr", domain.ErrInvalidConfig)
		}
	case StoreSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite store needs sqlite_path", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store kind %q", domain.ErrInvalidConfig, s.Kind)
	}
	if _, err := s.Encryption(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	return nil
}

// Encryption decodes the keys of the store. It returns nil when no key is set.
func (s StoreConfig) Encryption() (*middleware.EncryptionConfig, error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, errors.New("fallback keys without an encryption key")
		}
		return nil, nil
	}
	active, err := middleware.ParseKey(s.EncryptionKey)
	if err != nil {
		return nil, err
	}
	cfg := &middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range s.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("fallback key: %w", err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return cfg, nil
}

// Model returns the model part of the configuration.
func (c Config) Model() toppling.Config {
	return toppling.Config{
		Variant:        domain.Variant(c.Variant),
		Dimension:      c.Dimension,
		Width:          c.Width,
		InitialValue:   c.InitialValue,
		Background:     c.Background,
		Mode:           domain.Mode(c.Mode),
		Threads:        c.Threads,
		BlockSizeBytes: c.BlockSizeBytes,
	}
}
