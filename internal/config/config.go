// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	RepositorySQLite   = "sqlite"
	RepositoryMemory   = "memory"
	RepositoryPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Import     ImportConfig     `yaml:"import"`
	Progress   ProgressConfig   `yaml:"progress"`
	Search     SearchConfig     `yaml:"search"`
	Backup     BackupConfig     `yaml:"backup"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	RateLimit       int           `yaml:"rate_limit"` // requests per minute per client, 0 disables
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path           string        `yaml:"path"` // sqlite file
	URL            string        `yaml:"url"`  // postgres connection string
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
}

type RepositoryConfig struct {
	Type       string `yaml:"type"`        // "sqlite", "memory" or "postgres"
	StatusFile string `yaml:"status_file"` // memory only: legacy status file kept in sync
}

// ImportConfig describes the legacy inputs. Column numbers are 1-based, like the
// spreadsheet they come from.
type ImportConfig struct {
	StatusFile  string        `yaml:"status_file"`
	Spreadsheet string        `yaml:"spreadsheet"`
	Sheet       string        `yaml:"sheet"`
	Columns     ColumnMapping `yaml:"columns"`
}

type ColumnMapping struct {
	URL           int `yaml:"url"`
	Giver         int `yaml:"giver"`
	Life          int `yaml:"life"`
	Rank          int `yaml:"rank"`
	Name          int `yaml:"name"`
	Description   int `yaml:"description"`
	TurnIn        int `yaml:"turn_in"`
	LocationStart int `yaml:"location_start"`
	LocationEnd   int `yaml:"location_end"` // inclusive
}

type ProgressConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type SearchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type BackupConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir"`
	Interval time.Duration `yaml:"interval"`
	Keep     int           `yaml:"keep"`
}

// DefaultColumns is the layout of FLData.xlsx: giver in column 4, rank in column 6.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		URL:           3,
		Giver:         4,
		Life:          5,
		Rank:          6,
		Name:          7,
		Description:   8,
		TurnIn:        9,
		LocationStart: 10,
		LocationEnd:   50,
	}
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            "8080",
			RateLimit:       600,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:           "quest_tracker.db",
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
		},
		Logging: LoggingConfig{
			Development: true,
			Level:       "info",
		},
		Repository: RepositoryConfig{
			Type: RepositorySQLite,
		},
		Import: ImportConfig{
			StatusFile:  "currentprogress.txt",
			Spreadsheet: "FLData.xlsx",
			Sheet:       "Sheet1",
			Columns:     DefaultColumns(),
		},
		Progress: ProgressConfig{
			CacheTTL: time.Second,
		},
		Search: SearchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Backup: BackupConfig{
			Dir:      "backups",
			Interval: 30 * time.Minute,
			Keep:     10,
		},
	}
}

// Load reads path on top of Default. A missing file is not an error: the
// tool runs with defaults until the user writes a config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositorySQLite:
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("config: database.url is required for postgres")
		}
	case RepositoryMemory:
	default:
		return fmt.Errorf("config: unknown repository type %q", c.Repository.Type)
	}

	if c.Server.RateLimit < 0 {
		return errors.New("config: server.rate_limit must not be negative")
	}
	if err := c.Import.Columns.Validate(); err != nil {
		return err
	}
	if c.Progress.CacheTTL < 0 {
		return errors.New("config: progress.cache_ttl must not be negative")
	}
	if c.Search.Debounce < 0 {
		return errors.New("config: search.debounce must not be negative")
	}
	if c.Backup.Enabled {
		if c.Backup.Interval <= 0 {
			return errors.New("config: backup.interval must be positive")
		}
		if c.Backup.Keep <= 0 {
			return errors.New("config: backup.keep must be positive")
		}
	}
	return nil
}

func (m ColumnMapping) Validate() error {
	fields := map[string]int{
		"url":         m.URL,
		"giver":       m.Giver,
		"life":        m.Life,
		"rank":        m.Rank,
		"name":        m.Name,
		"description": m.Description,
		"turn_in":     m.TurnIn,
	}
	seen := make(map[int]string, len(fields))
	for name, col := range fields {
		if col < 1 {
			return fmt.Errorf("config: import.columns.%s must be >= 1", name)
		}
		if other, ok := seen[col]; ok {
			return fmt.Errorf("config: import.columns.%s and %s share column %d", name, other, col)
		}
		seen[col] = name
		if col >= m.LocationStart && col <= m.LocationEnd {
			return fmt.Errorf("config: import.columns.%s overlaps the location columns", name)
		}
	}
	if m.LocationStart < 1 || m.LocationEnd < m.LocationStart {
		return errors.New("config: import.columns location range is empty")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
