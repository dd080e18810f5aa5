// Package config reads the ini configuration file.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const DefaultFile = "config/docflow.ini"

type Config struct {
	Server    Server    `ini:"server"`
	Database  Database  `ini:"database"`
	Log       Log       `ini:"log"`
	EventLog  EventLog  `ini:"eventlog"`
	Documents Documents `ini:"documents"`
	Lock      Lock      `ini:"lock"`
}

type Server struct {
	Listen string `ini:"listen"`
	Base   string `ini:"base"` // strip off this prefix from every request, without trailing slash
}

type Database struct {
	URL string `ini:"url"` // see github.com/xo/dburl
}

type Log struct {
	Level  string `ini:"level"`
	Pretty bool   `ini:"pretty"`
}

type EventLog struct {
	MaxEntries int    `ini:"max-entries"`
	Mode       string `ini:"mode"` // truncate or fold
}

type Documents struct {
	Attic     string `ini:"attic"`     // folder of soft-deleted documents
	Retention string `ini:"retention"` // attic or remove
	DocTypes  string `ini:"doctypes"`  // optional yaml file
}

type Lock struct {
	Backend string        `ini:"backend"` // memory or redis
	Redis   string        `ini:"redis"`   // redis url
	TTL     time.Duration `ini:"ttl"`
}

func Default() *Config {
	return &Config{
		Server: Server{
			Listen: "127.0.0.1:8080",
		},
		Database: Database{
			URL: "sqlite3:docflow.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&_txlock=immediate",
		},
		Log: Log{
			Level: "info",
		},
		EventLog: EventLog{
			MaxEntries: 10000,
			Mode:       "truncate",
		},
		Documents: Documents{
			Attic:     "/attic",
			Retention: "attic",
		},
		Lock: Lock{
			Backend: "memory",
			TTL:     30 * time.Second,
		},
	}
}

// Load reads the given file on top of the defaults.
func Load(filename string) (*Config, error) {
	file, err := ini.Load(filename)
	if err != nil {
		return nil, err
	}
	return parse(file)
}

// LoadOptional is like Load, but returns the defaults if the file does not exist.
func LoadOptional(filename string) (*Config, error) {
	file, err := ini.LooseLoad(filename)
	if err != nil {
		return nil, err
	}
	return parse(file)
}

func parse(file *ini.File) (*Config, error) {
	var cfg = Default()
	if err := file.MapTo(cfg); err != nil {
		return nil, fmt.Errorf("mapping config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	cfg.Server.Base = strings.Trim(cfg.Server.Base, "/")
	if cfg.Server.Base != "" {
		cfg.Server.Base = "/" + cfg.Server.Base
	}
	switch cfg.EventLog.Mode {
	case "truncate", "fold":
	default:
		return fmt.Errorf("eventlog.mode: unknown value %q", cfg.EventLog.Mode)
	}
	if cfg.EventLog.MaxEntries < 1 {
		return fmt.Errorf("eventlog.max-entries must be positive")
	}
	switch cfg.Documents.Retention {
	case "attic", "remove":
	default:
		return fmt.Errorf("documents.retention: unknown value %q", cfg.Documents.Retention)
	}
	if !strings.HasPrefix(cfg.Documents.Attic, "/") || cfg.Documents.Attic == "/" {
		return fmt.Errorf("documents.attic must be an absolute folder below the root")
	}
	switch cfg.Lock.Backend {
	case "memory":
	case "redis":
		if cfg.Lock.Redis == "" {
			return fmt.Errorf("lock.redis is required for the redis backend")
		}
	default:
		return fmt.Errorf("lock.backend: unknown value %q", cfg.Lock.Backend)
	}
	return nil
}
