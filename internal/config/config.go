package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the server and the sync client.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Sync   SyncConfig   `yaml:"sync"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Secret       string `yaml:"secret"`
	MaxBodyBytes int64  `yaml:"maxBodyBytes"`
}

// StoreConfig selects the document backend. Backend is one of "sqlite",
// "file", or "remote".
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	RemoteURL string `yaml:"remoteUrl"`
	CachePath string `yaml:"cachePath"`
}

type SyncConfig struct {
	ModelName          string        `yaml:"modelName"`
	NumLayers          int           `yaml:"numLayers"`
	NumHeads           int           `yaml:"numHeads"`
	LocalSaveDebounce  time.Duration `yaml:"localSaveDebounce"`
	RemoteSaveDebounce time.Duration `yaml:"remoteSaveDebounce"`
	PollInterval       time.Duration `yaml:"pollInterval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Store: StoreConfig{
			Backend:   "sqlite",
			Path:      "headnotes.db",
			CachePath: defaultCachePath(),
		},
		Sync: SyncConfig{
			ModelName:          "gpt2-small",
			NumLayers:          12,
			NumHeads:           12,
			LocalSaveDebounce:  300 * time.Millisecond,
			RemoteSaveDebounce: time.Second,
			PollInterval:       30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("HEADNOTES_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("HEADNOTES_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("HEADNOTES_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEADNOTES_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if secret := os.Getenv("HEADNOTES_SECRET"); secret != "" {
		cfg.Server.Secret = secret
	}
	if backend := os.Getenv("HEADNOTES_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if path := os.Getenv("HEADNOTES_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if url := os.Getenv("HEADNOTES_REMOTE_URL"); url != "" {
		cfg.Store.RemoteURL = url
	}
	if path := os.Getenv("HEADNOTES_CACHE_PATH"); path != "" {
		cfg.Store.CachePath = path
	}
	if model := os.Getenv("HEADNOTES_MODEL_NAME"); model != "" {
		cfg.Sync.ModelName = model
	}
	if layers := os.Getenv("HEADNOTES_NUM_LAYERS"); layers != "" {
		n, err := strconv.Atoi(layers)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEADNOTES_NUM_LAYERS: %w", err)
		}
		cfg.Sync.NumLayers = n
	}
	if heads := os.Getenv("HEADNOTES_NUM_HEADS"); heads != "" {
		n, err := strconv.Atoi(heads)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEADNOTES_NUM_HEADS: %w", err)
		}
		cfg.Sync.NumHeads = n
	}
	if interval := os.Getenv("HEADNOTES_POLL_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEADNOTES_POLL_INTERVAL: %w", err)
		}
		cfg.Sync.PollInterval = d
	}
	if level := os.Getenv("HEADNOTES_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "sqlite", "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
		}
	case "remote":
		if c.Store.RemoteURL == "" {
			return fmt.Errorf("store.remoteUrl is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".headnotes/cache.json"
	}
	return home + "/.headnotes/cache.json"
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
