// Package config loads the pf client configuration from defaults, an
// optional YAML file and STOCKFOLIO_* environment variables. Command line
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/and161185/stockfolio/internal/credstore"
	"github.com/and161185/stockfolio/internal/validate"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

const envPrefix = "STOCKFOLIO_"

type Config struct {
	API       string        `yaml:"api" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	CACert    string        `yaml:"cacert"`
	Insecure  bool          `yaml:"insecure"`
	Store     string        `yaml:"store" validate:"oneof=file redis memory"`
	StoreDir  string        `yaml:"store_dir"`
	RedisAddr string        `yaml:"redis_addr" validate:"required_if=Store redis"`
	Namespace string        `yaml:"namespace" validate:"required"`
	LogLevel  string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string        `yaml:"log_format" validate:"oneof=json console"`
}

func Default() Config {
	return Config{
		API:       "https://localhost:7007/api/client",
		Timeout:   10 * time.Second,
		Store:     StoreFile,
		Namespace: credstore.DefaultNamespace,
		LogLevel:  "warn",
		LogFormat: "console",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/stockfolio/config.yaml.
func DefaultPath() string {
	return filepath.Join(credstore.DefaultDir(), "config.yaml")
}

// Load layers the YAML file at path and the environment over the defaults.
// A missing file is only an error when explicit is set. getenv is usually
// os.Getenv.
func Load(path string, explicit bool, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	str := map[string]*string{
		"API":        &c.API,
		"STORE":      &c.Store,
		"STORE_DIR":  &c.StoreDir,
		"REDIS_ADDR": &c.RedisAddr,
		"NAMESPACE":  &c.Namespace,
		"LOG_LEVEL":  &c.LogLevel,
		"LOG_FORMAT": &c.LogFormat,
		"CACERT":     &c.CACert,
	}
	for k, dst := range str {
		if v := getenv(envPrefix + k); v != "" {
			*dst = v
		}
	}
	if v := getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	if v := getenv(envPrefix + "INSECURE"); v == "1" || v == "true" {
		c.Insecure = true
	}
	return nil
}

// Validate checks the final, fully layered config.
func (c Config) Validate() error {
	return validate.Struct(c)
}
