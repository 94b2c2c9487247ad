// Package config loads qcmbank settings from a YAML file, an optional .env
// file and QCMBANK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QCMBANK_"

// DefaultFile is read when no config path is given and it exists.
const DefaultFile = "qcmbank.yaml"

type Config struct {
	LogMode     string `yaml:"log_mode"`
	LogLevel    string `yaml:"log_level"`
	ProfilesDir string `yaml:"profiles_dir"`
	Database    string `yaml:"database"`
	ListenAddr  string `yaml:"listen_addr"`
	Workers     int    `yaml:"workers"`

	// MaxBodyBytes bounds the request body accepted by the HTTP server.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

func Default() Config {
	return Config{
		LogMode:      "dev",
		LogLevel:     "info",
		Database:     "qcmbank.db",
		ListenAddr:   ":8080",
		Workers:      runtime.NumCPU(),
		MaxBodyBytes: 4 << 20,
	}
}

// Load builds the configuration. A missing file at path is an error; a
// missing DefaultFile or .env file is not.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_MODE":     &c.LogMode,
		"LOG_LEVEL":    &c.LogLevel,
		"PROFILES_DIR": &c.ProfilesDir,
		"DATABASE":     &c.Database,
		"LISTEN_ADDR":  &c.ListenAddr,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup(EnvPrefix + "WORKERS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", EnvPrefix, err)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvPrefix + "MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, err)
		}
		c.MaxBodyBytes = n
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}
