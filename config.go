package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the on-disk configuration. Every field has a usable default, so
// a missing config file is not an error.
type Config struct {
	Backend     string     `json:"backend" yaml:"backend"`
	DataFile    string     `json:"data_file" yaml:"data_file"`
	DatabaseURL string     `json:"database_url" yaml:"database_url"`
	SessionFile string     `json:"session_file" yaml:"session_file"`
	LogFile     string     `json:"log_file" yaml:"log_file"`
	LogLevel    string     `json:"log_level" yaml:"log_level"`
	OIDC        OIDCConfig `json:"oidc" yaml:"oidc"`
}

// OIDCConfig enables id_token verification of sessions when IssuerURL is set.
type OIDCConfig struct {
	IssuerURL string `json:"issuer_url" yaml:"issuer_url"`
	ClientID  string `json:"client_id" yaml:"client_id"`
}

// Enabled reports whether sessions must carry a verified id_token.
func (c OIDCConfig) Enabled() bool { return c.IssuerURL != "" }

// appName names the config, data and log directories.
const appName = "tail-runs"

// defaultConfigPath is $XDG_CONFIG_HOME/tail-runs/config.yaml (or the
// platform equivalent).
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// defaultConfig returns defaults rooted at the user's config and cache dirs.
func defaultConfig() Config {
	cfg := Config{
		Backend:  BackendFile,
		LogLevel: "info",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.DataFile = filepath.Join(dir, appName, "db.json")
		cfg.SessionFile = filepath.Join(dir, appName, "session.json")
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.LogFile = filepath.Join(dir, appName, appName+".log")
	}
	return cfg
}

// loadConfig reads path over the defaults. An empty path means the default
// location, where a missing file is fine; an explicit path must exist.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	if path == "" {
		return cfg, cfg.validate()
	}

	if err := decodeConfigFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, cfg.validate()
		}
		return Config{}, err
	}
	return cfg, cfg.validate()
}

// decodeConfigFile decodes YAML (.yaml/.yml) or JSON (anything else) into cfg.
func decodeConfigFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode YAML config file %s: %w", path, err)
		}
		return nil
	}

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode JSON config file %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendFile:
		if c.DataFile == "" {
			return errors.New("config: data_file is required for the file backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q (want %q or %q)", c.Backend, BackendFile, BackendPostgres)
	}
	if c.SessionFile == "" {
		return errors.New("config: session_file is required")
	}
	if c.OIDC.IssuerURL != "" && c.OIDC.ClientID == "" {
		return errors.New("config: oidc.client_id is required when oidc.issuer_url is set")
	}
	return nil
}
