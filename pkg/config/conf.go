// Package config reads and writes the YAML configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"
	dirMode  = 0700
	fileMode = 0600

	DefaultHost = "0.0.0.0"
	DefaultPort = 8080

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	FormatCLI  = "cli"
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents app config object.
type Config struct {
	LogLevel  string    `yaml:"log_level"`
	LogFormat string    `yaml:"log_format"`
	Server    Server    `yaml:"server"`
	Storage   Storage   `yaml:"storage"`
	Artifacts Artifacts `yaml:"artifacts"`
	Scoring   Scoring   `yaml:"scoring"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Storage struct {
	Driver string `yaml:"driver"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `yaml:"dsn"`
}

type Artifacts struct {
	Preprocessor string `yaml:"preprocessor"`
	Model        string `yaml:"model"`
}

type Scoring struct {
	// Audit records every score in the store.
	Audit bool `yaml:"audit"`
}

// Default returns the configuration written on first run. Relative paths
// are resolved against dir.
func Default(dir string) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: FormatCLI,
		Server: Server{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Storage: Storage{
			Driver: DriverSQLite,
			DSN:    filepath.Join(dir, "data.db"),
		},
		Artifacts: Artifacts{
			Preprocessor: filepath.Join(dir, "preprocessor.json"),
			Model:        filepath.Join(dir, "model.json"),
		},
		Scoring: Scoring{
			Audit: true,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port: %d", c.Server.Port)
	}
	if !slices.Contains([]string{DriverSQLite, DriverPostgres}, c.Storage.Driver) {
		return errors.Errorf("invalid storage driver: %q (expected %s or %s)", c.Storage.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Storage.DSN == "" {
		return errors.New("storage dsn required")
	}
	if !slices.Contains([]string{FormatCLI, FormatText, FormatJSON}, c.LogFormat) {
		return errors.Errorf("invalid log format: %q", c.LogFormat)
	}
	return nil
}

// Save writes c to FileName in dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, FileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", path)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default(dirPath)); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	return Read(path)
}

// Read loads a config file. Settings missing from the file keep their
// defaults relative to the file's directory.
func Read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	c := Default(filepath.Dir(path))
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}
	return c, nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir: %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
