package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"
)

type ValidationMode int

const (
	ValidationFull ValidationMode = iota
	ValidationReader
)

type Config struct {
	Keys    KeysConfig    `yaml:"keys"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Output  OutputConfig  `yaml:"output"`
}

type KeysConfig struct {
	RetailKeyFile string `yaml:"retail_key_file" env:"AMIIBO_KEY_FILE"`
}

type OracleConfig struct {
	Command string `yaml:"command" env:"AMIIBO_ORACLE"`
}

type RuntimeConfig struct {
	ReaderIndex *int   `yaml:"reader_index" env:"AMIIBO_READER_INDEX"`
	LogFormat   string `yaml:"log_format"   env:"AMIIBO_LOG_FORMAT"`
}

type OutputConfig struct {
	Overwrite *bool `yaml:"overwrite" env:"AMIIBO_OVERWRITE"`
}

// Load reads the YAML file at path and applies environment overrides.
// When optional is set, a missing file yields an empty config.
func Load(path string, optional bool) (*Config, error) {
	var cfg Config
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
		cfg.resolvePaths(path)
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithMode loads and validates in one step.
func LoadWithMode(path string, mode ValidationMode) (*Config, error) {
	cfg, err := Load(path, false)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateWithMode(mode); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from AMIIBO_* environment variables. Unset
// variables leave the current values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	return c.ValidateWithMode(ValidationFull)
}

func (c *Config) ValidateWithMode(mode ValidationMode) error {
	if err := c.validateCommon(); err != nil {
		return err
	}

	switch mode {
	case ValidationReader:
		return nil
	case ValidationFull:
		return c.validateFullMode()
	default:
		return fmt.Errorf("unsupported validation mode: %d", mode)
	}
}

func (c *Config) validateCommon() error {
	if c.Runtime.ReaderIndex != nil && *c.Runtime.ReaderIndex < 0 {
		return fmt.Errorf("config.runtime.reader_index must be >= 0")
	}
	switch c.Runtime.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.runtime.log_format must be text or json, got %q", c.Runtime.LogFormat)
	}
	return nil
}

func (c *Config) validateFullMode() error {
	if strings.TrimSpace(c.Keys.RetailKeyFile) == "" {
		return fmt.Errorf("config.keys.retail_key_file is required")
	}
	if err := validateReadableFile(c.Keys.RetailKeyFile, "config.keys.retail_key_file"); err != nil {
		return err
	}

	if strings.TrimSpace(c.Oracle.Command) == "" {
		return fmt.Errorf("config.oracle.command is required")
	}
	args, err := shellwords.Parse(c.Oracle.Command)
	if err != nil {
		return fmt.Errorf("config.oracle.command is invalid: %w", err)
	}
	if len(args) == 0 {
		return fmt.Errorf("config.oracle.command is required")
	}
	return nil
}

// ReaderIndex returns the configured reader, defaulting to the first.
func (c *Config) ReaderIndex() int {
	if c.Runtime.ReaderIndex == nil {
		return 0
	}
	return *c.Runtime.ReaderIndex
}

// Overwrite reports whether existing output files may be replaced without
// asking.
func (c *Config) Overwrite() bool {
	return c.Output.Overwrite != nil && *c.Output.Overwrite
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	c.Keys.RetailKeyFile = resolvePath(configDir, c.Keys.RetailKeyFile)
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path string, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
