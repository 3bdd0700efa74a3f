package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is consulted when no -config flag is given. Its absence is not an error.
const DefaultPath = ".sweeper.yaml"

// DefaultPattern selects generated message-definition files.
const DefaultPattern = "*.idl"

type MetricsCfg struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"` // node-exporter textfile collector output
}

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                   // Optional log file in addition to stderr
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
	Debug        bool   `yaml:"debug" json:"debug"`
}

type Config struct {
	Root           string     `yaml:"root" json:"root"`
	Pattern        string     `yaml:"pattern" json:"pattern"`
	MaxDepth       int        `yaml:"max_depth" json:"max_depth"` // 0 = unlimited
	ProtectedPaths []string   `yaml:"protected_paths" json:"protected_paths"`
	DatabasePath   string     `yaml:"database_path" json:"database_path"` // SQLite run history, disabled when empty
	Metrics        MetricsCfg `yaml:"metrics" json:"metrics"`
	Logging        LoggingCfg `yaml:"logging" json:"logging"`
}

var (
	errEmptyPattern   = errors.New("pattern must not be empty")
	errNegativeDepth  = errors.New("max_depth cannot be negative")
	errRelativeExtra  = errors.New("protected path must be absolute")
	errNegativeRotate = errors.New("rotation_days cannot be negative")
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validateAndDefault(); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration at path. When optional is true a missing file
// yields the defaults instead of an error.
func Load(path string, optional bool) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// empty file
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Validate re-checks the configuration after flag overrides were applied.
func (c *Config) Validate() error {
	return c.validateAndDefault()
}

func (c *Config) validateAndDefault() error {
	if c.Root == "" {
		c.Root = "."
	}

	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if strings.TrimSpace(c.Pattern) == "" {
		return errEmptyPattern
	}

	if c.MaxDepth < 0 {
		return errNegativeDepth
	}

	if c.Logging.RotationDays < 0 {
		return errNegativeRotate
	}
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30
	}

	cleaned := make([]string, 0, len(c.ProtectedPaths))
	for _, p := range c.ProtectedPaths {
		cp := filepath.Clean(p)
		if !filepath.IsAbs(cp) {
			return fmt.Errorf("%w: %s", errRelativeExtra, p)
		}
		cleaned = append(cleaned, cp)
	}
	c.ProtectedPaths = cleaned

	return nil
}
