package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath         = "/opt/apt-mirror-system/config.yaml"
	DefaultScansDir     = "/opt/apt-mirror-system/scans"
	DefaultApprovalsDir = "/opt/apt-mirror-system/approvals"
	DefaultLogsDir      = "/opt/apt-mirror-system/logs"
	DefaultMaxAgeHours  = 48
	DefaultLogLevel     = "INFO"
)

// Config represents the safe-apt configuration file
type Config struct {
	System    SystemConfig    `yaml:"system"`
	Publisher PublisherConfig `yaml:"publisher"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Source is the file the configuration was read from, empty for the embedded default
	Source string `yaml:"-"`
}

// SystemConfig holds the directory layout
type SystemConfig struct {
	ScansDir     string `yaml:"scans_dir"`
	ApprovalsDir string `yaml:"approvals_dir"`
	LogsDir      string `yaml:"logs_dir"`
}

// PublisherConfig holds approval policy settings
type PublisherConfig struct {
	MaxScanAgeHours int `yaml:"max_scan_age_hours"`

	// IndexPath points at an optional bbolt scan index used instead of scans_dir
	IndexPath string `yaml:"index_path"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration with fallback:
// 1. Explicit path (--config flag)
// 2. Embedded default (passed as defaultData) when that file does not exist
// Environment variable references in string values are expanded and unset
// fields get their defaults.
func Load(path string, defaultData []byte) (*Config, error) {
	data := defaultData
	source := ""

	if path != "" {
		fileData, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = fileData
			source = path
		case errors.Is(err, fs.ErrNotExist):
			// fall through to the embedded default
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", describe(source), err)
	}
	cfg.Source = source
	return cfg, nil
}

// Parse decodes a YAML document, expanding environment variables and
// applying defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) > 0 {
		expandEnv(&root)
		if err := root.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// expandEnv replaces $VAR and ${VAR} in every string scalar
func expandEnv(node *yaml.Node) {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!str" {
		node.Value = os.ExpandEnv(node.Value)
	}
	for _, child := range node.Content {
		expandEnv(child)
	}
}

// ApplyDefaults fills every unset field with its default
func (c *Config) ApplyDefaults() {
	if c.System.ScansDir == "" {
		c.System.ScansDir = DefaultScansDir
	}
	if c.System.ApprovalsDir == "" {
		c.System.ApprovalsDir = DefaultApprovalsDir
	}
	if c.System.LogsDir == "" {
		c.System.LogsDir = DefaultLogsDir
	}
	if c.Publisher.MaxScanAgeHours <= 0 {
		c.Publisher.MaxScanAgeHours = DefaultMaxAgeHours
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// MaxScanAge returns the freshness window
func (c *Config) MaxScanAge() time.Duration {
	return time.Duration(c.Publisher.MaxScanAgeHours) * time.Hour
}

func describe(source string) string {
	if source == "" {
		return "(embedded default)"
	}
	return source
}
