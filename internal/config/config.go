// Package config loads techjournal settings from defaults, an optional YAML
// file and TECHJOURNAL_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "TECHJOURNAL_"
	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv     = envPrefix + "CONFIG"
	defaultConfigFile = "techjournal.yaml"
)

type Config struct {
	// DataDir is the folder scanned by the importer.
	DataDir string `koanf:"data_dir"`
	// StorePath is the badger directory. Empty means in-memory.
	StorePath string `koanf:"store_path"`
	Workers   int    `koanf:"workers"`
	// MaxFiles caps how many files one import run considers; 0 means no cap.
	MaxFiles int `koanf:"max_files"`

	Export ExportConfig `koanf:"export"`
	Log    LogConfig    `koanf:"log"`
}

type ExportConfig struct {
	Format string `koanf:"format"`
	OutDir string `koanf:"out_dir"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func Default() Config {
	return Config{
		DataDir:   "data",
		StorePath: ".techjournal/db",
		Workers:   runtime.NumCPU(),
		MaxFiles:  0,
		Export: ExportConfig{
			Format: "parquet",
			OutDir: "export",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load layers defaults, the YAML file at path (or the file named by
// TECHJOURNAL_CONFIG, or ./techjournal.yaml when present) and the
// environment. An explicitly named file that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
		explicit = path != ""
	}
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps TECHJOURNAL_LOG_LEVEL to log.level and TECHJOURNAL_DATA_DIR to
// data_dir. Variables outside the known sections keep their underscores.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if key == "config" {
		return ""
	}
	for _, section := range []string{"log_", "export_"} {
		if strings.HasPrefix(key, section) {
			return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	return key
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("max_files must not be negative, got %d", c.MaxFiles))
	}
	switch strings.ToLower(c.Export.Format) {
	case "parquet", "csv":
	default:
		errs = append(errs, fmt.Errorf("export.format must be parquet or csv, got %q", c.Export.Format))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
