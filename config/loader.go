package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("unsupported config file extension %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// LoadConfigFile loads configuration from a YAML or TOML file, chosen by
// extension. Keys missing from the file keep their defaults.
func LoadConfigFile(path string) (*Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	switch f {
	case formatTOML:
		err = decodeTOML(data, cfg)
	default:
		err = decodeYAML(data, cfg)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths lists the config file locations checked when --config is not
// given, in order.
func SearchPaths() []string {
	var paths []string
	add := func(dir, name string) {
		for _, ext := range []string{".yaml", ".yml", ".toml"} {
			paths = append(paths, filepath.Join(dir, name+ext))
		}
	}
	add(".", "chaptertrim")
	if home, err := os.UserHomeDir(); err == nil {
		add(filepath.Join(home, ".chaptertrim"), "config")
	}
	add("/etc/chaptertrim", "config")
	return paths
}

// FindConfigFile searches for a config file in standard locations
// Returns empty string if not found (non-fatal)
func FindConfigFile() string {
	for _, path := range SearchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// SaveConfigFile saves configuration as YAML or TOML, chosen by extension
func SaveConfigFile(cfg *Config, path string) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}

	var data []byte
	switch f {
	case formatTOML:
		data, err = encodeTOML(cfg)
	default:
		data, err = encodeYAML(cfg)
	}
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadConfig loads configuration with priority: CLI flags > Config file > Defaults.
// args are the positional CHAPTER_FILE and VIDEO_FILE.
func LoadConfig(flags *Flags, args []string) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. Config file from --config, else the search path
	configPath := flags.ConfigPath()
	if configPath == "" {
		configPath = FindConfigFile()
	}
	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	// 3. Explicitly set flags win
	cfg.MergeFromFlags(flags)

	if len(args) > 0 {
		cfg.ChapterFile = args[0]
	}
	if len(args) > 1 {
		cfg.Input = args[1]
	}

	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
