// Package config resolves chaptertrim's settings from defaults, an optional
// YAML or TOML file and command-line flags, in that order of priority.
package config

import (
	"path/filepath"
	"strings"

	"chaptertrim/chapters"
	"chaptertrim/internal/logging"
	"chaptertrim/split"
)

// Config holds all chaptertrim options
type Config struct {
	// Positional arguments, never read from a file
	ChapterFile string `yaml:"-" toml:"-"`
	Input       string `yaml:"-" toml:"-"`

	Output   string `yaml:"output,omitempty" toml:"output,omitempty"`     // file, or directory in split mode
	TempDir  string `yaml:"temp_dir,omitempty" toml:"temp_dir,omitempty"` // empty = auto-created
	KeepTemp bool   `yaml:"keep_temp" toml:"keep_temp"`

	// Extraction settings
	Accurate      bool   `yaml:"accurate" toml:"accurate"`
	Reencode      bool   `yaml:"reencode" toml:"reencode"`
	GPU           string `yaml:"gpu,omitempty" toml:"gpu,omitempty"` // "", auto, videotoolbox, nvenc, qsv, amf
	SplitSafe     bool   `yaml:"split_safe" toml:"split_safe"`
	Workers       int    `yaml:"workers" toml:"workers"` // 0 = CPU count
	ExcludePrefix string `yaml:"exclude_prefix" toml:"exclude_prefix"`
	NoChapters    bool   `yaml:"no_chapters" toml:"no_chapters"`

	// Split mode
	Split        bool   `yaml:"split" toml:"split"`
	SplitPattern string `yaml:"split_pattern" toml:"split_pattern"`

	// Tools
	FFmpegPath  string `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" toml:"ffprobe_path"`

	// Behavioral flags
	Quiet     bool   `yaml:"quiet" toml:"quiet"`
	Verbose   bool   `yaml:"verbose" toml:"verbose"`
	LogFormat string `yaml:"log_format" toml:"log_format"` // console or json
	DryRun    bool   `yaml:"dry_run" toml:"dry_run"`
	Yes       bool   `yaml:"yes" toml:"yes"` // overwrite without asking
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Workers:       0, // auto-detect CPU count
		ExcludePrefix: chapters.DefaultExcludePrefix,
		SplitPattern:  split.DefaultPattern,
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		LogFormat:     "console",
	}
}

// Copy creates a copy of the config
func (c *Config) Copy() *Config {
	cp := *c
	return &cp
}

// LogFormatValues returns valid log format values
func LogFormatValues() []string {
	return []string{"console", "json"}
}

// IsValidLogFormat checks if format is valid
func IsValidLogFormat(format string) bool {
	for _, valid := range LogFormatValues() {
		if format == valid {
			return true
		}
	}
	return false
}

// LogLevel maps the verbosity flags to a logging level name.
func (c *Config) LogLevel() string {
	return logging.LevelFor(c.Quiet, c.Verbose)
}

// OutputPath returns Output, or the default derived from Input:
// "<dir>/<stem>_edited<ext>", or "<dir>/<stem>" in split mode.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	dir := filepath.Dir(c.Input)
	ext := filepath.Ext(c.Input)
	stem := strings.TrimSuffix(filepath.Base(c.Input), ext)
	if c.Split {
		return filepath.Join(dir, stem)
	}
	return filepath.Join(dir, stem+"_edited"+ext)
}
