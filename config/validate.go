package config

import (
	"fmt"
	"os"
	"strings"

	"chaptertrim/gpu"
	"chaptertrim/split"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errors []string

	// Required fields
	errors = appendFileCheck(errors, "chapter file", c.ChapterFile)
	errors = appendFileCheck(errors, "input file", c.Input)

	if c.Quiet && c.Verbose {
		errors = append(errors, "quiet and verbose cannot both be set")
	}

	if !IsValidLogFormat(c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s', must be one of: %s",
			c.LogFormat, strings.Join(LogFormatValues(), ", ")))
	}

	if _, err := gpu.ParseKind(c.GPU); err != nil {
		errors = append(errors, err.Error())
	}

	if c.ExcludePrefix == "" {
		errors = append(errors, "exclude prefix cannot be empty")
	}

	// Validate workers (0 is valid, means auto-detect)
	if c.Workers < 0 {
		errors = append(errors, "workers cannot be negative (use 0 for auto-detect)")
	}

	if c.Split {
		if _, err := split.FormatName(c.SplitPattern, 1, "Title"); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.FFmpegPath == "" {
		errors = append(errors, "ffmpeg path is required")
	}
	if c.FFprobePath == "" {
		errors = append(errors, "ffprobe path is required")
	}

	if c.Input != "" && c.Output != "" && !c.Split && samePath(c.Input, c.Output) {
		errors = append(errors, "output file must differ from the input file")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func appendFileCheck(errors []string, label, path string) []string {
	if path == "" {
		return append(errors, label+" is required")
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return append(errors, fmt.Sprintf("%s does not exist: %s", label, path))
	case err != nil:
		return append(errors, fmt.Sprintf("%s: %v", label, err))
	case info.IsDir():
		return append(errors, fmt.Sprintf("%s is a directory: %s", label, path))
	}
	return errors
}

func samePath(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
