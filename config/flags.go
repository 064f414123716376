package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"chaptertrim/gpu"
	"chaptertrim/internal/termui"
)

// Flags are the command-line options bound to a pflag.FlagSet. Only flags
// the user actually set override the config file.
type Flags struct {
	set        *pflag.FlagSet
	values     Config
	configPath string
}

// RegisterFlags defines every chaptertrim option on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	d := DefaultConfig()
	f := &Flags{set: fs}
	v := &f.values

	fs.StringVarP(&f.configPath, "config", "c", "", "Config file, YAML or TOML (default: search ./chaptertrim.yaml, ~/.chaptertrim/config.yaml, /etc/chaptertrim/config.yaml)")

	fs.StringVarP(&v.Output, "output", "o", "", "Output file (default <stem>_edited<ext>), or directory in split mode (default <dir>/<stem>)")
	fs.StringVarP(&v.TempDir, "temp-dir", "t", "", "Directory for temporary segment files (default: auto-created)")
	fs.BoolVarP(&v.KeepTemp, "keep-temp", "k", false, "Keep temporary files")

	fs.BoolVarP(&v.Quiet, "quiet", "q", false, "Only print warnings and errors")
	fs.BoolVarP(&v.Verbose, "verbose", "v", false, "Enable verbose logging")
	fs.StringVar(&v.LogFormat, "log-format", d.LogFormat, "Log format: "+strings.Join(LogFormatValues(), ", "))
	fs.BoolVar(&v.DryRun, "dry-run", false, "Print the plan and ffmpeg commands without running them")

	fs.BoolVar(&v.Accurate, "accurate", false, "Accurate seeking: pre-seek and re-encode video")
	fs.BoolVar(&v.Reencode, "reencode", false, "Full re-encode with parameters derived from the source")
	fs.StringVar(&v.GPU, "gpu", "", "Hardware encoder: "+strings.Join(gpu.Kinds(), ", "))
	fs.BoolVar(&v.SplitSafe, "split-safe", false, "Keyframe-friendly encoding (GOP 60, keyframes at chapters)")
	fs.BoolVar(&v.NoChapters, "no-chapters", false, "Do not write the chapter file")
	fs.StringVar(&v.ExcludePrefix, "exclude-prefix", d.ExcludePrefix, "Chapter title prefix marking segments to cut")
	fs.IntVarP(&v.Workers, "workers", "j", d.Workers, "Parallel extraction workers (0 = CPU count)")

	fs.BoolVar(&v.Split, "split", false, "Split into one file per chapter")
	fs.StringVar(&v.SplitPattern, "split-pattern", d.SplitPattern, "Split file name pattern: {num}, {num:02d}, {title}")

	fs.StringVar(&v.FFmpegPath, "ffmpeg", d.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&v.FFprobePath, "ffprobe", d.FFprobePath, "ffprobe binary")

	fs.BoolVarP(&v.Yes, "yes", "y", false, "Overwrite existing output without prompting")

	return f
}

// ConfigPath returns the --config value.
func (f *Flags) ConfigPath() string { return f.configPath }

// MergeFromFlags overrides config values with every flag set on the command line
func (c *Config) MergeFromFlags(f *Flags) {
	v := &f.values
	changed := f.set.Changed

	if changed("output") {
		c.Output = v.Output
	}
	if changed("temp-dir") {
		c.TempDir = v.TempDir
	}
	if changed("keep-temp") {
		c.KeepTemp = v.KeepTemp
	}

	// An explicit verbosity flag replaces whatever the file chose.
	if changed("quiet") {
		c.Quiet = v.Quiet
		if v.Quiet {
			c.Verbose = false
		}
	}
	if changed("verbose") {
		c.Verbose = v.Verbose
		if v.Verbose {
			c.Quiet = false
		}
	}
	if changed("log-format") {
		c.LogFormat = v.LogFormat
	}
	if changed("dry-run") {
		c.DryRun = v.DryRun
	}

	if changed("accurate") {
		c.Accurate = v.Accurate
	}
	if changed("reencode") {
		c.Reencode = v.Reencode
	}
	if changed("gpu") {
		c.GPU = v.GPU
	}
	if changed("split-safe") {
		c.SplitSafe = v.SplitSafe
	}
	if changed("no-chapters") {
		c.NoChapters = v.NoChapters
	}
	if changed("exclude-prefix") {
		c.ExcludePrefix = v.ExcludePrefix
	}
	if changed("workers") {
		c.Workers = v.Workers
	}

	if changed("split") {
		c.Split = v.Split
	}
	if changed("split-pattern") {
		c.SplitPattern = v.SplitPattern
	}

	if changed("ffmpeg") {
		c.FFmpegPath = v.FFmpegPath
	}
	if changed("ffprobe") {
		c.FFprobePath = v.FFprobePath
	}
	if changed("yes") {
		c.Yes = v.Yes
	}
}

// Rows returns the effective configuration as table rows.
func (c *Config) Rows() [][]string {
	gpuValue := c.GPU
	if gpuValue == "" {
		gpuValue = "off"
	}
	tempDir := c.TempDir
	if tempDir == "" {
		tempDir = "(auto)"
	}
	rows := [][]string{
		{"Chapter file", c.ChapterFile},
		{"Input", c.Input},
		{"Output", c.OutputPath()},
		{"Mode", c.ModeName()},
		{"GPU", gpuValue},
		{"Split-safe", strconv.FormatBool(c.SplitSafe)},
		{"Workers", strconv.Itoa(c.Workers)},
		{"Exclude prefix", fmt.Sprintf("%q", c.ExcludePrefix)},
		{"Temp dir", tempDir},
		{"Keep temp", strconv.FormatBool(c.KeepTemp)},
		{"Write chapters", strconv.FormatBool(!c.NoChapters)},
		{"Log level", c.LogLevel()},
		{"Dry run", strconv.FormatBool(c.DryRun)},
	}
	if c.Split {
		rows = append(rows, []string{"Split pattern", c.SplitPattern})
	}
	return rows
}

// ModeName describes how segments are cut.
func (c *Config) ModeName() string {
	switch {
	case c.Split:
		return "split"
	case c.Reencode:
		return "reencode"
	case c.Accurate:
		return "accurate"
	default:
		return "fast"
	}
}

// PrintConfig renders the effective configuration as a table
func (c *Config) PrintConfig() string {
	return termui.RenderTable([]string{"Setting", "Value"}, c.Rows(), nil)
}
