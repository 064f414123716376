// Package concatenator joins extracted segment files with ffmpeg's concat
// demuxer.
package concatenator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chaptertrim/command"
	"chaptertrim/ffmpeg"
	"chaptertrim/models"
)

// ListFileName is the name of the concat list written to the work directory.
const ListFileName = "concat_list.txt"

// Concatenator merges segment files, in the order given, into one output.
type Concatenator struct {
	runner     *ffmpeg.Runner
	inputs     []string
	outputPath string
	listPath   string

	progressCallback models.ProgressCallback
}

// NewConcatenator creates a concatenator. inputs must be in source timeline
// order. The list file is written to workDir when the command runs.
func NewConcatenator(runner *ffmpeg.Runner, inputs []string, outputPath, workDir string) *Concatenator {
	return &Concatenator{
		runner:     runner,
		inputs:     append([]string(nil), inputs...),
		outputPath: outputPath,
		listPath:   filepath.Join(workDir, ListFileName),
	}
}

// SetProgressCallback sets a callback for progress updates
func (c *Concatenator) SetProgressCallback(callback models.ProgressCallback) *Concatenator {
	c.progressCallback = callback
	return c
}

// BuildArgs returns the concat demuxer arguments.
func (c *Concatenator) BuildArgs() []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", c.listPath,
		"-c", "copy", // Copy without re-encoding
		"-movflags", "+faststart",
		"-y",
		c.outputPath,
	}
}

// Run checks every input exists, writes the list file and runs ffmpeg. The
// list file is removed afterwards. In dry-run mode nothing is written.
func (c *Concatenator) Run(ctx context.Context) error {
	if len(c.inputs) == 0 {
		return fmt.Errorf("no segment files to concatenate")
	}

	if c.runner.DryRun() {
		return c.runner.Run(ctx, c.job())
	}

	if err := c.checkInputs(); err != nil {
		return err
	}
	if err := c.createConcatFile(); err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(c.listPath)

	if err := c.runner.Run(ctx, c.job()); err != nil {
		return err
	}

	// Verify output file was created
	if _, err := os.Stat(c.outputPath); err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	return nil
}

// checkInputs reports every missing segment file at once.
func (c *Concatenator) checkInputs() error {
	var missing []string
	for _, path := range c.inputs {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, filepath.Base(path))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing segment files: %s", strings.Join(missing, ", "))
	}
	return nil
}

// createConcatFile writes one "file '<abs path>'" line per input.
func (c *Concatenator) createConcatFile() error {
	content, err := ListContent(c.inputs)
	if err != nil {
		return err
	}
	return os.WriteFile(c.listPath, []byte(content), 0o644)
}

// ListContent renders a concat demuxer list for paths. Paths are made
// absolute and single quotes are escaped the way the concat demuxer expects.
func ListContent(paths []string) (string, error) {
	var b strings.Builder
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path for %s: %w", path, err)
		}
		escapedPath := strings.ReplaceAll(absPath, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escapedPath)
	}
	return b.String(), nil
}

func (c *Concatenator) job() ffmpeg.Job {
	job := command.Job("concat", c)
	job.Progress = c.progressCallback
	return job
}

// DryRun returns the command that would be executed.
func (c *Concatenator) DryRun() (string, error) {
	if len(c.inputs) == 0 {
		return "", fmt.Errorf("no segment files to concatenate")
	}
	return c.runner.CommandLine(c.job()), nil
}

// Description names how many segments are merged.
func (c *Concatenator) Description() string {
	return fmt.Sprintf("Merging %d segments", len(c.inputs))
}

// GetTaskType returns TaskTypeConcat.
func (c *Concatenator) GetTaskType() command.TaskType {
	return command.TaskTypeConcat
}

// GetInputPath returns the list file path.
func (c *Concatenator) GetInputPath() string {
	return c.listPath
}

// GetOutputPath returns the merged video path.
func (c *Concatenator) GetOutputPath() string {
	return c.outputPath
}

// Inputs returns the segment files in merge order.
func (c *Concatenator) Inputs() []string {
	return append([]string(nil), c.inputs...)
}
