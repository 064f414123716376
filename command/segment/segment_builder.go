// Package segment builds the ffmpeg command that cuts one chapter into its
// own file in split mode.
package segment

import (
	"context"
	"fmt"

	"chaptertrim/command"
	"chaptertrim/ffmpeg"
	"chaptertrim/gpu"
	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
)

// SegmentBuilder builds FFmpeg commands that write one chapter to a file.
type SegmentBuilder struct {
	runner     *ffmpeg.Runner
	sourcePath string
	outputPath string
	span       models.Segment
	number     int
	title      string

	splitSafe bool
	encoder   *gpu.Encoder

	progressCallback models.ProgressCallback
}

// NewSegmentBuilder creates a builder for chapter number (1-based) covering
// span.
func NewSegmentBuilder(runner *ffmpeg.Runner, sourcePath string, span models.Segment, outputPath string) *SegmentBuilder {
	return &SegmentBuilder{
		runner:     runner,
		sourcePath: sourcePath,
		outputPath: outputPath,
		span:       span,
		number:     1,
	}
}

// SetChapter sets the chapter number and title used in logs.
func (s *SegmentBuilder) SetChapter(number int, title string) *SegmentBuilder {
	s.number = number
	s.title = title
	return s
}

// SetSplitSafe re-encodes the chapter for clean cuts. enc may be nil for
// libx264.
func (s *SegmentBuilder) SetSplitSafe(enabled bool, enc *gpu.Encoder) *SegmentBuilder {
	s.splitSafe = enabled
	s.encoder = enc
	return s
}

// SetProgressCallback sets a callback for progress updates
func (s *SegmentBuilder) SetProgressCallback(callback models.ProgressCallback) *SegmentBuilder {
	s.progressCallback = callback
	return s
}

// BuildArgs constructs the FFmpeg command arguments for one chapter.
// Without split-safe the streams are copied after an input-side seek.
func (s *SegmentBuilder) BuildArgs() []string {
	start := timeutil.FormatFFmpeg(s.span.Start)

	var args []string
	if s.splitSafe {
		args = []string{"-i", s.sourcePath, "-ss", start}
	} else {
		args = []string{"-ss", start, "-i", s.sourcePath}
	}

	if d, ok := s.span.Duration(); ok {
		args = append(args, "-t", timeutil.FormatFFmpeg(d))
	}

	if s.splitSafe {
		if s.encoder != nil {
			args = append(args, s.encoder.Args()...)
		} else {
			args = append(args, "-c:v", "libx264", "-crf", "18", "-preset", "fast")
		}
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	} else {
		args = append(args, "-c", "copy", "-avoid_negative_ts", "make_zero")
	}

	return append(args, "-movflags", "+faststart", "-y", s.outputPath)
}

// TaskID returns the id used for this chapter's task.
func (s *SegmentBuilder) TaskID() string {
	return fmt.Sprintf("split-%03d", s.number)
}

func (s *SegmentBuilder) job() ffmpeg.Job {
	job := command.Job(s.TaskID(), s)
	if s.progressCallback != nil {
		job.Progress = s.progressCallback
		job.Duration, _ = s.span.Duration()
	}
	return job
}

// Run executes the split command.
func (s *SegmentBuilder) Run(ctx context.Context) error {
	return s.runner.Run(ctx, s.job())
}

// DryRun returns the command string without executing.
func (s *SegmentBuilder) DryRun() (string, error) {
	if s.sourcePath == "" || s.outputPath == "" {
		return "", fmt.Errorf("split chapter %d: source and output paths are required", s.number)
	}
	return s.runner.CommandLine(s.job()), nil
}

// Description names the chapter being written.
func (s *SegmentBuilder) Description() string {
	if s.title == "" {
		return fmt.Sprintf("Extracting chapter %d", s.number)
	}
	return fmt.Sprintf("Extracting chapter %d: %s", s.number, s.title)
}

// GetTaskType returns TaskTypeSplit.
func (s *SegmentBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeSplit
}

// GetInputPath returns the source file path.
func (s *SegmentBuilder) GetInputPath() string {
	return s.sourcePath
}

// GetOutputPath returns the chapter file path.
func (s *SegmentBuilder) GetOutputPath() string {
	return s.outputPath
}
