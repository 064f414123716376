// Package command defines the Command interface shared by every ffmpeg task
// the trimmer schedules.
//
// Builders in the subpackages (extract, segment) and the concatenator
// implement Command, so the orchestrator can run extraction, split and join
// steps without knowing which one it holds.
package command

import (
	"context"
	"fmt"

	"chaptertrim/ffmpeg"
)

// TaskType identifies what a command does.
type TaskType string

const (
	TaskTypeExtract TaskType = "extract" // cut one kept segment
	TaskTypeSplit   TaskType = "split"   // cut one chapter into its own file
	TaskTypeConcat  TaskType = "concat"  // join extracted segments
)

// Command is one ffmpeg invocation that can be built, executed, or
// previewed.
//
// Example usage:
//
//	cmd := extract.NewExtractBuilder(runner, "in.mp4", seg, "tmp/segment_000.mp4").
//		SetMode(extract.ModeAccurate)
//
//	line, _ := cmd.DryRun()
//	err := cmd.Run(ctx)
type Command interface {
	// BuildArgs returns the ffmpeg arguments, without the runner's global
	// flags. The output path is always the last element.
	BuildArgs() []string

	// Run executes the command through its runner. It blocks until ffmpeg
	// exits or ctx is cancelled.
	Run(ctx context.Context) error

	// DryRun returns the full command line without executing it.
	DryRun() (string, error)

	// Description is a short human readable summary used in logs.
	Description() string

	GetTaskType() TaskType
	GetInputPath() string
	GetOutputPath() string
}

// Validate checks that cmd has the paths every command needs.
func Validate(cmd Command) error {
	if cmd.GetInputPath() == "" {
		return fmt.Errorf("%s command has no input path", cmd.GetTaskType())
	}
	if cmd.GetOutputPath() == "" {
		return fmt.Errorf("%s command has no output path", cmd.GetTaskType())
	}
	args := cmd.BuildArgs()
	if len(args) == 0 || args[len(args)-1] != cmd.GetOutputPath() {
		return fmt.Errorf("%s command must end with its output path", cmd.GetTaskType())
	}
	return nil
}

// Job converts cmd into a runner job.
func Job(id string, cmd Command) ffmpeg.Job {
	return ffmpeg.Job{
		TaskID:      id,
		Description: cmd.Description(),
		Args:        cmd.BuildArgs(),
	}
}
