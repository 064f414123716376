package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskResult is the outcome of one FFmpeg task: a segment extraction, a
// split cut or the final concatenation.
//
// Successful results carry an output path and no error; failed results carry
// an error and no output path. Use NewTaskSuccess or NewTaskFailure to build
// validated instances.
type TaskResult struct {
	TaskID     string        `json:"task_id"`
	OutputPath string        `json:"output_path"`
	Success    bool          `json:"success"`
	Error      error         `json:"-"`
	Elapsed    time.Duration `json:"elapsed"`
}

// NewTaskSuccess creates a successful TaskResult.
//
// Example:
//
//	result, err := models.NewTaskSuccess("extract-0", "/tmp/segment_000.mp4", 3*time.Second)
func NewTaskSuccess(taskID, outputPath string, elapsed time.Duration) (*TaskResult, error) {
	r := &TaskResult{
		TaskID:     taskID,
		OutputPath: outputPath,
		Success:    true,
		Elapsed:    elapsed,
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task result: %w", err)
	}
	return r, nil
}

// NewTaskFailure creates a failed TaskResult. taskErr must not be nil.
func NewTaskFailure(taskID string, taskErr error, elapsed time.Duration) (*TaskResult, error) {
	if taskErr == nil {
		return nil, fmt.Errorf("invalid task result: error cannot be nil for failed result")
	}
	r := &TaskResult{
		TaskID:  taskID,
		Success: false,
		Error:   taskErr,
		Elapsed: elapsed,
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task result: %w", err)
	}
	return r, nil
}

// Validate checks that the result is internally consistent.
//
// Returns an error if:
//   - TaskID is empty
//   - Success is true but Error is set, or OutputPath is empty
//   - Success is false but Error is nil, or OutputPath is set
//   - Elapsed is negative
func (r *TaskResult) Validate() error {
	if strings.TrimSpace(r.TaskID) == "" {
		return fmt.Errorf("task_id cannot be empty")
	}
	if r.Elapsed < 0 {
		return fmt.Errorf("elapsed cannot be negative")
	}

	if r.Success {
		if r.Error != nil {
			return fmt.Errorf("inconsistent state: Success is true but Error is not nil")
		}
		if strings.TrimSpace(r.OutputPath) == "" {
			return fmt.Errorf("output_path cannot be empty for successful result")
		}
		return nil
	}

	if r.Error == nil {
		return fmt.Errorf("failed result must have an error")
	}
	if strings.TrimSpace(r.OutputPath) != "" {
		return fmt.Errorf("failed result should not have output_path")
	}
	return nil
}
