package models

import (
	"fmt"
	"time"
)

// EncodingProgress holds the metrics FFmpeg reports on its -progress stream
// for a single task.
type EncodingProgress struct {
	TaskID string

	Frame   int64         // Current frame number
	FPS     float64       // Frames per second being processed
	OutTime time.Duration // Position reached in the output

	Bitrate   string  // e.g. "1280.0kbits/s"
	Speed     float64 // Multiplier over realtime, 2.0 means twice realtime
	TotalSize int64   // Bytes written so far

	// Expected output duration, used for the percentage. Zero when unknown.
	TotalDuration time.Duration
	Progress      float64 // 0-100

	State     ProgressState
	StartTime time.Time
	UpdatedAt time.Time
}

// ProgressState is the lifecycle state of a task.
type ProgressState string

const (
	ProgressStateQueued    ProgressState = "queued"
	ProgressStateStarting  ProgressState = "starting"
	ProgressStateEncoding  ProgressState = "encoding"
	ProgressStateCompleted ProgressState = "completed"
	ProgressStateFailed    ProgressState = "failed"
	ProgressStateCancelled ProgressState = "cancelled"
)

// ProgressCallback receives progress updates while a task runs.
type ProgressCallback func(progress *EncodingProgress)

// NewEncodingProgress creates a progress tracker for a task expected to
// produce totalDuration of output.
func NewEncodingProgress(taskID string, totalDuration time.Duration) *EncodingProgress {
	now := time.Now()
	return &EncodingProgress{
		TaskID:        taskID,
		TotalDuration: totalDuration,
		State:         ProgressStateQueued,
		StartTime:     now,
		UpdatedAt:     now,
	}
}

// SetOutTime records the current output position and recomputes Progress.
func (ep *EncodingProgress) SetOutTime(d time.Duration) {
	ep.OutTime = d
	if ep.TotalDuration > 0 {
		ep.Progress = float64(d) / float64(ep.TotalDuration) * 100
		if ep.Progress > 100 {
			ep.Progress = 100
		}
		if ep.Progress < 0 {
			ep.Progress = 0
		}
	}
	ep.UpdatedAt = time.Now()
}

// Complete marks the task finished at 100%.
func (ep *EncodingProgress) Complete() {
	ep.State = ProgressStateCompleted
	ep.Progress = 100
	ep.UpdatedAt = time.Now()
}

// EstimatedTimeRemaining extrapolates from elapsed wall time and Progress.
func (ep *EncodingProgress) EstimatedTimeRemaining() time.Duration {
	if ep.Speed <= 0 || ep.Progress <= 0 {
		return 0
	}

	elapsed := time.Since(ep.StartTime)
	totalEstimated := time.Duration(float64(elapsed) / (ep.Progress / 100))
	remaining := totalEstimated - elapsed

	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatSummary returns a one-line human-readable summary.
func (ep *EncodingProgress) FormatSummary() string {
	return fmt.Sprintf(
		"Progress: %.1f%% | Speed: %.2fx | Bitrate: %s | ETA: %s",
		ep.Progress,
		ep.Speed,
		ep.Bitrate,
		formatETA(ep.EstimatedTimeRemaining()),
	)
}

func formatETA(d time.Duration) string {
	if d == 0 {
		return "calculating..."
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	seconds %= 60
	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes %= 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}
