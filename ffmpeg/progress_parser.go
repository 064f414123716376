// Package ffmpeg runs ffmpeg and follows its progress output.
package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"chaptertrim/models"
)

// ProgressParser reads the key=value blocks ffmpeg writes with
// "-progress pipe:1". Each block ends with a progress=continue or
// progress=end line.
type ProgressParser struct{}

// NewProgressParser creates a new parser for ffmpeg progress output.
func NewProgressParser() *ProgressParser {
	return &ProgressParser{}
}

// ParseLine applies one key=value line to progress. It reports whether the
// line ended a block (progress=continue or progress=end) and whether that
// block was the last one.
func (pp *ProgressParser) ParseLine(line string, progress *models.EncodingProgress) (blockDone, finished bool) {
	line = strings.TrimSpace(line)
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return false, false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "frame":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			progress.Frame = v
		}
	case "fps":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			progress.FPS = v
		}
	case "bitrate":
		if value != "N/A" {
			progress.Bitrate = value
		}
	case "total_size":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			progress.TotalSize = v
		}
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		if v, err := strconv.ParseInt(value, 10, 64); err == nil && v >= 0 {
			progress.SetOutTime(time.Duration(v) * time.Microsecond)
		}
	case "speed":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			progress.Speed = v
		}
	case "progress":
		return true, value == "end"
	}
	return false, false
}

// StreamProgress reads progress blocks from reader until EOF and invokes
// callback after each completed block.
func (pp *ProgressParser) StreamProgress(reader io.Reader, progress *models.EncodingProgress, callback models.ProgressCallback) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	sawBlock := false
	for scanner.Scan() {
		blockDone, finished := pp.ParseLine(scanner.Text(), progress)
		if !blockDone {
			continue
		}
		sawBlock = true
		if finished {
			progress.Complete()
		} else {
			progress.State = models.ProgressStateEncoding
		}
		if callback != nil {
			callback(progress)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ffmpeg output: %w", err)
	}
	if !sawBlock {
		return fmt.Errorf("no progress output captured from ffmpeg")
	}
	return nil
}
