// Package ffprobe extracts metadata from media files using the ffprobe
// command-line tool.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
)

// Chapter is a chapter marker embedded in a media container.
type Chapter struct {
	ID        int64             `json:"id"`
	TimeBase  string            `json:"time_base"`
	Start     int64             `json:"start"`
	StartTime string            `json:"start_time"`
	End       int64             `json:"end"`
	EndTime   string            `json:"end_time"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Title returns the chapter's title tag, if any.
func (c Chapter) Title() string {
	return c.Tags["title"]
}

// Stream represents a media stream (audio, video, subtitle, etc.)
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	CodecLongName string `json:"codec_long_name"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	Duration      string `json:"duration,omitempty"`
	BitRate       string `json:"bit_rate,omitempty"`
	RFrameRate    string `json:"r_frame_rate,omitempty"`
}

// BitRateValue returns the stream bit rate in bits per second, or false when
// ffprobe did not report one.
func (s Stream) BitRateValue() (int64, bool) {
	if s.BitRate == "" || s.BitRate == "N/A" {
		return 0, false
	}
	v, err := strconv.ParseInt(s.BitRate, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Format represents the container format information.
type Format struct {
	Filename       string `json:"filename"`
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	Size           string `json:"size"`
	BitRate        string `json:"bit_rate"`
}

// ProbeResult holds the metadata extracted from a media file.
type ProbeResult struct {
	Chapters []Chapter `json:"chapters"`
	Streams  []Stream  `json:"streams"`
	Format   Format    `json:"format"`
}

// GetDuration returns the container duration.
func (pr *ProbeResult) GetDuration() (time.Duration, error) {
	if pr.Format.Duration == "" {
		return 0, fmt.Errorf("duration not available in format metadata")
	}

	seconds, err := strconv.ParseFloat(pr.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration '%s': %w", pr.Format.Duration, err)
	}

	return secondsToDuration(seconds), nil
}

// HasChapters returns true if the media file contains chapter markers.
func (pr *ProbeResult) HasChapters() bool {
	return len(pr.Chapters) > 0
}

// MarkerChapters converts embedded chapters to marker chapters, in container
// order. Chapters without a title tag are named "Chapter N".
func (pr *ProbeResult) MarkerChapters() ([]models.Chapter, error) {
	out := make([]models.Chapter, 0, len(pr.Chapters))
	for i, ch := range pr.Chapters {
		seconds, err := strconv.ParseFloat(ch.StartTime, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start_time for chapter %d: %w", i+1, err)
		}
		title := strings.TrimSpace(ch.Title())
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		out = append(out, models.Chapter{Timestamp: secondsToDuration(seconds), Title: title})
	}
	return out, nil
}

// GetVideoStreams returns all video streams from the media file.
func (pr *ProbeResult) GetVideoStreams() []Stream {
	var videoStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "video" {
			videoStreams = append(videoStreams, stream)
		}
	}
	return videoStreams
}

// GetAudioStreams returns all audio streams from the media file.
func (pr *ProbeResult) GetAudioStreams() []Stream {
	var audioStreams []Stream
	for _, stream := range pr.Streams {
		if stream.CodecType == "audio" {
			audioStreams = append(audioStreams, stream)
		}
	}
	return audioStreams
}

// FirstVideoStream returns the first video stream, or nil.
func (pr *ProbeResult) FirstVideoStream() *Stream {
	for i := range pr.Streams {
		if pr.Streams[i].CodecType == "video" {
			return &pr.Streams[i]
		}
	}
	return nil
}

// FirstAudioStream returns the first audio stream, or nil.
func (pr *ProbeResult) FirstAudioStream() *Stream {
	for i := range pr.Streams {
		if pr.Streams[i].CodecType == "audio" {
			return &pr.Streams[i]
		}
	}
	return nil
}

type execFunc func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Prober runs ffprobe.
type Prober struct {
	binary string
	exec   execFunc
}

// NewProber creates a Prober for the given ffprobe binary. An empty binary
// means "ffprobe" from PATH.
func NewProber(binary string) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, exec: runCommand}
}

// Probe analyzes a media file and returns its format, stream and chapter
// metadata.
//
// Example:
//
//	result, err := ffprobe.NewProber("").Probe(ctx, "/path/to/video.mp4")
//	if err != nil {
//	    return err
//	}
//	duration, _ := result.GetDuration()
func (p *Prober) Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_chapters",
		"-show_streams",
		"-show_format",
		sourcePath,
	}

	stdout, stderr, err := p.exec(ctx, p.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe failed: %w (output: %s)", err, strings.TrimSpace(string(stderr)))
	}

	return parseProbeOutput(stdout)
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var result ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}

// keyframeWindow is how far either side of a timestamp the keyframe probe
// reads packets.
const keyframeWindow = 5 * time.Second

// NearestKeyframe returns the video keyframe closest to ts, reading only
// packets within a few seconds of it. The bool is false when no keyframe
// was found in that window.
func (p *Prober) NearestKeyframe(ctx context.Context, sourcePath string, ts time.Duration) (time.Duration, bool, error) {
	from := ts - keyframeWindow
	if from < 0 {
		from = 0
	}
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "packet=pts_time,flags",
		"-of", "json",
		"-read_intervals", timeutil.FormatSeconds(from) + "%" + timeutil.FormatSeconds(ts+keyframeWindow),
		sourcePath,
	}

	stdout, stderr, err := p.exec(ctx, p.binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		return 0, false, fmt.Errorf("ffprobe keyframe scan failed: %w (output: %s)", err, strings.TrimSpace(string(stderr)))
	}

	keyframes, err := parseKeyframes(stdout)
	if err != nil {
		return 0, false, err
	}
	nearest, ok := nearestTo(keyframes, ts)
	return nearest, ok, nil
}

type packetOutput struct {
	Packets []struct {
		PTSTime string `json:"pts_time"`
		Flags   string `json:"flags"`
	} `json:"packets"`
}

func parseKeyframes(data []byte) ([]time.Duration, error) {
	var out packetOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe packet output: %w", err)
	}

	var keyframes []time.Duration
	for _, pkt := range out.Packets {
		if !strings.Contains(pkt.Flags, "K") {
			continue
		}
		seconds, err := strconv.ParseFloat(pkt.PTSTime, 64)
		if err != nil {
			continue
		}
		keyframes = append(keyframes, secondsToDuration(seconds))
	}
	return keyframes, nil
}

func nearestTo(candidates []time.Duration, ts time.Duration) (time.Duration, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if absDuration(c-ts) < absDuration(best-ts) {
			best = c
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}
