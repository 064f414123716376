// Package extract builds the ffmpeg command that cuts one kept segment out
// of the source video.
package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chaptertrim/command"
	"chaptertrim/ffmpeg"
	"chaptertrim/ffprobe"
	"chaptertrim/gpu"
	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
)

// Mode selects how a segment is cut.
type Mode string

const (
	// ModeFast seeks before the input and stream-copies. Cuts land on the
	// nearest keyframe.
	ModeFast Mode = "fast"
	// ModeAccurate pre-seeks close to the start, then seeks precisely and
	// re-encodes video. Audio is copied.
	ModeAccurate Mode = "accurate"
	// ModeReencode decodes from the beginning and re-encodes everything with
	// parameters derived from the source.
	ModeReencode Mode = "reencode"
)

// PreSeek is how far before the segment start accurate mode seeks on the
// input side.
const PreSeek = 10 * time.Second

// SplitSafeGOP is the GOP size used by split-safe encoding.
const SplitSafeGOP = "60"

// ParseMode maps the --accurate and --reencode switches to a Mode.
// Re-encoding wins when both are set.
func ParseMode(accurate, reencode bool) Mode {
	switch {
	case reencode:
		return ModeReencode
	case accurate:
		return ModeAccurate
	default:
		return ModeFast
	}
}

// ExtractBuilder builds the command for one segment.
type ExtractBuilder struct {
	runner     *ffmpeg.Runner
	inputPath  string
	outputPath string
	segment    models.Segment
	index      int

	mode      Mode
	encoder   *gpu.Encoder
	probe     *ffprobe.ProbeResult
	splitSafe bool
	chapters  []models.Chapter

	progressCallback models.ProgressCallback
}

// NewExtractBuilder creates a fast-mode builder for segment, written to
// outputPath.
func NewExtractBuilder(runner *ffmpeg.Runner, inputPath string, segment models.Segment, outputPath string) *ExtractBuilder {
	return &ExtractBuilder{
		runner:     runner,
		inputPath:  inputPath,
		outputPath: outputPath,
		segment:    segment,
		mode:       ModeFast,
	}
}

// SetIndex sets the zero-based segment index used in the task id and logs.
func (b *ExtractBuilder) SetIndex(index int) *ExtractBuilder {
	b.index = index
	return b
}

// SetMode sets the extraction mode.
func (b *ExtractBuilder) SetMode(mode Mode) *ExtractBuilder {
	b.mode = mode
	return b
}

// SetEncoder sets the hardware encoder. nil means libx264.
func (b *ExtractBuilder) SetEncoder(enc *gpu.Encoder) *ExtractBuilder {
	b.encoder = enc
	return b
}

// SetProbe supplies source metadata used to derive re-encode parameters.
func (b *ExtractBuilder) SetProbe(probe *ffprobe.ProbeResult) *ExtractBuilder {
	b.probe = probe
	return b
}

// SetSplitSafe enables keyframe-friendly encoding. Keyframes are forced at
// every chapter that falls inside the segment.
func (b *ExtractBuilder) SetSplitSafe(enabled bool, chapters []models.Chapter) *ExtractBuilder {
	b.splitSafe = enabled
	b.chapters = chapters
	return b
}

// SetProgressCallback sets a callback for progress updates
func (b *ExtractBuilder) SetProgressCallback(callback models.ProgressCallback) *ExtractBuilder {
	b.progressCallback = callback
	return b
}

// TaskID returns the id used for this segment's task.
func (b *ExtractBuilder) TaskID() string {
	return fmt.Sprintf("extract-%03d", b.index)
}

// BuildArgs constructs the ffmpeg arguments for the configured mode.
func (b *ExtractBuilder) BuildArgs() []string {
	var args []string
	switch b.mode {
	case ModeAccurate:
		args = b.accurateArgs()
	case ModeReencode:
		args = b.reencodeArgs()
	default:
		args = b.fastArgs()
	}
	return append(args, "-movflags", "+faststart", "-y", b.outputPath)
}

func (b *ExtractBuilder) fastArgs() []string {
	args := []string{
		"-ss", timeutil.FormatFFmpeg(b.segment.Start),
		"-i", b.inputPath,
	}
	args = b.appendDuration(args)
	return append(args, "-c", "copy", "-avoid_negative_ts", "make_zero")
}

func (b *ExtractBuilder) accurateArgs() []string {
	seekBefore := b.segment.Start - PreSeek
	if seekBefore < 0 {
		seekBefore = 0
	}
	args := []string{
		"-ss", timeutil.FormatSeconds(seekBefore),
		"-i", b.inputPath,
		"-ss", timeutil.FormatSeconds(b.segment.Start - seekBefore),
	}
	args = b.appendDuration(args)

	video := b.videoArgs("fast")
	args = append(args, video...)
	args = append(args, "-c:a", "copy")
	return append(args, b.splitSafeArgs(video)...)
}

func (b *ExtractBuilder) reencodeArgs() []string {
	args := []string{
		"-i", b.inputPath,
		"-ss", timeutil.FormatFFmpeg(b.segment.Start),
	}
	args = b.appendDuration(args)

	params := EncodingParams(b.probe, b.encoder)
	args = append(args, params...)
	return append(args, b.splitSafeArgs(params)...)
}

func (b *ExtractBuilder) appendDuration(args []string) []string {
	if d, ok := b.segment.Duration(); ok {
		args = append(args, "-t", timeutil.FormatFFmpeg(d))
	}
	return args
}

// videoArgs returns the active video encoder's flags, or libx264 at CRF 18
// with the given preset.
func (b *ExtractBuilder) videoArgs(preset string) []string {
	if b.encoder != nil {
		return b.encoder.Args()
	}
	return []string{"-c:v", "libx264", "-crf", "18", "-preset", preset}
}

// splitSafeArgs returns GOP flags for the codec selected in encodeArgs and
// the forced keyframe list. Nothing is added when no video codec is set.
func (b *ExtractBuilder) splitSafeArgs(encodeArgs []string) []string {
	if !b.splitSafe {
		return nil
	}
	codec := codecOf(encodeArgs)
	if codec == "" {
		return nil
	}

	var args []string
	switch gpu.Family(codec) {
	case "x264":
		args = []string{"-g", SplitSafeGOP, "-keyint_min", "30", "-sc_threshold", "0"}
	case string(gpu.NVENC):
		args = []string{"-g", SplitSafeGOP, "-strict_gop", "1"}
	case string(gpu.VideoToolbox), string(gpu.QSV), string(gpu.AMF):
		args = []string{"-g", SplitSafeGOP}
	}

	if times := KeyframeTimes(b.segment, b.chapters); len(times) > 0 {
		args = append(args, "-force_key_frames", strings.Join(times, ","))
	}
	return args
}

// KeyframeTimes returns the offsets, relative to the segment start, of every
// chapter inside segment, formatted as seconds.
func KeyframeTimes(segment models.Segment, chapters []models.Chapter) []string {
	var times []string
	for _, ch := range chapters {
		if segment.Contains(ch.Timestamp) {
			times = append(times, timeutil.FormatSeconds(ch.Timestamp-segment.Start))
		}
	}
	return times
}

func codecOf(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-c:v" {
			return args[i+1]
		}
	}
	return ""
}

// EncodingParams derives full re-encode flags from the source. A nil probe
// yields high quality libx264 with AAC audio.
func EncodingParams(probe *ffprobe.ProbeResult, enc *gpu.Encoder) []string {
	var params []string

	if enc != nil {
		params = append(params, enc.Args()...)
		if probe != nil {
			if vs := probe.FirstVideoStream(); vs != nil {
				if bitrate, ok := vs.BitRateValue(); ok {
					params = append(params, "-b:v", strconv.FormatInt(min(bitrate, 20_000_000), 10))
				} else {
					params = append(params, "-b:v", "5M")
				}
			}
		}
	} else {
		if probe == nil {
			return []string{"-c:v", "libx264", "-crf", "18", "-preset", "medium", "-c:a", "aac", "-b:a", "192k"}
		}
		if vs := probe.FirstVideoStream(); vs != nil {
			params = append(params, "-c:v", "libx264", "-crf", crfFor(vs), "-preset", "medium")
			if vs.RFrameRate != "" {
				params = append(params, "-r", vs.RFrameRate)
			}
		}
	}

	return append(params, audioParams(probe)...)
}

// crfFor picks a CRF from the source video bit rate.
func crfFor(vs *ffprobe.Stream) string {
	bitrate, ok := vs.BitRateValue()
	switch {
	case !ok:
		return "18"
	case bitrate > 10_000_000:
		return "17"
	case bitrate > 5_000_000:
		return "18"
	default:
		return "20"
	}
}

func audioParams(probe *ffprobe.ProbeResult) []string {
	var as *ffprobe.Stream
	if probe != nil {
		as = probe.FirstAudioStream()
	}
	if as == nil {
		return []string{"-c:a", "aac", "-b:a", "192k"}
	}
	if as.CodecName == "aac" {
		return []string{"-c:a", "copy"}
	}
	if bitrate, ok := as.BitRateValue(); ok {
		return []string{"-c:a", "aac", "-b:a", fmt.Sprintf("%dk", min(bitrate, 320_000)/1000)}
	}
	return []string{"-c:a", "aac", "-b:a", "192k"}
}

// expectedDuration is the output length used for progress percentages.
func (b *ExtractBuilder) expectedDuration() time.Duration {
	if d, ok := b.segment.Duration(); ok {
		return d
	}
	if b.probe != nil {
		if total, err := b.probe.GetDuration(); err == nil && total > b.segment.Start {
			return total - b.segment.Start
		}
	}
	return 0
}

func (b *ExtractBuilder) job() ffmpeg.Job {
	job := command.Job(b.TaskID(), b)
	if b.progressCallback != nil {
		job.Progress = b.progressCallback
		job.Duration = b.expectedDuration()
	}
	return job
}

// Run extracts the segment.
func (b *ExtractBuilder) Run(ctx context.Context) error {
	return b.runner.Run(ctx, b.job())
}

// DryRun returns the command that would be executed without running it
func (b *ExtractBuilder) DryRun() (string, error) {
	if b.inputPath == "" || b.outputPath == "" {
		return "", fmt.Errorf("extract segment %d: input and output paths are required", b.index+1)
	}
	return b.runner.CommandLine(b.job()), nil
}

// Description summarises the segment for logs.
func (b *ExtractBuilder) Description() string {
	return fmt.Sprintf("Extracting segment %d (%s)", b.index+1, Span(b.segment))
}

// Span formats a segment as "start - end" in chapter notation.
func Span(s models.Segment) string {
	end, ok := s.End.Value()
	if !ok {
		return timeutil.FormatChapter(s.Start) + " - end"
	}
	return timeutil.FormatChapter(s.Start) + " - " + timeutil.FormatChapter(end)
}

// GetTaskType returns TaskTypeExtract.
func (b *ExtractBuilder) GetTaskType() command.TaskType {
	return command.TaskTypeExtract
}

// GetInputPath returns the source video path.
func (b *ExtractBuilder) GetInputPath() string {
	return b.inputPath
}

// GetOutputPath returns the segment file path.
func (b *ExtractBuilder) GetOutputPath() string {
	return b.outputPath
}

// Segment returns the segment being extracted.
func (b *ExtractBuilder) Segment() models.Segment {
	return b.segment
}
