package ffprobe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chaptertrim/models"
)

const sampleProbeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080,
     "bit_rate": "8000000", "r_frame_rate": "30000/1001"},
    {"index": 1, "codec_name": "ac3", "codec_type": "audio", "sample_rate": "48000",
     "channels": 6, "bit_rate": "448000"},
    {"index": 2, "codec_name": "subrip", "codec_type": "subtitle"}
  ],
  "chapters": [
    {"id": 0, "time_base": "1/1000", "start": 0, "start_time": "0.000000",
     "end": 65822, "end_time": "65.822000", "tags": {"title": "Opening"}},
    {"id": 1, "time_base": "1/1000", "start": 65822, "start_time": "65.822000",
     "end": 156160, "end_time": "156.160000"}
  ],
  "format": {"filename": "in.mkv", "format_name": "matroska,webm", "duration": "1800.500000",
             "size": "1073741824", "bit_rate": "4771000"}
}`

// fakeExec records calls and returns canned output.
type fakeExec struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
}

func (f *fakeExec) run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func newTestProber(f *fakeExec) *Prober {
	p := NewProber("")
	p.exec = f.run
	return p
}

func TestNewProber_DefaultBinary(t *testing.T) {
	if p := NewProber(""); p.binary != "ffprobe" {
		t.Errorf("Expected default binary ffprobe, got %s", p.binary)
	}
	if p := NewProber("/opt/ffmpeg/bin/ffprobe"); p.binary != "/opt/ffmpeg/bin/ffprobe" {
		t.Errorf("Expected custom binary, got %s", p.binary)
	}
}

func TestProbe_EmptyPath(t *testing.T) {
	_, err := newTestProber(&fakeExec{}).Probe(context.Background(), "")
	if err == nil {
		t.Fatal("Expected error for empty path")
	}
	if !strings.Contains(err.Error(), "cannot be empty") {
		t.Errorf("Expected 'cannot be empty' error, got: %v", err)
	}
}

func TestProbe(t *testing.T) {
	f := &fakeExec{stdout: sampleProbeJSON}
	result, err := newTestProber(f).Probe(context.Background(), "in.mkv")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}

	args := strings.Join(f.calls[0], " ")
	for _, want := range []string{"ffprobe", "-print_format json", "-show_streams", "-show_format", "-show_chapters", "in.mkv"} {
		if !strings.Contains(args, want) {
			t.Errorf("Expected args to contain %q, got %s", want, args)
		}
	}

	if len(result.Streams) != 3 {
		t.Errorf("Expected 3 streams, got %d", len(result.Streams))
	}
	d, err := result.GetDuration()
	if err != nil {
		t.Fatalf("GetDuration returned error: %v", err)
	}
	if d != 1800*time.Second+500*time.Millisecond {
		t.Errorf("Expected 30m0.5s, got %v", d)
	}
	v := result.FirstVideoStream()
	if v == nil || v.RFrameRate != "30000/1001" {
		t.Errorf("Expected video stream with frame rate, got %+v", v)
	}
}

func TestProbe_Failure(t *testing.T) {
	f := &fakeExec{stderr: "in.mkv: No such file or directory", err: errors.New("exit status 1")}
	_, err := newTestProber(f).Probe(context.Background(), "in.mkv")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "ffprobe failed") || !strings.Contains(err.Error(), "No such file") {
		t.Errorf("Expected error with ffprobe output, got: %v", err)
	}
}

func TestProbe_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeExec{err: errors.New("signal: killed")}
	_, err := newTestProber(f).Probe(ctx, "in.mkv")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestProbe_InvalidJSON(t *testing.T) {
	f := &fakeExec{stdout: "not json"}
	_, err := newTestProber(f).Probe(context.Background(), "in.mkv")
	if err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestProbeResult_GetDuration(t *testing.T) {
	tests := []struct {
		name        string
		duration    string
		expected    time.Duration
		expectError bool
	}{
		{"Valid duration", "30.5", 30*time.Second + 500*time.Millisecond, false},
		{"Integer duration", "120", 2 * time.Minute, false},
		{"Millisecond precision", "65.822000", 65822 * time.Millisecond, false},
		{"Zero duration", "0", 0, false},
		{"Empty duration", "", 0, true},
		{"Invalid duration", "invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ProbeResult{Format: Format{Duration: tt.duration}}
			duration, err := result.GetDuration()

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if duration != tt.expected {
				t.Errorf("Expected duration %v, got %v", tt.expected, duration)
			}
		})
	}
}

func TestProbeResult_MarkerChapters(t *testing.T) {
	result, err := parseProbeOutput([]byte(sampleProbeJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !result.HasChapters() {
		t.Fatal("Expected chapters")
	}

	chapters, err := result.MarkerChapters()
	if err != nil {
		t.Fatalf("MarkerChapters returned error: %v", err)
	}
	expected := []models.Chapter{
		{Timestamp: 0, Title: "Opening"},
		{Timestamp: 65822 * time.Millisecond, Title: "Chapter 2"},
	}
	if len(chapters) != len(expected) {
		t.Fatalf("Expected %d chapters, got %d", len(expected), len(chapters))
	}
	for i := range expected {
		if chapters[i] != expected[i] {
			t.Errorf("Chapter %d: expected %v, got %v", i, expected[i], chapters[i])
		}
	}

	bad := ProbeResult{Chapters: []Chapter{{StartTime: "abc"}}}
	if _, err := bad.MarkerChapters(); err == nil {
		t.Error("Expected error for unparsable start_time")
	}
}

func TestProbeResult_Streams(t *testing.T) {
	result := ProbeResult{
		Streams: []Stream{
			{Index: 0, CodecType: "video", CodecName: "h264"},
			{Index: 1, CodecType: "audio", CodecName: "aac"},
			{Index: 2, CodecType: "video", CodecName: "hevc"},
			{Index: 3, CodecType: "audio", CodecName: "opus"},
			{Index: 4, CodecType: "subtitle", CodecName: "srt"},
		},
	}

	if n := len(result.GetVideoStreams()); n != 2 {
		t.Errorf("Expected 2 video streams, got %d", n)
	}
	if n := len(result.GetAudioStreams()); n != 2 {
		t.Errorf("Expected 2 audio streams, got %d", n)
	}
	if s := result.FirstVideoStream(); s == nil || s.Index != 0 {
		t.Errorf("Expected first video stream index 0, got %+v", s)
	}
	if s := result.FirstAudioStream(); s == nil || s.Index != 1 {
		t.Errorf("Expected first audio stream index 1, got %+v", s)
	}

	empty := ProbeResult{}
	if empty.FirstVideoStream() != nil || empty.FirstAudioStream() != nil {
		t.Error("Expected nil streams for empty result")
	}
}

func TestStream_BitRateValue(t *testing.T) {
	tests := []struct {
		bitRate  string
		expected int64
		ok       bool
	}{
		{"8000000", 8000000, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"abc", 0, false},
		{"0", 0, false},
	}

	for _, tt := range tests {
		v, ok := Stream{BitRate: tt.bitRate}.BitRateValue()
		if v != tt.expected || ok != tt.ok {
			t.Errorf("BitRateValue(%q) = %d, %v; want %d, %v", tt.bitRate, v, ok, tt.expected, tt.ok)
		}
	}
}
