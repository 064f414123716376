package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"chaptertrim/models"
)

// fakeExecutor records invocations and replays canned output.
type fakeExecutor struct {
	mu     sync.Mutex
	calls  [][]string
	stdout string
	stderr string
	err    error
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{binary}, args...))
	f.mu.Unlock()
	if f.stdout != "" {
		io.WriteString(stdout, f.stdout)
	}
	if f.stderr != "" {
		io.WriteString(stderr, f.stderr)
	}
	return f.err
}

func TestRunner_BuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		progress bool
		expected string
	}{
		{"Quiet", false, false, "-hide_banner -nostdin -loglevel error -i in.mp4 out.mp4"},
		{"Verbose", true, false, "-hide_banner -nostdin -i in.mp4 out.mp4"},
		{"Progress", false, true, "-hide_banner -nostdin -loglevel error -nostats -progress pipe:1 -i in.mp4 out.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(Options{Verbose: tt.verbose})
			job := Job{Args: []string{"-i", "in.mp4", "out.mp4"}}
			if tt.progress {
				job.Progress = func(*models.EncodingProgress) {}
			}
			if got := strings.Join(r.BuildArgs(job), " "); got != tt.expected {
				t.Errorf("BuildArgs() = %q; want %q", got, tt.expected)
			}
		})
	}
}

func TestRunner_Run(t *testing.T) {
	f := &fakeExecutor{}
	r := NewRunner(Options{Binary: "/usr/bin/ffmpeg", Executor: f})

	if err := r.Run(context.Background(), Job{Description: "Extract", Args: []string{"-i", "a.mp4", "b.mp4"}}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(f.calls) != 1 || f.calls[0][0] != "/usr/bin/ffmpeg" {
		t.Fatalf("Expected one call to /usr/bin/ffmpeg, got %v", f.calls)
	}
	if last := f.calls[0][len(f.calls[0])-1]; last != "b.mp4" {
		t.Errorf("Expected output path last, got %s", last)
	}
}

func TestRunner_DryRun(t *testing.T) {
	var logs bytes.Buffer
	f := &fakeExecutor{}
	r := NewRunner(Options{
		DryRun:   true,
		Executor: f,
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
	})

	if err := r.Run(context.Background(), Job{Description: "Extracting segment 1", Args: []string{"-i", "my video.mp4", "out.mp4"}}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("Dry run must not execute, got %v", f.calls)
	}
	out := logs.String()
	if !strings.Contains(out, "[DRY RUN] Extracting segment 1") {
		t.Errorf("Expected dry run log, got %q", out)
	}
	if !strings.Contains(out, "'my video.mp4'") {
		t.Errorf("Expected quoted command in log, got %q", out)
	}
	if !r.TestEncoder(context.Background(), "h264_nvenc") {
		t.Error("Dry run should report every encoder available")
	}
}

func TestRunner_RunFailureIncludesStderr(t *testing.T) {
	f := &fakeExecutor{stderr: "banner\nin.mp4: Invalid data found when processing input\n", err: errors.New("exit status 1")}
	r := NewRunner(Options{Executor: f})

	err := r.Run(context.Background(), Job{Description: "Extracting segment 2", Args: []string{"-i", "in.mp4", "o.mp4"}})
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, want := range []string{"Extracting segment 2", "exit status 1", "Invalid data found"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to contain %q, got: %v", want, err)
		}
	}
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeExecutor{}
	r := NewRunner(Options{Executor: f})
	if err := r.Run(ctx, Job{Description: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(f.calls) != 0 {
		t.Error("Cancelled run must not execute")
	}
}

func TestRunner_RunWithProgress(t *testing.T) {
	f := &fakeExecutor{stdout: "out_time_us=5000000\nspeed=2x\nprogress=continue\nout_time_us=10000000\nprogress=end\n"}
	r := NewRunner(Options{Executor: f})

	var mu sync.Mutex
	var updates []float64
	job := Job{
		TaskID:      "extract-0",
		Description: "Extracting",
		Args:        []string{"-i", "in.mp4", "out.mp4"},
		Duration:    10 * time.Second,
		Progress: func(p *models.EncodingProgress) {
			mu.Lock()
			updates = append(updates, p.Progress)
			mu.Unlock()
		},
	}

	if err := r.Run(context.Background(), job); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(updates) != 2 || updates[0] != 50 || updates[1] != 100 {
		t.Errorf("Expected progress updates [50 100], got %v", updates)
	}
}

func TestRunner_RunWithProgress_NoOutputStillCompletes(t *testing.T) {
	f := &fakeExecutor{}
	r := NewRunner(Options{Executor: f})

	var final *models.EncodingProgress
	job := Job{TaskID: "concat", Args: []string{"out.mp4"}, Progress: func(p *models.EncodingProgress) { final = p }}
	if err := r.Run(context.Background(), job); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if final == nil || final.State != models.ProgressStateCompleted {
		t.Errorf("Expected a final completed update, got %+v", final)
	}
}

func TestRunner_Version(t *testing.T) {
	f := &fakeExecutor{stdout: "ffmpeg version 7.1 Copyright (c) 2000-2024\nbuilt with gcc\n"}
	r := NewRunner(Options{Executor: f})

	v, err := r.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if v != "ffmpeg version 7.1 Copyright (c) 2000-2024" {
		t.Errorf("Unexpected version line %q", v)
	}

	missing := NewRunner(Options{Executor: &fakeExecutor{err: &exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}}})
	if _, err := missing.Version(context.Background()); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestRunner_TestEncoder(t *testing.T) {
	ok := &fakeExecutor{}
	if !NewRunner(Options{Executor: ok}).TestEncoder(context.Background(), "h264_qsv") {
		t.Error("Expected encoder to be available")
	}
	args := strings.Join(ok.calls[0], " ")
	if !strings.Contains(args, "-f lavfi -i color=c=black:s=320x240:d=1 -c:v h264_qsv -f null -") {
		t.Errorf("Unexpected encoder probe args: %s", args)
	}

	failing := &fakeExecutor{err: errors.New("exit status 1")}
	if NewRunner(Options{Executor: failing}).TestEncoder(context.Background(), "h264_qsv") {
		t.Error("Expected encoder to be unavailable")
	}
}

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{[]string{"-i", "in.mp4"}, "ffmpeg -i in.mp4"},
		{[]string{"-i", "my movie.mp4"}, "ffmpeg -i 'my movie.mp4'"},
		{[]string{"-i", "it's.mp4"}, `ffmpeg -i 'it'\''s.mp4'`},
		{[]string{"-force_key_frames", "0.000,12.500"}, "ffmpeg -force_key_frames 0.000,12.500"},
		{[]string{""}, "ffmpeg ''"},
	}

	for _, tt := range tests {
		if got := FormatCommand("ffmpeg", tt.args); got != tt.expected {
			t.Errorf("FormatCommand(%v) = %s; want %s", tt.args, got, tt.expected)
		}
	}
}

func TestTailBuffer(t *testing.T) {
	tb := tailBuffer{limit: 5}
	io.WriteString(&tb, "abc")
	io.WriteString(&tb, "defgh")
	if tb.String() != "defgh" {
		t.Errorf("Expected last 5 bytes, got %q", tb.String())
	}
}
