package ffprobe

import (
	"context"
	"strings"
	"testing"
	"time"

	"chaptertrim/models"
)

const samplePackets = `{"packets": [
  {"pts_time": "8.008000", "flags": "K__"},
  {"pts_time": "8.041000", "flags": "___"},
  {"pts_time": "10.010000", "flags": "K__"},
  {"pts_time": "12.012000", "flags": "K_"},
  {"pts_time": "bad", "flags": "K__"}
]}`

func TestParseKeyframes(t *testing.T) {
	keyframes, err := parseKeyframes([]byte(samplePackets))
	if err != nil {
		t.Fatalf("parseKeyframes returned error: %v", err)
	}
	expected := []time.Duration{8008 * time.Millisecond, 10010 * time.Millisecond, 12012 * time.Millisecond}
	if len(keyframes) != len(expected) {
		t.Fatalf("Expected %d keyframes, got %v", len(expected), keyframes)
	}
	for i := range expected {
		if keyframes[i] != expected[i] {
			t.Errorf("Keyframe %d: expected %v, got %v", i, expected[i], keyframes[i])
		}
	}

	if _, err := parseKeyframes([]byte("{")); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestNearestKeyframe(t *testing.T) {
	f := &fakeExec{stdout: samplePackets}
	p := newTestProber(f)

	kf, ok, err := p.NearestKeyframe(context.Background(), "in.mp4", 10*time.Second)
	if err != nil {
		t.Fatalf("NearestKeyframe returned error: %v", err)
	}
	if !ok || kf != 10010*time.Millisecond {
		t.Errorf("Expected 10.01s, got %v (%v)", kf, ok)
	}

	args := strings.Join(f.calls[0], " ")
	if !strings.Contains(args, "-read_intervals 5.000%15.000") {
		t.Errorf("Expected read interval around 10s, got %s", args)
	}
	if !strings.Contains(args, "-select_streams v:0") {
		t.Errorf("Expected first video stream selection, got %s", args)
	}
}

func TestNearestKeyframe_ClampsWindowAtZero(t *testing.T) {
	f := &fakeExec{stdout: `{"packets": []}`}
	_, ok, err := newTestProber(f).NearestKeyframe(context.Background(), "in.mp4", 2*time.Second)
	if err != nil {
		t.Fatalf("NearestKeyframe returned error: %v", err)
	}
	if ok {
		t.Error("Expected no keyframe for empty packet list")
	}
	if args := strings.Join(f.calls[0], " "); !strings.Contains(args, "-read_intervals 0.000%7.000") {
		t.Errorf("Expected window clamped at zero, got %s", args)
	}
}

func TestCheckKeyframeAlignment(t *testing.T) {
	f := &fakeExec{stdout: samplePackets}
	p := newTestProber(f)

	segments := []models.Segment{
		{Start: 10 * time.Second, End: models.Bounded(11 * time.Second)},
		{Start: 12 * time.Second, End: models.OpenEnded()},
	}

	warnings, err := p.CheckKeyframeAlignment(context.Background(), "in.mp4", segments, DefaultKeyframeTolerance)
	if err != nil {
		t.Fatalf("CheckKeyframeAlignment returned error: %v", err)
	}

	// Three boundaries are probed: start and end of the first segment and
	// the start of the open-ended one.
	if len(f.calls) != 3 {
		t.Errorf("Expected 3 probes, got %d", len(f.calls))
	}
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", warnings)
	}
	w := warnings[0]
	if w.Segment != 1 || w.Boundary != "end" {
		t.Errorf("Expected warning for end of segment 1, got %+v", w)
	}
	if w.Offset() != 990*time.Millisecond {
		t.Errorf("Expected offset 990ms, got %v", w.Offset())
	}
	if !strings.Contains(w.String(), "0.990s") {
		t.Errorf("Unexpected warning text %q", w.String())
	}
}
