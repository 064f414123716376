package models

import (
	"strings"
	"testing"
	"time"
)

func TestNewEncodingProgress(t *testing.T) {
	p := NewEncodingProgress("extract-0", 90*time.Second)

	if p.TaskID != "extract-0" {
		t.Errorf("Expected task id extract-0, got %s", p.TaskID)
	}
	if p.TotalDuration != 90*time.Second {
		t.Errorf("Expected total 90s, got %v", p.TotalDuration)
	}
	if p.State != ProgressStateQueued {
		t.Errorf("Expected state queued, got %s", p.State)
	}
	if p.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestEncodingProgress_SetOutTime(t *testing.T) {
	tests := []struct {
		name     string
		total    time.Duration
		outTime  time.Duration
		expected float64
	}{
		{"Start", 100 * time.Second, 0, 0},
		{"Quarter", 100 * time.Second, 25 * time.Second, 25},
		{"Half", 60 * time.Second, 30 * time.Second, 50},
		{"Complete", 60 * time.Second, 60 * time.Second, 100},
		{"Overshoot clamped", 60 * time.Second, 61 * time.Second, 100},
		{"Negative clamped", 60 * time.Second, -time.Second, 0},
		{"Unknown total", 0, 30 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewEncodingProgress("t", tt.total)
			p.SetOutTime(tt.outTime)
			if p.Progress != tt.expected {
				t.Errorf("Expected progress %.1f, got %.1f", tt.expected, p.Progress)
			}
			if p.OutTime != tt.outTime {
				t.Errorf("Expected out time %v, got %v", tt.outTime, p.OutTime)
			}
		})
	}
}

func TestEncodingProgress_Complete(t *testing.T) {
	p := NewEncodingProgress("t", 0)
	p.Complete()
	if p.State != ProgressStateCompleted {
		t.Errorf("Expected completed state, got %s", p.State)
	}
	if p.Progress != 100 {
		t.Errorf("Expected 100%%, got %.1f", p.Progress)
	}
}

func TestEncodingProgress_EstimatedTimeRemaining(t *testing.T) {
	p := NewEncodingProgress("t", 100*time.Second)
	if eta := p.EstimatedTimeRemaining(); eta != 0 {
		t.Errorf("Expected 0 ETA before any progress, got %v", eta)
	}

	p.StartTime = time.Now().Add(-10 * time.Second)
	p.Speed = 1.0
	p.SetOutTime(50 * time.Second)

	eta := p.EstimatedTimeRemaining()
	if eta < 9*time.Second || eta > 11*time.Second {
		t.Errorf("Expected ETA around 10s, got %v", eta)
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{0, "calculating..."},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{3725 * time.Second, "1h2m5s"},
	}

	for _, tt := range tests {
		if result := formatETA(tt.input); result != tt.expected {
			t.Errorf("formatETA(%v) = %s; want %s", tt.input, result, tt.expected)
		}
	}
}

func TestEncodingProgress_FormatSummary(t *testing.T) {
	p := NewEncodingProgress("t", 100*time.Second)
	p.Speed = 2.5
	p.Bitrate = "1280.0kbits/s"
	p.SetOutTime(40 * time.Second)

	summary := p.FormatSummary()
	for _, want := range []string{"40.0%", "2.50x", "1280.0kbits/s", "ETA:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary %q missing %q", summary, want)
		}
	}
}
