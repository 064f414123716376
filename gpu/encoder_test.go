package gpu

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type fakeTester struct {
	available map[string]bool
	tested    []string
}

func (f *fakeTester) TestEncoder(_ context.Context, codec string) bool {
	f.tested = append(f.tested, codec)
	return f.available[codec]
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLookup(t *testing.T) {
	tests := []struct {
		kind  Kind
		codec string
		args  string
	}{
		{VideoToolbox, "h264_videotoolbox", "-c:v h264_videotoolbox -profile:v high -level 4.2"},
		{NVENC, "h264_nvenc", "-c:v h264_nvenc -preset p4 -tune hq -profile:v high"},
		{QSV, "h264_qsv", "-c:v h264_qsv -preset medium -profile:v high"},
		{AMF, "h264_amf", "-c:v h264_amf -quality balanced -profile:v high"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e, ok := Lookup(tt.kind)
			if !ok {
				t.Fatalf("Lookup(%s) not found", tt.kind)
			}
			if e.Codec != tt.codec {
				t.Errorf("Expected codec %s, got %s", tt.codec, e.Codec)
			}
			if got := strings.Join(e.Args(), " "); got != tt.args {
				t.Errorf("Args() = %q; want %q", got, tt.args)
			}
		})
	}

	if _, ok := Lookup("cuda"); ok {
		t.Error("Expected unknown kind to be missing")
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	e, _ := Lookup(NVENC)
	e.Params[0] = "mutated"
	again, _ := Lookup(NVENC)
	if again.Params[0] != "-preset" {
		t.Error("Lookup must not expose the shared table")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{"", "", false},
		{"auto", Auto, false},
		{"NVENC", NVENC, false},
		{" qsv ", QSV, false},
		{"videotoolbox", VideoToolbox, false},
		{"amf", AMF, false},
		{"cuda", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseKind(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestKinds(t *testing.T) {
	got := strings.Join(Kinds(), ",")
	if got != "auto,amf,nvenc,qsv,videotoolbox" {
		t.Errorf("Kinds() = %s", got)
	}
}

func TestDetectionOrder(t *testing.T) {
	tests := []struct {
		goos     string
		expected []Kind
	}{
		{"darwin", []Kind{VideoToolbox}},
		{"windows", []Kind{NVENC, AMF, QSV}},
		{"linux", []Kind{NVENC, QSV}},
		{"freebsd", []Kind{NVENC, QSV}},
	}

	for _, tt := range tests {
		got := DetectionOrder(tt.goos)
		if len(got) != len(tt.expected) {
			t.Errorf("DetectionOrder(%s) = %v; want %v", tt.goos, got, tt.expected)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("DetectionOrder(%s) = %v; want %v", tt.goos, got, tt.expected)
				break
			}
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		goos      string
		available map[string]bool
		expected  string
		tested    []string
	}{
		{
			name:     "No GPU requested",
			kind:     "",
			goos:     "linux",
			expected: "",
		},
		{
			name:      "Auto picks first working on Windows",
			kind:      Auto,
			goos:      "windows",
			available: map[string]bool{"h264_amf": true, "h264_qsv": true},
			expected:  "h264_amf",
			tested:    []string{"h264_nvenc", "h264_amf"},
		},
		{
			name:     "Auto with nothing available",
			kind:     Auto,
			goos:     "linux",
			expected: "",
			tested:   []string{"h264_nvenc", "h264_qsv"},
		},
		{
			name:      "Explicit available",
			kind:      QSV,
			goos:      "linux",
			available: map[string]bool{"h264_qsv": true},
			expected:  "h264_qsv",
			tested:    []string{"h264_qsv"},
		},
		{
			name:     "Explicit unavailable falls back",
			kind:     VideoToolbox,
			goos:     "linux",
			expected: "",
			tested:   []string{"h264_videotoolbox"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tester := &fakeTester{available: tt.available}
			e := resolve(context.Background(), tt.kind, tester, discard, tt.goos)

			got := ""
			if e != nil {
				got = e.Codec
			}
			if got != tt.expected {
				t.Errorf("Expected encoder %q, got %q", tt.expected, got)
			}
			if strings.Join(tester.tested, ",") != strings.Join(tt.tested, ",") {
				t.Errorf("Expected probes %v, got %v", tt.tested, tester.tested)
			}
		})
	}
}

func TestFamily(t *testing.T) {
	tests := map[string]string{
		"libx264":           "x264",
		"h264_videotoolbox": "videotoolbox",
		"h264_nvenc":        "nvenc",
		"hevc_nvenc":        "nvenc",
		"h264_qsv":          "qsv",
		"h264_amf":          "amf",
		"libvpx-vp9":        "",
	}
	for codec, expected := range tests {
		if got := Family(codec); got != expected {
			t.Errorf("Family(%s) = %q; want %q", codec, got, expected)
		}
	}
}
