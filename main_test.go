package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chaptertrim/config"
)

const chapterFile = `0:00:05.151 Opening
0:01:05.822 --CM
0:02:36.160 Main Content
0:26:25.064 --CM
0:28:25.179 Ending
`

// isolate keeps config discovery away from the developer's own files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(strings.NewReader(""), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeInputs(t *testing.T, dir string) (string, string) {
	t.Helper()
	chapters := filepath.Join(dir, "show.chapters")
	video := filepath.Join(dir, "show.mp4")
	if err := os.WriteFile(chapters, []byte(chapterFile), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(video, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return chapters, video
}

func requireContains(t *testing.T, s, want string) {
	t.Helper()
	if !strings.Contains(s, want) {
		t.Errorf("Expected output to contain %q, got:\n%s", want, s)
	}
}

func TestRoot_DryRun(t *testing.T) {
	dir := isolate(t)
	chapters, video := writeInputs(t, dir)

	out, _, err := runCLI(t, "--dry-run", "--ffmpeg", "/nonexistent/ffmpeg", chapters, video)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	output := filepath.Join(dir, "show_edited.mp4")
	requireContains(t, out, "[DRY RUN] fast mode, 3 segments -> "+output)
	requireContains(t, out, "/nonexistent/ffmpeg")
	requireContains(t, out, "0:00:00.000 Opening")

	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected no output file in dry-run mode, stat returned %v", err)
	}
}

func TestRoot_DryRunSplit(t *testing.T) {
	dir := isolate(t)
	chapters, video := writeInputs(t, dir)

	out, _, err := runCLI(t, "--dry-run", "--split", "-o", filepath.Join(dir, "parts"), chapters, video)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	requireContains(t, out, "[DRY RUN] split into 3 files")
	requireContains(t, out, "02_Main Content.mp4")

	if _, err := os.Stat(filepath.Join(dir, "parts")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected no output directory in dry-run mode, stat returned %v", err)
	}
}

func TestRoot_VerbosePrintsConfig(t *testing.T) {
	dir := isolate(t)
	chapters, video := writeInputs(t, dir)

	out, _, err := runCLI(t, "--dry-run", "-v", "-j", "3", chapters, video)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	requireContains(t, out, "Workers")
	requireContains(t, out, "Exclude prefix")
}

func TestRoot_ConfigFileApplies(t *testing.T) {
	dir := isolate(t)
	chapters, video := writeInputs(t, dir)

	cfgPath := filepath.Join(dir, "chaptertrim.toml")
	if err := os.WriteFile(cfgPath, []byte("accurate = true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// accurate mode also probes keyframes, which fails quietly without ffprobe
	out, _, err := runCLI(t, "--dry-run", "--ffprobe", "/nonexistent/ffprobe", chapters, video)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	requireContains(t, out, "[DRY RUN] accurate mode")
}

func TestRoot_HelpNamesDefaultPrefix(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	requireContains(t, out, `exclude prefix ("--" by default)`)
}

func TestRoot_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(chapters, video string) []string
		want string
	}{
		{
			name: "missing argument",
			args: func(chapters, _ string) []string { return []string{chapters} },
			want: "accepts 2 arg(s)",
		},
		{
			name: "quiet and verbose",
			args: func(chapters, video string) []string { return []string{"-q", "-v", chapters, video} },
			want: "quiet",
		},
		{
			name: "missing video",
			args: func(chapters, _ string) []string { return []string{chapters, "nope.mp4"} },
			want: "configuration validation failed",
		},
		{
			name: "bad split pattern",
			args: func(chapters, video string) []string {
				return []string{"--split", "--split-pattern", "{chapter}", chapters, video}
			},
			want: "unknown placeholder",
		},
		{
			name: "bad gpu",
			args: func(chapters, video string) []string { return []string{"--gpu", "voodoo", chapters, video} },
			want: "voodoo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			chapters, video := writeInputs(t, dir)

			_, _, err := runCLI(t, tt.args(chapters, video)...)
			if err == nil {
				t.Fatal("Expected an error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	target := filepath.Join(dir, ".chaptertrim", "config.yaml")
	requireContains(t, out, "Wrote default configuration to "+target)

	cfg, err := config.LoadConfigFile(target)
	if err != nil {
		t.Fatalf("Expected written config to load, got %v", err)
	}
	if cfg.ExcludePrefix != config.DefaultConfig().ExcludePrefix {
		t.Errorf("Expected default exclude prefix, got %q", cfg.ExcludePrefix)
	}

	if _, _, err := runCLI(t, "config", "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected already exists error, got %v", err)
	}
	if _, _, err := runCLI(t, "config", "init", "--overwrite"); err != nil {
		t.Errorf("Expected --overwrite to succeed, got %v", err)
	}
}

func TestConfigInit_TOML(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "settings", "chaptertrim.toml")

	if _, _, err := runCLI(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, string(data), "exclude_prefix = ")
}

func TestConfigShow(t *testing.T) {
	dir := isolate(t)

	out, _, err := runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "No config file found")

	cfgPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(cfgPath, []byte("exclude_prefix: \"#\"\nworkers: 6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, _, err = runCLI(t, "config", "show", "-c", cfgPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Config file: "+cfgPath)
	requireContains(t, out, `"#"`)
	requireContains(t, out, "6")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitFailure},
		{context.Canceled, exitInterrupted},
		{fmt.Errorf("trim failed: %w", context.Canceled), exitInterrupted},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d; want %d", tt.err, got, tt.want)
		}
	}
}
