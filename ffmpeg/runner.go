package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"chaptertrim/models"
)

// Executor starts a process and waits for it. Implementations must honour
// ctx cancellation.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Give ffmpeg a chance to finalize on interrupt before it is killed.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 5 * time.Second
	return cmd.Run()
}

// stderrTail is how much of ffmpeg's stderr is kept for error messages.
const stderrTail = 4096

// Job is one ffmpeg invocation.
type Job struct {
	TaskID      string
	Description string
	Args        []string // arguments after the global flags
	// Expected output duration, for progress percentages. Zero if unknown.
	Duration time.Duration
	Progress models.ProgressCallback
}

// Options configure a Runner.
type Options struct {
	Binary   string // defaults to "ffmpeg"
	DryRun   bool
	Verbose  bool
	Logger   *slog.Logger
	Executor Executor
	Output   io.Writer // receives ffmpeg stderr in verbose mode; defaults to os.Stderr
}

// Runner executes ffmpeg jobs, or only logs them in dry-run mode.
type Runner struct {
	binary  string
	dryRun  bool
	verbose bool
	logger  *slog.Logger
	exec    Executor
	output  io.Writer
}

// NewRunner creates a Runner from opts.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		binary:  opts.Binary,
		dryRun:  opts.DryRun,
		verbose: opts.Verbose,
		logger:  opts.Logger,
		exec:    opts.Executor,
		output:  opts.Output,
	}
	if r.binary == "" {
		r.binary = "ffmpeg"
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.exec == nil {
		r.exec = commandExecutor{}
	}
	if r.output == nil {
		r.output = os.Stderr
	}
	return r
}

// Binary returns the ffmpeg executable this runner invokes.
func (r *Runner) Binary() string { return r.binary }

// DryRun reports whether jobs are only logged.
func (r *Runner) DryRun() bool { return r.dryRun }

// globalArgs are prepended to every job.
func (r *Runner) globalArgs(withProgress bool) []string {
	args := []string{"-hide_banner", "-nostdin"}
	if !r.verbose {
		args = append(args, "-loglevel", "error")
	}
	if withProgress {
		args = append(args, "-nostats", "-progress", "pipe:1")
	}
	return args
}

// BuildArgs returns the full argument list for job, without the binary.
func (r *Runner) BuildArgs(job Job) []string {
	args := r.globalArgs(job.Progress != nil)
	return append(args, job.Args...)
}

// CommandLine renders job as a shell-like command line for display.
func (r *Runner) CommandLine(job Job) string {
	return FormatCommand(r.binary, r.BuildArgs(job))
}

// Run executes job. In dry-run mode it logs the command and returns nil.
//
// Errors carry the tail of ffmpeg's stderr. A cancelled ctx returns
// ctx.Err().
func (r *Runner) Run(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.dryRun {
		r.logger.Info("[DRY RUN] "+job.Description, "command", r.CommandLine(job))
		return nil
	}

	r.logger.Debug(job.Description, "task", job.TaskID, "command", r.CommandLine(job))

	var stderr tailBuffer
	stderr.limit = stderrTail
	var errOut io.Writer = &stderr
	if r.verbose {
		errOut = io.MultiWriter(&stderr, r.output)
	}

	var runErr error
	if job.Progress == nil {
		runErr = r.exec.Run(ctx, r.binary, r.BuildArgs(job), io.Discard, errOut)
	} else {
		runErr = r.runWithProgress(ctx, job, errOut)
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: ffmpeg failed: %w", job.Description, runErr)
		}
		return fmt.Errorf("%s: ffmpeg failed: %w: %s", job.Description, runErr, msg)
	}
	return nil
}

func (r *Runner) runWithProgress(ctx context.Context, job Job, stderr io.Writer) error {
	pr, pw := io.Pipe()
	progress := models.NewEncodingProgress(job.TaskID, job.Duration)
	progress.State = models.ProgressStateStarting

	parsed := make(chan error, 1)
	go func() {
		err := NewProgressParser().StreamProgress(pr, progress, job.Progress)
		// Drain so ffmpeg never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
		parsed <- err
	}()

	runErr := r.exec.Run(ctx, r.binary, r.BuildArgs(job), pw, stderr)
	_ = pw.Close()
	parseErr := <-parsed

	if runErr != nil {
		return runErr
	}
	if parseErr != nil {
		r.logger.Debug("progress stream incomplete", "task", job.TaskID, "error", parseErr)
	}
	if progress.State != models.ProgressStateCompleted {
		progress.Complete()
		job.Progress(progress)
	}
	return nil
}

// Version returns the first line of "ffmpeg -version". It returns a helpful
// error when the binary is missing.
func (r *Runner) Version(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	err := r.exec.Run(ctx, r.binary, []string{"-version"}, &stdout, &stderr)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s not found: install ffmpeg and ensure it is in your PATH (https://ffmpeg.org/download.html)", r.binary)
		}
		return "", fmt.Errorf("%s returned an error, check your installation: %w", r.binary, err)
	}
	line, _, _ := strings.Cut(stdout.String(), "\n")
	return strings.TrimSpace(line), nil
}

// TestEncoder reports whether codec can encode a one-second test pattern.
// In dry-run mode every encoder is reported available.
func (r *Runner) TestEncoder(ctx context.Context, codec string) bool {
	if r.dryRun {
		return true
	}
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi",
		"-i", "color=c=black:s=320x240:d=1",
		"-c:v", codec,
		"-f", "null",
		"-",
	}
	return r.exec.Run(ctx, r.binary, args, io.Discard, io.Discard) == nil
}

// FormatCommand joins a command for display, single-quoting arguments that
// contain shell metacharacters.
func FormatCommand(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(binary))
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; t.limit > 0 && over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
