// Package trimmer runs chaptertrim end to end: it parses the chapter file,
// plans ffmpeg tasks, executes them through the orchestrator and writes the
// chapter file for the result.
package trimmer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"chaptertrim/chapters"
	"chaptertrim/command/extract"
	"chaptertrim/config"
	"chaptertrim/ffmpeg"
	"chaptertrim/ffprobe"
	"chaptertrim/gpu"
	"chaptertrim/internal/logging"
	"chaptertrim/internal/termui"
	"chaptertrim/models"
	"chaptertrim/orchestrator"
)

var (
	// ErrNoSegments means every chapter was excluded.
	ErrNoSegments = errors.New("no segments to extract")
	// ErrOutputLocked means another run holds the output lock.
	ErrOutputLocked = errors.New("output is locked by another chaptertrim run")
)

// Prober is the part of ffprobe the pipeline needs.
type Prober interface {
	Probe(ctx context.Context, sourcePath string) (*ffprobe.ProbeResult, error)
	CheckKeyframeAlignment(ctx context.Context, sourcePath string, segments []models.Segment, tolerance time.Duration) ([]ffprobe.AlignmentWarning, error)
}

// Options configure a Trimmer.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	Runner *ffmpeg.Runner
	Prober Prober

	// Out receives the plan, confirmation prompt and summary.
	Out io.Writer
	// In supplies answers to the overwrite prompt.
	In io.Reader
	// Interactive is true when In is a terminal. Without it an existing
	// output is only replaced with --yes.
	Interactive bool
	// Progress draws a progress bar on Out.
	Progress bool
	// Color forces coloured status lines.
	Color bool
}

// Summary describes a finished run.
type Summary struct {
	Declined bool // the user chose not to overwrite

	Segments    []models.Segment
	Chapters    []models.Chapter // remapped chapters, trim mode only
	Output      string
	ChapterFile string   // written chapter file, empty if none
	Files       []string // split mode outputs
	Results     []*models.TaskResult

	InputSize  int64
	OutputSize int64
	Elapsed    time.Duration
}

// Trimmer runs one trim or split job.
type Trimmer struct {
	cfg     *config.Config
	logger  *slog.Logger
	runner  *ffmpeg.Runner
	prober  Prober
	out     io.Writer
	in      io.Reader
	printer *termui.Printer

	interactive bool
	progress    bool
}

// New creates a Trimmer from opts.
func New(opts Options) *Trimmer {
	t := &Trimmer{
		cfg:         opts.Config,
		logger:      opts.Logger,
		runner:      opts.Runner,
		prober:      opts.Prober,
		out:         opts.Out,
		in:          opts.In,
		interactive: opts.Interactive,
		progress:    opts.Progress,
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	t.logger = logging.Component(t.logger, "trimmer")
	if t.out == nil {
		t.out = io.Discard
	}
	if t.in == nil {
		t.in = os.Stdin
	}
	if t.runner == nil {
		t.runner = ffmpeg.NewRunner(ffmpeg.Options{
			Binary:  t.cfg.FFmpegPath,
			DryRun:  t.cfg.DryRun,
			Verbose: t.cfg.Verbose,
			Logger:  t.logger,
		})
	}
	if t.prober == nil {
		t.prober = ffprobe.NewProber(t.cfg.FFprobePath)
	}
	t.printer = termui.NewPrinter(t.out)
	if opts.Color {
		t.printer.SetColor(true)
	}
	return t
}

// Run executes the configured job.
func (t *Trimmer) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	parser := chapters.NewParser(t.cfg.ExcludePrefix)
	segments, markers, err := parser.ParseFile(t.cfg.ChapterFile)
	if err != nil {
		return nil, err
	}
	for _, w := range chapters.Validate(markers) {
		t.logger.Warn("suspicious chapter marker", "warning", w.String())
	}
	t.logger.Info("parsed chapter file",
		"file", t.cfg.ChapterFile,
		"chapters", len(markers),
		"segments", len(segments),
	)

	var summary *Summary
	if t.cfg.Split {
		summary, err = t.runSplit(ctx, markers)
	} else {
		summary, err = t.runTrim(ctx, segments, markers)
	}
	if summary != nil {
		summary.Elapsed = time.Since(start)
	}
	return summary, err
}

// preflight checks that ffmpeg can be run.
func (t *Trimmer) preflight(ctx context.Context) error {
	if t.cfg.DryRun {
		return nil
	}
	version, err := t.runner.Version(ctx)
	if err != nil {
		return err
	}
	t.logger.Debug("found ffmpeg", "version", version)
	return nil
}

// resolveEncoder picks the hardware encoder when one is requested and the
// job re-encodes.
func (t *Trimmer) resolveEncoder(ctx context.Context, encodes bool) *gpu.Encoder {
	kind, err := gpu.ParseKind(t.cfg.GPU)
	if err != nil || kind == "" {
		return nil
	}
	if !encodes {
		t.logger.Info("GPU encoder ignored: stream copy does not encode", "gpu", string(kind))
		return nil
	}
	return gpu.Resolve(ctx, kind, t.runner, t.logger)
}

// confirmOverwrite asks before replacing existing files. It returns false
// when the run should stop without error.
func (t *Trimmer) confirmOverwrite(question string) (bool, error) {
	if t.cfg.Yes || t.cfg.DryRun {
		return true, nil
	}
	if !t.interactive {
		t.logger.Warn("output exists and input is not interactive, use --yes to overwrite")
		return false, nil
	}
	ok, err := termui.Confirm(t.in, t.out, question)
	if err != nil {
		return false, err
	}
	if !ok {
		t.printer.Info("Operation cancelled.")
	}
	return ok, nil
}

// resourceFor returns the orchestrator resource an encode task competes for.
func resourceFor(enc *gpu.Encoder, encodes bool) orchestrator.ResourceType {
	if enc != nil && encodes {
		return orchestrator.ResourceGPUEncode
	}
	return orchestrator.ResourceCPU
}

func (t *Trimmer) newOrchestrator() *orchestrator.DAGOrchestrator {
	return orchestrator.NewDAGOrchestrator([]orchestrator.ResourceConstraint{
		{Type: orchestrator.ResourceCPU, MaxSlots: t.cfg.Workers},
		{Type: orchestrator.ResourceGPUEncode, MaxSlots: 1},
		{Type: orchestrator.ResourceIO, MaxSlots: 1},
	})
}

// execute runs the orchestrator with a progress bar over its tasks.
func (t *Trimmer) execute(ctx context.Context, dag *orchestrator.DAGOrchestrator, bar *termui.TaskProgress) ([]*models.TaskResult, error) {
	dag.SetProgressCallback(func(completed, total int, task *orchestrator.Task) {
		if task.Status == orchestrator.TaskCompleted {
			bar.Done(task.ID)
		}
		t.logger.Debug("task finished",
			"task", task.ID,
			"status", task.Status.String(),
			"completed", completed,
			"total", total,
		)
	})

	defer bar.Finish()
	results, err := dag.Execute(ctx)
	t.logger.Debug("orchestrator finished", "stats", dag.GetStats())
	return results, err
}

// trackProgress feeds ffmpeg progress into bar and logs each finished task.
func (t *Trimmer) trackProgress(bar *termui.TaskProgress) models.ProgressCallback {
	return func(p *models.EncodingProgress) {
		bar.Update(p)
		if p.State == models.ProgressStateCompleted {
			t.logger.Debug("ffmpeg task done", "task", p.TaskID, "progress", p.FormatSummary())
		}
	}
}

// extractMode is the configured extraction mode.
func (t *Trimmer) extractMode() extract.Mode {
	return extract.ParseMode(t.cfg.Accurate, t.cfg.Reencode)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func wrapRunError(what string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w", what, err)
}
