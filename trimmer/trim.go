package trimmer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"chaptertrim/chapters"
	"chaptertrim/command/extract"
	"chaptertrim/concatenator"
	"chaptertrim/ffprobe"
	"chaptertrim/gpu"
	"chaptertrim/internal/termui"
	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
	"chaptertrim/orchestrator"
)

// ChapterFilePath is where the chapter file for output is written:
// the output path with its extension replaced by ".txt".
func ChapterFilePath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".txt"
}

// trimPlan is everything needed to extract and merge one trim run.
type trimPlan struct {
	segments []models.Segment
	builders []*extract.ExtractBuilder
	concat   *concatenator.Concatenator
	dag      *orchestrator.DAGOrchestrator
}

func (t *Trimmer) runTrim(ctx context.Context, segments []models.Segment, markers []models.Chapter) (*Summary, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if err := chapters.ValidateSegments(segments); err != nil {
		return nil, fmt.Errorf("invalid segments: %w", err)
	}
	for i, seg := range segments {
		t.logger.Debug("segment", "index", i+1, "span", extract.Span(seg))
	}

	if err := t.preflight(ctx); err != nil {
		return nil, err
	}

	mode := t.extractMode()
	enc := t.resolveEncoder(ctx, mode != extract.ModeFast)

	var probe *ffprobe.ProbeResult
	if mode == extract.ModeReencode {
		var err error
		probe, err = t.prober.Probe(ctx, t.cfg.Input)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.Warn("could not probe source, using default encoding parameters", "error", err)
		} else {
			t.compareWithSource(probe, markers)
		}
	}

	if mode != extract.ModeFast {
		t.checkKeyframes(ctx, segments)
	}

	output := t.cfg.OutputPath()
	if exists(output) {
		ok, err := t.confirmOverwrite(fmt.Sprintf("Output file '%s' already exists. Overwrite?", output))
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Summary{Declined: true, Output: output}, nil
		}
	}

	if !t.cfg.DryRun {
		lock, err := lockOutput(output)
		if err != nil {
			return nil, err
		}
		defer lock.release()
	}

	ws, err := newWorkspace(t.cfg.TempDir, t.cfg.KeepTemp, t.cfg.DryRun, t.logger)
	if err != nil {
		return nil, err
	}
	if !t.cfg.DryRun {
		defer ws.cleanup()
	}

	bar := termui.NewTaskProgress(t.out, len(segments)+1, "Trimming", t.progress && !t.cfg.DryRun)
	plan, err := t.planTrim(segments, markers, mode, enc, probe, ws, output, bar)
	if err != nil {
		return nil, err
	}

	remapped := chapters.NewRemapper(t.cfg.ExcludePrefix).Remap(markers, segments)
	summary := &Summary{Segments: segments, Chapters: remapped, Output: output}

	if t.cfg.DryRun {
		return summary, t.printTrimPlan(plan, remapped)
	}

	t.logger.Info("extracting segments",
		"segments", len(segments),
		"mode", string(mode),
		"workers", t.cfg.Workers,
		"temp_dir", ws.dir,
	)
	results, err := t.execute(ctx, plan.dag, bar)
	summary.Results = results
	if err != nil {
		return summary, wrapRunError("trim failed", err)
	}

	if err := t.writeChapters(summary, remapped); err != nil {
		return summary, err
	}

	summary.InputSize = fileSize(t.cfg.Input)
	summary.OutputSize = fileSize(output)
	t.printer.Success("Output saved to %s", output)
	if t.cfg.Verbose {
		t.printSizes(summary)
	}
	return summary, nil
}

// planTrim builds one extract task per segment and the concat task that
// depends on all of them. Segment files are named by index so the merge
// follows the source timeline whatever order extraction finishes in.
func (t *Trimmer) planTrim(
	segments []models.Segment,
	markers []models.Chapter,
	mode extract.Mode,
	enc *gpu.Encoder,
	probe *ffprobe.ProbeResult,
	ws *workspace,
	output string,
	bar *termui.TaskProgress,
) (*trimPlan, error) {
	plan := &trimPlan{segments: segments, dag: t.newOrchestrator()}
	ext := filepath.Ext(t.cfg.Input)
	resource := resourceFor(enc, mode != extract.ModeFast)

	files := make([]string, 0, len(segments))
	deps := make([]string, 0, len(segments))
	for i, seg := range segments {
		file := ws.path(fmt.Sprintf("segment_%03d%s", i, ext))
		b := extract.NewExtractBuilder(t.runner, t.cfg.Input, seg, file).
			SetIndex(i).
			SetMode(mode).
			SetEncoder(enc).
			SetProbe(probe).
			SetSplitSafe(t.cfg.SplitSafe, markers)
		if t.progress {
			b.SetProgressCallback(t.trackProgress(bar))
		}

		if err := plan.dag.AddTask(&orchestrator.Task{ID: b.TaskID(), Command: b, Resource: resource}); err != nil {
			return nil, err
		}
		plan.builders = append(plan.builders, b)
		files = append(files, file)
		deps = append(deps, b.TaskID())
	}

	plan.concat = concatenator.NewConcatenator(t.runner, files, output, ws.dir)
	ws.path(concatenator.ListFileName)
	if t.progress {
		plan.concat.SetProgressCallback(t.trackProgress(bar))
	}
	err := plan.dag.AddTask(&orchestrator.Task{
		ID:           "concat",
		Command:      plan.concat,
		Dependencies: deps,
		Resource:     orchestrator.ResourceIO,
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// checkKeyframes warns about cut points away from keyframes. Failures to
// probe are logged, never fatal.
func (t *Trimmer) checkKeyframes(ctx context.Context, segments []models.Segment) {
	t.logger.Info("validating segment keyframe alignment")
	warnings, err := t.prober.CheckKeyframeAlignment(ctx, t.cfg.Input, segments, ffprobe.DefaultKeyframeTolerance)
	if err != nil {
		t.logger.Warn("keyframe check failed", "error", err)
	}
	for _, w := range warnings {
		t.logger.Warn("cut point is not on a keyframe", "detail", w.String())
	}
}

// compareWithSource warns about chapters past the end of the probed source
// and notes embedded chapters the chapter file replaces.
func (t *Trimmer) compareWithSource(probe *ffprobe.ProbeResult, markers []models.Chapter) {
	if duration, err := probe.GetDuration(); err == nil {
		for _, ch := range markers {
			if ch.Timestamp >= duration {
				t.logger.Warn("chapter starts after the end of the video",
					"title", ch.Title,
					"timestamp", timeutil.FormatChapter(ch.Timestamp),
					"duration", timeutil.FormatChapter(duration),
				)
			}
		}
	}
	if probe.HasChapters() {
		embedded, err := probe.MarkerChapters()
		if err != nil {
			t.logger.Debug("unreadable embedded chapters", "error", err)
			return
		}
		t.logger.Debug("source has embedded chapters, using the chapter file instead",
			"embedded", len(embedded),
			"chapter_file", len(markers),
		)
	}
}

// writeChapters writes the remapped chapters next to the output.
func (t *Trimmer) writeChapters(summary *Summary, remapped []models.Chapter) error {
	if t.cfg.NoChapters {
		return nil
	}
	if len(remapped) == 0 {
		t.logger.Warn("no chapters to write for edited video")
		return nil
	}

	path := ChapterFilePath(summary.Output)
	if sameFile(path, t.cfg.ChapterFile) {
		t.logger.Warn("not overwriting the input chapter file", "file", path)
		return nil
	}
	if exists(path) {
		t.logger.Debug("chapter file will be overwritten", "file", path)
	}
	if err := chapters.WriteFile(path, remapped); err != nil {
		return fmt.Errorf("write chapter file: %w", err)
	}
	summary.ChapterFile = path
	t.printer.Success("Chapter file saved to %s", path)
	t.logger.Debug("generated chapters", "count", len(remapped))
	return nil
}

func (t *Trimmer) printSizes(s *Summary) {
	if s.InputSize <= 0 {
		return
	}
	reduction := (1 - float64(s.OutputSize)/float64(s.InputSize)) * 100
	t.printer.Info("Original size: %s", humanize.Bytes(uint64(s.InputSize)))
	t.printer.Info("New size: %s", humanize.Bytes(uint64(s.OutputSize)))
	t.printer.Info("Size reduction: %.1f%%", reduction)
}

func sameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
