package trimmer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"chaptertrim/command/segment"
	"chaptertrim/gpu"
	"chaptertrim/internal/termui"
	"chaptertrim/models"
	"chaptertrim/orchestrator"
	"chaptertrim/split"
)

// splitPlan is the set of per-chapter tasks for one split run.
type splitPlan struct {
	parts    []split.Part
	builders []*segment.SegmentBuilder
	dag      *orchestrator.DAGOrchestrator
}

func (t *Trimmer) runSplit(ctx context.Context, markers []models.Chapter) (*Summary, error) {
	planner, err := split.NewPlanner(t.cfg.ExcludePrefix, t.cfg.SplitPattern)
	if err != nil {
		return nil, err
	}
	parts, err := planner.Plan(markers, filepath.Ext(t.cfg.Input))
	if err != nil {
		return nil, err
	}

	if err := t.preflight(ctx); err != nil {
		return nil, err
	}
	enc := t.resolveEncoder(ctx, t.cfg.SplitSafe)

	outDir := t.cfg.OutputPath()
	if n := countExisting(outDir, parts); n > 0 {
		ok, err := t.confirmOverwrite(fmt.Sprintf("%d of %d files in '%s' already exist. Overwrite?", n, len(parts), outDir))
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Summary{Declined: true, Output: outDir}, nil
		}
	}

	if !t.cfg.DryRun {
		lock, err := lockOutput(outDir)
		if err != nil {
			return nil, err
		}
		defer lock.release()

		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	bar := termui.NewTaskProgress(t.out, len(parts), "Splitting", t.progress && !t.cfg.DryRun)
	plan, err := t.planSplit(parts, outDir, enc, bar)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Output: outDir}
	for _, p := range parts {
		summary.Segments = append(summary.Segments, p.Span)
		summary.Files = append(summary.Files, filepath.Join(outDir, p.FileName))
	}

	if t.cfg.DryRun {
		return summary, t.printSplitPlan(plan, outDir)
	}

	t.logger.Info("splitting video",
		"chapters", len(parts),
		"output_dir", outDir,
		"workers", t.cfg.Workers,
	)
	results, err := t.execute(ctx, plan.dag, bar)
	summary.Results = results
	if err != nil {
		return summary, wrapRunError("split failed", err)
	}

	t.printer.Success("Created %d chapter files in %s", len(parts), outDir)
	if t.cfg.Verbose {
		for _, f := range summary.Files {
			summary.OutputSize += fileSize(f)
			t.printer.Info("  %s", filepath.Base(f))
		}
	}
	return summary, nil
}

// planSplit creates one independent task per chapter.
func (t *Trimmer) planSplit(parts []split.Part, outDir string, enc *gpu.Encoder, bar *termui.TaskProgress) (*splitPlan, error) {
	plan := &splitPlan{parts: parts, dag: t.newOrchestrator()}
	resource := resourceFor(enc, t.cfg.SplitSafe)

	for _, p := range parts {
		b := segment.NewSegmentBuilder(t.runner, t.cfg.Input, p.Span, filepath.Join(outDir, p.FileName)).
			SetChapter(p.Number, p.Title).
			SetSplitSafe(t.cfg.SplitSafe, enc)
		if t.progress {
			b.SetProgressCallback(t.trackProgress(bar))
		}
		if err := plan.dag.AddTask(&orchestrator.Task{ID: b.TaskID(), Command: b, Resource: resource}); err != nil {
			return nil, err
		}
		plan.builders = append(plan.builders, b)
	}
	return plan, nil
}

func countExisting(dir string, parts []split.Part) int {
	n := 0
	for _, p := range parts {
		if exists(filepath.Join(dir, p.FileName)) {
			n++
		}
	}
	return n
}
