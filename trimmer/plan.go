package trimmer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"chaptertrim/chapters"
	"chaptertrim/command"
	"chaptertrim/internal/termui"
	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
	"chaptertrim/orchestrator"
)

// printTrimPlan shows what a trim run would do without touching any file.
func (t *Trimmer) printTrimPlan(plan *trimPlan, remapped []models.Chapter) error {
	timeline := chapters.SimpleChapters(plan.segments, nil)

	rows := make([][]string, 0, len(plan.segments))
	for i, seg := range plan.segments {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			timeutil.FormatChapter(seg.Start),
			endLabel(seg),
			durationLabel(seg),
			timeutil.FormatChapter(timeline[i].Timestamp),
			filepath.Base(plan.builders[i].GetOutputPath()),
		})
	}

	fmt.Fprintf(t.out, "[DRY RUN] %s mode, %d segments -> %s\n", t.extractMode(), len(plan.segments), plan.concat.GetOutputPath())
	fmt.Fprintln(t.out, termui.RenderTable(
		[]string{"#", "Start", "End", "Duration", "Output at", "File"},
		rows,
		[]termui.Align{termui.AlignRight, termui.AlignRight, termui.AlignRight, termui.AlignRight, termui.AlignRight},
	))

	if err := t.printCommands(plan.dag); err != nil {
		return err
	}

	if t.cfg.NoChapters {
		return nil
	}
	fmt.Fprintf(t.out, "\nChapter file %s:\n", ChapterFilePath(plan.concat.GetOutputPath()))
	fmt.Fprint(t.out, chapters.Format(remapped))
	return nil
}

// printSplitPlan shows the files a split run would create.
func (t *Trimmer) printSplitPlan(plan *splitPlan, outDir string) error {
	rows := make([][]string, 0, len(plan.parts))
	for _, p := range plan.parts {
		rows = append(rows, []string{
			strconv.Itoa(p.Number),
			p.Title,
			timeutil.FormatChapter(p.Span.Start),
			endLabel(p.Span),
			durationLabel(p.Span),
			p.FileName,
		})
	}

	fmt.Fprintf(t.out, "[DRY RUN] split into %d files -> %s\n", len(plan.parts), outDir)
	fmt.Fprintln(t.out, termui.RenderTable(
		[]string{"#", "Title", "Start", "End", "Duration", "File"},
		rows,
		[]termui.Align{termui.AlignRight, termui.AlignLeft, termui.AlignRight, termui.AlignRight, termui.AlignRight},
	))

	return t.printCommands(plan.dag)
}

// printCommands lists every ffmpeg command, grouped by execution stage.
func (t *Trimmer) printCommands(dag *orchestrator.DAGOrchestrator) error {
	levels, err := dag.Levels()
	if err != nil {
		return err
	}

	for i, ids := range levels {
		fmt.Fprintf(t.out, "\nStage %d (%s):\n", i+1, strings.Join(ids, ", "))
		for _, id := range ids {
			task := dag.GetTask(id)
			if task == nil {
				continue
			}
			if err := command.Validate(task.Command); err != nil {
				return err
			}
			line, err := task.Command.DryRun()
			if err != nil {
				return err
			}
			fmt.Fprintf(t.out, "  # %s\n  %s\n", task.Command.Description(), line)
		}
	}
	return nil
}

func endLabel(s models.Segment) string {
	if end, ok := s.End.Value(); ok {
		return timeutil.FormatChapter(end)
	}
	return "end"
}

func durationLabel(s models.Segment) string {
	if d, ok := s.Duration(); ok {
		return timeutil.FormatChapter(d)
	}
	return "to end"
}
