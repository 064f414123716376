package termui

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"chaptertrim/models"
)

// TaskProgress aggregates per-task ffmpeg progress into one bar. Each task
// contributes up to 100 units. It is safe for concurrent use.
type TaskProgress struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	percent map[string]float64
}

// NewTaskProgress creates a bar for tasks tasks written to out. A nil out
// or enabled=false yields a progress tracker that draws nothing.
func NewTaskProgress(out io.Writer, tasks int, description string, enabled bool) *TaskProgress {
	tp := &TaskProgress{percent: make(map[string]float64)}
	if !enabled || out == nil || tasks <= 0 {
		return tp
	}
	tp.bar = progressbar.NewOptions(tasks*100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return tp
}

// Update records p. It matches models.ProgressCallback.
func (tp *TaskProgress) Update(p *models.EncodingProgress) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	pct := p.Progress
	if p.State == models.ProgressStateCompleted {
		pct = 100
	}
	if pct < tp.percent[p.TaskID] {
		return
	}
	tp.percent[p.TaskID] = pct
	if tp.bar != nil {
		_ = tp.bar.Set(int(tp.totalLocked()))
	}
}

// Done marks taskID complete, for tasks that report no progress.
func (tp *TaskProgress) Done(taskID string) {
	tp.Update(&models.EncodingProgress{TaskID: taskID, State: models.ProgressStateCompleted})
}

// Total returns the sum of all task percentages.
func (tp *TaskProgress) Total() float64 {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.totalLocked()
}

func (tp *TaskProgress) totalLocked() float64 {
	var sum float64
	for _, v := range tp.percent {
		sum += v
	}
	return sum
}

// Finish completes and clears the bar.
func (tp *TaskProgress) Finish() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.bar != nil {
		_ = tp.bar.Finish()
	}
}
