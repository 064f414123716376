package chapters

import (
	"fmt"
	"time"

	"chaptertrim/models"
)

// Remapper rebases chapter timestamps onto the timeline produced by
// concatenating the kept segments in order.
type Remapper struct {
	excludePrefix string
}

// NewRemapper creates a Remapper that skips titles carrying excludePrefix.
func NewRemapper(excludePrefix string) *Remapper {
	return &Remapper{excludePrefix: excludePrefix}
}

// Remap returns one chapter per non-excluded input chapter that falls inside
// a kept segment, with its timestamp moved to the output timeline. Chapters
// in excluded spans or gaps are dropped. The result is never nil.
//
// The new timestamp is the summed duration of every earlier segment plus the
// chapter's offset inside its own segment.
func (r *Remapper) Remap(chapters []models.Chapter, segments []models.Segment) []models.Chapter {
	out := make([]models.Chapter, 0, len(chapters))

	for _, ch := range chapters {
		if ch.IsExcluded(r.excludePrefix) {
			continue
		}

		idx := findSegment(ch.Timestamp, segments)
		if idx < 0 {
			continue
		}

		out = append(out, models.Chapter{
			Timestamp: offsetBefore(segments, idx) + (ch.Timestamp - segments[idx].Start),
			Title:     ch.Title,
		})
	}

	return out
}

// findSegment returns the index of the first segment containing ts, or -1.
func findSegment(ts time.Duration, segments []models.Segment) int {
	for i, seg := range segments {
		if seg.Contains(ts) {
			return i
		}
	}
	return -1
}

// offsetBefore sums the durations of segments[:idx]. Only the last segment
// can be open-ended, so every segment before idx has a duration.
func offsetBefore(segments []models.Segment, idx int) time.Duration {
	var total time.Duration
	for _, seg := range segments[:idx] {
		if d, ok := seg.Duration(); ok {
			total += d
		}
	}
	return total
}

// SimpleChapters builds one chapter per segment on the output timeline, at
// the point where that segment starts. Missing titles default to
// "Segment N".
func SimpleChapters(segments []models.Segment, titles []string) []models.Chapter {
	out := make([]models.Chapter, 0, len(segments))
	var current time.Duration

	for i, seg := range segments {
		title := fmt.Sprintf("Segment %d", i+1)
		if i < len(titles) && titles[i] != "" {
			title = titles[i]
		}
		out = append(out, models.Chapter{Timestamp: current, Title: title})

		if d, ok := seg.Duration(); ok {
			current += d
		}
	}

	return out
}
