package ffprobe

import (
	"context"
	"fmt"
	"time"

	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
)

// DefaultKeyframeTolerance is how far a cut point may sit from the nearest
// keyframe before it is reported.
const DefaultKeyframeTolerance = 100 * time.Millisecond

// AlignmentWarning describes a segment boundary that does not land on a
// keyframe.
type AlignmentWarning struct {
	Segment  int // 1-based
	Boundary string
	At       time.Duration
	Keyframe time.Duration
}

// Offset is the distance between the boundary and its nearest keyframe.
func (w AlignmentWarning) Offset() time.Duration {
	return absDuration(w.Keyframe - w.At)
}

func (w AlignmentWarning) String() string {
	return fmt.Sprintf("segment %d: %s time %s is %.3fs from nearest keyframe",
		w.Segment, w.Boundary, timeutil.FormatChapter(w.At), w.Offset().Seconds())
}

// CheckKeyframeAlignment probes the keyframes around every segment boundary
// and reports those further than tolerance from one. Boundaries where no
// keyframe is found nearby are skipped.
func (p *Prober) CheckKeyframeAlignment(ctx context.Context, sourcePath string, segments []models.Segment, tolerance time.Duration) ([]AlignmentWarning, error) {
	var warnings []AlignmentWarning

	check := func(idx int, boundary string, at time.Duration) error {
		kf, ok, err := p.NearestKeyframe(ctx, sourcePath, at)
		if err != nil {
			return err
		}
		if ok && absDuration(kf-at) > tolerance {
			warnings = append(warnings, AlignmentWarning{Segment: idx + 1, Boundary: boundary, At: at, Keyframe: kf})
		}
		return nil
	}

	for i, seg := range segments {
		if err := check(i, "start", seg.Start); err != nil {
			return warnings, err
		}
		if end, ok := seg.End.Value(); ok {
			if err := check(i, "end", end); err != nil {
				return warnings, err
			}
		}
	}

	return warnings, nil
}
