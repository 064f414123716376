package models

import (
	"fmt"
	"time"
)

type endKind uint8

const (
	endUnset endKind = iota
	endBounded
	endOpen
)

// End is the end of a Segment: either a bounded timestamp or open-ended,
// meaning "through the end of the source video".
//
// The zero value is neither; Segment.Validate rejects it so an unset end is
// never mistaken for a zero timestamp.
type End struct {
	kind endKind
	at   time.Duration
}

// Bounded returns an End at the given timestamp.
func Bounded(at time.Duration) End {
	return End{kind: endBounded, at: at}
}

// OpenEnded returns an End that extends to the end of the source video.
func OpenEnded() End {
	return End{kind: endOpen}
}

// Value returns the end timestamp and true when bounded.
func (e End) Value() (time.Duration, bool) {
	if e.kind != endBounded {
		return 0, false
	}
	return e.at, true
}

// IsOpen reports whether the end is open-ended.
func (e End) IsOpen() bool {
	return e.kind == endOpen
}

// IsSet reports whether the end was constructed with Bounded or OpenEnded.
func (e End) IsSet() bool {
	return e.kind != endUnset
}

func (e End) String() string {
	switch e.kind {
	case endBounded:
		return e.at.String()
	case endOpen:
		return "open"
	default:
		return "unset"
	}
}

// Segment is a contiguous span of the source video to keep.
//
// Segments produced by the chapter parser are non-overlapping, in strictly
// increasing start order, and only the last one may be open-ended.
type Segment struct {
	Start time.Duration
	End   End
}

// NewSegment creates a validated Segment.
//
// Example:
//
//	seg, err := models.NewSegment(5*time.Second, models.Bounded(65*time.Second))
//	tail, err := models.NewSegment(30*time.Minute, models.OpenEnded())
func NewSegment(start time.Duration, end End) (Segment, error) {
	s := Segment{Start: start, End: end}
	if err := s.Validate(); err != nil {
		return Segment{}, fmt.Errorf("invalid segment: %w", err)
	}
	return s, nil
}

// Validate checks that the segment has a set end, a non-negative start and,
// when bounded, start < end.
func (s Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("start must not be negative")
	}
	if !s.End.IsSet() {
		return fmt.Errorf("end must be bounded or open-ended")
	}
	if end, ok := s.End.Value(); ok && s.Start >= end {
		return fmt.Errorf("start must be less than end")
	}
	return nil
}

// Duration returns end - start, or false for an open-ended segment.
func (s Segment) Duration() (time.Duration, bool) {
	end, ok := s.End.Value()
	if !ok {
		return 0, false
	}
	return end - s.Start, true
}

// Contains reports whether ts falls inside the segment. The start is
// inclusive and a bounded end is exclusive.
func (s Segment) Contains(ts time.Duration) bool {
	if ts < s.Start {
		return false
	}
	if s.End.IsOpen() {
		return true
	}
	end, ok := s.End.Value()
	return ok && ts < end
}

func (s Segment) String() string {
	if d, ok := s.Duration(); ok {
		return fmt.Sprintf("Segment(start=%s, end=%s, duration=%s)", s.Start, s.End, d)
	}
	return fmt.Sprintf("Segment(start=%s, end=%s)", s.Start, s.End)
}
