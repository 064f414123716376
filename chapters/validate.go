package chapters

import (
	"fmt"

	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
)

// Validate reports chapters whose timestamps go backwards or repeat the
// previous marker. The parser accepts such input and still runs its scan;
// these warnings let callers tell the user the result may be surprising.
func Validate(chapters []models.Chapter) []Warning {
	var warnings []Warning
	for i := 1; i < len(chapters); i++ {
		prev, cur := chapters[i-1], chapters[i]
		switch {
		case cur.Timestamp < prev.Timestamp:
			warnings = append(warnings, Warning{
				Index: i,
				Message: fmt.Sprintf("timestamp %s (%q) is earlier than previous marker %s (%q)",
					timeutil.FormatChapter(cur.Timestamp), cur.Title,
					timeutil.FormatChapter(prev.Timestamp), prev.Title),
			})
		case cur.Timestamp == prev.Timestamp:
			warnings = append(warnings, Warning{
				Index: i,
				Message: fmt.Sprintf("timestamp %s (%q) duplicates previous marker %q",
					timeutil.FormatChapter(cur.Timestamp), cur.Title, prev.Title),
			})
		}
	}
	return warnings
}

// ValidateSegments checks a segment list before extraction: each segment must
// be valid on its own, segments must be in increasing order without overlap,
// and only the last one may be open-ended.
func ValidateSegments(segments []models.Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("segment list is empty")
	}

	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d is invalid: %w", i+1, err)
		}
		if seg.End.IsOpen() && i != len(segments)-1 {
			return fmt.Errorf("segment %d is open-ended but is not the last segment", i+1)
		}
	}

	for i := 0; i < len(segments)-1; i++ {
		currentEnd, _ := segments[i].End.Value()
		nextStart := segments[i+1].Start

		if currentEnd > nextStart {
			return fmt.Errorf("segments %d and %d overlap: segment %d ends at %s, segment %d starts at %s",
				i+1, i+2, i+1, timeutil.FormatChapter(currentEnd), i+2, timeutil.FormatChapter(nextStart))
		}
	}

	return nil
}
