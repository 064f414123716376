// Package models provides the core data structures shared by the parser,
// the remapper and the FFmpeg command builders.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Chapter is one marker from a chapter file: a timestamp measured from the
// start of the video and a title.
//
// Chapters are plain values and are never mutated after parsing. Markers whose
// title starts with the exclusion prefix are still recorded as chapters; it is
// up to consumers to filter them with IsExcluded.
type Chapter struct {
	Timestamp time.Duration `json:"timestamp"`
	Title     string        `json:"title"`
}

// IsExcluded reports whether the chapter title carries the exclusion prefix.
// An empty prefix excludes nothing.
func (c Chapter) IsExcluded(prefix string) bool {
	return prefix != "" && strings.HasPrefix(c.Title, prefix)
}

func (c Chapter) String() string {
	return fmt.Sprintf("Chapter(%s, %q)", c.Timestamp, c.Title)
}
