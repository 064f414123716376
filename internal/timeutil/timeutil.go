// Package timeutil parses and formats the timestamps used by chapter files
// and FFmpeg command lines.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// timestampPattern matches H:MM:SS.mmm with one or more hour digits.
var timestampPattern = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{3})$`)

// ParseTimestamp converts a chapter timestamp (H:MM:SS.mmm) to a duration.
//
// Minutes and seconds must both be below 60.
//
// Example:
//
//	ParseTimestamp("0:00:05.151")  // 5.151s
//	ParseTimestamp("12:34:56.789") // 12h34m56.789s
func ParseTimestamp(value string) (time.Duration, error) {
	matches := timestampPattern.FindStringSubmatch(value)
	if matches == nil {
		return 0, fmt.Errorf("invalid time format %q: expected H:MM:SS.mmm (e.g. 0:00:05.151)", value)
	}

	hours, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", value, err)
	}
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])
	millis, _ := strconv.Atoi(matches[4])

	if minutes >= 60 || seconds >= 60 {
		return 0, fmt.Errorf("invalid time values in %q: minutes and seconds must be < 60", value)
	}

	if hours > int64(time.Duration(1<<63-1)/time.Hour)-1 {
		return 0, fmt.Errorf("invalid hours in %q: value out of range", value)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// FormatChapter formats a duration as H:MM:SS.mmm, the chapter file format.
// Hours are not zero-padded. Sub-millisecond precision is truncated and
// negative durations are clamped to zero.
//
// Example:
//
//	FormatChapter(0)                      // "0:00:00.000"
//	FormatChapter(5*time.Minute + 500*ms) // "0:05:00.500"
func FormatChapter(d time.Duration) string {
	h, m, s, ms := split(d)
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
}

// FormatFFmpeg formats a duration as HH:MM:SS.mmm for FFmpeg -ss and -t.
//
// Example:
//
//	FormatFFmpeg(90 * time.Second)     // "00:01:30.000"
//	FormatFFmpeg(5*time.Hour + 1500ms) // "05:00:01.500"
func FormatFFmpeg(d time.Duration) string {
	h, m, s, ms := split(d)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// FormatSeconds formats a duration as decimal seconds with millisecond
// precision, e.g. "12.345". Used where FFmpeg expects plain seconds, such
// as -force_key_frames lists.
func FormatSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := int64(d / time.Millisecond)
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

func split(d time.Duration) (hours, minutes, seconds, millis int64) {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Millisecond)
	millis = total % 1000
	total /= 1000
	seconds = total % 60
	total /= 60
	minutes = total % 60
	hours = total / 60
	return hours, minutes, seconds, millis
}
