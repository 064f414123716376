// Package split plans split mode: one output file per kept chapter.
package split

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"chaptertrim/models"
)

// DefaultPattern names files "01_Title".
const DefaultPattern = "{num:02d}_{title}"

// MaxTitleLength is the rune limit for a sanitised title.
const MaxTitleLength = 50

// ErrNoChapters is returned when every chapter is excluded.
var ErrNoChapters = errors.New("no chapters to split")

var (
	placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)
	numWidthPattern    = regexp.MustCompile(`^num:(0?)(\d+)d$`)
	unsafeFileChars    = strings.NewReplacer(
		"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_",
		`\`, "_", "|", "_", "?", "_", "*", "_",
	)
)

// Part is one chapter cut into its own file.
type Part struct {
	Number   int // 1-based among kept chapters
	Title    string
	Span     models.Segment
	FileName string
}

// Planner turns chapters into split parts.
type Planner struct {
	excludePrefix string
	pattern       string
}

// NewPlanner validates pattern and returns a planner. An empty pattern
// means DefaultPattern.
func NewPlanner(excludePrefix, pattern string) (*Planner, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := FormatName(pattern, 1, "x"); err != nil {
		return nil, err
	}
	return &Planner{excludePrefix: excludePrefix, pattern: pattern}, nil
}

// Plan returns one part per non-excluded chapter. Each part runs until the
// next non-excluded chapter; the last runs to the end of the video.
// ext, including its dot, is appended to every file name.
func (p *Planner) Plan(chapters []models.Chapter, ext string) ([]Part, error) {
	var parts []Part
	seen := make(map[string]int)

	for i, ch := range chapters {
		if ch.IsExcluded(p.excludePrefix) {
			continue
		}

		end := models.OpenEnded()
		for _, next := range chapters[i+1:] {
			if !next.IsExcluded(p.excludePrefix) {
				end = models.Bounded(next.Timestamp)
				break
			}
		}

		number := len(parts) + 1
		span, err := models.NewSegment(ch.Timestamp, end)
		if err != nil {
			return nil, fmt.Errorf("chapter %d (%s): %w", number, ch.Title, err)
		}

		name, err := FormatName(p.pattern, number, SanitizeTitle(ch.Title))
		if err != nil {
			return nil, err
		}
		name += ext
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("chapters %d and %d both map to file name %q", prev, number, name)
		}
		seen[name] = number

		parts = append(parts, Part{Number: number, Title: ch.Title, Span: span, FileName: name})
	}

	if len(parts) == 0 {
		return nil, ErrNoChapters
	}
	return parts, nil
}

// FormatName expands {num}, {num:0Nd}, {num:Nd} and {title} in pattern.
func FormatName(pattern string, num int, title string) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(pattern, func(match string) string {
		key := match[1 : len(match)-1]
		switch {
		case key == "title":
			return title
		case key == "num":
			return strconv.Itoa(num)
		}
		if m := numWidthPattern.FindStringSubmatch(key); m != nil {
			return fmt.Sprintf("%"+m[1]+m[2]+"d", num)
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("split pattern %q: unknown placeholder %s (use {num}, {num:02d} or {title})", pattern, match)
		}
		return match
	})
	if firstErr != nil {
		return "", firstErr
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("split pattern %q produces an empty file name", pattern)
	}
	return out, nil
}

// SanitizeTitle makes title safe for a file name: NFC normalised, the
// characters <>:"/\|?* replaced with '_', and at most MaxTitleLength runes.
func SanitizeTitle(title string) string {
	s := unsafeFileChars.Replace(norm.NFC.String(title))
	if r := []rune(s); len(r) > MaxTitleLength {
		s = string(r[:MaxTitleLength])
	}
	return s
}
