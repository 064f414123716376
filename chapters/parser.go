// Package chapters turns chapter marker files into the segments to keep and
// rebases chapter timestamps onto the trimmed timeline.
package chapters

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
)

// DefaultExcludePrefix marks a chapter whose span is cut from the output.
const DefaultExcludePrefix = "--"

var linePattern = regexp.MustCompile(`^(\d+:\d{2}:\d{2}\.\d{3})\s+(.*)$`)

// Parser builds segments from chapter markers.
//
// A marker whose title starts with the exclusion prefix closes the open
// segment; any other marker opens one when none is open. A Parser holds no
// state between calls and is safe for concurrent use.
type Parser struct {
	excludePrefix string
}

// NewParser creates a Parser for the given exclusion prefix.
func NewParser(excludePrefix string) *Parser {
	return &Parser{excludePrefix: excludePrefix}
}

// ExcludePrefix returns the prefix this parser treats as an exclusion marker.
func (p *Parser) ExcludePrefix() string {
	return p.excludePrefix
}

// Parse scans marker lines once and returns the segments to keep together
// with every chapter, excluded ones included, in file order.
//
// Lines are trimmed and blank lines skipped; line numbers in a *FormatError
// still count blank lines. Input without any marker returns *EmptyInputError.
//
// Example:
//
//	segments, chapters, err := chapters.NewParser("--").Parse([]string{
//	    "0:00:05.151 Opening",
//	    "0:01:05.822 --CM",
//	    "0:02:36.160 Main Content",
//	})
//	// segments: [5.151s, 1m5.822s) and [2m36.16s, open)
func (p *Parser) Parse(lines []string) ([]models.Segment, []models.Chapter, error) {
	var (
		segments  []models.Segment
		chapters  []models.Chapter
		openStart time.Duration
		open      bool
	)

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		chapter, err := parseLine(i+1, line)
		if err != nil {
			return nil, nil, err
		}
		chapters = append(chapters, chapter)

		if chapter.IsExcluded(p.excludePrefix) {
			if open {
				segments = append(segments, models.Segment{
					Start: openStart,
					End:   models.Bounded(chapter.Timestamp),
				})
				open = false
			}
			continue
		}

		if !open {
			openStart = chapter.Timestamp
			open = true
		}
	}

	if len(chapters) == 0 {
		return nil, nil, &EmptyInputError{}
	}

	if open {
		segments = append(segments, models.Segment{Start: openStart, End: models.OpenEnded()})
	}
	if segments == nil {
		segments = []models.Segment{}
	}

	return segments, chapters, nil
}

// ParseReader reads every line from r and parses it.
func (p *Parser) ParseReader(r io.Reader) ([]models.Segment, []models.Chapter, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, nil, err
	}
	return p.Parse(lines)
}

// ParseFile parses the chapter file at path. An empty file returns an
// *EmptyInputError naming the path.
func (p *Parser) ParseFile(path string) ([]models.Segment, []models.Chapter, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("chapter file not found: %s", path)
		}
		return nil, nil, fmt.Errorf("failed to stat chapter file: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("chapter path is a directory: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open chapter file: %w", err)
	}
	defer f.Close()

	segments, chapters, err := p.ParseReader(f)
	var empty *EmptyInputError
	if errors.As(err, &empty) {
		empty.Source = path
	}
	return segments, chapters, err
}

func parseLine(lineNo int, line string) (models.Chapter, error) {
	matches := linePattern.FindStringSubmatch(line)
	if matches == nil {
		return models.Chapter{}, &FormatError{Line: lineNo, Content: line, Reason: "invalid line format"}
	}

	ts, err := timeutil.ParseTimestamp(matches[1])
	if err != nil {
		return models.Chapter{}, &FormatError{Line: lineNo, Content: line, Reason: err.Error()}
	}

	return models.Chapter{Timestamp: ts, Title: matches[2]}, nil
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading chapter input: %w", err)
	}
	return lines, nil
}
