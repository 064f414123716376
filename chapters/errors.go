package chapters

import "fmt"

// ExpectedFormat describes the accepted marker line shape in error messages.
const ExpectedFormat = "H:MM:SS.mmm Title"

// FormatError reports a chapter line that does not match the marker format
// or carries an out-of-range timestamp.
type FormatError struct {
	Line    int    // 1-based line number in the source
	Content string // trimmed line content
	Reason  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %s: %q (expected format: %q)", e.Line, e.Reason, e.Content, ExpectedFormat)
}

// EmptyInputError reports a chapter source without any non-blank lines.
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	if e.Source == "" {
		return "chapter input is empty"
	}
	return fmt.Sprintf("chapter file is empty: %s", e.Source)
}

// Warning is a non-fatal problem found while validating parsed chapters.
type Warning struct {
	Index   int // 0-based chapter index
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("chapter %d: %s", w.Index+1, w.Message)
}
