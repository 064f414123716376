package chapters

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chaptertrim/internal/timeutil"
	"chaptertrim/models"
)

// Format renders chapters in the marker file format, one
// "H:MM:SS.mmm Title" line per chapter.
func Format(chapters []models.Chapter) string {
	var b strings.Builder
	for _, ch := range chapters {
		b.WriteString(timeutil.FormatChapter(ch.Timestamp))
		b.WriteByte(' ')
		b.WriteString(ch.Title)
		b.WriteByte('\n')
	}
	return b.String()
}

// Write writes chapters to w in the marker file format.
func Write(w io.Writer, chapters []models.Chapter) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Format(chapters)); err != nil {
		return fmt.Errorf("failed to write chapters: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write chapters: %w", err)
	}
	return nil
}

// WriteFile writes chapters to path, replacing any existing file. The file
// is written to a temporary sibling and renamed into place.
func WriteFile(path string, chapters []models.Chapter) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create chapter file: %w", err)
	}
	tmpName := tmp.Name()

	if err := Write(tmp, chapters); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close chapter file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set chapter file permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move chapter file into place: %w", err)
	}
	return nil
}
