// Package termui holds the small pieces of terminal output chaptertrim
// shares between commands: tables, coloured status lines, the overwrite
// prompt and the extraction progress bar.
package termui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Align is a column alignment for RenderTable.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// RenderTable renders rows under headers with rounded borders. Short rows
// are padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// Printer writes status lines, coloured when its output is a terminal.
type Printer struct {
	out      io.Writer
	colorize bool
}

// NewPrinter creates a Printer for out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, colorize: IsTerminal(out)}
}

// SetColor forces colour on or off.
func (p *Printer) SetColor(enabled bool) *Printer {
	p.colorize = enabled
	return p
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.out }

// Colorize reports whether output is coloured.
func (p *Printer) Colorize() bool { return p.colorize }

func (p *Printer) print(attr color.Attribute, format string, args ...any) {
	c := color.New(attr)
	if p.colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprintf(p.out, format+"\n", args...)
}

// Success prints a green line.
func (p *Printer) Success(format string, args ...any) { p.print(color.FgGreen, format, args...) }

// Warn prints a yellow line.
func (p *Printer) Warn(format string, args ...any) { p.print(color.FgYellow, format, args...) }

// Error prints a red line.
func (p *Printer) Error(format string, args ...any) { p.print(color.FgRed, format, args...) }

// Info prints an uncoloured line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Confirm asks a yes/no question and returns true only for "y" or "yes".
// End of input counts as no.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	if err == io.EOF && line == "" {
		fmt.Fprintln(out)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
