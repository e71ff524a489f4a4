// Package output formats CLI results: status lines, JSON, and tables.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mercury-net/mercury/pkg/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

func Success(format string, a ...interface{}) {
	successColor.Printf("✓ "+format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	infoColor.Printf(format+"\n", a...)
}

func Warn(format string, a ...interface{}) {
	warnColor.Printf("⚠ "+format+"\n", a...)
}

// Verdict renders a detection verdict with a status color.
func Verdict(verdict string) string {
	switch verdict {
	case "clean":
		return successColor.Sprint(verdict)
	case "suspicious":
		return errorColor.Sprint(verdict)
	default:
		return warnColor.Sprint(verdict)
	}
}

// JSON pretty-prints v to stdout.
func JSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders aligned columnar output.
type Table struct {
	headers []string
	rows    [][]string
	w       io.Writer
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		w:       os.Stdout,
	}
}

// SetWriter redirects table output, mainly for tests.
func (t *Table) SetWriter(w io.Writer) {
	t.w = w
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, header := range t.headers {
		headerColor.Fprintf(t.w, "%-*s", widths[i], header)
		fmt.Fprint(t.w, "  ")
	}
	fmt.Fprintln(t.w)

	for i := range t.headers {
		fmt.Fprint(t.w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(t.w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(t.w, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(t.w)
	}
}
