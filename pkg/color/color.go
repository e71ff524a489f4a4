// Package color provides minimal ANSI terminal styling.
package color

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const reset = "\033[0m"

// SGR parameters.
const (
	FgBlack   = 30
	FgRed     = 31
	FgGreen   = 32
	FgYellow  = 33
	FgBlue    = 34
	FgMagenta = 35
	FgCyan    = 36
	FgWhite   = 37

	Bold      = 1
	Dim       = 2
	Underline = 4
)

// NoColor disables all styling. Set automatically when NO_COLOR is present
// in the environment.
var NoColor = false

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		NoColor = true
	}
}

// Color is a reusable set of SGR attributes.
type Color struct {
	seq string
}

// New builds a Color from SGR attributes.
func New(attrs ...int) *Color {
	if len(attrs) == 0 {
		return &Color{}
	}

	var b strings.Builder
	b.WriteString("\033[")
	for i, attr := range attrs {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.Itoa(attr))
	}
	b.WriteByte('m')
	return &Color{seq: b.String()}
}

func (c *Color) wrap(s string) string {
	if NoColor || c.seq == "" {
		return s
	}
	return c.seq + s + reset
}

// Printf writes styled formatted output to stdout.
func (c *Color) Printf(format string, a ...interface{}) {
	fmt.Print(c.wrap(fmt.Sprintf(format, a...)))
}

// Fprintf writes styled formatted output to w.
func (c *Color) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, c.wrap(fmt.Sprintf(format, a...)))
}

// Sprint returns a styled string.
func (c *Color) Sprint(a ...interface{}) string {
	return c.wrap(fmt.Sprint(a...))
}

// Sprintf returns a styled formatted string.
func (c *Color) Sprintf(format string, a ...interface{}) string {
	return c.wrap(fmt.Sprintf(format, a...))
}
