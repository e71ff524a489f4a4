package color

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSprint(t *testing.T) {
	orig := NoColor
	defer func() { NoColor = orig }()
	NoColor = false

	red := New(FgRed)
	assert.Equal(t, "\033[31malert\033[0m", red.Sprint("alert"))

	boldGreen := New(FgGreen, Bold)
	assert.Equal(t, "\033[32;1mok\033[0m", boldGreen.Sprint("ok"))
}

func TestSprintf(t *testing.T) {
	orig := NoColor
	defer func() { NoColor = orig }()
	NoColor = false

	c := New(FgYellow)
	assert.Equal(t, "\033[33m3 hits\033[0m", c.Sprintf("%d hits", 3))
}

func TestNoColor(t *testing.T) {
	orig := NoColor
	defer func() { NoColor = orig }()
	NoColor = true

	red := New(FgRed)
	assert.Equal(t, "plain", red.Sprint("plain"))
}

func TestEmptyColorPassesThrough(t *testing.T) {
	orig := NoColor
	defer func() { NoColor = orig }()
	NoColor = false

	assert.Equal(t, "text", New().Sprint("text"))
}

func TestFprintf(t *testing.T) {
	orig := NoColor
	defer func() { NoColor = orig }()
	NoColor = true

	var buf bytes.Buffer
	New(FgCyan).Fprintf(&buf, "count=%d", 7)
	assert.Equal(t, "count=7", buf.String())
}
