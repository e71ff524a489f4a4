package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mercury-net/mercury/pkg/color"
)

func TestVerdict(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()
	color.NoColor = true

	assert.Equal(t, "clean", Verdict("clean"))
	assert.Equal(t, "suspicious", Verdict("suspicious"))
	assert.Equal(t, "unknown", Verdict("unknown"))
}

func TestTableRender(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()
	color.NoColor = true

	table := NewTable([]string{"AGENT", "LABEL"})
	var buf bytes.Buffer
	table.SetWriter(&buf)
	table.AddRow([]string{"Agent-A", "Shared"})
	table.AddRow([]string{"Agent-Longer-Name", "Injection"})
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 4)

	// Column width follows the widest cell
	assert.Contains(t, lines[0], "AGENT")
	assert.Contains(t, lines[1], strings.Repeat("-", len("Agent-Longer-Name")))
	assert.Contains(t, lines[2], "Agent-A")
	assert.Contains(t, lines[3], "Agent-Longer-Name  Injection")

	// Cells in a column start at the same offset
	assert.Equal(t, strings.Index(lines[2], "Shared"), strings.Index(lines[3], "Injection"))
}

func TestTableEmpty(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()
	color.NoColor = true

	table := NewTable([]string{"AGENT"})
	var buf bytes.Buffer
	table.SetWriter(&buf)
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
}
