package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"text", ModeText},
		{"markdown", ModeMarkdown},
		{"json", ModeJSON},
		{"auto", ModeAuto},
		{"", ModeAuto},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto when piped", ModeAuto, false, ModeMarkdown},
		{"explicit json", ModeJSON, true, ModeJSON},
		{"explicit text when piped", ModeText, false, ModeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_Markdown(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown)

	r.Header(2, "Findings")
	r.KeyValue("Nodes", 3)
	r.Table([]string{"Rule", "Target"}, [][]string{{"DC01", "orders.id"}})

	got := out.String()
	assert.Contains(t, got, "## Findings")
	assert.Contains(t, got, "- **Nodes:** 3")
	assert.Contains(t, got, "| Rule | Target |")
	assert.Contains(t, got, "| DC01 | orders.id |")
}

func TestRenderer_TextTableHasNoEscapeCodes(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText)

	r.Table([]string{"Rule"}, [][]string{{"DC01"}})
	r.Println(r.Styles().Error.Render("boom"))

	assert.Contains(t, out.String(), "DC01")
	assert.Contains(t, out.String(), "┌")
	assert.False(t, strings.Contains(out.String(), "\x1b["), "plain writers get no ANSI codes")
}

func TestRenderer_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"n": 1}))
	assert.Equal(t, "{\n  \"n\": 1\n}\n", out.String())
}

func TestSummarize(t *testing.T) {
	s := Summarize([]core.Finding{
		{Severity: core.SeverityError},
		{Severity: core.SeverityWarning},
		{Severity: core.SeverityWarning},
		{Severity: core.SeverityHint},
	})
	assert.Equal(t, Summary{Total: 4, Errors: 1, Warnings: 2, Hints: 1}, s)
}
