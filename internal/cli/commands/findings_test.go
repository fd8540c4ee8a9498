package commands

import (
	"testing"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/cli/testutil"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/stretchr/testify/assert"
)

var sampleFindings = []core.Finding{
	{RuleID: "DC03", Severity: core.SeverityWarning, Node: "orders", Column: "id", Message: "Column has no description"},
	{RuleID: "PM07", Severity: core.SeverityWarning, Node: "orders", Message: "Rejoins upstream", Related: []string{"stg_a", "stg_b"}},
	{RuleID: "GR01", Severity: core.SeverityError, Message: "cycle detected"},
}

func TestRenderFindings_Markdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	renderFindings(tr.Renderer, sampleFindings)

	out := tr.Output()
	assert.Contains(t, out, "| Severity | Rule | Target | Message |")
	assert.Contains(t, out, "orders.id")
	assert.Contains(t, out, "Rejoins upstream (stg_a, stg_b)")
	assert.Contains(t, out, "Summary: 3 findings, 1 errors, 2 warnings")
	assert.Empty(t, tr.ErrorOutput())
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
}

func TestRenderFindings_Text(t *testing.T) {
	tr := testutil.NewTestRendererText()

	renderFindings(tr.Renderer, sampleFindings)

	assert.Equal(t, output.ModeText, tr.EffectiveMode())
	assert.Contains(t, tr.Output(), "DC03")
	assert.Contains(t, tr.Output(), "Summary: 3 findings")
}

func TestRenderFindings_Empty(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()

	renderFindings(tr.Renderer, nil)

	assert.Contains(t, tr.Output(), "No findings")
}

func TestSummaryLine(t *testing.T) {
	tests := []struct {
		name string
		in   output.Summary
		want string
	}{
		{"empty", output.Summary{}, "Summary: 0 findings"},
		{"mixed", output.Summary{Total: 4, Errors: 1, Info: 2, Hints: 1}, "Summary: 4 findings, 1 errors, 2 info, 1 hints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summaryLine(tt.in))
		})
	}
}
