package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/pkg/core"
)

// ErrFailed is returned by commands whose result should exit non-zero.
// The result has already been rendered.
var ErrFailed = errors.New("run failed")

// renderFindings writes findings as a table (text, markdown) followed by a
// summary line. JSON callers embed findings in their own document.
func renderFindings(r *output.Renderer, findings []core.Finding) {
	if len(findings) == 0 {
		r.Success("No findings")
		return
	}

	styles := r.Styles()
	markdown := r.EffectiveMode() == output.ModeMarkdown

	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		sev := f.Severity.String()
		if !markdown {
			sev = styles.Severity(f.Severity).Render(sev)
		}
		msg := f.Message
		if len(f.Related) > 0 {
			msg += " (" + strings.Join(f.Related, ", ") + ")"
		}
		rows = append(rows, []string{sev, f.RuleID, f.Target(), msg})
	}
	r.Table([]string{"Severity", "Rule", "Target", "Message"}, rows)
	r.Println("")
	r.Println(summaryLine(output.Summarize(findings)))
}

func summaryLine(s output.Summary) string {
	parts := []string{fmt.Sprintf("%d findings", s.Total)}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.Warnings))
	}
	if s.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", s.Info))
	}
	if s.Hints > 0 {
		parts = append(parts, fmt.Sprintf("%d hints", s.Hints))
	}
	return "Summary: " + strings.Join(parts, ", ")
}

// orEmpty keeps JSON arrays from rendering as null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
