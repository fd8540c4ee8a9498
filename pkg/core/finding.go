package core

import (
	"fmt"
	"sort"
)

// Finding is a reported lint result: a violation, a coverage gap or a conflict.
type Finding struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	// Node is the target node; empty for project-level findings
	Node string `json:"node,omitempty"`
	// Column is the optional target column
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Fixable bool   `json:"fixable"`

	// Related names other nodes involved in the finding
	Related []string `json:"related,omitempty"`
	// FilePath is the node's file, for editor integration
	FilePath string `json:"file_path,omitempty"`
	// DocumentationURL points at the rule documentation
	DocumentationURL string `json:"documentation_url,omitempty"`
	// Proposed is a structural edit suggested by an unsafe rule
	Proposed *Edit `json:"proposed,omitempty"`
}

// Target renders the finding target as node or node.column.
func (f Finding) Target() string {
	switch {
	case f.Node == "":
		return "<project>"
	case f.Column == "":
		return f.Node
	default:
		return f.Node + "." + f.Column
	}
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s %s: %s", f.Severity, f.RuleID, f.Target(), f.Message)
}

// SortFindings orders findings by node, column (node-level first), rule id and message.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Message < b.Message
	})
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// HasBlocking reports whether any finding is at or above threshold.
func HasBlocking(findings []Finding, threshold Severity) bool {
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			return true
		}
	}
	return false
}
