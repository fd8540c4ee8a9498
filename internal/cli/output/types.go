package output

import "github.com/leapstack-labs/leaplint/pkg/core"

// Summary counts findings per severity.
type Summary struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
	Hints    int `json:"hints"`
}

// Summarize counts findings.
func Summarize(findings []core.Finding) Summary {
	s := Summary{Total: len(findings)}
	for sev, n := range core.CountBySeverity(findings) {
		switch sev {
		case core.SeverityError:
			s.Errors += n
		case core.SeverityWarning:
			s.Warnings += n
		case core.SeverityInfo:
			s.Info += n
		default:
			s.Hints += n
		}
	}
	return s
}

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	Manifest string         `json:"manifest"`
	Nodes    int            `json:"nodes"`
	Failed   bool           `json:"failed"`
	RunID    string         `json:"run_id,omitempty"`
	Summary  Summary        `json:"summary"`
	Findings []core.Finding `json:"findings"`
}

// FixOutput is the JSON output of the fix command.
type FixOutput struct {
	Manifest string         `json:"manifest"`
	Mode     string         `json:"mode"`
	Digest   string         `json:"digest"`
	Failed   bool           `json:"failed"`
	RunID    string         `json:"run_id,omitempty"`
	Counts   map[string]int `json:"counts"`
	Intents  any            `json:"intents"`
	Residual []core.Finding `json:"residual,omitempty"`
	Findings []core.Finding `json:"findings,omitempty"`
	// Written lists the files the command wrote
	Written []string `json:"written,omitempty"`
}

// GraphNode is one node in the graph command output.
type GraphNode struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Layer     string   `json:"layer"`
	DependsOn []string `json:"depends_on,omitempty"`
	UsedBy    []string `json:"used_by,omitempty"`
}

// GraphOutput is the JSON output of the graph command.
type GraphOutput struct {
	Nodes      []GraphNode         `json:"nodes"`
	Components [][]string          `json:"components"`
	DocsBlocks map[string][]string `json:"docs_blocks,omitempty"`
	TotalNodes int                 `json:"total_nodes"`
	TotalEdges int                 `json:"total_edges"`
}
