package commands

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/manifest"
	"github.com/leapstack-labs/leaplint/pkg/core"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/leapstack-labs/leaplint/pkg/lint"
	"github.com/spf13/cobra"
)

// maxRecommendations caps the recommendation list.
const maxRecommendations = 5

// Health check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run a comprehensive project health check",
		Long: `Analyze the project for structural issues and documentation gaps.

The doctor command runs every enabled rule and reports:
- Project summary (nodes by kind, graph depth, documentation coverage)
- Health checks grouped by rule group
- Health score (0-100)
- Actionable recommendations

Unlike check, doctor never fails on findings.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  leaplint doctor

  # Output as JSON
  leaplint doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	Nodes           int            `json:"nodes"`
	Kinds           map[string]int `json:"kinds"`
	Depth           int            `json:"depth"`
	RootCount       int            `json:"root_count"`
	LeafCount       int            `json:"leaf_count"`
	EdgeCount       int            `json:"edge_count"`
	Columns         int            `json:"columns"`
	DocumentedCols  int            `json:"documented_columns"`
	DocsBlocks      int            `json:"docs_blocks"`
	DocCoveragePct  float64        `json:"doc_coverage_pct"`
	ComponentsCount int            `json:"components"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
	// Fix is the rule's remediation guidance
	Fix string `json:"-"`
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	in, err := manifest.Load(cmdCtx.Cfg.Manifest)
	if err != nil {
		return err
	}

	run, err := cmdCtx.newRunner(nil, nil)
	if err != nil {
		return err
	}
	rep, err := run.Check(cmd.Context(), in, cmdCtx.Cfg.Manifest)
	if err != nil {
		return err
	}
	if rep.Graph == nil {
		renderFindings(r, rep.Findings)
		return ErrFailed
	}

	lintCfg, err := cmdCtx.Cfg.LintConfig()
	if err != nil {
		return err
	}
	resolved, err := lintCfg.Resolve(lint.DefaultRegistry())
	if err != nil {
		return err
	}
	var rules []lint.RuleDef
	for _, def := range lint.GetAll() {
		if !resolved[def.ID].IsDisabled() {
			rules = append(rules, def)
		}
	}

	out := buildDoctorOutput(rep.Graph, rules, rep.Findings)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func buildDoctorOutput(g *graph.Graph, rules []lint.RuleDef, findings []core.Finding) *DoctorOutput {
	byRule := make(map[string][]core.Finding)
	for _, f := range findings {
		byRule[f.RuleID] = append(byRule[f.RuleID], f)
	}

	checks := make([]HealthCheck, 0, len(rules))
	for _, rule := range rules {
		ruleFindings := byRule[rule.ID]
		status := statusPass
		if len(ruleFindings) > 0 {
			status = statusWarn
			if core.HasBlocking(ruleFindings, core.SeverityError) {
				status = statusError
			}
		}

		details := make([]string, 0, len(ruleFindings))
		for _, f := range ruleFindings {
			details = append(details, f.Target()+": "+f.Message)
		}

		checks = append(checks, HealthCheck{
			RuleID:     rule.ID,
			Name:       rule.Name,
			Group:      rule.Group,
			Status:     status,
			IssueCount: len(ruleFindings),
			Details:    details,
			Fix:        rule.Fix,
		})
	}

	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Group != checks[j].Group {
			return checks[i].Group < checks[j].Group
		}
		return checks[i].RuleID < checks[j].RuleID
	})

	summary := buildProjectSummary(g)
	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks, summary.Nodes),
		Recommendations: generateRecommendations(checks),
		IssueCount:      len(findings),
	}
}

func buildProjectSummary(g *graph.Graph) ProjectSummary {
	summary := ProjectSummary{
		Nodes:           g.Len(),
		Kinds:           make(map[string]int),
		RootCount:       len(g.Roots()),
		LeafCount:       len(g.Leaves()),
		DocsBlocks:      len(g.DocsBlocks()),
		ComponentsCount: len(g.Components()),
	}

	// depth is the longest dependency chain, counted in nodes
	level := make(map[string]int, g.Len())
	for _, name := range g.TopologicalOrder() {
		l := 1
		for _, parent := range g.ParentsOf(name) {
			if level[parent]+1 > l {
				l = level[parent] + 1
			}
		}
		level[name] = l
		if l > summary.Depth {
			summary.Depth = l
		}
		summary.EdgeCount += len(g.ParentsOf(name))
	}

	for _, n := range g.Nodes() {
		summary.Kinds[string(n.Kind)]++
		for _, col := range n.Columns {
			summary.Columns++
			if _, ok := g.EffectiveDescription(n.Name, col.Name); ok {
				summary.DocumentedCols++
			}
		}
	}
	if summary.Columns > 0 {
		summary.DocCoveragePct = float64(summary.DocumentedCols) * 100 / float64(summary.Columns)
	}
	return summary
}

// calculateHealthScore computes a health score from 0-100.
// Warnings cost a fixed penalty per finding and errors cost double; the
// penalty shrinks as the project grows.
func calculateHealthScore(checks []HealthCheck, nodeCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if nodeCount > 10 {
		basePenalty = 3.0
	}
	if nodeCount > 50 {
		basePenalty = 2.0
	}
	if nodeCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case statusError:
			score -= float64(check.IssueCount) * basePenalty * 2
		case statusWarn:
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	return int(score)
}

// generateRecommendations lists the fix guidance of failing rules, errors first.
func generateRecommendations(checks []HealthCheck) []string {
	failing := make([]HealthCheck, 0, len(checks))
	for _, check := range checks {
		if check.IssueCount > 0 && check.Fix != "" {
			failing = append(failing, check)
		}
	}
	sort.SliceStable(failing, func(i, j int) bool {
		return failing[i].Status == statusError && failing[j].Status != statusError
	})

	var recommendations []string
	seen := make(map[string]bool)
	for _, check := range failing {
		if seen[check.Fix] {
			continue
		}
		seen[check.Fix] = true
		recommendations = append(recommendations, fmt.Sprintf("%s (%s)", check.Fix, check.RuleID))
		if len(recommendations) == maxRecommendations {
			break
		}
	}
	return recommendations
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("leaplint Project Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Project Summary"))
	r.Printf("   Nodes: %d (%s)\n", out.Summary.Nodes, kindsLine(out.Summary.Kinds))
	r.Printf("   Depth: %d levels | Roots: %d | Leaves: %d | Components: %d\n",
		out.Summary.Depth, out.Summary.RootCount, out.Summary.LeafCount, out.Summary.ComponentsCount)
	r.Printf("   Documented columns: %d/%d (%.0f%%) | Docs blocks: %d\n",
		out.Summary.DocumentedCols, out.Summary.Columns, out.Summary.DocCoveragePct, out.Summary.DocsBlocks)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# leaplint Project Health Report")
	r.Println("")

	r.Println("## Project Summary")
	r.Println("")
	r.Println(output.FormatKeyValue("Nodes", fmt.Sprintf("%d (%s)", out.Summary.Nodes, kindsLine(out.Summary.Kinds))))
	r.Println(output.FormatKeyValue("Depth", fmt.Sprintf("%d levels", out.Summary.Depth)))
	r.Println(output.FormatKeyValue("Roots", out.Summary.RootCount))
	r.Println(output.FormatKeyValue("Leaves", out.Summary.LeafCount))
	r.Println(output.FormatKeyValue("Documented columns",
		fmt.Sprintf("%d/%d (%.0f%%)", out.Summary.DocumentedCols, out.Summary.Columns, out.Summary.DocCoveragePct)))
	r.Println(output.FormatKeyValue("Docs blocks", out.Summary.DocsBlocks))
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			if currentGroup != "" {
				r.Println("")
			}
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func kindsLine(kinds map[string]int) string {
	parts := make([]string, 0, len(kinds))
	for _, kind := range sortedKeys(kinds) {
		parts = append(parts, fmt.Sprintf("%d %s", kinds[kind], kind))
	}
	return strings.Join(parts, ", ")
}
