package commands

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/manifest"
	"github.com/leapstack-labs/leaplint/internal/runner"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/leapstack-labs/leaplint/pkg/graph"
	"github.com/spf13/cobra"
)

// FixOptions holds options for the fix command.
type FixOptions struct {
	IntentsOut string // Path of the intent document for the external writer
	Write      bool   // Apply intents to the manifest in place
}

// NewFixCommand creates the fix command.
func NewFixCommand() *cobra.Command {
	opts := &FixOptions{}
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Plan documentation propagation and emit edit intents",
		Long: `Plan downstream inheritance of column documentation and turn the plan into
edit intents.

Propagation only runs with fill-from-upstream enabled. Safe mode emits
documentation edits only; structural edits proposed by rules (such as
removing unused columns) need --unsafe. Conflicting candidates are never
guessed: they are reported and fail the run.

Intents can be written as a YAML or JSON document for a formatting-preserving
writer, or applied directly to the manifest with --write.`,
		Example: `  # Preview inherited descriptions
  leaplint fix --fill-from-upstream

  # Write intents for the external writer
  leaplint fix --fill-from-upstream --intents-out .leaplint/intents.yaml

  # Apply intents, including structural ones, to the manifest
  leaplint fix --fill-from-upstream --unsafe --write`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFix(cmd, opts)
		},
	}

	cmd.Flags().Bool("unsafe", false, "Also emit structural edits")
	cmd.Flags().Bool("fill-from-upstream", false, "Inherit missing descriptions from upstream columns")
	cmd.Flags().Bool("force-inherit", false, "Also overwrite columns that are already documented")
	cmd.Flags().Bool("allow-transformed", false, "Let transformed lineage supply candidates")
	cmd.Flags().StringVar(&opts.IntentsOut, "intents-out", "", "Write the intent document to this path (.yaml or .json)")
	cmd.Flags().BoolVar(&opts.Write, "write", false, "Apply the intents to the manifest in place")
	addRunFlags(cmd)

	return cmd
}

func runFix(cmd *cobra.Command, opts *FixOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	history, closeHistory, err := cmdCtx.openHistory()
	if err != nil {
		return err
	}
	defer closeHistory()

	m := cmdCtx.newMetrics()
	run, err := cmdCtx.newRunner(history, m)
	if err != nil {
		return err
	}
	defer cmdCtx.exportMetrics(m)

	path := cmdCtx.Cfg.Manifest
	in, err := manifest.Load(path)
	if err != nil {
		return err
	}

	rep, err := run.Fix(cmd.Context(), in, path)
	if err != nil {
		return err
	}

	var written []string
	if rep.Fix != nil {
		mode, _ := fix.ParseSafetyMode(cmdCtx.Cfg.Fix.SafetyMode)
		if opts.IntentsOut != "" {
			if err := manifest.WriteFile(opts.IntentsOut, manifest.NewIntentDocument(*rep.Fix, mode)); err != nil {
				return err
			}
			written = append(written, opts.IntentsOut)
		}
		if opts.Write && len(rep.Fix.Intents) > 0 {
			if err := writeManifest(path, in, rep.Fix.Intents); err != nil {
				return err
			}
			cmdCtx.Logger.Info("manifest updated", slog.String("path", path), slog.Int("intents", len(rep.Fix.Intents)))
			written = append(written, path)
		}
	}

	if err := renderFix(cmdCtx, rep, written); err != nil {
		return err
	}
	if rep.Failed() {
		return ErrFailed
	}
	return nil
}

func writeManifest(path string, in graph.Input, intents []fix.Intent) error {
	updated, err := fix.ApplyToInput(in, intents)
	if err != nil {
		return fmt.Errorf("failed to apply intents: %w", err)
	}
	return manifest.WriteFile(path, manifest.FromInput(updated))
}

func renderFix(cmdCtx *CommandContext, rep *runner.Report, written []string) error {
	r := cmdCtx.Renderer
	mode := cmdCtx.Cfg.Fix.SafetyMode

	if r.EffectiveMode() == output.ModeJSON {
		out := output.FixOutput{
			Manifest: rep.Source,
			Mode:     mode,
			Failed:   rep.Failed(),
			Counts:   map[string]int{},
			Intents:  []any{},
			Findings: rep.Findings,
			Written:  written,
		}
		if rep.Fix != nil {
			doc := manifest.NewIntentDocument(*rep.Fix, fix.SafetyMode(mode))
			out.Digest = doc.Digest
			out.Intents = doc.Intents
			out.Residual = rep.Fix.Findings
			for kind, n := range rep.Fix.Counts() {
				out.Counts[string(kind)] = n
			}
		}
		if rep.Run != nil {
			out.RunID = rep.Run.ID
		}
		return r.JSON(out)
	}

	r.Header(1, "leaplint fix")
	r.KeyValue("Manifest", rep.Source)
	r.KeyValue("Mode", mode)

	if rep.Fix == nil {
		// the graph was invalid; its findings explain why
		r.Println("")
		renderFindings(r, rep.Findings)
		return nil
	}

	r.KeyValue("Digest", rep.Fix.Digest())
	if rep.Run != nil {
		r.KeyValue("Run", rep.Run.ID)
	}
	r.Println("")

	r.Header(2, "Edit intents")
	if len(rep.Fix.Intents) == 0 {
		r.Println(r.Muted("No edits to apply"))
		if !cmdCtx.Cfg.Propagation.FillFromUpstream {
			r.Println(r.Muted("Propagation is off; pass --fill-from-upstream to inherit descriptions"))
		}
	} else {
		rows := make([][]string, 0, len(rep.Fix.Intents))
		for _, in := range rep.Fix.Intents {
			rows = append(rows, intentRow(in))
		}
		r.Table([]string{"Kind", "Target", "Value", "From"}, rows)
		r.Println(countsLine(rep.Fix.Counts()))
	}

	if len(rep.Fix.Findings) > 0 {
		r.Println("")
		r.Header(2, "Unresolved")
		renderFindings(r, rep.Fix.Findings)
	}

	for _, path := range written {
		r.Success("Wrote " + path)
	}
	return nil
}

func intentRow(in fix.Intent) []string {
	value := in.Text
	switch {
	case in.DocsRef != "":
		value = fmt.Sprintf("{{ doc(%q) }}", in.DocsRef)
	case in.Kind.IsStructural():
		value = in.Reason
	}
	from := ""
	if in.Provenance != nil {
		from = in.Provenance.String()
	} else if in.RuleID != "" {
		from = in.RuleID
	}
	target := in.Target.String()
	if in.DocsBlock != "" {
		target = "docs:" + in.DocsBlock
	}
	return []string{string(in.Kind), target, value, from}
}

func countsLine[K ~string](counts map[K]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	line := "Intents:"
	for i, k := range keys {
		if i > 0 {
			line += ","
		}
		line += fmt.Sprintf(" %d %s", counts[K(k)], k)
	}
	return line
}
