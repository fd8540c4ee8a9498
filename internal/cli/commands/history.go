package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/state"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is how many runs history lists without --limit.
const defaultHistoryLimit = 20

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
		Long: `List and compare runs recorded with --history (or state.enabled = true).

Run IDs may be abbreviated to any unique prefix.`,
		Example: `  # Recent runs
  leaplint history

  # Findings of one run
  leaplint history show 3f2a

  # What changed since the previous run
  leaplint history compare

  # Keep only the newest 50 runs
  leaplint history prune --keep 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of runs to list")
	cmd.PersistentFlags().String("state-path", "", "Path to the history database")

	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryCompareCommand())
	cmd.AddCommand(newHistoryPruneCommand())
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func newHistoryCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare [base] [head]",
		Short: "Compare the findings of two runs",
		Long: `Compare the findings of two runs.

With no arguments the latest run is compared with the previous run of the
same command. With one argument that run is compared with its predecessor.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryCompare(cmd, args)
		},
	}
}

func newHistoryPruneCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryPrune(cmd, keep)
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 100, "Number of runs to keep")
	return cmd
}

// openExistingHistory opens the history database for reading. Unlike
// openHistory it ignores state.enabled but refuses to create a database.
func openExistingHistory(cmdCtx *CommandContext) (*state.SQLiteStore, func(), error) {
	path := cmdCtx.Cfg.State.Path
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("no run history at %s (record runs with --history)", path)
		}
		return nil, nil, err
	}
	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(path); err != nil {
		return nil, nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func runHistoryList(cmd *cobra.Command, limit int) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, cleanup, err := openExistingHistory(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"runs": orEmpty(runs)})
	}

	r.Header(1, "Run History")
	if len(runs) == 0 {
		r.Println(r.Muted("No runs recorded"))
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, runRow(r, run))
	}
	r.Table([]string{"ID", "Command", "Status", "Started", "Took", "Nodes", "Findings"}, rows)
	return nil
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, cleanup, err := openExistingHistory(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	findings, err := store.FindingsForRun(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"run": run, "findings": orEmpty(findings)})
	}

	r.Header(1, "Run "+run.ID)
	r.KeyValue("Command", run.Command)
	r.KeyValue("Manifest", run.Manifest)
	r.KeyValue("Status", run.Status)
	r.KeyValue("Started", run.StartedAt.Local().Format(time.RFC3339))
	r.KeyValue("Took", formatDuration(run))
	r.KeyValue("Nodes", run.Nodes)
	if run.Digest != "" {
		r.KeyValue("Digest", run.Digest)
	}
	if run.Error != "" {
		r.KeyValue("Error", run.Error)
	}
	r.Println("")
	renderFindings(r, findings)
	return nil
}

func runHistoryCompare(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, cleanup, err := openExistingHistory(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var base, head *state.Run
	switch len(args) {
	case 2:
		if base, err = store.GetRun(ctx, args[0]); err != nil {
			return err
		}
		if head, err = store.GetRun(ctx, args[1]); err != nil {
			return err
		}
	case 1:
		if head, err = store.GetRun(ctx, args[0]); err != nil {
			return err
		}
	default:
		runs, err := store.ListRuns(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("%w: history is empty", state.ErrRunNotFound)
		}
		head = runs[0]
	}
	if base == nil {
		if base, err = store.PreviousRun(ctx, head); err != nil {
			return err
		}
	}

	cmp, err := store.CompareRuns(ctx, base.ID, head.ID)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		cmp.New = orEmpty(cmp.New)
		cmp.Resolved = orEmpty(cmp.Resolved)
		return r.JSON(cmp)
	}

	r.Header(1, "Compare "+shortID(cmp.Base.ID)+" → "+shortID(cmp.Head.ID))
	r.KeyValue("Base", fmt.Sprintf("%s (%s, %s)", cmp.Base.ID, cmp.Base.Command, cmp.Base.Status))
	r.KeyValue("Head", fmt.Sprintf("%s (%s, %s)", cmp.Head.ID, cmp.Head.Command, cmp.Head.Status))
	r.KeyValue("Unchanged", cmp.Unchanged)
	r.Println("")

	r.Header(2, fmt.Sprintf("New (%d)", len(cmp.New)))
	renderFindings(r, cmp.New)
	r.Println("")
	r.Header(2, fmt.Sprintf("Resolved (%d)", len(cmp.Resolved)))
	renderFindings(r, cmp.Resolved)
	return nil
}

func runHistoryPrune(cmd *cobra.Command, keep int) error {
	if keep < 0 {
		return fmt.Errorf("--keep must not be negative")
	}
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, cleanup, err := openExistingHistory(cmdCtx)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := store.PruneRuns(cmd.Context(), keep)
	if err != nil {
		return err
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]int64{"deleted": n})
	}
	r.Success(fmt.Sprintf("Deleted %d runs", n))
	return nil
}

func runRow(r *output.Renderer, run *state.Run) []string {
	status := string(run.Status)
	if r.EffectiveMode() == output.ModeText {
		switch run.Status {
		case state.RunStatusPassed:
			status = r.Styles().Success.Render(status)
		case state.RunStatusFailed, state.RunStatusError:
			status = r.Styles().Error.Render(status)
		}
	}
	return []string{
		shortID(run.ID),
		run.Command,
		status,
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		formatDuration(run),
		strconv.Itoa(run.Nodes),
		strconv.Itoa(run.Findings),
	}
}

func formatDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
