package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/manifest"
	"github.com/leapstack-labs/leaplint/internal/runner"
	"github.com/spf13/cobra"
)

// watchDebounce collapses editor save bursts into one re-run.
const watchDebounce = 100 * time.Millisecond

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Watch bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run project rules against the manifest",
		Long: `Build the project graph from the manifest and run every enabled rule.

Findings at or above the fail-on severity make the command exit non-zero.
An invalid graph (a reference cycle, a dangling reference or a duplicate
definition) is reported as GR findings and always fails.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Check the project manifest
  leaplint check

  # Check another manifest and fail on warnings too
  leaplint check -m target/manifest.json --fail-on warning

  # Re-run whenever the manifest changes
  leaplint check --watch

  # Record the run and export metrics
  leaplint check --history --metrics-textfile metrics/leaplint.prom`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().String("fail-on", "", "Lowest severity that fails the run: error, warning, info, hint or never")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run when the manifest changes")
	addRunFlags(cmd)

	_ = cmd.RegisterFlagCompletionFunc("fail-on", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warning", "info", "hint", "never"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// addRunFlags adds the history and metrics flags shared by check and fix.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("history", false, "Record the run in the history database")
	cmd.Flags().String("state-path", "", "Path to the history database")
	cmd.Flags().String("metrics-textfile", "", "Write run metrics to this file in Prometheus text format")
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) error {
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

	once := func(ctx context.Context) error {
		err := checkOnce(ctx, cmdCtx, run)
		cmdCtx.exportMetrics(m)
		return err
	}

	if !opts.Watch {
		return once(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watchManifest(ctx, cmdCtx, once)
}

func checkOnce(ctx context.Context, cmdCtx *CommandContext, run *runner.Runner) error {
	path := cmdCtx.Cfg.Manifest
	in, err := manifest.Load(path)
	if err != nil {
		return err
	}

	rep, err := run.Check(ctx, in, path)
	if err != nil {
		return err
	}

	if err := renderCheck(cmdCtx.Renderer, rep); err != nil {
		return err
	}
	if rep.Failed() {
		return ErrFailed
	}
	return nil
}

func renderCheck(r *output.Renderer, rep *runner.Report) error {
	nodes := 0
	if rep.Graph != nil {
		nodes = rep.Graph.Len()
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := output.CheckOutput{
			Manifest: rep.Source,
			Nodes:    nodes,
			Failed:   rep.Failed(),
			Summary:  output.Summarize(rep.Findings),
			Findings: orEmpty(rep.Findings),
		}
		if rep.Run != nil {
			out.RunID = rep.Run.ID
		}
		return r.JSON(out)
	}

	r.Header(1, "leaplint check")
	r.KeyValue("Manifest", rep.Source)
	r.KeyValue("Nodes", nodes)
	if rep.Run != nil {
		r.KeyValue("Run", rep.Run.ID)
	}
	r.Println("")
	renderFindings(r, rep.Findings)
	return nil
}

// watchManifest runs fn now and again after every change to the manifest
// until ctx is cancelled. Run failures are reported, not returned.
func watchManifest(ctx context.Context, cmdCtx *CommandContext, fn func(context.Context) error) error {
	path, err := filepath.Abs(cmdCtx.Cfg.Manifest)
	if err != nil {
		return err
	}
	logger := cmdCtx.Logger.With(slog.String("manifest", path))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file rather than write it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	report := func() {
		if err := fn(ctx); err != nil && !errors.Is(err, ErrFailed) {
			cmdCtx.Renderer.Warning(err.Error())
		}
	}
	report()
	cmdCtx.Renderer.Println(cmdCtx.Renderer.Muted("Watching " + path + " (Ctrl+C to stop)"))

	rerun := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rerun:
			logger.Debug("manifest changed, re-running")
			report()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
