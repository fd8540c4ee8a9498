package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplint/internal/cli/output"
	"github.com/leapstack-labs/leaplint/internal/config"
	"github.com/leapstack-labs/leaplint/internal/metrics"
	"github.com/leapstack-labs/leaplint/internal/runner"
	"github.com/leapstack-labs/leaplint/internal/state"
	"github.com/leapstack-labs/leaplint/pkg/fix"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the context from what the root command stored.
// Commands executed on their own (as in tests) load the config from the
// command's flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		var err error
		if cfg, err = config.LoadConfig("", cmd.Flags()); err != nil {
			return nil, err
		}
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: r,
	}, nil
}

// openHistory opens the run history store when it is enabled.
// The returned cleanup is never nil.
func (c *CommandContext) openHistory() (*state.SQLiteStore, func(), error) {
	if !c.Cfg.State.Enabled {
		return nil, func() {}, nil
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.State.Path); err != nil {
		return nil, func() {}, fmt.Errorf("failed to open run history: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// newRunner creates a runner from the configuration. history and m may be nil.
func (c *CommandContext) newRunner(history *state.SQLiteStore, m *metrics.Metrics) (*runner.Runner, error) {
	lintCfg, err := c.Cfg.LintConfig()
	if err != nil {
		return nil, err
	}
	safety, err := fix.ParseSafetyMode(c.Cfg.Fix.SafetyMode)
	if err != nil {
		return nil, err
	}

	opts := runner.Options{
		Lint:   lintCfg,
		Policy: c.Cfg.Propagation,
		Safety: safety,
	}
	if sev, ok := c.Cfg.FailOn(); ok {
		opts.FailOn = &sev
	}

	options := []runner.Option{runner.WithLogger(c.Logger)}
	if history != nil {
		options = append(options, runner.WithHistory(history))
	}
	if m != nil {
		options = append(options, runner.WithMetrics(m))
	}
	return runner.New(opts, options...), nil
}

// exportMetrics writes the metrics textfile when one is configured.
func (c *CommandContext) exportMetrics(m *metrics.Metrics) {
	if m == nil || c.Cfg.Metrics.Textfile == "" {
		return
	}
	if err := m.WriteTextfile(c.Cfg.Metrics.Textfile); err != nil {
		c.Logger.Warn("failed to write metrics", slog.String("path", c.Cfg.Metrics.Textfile), slog.Any("error", err))
	}
}

// newMetrics returns collectors when a textfile export is configured.
func (c *CommandContext) newMetrics() *metrics.Metrics {
	if c.Cfg.Metrics.Textfile == "" {
		return nil
	}
	return metrics.New()
}
