package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaplint/pkg/core"
)

// RecordFindings stores the findings of a run in one transaction.
func (s *SQLiteStore) RecordFindings(ctx context.Context, runID string, findings []core.Finding) error {
	if s.db == nil {
		return ErrNotOpen
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO findings (run_id, seq, rule_id, severity, node, column_name, message, fixable)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range findings {
			if _, err := stmt.ExecContext(ctx,
				runID, i, f.RuleID, f.Severity.String(), f.Node, f.Column, f.Message, f.Fixable,
			); err != nil {
				return fmt.Errorf("failed to record finding %s: %w", f.RuleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("findings recorded", slog.String("run", runID), slog.Int("count", len(findings)))
	return nil
}

// FindingsForRun returns a run's findings in recorded order.
func (s *SQLiteStore) FindingsForRun(ctx context.Context, runID string) ([]core.Finding, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, severity, node, column_name, message, fixable
		FROM findings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get findings: %w", err)
	}
	defer rows.Close()

	var findings []core.Finding
	for rows.Next() {
		var (
			f   core.Finding
			sev string
		)
		if err := rows.Scan(&f.RuleID, &sev, &f.Node, &f.Column, &f.Message, &f.Fixable); err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		f.Severity, _ = core.ParseSeverity(sev)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// findingKey identifies a finding across runs.
type findingKey struct {
	rule, node, column, message string
}

func keyOf(f core.Finding) findingKey {
	return findingKey{f.RuleID, f.Node, f.Column, f.Message}
}

// CompareRuns reports which findings appeared and disappeared between two runs.
func (s *SQLiteStore) CompareRuns(ctx context.Context, baseID, headID string) (*Comparison, error) {
	base, err := s.GetRun(ctx, baseID)
	if err != nil {
		return nil, err
	}
	head, err := s.GetRun(ctx, headID)
	if err != nil {
		return nil, err
	}

	before, err := s.FindingsForRun(ctx, base.ID)
	if err != nil {
		return nil, err
	}
	after, err := s.FindingsForRun(ctx, head.ID)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{Base: base, Head: head}
	seen := make(map[findingKey]int, len(before))
	for _, f := range before {
		seen[keyOf(f)]++
	}
	for _, f := range after {
		k := keyOf(f)
		if seen[k] > 0 {
			seen[k]--
			cmp.Unchanged++
			continue
		}
		cmp.New = append(cmp.New, f)
	}
	for i := len(before) - 1; i >= 0; i-- {
		k := keyOf(before[i])
		if seen[k] > 0 {
			seen[k]--
			cmp.Resolved = append(cmp.Resolved, before[i])
		}
	}
	core.SortFindings(cmp.Resolved)
	return cmp, nil
}
