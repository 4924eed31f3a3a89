// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// QueryOptions holds parameters for listing runs.
type QueryOptions struct {
	// Text matches runs whose topic or report contains it (case-insensitive).
	Text string

	// Outcome filters by run outcome.
	Outcome types.Outcome

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// likeEscaper makes LIKE wildcards in user text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Summary is one row of a run listing.
type Summary struct {
	ID         string        `json:"id" yaml:"id"`
	Topic      string        `json:"topic" yaml:"topic"`
	Strategy   string        `json:"strategy" yaml:"strategy"`
	Outcome    types.Outcome `json:"outcome" yaml:"outcome"`
	Findings   int           `json:"findings" yaml:"findings"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
}

// List returns runs newest first, filtered by opts.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]Summary, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT r.id, r.topic, r.strategy, r.outcome, r.started_at, r.finished_at,
			(SELECT count(*) FROM findings f WHERE f.run_id = r.id)
		FROM runs r
		WHERE 1=1`)

	if opts.Text != "" {
		qb.WriteString(` AND (lower(r.topic) LIKE ? ESCAPE '\' OR lower(r.report) LIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscaper.Replace(strings.ToLower(opts.Text)) + "%"
		args = append(args, pattern, pattern)
	}
	if opts.Outcome != "" {
		qb.WriteString(` AND r.outcome = ?`)
		args = append(args, string(opts.Outcome))
	}
	qb.WriteString(` ORDER BY r.started_at DESC, r.id LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum               Summary
			outcome           string
			strategy          sql.NullString
			started, finished sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Topic, &strategy, &outcome, &started, &finished, &sum.Findings); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		sum.Strategy = strategy.String
		sum.Outcome = types.Outcome(outcome)
		sum.StartedAt = parseTime(started.String)
		sum.FinishedAt = parseTime(finished.String)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns the full record for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*types.Run, error) {
	var (
		run                        types.Run
		outcome                    string
		strategy, planJSON, qsJSON sql.NullString
		report, started, finished  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, topic, strategy, outcome, plan, questions, report, started_at, finished_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Topic, &strategy, &outcome, &planJSON, &qsJSON, &report, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}

	run.Strategy = strategy.String
	run.Outcome = types.Outcome(outcome)
	run.Report = report.String
	run.StartedAt = parseTime(started.String)
	run.FinishedAt = parseTime(finished.String)
	if planJSON.Valid && planJSON.String != "" {
		if err := json.Unmarshal([]byte(planJSON.String), &run.Plan); err != nil {
			return nil, fmt.Errorf("decoding plan: %w", err)
		}
	}
	if qsJSON.Valid && qsJSON.String != "" {
		if err := json.Unmarshal([]byte(qsJSON.String), &run.Questions); err != nil {
			return nil, fmt.Errorf("decoding questions: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question, finding FROM findings WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r types.Result
		if err := rows.Scan(&r.Question, &r.Finding); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}
