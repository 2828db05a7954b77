// ABOUTME: Invocation persistence: summaries, trace rows, and per-model usage rows.
// ABOUTME: One transaction per saved invocation; reads reconstruct initiation order by seq.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2389/coven-dispatch/internal/dispatch"
	"github.com/2389/coven-dispatch/internal/model"
	"github.com/2389/coven-dispatch/internal/trace"
	"github.com/2389/coven-dispatch/internal/usage"
)

// InvocationSummary is the stored header of one invocation.
type InvocationSummary struct {
	ID         string
	Entry      string
	Input      json.RawMessage
	Output     json.RawMessage
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// SaveInvocation stores an invocation with its trace and usage in one
// transaction.
func (s *SQLiteStore) SaveInvocation(ctx context.Context, inv *dispatch.Invocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invocations (id, entry, input, output, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.Entry,
		nullString(string(inv.Input)),
		nullString(string(inv.Output)),
		nullString(inv.Err),
		inv.StartedAt.UTC().Format(time.RFC3339Nano),
		inv.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting invocation: %w", err)
	}

	for seq, rec := range inv.Trace {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO call_trace (id, invocation_id, seq, name, kind, depth, input, output, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID,
			inv.ID,
			seq,
			rec.Name,
			rec.Kind,
			rec.Depth,
			nullString(string(rec.Input)),
			nullString(string(rec.Output)),
			nullString(rec.Err),
			rec.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("inserting trace record %d: %w", seq, err)
		}
	}

	for ref, c := range inv.Usage {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO model_usage (invocation_id, model, input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, thinking_tokens, calls)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			inv.ID,
			string(ref),
			c.Input,
			c.Output,
			c.CacheRead,
			c.CacheWrite,
			c.Thinking,
			c.Calls,
		)
		if err != nil {
			return fmt.Errorf("inserting usage for %s: %w", ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing invocation: %w", err)
	}

	s.logger.Debug("saved invocation",
		"id", inv.ID,
		"entry", inv.Entry,
		"trace_records", len(inv.Trace),
		"models", len(inv.Usage),
	)
	return nil
}

// GetInvocation retrieves one invocation summary by ID.
func (s *SQLiteStore) GetInvocation(ctx context.Context, id string) (*InvocationSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, entry, input, output, error, started_at, finished_at
		FROM invocations WHERE id = ?
	`, id)
	return scanInvocation(row)
}

// ListInvocations retrieves the most recent invocation summaries.
func (s *SQLiteStore) ListInvocations(ctx context.Context, limit int) ([]*InvocationSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry, input, output, error, started_at, finished_at
		FROM invocations ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying invocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*InvocationSummary
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// GetTrace retrieves an invocation's trace records in initiation order.
func (s *SQLiteStore) GetTrace(ctx context.Context, invocationID string) ([]*trace.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, depth, input, output, error, created_at
		FROM call_trace WHERE invocation_id = ? ORDER BY seq ASC
	`, invocationID)
	if err != nil {
		return nil, fmt.Errorf("querying trace: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*trace.Record
	for rows.Next() {
		var rec trace.Record
		var input, output, errText sql.NullString
		var at string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Kind, &rec.Depth, &input, &output, &errText, &at); err != nil {
			return nil, fmt.Errorf("scanning trace record: %w", err)
		}
		if input.Valid {
			rec.Input = json.RawMessage(input.String)
		}
		if output.Valid {
			rec.Output = json.RawMessage(output.String)
		}
		rec.Err = errText.String
		if rec.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing trace timestamp: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// GetUsage retrieves an invocation's per-model usage counters.
func (s *SQLiteStore) GetUsage(ctx context.Context, invocationID string) (map[model.Ref]usage.Counters, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, thinking_tokens, calls
		FROM model_usage WHERE invocation_id = ?
	`, invocationID)
	if err != nil {
		return nil, fmt.Errorf("querying usage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[model.Ref]usage.Counters)
	for rows.Next() {
		var ref string
		var c usage.Counters
		if err := rows.Scan(&ref, &c.Input, &c.Output, &c.CacheRead, &c.CacheWrite, &c.Thinking, &c.Calls); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		out[model.Ref(ref)] = c
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row scanner) (*InvocationSummary, error) {
	var inv InvocationSummary
	var input, output, errText sql.NullString
	var started, finished string
	err := row.Scan(&inv.ID, &inv.Entry, &input, &output, &errText, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning invocation: %w", err)
	}
	if input.Valid {
		inv.Input = json.RawMessage(input.String)
	}
	if output.Valid {
		inv.Output = json.RawMessage(output.String)
	}
	inv.Err = errText.String
	if inv.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if inv.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}
	return &inv, nil
}
