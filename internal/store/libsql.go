package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/pulsely/flowengine/pkg/schema"
)

// LibSQLStore implements RunRecorder using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// RecordRun upserts the snapshot of a finished run.
func (s *LibSQLStore) RecordRun(ctx context.Context, rec *RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (execution_id, workflow_id, user_id, state, success, error,
		                   total_cost, duration_ms, nodes_executed, nodes_failed,
		                   trigger_data, output, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(execution_id) DO UPDATE SET
		   state=excluded.state, success=excluded.success, error=excluded.error,
		   total_cost=excluded.total_cost, duration_ms=excluded.duration_ms,
		   nodes_executed=excluded.nodes_executed, nodes_failed=excluded.nodes_failed,
		   output=excluded.output, completed_at=excluded.completed_at`,
		rec.ExecutionID, rec.WorkflowID, nullableString(rec.UserID), string(rec.State),
		boolToInt(rec.Success), nullableString(rec.Error),
		rec.TotalCost, rec.DurationMs, rec.NodesExecuted, rec.NodesFailed,
		nullableJSON(rec.TriggerData), nullableJSON(rec.Output),
		rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "record run: %s", err.Error()).WithCause(err)
	}
	return nil
}

// AppendNodeEvent appends one entry to a run's node event log.
func (s *LibSQLStore) AppendNodeEvent(ctx context.Context, event *NodeEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO node_events (execution_id, node_key, node_type, type, payload, cost, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ExecutionID, event.NodeKey, string(event.NodeType), event.Type,
		nullableJSON(event.Payload), event.Cost, event.DurationMs, createdAt,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "append node event: %s", err.Error()).WithCause(err)
	}
	return nil
}

// GetRun loads one run by execution ID.
func (s *LibSQLStore) GetRun(ctx context.Context, executionID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT execution_id, workflow_id, user_id, state, success, error,
		        total_cost, duration_ms, nodes_executed, nodes_failed,
		        trigger_data, output, started_at, completed_at
		 FROM runs WHERE execution_id = ?`, executionID)

	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "run not found: %s", executionID)
	}
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "get run: %s", err.Error()).WithCause(err)
	}
	return rec, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	var conds []string
	var args []any
	if filter.WorkflowID != "" {
		conds = append(conds, "workflow_id = ?")
		args = append(args, filter.WorkflowID)
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, string(filter.State))
	}

	q := `SELECT execution_id, workflow_id, user_id, state, success, error,
	             total_cost, duration_ms, nodes_executed, nodes_failed,
	             trigger_data, output, started_at, completed_at
	      FROM runs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "list runs: %s", err.Error()).WithCause(err)
	}
	defer rows.Close()

	var recs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeStore, "scan run: %s", err.Error()).WithCause(err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListNodeEvents returns a run's node event log in append order.
func (s *LibSQLStore) ListNodeEvents(ctx context.Context, executionID string) ([]*NodeEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, execution_id, node_key, node_type, type, payload, cost, duration_ms, created_at
		 FROM node_events WHERE execution_id = ? ORDER BY id`, executionID)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "list node events: %s", err.Error()).WithCause(err)
	}
	defer rows.Close()

	var events []*NodeEvent
	for rows.Next() {
		e := &NodeEvent{}
		var nodeType string
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.ExecutionID, &e.NodeKey, &nodeType, &e.Type,
			&payload, &e.Cost, &e.DurationMs, &e.CreatedAt); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeStore, "scan node event: %s", err.Error()).WithCause(err)
		}
		e.NodeType = schema.NodeType(nodeType)
		e.Payload = jsonOrNil(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	rec := &RunRecord{}
	var state string
	var success int
	var userID, errMsg, triggerData, output sql.NullString
	if err := row.Scan(&rec.ExecutionID, &rec.WorkflowID, &userID, &state, &success, &errMsg,
		&rec.TotalCost, &rec.DurationMs, &rec.NodesExecuted, &rec.NodesFailed,
		&triggerData, &output, &rec.StartedAt, &rec.CompletedAt); err != nil {
		return nil, err
	}
	rec.State = schema.RunState(state)
	rec.Success = success != 0
	rec.UserID = userID.String
	rec.Error = errMsg.String
	rec.TriggerData = jsonOrNil(triggerData)
	rec.Output = jsonOrNil(output)
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func jsonOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

var _ RunRecorder = (*LibSQLStore)(nil)
