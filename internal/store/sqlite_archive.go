package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/petrijr/nodeflow/pkg/api"
)

// SQLiteRunArchive is a RunArchive backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteRunArchive struct {
	db *sql.DB
}

// Ensure SQLiteRunArchive implements RunArchive.
var _ RunArchive = (*SQLiteRunArchive)(nil)

// NewSQLiteRunArchive initializes the required schema in the given database
// and returns a new SQLiteRunArchive.
func NewSQLiteRunArchive(db *sql.DB) (*SQLiteRunArchive, error) {
	a := &SQLiteRunArchive{db: db}
	if err := a.initSchema(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *SQLiteRunArchive) initSchema() error {
	_, err := a.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_node TEXT NOT NULL,
			step_count INTEGER NOT NULL,
			logs BLOB,
			final_state BLOB
		);`,
	)
	return err
}

func (a *SQLiteRunArchive) ArchiveRun(ctx context.Context, run *api.RunInfo) error {
	logs, err := encodeLogs(run.Logs)
	if err != nil {
		return err
	}

	state, err := encodeState(run.FinalState)
	if err != nil {
		return err
	}

	// Re-archiving the same run replaces the previous row.
	_, err = a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, graph_id, status, current_node, step_count, logs, final_state)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.GraphID,
		string(run.Status),
		run.CurrentNode,
		run.StepCount,
		logs,
		state,
	)
	return err
}

func (a *SQLiteRunArchive) GetArchivedRun(ctx context.Context, id string) (*api.RunInfo, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, graph_id, status, current_node, step_count, logs, final_state
		FROM runs
		WHERE id = ?`,
		id,
	)

	run, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (a *SQLiteRunArchive) ListArchivedRuns(ctx context.Context, filter RunFilter) ([]*api.RunInfo, error) {
	query := `
		SELECT id, graph_id, status, current_node, step_count, logs, final_state
		FROM runs`
	var args []any
	var clauses []string

	if filter.GraphID != "" {
		clauses = append(clauses, "graph_id = ?")
		args = append(args, filter.GraphID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*api.RunInfo

	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

func scanRun(scan func(dest ...any) error) (*api.RunInfo, error) {
	var run api.RunInfo
	var statusStr string
	var logs, state []byte

	if err := scan(&run.RunID, &run.GraphID, &statusStr, &run.CurrentNode, &run.StepCount, &logs, &state); err != nil {
		return nil, err
	}

	run.Status = api.RunStatus(statusStr)

	decoded, err := decodeLogs(logs)
	if err != nil {
		return nil, err
	}
	run.Logs = decoded

	finalState, err := decodeState(state)
	if err != nil {
		return nil, err
	}
	run.FinalState = finalState

	return &run, nil
}
