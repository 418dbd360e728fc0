package history

import (
	"context"
	"database/sql"
	"time"

	"medidown/internal/model"
)

// Entry is one row of the download history. Unlike the in-memory store this
// record survives restarts; it powers the history endpoint and lets the
// service mark tasks that a restart interrupted.
type Entry struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Platform     string    `json:"platform"`
	Format       string    `json:"format"`
	Status       string    `json:"status"`
	ResultPath   string    `json:"result_path,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repository persists task lifecycle records in SQLite. Safe for concurrent
// use; database/sql serializes access to the single writer.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	r := &Repository{db: db}
	if err := r.initTable(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) initTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS downloads (
		id         TEXT PRIMARY KEY,
		url        TEXT NOT NULL,
		platform   TEXT NOT NULL,
		format     TEXT NOT NULL,
		status     TEXT NOT NULL,
		result     TEXT,
		error      TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_created_at ON downloads(created_at);
	`
	_, err := r.db.Exec(query)
	return err
}

// Insert records a freshly accepted task.
func (r *Repository) Insert(ctx context.Context, t model.Task) error {
	query := `INSERT INTO downloads (id, url, platform, format, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.URL, t.Platform, t.Format, string(t.Status), t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	return err
}

// MarkRunning records that a worker picked the task up.
func (r *Repository) MarkRunning(ctx context.Context, id string) error {
	query := `UPDATE downloads SET status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(model.StatusRunning), time.Now().UTC(), id)
	return err
}

// MarkTerminal records the final outcome of a task.
func (r *Repository) MarkTerminal(ctx context.Context, id string, status model.TaskStatus, resultPath, errMsg string) error {
	query := `UPDATE downloads SET status = ?, result = ?, error = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		string(status), nullable(resultPath), nullable(errMsg), time.Now().UTC(), id)
	return err
}

// MarkInterrupted flags every non-terminal row as errored. Called once at
// startup: the in-memory store did not survive the restart, so those tasks
// can never finish.
func (r *Repository) MarkInterrupted(ctx context.Context) (int64, error) {
	query := `UPDATE downloads SET status = ?, error = ?, updated_at = ?
		WHERE status IN (?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		string(model.StatusError), "interrupted by restart", time.Now().UTC(),
		string(model.StatusQueued), string(model.StatusRunning))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns up to limit entries, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, url, platform, format, status, result, error, created_at, updated_at
		FROM downloads ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var result, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.URL, &e.Platform, &e.Format, &e.Status,
			&result, &errMsg, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.ResultPath = result.String
		e.ErrorMessage = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
