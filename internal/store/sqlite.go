package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/voicetask/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id             TEXT PRIMARY KEY,
		title          TEXT NOT NULL,
		window_start   TEXT,
		window_end     TEXT,
		deadline       TEXT,
		status         TEXT NOT NULL DEFAULT 'not_started',
		priority       TEXT NOT NULL DEFAULT 'normal',
		snooze_count   INTEGER NOT NULL DEFAULT 0,
		opening_action TEXT,
		note           TEXT,
		created_at     TEXT NOT NULL,
		completed_at   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
	CREATE INDEX IF NOT EXISTS idx_tasks_window ON tasks(window_start);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) FetchOpenTasks(ctx context.Context, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		taskColumns+` FROM tasks WHERE status != ? ORDER BY created_at ASC LIMIT ?`,
		model.StatusDone, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, t *model.Task) error {
	if t.ID == "" {
		t.ID = s.newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, window_start, window_end, deadline, status, priority,
		                    snooze_count, opening_action, note, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, fmtTime(t.WindowStart), fmtTime(t.WindowEnd), fmtTime(t.Deadline),
		t.Status, t.Priority, t.SnoozeCount, nullStr(t.OpeningAction), nullStr(t.Note),
		t.CreatedAt.Format(time.RFC3339), fmtTime(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, t *model.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, window_start = ?, window_end = ?, deadline = ?,
		                  status = ?, priority = ?, snooze_count = ?, opening_action = ?,
		                  note = ?, completed_at = ?
		 WHERE id = ?`,
		t.Title, fmtTime(t.WindowStart), fmtTime(t.WindowEnd), fmtTime(t.Deadline),
		t.Status, t.Priority, t.SnoozeCount, nullStr(t.OpeningAction), nullStr(t.Note),
		fmtTime(t.CompletedAt), t.ID)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Task, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"1=1"}
	var args []interface{}

	if !p.IncludeDone && p.Status == "" {
		where = append(where, "status != ?")
		args = append(args, model.StatusDone)
	}
	if p.Status != "" {
		where = append(where, "status = ?")
		args = append(args, p.Status)
	}
	if p.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, p.Priority)
	}
	if p.TitleLike != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+p.TitleLike+"%")
	}

	query := fmt.Sprintf(taskColumns+` FROM tasks WHERE %s ORDER BY created_at ASC LIMIT ?`,
		strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const taskColumns = `SELECT id, title, window_start, window_end, deadline, status, priority,
                            snooze_count, opening_action, note, created_at, completed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row scanner) (model.Task, error) {
	var t model.Task
	var windowStart, windowEnd, deadline, openingAction, note, completedAt sql.NullString
	var createdAt string

	err := row.Scan(
		&t.ID, &t.Title, &windowStart, &windowEnd, &deadline, &t.Status, &t.Priority,
		&t.SnoozeCount, &openingAction, &note, &createdAt, &completedAt,
	)
	if err != nil {
		return t, err
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.WindowStart = parseTime(windowStart)
	t.WindowEnd = parseTime(windowEnd)
	t.Deadline = parseTime(deadline)
	t.CompletedAt = parseTime(completedAt)
	if openingAction.Valid {
		t.OpeningAction = openingAction.String
	}
	if note.Valid {
		t.Note = note.String
	}

	return t, nil
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func fmtTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func parseTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
