package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/voicetask/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	task := &model.Task{
		Title:       "Call mom",
		WindowStart: &start,
		Status:      model.StatusNotStarted,
		Priority:    model.PriorityNormal,
	}
	if err := s.Insert(ctx, task); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected store-assigned id")
	}

	got, err := s.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Call mom" {
		t.Errorf("title = %q", got.Title)
	}
	if got.WindowStart == nil || !got.WindowStart.Equal(start) {
		t.Errorf("window start = %v, want %v", got.WindowStart, start)
	}
	if got.Status != model.StatusNotStarted || got.SnoozeCount != 0 {
		t.Errorf("unexpected defaults: %+v", got)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task := &model.Task{Title: "Draft", Status: model.StatusNotStarted, Priority: model.PriorityNormal}
	s.Insert(ctx, task)

	task.Title = "Draft v2"
	task.Status = model.StatusInProgress
	task.SnoozeCount = 2
	if err := s.Save(ctx, task); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, _ := s.Get(ctx, task.ID)
	if got.Title != "Draft v2" || got.Status != model.StatusInProgress || got.SnoozeCount != 2 {
		t.Errorf("save not persisted: %+v", got)
	}
}

func TestSaveMissingTask(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), &model.Task{ID: "nope", Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task := &model.Task{Title: "Doomed", Status: model.StatusNotStarted, Priority: model.PriorityNormal}
	s.Insert(ctx, task)

	if err := s.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound after delete")
	}
}

func TestFetchOpenTasks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, tc := range []struct {
		title  string
		status model.Status
	}{
		{"open one", model.StatusNotStarted},
		{"done one", model.StatusDone},
		{"open two", model.StatusInProgress},
	} {
		s.Insert(ctx, &model.Task{Title: tc.title, Status: tc.status, Priority: model.PriorityNormal})
	}

	open, err := s.FetchOpenTasks(ctx, 20)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open tasks, got %d", len(open))
	}
	for _, task := range open {
		if task.Status == model.StatusDone {
			t.Errorf("done task leaked into open set: %s", task.Title)
		}
	}
}

func TestFetchOpenTasksLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 25; i++ {
		s.Insert(ctx, &model.Task{Title: "t", Status: model.StatusNotStarted, Priority: model.PriorityNormal})
	}

	open, _ := s.FetchOpenTasks(ctx, 20)
	if len(open) != 20 {
		t.Errorf("expected limit 20, got %d", len(open))
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Insert(ctx, &model.Task{Title: "Send email", Status: model.StatusNotStarted, Priority: model.PriorityUrgent})
	s.Insert(ctx, &model.Task{Title: "Walk dog", Status: model.StatusDone, Priority: model.PriorityNormal})
	s.Insert(ctx, &model.Task{Title: "Email taxes", Status: model.StatusInProgress, Priority: model.PriorityNormal})

	byTitle, _ := s.List(ctx, ListParams{TitleLike: "mail"})
	if len(byTitle) != 2 {
		t.Errorf("title filter: expected 2, got %d", len(byTitle))
	}

	byPriority, _ := s.List(ctx, ListParams{Priority: model.PriorityUrgent})
	if len(byPriority) != 1 {
		t.Errorf("priority filter: expected 1, got %d", len(byPriority))
	}

	withDone, _ := s.List(ctx, ListParams{IncludeDone: true})
	if len(withDone) != 3 {
		t.Errorf("include done: expected 3, got %d", len(withDone))
	}

	byStatus, _ := s.List(ctx, ListParams{Status: model.StatusDone})
	if len(byStatus) != 1 {
		t.Errorf("status filter: expected 1, got %d", len(byStatus))
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}
