// Package store provides the task storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/voicetask/internal/model"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("task not found")

// ListParams holds parameters for listing tasks.
type ListParams struct {
	Status      model.Status   // "" means any
	Priority    model.Priority // "" means any
	TitleLike   string         // substring filter on title
	IncludeDone bool
	Limit       int
}

// Store defines the task storage interface.
type Store interface {
	// FetchOpenTasks returns non-done tasks, oldest first, capped at limit.
	// Used as matcher candidates and parser disambiguation context.
	FetchOpenTasks(ctx context.Context, limit int) ([]model.Task, error)

	// Get retrieves a task by id.
	Get(ctx context.Context, id string) (*model.Task, error)

	// Insert persists a new task. The store assigns the id.
	Insert(ctx context.Context, t *model.Task) error

	// Save writes back every field of an existing task.
	Save(ctx context.Context, t *model.Task) error

	// Delete removes a task.
	Delete(ctx context.Context, id string) error

	// List lists tasks matching the given filters.
	List(ctx context.Context, p ListParams) ([]model.Task, error)

	// Close closes the store.
	Close() error
}
