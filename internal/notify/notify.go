// Package notify defines the fire-and-forget notification and event
// collaborators invoked after task commits.
package notify

import (
	"context"

	"github.com/rcliao/voicetask/internal/model"
)

// Scheduler schedules task notifications and records events. Callers
// never depend on the outcome of these calls.
type Scheduler interface {
	ScheduleWindowStart(ctx context.Context, t model.Task) error
	ScheduleWindowEnd(ctx context.Context, t model.Task) error
	CancelNotifications(ctx context.Context, taskID string) error
	LogEvent(ctx context.Context, eventType string, taskID string, metadata map[string]string) error
}

// NoopScheduler discards everything.
type NoopScheduler struct{}

func (NoopScheduler) ScheduleWindowStart(context.Context, model.Task) error { return nil }
func (NoopScheduler) ScheduleWindowEnd(context.Context, model.Task) error   { return nil }
func (NoopScheduler) CancelNotifications(context.Context, string) error     { return nil }
func (NoopScheduler) LogEvent(context.Context, string, string, map[string]string) error {
	return nil
}
