// Package lifecycle implements the commit-side task operations invoked
// by the flow engine.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcliao/voicetask/internal/model"
	"github.com/rcliao/voicetask/internal/notify"
	"github.com/rcliao/voicetask/internal/store"
	"github.com/rcliao/voicetask/internal/timewin"
)

// ErrInvalidTransition is returned when an action's status precondition
// does not hold.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// defaultSnooze is applied when a snooze carries no explicit time.
var defaultSnooze = model.SnoozeOption{Kind: model.Snooze15Min}

// CreateParams holds the fields of a new task.
type CreateParams struct {
	Title    string
	Window   *model.ScheduleWindow
	Deadline *time.Time
	Priority model.Priority
	Note     string
}

// Ops applies lifecycle commands against the store. Notification and
// event calls are fire-and-forget: their failures are logged, never
// propagated.
type Ops struct {
	store     store.Store
	scheduler notify.Scheduler
	calc      *timewin.Calculator
	logger    *slog.Logger
	clock     func() time.Time
}

// New creates the lifecycle operations. scheduler may be nil for no
// notifications; clock nil means time.Now.
func New(st store.Store, scheduler notify.Scheduler, calc *timewin.Calculator, logger *slog.Logger, clock func() time.Time) *Ops {
	if scheduler == nil {
		scheduler = notify.NoopScheduler{}
	}
	if calc == nil {
		calc = timewin.New(timewin.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Ops{store: st, scheduler: scheduler, calc: calc, logger: logger, clock: clock}
}

// CreateTask persists a new not-started task and schedules its window
// notifications.
func (o *Ops) CreateTask(ctx context.Context, p CreateParams) (*model.Task, error) {
	priority := p.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	t := &model.Task{
		Title:     p.Title,
		Deadline:  p.Deadline,
		Status:    model.StatusNotStarted,
		Priority:  priority,
		Note:      p.Note,
		CreatedAt: o.clock().UTC(),
	}
	if p.Window != nil {
		t.WindowStart = p.Window.Start
		t.WindowEnd = p.Window.End
	}

	if err := o.store.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	o.fireAndForget(ctx, *t, "task_created")
	return t, nil
}

// ApplyUpdate dispatches an update action against a task. The task is
// mutated in place and saved.
func (o *Ops) ApplyUpdate(ctx context.Context, t *model.Task, action model.UpdateAction, params model.UpdateParams) error {
	switch action {
	case model.ActionStart:
		if t.Status == model.StatusInProgress {
			return fmt.Errorf("%w: %q is already in progress", ErrInvalidTransition, t.Title)
		}
		if t.Status == model.StatusDone {
			return fmt.Errorf("%w: %q is already done", ErrInvalidTransition, t.Title)
		}
		t.Status = model.StatusInProgress

	case model.ActionPause:
		if t.Status != model.StatusInProgress {
			return fmt.Errorf("%w: %q is not in progress", ErrInvalidTransition, t.Title)
		}
		t.Status = model.StatusPaused

	case model.ActionResume:
		if t.Status != model.StatusPaused {
			return fmt.Errorf("%w: %q is not paused", ErrInvalidTransition, t.Title)
		}
		t.Status = model.StatusInProgress

	case model.ActionComplete:
		if t.Status == model.StatusDone {
			return fmt.Errorf("%w: %q is already done", ErrInvalidTransition, t.Title)
		}
		t.Status = model.StatusDone
		now := o.clock().UTC()
		t.CompletedAt = &now

	case model.ActionSkip:
		if t.Status == model.StatusDone {
			return fmt.Errorf("%w: %q is already done", ErrInvalidTransition, t.Title)
		}
		t.Status = model.StatusDone

	case model.ActionDelete:
		if err := o.store.Delete(ctx, t.ID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		o.cancelAndLog(ctx, t.ID, "task_deleted")
		return nil

	case model.ActionSnooze:
		o.applySnooze(t, params)

	case model.ActionReschedule:
		if params.NewSchedule == nil {
			o.logger.Warn("reschedule without new schedule, skipping", "task_id", t.ID)
			return nil
		}
		t.WindowStart = params.NewSchedule.Start
		t.WindowEnd = params.NewSchedule.End

	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	if err := o.store.Save(ctx, t); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	switch action {
	case model.ActionComplete:
		o.cancelAndLog(ctx, t.ID, "task_completed")
	case model.ActionSkip:
		o.cancelAndLog(ctx, t.ID, "task_skipped")
	default:
		o.fireAndForget(ctx, *t, "task_"+string(action))
	}
	return nil
}

// applySnooze moves the window start to the snooze target, preserving
// the original window duration when one existed.
func (o *Ops) applySnooze(t *model.Task, params model.UpdateParams) {
	now := o.clock()

	var until time.Time
	switch {
	case params.SnoozeUntil != nil:
		until = *params.SnoozeUntil
	case params.SnoozeDuration != nil:
		until = now.Add(*params.SnoozeDuration)
	default:
		until, _ = o.calc.Resolve(defaultSnooze, now)
	}

	var duration time.Duration
	if t.WindowStart != nil && t.WindowEnd != nil {
		duration = t.WindowEnd.Sub(*t.WindowStart)
	}

	t.WindowStart = &until
	if duration > 0 {
		end := until.Add(duration)
		t.WindowEnd = &end
	} else {
		t.WindowEnd = nil
	}
	t.SnoozeCount++
}

func (o *Ops) fireAndForget(ctx context.Context, t model.Task, event string) {
	if err := o.scheduler.ScheduleWindowStart(ctx, t); err != nil {
		o.logger.Debug("schedule window start failed", "task_id", t.ID, "error", err)
	}
	if err := o.scheduler.ScheduleWindowEnd(ctx, t); err != nil {
		o.logger.Debug("schedule window end failed", "task_id", t.ID, "error", err)
	}
	if err := o.scheduler.LogEvent(ctx, event, t.ID, nil); err != nil {
		o.logger.Debug("log event failed", "task_id", t.ID, "error", err)
	}
}

func (o *Ops) cancelAndLog(ctx context.Context, taskID, event string) {
	if err := o.scheduler.CancelNotifications(ctx, taskID); err != nil {
		o.logger.Debug("cancel notifications failed", "task_id", taskID, "error", err)
	}
	if err := o.scheduler.LogEvent(ctx, event, taskID, nil); err != nil {
		o.logger.Debug("log event failed", "task_id", taskID, "error", err)
	}
}
