// Package model defines the core task and intent data types.
package model

import "time"

// Status is a task's lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusDone       Status = "done"
)

// Priority is a task's urgency level.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ValidStatuses are the allowed task statuses.
var ValidStatuses = map[Status]bool{
	StatusNotStarted: true,
	StatusInProgress: true,
	StatusPaused:     true,
	StatusDone:       true,
}

// ValidPriorities are the allowed priority levels.
var ValidPriorities = map[Priority]bool{
	PriorityUrgent: true,
	PriorityNormal: true,
	PriorityLow:    true,
}

// Task represents a stored task entry.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	WindowStart   *time.Time `json:"window_start,omitempty"`
	WindowEnd     *time.Time `json:"window_end,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	SnoozeCount   int        `json:"snooze_count"`
	OpeningAction string     `json:"opening_action,omitempty"`
	Note          string     `json:"note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ScheduleWindow is a proposed start/end range for a task.
// IsFlexible distinguishes "around 3pm" from "at 3pm" and is carried
// through to any presentation layer untouched.
type ScheduleWindow struct {
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	Label      string     `json:"label"`
	IsFlexible bool       `json:"is_flexible"`
}

// IsZero reports whether the window carries no time information.
func (w ScheduleWindow) IsZero() bool {
	return w.Start == nil && w.End == nil && w.Label == ""
}

// SnoozeOption is one of the fixed snooze presets.
type SnoozeOption struct {
	Kind    SnoozeKind
	Minutes int // only for SnoozeCustom
}

// SnoozeKind enumerates the preset snooze choices.
type SnoozeKind string

const (
	Snooze10Min    SnoozeKind = "10m"
	Snooze15Min    SnoozeKind = "15m"
	Snooze30Min    SnoozeKind = "30m"
	Snooze1Hour    SnoozeKind = "1h"
	Snooze2Hours   SnoozeKind = "2h"
	SnoozeTonight  SnoozeKind = "tonight"
	SnoozeTomorrow SnoozeKind = "tomorrow"
	SnoozeCustom   SnoozeKind = "custom"
)
