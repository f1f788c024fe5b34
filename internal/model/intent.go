package model

import "time"

// UpdateAction is the fixed vocabulary of task update operations.
type UpdateAction string

const (
	ActionStart      UpdateAction = "start"
	ActionPause      UpdateAction = "pause"
	ActionResume     UpdateAction = "resume"
	ActionComplete   UpdateAction = "complete"
	ActionSkip       UpdateAction = "skip"
	ActionDelete     UpdateAction = "delete"
	ActionSnooze     UpdateAction = "snooze"
	ActionReschedule UpdateAction = "reschedule"
)

// ValidActions are the allowed update actions.
var ValidActions = map[UpdateAction]bool{
	ActionStart:      true,
	ActionPause:      true,
	ActionResume:     true,
	ActionComplete:   true,
	ActionSkip:       true,
	ActionDelete:     true,
	ActionSnooze:     true,
	ActionReschedule: true,
}

// CreateTaskIntent is a parsed instruction to create a new task.
type CreateTaskIntent struct {
	Title          string          `json:"title"`
	ScheduleWindow *ScheduleWindow `json:"schedule_window,omitempty"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
	Priority       Priority        `json:"priority"`
	Note           string          `json:"note,omitempty"`
	RawUtterance   string          `json:"raw_utterance"`
	Confidence     float64         `json:"confidence"`
}

// TargetQuery describes which existing task(s) an update intent refers to.
type TargetQuery struct {
	TitleKeywords  []string  `json:"title_keywords,omitempty"`
	TimeReference  string    `json:"time_reference,omitempty"`
	StatusFilter   *Status   `json:"status_filter,omitempty"`
	PriorityFilter *Priority `json:"priority_filter,omitempty"`
	IsMultiple     bool      `json:"is_multiple"`
	RawDescription string    `json:"raw_description"`
}

// UpdateParams carries the optional parameters of an update intent.
type UpdateParams struct {
	SnoozeUntil    *time.Time      `json:"snooze_until,omitempty"`
	SnoozeDuration *time.Duration  `json:"snooze_duration,omitempty"`
	NewSchedule    *ScheduleWindow `json:"new_schedule,omitempty"`
}

// UpdateTaskIntent is a parsed instruction to change an existing task.
type UpdateTaskIntent struct {
	Action       UpdateAction `json:"action"`
	Target       TargetQuery  `json:"target"`
	Params       UpdateParams `json:"params"`
	RawUtterance string       `json:"raw_utterance"`
	Confidence   float64      `json:"confidence"`
}

// VoiceIntentResult is the complete parse of one utterance. It is
// constructed once by the parser and never mutated afterwards.
type VoiceIntentResult struct {
	CreateIntents []CreateTaskIntent `json:"create_intents"`
	UpdateIntents []UpdateTaskIntent `json:"update_intents"`
	RawUtterance  string             `json:"raw_utterance"`
	Confidence    float64            `json:"confidence"`
}

// TotalIntentCount returns the number of intents of either kind.
func (r *VoiceIntentResult) TotalIntentCount() int {
	return len(r.CreateIntents) + len(r.UpdateIntents)
}

// HasIntents reports whether the result contains at least one intent.
func (r *VoiceIntentResult) HasIntents() bool {
	return r.TotalIntentCount() > 0
}

// IsCreateOnly reports whether the result contains only create intents.
func (r *VoiceIntentResult) IsCreateOnly() bool {
	return len(r.CreateIntents) > 0 && len(r.UpdateIntents) == 0
}

// IsUpdateOnly reports whether the result contains only update intents.
func (r *VoiceIntentResult) IsUpdateOnly() bool {
	return len(r.UpdateIntents) > 0 && len(r.CreateIntents) == 0
}

// IsMixed reports whether the result contains both kinds of intents.
func (r *VoiceIntentResult) IsMixed() bool {
	return len(r.CreateIntents) > 0 && len(r.UpdateIntents) > 0
}
