// Package flow implements the multi-intent review state machine that
// walks a parsed utterance through confirmation and commit.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rcliao/voicetask/internal/lifecycle"
	"github.com/rcliao/voicetask/internal/matcher"
	"github.com/rcliao/voicetask/internal/model"
	"github.com/rcliao/voicetask/internal/parser"
	"github.com/rcliao/voicetask/internal/store"
)

// State is the engine's current position in the review flow.
type State string

const (
	StateIdle             State = "idle"
	StateCapturing        State = "capturing"
	StateParsing          State = "parsing"
	StateReviewingSummary State = "reviewing_summary"
	StateReviewingCreate  State = "reviewing_create"
	StateReviewingUpdate  State = "reviewing_update"
	StateSelectingTarget  State = "selecting_target"
	StateCustomizingTime  State = "customizing_time"
	StateCommitting       State = "committing"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// ErrInvalidState is returned when an operation is invoked in a state
// that does not support it. This is a programmer error, not a user
// condition.
var ErrInvalidState = errors.New("operation not allowed in current state")

// fallbackConfidence is assigned to a synthesized create intent when the
// parser produced nothing.
const fallbackConfidence = 0.3

// pendingIntent is one queued intent awaiting review or commit.
// Exactly one of create/update is set.
type pendingIntent struct {
	create *model.CreateTaskIntent
	update *model.UpdateTaskIntent
}

// Engine processes one utterance end to end. It is not safe for
// concurrent use; the caller runs one utterance at a time.
type Engine struct {
	parser parser.Parser
	ops    *lifecycle.Ops
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time

	state      State
	failReason string

	result   *model.VoiceIntentResult
	snapshot []model.Task // read-only for this utterance

	queue []pendingIntent
	idx   int

	loadedCreate *model.CreateTaskIntent
	loadedUpdate *model.UpdateTaskIntent
	candidates   []model.Task
	target       *model.Task

	createdCount int
	updatedCount int
	commitErrs   []string
	summary      string
}

// New creates an engine in the idle state.
func New(p parser.Parser, ops *lifecycle.Ops, st store.Store, logger *slog.Logger, clock func() time.Time) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Engine{parser: p, ops: ops, store: st, logger: logger, clock: clock, state: StateIdle}
}

// State returns the current flow state.
func (e *Engine) State() State { return e.state }

// FailReason returns the message of a failed terminal state.
func (e *Engine) FailReason() string { return e.failReason }

// Summary returns the human-readable outcome of a completed flow.
func (e *Engine) Summary() string { return e.summary }

// Result returns the parse result for the current utterance.
func (e *Engine) Result() *model.VoiceIntentResult { return e.result }

// LoadedCreate returns the create intent under review, nil otherwise.
func (e *Engine) LoadedCreate() *model.CreateTaskIntent { return e.loadedCreate }

// LoadedUpdate returns the update intent under review, nil otherwise.
func (e *Engine) LoadedUpdate() *model.UpdateTaskIntent { return e.loadedUpdate }

// Candidates returns the matched tasks awaiting target selection.
func (e *Engine) Candidates() []model.Task { return e.candidates }

// Target returns the task the loaded update will apply to.
func (e *Engine) Target() *model.Task { return e.target }

// BeginCapture marks the session as recording input.
func (e *Engine) BeginCapture() error {
	if e.state != StateIdle {
		return fmt.Errorf("%w: begin capture in %s", ErrInvalidState, e.state)
	}
	e.state = StateCapturing
	return nil
}

// Submit parses an utterance and branches into the review flow. An
// empty transcript returns the engine to idle with nothing to process.
func (e *Engine) Submit(ctx context.Context, utterance string) error {
	if e.state != StateIdle && e.state != StateCapturing {
		return fmt.Errorf("%w: submit in %s", ErrInvalidState, e.state)
	}
	if strings.TrimSpace(utterance) == "" {
		e.state = StateIdle
		return nil
	}

	e.state = StateParsing

	snapshot, err := e.store.FetchOpenTasks(ctx, 20)
	if err != nil {
		e.logger.Warn("task snapshot fetch failed, matching against empty set", "error", err)
		snapshot = nil
	}
	e.snapshot = snapshot

	result, err := e.parser.Parse(ctx, utterance, snapshot)
	if err != nil {
		// The resilient parser never fails, but a bare parser might.
		result = &model.VoiceIntentResult{RawUtterance: utterance, Confidence: fallbackConfidence}
	}
	e.result = result

	if result.TotalIntentCount() == 0 {
		synth := model.CreateTaskIntent{
			Title:        parser.TruncateTitle(utterance),
			Priority:     model.PriorityNormal,
			RawUtterance: utterance,
			Confidence:   fallbackConfidence,
		}
		e.queue = []pendingIntent{{create: &synth}}
		return e.loadCurrent(false)
	}

	e.queue = buildQueue(result)

	if result.TotalIntentCount() == 1 {
		return e.loadCurrent(false)
	}
	e.state = StateReviewingSummary
	return nil
}

// buildQueue orders intents for processing: creates first, then
// updates, each in parser order. This keeps the completion summary
// deterministic.
func buildQueue(r *model.VoiceIntentResult) []pendingIntent {
	queue := make([]pendingIntent, 0, r.TotalIntentCount())
	for i := range r.CreateIntents {
		c := r.CreateIntents[i]
		queue = append(queue, pendingIntent{create: &c})
	}
	for i := range r.UpdateIntents {
		u := r.UpdateIntents[i]
		queue = append(queue, pendingIntent{update: &u})
	}
	return queue
}

// BeginReview starts the per-intent review sequence from the summary.
func (e *Engine) BeginReview() error {
	if e.state != StateReviewingSummary {
		return fmt.Errorf("%w: begin review in %s", ErrInvalidState, e.state)
	}
	return e.loadCurrent(false)
}

// ConfirmAll commits every pending intent without individual review:
// creates before updates, sequentially, best-effort past per-intent
// failures.
func (e *Engine) ConfirmAll(ctx context.Context) error {
	if e.state != StateReviewingSummary {
		return fmt.Errorf("%w: confirm all in %s", ErrInvalidState, e.state)
	}

	e.state = StateCommitting
	for _, p := range e.queue {
		if p.create != nil {
			e.commitCreate(ctx, *p.create)
			continue
		}
		e.commitUpdateUnattended(ctx, *p.update)
	}
	e.finish()
	return nil
}

// EditTitle replaces the loaded create intent's title. The edited value
// is what gets committed.
func (e *Engine) EditTitle(title string) error {
	if e.state != StateReviewingCreate || e.loadedCreate == nil {
		return fmt.Errorf("%w: edit title in %s", ErrInvalidState, e.state)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}
	e.loadedCreate.Title = title
	return nil
}

// EditPriority replaces the loaded create intent's priority.
func (e *Engine) EditPriority(p model.Priority) error {
	if e.state != StateReviewingCreate || e.loadedCreate == nil {
		return fmt.Errorf("%w: edit priority in %s", ErrInvalidState, e.state)
	}
	if !model.ValidPriorities[p] {
		return fmt.Errorf("unknown priority %q", p)
	}
	e.loadedCreate.Priority = p
	return nil
}

// OpenTimePicker enters the manual time selection sub-state.
func (e *Engine) OpenTimePicker() error {
	if e.state != StateReviewingCreate {
		return fmt.Errorf("%w: open time picker in %s", ErrInvalidState, e.state)
	}
	e.state = StateCustomizingTime
	return nil
}

// CloseTimePicker returns to the create review. A non-nil window
// overrides the parser-suggested one: the user's choice always wins.
func (e *Engine) CloseTimePicker(window *model.ScheduleWindow) error {
	if e.state != StateCustomizingTime {
		return fmt.Errorf("%w: close time picker in %s", ErrInvalidState, e.state)
	}
	if window != nil {
		e.loadedCreate.ScheduleWindow = window
	}
	e.state = StateReviewingCreate
	return nil
}

// SelectTarget picks one of the matched candidate tasks.
func (e *Engine) SelectTarget(i int) error {
	if e.state != StateSelectingTarget {
		return fmt.Errorf("%w: select target in %s", ErrInvalidState, e.state)
	}
	if i < 0 || i >= len(e.candidates) {
		return fmt.Errorf("target index %d out of range [0,%d)", i, len(e.candidates))
	}
	t := e.candidates[i]
	e.target = &t
	e.state = StateReviewingUpdate
	return nil
}

// Advance commits the intent under review and loads the next pending
// intent, or completes the flow when none remain.
func (e *Engine) Advance(ctx context.Context) error {
	switch e.state {
	case StateReviewingCreate:
		if e.loadedCreate == nil {
			return fmt.Errorf("%w: no create intent loaded", ErrInvalidState)
		}
		e.state = StateCommitting
		e.commitCreate(ctx, *e.loadedCreate)
	case StateReviewingUpdate:
		if e.loadedUpdate == nil || e.target == nil {
			return fmt.Errorf("%w: no update intent loaded", ErrInvalidState)
		}
		e.state = StateCommitting
		e.commitUpdate(ctx, *e.loadedUpdate, e.target)
	default:
		return fmt.Errorf("%w: advance in %s", ErrInvalidState, e.state)
	}

	e.idx++
	return e.loadCurrent(true)
}

// Reset discards all pending and partial state and returns to idle.
// Intents committed before the reset stay committed.
func (e *Engine) Reset() {
	e.state = StateIdle
	e.failReason = ""
	e.result = nil
	e.snapshot = nil
	e.queue = nil
	e.idx = 0
	e.clearLoaded()
	e.createdCount = 0
	e.updatedCount = 0
	e.commitErrs = nil
	e.summary = ""
}

// loadCurrent loads queue[idx] into the matching review state. When
// advancing, an exhausted queue completes the flow.
func (e *Engine) loadCurrent(advancing bool) error {
	e.clearLoaded()

	if e.idx >= len(e.queue) {
		if !advancing {
			return fmt.Errorf("%w: nothing to load", ErrInvalidState)
		}
		e.finish()
		return nil
	}

	p := e.queue[e.idx]
	if p.create != nil {
		c := *p.create
		e.loadedCreate = &c
		e.state = StateReviewingCreate
		return nil
	}

	u := *p.update
	e.loadedUpdate = &u
	matches := matcher.Match(u.Target, e.snapshot, e.clock())
	switch len(matches) {
	case 0:
		e.fail(fmt.Sprintf("no task matches %q", u.Target.RawDescription))
		return nil
	case 1:
		e.target = &matches[0]
		e.state = StateReviewingUpdate
		return nil
	default:
		e.candidates = matches
		e.state = StateSelectingTarget
		return nil
	}
}

func (e *Engine) clearLoaded() {
	e.loadedCreate = nil
	e.loadedUpdate = nil
	e.candidates = nil
	e.target = nil
}

func (e *Engine) commitCreate(ctx context.Context, c model.CreateTaskIntent) {
	_, err := e.ops.CreateTask(ctx, lifecycle.CreateParams{
		Title:    c.Title,
		Window:   c.ScheduleWindow,
		Deadline: c.Deadline,
		Priority: c.Priority,
		Note:     c.Note,
	})
	if err != nil {
		e.logger.Error("create commit failed", "title", c.Title, "error", err)
		e.commitErrs = append(e.commitErrs, fmt.Sprintf("create %q: %v", c.Title, err))
		return
	}
	e.createdCount++
}

func (e *Engine) commitUpdate(ctx context.Context, u model.UpdateTaskIntent, target *model.Task) {
	if err := e.ops.ApplyUpdate(ctx, target, u.Action, u.Params); err != nil {
		e.logger.Error("update commit failed", "action", u.Action, "task_id", target.ID, "error", err)
		e.commitErrs = append(e.commitErrs, fmt.Sprintf("%s %q: %v", u.Action, target.Title, err))
		return
	}
	e.updatedCount++
}

// commitUpdateUnattended resolves and applies an update with no user in
// the loop. Ambiguous targets are applied to all matches only when the
// intent says so; otherwise they are recorded as failures.
func (e *Engine) commitUpdateUnattended(ctx context.Context, u model.UpdateTaskIntent) {
	matches := matcher.Match(u.Target, e.snapshot, e.clock())
	switch {
	case len(matches) == 0:
		e.commitErrs = append(e.commitErrs, fmt.Sprintf("no task matches %q", u.Target.RawDescription))
	case len(matches) == 1:
		e.commitUpdate(ctx, u, &matches[0])
	case u.Target.IsMultiple:
		for i := range matches {
			e.commitUpdate(ctx, u, &matches[i])
		}
	default:
		e.commitErrs = append(e.commitErrs, fmt.Sprintf("%d tasks match %q, need a single target", len(matches), u.Target.RawDescription))
	}
}

// finish moves to a terminal state and builds the outcome summary.
func (e *Engine) finish() {
	e.clearLoaded()
	e.summary = e.buildSummary()

	if e.createdCount == 0 && e.updatedCount == 0 && len(e.commitErrs) > 0 {
		e.state = StateFailed
		e.failReason = e.summary
		return
	}
	e.state = StateCompleted
}

func (e *Engine) fail(reason string) {
	e.clearLoaded()
	e.state = StateFailed
	e.failReason = reason
}

func (e *Engine) buildSummary() string {
	var parts []string
	if e.createdCount > 0 {
		parts = append(parts, fmt.Sprintf("Created %d %s", e.createdCount, pluralTask(e.createdCount)))
	}
	if e.updatedCount > 0 {
		parts = append(parts, fmt.Sprintf("Updated %d %s", e.updatedCount, pluralTask(e.updatedCount)))
	}
	if len(parts) == 0 {
		parts = append(parts, "No changes")
	}
	s := strings.Join(parts, ", ")
	if len(e.commitErrs) > 0 {
		s += "; " + strings.Join(e.commitErrs, "; ")
	}
	return s
}

func pluralTask(n int) string {
	if n == 1 {
		return "task"
	}
	return "tasks"
}
