package matcher

import (
	"reflect"
	"testing"
	"time"

	"github.com/rcliao/voicetask/internal/model"
)

func taskAt(id, title string, hour int) model.Task {
	start := time.Date(2025, 3, 14, hour, 0, 0, 0, time.UTC)
	return model.Task{
		ID:          id,
		Title:       title,
		WindowStart: &start,
		Status:      model.StatusNotStarted,
		Priority:    model.PriorityNormal,
	}
}

func testNow() time.Time {
	return time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
}

func TestMatchKeywords(t *testing.T) {
	candidates := []model.Task{
		taskAt("1", "Send weekly report email", 9),
		taskAt("2", "Walk the dog", 18),
		taskAt("3", "Email the accountant", 10),
	}

	got := Match(model.TargetQuery{TitleKeywords: []string{"email"}}, candidates, testNow())
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("candidate order not preserved: %v, %v", got[0].ID, got[1].ID)
	}
}

func TestMatchAnyKeywordSuffices(t *testing.T) {
	candidates := []model.Task{taskAt("1", "Call the dentist", 9)}

	got := Match(model.TargetQuery{TitleKeywords: []string{"plumber", "dentist"}}, candidates, testNow())
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
}

func TestMatchStatusAndPriority(t *testing.T) {
	urgent := taskAt("1", "Fix outage", 9)
	urgent.Priority = model.PriorityUrgent
	urgent.Status = model.StatusInProgress
	normal := taskAt("2", "Fix typo", 10)

	candidates := []model.Task{urgent, normal}

	st := model.StatusInProgress
	got := Match(model.TargetQuery{StatusFilter: &st}, candidates, testNow())
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("status filter: got %d matches", len(got))
	}

	pr := model.PriorityUrgent
	got = Match(model.TargetQuery{PriorityFilter: &pr}, candidates, testNow())
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("priority filter: got %d matches", len(got))
	}

	// Filters are AND-combined.
	low := model.PriorityLow
	got = Match(model.TargetQuery{StatusFilter: &st, PriorityFilter: &low}, candidates, testNow())
	if len(got) != 0 {
		t.Errorf("expected no match with conflicting filters, got %d", len(got))
	}
}

func TestMatchTimeOfDay(t *testing.T) {
	candidates := []model.Task{
		taskAt("m", "Standup", 9),
		taskAt("a", "Review PRs", 14),
		taskAt("e", "Gym", 18),
	}

	tests := []struct {
		ref  string
		want string
	}{
		{"morning", "m"},
		{"this afternoon", "a"},
		{"evening", "e"},
		{"tonight", "e"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := Match(model.TargetQuery{TimeReference: tt.ref}, candidates, testNow())
			if len(got) != 1 || got[0].ID != tt.want {
				t.Errorf("ref %q matched %d tasks", tt.ref, len(got))
			}
		})
	}
}

func TestMatchTimeOfDayNoWindow(t *testing.T) {
	noWindow := model.Task{ID: "x", Title: "Untimed", Status: model.StatusNotStarted}
	got := Match(model.TargetQuery{TimeReference: "morning"}, []model.Task{noWindow}, testNow())
	if len(got) != 0 {
		t.Error("tasks without a window should fail time-of-day filters")
	}
}

func TestMatchEmptyQueryReturnsAll(t *testing.T) {
	candidates := []model.Task{taskAt("1", "A", 9), taskAt("2", "B", 10)}
	got := Match(model.TargetQuery{}, candidates, testNow())
	if len(got) != 2 {
		t.Fatalf("expected all candidates, got %d", len(got))
	}
}

func TestMatchDeterminism(t *testing.T) {
	candidates := []model.Task{
		taskAt("1", "Email Alice", 9),
		taskAt("2", "Email Bob", 10),
		taskAt("3", "Email Carol", 11),
	}
	q := model.TargetQuery{TitleKeywords: []string{"email"}}

	first := Match(q, candidates, testNow())
	second := Match(q, candidates, testNow())
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs must yield identical output order")
	}
}
