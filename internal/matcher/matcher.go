// Package matcher resolves update-intent target queries against a
// candidate task collection.
package matcher

import (
	"strings"
	"time"

	"github.com/rcliao/voicetask/internal/model"
)

// Time-of-day buckets for coarse time references, matched against a
// task's window start.
const (
	morningStart   = 6
	morningEnd     = 12
	afternoonStart = 12
	afternoonEnd   = 17
	eveningStart   = 17
	eveningEnd     = 23
)

// Match filters candidates by the query. Filters are optional and
// AND-combined; candidate order is preserved. now anchors the
// time-of-day bucket comparison.
func Match(q model.TargetQuery, candidates []model.Task, now time.Time) []model.Task {
	var result []model.Task
	for _, t := range candidates {
		if matches(q, t, now) {
			result = append(result, t)
		}
	}
	return result
}

func matches(q model.TargetQuery, t model.Task, now time.Time) bool {
	if q.StatusFilter != nil && t.Status != *q.StatusFilter {
		return false
	}
	if q.PriorityFilter != nil && t.Priority != *q.PriorityFilter {
		return false
	}
	if len(q.TitleKeywords) > 0 && !matchesAnyKeyword(t.Title, q.TitleKeywords) {
		return false
	}
	if q.TimeReference != "" && !matchesTimeOfDay(t, q.TimeReference, now) {
		return false
	}
	return true
}

// matchesAnyKeyword passes when any keyword is a case-insensitive
// substring of the title.
func matchesAnyKeyword(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func matchesTimeOfDay(t model.Task, ref string, now time.Time) bool {
	if t.WindowStart == nil {
		return false
	}
	hour := t.WindowStart.In(now.Location()).Hour()
	switch bucket(ref) {
	case "morning":
		return hour >= morningStart && hour < morningEnd
	case "afternoon":
		return hour >= afternoonStart && hour < afternoonEnd
	case "evening":
		return hour >= eveningStart && hour < eveningEnd
	}
	// Unrecognized references do not constrain the match.
	return true
}

func bucket(ref string) string {
	r := strings.ToLower(ref)
	switch {
	case strings.Contains(r, "morning"):
		return "morning"
	case strings.Contains(r, "afternoon"):
		return "afternoon"
	case strings.Contains(r, "evening"), strings.Contains(r, "tonight"):
		return "evening"
	}
	return ""
}
