// Package timewin maps relative time phrases and snooze presets to
// concrete instants, relative to a caller-supplied reference time.
package timewin

import (
	"strings"
	"time"

	"github.com/rcliao/voicetask/internal/model"
)

// Config holds the clock-hour anchors used by the calculator. All hours
// are in the reference time's location.
type Config struct {
	TonightHour        int // snooze "tonight" anchor
	TomorrowHour       int // snooze "tomorrow" anchor
	EveningStartHour   int
	EveningEndHour     int
	MorningStartHour   int
	MorningEndHour     int
	AfternoonStartHour int
	AfternoonEndHour   int
	SoonOffset         time.Duration
}

// DefaultConfig returns the standard anchors: tonight 19:00, tomorrow
// 09:00, evening [18,22), morning [08,12), afternoon [13,17), soon +1h.
func DefaultConfig() Config {
	return Config{
		TonightHour:        19,
		TomorrowHour:       9,
		EveningStartHour:   18,
		EveningEndHour:     22,
		MorningStartHour:   8,
		MorningEndHour:     12,
		AfternoonStartHour: 13,
		AfternoonEndHour:   17,
		SoonOffset:         time.Hour,
	}
}

// Calculator resolves snooze options and schedule phrases.
type Calculator struct {
	cfg Config
}

// New creates a Calculator with the given config.
func New(cfg Config) *Calculator {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	return &Calculator{cfg: cfg}
}

// Resolve maps a snooze option to a concrete instant relative to ref.
// The second return is false only for "tonight" when ref is already at
// or past the tonight anchor: there is deliberately no next-day
// rollover, the caller must pick a different option.
func (c *Calculator) Resolve(opt model.SnoozeOption, ref time.Time) (time.Time, bool) {
	switch opt.Kind {
	case model.Snooze10Min:
		return ref.Add(10 * time.Minute), true
	case model.Snooze15Min:
		return ref.Add(15 * time.Minute), true
	case model.Snooze30Min:
		return ref.Add(30 * time.Minute), true
	case model.Snooze1Hour:
		return ref.Add(time.Hour), true
	case model.Snooze2Hours:
		return ref.Add(2 * time.Hour), true
	case model.SnoozeCustom:
		return ref.Add(time.Duration(opt.Minutes) * time.Minute), true
	case model.SnoozeTonight:
		tonight := c.at(ref, c.cfg.TonightHour)
		if !tonight.After(ref) {
			return time.Time{}, false
		}
		return tonight, true
	case model.SnoozeTomorrow:
		return c.at(ref.AddDate(0, 0, 1), c.cfg.TomorrowHour), true
	}
	return time.Time{}, false
}

// WindowFromPhrase maps a free-form schedule phrase to a window. Used by
// the fallback parser; unknown phrases return ok=false.
func (c *Calculator) WindowFromPhrase(phrase string, ref time.Time) (model.ScheduleWindow, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	switch {
	case strings.Contains(p, "tonight"), strings.Contains(p, "this evening"):
		return c.window(ref, c.cfg.EveningStartHour, c.cfg.EveningEndHour, "this evening"), true
	case strings.Contains(p, "tomorrow morning"):
		next := ref.AddDate(0, 0, 1)
		return c.window(next, c.cfg.MorningStartHour, c.cfg.MorningEndHour, "tomorrow morning"), true
	case strings.Contains(p, "this afternoon"):
		return c.window(ref, c.cfg.AfternoonStartHour, c.cfg.AfternoonEndHour, "this afternoon"), true
	case strings.Contains(p, "later"), strings.Contains(p, "soon"):
		start := ref.Add(c.cfg.SoonOffset)
		return model.ScheduleWindow{Start: &start, Label: "later", IsFlexible: true}, true
	}
	return model.ScheduleWindow{}, false
}

func (c *Calculator) at(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

func (c *Calculator) window(day time.Time, startHour, endHour int, label string) model.ScheduleWindow {
	start := c.at(day, startHour)
	end := c.at(day, endHour)
	return model.ScheduleWindow{Start: &start, End: &end, Label: label, IsFlexible: true}
}
