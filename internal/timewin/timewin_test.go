package timewin

import (
	"testing"
	"time"

	"github.com/rcliao/voicetask/internal/model"
)

func refAt(hour, min int) time.Time {
	return time.Date(2025, 3, 14, hour, min, 0, 0, time.UTC)
}

func TestResolveFixedOffsets(t *testing.T) {
	c := New(DefaultConfig())
	ref := refAt(14, 0)

	tests := []struct {
		name string
		opt  model.SnoozeOption
		want time.Duration
	}{
		{"10m", model.SnoozeOption{Kind: model.Snooze10Min}, 10 * time.Minute},
		{"15m", model.SnoozeOption{Kind: model.Snooze15Min}, 15 * time.Minute},
		{"30m", model.SnoozeOption{Kind: model.Snooze30Min}, 30 * time.Minute},
		{"1h", model.SnoozeOption{Kind: model.Snooze1Hour}, time.Hour},
		{"2h", model.SnoozeOption{Kind: model.Snooze2Hours}, 2 * time.Hour},
		{"custom 45", model.SnoozeOption{Kind: model.SnoozeCustom, Minutes: 45}, 45 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Resolve(tt.opt, ref)
			if !ok {
				t.Fatalf("expected ok for %s", tt.name)
			}
			if got.Sub(ref) != tt.want {
				t.Errorf("offset = %v, want %v", got.Sub(ref), tt.want)
			}
		})
	}
}

func TestResolveTonight(t *testing.T) {
	c := New(DefaultConfig())

	// Before 19:00 resolves to 19:00 same day.
	got, ok := c.Resolve(model.SnoozeOption{Kind: model.SnoozeTonight}, refAt(14, 30))
	if !ok {
		t.Fatal("expected tonight to resolve before 19:00")
	}
	if got.Hour() != 19 || got.Day() != 14 {
		t.Errorf("got %v, want same day 19:00", got)
	}

	// At or past 19:00 there is no tonight. No rollover to tomorrow.
	if _, ok := c.Resolve(model.SnoozeOption{Kind: model.SnoozeTonight}, refAt(19, 0)); ok {
		t.Error("expected no result at exactly 19:00")
	}
	if _, ok := c.Resolve(model.SnoozeOption{Kind: model.SnoozeTonight}, refAt(22, 15)); ok {
		t.Error("expected no result past 19:00")
	}
}

func TestResolveTomorrow(t *testing.T) {
	c := New(DefaultConfig())

	got, ok := c.Resolve(model.SnoozeOption{Kind: model.SnoozeTomorrow}, refAt(23, 50))
	if !ok {
		t.Fatal("tomorrow must always resolve")
	}
	if got.Day() != 15 || got.Hour() != 9 {
		t.Errorf("got %v, want next day 09:00", got)
	}
}

func TestWindowFromPhrase(t *testing.T) {
	c := New(DefaultConfig())
	ref := refAt(14, 0)

	tests := []struct {
		phrase    string
		startHour int
		endHour   int
		nextDay   bool
	}{
		{"tonight", 18, 22, false},
		{"this evening", 18, 22, false},
		{"tomorrow morning", 8, 12, true},
		{"this afternoon", 13, 17, false},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			w, ok := c.WindowFromPhrase(tt.phrase, ref)
			if !ok {
				t.Fatalf("phrase %q did not resolve", tt.phrase)
			}
			if w.Start == nil || w.End == nil {
				t.Fatal("expected bounded window")
			}
			if w.Start.Hour() != tt.startHour || w.End.Hour() != tt.endHour {
				t.Errorf("window [%d,%d), want [%d,%d)", w.Start.Hour(), w.End.Hour(), tt.startHour, tt.endHour)
			}
			wantDay := 14
			if tt.nextDay {
				wantDay = 15
			}
			if w.Start.Day() != wantDay {
				t.Errorf("start day = %d, want %d", w.Start.Day(), wantDay)
			}
			if !w.IsFlexible {
				t.Error("phrase windows should be flexible")
			}
		})
	}
}

func TestWindowFromPhraseSoon(t *testing.T) {
	c := New(DefaultConfig())
	ref := refAt(14, 0)

	w, ok := c.WindowFromPhrase("later today", ref)
	if !ok {
		t.Fatal("expected 'later' to resolve")
	}
	if w.Start == nil || w.End != nil {
		t.Fatal("expected open-ended point estimate")
	}
	if w.Start.Sub(ref) != time.Hour {
		t.Errorf("start offset = %v, want 1h", w.Start.Sub(ref))
	}
}

func TestWindowFromPhraseUnknown(t *testing.T) {
	c := New(DefaultConfig())
	if _, ok := c.WindowFromPhrase("next leap year", refAt(10, 0)); ok {
		t.Error("unknown phrase should not resolve")
	}
}
