package parser

import (
	"context"
	"strings"
	"time"

	"github.com/rcliao/voicetask/internal/model"
	"github.com/rcliao/voicetask/internal/timewin"
)

// Fallback confidence band. Intentionally low so callers can tell a
// heuristic parse from a model parse.
const (
	fallbackResultConfidence = 0.35
	fallbackUpdateConfidence = 0.4
	fallbackCreateConfidence = 0.35
	fallbackGuessConfidence  = 0.3
)

// maxTitleLen is the truncation limit for synthesized titles.
const maxTitleLen = 50

// conjunctions split an utterance into independent intent segments.
// Order matters: longer markers are tried before their substrings.
var conjunctions = []string{
	", and ", " and then ", " and ", " then ", " also ",
	", y ", " y luego ", " y ", " luego ", " también ",
}

// actionKeyword maps a trigger phrase to an update action. The table is
// ordered; the first phrase found in a segment wins.
type actionKeyword struct {
	phrase string
	action model.UpdateAction
}

var actionKeywords = []actionKeyword{
	{"done", model.ActionComplete},
	{"finished", model.ActionComplete},
	{"completed", model.ActionComplete},
	{"terminé", model.ActionComplete},
	{"start", model.ActionStart},
	{"begin", model.ActionStart},
	{"empezar", model.ActionStart},
	{"pause", model.ActionPause},
	{"pausar", model.ActionPause},
	{"resume", model.ActionResume},
	{"continue", model.ActionResume},
	{"continuar", model.ActionResume},
	{"skip", model.ActionSkip},
	{"not today", model.ActionSkip},
	{"hoy no", model.ActionSkip},
	{"delete", model.ActionDelete},
	{"remove", model.ActionDelete},
	{"cancel", model.ActionDelete},
	{"eliminar", model.ActionDelete},
	{"snooze", model.ActionSnooze},
	{"later", model.ActionSnooze},
	{"más tarde", model.ActionSnooze},
	{"reschedule", model.ActionReschedule},
	{"move to", model.ActionReschedule},
	{"reprogramar", model.ActionReschedule},
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "please": true, "about": true, "los": true, "las": true,
	"una": true, "por": true, "para": true,
}

var urgentMarkers = []string{"urgent", "asap", "important", "critical", "right away", "urgente"}
var lowMarkers = []string{"low priority", "no rush", "whenever", "someday", "sin prisa"}

// FallbackParser is the deterministic offline intent extractor. It is
// pure given its clock and never fails on non-empty input.
type FallbackParser struct {
	calc  *timewin.Calculator
	clock func() time.Time
}

// NewFallbackParser creates the fallback parser. clock supplies the
// reference time for phrase windows; nil means time.Now.
func NewFallbackParser(calc *timewin.Calculator, clock func() time.Time) *FallbackParser {
	if calc == nil {
		calc = timewin.New(timewin.DefaultConfig())
	}
	if clock == nil {
		clock = time.Now
	}
	return &FallbackParser{calc: calc, clock: clock}
}

func (p *FallbackParser) Parse(_ context.Context, utterance string, _ []model.Task) (*model.VoiceIntentResult, error) {
	result := &model.VoiceIntentResult{
		RawUtterance: utterance,
		Confidence:   fallbackResultConfidence,
	}

	now := p.clock()
	for _, segment := range splitSegments(utterance) {
		if update, ok := p.parseUpdate(strings.ToLower(segment), utterance); ok {
			result.UpdateIntents = append(result.UpdateIntents, update)
			continue
		}
		result.CreateIntents = append(result.CreateIntents, p.parseCreate(segment, utterance, now))
	}

	// The result is never empty: an unparseable utterance still becomes
	// one low-confidence create so there is always something to review.
	if !result.HasIntents() && strings.TrimSpace(utterance) != "" {
		result.CreateIntents = append(result.CreateIntents, model.CreateTaskIntent{
			Title:        TruncateTitle(utterance),
			Priority:     model.PriorityNormal,
			RawUtterance: utterance,
			Confidence:   fallbackGuessConfidence,
		})
	}

	return result, nil
}

// splitSegments breaks an utterance on conjunction markers. Markers are
// matched case-insensitively but the original casing of each segment is
// preserved for title synthesis.
func splitSegments(utterance string) []string {
	lower := []byte(strings.ToLower(utterance))
	orig := []byte(utterance)
	if len(lower) != len(orig) {
		// Case folding changed byte lengths; give up on casing.
		orig = lower
	}
	for _, c := range conjunctions {
		for {
			i := strings.Index(string(lower), c)
			if i < 0 {
				break
			}
			for j := i; j < i+len(c); j++ {
				lower[j] = '\x1f'
				orig[j] = '\x1f'
			}
		}
	}
	var segments []string
	for _, s := range strings.Split(string(orig), "\x1f") {
		s = strings.TrimSpace(s)
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func (p *FallbackParser) parseUpdate(segment, utterance string) (model.UpdateTaskIntent, bool) {
	for _, kw := range actionKeywords {
		if !strings.Contains(segment, kw.phrase) {
			continue
		}
		return model.UpdateTaskIntent{
			Action: kw.action,
			Target: model.TargetQuery{
				TitleKeywords:  extractKeywords(segment),
				RawDescription: segment,
			},
			RawUtterance: utterance,
			Confidence:   fallbackUpdateConfidence,
		}, true
	}
	return model.UpdateTaskIntent{}, false
}

func (p *FallbackParser) parseCreate(segment, utterance string, now time.Time) model.CreateTaskIntent {
	intent := model.CreateTaskIntent{
		Title:        TruncateTitle(segment),
		Priority:     scanPriority(segment),
		RawUtterance: utterance,
		Confidence:   fallbackCreateConfidence,
	}
	if win, ok := p.calc.WindowFromPhrase(segment, now); ok {
		intent.ScheduleWindow = &win
	}
	return intent
}

// extractKeywords tokenizes a segment, drops short tokens and stop
// words, and keeps the first five remaining tokens.
func extractKeywords(segment string) []string {
	var keywords []string
	for _, tok := range strings.FieldsFunc(segment, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	}) {
		tok = strings.ToLower(tok)
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		keywords = append(keywords, tok)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

func scanPriority(segment string) model.Priority {
	segment = strings.ToLower(segment)
	for _, m := range urgentMarkers {
		if strings.Contains(segment, m) {
			return model.PriorityUrgent
		}
	}
	for _, m := range lowMarkers {
		if strings.Contains(segment, m) {
			return model.PriorityLow
		}
	}
	return model.PriorityNormal
}

// TruncateTitle synthesizes a task title from free text: first sentence,
// capped at 50 characters on a word boundary with an ellipsis.
func TruncateTitle(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?\n"); i > 0 {
		text = strings.TrimSpace(text[:i])
	}
	if len(text) <= maxTitleLen {
		return text
	}
	cut := text[:maxTitleLen]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;") + "..."
}
