// Package parser turns a raw utterance into structured task intents.
// It provides a remote language-model backed parser and a deterministic
// offline fallback behind a single interface.
package parser

import (
	"context"
	"log/slog"
	"time"

	"github.com/rcliao/voicetask/internal/model"
	"github.com/rcliao/voicetask/internal/timewin"
)

// maxContextTasks bounds how many existing tasks are sent to the remote
// model as disambiguation context.
const maxContextTasks = 20

// Parser converts one utterance plus existing-task context into intents.
type Parser interface {
	Parse(ctx context.Context, utterance string, tasks []model.Task) (*model.VoiceIntentResult, error)
}

// Options configures parser construction.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Clock   func() time.Time
	Windows timewin.Config
}

// ResilientParser tries a primary parser and falls through to the
// deterministic fallback on any failure. Parse never returns an error:
// callers can only tell the paths apart by the confidence score.
type ResilientParser struct {
	primary  Parser
	fallback *FallbackParser
	logger   *slog.Logger
}

// NewResilient wraps primary with the fallback parser. primary may be
// nil, in which case every parse takes the fallback path.
func NewResilient(primary Parser, fallback *FallbackParser, logger *slog.Logger) *ResilientParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResilientParser{primary: primary, fallback: fallback, logger: logger}
}

// NewFromOptions builds the standard parser stack: a remote parser when
// an API key is configured, fallback-only otherwise.
func NewFromOptions(opts Options, logger *slog.Logger) *ResilientParser {
	fb := NewFallbackParser(timewin.New(opts.Windows), opts.Clock)
	var primary Parser
	if opts.APIKey != "" {
		primary = NewRemoteParser(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout)
	}
	return NewResilient(primary, fb, logger)
}

func (p *ResilientParser) Parse(ctx context.Context, utterance string, tasks []model.Task) (*model.VoiceIntentResult, error) {
	if len(tasks) > maxContextTasks {
		tasks = tasks[:maxContextTasks]
	}

	if p.primary != nil {
		result, err := p.primary.Parse(ctx, utterance, tasks)
		if err == nil {
			return result, nil
		}
		p.logger.Debug("remote parse failed, using fallback", "error", err)
	}

	return p.fallback.Parse(ctx, utterance, tasks)
}
