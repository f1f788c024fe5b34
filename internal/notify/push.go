package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rcliao/voicetask/internal/model"
)

// PushScheduler delivers window reminders through a Bark-style push
// endpoint and logs events through slog. Push delivery is best-effort.
type PushScheduler struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewPushScheduler creates a push scheduler against a Bark-style URL.
func NewPushScheduler(baseURL string, logger *slog.Logger) (*PushScheduler, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("push url is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PushScheduler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}, nil
}

func (p *PushScheduler) ScheduleWindowStart(ctx context.Context, t model.Task) error {
	if t.WindowStart == nil {
		return nil
	}
	return p.send(ctx, "Task starting", fmt.Sprintf("%s at %s", t.Title, t.WindowStart.Format(time.Kitchen)))
}

func (p *PushScheduler) ScheduleWindowEnd(ctx context.Context, t model.Task) error {
	if t.WindowEnd == nil {
		return nil
	}
	return p.send(ctx, "Task window ending", fmt.Sprintf("%s by %s", t.Title, t.WindowEnd.Format(time.Kitchen)))
}

func (p *PushScheduler) CancelNotifications(ctx context.Context, taskID string) error {
	p.logger.Debug("notifications cancelled", "task_id", taskID)
	return nil
}

func (p *PushScheduler) LogEvent(ctx context.Context, eventType, taskID string, metadata map[string]string) error {
	attrs := []any{"type", eventType, "task_id", taskID}
	for k, v := range metadata {
		attrs = append(attrs, k, v)
	}
	p.logger.Info("task event", attrs...)
	return nil
}

func (p *PushScheduler) send(ctx context.Context, title, body string) error {
	form := url.Values{}
	form.Set("title", title)
	form.Set("body", body)
	form.Set("group", "voicetask")

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, nil)
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.URL.RawQuery = form.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push api returned status: %d", resp.StatusCode)
	}
	return nil
}
