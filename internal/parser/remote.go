package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rcliao/voicetask/internal/model"
)

// RemoteParser uses an OpenAI-compatible chat-completions API with a
// JSON response format to extract intents.
type RemoteParser struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewRemoteParser creates a remote parser against an OpenAI-compatible API.
func NewRemoteParser(baseURL, apiKey, chatModel string, timeout time.Duration) *RemoteParser {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteParser{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   chatModel,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// wireResult is the JSON schema the model is constrained to.
type wireResult struct {
	CreateTasks []wireCreate `json:"create_tasks"`
	UpdateTasks []wireUpdate `json:"update_tasks"`
	Confidence  float64      `json:"confidence"`
}

type wireCreate struct {
	Title         string  `json:"title"`
	ScheduleLabel string  `json:"schedule_label,omitempty"`
	StartTime     string  `json:"start_time,omitempty"`
	EndTime       string  `json:"end_time,omitempty"`
	IsFlexible    bool    `json:"is_flexible,omitempty"`
	Deadline      string  `json:"deadline,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	Note          string  `json:"note,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
}

type wireUpdate struct {
	Action            string   `json:"action"`
	TitleKeywords     []string `json:"title_keywords,omitempty"`
	TimeReference     string   `json:"time_reference,omitempty"`
	StatusFilter      string   `json:"status_filter,omitempty"`
	PriorityFilter    string   `json:"priority_filter,omitempty"`
	IsMultiple        bool     `json:"is_multiple,omitempty"`
	TargetDescription string   `json:"target_description"`
	SnoozeMinutes     int      `json:"snooze_minutes,omitempty"`
	NewStartTime      string   `json:"new_start_time,omitempty"`
	NewEndTime        string   `json:"new_end_time,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
}

const systemPrompt = `You extract task intents from a single spoken or typed sentence.
A sentence may contain MULTIPLE independent intents joined by conjunctions
("and", "then", "also"); emit each one separately.

For every NEW task to create, fill create_tasks with title (required),
schedule_label / start_time / end_time (RFC3339, optional), deadline,
priority (urgent|normal|low), and note.

For every change to an EXISTING task, fill update_tasks with an action from
exactly this vocabulary: start, pause, resume, complete, skip, delete,
snooze, reschedule. Include title_keywords and target_description rich
enough to find the task in the provided task list, plus time_reference,
status_filter, or priority_filter when the sentence narrows the target.

Respond with a single JSON object: {"create_tasks": [...],
"update_tasks": [...], "confidence": 0.0-1.0}.`

func (p *RemoteParser) Parse(ctx context.Context, utterance string, tasks []model.Task) (*model.VoiceIntentResult, error) {
	user := buildUserPrompt(utterance, tasks)
	body, _ := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0.3,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("intent api error %d: %s", resp.StatusCode, string(b))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, err
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &wire); err != nil {
		return nil, fmt.Errorf("malformed intent payload: %w", err)
	}

	return decodeWire(wire, utterance)
}

func buildUserPrompt(utterance string, tasks []model.Task) string {
	var b strings.Builder
	b.WriteString("Utterance: ")
	b.WriteString(utterance)
	if len(tasks) > 0 {
		b.WriteString("\n\nExisting open tasks:\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "- id=%s title=%q status=%s", t.ID, t.Title, t.Status)
			if t.WindowStart != nil {
				fmt.Fprintf(&b, " starts=%s", t.WindowStart.Format(time.RFC3339))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// decodeWire validates the wire payload into the typed result. Schema
// violations are errors so the caller falls back.
func decodeWire(w wireResult, utterance string) (*model.VoiceIntentResult, error) {
	result := &model.VoiceIntentResult{
		RawUtterance: utterance,
		Confidence:   clamp01(w.Confidence),
	}

	for _, c := range w.CreateTasks {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = TruncateTitle(utterance)
		}
		intent := model.CreateTaskIntent{
			Title:        title,
			Priority:     decodePriority(c.Priority),
			Note:         c.Note,
			RawUtterance: utterance,
			Confidence:   clamp01(orDefault(c.Confidence, w.Confidence)),
		}
		if win, err := decodeWindow(c.StartTime, c.EndTime, c.ScheduleLabel, c.IsFlexible); err != nil {
			return nil, err
		} else if win != nil {
			intent.ScheduleWindow = win
		}
		if c.Deadline != "" {
			d, err := time.Parse(time.RFC3339, c.Deadline)
			if err != nil {
				return nil, fmt.Errorf("bad deadline %q: %w", c.Deadline, err)
			}
			intent.Deadline = &d
		}
		result.CreateIntents = append(result.CreateIntents, intent)
	}

	for _, u := range w.UpdateTasks {
		action := model.UpdateAction(strings.ToLower(strings.TrimSpace(u.Action)))
		if !model.ValidActions[action] {
			return nil, fmt.Errorf("unknown action %q", u.Action)
		}
		intent := model.UpdateTaskIntent{
			Action: action,
			Target: model.TargetQuery{
				TitleKeywords:  u.TitleKeywords,
				TimeReference:  u.TimeReference,
				IsMultiple:     u.IsMultiple,
				RawDescription: u.TargetDescription,
			},
			RawUtterance: utterance,
			Confidence:   clamp01(orDefault(u.Confidence, w.Confidence)),
		}
		if u.StatusFilter != "" {
			st := model.Status(u.StatusFilter)
			if !model.ValidStatuses[st] {
				return nil, fmt.Errorf("unknown status filter %q", u.StatusFilter)
			}
			intent.Target.StatusFilter = &st
		}
		if u.PriorityFilter != "" {
			pr := model.Priority(u.PriorityFilter)
			if !model.ValidPriorities[pr] {
				return nil, fmt.Errorf("unknown priority filter %q", u.PriorityFilter)
			}
			intent.Target.PriorityFilter = &pr
		}
		if u.SnoozeMinutes > 0 {
			d := time.Duration(u.SnoozeMinutes) * time.Minute
			intent.Params.SnoozeDuration = &d
		}
		if win, err := decodeWindow(u.NewStartTime, u.NewEndTime, "", false); err != nil {
			return nil, err
		} else if win != nil {
			intent.Params.NewSchedule = win
		}
		result.UpdateIntents = append(result.UpdateIntents, intent)
	}

	return result, nil
}

func decodeWindow(start, end, label string, flexible bool) (*model.ScheduleWindow, error) {
	if start == "" && end == "" && label == "" {
		return nil, nil
	}
	w := &model.ScheduleWindow{Label: label, IsFlexible: flexible}
	if start != "" {
		s, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("bad start time %q: %w", start, err)
		}
		w.Start = &s
	}
	if end != "" {
		e, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return nil, fmt.Errorf("bad end time %q: %w", end, err)
		}
		w.End = &e
	}
	return w, nil
}

func decodePriority(s string) model.Priority {
	p := model.Priority(strings.ToLower(strings.TrimSpace(s)))
	if model.ValidPriorities[p] {
		return p
	}
	return model.PriorityNormal
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
