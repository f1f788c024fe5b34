package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/voicetask/internal/model"
	"github.com/rcliao/voicetask/internal/timewin"
)

// chatServer returns a test server that responds with the given message
// content wrapped in a chat-completions envelope.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %q, want json_object", req.ResponseFormat.Type)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestRemoteParse(t *testing.T) {
	payload := `{
		"create_tasks": [
			{"title": "Call mom", "schedule_label": "tonight",
			 "start_time": "2025-03-14T18:00:00Z", "end_time": "2025-03-14T22:00:00Z",
			 "is_flexible": true, "priority": "normal", "confidence": 0.92}
		],
		"update_tasks": [
			{"action": "complete", "title_keywords": ["email"],
			 "target_description": "the email task", "confidence": 0.88}
		],
		"confidence": 0.9
	}`
	srv := chatServer(t, payload)
	defer srv.Close()

	p := NewRemoteParser(srv.URL, "test-key", "test-model", 5*time.Second)
	result, err := p.Parse(context.Background(), "call mom tonight and mark the email task done", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(result.CreateIntents) != 1 || len(result.UpdateIntents) != 1 {
		t.Fatalf("expected 1+1 intents, got %d+%d", len(result.CreateIntents), len(result.UpdateIntents))
	}
	create := result.CreateIntents[0]
	if create.Title != "Call mom" {
		t.Errorf("title = %q", create.Title)
	}
	if create.ScheduleWindow == nil || !create.ScheduleWindow.IsFlexible {
		t.Error("expected flexible schedule window")
	}
	update := result.UpdateIntents[0]
	if update.Action != model.ActionComplete {
		t.Errorf("action = %s", update.Action)
	}
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %f", result.Confidence)
	}
}

func TestRemoteParseRejectsUnknownAction(t *testing.T) {
	payload := `{"create_tasks": [], "update_tasks": [{"action": "explode", "target_description": "x"}], "confidence": 0.9}`
	srv := chatServer(t, payload)
	defer srv.Close()

	p := NewRemoteParser(srv.URL, "k", "m", time.Second)
	if _, err := p.Parse(context.Background(), "whatever", nil); err == nil {
		t.Fatal("expected schema violation error")
	}
}

func TestRemoteParseMalformedJSON(t *testing.T) {
	srv := chatServer(t, "not json at all")
	defer srv.Close()

	p := NewRemoteParser(srv.URL, "k", "m", time.Second)
	if _, err := p.Parse(context.Background(), "whatever", nil); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRemoteParseHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewRemoteParser(srv.URL, "k", "m", time.Second)
	if _, err := p.Parse(context.Background(), "whatever", nil); err == nil {
		t.Fatal("expected error on 503")
	}
}

// failingParser always errors, forcing the fallback path.
type failingParser struct{}

func (failingParser) Parse(context.Context, string, []model.Task) (*model.VoiceIntentResult, error) {
	return nil, fmt.Errorf("forced failure")
}

func TestResilientFallsBack(t *testing.T) {
	fb := NewFallbackParser(timewin.New(timewin.DefaultConfig()), nil)
	p := NewResilient(failingParser{}, fb, nil)

	result, err := p.Parse(context.Background(), "buy milk", nil)
	if err != nil {
		t.Fatalf("resilient parse must not fail: %v", err)
	}
	if result.TotalIntentCount() < 1 {
		t.Fatal("expected at least one intent from fallback")
	}
	if result.Confidence > 0.4 {
		t.Errorf("fallback confidence %f should be in the low band", result.Confidence)
	}
}

func TestResilientPrefersPrimary(t *testing.T) {
	payload := `{"create_tasks": [{"title": "Primary wins"}], "update_tasks": [], "confidence": 0.95}`
	srv := chatServer(t, payload)
	defer srv.Close()

	primary := NewRemoteParser(srv.URL, "k", "m", time.Second)
	fb := NewFallbackParser(timewin.New(timewin.DefaultConfig()), nil)
	p := NewResilient(primary, fb, nil)

	result, err := p.Parse(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.CreateIntents) != 1 || result.CreateIntents[0].Title != "Primary wins" {
		t.Errorf("expected remote result, got %+v", result)
	}
}

func TestResilientCapsContextTasks(t *testing.T) {
	var gotTasks int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		// Count task lines in the user prompt.
		gotTasks = 0
		for _, m := range req.Messages {
			if m.Role != "user" {
				continue
			}
			for _, line := range strings.Split(m.Content, "\n") {
				if len(line) > 1 && line[0] == '-' {
					gotTasks++
				}
			}
		}
		payload := `{"create_tasks": [{"title": "x"}], "update_tasks": [], "confidence": 0.9}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": payload}}},
		})
	}))
	defer srv.Close()

	tasks := make([]model.Task, 30)
	for i := range tasks {
		tasks[i] = model.Task{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("task %d", i)}
	}

	primary := NewRemoteParser(srv.URL, "k", "m", time.Second)
	fb := NewFallbackParser(timewin.New(timewin.DefaultConfig()), nil)
	p := NewResilient(primary, fb, nil)

	if _, err := p.Parse(context.Background(), "anything", tasks); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gotTasks != 20 {
		t.Errorf("context tasks = %d, want capped at 20", gotTasks)
	}
}
