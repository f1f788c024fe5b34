package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/voicetask/internal/flow"
	"github.com/rcliao/voicetask/internal/model"
	"github.com/rcliao/voicetask/internal/store"
)

type utteranceRequest struct {
	Transcript      string  `json:"transcript"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type utteranceResponse struct {
	State      string                   `json:"state"`
	Summary    string                   `json:"summary,omitempty"`
	FailReason string                   `json:"fail_reason,omitempty"`
	Result     *model.VoiceIntentResult `json:"result,omitempty"`
	Candidates []model.Task             `json:"candidates,omitempty"`
}

// handleUtterance runs one transcript through a fresh flow session and
// auto-confirms everything. Ambiguous update targets cannot be resolved
// without a user and are reported as a conflict.
func (s *Server) handleUtterance(w http.ResponseWriter, r *http.Request) {
	var req utteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	engine := flow.New(s.parser, s.ops, s.store, s.logger, time.Now)
	if err := engine.Submit(r.Context(), req.Transcript); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Drive the session to a terminal state without user interaction.
	for {
		var err error
		switch engine.State() {
		case flow.StateIdle:
			// Empty transcript: nothing to process.
			writeJSON(w, http.StatusOK, utteranceResponse{State: string(flow.StateIdle)})
			return
		case flow.StateReviewingSummary:
			err = engine.ConfirmAll(r.Context())
		case flow.StateReviewingCreate, flow.StateReviewingUpdate:
			err = engine.Advance(r.Context())
		case flow.StateSelectingTarget:
			writeJSON(w, http.StatusConflict, utteranceResponse{
				State:      string(engine.State()),
				FailReason: "multiple tasks match, pick a target and retry with a narrower description",
				Candidates: engine.Candidates(),
			})
			return
		case flow.StateCompleted:
			writeJSON(w, http.StatusOK, utteranceResponse{
				State:   string(flow.StateCompleted),
				Summary: engine.Summary(),
				Result:  engine.Result(),
			})
			return
		case flow.StateFailed:
			writeJSON(w, http.StatusUnprocessableEntity, utteranceResponse{
				State:      string(flow.StateFailed),
				FailReason: engine.FailReason(),
				Result:     engine.Result(),
			})
			return
		default:
			writeError(w, http.StatusInternalServerError, "unexpected flow state "+string(engine.State()))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := store.ListParams{
		Status:      model.Status(q.Get("status")),
		Priority:    model.Priority(q.Get("priority")),
		TitleLike:   q.Get("title"),
		IncludeDone: q.Get("include_done") == "true",
	}
	tasks, err := s.store.List(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.Get(r.Context(), chi.URLParam(r, "taskID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type actionRequest struct {
	Action model.UpdateAction `json:"action"`
}

func (s *Server) handleTaskAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidActions[req.Action] {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	task, err := s.store.Get(r.Context(), chi.URLParam(r, "taskID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.ops.ApplyUpdate(r.Context(), task, req.Action, model.UpdateParams{}); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type snoozeRequest struct {
	Minutes int    `json:"minutes,omitempty"`
	Until   string `json:"until,omitempty"` // RFC3339
}

func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var params model.UpdateParams
	if req.Until != "" {
		until, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			writeError(w, http.StatusBadRequest, "until must be RFC3339")
			return
		}
		params.SnoozeUntil = &until
	} else if req.Minutes > 0 {
		d := time.Duration(req.Minutes) * time.Minute
		params.SnoozeDuration = &d
	}

	task, err := s.store.Get(r.Context(), chi.URLParam(r, "taskID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.ops.ApplyUpdate(r.Context(), task, model.ActionSnooze, params); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
