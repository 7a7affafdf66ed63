package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diltak/mindtak-sub001/models"
	"github.com/diltak/mindtak-sub001/repository"
)

// ChatEndpoints is the HTTP surface of the coaching protocol: one endpoint
// that advances the conversation (and persists a report when the session
// ends with one) and one that transcribes a voice chunk.
type ChatEndpoints struct {
	coach      *CoachService
	transcribe *TranscribeService
	repo       *repository.GORMRepository
}

type ChatRequest struct {
	Messages        []ChatMessage `json:"messages"`
	EndSession      bool          `json:"endSession"`
	SessionType     string        `json:"sessionType"`
	SessionDuration int           `json:"sessionDuration"`
}

type TranscribeRequest struct {
	Audio string `json:"audio"` // base64-encoded payload
}

func NewChatEndpoints(coach *CoachService, transcribe *TranscribeService, repo *repository.GORMRepository) *ChatEndpoints {
	return &ChatEndpoints{coach: coach, transcribe: transcribe, repo: repo}
}

func (e *ChatEndpoints) RegisterRoutes(r chi.Router) {
	r.Post("/chat", e.ChatHandler)
	r.Post("/transcribe", e.TranscribeHandler)
	r.Get("/chat/sessions", e.ListSessionsHandler)
	r.Get("/chat/sessions/{sessionID}", e.GetSessionHandler)
}

// ChatHandler advances one coaching turn. The client sends the full message
// history each time; the response is either the next coach message or, at
// session end, the structured report. A report response is also the moment
// the WellnessReport row is written.
func (e *ChatEndpoints) ChatHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages are required", http.StatusBadRequest)
		return
	}
	if req.SessionType != models.SessionTypeVoice {
		req.SessionType = models.SessionTypeText
	}

	outcome, err := e.coach.ProcessTurn(r.Context(), user, req.Messages, req.EndSession)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Coach turn failed", "user_id", user.ID, "error", err)
		http.Error(w, "Failed to generate response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if outcome.IsReport() {
		report := outcome.Report.ToWellnessReport(user.ID, user.CompanyID, req.SessionType, req.SessionDuration)
		if err := e.repo.CreateWellnessReport(r.Context(), report); err != nil {
			slog.Error("Failed to persist wellness report", "user_id", user.ID, "error", err)
			http.Error(w, "Failed to save report", http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"type": "report",
			"data": report,
		})
		slog.Info("Coaching session completed", "user_id", user.ID, "report_id", report.ID, "risk_level", report.RiskLevel)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"type": "message",
		"data": map[string]interface{}{
			"content": outcome.Message,
		},
	})
}

// TranscribeHandler converts one base64 audio payload to text for voice
// sessions.
func (e *ChatEndpoints) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	audioData, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		http.Error(w, "audio must be base64-encoded", http.StatusBadRequest)
		return
	}

	transcript, err := e.transcribe.Transcribe(r.Context(), audioData)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAudio):
			http.Error(w, "Invalid audio payload", http.StatusBadRequest)
		case errors.Is(err, ErrUnauthorized):
			slog.Error("Transcription rejected", "user_id", user.ID, "error", err)
			http.Error(w, "Transcription unavailable", http.StatusBadGateway)
		default:
			slog.Error("Transcription failed", "user_id", user.ID, "error", err)
			http.Error(w, "Transcription unavailable", http.StatusServiceUnavailable)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"transcript": transcript,
	})
}

// ListSessionsHandler returns the caller's own coaching session history.
func (e *ChatEndpoints) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	sessions, err := e.repo.GetCoachSessions(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to load coach sessions", "user_id", user.ID, "error", err)
		http.Error(w, "Failed to load sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"sessions": sessions,
	})
}

// GetSessionHandler returns one coaching session, owner-only.
func (e *ChatEndpoints) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := e.repo.GetCoachSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if session == nil || session.UserID != user.ID {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"session": session,
	})
}
