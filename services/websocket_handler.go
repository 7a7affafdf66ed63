package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/diltak/mindtak-sub001/models"
	ws "github.com/diltak/mindtak-sub001/websocket"
)

const sessionIdleTimeout = 2 * time.Hour

// sessionStore is the persistence surface a live session needs. Satisfied by
// repository.GORMRepository.
type sessionStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateCoachSession(ctx context.Context, session *models.CoachSession) error
	UpdateCoachSession(ctx context.Context, session *models.CoachSession) error
	CreateWellnessReport(ctx context.Context, report *models.WellnessReport) error
}

// WebSocketHandler runs live coaching sessions over the hub. Unlike the HTTP
// chat surface, where the client resends the full history, the socket path
// accumulates the conversation server-side per session.
type WebSocketHandler struct {
	coach      *CoachService
	transcribe *TranscribeService
	repo       sessionStore

	sessions map[string]*liveSession
	mu       sync.Mutex
}

type liveSession struct {
	userID       string
	mode         string
	history      []ChatMessage
	startedAt    time.Time
	lastActivity time.Time
	record       *models.CoachSession
}

type wsReply struct {
	Type      string      `json:"type"` // "message", "report", "transcript", "error"
	Data      interface{} `json:"data,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

func NewWebSocketHandler(coach *CoachService, transcribe *TranscribeService, repo sessionStore) *WebSocketHandler {
	h := &WebSocketHandler{
		coach:      coach,
		transcribe: transcribe,
		repo:       repo,
		sessions:   make(map[string]*liveSession),
	}
	go h.reapIdleSessions()
	return h
}

// HandleMessage processes one inbound frame for a client. Called off the
// read loop, so blocking on the model is fine.
func (h *WebSocketHandler) HandleMessage(client *ws.Client, messageBytes []byte) {
	var msg ws.Message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		slog.Error("Failed to parse websocket message", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch msg.Type {
	case "text":
		h.handleTurn(ctx, client, msg.Content, models.SessionTypeText, false)

	case "audio":
		audioData, err := base64.StdEncoding.DecodeString(msg.AudioDataBase64)
		if err != nil {
			client.SendJSON(wsReply{Type: "error", Data: "audio_data_base64 is not valid base64", SessionID: client.SessionID})
			return
		}
		transcript, err := h.transcribe.Transcribe(ctx, audioData)
		if err != nil {
			slog.Error("Live transcription failed", "session_id", client.SessionID, "error", err)
			client.SendJSON(wsReply{Type: "error", Data: "transcription failed", SessionID: client.SessionID})
			return
		}
		client.SendJSON(wsReply{Type: "transcript", Data: transcript, SessionID: client.SessionID})
		h.handleTurn(ctx, client, transcript, models.SessionTypeVoice, false)

	case "end_session":
		h.handleTurn(ctx, client, msg.Content, "", true)

	default:
		slog.Warn("Unknown websocket message type", "type", msg.Type)
	}
}

func (h *WebSocketHandler) handleTurn(ctx context.Context, client *ws.Client, content, mode string, endSession bool) {
	session := h.getOrCreateSession(client, mode)

	user, err := h.repo.GetUserByID(ctx, client.UserID)
	if err != nil || user == nil {
		slog.Error("Could not load user for live session", "user_id", client.UserID, "error", err)
		client.SendJSON(wsReply{Type: "error", Data: "session unavailable", SessionID: client.SessionID})
		return
	}

	h.ensureSessionRecord(ctx, client.SessionID, session, user)

	h.mu.Lock()
	if content != "" {
		session.history = append(session.history, ChatMessage{Role: "user", Content: content})
	}
	history := append([]ChatMessage(nil), session.history...)
	h.mu.Unlock()

	outcome, err := h.coach.ProcessTurn(ctx, user, history, endSession)
	if err != nil {
		slog.Error("Live coach turn failed", "session_id", client.SessionID, "error", err)
		client.SendJSON(wsReply{Type: "error", Data: "coach unavailable", SessionID: client.SessionID})
		return
	}

	if outcome.IsReport() {
		duration := int(time.Since(session.startedAt).Seconds())
		report := outcome.Report.ToWellnessReport(user.ID, user.CompanyID, session.mode, duration)
		if err := h.repo.CreateWellnessReport(ctx, report); err != nil {
			slog.Error("Failed to persist report from live session", "session_id", client.SessionID, "error", err)
			client.SendJSON(wsReply{Type: "error", Data: "failed to save report", SessionID: client.SessionID})
			return
		}

		h.mu.Lock()
		record := session.record
		delete(h.sessions, client.SessionID)
		h.mu.Unlock()

		if record != nil {
			now := time.Now()
			record.Status = "completed"
			record.EndedAt = &now
			record.Duration = duration
			if err := h.repo.UpdateCoachSession(ctx, record); err != nil {
				slog.Warn("Could not record coach session completion", "session_id", client.SessionID, "error", err)
			}
		}

		client.SendJSON(wsReply{Type: "report", Data: report, SessionID: client.SessionID})
		slog.Info("Live session completed", "session_id", client.SessionID, "report_id", report.ID)
		return
	}

	h.mu.Lock()
	session.history = append(session.history, ChatMessage{Role: "assistant", Content: outcome.Message})
	session.lastActivity = time.Now()
	h.mu.Unlock()

	client.SendJSON(wsReply{Type: "message", Data: map[string]string{"content": outcome.Message}, SessionID: client.SessionID})
}

// ensureSessionRecord creates the CoachSession row on a session's first
// turn. The lock is held across the insert: frames are handled in their own
// goroutines, so two arriving back-to-back on a fresh session would
// otherwise both see a nil record and insert duplicate rows.
func (h *WebSocketHandler) ensureSessionRecord(ctx context.Context, sessionID string, session *liveSession, user *models.User) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if session.record != nil {
		return
	}

	record := &models.CoachSession{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Status:    "active",
		Mode:      session.mode,
		StartedAt: session.startedAt,
	}
	if err := h.repo.CreateCoachSession(ctx, record); err != nil {
		slog.Warn("Could not record coach session start", "session_id", sessionID, "error", err)
		return
	}
	session.record = record
}

func (h *WebSocketHandler) getOrCreateSession(client *ws.Client, mode string) *liveSession {
	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[client.SessionID]; ok {
		if mode == models.SessionTypeVoice {
			// One voice frame makes the whole session a voice session.
			session.mode = models.SessionTypeVoice
		}
		return session
	}

	if mode == "" {
		mode = models.SessionTypeText
	}
	session := &liveSession{
		userID:       client.UserID,
		mode:         mode,
		startedAt:    time.Now(),
		lastActivity: time.Now(),
	}
	h.sessions[client.SessionID] = session
	return session
}

func (h *WebSocketHandler) reapIdleSessions() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		now := time.Now()
		var abandoned []*models.CoachSession
		for id, session := range h.sessions {
			if now.Sub(session.lastActivity) > sessionIdleTimeout {
				if session.record != nil {
					abandoned = append(abandoned, session.record)
				}
				delete(h.sessions, id)
				slog.Info("Reaped idle live session", "session_id", id)
			}
		}
		h.mu.Unlock()

		for _, record := range abandoned {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			record.Status = "abandoned"
			endedAt := now
			record.EndedAt = &endedAt
			record.Duration = int(now.Sub(record.StartedAt).Seconds())
			if err := h.repo.UpdateCoachSession(ctx, record); err != nil {
				slog.Warn("Could not mark coach session abandoned", "coach_session_id", record.ID, "error", err)
			}
			cancel()
		}
	}
}
