package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diltak/mindtak-sub001/models"
)

// CallEndpoints is the signaling surface: one action dispatcher that drives
// the call ledger plus a session lookup for live readers.
type CallEndpoints struct {
	calls *CallService
}

type CallActionRequest struct {
	Action   string   `json:"action"`
	CallData CallData `json:"callData"`
}

type CallData struct {
	CallID     string `json:"callId"`
	ReceiverID string `json:"receiverId"`
	CallType   string `json:"callType"`
	Status     string `json:"status"`
	EndReason  string `json:"endReason"`
}

func NewCallEndpoints(calls *CallService) *CallEndpoints {
	return &CallEndpoints{calls: calls}
}

func (e *CallEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/calls", func(r chi.Router) {
		r.Post("/", e.ActionHandler)
		r.Get("/{callID}", e.GetSessionHandler)
	})
}

// ActionHandler dispatches one signaling action: initiate, accept, reject,
// end, or update_status. Validation is per action; unknown actions are 400.
func (e *CallEndpoints) ActionHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req CallActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var callID string
	var err error

	switch req.Action {
	case "initiate":
		if req.CallData.ReceiverID == "" {
			http.Error(w, "callData.receiverId is required", http.StatusBadRequest)
			return
		}
		callType := req.CallData.CallType
		if callType == "" {
			callType = models.CallTypeAudio
		}
		callID, err = e.calls.InitiateCall(r.Context(), actor.ID, req.CallData.ReceiverID, callType)

	case "accept":
		if req.CallData.CallID == "" {
			http.Error(w, "callData.callId is required", http.StatusBadRequest)
			return
		}
		callID = req.CallData.CallID
		err = e.calls.AcceptCall(r.Context(), callID)

	case "reject":
		if req.CallData.CallID == "" {
			http.Error(w, "callData.callId is required", http.StatusBadRequest)
			return
		}
		callID = req.CallData.CallID
		err = e.calls.RejectCall(r.Context(), callID, actor.ID)

	case "end":
		if req.CallData.CallID == "" {
			http.Error(w, "callData.callId is required", http.StatusBadRequest)
			return
		}
		callID = req.CallData.CallID
		err = e.calls.EndCall(r.Context(), callID, actor.ID, req.CallData.EndReason)

	case "update_status":
		if req.CallData.CallID == "" || req.CallData.Status == "" {
			http.Error(w, "callData.callId and callData.status are required", http.StatusBadRequest)
			return
		}
		callID = req.CallData.CallID
		err = e.calls.UpdateCallStatus(r.Context(), callID, req.CallData.Status)

	default:
		http.Error(w, "Unsupported action", http.StatusBadRequest)
		return
	}

	if err != nil {
		if errors.Is(err, ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Call action failed", "action", req.Action, "call_id", callID, "error", err)
		http.Error(w, "Call action failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"callId":  callID,
		"message": req.Action + " completed",
	})
}

// GetSessionHandler returns the live projection of one call.
func (e *CallEndpoints) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	callID := chi.URLParam(r, "callID")
	session, err := e.calls.GetCallSession(r.Context(), callID)
	if err != nil {
		http.Error(w, "Failed to load call", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Call not found", http.StatusNotFound)
		return
	}
	if session.CallerID != actor.ID && session.ReceiverID != actor.ID {
		http.Error(w, "Call not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"call":    session,
	})
}
