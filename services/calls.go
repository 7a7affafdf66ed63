package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/diltak/mindtak-sub001/models"
	"github.com/google/uuid"
)

// CallStore is the persistence surface the call ledger needs. Satisfied by
// repository.GORMRepository.
type CallStore interface {
	CreateCallRecord(ctx context.Context, record *models.CallRecord) error
	CreateCallSession(ctx context.Context, session *models.CallSession) error
	GetCallRecord(ctx context.Context, callID string) (*models.CallRecord, error)
	GetCallSession(ctx context.Context, callID string) (*models.CallSession, error)
	UpdateCallRecord(ctx context.Context, record *models.CallRecord) error
	UpdateCallSession(ctx context.Context, session *models.CallSession) error
}

// CallService maintains the signaling ledger. Every call exists twice: a
// durable CallRecord and a live CallSession projection kept in lockstep so
// presence readers never join against history. Both rows are written before
// any transition reports success; a failed second write surfaces an error
// without rolling back the first.
type CallService struct {
	store CallStore
}

func NewCallService(store CallStore) *CallService {
	return &CallService{store: store}
}

// InitiateCall opens a new call between two users and returns its id.
func (s *CallService) InitiateCall(ctx context.Context, callerID, receiverID, callType string) (string, error) {
	if callerID == "" || receiverID == "" {
		return "", fmt.Errorf("%w: caller and receiver are required", ErrValidation)
	}
	if callerID == receiverID {
		return "", fmt.Errorf("%w: cannot call yourself", ErrValidation)
	}
	if callType != models.CallTypeAudio && callType != models.CallTypeVideo {
		return "", fmt.Errorf("%w: unsupported call type %q", ErrValidation, callType)
	}

	callID := uuid.New().String()
	now := time.Now()

	record := &models.CallRecord{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		CallType:   callType,
		Status:     models.CallStatusInitiating,
		StartTime:  now,
	}
	session := &models.CallSession{
		CallID:     callID,
		CallerID:   callerID,
		ReceiverID: receiverID,
		CallType:   callType,
		Status:     models.CallStatusInitiating,
		StartTime:  now,
	}

	if err := s.store.CreateCallRecord(ctx, record); err != nil {
		return "", fmt.Errorf("%w: create call record: %v", ErrUpstream, err)
	}
	if err := s.store.CreateCallSession(ctx, session); err != nil {
		// The record row exists without its projection. Surfaced, not rolled
		// back; the next transition write repairs the pair.
		slog.Error("Call session write failed after record write", "call_id", callID, "error", err)
		return "", fmt.Errorf("%w: create call session: %v", ErrUpstream, err)
	}

	slog.Info("Call initiated", "call_id", callID, "caller_id", callerID, "receiver_id", receiverID, "type", callType)
	return callID, nil
}

// AcceptCall moves an initiating call to active.
func (s *CallService) AcceptCall(ctx context.Context, callID string) error {
	return s.transition(ctx, callID, models.CallStatusActive, "", "")
}

// RejectCall moves an initiating call to rejected and closes it.
func (s *CallService) RejectCall(ctx context.Context, callID, rejectedBy string) error {
	return s.transition(ctx, callID, models.CallStatusRejected, rejectedBy, "rejected")
}

// EndCall terminates an active call, recording who hung up and why.
func (s *CallService) EndCall(ctx context.Context, callID, endedBy, endReason string) error {
	if endReason == "" {
		endReason = "completed"
	}
	return s.transition(ctx, callID, models.CallStatusEnded, endedBy, endReason)
}

// UpdateCallStatus applies an arbitrary valid status, for signaling paths
// that report state directly.
func (s *CallService) UpdateCallStatus(ctx context.Context, callID, status string) error {
	switch status {
	case models.CallStatusInitiating, models.CallStatusActive, models.CallStatusRejected, models.CallStatusEnded:
	default:
		return fmt.Errorf("%w: unsupported call status %q", ErrValidation, status)
	}
	return s.transition(ctx, callID, status, "", "")
}

// GetCallSession returns the live projection, or nil when unknown.
func (s *CallService) GetCallSession(ctx context.Context, callID string) (*models.CallSession, error) {
	return s.store.GetCallSession(ctx, callID)
}

// transition applies one status change to both rows. Terminal statuses also
// stamp the end fields.
func (s *CallService) transition(ctx context.Context, callID, status, by, reason string) error {
	if callID == "" {
		return fmt.Errorf("%w: call id is required", ErrValidation)
	}

	record, err := s.store.GetCallRecord(ctx, callID)
	if err != nil {
		return fmt.Errorf("%w: load call record: %v", ErrUpstream, err)
	}
	if record == nil {
		return fmt.Errorf("%w: unknown call %s", ErrValidation, callID)
	}
	session, err := s.store.GetCallSession(ctx, callID)
	if err != nil {
		return fmt.Errorf("%w: load call session: %v", ErrUpstream, err)
	}
	if session == nil {
		// Repair a half-written initiate: recreate the projection from the
		// durable row before transitioning.
		slog.Warn("Call session projection missing, recreating from record", "call_id", callID)
		session = &models.CallSession{
			CallID:     record.CallID,
			CallerID:   record.CallerID,
			ReceiverID: record.ReceiverID,
			CallType:   record.CallType,
			Status:     record.Status,
			StartTime:  record.StartTime,
		}
		if err := s.store.CreateCallSession(ctx, session); err != nil {
			return fmt.Errorf("%w: recreate call session: %v", ErrUpstream, err)
		}
	}

	var endTime *time.Time
	if status == models.CallStatusEnded || status == models.CallStatusRejected {
		now := time.Now()
		endTime = &now
	}

	applyTransition(record, session, status, endTime, by, reason)

	if err := s.store.UpdateCallRecord(ctx, record); err != nil {
		return fmt.Errorf("%w: update call record: %v", ErrUpstream, err)
	}
	if err := s.store.UpdateCallSession(ctx, session); err != nil {
		slog.Error("Call session update failed after record update, copies disagree", "call_id", callID, "status", status, "error", err)
		return fmt.Errorf("%w: update call session: %v", ErrUpstream, err)
	}

	slog.Info("Call transitioned", "call_id", callID, "status", status)
	return nil
}

// applyTransition mutates both copies identically so they cannot drift
// within one successful transition.
func applyTransition(record *models.CallRecord, session *models.CallSession, status string, endTime *time.Time, by, reason string) {
	record.Status = status
	session.Status = status
	if endTime != nil {
		record.EndTime = endTime
		session.EndTime = endTime
		record.EndedBy = by
		session.EndedBy = by
		record.EndReason = reason
		session.EndReason = reason
	}
}
