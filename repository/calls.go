package repository

import (
	"context"
	"log/slog"

	"github.com/diltak/mindtak-sub001/models"
	"gorm.io/gorm"
)

// Call ledger operations. Every call is stored twice: a durable CallRecord
// and a live CallSession projection. The service layer writes both on every
// transition; this file only provides the per-row operations.

func (r *GORMRepository) CreateCallRecord(ctx context.Context, record *models.CallRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		slog.Error("Failed to create call record", "error", err, "call_id", record.CallID)
		return err
	}
	return nil
}

func (r *GORMRepository) CreateCallSession(ctx context.Context, session *models.CallSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create call session", "error", err, "call_id", session.CallID)
		return err
	}
	return nil
}

func (r *GORMRepository) GetCallRecord(ctx context.Context, callID string) (*models.CallRecord, error) {
	var record models.CallRecord
	if err := r.db.WithContext(ctx).Where("call_id = ?", callID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get call record", "error", err, "call_id", callID)
		return nil, err
	}
	return &record, nil
}

func (r *GORMRepository) GetCallSession(ctx context.Context, callID string) (*models.CallSession, error) {
	var session models.CallSession
	if err := r.db.WithContext(ctx).Where("call_id = ?", callID).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get call session", "error", err, "call_id", callID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) UpdateCallRecord(ctx context.Context, record *models.CallRecord) error {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		slog.Error("Failed to update call record", "error", err, "call_id", record.CallID)
		return err
	}
	return nil
}

func (r *GORMRepository) UpdateCallSession(ctx context.Context, session *models.CallSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to update call session", "error", err, "call_id", session.CallID)
		return err
	}
	return nil
}
