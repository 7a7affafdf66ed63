package models

import (
	"time"

	"gorm.io/gorm"
)

// Call lifecycle states. initiating -> active -> ended, or
// initiating -> rejected.
const (
	CallStatusInitiating = "initiating"
	CallStatusActive     = "active"
	CallStatusRejected   = "rejected"
	CallStatusEnded      = "ended"
)

// Call media types.
const (
	CallTypeAudio = "audio"
	CallTypeVideo = "video"
)

// CallRecord is the durable row of the call ledger.
type CallRecord struct {
	ID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CallID     string         `gorm:"type:uuid;not null;uniqueIndex" json:"call_id"`
	CallerID   string         `gorm:"type:uuid;not null;index" json:"caller_id"`
	ReceiverID string         `gorm:"type:uuid;not null;index" json:"receiver_id"`
	CallType   string         `gorm:"not null;default:'audio';check:call_type IN ('audio', 'video')" json:"call_type"`
	Status     string         `gorm:"not null;check:status IN ('initiating', 'active', 'rejected', 'ended')" json:"status"`
	StartTime  time.Time      `gorm:"not null" json:"start_time"`
	EndTime    *time.Time     `json:"end_time,omitempty"`
	EndedBy    string         `gorm:"size:36" json:"ended_by,omitempty"`
	EndReason  string         `gorm:"size:255" json:"end_reason,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// CallSession is the live-session projection of the same call. It mirrors
// the durable record field-for-field so live readers never join against the
// record table; every transition must keep both rows in lockstep.
type CallSession struct {
	ID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CallID     string         `gorm:"type:uuid;not null;uniqueIndex" json:"call_id"`
	CallerID   string         `gorm:"type:uuid;not null;index" json:"caller_id"`
	ReceiverID string         `gorm:"type:uuid;not null;index" json:"receiver_id"`
	CallType   string         `gorm:"not null;default:'audio';check:call_type IN ('audio', 'video')" json:"call_type"`
	Status     string         `gorm:"not null;check:status IN ('initiating', 'active', 'rejected', 'ended')" json:"status"`
	StartTime  time.Time      `gorm:"not null" json:"start_time"`
	EndTime    *time.Time     `json:"end_time,omitempty"`
	EndedBy    string         `gorm:"size:36" json:"ended_by,omitempty"`
	EndReason  string         `gorm:"size:255" json:"end_reason,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
