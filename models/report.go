package models

import (
	"time"

	"gorm.io/gorm"
)

// Risk buckets for a wellness report.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Session types for a completed coaching session.
const (
	SessionTypeText  = "text"
	SessionTypeVoice = "voice"
)

// WellnessReport is the structured artifact of one completed coaching
// session. Rows are append-only; there are no update paths.
type WellnessReport struct {
	ID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EmployeeID string `gorm:"type:uuid;not null;index" json:"employee_id"`
	CompanyID  string `gorm:"type:uuid;not null;index" json:"company_id"`

	// Eight 1-10 subscores extracted from the session.
	Mood             int `gorm:"not null" json:"mood"`
	Stress           int `gorm:"not null" json:"stress"`
	Anxiety          int `gorm:"not null" json:"anxiety"`
	WorkSatisfaction int `gorm:"not null" json:"work_satisfaction"`
	WorkLifeBalance  int `gorm:"not null" json:"work_life_balance"`
	Energy           int `gorm:"not null" json:"energy"`
	Confidence       int `gorm:"not null" json:"confidence"`
	SleepQuality     int `gorm:"not null" json:"sleep_quality"`

	OverallWellness float64 `gorm:"type:decimal(4,2);not null" json:"overall_wellness"`
	RiskLevel       string  `gorm:"not null;check:risk_level IN ('low', 'medium', 'high')" json:"risk_level"`
	SessionType     string  `gorm:"not null;default:'text';check:session_type IN ('text', 'voice')" json:"session_type"`
	SessionDuration int     `json:"session_duration"` // Duration in seconds
	AIAnalysis      string  `gorm:"type:text" json:"ai_analysis"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Employee User `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
}

// Subscores returns the eight subscores keyed by their canonical names.
func (r *WellnessReport) Subscores() map[string]int {
	return map[string]int{
		"mood":              r.Mood,
		"stress":            r.Stress,
		"anxiety":           r.Anxiety,
		"work_satisfaction": r.WorkSatisfaction,
		"work_life_balance": r.WorkLifeBalance,
		"energy":            r.Energy,
		"confidence":        r.Confidence,
		"sleep_quality":     r.SleepQuality,
	}
}

// CoachSession records each coaching attempt for a user. One completed
// session produces at most one WellnessReport.
type CoachSession struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	CompanyID string         `gorm:"type:uuid;not null;index" json:"company_id"`
	Status    string         `gorm:"not null;default:'active';check:status IN ('active', 'completed', 'abandoned')" json:"status"`
	Mode      string         `gorm:"not null;default:'text';check:mode IN ('text', 'voice')" json:"mode"`
	StartedAt time.Time      `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Duration  int            `json:"duration"` // Duration in seconds
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user"`
}
