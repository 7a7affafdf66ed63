package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user record can carry. Role defaults only ever expand through
// the per-user override flags below; they are never restricted by them.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleEmployer = "employer"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

// User is the directory record for one account inside a company (tenant).
// ManagerID edges form a forest per company; DirectReports and ReportingChain
// are denormalized caches rebuildable from those edges.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"size:255" json:"-"` // Hashed password (excluded from JSON)
	FullName  string `gorm:"size:255" json:"full_name,omitempty"`
	Role      string `gorm:"not null;default:'employee';check:role IN ('employee', 'manager', 'employer', 'hr', 'admin')" json:"role"`
	CompanyID string `gorm:"type:uuid;not null;index" json:"company_id"`

	// Hierarchy placement. HierarchyLevel is 0 at the top of the company and
	// strictly greater than the manager's level for every subordinate.
	ManagerID      *string  `gorm:"type:uuid;index" json:"manager_id,omitempty"`
	HierarchyLevel int      `gorm:"not null;default:0" json:"hierarchy_level"`
	Department     string   `gorm:"size:255" json:"department,omitempty"`
	DirectReports  []string `gorm:"serializer:json" json:"direct_reports,omitempty"`
	ReportingChain []string `gorm:"serializer:json" json:"reporting_chain,omitempty"`

	// Override flags. Each one may grant a capability beyond the role
	// defaults; none of them can revoke a role-granted capability.
	CanViewTeamReports bool `gorm:"default:false" json:"can_view_team_reports"`
	CanManageEmployees bool `gorm:"default:false" json:"can_manage_employees"`
	CanApproveLeaves   bool `gorm:"default:false" json:"can_approve_leaves"`
	IsDepartmentHead   bool `gorm:"default:false" json:"is_department_head"`
	SkipLevelAccess    bool `gorm:"default:false" json:"skip_level_access"`

	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	WellnessReports []WellnessReport `gorm:"foreignKey:EmployeeID" json:"wellness_reports,omitempty"`
	CoachSessions   []CoachSession   `gorm:"foreignKey:UserID" json:"coach_sessions,omitempty"`
	RefreshTokens   []RefreshToken   `gorm:"foreignKey:UserID" json:"refresh_tokens,omitempty"`
}

type RefreshToken struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string         `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time      `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
