package services

import (
	"context"
	"log/slog"

	"github.com/diltak/mindtak-sub001/models"
	"github.com/diltak/mindtak-sub001/repository"
)

// Capability is one grantable permission. The effective set for a user is
// the union of role defaults and per-user override flags; flags only ever
// add capabilities, they never revoke role-granted ones.
type Capability string

const (
	// Self management
	CapabilityViewOwnReports Capability = "reports.view_own"

	// Team visibility
	CapabilityViewTeamReports Capability = "reports.view_team"
	CapabilityViewAllReports  Capability = "reports.view_all"
	CapabilitySkipLevelAccess Capability = "reports.skip_level"

	// Employee management
	CapabilityManageEmployees Capability = "employee.manage"
	CapabilityApproveLeaves   Capability = "leave.approve"

	// Company-wide analytics and export
	CapabilityViewAnalytics Capability = "analytics.view"
	CapabilityExportReports Capability = "reports.export"
)

// roleCapabilities maps roles to their default capability sets. Employers,
// HR, and admins see the whole company; managers see their team; employees
// see only themselves.
var roleCapabilities = map[string][]Capability{
	models.RoleEmployer: {
		CapabilityViewOwnReports,
		CapabilityViewTeamReports,
		CapabilityViewAllReports,
		CapabilitySkipLevelAccess,
		CapabilityManageEmployees,
		CapabilityApproveLeaves,
		CapabilityViewAnalytics,
		CapabilityExportReports,
	},
	models.RoleAdmin: {
		CapabilityViewOwnReports,
		CapabilityViewTeamReports,
		CapabilityViewAllReports,
		CapabilitySkipLevelAccess,
		CapabilityManageEmployees,
		CapabilityApproveLeaves,
		CapabilityViewAnalytics,
		CapabilityExportReports,
	},
	models.RoleHR: {
		CapabilityViewOwnReports,
		CapabilityViewTeamReports,
		CapabilityViewAllReports,
		CapabilityViewAnalytics,
		CapabilityExportReports,
	},
	models.RoleManager: {
		CapabilityViewOwnReports,
		CapabilityViewTeamReports,
		CapabilityApproveLeaves,
		CapabilityViewAnalytics,
	},
	models.RoleEmployee: {
		CapabilityViewOwnReports,
	},
}

// PermissionSet is a user's effective capability set.
type PermissionSet map[Capability]bool

func (p PermissionSet) Has(c Capability) bool {
	return p[c]
}

// Capabilities returns the set as a sorted-order-independent slice for
// JSON responses.
func (p PermissionSet) Capabilities() []Capability {
	caps := make([]Capability, 0, len(p))
	for c := range p {
		caps = append(caps, c)
	}
	return caps
}

// EffectivePermissions derives a user's capability set from role defaults
// merged with the explicit override flags. Flags are additive escalations
// for exceptional grants (e.g. a non-manager given temporary team access).
func EffectivePermissions(user *models.User) PermissionSet {
	set := make(PermissionSet)
	if user == nil {
		return set
	}

	for _, c := range roleCapabilities[user.Role] {
		set[c] = true
	}

	if user.CanViewTeamReports {
		set[CapabilityViewTeamReports] = true
	}
	if user.CanManageEmployees {
		set[CapabilityManageEmployees] = true
	}
	if user.CanApproveLeaves {
		set[CapabilityApproveLeaves] = true
	}
	if user.SkipLevelAccess {
		set[CapabilitySkipLevelAccess] = true
	}
	if user.IsDepartmentHead {
		set[CapabilityViewTeamReports] = true
		set[CapabilityViewAnalytics] = true
	}

	return set
}

// PermissionService answers capability and data-visibility questions. It is
// the single authorization choke point: every report-access path must go
// through CanAccessEmployeeData before returning anyone's wellness data.
type PermissionService struct {
	repo *repository.GORMRepository
}

func NewPermissionService(repo *repository.GORMRepository) *PermissionService {
	return &PermissionService{repo: repo}
}

// LoadUser fetches one user record for permission rendering. Unknown ids
// yield (nil, nil) like the store itself.
func (s *PermissionService) LoadUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// CanAccessEmployeeData reports whether viewer may read target's wellness
// data. It is total: any lookup failure yields false, never an error.
func (s *PermissionService) CanAccessEmployeeData(ctx context.Context, viewerID, targetID string) bool {
	if viewerID == "" || targetID == "" {
		return false
	}
	if viewerID == targetID {
		// Self-access is always allowed.
		return true
	}

	viewer, err := s.repo.GetUserByID(ctx, viewerID)
	if err != nil || viewer == nil {
		slog.Warn("Access check failed to load viewer, denying", "viewer_id", viewerID, "error", err)
		return false
	}
	target, err := s.repo.GetUserByID(ctx, targetID)
	if err != nil || target == nil {
		slog.Warn("Access check failed to load target, denying", "target_id", targetID, "error", err)
		return false
	}

	allowed := canAccess(viewer, target)
	if !allowed {
		slog.Info("Employee data access denied", "viewer_id", viewerID, "target_id", targetID)
	}
	return allowed
}

// canAccess holds the policy itself, over already-loaded records. Split out
// so it can be exercised without a store.
func canAccess(viewer, target *models.User) bool {
	if viewer == nil || target == nil {
		return false
	}
	if viewer.ID == target.ID {
		return true
	}
	if viewer.CompanyID == "" || viewer.CompanyID != target.CompanyID {
		// Tenants never see across the company boundary.
		return false
	}

	perms := EffectivePermissions(viewer)
	if perms.Has(CapabilityViewAllReports) {
		return true
	}

	// Viewer is the target's direct manager.
	if target.ManagerID != nil && *target.ManagerID == viewer.ID {
		return true
	}

	// Skip-level grant: target sits anywhere below the viewer in the forest,
	// i.e. the viewer appears in the target's ancestor list.
	if perms.Has(CapabilitySkipLevelAccess) {
		for _, ancestorID := range target.ReportingChain {
			if ancestorID == viewer.ID {
				return true
			}
		}
	}

	return false
}
