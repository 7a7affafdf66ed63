package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diltak/mindtak-sub001/models"
)

func TestEffectivePermissionsRoleDefaults(t *testing.T) {
	employee := &models.User{Role: models.RoleEmployee}
	perms := EffectivePermissions(employee)
	assert.True(t, perms.Has(CapabilityViewOwnReports))
	assert.False(t, perms.Has(CapabilityViewTeamReports))
	assert.False(t, perms.Has(CapabilityViewAllReports))

	hr := &models.User{Role: models.RoleHR}
	perms = EffectivePermissions(hr)
	assert.True(t, perms.Has(CapabilityViewAllReports))
	assert.True(t, perms.Has(CapabilityExportReports))
	assert.False(t, perms.Has(CapabilityManageEmployees))

	employer := &models.User{Role: models.RoleEmployer}
	perms = EffectivePermissions(employer)
	assert.True(t, perms.Has(CapabilityManageEmployees))
	assert.True(t, perms.Has(CapabilitySkipLevelAccess))
}

func TestEffectivePermissionsFlagsOnlyEscalate(t *testing.T) {
	// An employee granted management keeps the grant on top of role defaults.
	employee := &models.User{Role: models.RoleEmployee, CanManageEmployees: true, SkipLevelAccess: true}
	perms := EffectivePermissions(employee)
	assert.True(t, perms.Has(CapabilityViewOwnReports))
	assert.True(t, perms.Has(CapabilityManageEmployees))
	assert.True(t, perms.Has(CapabilitySkipLevelAccess))

	// A manager with every flag false keeps all role defaults; flags never
	// revoke.
	manager := &models.User{Role: models.RoleManager}
	perms = EffectivePermissions(manager)
	assert.True(t, perms.Has(CapabilityViewTeamReports))
	assert.True(t, perms.Has(CapabilityApproveLeaves))
}

func TestEffectivePermissionsDepartmentHead(t *testing.T) {
	employee := &models.User{Role: models.RoleEmployee, IsDepartmentHead: true}
	perms := EffectivePermissions(employee)
	assert.True(t, perms.Has(CapabilityViewTeamReports))
	assert.True(t, perms.Has(CapabilityViewAnalytics))
}

func TestEffectivePermissionsNilUser(t *testing.T) {
	perms := EffectivePermissions(nil)
	assert.Empty(t, perms)
}

func TestCanAccessSelf(t *testing.T) {
	u := &models.User{ID: "u1", CompanyID: "c1", Role: models.RoleEmployee}
	assert.True(t, canAccess(u, u))
}

func TestCanAccessCrossCompanyDenied(t *testing.T) {
	viewer := &models.User{ID: "v", CompanyID: "c1", Role: models.RoleEmployer}
	target := &models.User{ID: "t", CompanyID: "c2", Role: models.RoleEmployee}
	assert.False(t, canAccess(viewer, target))
}

func TestCanAccessDirectManager(t *testing.T) {
	viewer := &models.User{ID: "mgr", CompanyID: "c1", Role: models.RoleManager}
	target := &models.User{ID: "e1", CompanyID: "c1", Role: models.RoleEmployee,
		ManagerID: strPtr("mgr"), ReportingChain: []string{"mgr", "ceo"}}
	assert.True(t, canAccess(viewer, target))
}

func TestCanAccessSkipLevel(t *testing.T) {
	// Two levels above, in the target's chain.
	target := &models.User{ID: "e1", CompanyID: "c1", Role: models.RoleEmployee,
		ManagerID: strPtr("mgr"), ReportingChain: []string{"mgr", "vp", "ceo"}}

	withGrant := &models.User{ID: "vp", CompanyID: "c1", Role: models.RoleManager, SkipLevelAccess: true}
	assert.True(t, canAccess(withGrant, target))

	// Same position without the grant is denied.
	withoutGrant := &models.User{ID: "vp", CompanyID: "c1", Role: models.RoleManager}
	assert.False(t, canAccess(withoutGrant, target))
}

func TestCanAccessSkipLevelOutsideChainDenied(t *testing.T) {
	// Skip-level grants reach only the holder's own subtree.
	viewer := &models.User{ID: "other-mgr", CompanyID: "c1", Role: models.RoleManager, SkipLevelAccess: true}
	target := &models.User{ID: "e1", CompanyID: "c1", Role: models.RoleEmployee,
		ManagerID: strPtr("mgr"), ReportingChain: []string{"mgr", "vp", "ceo"}}
	assert.False(t, canAccess(viewer, target))
}

func TestCanAccessCompanyWideRoles(t *testing.T) {
	target := &models.User{ID: "e1", CompanyID: "c1", Role: models.RoleEmployee,
		ManagerID: strPtr("mgr"), ReportingChain: []string{"mgr"}}

	for _, role := range []string{models.RoleEmployer, models.RoleHR, models.RoleAdmin} {
		viewer := &models.User{ID: "boss", CompanyID: "c1", Role: role}
		assert.True(t, canAccess(viewer, target), "role %s should see all company data", role)
	}
}

func TestCanAccessEmployeeDeniedForPeer(t *testing.T) {
	viewer := &models.User{ID: "e1", CompanyID: "c1", Role: models.RoleEmployee}
	target := &models.User{ID: "e2", CompanyID: "c1", Role: models.RoleEmployee,
		ManagerID: strPtr("mgr"), ReportingChain: []string{"mgr"}}
	assert.False(t, canAccess(viewer, target))
}

func TestCanAccessNilRecords(t *testing.T) {
	u := &models.User{ID: "u1", CompanyID: "c1"}
	assert.False(t, canAccess(nil, u))
	assert.False(t, canAccess(u, nil))
	assert.False(t, canAccess(nil, nil))
}
