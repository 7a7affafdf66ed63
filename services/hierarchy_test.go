package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diltak/mindtak-sub001/models"
)

func strPtr(s string) *string { return &s }

// A four-level company: CEO -> VP -> Manager -> three engineers.
func demoCompany() []models.User {
	return []models.User{
		{ID: "ceo", FullName: "CEO", Role: models.RoleEmployer, CompanyID: "c1", HierarchyLevel: 0},
		{ID: "vp", FullName: "VP", Role: models.RoleManager, CompanyID: "c1", ManagerID: strPtr("ceo"), HierarchyLevel: 1, Department: "Engineering"},
		{ID: "mgr", FullName: "Manager", Role: models.RoleManager, CompanyID: "c1", ManagerID: strPtr("vp"), HierarchyLevel: 2, Department: "Engineering"},
		{ID: "e1", FullName: "Eng One", Role: models.RoleEmployee, CompanyID: "c1", ManagerID: strPtr("mgr"), HierarchyLevel: 3, Department: "Engineering"},
		{ID: "e2", FullName: "Eng Two", Role: models.RoleEmployee, CompanyID: "c1", ManagerID: strPtr("mgr"), HierarchyLevel: 3, Department: "Engineering"},
		{ID: "e3", FullName: "Eng Three", Role: models.RoleEmployee, CompanyID: "c1", ManagerID: strPtr("mgr"), HierarchyLevel: 3, Department: "Platform"},
	}
}

func TestSubtreeIDsTransitiveClosure(t *testing.T) {
	f := buildForest(demoCompany())

	mgrSubtree, err := f.subtreeIDs("mgr")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"e1", "e2", "e3"}, mgrSubtree)

	vpSubtree, err := f.subtreeIDs("vp")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mgr", "e1", "e2", "e3"}, vpSubtree)

	ceoSubtree, err := f.subtreeIDs("ceo")
	require.NoError(t, err)
	assert.Len(t, ceoSubtree, 5)
}

func TestSubtreeIDsUnknownRoot(t *testing.T) {
	f := buildForest(demoCompany())

	ids, err := f.subtreeIDs("nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSubtreeIDsOrderIndependent(t *testing.T) {
	users := demoCompany()
	reversed := make([]models.User, len(users))
	for i, u := range users {
		reversed[len(users)-1-i] = u
	}

	a, err := buildForest(users).subtreeIDs("vp")
	require.NoError(t, err)
	b, err := buildForest(reversed).subtreeIDs("vp")
	require.NoError(t, err)

	assert.ElementsMatch(t, a, b)
}

func TestSubtreeIDsCycleTruncates(t *testing.T) {
	users := []models.User{
		{ID: "a", CompanyID: "c1", ManagerID: strPtr("b")},
		{ID: "b", CompanyID: "c1", ManagerID: strPtr("a")},
		{ID: "c", CompanyID: "c1", ManagerID: strPtr("a")},
	}
	f := buildForest(users)

	ids, err := f.subtreeIDs("a")
	require.ErrorIs(t, err, ErrDataIntegrity)
	// The walk terminates and still returns the reachable non-cyclic part.
	assert.Contains(t, ids, "b")
	assert.Contains(t, ids, "c")
	assert.Len(t, ids, 2)
}

func TestBuildTreeDepthLimit(t *testing.T) {
	f := buildForest(demoCompany())

	nodes, err := f.buildTree("ceo", 1)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	root := nodes[0]
	assert.Equal(t, "ceo", root.User.ID)
	assert.Equal(t, 0, root.Level)
	assert.True(t, root.IsExpanded)
	require.Len(t, root.Children, 1)

	vp := root.Children[0]
	assert.Equal(t, "vp", vp.User.ID)
	assert.Equal(t, 1, vp.Level)
	assert.Empty(t, vp.Children, "depth limit should stop below the vp")
}

func TestBuildTreeFullDepth(t *testing.T) {
	f := buildForest(demoCompany())

	nodes, err := f.buildTree("vp", 10)
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	mgr := nodes[0].Children[0]
	assert.Equal(t, "mgr", mgr.User.ID)
	assert.Len(t, mgr.Children, 3)
}

func TestBuildTreeUnknownRoot(t *testing.T) {
	f := buildForest(demoCompany())

	nodes, err := f.buildTree("nobody", 5)
	require.NoError(t, err)
	assert.Nil(t, nodes)
}

func TestComputeTeamStats(t *testing.T) {
	users := demoCompany()

	mgrStats := computeTeamStats(users, "mgr")
	assert.Equal(t, 3, mgrStats.DirectReports)
	assert.Equal(t, 3, mgrStats.TotalSubordinates)
	assert.Equal(t, 4, mgrStats.TeamSize)
	assert.Equal(t, []string{"Engineering", "Platform"}, mgrStats.TeamDepartments)

	vpStats := computeTeamStats(users, "vp")
	assert.Equal(t, 1, vpStats.DirectReports)
	assert.Equal(t, 4, vpStats.TotalSubordinates)
	assert.Equal(t, 5, vpStats.TeamSize)
}

func TestFoldTeamReportsExcludesUnreportedSubordinates(t *testing.T) {
	// Three subordinates, only two with a report on record. The third must
	// not drag the average toward zero.
	stats := computeTeamStats(demoCompany(), "mgr")
	latest := map[string]models.WellnessReport{
		"e1": {EmployeeID: "e1", OverallWellness: 8.0, RiskLevel: models.RiskLow},
		"e2": {EmployeeID: "e2", OverallWellness: 2.5, RiskLevel: models.RiskHigh},
	}

	foldTeamReports(stats, latest)

	assert.InDelta(t, 5.25, stats.AvgTeamWellness, 1e-9, "average divides by scored subordinates, not team size")
	assert.Equal(t, 1, stats.HighRiskTeamMembers)
	assert.Equal(t, 3, stats.TotalSubordinates, "structural counts still cover the whole team")
}

func TestFoldTeamReportsNoReports(t *testing.T) {
	stats := computeTeamStats(demoCompany(), "mgr")

	foldTeamReports(stats, map[string]models.WellnessReport{})

	assert.Zero(t, stats.AvgTeamWellness)
	assert.Zero(t, stats.HighRiskTeamMembers)
}

func TestComputeHierarchyAnalytics(t *testing.T) {
	analytics := computeHierarchyAnalytics(demoCompany())

	assert.Equal(t, 6, analytics.TotalEmployees)
	assert.Equal(t, 1, analytics.RootCount)
	assert.Equal(t, 3, analytics.MaxDepth)
	assert.Equal(t, 3, analytics.TotalManagers) // ceo, vp, mgr all have reports
	assert.Equal(t, 3, analytics.RoleCounts[models.RoleEmployee])
	assert.Equal(t, 4, analytics.DepartmentSizes["Engineering"])
	assert.InDelta(t, 5.0/3.0, analytics.AvgSpanControl, 1e-9)
}

func TestComputeHierarchyAnalyticsEmpty(t *testing.T) {
	analytics := computeHierarchyAnalytics(nil)

	assert.Equal(t, 0, analytics.TotalEmployees)
	assert.Equal(t, 0, analytics.TotalManagers)
	assert.Zero(t, analytics.AvgSpanControl)
}

func TestAncestorChain(t *testing.T) {
	users := demoCompany()
	f := buildForest(users)

	e1 := users[3]
	chain := ancestorChain(f, &e1)
	assert.Equal(t, []string{"mgr", "vp", "ceo"}, chain)

	ceo := users[0]
	assert.Empty(t, ancestorChain(f, &ceo))
}

func TestAncestorChainCycleTruncates(t *testing.T) {
	users := []models.User{
		{ID: "a", ManagerID: strPtr("b")},
		{ID: "b", ManagerID: strPtr("a")},
	}
	f := buildForest(users)

	a := users[0]
	chain := ancestorChain(f, &a)
	assert.Equal(t, []string{"b"}, chain)
}
