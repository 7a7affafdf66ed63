package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/diltak/mindtak-sub001/models"
	"github.com/diltak/mindtak-sub001/repository"
)

// HierarchyNode is one node of a derived manager/report tree. It is never
// persisted; trees are recomputed per query.
type HierarchyNode struct {
	User       models.User     `json:"user"`
	Children   []HierarchyNode `json:"children"`
	Level      int             `json:"level"`
	IsExpanded bool            `json:"is_expanded"`
}

// TeamStats summarizes a manager's team.
type TeamStats struct {
	TeamSize            int      `json:"team_size"`
	DirectReports       int      `json:"direct_reports"`
	TotalSubordinates   int      `json:"total_subordinates"`
	AvgTeamWellness     float64  `json:"avg_team_wellness"`
	HighRiskTeamMembers int      `json:"high_risk_team_members"`
	TeamDepartments     []string `json:"team_departments"`
	RecentReportsCount  int      `json:"recent_reports_count"`
}

// HierarchyAnalytics is the company-wide rollup.
type HierarchyAnalytics struct {
	TotalEmployees  int            `json:"total_employees"`
	TotalManagers   int            `json:"total_managers"`
	RootCount       int            `json:"root_count"`
	MaxDepth        int            `json:"max_depth"`
	RoleCounts      map[string]int `json:"role_counts"`
	DepartmentSizes map[string]int `json:"department_sizes"`
	AvgSpanControl  float64        `json:"avg_span_of_control"`
}

// HierarchyService builds manager/report trees and team statistics over a
// tenant's directory snapshot.
type HierarchyService struct {
	repo *repository.GORMRepository
}

func NewHierarchyService(repo *repository.GORMRepository) *HierarchyService {
	return &HierarchyService{repo: repo}
}

// forest indexes a directory snapshot by manager edge. Children slices keep
// the snapshot's order, so a created_at-ordered load yields stable trees.
type forest struct {
	byID       map[string]models.User
	childrenOf map[string][]models.User
}

func buildForest(users []models.User) *forest {
	f := &forest{
		byID:       make(map[string]models.User, len(users)),
		childrenOf: make(map[string][]models.User),
	}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.ManagerID != nil {
			f.childrenOf[*u.ManagerID] = append(f.childrenOf[*u.ManagerID], u)
		}
	}
	return f
}

// subtreeIDs collects every id reachable downward from rootID, excluding the
// root itself. A revisited id means the manager edges contain a cycle; the
// offending branch is truncated and reported rather than recursed forever.
func (f *forest) subtreeIDs(rootID string) ([]string, error) {
	var ids []string
	seen := map[string]bool{rootID: true}
	var integrityErr error

	var walk func(id string)
	walk = func(id string) {
		for _, child := range f.childrenOf[id] {
			if seen[child.ID] {
				integrityErr = fmt.Errorf("%w: cycle through user %s", ErrDataIntegrity, child.ID)
				continue
			}
			seen[child.ID] = true
			ids = append(ids, child.ID)
			walk(child.ID)
		}
	}
	walk(rootID)
	return ids, integrityErr
}

// buildTree descends from rootID down to maxDepth levels (0 = the root
// itself). Cyclic branches are truncated the same way subtreeIDs does.
func (f *forest) buildTree(rootID string, maxDepth int) ([]HierarchyNode, error) {
	root, ok := f.byID[rootID]
	if !ok {
		return nil, nil
	}

	seen := map[string]bool{rootID: true}
	var integrityErr error

	var build func(u models.User, depth int) HierarchyNode
	build = func(u models.User, depth int) HierarchyNode {
		node := HierarchyNode{
			User:       u,
			Children:   []HierarchyNode{},
			Level:      depth,
			IsExpanded: depth == 0,
		}
		if depth >= maxDepth {
			return node
		}
		for _, child := range f.childrenOf[u.ID] {
			if seen[child.ID] {
				integrityErr = fmt.Errorf("%w: cycle through user %s", ErrDataIntegrity, child.ID)
				continue
			}
			seen[child.ID] = true
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}

	return []HierarchyNode{build(root, 0)}, integrityErr
}

// GetDirectReports returns a manager's active direct reports in creation
// order. An unknown manager id yields an empty slice, not an error.
func (s *HierarchyService) GetDirectReports(ctx context.Context, managerID string) ([]models.User, error) {
	return s.repo.GetDirectReports(ctx, managerID)
}

// GetTeamHierarchy builds the tree rooted at rootID, maxDepth levels deep.
func (s *HierarchyService) GetTeamHierarchy(ctx context.Context, rootID string, maxDepth int) ([]HierarchyNode, error) {
	root, err := s.repo.GetUserByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return []HierarchyNode{}, nil
	}

	users, err := s.repo.GetActiveUsersByCompany(ctx, root.CompanyID)
	if err != nil {
		return nil, err
	}

	nodes, integrityErr := buildForest(users).buildTree(rootID, maxDepth)
	if integrityErr != nil {
		slog.Error("Hierarchy contains a cycle, subtree truncated", "root_id", rootID, "error", integrityErr)
	}
	if nodes == nil {
		nodes = []HierarchyNode{}
	}
	return nodes, nil
}

// GetTeamStats computes team statistics for a manager: the transitive
// closure under manager edges, wellness averages over each subordinate's
// latest report, and the recent-report count.
func (s *HierarchyService) GetTeamStats(ctx context.Context, managerID string, recentDays int) (*TeamStats, error) {
	manager, err := s.repo.GetUserByID(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		return &TeamStats{TeamDepartments: []string{}}, nil
	}

	users, err := s.repo.GetActiveUsersByCompany(ctx, manager.CompanyID)
	if err != nil {
		return nil, err
	}

	stats := computeTeamStats(users, managerID)

	subordinateIDs, integrityErr := buildForest(users).subtreeIDs(managerID)
	if integrityErr != nil {
		slog.Error("Hierarchy contains a cycle, stats computed over truncated subtree", "manager_id", managerID, "error", integrityErr)
	}

	latest, err := s.repo.GetLatestReportsByEmployees(ctx, subordinateIDs)
	if err != nil {
		return nil, err
	}
	foldTeamReports(stats, latest)

	since := daysAgo(recentDays)
	count, err := s.repo.CountReportsByEmployeesSince(ctx, subordinateIDs, since)
	if err != nil {
		return nil, err
	}
	stats.RecentReportsCount = int(count)

	return stats, nil
}

// foldTeamReports folds each subordinate's latest report into the stats.
// Subordinates without a report are absent from the map and excluded from
// the average rather than counted as zero.
func foldTeamReports(stats *TeamStats, latest map[string]models.WellnessReport) {
	var sum float64
	var scored int
	for _, report := range latest {
		sum += report.OverallWellness
		scored++
		if report.RiskLevel == models.RiskHigh {
			stats.HighRiskTeamMembers++
		}
	}
	if scored > 0 {
		stats.AvgTeamWellness = sum / float64(scored)
	}
}

// computeTeamStats derives the structural numbers from a directory snapshot
// alone. Report-backed fields are filled in by the caller.
func computeTeamStats(users []models.User, managerID string) *TeamStats {
	f := buildForest(users)

	subordinateIDs, _ := f.subtreeIDs(managerID)
	departments := make(map[string]bool)
	for _, id := range subordinateIDs {
		if u, ok := f.byID[id]; ok && u.Department != "" {
			departments[u.Department] = true
		}
	}

	deptList := make([]string, 0, len(departments))
	for d := range departments {
		deptList = append(deptList, d)
	}
	sort.Strings(deptList)

	return &TeamStats{
		TeamSize:          len(subordinateIDs) + 1,
		DirectReports:     len(f.childrenOf[managerID]),
		TotalSubordinates: len(subordinateIDs),
		TeamDepartments:   deptList,
	}
}

// GetHierarchyAnalytics aggregates across a tenant's whole forest.
func (s *HierarchyService) GetHierarchyAnalytics(ctx context.Context, companyID string) (*HierarchyAnalytics, error) {
	users, err := s.repo.GetActiveUsersByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return computeHierarchyAnalytics(users), nil
}

func computeHierarchyAnalytics(users []models.User) *HierarchyAnalytics {
	analytics := &HierarchyAnalytics{
		TotalEmployees:  len(users),
		RoleCounts:      make(map[string]int),
		DepartmentSizes: make(map[string]int),
	}

	f := buildForest(users)
	managerSet := make(map[string]bool)

	maxDepth := 0
	for _, u := range users {
		analytics.RoleCounts[u.Role]++
		if u.Department != "" {
			analytics.DepartmentSizes[u.Department]++
		}
		if u.ManagerID == nil {
			analytics.RootCount++
		} else {
			managerSet[*u.ManagerID] = true
		}
		if u.HierarchyLevel > maxDepth {
			maxDepth = u.HierarchyLevel
		}
	}
	analytics.MaxDepth = maxDepth

	managed := 0
	for id := range managerSet {
		if _, ok := f.byID[id]; ok {
			analytics.TotalManagers++
			managed += len(f.childrenOf[id])
		}
	}
	if analytics.TotalManagers > 0 {
		analytics.AvgSpanControl = float64(managed) / float64(analytics.TotalManagers)
	}

	return analytics
}

// RebuildHierarchyCaches recomputes every user's direct_reports and
// reporting_chain caches from the authoritative manager_id edges and writes
// back only the rows that drifted.
func (s *HierarchyService) RebuildHierarchyCaches(ctx context.Context, companyID string) (int, error) {
	users, err := s.repo.GetActiveUsersByCompany(ctx, companyID)
	if err != nil {
		return 0, err
	}

	f := buildForest(users)
	rebuilt := 0
	for i := range users {
		u := &users[i]

		directs := make([]string, 0, len(f.childrenOf[u.ID]))
		for _, child := range f.childrenOf[u.ID] {
			directs = append(directs, child.ID)
		}
		chain := ancestorChain(f, u)

		if sliceEqual(u.DirectReports, directs) && sliceEqual(u.ReportingChain, chain) {
			continue
		}

		u.DirectReports = directs
		u.ReportingChain = chain
		if err := s.repo.UpdateUser(ctx, u); err != nil {
			return rebuilt, err
		}
		rebuilt++
	}

	if rebuilt > 0 {
		slog.Info("Hierarchy caches rebuilt", "company_id", companyID, "rows", rebuilt)
	}
	return rebuilt, nil
}

// ancestorChain walks manager edges from u up to the root, guarding against
// cycles the same way the downward traversals do.
func ancestorChain(f *forest, u *models.User) []string {
	chain := []string{}
	seen := map[string]bool{u.ID: true}
	current := u.ManagerID
	for current != nil {
		if seen[*current] {
			slog.Error("Hierarchy contains a cycle, ancestor chain truncated", "user_id", u.ID, "at", *current)
			break
		}
		seen[*current] = true
		chain = append(chain, *current)
		parent, ok := f.byID[*current]
		if !ok {
			break
		}
		current = parent.ManagerID
	}
	return chain
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
