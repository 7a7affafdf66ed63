package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultTreeDepth = 10

// HierarchyEndpoints exposes the hierarchy engine: tree queries, team stats,
// company analytics, and access checks.
type HierarchyEndpoints struct {
	hierarchy   *HierarchyService
	permissions *PermissionService
	recentDays  int
}

type AccessCheckRequest struct {
	UserID       string `json:"userId"`
	TargetUserID string `json:"targetUserId"`
}

func NewHierarchyEndpoints(hierarchy *HierarchyService, permissions *PermissionService, recentDays int) *HierarchyEndpoints {
	return &HierarchyEndpoints{
		hierarchy:   hierarchy,
		permissions: permissions,
		recentDays:  recentDays,
	}
}

func (e *HierarchyEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/hierarchy", func(r chi.Router) {
		r.Get("/", e.QueryHandler)
		r.Post("/access-check", e.AccessCheckHandler)
	})
}

// QueryHandler runs one or all hierarchy queries for a user. queryType
// selects which: all, directReports, hierarchy, teamStats, analytics, or
// permissions.
func (e *HierarchyEndpoints) QueryHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	userID := r.URL.Query().Get("userId")
	companyID := r.URL.Query().Get("companyId")
	queryType := r.URL.Query().Get("testType")
	if queryType == "" {
		queryType = r.URL.Query().Get("queryType")
	}
	if userID == "" || companyID == "" || queryType == "" {
		http.Error(w, "userId, companyId and testType are required", http.StatusBadRequest)
		return
	}
	if companyID != actor.CompanyID {
		http.Error(w, "Unknown company", http.StatusForbidden)
		return
	}

	results := make(map[string]interface{})
	run := func(name string, fn func() (interface{}, error)) {
		if queryType != "all" && queryType != name {
			return
		}
		value, err := fn()
		if err != nil {
			slog.Error("Hierarchy query failed", "query", name, "user_id", userID, "error", err)
			results[name] = map[string]interface{}{"error": "query failed"}
			return
		}
		results[name] = value
	}

	run("directReports", func() (interface{}, error) {
		return e.hierarchy.GetDirectReports(r.Context(), userID)
	})
	run("hierarchy", func() (interface{}, error) {
		return e.hierarchy.GetTeamHierarchy(r.Context(), userID, defaultTreeDepth)
	})
	run("teamStats", func() (interface{}, error) {
		return e.hierarchy.GetTeamStats(r.Context(), userID, e.recentDays)
	})
	run("analytics", func() (interface{}, error) {
		return e.hierarchy.GetHierarchyAnalytics(r.Context(), companyID)
	})
	run("permissions", func() (interface{}, error) {
		user, err := e.permissions.LoadUser(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return EffectivePermissions(user).Capabilities(), nil
	})

	if len(results) == 0 {
		http.Error(w, "Unsupported testType", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"results":   results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// AccessCheckHandler answers a single can-this-viewer-see-this-target
// question. The answer is always a boolean; lookup failures read as denied.
func (e *HierarchyEndpoints) AccessCheckHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req AccessCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.TargetUserID == "" {
		http.Error(w, "userId and targetUserId are required", http.StatusBadRequest)
		return
	}

	canAccess := e.permissions.CanAccessEmployeeData(r.Context(), req.UserID, req.TargetUserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"canAccess": canAccess,
	})
}
