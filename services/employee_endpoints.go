package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/diltak/mindtak-sub001/models"
	"github.com/diltak/mindtak-sub001/repository"
)

// EmployeeEndpoints manages the user directory: creating subordinates,
// moving them between managers, and deactivation. Every write keeps the
// hierarchy caches consistent with the manager edges.
type EmployeeEndpoints struct {
	repo      *repository.GORMRepository
	hierarchy *HierarchyService
}

type CreateEmployeeRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	ManagerID  string `json:"manager_id"`
}

type UpdateEmployeeRequest struct {
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	ManagerID  *string `json:"manager_id,omitempty"`
}

func NewEmployeeEndpoints(repo *repository.GORMRepository, hierarchy *HierarchyService) *EmployeeEndpoints {
	return &EmployeeEndpoints{repo: repo, hierarchy: hierarchy}
}

func (e *EmployeeEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Post("/", e.CreateEmployeeHandler)
		r.Get("/{employeeID}", e.GetEmployeeHandler)
		r.Patch("/{employeeID}", e.UpdateEmployeeHandler)
		r.Delete("/{employeeID}", e.DeactivateEmployeeHandler)
	})
}

// CreateEmployeeHandler adds a subordinate under an existing manager. The
// new user lands one level below the manager and inherits the manager's
// reporting chain with the manager prepended.
func (e *EmployeeEndpoints) CreateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	if !EffectivePermissions(actor).Has(CapabilityManageEmployees) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.ManagerID == "" {
		http.Error(w, "email, password, full_name and manager_id are required", http.StatusBadRequest)
		return
	}
	switch req.Role {
	case models.RoleEmployee, models.RoleManager, models.RoleHR:
	case "":
		req.Role = models.RoleEmployee
	default:
		http.Error(w, "Unsupported role", http.StatusBadRequest)
		return
	}

	manager, err := e.repo.GetUserByID(r.Context(), req.ManagerID)
	if err != nil {
		http.Error(w, "Failed to load manager", http.StatusInternalServerError)
		return
	}
	if manager == nil || manager.CompanyID != actor.CompanyID {
		http.Error(w, "Unknown manager", http.StatusBadRequest)
		return
	}

	existing, err := e.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, "Failed to check existing user", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "User already exists", http.StatusConflict)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		Email:          req.Email,
		Password:       string(hashedPassword),
		FullName:       req.FullName,
		Role:           req.Role,
		CompanyID:      manager.CompanyID,
		ManagerID:      &manager.ID,
		HierarchyLevel: manager.HierarchyLevel + 1,
		Department:     req.Department,
		DirectReports:  []string{},
		ReportingChain: append([]string{manager.ID}, manager.ReportingChain...),
		IsActive:       true,
	}

	if err := e.repo.CreateUser(r.Context(), user); err != nil {
		http.Error(w, "Failed to create employee", http.StatusInternalServerError)
		return
	}

	manager.DirectReports = append(manager.DirectReports, user.ID)
	if err := e.repo.UpdateUser(r.Context(), manager); err != nil {
		// The edge is authoritative; a stale cache self-heals on the next
		// rebuild pass.
		slog.Warn("Failed to update manager direct_reports cache", "manager_id", manager.ID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"user":    user,
	})

	slog.Info("Employee created", "user_id", user.ID, "manager_id", manager.ID, "role", user.Role)
}

func (e *EmployeeEndpoints) GetEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	employee, err := e.repo.GetUserByID(r.Context(), employeeID)
	if err != nil {
		http.Error(w, "Failed to load employee", http.StatusInternalServerError)
		return
	}
	if employee == nil || employee.CompanyID != actor.CompanyID {
		http.Error(w, "Employee not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"user":    employee,
	})
}

// UpdateEmployeeHandler changes role, department, or manager. A manager move
// recomputes the subject's level and chain and rebuilds the company caches
// so descendants pick up the new ancestry.
func (e *EmployeeEndpoints) UpdateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	if !EffectivePermissions(actor).Has(CapabilityManageEmployees) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	employee, err := e.repo.GetUserByID(r.Context(), employeeID)
	if err != nil {
		http.Error(w, "Failed to load employee", http.StatusInternalServerError)
		return
	}
	if employee == nil || employee.CompanyID != actor.CompanyID {
		http.Error(w, "Employee not found", http.StatusNotFound)
		return
	}

	var req UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Role != nil {
		switch *req.Role {
		case models.RoleEmployee, models.RoleManager, models.RoleHR, models.RoleEmployer, models.RoleAdmin:
			employee.Role = *req.Role
		default:
			http.Error(w, "Unsupported role", http.StatusBadRequest)
			return
		}
	}
	if req.Department != nil {
		employee.Department = *req.Department
	}

	managerMoved := false
	if req.ManagerID != nil {
		newManager, err := e.repo.GetUserByID(r.Context(), *req.ManagerID)
		if err != nil {
			http.Error(w, "Failed to load manager", http.StatusInternalServerError)
			return
		}
		if newManager == nil || newManager.CompanyID != employee.CompanyID {
			http.Error(w, "Unknown manager", http.StatusBadRequest)
			return
		}
		if newManager.ID == employee.ID {
			http.Error(w, "An employee cannot manage themselves", http.StatusBadRequest)
			return
		}
		// Reject moves that would place an employee under their own subtree.
		for _, ancestorID := range newManager.ReportingChain {
			if ancestorID == employee.ID {
				http.Error(w, "Move would create a reporting cycle", http.StatusBadRequest)
				return
			}
		}

		employee.ManagerID = &newManager.ID
		employee.HierarchyLevel = newManager.HierarchyLevel + 1
		employee.ReportingChain = append([]string{newManager.ID}, newManager.ReportingChain...)
		managerMoved = true
	}

	if err := e.repo.UpdateUser(r.Context(), employee); err != nil {
		http.Error(w, "Failed to update employee", http.StatusInternalServerError)
		return
	}

	if managerMoved {
		// Descendant chains and both managers' direct_reports caches are
		// stale after a move; recompute the whole company in one pass.
		if _, err := e.hierarchy.RebuildHierarchyCaches(r.Context(), employee.CompanyID); err != nil {
			slog.Error("Failed to rebuild hierarchy caches after move", "company_id", employee.CompanyID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"user":    employee,
	})

	slog.Info("Employee updated", "user_id", employee.ID, "manager_moved", managerMoved)
}

// DeactivateEmployeeHandler soft-deactivates an account. The row survives so
// historical reports keep their author.
func (e *EmployeeEndpoints) DeactivateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	if !EffectivePermissions(actor).Has(CapabilityManageEmployees) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	employee, err := e.repo.GetUserByID(r.Context(), employeeID)
	if err != nil {
		http.Error(w, "Failed to load employee", http.StatusInternalServerError)
		return
	}
	if employee == nil || employee.CompanyID != actor.CompanyID {
		http.Error(w, "Employee not found", http.StatusNotFound)
		return
	}

	if err := e.repo.DeactivateUser(r.Context(), employeeID); err != nil {
		http.Error(w, "Failed to deactivate employee", http.StatusInternalServerError)
		return
	}

	// Orphaned direct reports keep their manager edge; traversals skip
	// inactive nodes, and a cache rebuild tidies the rest.
	if _, err := e.hierarchy.RebuildHierarchyCaches(r.Context(), employee.CompanyID); err != nil {
		slog.Error("Failed to rebuild hierarchy caches after deactivation", "company_id", employee.CompanyID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Employee deactivated",
	})

	slog.Info("Employee deactivated", "user_id", employeeID, "by", actor.ID)
}
