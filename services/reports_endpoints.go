package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const personalHistoryLimit = 20

// ReportsEndpoints serves aggregated wellness data: the company dashboard
// feed, AI-written insights, and the CSV export.
type ReportsEndpoints struct {
	reports     *ReportsService
	permissions *PermissionService
	gemini      *GeminiService
	defaultDays int
}

type ExportRequest struct {
	CompanyID string `json:"company_id"`
	TimeRange string `json:"time_range"`
}

func NewReportsEndpoints(reports *ReportsService, permissions *PermissionService, gemini *GeminiService, defaultDays int) *ReportsEndpoints {
	if defaultDays <= 0 {
		defaultDays = 7
	}
	return &ReportsEndpoints{reports: reports, permissions: permissions, gemini: gemini, defaultDays: defaultDays}
}

func (e *ReportsEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", e.GetReportsHandler)
		r.Get("/insights", e.InsightsHandler)
		r.Post("/export", e.ExportHandler)
	})
}

// GetReportsHandler returns the company window (count, analytics, AI digest)
// and, when userId is given and the caller may see it, that employee's
// personal history.
func (e *ReportsEndpoints) GetReportsHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	companyID := r.URL.Query().Get("companyId")
	if companyID == "" {
		http.Error(w, "companyId is required", http.StatusBadRequest)
		return
	}
	if companyID != actor.CompanyID {
		http.Error(w, "Unknown company", http.StatusForbidden)
		return
	}

	days := e.defaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	perms := EffectivePermissions(actor)
	data := make(map[string]interface{})

	if perms.Has(CapabilityViewAnalytics) || perms.Has(CapabilityViewAllReports) {
		reports, err := e.reports.GetRecentReports(r.Context(), companyID, days)
		if err != nil {
			slog.Error("Failed to load company reports", "company_id", companyID, "error", err)
			http.Error(w, "Failed to load reports", http.StatusInternalServerError)
			return
		}
		data["companyReports"] = map[string]interface{}{
			"count":     len(reports),
			"analytics": GenerateReportsAnalytics(reports),
			"aiContext": FormatReportsForAI(reports),
		}
	}

	if userID := r.URL.Query().Get("userId"); userID != "" {
		if !e.permissions.CanAccessEmployeeData(r.Context(), actor.ID, userID) {
			http.Error(w, "Access denied", http.StatusForbidden)
			return
		}
		history, err := e.reports.GetPersonalHistory(r.Context(), userID, personalHistoryLimit)
		if err != nil {
			slog.Error("Failed to load personal history", "user_id", userID, "error", err)
			http.Error(w, "Failed to load reports", http.StatusInternalServerError)
			return
		}
		data["personalHistory"] = map[string]interface{}{
			"count":     len(history),
			"reports":   history,
			"aiContext": FormatPersonalHistoryForAI(history),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// InsightsHandler asks the model for a narrative read of the company window.
// The prompt only ever sees the anonymized digest, never raw identities.
func (e *ReportsEndpoints) InsightsHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	if !EffectivePermissions(actor).Has(CapabilityViewAnalytics) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}
	if e.gemini == nil {
		http.Error(w, "AI insights unavailable", http.StatusServiceUnavailable)
		return
	}

	days := e.defaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	reports, err := e.reports.GetRecentReports(r.Context(), actor.CompanyID, days)
	if err != nil {
		slog.Error("Failed to load company reports for insights", "company_id", actor.CompanyID, "error", err)
		http.Error(w, "Failed to load reports", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if len(reports) == 0 {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      true,
			"insights":     "No wellness reports in this period, so there are no trends to summarize yet.",
			"report_count": 0,
		})
		return
	}

	prompt := "You are an organizational wellness analyst. Based on the anonymized report summary below, write 3-5 sentences for leadership: overall team wellbeing, notable risk patterns, and one concrete suggestion. Do not mention individual employees.\n\n" +
		FormatReportsForAI(reports)

	insights, err := e.gemini.GenerateContent(r.Context(), prompt)
	if err != nil {
		slog.Error("Insights generation failed", "company_id", actor.CompanyID, "error", err)
		http.Error(w, "Insights unavailable", http.StatusBadGateway)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":      true,
		"insights":     insights,
		"report_count": len(reports),
	})
	slog.Info("Insights generated", "company_id", actor.CompanyID, "by", actor.ID, "reports", len(reports))
}

// ExportHandler streams the company's reports for the window as a CSV file.
func (e *ReportsEndpoints) ExportHandler(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	if !EffectivePermissions(actor).Has(CapabilityExportReports) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CompanyID == "" {
		req.CompanyID = actor.CompanyID
	}
	if req.CompanyID != actor.CompanyID {
		http.Error(w, "Unknown company", http.StatusForbidden)
		return
	}

	csvData, err := e.reports.ExportReportsCSV(r.Context(), req.CompanyID, req.TimeRange)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Report export failed", "company_id", req.CompanyID, "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("wellness-reports-%s-%s.csv", req.TimeRange, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(csvData)

	slog.Info("Reports exported", "company_id", req.CompanyID, "by", actor.ID, "time_range", req.TimeRange)
}
