package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diltak/mindtak-sub001/models"
	"github.com/diltak/mindtak-sub001/repository"
)

// subscoreOrder fixes the column and summary ordering everywhere reports are
// rendered. Keys match models.WellnessReport.Subscores.
var subscoreOrder = []string{
	"mood",
	"stress",
	"anxiety",
	"work_satisfaction",
	"work_life_balance",
	"energy",
	"confidence",
	"sleep_quality",
}

var subscoreHeaders = map[string]string{
	"mood":              "Mood",
	"stress":            "Stress",
	"anxiety":           "Anxiety",
	"work_satisfaction": "Work Satisfaction",
	"work_life_balance": "Work Life Balance",
	"energy":            "Energy",
	"confidence":        "Confidence",
	"sleep_quality":     "Sleep Quality",
}

// ReportsAnalytics summarizes a window of company reports.
type ReportsAnalytics struct {
	TotalReports      int                `json:"total_reports"`
	AvgOverall        float64            `json:"avg_overall_wellness"`
	AvgSubscores      map[string]float64 `json:"avg_subscores"`
	RiskDistribution  map[string]int     `json:"risk_distribution"`
	WellnessTrend     string             `json:"wellness_trend"`
	UniqueEmployees   int                `json:"unique_employees"`
	SessionTypeCounts map[string]int     `json:"session_type_counts"`
}

// ReportsService aggregates wellness reports for dashboards, AI context, and
// CSV export. It holds no state beyond the store handle.
type ReportsService struct {
	repo *repository.GORMRepository
}

func NewReportsService(repo *repository.GORMRepository) *ReportsService {
	return &ReportsService{repo: repo}
}

func daysAgo(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}

// GetRecentReports returns a tenant's reports for the trailing window,
// newest first.
func (s *ReportsService) GetRecentReports(ctx context.Context, companyID string, days int) ([]models.WellnessReport, error) {
	reports, err := s.repo.GetReportsByCompanySince(ctx, companyID, daysAgo(days))
	if err != nil {
		return nil, err
	}
	sortReportsNewestFirst(reports)
	return reports, nil
}

// The store returns range-filtered rows unordered; ordering is applied here
// so every consumer sees the same newest-first sequence.
func sortReportsNewestFirst(reports []models.WellnessReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
}

// GenerateReportsAnalytics computes the dashboard aggregate over an
// already-loaded, newest-first report slice.
func GenerateReportsAnalytics(reports []models.WellnessReport) *ReportsAnalytics {
	analytics := &ReportsAnalytics{
		AvgSubscores:      make(map[string]float64),
		RiskDistribution:  map[string]int{models.RiskLow: 0, models.RiskMedium: 0, models.RiskHigh: 0},
		SessionTypeCounts: make(map[string]int),
		WellnessTrend:     "no_data",
	}
	for _, key := range subscoreOrder {
		analytics.AvgSubscores[key] = 0
	}
	if len(reports) == 0 {
		return analytics
	}

	analytics.TotalReports = len(reports)

	employees := make(map[string]bool)
	var overallSum float64
	subscoreSums := make(map[string]float64)
	for _, r := range reports {
		overallSum += r.OverallWellness
		for key, value := range r.Subscores() {
			subscoreSums[key] += float64(value)
		}
		analytics.RiskDistribution[r.RiskLevel]++
		analytics.SessionTypeCounts[r.SessionType]++
		employees[r.EmployeeID] = true
	}

	n := float64(len(reports))
	analytics.AvgOverall = overallSum / n
	for _, key := range subscoreOrder {
		analytics.AvgSubscores[key] = subscoreSums[key] / n
	}
	analytics.UniqueEmployees = len(employees)
	analytics.WellnessTrend = wellnessTrend(reports)

	return analytics
}

// wellnessTrend compares the newer half of the window against the older half
// by count. Swings under 0.3 points read as stable so day-to-day noise does
// not flip the dashboard.
func wellnessTrend(reports []models.WellnessReport) string {
	if len(reports) < 2 {
		return "stable"
	}

	half := len(reports) / 2
	newer, older := reports[:half], reports[half:]

	avg := func(rs []models.WellnessReport) float64 {
		var sum float64
		for _, r := range rs {
			sum += r.OverallWellness
		}
		return sum / float64(len(rs))
	}

	delta := avg(newer) - avg(older)
	switch {
	case delta > 0.3:
		return "up"
	case delta < -0.3:
		return "down"
	default:
		return "stable"
	}
}

// FormatReportsForAI renders a window of company reports as anonymized plain
// text for model prompts. Employee ids appear only as short fragments so the
// model sees cohort patterns, not identities.
func FormatReportsForAI(reports []models.WellnessReport) string {
	if len(reports) == 0 {
		return "No wellness reports available for this period."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company wellness summary (%d reports):\n\n", len(reports))
	for _, r := range reports {
		fmt.Fprintf(&b, "Employee %s | %s | overall %.1f | risk %s\n",
			idFragment(r.EmployeeID),
			r.CreatedAt.Format("2006-01-02"),
			r.OverallWellness,
			r.RiskLevel)
		subs := r.Subscores()
		parts := make([]string, 0, len(subscoreOrder))
		for _, key := range subscoreOrder {
			parts = append(parts, fmt.Sprintf("%s=%d", key, subs[key]))
		}
		fmt.Fprintf(&b, "  %s\n", strings.Join(parts, " "))
	}
	return b.String()
}

// idFragment truncates a uuid to its first block. Enough to correlate rows
// within one prompt, useless for identifying anyone outside it.
func idFragment(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// GetPersonalHistory returns one employee's recent reports, newest first.
func (s *ReportsService) GetPersonalHistory(ctx context.Context, employeeID string, limit int) ([]models.WellnessReport, error) {
	return s.repo.GetReportsByEmployee(ctx, employeeID, limit)
}

// FormatPersonalHistoryForAI renders an employee's own history for the coach
// prompt. Unlike the company formatter this keeps full detail; the subject is
// reading about themselves.
func FormatPersonalHistoryForAI(reports []models.WellnessReport) string {
	if len(reports) == 0 {
		return "No previous sessions on record. This is the employee's first session."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Previous sessions (%d, newest first):\n", len(reports))
	for _, r := range reports {
		fmt.Fprintf(&b, "- %s: overall %.1f, risk %s, mood %d, stress %d, energy %d, sleep %d\n",
			r.CreatedAt.Format("2006-01-02"),
			r.OverallWellness,
			r.RiskLevel,
			r.Mood, r.Stress, r.Energy, r.SleepQuality)
		if r.AIAnalysis != "" {
			fmt.Fprintf(&b, "  Notes: %s\n", summarize(r.AIAnalysis, 160))
		}
	}
	return b.String()
}

func summarize(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

// ExportReportsCSV writes a tenant's reports for the window as CSV, newest
// first. timeRange is one of "7d", "30d", "90d".
func (s *ReportsService) ExportReportsCSV(ctx context.Context, companyID, timeRange string) ([]byte, error) {
	days, err := parseTimeRange(timeRange)
	if err != nil {
		return nil, err
	}

	reports, err := s.GetRecentReports(ctx, companyID, days)
	if err != nil {
		return nil, err
	}

	csvData, err := renderReportsCSV(reports)
	if err != nil {
		return nil, err
	}

	slog.Info("Reports exported", "company_id", companyID, "time_range", timeRange, "rows", len(reports))
	return csvData, nil
}

// renderReportsCSV writes the fixed 16-column layout for an already-ordered
// report slice.
func renderReportsCSV(reports []models.WellnessReport) ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	header := []string{"Report ID", "Employee ID", "Date", "Session Type"}
	for _, key := range subscoreOrder {
		header = append(header, subscoreHeaders[key])
	}
	header = append(header, "Overall Wellness", "Risk Level", "Session Duration", "AI Analysis Summary")
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range reports {
		row := []string{
			r.ID,
			idFragment(r.EmployeeID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.SessionType,
		}
		subs := r.Subscores()
		for _, key := range subscoreOrder {
			row = append(row, strconv.Itoa(subs[key]))
		}
		row = append(row,
			fmt.Sprintf("%.2f", r.OverallWellness),
			r.RiskLevel,
			strconv.Itoa(r.SessionDuration),
			summarize(r.AIAnalysis, 200),
		)
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return []byte(b.String()), nil
}

func parseTimeRange(timeRange string) (int, error) {
	switch timeRange {
	case "7d":
		return 7, nil
	case "30d":
		return 30, nil
	case "90d":
		return 90, nil
	default:
		return 0, fmt.Errorf("%w: unsupported time range %q", ErrValidation, timeRange)
	}
}
