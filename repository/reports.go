package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/diltak/mindtak-sub001/models"
)

// Wellness report operations. Reports are append-only; there is no update
// or delete path here on purpose.

func (r *GORMRepository) CreateWellnessReport(ctx context.Context, report *models.WellnessReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		slog.Error("Failed to create wellness report", "error", err, "employee_id", report.EmployeeID)
		return err
	}
	slog.Info("Wellness report created",
		"report_id", report.ID,
		"employee_id", report.EmployeeID,
		"risk_level", report.RiskLevel)
	return nil
}

// GetReportsByCompanySince returns a tenant's reports created at or after the
// cutoff. The store cannot combine a range filter with compound ordering, so
// callers sort the slice themselves.
func (r *GORMRepository) GetReportsByCompanySince(ctx context.Context, companyID string, since time.Time) ([]models.WellnessReport, error) {
	var reports []models.WellnessReport
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND created_at >= ?", companyID, since).
		Find(&reports).Error
	if err != nil {
		slog.Error("Failed to get company reports", "error", err, "company_id", companyID)
		return nil, err
	}
	return reports, nil
}

func (r *GORMRepository) GetReportsByEmployee(ctx context.Context, employeeID string, limit int) ([]models.WellnessReport, error) {
	var reports []models.WellnessReport
	query := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reports).Error; err != nil {
		slog.Error("Failed to get employee reports", "error", err, "employee_id", employeeID)
		return nil, err
	}
	return reports, nil
}

// GetLatestReportsByEmployees loads the newest report per employee for a set
// of ids in one round trip, keyed by employee id. Employees without reports
// are simply absent from the map.
func (r *GORMRepository) GetLatestReportsByEmployees(ctx context.Context, employeeIDs []string) (map[string]models.WellnessReport, error) {
	latest := make(map[string]models.WellnessReport, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return latest, nil
	}

	var reports []models.WellnessReport
	err := r.db.WithContext(ctx).
		Where("employee_id IN ?", employeeIDs).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		slog.Error("Failed to get latest reports for employees", "error", err, "count", len(employeeIDs))
		return nil, err
	}

	for _, report := range reports {
		if _, seen := latest[report.EmployeeID]; !seen {
			latest[report.EmployeeID] = report
		}
	}
	return latest, nil
}

func (r *GORMRepository) CountReportsByEmployeesSince(ctx context.Context, employeeIDs []string, since time.Time) (int64, error) {
	if len(employeeIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WellnessReport{}).
		Where("employee_id IN ? AND created_at >= ?", employeeIDs, since).
		Count(&count).Error
	if err != nil {
		slog.Error("Failed to count recent reports", "error", err, "count", len(employeeIDs))
		return 0, err
	}
	return count, nil
}
