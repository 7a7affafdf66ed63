package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/diltak/mindtak-sub001/models"
	"github.com/diltak/mindtak-sub001/repository"
)

// DatabaseSeeder loads a small demo company: an employer root, a manager
// layer, a handful of employees, and a few wellness reports so the
// dashboards have something to show.
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase seeds the database with demo data. Idempotent: a second run
// finds the employer account and stops.
func (s *DatabaseSeeder) SeedDatabase() error {
	ctx := context.Background()

	existing, err := s.repo.GetUserByEmail(ctx, "owner@demo.example.com")
	if err != nil {
		return fmt.Errorf("failed to check for existing seed data: %w", err)
	}
	if existing != nil {
		slog.Info("Database seeding already completed, skipping")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	owner := &models.User{
		Email:          "owner@demo.example.com",
		Password:       string(hashedPassword),
		FullName:       "Dana Whitfield",
		Role:           models.RoleEmployer,
		CompanyID:      "a3b1c9d0-0000-4000-8000-000000000001",
		HierarchyLevel: 0,
		Department:     "Leadership",
		DirectReports:  []string{},
		ReportingChain: []string{},
		IsActive:       true,
	}
	if err := s.repo.CreateUser(ctx, owner); err != nil {
		return fmt.Errorf("failed to seed employer: %w", err)
	}

	manager := &models.User{
		Email:          "manager@demo.example.com",
		Password:       string(hashedPassword),
		FullName:       "Priya Raman",
		Role:           models.RoleManager,
		CompanyID:      owner.CompanyID,
		ManagerID:      &owner.ID,
		HierarchyLevel: 1,
		Department:     "Engineering",
		DirectReports:  []string{},
		ReportingChain: []string{owner.ID},
		IsActive:       true,
	}
	if err := s.repo.CreateUser(ctx, manager); err != nil {
		return fmt.Errorf("failed to seed manager: %w", err)
	}

	hr := &models.User{
		Email:          "hr@demo.example.com",
		Password:       string(hashedPassword),
		FullName:       "Jordan Liu",
		Role:           models.RoleHR,
		CompanyID:      owner.CompanyID,
		ManagerID:      &owner.ID,
		HierarchyLevel: 1,
		Department:     "People",
		DirectReports:  []string{},
		ReportingChain: []string{owner.ID},
		IsActive:       true,
	}
	if err := s.repo.CreateUser(ctx, hr); err != nil {
		return fmt.Errorf("failed to seed hr user: %w", err)
	}

	employeeNames := []string{"Alex Moreau", "Sam Ortega", "Noor Haddad"}
	employees := make([]*models.User, 0, len(employeeNames))
	for i, name := range employeeNames {
		employee := &models.User{
			Email:          fmt.Sprintf("employee%d@demo.example.com", i+1),
			Password:       string(hashedPassword),
			FullName:       name,
			Role:           models.RoleEmployee,
			CompanyID:      owner.CompanyID,
			ManagerID:      &manager.ID,
			HierarchyLevel: 2,
			Department:     "Engineering",
			DirectReports:  []string{},
			ReportingChain: []string{manager.ID, owner.ID},
			IsActive:       true,
		}
		if err := s.repo.CreateUser(ctx, employee); err != nil {
			slog.Error("Failed to seed employee", "email", employee.Email, "error", err)
			continue
		}
		employees = append(employees, employee)
	}

	// Fill the cached edges for the two parents
	manager.DirectReports = make([]string, 0, len(employees))
	for _, e := range employees {
		manager.DirectReports = append(manager.DirectReports, e.ID)
	}
	if err := s.repo.UpdateUser(ctx, manager); err != nil {
		slog.Error("Failed to update manager cache during seed", "error", err)
	}
	owner.DirectReports = []string{manager.ID, hr.ID}
	if err := s.repo.UpdateUser(ctx, owner); err != nil {
		slog.Error("Failed to update owner cache during seed", "error", err)
	}

	s.seedReports(ctx, employees)

	slog.Info("Database seeding completed", "company_id", owner.CompanyID, "users", 3+len(employees))
	return nil
}

// seedReports gives each demo employee a couple of reports at different
// wellness levels so analytics, trends and risk buckets are all non-trivial.
func (s *DatabaseSeeder) seedReports(ctx context.Context, employees []*models.User) {
	samples := []StructuredReport{
		{Mood: 7, Stress: 4, Anxiety: 3, WorkSatisfaction: 8, WorkLifeBalance: 7, Energy: 7, Confidence: 8, SleepQuality: 7,
			CompleteReport: "A steady check-in. Generally positive outlook with manageable workload."},
		{Mood: 5, Stress: 6, Anxiety: 5, WorkSatisfaction: 6, WorkLifeBalance: 5, Energy: 5, Confidence: 6, SleepQuality: 5,
			CompleteReport: "Mixed week. Some deadline pressure, sleep a little short, coping well overall."},
		{Mood: 3, Stress: 8, Anxiety: 7, WorkSatisfaction: 4, WorkLifeBalance: 3, Energy: 3, Confidence: 4, SleepQuality: 3,
			CompleteReport: "A hard stretch. High stress and poor sleep; agreed to revisit workload with the manager."},
	}

	for i, employee := range employees {
		sample := samples[i%len(samples)]
		report := sample.ToWellnessReport(employee.ID, employee.CompanyID, models.SessionTypeText, 420+60*i)
		report.CreatedAt = time.Now().AddDate(0, 0, -(i + 1))
		if err := s.repo.CreateWellnessReport(ctx, report); err != nil {
			slog.Error("Failed to seed report", "employee_id", employee.ID, "error", err)
		}
	}
}
