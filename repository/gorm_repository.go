package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/diltak/mindtak-sub001/models"
	"gorm.io/gorm"
)

// ErrEmailTaken is returned when a create collides with the unique email
// index. Pre-checks race; the constraint is the real guard.
var ErrEmailTaken = errors.New("email already registered")

const pgUniqueViolation = "23505"

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.CoachSession{},
		&models.WellnessReport{},
		&models.CallRecord{},
		&models.CallSession{},
	)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email, "company_id", user.CompanyID)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		slog.Error("Failed to update user", "error", err, "user_id", user.ID)
		return err
	}
	slog.Info("User updated", "user_id", user.ID)
	return nil
}

// DeactivateUser soft-deactivates a user. Records are never hard-deleted so
// wellness report history stays intact.
func (r *GORMRepository) DeactivateUser(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_active", false).Error; err != nil {
		slog.Error("Failed to deactivate user", "error", err, "user_id", userID)
		return err
	}
	slog.Info("User deactivated", "user_id", userID)
	return nil
}

// GetDirectReports returns all active users managed by managerID, ordered by
// creation time so listings are stable across calls.
func (r *GORMRepository) GetDirectReports(ctx context.Context, managerID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND is_active = ?", managerID, true).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		slog.Error("Failed to get direct reports", "error", err, "manager_id", managerID)
		return nil, err
	}
	return users, nil
}

// GetActiveUsersByCompany loads a tenant's full active directory. Hierarchy
// traversals run over this snapshot in memory.
func (r *GORMRepository) GetActiveUsersByCompany(ctx context.Context, companyID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		slog.Error("Failed to get company users", "error", err, "company_id", companyID)
		return nil, err
	}
	return users, nil
}

// Token operations
func (r *GORMRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now()).First(&refreshToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get refresh token", "error", err)
		return nil, err
	}
	return &refreshToken, nil
}

func (r *GORMRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete user refresh tokens", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// Coach session operations
func (r *GORMRepository) CreateCoachSession(ctx context.Context, session *models.CoachSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create coach session", "error", err)
		return err
	}
	slog.Info("Coach session created", "session_id", session.ID, "user_id", session.UserID)
	return nil
}

func (r *GORMRepository) GetCoachSession(ctx context.Context, sessionID string) (*models.CoachSession, error) {
	var session models.CoachSession
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get coach session", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) GetCoachSessions(ctx context.Context, userID string) ([]models.CoachSession, error) {
	var sessions []models.CoachSession
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("started_at DESC").Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to get coach sessions", "error", err, "user_id", userID)
		return nil, err
	}
	return sessions, nil
}

func (r *GORMRepository) UpdateCoachSession(ctx context.Context, session *models.CoachSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to update coach session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}
