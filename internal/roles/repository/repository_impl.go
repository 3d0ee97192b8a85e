package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/internal/roles/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, assignment *domain.RoleAssignment) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO role_assignments (id, user_id, role_code, scope, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		assignment.ID,
		assignment.UserID,
		assignment.RoleCode,
		assignment.Scope,
		assignment.ExpiresAt,
		assignment.CreatedAt,
	).Error
}

func (r *repository) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.RoleAssignment, error) {
	var assignments []domain.RoleAssignment
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, user_id, role_code, scope, expires_at, created_at
		 FROM role_assignments
		 WHERE user_id = ?
		 ORDER BY created_at ASC`,
		userID,
	).Scan(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) Expire(ctx context.Context, userID snowflake.ID, roleCode string, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE role_assignments
		 SET expires_at = ?
		 WHERE user_id = ? AND role_code = ? AND (expires_at IS NULL OR expires_at > ?)`,
		at,
		userID,
		roleCode,
		at,
	).Error
}
