// Package domain contains the audit trail models and contracts.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records one authorized mutation or denied attempt.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    snowflake.ID      `gorm:"not null;index" json:"actor_id"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null;index" json:"target_type"`
	TargetID   string            `gorm:"type:text" json:"target_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, pg pagination.Pagination) ([]*AuditLog, int64, error)
}

type Service interface {
	// Record never fails the caller's request: persistence faults are
	// logged server-side and swallowed.
	Record(ctx context.Context, actorID snowflake.ID, action, targetType, targetID string, metadata map[string]any)
	List(ctx context.Context, filter ListFilter, pg pagination.Pagination) (*pagination.Result[AuditLog], error)
}
