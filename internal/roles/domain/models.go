// Package domain contains role-assignment models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Coarse role codes. ADMIN and SUPER_ADMIN are scope-free and grant
// universal management rights.
const (
	RoleWorker         = "WORKER"
	RoleGroupLeader    = "GROUP_LEADER"
	RoleTeamLeader     = "TEAM_LEADER"
	RoleLineManager    = "LINE_MANAGER"
	RoleFactoryManager = "FACTORY_MANAGER"
	RoleAdmin          = "ADMIN"
	RoleSuperAdmin     = "SUPER_ADMIN"
)

// RoleAssignment grants a coarse role to a user, optionally narrowed to a
// scope (e.g. a specific line id) and bounded by an expiry.
type RoleAssignment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	RoleCode  string       `gorm:"type:text;not null" json:"role_code"`
	Scope     string       `gorm:"type:text" json:"scope,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (RoleAssignment) TableName() string { return "role_assignments" }

// Active reports whether the assignment currently applies.
func (a RoleAssignment) Active(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}

func IsGlobalAdmin(roleCode string) bool {
	return roleCode == RoleAdmin || roleCode == RoleSuperAdmin
}

func ValidRoleCode(code string) bool {
	switch code {
	case RoleWorker, RoleGroupLeader, RoleTeamLeader, RoleLineManager, RoleFactoryManager, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

type Repository interface {
	Insert(ctx context.Context, assignment *RoleAssignment) error
	ListByUser(ctx context.Context, userID snowflake.ID) ([]RoleAssignment, error)
	Expire(ctx context.Context, userID snowflake.ID, roleCode string, at time.Time) error
}

type Service interface {
	// GetUserRoles returns the user's currently-active assignments.
	GetUserRoles(ctx context.Context, userID snowflake.ID) ([]RoleAssignment, error)
	// HasGlobalAdmin reports whether the user holds ADMIN or SUPER_ADMIN.
	HasGlobalAdmin(ctx context.Context, userID snowflake.ID) (bool, error)
	// PrimaryRole picks the most privileged active role, WORKER when none.
	PrimaryRole(ctx context.Context, userID snowflake.ID) (string, error)
	Grant(ctx context.Context, userID snowflake.ID, roleCode, scope string, expiresAt *time.Time) error
	Revoke(ctx context.Context, userID snowflake.ID, roleCode string) error
}

var (
	ErrInvalidRole = errors.New("invalid_role")
	ErrInvalidUser = errors.New("invalid_user")
)
