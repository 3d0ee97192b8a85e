// Package domain contains identity models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is an account that can authenticate and hold role or manager
// assignments anywhere in the hierarchy.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"type:text;not null;uniqueIndex:ux_users_username" json:"username"`
	DisplayName  string       `gorm:"type:text" json:"display_name"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Requester is the authenticated caller attached to every
// authorization-sensitive operation.
type Requester struct {
	SubjectID snowflake.ID `json:"subject_id"`
	Role      string       `json:"role"`
	Scopes    []string     `json:"scopes,omitempty"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResponse, error)
	// Introspect verifies an access token and resolves the Requester, or
	// fails with ErrInvalidToken.
	Introspect(ctx context.Context, token string) (*Requester, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	CreateUser(ctx context.Context, username, displayName, password string) (*User, error)
	Exists(ctx context.Context, id snowflake.ID) (bool, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrUserExists         = errors.New("user_exists")
	ErrUserNotFound       = errors.New("user_not_found")
)
