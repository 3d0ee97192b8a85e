// Package seed bootstraps the default administrator so a fresh install is
// usable out of the box.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	"github.com/millwise/shopfloor/internal/identity/password"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "Shopfloor Admin"
)

// EnsureAdmin creates the default SUPER_ADMIN account when no user holds
// that role yet. Existing installs are left untouched.
func EnsureAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := ensureAdminUserTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureAdminRoleTx(ctx, tx, node, user.ID)
	})
}

func ensureAdminUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*identitydomain.User, error) {
	var user identitydomain.User
	err := tx.WithContext(ctx).
		Where("username = ?", defaultAdminUsername).
		First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(defaultAdminPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user = identitydomain.User{
		ID:           node.Generate(),
		Username:     defaultAdminUsername,
		DisplayName:  defaultAdminDisplay,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureAdminRoleTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, userID snowflake.ID) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&rolesdomain.RoleAssignment{}).
		Where("user_id = ? AND role_code = ?", userID, rolesdomain.RoleSuperAdmin).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	assignment := rolesdomain.RoleAssignment{
		ID:        node.Generate(),
		UserID:    userID,
		RoleCode:  rolesdomain.RoleSuperAdmin,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&assignment).Error
}
