package seed

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/millwise/shopfloor/internal/identity/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY, username TEXT UNIQUE, display_name TEXT,
			password_hash TEXT, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE role_assignments (
			id INTEGER PRIMARY KEY, user_id INTEGER, role_code TEXT, scope TEXT,
			expires_at DATETIME, created_at DATETIME)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, EnsureAdmin(db))
	require.NoError(t, EnsureAdmin(db))

	var users int64
	require.NoError(t, db.Table("users").Count(&users).Error)
	assert.Equal(t, int64(1), users)

	var assignments int64
	require.NoError(t, db.Table("role_assignments").Count(&assignments).Error)
	assert.Equal(t, int64(1), assignments)

	var hash string
	require.NoError(t, db.Table("users").Select("password_hash").Where("username = ?", defaultAdminUsername).Scan(&hash).Error)
	assert.True(t, password.Verify(defaultAdminPassword, hash))
}

func TestEnsureAdminKeepsExistingAccount(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Exec(
		`INSERT INTO users (id, username, display_name, password_hash) VALUES (42, ?, 'Existing', 'hash')`,
		defaultAdminUsername,
	).Error)

	require.NoError(t, EnsureAdmin(db))

	var display string
	require.NoError(t, db.Table("users").Select("display_name").Where("id = 42").Scan(&display).Error)
	assert.Equal(t, "Existing", display)

	var role string
	require.NoError(t, db.Table("role_assignments").Select("role_code").Where("user_id = 42").Scan(&role).Error)
	assert.Equal(t, "SUPER_ADMIN", role)
}
