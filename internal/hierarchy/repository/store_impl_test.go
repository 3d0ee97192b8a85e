package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/hierarchy/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (domain.Store, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE factories (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			attributes TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE lines (
			id INTEGER PRIMARY KEY,
			factory_id INTEGER NOT NULL,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE teams (
			id INTEGER PRIMARY KEY,
			line_id INTEGER NOT NULL,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE "groups" (
			id INTEGER PRIMARY KEY,
			team_id INTEGER NOT NULL,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, level := range domain.Levels() {
		ddl = append(ddl, `CREATE TABLE "`+level.AssignmentTable()+`" (
			id INTEGER PRIMARY KEY,
			scope_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			is_primary BOOLEAN NOT NULL DEFAULT FALSE,
			start_date DATETIME NOT NULL,
			end_date DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`)
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewStore(db, node, clk), db, clk
}

func seedEntity(t *testing.T, db *gorm.DB, level domain.Level, id, parentID snowflake.ID, code string) {
	t.Helper()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if col := level.ParentColumn(); col != "" {
		require.NoError(t, db.Exec(
			`INSERT INTO "`+level.Table()+`" (id, `+col+`, code, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			id, parentID, code, code, now, now,
		).Error)
		return
	}
	require.NoError(t, db.Exec(
		`INSERT INTO "`+level.Table()+`" (id, code, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, code, code, now, now,
	).Error)
}

func TestAddManagerDemotesExistingPrimary(t *testing.T) {
	store, db, _ := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelTeam, 100, 10, "T-ASSEMBLY")

	require.NoError(t, store.AddManager(ctx, domain.LevelTeam, &domain.ManagerAssignment{
		ScopeID: 100, UserID: 1, IsPrimary: true,
	}))
	require.NoError(t, store.AddManager(ctx, domain.LevelTeam, &domain.ManagerAssignment{
		ScopeID: 100, UserID: 2, IsPrimary: true,
	}))

	managers, err := store.GetManagers(ctx, domain.LevelTeam, 100)
	require.NoError(t, err)
	require.Len(t, managers, 2)

	var primaries int
	for _, m := range managers {
		if m.IsPrimary {
			primaries++
			assert.Equal(t, snowflake.ID(2), m.UserID)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestAddManagerDemotesDatedPrimary(t *testing.T) {
	store, db, clk := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelTeam, 110, 10, "T-PAINT")

	// A dated primary sits outside the partial unique index, so the
	// demote pass inside the transaction is what upholds the single
	// primary. Both assignments here carry future end dates.
	firstEnd := clk.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, store.AddManager(ctx, domain.LevelTeam, &domain.ManagerAssignment{
		ScopeID: 110, UserID: 1, IsPrimary: true, EndDate: &firstEnd,
	}))
	secondEnd := clk.Now().Add(60 * 24 * time.Hour)
	require.NoError(t, store.AddManager(ctx, domain.LevelTeam, &domain.ManagerAssignment{
		ScopeID: 110, UserID: 2, IsPrimary: true, EndDate: &secondEnd,
	}))

	managers, err := store.GetManagers(ctx, domain.LevelTeam, 110)
	require.NoError(t, err)
	require.Len(t, managers, 2)

	var primaries int
	for _, m := range managers {
		if m.IsPrimary {
			primaries++
			assert.Equal(t, snowflake.ID(2), m.UserID)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestUpdateManagerPromotionDemotesOthers(t *testing.T) {
	store, db, _ := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelLine, 200, 10, "L-01")

	require.NoError(t, store.AddManager(ctx, domain.LevelLine, &domain.ManagerAssignment{
		ScopeID: 200, UserID: 1, IsPrimary: true,
	}))
	require.NoError(t, store.AddManager(ctx, domain.LevelLine, &domain.ManagerAssignment{
		ScopeID: 200, UserID: 2,
	}))

	isPrimary := true
	require.NoError(t, store.UpdateManager(ctx, domain.LevelLine, 200, 2, domain.ManagerPatch{IsPrimary: &isPrimary}))

	managers, err := store.GetManagers(ctx, domain.LevelLine, 200)
	require.NoError(t, err)
	require.Len(t, managers, 2)
	assert.Equal(t, snowflake.ID(2), managers[0].UserID)
	assert.True(t, managers[0].IsPrimary)
	assert.False(t, managers[1].IsPrimary)
}

func TestRemoveManagerIsSoft(t *testing.T) {
	store, db, clk := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelGroup, 300, 20, "G-A")

	require.NoError(t, store.AddManager(ctx, domain.LevelGroup, &domain.ManagerAssignment{
		ScopeID: 300, UserID: 7,
	}))
	clk.Advance(time.Hour)
	require.NoError(t, store.RemoveManager(ctx, domain.LevelGroup, 300, 7))

	managers, err := store.GetManagers(ctx, domain.LevelGroup, 300)
	require.NoError(t, err)
	assert.Empty(t, managers)

	// The row survives with an end_date.
	var count int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(1) FROM group_managers WHERE scope_id = ? AND user_id = ? AND end_date IS NOT NULL`,
		300, 7,
	).Scan(&count).Error)
	assert.Equal(t, int64(1), count)

	err = store.RemoveManager(ctx, domain.LevelGroup, 300, 7)
	assert.ErrorIs(t, err, domain.ErrAssignmentNotFound)
}

func TestGetManagersOrdering(t *testing.T) {
	store, db, clk := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelFactory, 400, 0, "F-NORTH")

	require.NoError(t, store.AddManager(ctx, domain.LevelFactory, &domain.ManagerAssignment{
		ScopeID: 400, UserID: 1,
	}))
	clk.Advance(time.Hour)
	require.NoError(t, store.AddManager(ctx, domain.LevelFactory, &domain.ManagerAssignment{
		ScopeID: 400, UserID: 2,
	}))
	clk.Advance(time.Hour)
	require.NoError(t, store.AddManager(ctx, domain.LevelFactory, &domain.ManagerAssignment{
		ScopeID: 400, UserID: 3, IsPrimary: true,
	}))

	managers, err := store.GetManagers(ctx, domain.LevelFactory, 400)
	require.NoError(t, err)
	require.Len(t, managers, 3)

	// Primary first, then newest start date.
	assert.Equal(t, snowflake.ID(3), managers[0].UserID)
	assert.Equal(t, snowflake.ID(2), managers[1].UserID)
	assert.Equal(t, snowflake.ID(1), managers[2].UserID)
}

func TestHasChildren(t *testing.T) {
	store, db, _ := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelFactory, 1, 0, "F-01")
	seedEntity(t, db, domain.LevelLine, 2, 1, "L-01")
	seedEntity(t, db, domain.LevelTeam, 3, 2, "T-01")
	seedEntity(t, db, domain.LevelGroup, 4, 3, "G-01")

	has, err := store.HasChildren(ctx, domain.LevelFactory, 1)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.HasChildren(ctx, domain.LevelGroup, 4)
	require.NoError(t, err)
	assert.False(t, has)

	// A group with an active assignment counts as in use.
	require.NoError(t, store.AddManager(ctx, domain.LevelGroup, &domain.ManagerAssignment{
		ScopeID: 4, UserID: 9,
	}))
	has, err = store.HasChildren(ctx, domain.LevelGroup, 4)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestParentAndChildNavigation(t *testing.T) {
	store, db, _ := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelFactory, 1, 0, "F-01")
	seedEntity(t, db, domain.LevelLine, 2, 1, "L-01")
	seedEntity(t, db, domain.LevelLine, 3, 1, "L-02")

	parentID, err := store.ParentID(ctx, domain.LevelLine, 2)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1), parentID)

	ids, err := store.ListChildIDs(ctx, domain.LevelLine, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []snowflake.ID{2, 3}, ids)

	nodes, err := store.ListChildren(ctx, domain.LevelLine, 1)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "L-01", nodes[0].Code)

	ok, err := store.EntityExists(ctx, domain.LevelLine, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.EntityExists(ctx, domain.LevelLine, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDirectScopes(t *testing.T) {
	store, db, _ := newTestStore(t)
	ctx := context.Background()

	seedEntity(t, db, domain.LevelTeam, 10, 1, "T-A")
	seedEntity(t, db, domain.LevelTeam, 11, 1, "T-B")

	require.NoError(t, store.AddManager(ctx, domain.LevelTeam, &domain.ManagerAssignment{ScopeID: 10, UserID: 5}))
	require.NoError(t, store.AddManager(ctx, domain.LevelTeam, &domain.ManagerAssignment{ScopeID: 11, UserID: 5}))
	require.NoError(t, store.RemoveManager(ctx, domain.LevelTeam, 11, 5))

	scopes, err := store.DirectScopes(ctx, domain.LevelTeam, 5)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{10}, scopes)

	ok, err := store.IsDirectManager(ctx, domain.LevelTeam, 10, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.IsDirectManager(ctx, domain.LevelTeam, 11, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}
