package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ManagerPatch mutates one assignment. Setting Primary true triggers the
// demotion of every other active assignment in the same scope.
type ManagerPatch struct {
	IsPrimary *bool
	EndDate   *time.Time
}

// Store is the per-level repository facet, keyed by Level instead of four
// parallel types.
type Store interface {
	EntityExists(ctx context.Context, level Level, id snowflake.ID) (bool, error)
	ParentID(ctx context.Context, level Level, id snowflake.ID) (snowflake.ID, error)
	ListChildren(ctx context.Context, level Level, parentID snowflake.ID) ([]Node, error)
	ListChildIDs(ctx context.Context, level Level, parentID snowflake.ID) ([]snowflake.ID, error)
	// HasChildren guards deletion: true when entities one level down still
	// reference id. At the leaf level it reports active manager
	// assignments instead.
	HasChildren(ctx context.Context, level Level, id snowflake.ID) (bool, error)
	AllIDs(ctx context.Context, level Level) ([]snowflake.ID, error)

	// CodeExists checks codes across the whole level, not per parent.
	CodeExists(ctx context.Context, level Level, code string, excludeID snowflake.ID) (bool, error)
	// NameExistsUnderParent scopes name uniqueness to one parent. At the
	// root parentID is ignored.
	NameExistsUnderParent(ctx context.Context, level Level, name string, parentID, excludeID snowflake.ID) (bool, error)

	IsDirectManager(ctx context.Context, level Level, entityID, userID snowflake.ID) (bool, error)
	AddManager(ctx context.Context, level Level, assignment *ManagerAssignment) error
	UpdateManager(ctx context.Context, level Level, entityID, userID snowflake.ID, patch ManagerPatch) error
	RemoveManager(ctx context.Context, level Level, entityID, userID snowflake.ID) error
	GetManagers(ctx context.Context, level Level, entityID snowflake.ID) ([]ManagerAssignment, error)
	DirectScopes(ctx context.Context, level Level, userID snowflake.ID) ([]snowflake.ID, error)
}

// Access lists every entity a user may manage, per level.
type Access struct {
	Factories []snowflake.ID `json:"factories"`
	Lines     []snowflake.ID `json:"lines"`
	Teams     []snowflake.ID `json:"teams"`
	Groups    []snowflake.ID `json:"groups"`
}

// Resolver answers the two authorization questions of the tree.
type Resolver interface {
	// CanManage is true for global admins, direct managers of the entity,
	// and managers of any ancestor.
	CanManage(ctx context.Context, userID, entityID snowflake.ID, level Level) (bool, error)
	// AccessibleEntities unions direct assignments at the level with the
	// children of every accessible ancestor; the result is deduplicated.
	AccessibleEntities(ctx context.Context, userID snowflake.ID, level Level) ([]snowflake.ID, error)
	ManagerialAccess(ctx context.Context, userID snowflake.ID) (*Access, error)
}

var (
	ErrAssignmentNotFound = errors.New("assignment_not_found")
	ErrEntityNotFound     = errors.New("entity_not_found")
)
