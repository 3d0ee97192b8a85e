// Package resolver answers managerial-authority questions over the
// containment tree. Authority is delegated downward: a manager of an
// entity manages everything beneath it.
package resolver

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/internal/hierarchy/domain"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"go.uber.org/zap"
)

type resolver struct {
	store domain.Store
	roles rolesdomain.Service
	log   *zap.Logger
}

func New(store domain.Store, roles rolesdomain.Service, log *zap.Logger) domain.Resolver {
	return &resolver{store: store, roles: roles, log: log.Named("hierarchy.resolver")}
}

// CanManage walks from the entity toward the root, one hop per level, and
// succeeds on the first level where the user holds an active assignment.
// The walk is bounded by the fixed tree depth.
func (r *resolver) CanManage(ctx context.Context, userID, entityID snowflake.ID, level domain.Level) (bool, error) {
	admin, err := r.roles.HasGlobalAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}

	exists, err := r.store.EntityExists(ctx, level, entityID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrEntityNotFound
	}

	current := entityID
	for hop := 0; hop < domain.MaxDepth; hop++ {
		direct, err := r.store.IsDirectManager(ctx, level, current, userID)
		if err != nil {
			return false, err
		}
		if direct {
			return true, nil
		}

		parent, ok := level.Parent()
		if !ok {
			return false, nil
		}
		parentID, err := r.store.ParentID(ctx, level, current)
		if err != nil {
			return false, err
		}
		if parentID == 0 {
			// Orphaned row; deny rather than guess.
			r.log.Warn("entity has no parent",
				zap.String("level", level.String()),
				zap.Int64("entity_id", current.Int64()),
			)
			return false, nil
		}
		level = parent
		current = parentID
	}
	return false, nil
}

// AccessibleEntities lists the entities of one level the user manages,
// directly or through an ancestor assignment.
func (r *resolver) AccessibleEntities(ctx context.Context, userID snowflake.ID, level domain.Level) ([]snowflake.ID, error) {
	admin, err := r.roles.HasGlobalAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if admin {
		return r.store.AllIDs(ctx, level)
	}

	access, err := r.resolveAccess(ctx, userID, level)
	if err != nil {
		return nil, err
	}
	return access[level], nil
}

func (r *resolver) ManagerialAccess(ctx context.Context, userID snowflake.ID) (*domain.Access, error) {
	admin, err := r.roles.HasGlobalAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	access := &domain.Access{}
	for _, level := range domain.Levels() {
		var ids []snowflake.ID
		if admin {
			ids, err = r.store.AllIDs(ctx, level)
		} else {
			ids, err = r.AccessibleEntities(ctx, userID, level)
		}
		if err != nil {
			return nil, err
		}
		switch level {
		case domain.LevelFactory:
			access.Factories = ids
		case domain.LevelLine:
			access.Lines = ids
		case domain.LevelTeam:
			access.Teams = ids
		case domain.LevelGroup:
			access.Groups = ids
		}
	}
	return access, nil
}

// resolveAccess accumulates accessibility top-down: at each level the set
// is the user's direct scopes plus every child of an accessible entity
// one level up.
func (r *resolver) resolveAccess(ctx context.Context, userID snowflake.ID, until domain.Level) (map[domain.Level][]snowflake.ID, error) {
	access := make(map[domain.Level][]snowflake.ID, domain.MaxDepth)

	for _, level := range domain.Levels() {
		seen := make(map[snowflake.ID]struct{})
		var ids []snowflake.ID

		direct, err := r.store.DirectScopes(ctx, level, userID)
		if err != nil {
			return nil, err
		}
		for _, id := range direct {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}

		if parent, ok := level.Parent(); ok {
			for _, parentID := range access[parent] {
				children, err := r.store.ListChildIDs(ctx, level, parentID)
				if err != nil {
					return nil, err
				}
				for _, id := range children {
					if _, ok := seen[id]; ok {
						continue
					}
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
		}

		access[level] = ids
		if level == until {
			break
		}
	}
	return access, nil
}
