// Package repository implements the per-level hierarchy facets over one
// raw-SQL gorm store, keyed by Level.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/hierarchy/domain"
	"gorm.io/gorm"
)

type store struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewStore(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) domain.Store {
	return &store{db: db, genID: genID, clock: clk}
}

// activeCond matches currently-active assignments; the bind value is the
// evaluation instant.
const activeCond = "(end_date IS NULL OR end_date > ?)"

func (s *store) EntityExists(ctx context.Context, level domain.Level, id snowflake.ID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COUNT(1) FROM %q WHERE id = ?`, level.Table()),
		id,
	).Scan(&count).Error
	return count > 0, err
}

func (s *store) ParentID(ctx context.Context, level domain.Level, id snowflake.ID) (snowflake.ID, error) {
	parentCol := level.ParentColumn()
	if parentCol == "" {
		return 0, nil
	}
	var parentID snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT %s FROM %q WHERE id = ?`, parentCol, level.Table()),
		id,
	).Scan(&parentID).Error
	if err != nil {
		return 0, err
	}
	return parentID, nil
}

func (s *store) ListChildren(ctx context.Context, level domain.Level, parentID snowflake.ID) ([]domain.Node, error) {
	parentCol := level.ParentColumn()
	if parentCol == "" {
		return nil, domain.ErrUnknownLevel
	}
	var nodes []domain.Node
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(
			`SELECT id, code, name, %s AS parent_id FROM %q WHERE %s = ? ORDER BY created_at ASC, id ASC`,
			parentCol, level.Table(), parentCol,
		),
		parentID,
	).Scan(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *store) ListChildIDs(ctx context.Context, level domain.Level, parentID snowflake.ID) ([]snowflake.ID, error) {
	parentCol := level.ParentColumn()
	if parentCol == "" {
		return nil, domain.ErrUnknownLevel
	}
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT id FROM %q WHERE %s = ?`, level.Table(), parentCol),
		parentID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *store) HasChildren(ctx context.Context, level domain.Level, id snowflake.ID) (bool, error) {
	child, ok := level.Child()
	if !ok {
		// Leaf level: an entity with active assignments is still in use.
		var count int64
		err := s.db.WithContext(ctx).Raw(
			fmt.Sprintf(`SELECT COUNT(1) FROM %q WHERE scope_id = ? AND %s`, level.AssignmentTable(), activeCond),
			id,
			s.clock.Now(),
		).Scan(&count).Error
		return count > 0, err
	}

	var count int64
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COUNT(1) FROM %q WHERE %s = ?`, child.Table(), child.ParentColumn()),
		id,
	).Scan(&count).Error
	return count > 0, err
}

func (s *store) AllIDs(ctx context.Context, level domain.Level) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT id FROM %q`, level.Table()),
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *store) CodeExists(ctx context.Context, level domain.Level, code string, excludeID snowflake.ID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COUNT(1) FROM %q WHERE code = ? AND id <> ?`, level.Table()),
		code,
		excludeID,
	).Scan(&count).Error
	return count > 0, err
}

func (s *store) NameExistsUnderParent(ctx context.Context, level domain.Level, name string, parentID, excludeID snowflake.ID) (bool, error) {
	parentCol := level.ParentColumn()
	var count int64
	var err error
	if parentCol == "" {
		err = s.db.WithContext(ctx).Raw(
			fmt.Sprintf(`SELECT COUNT(1) FROM %q WHERE name = ? AND id <> ?`, level.Table()),
			name,
			excludeID,
		).Scan(&count).Error
	} else {
		err = s.db.WithContext(ctx).Raw(
			fmt.Sprintf(`SELECT COUNT(1) FROM %q WHERE name = ? AND %s = ? AND id <> ?`, level.Table(), parentCol),
			name,
			parentID,
			excludeID,
		).Scan(&count).Error
	}
	return count > 0, err
}

func (s *store) IsDirectManager(ctx context.Context, level domain.Level, entityID, userID snowflake.ID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(
			`SELECT COUNT(1) FROM %q WHERE scope_id = ? AND user_id = ? AND %s`,
			level.AssignmentTable(), activeCond,
		),
		entityID,
		userID,
		s.clock.Now(),
	).Scan(&count).Error
	return count > 0, err
}

// lockScope takes a write lock on the scope's entity row so that
// concurrent primary-manager writes against the same scope serialize.
// The partial unique index only covers active rows with a NULL
// end_date, so a dated assignment would otherwise slip past it.
func (s *store) lockScope(ctx context.Context, tx *gorm.DB, level domain.Level, scopeID snowflake.ID) error {
	return tx.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %q SET id = id WHERE id = ?`, level.Table()),
		scopeID,
	).Error
}

// AddManager inserts one assignment. When the new assignment is primary,
// the scope row is locked and every other active assignment of the scope
// is demoted in the same transaction.
func (s *store) AddManager(ctx context.Context, level domain.Level, assignment *domain.ManagerAssignment) error {
	now := s.clock.Now()
	if assignment.ID == 0 {
		assignment.ID = s.genID.Generate()
	}
	if assignment.StartDate.IsZero() {
		assignment.StartDate = now
	}
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if assignment.IsPrimary {
			if err := s.lockScope(ctx, tx, level, assignment.ScopeID); err != nil {
				return err
			}
			if err := s.demoteOthers(ctx, tx, level, assignment.ScopeID, 0, now); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).Exec(
			fmt.Sprintf(
				`INSERT INTO %q (id, scope_id, user_id, is_primary, start_date, end_date, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				level.AssignmentTable(),
			),
			assignment.ID,
			assignment.ScopeID,
			assignment.UserID,
			assignment.IsPrimary,
			assignment.StartDate,
			assignment.EndDate,
			assignment.CreatedAt,
			assignment.UpdatedAt,
		).Error
	})
}

func (s *store) UpdateManager(ctx context.Context, level domain.Level, entityID, userID snowflake.ID, patch domain.ManagerPatch) error {
	now := s.clock.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if patch.IsPrimary != nil && *patch.IsPrimary {
			if err := s.lockScope(ctx, tx, level, entityID); err != nil {
				return err
			}
			if err := s.demoteOthers(ctx, tx, level, entityID, userID, now); err != nil {
				return err
			}
		}

		set := "updated_at = ?"
		args := []any{now}
		if patch.IsPrimary != nil {
			set += ", is_primary = ?"
			args = append(args, *patch.IsPrimary)
		}
		if patch.EndDate != nil {
			set += ", end_date = ?"
			args = append(args, patch.EndDate.UTC())
		}
		args = append(args, entityID, userID, now)

		result := tx.WithContext(ctx).Exec(
			fmt.Sprintf(
				`UPDATE %q SET %s WHERE scope_id = ? AND user_id = ? AND %s`,
				level.AssignmentTable(), set, activeCond,
			),
			args...,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrAssignmentNotFound
		}
		return nil
	})
}

// RemoveManager soft-removes: the row survives with end_date set to now.
func (s *store) RemoveManager(ctx context.Context, level domain.Level, entityID, userID snowflake.ID) error {
	now := s.clock.Now()
	result := s.db.WithContext(ctx).Exec(
		fmt.Sprintf(
			`UPDATE %q SET end_date = ?, updated_at = ? WHERE scope_id = ? AND user_id = ? AND %s`,
			level.AssignmentTable(), activeCond,
		),
		now,
		now,
		entityID,
		userID,
		now,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAssignmentNotFound
	}
	return nil
}

func (s *store) GetManagers(ctx context.Context, level domain.Level, entityID snowflake.ID) ([]domain.ManagerAssignment, error) {
	var assignments []domain.ManagerAssignment
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(
			`SELECT id, scope_id, user_id, is_primary, start_date, end_date, created_at, updated_at
			 FROM %q
			 WHERE scope_id = ? AND %s
			 ORDER BY is_primary DESC, start_date DESC`,
			level.AssignmentTable(), activeCond,
		),
		entityID,
		s.clock.Now(),
	).Scan(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *store) DirectScopes(ctx context.Context, level domain.Level, userID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(
			`SELECT DISTINCT scope_id FROM %q WHERE user_id = ? AND %s`,
			level.AssignmentTable(), activeCond,
		),
		userID,
		s.clock.Now(),
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// demoteOthers clears the primary flag on every other active assignment
// of the scope. exceptUserID 0 demotes all of them.
func (s *store) demoteOthers(ctx context.Context, tx *gorm.DB, level domain.Level, scopeID, exceptUserID snowflake.ID, now time.Time) error {
	query := fmt.Sprintf(
		`UPDATE %q SET is_primary = ?, updated_at = ? WHERE scope_id = ? AND is_primary = ? AND %s`,
		level.AssignmentTable(), activeCond,
	)
	args := []any{false, now, scopeID, true, now}
	if exceptUserID != 0 {
		query += " AND user_id <> ?"
		args = append(args, exceptUserID)
	}
	return tx.WithContext(ctx).Exec(query, args...).Error
}
