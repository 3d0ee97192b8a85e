// Package repository provides the generic persistence contract every
// entity store satisfies. Conditions are typed filter values of the entity
// itself, never open-ended maps.
package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository is the typed store contract for one entity type.
type Repository[T any] interface {
	// Get returns nil, nil when the id does not resolve; absence is not
	// an error at this layer.
	Get(ctx context.Context, id snowflake.ID) (*T, error)

	// FindByCond returns the first entity matching the non-zero fields of
	// cond, in store order. When several rows match, which one comes back
	// is not deterministic; nothing at this layer enforces uniqueness.
	FindByCond(ctx context.Context, cond *T) (*T, error)

	// List returns one page of matches plus the total match count
	// unfiltered by paging.
	List(ctx context.Context, cond *T, pg pagination.Pagination) ([]*T, int64, error)

	// Insert persists an entity that already carries its id and timestamps.
	Insert(ctx context.Context, entity *T) error

	// Update applies a partial patch. Struct patches skip zero-valued
	// fields, so an explicitly nulled field is indistinguishable from an
	// omitted one.
	Update(ctx context.Context, id snowflake.ID, patch any) error

	// Delete removes the row. Hard delete; soft deletion, where needed,
	// belongs to concrete repositories.
	Delete(ctx context.Context, id snowflake.ID) error

	WithTx(tx *gorm.DB) Repository[T]
}
