// Package crud assembles the generic create/read/update/delete plumbing:
// a typed Engine over the generic repository, a gin Controller and the
// route assembler. Concrete modules contribute entity-specific behavior
// through Hooks values.
package crud

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/millwise/shopfloor/internal/apperror"
	auditdomain "github.com/millwise/shopfloor/internal/audit/domain"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/events"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	"github.com/millwise/shopfloor/pkg/db"
	"github.com/millwise/shopfloor/pkg/db/pagination"
	"github.com/millwise/shopfloor/pkg/repository"
	"go.uber.org/zap"
)

// Model constrains PT to a pointer type carrying the bookkeeping every
// managed entity has.
type Model[T any] interface {
	*T
	Stamp(id snowflake.ID, now time.Time)
	Touched(now time.Time)
	RecordID() snowflake.ID
}

// Authorizer answers whether a requester may perform an action on an
// object class. A nil return means allowed.
type Authorizer interface {
	Enforce(ctx context.Context, requester identitydomain.Requester, object, action string) error
}

// Hooks carries the entity-specific checks the engine calls around each
// operation. Every field is optional; a nil CheckPermission falls back to
// the authorizer with the engine's object name and the action.
type Hooks[T any] struct {
	CheckPermission func(ctx context.Context, requester identitydomain.Requester, action string, entity *T) error
	ValidateCreate  func(ctx context.Context, requester identitydomain.Requester, entity *T) error
	ValidateUpdate  func(ctx context.Context, requester identitydomain.Requester, current *T, patch *T) error
	ValidateDelete  func(ctx context.Context, requester identitydomain.Requester, current *T) error
	// ListCond narrows List to what the requester may see. Nil means no
	// narrowing beyond the caller's filter.
	ListCond func(ctx context.Context, requester identitydomain.Requester) (*T, error)
}

type EngineParams[T any] struct {
	Name       string
	Object     string
	Repo       repository.Repository[T]
	Authorizer Authorizer
	Audit      auditdomain.Service
	Events     *events.Bus
	GenID      *snowflake.Node
	Clock      clock.Clock
	Log        *zap.Logger
	Hooks      Hooks[T]
}

// Engine orchestrates the five operations for one entity type. All
// errors leaving it are *apperror.Error.
type Engine[T any, PT Model[T]] struct {
	name   string
	object string
	repo   repository.Repository[T]
	authz  Authorizer
	audit  auditdomain.Service
	events *events.Bus
	genID  *snowflake.Node
	clock  clock.Clock
	log    *zap.Logger
	hooks  Hooks[T]
}

func NewEngine[T any, PT Model[T]](p EngineParams[T]) *Engine[T, PT] {
	return &Engine[T, PT]{
		name:   p.Name,
		object: p.Object,
		repo:   p.Repo,
		authz:  p.Authorizer,
		audit:  p.Audit,
		events: p.Events,
		genID:  p.GenID,
		clock:  p.Clock,
		log:    p.Log.Named(p.Name + ".engine"),
		hooks:  p.Hooks,
	}
}

func (e *Engine[T, PT]) checkPermission(ctx context.Context, requester identitydomain.Requester, action string, entity *T) error {
	if e.hooks.CheckPermission != nil {
		return e.hooks.CheckPermission(ctx, requester, action, entity)
	}
	if e.authz != nil {
		return e.authz.Enforce(ctx, requester, e.object, action)
	}
	return nil
}

// Create stamps a fresh id and timestamps onto entity; caller-supplied
// ids are discarded.
func (e *Engine[T, PT]) Create(ctx context.Context, requester identitydomain.Requester, entity *T) (*T, error) {
	if err := e.checkPermission(ctx, requester, "create", entity); err != nil {
		return nil, apperror.From(err)
	}
	if e.hooks.ValidateCreate != nil {
		if err := e.hooks.ValidateCreate(ctx, requester, entity); err != nil {
			return nil, apperror.From(err)
		}
	}

	PT(entity).Stamp(e.genID.Generate(), e.clock.Now())
	if err := e.repo.Insert(ctx, entity); err != nil {
		// validation races lose to the unique indexes
		if db.IsDuplicateKeyErr(err) {
			return nil, apperror.Conflict(e.name + " already exists")
		}
		return nil, apperror.Internal(err)
	}

	e.record(ctx, requester, "create", entity)
	return entity, nil
}

func (e *Engine[T, PT]) Get(ctx context.Context, requester identitydomain.Requester, id snowflake.ID) (*T, error) {
	entity, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if entity == nil {
		return nil, apperror.NotFound(e.name + " not found")
	}
	if err := e.checkPermission(ctx, requester, "read", entity); err != nil {
		return nil, apperror.From(err)
	}
	return entity, nil
}

func (e *Engine[T, PT]) List(ctx context.Context, requester identitydomain.Requester, cond *T, pg pagination.Pagination) (*pagination.Result[T], error) {
	if err := e.checkPermission(ctx, requester, "read", nil); err != nil {
		return nil, apperror.From(err)
	}
	if e.hooks.ListCond != nil {
		scoped, err := e.hooks.ListCond(ctx, requester)
		if err != nil {
			return nil, apperror.From(err)
		}
		if scoped != nil {
			cond = scoped
		}
	}

	pg = pg.Normalize()
	data, total, err := e.repo.List(ctx, cond, pg)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &pagination.Result[T]{
		Data:  data,
		Page:  pg.Page,
		Limit: pg.Limit,
		Total: total,
	}, nil
}

// Update fetches, validates then applies the patch. Zero-valued patch
// fields are skipped by the store, so clearing a field needs a dedicated
// operation.
func (e *Engine[T, PT]) Update(ctx context.Context, requester identitydomain.Requester, id snowflake.ID, patch *T) (*T, error) {
	current, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if current == nil {
		return nil, apperror.NotFound(e.name + " not found")
	}
	if err := e.checkPermission(ctx, requester, "update", current); err != nil {
		return nil, apperror.From(err)
	}
	if e.hooks.ValidateUpdate != nil {
		if err := e.hooks.ValidateUpdate(ctx, requester, current, patch); err != nil {
			return nil, apperror.From(err)
		}
	}

	PT(patch).Touched(e.clock.Now())
	if err := e.repo.Update(ctx, id, patch); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, apperror.Conflict(e.name + " already exists")
		}
		return nil, apperror.Internal(err)
	}

	updated, err := e.repo.Get(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if updated == nil {
		return nil, apperror.NotFound(e.name + " not found")
	}

	e.record(ctx, requester, "update", updated)
	return updated, nil
}

func (e *Engine[T, PT]) Delete(ctx context.Context, requester identitydomain.Requester, id snowflake.ID) error {
	current, err := e.repo.Get(ctx, id)
	if err != nil {
		return apperror.Internal(err)
	}
	if current == nil {
		return apperror.NotFound(e.name + " not found")
	}
	if err := e.checkPermission(ctx, requester, "delete", current); err != nil {
		return apperror.From(err)
	}
	if e.hooks.ValidateDelete != nil {
		if err := e.hooks.ValidateDelete(ctx, requester, current); err != nil {
			return apperror.From(err)
		}
	}

	if err := e.repo.Delete(ctx, id); err != nil {
		return apperror.Internal(err)
	}

	e.record(ctx, requester, "delete", current)
	return nil
}

// record writes the audit entry and publishes the domain event. Both are
// best effort after the mutation has committed.
func (e *Engine[T, PT]) record(ctx context.Context, requester identitydomain.Requester, action string, entity *T) {
	id := PT(entity).RecordID()
	if e.audit != nil {
		e.audit.Record(ctx, requester.SubjectID, e.name+"."+action, e.name, id.String(), nil)
	}
	if e.events != nil {
		e.events.Publish(ctx, e.name+"."+action,
			map[string]any{"id": id.String()},
			requester.SubjectID.String(),
		)
	}
}
