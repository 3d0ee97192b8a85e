// Package facet implements the behavior shared by the factory, line,
// team and group modules: the validation hooks around the crud engine
// and the manager-assignment operations. Each module instantiates one
// Service for its level.
package facet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/millwise/shopfloor/internal/apperror"
	auditdomain "github.com/millwise/shopfloor/internal/audit/domain"
	"github.com/millwise/shopfloor/internal/hierarchy/domain"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"github.com/millwise/shopfloor/pkg/crud"
	"go.uber.org/zap"
)

// Entity extends the crud model constraint with the tree accessors the
// shared hooks need.
type Entity[T any] interface {
	crud.Model[T]
	ParentRef() snowflake.ID
	EntityCode() string
	EntityName() string
	SetCode(code string)
}

type Params struct {
	Store    domain.Store
	Resolver domain.Resolver
	Roles    rolesdomain.Service
	Identity identitydomain.Service
	Audit    auditdomain.Service
	Log      *zap.Logger
}

type Service[T any, PT Entity[T]] struct {
	level    domain.Level
	store    domain.Store
	resolver domain.Resolver
	roles    rolesdomain.Service
	identity identitydomain.Service
	audit    auditdomain.Service
	log      *zap.Logger
}

func NewService[T any, PT Entity[T]](level domain.Level, p Params) *Service[T, PT] {
	return &Service[T, PT]{
		level:    level,
		store:    p.Store,
		resolver: p.Resolver,
		roles:    p.Roles,
		identity: p.Identity,
		audit:    p.Audit,
		log:      p.Log.Named(level.String() + ".service"),
	}
}

// Hooks returns the validation hooks wired into this level's crud engine.
func (s *Service[T, PT]) Hooks() crud.Hooks[T] {
	return crud.Hooks[T]{
		ValidateCreate: s.validateCreate,
		ValidateUpdate: s.validateUpdate,
		ValidateDelete: s.validateDelete,
	}
}

func (s *Service[T, PT]) validateCreate(ctx context.Context, requester identitydomain.Requester, entity *T) error {
	pt := PT(entity)

	name := strings.TrimSpace(pt.EntityName())
	if name == "" {
		return apperror.Validation(apperror.Field("name", "required", "name is required"))
	}

	code := strings.TrimSpace(pt.EntityCode())
	if code == "" {
		code = slug.Make(name)
	}
	pt.SetCode(code)

	parentLevel, hasParent := s.level.Parent()
	if hasParent {
		parentID := pt.ParentRef()
		if parentID == 0 {
			return apperror.Validation(apperror.Field(
				s.level.ParentColumn(), "required", parentLevel.String()+" id is required",
			))
		}
		exists, err := s.store.EntityExists(ctx, parentLevel, parentID)
		if err != nil {
			return apperror.Internal(err)
		}
		if !exists {
			return apperror.Validation(apperror.Field(
				s.level.ParentColumn(), "not_found", parentLevel.String()+" does not exist",
			))
		}
		if err := s.requireManage(ctx, requester, parentLevel, parentID); err != nil {
			return err
		}
	} else {
		admin, err := s.roles.HasGlobalAdmin(ctx, requester.SubjectID)
		if err != nil {
			return apperror.Internal(err)
		}
		if !admin {
			return apperror.Forbidden("only administrators may create factories")
		}
	}

	dup, err := s.store.CodeExists(ctx, s.level, code, 0)
	if err != nil {
		return apperror.Internal(err)
	}
	if dup {
		return apperror.Conflict("code already in use")
	}

	dup, err = s.store.NameExistsUnderParent(ctx, s.level, name, pt.ParentRef(), 0)
	if err != nil {
		return apperror.Internal(err)
	}
	if dup {
		return apperror.Conflict("name already in use")
	}
	return nil
}

func (s *Service[T, PT]) validateUpdate(ctx context.Context, requester identitydomain.Requester, current, patch *T) error {
	cur := PT(current)
	pt := PT(patch)

	if err := s.requireManage(ctx, requester, s.level, cur.RecordID()); err != nil {
		return err
	}

	if parentID := pt.ParentRef(); parentID != 0 && parentID != cur.ParentRef() {
		parentLevel, ok := s.level.Parent()
		if !ok {
			return apperror.BadRequest("factories cannot be reparented")
		}
		exists, err := s.store.EntityExists(ctx, parentLevel, parentID)
		if err != nil {
			return apperror.Internal(err)
		}
		if !exists {
			return apperror.Validation(apperror.Field(
				s.level.ParentColumn(), "not_found", parentLevel.String()+" does not exist",
			))
		}
		if err := s.requireManage(ctx, requester, parentLevel, parentID); err != nil {
			return err
		}
	}

	if code := strings.TrimSpace(pt.EntityCode()); code != "" && code != cur.EntityCode() {
		pt.SetCode(code)
		dup, err := s.store.CodeExists(ctx, s.level, code, cur.RecordID())
		if err != nil {
			return apperror.Internal(err)
		}
		if dup {
			return apperror.Conflict("code already in use")
		}
	}

	if name := strings.TrimSpace(pt.EntityName()); name != "" && name != cur.EntityName() {
		parentID := pt.ParentRef()
		if parentID == 0 {
			parentID = cur.ParentRef()
		}
		dup, err := s.store.NameExistsUnderParent(ctx, s.level, name, parentID, cur.RecordID())
		if err != nil {
			return apperror.Internal(err)
		}
		if dup {
			return apperror.Conflict("name already in use")
		}
	}
	return nil
}

func (s *Service[T, PT]) validateDelete(ctx context.Context, requester identitydomain.Requester, current *T) error {
	cur := PT(current)

	if err := s.requireManage(ctx, requester, s.level, cur.RecordID()); err != nil {
		return err
	}

	inUse, err := s.store.HasChildren(ctx, s.level, cur.RecordID())
	if err != nil {
		return apperror.Internal(err)
	}
	if inUse {
		return apperror.Conflict(s.level.String() + " is in use")
	}
	return nil
}

// requireManage maps the resolver verdict onto the error taxonomy.
func (s *Service[T, PT]) requireManage(ctx context.Context, requester identitydomain.Requester, level domain.Level, id snowflake.ID) error {
	ok, err := s.resolver.CanManage(ctx, requester.SubjectID, id, level)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return apperror.NotFound(level.String() + " not found")
		}
		return apperror.Internal(err)
	}
	if !ok {
		return apperror.Forbidden("not a manager of this " + level.String())
	}
	return nil
}

// AssignManagerInput is the body of a manager assignment.
type AssignManagerInput struct {
	UserID    snowflake.ID `json:"user_id"`
	IsPrimary bool         `json:"is_primary"`
	StartDate *time.Time   `json:"start_date,omitempty"`
	EndDate   *time.Time   `json:"end_date,omitempty"`
}

func (s *Service[T, PT]) ListManagers(ctx context.Context, requester identitydomain.Requester, id snowflake.ID) ([]domain.ManagerAssignment, error) {
	if err := s.requireManage(ctx, requester, s.level, id); err != nil {
		return nil, err
	}
	managers, err := s.store.GetManagers(ctx, s.level, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return managers, nil
}

func (s *Service[T, PT]) AssignManager(ctx context.Context, requester identitydomain.Requester, id snowflake.ID, input AssignManagerInput) (*domain.ManagerAssignment, error) {
	if input.UserID == 0 {
		return nil, apperror.Validation(apperror.Field("user_id", "required", "user id is required"))
	}
	if err := s.requireManage(ctx, requester, s.level, id); err != nil {
		return nil, err
	}

	exists, err := s.identity.Exists(ctx, input.UserID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !exists {
		return nil, apperror.Validation(apperror.Field("user_id", "not_found", "user does not exist"))
	}

	assignment := &domain.ManagerAssignment{
		ScopeID:   id,
		UserID:    input.UserID,
		IsPrimary: input.IsPrimary,
		EndDate:   input.EndDate,
	}
	if input.StartDate != nil {
		assignment.StartDate = input.StartDate.UTC()
	}
	if err := s.store.AddManager(ctx, s.level, assignment); err != nil {
		return nil, apperror.Internal(err)
	}

	s.recordManagerAction(ctx, requester, "manager.assign", id, input.UserID)
	return assignment, nil
}

func (s *Service[T, PT]) UpdateManager(ctx context.Context, requester identitydomain.Requester, id, userID snowflake.ID, patch domain.ManagerPatch) error {
	if err := s.requireManage(ctx, requester, s.level, id); err != nil {
		return err
	}
	if err := s.store.UpdateManager(ctx, s.level, id, userID, patch); err != nil {
		if errors.Is(err, domain.ErrAssignmentNotFound) {
			return apperror.NotFound("assignment not found")
		}
		return apperror.Internal(err)
	}
	s.recordManagerAction(ctx, requester, "manager.update", id, userID)
	return nil
}

func (s *Service[T, PT]) RemoveManager(ctx context.Context, requester identitydomain.Requester, id, userID snowflake.ID) error {
	if err := s.requireManage(ctx, requester, s.level, id); err != nil {
		return err
	}
	if err := s.store.RemoveManager(ctx, s.level, id, userID); err != nil {
		if errors.Is(err, domain.ErrAssignmentNotFound) {
			return apperror.NotFound("assignment not found")
		}
		return apperror.Internal(err)
	}
	s.recordManagerAction(ctx, requester, "manager.remove", id, userID)
	return nil
}

// CanManage answers the authority question for one entity without
// mutating anything.
func (s *Service[T, PT]) CanManage(ctx context.Context, requester identitydomain.Requester, id snowflake.ID) (bool, error) {
	ok, err := s.resolver.CanManage(ctx, requester.SubjectID, id, s.level)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return false, apperror.NotFound(s.level.String() + " not found")
		}
		return false, apperror.Internal(err)
	}
	return ok, nil
}

// Accessible lists the entity ids of this level the requester manages.
func (s *Service[T, PT]) Accessible(ctx context.Context, requester identitydomain.Requester) ([]snowflake.ID, error) {
	ids, err := s.resolver.AccessibleEntities(ctx, requester.SubjectID, s.level)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if ids == nil {
		ids = []snowflake.ID{}
	}
	return ids, nil
}

func (s *Service[T, PT]) Level() domain.Level { return s.level }

func (s *Service[T, PT]) recordManagerAction(ctx context.Context, requester identitydomain.Requester, action string, scopeID, userID snowflake.ID) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, requester.SubjectID, s.level.String()+"."+action, s.level.String(), scopeID.String(), map[string]any{
		"user_id": userID.String(),
	})
}
