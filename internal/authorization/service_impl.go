// Package authorization enforces the coarse role-to-object policy. It
// answers "may this role touch this object class at all"; scope checks
// against the containment tree belong to the hierarchy resolver.
package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/millwise/shopfloor/internal/apperror"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectFactory  = "factory"
	ObjectLine     = "line"
	ObjectTeam     = "team"
	ObjectGroup    = "group"
	ObjectUser     = "user"
	ObjectRole     = "role"
	ObjectAuditLog = "audit_log"
)

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionManagerAssign = "manager.assign"
	ActionManagerUpdate = "manager.update"
	ActionManagerRemove = "manager.remove"

	ActionRoleGrant  = "role.grant"
	ActionRoleRevoke = "role.revoke"
)

// Service is the coarse policy gate consulted by the crud engines before
// any entity-level check runs.
type Service interface {
	Enforce(ctx context.Context, requester identitydomain.Requester, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type service struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &service{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *service) Enforce(ctx context.Context, requester identitydomain.Requester, object, action string) error {
	if requester.SubjectID == 0 {
		return apperror.Unauthorized("authentication required")
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return apperror.Forbidden("forbidden")
	}

	role := strings.TrimSpace(requester.Role)
	if role == "" {
		role = rolesdomain.RoleWorker
	}
	subject := "user:" + requester.SubjectID.String()
	roleName := "role:" + strings.ToLower(role)

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return apperror.Internal(err)
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return apperror.Internal(err)
	}
	if !allowed {
		s.log.Debug("policy denied",
			zap.String("subject", subject),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		return apperror.Forbidden("forbidden")
	}
	return nil
}

// ensureGrouping keeps the subject bound to exactly the role its token
// carries; stale bindings from earlier tokens are dropped.
func (s *service) ensureGrouping(subject, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	entityObjects := []string{ObjectFactory, ObjectLine, ObjectTeam, ObjectGroup}
	managerActions := []string{ActionManagerAssign, ActionManagerUpdate, ActionManagerRemove}

	policies := [][]string{
		// Everyone authenticated may read the tree.
		{"role:worker", ObjectFactory, ActionRead},
		{"role:worker", ObjectLine, ActionRead},
		{"role:worker", ObjectTeam, ActionRead},
		{"role:worker", ObjectGroup, ActionRead},
	}

	// Leaders get write access to their own level and the classes
	// beneath it; the resolver narrows every request to their own
	// subtree, so a leader without a matching manager assignment is
	// still denied at the entity level.
	writable := map[string][]string{
		"role:group_leader":    {ObjectGroup},
		"role:team_leader":     {ObjectTeam, ObjectGroup},
		"role:line_manager":    {ObjectLine, ObjectTeam, ObjectGroup},
		"role:factory_manager": {ObjectFactory, ObjectLine, ObjectTeam, ObjectGroup},
	}
	for roleName, objects := range writable {
		for _, object := range entityObjects {
			policies = append(policies, []string{roleName, object, ActionRead})
		}
		for _, object := range objects {
			policies = append(policies,
				[]string{roleName, object, ActionCreate},
				[]string{roleName, object, ActionUpdate},
				[]string{roleName, object, ActionDelete},
			)
			for _, action := range managerActions {
				policies = append(policies, []string{roleName, object, action})
			}
		}
	}

	// Global admins may do anything on every object class.
	for _, roleName := range []string{"role:admin", "role:super_admin"} {
		for _, object := range []string{
			ObjectFactory, ObjectLine, ObjectTeam, ObjectGroup,
			ObjectUser, ObjectRole, ObjectAuditLog,
		} {
			policies = append(policies, []string{roleName, object, "*"})
		}
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
