package group

import (
	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/millwise/shopfloor/internal/audit/domain"
	"github.com/millwise/shopfloor/internal/authorization"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/config"
	"github.com/millwise/shopfloor/internal/events"
	hierdomain "github.com/millwise/shopfloor/internal/hierarchy/domain"
	"github.com/millwise/shopfloor/internal/hierarchy/facet"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"github.com/millwise/shopfloor/pkg/crud"
	"github.com/millwise/shopfloor/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service = facet.Service[hierdomain.Group, *hierdomain.Group]

type Engine = crud.Engine[hierdomain.Group, *hierdomain.Group]

type Controller = crud.Controller[hierdomain.Group, *hierdomain.Group, CreateRequest, UpdateRequest]

var Options = crud.Options{
	Name:   "group",
	Object: authorization.ObjectGroup,
	Path:   "/groups",
	Roles: []string{
		rolesdomain.RoleTeamLeader, rolesdomain.RoleLineManager,
		rolesdomain.RoleFactoryManager, rolesdomain.RoleAdmin, rolesdomain.RoleSuperAdmin,
	},
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Authorizer crud.Authorizer
	Audit      auditdomain.Service
	Events     *events.Bus
	Store      hierdomain.Store
	Resolver   hierdomain.Resolver
	Roles      rolesdomain.Service
	Identity   identitydomain.Service
	Settings   *config.SettingsHolder `optional:"true"`
}

func NewService(p Params) *Service {
	return facet.NewService[hierdomain.Group, *hierdomain.Group](hierdomain.LevelGroup, facet.Params{
		Store:    p.Store,
		Resolver: p.Resolver,
		Roles:    p.Roles,
		Identity: p.Identity,
		Audit:    p.Audit,
		Log:      p.Log,
	})
}

func NewEngine(p Params, svc *Service) *Engine {
	return crud.NewEngine[hierdomain.Group, *hierdomain.Group](crud.EngineParams[hierdomain.Group]{
		Name:       Options.Name,
		Object:     Options.Object,
		Repo:       repository.ProvideStore[hierdomain.Group](p.DB),
		Authorizer: p.Authorizer,
		Audit:      p.Audit,
		Events:     p.Events,
		GenID:      p.GenID,
		Clock:      p.Clock,
		Log:        p.Log,
		Hooks:      svc.Hooks(),
	})
}

func NewController(p Params, engine *Engine) *Controller {
	return crud.NewController[hierdomain.Group, *hierdomain.Group, CreateRequest, UpdateRequest](
		engine, Options.Name, p.Settings, Options.Endpoints,
	)
}

var Module = fx.Module("group",
	fx.Provide(
		NewService,
		NewEngine,
		NewController,
	),
)
