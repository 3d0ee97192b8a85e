package team

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

type Service = facet.Service[hierdomain.Team, *hierdomain.Team]

type Engine = crud.Engine[hierdomain.Team, *hierdomain.Team]

type Controller = crud.Controller[hierdomain.Team, *hierdomain.Team, CreateRequest, UpdateRequest]

var Options = crud.Options{
	Name:   "team",
	Object: authorization.ObjectTeam,
	Path:   "/teams",
	Roles:  []string{rolesdomain.RoleLineManager, rolesdomain.RoleFactoryManager, rolesdomain.RoleAdmin, rolesdomain.RoleSuperAdmin},
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
	return facet.NewService[hierdomain.Team, *hierdomain.Team](hierdomain.LevelTeam, facet.Params{
		Store:    p.Store,
		Resolver: p.Resolver,
		Roles:    p.Roles,
		Identity: p.Identity,
		Audit:    p.Audit,
		Log:      p.Log,
	})
}

func NewEngine(p Params, svc *Service) *Engine {
	return crud.NewEngine[hierdomain.Team, *hierdomain.Team](crud.EngineParams[hierdomain.Team]{
		Name:       Options.Name,
		Object:     Options.Object,
		Repo:       repository.ProvideStore[hierdomain.Team](p.DB),
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
	return crud.NewController[hierdomain.Team, *hierdomain.Team, CreateRequest, UpdateRequest](
		engine, Options.Name, p.Settings, Options.Endpoints,
	)
}

var Module = fx.Module("team",
	fx.Provide(
		NewService,
		NewEngine,
		NewController,
	),
)
