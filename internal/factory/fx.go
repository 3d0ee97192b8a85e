package factory

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

type Service = facet.Service[hierdomain.Factory, *hierdomain.Factory]

type Engine = crud.Engine[hierdomain.Factory, *hierdomain.Factory]

type Controller = crud.Controller[hierdomain.Factory, *hierdomain.Factory, CreateRequest, UpdateRequest]

// Options describes the routed unit; only administrators hold write
// access at the root level.
var Options = crud.Options{
	Name:   "factory",
	Object: authorization.ObjectFactory,
	Path:   "/factories",
	Roles:  []string{rolesdomain.RoleAdmin, rolesdomain.RoleSuperAdmin},
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
	return facet.NewService[hierdomain.Factory, *hierdomain.Factory](hierdomain.LevelFactory, facet.Params{
		Store:    p.Store,
		Resolver: p.Resolver,
		Roles:    p.Roles,
		Identity: p.Identity,
		Audit:    p.Audit,
		Log:      p.Log,
	})
}

func NewEngine(p Params, svc *Service) *Engine {
	return crud.NewEngine[hierdomain.Factory, *hierdomain.Factory](crud.EngineParams[hierdomain.Factory]{
		Name:       Options.Name,
		Object:     Options.Object,
		Repo:       repository.ProvideStore[hierdomain.Factory](p.DB),
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
	return crud.NewController[hierdomain.Factory, *hierdomain.Factory, CreateRequest, UpdateRequest](
		engine, Options.Name, p.Settings, Options.Endpoints,
	)
}

var Module = fx.Module("factory",
	fx.Provide(
		NewService,
		NewEngine,
		NewController,
	),
)
