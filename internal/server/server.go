package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/audit"
	auditdomain "github.com/millwise/shopfloor/internal/audit/domain"
	"github.com/millwise/shopfloor/internal/authorization"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/config"
	"github.com/millwise/shopfloor/internal/events"
	"github.com/millwise/shopfloor/internal/factory"
	"github.com/millwise/shopfloor/internal/group"
	"github.com/millwise/shopfloor/internal/hierarchy"
	"github.com/millwise/shopfloor/internal/identity"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	"github.com/millwise/shopfloor/internal/line"
	"github.com/millwise/shopfloor/internal/observability"
	obslogger "github.com/millwise/shopfloor/internal/observability/logger"
	obsmetrics "github.com/millwise/shopfloor/internal/observability/metrics"
	obstracing "github.com/millwise/shopfloor/internal/observability/tracing"
	"github.com/millwise/shopfloor/internal/roles"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"github.com/millwise/shopfloor/internal/team"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	observability.Module,
	events.Module,
	audit.Module,
	identity.Module,
	roles.Module,
	authorization.Module,
	hierarchy.Module,
	factory.Module,
	line.Module,
	team.Module,
	group.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Log:   log,
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	clock       clock.Clock
	identitySvc identitydomain.Service
	rolesSvc    rolesdomain.Service
	auditSvc    auditdomain.Service
	authzSvc    authorization.Service
	bus         *events.Bus

	factorySvc *factory.Service
	lineSvc    *line.Service
	teamSvc    *team.Service
	groupSvc   *group.Service

	factoryCtl *factory.Controller
	lineCtl    *line.Controller
	teamCtl    *team.Controller
	groupCtl   *group.Controller
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Clock       clock.Clock
	IdentitySvc identitydomain.Service
	RolesSvc    rolesdomain.Service
	AuditSvc    auditdomain.Service
	AuthzSvc    authorization.Service
	Bus         *events.Bus

	FactorySvc *factory.Service
	LineSvc    *line.Service
	TeamSvc    *team.Service
	GroupSvc   *group.Service

	FactoryCtl *factory.Controller
	LineCtl    *line.Controller
	TeamCtl    *team.Controller
	GroupCtl   *group.Controller
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("server"),
		db:          p.DB,
		clock:       p.Clock,
		identitySvc: p.IdentitySvc,
		rolesSvc:    p.RolesSvc,
		auditSvc:    p.AuditSvc,
		authzSvc:    p.AuthzSvc,
		bus:         p.Bus,
		factorySvc:  p.FactorySvc,
		lineSvc:     p.LineSvc,
		teamSvc:     p.TeamSvc,
		groupSvc:    p.GroupSvc,
		factoryCtl:  p.FactoryCtl,
		lineCtl:     p.LineCtl,
		teamCtl:     p.TeamCtl,
		groupCtl:    p.GroupCtl,
	}

	s.registerAuthRoutes()
	s.registerAPIRoutes()
	s.subscribeEntityEvents()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())

	factories := s.factoryCtl.Mount(api, factory.Options)
	registerFacetRoutes(factories, s.factorySvc)

	lines := s.lineCtl.Mount(api, line.Options)
	registerFacetRoutes(lines, s.lineSvc)

	teams := s.teamCtl.Mount(api, team.Options)
	registerFacetRoutes(teams, s.teamSvc)

	groups := s.groupCtl.Mount(api, group.Options)
	registerFacetRoutes(groups, s.groupSvc)

	admin := api.Group("", s.RequireGlobalAdmin())
	admin.GET("/audit", s.ListAuditLogs)
	admin.POST("/users", s.CreateUser)
	admin.POST("/users/:id/roles", s.GrantRole)
	admin.DELETE("/users/:id/roles/:role_code", s.RevokeRole)
}

// subscribeEntityEvents fans entity mutations out to the log; a real
// notification channel would hang off the same subscriptions.
func (s *Server) subscribeEntityEvents() {
	for _, name := range []string{"factory", "line", "team", "group"} {
		for _, action := range []string{"create", "update", "delete"} {
			topic := name + "." + action
			s.bus.Subscribe(topic, func(ctx context.Context, evt events.Event) {
				s.log.Info("entity event",
					zap.String("topic", evt.Topic),
					zap.String("sender_id", evt.SenderID),
					zap.Any("payload", evt.Payload),
				)
			})
		}
	}
}
