package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	auditrepo "github.com/millwise/shopfloor/internal/audit/repository"
	auditservice "github.com/millwise/shopfloor/internal/audit/service"
	"github.com/millwise/shopfloor/internal/authorization"
	"github.com/millwise/shopfloor/internal/clock"
	"github.com/millwise/shopfloor/internal/config"
	"github.com/millwise/shopfloor/internal/events"
	"github.com/millwise/shopfloor/internal/factory"
	"github.com/millwise/shopfloor/internal/group"
	hierdomain "github.com/millwise/shopfloor/internal/hierarchy/domain"
	hierrepo "github.com/millwise/shopfloor/internal/hierarchy/repository"
	"github.com/millwise/shopfloor/internal/hierarchy/resolver"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	identityservice "github.com/millwise/shopfloor/internal/identity/service"
	"github.com/millwise/shopfloor/internal/identity/token"
	"github.com/millwise/shopfloor/internal/line"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	rolesrepo "github.com/millwise/shopfloor/internal/roles/repository"
	rolesservice "github.com/millwise/shopfloor/internal/roles/service"
	"github.com/millwise/shopfloor/internal/team"
	"github.com/millwise/shopfloor/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type testServer struct {
	srv        *Server
	db         *gorm.DB
	clock      *clock.FakeClock
	identity   identitydomain.Service
	roles      rolesdomain.Service
	store      hierdomain.Store
	factoryP   factory.Params
	factorySvc *factory.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY, username TEXT UNIQUE, display_name TEXT,
			password_hash TEXT, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE role_assignments (
			id INTEGER PRIMARY KEY, user_id INTEGER, role_code TEXT, scope TEXT,
			expires_at DATETIME, created_at DATETIME)`,
		`CREATE TABLE audit_logs (
			id INTEGER PRIMARY KEY, actor_id INTEGER, action TEXT, target_type TEXT,
			target_id TEXT, metadata TEXT, created_at DATETIME)`,
		`CREATE TABLE factories (id INTEGER PRIMARY KEY, code TEXT, name TEXT, attributes TEXT, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE lines (id INTEGER PRIMARY KEY, factory_id INTEGER, code TEXT, name TEXT, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE teams (id INTEGER PRIMARY KEY, line_id INTEGER, code TEXT, name TEXT, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE "groups" (id INTEGER PRIMARY KEY, team_id INTEGER, code TEXT, name TEXT, created_at DATETIME, updated_at DATETIME)`,
	}
	for _, level := range hierdomain.Levels() {
		ddl = append(ddl, `CREATE TABLE "`+level.AssignmentTable()+`" (
			id INTEGER PRIMARY KEY, scope_id INTEGER, user_id INTEGER,
			is_primary BOOLEAN DEFAULT FALSE, start_date DATETIME, end_date DATETIME,
			created_at DATETIME, updated_at DATETIME)`)
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	// jwt validates expiry against the wall clock, so the fake clock has
	// to start from now
	clk := clock.NewFakeClock(time.Now().UTC())

	rolesSvc := rolesservice.NewService(rolesservice.Params{
		Log: log, GenID: node, Clock: clk, Repo: rolesrepo.NewRepository(db),
	})

	issuer := token.NewIssuer(token.Config{Secret: "test-secret", Issuer: "shopfloor-test", TTL: time.Hour})
	identitySvc := identityservice.NewService(identityservice.Params{
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Users:  repository.ProvideStore[identitydomain.User](db),
		Tokens: issuer,
		Roles:  rolesSvc,
	})

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	store := hierrepo.NewStore(db, node, clk)
	res := resolver.New(store, rolesSvc, log)
	bus := events.NewBus(log)
	t.Cleanup(func() { _ = bus.Close(t.Context()) })

	deps := func() (factory.Params, line.Params, team.Params, group.Params) {
		base := factory.Params{
			DB: db, Log: log, GenID: node, Clock: clk,
			Authorizer: authzSvc, Audit: auditSvc, Events: bus,
			Store: store, Resolver: res, Roles: rolesSvc, Identity: identitySvc,
		}
		return base,
			line.Params{DB: db, Log: log, GenID: node, Clock: clk, Authorizer: authzSvc, Audit: auditSvc, Events: bus, Store: store, Resolver: res, Roles: rolesSvc, Identity: identitySvc},
			team.Params{DB: db, Log: log, GenID: node, Clock: clk, Authorizer: authzSvc, Audit: auditSvc, Events: bus, Store: store, Resolver: res, Roles: rolesSvc, Identity: identitySvc},
			group.Params{DB: db, Log: log, GenID: node, Clock: clk, Authorizer: authzSvc, Audit: auditSvc, Events: bus, Store: store, Resolver: res, Roles: rolesSvc, Identity: identitySvc}
	}
	fp, lp, tp, gp := deps()

	factorySvc := factory.NewService(fp)
	lineSvc := line.NewService(lp)
	teamSvc := team.NewService(tp)
	groupSvc := group.NewService(gp)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{AppName: "shopfloor-test", HTTPAddr: ":0"},
		Log:         log,
		DB:          db,
		Clock:       clk,
		IdentitySvc: identitySvc,
		RolesSvc:    rolesSvc,
		AuditSvc:    auditSvc,
		AuthzSvc:    authzSvc,
		Bus:         bus,
		FactorySvc:  factorySvc,
		LineSvc:     lineSvc,
		TeamSvc:     teamSvc,
		GroupSvc:    groupSvc,
		FactoryCtl:  factory.NewController(fp, factory.NewEngine(fp, factorySvc)),
		LineCtl:     line.NewController(lp, line.NewEngine(lp, lineSvc)),
		TeamCtl:     team.NewController(tp, team.NewEngine(tp, teamSvc)),
		GroupCtl:    group.NewController(gp, group.NewEngine(gp, groupSvc)),
	})

	return &testServer{
		srv:        srv,
		db:         db,
		clock:      clk,
		identity:   identitySvc,
		roles:      rolesSvc,
		store:      store,
		factoryP:   fp,
		factorySvc: factorySvc,
	}
}

// newUser creates a user with the given role and returns a bearer token.
func (ts *testServer) newUser(t *testing.T, username, role string) (snowflake.ID, string) {
	t.Helper()
	ctx := t.Context()

	user, err := ts.identity.CreateUser(ctx, username, username, "s3cret-pass")
	require.NoError(t, err)
	if role != "" {
		require.NoError(t, ts.roles.Grant(ctx, user.ID, role, "", nil))
	}

	resp, err := ts.identity.Login(ctx, username, "s3cret-pass")
	require.NoError(t, err)
	return user.ID, resp.Token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(w, req)
	return w
}

func doRaw(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	data, _ := parsed["data"].(map[string]any)
	return data
}

func mustID(t *testing.T, data map[string]any) string {
	t.Helper()
	id, ok := data["id"].(string)
	require.True(t, ok, "id missing from response")
	return id
}
