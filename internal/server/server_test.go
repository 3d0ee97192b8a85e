package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/factory"
	hierdomain "github.com/millwise/shopfloor/internal/hierarchy/domain"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"github.com/millwise/shopfloor/pkg/crud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errType(t *testing.T, body []byte) string {
	t.Helper()
	var parsed struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	return parsed.Error.Type
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.newUser(t, "olga", rolesdomain.RoleAdmin)

	w := ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "olga", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["user_id"])

	w = ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "olga", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errType(t, w.Body.Bytes()))
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/factories", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errType(t, w.Body.Bytes()))

	w = ts.do(t, http.MethodGet, "/api/v1/factories", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFactoryLifecycle(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.newUser(t, "admin", rolesdomain.RoleAdmin)

	w := ts.do(t, http.MethodPost, "/api/v1/factories", token, gin.H{"name": "North Plant"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeData(t, w)
	assert.Equal(t, "north-plant", created["code"])
	id := mustID(t, created)

	w = ts.do(t, http.MethodGet, "/api/v1/factories/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "North Plant", decodeData(t, w)["name"])

	w = ts.do(t, http.MethodPatch, "/api/v1/factories/"+id, token, gin.H{"name": "North Plant Rebuilt"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "North Plant Rebuilt", decodeData(t, w)["name"])

	// same code again
	w = ts.do(t, http.MethodPost, "/api/v1/factories", token, gin.H{"name": "Another", "code": "north-plant"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", errType(t, w.Body.Bytes()))

	w = ts.do(t, http.MethodDelete, "/api/v1/factories/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decodeData(t, w)["id"])

	w = ts.do(t, http.MethodGet, "/api/v1/factories/"+id, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkerCannotCreateFactory(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.newUser(t, "worker", rolesdomain.RoleWorker)

	w := ts.do(t, http.MethodPost, "/api/v1/factories", token, gin.H{"name": "Rogue Plant"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errType(t, w.Body.Bytes()))

	// reading stays open to every authenticated role
	w = ts.do(t, http.MethodGet, "/api/v1/factories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteBlockedByChildren(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.newUser(t, "admin", rolesdomain.RoleAdmin)

	w := ts.do(t, http.MethodPost, "/api/v1/factories", token, gin.H{"name": "South Plant"})
	require.Equal(t, http.StatusCreated, w.Code)
	factoryID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/lines", token, gin.H{"name": "Paint Line", "factory_id": factoryID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lineID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodDelete, "/api/v1/factories/"+factoryID, token, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/lines/"+lineID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/factories/"+factoryID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestManagerDelegation(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.newUser(t, "admin", rolesdomain.RoleAdmin)
	managerID, manager := ts.newUser(t, "lena", rolesdomain.RoleLineManager)

	w := ts.do(t, http.MethodPost, "/api/v1/factories", admin, gin.H{"name": "East Plant"})
	require.Equal(t, http.StatusCreated, w.Code)
	factoryID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/lines", admin, gin.H{"name": "Assembly", "factory_id": factoryID})
	require.Equal(t, http.StatusCreated, w.Code)
	lineID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/lines", admin, gin.H{"name": "Welding", "factory_id": factoryID})
	require.Equal(t, http.StatusCreated, w.Code)
	otherLineID := mustID(t, decodeData(t, w))

	// before the assignment the manager holds nothing
	w = ts.do(t, http.MethodPost, "/api/v1/teams", manager, gin.H{"name": "Crew A", "line_id": lineID})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/lines/"+lineID+"/managers", admin,
		gin.H{"user_id": managerID.String(), "is_primary": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/teams", manager, gin.H{"name": "Crew A", "line_id": lineID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	teamID := mustID(t, decodeData(t, w))

	// a sibling line stays out of reach
	w = ts.do(t, http.MethodPost, "/api/v1/teams", manager, gin.H{"name": "Crew B", "line_id": otherLineID})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/lines/"+lineID+"/can-manage", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeData(t, w)["can_manage"])

	w = ts.do(t, http.MethodGet, "/api/v1/teams/accessible", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var accessible struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accessible))
	assert.Contains(t, accessible.Data, teamID)
}

func TestTeamLeaderManagesOwnTeam(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.newUser(t, "admin", rolesdomain.RoleAdmin)
	leaderID, leader := ts.newUser(t, "tomas", rolesdomain.RoleTeamLeader)

	w := ts.do(t, http.MethodPost, "/api/v1/factories", admin, gin.H{"name": "South Plant"})
	require.Equal(t, http.StatusCreated, w.Code)
	factoryID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/lines", admin, gin.H{"name": "Packing", "factory_id": factoryID})
	require.Equal(t, http.StatusCreated, w.Code)
	lineID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/teams", admin, gin.H{"name": "Shift One", "line_id": lineID})
	require.Equal(t, http.StatusCreated, w.Code)
	teamID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/teams", admin, gin.H{"name": "Shift Two", "line_id": lineID})
	require.Equal(t, http.StatusCreated, w.Code)
	otherTeamID := mustID(t, decodeData(t, w))

	// without an assignment the role alone grants nothing
	w = ts.do(t, http.MethodPatch, "/api/v1/teams/"+teamID, leader, gin.H{"name": "Night Shift"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/teams/"+teamID+"/managers", admin,
		gin.H{"user_id": leaderID.String(), "is_primary": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// a primary manager edits the team itself, not just its groups
	w = ts.do(t, http.MethodPatch, "/api/v1/teams/"+teamID, leader, gin.H{"name": "Night Shift"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Night Shift", decodeData(t, w)["name"])

	// the sibling team stays out of reach
	w = ts.do(t, http.MethodPatch, "/api/v1/teams/"+otherTeamID, leader, gin.H{"name": "Hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestManagerAssignmentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.newUser(t, "admin", rolesdomain.RoleAdmin)
	firstID, _ := ts.newUser(t, "first", rolesdomain.RoleLineManager)
	secondID, _ := ts.newUser(t, "second", rolesdomain.RoleLineManager)

	w := ts.do(t, http.MethodPost, "/api/v1/factories", admin, gin.H{"name": "West Plant"})
	require.Equal(t, http.StatusCreated, w.Code)
	factoryID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/lines", admin, gin.H{"name": "Stamping", "factory_id": factoryID})
	require.Equal(t, http.StatusCreated, w.Code)
	lineID := mustID(t, decodeData(t, w))

	base := "/api/v1/lines/" + lineID + "/managers"
	w = ts.do(t, http.MethodPost, base, admin, gin.H{"user_id": firstID.String(), "is_primary": true})
	require.Equal(t, http.StatusCreated, w.Code)
	w = ts.do(t, http.MethodPost, base, admin, gin.H{"user_id": secondID.String(), "is_primary": true})
	require.Equal(t, http.StatusCreated, w.Code)

	// the newest primary wins; the first one got demoted
	w = ts.do(t, http.MethodGet, base, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []hierdomain.ManagerAssignment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 2)
	assert.Equal(t, secondID, listed.Data[0].UserID)
	assert.True(t, listed.Data[0].IsPrimary)
	assert.False(t, listed.Data[1].IsPrimary)

	w = ts.do(t, http.MethodPatch, base+"/"+firstID.String(), admin, gin.H{"is_primary": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, firstID.String(), decodeData(t, w)["user_id"])

	w = ts.do(t, http.MethodDelete, base+"/"+secondID.String(), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, secondID.String(), decodeData(t, w)["user_id"])

	// gone means gone for the write endpoints
	w = ts.do(t, http.MethodPatch, base+"/"+secondID.String(), admin, gin.H{"is_primary": false})
	require.Equal(t, http.StatusNotFound, w.Code)

	// assigning a user that does not exist fails validation
	w = ts.do(t, http.MethodPost, base, admin, gin.H{"user_id": "9999999999"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPaginationClamped(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.newUser(t, "admin", rolesdomain.RoleAdmin)

	w := ts.do(t, http.MethodGet, "/api/v1/factories?page=0&limit=500", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var parsed struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.Equal(t, 1, parsed.Page)
	assert.Equal(t, 100, parsed.Limit)
}

func TestAuditTrail(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.newUser(t, "admin", rolesdomain.RoleAdmin)
	_, worker := ts.newUser(t, "worker", rolesdomain.RoleWorker)

	w := ts.do(t, http.MethodPost, "/api/v1/factories", admin, gin.H{"name": "Audit Plant"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/audit", worker, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/audit?action=factory.create", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var parsed struct {
		Data []struct {
			Action     string `json:"action"`
			TargetType string `json:"target_type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	require.NotEmpty(t, parsed.Data)
	assert.Equal(t, "factory.create", parsed.Data[0].Action)
	assert.Equal(t, "factory", parsed.Data[0].TargetType)
}

func TestUserAdministration(t *testing.T) {
	ts := newTestServer(t)
	_, admin := ts.newUser(t, "admin", rolesdomain.RoleAdmin)

	w := ts.do(t, http.MethodPost, "/api/v1/users", admin,
		gin.H{"username": "newhire", "display_name": "New Hire", "password": "longenough"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	userID := mustID(t, decodeData(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/users/"+userID+"/roles", admin,
		gin.H{"role_code": rolesdomain.RoleTeamLeader})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "newhire", "password": "longenough"})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decodeData(t, w)["token"].(string)

	w = ts.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decodeData(t, w)
	assert.Equal(t, rolesdomain.RoleTeamLeader, me["role"])

	w = ts.do(t, http.MethodDelete, "/api/v1/users/"+userID+"/roles/"+rolesdomain.RoleTeamLeader, admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestDisabledEndpointLooksAbsent(t *testing.T) {
	ts := newTestServer(t)
	adminID, _ := ts.newUser(t, "admin", rolesdomain.RoleAdmin)

	ctl := crud.NewController[hierdomain.Factory, *hierdomain.Factory, factory.CreateRequest, factory.UpdateRequest](
		factory.NewEngine(ts.factoryP, ts.factorySvc), "factory", nil, map[string]bool{"create": false},
	)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.Use(func(c *gin.Context) {
		c.Set(crud.RequesterKey, identitydomain.Requester{SubjectID: adminID, Role: rolesdomain.RoleAdmin})
	})
	ctl.Mount(engine.Group(""), crud.Options{Name: "factory", Path: "/factories"})

	w := doRaw(t, engine, http.MethodPost, "/factories", gin.H{"name": "Hidden Plant"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errType(t, w.Body.Bytes()))

	// the sibling endpoints stay routable
	w = doRaw(t, engine, http.MethodGet, "/factories", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
