package crud

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/apperror"
	"github.com/millwise/shopfloor/internal/config"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	"github.com/millwise/shopfloor/pkg/db/pagination"
)

// RequesterKey is where the auth middleware leaves the authenticated
// requester in the gin context.
const RequesterKey = "requester"

func RequesterFrom(c *gin.Context) (identitydomain.Requester, bool) {
	v, ok := c.Get(RequesterKey)
	if !ok {
		return identitydomain.Requester{}, false
	}
	requester, ok := v.(identitydomain.Requester)
	return requester, ok
}

// CreateRequest builds a fresh entity from a bound request body.
type CreateRequest[T any] interface {
	Model() T
}

// UpdateRequest applies its non-nil fields onto a patch entity.
type UpdateRequest[T any] interface {
	Apply(entity *T)
}

// Controller exposes one Engine over gin. C and U are the bound request
// body types for create and update.
type Controller[T any, PT Model[T], C CreateRequest[T], U UpdateRequest[T]] struct {
	engine   *Engine[T, PT]
	name     string
	settings *config.SettingsHolder
	enabled  map[string]bool
}

func NewController[T any, PT Model[T], C CreateRequest[T], U UpdateRequest[T]](
	engine *Engine[T, PT],
	name string,
	settings *config.SettingsHolder,
	enabled map[string]bool,
) *Controller[T, PT, C, U] {
	return &Controller[T, PT, C, U]{
		engine:   engine,
		name:     name,
		settings: settings,
		enabled:  enabled,
	}
}

// endpointEnabled checks the static per-module flags first, then the
// hot-reloaded settings file. Disabled endpoints are indistinguishable
// from missing routes.
func (ctl *Controller[T, PT, C, U]) endpointEnabled(endpoint string) bool {
	if v, ok := ctl.enabled[endpoint]; ok && !v {
		return false
	}
	if ctl.settings != nil {
		return ctl.settings.EndpointEnabled(ctl.name, endpoint)
	}
	return true
}

func (ctl *Controller[T, PT, C, U]) abortDisabled(c *gin.Context) {
	_ = c.Error(apperror.NotFound("not found"))
	c.Abort()
}

func (ctl *Controller[T, PT, C, U]) requester(c *gin.Context) (identitydomain.Requester, bool) {
	requester, ok := RequesterFrom(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("authentication required"))
		c.Abort()
	}
	return requester, ok
}

func (ctl *Controller[T, PT, C, U]) Create(c *gin.Context) {
	if !ctl.endpointEnabled("create") {
		ctl.abortDisabled(c)
		return
	}
	requester, ok := ctl.requester(c)
	if !ok {
		return
	}

	var req C
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.BadRequest("invalid request body").Wrap(err))
		c.Abort()
		return
	}

	entity := req.Model()
	created, err := ctl.engine.Create(c.Request.Context(), requester, &entity)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (ctl *Controller[T, PT, C, U]) List(c *gin.Context) {
	if !ctl.endpointEnabled("list") {
		ctl.abortDisabled(c)
		return
	}
	requester, ok := ctl.requester(c)
	if !ok {
		return
	}

	var pg pagination.Pagination
	if err := c.ShouldBindQuery(&pg); err != nil {
		_ = c.Error(apperror.BadRequest("invalid pagination").Wrap(err))
		c.Abort()
		return
	}

	result, err := ctl.engine.List(c.Request.Context(), requester, nil, pg)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  result.Data,
		"page":  result.Page,
		"limit": result.Limit,
		"total": result.Total,
	})
}

func (ctl *Controller[T, PT, C, U]) Get(c *gin.Context) {
	if !ctl.endpointEnabled("get") {
		ctl.abortDisabled(c)
		return
	}
	requester, ok := ctl.requester(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c)
	if !ok {
		return
	}

	entity, err := ctl.engine.Get(c.Request.Context(), requester, id)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entity})
}

func (ctl *Controller[T, PT, C, U]) Update(c *gin.Context) {
	if !ctl.endpointEnabled("update") {
		ctl.abortDisabled(c)
		return
	}
	requester, ok := ctl.requester(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c)
	if !ok {
		return
	}

	var req U
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.BadRequest("invalid request body").Wrap(err))
		c.Abort()
		return
	}

	var patch T
	req.Apply(&patch)
	updated, err := ctl.engine.Update(c.Request.Context(), requester, id, &patch)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (ctl *Controller[T, PT, C, U]) Delete(c *gin.Context) {
	if !ctl.endpointEnabled("delete") {
		ctl.abortDisabled(c)
		return
	}
	requester, ok := ctl.requester(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c)
	if !ok {
		return
	}

	if err := ctl.engine.Delete(c.Request.Context(), requester, id); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id.String()}})
}

func (ctl *Controller[T, PT, C, U]) pathID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.BadRequest("invalid id"))
		c.Abort()
		return 0, false
	}
	return id, true
}
