package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/apperror"
	"github.com/millwise/shopfloor/internal/hierarchy/domain"
	"github.com/millwise/shopfloor/internal/hierarchy/facet"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	"github.com/millwise/shopfloor/pkg/crud"
)

// registerFacetRoutes appends the manager-assignment and authority routes
// shared by every tree level onto an entity route group.
func registerFacetRoutes[T any, PT facet.Entity[T]](rg *gin.RouterGroup, svc *facet.Service[T, PT]) {
	h := &facetHandler[T, PT]{svc: svc}

	rg.GET("/accessible", h.accessible)
	rg.GET("/:id/can-manage", h.canManage)
	rg.GET("/:id/managers", h.listManagers)
	rg.POST("/:id/managers", h.assignManager)
	rg.PATCH("/:id/managers/:user_id", h.updateManager)
	rg.DELETE("/:id/managers/:user_id", h.removeManager)
}

type facetHandler[T any, PT facet.Entity[T]] struct {
	svc *facet.Service[T, PT]
}

type updateManagerRequest struct {
	IsPrimary *bool      `json:"is_primary,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func (h *facetHandler[T, PT]) requester(c *gin.Context) (identitydomain.Requester, bool) {
	requester, ok := crud.RequesterFrom(c)
	if !ok {
		AbortWithError(c, apperror.Unauthorized("authentication required"))
	}
	return requester, ok
}

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		AbortWithError(c, apperror.BadRequest("invalid "+name))
		return 0, false
	}
	return id, true
}

func (h *facetHandler[T, PT]) listManagers(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	managers, err := h.svc.ListManagers(c.Request.Context(), requester, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if managers == nil {
		managers = []domain.ManagerAssignment{}
	}
	c.JSON(http.StatusOK, gin.H{"data": managers})
}

func (h *facetHandler[T, PT]) assignManager(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input facet.AssignManagerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, apperror.BadRequest("invalid request body").Wrap(err))
		return
	}

	assignment, err := h.svc.AssignManager(c.Request.Context(), requester, id, input)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": assignment})
}

func (h *facetHandler[T, PT]) updateManager(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	var req updateManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.BadRequest("invalid request body").Wrap(err))
		return
	}

	patch := domain.ManagerPatch{IsPrimary: req.IsPrimary, EndDate: req.EndDate}
	if err := h.svc.UpdateManager(c.Request.Context(), requester, id, userID, patch); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": userID.String()}})
}

func (h *facetHandler[T, PT]) removeManager(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.svc.RemoveManager(c.Request.Context(), requester, id, userID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user_id": userID.String()}})
}

func (h *facetHandler[T, PT]) canManage(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	allowed, err := h.svc.CanManage(c.Request.Context(), requester, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"can_manage": allowed}})
}

func (h *facetHandler[T, PT]) accessible(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	ids, err := h.svc.Accessible(c.Request.Context(), requester)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ids})
}
