package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/apperror"
)

type createUserRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password" binding:"required"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.BadRequest("invalid request body").Wrap(err))
		return
	}

	user, err := s.identitySvc.CreateUser(c.Request.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": user})
}

type grantRoleRequest struct {
	RoleCode  string     `json:"role_code" binding:"required"`
	Scope     string     `json:"scope"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) GrantRole(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req grantRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.BadRequest("invalid request body").Wrap(err))
		return
	}

	if err := s.rolesSvc.Grant(c.Request.Context(), userID, req.RoleCode, req.Scope, req.ExpiresAt); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RevokeRole(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.rolesSvc.Revoke(c.Request.Context(), userID, c.Param("role_code")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
