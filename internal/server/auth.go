package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/apperror"
	"github.com/millwise/shopfloor/pkg/crud"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.BadRequest("username and password are required"))
		return
	}

	resp, err := s.identitySvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) Me(c *gin.Context) {
	requester, ok := crud.RequesterFrom(c)
	if !ok {
		AbortWithError(c, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := s.identitySvc.GetUser(c.Request.Context(), requester.SubjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	assignments, err := s.rolesSvc.GetUserRoles(c.Request.Context(), requester.SubjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user":  user,
		"role":  requester.Role,
		"roles": assignments,
	}})
}
