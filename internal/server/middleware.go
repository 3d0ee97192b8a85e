package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/apperror"
	"github.com/millwise/shopfloor/pkg/crud"
)

// AuthRequired introspects the bearer token and attaches the Requester
// to the gin context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, apperror.Unauthorized("authentication required"))
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			AbortWithError(c, apperror.Unauthorized("bearer token required"))
			return
		}

		requester, err := s.identitySvc.Introspect(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(crud.RequesterKey, *requester)
		c.Next()
	}
}

// RequireGlobalAdmin gates admin-only surfaces such as the audit log.
func (s *Server) RequireGlobalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		requester, ok := crud.RequesterFrom(c)
		if !ok {
			AbortWithError(c, apperror.Unauthorized("authentication required"))
			return
		}

		admin, err := s.rolesSvc.HasGlobalAdmin(c.Request.Context(), requester.SubjectID)
		if err != nil {
			AbortWithError(c, apperror.Internal(err))
			return
		}
		if !admin {
			AbortWithError(c, apperror.Forbidden("administrator access required"))
			return
		}
		c.Next()
	}
}
