package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/apperror"
	auditdomain "github.com/millwise/shopfloor/internal/audit/domain"
	"github.com/millwise/shopfloor/pkg/db/pagination"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	var pg pagination.Pagination
	if err := c.ShouldBindQuery(&pg); err != nil {
		AbortWithError(c, apperror.BadRequest("invalid pagination").Wrap(err))
		return
	}

	filter := auditdomain.ListFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
	}
	if raw := strings.TrimSpace(c.Query("actor_id")); raw != "" {
		actorID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, apperror.BadRequest("invalid actor_id"))
			return
		}
		filter.ActorID = actorID
	}

	result, err := s.auditSvc.List(c.Request.Context(), filter, pg)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  result.Data,
		"page":  result.Page,
		"limit": result.Limit,
		"total": result.Total,
	})
}
