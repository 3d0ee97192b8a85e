// Package group manages the leaf units of the tree.
package group

import (
	"github.com/bwmarrin/snowflake"
	domain "github.com/millwise/shopfloor/internal/hierarchy/domain"
)

type CreateRequest struct {
	Code   string       `json:"code"`
	Name   string       `json:"name" binding:"required"`
	TeamID snowflake.ID `json:"team_id" binding:"required"`
}

func (r CreateRequest) Model() domain.Group {
	return domain.Group{
		Code:   r.Code,
		Name:   r.Name,
		TeamID: r.TeamID,
	}
}

type UpdateRequest struct {
	Code   *string       `json:"code,omitempty"`
	Name   *string       `json:"name,omitempty"`
	TeamID *snowflake.ID `json:"team_id,omitempty"`
}

func (r UpdateRequest) Apply(g *domain.Group) {
	if r.Code != nil {
		g.Code = *r.Code
	}
	if r.Name != nil {
		g.Name = *r.Name
	}
	if r.TeamID != nil {
		g.TeamID = *r.TeamID
	}
}
