// Package team manages teams inside a production line.
package team

import (
	"github.com/bwmarrin/snowflake"
	domain "github.com/millwise/shopfloor/internal/hierarchy/domain"
)

type CreateRequest struct {
	Code   string       `json:"code"`
	Name   string       `json:"name" binding:"required"`
	LineID snowflake.ID `json:"line_id" binding:"required"`
}

func (r CreateRequest) Model() domain.Team {
	return domain.Team{
		Code:   r.Code,
		Name:   r.Name,
		LineID: r.LineID,
	}
}

type UpdateRequest struct {
	Code   *string       `json:"code,omitempty"`
	Name   *string       `json:"name,omitempty"`
	LineID *snowflake.ID `json:"line_id,omitempty"`
}

func (r UpdateRequest) Apply(t *domain.Team) {
	if r.Code != nil {
		t.Code = *r.Code
	}
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.LineID != nil {
		t.LineID = *r.LineID
	}
}
