// Package line manages production lines inside a factory.
package line

import (
	"github.com/bwmarrin/snowflake"
	domain "github.com/millwise/shopfloor/internal/hierarchy/domain"
)

type CreateRequest struct {
	Code      string       `json:"code"`
	Name      string       `json:"name" binding:"required"`
	FactoryID snowflake.ID `json:"factory_id" binding:"required"`
}

func (r CreateRequest) Model() domain.Line {
	return domain.Line{
		Code:      r.Code,
		Name:      r.Name,
		FactoryID: r.FactoryID,
	}
}

type UpdateRequest struct {
	Code      *string       `json:"code,omitempty"`
	Name      *string       `json:"name,omitempty"`
	FactoryID *snowflake.ID `json:"factory_id,omitempty"`
}

func (r UpdateRequest) Apply(l *domain.Line) {
	if r.Code != nil {
		l.Code = *r.Code
	}
	if r.Name != nil {
		l.Name = *r.Name
	}
	if r.FactoryID != nil {
		l.FactoryID = *r.FactoryID
	}
}
