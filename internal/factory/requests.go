// Package factory is the root-level module of the containment tree.
package factory

import (
	domain "github.com/millwise/shopfloor/internal/hierarchy/domain"
	"gorm.io/datatypes"
)

type CreateRequest struct {
	Code       string         `json:"code"`
	Name       string         `json:"name" binding:"required"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (r CreateRequest) Model() domain.Factory {
	return domain.Factory{
		Code:       r.Code,
		Name:       r.Name,
		Attributes: datatypes.JSONMap(r.Attributes),
	}
}

// UpdateRequest carries the mutable fields. Absent fields leave the
// stored value untouched.
type UpdateRequest struct {
	Code       *string        `json:"code,omitempty"`
	Name       *string        `json:"name,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (r UpdateRequest) Apply(f *domain.Factory) {
	if r.Code != nil {
		f.Code = *r.Code
	}
	if r.Name != nil {
		f.Name = *r.Name
	}
	if r.Attributes != nil {
		f.Attributes = datatypes.JSONMap(r.Attributes)
	}
}
