// Package domain contains the containment-tree models shared by the
// factory, line, team and group modules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Factory is the root of the containment tree.
type Factory struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code       string            `gorm:"type:text;not null;uniqueIndex:ux_factories_code" json:"code"`
	Name       string            `gorm:"type:text;not null" json:"name"`
	Attributes datatypes.JSONMap `gorm:"type:jsonb" json:"attributes,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Factory) TableName() string { return "factories" }

func (f *Factory) Stamp(id snowflake.ID, now time.Time) {
	f.ID = id
	f.CreatedAt = now
	f.UpdatedAt = now
}

func (f *Factory) Touched(now time.Time) { f.UpdatedAt = now }

func (f *Factory) RecordID() snowflake.ID { return f.ID }

func (f *Factory) ParentRef() snowflake.ID { return 0 }

func (f *Factory) EntityCode() string { return f.Code }

func (f *Factory) EntityName() string { return f.Name }

func (f *Factory) SetCode(code string) { f.Code = code }

// Line is a production line inside a factory.
type Line struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_lines_code" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	FactoryID snowflake.ID `gorm:"not null;index" json:"factory_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Line) TableName() string { return "lines" }

func (l *Line) Stamp(id snowflake.ID, now time.Time) {
	l.ID = id
	l.CreatedAt = now
	l.UpdatedAt = now
}

func (l *Line) Touched(now time.Time) { l.UpdatedAt = now }

func (l *Line) RecordID() snowflake.ID { return l.ID }

func (l *Line) ParentRef() snowflake.ID { return l.FactoryID }

func (l *Line) EntityCode() string { return l.Code }

func (l *Line) EntityName() string { return l.Name }

func (l *Line) SetCode(code string) { l.Code = code }

// Team sits inside a line.
type Team struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_teams_code" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	LineID    snowflake.ID `gorm:"not null;index" json:"line_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

func (t *Team) Stamp(id snowflake.ID, now time.Time) {
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
}

func (t *Team) Touched(now time.Time) { t.UpdatedAt = now }

func (t *Team) RecordID() snowflake.ID { return t.ID }

func (t *Team) ParentRef() snowflake.ID { return t.LineID }

func (t *Team) EntityCode() string { return t.Code }

func (t *Team) EntityName() string { return t.Name }

func (t *Team) SetCode(code string) { t.Code = code }

// Group is the leaf organizational unit, inside a team.
type Group struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_groups_code" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	TeamID    snowflake.ID `gorm:"not null;index" json:"team_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Group) TableName() string { return "groups" }

func (g *Group) Stamp(id snowflake.ID, now time.Time) {
	g.ID = id
	g.CreatedAt = now
	g.UpdatedAt = now
}

func (g *Group) Touched(now time.Time) { g.UpdatedAt = now }

func (g *Group) RecordID() snowflake.ID { return g.ID }

func (g *Group) ParentRef() snowflake.ID { return g.TeamID }

func (g *Group) EntityCode() string { return g.Code }

func (g *Group) EntityName() string { return g.Name }

func (g *Group) SetCode(code string) { g.Code = code }

// ManagerAssignment is the one relation shape reused at every level. A
// row stays forever: removal sets EndDate instead of deleting, so the
// assignment history survives.
type ManagerAssignment struct {
	ID        snowflake.ID `json:"id"`
	ScopeID   snowflake.ID `json:"scope_id"`
	UserID    snowflake.ID `json:"user_id"`
	IsPrimary bool         `json:"is_primary"`
	StartDate time.Time    `json:"start_date"`
	EndDate   *time.Time   `json:"end_date,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Active reports whether the assignment applies at the given instant.
func (a ManagerAssignment) Active(now time.Time) bool {
	return a.EndDate == nil || a.EndDate.After(now)
}

// Node is the level-agnostic projection of one tree entity.
type Node struct {
	ID       snowflake.ID `json:"id"`
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	ParentID snowflake.ID `json:"parent_id,omitempty"`
}
