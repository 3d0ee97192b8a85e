package domain

import "errors"

// Level tags one layer of the containment tree. The tree has a fixed
// depth, so walks are iterative and bounded by MaxDepth.
type Level int

const (
	LevelFactory Level = iota
	LevelLine
	LevelTeam
	LevelGroup
)

// MaxDepth bounds every ancestor walk.
const MaxDepth = 4

var ErrUnknownLevel = errors.New("unknown_level")

var levels = []Level{LevelFactory, LevelLine, LevelTeam, LevelGroup}

func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

func (l Level) String() string {
	switch l {
	case LevelFactory:
		return "factory"
	case LevelLine:
		return "line"
	case LevelTeam:
		return "team"
	case LevelGroup:
		return "group"
	default:
		return "unknown"
	}
}

func ParseLevel(raw string) (Level, error) {
	switch raw {
	case "factory":
		return LevelFactory, nil
	case "line":
		return LevelLine, nil
	case "team":
		return LevelTeam, nil
	case "group":
		return LevelGroup, nil
	default:
		return 0, ErrUnknownLevel
	}
}

// Table names the entity table of this level.
func (l Level) Table() string {
	switch l {
	case LevelFactory:
		return "factories"
	case LevelLine:
		return "lines"
	case LevelTeam:
		return "teams"
	case LevelGroup:
		return "groups"
	default:
		return ""
	}
}

// AssignmentTable names the manager-assignment relation of this level.
func (l Level) AssignmentTable() string {
	switch l {
	case LevelFactory:
		return "factory_managers"
	case LevelLine:
		return "line_managers"
	case LevelTeam:
		return "team_managers"
	case LevelGroup:
		return "group_managers"
	default:
		return ""
	}
}

// ParentColumn names the foreign key pointing one level up; empty at the
// root.
func (l Level) ParentColumn() string {
	switch l {
	case LevelLine:
		return "factory_id"
	case LevelTeam:
		return "line_id"
	case LevelGroup:
		return "team_id"
	default:
		return ""
	}
}

func (l Level) Parent() (Level, bool) {
	if l <= LevelFactory || l > LevelGroup {
		return 0, false
	}
	return l - 1, true
}

func (l Level) Child() (Level, bool) {
	if l < LevelFactory || l >= LevelGroup {
		return 0, false
	}
	return l + 1, true
}
