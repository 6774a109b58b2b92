package model

import "github.com/okian/scout/internal/domain/types"

// RobotGlyph is the per-robot inventory indicator shown by a display.
type RobotGlyph struct {
	Robot     RobotRef       `json:"robot"`
	Inventory types.ItemKind `json:"inventory"`
	Disabled  bool           `json:"disabled"`
}

// Frame is everything a display needs after a tick or a command.
// It is a pure function of match state.
type Frame struct {
	MatchID string       `json:"match_id"`
	Timer   string       `json:"timer"`
	Running bool         `json:"running"`
	Phase   types.Phase  `json:"phase"`
	Robots  []RobotGlyph `json:"robots"`
}
