package match

import "github.com/okian/scout/internal/domain/types"

// Alliance groups the three robots of one color. It has no state of its own.
type Alliance struct {
	color  types.Color
	robots [3]*Robot
}

func newAlliance(m recorder, color types.Color, teams [3]string) *Alliance {
	a := &Alliance{color: color}
	for i, team := range teams {
		a.robots[i] = newRobot(m, team, color, types.Slot(i))
	}
	return a
}

// Color returns the alliance color.
func (a *Alliance) Color() types.Color { return a.color }

// Robots returns the robots in construction order.
func (a *Alliance) Robots() []*Robot { return a.robots[:] }

// Teams returns the team ids in construction order.
func (a *Alliance) Teams() [3]string {
	var out [3]string
	for i, r := range a.robots {
		out[i] = r.team
	}
	return out
}

// Robot finds a robot by team id.
func (a *Alliance) Robot(team string) (*Robot, bool) {
	for _, r := range a.robots {
		if r.team == team {
			return r, true
		}
	}
	return nil, false
}

// Reset resets every robot.
func (a *Alliance) Reset() {
	for _, r := range a.robots {
		r.Reset()
	}
}

func (a *Alliance) preloaded() bool {
	for _, r := range a.robots {
		if r.startingItem != types.ItemEmpty {
			return true
		}
	}
	return false
}
