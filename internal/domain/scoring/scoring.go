// Package scoring derives grid and score state by folding a match event log.
package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/types"
)

// Default scoring configuration constants.
const (
	defaultAutoLength = 15.0
	linkRun           = 3
)

// ErrDerivationInvariant is returned when the log holds a fact no valid
// command could have produced, e.g. a mobility bonus earned in teleop.
var ErrDerivationInvariant = errors.New("derivation invariant violated")

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAutoLength sets the length of the autonomous period in seconds.
func WithAutoLength(seconds float64) Option {
	return func(e *Engine) {
		if seconds > 0 {
			e.autoLength = seconds
		}
	}
}

// WithPointTable replaces the point table.
func WithPointTable(t types.PointTable) Option {
	return func(e *Engine) {
		e.points = t
	}
}

// Grid is one alliance's scoring grid. A cell holds the placed item kind or
// ItemEmpty.
type Grid [types.GridCells]types.ItemKind

// Occupied reports whether a piece sits on cell.
func (g *Grid) Occupied(cell int) bool {
	return types.ValidCell(cell) && g[cell] != types.ItemEmpty
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int {
	n := 0
	for _, item := range g {
		if item != types.ItemEmpty {
			n++
		}
	}
	return n
}

// Score holds the points of both alliances.
type Score struct {
	Red  int `json:"red"`
	Blue int `json:"blue"`
}

// For returns the score of color c.
func (s Score) For(c types.Color) int {
	if c == types.Red {
		return s.Red
	}
	return s.Blue
}

func (s *Score) add(c types.Color, points int) {
	if c == types.Red {
		s.Red += points
		return
	}
	s.Blue += points
}

// RobotState is the projection of one robot obtained from the log.
type RobotState struct {
	Inventory      types.ItemKind
	Disabled       bool
	MobilityEarned bool
	Docked         bool
	Engaged        bool
}

// State is the result of a fold.
type State struct {
	Red    Grid
	Blue   Grid
	Score  Score
	Robots map[model.RobotRef]RobotState
}

// Grid returns the grid of color c.
func (s *State) Grid(c types.Color) *Grid {
	if c == types.Red {
		return &s.Red
	}
	return &s.Blue
}

// Engine computes State from an event log. It holds no match state and may
// be shared.
type Engine struct {
	autoLength float64
	points     types.PointTable
}

// New creates a scoring engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		autoLength: defaultAutoLength,
		points:     types.Points,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AutoLength returns the configured autonomous period length.
func (e *Engine) AutoLength() float64 {
	return e.autoLength
}

// Derive folds events in order into grids, score and robot projections.
// It may be called on any prefix of a log.
func (e *Engine) Derive(events []model.Event) (State, error) {
	st := State{Robots: make(map[model.RobotRef]RobotState)}

	for i, ev := range events {
		phase := ev.Phase(e.autoLength)
		rs := st.Robots[ev.Robot]

		if (ev.Kind == model.KindScore || ev.Kind == model.KindDislodge) && !types.ValidCell(ev.Cell) {
			return State{}, fmt.Errorf("%w: event %d: cell %d is off the grid", ErrDerivationInvariant, i, ev.Cell)
		}

		switch ev.Kind {
		case model.KindPickUp, model.KindSetInventory:
			rs.Inventory = ev.Item
		case model.KindClearInventory:
			rs.Inventory = types.ItemEmpty
		case model.KindScore:
			st.Grid(ev.Robot.Color)[ev.Cell] = ev.Item
			st.Score.add(ev.Robot.Color, e.points.For(phase).GamePieces.ForRow(types.RowOf(ev.Cell)))
			rs.Inventory = types.ItemEmpty
		case model.KindDislodge:
			// Points already banked stay banked.
			st.Grid(ev.Robot.Color)[ev.Cell] = types.ItemEmpty
		case model.KindEarnMobility:
			if !ev.IsAuto(e.autoLength) {
				return State{}, fmt.Errorf("%w: event %d: mobility bonus for %s at %.3fs is outside autonomous",
					ErrDerivationInvariant, i, ev.Robot, ev.Timestamp)
			}
			rs.MobilityEarned = true
			st.Score.add(ev.Robot.Color, e.points.Auto.Mobility)
		case model.KindEnable:
			rs.Disabled = false
		case model.KindDisable:
			rs.Disabled = true
		case model.KindDock:
			rs.Docked = true
		case model.KindUndock:
			rs.Docked = false
		case model.KindEngage:
			rs.Engaged = true
		case model.KindDisengage:
			rs.Engaged = false
		}
		st.Robots[ev.Robot] = rs
	}

	st.Score.Red += e.LinkBonus(&st.Red)
	st.Score.Blue += e.LinkBonus(&st.Blue)
	return st, nil
}

// LinkBonus scans the grid row by row and awards the link value for every
// three contiguous occupied cells. Windows do not overlap.
func (e *Engine) LinkBonus(g *Grid) int {
	bonus := 0
	run := 0
	for i, item := range g {
		if i%types.GridColumns == 0 {
			run = 0
		}
		if item == types.ItemEmpty {
			run = 0
			continue
		}
		run++
		if run == linkRun {
			bonus += e.points.Teleop.Link
			run = 0
		}
	}
	return bonus
}

// Links returns the number of link bonuses the grid earns.
func (e *Engine) Links(g *Grid) int {
	if e.points.Teleop.Link == 0 {
		return 0
	}
	return e.LinkBonus(g) / e.points.Teleop.Link
}

// Contributions returns the points each robot banked directly: placed
// pieces and its mobility bonus. Link bonuses belong to the alliance and
// are not attributed.
func (e *Engine) Contributions(events []model.Event) (map[model.RobotRef]int, error) {
	out := make(map[model.RobotRef]int)
	for i, ev := range events {
		switch ev.Kind {
		case model.KindScore:
			out[ev.Robot] += e.points.For(ev.Phase(e.autoLength)).GamePieces.ForRow(types.RowOf(ev.Cell))
		case model.KindEarnMobility:
			if !ev.IsAuto(e.autoLength) {
				return nil, fmt.Errorf("%w: event %d: mobility bonus for %s outside autonomous",
					ErrDerivationInvariant, i, ev.Robot)
			}
			out[ev.Robot] += e.points.Auto.Mobility
		default:
			if _, ok := out[ev.Robot]; !ok {
				out[ev.Robot] = 0
			}
		}
	}
	return out, nil
}
