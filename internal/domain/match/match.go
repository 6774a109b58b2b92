// Package match hosts the match aggregate: the append-only event log, the
// match clock and the two alliances whose robots validate commands and
// record them as events.
//
// A Match is not safe for concurrent use. Callers serialize commands and
// clock updates on one goroutine or behind one lock.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/scoring"
	"github.com/okian/scout/internal/domain/types"
	"github.com/okian/scout/pkg/logger"
)

// Info is optional match metadata.
type Info struct {
	MatchType       string `json:"match_type,omitempty"`
	CompetitionType string `json:"competition_type,omitempty"`
	MatchNumber     int    `json:"match_number,omitempty"`
}

// Match is the aggregate root.
type Match struct {
	id       string
	info     Info
	created  time.Time
	archived bool

	red  *Alliance
	blue *Alliance

	events []model.Event
	clock  clock
	engine *scoring.Engine

	sink   Sink
	logger logger.Logger
}

// New creates a match for three red and three blue team ids.
func New(red, blue [3]string, opts ...Option) (*Match, error) {
	m := &Match{
		id:      uuid.NewString(),
		created: time.Now().UTC(),
		clock: clock{
			autoLength:  DefaultAutoLength,
			matchLength: DefaultMatchLength,
		},
		sink:   nopSink{},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.clock.autoLength >= m.clock.matchLength {
		return nil, fmt.Errorf("%w: auto %.2fs is not shorter than match %.2fs",
			ErrInvalidClock, m.clock.autoLength, m.clock.matchLength)
	}
	if err := validateTeams(types.Red, red); err != nil {
		return nil, err
	}
	if err := validateTeams(types.Blue, blue); err != nil {
		return nil, err
	}

	m.engine = scoring.New(scoring.WithAutoLength(m.clock.autoLength))
	m.red = newAlliance(m, types.Red, red)
	m.blue = newAlliance(m, types.Blue, blue)
	return m, nil
}

func validateTeams(c types.Color, teams [3]string) error {
	seen := make(map[string]struct{}, len(teams))
	for _, t := range teams {
		if t == "" {
			return fmt.Errorf("%w: %s alliance has an empty team id", ErrInvalidTeams, c)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: team %s appears twice on %s", ErrInvalidTeams, t, c)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// ID returns the match uuid.
func (m *Match) ID() string { return m.id }

// Info returns the match metadata.
func (m *Match) Info() Info { return m.info }

// Created returns when the match was created, in UTC.
func (m *Match) Created() time.Time { return m.created }

// Archived reports whether the log is frozen.
func (m *Match) Archived() bool { return m.archived }

// AutoLength returns the autonomous period length in seconds.
func (m *Match) AutoLength() float64 { return m.clock.autoLength }

// MatchLength returns the match length in seconds.
func (m *Match) MatchLength() float64 { return m.clock.matchLength }

// Archive freezes the log. Commands are rejected afterwards and Reset only
// rewinds the clock.
func (m *Match) Archive() {
	m.archived = true
	m.logger.Info(context.Background(), "match archived",
		logger.String("match_id", m.id), logger.Int("events", len(m.events)))
}

// Alliance returns the alliance of color c.
func (m *Match) Alliance(c types.Color) *Alliance {
	if c == types.Red {
		return m.red
	}
	return m.blue
}

// Robots returns all six robots, red first.
func (m *Match) Robots() []*Robot {
	return append(append(make([]*Robot, 0, 6), m.red.Robots()...), m.blue.Robots()...)
}

// Robot resolves a reference to the robot it names.
func (m *Match) Robot(ref model.RobotRef) (*Robot, error) {
	if !ref.Color.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRobot, ref)
	}
	r, ok := m.Alliance(ref.Color).Robot(ref.Team)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRobot, ref)
	}
	return r, nil
}

// Events returns a copy of the log.
func (m *Match) Events() []model.Event {
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of logged events.
func (m *Match) Len() int { return len(m.events) }

// Derive folds the full log.
func (m *Match) Derive() (scoring.State, error) {
	return m.engine.Derive(m.events)
}

// DeriveAt folds the events logged at or before t.
func (m *Match) DeriveAt(t float64) (scoring.State, error) {
	n := 0
	for n < len(m.events) && m.events[n].Timestamp <= t {
		n++
	}
	return m.engine.Derive(m.events[:n])
}

// Engine returns the scoring engine the match folds with.
func (m *Match) Engine() *scoring.Engine { return m.engine }

// Contributions returns the points each robot banked directly.
func (m *Match) Contributions() (map[model.RobotRef]int, error) {
	return m.engine.Contributions(m.events)
}

// Play starts the clock unless the match has ended.
func (m *Match) Play() {
	m.clock.play()
	m.render()
}

// Pause stops the clock.
func (m *Match) Pause() {
	m.clock.pause()
	m.render()
}

// Toggle flips between running and stopped unless the match has ended.
func (m *Match) Toggle() {
	m.clock.toggle()
	m.render()
}

// Update advances the clock by dt seconds while running. Non-positive dt
// is ignored. Time never passes matchLength.
func (m *Match) Update(dt float64) {
	m.clock.advance(dt)
	m.render()
}

// Time returns the match time in seconds.
func (m *Match) Time() float64 { return m.clock.time }

// Running reports whether the clock is ticking.
func (m *Match) Running() bool { return m.clock.running }

// Phase returns the period the clock is in.
func (m *Match) Phase() types.Phase { return m.clock.phase() }

// State returns the clock state.
func (m *Match) State() ClockState { return m.clock.state() }

// Timer returns the match time formatted as M:SS.CC.
func (m *Match) Timer() string { return FormatTimer(m.clock.time) }

// Reset rewinds the clock, clears the log and every robot projection.
// Preloaded items are logged again at time zero. An archived match only
// rewinds the clock.
func (m *Match) Reset() {
	m.clock.reset()
	if !m.archived {
		m.events = m.events[:0:0]
		m.red.Reset()
		m.blue.Reset()
		for _, r := range m.Robots() {
			if r.startingItem != types.ItemEmpty {
				m.events = append(m.events, model.NewSetInventory(r.Ref(), 0, r.startingItem))
			}
		}
	}
	m.logger.Info(context.Background(), "match reset",
		logger.String("match_id", m.id), logger.Bool("archived", m.archived))
	m.render()
}

// FieldClick applies a click on cell of the robot's own grid: an occupied
// cell is dislodged, an empty one receives the held item. It returns the
// kind of event that was appended.
func (m *Match) FieldClick(ref model.RobotRef, cell int) (model.Kind, error) {
	r, err := m.Robot(ref)
	if err != nil {
		return "", err
	}
	if !types.ValidCell(cell) {
		return "", m.reject(ref, model.KindScore, fmt.Errorf("%w: %d", ErrInvalidCell, cell))
	}
	st, err := m.derive()
	if err != nil {
		return "", err
	}
	if st.Grid(ref.Color).Occupied(cell) {
		return model.KindDislodge, r.Dislodge(cell)
	}
	return model.KindScore, r.ScorePiece(cell)
}

// Frame returns what a display shows for the current state.
func (m *Match) Frame() model.Frame {
	robots := m.Robots()
	glyphs := make([]model.RobotGlyph, len(robots))
	for i, r := range robots {
		glyphs[i] = model.RobotGlyph{Robot: r.Ref(), Inventory: r.inventory, Disabled: r.disabled}
	}
	return model.Frame{
		MatchID: m.id,
		Timer:   m.Timer(),
		Running: m.clock.running,
		Phase:   m.clock.phase(),
		Robots:  glyphs,
	}
}

func (m *Match) render() {
	m.sink.Render(m.Frame())
}

// recorder implementation.

func (m *Match) now() float64        { return m.clock.time }
func (m *Match) autoLength() float64 { return m.clock.autoLength }

func (m *Match) writable() error {
	if m.archived {
		return fmt.Errorf("%w: %s", ErrArchived, m.id)
	}
	return nil
}

func (m *Match) derive() (scoring.State, error) {
	st, err := m.engine.Derive(m.events)
	if err != nil {
		m.logger.Error(context.Background(), "log does not fold",
			logger.String("match_id", m.id), logger.Error(err))
	}
	return st, err
}

func (m *Match) record(ev model.Event, project func()) {
	m.events = append(m.events, ev)
	if project != nil {
		project()
	}
	m.logger.Debug(context.Background(), "event recorded",
		logger.String("match_id", m.id),
		logger.String("kind", string(ev.Kind)),
		logger.String("robot", ev.Robot.String()),
		logger.Float64("at", ev.Timestamp),
	)
	m.render()
}

func (m *Match) reject(ref model.RobotRef, kind model.Kind, err error) error {
	m.logger.Debug(context.Background(), "command rejected",
		logger.String("match_id", m.id),
		logger.String("kind", string(kind)),
		logger.String("robot", ref.String()),
		logger.Error(err),
	)
	m.render()
	return err
}
