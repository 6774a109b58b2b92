package match

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/snapshot"
	"github.com/okian/scout/internal/domain/types"
)

// Export serializes the match. The log is copied with full timestamp
// precision so a restored match folds to the same state.
func (m *Match) Export() *snapshot.Record {
	redTeams, blueTeams := m.red.Teams(), m.blue.Teams()
	rec := &snapshot.Record{
		MatchType:         m.info.MatchType,
		CompetitionType:   m.info.CompetitionType,
		MatchNumber:       m.info.MatchNumber,
		Archive:           m.archived,
		RedAllianceTeams:  redTeams[:],
		BlueAllianceTeams: blueTeams[:],
		RedAllianceSlots:  slots(m.red),
		BlueAllianceSlots: slots(m.blue),
		AutoLength:        m.clock.autoLength,
		MatchLength:       m.clock.matchLength,
		Time:              m.clock.time,
		Date:              m.created.Format(time.RFC3339),
		Events:            make([]snapshot.Event, len(m.events)),
	}
	if m.red.preloaded() || m.blue.preloaded() {
		rec.RedAllianceStartingItems = startingItems(m.red)
		rec.BlueAllianceStartingItems = startingItems(m.blue)
	}
	for i, ev := range m.events {
		rec.Events[i] = snapshot.FromEvent(ev)
	}
	return rec
}

func slots(a *Alliance) []types.Slot {
	out := make([]types.Slot, 0, len(a.robots))
	for _, r := range a.robots {
		out = append(out, r.slot)
	}
	return out
}

func startingItems(a *Alliance) []types.ItemKind {
	out := make([]types.ItemKind, 0, len(a.robots))
	for _, r := range a.robots {
		out = append(out, r.startingItem)
	}
	return out
}

// Restore builds a fresh match from a record and replays its log. Starting
// items come from the record only, never from the log. Event
// robots are resolved by team id and alliance; when the alliance is missing
// a team on the red list is taken as red. Timestamps must be non-decreasing
// and inside the match, and the log must fold. Options are applied after
// the record's own settings.
func Restore(rec *snapshot.Record, opts ...Option) (*Match, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	var red, blue [3]string
	copy(red[:], rec.RedAllianceTeams)
	copy(blue[:], rec.BlueAllianceTeams)

	base := []Option{
		WithInfo(Info{
			MatchType:       rec.MatchType,
			CompetitionType: rec.CompetitionType,
			MatchNumber:     rec.MatchNumber,
		}),
		WithAutoLength(rec.AutoLength),
		WithMatchLength(rec.MatchLength),
	}
	if rec.Date != "" {
		created, err := time.Parse(time.RFC3339, rec.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q: %w", snapshot.ErrMalformedSnapshot, rec.Date, err)
		}
		base = append(base, WithCreated(created))
	}

	m, err := New(red, blue, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", snapshot.ErrMalformedSnapshot, err)
	}

	for i, s := range rec.RedAllianceSlots {
		m.red.robots[i].slot = s
	}
	for i, s := range rec.BlueAllianceSlots {
		m.blue.robots[i].slot = s
	}
	for i, item := range rec.RedAllianceStartingItems {
		m.red.robots[i].startingItem = item
	}
	for i, item := range rec.BlueAllianceStartingItems {
		m.blue.robots[i].startingItem = item
	}

	events := make([]model.Event, 0, len(rec.Events))
	last := 0.0
	for i, re := range rec.Events {
		ref, err := resolve(m, rec, re)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		ev, err := re.ToEvent(ref)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		if ev.Timestamp < last {
			return nil, fmt.Errorf("%w: event %d at %vs is before the previous one at %vs",
				snapshot.ErrMalformedSnapshot, i, ev.Timestamp, last)
		}
		if ev.Timestamp > m.clock.matchLength {
			return nil, fmt.Errorf("%w: event %d at %vs is after the match end",
				snapshot.ErrMalformedSnapshot, i, ev.Timestamp)
		}
		last = ev.Timestamp
		events = append(events, ev)
	}

	st, err := m.engine.Derive(events)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", snapshot.ErrMalformedSnapshot, err)
	}

	m.events = events
	for _, r := range m.Robots() {
		r.apply(st.Robots[r.Ref()])
	}
	m.clock.set(max(rec.Time, last))
	m.archived = rec.Archive
	return m, nil
}

// resolve finds the robot a record event refers to.
func resolve(m *Match, rec *snapshot.Record, re snapshot.Event) (model.RobotRef, error) {
	var color types.Color
	switch {
	case re.Alliance != "":
		c, err := types.ParseColor(re.Alliance)
		if err != nil {
			return model.RobotRef{}, fmt.Errorf("%w: %w", snapshot.ErrMalformedSnapshot, err)
		}
		color = c
	case slices.Contains(rec.RedAllianceTeams, re.Team):
		color = types.Red
	default:
		color = types.Blue
	}
	ref := model.RobotRef{Team: re.Team, Color: color}
	if _, err := m.Robot(ref); err != nil {
		return model.RobotRef{}, fmt.Errorf("%w: %w", snapshot.ErrMalformedSnapshot, err)
	}
	return ref, nil
}
