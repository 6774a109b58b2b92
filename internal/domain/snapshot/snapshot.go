// Package snapshot defines the portable match record used for export,
// import and persistence.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/types"
)

// AllianceSize is the number of team ids per alliance.
const AllianceSize = 3

// ErrMalformedSnapshot is returned for records with an unknown team, an
// unknown event shape or a broken timeline.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Event is the serialized form of a model.Event. The robot is referenced by
// team id; Alliance is optional and inferred from the team lists when absent.
type Event struct {
	Kind      model.Kind `json:"kind"`
	Team      string     `json:"robotTeamId"`
	Alliance  string     `json:"alliance,omitempty"`
	Timestamp float64    `json:"timestamp"`
	Item      string     `json:"item,omitempty"`
	Origin    string     `json:"origin,omitempty"`
	Cell      *int       `json:"cell,omitempty"`
}

// Record is a serialized match. Starting items are the preloads each robot
// gets back on reset; they are listed in team order.
type Record struct {
	MatchType                 string           `json:"matchType,omitempty"`
	CompetitionType           string           `json:"competitionType,omitempty"`
	MatchNumber               int              `json:"matchNumber,omitempty"`
	Archive                   bool             `json:"archive,omitempty"`
	RedAllianceTeams          []string         `json:"redAllianceTeams"`
	BlueAllianceTeams         []string         `json:"blueAllianceTeams"`
	RedAllianceSlots          []types.Slot     `json:"redAllianceSlots,omitempty"`
	BlueAllianceSlots         []types.Slot     `json:"blueAllianceSlots,omitempty"`
	RedAllianceStartingItems  []types.ItemKind `json:"redAllianceStartingItems,omitempty"`
	BlueAllianceStartingItems []types.ItemKind `json:"blueAllianceStartingItems,omitempty"`
	AutoLength                float64          `json:"autoLength,omitempty"`
	MatchLength               float64          `json:"matchLength,omitempty"`
	Time                      float64          `json:"time,omitempty"`
	Date                      string           `json:"date,omitempty"`
	Events                    []Event          `json:"events"`
}

// FromEvent converts a log event into its record form.
func FromEvent(e model.Event) Event {
	out := Event{
		Kind:      e.Kind,
		Team:      e.Robot.Team,
		Alliance:  e.Robot.Color.String(),
		Timestamp: e.Timestamp,
	}
	switch e.Kind {
	case model.KindPickUp:
		out.Item = e.Item.String()
		out.Origin = e.Origin.String()
	case model.KindSetInventory:
		out.Item = e.Item.String()
	case model.KindScore:
		out.Item = e.Item.String()
		cell := e.Cell
		out.Cell = &cell
	case model.KindDislodge:
		cell := e.Cell
		out.Cell = &cell
	}
	return out
}

// ToEvent converts the record back into a log event for the given robot.
func (e Event) ToEvent(robot model.RobotRef) (model.Event, error) {
	out := model.Event{Kind: e.Kind, Robot: robot, Timestamp: e.Timestamp}
	var err error

	switch e.Kind {
	case model.KindPickUp:
		if out.Item, err = types.ParseItemKind(e.Item); err != nil {
			return model.Event{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
		}
		out.Origin = types.OriginField
		if e.Origin != "" {
			if out.Origin, err = types.ParseOrigin(e.Origin); err != nil {
				return model.Event{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
			}
		}
	case model.KindSetInventory:
		if e.Item != "" {
			if out.Item, err = types.ParseItemKind(e.Item); err != nil {
				return model.Event{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
			}
		}
	case model.KindScore, model.KindDislodge:
		if e.Cell == nil {
			return model.Event{}, fmt.Errorf("%w: %s without cell", ErrMalformedSnapshot, e.Kind)
		}
		out.Cell = *e.Cell
		if e.Kind == model.KindScore {
			if out.Item, err = types.ParseItemKind(e.Item); err != nil {
				return model.Event{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
			}
		}
	}

	if err := out.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return out, nil
}

// Key returns the storage key of a match with metadata, in the form
// MATCH-<competition>-<type>-<number>. It is empty when the record carries
// no match number, competition or match type.
func (r *Record) Key() string {
	if r.MatchNumber == 0 || r.CompetitionType == "" || r.MatchType == "" {
		return ""
	}
	return "MATCH-" + r.CompetitionType + "-" + r.MatchType + "-" + strconv.Itoa(r.MatchNumber)
}

// Validate checks the structure of the record. It does not replay events.
func (r *Record) Validate() error {
	if err := validTeams("red", r.RedAllianceTeams); err != nil {
		return err
	}
	if err := validTeams("blue", r.BlueAllianceTeams); err != nil {
		return err
	}
	if n := len(r.RedAllianceSlots); n != 0 && n != AllianceSize {
		return fmt.Errorf("%w: red alliance has %d slots", ErrMalformedSnapshot, n)
	}
	if n := len(r.BlueAllianceSlots); n != 0 && n != AllianceSize {
		return fmt.Errorf("%w: blue alliance has %d slots", ErrMalformedSnapshot, n)
	}
	if n := len(r.RedAllianceStartingItems); n != 0 && n != AllianceSize {
		return fmt.Errorf("%w: red alliance has %d starting items", ErrMalformedSnapshot, n)
	}
	if n := len(r.BlueAllianceStartingItems); n != 0 && n != AllianceSize {
		return fmt.Errorf("%w: blue alliance has %d starting items", ErrMalformedSnapshot, n)
	}
	if r.AutoLength < 0 || r.MatchLength < 0 || r.Time < 0 {
		return fmt.Errorf("%w: negative clock values", ErrMalformedSnapshot)
	}
	if r.AutoLength > 0 && r.MatchLength > 0 && r.AutoLength >= r.MatchLength {
		return fmt.Errorf("%w: autoLength %v must be below matchLength %v", ErrMalformedSnapshot, r.AutoLength, r.MatchLength)
	}
	for i, e := range r.Events {
		if !e.Kind.Known() {
			return fmt.Errorf("%w: event %d has unknown kind %q", ErrMalformedSnapshot, i, e.Kind)
		}
		if e.Team == "" {
			return fmt.Errorf("%w: event %d has no robotTeamId", ErrMalformedSnapshot, i)
		}
		if math.IsNaN(e.Timestamp) || math.IsInf(e.Timestamp, 0) || e.Timestamp < 0 {
			return fmt.Errorf("%w: event %d has timestamp %v", ErrMalformedSnapshot, i, e.Timestamp)
		}
		if e.Alliance != "" {
			if _, err := types.ParseColor(e.Alliance); err != nil {
				return fmt.Errorf("%w: event %d: %w", ErrMalformedSnapshot, i, err)
			}
		}
	}
	return nil
}

func validTeams(color string, teams []string) error {
	if len(teams) != AllianceSize {
		return fmt.Errorf("%w: %s alliance has %d teams", ErrMalformedSnapshot, color, len(teams))
	}
	for _, t := range teams {
		if t == "" {
			return fmt.Errorf("%w: %s alliance has an empty team id", ErrMalformedSnapshot, color)
		}
	}
	return nil
}

// Marshal encodes the record as JSON.
func Marshal(r *Record) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

// Unmarshal decodes and validates a JSON record.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
