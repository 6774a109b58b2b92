package service

import (
	"fmt"
	"time"

	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/scoring"
	"github.com/okian/scout/internal/domain/types"
	"github.com/okian/scout/pkg/metrics"
)

// CreateRequest describes a new match. Zero lengths take the service
// defaults.
type CreateRequest struct {
	Red         [3]string  `json:"red"`
	Blue        [3]string  `json:"blue"`
	Info        match.Info `json:"info"`
	AutoLength  float64    `json:"auto_length,omitempty"`
	MatchLength float64    `json:"match_length,omitempty"`
}

// Summary is the list form of a live match.
type Summary struct {
	ID       string           `json:"id"`
	Info     match.Info       `json:"info"`
	Created  time.Time        `json:"created"`
	Archived bool             `json:"archived"`
	Timer    string           `json:"timer"`
	Clock    match.ClockState `json:"clock"`
	Red      [3]string        `json:"red"`
	Blue     [3]string        `json:"blue"`
}

// RobotView is the projection of one robot.
type RobotView struct {
	Team           string         `json:"team"`
	Alliance       types.Color    `json:"alliance"`
	Slot           types.Slot     `json:"slot"`
	StartingItem   types.ItemKind `json:"starting_item"`
	Inventory      types.ItemKind `json:"inventory"`
	Disabled       bool           `json:"disabled"`
	MobilityEarned bool           `json:"mobility_earned"`
	Docked         bool           `json:"docked"`
	Engaged        bool           `json:"engaged"`
	Points         int            `json:"points"`
}

// View is the full derived state of a match.
type View struct {
	Summary
	Time        float64          `json:"time"`
	AutoLength  float64          `json:"auto_length"`
	MatchLength float64          `json:"match_length"`
	Phase       types.Phase      `json:"phase"`
	Score       scoring.Score    `json:"score"`
	Links       scoring.Score    `json:"links"`
	RedGrid     []types.ItemKind `json:"red_grid"`
	BlueGrid    []types.ItemKind `json:"blue_grid"`
	Robots      []RobotView      `json:"robots"`
	Events      int              `json:"events"`
}

func summarize(m *match.Match) Summary {
	return Summary{
		ID:       m.ID(),
		Info:     m.Info(),
		Created:  m.Created(),
		Archived: m.Archived(),
		Timer:    m.Timer(),
		Clock:    m.State(),
		Red:      m.Alliance(types.Red).Teams(),
		Blue:     m.Alliance(types.Blue).Teams(),
	}
}

// view folds the log of m. The caller holds the entry lock.
func (s *Service) view(m *match.Match) (View, error) {
	start := time.Now()
	st, err := m.Derive()
	var contrib map[model.RobotRef]int
	if err == nil {
		contrib, err = m.Contributions()
	}
	metrics.RecordDerivationLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordDerivationError()
		return View{}, fmt.Errorf("derive match %s: %w", m.ID(), err)
	}

	v := View{
		Summary:     summarize(m),
		Time:        m.Time(),
		AutoLength:  m.AutoLength(),
		MatchLength: m.MatchLength(),
		Phase:       m.Phase(),
		Score:       st.Score,
		Links:       scoring.Score{Red: s.engine.Links(&st.Red), Blue: s.engine.Links(&st.Blue)},
		RedGrid:     st.Red[:],
		BlueGrid:    st.Blue[:],
		Events:      m.Len(),
	}
	for _, r := range m.Robots() {
		v.Robots = append(v.Robots, RobotView{
			Team:           r.Team(),
			Alliance:       r.Color(),
			Slot:           r.Slot(),
			StartingItem:   r.StartingItem(),
			Inventory:      r.Inventory(),
			Disabled:       r.Disabled(),
			MobilityEarned: r.MobilityEarned(),
			Docked:         r.Docked(),
			Engaged:        r.Engaged(),
			Points:         contrib[r.Ref()],
		})
	}
	return v, nil
}
