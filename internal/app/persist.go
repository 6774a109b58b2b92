package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/snapshot"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// Export returns the serialized form of a live match.
func (s *Service) Export(ctx context.Context, id string) (*snapshot.Record, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m.Export(), nil
}

// Import restores a record as a new live match with a fresh id.
func (s *Service) Import(ctx context.Context, rec *snapshot.Record) (View, error) {
	m, err := match.Restore(rec, s.matchOptions()...)
	if err != nil {
		metrics.RecordSnapshotRestore(metrics.ResultRejected)
		return View{}, err
	}
	metrics.RecordSnapshotRestore(metrics.ResultOK)
	e := s.add(m)

	s.logger.Info(ctx, "match imported",
		logger.String("match_id", m.ID()),
		logger.Int("events", m.Len()),
		logger.Bool("archived", m.Archived()),
	)

	e.mu.Lock()
	defer e.mu.Unlock()
	return s.view(e.m)
}

// SaveResult reports what Save stored.
type SaveResult struct {
	Summary repository.Summary `json:"summary"`
	Ranked  []string           `json:"ranked,omitempty"`
}

// Save writes the match to the snapshot store under its key and offers
// every team's banked points to the ranking. With archive set the stored
// record is final and the live match is archived once the write succeeds.
func (s *Service) Save(ctx context.Context, id string, archive bool) (SaveResult, error) {
	e, err := s.entry(id)
	if err != nil {
		return SaveResult{}, err
	}

	// The lock spans the store write so an archived record holds exactly the
	// live log, and the live match is archived only once the write succeeded.
	e.mu.Lock()
	rec := e.m.Export()
	if archive {
		rec.Archive = true
	}
	st, err := e.m.Derive()
	var contrib map[string]int
	if err == nil {
		contrib, err = teamPoints(e.m)
	}
	if err != nil {
		e.mu.Unlock()
		metrics.RecordSnapshotSave(metrics.ResultError)
		return SaveResult{}, fmt.Errorf("save match %s: %w", id, err)
	}

	sum := repository.Summary{
		Key:             StorageKey(id, rec),
		MatchType:       rec.MatchType,
		CompetitionType: rec.CompetitionType,
		MatchNumber:     rec.MatchNumber,
		RedScore:        st.Score.Red,
		BlueScore:       st.Score.Blue,
		SavedAt:         time.Now().UTC(),
	}
	if err := s.snapshots.Save(ctx, sum, rec); err != nil {
		e.mu.Unlock()
		metrics.RecordSnapshotSave(metrics.ResultError)
		return SaveResult{}, err
	}
	if archive && !e.m.Archived() {
		e.m.Archive()
	}
	e.mu.Unlock()
	metrics.RecordSnapshotSave(metrics.ResultOK)

	res := SaveResult{Summary: sum}
	for _, team := range slices.Concat(rec.RedAllianceTeams, rec.BlueAllianceTeams) {
		updated, err := s.rankings.UpdateBest(ctx, team, contrib[team], sum.Key)
		if err != nil {
			s.logger.Warn(ctx, "ranking update failed", logger.String("team", team), logger.Error(err))
			continue
		}
		if updated {
			res.Ranked = append(res.Ranked, team)
		}
	}

	s.logger.Info(ctx, "match saved",
		logger.String("match_id", id),
		logger.String("key", sum.Key),
		logger.Int("red", sum.RedScore),
		logger.Int("blue", sum.BlueScore),
	)
	return res, nil
}

// Load restores a saved match as a new live match.
func (s *Service) Load(ctx context.Context, key string) (View, error) {
	rec, err := s.snapshots.Load(ctx, key)
	if err != nil {
		return View{}, err
	}
	return s.Import(ctx, rec)
}

// Saved lists stored snapshots.
func (s *Service) Saved(ctx context.Context) ([]repository.Summary, error) {
	return s.snapshots.List(ctx)
}

// StorageKey is the record's metadata key, or one built from the match id
// when the match metadata is incomplete.
func StorageKey(id string, rec *snapshot.Record) string {
	if key := rec.Key(); key != "" {
		return key
	}
	return "MATCH-" + id
}

// teamPoints sums direct contributions by team id.
func teamPoints(m *match.Match) (map[string]int, error) {
	contrib, err := m.Contributions()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(contrib))
	for ref, pts := range contrib {
		out[ref.Team] += pts
	}
	return out, nil
}
