// Package repository holds the stores behind the match service: a team
// ranking and a snapshot store for saved matches.
package repository

import (
	"context"
	"time"

	"github.com/okian/scout/internal/domain/snapshot"
)

// Entry is one row of the team ranking.
type Entry struct {
	Rank     int    `json:"rank"`
	TeamID   string `json:"team_id"`
	Score    int    `json:"score"`
	MatchKey string `json:"match_key,omitempty"`
}

// RankStore keeps each team's best single-match contribution.
type RankStore interface {
	// UpdateBest records score for team when it beats the stored best.
	// It reports whether the stored value changed.
	UpdateBest(ctx context.Context, teamID string, score int, matchKey string) (bool, error)

	// Rank returns the entry of one team or ErrNotFound.
	Rank(ctx context.Context, teamID string) (Entry, error)

	// TopN returns the best n entries, score desc then team id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	Count(ctx context.Context) int
}

// Summary describes a saved match without its log.
type Summary struct {
	Key             string    `json:"key" db:"key"`
	MatchType       string    `json:"match_type,omitempty" db:"match_type"`
	CompetitionType string    `json:"competition_type,omitempty" db:"competition_type"`
	MatchNumber     int       `json:"match_number,omitempty" db:"match_number"`
	RedScore        int       `json:"red_score" db:"red_score"`
	BlueScore       int       `json:"blue_score" db:"blue_score"`
	SavedAt         time.Time `json:"saved_at" db:"saved_at"`
}

// SnapshotStore persists serialized matches by key. Saving an existing key
// replaces it.
type SnapshotStore interface {
	Save(ctx context.Context, sum Summary, rec *snapshot.Record) error
	Load(ctx context.Context, key string) (*snapshot.Record, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
