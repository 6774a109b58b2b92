package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("team not ranked")
	ErrInvalidLimit     = errors.New("invalid leaderboard limit")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidKey       = errors.New("invalid snapshot key")
	ErrInvalidTeam      = errors.New("invalid team id")
)
