// Package simulate drives a running scout service with generated matches
// and checks the scores it derives against an in-process replay.
package simulate

import (
	"errors"
	"time"
)

// ErrMismatch is returned when the service derives a different state than
// the local replay of the same commands.
var ErrMismatch = errors.New("derived state mismatch")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Matches       int           // Number of matches to play
	Steps         int           // Robot actions per match
	Workers       int           // Matches played concurrently
	Timeout       time.Duration // HTTP request timeout
	Seed          uint64        // Generator seed; equal seeds give equal matches
	DuplicateRate float64       // Share of commands sent twice
	TeamBase      int           // First team number handed out
	Verbose       bool          // Log every match
}

// Stats holds run statistics.
type Stats struct {
	MatchesCreated    int
	MatchesVerified   int
	CommandsSubmitted int
	CommandsApplied   int
	CommandsDuplicate int
	MatchesFailed     int
	LeaderboardSize   int
	Mismatches        []string
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
