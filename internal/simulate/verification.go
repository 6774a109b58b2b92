package simulate

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/okian/scout/internal/adapters/repository"
	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/pkg/logger"
)

const leaderboardCheck = 10

// compareViews describes the first derived difference between two views
// of the same match, or returns "".
func compareViews(want, got service.View) string {
	switch {
	case want.Score != got.Score:
		return fmt.Sprintf("score %+v, service derived %+v", want.Score, got.Score)
	case want.Links != got.Links:
		return fmt.Sprintf("links %+v, service derived %+v", want.Links, got.Links)
	case !slices.Equal(want.RedGrid, got.RedGrid):
		return fmt.Sprintf("red grid %v, service derived %v", want.RedGrid, got.RedGrid)
	case !slices.Equal(want.BlueGrid, got.BlueGrid):
		return fmt.Sprintf("blue grid %v, service derived %v", want.BlueGrid, got.BlueGrid)
	case want.Events != got.Events:
		return fmt.Sprintf("%d events, service logged %d", want.Events, got.Events)
	case len(want.Robots) != len(got.Robots):
		return fmt.Sprintf("%d robots, service has %d", len(want.Robots), len(got.Robots))
	}
	for i := range want.Robots {
		if want.Robots[i] != got.Robots[i] {
			return fmt.Sprintf("robot %s %+v, service has %+v", want.Robots[i].Team, want.Robots[i], got.Robots[i])
		}
	}
	return ""
}

// verifyLeaderboard compares the head of the service leaderboard with the
// local one. The service may hold teams from earlier runs, so callers
// treat a difference as a warning.
func verifyLeaderboard(ctx context.Context, client *HTTPClient, local *service.Service, stats *Stats) error {
	want, err := local.TopN(ctx, leaderboardCheck)
	if err != nil {
		return err
	}
	var got []repository.Entry
	status, err := client.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(leaderboardCheck), nil, &got)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("leaderboard answered %d", status)
	}
	stats.LeaderboardSize = len(got)

	if len(got) < len(want) {
		return fmt.Errorf("leaderboard has %d entries, expected at least %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].TeamID != w.TeamID || got[i].Score != w.Score || got[i].Rank != w.Rank {
			return fmt.Errorf("position %d is %s with %d, expected %s with %d",
				i+1, got[i].TeamID, got[i].Score, w.TeamID, w.Score)
		}
	}
	return nil
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var commandsPerSecond float64
	if stats.Duration > 0 {
		commandsPerSecond = float64(stats.CommandsSubmitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("matchesCreated", stats.MatchesCreated),
		logger.Int("matchesVerified", stats.MatchesVerified),
		logger.Int("commandsSubmitted", stats.CommandsSubmitted),
		logger.Int("commandsApplied", stats.CommandsApplied),
		logger.Int("commandsDuplicate", stats.CommandsDuplicate),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("leaderboardEntries", stats.LeaderboardSize),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("commandsPerSecond", commandsPerSecond))
	for _, m := range stats.Mismatches {
		log.Warn(ctx, "mismatch", logger.String("detail", m))
	}
}
