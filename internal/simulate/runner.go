package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/pkg/logger"
)

// counters are shared by the match workers.
type counters struct {
	created, verified                     atomic.Int64
	submitted, applied, duplicate, failed atomic.Int64
	mu                                    sync.Mutex
	mismatches                            []string
}

func (c *counters) mismatch(format string, args ...any) {
	c.mu.Lock()
	c.mismatches = append(c.mismatches, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}

// Run plays every generated match against the service and against a local
// replay, then compares derived states and rankings. A mismatch is
// reported in Stats and as ErrMismatch.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("matches", cfg.Matches),
		logger.Int("steps", cfg.Steps),
		logger.Int("workers", cfg.Workers),
		logger.Float64("duplicateRate", cfg.DuplicateRate))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	plans := Generate(rng, cfg.Matches, cfg.Steps, cfg.TeamBase)

	local := service.New(service.WithLogger(logger.Nop()))
	expected, err := replay(ctx, local, plans)
	if err != nil {
		return nil, fmt.Errorf("local replay failed: %w", err)
	}

	var c counters
	workers := max(cfg.Workers, 1)
	work := make(chan int, workers*2)
	var wg sync.WaitGroup
	for range workers {
		dup := rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if err := playMatch(ctx, client, plans[i], expected[i], cfg.DuplicateRate, dup, &c); err != nil {
					c.failed.Add(1)
					log.Warn(ctx, "match failed", logger.Int("match", i+1), logger.Error(err))
					continue
				}
				if cfg.Verbose {
					log.Info(ctx, "match verified", logger.Int("match", i+1),
						logger.Int("red", expected[i].Score.Red), logger.Int("blue", expected[i].Score.Blue))
				}
			}
		}()
	}
feed:
	for i := range plans {
		select {
		case <-ctx.Done():
			break feed
		case work <- i:
		}
	}
	close(work)
	wg.Wait()

	stats.MatchesCreated = int(c.created.Load())
	stats.MatchesVerified = int(c.verified.Load())
	stats.CommandsSubmitted = int(c.submitted.Load())
	stats.CommandsApplied = int(c.applied.Load())
	stats.CommandsDuplicate = int(c.duplicate.Load())
	stats.MatchesFailed = int(c.failed.Load())
	stats.Mismatches = c.mismatches

	if err := verifyLeaderboard(ctx, client, local, stats); err != nil {
		log.Warn(ctx, "leaderboard differs from local replay", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if len(stats.Mismatches) > 0 {
		return stats, fmt.Errorf("%w: %d matches", ErrMismatch, len(stats.Mismatches))
	}
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, err := client.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// replay applies every plan to a local service, saves each match and
// returns the derived views in plan order.
func replay(ctx context.Context, local *service.Service, plans []Plan) ([]service.View, error) {
	views := make([]service.View, len(plans))
	for i, p := range plans {
		v, err := local.Create(ctx, p.Request)
		if err != nil {
			return nil, err
		}
		for _, cmd := range p.Commands {
			if _, err := local.Execute(ctx, v.ID, cmd); err != nil {
				return nil, fmt.Errorf("match %d command %s: %w", i+1, cmd.ID, err)
			}
		}
		if _, err := local.Save(ctx, v.ID, true); err != nil {
			return nil, err
		}
		if views[i], err = local.Get(ctx, v.ID); err != nil {
			return nil, err
		}
	}
	return views, nil
}

func playMatch(ctx context.Context, client *HTTPClient, p Plan, want service.View, dupRate float64, rng *rand.Rand, c *counters) error {
	var created service.View
	status, err := client.do(ctx, http.MethodPost, "/matches", p.Request, &created)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("create answered %d", status)
	}
	c.created.Add(1)
	base := "/matches/" + created.ID

	for _, cmd := range p.Commands {
		sends := 1
		if rng.Float64() < dupRate {
			sends = 2
		}
		for n := range sends {
			var res service.Result
			c.submitted.Add(1)
			status, err := client.do(ctx, http.MethodPost, base+"/commands", cmd, &res)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("command %s answered %d", cmd.ID, status)
			}
			switch {
			case res.Duplicate:
				c.duplicate.Add(1)
			case n > 0:
				return fmt.Errorf("resent command %s was applied twice", cmd.ID)
			default:
				c.applied.Add(1)
			}
		}
	}

	if status, err := client.do(ctx, http.MethodPost, base+"/save?archive=true", nil, nil); err != nil || status != http.StatusOK {
		return fmt.Errorf("save answered %d: %v", status, err)
	}

	var got service.View
	if status, err := client.do(ctx, http.MethodGet, base, nil, &got); err != nil || status != http.StatusOK {
		return fmt.Errorf("get answered %d: %v", status, err)
	}
	if diff := compareViews(want, got); diff != "" {
		c.mismatch("match %d: %s", p.Request.Info.MatchNumber, diff)
		return nil
	}
	c.verified.Add(1)
	return nil
}
