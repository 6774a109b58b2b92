// Package service hosts live matches behind one API: it owns the match
// registry, drives running clocks, dispatches commands, and persists and
// ranks finished matches.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/scout/internal/adapters/mq/queue"
	"github.com/okian/scout/internal/adapters/mq/worker"
	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/internal/domain/dedupe"
	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/scoring"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

const (
	defaultTickHz         = 60
	defaultFrameQueueSize = 1024
	defaultDedupeSize     = 10000
	shutdownTimeout       = 5 * time.Second
)

// entry serializes access to one match. A match has a single writer.
type entry struct {
	mu sync.Mutex
	m  *match.Match
}

// Service implements the dependencies of the HTTP API and the console.
type Service struct {
	mu      sync.RWMutex
	matches map[string]*entry

	snapshots repository.SnapshotStore
	rankings  repository.RankStore
	deduper   dedupe.Deduper
	frames    *queue.InMemoryQueue
	publisher worker.Publisher
	broadcast *worker.Broadcaster
	engine    *scoring.Engine

	autoLength     float64
	matchLength    float64
	tickHz         int
	frameQueueSize int
	dedupeSize     int

	started bool
	cancel  context.CancelFunc
	ticking sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Stores default to in-memory implementations.
func New(opts ...Option) *Service {
	s := &Service{
		matches:        make(map[string]*entry),
		autoLength:     match.DefaultAutoLength,
		matchLength:    match.DefaultMatchLength,
		tickHz:         defaultTickHz,
		frameQueueSize: defaultFrameQueueSize,
		dedupeSize:     defaultDedupeSize,
		engine:         scoring.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.snapshots == nil {
		s.snapshots = repository.NewMemorySnapshotStore()
	}
	if s.rankings == nil {
		s.rankings = repository.NewTreapStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.frames = queue.NewInMemoryQueue(queue.WithCapacity(s.frameQueueSize))
	return s
}

// Start launches the clock ticker and, with a publisher, the frame
// broadcaster.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)

	if s.publisher != nil {
		s.broadcast = worker.NewBroadcaster(s.frames, s.publisher, worker.WithLogger(s.logger.Named("broadcaster")))
		go s.broadcast.Run(ctx)
	}

	s.ticking.Add(1)
	go s.tick(ctx)

	s.started = true
	s.logger.Info(ctx, "match service started",
		logger.Int("tick_hz", s.tickHz),
		logger.Int("frame_queue", s.frameQueueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Bool("broadcasting", s.publisher != nil),
	)
	return nil
}

// Stop halts the ticker and the broadcaster and closes the snapshot store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, broadcast := s.cancel, s.broadcast
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping match service")

	cancel()
	s.ticking.Wait()
	_ = s.frames.Close()
	if broadcast != nil {
		shutdownCtx, done := context.WithTimeout(ctx, shutdownTimeout)
		if err := broadcast.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "broadcaster did not stop", logger.Error(err))
		}
		done()
	}
	if err := s.snapshots.Close(); err != nil {
		s.logger.Error(ctx, "closing snapshot store", logger.Error(err))
	}
	s.logger.Info(ctx, "match service stopped")
}

// tick advances every running clock by the wall time since the last tick.
func (s *Service) tick(ctx context.Context) {
	defer s.ticking.Done()

	ticker := time.NewTicker(time.Second / time.Duration(s.tickHz))
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Advance(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Advance moves every running clock forward by dt seconds. The ticker calls
// it; tests and the console call it directly.
func (s *Service) Advance(dt float64) {
	running := 0
	for _, e := range s.entries() {
		e.mu.Lock()
		if e.m.Running() {
			e.m.Update(dt)
			if e.m.Running() {
				running++
			}
		}
		e.mu.Unlock()
	}
	metrics.UpdateRunningMatches(running)
}

// Create starts a new match for the given teams.
func (s *Service) Create(ctx context.Context, req CreateRequest) (View, error) {
	autoLength, matchLength := s.autoLength, s.matchLength
	if req.AutoLength > 0 {
		autoLength = req.AutoLength
	}
	if req.MatchLength > 0 {
		matchLength = req.MatchLength
	}

	m, err := match.New(req.Red, req.Blue, s.matchOptions(
		match.WithInfo(req.Info),
		match.WithAutoLength(autoLength),
		match.WithMatchLength(matchLength),
	)...)
	if err != nil {
		return View{}, err
	}
	e := s.add(m)

	s.logger.Info(ctx, "match created",
		logger.String("match_id", m.ID()),
		logger.Any("red", req.Red),
		logger.Any("blue", req.Blue),
	)

	e.mu.Lock()
	defer e.mu.Unlock()
	return s.view(e.m)
}

// Get returns the current view of a match.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	e, err := s.entry(id)
	if err != nil {
		return View{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.view(e.m)
}

// List returns one summary per live match, oldest first.
func (s *Service) List(ctx context.Context) []Summary {
	entries := s.entries()
	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, summarize(e.m))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Frame returns the display frame of a match.
func (s *Service) Frame(ctx context.Context, id string) (model.Frame, error) {
	e, err := s.entry(id)
	if err != nil {
		return model.Frame{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m.Frame(), nil
}

// Remove drops a live match. Saved snapshots are kept.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	delete(s.matches, id)
	metrics.UpdateActiveMatches(len(s.matches))
	s.logger.Info(ctx, "match removed", logger.String("match_id", id))
	return nil
}

// TopN returns the best n ranked teams.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.rankings.TopN(ctx, n)
}

// Rank returns the ranking entry of one team.
func (s *Service) Rank(ctx context.Context, teamID string) (repository.Entry, error) {
	return s.rankings.Rank(ctx, teamID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started, live := s.started, len(s.matches)
	s.mu.RUnlock()

	ctx := context.Background()
	return map[string]any{
		"started":      started,
		"matches":      live,
		"tickHz":       s.tickHz,
		"frameQueue":   s.frames.Len(ctx),
		"frameQueueSz": s.frameQueueSize,
		"dedupeSize":   s.deduper.Size(),
		"rankedTeams":  s.rankings.Count(ctx),
	}
}

func (s *Service) matchOptions(opts ...match.Option) []match.Option {
	return append([]match.Option{
		match.WithSink(s.frames.Sink()),
		match.WithLogger(s.logger.Named("match")),
	}, opts...)
}

func (s *Service) add(m *match.Match) *entry {
	e := &entry{m: m}
	s.mu.Lock()
	s.matches[m.ID()] = e
	n := len(s.matches)
	s.mu.Unlock()
	metrics.UpdateActiveMatches(n)
	return e
}

func (s *Service) entry(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.matches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return e, nil
}

func (s *Service) entries() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entry, 0, len(s.matches))
	for _, e := range s.matches {
		out = append(out, e)
	}
	return out
}
