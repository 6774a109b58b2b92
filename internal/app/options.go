package service

import (
	"github.com/okian/scout/internal/adapters/mq/worker"
	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClock sets the default period lengths of new matches, in seconds.
func WithClock(autoLength, matchLength float64) Option {
	return func(s *Service) {
		if autoLength > 0 && matchLength > autoLength {
			s.autoLength = autoLength
			s.matchLength = matchLength
		}
	}
}

// WithTickHz sets how often running clocks advance.
func WithTickHz(hz int) Option {
	return func(s *Service) {
		if hz > 0 {
			s.tickHz = hz
		}
	}
}

// WithFrameQueueSize sets the capacity of the display frame queue.
func WithFrameQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.frameQueueSize = size
		}
	}
}

// WithDedupeSize sets how many command ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPublisher sets where rendered frames are delivered. Without one,
// frames are discarded.
func WithPublisher(p worker.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithSnapshotStore sets the store used by Save and Load.
func WithSnapshotStore(store repository.SnapshotStore) Option {
	return func(s *Service) {
		if store != nil {
			s.snapshots = store
		}
	}
}

// WithRankStore sets the team ranking updated on Save.
func WithRankStore(store repository.RankStore) Option {
	return func(s *Service) {
		if store != nil {
			s.rankings = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
