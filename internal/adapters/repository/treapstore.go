package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/scout/pkg/metrics"
)

// Treap-based, in-memory RankStore.
//
// Ordering: score DESC, then team id ASC. "less" means ranks earlier, so an
// in-order traversal yields the ranking from best to worst. Ties share a
// rank and the next distinct score skips ahead (1, 2, 2, 4).

type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score int, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// countHigher returns how many nodes score strictly above score.
func countHigher(n *node, score int) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, keys map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, keys, out)
	if len(*out) < limit {
		*out = append(*out, Entry{TeamID: n.id, Score: n.score, MatchKey: keys[n.id].matchKey})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, keys, out)
	}
}

type record struct {
	score    int
	matchKey string
}

// TreapStore implements RankStore with O(log n) expected updates and
// rank queries.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]record
}

// NewTreapStore constructs an empty ranking.
func NewTreapStore() *TreapStore {
	return &TreapStore{byID: make(map[string]record)}
}

// UpdateBest implements RankStore.
func (s *TreapStore) UpdateBest(ctx context.Context, teamID string, score int, matchKey string) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank_update", float64(time.Since(start).Microseconds())/1000)
	}()

	if teamID == "" {
		return false, ErrInvalidTeam
	}

	s.mu.Lock()
	old, ok := s.byID[teamID]
	if ok {
		if score <= old.score {
			s.mu.Unlock()
			return false, nil
		}
		s.root = deleteNode(s.root, teamID, old.score)
	}
	s.byID[teamID] = record{score: score, matchKey: matchKey}
	s.root = insert(s.root, teamID, score, rand.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	metrics.RecordRankingUpdate()
	if !ok {
		metrics.UpdateRankedTeams(count)
	}
	return true, nil
}

// Rank implements RankStore.
func (s *TreapStore) Rank(ctx context.Context, teamID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank_query", float64(time.Since(start).Microseconds())/1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[teamID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, teamID)
	}
	return Entry{
		Rank:     countHigher(s.root, rec.score) + 1,
		TeamID:   teamID,
		Score:    rec.score,
		MatchKey: rec.matchKey,
	}, nil
}

// TopN implements RankStore.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, s.byID, &out)
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count implements RankStore.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
