// Package weakspot tracks repeatedly-missed operand pairs and feeds
// the adaptive training mode and the analysis report.
package weakspot

import (
	"context"
	"time"

	"github.com/abhisek/multiq/internal/store"
)

// WorklistSize is how many spots seed an adaptive training session.
const WorklistSize = 10

// Pair is one operand pair in a training worklist.
type Pair struct {
	A int
	B int
}

// Tracker records misses and ranks weak spots for a user.
type Tracker struct {
	repo store.WeakSpotRepo
}

// NewTracker creates a tracker over the given repository.
func NewTracker(repo store.WeakSpotRepo) *Tracker {
	return &Tracker{repo: repo}
}

// RecordMiss upserts the pair: the count grows by one and the
// last-error timestamp is refreshed. Counts never decrease.
func (t *Tracker) RecordMiss(ctx context.Context, userID int64, a, b int, now time.Time) error {
	return t.repo.Upsert(ctx, userID, a, b, now)
}

// TopN returns the user's hardest pairs, most-missed first, ties
// broken by recency.
func (t *Tracker) TopN(ctx context.Context, userID int64, n int) ([]store.WeakSpot, error) {
	return t.repo.TopN(ctx, userID, n)
}

// Worklist builds the ordered pair list for an adaptive session.
// Empty when the user has no recorded weak spots yet.
func (t *Tracker) Worklist(ctx context.Context, userID int64) ([]Pair, error) {
	spots, err := t.repo.TopN(ctx, userID, WorklistSize)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, len(spots))
	for _, s := range spots {
		pairs = append(pairs, Pair{A: s.A, B: s.B})
	}
	return pairs, nil
}
