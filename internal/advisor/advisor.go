// Package advisor derives human-readable analysis, hints, and
// motivational text from aggregated statistics. There is no learned
// model here: everything is templated heuristics over error counts.
package advisor

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/abhisek/multiq/internal/store"
)

// Advisor picks templated messages. The rand source is injectable for
// deterministic tests.
type Advisor struct {
	rng *rand.Rand
}

// New creates an advisor. A nil rng gets a time-seeded one.
func New(rng *rand.Rand) *Advisor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Advisor{rng: rng}
}

var motivationTiers = []struct {
	minAccuracy float64
	messages    []string
}{
	{90, []string{
		"Phenomenal! You're a true master!",
		"Perfect precision! Keep it up!",
		"Brilliant! You're a legend!",
	}},
	{75, []string{
		"Excellent! A little more and you'll be flawless!",
		"Very good! Keep practicing!",
		"Great progress!",
	}},
	{50, []string{
		"Not bad, but you can do better!",
		"Practice makes perfect!",
		"Every mistake is a lesson!",
	}},
	{0, []string{
		"The beginning is always the hardest!",
		"Every mathematician started with mistakes!",
		"Review the tables and try again!",
	}},
}

// MotivationalMessage buckets accuracy into four tiers and appends a
// streak celebration at 5+ (stronger at 10+).
func (a *Advisor) MotivationalMessage(accuracy float64, streak int) string {
	var pool []string
	for _, tier := range motivationTiers {
		if accuracy >= tier.minAccuracy {
			pool = tier.messages
			break
		}
	}
	msg := pool[a.rng.Intn(len(pool))]

	switch {
	case streak >= 10:
		msg += fmt.Sprintf("\nIncredible run: %d in a row!", streak)
	case streak >= 5:
		msg += fmt.Sprintf("\nGreat run: %d in a row!", streak)
	}
	return msg
}

// Analyze renders the weak-spot report: the hardest pairs with error
// counts, the single most error-prone operand across them, and three
// fixed coaching tips. spots is expected pre-ranked (TopN order).
func (a *Advisor) Analyze(spots []store.WeakSpot) string {
	if len(spots) == 0 {
		return "Not enough data to analyze yet. Keep practicing!"
	}

	var sb strings.Builder
	sb.WriteString("ANALYSIS OF YOUR RESULTS\n\n")
	sb.WriteString("Hardest problems:\n")
	for i, s := range spots {
		fmt.Fprintf(&sb, "%d. %d × %d — errors: %d\n", i+1, s.A, s.B, s.Count)
	}

	sb.WriteString("\nObservations:\n")
	if n, ok := MostFrequentOperand(spots); ok {
		fmt.Fprintf(&sb, "• You most often slip up on the number %d\n", n)
	}

	sb.WriteString("\nRecommendations:\n")
	sb.WriteString("• Practice these problems in training mode\n")
	sb.WriteString("• Review the multiplication table for the tricky numbers\n")
	sb.WriteString("• Try decomposing problems (7×8 = 7×7 + 7)\n")

	return sb.String()
}

// MostFrequentOperand returns the operand appearing most often across
// the given spots. Ties resolve to the operand seen first.
func MostFrequentOperand(spots []store.WeakSpot) (int, bool) {
	if len(spots) == 0 {
		return 0, false
	}
	counts := make(map[int]int)
	var order []int
	for _, s := range spots {
		for _, n := range []int{s.A, s.B} {
			if counts[n] == 0 {
				order = append(order, n)
			}
			counts[n]++
		}
	}
	best, bestCount := 0, 0
	for _, n := range order {
		if counts[n] > bestCount {
			best, bestCount = n, counts[n]
		}
	}
	return best, true
}

// Hint returns one of three templated hint strategies for a×b.
func (a *Advisor) Hint(x, y int) string {
	hints := []string{
		fmt.Sprintf("Hint: %d × %d = %d + %d + ... (%d times)", x, y, x, x, y),
		fmt.Sprintf("Hint: %d × %d = %d, so %d × %d = %d + %d",
			x, y-1, x*(y-1), x, y, x*(y-1), x),
		"Hint: try breaking it into parts!",
	}
	return hints[a.rng.Intn(len(hints))]
}
