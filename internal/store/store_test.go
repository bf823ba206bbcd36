package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, created, err := s.Users().GetOrCreate(ctx, 100, "maks", "Maks")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Error("expected created=true on first interaction")
	}
	if u.TotalQuestions != 0 || u.CurrentStreak != 0 {
		t.Errorf("fresh profile has non-zero counters: %+v", u)
	}

	again, created, err := s.Users().GetOrCreate(ctx, 100, "maks", "Maks")
	if err != nil {
		t.Fatalf("GetOrCreate second call: %v", err)
	}
	if created {
		t.Error("expected created=false on second interaction")
	}
	if again.ID != u.ID {
		t.Errorf("got id %d, want %d", again.ID, u.ID)
	}
}

func TestUpdateStatsInvariants(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	users := s.Users()
	now := time.Now()

	if _, _, err := users.GetOrCreate(ctx, 1, "u", "U"); err != nil {
		t.Fatal(err)
	}

	// Three correct, one wrong, two correct.
	outcomes := []bool{true, true, true, false, true, true}
	for _, ok := range outcomes {
		if err := users.UpdateStats(ctx, 1, ok, now); err != nil {
			t.Fatalf("UpdateStats: %v", err)
		}
	}

	u, err := users.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if u.CorrectAnswers+u.WrongAnswers != u.TotalQuestions {
		t.Errorf("correct(%d) + wrong(%d) != total(%d)",
			u.CorrectAnswers, u.WrongAnswers, u.TotalQuestions)
	}
	if u.CurrentStreak != 2 {
		t.Errorf("current streak = %d, want 2", u.CurrentStreak)
	}
	if u.BestStreak != 3 {
		t.Errorf("best streak = %d, want 3", u.BestStreak)
	}

	// A wrong answer resets the streak but leaves the best alone.
	if err := users.UpdateStats(ctx, 1, false, now); err != nil {
		t.Fatal(err)
	}
	u, _ = users.Get(ctx, 1)
	if u.CurrentStreak != 0 || u.BestStreak != 3 {
		t.Errorf("after miss: current=%d best=%d, want 0/3", u.CurrentStreak, u.BestStreak)
	}
}

func TestWeakSpotRanking(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	spots := s.WeakSpots()
	base := time.Now()

	// 6×7 missed three times, 8×9 once (more recently).
	for i := 0; i < 3; i++ {
		if err := spots.Upsert(ctx, 1, 6, 7, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	if err := spots.Upsert(ctx, 1, 8, 9, base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	top, err := spots.TopN(ctx, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d spots, want 2", len(top))
	}
	if top[0].A != 6 || top[0].B != 7 || top[0].Count != 3 {
		t.Errorf("top spot = %+v, want 6×7 count 3", top[0])
	}
	if top[1].Count != 1 {
		t.Errorf("second spot count = %d, want 1", top[1].Count)
	}
}

func TestActivityBump(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	act := s.Activity()
	now := time.Now()

	if err := act.Bump(ctx, 1, now); err != nil {
		t.Fatal(err)
	}
	if err := act.Bump(ctx, 1, now); err != nil {
		t.Fatal(err)
	}

	cal, err := act.Range(ctx, 1, 30, now)
	if err != nil {
		t.Fatal(err)
	}
	if got := cal[now.Format(DateFormat)]; got != 2 {
		t.Errorf("today's count = %d, want 2", got)
	}
}

func TestNotifDefaultsEnabled(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	notifs := s.Notifications()

	enabled, err := notifs.Enabled(ctx, 42)
	if err != nil {
		t.Fatal(err)
	}
	if !enabled {
		t.Error("users without a row should default to enabled")
	}

	if err := notifs.Set(ctx, 42, false); err != nil {
		t.Fatal(err)
	}
	enabled, _ = notifs.Enabled(ctx, 42)
	if enabled {
		t.Error("explicit disable not persisted")
	}
}
