// Package reminder nudges inactive users to practice. A periodic
// sweep fires at configured hours of the day; each eligible user gets
// at most one nudge per hour, and snoozing defers a personal follow-up
// instead.
package reminder

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
)

// inactivity is the minimum idle time before a user is nudged.
const inactivity = 3 * time.Hour

// snoozeDelay is how long a snoozed follow-up waits.
const snoozeDelay = time.Hour

// sweepInterval is the cadence of eligibility checks.
const sweepInterval = time.Minute

var templates = []string{
	"Time to flex those math muscles!",
	"Your multiplication tables miss you!",
	"A quick round? Five questions and you're sharper already.",
	"Don't let the streak go cold. One session?",
}

// Options configures a Scheduler. Hours lists the local hours of day
// (0-23) at which sweeps fire. Rand and Clock default to real
// randomness and wall time.
type Options struct {
	Users  store.UserRepo
	Sender transport.Sender
	Logger *zap.Logger
	Hours  []int
	Rand   *rand.Rand
	Clock  func() time.Time
}

// Scheduler owns the sweep loop and the per-user snooze timers.
type Scheduler struct {
	users  store.UserRepo
	sender transport.Sender
	log    *zap.Logger
	hours  map[int]bool
	now    func() time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	lastSent map[int64]string // user -> hour bucket of last nudge
	snoozes  map[int64]*time.Timer
}

// New builds a scheduler. Run must be called to start sweeping.
func New(opts Options) *Scheduler {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	hours := make(map[int]bool, len(opts.Hours))
	for _, h := range opts.Hours {
		hours[h] = true
	}
	return &Scheduler{
		users:    opts.Users,
		sender:   opts.Sender,
		log:      log,
		hours:    hours,
		now:      now,
		rng:      rng,
		lastSent: make(map[int64]string),
		snoozes:  make(map[int64]*time.Timer),
	}
}

// Run sweeps until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.cancelAll()
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep nudges every eligible user once for the current hour. It is a
// no-op outside the configured hours.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	if !s.hours[now.Hour()] {
		return
	}
	users, err := s.users.Remindable(ctx)
	if err != nil {
		s.log.Error("list remindable users", zap.Error(err))
		return
	}

	bucket := now.Format("2006-01-02T15")
	sent := 0
	for i := range users {
		u := &users[i]
		if now.Sub(u.LastActivity) < inactivity {
			continue
		}
		s.mu.Lock()
		skip := s.lastSent[u.ID] == bucket
		if !skip {
			s.lastSent[u.ID] = bucket
		}
		s.mu.Unlock()
		if skip {
			continue
		}
		s.nudge(ctx, u)
		sent++
	}
	if sent > 0 {
		s.log.Info("reminder sweep", zap.Int("sent", sent), zap.Int("hour", now.Hour()))
	}
}

func (s *Scheduler) nudge(ctx context.Context, u *store.User) {
	s.mu.Lock()
	template := templates[s.rng.Intn(len(templates))]
	s.mu.Unlock()

	text := fmt.Sprintf("%s\n\n%s, you're at %d correct answers (%.0f%% accuracy). Best streak: %d.",
		template, u.DisplayName(), u.CorrectAnswers, u.Accuracy(), u.BestStreak)

	err := s.sender.Send(ctx, transport.Message{
		UserID: u.ID,
		Text:   text,
		Choices: []transport.Choice{
			{Label: "Start quiz", Token: "start_quiz"},
			{Label: "Snooze 1h", Token: "snooze_reminder"},
			{Label: "Turn off reminders", Token: "disable_reminders"},
		},
	})
	if err != nil {
		s.log.Warn("nudge failed", zap.Int64("user", u.ID), zap.Error(err))
	}
}

// Snooze schedules a single personal follow-up after the snooze
// delay, replacing any follow-up already pending for the user.
func (s *Scheduler) Snooze(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.snoozes[userID]; ok {
		t.Stop()
	}
	s.snoozes[userID] = time.AfterFunc(snoozeDelay, func() {
		s.mu.Lock()
		delete(s.snoozes, userID)
		s.mu.Unlock()
		s.followUp(context.Background(), userID)
	})
	s.log.Info("reminder snoozed", zap.Int64("user", userID))
}

// CancelSnooze drops any pending follow-up. Called when the user
// turns reminders off.
func (s *Scheduler) CancelSnooze(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.snoozes[userID]; ok {
		t.Stop()
		delete(s.snoozes, userID)
	}
}

func (s *Scheduler) followUp(ctx context.Context, userID int64) {
	u, err := s.users.Get(ctx, userID)
	if err != nil || u == nil {
		return
	}
	// Respect an opt-out made during the snooze window.
	if !u.ReminderEnabled {
		return
	}
	err = s.sender.Send(ctx, transport.Message{
		UserID: userID,
		Text:   "Snooze is over. Ready for a round?",
		Choices: []transport.Choice{
			{Label: "Start quiz", Token: "start_quiz"},
			{Label: "Turn off reminders", Token: "disable_reminders"},
		},
	})
	if err != nil {
		s.log.Warn("follow-up failed", zap.Int64("user", userID), zap.Error(err))
	}
}

func (s *Scheduler) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.snoozes {
		t.Stop()
		delete(s.snoozes, id)
	}
}
