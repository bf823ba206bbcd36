// Package broadcast fans an announcement out to a filtered audience.
package broadcast

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
)

// Audience selects who receives a broadcast. The zero value targets
// everyone.
type Audience struct {
	WhitelistedOnly    bool
	NonWhitelistedOnly bool
	ActiveWithinDays   int // 0 = no activity filter
}

// ParseAudience parses the CLI audience word: "all", "whitelist",
// "non_whitelist", or "active_N".
func ParseAudience(s string) (Audience, error) {
	switch {
	case s == "" || s == "all":
		return Audience{}, nil
	case s == "whitelist":
		return Audience{WhitelistedOnly: true}, nil
	case s == "non_whitelist":
		return Audience{NonWhitelistedOnly: true}, nil
	case strings.HasPrefix(s, "active_"):
		days, err := strconv.Atoi(strings.TrimPrefix(s, "active_"))
		if err != nil || days <= 0 {
			return Audience{}, fmt.Errorf("bad audience %q: want active_N with N > 0", s)
		}
		return Audience{ActiveWithinDays: days}, nil
	}
	return Audience{}, fmt.Errorf("unknown audience %q", s)
}

// Result counts broadcast outcomes.
type Result struct {
	Sent   int
	Failed int
}

// Broadcaster resolves audiences and delivers announcements.
type Broadcaster struct {
	users  store.UserRepo
	sender transport.Sender
	log    *zap.Logger
	now    func() time.Time
}

// New builds a broadcaster. A nil clock uses wall time.
func New(users store.UserRepo, sender transport.Sender, log *zap.Logger, clock func() time.Time) *Broadcaster {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{users: users, sender: sender, log: log, now: clock}
}

// Resolve returns the user IDs matching the audience.
func (b *Broadcaster) Resolve(ctx context.Context, a Audience) ([]int64, error) {
	switch {
	case a.WhitelistedOnly:
		return b.users.WhitelistedIDs(ctx, true)
	case a.NonWhitelistedOnly:
		return b.users.WhitelistedIDs(ctx, false)
	case a.ActiveWithinDays > 0:
		cutoff := b.now().AddDate(0, 0, -a.ActiveWithinDays)
		return b.users.ActiveSinceIDs(ctx, cutoff)
	}
	since := time.Time{}
	return b.users.ActiveSinceIDs(ctx, since)
}

// Send delivers text to every user in the audience, continuing past
// individual delivery failures.
func (b *Broadcaster) Send(ctx context.Context, a Audience, text string) (Result, error) {
	ids, err := b.Resolve(ctx, a)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, id := range ids {
		err := b.sender.Send(ctx, transport.Message{UserID: id, Text: text})
		if err != nil {
			res.Failed++
			b.log.Warn("broadcast delivery failed", zap.Int64("user", id), zap.Error(err))
			continue
		}
		res.Sent++
	}
	b.log.Info("broadcast complete",
		zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	return res, nil
}
