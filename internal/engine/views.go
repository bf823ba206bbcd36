package engine

import (
	"context"

	"go.uber.org/zap"
)

func (e *Engine) sendStats(ctx context.Context, userID int64) {
	u, err := e.users.Get(ctx, userID)
	if err != nil {
		e.log.Error("load user", zap.Int64("user", userID), zap.Error(err))
		return
	}
	if u == nil || u.TotalQuestions == 0 {
		e.send(ctx, userID, "No statistics yet. Answer a few questions first!", mainMenu())
		return
	}
	e.rngMu.Lock()
	motivation := e.adv.MotivationalMessage(u.Accuracy(), u.CurrentStreak)
	e.rngMu.Unlock()
	e.send(ctx, userID, statsText(u, motivation), mainMenu())
}

func (e *Engine) sendCalendar(ctx context.Context, userID int64) {
	cal, err := e.activity.Range(ctx, userID, 30, e.now())
	if err != nil {
		e.log.Error("load activity", zap.Int64("user", userID), zap.Error(err))
		return
	}
	e.send(ctx, userID, calendarText(cal, e.now()), mainMenu())
}

func (e *Engine) sendAnalysis(ctx context.Context, userID int64) {
	spots, err := e.tracker.TopN(ctx, userID, 5)
	if err != nil {
		e.log.Error("load weak spots", zap.Int64("user", userID), zap.Error(err))
		return
	}
	e.rngMu.Lock()
	report := e.adv.Analyze(spots)
	e.rngMu.Unlock()
	e.send(ctx, userID, report, mainMenu())
}

func (e *Engine) sendLeaderboard(ctx context.Context, userID int64) {
	top, err := e.users.Leaderboard(ctx, 10)
	if err != nil {
		e.log.Error("load leaderboard", zap.Error(err))
		return
	}
	e.send(ctx, userID, leaderboardText(top), mainMenu())
}
