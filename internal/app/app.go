// Package app wires the store, engine, reminder scheduler, and
// terminal UI together.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/multiq/internal/config"
	"github.com/abhisek/multiq/internal/engine"
	"github.com/abhisek/multiq/internal/logger"
	"github.com/abhisek/multiq/internal/reminder"
	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
	"github.com/abhisek/multiq/internal/tui"
)

// Run boots the full application and blocks until the UI exits.
func Run(cfg *config.Config) error {
	log, syncLog, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer syncLog()

	if err := store.EnsureDir(cfg.DBPath); err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	// The UI is both the event source and the outbound sender, so it
	// is created after the engine and bridged through an indirection.
	var ui *tui.UI
	sender := transport.SenderFunc(func(ctx context.Context, msg transport.Message) error {
		if ui == nil {
			return nil
		}
		return ui.Send(ctx, msg)
	})

	eng := engine.New(engine.Options{
		Store:   st,
		Sender:  sender,
		Logger:  log,
		AdminID: cfg.AdminID,
	})

	sched := reminder.New(reminder.Options{
		Users:  st.Users(),
		Sender: sender,
		Logger: log,
		Hours:  cfg.ReminderHours,
	})
	eng.OnSnooze = sched.Snooze
	eng.OnRemindersDisabled = sched.CancelSnooze

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ui = tui.New(cfg.UserID, func(ev transport.Event) {
		eng.HandleEvent(ctx, ev)
	})
	go sched.Run(ctx)

	// The local learner always has access to their own trainer.
	if _, _, err := st.Users().GetOrCreate(ctx, cfg.UserID, "", ""); err != nil {
		return err
	}
	if err := st.Users().SetWhitelisted(ctx, cfg.UserID, true); err != nil {
		return err
	}

	log.Info("starting", zap.Int64("user", cfg.UserID), zap.String("db", cfg.DBPath))
	return ui.Run()
}
