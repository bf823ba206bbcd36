package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/multiq/internal/transport"
)

// UI runs the chat program for a single local user and doubles as the
// engine's outbound sender.
type UI struct {
	prog   *tea.Program
	userID int64
}

// New builds the UI. handle receives every event the user produces.
func New(userID int64, handle Handler) *UI {
	return &UI{
		prog:   tea.NewProgram(newModel(userID, handle)),
		userID: userID,
	}
}

// Send implements transport.Sender. Messages addressed to other users
// (admin notifications in a multi-user deployment) are dropped in the
// single-user terminal.
func (u *UI) Send(_ context.Context, msg transport.Message) error {
	if msg.UserID != u.userID {
		return nil
	}
	u.prog.Send(incomingMsg{msg: msg})
	return nil
}

// Run blocks until the program exits.
func (u *UI) Run() error {
	_, err := u.prog.Run()
	return err
}
