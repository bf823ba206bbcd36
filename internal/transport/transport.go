// Package transport defines the boundary between the quiz engine and
// whatever delivers messages to the user. The engine emits render
// requests (text plus an optional choice menu) and consumes normalized
// inbound events; it never sees the concrete delivery mechanism.
package transport

import "context"

// EventKind discriminates inbound events.
type EventKind int

const (
	// EventCommand is a slash-style command with arguments.
	EventCommand EventKind = iota
	// EventCallback is a choice-menu selection, identified by token.
	EventCallback
	// EventAnswer is free-text input while a question is pending.
	EventAnswer
)

// Event is a normalized inbound user action.
type Event struct {
	Kind    EventKind
	UserID  int64
	Handle  string // transport-level username, may be empty
	Name    string // transport-level display name, may be empty
	Command string // set for EventCommand
	Args    string // raw argument string for EventCommand
	Token   string // set for EventCallback
	Text    string // set for EventAnswer
}

// Choice is a single menu entry. Token is echoed back in an
// EventCallback when the user picks it.
type Choice struct {
	Label string
	Token string
}

// Message is an outbound render request.
type Message struct {
	UserID  int64
	Text    string
	Choices []Choice
}

// Sender delivers outbound messages. Implementations must be safe for
// concurrent use: the engine sends from timer callbacks and the
// reminder sweep as well as from inbound-event handling.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }
