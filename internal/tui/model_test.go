package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/multiq/internal/transport"
)

func TestCommandEventParsing(t *testing.T) {
	ev := commandEvent(7, "/setname 5 Bob")
	require.Equal(t, transport.EventCommand, ev.Kind)
	require.Equal(t, int64(7), ev.UserID)
	require.Equal(t, "setname", ev.Command)
	require.Equal(t, "5 Bob", ev.Args)

	ev = commandEvent(7, "/stats")
	require.Equal(t, "stats", ev.Command)
	require.Empty(t, ev.Args)
}

func TestSubmitPicksHighlightedChoice(t *testing.T) {
	var got []transport.Event
	m := newModel(7, func(ev transport.Event) { got = append(got, ev) })
	m.choices = []transport.Choice{
		{Label: "Start quiz", Token: "start_quiz"},
		{Label: "About", Token: "info"},
	}
	m.selected = 1

	next, cmd := m.submit()
	require.NotNil(t, cmd)
	cmd() // deliver the event

	require.Len(t, got, 1)
	require.Equal(t, transport.EventCallback, got[0].Kind)
	require.Equal(t, "info", got[0].Token)

	nm := next.(model)
	require.Nil(t, nm.choices)
	require.Equal(t, entry{text: "About", outbound: true}, nm.transcript[len(nm.transcript)-1])
}

func TestSubmitPrefersTypedText(t *testing.T) {
	var got []transport.Event
	m := newModel(7, func(ev transport.Event) { got = append(got, ev) })
	m.choices = []transport.Choice{{Label: "Start quiz", Token: "start_quiz"}}
	m.input.SetValue("42")

	next, cmd := m.submit()
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, got, 1)
	require.Equal(t, transport.EventAnswer, got[0].Kind)
	require.Equal(t, "42", got[0].Text)

	// Choices stay available for after the answer feedback.
	nm := next.(model)
	require.Len(t, nm.choices, 1)
	require.Empty(t, nm.input.Value())
}

func TestClampLinesKeepsTail(t *testing.T) {
	require.Equal(t, "c\nd", clampLines("a\nb\nc\nd", 2))
	require.Equal(t, "a\nb", clampLines("a\nb", 5))
}
