// Package tui is the terminal chat front-end. It renders engine
// messages as a conversation transcript and turns keystrokes into
// transport events.
package tui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/multiq/internal/transport"
)

// incomingMsg carries one engine message into the Bubble Tea loop.
type incomingMsg struct {
	msg transport.Message
}

type entry struct {
	text     string
	outbound bool // typed by the learner
}

// Handler consumes the events the model emits.
type Handler func(transport.Event)

type model struct {
	userID int64
	handle Handler

	transcript []entry
	choices    []transport.Choice
	selected   int

	input  textinput.Model
	width  int
	height int
}

func newModel(userID int64, handle Handler) model {
	ti := textinput.New()
	ti.Placeholder = "type an answer, or pick with ↑↓ and Enter"
	ti.Focus()
	ti.CharLimit = 64
	return model{
		userID: userID,
		handle: handle,
		input:  ti,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.input.Focus(), m.emit(transport.Event{
		Kind:    transport.EventCommand,
		UserID:  m.userID,
		Command: "start",
	}))
}

// emit hands the event to the engine off the update loop. The
// engine's replies come back as incomingMsg via the program.
func (m model) emit(ev transport.Event) tea.Cmd {
	handle := m.handle
	return func() tea.Msg {
		handle(ev)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case incomingMsg:
		m.transcript = append(m.transcript, entry{text: msg.msg.Text})
		if len(msg.msg.Choices) > 0 {
			m.choices = msg.msg.Choices
			m.selected = 0
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "up", "ctrl+p":
			if len(m.choices) > 0 && m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "ctrl+n":
			if len(m.choices) > 0 && m.selected < len(m.choices)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends typed text as an answer, or the highlighted choice
// when the input is empty.
func (m model) submit() (tea.Model, tea.Cmd) {
	typed := strings.TrimSpace(m.input.Value())
	if typed != "" {
		m.transcript = append(m.transcript, entry{text: typed, outbound: true})
		m.input.SetValue("")
		if strings.HasPrefix(typed, "/") {
			return m, m.emit(commandEvent(m.userID, typed))
		}
		return m, m.emit(transport.Event{
			Kind:   transport.EventAnswer,
			UserID: m.userID,
			Text:   typed,
		})
	}

	if len(m.choices) == 0 {
		return m, nil
	}
	choice := m.choices[m.selected]
	m.transcript = append(m.transcript, entry{text: choice.Label, outbound: true})
	m.choices = nil
	return m, m.emit(transport.Event{
		Kind:   transport.EventCallback,
		UserID: m.userID,
		Token:  choice.Token,
	})
}

// commandEvent parses "/cmd arg arg" input.
func commandEvent(userID int64, typed string) transport.Event {
	fields := strings.SplitN(strings.TrimPrefix(typed, "/"), " ", 2)
	ev := transport.Event{
		Kind:    transport.EventCommand,
		UserID:  userID,
		Command: fields[0],
	}
	if len(fields) == 2 {
		ev.Args = fields[1]
	}
	return ev
}

func (m model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}

	header := headerStyle.Width(m.width).Render("multiq")
	footer := footerStyle.Width(m.width).Render("↑↓ pick · Enter send · /start restart · Ctrl+C quit")

	var body strings.Builder
	for _, e := range m.transcript {
		if e.outbound {
			body.WriteString(learnerStyle.Width(m.width - 2).Render("you: " + e.text))
		} else {
			body.WriteString(trainerStyle.MaxWidth(m.width - 2).Render(e.text))
		}
		body.WriteString("\n")
	}
	for i, c := range m.choices {
		line := "    " + c.Label
		if i == m.selected {
			line = selectedChoice.Render("  ▸ " + c.Label)
		} else {
			line = unselectedChoice.Render(line)
		}
		body.WriteString(line + "\n")
	}
	body.WriteString(promptStyle.Render("> ") + m.input.View())

	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}
	content := clampLines(body.String(), contentHeight)

	v.SetContent(lipgloss.JoinVertical(lipgloss.Left, header, content, footer))
	return v
}

// clampLines keeps the most recent lines that fit the viewport.
func clampLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[len(lines)-max:], "\n")
}
