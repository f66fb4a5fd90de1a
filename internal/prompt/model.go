package prompt

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

/* ----------------------------------------
	MESSAGES
---------------------------------------- */

// askMsg asks the model for the next line of input.
type askMsg struct {
	label  string
	secret bool
	reply  chan<- answer
}

type answer struct {
	line string
	err  error
}

// closedMsg reports that the input reached EOF.
type closedMsg struct{}

// sessionDoneMsg carries the result of the session function.
type sessionDoneMsg struct{ err error }

/* ----------------------------------------
	MODEL
---------------------------------------- */

// model collects keystrokes into lines and hands them to pending asks.
// Lines typed before anything asks are queued, so scripted input works the
// same as a person typing.
type model struct {
	session tea.Cmd
	cancel  context.CancelFunc

	ask    *askMsg
	buf    []rune
	lines  []string
	closed bool
	lastCR bool

	err error
}

func newModel(session tea.Cmd, cancel context.CancelFunc) *model {
	return &model{session: session, cancel: cancel}
}

func (m *model) Init() tea.Cmd {
	return m.session
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case askMsg:
		m.ask = &msg
	case tea.KeyMsg:
		m.key(msg)
	case closedMsg:
		m.close()
	case sessionDoneMsg:
		m.err = msg.err
		m.ask = nil
		return m, tea.Quit
	}
	m.answer()
	return m, nil
}

func (m *model) key(k tea.KeyMsg) {
	cr := k.Type == tea.KeyEnter
	defer func() { m.lastCR = cr }()

	switch k.Type {
	case tea.KeyEnter:
		m.submit()
	case tea.KeyCtrlJ:
		// LF after CR ends the same line.
		if !m.lastCR {
			m.submit()
		}
	case tea.KeyRunes:
		m.buf = append(m.buf, k.Runes...)
	case tea.KeySpace:
		m.buf = append(m.buf, ' ')
	case tea.KeyTab:
		m.buf = append(m.buf, '\t')
	case tea.KeyBackspace, tea.KeyCtrlH:
		if len(m.buf) > 0 {
			m.buf = m.buf[:len(m.buf)-1]
		}
	case tea.KeyCtrlU:
		m.buf = m.buf[:0]
	case tea.KeyCtrlD:
		if len(m.buf) == 0 {
			m.close()
		}
	case tea.KeyCtrlC:
		m.cancel()
	}
}

func (m *model) submit() {
	m.lines = append(m.lines, string(m.buf))
	m.buf = m.buf[:0]
}

// close marks the input as finished. A last line without newline still
// counts as an answer.
func (m *model) close() {
	if len(m.buf) > 0 {
		m.submit()
	}
	m.closed = true
}

// answer replies to the pending ask when a line is ready or no more input
// will come.
func (m *model) answer() {
	if m.ask == nil {
		return
	}
	switch {
	case len(m.lines) > 0:
		line := m.lines[0]
		m.lines = m.lines[1:]
		m.ask.reply <- answer{line: line}
	case m.closed:
		m.ask.reply <- answer{err: ErrClosed}
	default:
		return
	}
	m.ask = nil
}

// View shows the open prompt and what has been typed so far. Finished output
// is printed above it and scrolls normally.
func (m *model) View() string {
	if m.ask == nil {
		return ""
	}
	typed := string(m.buf)
	if m.ask.secret {
		typed = strings.Repeat("*", len(m.buf))
	}
	return m.ask.label + typed
}
