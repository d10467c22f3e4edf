package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/audiolibrelab/moodcap/internal/output"
	"github.com/audiolibrelab/moodcap/internal/session"
)

// Recorder is the slice of *session.Session the screen drives.
type Recorder interface {
	Snapshot() session.Snapshot
	Start(ctx context.Context) error
	Stop() error
	Play(ctx context.Context) error
	StopPlayback() error
	Analyze(ctx context.Context) error
	Discard() error
	ReRecord() error
}

// opDoneMsg reports the outcome of a session operation run off the UI loop.
type opDoneMsg struct {
	event session.Event
	err   error
}

// Model is the record screen.
type Model struct {
	ctx     context.Context
	rec     Recorder
	snap    session.Snapshot
	busy    bool
	notice  string
	help    help.Model
	spinner spinner.Model
	width   int
}

func NewModel(ctx context.Context, rec Recorder) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(output.PrimaryBlue))

	return Model{
		ctx:     ctx,
		rec:     rec,
		snap:    rec.Snapshot(),
		help:    help.New(),
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case phaseMsg:
		m.snap = m.rec.Snapshot()
		if msg.phase == session.PhaseRecording || msg.phase == session.PhaseIdle {
			m.notice = ""
		}

	case elapsedMsg:
		m.snap = m.rec.Snapshot()
		m.snap.Elapsed = int(msg)

	case playbackFinishedMsg:
		m.snap = m.rec.Snapshot()

	case sessionErrorMsg:
		m.snap = m.rec.Snapshot()
		m.notice = msg.message

	case opDoneMsg:
		m.busy = false
		m.snap = m.rec.Snapshot()
		if msg.err != nil {
			var transErr *session.TransitionError
			if !errors.As(msg.err, &transErr) {
				m.notice = session.UserMessage(msg.err)
			}
			slog.Debug("Session operation failed", "event", msg.event, "error", msg.err)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	phase := m.snap.Phase
	switch {
	case key.Matches(msg, keys.Record):
		switch phase {
		case session.PhaseIdle:
			return m.run(session.EventStart, func() error { return m.rec.Start(m.ctx) })
		case session.PhaseRecording:
			return m.run(session.EventStop, m.rec.Stop)
		}

	case key.Matches(msg, keys.Play):
		if phase == session.PhaseReviewing {
			if m.snap.Playing {
				return m.run(session.EventStopPlayback, m.rec.StopPlayback)
			}
			return m.run(session.EventPlay, func() error { return m.rec.Play(m.ctx) })
		}

	case key.Matches(msg, keys.Analyze):
		if phase == session.PhaseReviewing {
			return m.run(session.EventAnalyze, func() error { return m.rec.Analyze(m.ctx) })
		}

	case key.Matches(msg, keys.Discard):
		if phase == session.PhaseReviewing {
			return m.run(session.EventDiscard, m.rec.Discard)
		}

	case key.Matches(msg, keys.ReRecord):
		if phase == session.PhaseDone {
			return m.run(session.EventReRecord, m.rec.ReRecord)
		}
	}
	return m, nil
}

// run executes a session operation as a command so the UI loop never
// blocks on the session.
func (m Model) run(event session.Event, op func() error) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, func() tea.Msg {
		return opDoneMsg{event: event, err: op()}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(output.TitleStyle.Render("🎙 Voice Analysis"))
	b.WriteString("\n")
	b.WriteString(output.MutedStyle.Render("Record your voice to detect emotional tone"))
	b.WriteString("\n\n")

	switch m.snap.Phase {
	case session.PhaseIdle:
		b.WriteString("Press space to start recording\n")

	case session.PhaseRecording:
		b.WriteString(output.RecordingStyle.Render("⏺ " + output.FormatElapsed(m.snap.Elapsed)))
		b.WriteString("\n\nPress space to stop recording\n")

	case session.PhaseReviewing:
		card := fmt.Sprintf("Recording ready\nDuration: %s", output.FormatElapsed(m.snap.Elapsed))
		if m.snap.Playing {
			card += "\n" + output.SuccessStyle.Render("▶ Playing")
		}
		b.WriteString(output.CardStyle.Render(card))
		b.WriteString("\n\n[p] play/stop  [a] analyze  [d] discard & re-record\n")

	case session.PhaseAnalyzing:
		b.WriteString(m.spinner.View() + " Analyzing emotional tone...\n")

	case session.PhaseDone:
		if m.snap.Result != nil {
			var res strings.Builder
			output.NewFormatter(&res).Result("Voice emotion analysis", *m.snap.Result)
			b.WriteString(res.String())
		}
		b.WriteString("\n[n] record again\n")
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(output.ErrorStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}
