package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/moodcap/internal/session"
)

// Tea program messages
type phaseMsg struct {
	phase  session.Phase
	reason session.Reason
}

type elapsedMsg int

type playbackFinishedMsg struct{}

type sessionErrorMsg struct {
	code    session.ErrorCode
	message string
}

// programSink forwards session events into a running tea.Program.
// Events arriving before attach are dropped.
type programSink struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (s *programSink) attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *programSink) emit(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (s *programSink) PhaseChanged(phase session.Phase, reason session.Reason) {
	s.emit(phaseMsg{phase: phase, reason: reason})
}

func (s *programSink) Tick(elapsed int) {
	s.emit(elapsedMsg(elapsed))
}

func (s *programSink) PlaybackFinished() {
	s.emit(playbackFinishedMsg{})
}

func (s *programSink) SessionError(code session.ErrorCode, message string) {
	s.emit(sessionErrorMsg{code: code, message: message})
}
