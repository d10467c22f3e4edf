package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/audiolibrelab/moodcap/internal/session"
)

// SessionFactory creates a session reporting to events.
type SessionFactory func(events session.EventSink) *session.Session

// Run shows the record screen until the user quits, then tears the session
// down.
func Run(ctx context.Context, newSession SessionFactory, opts ...tea.ProgramOption) error {
	sink := &programSink{}
	sess := newSession(sink)
	defer sess.Teardown()

	p := tea.NewProgram(NewModel(ctx, sess), append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	sink.attach(p.Send)
	defer sink.attach(nil)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("record screen failed: %w", err)
	}
	slog.Debug("Record screen closed", "phase", sess.Snapshot().Phase)
	return nil
}
