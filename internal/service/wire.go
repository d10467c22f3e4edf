package service

import (
	"context"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/play"
	"github.com/audiolibrelab/moodcap/internal/session"
)

// playerPort adapts *play.Player to session.Player.
type playerPort struct {
	player *play.Player
}

func (p playerPort) Play(ctx context.Context, artifact audio.Artifact) (session.Playback, error) {
	pb, err := p.player.Play(ctx, artifact)
	if err != nil {
		return nil, err
	}
	return pb, nil
}

func (p playerPort) Stop() { p.player.Stop() }

// errorTracker records session errors as the service's last error.
type errorTracker struct {
	events session.EventSink
	svc    *MoodcapService
}

func (e errorTracker) PhaseChanged(phase session.Phase, reason session.Reason) {
	if phase == session.PhaseRecording || phase == session.PhaseDone {
		e.svc.clearLastError()
	}
	if e.events != nil {
		e.events.PhaseChanged(phase, reason)
	}
}

func (e errorTracker) Tick(elapsed int) {
	if e.events != nil {
		e.events.Tick(elapsed)
	}
}

func (e errorTracker) PlaybackFinished() {
	if e.events != nil {
		e.events.PlaybackFinished()
	}
}

func (e errorTracker) SessionError(code session.ErrorCode, message string) {
	e.svc.setLastError(message)
	if e.events != nil {
		e.events.SessionError(code, message)
	}
}
