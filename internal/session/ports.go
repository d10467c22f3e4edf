package session

import (
	"context"
	"time"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/emotion"
)

// Capturer owns the microphone.
type Capturer interface {
	Start(ctx context.Context) error
	Stop() (audio.Artifact, error)
	Release()
	Discard(artifact audio.Artifact) error
}

// Player plays an artifact, one playback at a time.
type Player interface {
	Play(ctx context.Context, artifact audio.Artifact) (Playback, error)
	Stop()
}

// Playback is one started playback. Finished is closed once on natural end
// of stream and never on Stop. Done is closed when playback ends for any
// reason; Err then reports an abnormal exit.
type Playback interface {
	Finished() <-chan struct{}
	Done() <-chan struct{}
	Err() error
}

// Analyzer submits an artifact to the analysis service.
type Analyzer interface {
	AnalyzeAudio(ctx context.Context, artifact audio.Artifact) (emotion.Result, error)
}

// EventSink receives session notifications. Implementations must not call
// back into the session synchronously.
type EventSink interface {
	PhaseChanged(phase Phase, reason Reason)
	Tick(elapsed int)
	PlaybackFinished()
	SessionError(code ErrorCode, message string)
}

// Ticker delivers periodic ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }

func (t timeTicker) Stop() { t.ticker.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{ticker: time.NewTicker(d)}
}

type nopSink struct{}

func (nopSink) PhaseChanged(Phase, Reason)     {}
func (nopSink) Tick(int)                       {}
func (nopSink) PlaybackFinished()              {}
func (nopSink) SessionError(ErrorCode, string) {}
