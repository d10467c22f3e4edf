package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/audiolibrelab/moodcap/internal/audio"
)

type Option func(*Session)

// WithTicker replaces the one-second elapsed-time ticker.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(s *Session) { s.newTicker = newTicker }
}

// WithKeepArtifacts leaves the current recording on disk at Teardown.
func WithKeepArtifacts(keep bool) Option {
	return func(s *Session) { s.keepArtifacts = keep }
}

// Session drives one recording lifecycle:
// Idle -> Recording -> Reviewing -> Analyzing -> Done.
//
// Events are serialized by opMu; an event that arrives while another is in
// flight waits and is then evaluated against the new state. Snapshot only
// takes mu and stays available during network calls.
type Session struct {
	capture       Capturer
	player        Player
	analyzer      Analyzer
	events        EventSink
	newTicker     func(time.Duration) Ticker
	now           func() time.Time
	keepArtifacts bool

	opMu sync.Mutex

	mu        sync.RWMutex
	state     State
	elapsed   int
	lastErr   string
	timer     Ticker
	timerDone chan struct{}
	playDone  chan struct{}
	inflight  context.CancelFunc
}

func New(capture Capturer, player Player, analyzer Analyzer, events EventSink, opts ...Option) *Session {
	if events == nil {
		events = nopSink{}
	}
	s := &Session{
		capture:   capture,
		player:    player,
		analyzer:  analyzer,
		events:    events,
		newTicker: newTimeTicker,
		now:       time.Now,
		state:     Idle{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Phase:     s.state.Phase(),
		Elapsed:   s.elapsed,
		Playing:   s.playDone != nil,
		LastError: s.lastErr,
	}
	if artifact, ok := artifactOf(s.state); ok {
		snap.Artifact = &artifact
	}
	if done, ok := s.state.(Done); ok {
		result := done.Result
		snap.Result = &result
	}
	return snap
}

// Start requests the microphone and begins recording.
func (s *Session) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, err := s.expect(EventStart, PhaseIdle); err != nil {
		return err
	}

	if err := s.capture.Start(ctx); err != nil {
		s.surface(errorCode(err), err)
		return err
	}

	s.mu.Lock()
	s.state = Recording{StartedAt: s.now()}
	s.elapsed = 0
	s.lastErr = ""
	s.startTimerLocked()
	s.mu.Unlock()

	s.changed(PhaseRecording, ReasonRecordingStarted)
	return nil
}

// Stop ends the recording. Elapsed time is frozen at its last tick.
func (s *Session) Stop() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, err := s.expect(EventStop, PhaseRecording); err != nil {
		return err
	}

	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	artifact, err := s.capture.Stop()
	if err != nil {
		captureErr := &CaptureError{Err: err}
		s.mu.Lock()
		s.state = Idle{}
		s.elapsed = 0
		s.mu.Unlock()
		s.surface(ErrorCodeCapture, captureErr)
		s.changed(PhaseIdle, ReasonCaptureFailed)
		return captureErr
	}

	s.mu.Lock()
	s.state = Reviewing{Artifact: artifact}
	s.mu.Unlock()

	s.changed(PhaseReviewing, ReasonRecordingStopped)
	return nil
}

// Play plays the recording from the start, replacing any current playback.
func (s *Session) Play(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st, err := s.expect(EventPlay, PhaseReviewing)
	if err != nil {
		return err
	}
	artifact := st.(Reviewing).Artifact

	s.releasePlayback()

	pb, err := s.player.Play(ctx, artifact)
	if err != nil {
		s.surface(ErrorCodePlayback, err)
		return err
	}

	cancel := make(chan struct{})
	s.mu.Lock()
	s.playDone = cancel
	s.mu.Unlock()

	go s.watchPlayback(pb, cancel)
	slog.Debug("Session playback started", "file", artifact.Locator)
	return nil
}

// StopPlayback stops playback. PlaybackFinished is not emitted.
func (s *Session) StopPlayback() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, err := s.expect(EventStopPlayback, PhaseReviewing); err != nil {
		return err
	}
	s.releasePlayback()
	return nil
}

// Analyze uploads the recording. On failure the session returns to
// Reviewing with the recording intact.
func (s *Session) Analyze(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st, err := s.expect(EventAnalyze, PhaseReviewing)
	if err != nil {
		return err
	}
	artifact := st.(Reviewing).Artifact

	s.releasePlayback()

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.state = Analyzing{Artifact: artifact}
	s.lastErr = ""
	s.inflight = cancel
	s.mu.Unlock()
	s.changed(PhaseAnalyzing, ReasonAnalyzing)

	result, err := s.analyzer.AnalyzeAudio(opCtx, artifact)

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()

	if err != nil {
		analysisErr := &AnalysisError{Err: err}
		s.mu.Lock()
		s.state = Reviewing{Artifact: artifact}
		s.mu.Unlock()
		s.surface(ErrorCodeAnalysis, analysisErr)
		s.changed(PhaseReviewing, ReasonAnalysisFailed)
		return analysisErr
	}

	s.mu.Lock()
	s.state = Done{Artifact: artifact, Result: result}
	s.mu.Unlock()

	slog.Info("Analysis complete", "dominant", result.Dominant(), "labels", result.Len())
	s.changed(PhaseDone, ReasonAnalysisComplete)
	return nil
}

// Discard drops the recording and returns to Idle.
func (s *Session) Discard() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st, err := s.expect(EventDiscard, PhaseReviewing)
	if err != nil {
		return err
	}

	s.releasePlayback()
	s.discard(st.(Reviewing).Artifact)
	s.reset()

	s.changed(PhaseIdle, ReasonDiscarded)
	return nil
}

// ReRecord clears the result and recording so a new one can be made.
func (s *Session) ReRecord() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	st, err := s.expect(EventReRecord, PhaseDone)
	if err != nil {
		return err
	}

	s.discard(st.(Done).Artifact)
	s.reset()

	s.changed(PhaseIdle, ReasonReRecord)
	return nil
}

// Teardown releases the microphone, playback and timer whatever the
// current state. An upload already in flight is cancelled; an Analyze still
// waiting for its turn runs to completion before Teardown proceeds.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.inflight != nil {
		s.inflight()
	}
	s.mu.Unlock()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.stopTimerLocked()
	prev := s.state
	s.mu.Unlock()

	s.releasePlayback()
	s.capture.Release()
	if artifact, ok := artifactOf(prev); ok && !s.keepArtifacts {
		s.discard(artifact)
	}
	s.reset()

	if prev.Phase() != PhaseIdle {
		s.changed(PhaseIdle, ReasonTeardown)
	}
}

func (s *Session) expect(event Event, phase Phase) (State, error) {
	s.mu.RLock()
	st := s.state
	s.mu.RUnlock()

	if st.Phase() != phase {
		slog.Debug("Ignoring event", "event", event, "phase", st.Phase())
		return nil, &TransitionError{From: st.Phase(), Event: event}
	}
	return st, nil
}

func (s *Session) reset() {
	s.mu.Lock()
	s.state = Idle{}
	s.elapsed = 0
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Session) discard(artifact audio.Artifact) {
	if err := s.capture.Discard(artifact); err != nil {
		slog.Warn("Failed to discard recording", "file", artifact.Locator, "error", err)
	}
}

func (s *Session) releasePlayback() {
	s.mu.Lock()
	cancel := s.playDone
	s.playDone = nil
	s.mu.Unlock()

	if cancel != nil {
		close(cancel)
	}
	s.player.Stop()
}

func (s *Session) watchPlayback(pb Playback, cancel chan struct{}) {
	select {
	case <-pb.Done():
	case <-cancel:
		return
	}

	s.mu.Lock()
	current := s.playDone == cancel
	if current {
		s.playDone = nil
	}
	s.mu.Unlock()
	if !current {
		return
	}

	select {
	case <-pb.Finished():
		s.events.PlaybackFinished()
	default:
		err := pb.Err()
		if err == nil {
			err = errors.New("player exited before the end of the recording")
		}
		s.surface(ErrorCodePlayback, &audio.DeviceError{Op: "play", Err: err})
	}
}

func (s *Session) startTimerLocked() {
	s.stopTimerLocked()
	t := s.newTicker(time.Second)
	done := make(chan struct{})
	s.timer = t
	s.timerDone = done
	go s.runTimer(t, done)
}

func (s *Session) stopTimerLocked() {
	if s.timerDone == nil {
		return
	}
	close(s.timerDone)
	s.timer.Stop()
	s.timer = nil
	s.timerDone = nil
}

func (s *Session) runTimer(t Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.C():
			s.mu.Lock()
			// ticks from a cancelled timer are dropped
			if s.timerDone != done {
				s.mu.Unlock()
				return
			}
			s.elapsed++
			elapsed := s.elapsed
			s.mu.Unlock()
			s.events.Tick(elapsed)
		}
	}
}

func (s *Session) surface(code ErrorCode, err error) {
	msg := UserMessage(err)
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()

	slog.Warn("Session error", "code", code, "error", err)
	s.events.SessionError(code, msg)
}

func (s *Session) changed(phase Phase, reason Reason) {
	slog.Info("Session phase changed", "phase", phase, "reason", reason)
	s.events.PhaseChanged(phase, reason)
}
