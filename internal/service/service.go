package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/moodcap/internal/analysis"
	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/config"
	"github.com/audiolibrelab/moodcap/internal/emotion"
	"github.com/audiolibrelab/moodcap/internal/play"
	"github.com/audiolibrelab/moodcap/internal/session"
)

// Service represents the core moodcap service interface
type Service interface {
	// Recording operations
	NewSession(events session.EventSink) *session.Session

	// Analysis operations
	AnalyzeText(ctx context.Context, text string) (*emotion.Result, error)
	History(ctx context.Context) ([]emotion.HistoryEntry, error)

	// Playback operations
	PlayFile(ctx context.Context, path string) (*play.Playback, error)
	StopPlayback()

	// Information operations
	ListSources() ([]string, error)
	GetConfig() *config.Config
	GetLastError() string
}

// Client is the analysis service contract.
type Client interface {
	AnalyzeText(ctx context.Context, text string) (emotion.Result, error)
	AnalyzeAudio(ctx context.Context, artifact audio.Artifact) (emotion.Result, error)
	History(ctx context.Context) ([]emotion.HistoryEntry, error)
}

type Option func(*MoodcapService)

func WithClient(c Client) Option {
	return func(s *MoodcapService) { s.client = c }
}

func WithPermissions(p audio.Permissions) Option {
	return func(s *MoodcapService) { s.permissions = p }
}

func WithBackend(b audio.Backend) Option {
	return func(s *MoodcapService) { s.backend = b }
}

// MoodcapService is the main service implementation
type MoodcapService struct {
	cfg         *config.Config
	client      Client
	permissions audio.Permissions
	backend     audio.Backend
	capture     *audio.Controller
	player      *play.Player

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a new moodcap service instance
func New(cfg *config.Config, opts ...Option) (Service, error) {
	s := &MoodcapService{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = analysis.NewClient(cfg.Service.BaseURL,
			analysis.WithTimeout(time.Duration(cfg.Service.TimeoutSeconds)*time.Second),
			analysis.WithClientID(cfg.Service.ClientID),
			analysis.WithHistoryLimit(cfg.Service.HistoryLimit),
			analysis.WithToken(cfg.Service.Token),
		)
	}
	if s.permissions == nil {
		p, err := audio.NewPermissions(cfg.Audio.Microphone, os.Stdin, os.Stderr)
		if err != nil {
			return nil, err
		}
		s.permissions = p
	}
	if s.backend == nil {
		b, err := audio.NewBackend(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create audio backend: %w", err)
		}
		s.backend = b
	}

	s.capture = audio.NewController(s.backend, s.permissions, cfg.Output.Directory, cfg.Output.Format)
	s.player = play.New(cfg)

	slog.Debug("Service created", "base_url", cfg.Service.BaseURL, "backend", s.backend.Type(), "microphone", cfg.Audio.Microphone)
	return s, nil
}

// NewSession creates a recording session bound to the service's microphone,
// player and analysis client.
func (s *MoodcapService) NewSession(events session.EventSink) *session.Session {
	return session.New(
		s.capture,
		playerPort{s.player},
		s.client,
		errorTracker{events: events, svc: s},
		session.WithKeepArtifacts(s.cfg.Output.Keep),
	)
}

// AnalyzeText analyzes free text as given. Blank input is a no-op that
// returns a nil result and no error.
func (s *MoodcapService) AnalyzeText(ctx context.Context, text string) (*emotion.Result, error) {
	if strings.TrimSpace(text) == "" {
		slog.Debug("Service.AnalyzeText ignored blank input")
		return nil, nil
	}

	s.clearLastError()
	result, err := s.client.AnalyzeText(ctx, text)
	if err != nil {
		slog.Error("Service.AnalyzeText failed", "error", err)
		s.setLastError(session.UserMessage(err))
		return nil, err
	}
	return &result, nil
}

// History returns past analyses as recorded by the service.
func (s *MoodcapService) History(ctx context.Context) ([]emotion.HistoryEntry, error) {
	entries, err := s.client.History(ctx)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to load history: %v", err))
		return nil, err
	}
	return entries, nil
}

// PlayFile plays an arbitrary local audio file.
func (s *MoodcapService) PlayFile(ctx context.Context, path string) (*play.Playback, error) {
	return s.player.Play(ctx, audio.Artifact{Locator: path})
}

func (s *MoodcapService) StopPlayback() {
	s.player.Stop()
}

func (s *MoodcapService) ListSources() ([]string, error) {
	return s.capture.ListSources()
}

// GetConfig returns the current configuration
func (s *MoodcapService) GetConfig() *config.Config {
	return s.cfg
}

// GetLastError returns the last error message
func (s *MoodcapService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

func (s *MoodcapService) setLastError(msg string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = msg
}

func (s *MoodcapService) clearLastError() {
	s.setLastError("")
}
