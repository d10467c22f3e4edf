package audio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/audiolibrelab/moodcap/internal/config"
)

// BackendType represents the type of capture backend
type BackendType string

const (
	BackendTypeFFmpeg    BackendType = "ffmpeg"
	BackendTypePortAudio BackendType = "portaudio"
)

// Capture is a running capture writing to a file.
type Capture interface {
	// Stop finalises the file and releases the device.
	Stop() error
	// Kill releases the device without finalising the file.
	Kill()
}

// Backend opens captures on a specific audio stack.
type Backend interface {
	Open(ctx context.Context, path string) (Capture, error)
	ListSources() ([]string, error)
	Type() BackendType
}

var backendFactories = map[BackendType]func(cfg *config.Config) Backend{
	BackendTypeFFmpeg: func(cfg *config.Config) Backend { return NewFFmpegBackend(cfg) },
}

// NewBackend creates the backend named by cfg.Audio.Backend.
func NewBackend(cfg *config.Config) (Backend, error) {
	backendType := BackendType(strings.ToLower(cfg.Audio.Backend))
	if backendType == "" {
		backendType = BackendTypeFFmpeg
	}

	factory, ok := backendFactories[backendType]
	if !ok {
		if backendType == BackendTypePortAudio {
			return nil, fmt.Errorf("portaudio backend not available, rebuild with -tags portaudio")
		}
		return nil, fmt.Errorf("unknown audio backend: %s", backendType)
	}
	return factory(cfg), nil
}

// GetAvailableBackends returns the backends compiled into this binary
func GetAvailableBackends() []BackendType {
	backends := make([]BackendType, 0, len(backendFactories))
	for t := range backendFactories {
		backends = append(backends, t)
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i] < backends[j] })
	return backends
}
