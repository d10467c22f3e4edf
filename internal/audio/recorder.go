package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const minArtifactBytes = 1024

type activeCapture struct {
	capture   Capture
	path      string
	startedAt time.Time
}

// Controller owns the microphone. At most one capture is active at a time.
type Controller struct {
	backend     Backend
	permissions Permissions
	directory   string
	format      string
	now         func() time.Time

	mu     sync.Mutex
	active *activeCapture
}

func NewController(backend Backend, permissions Permissions, directory, format string) *Controller {
	if permissions == nil {
		permissions = StaticPermissions{Granted: true}
	}
	return &Controller{
		backend:     backend,
		permissions: permissions,
		directory:   directory,
		format:      format,
		now:         time.Now,
	}
}

// Start asks for microphone permission and begins capturing. Nothing is
// allocated when permission is refused.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return &DeviceError{Op: "start", Err: ErrAlreadyCapturing}
	}

	granted, err := c.permissions.Request(ctx)
	if err != nil {
		return &PermissionError{Reason: err.Error()}
	}
	if !granted {
		return &PermissionError{}
	}

	if err := os.MkdirAll(c.directory, 0755); err != nil {
		return &DeviceError{Op: "start", Err: fmt.Errorf("failed to create output directory: %w", err)}
	}
	path := filepath.Join(c.directory, fmt.Sprintf("capture-%s.%s", uuid.New().String(), c.format))

	capture, err := c.backend.Open(ctx, path)
	if err != nil {
		os.Remove(path)
		return &DeviceError{Op: "start", Err: err}
	}

	c.active = &activeCapture{capture: capture, path: path, startedAt: c.now()}
	slog.Info("Capture started", "backend", c.backend.Type(), "file", path)
	return nil
}

// Stop finalises the capture. The device is released before Stop returns,
// whether or not an artifact could be produced.
func (c *Controller) Stop() (Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return Artifact{}, &DeviceError{Op: "stop", Err: ErrNotCapturing}
	}
	active := c.active
	c.active = nil

	duration := int(c.now().Sub(active.startedAt).Seconds())

	if err := active.capture.Stop(); err != nil {
		os.Remove(active.path)
		return Artifact{}, &DeviceError{Op: "stop", Err: err}
	}

	if err := validateOutputFile(active.path); err != nil {
		os.Remove(active.path)
		return Artifact{}, &DeviceError{Op: "stop", Err: err}
	}

	artifact := Artifact{Locator: active.path, DurationSeconds: duration}
	slog.Info("Capture stopped", "file", artifact.Locator, "duration", duration)
	return artifact, nil
}

// Release kills any active capture and removes its partial file. Safe to
// call at any time.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return
	}
	c.active.capture.Kill()
	os.Remove(c.active.path)
	slog.Debug("Capture released", "file", c.active.path)
	c.active = nil
}

// Discard invalidates an artifact produced by this controller.
func (c *Controller) Discard(artifact Artifact) error {
	if err := artifact.Remove(); err != nil {
		return fmt.Errorf("failed to remove recording: %w", err)
	}
	slog.Debug("Artifact discarded", "file", artifact.Locator)
	return nil
}

// Capturing reports whether a capture is active.
func (c *Controller) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

func (c *Controller) ListSources() ([]string, error) {
	return c.backend.ListSources()
}

func validateOutputFile(path string) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("recording file not found: %s", path)
	}

	if fileInfo.Size() < minArtifactBytes {
		return fmt.Errorf("recording failed: file too small (%d bytes)", fileInfo.Size())
	}

	slog.Debug("Output file validated", "size", fileInfo.Size())
	return nil
}
