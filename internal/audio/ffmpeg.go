package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/moodcap/internal/config"
)

const (
	ffmpegStartupGrace = 300 * time.Millisecond
	ffmpegStopTimeout  = 5 * time.Second
)

// FFmpegBackend captures through an ffmpeg subprocess.
type FFmpegBackend struct {
	Command     string
	InputFormat string
	InputDevice string
	SampleRate  int
	Channels    int

	startupGrace time.Duration
	stopTimeout  time.Duration
}

func NewFFmpegBackend(cfg *config.Config) *FFmpegBackend {
	return &FFmpegBackend{
		Command:      "ffmpeg",
		InputFormat:  cfg.Audio.InputFormat,
		InputDevice:  cfg.Audio.InputDevice,
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
		startupGrace: ffmpegStartupGrace,
		stopTimeout:  ffmpegStopTimeout,
	}
}

func (b *FFmpegBackend) Type() BackendType { return BackendTypeFFmpeg }

func (b *FFmpegBackend) ListSources() ([]string, error) {
	return ListSources()
}

// Args builds the ffmpeg command line for a capture into path.
func (b *FFmpegBackend) Args(path string) []string {
	device := b.InputDevice
	if device == "" {
		device = "default"
	}
	if b.InputFormat == "avfoundation" && !strings.HasPrefix(device, ":") {
		device = ":" + device
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if b.InputFormat != "" {
		args = append(args, "-f", b.InputFormat)
	}
	args = append(args, "-i", device)
	if b.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(b.Channels))
	}
	if b.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(b.SampleRate))
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "wav":
		args = append(args, "-c:a", "pcm_s16le")
	case "aac":
		args = append(args, "-c:a", "aac", "-b:a", "96k", "-f", "adts")
	default:
		args = append(args, "-c:a", "aac", "-b:a", "96k")
	}

	return append(args, "-y", path)
}

func (b *FFmpegBackend) Open(ctx context.Context, path string) (Capture, error) {
	if _, err := exec.LookPath(b.Command); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", b.Command, err)
	}

	args := b.Args(path)
	cmd := exec.Command(b.Command, args...)
	fc := &ffmpegCapture{cmd: cmd, done: make(chan struct{}), timeout: b.stopTimeout}
	cmd.Stderr = &fc.stderr

	slog.Debug("Starting FFmpeg", "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}
	go func() {
		fc.waitErr = cmd.Wait()
		close(fc.done)
	}()

	// ffmpeg exits almost immediately when the input device cannot be opened
	select {
	case <-fc.done:
		return nil, fmt.Errorf("FFmpeg exited during startup: %s", lastLine(fc.stderr.String()))
	case <-ctx.Done():
		fc.Kill()
		return nil, ctx.Err()
	case <-time.After(b.startupGrace):
	}

	return fc, nil
}

type ffmpegCapture struct {
	cmd     *exec.Cmd
	stderr  bytes.Buffer
	timeout time.Duration

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// Stop sends SIGINT so ffmpeg writes the container trailer, then falls back
// to SIGKILL after the timeout.
func (f *ffmpegCapture) Stop() error {
	f.stopOnce.Do(func() {
		f.stopErr = f.stop()
	})
	return f.stopErr
}

func (f *ffmpegCapture) stop() error {
	select {
	case <-f.done:
		return f.exitError()
	default:
	}

	slog.Debug("Sending SIGINT to FFmpeg process")
	if err := f.cmd.Process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to send interrupt to FFmpeg", "error", err)
		f.cmd.Process.Kill()
	}

	select {
	case <-f.done:
		return f.exitError()
	case <-time.After(f.timeout):
		slog.Warn("FFmpeg did not exit within timeout, force killing")
		f.cmd.Process.Kill()
		<-f.done
		return fmt.Errorf("FFmpeg did not stop within %s", f.timeout)
	}
}

func (f *ffmpegCapture) exitError() error {
	err := f.waitErr
	if err == nil {
		slog.Debug("FFmpeg exited successfully")
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		// Exit code 255 means the process was interrupted gracefully
		if exitErr.ExitCode() == 255 {
			slog.Debug("FFmpeg exited normally after interrupt signal")
			return nil
		}
		if exitErr.ProcessState != nil && exitErr.ProcessState.String() == "signal: interrupt" {
			return nil
		}
	}
	slog.Debug("FFmpeg stderr", "output", f.stderr.String())
	return fmt.Errorf("FFmpeg process failed: %w (%s)", err, lastLine(f.stderr.String()))
}

func (f *ffmpegCapture) Kill() {
	select {
	case <-f.done:
		return
	default:
	}
	f.cmd.Process.Kill()
	<-f.done
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 || lines[len(lines)-1] == "" {
		return "no output"
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
