package play

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/config"
)

// DeviceError reports a playback failure.
type DeviceError = audio.DeviceError

// players in order of preference
var players = []string{"ffplay", "mpv", "vlc", "afplay", "aplay"}

func playerArgs(player, audioFile string) ([]string, error) {
	switch player {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", audioFile}, nil
	case "mpv":
		return []string{"--no-video", "--really-quiet", audioFile}, nil
	case "vlc":
		return []string{"-I", "dummy", "--play-and-exit", audioFile}, nil
	case "afplay":
		return []string{audioFile}, nil
	case "aplay":
		return []string{"-q", audioFile}, nil
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
}

// Player plays artifacts through an external command. At most one playback
// is held at a time.
type Player struct {
	preferred string
	lookPath  func(string) (string, error)
	command   func(name string, args ...string) *exec.Cmd

	mu      sync.Mutex
	current *Playback
}

func New(cfg *config.Config) *Player {
	return &Player{
		preferred: cfg.Playback.Player,
		lookPath:  exec.LookPath,
		command:   exec.Command,
	}
}

// Play starts artifact from the beginning, releasing any earlier playback.
func (p *Player) Play(ctx context.Context, artifact audio.Artifact) (*Playback, error) {
	if _, err := os.Stat(artifact.Locator); err != nil {
		return nil, &audio.DeviceError{Op: "play", Err: fmt.Errorf("audio file not found: %s", artifact.Locator)}
	}

	player, err := p.findAudioPlayer(artifact.Extension())
	if err != nil {
		return nil, &audio.DeviceError{Op: "play", Err: fmt.Errorf("no suitable audio player found: %w", err)}
	}
	args, err := playerArgs(player, artifact.Locator)
	if err != nil {
		return nil, &audio.DeviceError{Op: "play", Err: err}
	}

	p.Stop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := p.command(player, args...)
	if err := cmd.Start(); err != nil {
		return nil, &audio.DeviceError{Op: "play", Err: fmt.Errorf("failed to start %s: %w", player, err)}
	}

	pb := &Playback{
		cmd:      cmd,
		player:   player,
		finished: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go pb.wait()

	p.mu.Lock()
	p.current = pb
	p.mu.Unlock()

	slog.Info("Playback started", "player", player, "file", artifact.Locator)
	return pb, nil
}

// Stop releases the current playback. Safe to call when nothing plays.
func (p *Player) Stop() {
	p.mu.Lock()
	pb := p.current
	p.current = nil
	p.mu.Unlock()

	if pb != nil {
		pb.Stop()
	}
}

func (p *Player) findAudioPlayer(ext string) (string, error) {
	if p.preferred != "" {
		if _, err := p.lookPath(p.preferred); err != nil {
			return "", fmt.Errorf("configured player %s not found", p.preferred)
		}
		if p.preferred == "aplay" && ext != "wav" {
			return "", fmt.Errorf("aplay requires WAV format, got %s", ext)
		}
		return p.preferred, nil
	}

	for _, player := range players {
		// aplay only handles WAV
		if player == "aplay" && ext != "wav" {
			continue
		}
		if _, err := p.lookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}

// Playback is one running player process.
type Playback struct {
	cmd    *exec.Cmd
	player string

	finished chan struct{}
	done     chan struct{}
	stopped  atomic.Bool
	stopOnce sync.Once
	err      error
}

// Finished is closed once when the stream reaches its natural end. It is
// never closed by Stop.
func (pb *Playback) Finished() <-chan struct{} { return pb.finished }

// Done is closed when the player process has exited for any reason.
func (pb *Playback) Done() <-chan struct{} { return pb.done }

// Err is the player's exit error. Valid after Done is closed.
func (pb *Playback) Err() error { return pb.err }

func (pb *Playback) wait() {
	err := pb.cmd.Wait()
	switch {
	case pb.stopped.Load():
		slog.Debug("Playback stopped", "player", pb.player)
	case err != nil:
		pb.err = fmt.Errorf("playback failed with %s: %w", pb.player, err)
		slog.Warn("Playback ended with error", "player", pb.player, "error", err)
	default:
		slog.Debug("Playback completed", "player", pb.player)
		close(pb.finished)
	}
	close(pb.done)
}

// Stop kills the player and waits for it to exit.
func (pb *Playback) Stop() {
	pb.stopOnce.Do(func() {
		pb.stopped.Store(true)
		if pb.cmd.Process != nil {
			pb.cmd.Process.Kill()
		}
	})
	<-pb.done
}
