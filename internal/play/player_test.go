package play

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/config"
)

func newTestPlayer(t *testing.T, script string) *Player {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p := New(config.Default())
	p.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	p.command = func(name string, args ...string) *exec.Cmd {
		return exec.Command("sh", "-c", script)
	}
	return p
}

func writeClip(t *testing.T, name string) audio.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("clip"), 0644); err != nil {
		t.Fatalf("Failed to write clip: %v", err)
	}
	return audio.Artifact{Locator: path, DurationSeconds: 2}
}

func TestPlay_NaturalEndFiresFinished(t *testing.T) {
	p := newTestPlayer(t, "exit 0")

	pb, err := p.Play(context.Background(), writeClip(t, "clip.m4a"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	select {
	case <-pb.Finished():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Finished to close on natural end")
	}
	<-pb.Done()
	if pb.Err() != nil {
		t.Errorf("Expected no playback error, got %v", pb.Err())
	}
}

func TestPlay_ManualStopNeverFiresFinished(t *testing.T) {
	p := newTestPlayer(t, "exec sleep 10")

	pb, err := p.Play(context.Background(), writeClip(t, "clip.m4a"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	p.Stop()
	p.Stop()

	select {
	case <-pb.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected process to exit after Stop")
	}
	select {
	case <-pb.Finished():
		t.Error("Finished must not fire on manual stop")
	default:
	}
}

func TestPlay_ReleasesPriorPlayback(t *testing.T) {
	p := newTestPlayer(t, "exec sleep 10")
	clip := writeClip(t, "clip.m4a")

	first, err := p.Play(context.Background(), clip)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	second, err := p.Play(context.Background(), clip)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer p.Stop()

	select {
	case <-first.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected first playback to be released")
	}
	select {
	case <-second.Done():
		t.Error("Expected second playback to still be running")
	default:
	}
}

func TestPlay_FailingPlayerDoesNotFinish(t *testing.T) {
	p := newTestPlayer(t, "exit 3")

	pb, err := p.Play(context.Background(), writeClip(t, "clip.m4a"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	<-pb.Done()

	if pb.Err() == nil {
		t.Error("Expected exit error to be reported")
	}
	select {
	case <-pb.Finished():
		t.Error("Finished must not fire when the player fails")
	default:
	}
}

func TestPlay_MissingFile(t *testing.T) {
	p := newTestPlayer(t, "exit 0")

	_, err := p.Play(context.Background(), audio.Artifact{Locator: "/nonexistent/clip.m4a"})
	var de *audio.DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DeviceError, got %T: %v", err, err)
	}
}

func TestPlay_NoPlayerAvailable(t *testing.T) {
	p := newTestPlayer(t, "exit 0")
	p.lookPath = func(name string) (string, error) { return "", exec.ErrNotFound }

	_, err := p.Play(context.Background(), writeClip(t, "clip.m4a"))
	var de *audio.DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DeviceError, got %T: %v", err, err)
	}
}

func TestFindAudioPlayer(t *testing.T) {
	available := map[string]bool{"aplay": true, "vlc": true}
	p := New(config.Default())
	p.lookPath = func(name string) (string, error) {
		if available[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}

	if got, _ := p.findAudioPlayer("m4a"); got != "vlc" {
		t.Errorf("Expected vlc for m4a, got %s", got)
	}

	delete(available, "vlc")
	if got, _ := p.findAudioPlayer("wav"); got != "aplay" {
		t.Errorf("Expected aplay for wav, got %s", got)
	}
	if _, err := p.findAudioPlayer("m4a"); err == nil {
		t.Error("Expected aplay to be skipped for m4a")
	}

	p.preferred = "aplay"
	if _, err := p.findAudioPlayer("m4a"); err == nil {
		t.Error("Expected configured aplay to reject m4a")
	}
}
