//go:build portaudio

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/audiolibrelab/moodcap/internal/config"
)

const framesPerBuffer = 1024

func init() {
	backendFactories[BackendTypePortAudio] = func(cfg *config.Config) Backend {
		return NewPortAudioBackend(cfg)
	}
}

// PortAudioBackend captures in-process and writes 16-bit PCM WAV.
type PortAudioBackend struct {
	Device     string
	SampleRate int
	Channels   int
}

func NewPortAudioBackend(cfg *config.Config) *PortAudioBackend {
	return &PortAudioBackend{
		Device:     cfg.Audio.InputDevice,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
	}
}

func (b *PortAudioBackend) Type() BackendType { return BackendTypePortAudio }

func (b *PortAudioBackend) ListSources() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list portaudio devices: %w", err)
	}

	var sources []string
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			sources = append(sources, d.Name)
		}
	}
	return sources, nil
}

func (b *PortAudioBackend) inputDevice() (*portaudio.DeviceInfo, error) {
	if b.Device == "" || b.Device == "default" {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == b.Device && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("input device not found: %s", b.Device)
}

func (b *PortAudioBackend) Open(ctx context.Context, path string) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := file.Write(wavHeader(b.SampleRate, b.Channels, 16, 0)); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	if err := portaudio.Initialize(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	device, err := b.inputDevice()
	if err != nil {
		portaudio.Terminate()
		file.Close()
		return nil, err
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = b.Channels
	params.SampleRate = float64(b.SampleRate)
	params.FramesPerBuffer = framesPerBuffer

	buf := make([]int16, framesPerBuffer*b.Channels)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		portaudio.Terminate()
		file.Close()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		file.Close()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}

	pc := &portaudioCapture{
		backend:  b,
		stream:   stream,
		file:     file,
		buf:      buf,
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go pc.loop()

	slog.Debug("PortAudio capture started", "device", device.Name, "rate", b.SampleRate, "channels", b.Channels)
	return pc, nil
}

type portaudioCapture struct {
	backend *PortAudioBackend
	stream  *portaudio.Stream
	file    *os.File
	buf     []int16

	stop     chan struct{}
	loopDone chan struct{}
	loopErr  error
	written  uint32

	once   sync.Once
	result error
}

func (p *portaudioCapture) loop() {
	defer close(p.loopDone)
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		if err := p.stream.Read(); err != nil && err != portaudio.InputOverflowed {
			p.loopErr = fmt.Errorf("failed to read input stream: %w", err)
			return
		}
		if err := binary.Write(p.file, binary.LittleEndian, p.buf); err != nil {
			p.loopErr = fmt.Errorf("failed to write samples: %w", err)
			return
		}
		p.written += uint32(len(p.buf) * 2)
	}
}

func (p *portaudioCapture) release() {
	close(p.stop)
	<-p.loopDone
	p.stream.Stop()
	p.stream.Close()
	portaudio.Terminate()
}

// Stop rewrites the header with the final data size.
func (p *portaudioCapture) Stop() error {
	p.once.Do(func() {
		p.release()
		defer p.file.Close()

		if p.loopErr != nil {
			p.result = p.loopErr
			return
		}
		if _, err := p.file.WriteAt(wavHeader(p.backend.SampleRate, p.backend.Channels, 16, p.written), 0); err != nil {
			p.result = fmt.Errorf("failed to finalize WAV header: %w", err)
		}
	})
	return p.result
}

func (p *portaudioCapture) Kill() {
	p.once.Do(func() {
		p.release()
		p.file.Close()
	})
}
