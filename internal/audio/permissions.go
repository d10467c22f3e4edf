package audio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Permissions grants or refuses microphone access.
type Permissions interface {
	Request(ctx context.Context) (bool, error)
}

// StaticPermissions answers every request the same way.
type StaticPermissions struct {
	Granted bool
}

func (p StaticPermissions) Request(ctx context.Context) (bool, error) {
	return p.Granted, nil
}

// PromptPermissions asks on a terminal. A grant is remembered; a refusal
// is asked again next time.
type PromptPermissions struct {
	in  *bufio.Reader
	out io.Writer

	mu      sync.Mutex
	granted bool
}

func NewPromptPermissions(in io.Reader, out io.Writer) *PromptPermissions {
	return &PromptPermissions{in: bufio.NewReader(in), out: out}
}

func (p *PromptPermissions) Request(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.granted {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprint(p.out, "moodcap needs microphone access to record audio. Allow? [y/N] ")
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read permission answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		p.granted = true
	}
	return p.granted, nil
}

// NewPermissions maps the audio.microphone setting to a Permissions.
func NewPermissions(mode string, in io.Reader, out io.Writer) (Permissions, error) {
	switch mode {
	case "", "allow":
		return StaticPermissions{Granted: true}, nil
	case "deny":
		return StaticPermissions{Granted: false}, nil
	case "ask":
		return NewPromptPermissions(in, out), nil
	default:
		return nil, fmt.Errorf("unknown microphone mode: %s", mode)
	}
}
