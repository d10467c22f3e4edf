package session

import (
	"time"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/emotion"
)

// Phase names the recording lifecycle stage.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseReviewing
	PhaseAnalyzing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecording:
		return "recording"
	case PhaseReviewing:
		return "reviewing"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is one of Idle, Recording, Reviewing, Analyzing or Done.
type State interface {
	Phase() Phase
	isState()
}

type Idle struct{}

type Recording struct {
	StartedAt time.Time
}

type Reviewing struct {
	Artifact audio.Artifact
}

type Analyzing struct {
	Artifact audio.Artifact
}

type Done struct {
	Artifact audio.Artifact
	Result   emotion.Result
}

func (Idle) Phase() Phase      { return PhaseIdle }
func (Recording) Phase() Phase { return PhaseRecording }
func (Reviewing) Phase() Phase { return PhaseReviewing }
func (Analyzing) Phase() Phase { return PhaseAnalyzing }
func (Done) Phase() Phase      { return PhaseDone }

func (Idle) isState()      {}
func (Recording) isState() {}
func (Reviewing) isState() {}
func (Analyzing) isState() {}
func (Done) isState()      {}

// artifactOf returns the artifact held by s, if any.
func artifactOf(s State) (audio.Artifact, bool) {
	switch st := s.(type) {
	case Reviewing:
		return st.Artifact, true
	case Analyzing:
		return st.Artifact, true
	case Done:
		return st.Artifact, true
	default:
		return audio.Artifact{}, false
	}
}

// Snapshot is a read-only view for presentation.
type Snapshot struct {
	Phase     Phase           `json:"phase"`
	Elapsed   int             `json:"elapsed"`
	Artifact  *audio.Artifact `json:"artifact,omitempty"`
	Result    *emotion.Result `json:"result,omitempty"`
	Playing   bool            `json:"playing"`
	LastError string          `json:"last_error,omitempty"`
}
