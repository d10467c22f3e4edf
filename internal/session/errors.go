package session

import (
	"errors"
	"fmt"

	"github.com/audiolibrelab/moodcap/internal/analysis"
	"github.com/audiolibrelab/moodcap/internal/audio"
)

// TransitionError is returned for an event the current phase does not accept.
type TransitionError struct {
	From  Phase
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: cannot %s while %s", e.Event, e.From)
}

// CaptureError wraps a failure to finalise a recording.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("capture failed: %v", e.Err) }

func (e *CaptureError) Unwrap() error { return e.Err }

// AnalysisError wraps a failed analysis request. The recording is kept.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string { return fmt.Sprintf("analysis failed: %v", e.Err) }

func (e *AnalysisError) Unwrap() error { return e.Err }

// UserMessage renders err for display.
func UserMessage(err error) string {
	var (
		permErr  *audio.PermissionError
		capErr   *CaptureError
		devErr   *audio.DeviceError
		netErr   *analysis.NetworkError
		svcErr   *analysis.ServiceError
		transErr *TransitionError
		anErr    *AnalysisError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &permErr):
		return "Microphone access is needed to record. Allow it and try again."
	case errors.As(err, &capErr):
		return fmt.Sprintf("The recording could not be saved: %v", capErr.Err)
	case errors.As(err, &svcErr):
		return fmt.Sprintf("The analysis service could not process the recording: %s", svcErr.Message)
	case errors.As(err, &netErr):
		if netErr.StatusCode != 0 {
			return fmt.Sprintf("Analysis failed: server error %d: %s", netErr.StatusCode, netErr.Excerpt)
		}
		return fmt.Sprintf("Could not reach the analysis service: %v", netErr.Err)
	case errors.As(err, &anErr):
		return fmt.Sprintf("Analysis failed: %v", anErr.Err)
	case errors.As(err, &devErr):
		return fmt.Sprintf("Audio device problem: %v", devErr.Err)
	case errors.As(err, &transErr):
		return fmt.Sprintf("Cannot %s right now (%s).", transErr.Event, transErr.From)
	default:
		return err.Error()
	}
}

func errorCode(err error) ErrorCode {
	var (
		permErr  *audio.PermissionError
		capErr   *CaptureError
		anErr    *AnalysisError
		transErr *TransitionError
	)
	switch {
	case errors.As(err, &permErr):
		return ErrorCodePermission
	case errors.As(err, &capErr):
		return ErrorCodeCapture
	case errors.As(err, &anErr):
		return ErrorCodeAnalysis
	case errors.As(err, &transErr):
		return ErrorCodeTransition
	default:
		return ErrorCodeDevice
	}
}
