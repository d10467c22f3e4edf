package audio

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNotCapturing     = errors.New("no capture in progress")
	ErrAlreadyCapturing = errors.New("capture already in progress")
)

// PermissionError is returned when the microphone grant is refused.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	if e.Reason == "" {
		return ErrPermissionDenied.Error()
	}
	return fmt.Sprintf("%s: %s", ErrPermissionDenied, e.Reason)
}

func (e *PermissionError) Is(target error) bool { return target == ErrPermissionDenied }

// DeviceError is a capture or playback device failure.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
