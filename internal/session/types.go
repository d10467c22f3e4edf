package session

// Event is a user or system input to the session.
type Event string

const (
	EventStart        Event = "start"
	EventStop         Event = "stop"
	EventPlay         Event = "play"
	EventStopPlayback Event = "stop_playback"
	EventAnalyze      Event = "analyze"
	EventDiscard      Event = "discard"
	EventReRecord     Event = "rerecord"
)

// Reason explains a phase change.
type Reason string

const (
	ReasonRecordingStarted Reason = "recording_started"
	ReasonRecordingStopped Reason = "recording_stopped"
	ReasonCaptureFailed    Reason = "capture_failed"
	ReasonAnalyzing        Reason = "analyzing"
	ReasonAnalysisComplete Reason = "analysis_complete"
	ReasonAnalysisFailed   Reason = "analysis_failed"
	ReasonDiscarded        Reason = "recording_discarded"
	ReasonReRecord         Reason = "rerecord"
	ReasonTeardown         Reason = "teardown"
)

// ErrorCode classifies a surfaced failure.
type ErrorCode string

const (
	ErrorCodePermission ErrorCode = "permission"
	ErrorCodeDevice     ErrorCode = "device"
	ErrorCodeCapture    ErrorCode = "capture"
	ErrorCodePlayback   ErrorCode = "playback"
	ErrorCodeAnalysis   ErrorCode = "analysis"
	ErrorCodeTransition ErrorCode = "transition"
)
