package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/moodcap/internal/analysis"
	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/emotion"
	"github.com/audiolibrelab/moodcap/internal/service"
	"github.com/audiolibrelab/moodcap/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server represents the web server for remote control of a recording session
type Server struct {
	service service.Service
	port    string

	mu      sync.Mutex
	session *session.Session
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Status    string           `json:"status"`
	Message   string           `json:"message,omitempty"`
	Session   session.Snapshot `json:"session"`
	LastError string           `json:"last_error,omitempty"`
	BaseURL   string           `json:"base_url"`
}

// SourcesResponse represents the JSON response for sources endpoint
type SourcesResponse struct {
	Sources []string `json:"sources"`
}

// AnalysisResponse wraps a single analysis result
type AnalysisResponse struct {
	Success bool            `json:"success"`
	Result  *emotion.Result `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// HistoryResponse lists past analyses
type HistoryResponse struct {
	Success bool                   `json:"success"`
	Entries []emotion.HistoryEntry `json:"entries"`
}

type textRequest struct {
	Text string `json:"text"`
}

// New creates a server driving svc.
func New(svc service.Service, port string) *Server {
	return &Server{service: svc, port: port}
}

// Session returns the server's recording session, creating it on first use.
func (s *Server) Session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		s.session = s.service.NewSession(logSink{})
	}
	return s.session
}

// Handler returns the HTTP routes of the control surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/sources", s.handleSources)
	mux.HandleFunc("/session/start", s.sessionAction("start", func(ctx context.Context, sess *session.Session) error {
		return sess.Start(ctx)
	}))
	mux.HandleFunc("/session/stop", s.sessionAction("stop", func(ctx context.Context, sess *session.Session) error {
		return sess.Stop()
	}))
	mux.HandleFunc("/session/play", s.sessionAction("play", func(ctx context.Context, sess *session.Session) error {
		return sess.Play(ctx)
	}))
	mux.HandleFunc("/session/playback/stop", s.sessionAction("stop_playback", func(ctx context.Context, sess *session.Session) error {
		return sess.StopPlayback()
	}))
	mux.HandleFunc("/session/analyze", s.sessionAction("analyze", func(ctx context.Context, sess *session.Session) error {
		return sess.Analyze(ctx)
	}))
	mux.HandleFunc("/session/discard", s.sessionAction("discard", func(ctx context.Context, sess *session.Session) error {
		return sess.Discard()
	}))
	mux.HandleFunc("/session/rerecord", s.sessionAction("rerecord", func(ctx context.Context, sess *session.Session) error {
		return sess.ReRecord()
	}))
	mux.HandleFunc("/analyze-text", s.handleAnalyzeText)
	mux.HandleFunc("/history", s.handleHistory)
	return mux
}

// Start serves until ctx is cancelled, then shuts down and tears the
// session down.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	localIP := getLocalIP()
	slog.Info("Starting moodcap control server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.teardown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down control server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.teardown()
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) teardown() {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		sess.Teardown()
	}
}

// handleStatus returns the current status and session info
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := s.Session().Snapshot()
	response := StatusResponse{
		Status:    snap.Phase.String(),
		Message:   statusMessage(snap),
		Session:   snap,
		LastError: s.service.GetLastError(),
		BaseURL:   s.service.GetConfig().Service.BaseURL,
	}
	sendJSON(w, http.StatusOK, response)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sources, err := s.service.ListSources()
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list sources: %v", err), "operation", "list_sources")
		return
	}
	if sources == nil {
		sources = []string{}
	}
	sendJSON(w, http.StatusOK, SourcesResponse{Sources: sources})
}

// sessionAction adapts a session event to a POST handler. The response
// carries the snapshot after the event.
func (s *Server) sessionAction(name string, fn func(context.Context, *session.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		sess := s.Session()
		slog.Debug("Session action requested", "action", name, "phase", sess.Snapshot().Phase)
		if err := fn(r.Context(), sess); err != nil {
			s.sendErrorResponse(w, statusFor(err), session.UserMessage(err), "operation", name)
			return
		}

		snap := sess.Snapshot()
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": statusMessage(snap),
			"session": snap,
		})
	}
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	text, err := readText(r)
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, err.Error(), "operation", "analyze_text")
		return
	}

	result, err := s.service.AnalyzeText(r.Context(), text)
	if err != nil {
		s.sendErrorResponse(w, statusFor(err), session.UserMessage(err), "operation", "analyze_text")
		return
	}
	if result == nil {
		sendJSON(w, http.StatusOK, AnalysisResponse{Success: true, Message: "Nothing to analyze"})
		return
	}
	sendJSON(w, http.StatusOK, AnalysisResponse{Success: true, Result: result})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	entries, err := s.service.History(r.Context())
	if err != nil {
		s.sendErrorResponse(w, statusFor(err), session.UserMessage(err), "operation", "history")
		return
	}
	if entries == nil {
		entries = []emotion.HistoryEntry{}
	}
	sendJSON(w, http.StatusOK, HistoryResponse{Success: true, Entries: entries})
}

// readText accepts either a JSON body or form data with a "text" field.
func readText(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", fmt.Errorf("Invalid JSON body: %v", err)
		}
		return req.Text, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", fmt.Errorf("Failed to parse form")
	}
	return r.FormValue("text"), nil
}

func statusFor(err error) int {
	var transErr *session.TransitionError
	switch {
	case errors.As(err, &transErr):
		return http.StatusConflict
	case errors.Is(err, audio.ErrPermissionDenied):
		return http.StatusForbidden
	case analysis.IsNetwork(err), analysis.IsService(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func statusMessage(snap session.Snapshot) string {
	switch snap.Phase {
	case session.PhaseIdle:
		return "Ready to record"
	case session.PhaseRecording:
		return fmt.Sprintf("Recording %ds", snap.Elapsed)
	case session.PhaseReviewing:
		if snap.Playing {
			return "Playing back recording"
		}
		return "Recording ready for review"
	case session.PhaseAnalyzing:
		return "Analyzing recording"
	case session.PhaseDone:
		if snap.Result != nil {
			return "Dominant emotion: " + snap.Result.Dominant()
		}
		return "Analysis complete"
	default:
		return strings.ToLower(snap.Phase.String())
	}
}

func sendJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendErrorResponse logs the error and sends a JSON error envelope
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	sendJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   errorMsg,
	})
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}

// logSink reports session events to the structured log.
type logSink struct{}

func (logSink) PhaseChanged(phase session.Phase, reason session.Reason) {
	slog.Info("Session phase changed", "phase", phase, "reason", reason)
}

func (logSink) Tick(elapsed int) {
	slog.Debug("Recording", "elapsed", elapsed)
}

func (logSink) PlaybackFinished() {
	slog.Info("Playback finished")
}

func (logSink) SessionError(code session.ErrorCode, message string) {
	slog.Warn("Session error", "code", code, "message", message)
}
