package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/audiolibrelab/moodcap/internal/audio"
)

func writeArtifact(t *testing.T, name string) audio.Artifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake audio payload"), 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
	return audio.Artifact{Locator: path, DurationSeconds: 3}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"clip.m4a", "audio/m4a"},
		{"/tmp/CLIP.WAV", "audio/wav"},
		{"clip.aac", "audio/aac"},
		{"clip.3gp", "audio/3gp"},
		{"clip.mp4", "audio/mp4"},
		{"clip.xyz", "audio/m4a"},
		{"clip", "audio/m4a"},
	}
	for _, tt := range tests {
		if got := ContentTypeFor(tt.locator); got != tt.want {
			t.Errorf("ContentTypeFor(%q): expected %s, got %s", tt.locator, tt.want, got)
		}
	}
}

func TestAnalyzeText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze-text" {
			t.Errorf("Expected /analyze-text, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %s", ct)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req["text"] != "I feel great today" {
			t.Errorf("Expected text to be forwarded, got %q", req["text"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"dominant":"joy","probabilities":{"joy":0.8,"sadness":0.1,"anger":0.1}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	result, err := client.AnalyzeText(context.Background(), "I feel great today")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Dominant() != "joy" {
		t.Errorf("Expected dominant joy, got %s", result.Dominant())
	}
	if len(result.Top(5)) != 3 {
		t.Errorf("Expected 3 scores, got %d", len(result.Top(5)))
	}
}

func TestAnalyzeText_EmptyMakesNoRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).AnalyzeText(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("Expected no request, got %d", calls)
	}
}

func TestAnalyzeAudio_MultipartUpload(t *testing.T) {
	artifact := writeArtifact(t, "capture-1.m4a")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze-audio" {
			t.Errorf("Expected /analyze-audio, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected file field: %v", err)
			return
		}
		defer file.Close()

		if header.Filename != "capture-1.m4a" {
			t.Errorf("Expected filename capture-1.m4a, got %s", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "audio/m4a" {
			t.Errorf("Expected part content type audio/m4a, got %s", ct)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake audio payload" {
			t.Errorf("Unexpected upload contents %q", data)
		}

		w.Write([]byte(`{"dominant":"sadness","probabilities":{"sadness":0.6,"neutral":0.4}}`))
	}))
	defer server.Close()

	result, err := NewClient(server.URL).AnalyzeAudio(context.Background(), artifact)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Dominant() != "sadness" {
		t.Errorf("Expected dominant sadness, got %s", result.Dominant())
	}
}

func TestAnalyzeAudio_UnknownExtensionDefaultsToM4A(t *testing.T) {
	artifact := writeArtifact(t, "clip.xyz")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected file field: %v", err)
			return
		}
		if ct := header.Header.Get("Content-Type"); ct != "audio/m4a" {
			t.Errorf("Expected audio/m4a, got %s", ct)
		}
		w.Write([]byte(`{"dominant":"neutral","probabilities":{"neutral":1}}`))
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).AnalyzeAudio(context.Background(), artifact); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestAnalyze_NonSuccessStatus(t *testing.T) {
	longBody := strings.Repeat("x", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(longBody))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).AnalyzeAudio(context.Background(), writeArtifact(t, "clip.wav"))

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected NetworkError, got %T: %v", err, err)
	}
	if ne.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", ne.StatusCode)
	}
	if len(ne.Excerpt) != ExcerptLimit {
		t.Errorf("Expected excerpt of %d chars, got %d", ExcerptLimit, len(ne.Excerpt))
	}
}

func TestAnalyze_ShortErrorBodyKeptWhole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).AnalyzeText(context.Background(), "hello")

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected NetworkError, got %T", err)
	}
	if strings.TrimSpace(ne.Excerpt) != "Internal Server Error" {
		t.Errorf("Expected whole body in excerpt, got %q", ne.Excerpt)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Expected status code in message, got %s", err.Error())
	}
}

func TestAnalyze_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Could not process audio"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).AnalyzeText(context.Background(), "hello")

	var se *ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("Expected ServiceError, got %T: %v", err, err)
	}
	if se.Message != "Could not process audio" {
		t.Errorf("Expected service message, got %q", se.Message)
	}
	if IsNetwork(err) {
		t.Error("ServiceError must not be classified as network")
	}
}

func TestAnalyze_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>tunnel page</html>`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).AnalyzeText(context.Background(), "hello")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
	if !IsNetwork(err) {
		t.Errorf("Expected NetworkError, got %T", err)
	}
}

func TestAnalyze_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).AnalyzeText(context.Background(), "hello")

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Expected NetworkError, got %T: %v", err, err)
	}
	if ne.StatusCode != 0 || ne.Err == nil {
		t.Errorf("Expected transport error without status, got %+v", ne)
	}
}

func TestAnalyzeAudio_MissingArtifact(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).AnalyzeAudio(context.Background(), audio.Artifact{Locator: "/nonexistent/clip.m4a"})
	if err == nil {
		t.Error("Expected error for missing artifact")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("Expected no request for missing artifact")
	}
}

func TestFixedHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "moodcap-test/2.0" {
			t.Errorf("Expected client id user agent, got %s", ua)
		}
		if r.Header.Get("Bypass-Tunnel-Reminder") != "true" {
			t.Error("Expected Bypass-Tunnel-Reminder: true")
		}
		if _, err := uuid.Parse(r.Header.Get("X-Request-ID")); err != nil {
			t.Errorf("Expected uuid request id, got %q", r.Header.Get("X-Request-ID"))
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer s3cret" {
			t.Errorf("Expected bearer token, got %q", auth)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithClientID("moodcap-test/2.0"), WithToken("s3cret"))
	if _, err := client.History(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mood-history" {
			t.Errorf("Expected /mood-history, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "10" {
			t.Errorf("Expected limit=10, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("Expected no Authorization header without a token")
		}
		w.Write([]byte(`[
			{"id":"a1","timestamp":"2024-03-01 12:30:45","dominant":"joy","type":"text"},
			{"id":"b2","timestamp":"2024-03-01 12:31:02","dominant":"anger","type":"audio"}
		]`))
	}))
	defer server.Close()

	entries, err := NewClient(server.URL, WithHistoryLimit(10)).History(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Dominant != "anger" || entries[1].Type != "audio" {
		t.Errorf("Unexpected second entry %+v", entries[1])
	}
}

func TestHistory_EmptyBodies(t *testing.T) {
	for _, body := range []string{"", "null", "  \n", "[]"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		entries, err := NewClient(server.URL).History(context.Background())
		server.Close()

		if err != nil {
			t.Errorf("Body %q: expected no error, got %v", body, err)
			continue
		}
		if entries == nil || len(entries) != 0 {
			t.Errorf("Body %q: expected empty non-nil slice, got %#v", body, entries)
		}
	}
}

func TestHistory_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).History(context.Background())

	var ne *NetworkError
	if !errors.As(err, &ne) || ne.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected NetworkError with 503, got %v", err)
	}
}
