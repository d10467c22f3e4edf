package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/audiolibrelab/moodcap/internal/audio"
	"github.com/audiolibrelab/moodcap/internal/emotion"
	"github.com/audiolibrelab/moodcap/internal/version"
)

const (
	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 1 << 20
)

var contentTypes = map[string]string{
	"m4a": "audio/m4a",
	"aac": "audio/aac",
	"3gp": "audio/3gp",
	"wav": "audio/wav",
	"mp4": "audio/mp4",
}

// ContentTypeFor maps an artifact locator to the part content type the
// service expects. Unknown extensions fall back to audio/m4a.
func ContentTypeFor(locator string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(locator), "."))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "audio/m4a"
}

// Client talks to the remote emotion-analysis service.
type Client struct {
	baseURL      string
	clientID     string
	historyLimit int
	token        string
	httpClient   *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithClientID overrides the User-Agent sent on every request.
func WithClientID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.clientID = id
		}
	}
}

// WithHistoryLimit caps the number of history entries requested. Zero asks
// for the service default.
func WithHistoryLimit(n int) Option {
	return func(c *Client) { c.historyLimit = n }
}

// WithToken enables bearer authentication.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   version.UserAgent(),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.token != "" {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc := *c.httpClient
		hc.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}),
			Base:   base,
		}
		c.httpClient = &hc
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// AnalyzeText submits free text for analysis.
func (c *Client) AnalyzeText(ctx context.Context, text string) (emotion.Result, error) {
	const op = "analyze text"
	if strings.TrimSpace(text) == "" {
		return emotion.Result{}, ErrEmptyText
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return emotion.Result{}, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze-text", bytes.NewReader(payload))
	if err != nil {
		return emotion.Result{}, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doAnalyze(op, req)
}

// AnalyzeAudio uploads a recorded artifact as multipart field "file".
func (c *Client) AnalyzeAudio(ctx context.Context, artifact audio.Artifact) (emotion.Result, error) {
	const op = "analyze audio"

	data, err := os.ReadFile(artifact.Locator)
	if err != nil {
		return emotion.Result{}, fmt.Errorf("%s: read artifact: %w", op, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filepath.Base(artifact.Locator))))
	header.Set("Content-Type", ContentTypeFor(artifact.Locator))

	part, err := writer.CreatePart(header)
	if err != nil {
		return emotion.Result{}, fmt.Errorf("%s: create form part: %w", op, err)
	}
	if _, err := part.Write(data); err != nil {
		return emotion.Result{}, fmt.Errorf("%s: write form part: %w", op, err)
	}
	if err := writer.Close(); err != nil {
		return emotion.Result{}, fmt.Errorf("%s: close form: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze-audio", &body)
	if err != nil {
		return emotion.Result{}, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doAnalyze(op, req)
}

// History fetches past analyses recorded by the service.
func (c *Client) History(ctx context.Context) ([]emotion.HistoryEntry, error) {
	const op = "mood history"

	endpoint := c.baseURL + "/mood-history"
	if c.historyLimit > 0 {
		endpoint += "?" + url.Values{"limit": {strconv.Itoa(c.historyLimit)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []emotion.HistoryEntry{}, nil
	}

	var entries []emotion.HistoryEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if entries == nil {
		entries = []emotion.HistoryEntry{}
	}
	return entries, nil
}

func (c *Client) doAnalyze(op string, req *http.Request) (emotion.Result, error) {
	body, err := c.do(op, req)
	if err != nil {
		return emotion.Result{}, err
	}

	result, err := emotion.Parse(body)
	if err != nil {
		var reported *emotion.ReportedError
		if errors.As(err, &reported) {
			return emotion.Result{}, &ServiceError{Op: op, Message: reported.Message}
		}
		return emotion.Result{}, &NetworkError{Op: op, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if result.Warning() != "" {
		slog.Warn("Analysis service returned a fallback result", "op", op, "warning", result.Warning())
	}
	return result, nil
}

// do sends req with the fixed headers and returns the body of a 2xx response.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	requestID := uuid.New().String()
	req.Header.Set("User-Agent", c.clientID)
	req.Header.Set("Bypass-Tunnel-Reminder", "true")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")

	slog.Debug("Sending analysis request", "op", op, "method", req.Method, "url", req.URL.String(), "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	slog.Debug("Analysis response received", "op", op, "status", resp.StatusCode, "bytes", len(body), "duration", time.Since(start), "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Op: op, StatusCode: resp.StatusCode, Excerpt: excerpt(body)}
	}
	return body, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// IsNetwork reports whether err came from the transport or a bad status.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsService reports whether the service answered with an explicit error.
func IsService(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
