// Package transcribe submits recorded audio to the transcription service
// and returns the recognized text.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a transcription request.
const DefaultTimeout = 30 * time.Second

const defaultFormat = "webm"

// ErrEmptyTranscript is returned when the service responds successfully
// but with no recognized text.
var ErrEmptyTranscript = errors.New("transcribe: empty transcript")

// Client submits audio to the transcription endpoint.
type Client struct {
	baseURL    string
	format     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithFormat sets the audio container format sent with each request.
func WithFormat(format string) Option {
	return func(cl *Client) {
		if format != "" {
			cl.format = format
		}
	}
}

// New creates a transcription client for the given service base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		format:     defaultFormat,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type transcriptionResponse struct {
	Transcript string `json:"transcript"`
	Text       string `json:"text"`
}

// Transcribe uploads the audio and returns the recognized text. A
// non-success status, an unparsable body, and an empty transcript are all
// errors so the caller can fall through to its next strategy.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("audio", "audio."+c.format)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transcribe", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription error %d: %s", resp.StatusCode, string(body))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	text := strings.TrimSpace(tr.Transcript)
	if text == "" {
		text = strings.TrimSpace(tr.Text)
	}
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}
