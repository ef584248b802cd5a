// Package recognize provides a live speech-recognition client backed by a
// WebSocket transcription stream. It implements the capture.Recognizer
// interface and supports repeated start/stop cycles, one connection per
// session.
package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/voice/capture"
)

const defaultHandshakeTimeout = 10 * time.Second

const defaultLanguage = "en-US"

// Client dials the recognition endpoint and translates stream frames into
// capture handler events.
type Client struct {
	url      string
	language string
	interim  bool
	header   http.Header
	dialer   websocket.Dialer
	logger   *slog.Logger

	mu   sync.Mutex
	sess *session
}

// Option configures a Client.
type Option func(*Client)

// WithLanguage sets the recognition language. Defaults to en-US.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithInterimResults requests interim transcripts from the stream.
func WithInterimResults(enabled bool) Option {
	return func(c *Client) { c.interim = enabled }
}

// WithHeader sets extra headers sent during the handshake.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h }
}

// WithHandshakeTimeout overrides the dial handshake timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a recognition client for the given WebSocket URL.
func New(wsURL string, opts ...Option) *Client {
	c := &Client{
		url:      wsURL,
		language: defaultLanguage,
		interim:  true,
		dialer: websocket.Dialer{
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// streamFrame is one JSON message from the recognition stream.
type streamFrame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"is_final,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Start dials a new recognition session. Any previous session is torn
// down first. On success the handlers receive events until the stream
// ends or Stop is called.
func (c *Client) Start(ctx context.Context, h capture.Handlers) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("parse websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("language", c.language)
	if c.interim {
		q.Set("interim_results", "true")
	}
	u.RawQuery = q.Encode()

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), c.header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if len(body) > 0 {
				return fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
			return fmt.Errorf("websocket connect: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket connect: %w", err)
	}

	s := &session{conn: conn, h: h}

	c.mu.Lock()
	if c.sess != nil {
		c.sess.close()
	}
	c.sess = s
	c.mu.Unlock()

	go s.readLoop(c.logger)

	if h.OnStart != nil {
		h.OnStart()
	}
	return nil
}

// Stop tears down the active session. Safe to call with no session.
func (c *Client) Stop() {
	c.mu.Lock()
	s := c.sess
	c.sess = nil
	c.mu.Unlock()
	if s != nil {
		s.close()
	}
}

type session struct {
	conn    *websocket.Conn
	h       capture.Handlers
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (s *session) readLoop(logger *slog.Logger) {
	defer s.conn.Close()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.emitEnd()
				return
			}
			logger.Warn("recognition stream read failed", "error", err)
			s.emitError(capture.ErrCodeNetwork)
			s.emitEnd()
			return
		}

		var f streamFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		switch f.Type {
		case "transcript":
			if s.h.OnResult != nil {
				s.h.OnResult(f.Text, f.IsFinal)
			}
		case "error":
			s.emitError(errorCode(f.Code))
		case "end":
			s.emitEnd()
			return
		}
	}
}

func (s *session) emitError(code capture.ErrorCode) {
	if s.h.OnError != nil {
		s.h.OnError(code)
	}
}

func (s *session) emitEnd() {
	if s.h.OnEnd != nil {
		s.h.OnEnd()
	}
}

func (s *session) close() {
	if s.closed.Swap(true) {
		return
	}
	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	s.conn.Close()
}

func errorCode(code string) capture.ErrorCode {
	if code == "" {
		return capture.ErrCodeAborted
	}
	return capture.ErrorCode(code)
}
