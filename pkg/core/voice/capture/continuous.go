package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Continuous-mode restart delays.
const (
	// DefaultRestartDelay is applied after a session ends normally.
	DefaultRestartDelay = 100 * time.Millisecond
	// DefaultErrorRestartDelay is applied after a recoverable error.
	DefaultErrorRestartDelay = time.Second
)

// ControllerConfig configures a continuous capture Controller.
type ControllerConfig struct {
	RestartDelay      time.Duration
	ErrorRestartDelay time.Duration
}

// DefaultControllerConfig returns the standard continuous-mode delays.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		RestartDelay:      DefaultRestartDelay,
		ErrorRestartDelay: DefaultErrorRestartDelay,
	}
}

// Controller keeps a live recognition session running hands-free. When a
// session ends it schedules a restart, unless capture has been stopped,
// audio input is disabled, or the error was a network failure. Network
// failures stop the loop so a broken backend is not hammered with
// reconnects. The speaking gate is consulted at restart time, so output
// playing when the timer fires defers the restart rather than racing it.
type Controller struct {
	recognizer Recognizer
	cfg        ControllerConfig
	speaking   func() bool
	logger     *slog.Logger

	onUtterance func(text string)
	onInterim   func(text string)
	onStatus    func(Status)

	mu           sync.Mutex
	running      bool
	audioEnabled bool
	listening    bool
	seq          uint64
	timer        *time.Timer
	ctx          context.Context
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithUtteranceFunc sets the callback invoked with each final transcript.
func WithUtteranceFunc(fn func(string)) ControllerOption {
	return func(c *Controller) { c.onUtterance = fn }
}

// WithInterimFunc sets the callback invoked with interim transcripts.
func WithInterimFunc(fn func(string)) ControllerOption {
	return func(c *Controller) { c.onInterim = fn }
}

// WithControllerSpeakingGate sets the predicate consulted before each
// restart.
func WithControllerSpeakingGate(fn func() bool) ControllerOption {
	return func(c *Controller) { c.speaking = fn }
}

// WithControllerStatusFunc sets the status timeline observer.
func WithControllerStatusFunc(fn func(Status)) ControllerOption {
	return func(c *Controller) { c.onStatus = fn }
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController builds a continuous capture controller.
func NewController(recognizer Recognizer, cfg ControllerConfig, opts ...ControllerOption) *Controller {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.ErrorRestartDelay <= 0 {
		cfg.ErrorRestartDelay = DefaultErrorRestartDelay
	}
	c := &Controller{
		recognizer:   recognizer,
		cfg:          cfg,
		speaking:     func() bool { return false },
		logger:       slog.Default(),
		audioEnabled: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins hands-free listening. If speech output is active the first
// session is deferred until Resume is called. Calling Start while already
// running is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.ctx = ctx
	c.mu.Unlock()

	if c.speaking() {
		return
	}
	c.startSession()
}

// Stop ends hands-free listening and tears down any active session.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.running = false
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	wasListening := c.listening
	c.listening = false
	c.mu.Unlock()

	if wasListening {
		c.recognizer.Stop()
	}
}

// Resume starts a new session if the controller is running and no session
// is active. The speech output controller calls this after an utterance
// completes.
func (c *Controller) Resume() {
	c.mu.Lock()
	ok := c.running && c.audioEnabled && !c.listening
	c.mu.Unlock()
	if !ok || c.speaking() {
		return
	}
	c.startSession()
}

// SetAudioEnabled toggles audio input. Disabling stops the active session
// and suppresses restarts until re-enabled.
func (c *Controller) SetAudioEnabled(enabled bool) {
	c.mu.Lock()
	c.audioEnabled = enabled
	if !enabled {
		c.seq++
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
	}
	wasListening := c.listening
	if !enabled {
		c.listening = false
	}
	c.mu.Unlock()

	if !enabled && wasListening {
		c.recognizer.Stop()
	}
	if enabled {
		c.Resume()
	}
}

// Listening reports whether a recognition session is currently active.
func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

func (c *Controller) startSession() {
	c.mu.Lock()
	if !c.running || !c.audioEnabled || c.listening {
		c.mu.Unlock()
		return
	}
	c.seq++
	id := c.seq
	c.listening = true
	ctx := c.ctx
	c.mu.Unlock()

	err := c.recognizer.Start(ctx, Handlers{
		OnStart: func() {
			c.emit(Status{Phase: PhaseListening, Message: "Listening... Speak now"})
		},
		OnResult: c.handleResult,
		OnError:  func(code ErrorCode) { c.handleError(id, code) },
		OnEnd:    func() { c.handleEnd(id) },
	})
	if err != nil {
		c.mu.Lock()
		if id == c.seq {
			c.listening = false
		}
		c.mu.Unlock()
		c.logger.Warn("recognition session failed to start", "error", err)
		c.emit(Status{Phase: PhaseError, Message: ErrCodeNetwork.Message()})
	}
}

func (c *Controller) handleResult(text string, isFinal bool) {
	if !isFinal {
		if c.onInterim != nil {
			c.onInterim(text)
		}
		return
	}
	if c.onUtterance != nil {
		c.onUtterance(text)
	}
}

// handleError and handleEnd are tagged with the session id they were
// registered for. A session that has been superseded, stopped, or already
// handled its terminal event still delivers OnEnd when its transport is
// torn down; those late events must not touch the current session's state
// or schedule extra restarts.
func (c *Controller) handleError(id uint64, code ErrorCode) {
	c.mu.Lock()
	if id != c.seq {
		c.mu.Unlock()
		return
	}
	c.seq++
	c.listening = false
	c.mu.Unlock()

	// The transport may still be open after an error frame. Tear it down
	// here so the replacement session does not have to evict it.
	c.recognizer.Stop()

	if code == ErrCodeNetwork {
		c.logger.Warn("recognition network error, stopping hands-free capture")
		c.emit(Status{Phase: PhaseError, Message: code.Message()})
		return
	}
	if code != ErrCodeNoSpeech {
		c.emit(Status{Phase: PhaseError, Message: code.Message()})
	}
	c.scheduleRestart(c.cfg.ErrorRestartDelay)
}

func (c *Controller) handleEnd(id uint64) {
	c.mu.Lock()
	if id != c.seq {
		c.mu.Unlock()
		return
	}
	c.seq++
	c.listening = false
	c.mu.Unlock()

	c.scheduleRestart(c.cfg.RestartDelay)
}

func (c *Controller) scheduleRestart(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.audioEnabled {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.timer = nil
		ok := c.running && c.audioEnabled
		c.mu.Unlock()
		if !ok || c.speaking() {
			return
		}
		c.startSession()
	})
}

func (c *Controller) emit(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
