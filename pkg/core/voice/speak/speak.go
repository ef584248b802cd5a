// Package speak serializes speech output. A controller wraps a
// synthesizer capability with last-call-wins semantics: starting a new
// utterance cancels whatever is playing, so output never overlaps.
package speak

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Default voice preferences, tried in order against the synthesizer's
// available voices. No match falls back to the platform default.
var DefaultPreferredVoices = []string{
	"Google UK English Female",
	"Microsoft Zira",
	"Samantha",
	"Victoria",
}

// Default prosody settings.
const (
	DefaultRate   = 0.95
	DefaultPitch  = 1.2
	DefaultVolume = 1.0

	// DefaultResumeGrace is the pause between an utterance completing and
	// the capture resume signal.
	DefaultResumeGrace = 500 * time.Millisecond
)

// Utterance is one speech output request.
type Utterance struct {
	Text   string
	Voice  string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Synthesizer is the speech synthesis capability. Speak starts playback
// and calls done exactly once when the utterance finishes naturally;
// Cancel discards any active playback without calling done.
type Synthesizer interface {
	Speak(u Utterance, done func()) error
	Cancel()
	Voices() []string
}

// Config holds controller settings.
type Config struct {
	PreferredVoices []string
	Rate            float64
	Pitch           float64
	Volume          float64
	ResumeGrace     time.Duration
}

// DefaultConfig returns the standard speech output settings.
func DefaultConfig() Config {
	return Config{
		PreferredVoices: DefaultPreferredVoices,
		Rate:            DefaultRate,
		Pitch:           DefaultPitch,
		Volume:          DefaultVolume,
		ResumeGrace:     DefaultResumeGrace,
	}
}

// Controller owns all speech output for a conversation.
type Controller struct {
	synth  Synthesizer
	cfg    Config
	logger *slog.Logger

	onSpeakingChange func(bool)
	onComplete       func()

	mu          sync.Mutex
	gen         uint64
	speaking    bool
	enabled     bool
	resumeTimer *time.Timer
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSpeakingChangeFunc sets the speaking indicator observer.
func WithSpeakingChangeFunc(fn func(bool)) ControllerOption {
	return func(c *Controller) { c.onSpeakingChange = fn }
}

// WithCompleteFunc sets the callback invoked after an utterance completes
// naturally and the grace period elapses. The continuous capture
// controller registers its Resume here.
func WithCompleteFunc(fn func()) ControllerOption {
	return func(c *Controller) { c.onComplete = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// SetCallbacks replaces the controller's observers. Useful when the
// capture side is constructed after the controller and needs to register
// its resume hook.
func (c *Controller) SetCallbacks(onSpeakingChange func(bool), onComplete func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSpeakingChange = onSpeakingChange
	c.onComplete = onComplete
}

// NewController builds a speech output controller.
func NewController(synth Synthesizer, cfg Config, opts ...ControllerOption) *Controller {
	if len(cfg.PreferredVoices) == 0 {
		cfg.PreferredVoices = DefaultPreferredVoices
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Pitch <= 0 {
		cfg.Pitch = DefaultPitch
	}
	if cfg.Volume <= 0 {
		cfg.Volume = DefaultVolume
	}
	if cfg.ResumeGrace <= 0 {
		cfg.ResumeGrace = DefaultResumeGrace
	}
	c := &Controller{
		synth:   synth,
		cfg:     cfg,
		logger:  slog.Default(),
		enabled: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Speak starts the utterance, cancelling any active one first. While
// audio output is disabled the call is a no-op.
func (c *Controller) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.gen++
	myGen := c.gen
	if c.resumeTimer != nil {
		c.resumeTimer.Stop()
		c.resumeTimer = nil
	}
	wasSpeaking := c.speaking
	c.speaking = true
	c.mu.Unlock()

	c.synth.Cancel()
	if !wasSpeaking {
		c.notifySpeaking(true)
	}

	u := Utterance{
		Text:   text,
		Voice:  c.pickVoice(),
		Rate:   c.cfg.Rate,
		Pitch:  c.cfg.Pitch,
		Volume: c.cfg.Volume,
	}
	err := c.synth.Speak(u, func() { c.utteranceDone(myGen) })
	if err != nil {
		c.logger.Warn("speech synthesis failed", "error", err)
		c.mu.Lock()
		stale := c.gen != myGen
		if !stale {
			c.speaking = false
		}
		c.mu.Unlock()
		if !stale {
			c.notifySpeaking(false)
		}
	}
}

// Cancel discards any active utterance and pending resume signal.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.gen++
	wasSpeaking := c.speaking
	c.speaking = false
	if c.resumeTimer != nil {
		c.resumeTimer.Stop()
		c.resumeTimer = nil
	}
	c.mu.Unlock()

	c.synth.Cancel()
	if wasSpeaking {
		c.notifySpeaking(false)
	}
}

// SetEnabled toggles audio output. Disabling cancels any active
// utterance.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
	if !enabled {
		c.Cancel()
	}
}

// Enabled reports whether audio output is on.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// IsSpeaking reports whether an utterance is playing. Capture consults
// this before starting an attempt.
func (c *Controller) IsSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

func (c *Controller) utteranceDone(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		// A newer utterance superseded this one.
		c.mu.Unlock()
		return
	}
	c.speaking = false
	schedule := c.onComplete != nil && c.enabled
	if schedule {
		if c.resumeTimer != nil {
			c.resumeTimer.Stop()
		}
		c.resumeTimer = time.AfterFunc(c.cfg.ResumeGrace, c.onComplete)
	}
	c.mu.Unlock()

	c.notifySpeaking(false)
}

func (c *Controller) pickVoice() string {
	available := c.synth.Voices()
	for _, pref := range c.cfg.PreferredVoices {
		for _, v := range available {
			if strings.Contains(v, pref) {
				return v
			}
		}
	}
	return ""
}

func (c *Controller) notifySpeaking(speaking bool) {
	c.mu.Lock()
	fn := c.onSpeakingChange
	c.mu.Unlock()
	if fn != nil {
		fn(speaking)
	}
}
