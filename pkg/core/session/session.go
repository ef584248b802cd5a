// Package session orchestrates a support conversation: it owns the
// transcript, routes each submission through identity verification or the
// answering service, and sequences the bot's replies.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/answer"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/directory"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/transcript"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/verify"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/voice/speak"
)

// AvatarState drives the assistant's presence indicator.
type AvatarState string

const (
	AvatarIdle      AvatarState = "idle"
	AvatarListening AvatarState = "listening"
	AvatarThinking  AvatarState = "thinking"
	AvatarSpeaking  AvatarState = "speaking"
)

// Defaults for conversation pacing and auto-submission.
const (
	DefaultBotName            = "SatyamBot"
	DefaultThinkingText       = "Sarah is thinking..."
	DefaultReplyDelay         = time.Second
	DefaultMessageGap         = time.Second
	DefaultAutoSubmitMinChars = 3
)

// Config holds conversation settings.
type Config struct {
	BotName     string
	SupportLine string
	VerifySteps verify.Steps

	// ReplyDelay is how long the typing indicator shows before the first
	// reply of a turn. MessageGap separates consecutive replies in one
	// turn.
	ReplyDelay time.Duration
	MessageGap time.Duration

	// AutoSubmitMinChars is the transcript length a voice transcription
	// must exceed to be submitted automatically.
	AutoSubmitMinChars int

	// SpeakReplies voices bot replies through an attached speech
	// controller.
	SpeakReplies bool

	ThinkingText string
}

// DefaultConfig returns the standard conversation settings: two-step
// verification with spoken replies off.
func DefaultConfig() Config {
	return Config{
		BotName:            DefaultBotName,
		SupportLine:        answer.DefaultSupportLine,
		VerifySteps:        verify.StepsTwo,
		ReplyDelay:         DefaultReplyDelay,
		MessageGap:         DefaultMessageGap,
		AutoSubmitMinChars: DefaultAutoSubmitMinChars,
		ThinkingText:       DefaultThinkingText,
	}
}

// Session is one customer conversation. Submissions are processed one at
// a time; Submit blocks until the bot's replies for that turn are in the
// transcript.
type Session struct {
	cfg    Config
	dir    *directory.Directory
	answer *answer.Client
	speech *speak.Controller
	logger *slog.Logger

	transcript *transcript.Transcript
	onAvatar   func(AvatarState)

	// turnMu serializes whole turns. Voice transcriptions and typed
	// input arrive on different goroutines; a turn's routing and
	// replies must finish before the next submission is looked at.
	turnMu sync.Mutex

	mu     sync.Mutex
	verify verify.Session
	typing bool
	avatar AvatarState
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSpeech attaches a speech output controller for spoken replies.
func WithSpeech(ctl *speak.Controller) Option {
	return func(s *Session) { s.speech = ctl }
}

// WithAvatarFunc sets the presence indicator observer.
func WithAvatarFunc(fn func(AvatarState)) Option {
	return func(s *Session) { s.onAvatar = fn }
}

// New creates a conversation over the given customer directory and
// answering service client.
func New(cfg Config, dir *directory.Directory, client *answer.Client, opts ...Option) *Session {
	if cfg.BotName == "" {
		cfg.BotName = DefaultBotName
	}
	if cfg.SupportLine == "" {
		cfg.SupportLine = answer.DefaultSupportLine
	}
	if cfg.VerifySteps == 0 {
		cfg.VerifySteps = verify.StepsTwo
	}
	if cfg.AutoSubmitMinChars <= 0 {
		cfg.AutoSubmitMinChars = DefaultAutoSubmitMinChars
	}
	if cfg.ThinkingText == "" {
		cfg.ThinkingText = DefaultThinkingText
	}
	s := &Session{
		cfg:        cfg,
		dir:        dir,
		answer:     client,
		logger:     slog.Default(),
		transcript: transcript.New(),
		verify:     verify.NewSession(cfg.VerifySteps),
		avatar:     AvatarIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcript returns the conversation transcript.
func (s *Session) Transcript() *transcript.Transcript {
	return s.transcript
}

// Stage returns the current verification stage.
func (s *Session) Stage() verify.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verify.Stage
}

// Customer returns the verified customer, or nil before authentication.
func (s *Session) Customer() *directory.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verify.Customer
}

// IsTyping reports whether the typing indicator is showing.
func (s *Session) IsTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Avatar returns the current presence indicator state.
func (s *Session) Avatar() AvatarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avatar
}

// SetAvatar updates the presence indicator. Capture and speech callbacks
// use this to reflect listening and speaking states.
func (s *Session) SetAvatar(state AvatarState) {
	s.setAvatar(state)
}

// Greet posts the opening bot messages for the configured verification
// flow.
func (s *Session) Greet() {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if s.cfg.VerifySteps == verify.StepsOne {
		s.reply(
			"Hello! Welcome to Maybank Customer Care.",
			fmt.Sprintf("I'm %s, your intelligent AI assistant. Please enter your National ID / Passport Number to get started:", s.cfg.BotName),
		)
		return
	}
	s.reply(
		fmt.Sprintf("Hello! Welcome to Maybank Customer Care. I'm %s, your intelligent AI assistant.", s.cfg.BotName),
		"For your security and privacy, I need to verify your identity with a 2-step authentication process.",
		"Step 1: Please enter your National ID / Passport Number (or use voice input):",
	)
}

// Submit processes one user input. Blank input is ignored, and once
// verification has failed every further submission is ignored: the
// conversation is over. The user entry is recorded before any routing so
// it appears even when the turn fails downstream.
func (s *Session) Submit(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.Lock()
	stage := s.verify.Stage
	s.mu.Unlock()
	if stage == verify.StageFailed {
		return
	}

	s.transcript.Append(text, transcript.SenderUser)

	if stage == verify.StageAuthenticated {
		s.answerQuery(ctx, text)
		return
	}
	s.advanceVerification(text)
}

// SubmitTranscribed feeds a voice transcription into the conversation.
// Only transcripts longer than the auto-submit threshold are submitted;
// shorter ones are dropped as noise. Reports whether the transcript was
// submitted.
func (s *Session) SubmitTranscribed(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if len(text) <= s.cfg.AutoSubmitMinChars {
		return false
	}
	s.Submit(ctx, text)
	return true
}

func (s *Session) advanceVerification(input string) {
	s.mu.Lock()
	cur := s.verify
	s.mu.Unlock()

	next, outcome, err := verify.Advance(s.dir, cur, input)
	if err != nil {
		s.logger.Warn("verification input rejected", "stage", cur.Stage.String(), "error", err)
		return
	}

	s.mu.Lock()
	s.verify = next
	s.mu.Unlock()

	switch outcome {
	case verify.OutcomeIDVerified:
		if next.Stage == verify.StageAuthenticated {
			s.logger.Info("customer authenticated", "customer", next.Customer.ShortID)
			s.reply(
				fmt.Sprintf("Welcome back, %s!", next.Customer.DisplayName),
				"Your account is now verified. How can I assist you today with your banking needs?",
			)
			return
		}
		s.reply(
			"ID verified successfully!",
			"Step 2: Please enter your registered mobile number (or use voice input):",
		)
	case verify.OutcomePhoneVerified:
		s.logger.Info("customer authenticated", "customer", next.Customer.ShortID)
		s.reply(
			fmt.Sprintf("Authentication successful! Welcome back, %s!", next.Customer.DisplayName),
			fmt.Sprintf("I'm %s, your personal Maybank assistant. You can now ask your questions by typing or by voice. How can I help you today?", s.cfg.BotName),
		)
	case verify.OutcomeIDRejected:
		s.logger.Warn("identity verification failed at ID step")
		s.reply(
			"ID verification failed. The ID number you entered is not found in our Maybank records.",
			fmt.Sprintf("For security reasons, please visit your nearest Maybank branch with valid ID or call our customer service hotline at %s. Thank you!", s.cfg.SupportLine),
		)
	case verify.OutcomePhoneRejected:
		s.logger.Warn("identity verification failed at phone step")
		s.reply(
			"Phone verification failed. The mobile number doesn't match with the provided ID.",
			fmt.Sprintf("Please ensure you're using the correct mobile number registered with your account. Contact Maybank at %s for assistance.", s.cfg.SupportLine),
		)
	}
}

func (s *Session) answerQuery(ctx context.Context, query string) {
	s.setAvatar(AvatarThinking)
	s.showTyping()

	placeholder := s.transcript.AppendThinking(s.cfg.ThinkingText)
	text := s.answer.Ask(ctx, s.Customer(), query)

	// The placeholder always comes out before the reply goes in,
	// fallback turns included.
	s.transcript.RemoveThinking(placeholder.ID)
	s.hideTyping()
	s.transcript.Append(text, transcript.SenderBot)
	s.speakReply(text)
	s.setAvatar(AvatarIdle)
}

// reply posts a sequence of bot messages for one turn, with the typing
// indicator up front and the configured gap between messages.
func (s *Session) reply(parts ...string) {
	s.showTyping()
	if s.cfg.ReplyDelay > 0 {
		time.Sleep(s.cfg.ReplyDelay)
	}
	s.hideTyping()
	for i, part := range parts {
		if i > 0 && s.cfg.MessageGap > 0 {
			time.Sleep(s.cfg.MessageGap)
		}
		s.transcript.Append(part, transcript.SenderBot)
	}
	s.speakReply(strings.Join(parts, " "))
}

func (s *Session) speakReply(text string) {
	if !s.cfg.SpeakReplies || s.speech == nil {
		return
	}
	s.speech.Speak(text)
}

func (s *Session) showTyping() {
	s.mu.Lock()
	s.typing = true
	s.mu.Unlock()
}

func (s *Session) hideTyping() {
	s.mu.Lock()
	s.typing = false
	s.mu.Unlock()
}

func (s *Session) setAvatar(state AvatarState) {
	s.mu.Lock()
	if s.avatar == state {
		s.mu.Unlock()
		return
	}
	s.avatar = state
	fn := s.onAvatar
	s.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}
