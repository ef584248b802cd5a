// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode selects how user input reaches the conversation.
type Mode string

const (
	// ModeText reads typed input only.
	ModeText Mode = "text"
	// ModeVoice adds hands-free voice capture and spoken replies.
	ModeVoice Mode = "voice"
)

type Config struct {
	Mode Mode

	BotName     string
	SupportLine string

	// Identity verification: 2 for ID then phone, 1 for ID only.
	VerifySteps int

	// Answering service.
	AnswerBaseURL string
	AnswerTimeout time.Duration

	// Recorded-audio transcription. An empty base URL disables the
	// recorded strategy so capture goes straight to live recognition.
	TranscribeBaseURL string
	TranscribeTimeout time.Duration

	// Live recognition stream. Required in voice mode.
	RecognizerURL string
	Language      string

	// Conversation pacing.
	ReplyDelay time.Duration
	MessageGap time.Duration

	// Voice pacing.
	AutoSubmitMinChars int
	RestartDelay       time.Duration
	ErrorRestartDelay  time.Duration
	ResumeGrace        time.Duration
	SpeakReplies       bool
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Mode:               Mode(envOr("CHATBOT_MODE", string(ModeText))),
		BotName:            envOr("CHATBOT_BOT_NAME", "SatyamBot"),
		SupportLine:        envOr("CHATBOT_SUPPORT_LINE", "1-300-88-6688"),
		VerifySteps:        envIntOr("CHATBOT_VERIFY_STEPS", 2),
		AnswerBaseURL:      envOr("CHATBOT_ANSWER_URL", "http://127.0.0.1:8000"),
		AnswerTimeout:      envDurationOr("CHATBOT_ANSWER_TIMEOUT", 60*time.Second),
		TranscribeBaseURL:  envOr("CHATBOT_TRANSCRIBE_URL", ""),
		TranscribeTimeout:  envDurationOr("CHATBOT_TRANSCRIBE_TIMEOUT", 30*time.Second),
		RecognizerURL:      envOr("CHATBOT_RECOGNIZER_WS_URL", ""),
		Language:           envOr("CHATBOT_LANGUAGE", "en-US"),
		ReplyDelay:         envDurationOr("CHATBOT_REPLY_DELAY", time.Second),
		MessageGap:         envDurationOr("CHATBOT_MESSAGE_GAP", time.Second),
		AutoSubmitMinChars: envIntOr("CHATBOT_AUTO_SUBMIT_MIN_CHARS", 3),
		RestartDelay:       envDurationOr("CHATBOT_RESTART_DELAY", 100*time.Millisecond),
		ErrorRestartDelay:  envDurationOr("CHATBOT_ERROR_RESTART_DELAY", time.Second),
		ResumeGrace:        envDurationOr("CHATBOT_RESUME_GRACE", 500*time.Millisecond),
		SpeakReplies:       envBoolOr("CHATBOT_SPEAK_REPLIES", true),
	}

	switch cfg.Mode {
	case ModeText, ModeVoice:
	default:
		return Config{}, fmt.Errorf("CHATBOT_MODE must be one of text|voice")
	}

	if cfg.VerifySteps != 1 && cfg.VerifySteps != 2 {
		return Config{}, fmt.Errorf("CHATBOT_VERIFY_STEPS must be 1 or 2")
	}
	if strings.TrimSpace(cfg.AnswerBaseURL) == "" {
		return Config{}, fmt.Errorf("CHATBOT_ANSWER_URL must not be empty")
	}
	if cfg.AnswerTimeout <= 0 {
		return Config{}, fmt.Errorf("CHATBOT_ANSWER_TIMEOUT must be > 0")
	}
	if cfg.TranscribeTimeout <= 0 {
		return Config{}, fmt.Errorf("CHATBOT_TRANSCRIBE_TIMEOUT must be > 0")
	}
	if cfg.ReplyDelay < 0 {
		return Config{}, fmt.Errorf("CHATBOT_REPLY_DELAY must be >= 0")
	}
	if cfg.MessageGap < 0 {
		return Config{}, fmt.Errorf("CHATBOT_MESSAGE_GAP must be >= 0")
	}
	if cfg.AutoSubmitMinChars <= 0 {
		return Config{}, fmt.Errorf("CHATBOT_AUTO_SUBMIT_MIN_CHARS must be > 0")
	}
	if cfg.RestartDelay <= 0 {
		return Config{}, fmt.Errorf("CHATBOT_RESTART_DELAY must be > 0")
	}
	if cfg.ErrorRestartDelay <= 0 {
		return Config{}, fmt.Errorf("CHATBOT_ERROR_RESTART_DELAY must be > 0")
	}
	if cfg.ResumeGrace <= 0 {
		return Config{}, fmt.Errorf("CHATBOT_RESUME_GRACE must be > 0")
	}
	if cfg.Mode == ModeVoice && strings.TrimSpace(cfg.RecognizerURL) == "" {
		return Config{}, fmt.Errorf("CHATBOT_RECOGNIZER_WS_URL must be set when CHATBOT_MODE=voice")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}

// envDurationOr accepts Go duration strings. Bare integers are treated as
// milliseconds.
func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
