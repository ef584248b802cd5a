package config

import (
	"testing"
	"time"
)

var chatbotEnvKeys = []string{
	"CHATBOT_MODE",
	"CHATBOT_BOT_NAME",
	"CHATBOT_SUPPORT_LINE",
	"CHATBOT_VERIFY_STEPS",
	"CHATBOT_ANSWER_URL",
	"CHATBOT_ANSWER_TIMEOUT",
	"CHATBOT_TRANSCRIBE_URL",
	"CHATBOT_TRANSCRIBE_TIMEOUT",
	"CHATBOT_RECOGNIZER_WS_URL",
	"CHATBOT_LANGUAGE",
	"CHATBOT_REPLY_DELAY",
	"CHATBOT_MESSAGE_GAP",
	"CHATBOT_AUTO_SUBMIT_MIN_CHARS",
	"CHATBOT_RESTART_DELAY",
	"CHATBOT_ERROR_RESTART_DELAY",
	"CHATBOT_RESUME_GRACE",
	"CHATBOT_SPEAK_REPLIES",
}

func clearChatbotEnv(t *testing.T) {
	t.Helper()
	for _, key := range chatbotEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearChatbotEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Mode != ModeText {
		t.Fatalf("Mode = %q, want text", cfg.Mode)
	}
	if cfg.BotName != "SatyamBot" {
		t.Fatalf("BotName = %q", cfg.BotName)
	}
	if cfg.SupportLine != "1-300-88-6688" {
		t.Fatalf("SupportLine = %q", cfg.SupportLine)
	}
	if cfg.VerifySteps != 2 {
		t.Fatalf("VerifySteps = %d, want 2", cfg.VerifySteps)
	}
	if cfg.AnswerBaseURL != "http://127.0.0.1:8000" {
		t.Fatalf("AnswerBaseURL = %q", cfg.AnswerBaseURL)
	}
	if cfg.AnswerTimeout != 60*time.Second {
		t.Fatalf("AnswerTimeout = %v, want 60s", cfg.AnswerTimeout)
	}
	if cfg.TranscribeTimeout != 30*time.Second {
		t.Fatalf("TranscribeTimeout = %v, want 30s", cfg.TranscribeTimeout)
	}
	if cfg.AutoSubmitMinChars != 3 {
		t.Fatalf("AutoSubmitMinChars = %d, want 3", cfg.AutoSubmitMinChars)
	}
	if cfg.RestartDelay != 100*time.Millisecond {
		t.Fatalf("RestartDelay = %v, want 100ms", cfg.RestartDelay)
	}
	if cfg.ErrorRestartDelay != time.Second {
		t.Fatalf("ErrorRestartDelay = %v, want 1s", cfg.ErrorRestartDelay)
	}
	if cfg.ResumeGrace != 500*time.Millisecond {
		t.Fatalf("ResumeGrace = %v, want 500ms", cfg.ResumeGrace)
	}
	if !cfg.SpeakReplies {
		t.Fatal("SpeakReplies = false, want true")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearChatbotEnv(t)
	t.Setenv("CHATBOT_MODE", "voice")
	t.Setenv("CHATBOT_RECOGNIZER_WS_URL", "ws://localhost:9090/stream")
	t.Setenv("CHATBOT_VERIFY_STEPS", "1")
	t.Setenv("CHATBOT_TRANSCRIBE_TIMEOUT", "10s")
	t.Setenv("CHATBOT_MESSAGE_GAP", "250")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Mode != ModeVoice {
		t.Fatalf("Mode = %q, want voice", cfg.Mode)
	}
	if cfg.VerifySteps != 1 {
		t.Fatalf("VerifySteps = %d, want 1", cfg.VerifySteps)
	}
	if cfg.TranscribeTimeout != 10*time.Second {
		t.Fatalf("TranscribeTimeout = %v, want 10s", cfg.TranscribeTimeout)
	}
	if cfg.MessageGap != 250*time.Millisecond {
		t.Fatalf("MessageGap = %v, want 250ms (bare int is milliseconds)", cfg.MessageGap)
	}
}

func TestLoadFromEnvRejectsBadMode(t *testing.T) {
	clearChatbotEnv(t)
	t.Setenv("CHATBOT_MODE", "hologram")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestLoadFromEnvRejectsBadVerifySteps(t *testing.T) {
	clearChatbotEnv(t)
	t.Setenv("CHATBOT_VERIFY_STEPS", "3")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for invalid verify steps")
	}
}

func TestLoadFromEnvVoiceRequiresRecognizer(t *testing.T) {
	clearChatbotEnv(t)
	t.Setenv("CHATBOT_MODE", "voice")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error when voice mode has no recognizer URL")
	}
}
