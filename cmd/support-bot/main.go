// Command support-bot runs the Maybank customer care assistant on the
// terminal: identity verification first, then free-form questions routed
// to the answering service. Voice mode adds hands-free capture over a
// recognition stream and spoken replies.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/SatyamKumarChoudhary/chat-bot/pkg/config"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/answer"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/directory"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/session"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/transcript"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/verify"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/voice/capture"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/voice/recognize"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/voice/speak"
	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/voice/transcribe"
)

type botDeps struct {
	loadConfig   func() (config.Config, error)
	directory    func() *directory.Directory
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultBotDeps() botDeps {
	return botDeps{
		loadConfig: config.LoadFromEnv,
		directory:  directory.Demo,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildSession(cfg config.Config, dir *directory.Directory, logger *slog.Logger, speech *speak.Controller) *session.Session {
	client := answer.New(cfg.AnswerBaseURL,
		answer.WithTimeout(cfg.AnswerTimeout),
		answer.WithLogger(logger),
		answer.WithBotName(cfg.BotName),
		answer.WithSupportLine(cfg.SupportLine),
	)

	sessCfg := session.DefaultConfig()
	sessCfg.BotName = cfg.BotName
	sessCfg.SupportLine = cfg.SupportLine
	sessCfg.VerifySteps = verify.Steps(cfg.VerifySteps)
	sessCfg.ReplyDelay = cfg.ReplyDelay
	sessCfg.MessageGap = cfg.MessageGap
	sessCfg.AutoSubmitMinChars = cfg.AutoSubmitMinChars
	sessCfg.SpeakReplies = cfg.Mode == config.ModeVoice && cfg.SpeakReplies

	opts := []session.Option{session.WithLogger(logger)}
	if speech != nil {
		opts = append(opts, session.WithSpeech(speech))
	}
	return session.New(sessCfg, dir, client, opts...)
}

// fileDevice streams a pre-recorded audio file as capture chunks. It is
// the terminal's stand-in for a microphone: "/talk <path>" runs the
// recorded-audio strategy over the file's contents.
type fileDevice struct {
	path string
}

func (d *fileDevice) Acquire(ctx context.Context) (capture.Stream, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	s := &fileStream{chunks: make(chan []byte, 1), done: make(chan struct{})}
	go s.read(f)
	return s, nil
}

type fileStream struct {
	chunks   chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

func (s *fileStream) Chunks() <-chan []byte { return s.chunks }

func (s *fileStream) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *fileStream) read(f *os.File) {
	defer close(s.chunks)
	defer f.Close()
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// consoleSynth renders speech output as text. It stands in for a real
// audio backend so voice mode works on a plain terminal.
type consoleSynth struct {
	out io.Writer
}

func (s *consoleSynth) Speak(u speak.Utterance, done func()) error {
	fmt.Fprintf(s.out, "(speaking) %s\n", u.Text)
	go done()
	return nil
}

func (s *consoleSynth) Cancel() {}

func (s *consoleSynth) Voices() []string { return nil }

func run(ctx context.Context, in io.Reader, out io.Writer, logger *slog.Logger, deps botDeps) error {
	if deps.loadConfig == nil || deps.directory == nil {
		return errors.New("missing dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var speech *speak.Controller
	var voiceCtl *capture.Controller
	var talkPipe *capture.Pipeline
	var newTalkPipe func(capture.Device) *capture.Pipeline
	if cfg.Mode == config.ModeVoice {
		speakCfg := speak.DefaultConfig()
		speakCfg.ResumeGrace = cfg.ResumeGrace
		speech = speak.NewController(&consoleSynth{out: out}, speakCfg,
			speak.WithLogger(logger))
	}

	sess := buildSession(cfg, deps.directory(), logger, speech)
	sess.Transcript().SetOnAppend(func(e transcript.Entry) {
		switch e.Sender {
		case transcript.SenderUser:
			// Typed input is already on screen.
		case transcript.SenderBotThinking:
			fmt.Fprintf(out, "... %s\n", e.Text)
		default:
			fmt.Fprintf(out, "%s: %s\n", cfg.BotName, e.Text)
		}
	})

	if cfg.Mode == config.ModeVoice {
		rec := recognize.New(cfg.RecognizerURL,
			recognize.WithLanguage(cfg.Language),
			recognize.WithLogger(logger),
		)
		voiceCtl = capture.NewController(rec,
			capture.ControllerConfig{
				RestartDelay:      cfg.RestartDelay,
				ErrorRestartDelay: cfg.ErrorRestartDelay,
			},
			capture.WithUtteranceFunc(func(text string) {
				fmt.Fprintf(out, "you (voice): %s\n", text)
				sess.SubmitTranscribed(ctx, text)
			}),
			capture.WithControllerSpeakingGate(speech.IsSpeaking),
			capture.WithControllerStatusFunc(func(s capture.Status) {
				if s.Phase == capture.PhaseListening {
					sess.SetAvatar(session.AvatarListening)
				}
				if s.Message != "" {
					fmt.Fprintf(out, "[%s] %s\n", s.Phase, s.Message)
				}
			}),
			capture.WithControllerLogger(logger),
		)
		speech.SetCallbacks(func(speaking bool) {
			if speaking {
				sess.SetAvatar(session.AvatarSpeaking)
			} else {
				sess.SetAvatar(session.AvatarIdle)
			}
		}, voiceCtl.Resume)

		pipeOpts := []capture.PipelineOption{
			capture.WithSpeakingGate(speech.IsSpeaking),
			capture.WithPipelineLogger(logger),
		}
		if cfg.TranscribeBaseURL != "" {
			pipeOpts = append(pipeOpts,
				capture.WithTranscriber(transcribe.New(cfg.TranscribeBaseURL,
					transcribe.WithTimeout(cfg.TranscribeTimeout))),
				capture.WithTranscribeTimeout(cfg.TranscribeTimeout),
			)
		}
		newTalkPipe = func(d capture.Device) *capture.Pipeline {
			opts := pipeOpts[:len(pipeOpts):len(pipeOpts)]
			if d != nil {
				opts = append(opts, capture.WithDevice(d))
			}
			return capture.NewPipeline(recognize.New(cfg.RecognizerURL,
				recognize.WithLanguage(cfg.Language),
				recognize.WithLogger(logger),
			), opts...)
		}
		talkPipe = newTalkPipe(nil)

		logger.Info("voice capture enabled", "recognizer", cfg.RecognizerURL)
		voiceCtl.Start(ctx)
		defer voiceCtl.Stop()
	}

	logger.Info("starting support bot",
		"mode", cfg.Mode, "verify_steps", cfg.VerifySteps, "answer_url", cfg.AnswerBaseURL)

	sess.Greet()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sigCh:
			logger.Info("shutdown signal received", "signal", sig.String())
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if talkPipe != nil && (line == "/talk" || strings.HasPrefix(line, "/talk ")) {
				// One push-to-talk attempt outside the hands-free loop.
				// With a file argument the audio is read from disk and
				// sent for recorded transcription first.
				pipe := talkPipe
				if arg := strings.TrimSpace(strings.TrimPrefix(line, "/talk")); arg != "" {
					pipe = newTalkPipe(&fileDevice{path: arg})
				}
				voiceCtl.Stop()
				if text, err := pipe.Capture(ctx); err != nil {
					logger.Warn("push-to-talk attempt failed", "error", err)
				} else {
					fmt.Fprintf(out, "you (voice): %s\n", text)
					sess.SubmitTranscribed(ctx, text)
				}
				voiceCtl.Start(ctx)
				continue
			}
			sess.Submit(ctx, line)
			if sess.Stage() == verify.StageFailed {
				// Terminal state: no further input is accepted.
				return nil
			}
		}
	}
}

func runMain(ctx context.Context, stderr io.Writer, deps botDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("could not load .env file", "error", err)
	}

	if err := run(ctx, os.Stdin, os.Stdout, logger, deps); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "support-bot: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultBotDeps()))
}
