package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultTranscribeTimeout bounds the remote transcription call.
const DefaultTranscribeTimeout = 30 * time.Second

// Pipeline runs a single push-to-talk capture attempt. Strategy one
// records from the device and transcribes remotely; when that is
// unavailable or fails it falls through silently to live recognition.
type Pipeline struct {
	recognizer  Recognizer
	device      Device
	transcriber Transcriber
	speaking    func() bool
	onStatus    func(Status)
	timeout     time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	phase  Phase
	stream Stream
	active bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithDevice sets the audio device used for strategy one. Without a device
// and a transcriber the pipeline goes straight to live recognition.
func WithDevice(d Device) PipelineOption {
	return func(p *Pipeline) { p.device = d }
}

// WithTranscriber sets the remote transcription client for strategy one.
func WithTranscriber(t Transcriber) PipelineOption {
	return func(p *Pipeline) { p.transcriber = t }
}

// WithSpeakingGate sets the predicate consulted before starting a capture
// attempt. When it reports true the attempt is a no-op.
func WithSpeakingGate(fn func() bool) PipelineOption {
	return func(p *Pipeline) { p.speaking = fn }
}

// WithStatusFunc sets the status timeline observer.
func WithStatusFunc(fn func(Status)) PipelineOption {
	return func(p *Pipeline) { p.onStatus = fn }
}

// WithTranscribeTimeout overrides DefaultTranscribeTimeout.
func WithTranscribeTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline builds a pipeline around the given live recognizer.
func NewPipeline(recognizer Recognizer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		recognizer: recognizer,
		speaking:   func() bool { return false },
		timeout:    DefaultTranscribeTimeout,
		logger:     slog.Default(),
		phase:      PhaseIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Phase returns the current capture phase.
func (p *Pipeline) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

func (p *Pipeline) setPhase(phase Phase, msg string) {
	p.mu.Lock()
	p.phase = phase
	fn := p.onStatus
	p.mu.Unlock()
	if fn != nil {
		fn(Status{Phase: phase, Message: msg})
	}
}

// Capture runs one capture attempt and returns the transcript. While
// speech output is active the call is a no-op and the phase stays idle.
// A second Capture while one is in progress is absorbed with
// ErrCaptureActive. On every exit path an acquired stream is released.
func (p *Pipeline) Capture(ctx context.Context) (string, error) {
	if p.speaking() {
		return "", ErrOutputActive
	}

	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return "", ErrCaptureActive
	}
	p.active = true
	p.mu.Unlock()

	// The status timeline sees the terminal success or error, but the
	// attempt is over once Capture returns: the resting phase is idle.
	defer func() {
		p.mu.Lock()
		p.active = false
		p.phase = PhaseIdle
		p.mu.Unlock()
	}()

	if p.device != nil && p.transcriber != nil {
		text, err := p.recordAndTranscribe(ctx)
		if err == nil {
			p.setPhase(PhaseSuccess, "")
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Strategy one failures are invisible to the user.
		p.logger.Debug("recorded transcription failed, falling back to live recognition", "error", err)
	}

	return p.captureLive(ctx)
}

// StopRecording ends the recording stage of an active attempt so the
// buffered audio proceeds to transcription. Safe to call at any time.
func (p *Pipeline) StopRecording() {
	p.mu.Lock()
	stream := p.stream
	p.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
}

func (p *Pipeline) recordAndTranscribe(ctx context.Context) (string, error) {
	stream, err := p.device.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Stop()

	p.mu.Lock()
	p.stream = stream
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.stream = nil
		p.mu.Unlock()
	}()

	p.setPhase(PhaseRecording, "Listening... Speak now")

	var buf []byte
	chunks := stream.Chunks()
collect:
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				break collect
			}
			buf = append(buf, chunk...)
		case <-ctx.Done():
			stream.Stop()
			return "", ctx.Err()
		}
	}

	p.setPhase(PhaseProcessing, "Processing your speech...")

	tctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	text, err := p.transcriber.Transcribe(tctx, buf)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &RecognitionError{Code: ErrCodeNoSpeech}
	}
	return text, nil
}

func (p *Pipeline) captureLive(ctx context.Context) (string, error) {
	p.setPhase(PhaseListening, "Listening... Speak now")

	results := make(chan string, 1)
	errs := make(chan ErrorCode, 1)
	ended := make(chan struct{}, 1)

	err := p.recognizer.Start(ctx, Handlers{
		OnResult: func(text string, isFinal bool) {
			if !isFinal {
				return
			}
			select {
			case results <- text:
			default:
			}
		},
		OnError: func(code ErrorCode) {
			select {
			case errs <- code:
			default:
			}
		},
		OnEnd: func() {
			select {
			case ended <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		p.setPhase(PhaseError, ErrCodeNetwork.Message())
		return "", &RecognitionError{Code: ErrCodeNetwork}
	}
	defer p.recognizer.Stop()

	for {
		select {
		case text := <-results:
			p.setPhase(PhaseSuccess, "")
			return text, nil
		case code := <-errs:
			p.setPhase(PhaseError, code.Message())
			return "", &RecognitionError{Code: code}
		case <-ended:
			select {
			case text := <-results:
				p.setPhase(PhaseSuccess, "")
				return text, nil
			default:
			}
			// Session ended without a final result or explicit error.
			p.setPhase(PhaseError, ErrCodeNoSpeech.Message())
			return "", &RecognitionError{Code: ErrCodeNoSpeech}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
