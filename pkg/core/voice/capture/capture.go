// Package capture implements the voice capture pipeline: it acquires an
// audio stream for remote transcription or drives a live recognition
// session, with a defined fallback order between the two strategies, and
// reports a status timeline for each attempt.
package capture

import (
	"context"
	"errors"
)

// Phase is the capture attempt phase.
type Phase int

const (
	// PhaseIdle means no capture attempt is in progress.
	PhaseIdle Phase = iota
	// PhaseRecording means audio is being buffered from the device stream.
	PhaseRecording
	// PhaseListening means a live recognition session is active.
	PhaseListening
	// PhaseProcessing means buffered audio is being transcribed remotely.
	PhaseProcessing
	// PhaseSuccess means the attempt produced a transcript.
	PhaseSuccess
	// PhaseError means the attempt failed after all strategies.
	PhaseError
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseRecording:
		return "RECORDING"
	case PhaseListening:
		return "LISTENING"
	case PhaseProcessing:
		return "PROCESSING"
	case PhaseSuccess:
		return "SUCCESS"
	case PhaseError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is a point on the capture status timeline.
type Status struct {
	Phase   Phase
	Message string
}

// ErrorCode is the fixed vocabulary of recognition error codes reported by
// the live recognition capability.
type ErrorCode string

const (
	// ErrCodeNotAllowed means microphone permission was denied.
	ErrCodeNotAllowed ErrorCode = "not-allowed"
	// ErrCodeNoSpeech means no speech was detected before the session ended.
	ErrCodeNoSpeech ErrorCode = "no-speech"
	// ErrCodeNetwork means a transport failure was reported by the engine.
	ErrCodeNetwork ErrorCode = "network"
	// ErrCodeAborted means the session was stopped before completion.
	ErrCodeAborted ErrorCode = "aborted"
	// ErrCodeAudioCapture means the device reported a hardware failure.
	ErrCodeAudioCapture ErrorCode = "audio-capture"
)

// Message returns the user-facing status message for the code. Codes
// outside the fixed vocabulary map to a generic message.
func (c ErrorCode) Message() string {
	switch c {
	case ErrCodeNoSpeech:
		return "I didn't hear anything. Please try again."
	case ErrCodeNetwork:
		return "There seems to be a network issue. Please check your connection."
	case ErrCodeNotAllowed:
		return "Microphone access was denied. Please allow microphone access and try again."
	default:
		return "Voice input failed. Please try again."
	}
}

// RecognitionError is a live-recognition failure carrying its error code.
type RecognitionError struct {
	Code ErrorCode
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	return "recognition error: " + string(e.Code)
}

var (
	// ErrOutputActive is returned when a capture attempt starts while
	// speech output is playing. The attempt is a no-op.
	ErrOutputActive = errors.New("capture: speech output active")

	// ErrCaptureActive is returned when a capture attempt starts while
	// another is already in progress. Double acquisition is absorbed.
	ErrCaptureActive = errors.New("capture: attempt already in progress")

	// ErrPermissionDenied is returned by a Device when microphone access is
	// refused. The pipeline skips straight to live recognition.
	ErrPermissionDenied = errors.New("capture: microphone permission denied")
)

// Device acquires the microphone. The device handle is singly-owned:
// overlapping acquisitions are the caller's bug, not the device's.
type Device interface {
	// Acquire opens an audio stream. Returns ErrPermissionDenied when
	// microphone access is refused.
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired audio stream. Chunks closes when recording ends.
// Stop must be idempotent and must release the underlying device; a leaked
// stream is a correctness bug on the pipeline's side.
type Stream interface {
	Chunks() <-chan []byte
	Stop()
}

// Transcriber submits buffered audio for remote transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Handlers receives live recognition lifecycle events. Any handler may be
// nil.
type Handlers struct {
	OnStart  func()
	OnResult func(text string, isFinal bool)
	OnError  func(code ErrorCode)
	OnEnd    func()
}

// Recognizer is the live speech-recognition capability. A recognizer
// supports repeated Start/Stop cycles; Stop tears down the active session
// and eventually produces OnEnd.
type Recognizer interface {
	Start(ctx context.Context, h Handlers) error
	Stop()
}
