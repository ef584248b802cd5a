// Package verify implements the identity verification engine: a pure state
// machine that gates conversation access behind a two-factor identity check
// against a fixed record set. It performs no I/O; the caller supplies the
// directory and holds the session between transitions.
package verify

import (
	"errors"
	"strings"
	"unicode"

	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/directory"
)

// Stage is the verification session stage.
type Stage int

const (
	// StageAwaitingID is the initial stage, waiting for a verification ID.
	StageAwaitingID Stage = iota
	// StageAwaitingPhone follows a successful ID match in two-step mode.
	StageAwaitingPhone
	// StageAuthenticated means the session is bound to a customer record.
	StageAuthenticated
	// StageFailed is terminal: the engine accepts no further input.
	StageFailed
)

// String returns a human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageAwaitingID:
		return "AWAITING_ID"
	case StageAwaitingPhone:
		return "AWAITING_PHONE"
	case StageAuthenticated:
		return "AUTHENTICATED"
	case StageFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of a single Advance call.
type Outcome int

const (
	// OutcomeIDVerified means the ID matched and the session advanced.
	OutcomeIDVerified Outcome = iota
	// OutcomeIDRejected means the ID was not found; the session failed.
	OutcomeIDRejected
	// OutcomePhoneVerified means the phone matched the pending ID's record.
	OutcomePhoneVerified
	// OutcomePhoneRejected means the phone did not match; the session failed.
	OutcomePhoneRejected
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeIDVerified:
		return "ID_VERIFIED"
	case OutcomeIDRejected:
		return "ID_REJECTED"
	case OutcomePhoneVerified:
		return "PHONE_VERIFIED"
	case OutcomePhoneRejected:
		return "PHONE_REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Steps selects how many verification factors a session requires.
type Steps int

const (
	// StepsTwo requires ID then phone (the primary flow).
	StepsTwo Steps = 2
	// StepsOne authenticates on ID alone.
	StepsOne Steps = 1
)

var (
	// ErrSessionFailed is returned when Advance is called on a failed session.
	// A failed session cannot recover; a fresh session is required to retry.
	ErrSessionFailed = errors.New("verify: session failed, no further input accepted")

	// ErrAlreadyAuthenticated is returned when Advance is called on an
	// authenticated session. Authenticated input belongs to the answering
	// service, not this engine.
	ErrAlreadyAuthenticated = errors.New("verify: session already authenticated")
)

// Session holds the verification state between Advance calls. The zero value
// is not usable; create sessions with NewSession.
type Session struct {
	Stage Stage

	// PendingID is the normalized identifier accepted at StageAwaitingID,
	// set only while Stage == StageAwaitingPhone.
	PendingID string

	// Customer is the bound record, non-nil iff Stage == StageAuthenticated.
	Customer *directory.Customer

	steps Steps
}

// NewSession creates a fresh verification session.
func NewSession(steps Steps) Session {
	if steps != StepsOne {
		steps = StepsTwo
	}
	return Session{Stage: StageAwaitingID, steps: steps}
}

// Steps returns the configured number of verification factors.
func (s Session) Steps() Steps {
	return s.steps
}

// NormalizeID strips all whitespace from the identifier and uppercases
// it. Voice transcriptions and pasted input carry Unicode spaces too, so
// anything unicode.IsSpace reports goes, non-breaking spaces included.
func NormalizeID(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// NormalizePhone strips all non-digit characters from the phone number.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Advance consumes one input at the session's current stage and returns the
// next session state and the outcome. Stage transitions are monotonic forward
// or to StageFailed; a single non-match is an immediate, final rejection.
func Advance(dir *directory.Directory, s Session, rawInput string) (Session, Outcome, error) {
	switch s.Stage {
	case StageAwaitingID:
		id := NormalizeID(rawInput)
		customer, ok := dir.ByVerificationID(id)
		if !ok {
			s.Stage = StageFailed
			return s, OutcomeIDRejected, nil
		}
		if s.steps == StepsOne {
			s.Stage = StageAuthenticated
			s.Customer = customer
			return s, OutcomeIDVerified, nil
		}
		s.Stage = StageAwaitingPhone
		s.PendingID = id
		return s, OutcomeIDVerified, nil

	case StageAwaitingPhone:
		phone := NormalizePhone(rawInput)
		customer, ok := dir.ByVerificationIDAndPhone(s.PendingID, phone)
		if !ok {
			s.Stage = StageFailed
			s.PendingID = ""
			return s, OutcomePhoneRejected, nil
		}
		s.Stage = StageAuthenticated
		s.PendingID = ""
		s.Customer = customer
		return s, OutcomePhoneVerified, nil

	case StageAuthenticated:
		return s, 0, ErrAlreadyAuthenticated

	default:
		return s, 0, ErrSessionFailed
	}
}
