package verify

import (
	"errors"
	"testing"

	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/directory"
)

func TestAdvance_IDMatchMovesToPhoneStage(t *testing.T) {
	dir := directory.Demo()
	s := NewSession(StepsTwo)

	s, outcome, err := Advance(dir, s, "A12345678")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if outcome != OutcomeIDVerified {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeIDVerified)
	}
	if s.Stage != StageAwaitingPhone {
		t.Fatalf("stage = %v, want %v", s.Stage, StageAwaitingPhone)
	}
	if s.PendingID != "A12345678" {
		t.Fatalf("pendingID = %q, want %q", s.PendingID, "A12345678")
	}
	if s.Customer != nil {
		t.Fatalf("customer bound before phone verification")
	}
}

func TestAdvance_PhoneMatchAuthenticates(t *testing.T) {
	dir := directory.Demo()
	s := NewSession(StepsTwo)

	s, _, err := Advance(dir, s, "A12345678")
	if err != nil {
		t.Fatalf("Advance(id) error = %v", err)
	}

	s, outcome, err := Advance(dir, s, "1234567890")
	if err != nil {
		t.Fatalf("Advance(phone) error = %v", err)
	}
	if outcome != OutcomePhoneVerified {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomePhoneVerified)
	}
	if s.Stage != StageAuthenticated {
		t.Fatalf("stage = %v, want %v", s.Stage, StageAuthenticated)
	}
	if s.Customer == nil || s.Customer.DisplayName != "John Smith" {
		t.Fatalf("customer = %+v, want John Smith", s.Customer)
	}
	if s.PendingID != "" {
		t.Fatalf("pendingID not cleared after authentication")
	}
}

func TestAdvance_UnknownIDFailsTerminally(t *testing.T) {
	dir := directory.Demo()
	s := NewSession(StepsTwo)

	s, outcome, err := Advance(dir, s, "Z00000000")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if outcome != OutcomeIDRejected {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeIDRejected)
	}
	if s.Stage != StageFailed {
		t.Fatalf("stage = %v, want %v", s.Stage, StageFailed)
	}

	_, _, err = Advance(dir, s, "A12345678")
	if !errors.Is(err, ErrSessionFailed) {
		t.Fatalf("Advance() on failed session error = %v, want ErrSessionFailed", err)
	}
}

func TestAdvance_CrossCustomerPhoneRejected(t *testing.T) {
	dir := directory.Demo()
	s := NewSession(StepsTwo)

	s, _, err := Advance(dir, s, "A12345678")
	if err != nil {
		t.Fatalf("Advance(id) error = %v", err)
	}

	// 9876543210 is Sarah Johnson's phone; the pending ID is John Smith's.
	s, outcome, err := Advance(dir, s, "9876543210")
	if err != nil {
		t.Fatalf("Advance(phone) error = %v", err)
	}
	if outcome != OutcomePhoneRejected {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomePhoneRejected)
	}
	if s.Stage != StageFailed {
		t.Fatalf("stage = %v, want %v", s.Stage, StageFailed)
	}
	if s.Customer != nil {
		t.Fatalf("customer must not bind on cross-customer phone")
	}
}

func TestAdvance_NormalizationIsIdempotent(t *testing.T) {
	dir := directory.Demo()

	variants := []string{"a12345678", " A12345678 ", "a 123 456 78", "A12345678"}
	for _, v := range variants {
		s := NewSession(StepsTwo)
		s, outcome, err := Advance(dir, s, v)
		if err != nil {
			t.Fatalf("Advance(%q) error = %v", v, err)
		}
		if outcome != OutcomeIDVerified || s.PendingID != "A12345678" {
			t.Fatalf("Advance(%q) = (%v, pending %q), want ID_VERIFIED/A12345678", v, outcome, s.PendingID)
		}
	}

	phoneVariants := []string{"1234567890", "(123) 456-7890", "123-456-7890", " 1234567890 "}
	for _, v := range phoneVariants {
		s := NewSession(StepsTwo)
		s, _, _ = Advance(dir, s, "A12345678")
		s, outcome, err := Advance(dir, s, v)
		if err != nil {
			t.Fatalf("Advance(%q) error = %v", v, err)
		}
		if outcome != OutcomePhoneVerified {
			t.Fatalf("Advance(%q) outcome = %v, want PHONE_VERIFIED", v, outcome)
		}
	}
}

func TestNormalize_FixedPoints(t *testing.T) {
	for _, raw := range []string{"a 12\t345\n678", "A12345678", ""} {
		once := NormalizeID(raw)
		if twice := NormalizeID(once); twice != once {
			t.Fatalf("NormalizeID not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
	for _, raw := range []string{"(123) 456-7890", "1234567890", "abc"} {
		once := NormalizePhone(raw)
		if twice := NormalizePhone(once); twice != once {
			t.Fatalf("NormalizePhone not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	}
}

func TestNormalizeID_UnicodeWhitespace(t *testing.T) {
	cases := map[string]string{
		"a12 345 678": "A12345678", // non-breaking spaces
		"A12 345 678":      "A12345678", // thin space
		"　A12345678　": "A12345678", // ideographic space
		"a 12\t345\n678":        "A12345678",
	}
	for raw, want := range cases {
		if got := NormalizeID(raw); got != want {
			t.Errorf("NormalizeID(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestAdvance_AcceptsIDWithNonBreakingSpaces(t *testing.T) {
	dir := directory.Demo()
	s := NewSession(StepsTwo)

	s, outcome, err := Advance(dir, s, "A12 345 678")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if outcome != OutcomeIDVerified || s.PendingID != "A12345678" {
		t.Fatalf("outcome = %v, pending = %q, want ID_VERIFIED/A12345678", outcome, s.PendingID)
	}
}

func TestAdvance_SingleStepAuthenticatesOnID(t *testing.T) {
	dir := directory.Demo()
	s := NewSession(StepsOne)

	s, outcome, err := Advance(dir, s, "b87654321")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if outcome != OutcomeIDVerified {
		t.Fatalf("outcome = %v, want %v", outcome, OutcomeIDVerified)
	}
	if s.Stage != StageAuthenticated {
		t.Fatalf("stage = %v, want %v", s.Stage, StageAuthenticated)
	}
	if s.Customer == nil || s.Customer.DisplayName != "Sarah Johnson" {
		t.Fatalf("customer = %+v, want Sarah Johnson", s.Customer)
	}
}

func TestAdvance_AuthenticatedRejectsEngineInput(t *testing.T) {
	dir := directory.Demo()
	s := NewSession(StepsOne)
	s, _, _ = Advance(dir, s, "A12345678")

	_, _, err := Advance(dir, s, "what's my balance?")
	if !errors.Is(err, ErrAlreadyAuthenticated) {
		t.Fatalf("Advance() error = %v, want ErrAlreadyAuthenticated", err)
	}
}
