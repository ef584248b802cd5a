// Package transcript provides the conversation transcript data model: an
// append-only sequence of entries owned by the conversation orchestrator.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a transcript entry.
type Sender string

const (
	// SenderUser marks input from the person using the system.
	SenderUser Sender = "user"
	// SenderBot marks a bot response.
	SenderBot Sender = "bot"
	// SenderBotThinking marks the transient thinking placeholder.
	SenderBotThinking Sender = "bot-thinking"
)

// Entry is a single transcript entry. Entries are immutable once created
// except for the IsNew presentation flag, which may be cleared after the
// entry's reveal window elapses.
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
	IsNew     bool      `json:"is_new,omitempty"`
}

// Transcript is an append-only message log. The only removal permitted is
// the thinking placeholder, which is removed (not mutated) once the real
// response arrives.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry

	onAppend func(Entry)
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{}
}

// SetOnAppend registers a callback invoked for every appended entry.
// Intended for the rendering adapter; must not call back into the transcript.
func (t *Transcript) SetOnAppend(fn func(Entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAppend = fn
}

// Append adds a new entry and returns it.
func (t *Transcript) Append(text string, sender Sender) Entry {
	entry := Entry{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		CreatedAt: time.Now(),
		IsNew:     true,
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	cb := t.onAppend
	t.mu.Unlock()

	if cb != nil {
		cb(entry)
	}
	return entry
}

// AppendThinking adds the transient thinking placeholder.
func (t *Transcript) AppendThinking(text string) Entry {
	return t.Append(text, SenderBotThinking)
}

// RemoveThinking removes the entry with the given ID if it is a thinking
// placeholder. Returns true if an entry was removed. Regular entries are
// never removed.
func (t *Transcript) RemoveThinking(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].ID == id && t.entries[i].Sender == SenderBotThinking {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// ClearNew clears the presentation flag on the entry with the given ID.
func (t *Transcript) ClearNew(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries[i].IsNew = false
			return
		}
	}
}

// Entries returns a copy of all entries in append order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Last returns the most recent entry, or a zero Entry and false if empty.
func (t *Transcript) Last() (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// HasThinking reports whether a thinking placeholder is currently present.
func (t *Transcript) HasThinking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Sender == SenderBotThinking {
			return true
		}
	}
	return false
}
