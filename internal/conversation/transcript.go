// Package conversation keeps chat transcripts across requests. Transcripts
// live in SQLite when the database is usable and the caller has a real
// identity, and in a process-local map otherwise.
package conversation

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/chakravarthigit/law-backend/internal/llm"
)

// ErrTranscriptNotFound is returned when a durable transcript id does not
// resolve to a transcript owned by the caller.
var ErrTranscriptNotFound = errors.New("conversation: transcript not found")

type Mode int

const (
	ModeDurable Mode = iota
	ModeTransient
)

func (m Mode) String() string {
	if m == ModeTransient {
		return "transient"
	}
	return "durable"
}

type Message struct {
	Role      llm.Role
	Content   string
	Timestamp time.Time
}

// Transcript is an ordered, append-only chat history.
type Transcript struct {
	ID        string
	OwnerID   string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time

	mode Mode
	// persisted counts the leading messages already written to the durable store.
	persisted int
}

func (t *Transcript) Mode() Mode { return t.mode }

func (t *Transcript) append(role llm.Role, content string, now time.Time) {
	t.Messages = append(t.Messages, Message{Role: role, Content: content, Timestamp: now})
	t.UpdatedAt = now
}

func (t *Transcript) clone() *Transcript {
	c := *t
	c.Messages = slices.Clone(t.Messages)
	return &c
}

// LLMMessages returns the transcript in the completion client's shape.
func (t *Transcript) LLMMessages() []llm.Message {
	out := make([]llm.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// Store is a transcript backend.
type Store interface {
	// Create starts an empty transcript owned by ownerID.
	Create(ctx context.Context, ownerID, title string) (*Transcript, error)
	// Get returns the transcript with the given id, or nil when the backend
	// has none the caller may see.
	Get(ctx context.Context, id, ownerID string) (*Transcript, error)
	// Save writes t back.
	Save(ctx context.Context, t *Transcript) error
}
