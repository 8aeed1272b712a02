package conversation

import (
	"context"
	"log"
	"time"
	"unicode/utf8"

	"github.com/chakravarthigit/law-backend/internal/auth"
	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/observability"
)

const titleLength = 30

// SelectMode picks where a request's transcript lives. Anything short of a
// ready database, a well-formed transcript id (when one is given) and a real
// owner id goes to the transient store.
func SelectMode(ready bool, transcriptID, ownerID string) Mode {
	switch {
	case !ready:
		return ModeTransient
	case transcriptID != "" && !auth.ValidID(transcriptID):
		return ModeTransient
	case auth.IsPlaceholder(ownerID) || !auth.ValidID(ownerID):
		return ModeTransient
	}
	return ModeDurable
}

// Title derives a transcript title from its first message.
func Title(firstMessage string) string {
	if utf8.RuneCountInString(firstMessage) > titleLength {
		firstMessage = string([]rune(firstMessage)[:titleLength])
	}
	return firstMessage + "..."
}

// Manager routes transcript operations to the durable or transient store.
type Manager struct {
	durable   Store
	transient Store
	ready     func() bool
	now       func() time.Time
}

// NewManager builds a Manager. ready reports whether the durable store can be
// used right now; a nil durable store means every transcript is transient.
func NewManager(durable, transient Store, ready func() bool) *Manager {
	if ready == nil || durable == nil {
		ready = func() bool { return false }
	}
	return &Manager{durable: durable, transient: transient, ready: ready, now: time.Now}
}

func (m *Manager) storeFor(mode Mode) Store {
	if mode == ModeDurable {
		return m.durable
	}
	return m.transient
}

// LoadOrCreate returns the transcript named by transcriptID, or a new one
// titled after firstMessage when transcriptID is empty. A durable id the
// owner cannot see yields ErrTranscriptNotFound; an unknown transient id
// starts a new transcript.
func (m *Manager) LoadOrCreate(ctx context.Context, transcriptID, ownerID, firstMessage string) (*Transcript, error) {
	ready := m.ready()
	mode := SelectMode(ready, transcriptID, ownerID)
	observability.ConversationMode.WithLabelValues(mode.String()).Inc()
	if !ready && m.durable != nil {
		log.Println("Database not ready, using in-memory storage for chat")
	}

	s := m.storeFor(mode)
	if transcriptID != "" {
		t, err := s.Get(ctx, transcriptID, ownerID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
		if mode == ModeDurable {
			return nil, ErrTranscriptNotFound
		}
	}
	return s.Create(ctx, ownerID, Title(firstMessage))
}

// Append adds a message to the end of t.
func (m *Manager) Append(t *Transcript, role llm.Role, content string) {
	t.append(role, content, m.now().UTC())
}

// Persist writes t back to its store. Failures are logged and counted but not
// returned: the caller's reply is built from t either way.
func (m *Manager) Persist(ctx context.Context, t *Transcript) {
	if err := m.storeFor(t.mode).Save(ctx, t); err != nil {
		observability.PersistFailures.Inc()
		log.Printf("Error saving chat %s (%s): %v", t.ID, t.mode, err)
	}
}
