package conversation

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// TransientStore keeps transcripts in memory for the life of the process.
// Each map operation is guarded, but callers that load, append and save are
// not serialized against each other: when two requests overlap on one
// transcript the later Save replaces the earlier one.
type TransientStore struct {
	mu     sync.Mutex
	chats  map[string]*Transcript
	lastID int64
}

func NewTransientStore() *TransientStore {
	return &TransientStore{chats: make(map[string]*Transcript)}
}

// nextID returns a strictly increasing nanosecond timestamp. Callers hold mu.
func (s *TransientStore) nextID() string {
	id := time.Now().UnixNano()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *TransientStore) Create(_ context.Context, ownerID, title string) (*Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t := &Transcript{
		ID:        s.nextID(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		mode:      ModeTransient,
	}
	s.chats[t.ID] = t.clone()
	return t, nil
}

// Get looks the transcript up by id alone.
func (s *TransientStore) Get(_ context.Context, id, _ string) (*Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.chats[id]
	if !ok {
		return nil, nil
	}
	return t.clone(), nil
}

func (s *TransientStore) Save(_ context.Context, t *Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats[t.ID] = t.clone()
	return nil
}

// Len reports how many transcripts are held.
func (s *TransientStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}
