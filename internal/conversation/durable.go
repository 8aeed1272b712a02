package conversation

import (
	"context"
	"fmt"

	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/store"
)

// ChatRepository is the part of the SQLite store DurableStore needs.
type ChatRepository interface {
	CreateChat(ctx context.Context, userID, title string) (*store.Chat, error)
	GetChat(ctx context.Context, chatID, userID string) (*store.Chat, error)
	AppendMessages(ctx context.Context, chatID string, from int, msgs []store.Message) error
}

// DurableStore keeps transcripts in the chats and messages tables.
type DurableStore struct {
	repo ChatRepository
}

func NewDurableStore(repo ChatRepository) *DurableStore {
	return &DurableStore{repo: repo}
}

func (s *DurableStore) Create(ctx context.Context, ownerID, title string) (*Transcript, error) {
	chat, err := s.repo.CreateChat(ctx, ownerID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript: %w", err)
	}
	return fromChat(chat), nil
}

// Get returns nil unless ownerID owns the chat.
func (s *DurableStore) Get(ctx context.Context, id, ownerID string) (*Transcript, error) {
	chat, err := s.repo.GetChat(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %s: %w", id, err)
	}
	if chat == nil {
		return nil, nil
	}
	return fromChat(chat), nil
}

// Save appends the messages added since the transcript was loaded or last
// saved.
func (s *DurableStore) Save(ctx context.Context, t *Transcript) error {
	if t.persisted >= len(t.Messages) {
		return nil
	}

	pending := t.Messages[t.persisted:]
	msgs := make([]store.Message, 0, len(pending))
	for _, m := range pending {
		msgs = append(msgs, store.Message{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp})
	}
	if err := s.repo.AppendMessages(ctx, t.ID, t.persisted, msgs); err != nil {
		return fmt.Errorf("failed to save transcript %s: %w", t.ID, err)
	}
	t.persisted = len(t.Messages)
	return nil
}

func fromChat(chat *store.Chat) *Transcript {
	t := &Transcript{
		ID:        chat.ID,
		OwnerID:   chat.UserID,
		Title:     chat.Title,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
		mode:      ModeDurable,
	}
	for _, m := range chat.Messages {
		t.Messages = append(t.Messages, Message{Role: llm.Role(m.Role), Content: m.Content, Timestamp: m.Timestamp})
	}
	t.persisted = len(t.Messages)
	return t
}
