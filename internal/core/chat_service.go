package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chakravarthigit/law-backend/internal/auth"
	"github.com/chakravarthigit/law-backend/internal/config"
	"github.com/chakravarthigit/law-backend/internal/conversation"
	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/normalize"
	"github.com/chakravarthigit/law-backend/internal/store"
)

const (
	chatSystemPrompt = "You are CARA, a helpful Legal Assistant. Provide information about legal matters clearly and concisely. " +
		"IMPORTANT: Keep your responses short and to the point - use 2-3 sentences for each point and avoid long explanations. " +
		"Use simple language and break information into bullet points when appropriate. " +
		"While you can help with understanding legal documents and concepts, clarify that you do not provide legal advice " +
		"and users should consult with a qualified attorney for specific legal advice."

	// brevityReminder is appended to every user turn sent upstream. It is
	// never stored.
	brevityReminder = "\n\nPlease keep your response brief and to the point."

	DefaultChatTimeout = 30 * time.Second
)

// ChatRepository is the chat history surface of the SQLite store.
type ChatRepository interface {
	ListChats(ctx context.Context, userID string) ([]store.Chat, error)
	GetChat(ctx context.Context, chatID, userID string) (*store.Chat, error)
	DeleteChat(ctx context.Context, chatID, userID string) (bool, error)
}

type ChatService struct {
	conversations *conversation.Manager
	chats         ChatRepository
	client        llm.Client
	timeout       time.Duration
}

func NewChatService(conversations *conversation.Manager, chats ChatRepository, client llm.Client, timeout time.Duration) *ChatService {
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	return &ChatService{
		conversations: conversations,
		chats:         chats,
		client:        client,
		timeout:       timeout,
	}
}

type ChatReply struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// Chat adds message to the caller's transcript (a new one when chatID is
// empty), asks the model for a reply and records it. Upstream failures and
// timeouts still produce a reply.
func (s *ChatService) Chat(ctx context.Context, ownerID, chatID, message string) (*ChatReply, error) {
	if message == "" {
		return nil, invalid("Message is required and must be a string")
	}

	t, err := s.conversations.LoadOrCreate(ctx, chatID, ownerID, message)
	if err != nil {
		if errors.Is(err, conversation.ErrTranscriptNotFound) {
			return nil, notFound("Chat not found")
		}
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	s.conversations.Append(t, llm.RoleUser, message)

	reply := llm.CompleteWithTimeout(ctx, s.client, buildChatPrompt(t), s.timeout)
	reply = normalize.Shorten(reply)
	if config.AppConfig.Debug() {
		log.Printf("Chat %s (%s): %d messages, reply of %d bytes", t.ID, t.Mode(), len(t.Messages), len(reply))
	}

	s.conversations.Append(t, llm.RoleAssistant, reply)
	s.conversations.Persist(context.WithoutCancel(ctx), t)

	return &ChatReply{ChatID: t.ID, Message: reply}, nil
}

func buildChatPrompt(t *conversation.Transcript) []llm.Message {
	history := t.LLMMessages()
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})
	for _, m := range history {
		if m.Role == llm.RoleUser {
			m.Content += brevityReminder
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// ListChats returns the caller's stored chats, most recently updated first.
// Placeholder identities have no stored chats.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]store.Chat, error) {
	if !auth.ValidID(userID) {
		return []store.Chat{}, nil
	}
	chats, err := s.chats.ListChats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID, userID string) (*store.Chat, error) {
	if !auth.ValidID(chatID) {
		log.Printf("Invalid chatId format requested: %s", chatID)
		return nil, invalid("Invalid chat ID format")
	}
	chat, err := s.chats.GetChat(ctx, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat == nil {
		return nil, notFound("Chat not found")
	}
	return chat, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string) error {
	if !auth.ValidID(chatID) {
		log.Printf("Invalid chatId format for deletion: %s", chatID)
		return invalid("Invalid chat ID format")
	}
	deleted, err := s.chats.DeleteChat(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if !deleted {
		return notFound("Chat not found")
	}
	return nil
}
