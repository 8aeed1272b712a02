package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chakravarthigit/law-backend/internal/auth"
	"github.com/chakravarthigit/law-backend/internal/config"
	"github.com/chakravarthigit/law-backend/internal/conversation"
	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/search"
	"github.com/chakravarthigit/law-backend/internal/store"
)

func TestMain(m *testing.M) {
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.JWTTTL = time.Hour
	os.Exit(m.Run())
}

type call struct {
	messages []llm.Message
	params   llm.Params
}

// recordingClient answers every call with reply and remembers what it was
// asked.
type recordingClient struct {
	mu    sync.Mutex
	reply string
	calls []call
}

func (c *recordingClient) Name() string { return "recording" }

func (c *recordingClient) Complete(_ context.Context, messages []llm.Message, opts ...llm.Option) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call{messages: messages, params: llm.Resolve(llm.DefaultParams(), opts...)})
	return c.reply
}

func (c *recordingClient) last(t *testing.T) call {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		t.Fatal("client was not called")
	}
	return c.calls[len(c.calls)-1]
}

func newSQLite(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "core.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestChatBuildsPromptAndContinues(t *testing.T) {
	ctx := context.Background()
	client := &recordingClient{reply: "A lease is a rental contract."}
	m := conversation.NewManager(nil, conversation.NewTransientStore(), nil)
	svc := NewChatService(m, nil, client, time.Second)

	first, err := svc.Chat(ctx, auth.DevUserID, "", "What is a lease?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if first.Message != "A lease is a rental contract." || first.ChatID == "" {
		t.Fatalf("unexpected reply: %+v", first)
	}

	sent := client.last(t).messages
	if len(sent) != 2 || sent[0].Role != llm.RoleSystem || sent[0].Content != chatSystemPrompt {
		t.Fatalf("system prompt missing: %+v", sent)
	}
	if sent[1].Content != "What is a lease?"+brevityReminder {
		t.Fatalf("user turn not suffixed: %q", sent[1].Content)
	}

	if _, err := svc.Chat(ctx, auth.DevUserID, first.ChatID, "Can it be broken?"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	sent = client.last(t).messages
	if len(sent) != 4 {
		t.Fatalf("expected history to be replayed, got %d messages", len(sent))
	}
	if sent[2].Role != llm.RoleAssistant || strings.HasSuffix(sent[2].Content, brevityReminder) {
		t.Fatalf("assistant turn should be sent as is: %+v", sent[2])
	}
	if !strings.HasSuffix(sent[3].Content, brevityReminder) {
		t.Fatalf("every user turn gets the reminder: %q", sent[3].Content)
	}
}

func TestChatShortensLongReplies(t *testing.T) {
	long := strings.Repeat("Tenants have a right to quiet enjoyment of the premises they rent. ", 10)
	client := &recordingClient{reply: long}
	svc := NewChatService(conversation.NewManager(nil, conversation.NewTransientStore(), nil), nil, client, time.Second)

	reply, err := svc.Chat(context.Background(), auth.AnonymousUserID, "", "rights?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !strings.HasPrefix(reply.Message, "• ") {
		t.Fatalf("expected a bulleted reply, got %q", reply.Message)
	}
}

func TestChatValidationAndNotFound(t *testing.T) {
	ctx := context.Background()
	st := newSQLite(t)
	m := conversation.NewManager(conversation.NewDurableStore(st), conversation.NewTransientStore(), st.Ready)
	svc := NewChatService(m, st, &recordingClient{reply: "ok"}, time.Second)

	if _, err := svc.Chat(ctx, uuid.NewString(), "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Chat(ctx, uuid.NewString(), uuid.NewString(), "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetChat(ctx, "12345", uuid.NewString()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.DeleteChat(ctx, uuid.NewString(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChatDurableHistory(t *testing.T) {
	ctx := context.Background()
	st := newSQLite(t)
	m := conversation.NewManager(conversation.NewDurableStore(st), conversation.NewTransientStore(), st.Ready)
	svc := NewChatService(m, st, &recordingClient{reply: "Yes."}, time.Second)
	owner := uuid.NewString()

	reply, err := svc.Chat(ctx, owner, "", "Is a verbal contract binding?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	chats, err := svc.ListChats(ctx, owner)
	if err != nil || len(chats) != 1 || chats[0].ID != reply.ChatID {
		t.Fatalf("ListChats = %+v, %v", chats, err)
	}
	chat, err := svc.GetChat(ctx, reply.ChatID, owner)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.Title != "Is a verbal contract binding?..." || len(chat.Messages) != 2 {
		t.Fatalf("unexpected chat: %+v", chat)
	}
	if err := svc.DeleteChat(ctx, reply.ChatID, owner); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}

	placeholder, err := svc.ListChats(ctx, auth.DevUserID)
	if err != nil || len(placeholder) != 0 {
		t.Fatalf("placeholder users have no stored chats: %+v, %v", placeholder, err)
	}
}

func TestSearchLaws(t *testing.T) {
	client := &recordingClient{reply: "Title: Fair Housing Act\n\nSummary: Bars discrimination in housing.\n\nContent: Enforced by HUD."}
	svc := NewResearchService(client)

	if _, err := svc.SearchLaws(context.Background(), " a ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	results, err := svc.SearchLaws(context.Background(), "fair housing", "Housing")
	if err != nil {
		t.Fatalf("SearchLaws: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Fair Housing Act" || results[0].Category != "Housing" {
		t.Fatalf("unexpected results: %+v", results)
	}

	c := client.last(t)
	if c.params.Temperature != 0.3 || c.params.MaxTokens != 1200 {
		t.Fatalf("unexpected params: %+v", c.params)
	}
	if !strings.Contains(c.messages[1].Content, `"fair housing" in the context of Housing.`) {
		t.Fatalf("unexpected prompt: %q", c.messages[1].Content)
	}

	svc.SearchLaws(context.Background(), "fair housing", "All")
	if strings.Contains(client.last(t).messages[1].Content, "in the context of") {
		t.Fatal("category All should not narrow the prompt")
	}
}

func TestLawsNews(t *testing.T) {
	client := &recordingClient{reply: "No news."}
	svc := NewResearchService(client)

	items, err := svc.LawsNews(context.Background(), "All")
	if err != nil {
		t.Fatalf("LawsNews: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Recent Legal Updates" || items[0].Summary != "No news." {
		t.Fatalf("unexpected items: %+v", items)
	}

	c := client.last(t)
	if c.params.Temperature != 0.3 || c.params.MaxTokens != 1000 {
		t.Fatalf("unexpected params: %+v", c.params)
	}
	if strings.Contains(c.messages[1].Content, "related to") {
		t.Fatalf("unexpected prompt: %q", c.messages[1].Content)
	}

	svc.LawsNews(context.Background(), "Tax")
	if !strings.Contains(client.last(t).messages[1].Content, "related to Tax") {
		t.Fatal("category should narrow the prompt")
	}
}

func TestUserSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(newSQLite(t))

	session, err := svc.Signup(ctx, "Ada", "ada@example.com", "longenough")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if session.Token == "" || session.User.ID == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	if _, err := svc.Signup(ctx, "Ada", "ada@example.com", "longenough"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Signup(ctx, "Bob", "bob@example.com", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if _, err := svc.Login(ctx, "ada@example.com", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	login, err := svc.Login(ctx, "ada@example.com", "longenough")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LastLogin == nil {
		t.Fatal("last login not set")
	}

	claims, err := auth.ValidateJWT(login.Token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.Role != store.RoleUser {
		t.Fatalf("role claim = %q", claims.Role)
	}
	user, err := svc.GetUser(ctx, claims.Subject)
	if err != nil || user.ID != session.User.ID {
		t.Fatalf("GetUser = %+v, %v", user, err)
	}

	if _, err := svc.UpdatePassword(ctx, user.ID, "not-it", "newpassword"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.UpdatePassword(ctx, user.ID, "longenough", "newpassword"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, err := svc.Login(ctx, "ada@example.com", "newpassword"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}

	if err := svc.DeleteMe(ctx, user.ID); err != nil {
		t.Fatalf("DeleteMe: %v", err)
	}
	if _, err := svc.GetUser(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a deactivated user, got %v", err)
	}
}

func newDocumentService(t *testing.T, client llm.Client, maxBytes int64) (*DocumentService, string) {
	t.Helper()
	idx, err := search.Open("")
	if err != nil {
		t.Fatalf("search.Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	dir := filepath.Join(t.TempDir(), "uploads")
	return NewDocumentService(newSQLite(t), idx, client, dir, maxBytes), dir
}

func TestDocumentUploadAnalyzeDelete(t *testing.T) {
	ctx := context.Background()
	client := &recordingClient{reply: "This lease favours the landlord."}
	svc, dir := newDocumentService(t, client, 1024)
	owner := uuid.NewString()

	doc, err := svc.Upload(ctx, owner, Upload{
		Filename:    "lease-2024.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("The tenant shall pay rent monthly."),
		Tags:        []string{"housing"},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Title != "lease-2024" || doc.FileSize != 34 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if filepath.Dir(doc.FileURL) != dir || !strings.HasPrefix(filepath.Base(doc.FileURL), "file-") || filepath.Ext(doc.FileURL) != ".txt" {
		t.Fatalf("unexpected stored path %q", doc.FileURL)
	}

	found, err := svc.Search(ctx, owner, "housing")
	if err != nil || len(found) != 1 || found[0].ID != doc.ID {
		t.Fatalf("Search = %+v, %v", found, err)
	}
	if others, _ := svc.Search(ctx, uuid.NewString(), "housing"); len(others) != 0 {
		t.Fatalf("search leaked another user's document: %+v", others)
	}

	analysis, err := svc.Analyze(ctx, owner, doc.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis != client.reply {
		t.Fatalf("analysis = %q", analysis)
	}
	c := client.last(t)
	if c.params.MaxTokens != 2500 || c.params.Temperature != 0.5 {
		t.Fatalf("unexpected params: %+v", c.params)
	}
	if !strings.Contains(c.messages[1].Content, "The tenant shall pay rent monthly.") {
		t.Fatalf("file contents not sent: %q", c.messages[1].Content)
	}
	stored, _ := svc.Get(ctx, owner, doc.ID)
	if stored.Analysis == nil || stored.Analysis.Analysis != analysis {
		t.Fatalf("analysis not stored: %+v", stored.Analysis)
	}

	if _, err := svc.Get(ctx, uuid.NewString(), doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user, got %v", err)
	}

	if err := svc.Delete(ctx, owner, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(doc.FileURL); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if found, _ := svc.Search(ctx, owner, "housing"); len(found) != 0 {
		t.Fatalf("deleted document still searchable: %+v", found)
	}
}

func TestDocumentUploadRejects(t *testing.T) {
	ctx := context.Background()
	svc, dir := newDocumentService(t, &recordingClient{}, 16)

	_, err := svc.Upload(ctx, "owner", Upload{Filename: "x.exe", ContentType: "application/x-msdownload", Body: strings.NewReader("MZ")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a disallowed type, got %v", err)
	}

	_, err = svc.Upload(ctx, "owner", Upload{Filename: "big.txt", ContentType: "text/plain", Body: strings.NewReader(strings.Repeat("a", 17))})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for an oversized file, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("rejected upload left %d files behind", len(entries))
	}
}

func TestDocumentReindex(t *testing.T) {
	ctx := context.Background()
	st := newSQLite(t)
	first, _ := search.Open("")
	defer first.Close()

	svc := NewDocumentService(st, first, &recordingClient{}, t.TempDir(), 0)
	if _, err := svc.Upload(ctx, "owner", Upload{Filename: "testament.txt", ContentType: "text/plain", Body: strings.NewReader("last will")}); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	fresh, _ := search.Open("")
	defer fresh.Close()
	rebuilt := NewDocumentService(st, fresh, &recordingClient{}, t.TempDir(), 0)
	n, err := rebuilt.Reindex(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Reindex = %d, %v", n, err)
	}
	if found, _ := rebuilt.Search(ctx, "owner", "testament"); len(found) != 1 {
		t.Fatalf("reindexed document not found: %+v", found)
	}
}
