package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chakravarthigit/law-backend/internal/auth"
	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/observability"
	"github.com/chakravarthigit/law-backend/internal/store"
)

func ready() bool    { return true }
func notReady() bool { return false }

// panicStore fails the test if the manager ever routes to it.
type panicStore struct{ t *testing.T }

func (p panicStore) Create(context.Context, string, string) (*Transcript, error) {
	p.t.Fatal("durable store used for a transient request")
	return nil, nil
}

func (p panicStore) Get(context.Context, string, string) (*Transcript, error) {
	p.t.Fatal("durable store used for a transient request")
	return nil, nil
}

func (p panicStore) Save(context.Context, *Transcript) error {
	p.t.Fatal("durable store used for a transient request")
	return nil
}

func TestSelectMode(t *testing.T) {
	owner := uuid.NewString()
	chat := uuid.NewString()

	cases := []struct {
		name         string
		ready        bool
		transcriptID string
		ownerID      string
		want         Mode
	}{
		{"new chat", true, "", owner, ModeDurable},
		{"existing chat", true, chat, owner, ModeDurable},
		{"store down", false, chat, owner, ModeTransient},
		{"timestamp id", true, "1718000000000000000", owner, ModeTransient},
		{"garbage id", true, "not-a-uuid", owner, ModeTransient},
		{"anonymous owner", true, chat, auth.AnonymousUserID, ModeTransient},
		{"dev owner", true, "", auth.DevUserID, ModeTransient},
		{"malformed owner", true, "", "12345", ModeTransient},
	}
	for _, tc := range cases {
		if got := SelectMode(tc.ready, tc.transcriptID, tc.ownerID); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTitle(t *testing.T) {
	if got := Title("Hi"); got != "Hi..." {
		t.Fatalf("Title = %q", got)
	}
	long := strings.Repeat("é", 40)
	if got := Title(long); got != strings.Repeat("é", 30)+"..." {
		t.Fatalf("Title = %q", got)
	}
}

func TestInvalidTranscriptIDNeverTouchesDurableStore(t *testing.T) {
	m := NewManager(panicStore{t}, NewTransientStore(), ready)

	for _, id := range []string{"not-a-uuid", "1718000000000000000", strings.Repeat("x", 36)} {
		tr, err := m.LoadOrCreate(context.Background(), id, uuid.NewString(), "hello")
		if err != nil {
			t.Fatalf("LoadOrCreate(%q): %v", id, err)
		}
		if tr.Mode() != ModeTransient {
			t.Fatalf("LoadOrCreate(%q) mode = %v", id, tr.Mode())
		}
	}
}

func TestTransientConversationContinues(t *testing.T) {
	ctx := context.Background()
	transient := NewTransientStore()
	m := NewManager(nil, transient, nil)

	tr, err := m.LoadOrCreate(ctx, "", auth.DevUserID, "What is bail?")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if tr.Title != "What is bail?..." {
		t.Fatalf("title = %q", tr.Title)
	}
	m.Append(tr, llm.RoleUser, "What is bail?")
	m.Append(tr, llm.RoleAssistant, "Money paid to secure release.")
	m.Persist(ctx, tr)

	again, err := m.LoadOrCreate(ctx, tr.ID, auth.DevUserID, "follow up")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if again.ID != tr.ID || len(again.Messages) != 2 {
		t.Fatalf("expected the stored transcript, got %+v", again)
	}
	if again.Messages[0].Role != llm.RoleUser || again.Messages[1].Role != llm.RoleAssistant {
		t.Fatalf("messages out of order: %+v", again.Messages)
	}

	// Mutating a loaded copy does not leak into the store before Persist.
	m.Append(again, llm.RoleUser, "unsaved")
	reloaded, _ := transient.Get(ctx, tr.ID, "")
	if len(reloaded.Messages) != 2 {
		t.Fatalf("store changed without Persist: %d messages", len(reloaded.Messages))
	}

	fresh, err := m.LoadOrCreate(ctx, "999", auth.DevUserID, "new topic")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if fresh.ID == tr.ID || len(fresh.Messages) != 0 {
		t.Fatalf("unknown transient id should start a new transcript: %+v", fresh)
	}
}

func TestTransientIDsAreMonotonic(t *testing.T) {
	s := NewTransientStore()
	prev := ""
	for i := 0; i < 100; i++ {
		tr, _ := s.Create(context.Background(), auth.AnonymousUserID, "t")
		if auth.ValidID(tr.ID) {
			t.Fatalf("transient id %q validates as a durable id", tr.ID)
		}
		if prev != "" && (len(tr.ID) < len(prev) || (len(tr.ID) == len(prev) && tr.ID <= prev)) {
			t.Fatalf("id %q not after %q", tr.ID, prev)
		}
		prev = tr.ID
	}
}

func TestConcurrentTransientAppendsKeepAtLeastOne(t *testing.T) {
	ctx := context.Background()
	transient := NewTransientStore()
	m := NewManager(nil, transient, nil)

	tr, _ := m.LoadOrCreate(ctx, "", auth.AnonymousUserID, "start")
	m.Persist(ctx, tr)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine, err := m.LoadOrCreate(ctx, tr.ID, auth.AnonymousUserID, "q")
			if err != nil {
				t.Errorf("LoadOrCreate: %v", err)
				return
			}
			m.Append(mine, llm.RoleUser, "q")
			m.Append(mine, llm.RoleAssistant, "a")
			m.Persist(ctx, mine)
		}()
	}
	wg.Wait()

	final, _ := transient.Get(ctx, tr.ID, "")
	if len(final.Messages) < 2 {
		t.Fatalf("expected at least one exchange to survive, got %d messages", len(final.Messages))
	}
	if final.Messages[0].Role != llm.RoleUser {
		t.Fatalf("unexpected first message: %+v", final.Messages[0])
	}
}

func TestDurableRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	m := NewManager(NewDurableStore(st), NewTransientStore(), st.Ready)
	owner := uuid.NewString()

	tr, err := m.LoadOrCreate(ctx, "", owner, "Can my landlord enter without notice?")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if tr.Mode() != ModeDurable || !auth.ValidID(tr.ID) {
		t.Fatalf("expected a durable transcript, got %v %q", tr.Mode(), tr.ID)
	}
	m.Append(tr, llm.RoleUser, "Can my landlord enter without notice?")
	m.Append(tr, llm.RoleAssistant, "Usually not, except in emergencies.")
	m.Persist(ctx, tr)

	loaded, err := m.LoadOrCreate(ctx, tr.ID, owner, "")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded.Messages))
	}
	m.Append(loaded, llm.RoleUser, "What counts as an emergency?")
	m.Persist(ctx, loaded)

	chat, err := st.GetChat(ctx, tr.ID, owner)
	if err != nil || chat == nil || len(chat.Messages) != 3 {
		t.Fatalf("GetChat = %+v, %v", chat, err)
	}

	_, err = m.LoadOrCreate(ctx, tr.ID, uuid.NewString(), "")
	if !errors.Is(err, ErrTranscriptNotFound) {
		t.Fatalf("expected ErrTranscriptNotFound for another owner, got %v", err)
	}
}

func TestDurableUnavailableFallsBackToTransient(t *testing.T) {
	m := NewManager(panicStore{t}, NewTransientStore(), notReady)

	tr, err := m.LoadOrCreate(context.Background(), uuid.NewString(), uuid.NewString(), "hello")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if tr.Mode() != ModeTransient {
		t.Fatalf("mode = %v", tr.Mode())
	}
}

func TestPersistFailureIsSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := store.NewWithDB(db)
	m := NewManager(NewDurableStore(st), NewTransientStore(), st.Ready)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chats")).WillReturnResult(sqlmock.NewResult(1, 1))
	tr, err := m.LoadOrCreate(context.Background(), "", uuid.NewString(), "hello")
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	m.Append(tr, llm.RoleUser, "hello")
	m.Append(tr, llm.RoleAssistant, "hi")

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))
	before := testutil.ToFloat64(observability.PersistFailures)
	m.Persist(context.Background(), tr)

	if got := testutil.ToFloat64(observability.PersistFailures); got != before+1 {
		t.Fatalf("persist failures = %v, want %v", got, before+1)
	}
	if len(tr.Messages) != 2 {
		t.Fatalf("in-memory transcript changed: %d messages", len(tr.Messages))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
