package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/chakravarthigit/law-backend/internal/observability"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrDuplicate is returned when an insert or update hits a unique constraint.
var ErrDuplicate = errors.New("store: duplicate value")

type SQLiteStore struct {
	db    *sql.DB
	ready atomic.Bool
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewWithDB(db)
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewWithDB wraps an already opened handle. The schema is not created.
func NewWithDB(db *sql.DB) *SQLiteStore {
	s := &SQLiteStore{db: db}
	s.setReady(true)
	return s
}

func (s *SQLiteStore) Close() error {
	s.setReady(false)
	return s.db.Close()
}

// Ready reports whether the last health check succeeded.
func (s *SQLiteStore) Ready() bool {
	return s.ready.Load()
}

func (s *SQLiteStore) setReady(ok bool) {
	s.ready.Store(ok)
	if ok {
		observability.DurableReady.Set(1)
	} else {
		observability.DurableReady.Set(0)
	}
}

// Ping checks the connection and records the result in the ready flag.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	was := s.ready.Load()
	s.setReady(err == nil)
	switch {
	case err != nil && was:
		log.Printf("Database became unavailable: %v", err)
	case err == nil && !was:
		log.Println("Database is available again")
	}
	return err
}

// StartHealthMonitor pings the database every interval until ctx is done.
func (s *SQLiteStore) StartHealthMonitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, interval)
				s.Ping(pingCtx)
				cancel()
			}
		}
	}()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
        profile_picture TEXT NOT NULL DEFAULT '',
        phone TEXT NOT NULL DEFAULT '',
        occupation TEXT NOT NULL DEFAULT '',
        address TEXT NOT NULL DEFAULT '',
        active BOOLEAN NOT NULL DEFAULT TRUE,
        last_login DATETIME,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_chats_user ON chats (user_id, updated_at);

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        chat_id TEXT NOT NULL,
        position INTEGER NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
        content TEXT NOT NULL,
        timestamp DATETIME NOT NULL,
        UNIQUE (chat_id, position),
        FOREIGN KEY (chat_id) REFERENCES chats (id)
    );

    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        title TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        file_url TEXT NOT NULL,
        file_type TEXT NOT NULL,
        file_size INTEGER NOT NULL,
        tags_json TEXT NOT NULL DEFAULT '[]', -- JSON array of strings
        is_public BOOLEAN NOT NULL DEFAULT FALSE,
        analysis TEXT,
        analyzed_at DATETIME,
        uploaded_at DATETIME NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    CREATE INDEX IF NOT EXISTS idx_documents_user ON documents (user_id, uploaded_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
