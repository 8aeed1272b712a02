package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const documentColumns = "id, user_id, title, description, file_url, file_type, file_size, tags_json, is_public, analysis, analyzed_at, uploaded_at, created_at, updated_at"

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var tagsJSON string
	var analysis sql.NullString
	var analyzedAt sql.NullTime
	err := row.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Description, &doc.FileURL, &doc.FileType,
		&doc.FileSize, &tagsJSON, &doc.IsPublic, &analysis, &analyzedAt,
		&doc.UploadedAt, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil || doc.Tags == nil {
		doc.Tags = []string{}
	}
	if analysis.Valid {
		doc.Analysis = &Analysis{Analysis: analysis.String, AnalyzedAt: analyzedAt.Time}
	}
	return &doc, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tags: %w", err)
	}
	return string(b), nil
}

// Document methods
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *Document) error {
	tagsJSON, err := encodeTags(doc.Tags)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	doc.ID = uuid.NewString()
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.CreatedAt, doc.UpdatedAt = now, now

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (id, user_id, title, description, file_url, file_type, file_size, tags_json, is_public, uploaded_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		doc.ID, doc.UserID, doc.Title, doc.Description, doc.FileURL, doc.FileType, doc.FileSize,
		tagsJSON, doc.IsPublic, doc.UploadedAt, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocument returns the document when it is owned by userID, or nil.
func (s *SQLiteStore) GetDocument(ctx context.Context, id, userID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ? AND user_id = ?", id, userID)
	doc, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the user's documents, newest upload first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, userID string) ([]Document, error) {
	return s.queryDocuments(ctx, "SELECT "+documentColumns+" FROM documents WHERE user_id = ? ORDER BY uploaded_at DESC", userID)
}

// AllDocuments returns every document. Used to rebuild the search index.
func (s *SQLiteStore) AllDocuments(ctx context.Context) ([]Document, error) {
	return s.queryDocuments(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY uploaded_at ASC")
}

func (s *SQLiteStore) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// UpdateDocument applies the non-nil fields of upd to a document owned by
// userID and returns the result, or nil when there is no such document.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, id, userID string, upd DocumentUpdate) (*Document, error) {
	var sets []string
	var args []any
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, strings.TrimSpace(*upd.Title))
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, strings.TrimSpace(*upd.Description))
	}
	if upd.Tags != nil {
		tagsJSON, err := encodeTags(*upd.Tags)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "tags_json = ?")
		args = append(args, tagsJSON)
	}
	if upd.IsPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, *upd.IsPublic)
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().UTC(), id, userID)
		query := "UPDATE documents SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("failed to update document: %w", err)
		}
	}
	return s.GetDocument(ctx, id, userID)
}

// DeleteDocument reports false when the user owns no such document.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *SQLiteStore) SetDocumentAnalysis(ctx context.Context, id, userID string, analysis Analysis) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET analysis = ?, analyzed_at = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		analysis.Analysis, analysis.AnalyzedAt.UTC(), time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to store document analysis: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("document %s not found, analysis not stored", id)
	}
	return nil
}
