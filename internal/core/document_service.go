package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chakravarthigit/law-backend/internal/llm"
	"github.com/chakravarthigit/law-backend/internal/store"
)

const (
	analysisSystemPrompt = "You are CARA, a helpful Legal Assistant. Analyze the following document and provide insights about its legal implications, structure, and key points."

	DefaultMaxUploadBytes = 10 << 20
	searchLimit           = 20
)

// AllowedFileTypes lists the MIME types accepted for upload.
var AllowedFileTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
	"image/jpeg": true,
	"image/png":  true,
}

// DocumentRepository is the document surface of the SQLite store.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *store.Document) error
	GetDocument(ctx context.Context, id, userID string) (*store.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]store.Document, error)
	AllDocuments(ctx context.Context) ([]store.Document, error)
	UpdateDocument(ctx context.Context, id, userID string, upd store.DocumentUpdate) (*store.Document, error)
	DeleteDocument(ctx context.Context, id, userID string) (bool, error)
	SetDocumentAnalysis(ctx context.Context, id, userID string, analysis store.Analysis) error
}

// DocumentIndex is the full-text index kept over document metadata.
type DocumentIndex interface {
	Index(doc store.Document) error
	Delete(id string) error
	Search(userID, q string, limit int) ([]string, error)
	Rebuild(docs []store.Document) (int, error)
}

type DocumentService struct {
	docs      DocumentRepository
	index     DocumentIndex
	client    llm.Client
	uploadDir string
	maxBytes  int64
}

func NewDocumentService(docs DocumentRepository, index DocumentIndex, client llm.Client, uploadDir string, maxBytes int64) *DocumentService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &DocumentService{
		docs:      docs,
		index:     index,
		client:    client,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

func (s *DocumentService) MaxBytes() int64 { return s.maxBytes }

// Upload is a file received from a client plus its optional metadata.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Title       string
	Description string
	Tags        []string
}

// Upload stores the file under the upload directory and records it. The
// title defaults to the file's base name.
func (s *DocumentService) Upload(ctx context.Context, userID string, up Upload) (*store.Document, error) {
	if !AllowedFileTypes[up.ContentType] {
		return nil, invalid("Only PDF, Word, text, and image files are allowed")
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	ext := filepath.Ext(up.Filename)
	path := filepath.Join(s.uploadDir, fmt.Sprintf("file-%d-%d%s", time.Now().UnixMilli(), rand.IntN(1e9), ext))

	size, err := s.writeFile(path, up.Body)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(up.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(up.Filename), ext)
	}
	doc := &store.Document{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(up.Description),
		FileURL:     path,
		FileType:    up.ContentType,
		FileSize:    size,
		Tags:        up.Tags,
	}
	if err := s.docs.CreateDocument(ctx, doc); err != nil {
		os.Remove(path)
		return nil, err
	}
	s.reindex(*doc)
	return doc, nil
}

func (s *DocumentService) writeFile(path string, body io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	size, err := io.Copy(f, io.LimitReader(body, s.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write upload file: %w", err)
	}
	if size > s.maxBytes {
		os.Remove(path)
		return 0, invalid(fmt.Sprintf("File too large. Maximum size is %d bytes", s.maxBytes))
	}
	return size, nil
}

func (s *DocumentService) reindex(doc store.Document) {
	if err := s.index.Index(doc); err != nil {
		log.Printf("Failed to index document %s: %v", doc.ID, err)
	}
}

// List returns the user's documents, newest upload first.
func (s *DocumentService) List(ctx context.Context, userID string) ([]store.Document, error) {
	return s.docs.ListDocuments(ctx, userID)
}

func (s *DocumentService) Get(ctx context.Context, userID, id string) (*store.Document, error) {
	doc, err := s.docs.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("Document not found")
	}
	return doc, nil
}

func (s *DocumentService) Update(ctx context.Context, userID, id string, upd store.DocumentUpdate) (*store.Document, error) {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return nil, invalid("Please provide a document title")
	}
	doc, err := s.docs.UpdateDocument(ctx, id, userID, upd)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, notFound("Document not found")
	}
	s.reindex(*doc)
	return doc, nil
}

// Delete removes the document record, its file and its index entry.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := os.Remove(doc.FileURL); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to remove file %s for document %s: %v", doc.FileURL, id, err)
	}
	deleted, err := s.docs.DeleteDocument(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound("Document not found")
	}
	if err := s.index.Delete(id); err != nil {
		log.Printf("Failed to remove document %s from index: %v", id, err)
	}
	return nil
}

// Analyze sends the document's contents to the model and stores the answer
// on the document.
func (s *DocumentService) Analyze(ctx context.Context, userID, id string) (string, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(doc.FileURL)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound("Document file not found")
		}
		return "", fmt.Errorf("failed to read document file: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: analysisSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Please analyze this document titled \"%s\":\n\n%s", doc.Title, content)},
	}
	analysis := s.client.Complete(ctx, messages, llm.WithMaxTokens(2500), llm.WithTemperature(0.5))

	err = s.docs.SetDocumentAnalysis(ctx, id, userID, store.Analysis{Analysis: analysis, AnalyzedAt: time.Now()})
	if err != nil {
		return "", err
	}
	return analysis, nil
}

// Search returns the user's documents whose title, description or tags
// match q, best match first.
func (s *DocumentService) Search(ctx context.Context, userID, q string) ([]store.Document, error) {
	if strings.TrimSpace(q) == "" {
		return nil, invalid("Please provide a search query")
	}
	ids, err := s.index.Search(userID, q, searchLimit)
	if err != nil {
		return nil, err
	}

	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.docs.GetDocument(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// Reindex rebuilds the search index from every stored document.
func (s *DocumentService) Reindex(ctx context.Context) (int, error) {
	docs, err := s.docs.AllDocuments(ctx)
	if err != nil {
		return 0, err
	}
	return s.index.Rebuild(docs)
}
