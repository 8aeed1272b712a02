// Package search keeps a full-text index over document metadata so users can
// search their own uploads by title, description and tags.
package search

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"

	"github.com/chakravarthigit/law-backend/internal/store"
)

const (
	fieldUserID  = "user_id"
	DefaultLimit = 20
)

type indexedDocument struct {
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func toIndexed(doc store.Document) indexedDocument {
	return indexedDocument{
		UserID:      doc.UserID,
		Title:       doc.Title,
		Description: doc.Description,
		Tags:        doc.Tags,
	}
}

// DocumentIndex is safe for concurrent use.
type DocumentIndex struct {
	index bleve.Index
}

// Open returns an index stored at path, creating it when missing. An empty
// path gives an in-memory index.
func Open(path string) (*DocumentIndex, error) {
	m := newMapping()
	if path == "" {
		idx, err := bleve.NewMemOnly(m)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return &DocumentIndex{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		log.Printf("Creating search index at %s", path)
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index %s: %w", path, err)
	}
	return &DocumentIndex{index: idx}, nil
}

func newMapping() mapping.IndexMapping {
	owner := bleve.NewTextFieldMapping()
	owner.Analyzer = keyword.Name
	owner.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(fieldUserID, owner)
	doc.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("description", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("tags", bleve.NewTextFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

func (d *DocumentIndex) Close() error {
	return d.index.Close()
}

// Index adds or replaces doc in the index.
func (d *DocumentIndex) Index(doc store.Document) error {
	if err := d.index.Index(doc.ID, toIndexed(doc)); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	return nil
}

func (d *DocumentIndex) Delete(id string) error {
	if err := d.index.Delete(id); err != nil {
		return fmt.Errorf("failed to remove document %s from index: %w", id, err)
	}
	return nil
}

// Search returns the ids of userID's documents matching q, best match first.
func (d *DocumentIndex) Search(userID, q string, limit int) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	owner := bleve.NewTermQuery(userID)
	owner.SetField(fieldUserID)
	query := bleve.NewConjunctionQuery(owner, bleve.NewMatchQuery(q))

	res, err := d.index.Search(bleve.NewSearchRequestOptions(query, limit, 0, false))
	if err != nil {
		return nil, fmt.Errorf("document search failed: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Rebuild indexes every document in docs and returns how many were indexed.
func (d *DocumentIndex) Rebuild(docs []store.Document) (int, error) {
	batch := d.index.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, toIndexed(doc)); err != nil {
			return 0, fmt.Errorf("failed to batch document %s: %w", doc.ID, err)
		}
	}
	if err := d.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("failed to write index batch: %w", err)
	}
	return len(docs), nil
}
