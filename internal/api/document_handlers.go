package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chakravarthigit/law-backend/internal/core"
	"github.com/chakravarthigit/law-backend/internal/store"
)

// multipartSlack covers form fields and part headers around the file.
const multipartSlack = 1 << 20

func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	limit := h.documents.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondFail(w, http.StatusBadRequest, fmt.Sprintf("File too large. Maximum size is %d bytes", limit))
			return
		}
		respondFail(w, http.StatusBadRequest, "No document uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondFail(w, http.StatusBadRequest, "No document uploaded")
		return
	}
	defer file.Close()

	tags, err := parseTags(r.FormValue("tags"))
	if err != nil {
		respondFail(w, http.StatusBadRequest, "Tags must be a JSON array of strings")
		return
	}

	doc, err := h.documents.Upload(r.Context(), currentUser(r).ID, core.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        tags,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"status": "success", "document": doc})
}

// parseTags decodes a JSON array of strings. An empty value means no tags.
func parseTags(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context(), currentUser(r).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "results": len(docs), "documents": docs})
}

func (h *APIHandler) SearchDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.Search(r.Context(), currentUser(r).ID, r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "results": len(docs), "documents": docs})
}

func (h *APIHandler) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "document": doc})
}

type UpdateDocumentRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Tags        json.RawMessage `json:"tags"`
	IsPublic    *bool           `json:"isPublic"`
}

func (h *APIHandler) UpdateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	upd := store.DocumentUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	tags, err := updateTags(req.Tags)
	if err != nil {
		respondFail(w, http.StatusBadRequest, "Tags must be a JSON array of strings")
		return
	}
	upd.Tags = tags

	doc, err := h.documents.Update(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), upd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "document": doc})
}

// updateTags accepts tags either as an array or as a string holding one.
// Absent or null tags are left unchanged.
func updateTags(raw json.RawMessage) (*[]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var tags []string
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		parsed, err := parseTags(encoded)
		if err != nil {
			return nil, err
		}
		tags = parsed
	} else if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return &tags, nil
}

func (h *APIHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) AnalyzeDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	analysis, err := h.documents.Analyze(r.Context(), currentUser(r).ID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status": "success",
		"data":   envelope{"documentId": id, "analysis": analysis},
	})
}
