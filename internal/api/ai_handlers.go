package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type ChatRequest struct {
	Message any    `json:"message"`
	ChatID  string `json:"chatId"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	message, ok := req.Message.(string)
	if !ok || message == "" {
		respondFail(w, http.StatusBadRequest, "Message is required and must be a string")
		return
	}

	reply, err := h.chats.Chat(r.Context(), currentUser(r).ID, req.ChatID, message)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "data": reply})
}

func (h *APIHandler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.ListChats(r.Context(), currentUser(r).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "results": len(chats), "chats": chats})
}

func (h *APIHandler) GetChatHandler(w http.ResponseWriter, r *http.Request) {
	chat, err := h.chats.GetChat(r.Context(), chi.URLParam(r, "chatID"), currentUser(r).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "chat": chat})
}

func (h *APIHandler) DeleteChatHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.chats.DeleteChat(r.Context(), chi.URLParam(r, "chatID"), currentUser(r).ID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) SearchLawsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.research.SearchLaws(r.Context(), q.Get("query"), q.Get("category"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  "success",
		"results": len(results),
		"data":    envelope{"searchResults": results},
	})
}

func (h *APIHandler) LawsNewsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.research.LawsNews(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status":  "success",
		"results": len(items),
		"data":    envelope{"newsItems": items},
	})
}
