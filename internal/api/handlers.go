package api

import (
	"github.com/chakravarthigit/law-backend/internal/core"
)

type APIHandler struct {
	users     *core.UserService
	chats     *core.ChatService
	research  *core.ResearchService
	documents *core.DocumentService
	ready     func() bool
}

// NewAPIHandler wires the services behind the HTTP routes. ready reports
// whether the database is reachable; nil means it always is.
func NewAPIHandler(users *core.UserService, chats *core.ChatService, research *core.ResearchService, documents *core.DocumentService, ready func() bool) *APIHandler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &APIHandler{
		users:     users,
		chats:     chats,
		research:  research,
		documents: documents,
		ready:     ready,
	}
}
