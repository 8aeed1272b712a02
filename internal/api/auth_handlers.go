package api

import (
	"net/http"

	"github.com/chakravarthigit/law-backend/internal/core"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.users.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeSession(w, http.StatusCreated, session)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeSession(w, http.StatusOK, session)
}

func writeSession(w http.ResponseWriter, status int, session *core.Session) {
	writeJSON(w, status, envelope{"status": "success", "token": session.Token, "user": session.User})
}

// LogoutHandler only acknowledges; tokens are dropped client side.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "success", "message": "Logged out successfully"})
}

func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "success", "user": currentUser(r)})
}
