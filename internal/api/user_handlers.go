package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chakravarthigit/law-backend/internal/store"
)

func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "results": len(users), "users": users})
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "user": user})
}

type UpdateMeRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	ProfilePicture *string `json:"profilePicture"`
	Phone          *string `json:"phone"`
	Occupation     *string `json:"occupation"`
	Address        *string `json:"address"`
	Password       *string `json:"password"`
}

func (h *APIHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password != nil {
		respondFail(w, http.StatusBadRequest, "This route is not for password updates. Please use /updatePassword")
		return
	}

	upd := store.UserUpdate{
		Name:           req.Name,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
		Phone:          req.Phone,
		Occupation:     req.Occupation,
		Address:        req.Address,
	}
	user, err := h.users.UpdateMe(r.Context(), currentUser(r).ID, upd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "user": user})
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *APIHandler) UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := h.users.UpdatePassword(r.Context(), currentUser(r).ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"status": "success", "token": token})
}

func (h *APIHandler) DeleteMeHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteMe(r.Context(), currentUser(r).ID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
