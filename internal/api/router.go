package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chakravarthigit/law-backend/internal/observability"
	"github.com/chakravarthigit/law-backend/internal/store"
)

func NewRouter(h *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(CORS)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("CARA API is running"))
	})
	r.Handle("/metrics", observability.MetricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, envelope{"status": "ok", "database": h.ready()})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.SignupHandler)
			r.Post("/login", h.LoginHandler)
			r.Post("/logout", h.LogoutHandler)
			r.With(h.Protect).Get("/me", h.MeHandler)
		})

		// Everything below requires a user.
		r.Group(func(r chi.Router) {
			r.Use(h.Protect)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.MeHandler)
				r.Patch("/updateMe", h.UpdateMeHandler)
				r.Patch("/updatePassword", h.UpdatePasswordHandler)
				r.Delete("/deleteMe", h.DeleteMeHandler)

				r.Group(func(r chi.Router) {
					r.Use(RestrictTo(store.RoleAdmin))
					r.Get("/", h.ListUsersHandler)
					r.Get("/{id}", h.GetUserHandler)
				})
			})

			r.Route("/ai", func(r chi.Router) {
				r.Post("/chat", h.ChatHandler)
				r.Get("/chats", h.ListChatsHandler)
				r.Get("/chats/{chatID}", h.GetChatHandler)
				r.Delete("/chats/{chatID}", h.DeleteChatHandler)
				r.Get("/search-laws", h.SearchLawsHandler)
				r.Get("/laws-news", h.LawsNewsHandler)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", h.UploadDocumentHandler)
				r.Get("/", h.ListDocumentsHandler)
				r.Get("/search", h.SearchDocumentsHandler)
				r.Get("/{id}", h.GetDocumentHandler)
				r.Patch("/{id}", h.UpdateDocumentHandler)
				r.Delete("/{id}", h.DeleteDocumentHandler)
				r.Post("/{id}/analyze", h.AnalyzeDocumentHandler)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondFail(w, http.StatusNotFound, fmt.Sprintf("Can't find %s on this server", r.URL.RequestURI()))
	})

	return r
}
