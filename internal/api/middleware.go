package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"

	"github.com/chakravarthigit/law-backend/internal/auth"
	"github.com/chakravarthigit/law-backend/internal/config"
	"github.com/chakravarthigit/law-backend/internal/core"
	"github.com/chakravarthigit/law-backend/internal/store"
)

type ctxKey int

const userKey ctxKey = iota

func devUser() *store.User {
	return &store.User{
		ID:    auth.DevUserID,
		Name:  "Test User",
		Email: "test@example.com",
		Role:  store.RoleUser,
	}
}

func withUser(r *http.Request, user *store.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, user))
}

// currentUser returns the user Protect attached to the request.
func currentUser(r *http.Request) *store.User {
	user, _ := r.Context().Value(userKey).(*store.User)
	return user
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// Protect resolves the caller from the bearer token. Outside production a
// placeholder user stands in when auth is bypassed or the database is down.
func (h *APIHandler) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dev := config.AppConfig.IsDevelopment()
		if dev && config.AppConfig.BypassAuth {
			next.ServeHTTP(w, withUser(r, devUser()))
			return
		}

		token := bearerToken(r)
		if token == "" {
			if dev && !h.ready() {
				log.Println("No auth token and database unavailable, using test user")
				next.ServeHTTP(w, withUser(r, devUser()))
				return
			}
			respondFail(w, http.StatusUnauthorized, "You are not logged in. Please log in to get access.")
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			respondFail(w, http.StatusUnauthorized, "Unauthorized access. Please log in again.")
			return
		}
		userID := claims.Subject
		if dev && !h.ready() {
			next.ServeHTTP(w, withUser(r, devUser()))
			return
		}

		user, err := h.users.GetUser(r.Context(), userID)
		if err != nil {
			if dev {
				log.Printf("Could not load user %s, using test user: %v", userID, err)
				next.ServeHTTP(w, withUser(r, devUser()))
				return
			}
			if errors.Is(err, core.ErrNotFound) {
				respondFail(w, http.StatusUnauthorized, "The user belonging to this token no longer exists.")
				return
			}
			log.Printf("Error loading user %s: %v", userID, err)
			respondFail(w, http.StatusUnauthorized, "Unauthorized access. Please log in again.")
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// RestrictTo allows only users holding one of roles. It must run after
// Protect.
func RestrictTo(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			if user == nil || !slices.Contains(roles, user.Role) {
				respondFail(w, http.StatusForbidden, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
