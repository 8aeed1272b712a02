package auth

import "github.com/google/uuid"

// Placeholder identities used when a request has no real account behind it.
const (
	AnonymousUserID = "anonymous-user"
	DevUserID       = "dummy-user-id"
)

// IsPlaceholder reports whether id is one of the sentinel identities.
func IsPlaceholder(id string) bool {
	return id == AnonymousUserID || id == DevUserID
}

// ValidID reports whether s is a canonical identifier as issued by the
// durable store.
func ValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
