package store

import "time"

type User struct {
	ID             string     `json:"id"` // UUID
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"` // Do not expose this in JSON responses
	Role           string     `json:"role"`
	ProfilePicture string     `json:"profilePicture"`
	Phone          string     `json:"phone"`
	Occupation     string     `json:"occupation"`
	Address        string     `json:"address"`
	Active         bool       `json:"-"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserUpdate carries the profile fields a user may change. Nil fields are
// left untouched.
type UserUpdate struct {
	Name           *string
	Email          *string
	ProfilePicture *string
	Phone          *string
	Occupation     *string
	Address        *string
}

type Chat struct {
	ID        string    `json:"id"` // UUID
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Message struct {
	ID        string    `json:"id"` // UUID
	ChatID    string    `json:"-"`
	Position  int       `json:"-"`
	Role      string    `json:"role"` // "system", "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Document struct {
	ID          string    `json:"id"` // UUID
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileURL     string    `json:"fileUrl"`
	FileType    string    `json:"fileType"`
	FileSize    int64     `json:"fileSize"`
	Tags        []string  `json:"tags"`
	IsPublic    bool      `json:"isPublic"`
	Analysis    *Analysis `json:"aiAnalysis"`
	UploadedAt  time.Time `json:"uploadedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Analysis struct {
	Analysis   string    `json:"analysis"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// DocumentUpdate carries the editable document fields. Nil fields are left
// untouched.
type DocumentUpdate struct {
	Title       *string
	Description *string
	Tags        *[]string
	IsPublic    *bool
}
