package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chakravarthigit/law-backend/internal/auth"
	"github.com/chakravarthigit/law-backend/internal/store"
)

// UserRepository is the user surface of the SQLite store.
type UserRepository interface {
	CreateUser(ctx context.Context, name, email, passwordHash, role string) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	UpdateUserProfile(ctx context.Context, id string, upd store.UserUpdate) (*store.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	DeactivateUser(ctx context.Context, id string) error
}

type UserService struct {
	users UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

// Session is a signed-in user and their bearer token.
type Session struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

func (s *UserService) Signup(ctx context.Context, name, email, password string) (*Session, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, invalid("Please provide name, email and password")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("Please provide a valid email")
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("Email already exists. Please use a different email address.")
	}
	if len(password) < auth.MinPasswordLength {
		return nil, invalid(fmt.Sprintf("Password must be at least %d characters long", auth.MinPasswordLength))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, name, email, hash, store.RoleUser)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("Email already exists. Please use a different email address.")
		}
		return nil, err
	}
	log.Printf("User created successfully: %s", user.ID)
	return s.session(user)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, invalid("Please provide email and password")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, unauthorized("Incorrect email or password")
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		log.Printf("Failed to record last login for user %s: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}
	return s.session(user)
}

func (s *UserService) session(user *store.User) (*Session, error) {
	token, err := auth.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*store.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("User not found")
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]store.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *UserService) UpdateMe(ctx context.Context, id string, upd store.UserUpdate) (*store.User, error) {
	if upd.Email != nil && !strings.Contains(*upd.Email, "@") {
		return nil, invalid("Please provide a valid email")
	}
	user, err := s.users.UpdateUserProfile(ctx, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict("Email already exists. Please use another value.")
		}
		return nil, err
	}
	if user == nil {
		return nil, notFound("User not found")
	}
	return user, nil
}

// UpdatePassword checks the current password, stores the new one and
// returns a fresh token.
func (s *UserService) UpdatePassword(ctx context.Context, id, current, next string) (string, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", notFound("User not found")
	}
	if !auth.CheckPasswordHash(current, user.PasswordHash) {
		return "", unauthorized("Your current password is incorrect")
	}
	if len(next) < auth.MinPasswordLength {
		return "", invalid(fmt.Sprintf("Password must be at least %d characters long", auth.MinPasswordLength))
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, id, hash); err != nil {
		return "", err
	}
	session, err := s.session(user)
	if err != nil {
		return "", err
	}
	return session.Token, nil
}

func (s *UserService) DeleteMe(ctx context.Context, id string) error {
	return s.users.DeactivateUser(ctx, id)
}
