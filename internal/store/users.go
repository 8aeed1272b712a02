package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const userColumns = "id, name, email, password_hash, role, profile_picture, phone, occupation, address, active, last_login, created_at, updated_at"

func scanUser(row rowScanner) (*User, error) {
	var user User
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.ProfilePicture, &user.Phone, &user.Occupation, &user.Address,
		&user.Active, &lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

// CreateUser inserts a new active user with a fresh id. Email is stored
// lower-cased. A taken email yields ErrDuplicate.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	if role == "" {
		role = RoleUser
	}
	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, role, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns the active user with the given email, or nil when
// there is none.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? AND active = TRUE",
		strings.ToLower(strings.TrimSpace(email)))
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// GetUserByID returns the active user with the given id, or nil when there
// is none.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? AND active = TRUE", id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users WHERE active = TRUE ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUserProfile applies the non-nil fields of upd and returns the
// updated user, or nil when the user does not exist.
func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	var sets []string
	var args []any
	add := func(column string, v *string) {
		if v != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *v)
		}
	}
	add("name", upd.Name)
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		add("email", &email)
	}
	add("profile_picture", upd.ProfilePicture)
	add("phone", upd.Phone)
	add("occupation", upd.Occupation)
	add("address", upd.Address)

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().UTC(), id)
		query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ? AND active = TRUE"
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicate
			}
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return s.GetUserByID(ctx, id)
}

func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ? AND active = TRUE",
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user %s not found, password not updated", id)
	}
	return nil
}

func (s *SQLiteStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to record last login: %w", err)
	}
	return nil
}

// DeactivateUser soft-deletes a user. Deactivated users are invisible to
// every lookup.
func (s *SQLiteStore) DeactivateUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET active = FALSE, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}
