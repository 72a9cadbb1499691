// internal/store/users.go
package store

import (
	"context"
	"database/sql"

	apperrors "idea-eval-workers/internal/common/errors"
)

// UserContact is what the notification path needs about a recipient.
type UserContact struct {
	ID    string
	Email string
	Phone string
}

// UserStore reads the users table. The moderation and notification paths are
// the only consumers; nothing here writes.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// GetRole returns the user's role, or an empty string for unknown users.
func (s *UserStore) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewPersistenceError("get user role", err)
	}
	return role, nil
}

// GetContact returns the email and phone of a user.
func (s *UserStore) GetContact(ctx context.Context, userID string) (*UserContact, error) {
	contact := &UserContact{ID: userID}
	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`, userID).Scan(&email, &phone)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewPersistenceError("get user contact", sql.ErrNoRows)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("get user contact", err)
	}
	contact.Email = email.String
	contact.Phone = phone.String
	return contact, nil
}
