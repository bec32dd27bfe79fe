package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/creatorstack/keywarden/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// CreateUser creates a new admin user with a bcrypt-hashed password.
func (s *PostgresStorage) CreateUser(ctx context.Context, input *models.CreateUserInput) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), 12)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.QueryRowxContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, is_active, created_at`,
		input.Username, string(hash)).StructScan(&user)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `
		SELECT id, username, password_hash, is_active, created_at
		FROM users
		WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by UUID.
func (s *PostgresStorage) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `
		SELECT id, username, password_hash, is_active, created_at
		FROM users
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers retrieves all admin users.
func (s *PostgresStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := s.db.SelectContext(ctx, &users, `
		SELECT id, username, password_hash, is_active, created_at
		FROM users
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return users, nil
}
