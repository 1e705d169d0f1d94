package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, username, email, password_hash, subscription_status, subscription_expires_at, total_tokens_used, created_at`

// CreateUser creates a new user with hashed password
func (p *PostgresDB) CreateUser(ctx context.Context, username, email, password string, status db.SubscriptionStatus, expiresAt *time.Time) (*db.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var user db.User
	query := `
	INSERT INTO users (id, username, email, password_hash, subscription_status, subscription_expires_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + userColumns

	err = p.conn.GetContext(ctx, &user, query, uuid.New().String(), username, email, string(hashedPassword), status, expiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q: %w", username, db.ErrDuplicate)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"username": username, "user_id": user.ID, "subscription": status}).Info("Created new user")

	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (p *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	if err := p.conn.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	return &user, nil
}

// GetUserByID retrieves a user with current subscription and usage counters
func (p *PostgresDB) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	if !validID(id) {
		return nil, db.ErrNotFound
	}

	var user db.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := p.conn.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	return &user, nil
}
