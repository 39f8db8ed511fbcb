package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"token-ledger-service/internal/apperr"
	"token-ledger-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WithTx runs fn inside a transaction. Any error from fn (or from commit)
// rolls the whole unit back; commit failures surface as TransactionError.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Transaction("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Transaction("failed to commit transaction", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// GetPropertyByID retrieves a property by ID
func (s *Store) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	var property models.Property
	err := s.db.GetContext(ctx, &property, "SELECT * FROM properties WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("property not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// MarkPropertyTokenized flags a property as having an issued offering
func (s *Store) MarkPropertyTokenized(ctx context.Context, propertyID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE properties SET tokenized = TRUE WHERE id = $1", propertyID)
	return err
}

// GetUserProfile retrieves the contact profile for a user
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.GetContext(ctx, &profile, "SELECT * FROM user_profiles WHERE user_id = $1", userID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user profile not found: %s", userID)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
