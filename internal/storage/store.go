// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/debtwiser/internal/models"
)

// ErrConflict is returned by UpdateDebt and DeleteDebt when no row matched:
// the debt was deleted, reassigned or already paid by a concurrent writer.
var ErrConflict = errors.New("storage: debt changed concurrently")

// DebtStore defines the persistence operations for debts.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer. The store is the source of truth;
// callers may cache what it returns.
type DebtStore interface {
	// ListDebtsByUser returns the user's debts, newest first.
	// An empty status matches every status.
	ListDebtsByUser(ctx context.Context, userID string, status models.DebtStatus) ([]*models.Debt, error)

	// GetDebt retrieves a debt by ID, scoped to its owner.
	// Returns nil, nil if no debt with that ID belongs to userID.
	GetDebt(ctx context.Context, userID, debtID string) (*models.Debt, error)

	// CreateDebt inserts a new debt.
	// The debt's ID, CreatedAt and UpdatedAt fields are populated by the store.
	CreateDebt(ctx context.Context, debt *models.Debt) error

	// UpdateDebt saves title, amount, status and paid_at of a PENDING debt and
	// refreshes UpdatedAt. Returns ErrConflict if the stored row is not PENDING anymore.
	UpdateDebt(ctx context.Context, debt *models.Debt) error

	// DeleteDebt removes the debt. Returns ErrConflict if it no longer exists.
	DeleteDebt(ctx context.Context, debt *models.Debt) error
}

// UserStore defines the persistence operations for user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail and GetUserByID return nil, nil if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is the full storage backend.
type Store interface {
	DebtStore
	UserStore

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
