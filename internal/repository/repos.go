// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

// AccountRepository provides CRUD access for registered accounts.
type AccountRepository interface {
	// Create inserts a new account; errs.ErrAlreadyExists on a taken email.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByEmail loads an account by email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// Update overwrites the mutable fields of an existing account.
	Update(ctx context.Context, a *model.Account) error
}

// RefreshTokenRepository tracks issued refresh tokens by hash. Raw tokens are
// never stored.
type RefreshTokenRepository interface {
	// Save registers a token hash for a user with an expiry.
	Save(ctx context.Context, tokenHash []byte, userID uuid.UUID, expiresAt time.Time) error
	// Consume removes the hash and returns its owner; errs.ErrUnauthorized
	// for unknown or expired hashes. A consumed token cannot be replayed.
	Consume(ctx context.Context, tokenHash []byte) (uuid.UUID, error)
}

// OrderRepository stores placed orders and serves the feed queries.
type OrderRepository interface {
	// Create assigns the next public number and stores the order.
	Create(ctx context.Context, o *model.StoredOrder) error
	// GetByNumber loads one order; errs.ErrNotFound when absent.
	GetByNumber(ctx context.Context, number int) (*model.StoredOrder, error)
	// Recent returns up to limit newest orders plus the all-time and
	// same-day totals.
	Recent(ctx context.Context, limit int) ([]model.StoredOrder, int, int, error)
	// RecentByUser is Recent scoped to one owner.
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.StoredOrder, int, int, error)
	// SetStatus advances one order's status.
	SetStatus(ctx context.Context, id string, status string) error
	// ByStatus lists orders currently in the given status.
	ByStatus(ctx context.Context, status string) ([]model.StoredOrder, error)
}
