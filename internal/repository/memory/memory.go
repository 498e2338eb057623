// Package memory holds the dev server's in-process storage. Nothing here
// survives a restart; the companion server exists for development and tests,
// not as a system of record.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/errs"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/repository"
)

// Accounts is an in-memory AccountRepository keyed by email.
type Accounts struct {
	mu      sync.Mutex
	byEmail map[string]*model.Account
}

var _ repository.AccountRepository = (*Accounts)(nil)

// NewAccounts constructs an empty account store.
func NewAccounts() *Accounts {
	return &Accounts{byEmail: make(map[string]*model.Account)}
}

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts a new account; errs.ErrAlreadyExists on a taken email.
func (r *Accounts) Create(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := normEmail(a.Email)
	if _, exists := r.byEmail[k]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *a
	r.byEmail[k] = &cpy
	return nil
}

// GetByID loads an account by ID.
func (r *Accounts) GetByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byEmail {
		if a.ID == id {
			cpy := *a
			return &cpy, nil
		}
	}
	return nil, errs.ErrNotFound
}

// GetByEmail loads an account by email.
func (r *Accounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byEmail[normEmail(email)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cpy := *a
	return &cpy, nil
}

// Update overwrites the mutable fields, re-keying when the email changed.
func (r *Accounts) Update(_ context.Context, a *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, cur := range r.byEmail {
		if cur.ID == a.ID {
			nk := normEmail(a.Email)
			if nk != k {
				if _, taken := r.byEmail[nk]; taken {
					return errs.ErrAlreadyExists
				}
				delete(r.byEmail, k)
			}
			cpy := *a
			r.byEmail[nk] = &cpy
			return nil
		}
	}
	return errs.ErrNotFound
}

type refreshEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// RefreshTokens is an in-memory RefreshTokenRepository.
type RefreshTokens struct {
	mu     sync.Mutex
	byHash map[string]refreshEntry
	now    func() time.Time
}

var _ repository.RefreshTokenRepository = (*RefreshTokens)(nil)

// NewRefreshTokens constructs an empty refresh token store.
func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{byHash: make(map[string]refreshEntry), now: time.Now}
}

// Save registers a token hash for a user with an expiry.
func (r *RefreshTokens) Save(_ context.Context, tokenHash []byte, userID uuid.UUID, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[string(tokenHash)] = refreshEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

// Consume removes the hash and returns its owner. Unknown and expired hashes
// both map to errs.ErrUnauthorized so callers cannot distinguish them.
func (r *RefreshTokens) Consume(_ context.Context, tokenHash []byte) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byHash[string(tokenHash)]
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	delete(r.byHash, string(tokenHash))
	if r.now().After(e.expiresAt) {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return e.userID, nil
}

// Orders is an in-memory OrderRepository with monotonically growing numbers.
type Orders struct {
	mu     sync.Mutex
	orders []model.StoredOrder
	next   int
	now    func() time.Time
}

var _ repository.OrderRepository = (*Orders)(nil)

// NewOrders constructs an empty order store. Numbering starts high enough to
// look like the production counter rather than 1.
func NewOrders() *Orders {
	return &Orders{next: 10001, now: time.Now}
}

// Create assigns the next public number and stores the order.
func (r *Orders) Create(_ context.Context, o *model.StoredOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.Number = r.next
	r.next++
	cpy := *o
	cpy.Ingredients = append([]string(nil), o.Ingredients...)
	r.orders = append(r.orders, cpy)
	return nil
}

// GetByNumber loads one order.
func (r *Orders) GetByNumber(_ context.Context, number int) (*model.StoredOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].Number == number {
			cpy := r.orders[i]
			return &cpy, nil
		}
	}
	return nil, errs.ErrNotFound
}

// Recent returns up to limit newest orders plus totals.
func (r *Orders) Recent(_ context.Context, limit int) ([]model.StoredOrder, int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentLocked(limit, func(model.StoredOrder) bool { return true })
}

// RecentByUser is Recent scoped to one owner.
func (r *Orders) RecentByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.StoredOrder, int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentLocked(limit, func(o model.StoredOrder) bool { return o.UserID == userID })
}

func (r *Orders) recentLocked(limit int, match func(model.StoredOrder) bool) ([]model.StoredOrder, int, int, error) {
	var out []model.StoredOrder
	total, today := 0, 0
	midnight := r.now().Truncate(24 * time.Hour)
	for i := range r.orders {
		if !match(r.orders[i]) {
			continue
		}
		total++
		if !r.orders[i].CreatedAt.Before(midnight) {
			today++
		}
		cpy := r.orders[i]
		cpy.Ingredients = append([]string(nil), cpy.Ingredients...)
		out = append(out, cpy)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, today, nil
}

// SetStatus advances one order's status.
func (r *Orders) SetStatus(_ context.Context, id string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders[i].Status = status
			r.orders[i].UpdatedAt = r.now()
			return nil
		}
	}
	return errs.ErrNotFound
}

// ByStatus lists orders currently in the given status.
func (r *Orders) ByStatus(_ context.Context, status string) ([]model.StoredOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StoredOrder
	for i := range r.orders {
		if r.orders[i].Status == status {
			cpy := r.orders[i]
			out = append(out, cpy)
		}
	}
	return out, nil
}
