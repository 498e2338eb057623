// Package order submits the composed burger and fetches order details.
package order

import (
	"context"
	"errors"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/burger"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/errs"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

// API is the subset of the REST gateway the order flow drives.
type API interface {
	// CreateOrder places an order and returns its public number.
	CreateOrder(ctx context.Context, access string, ingredientIDs []string) (int, error)
	// Order fetches a single order by number.
	Order(ctx context.Context, number int) (model.Order, error)
}

// Tokens is the slice of the auth session the order flow needs.
type Tokens interface {
	AccessToken() string
	Refresh(ctx context.Context) (model.TokenPair, error)
}

// Service combines the construction list with the auth session to place
// orders.
type Service struct {
	api     API
	session Tokens
	builder *burger.Builder
}

// NewService constructs the order flow over its collaborators.
func NewService(api API, session Tokens, builder *burger.Builder) *Service {
	return &Service{api: api, session: session, builder: builder}
}

// Place submits the current composition and returns the order number. The
// construction list is cleared only on success. A missing or expired access
// token triggers one refresh-then-retry cycle before the failure surfaces.
func (s *Service) Place(ctx context.Context) (int, error) {
	ids := s.builder.IngredientIDs()
	if ids == nil {
		return 0, errors.New("nothing to order: pick a bun first")
	}

	access := s.session.AccessToken()
	if access == "" {
		pair, err := s.session.Refresh(ctx)
		if err != nil {
			return 0, err
		}
		access = pair.AccessToken
	}

	number, err := s.api.CreateOrder(ctx, access, ids)
	if errors.Is(err, errs.ErrUnauthorized) {
		var pair model.TokenPair
		if pair, err = s.session.Refresh(ctx); err == nil {
			number, err = s.api.CreateOrder(ctx, pair.AccessToken, ids)
		}
	}
	if err != nil {
		return 0, err
	}

	s.builder.Clear()
	return number, nil
}

// ByNumber fetches one order for the order-detail view.
func (s *Service) ByNumber(ctx context.Context, number int) (model.Order, error) {
	return s.api.Order(ctx, number)
}
