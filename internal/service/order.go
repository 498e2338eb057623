package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/repository"
)

// feedLimit caps how many orders one feed frame carries.
const feedLimit = 50

// OrderService defines order placement and feed assembly.
type OrderService interface {
	// Create validates ingredient IDs against the catalog, names the order
	// after its bun and stores it.
	Create(ctx context.Context, userID uuid.UUID, ingredientIDs []string) (*model.Order, error)
	// ByNumber loads one order by its public number.
	ByNumber(ctx context.Context, number int) (*model.Order, error)
	// Ingredients returns the catalog.
	Ingredients() []model.Ingredient
	// PublicSnapshot builds the all-orders feed frame.
	PublicSnapshot(ctx context.Context) (*model.FeedSnapshot, error)
	// UserSnapshot builds the feed frame scoped to one account.
	UserSnapshot(ctx context.Context, userID uuid.UUID) (*model.FeedSnapshot, error)
	// AdvanceStatuses moves created orders to pending and pending to done.
	AdvanceStatuses(ctx context.Context) (int, error)
}

type OrderServiceImpl struct {
	orders  repository.OrderRepository
	catalog []model.Ingredient
	byID    map[string]model.Ingredient
}

// NewOrderService constructs OrderService over the given catalog.
func NewOrderService(orders repository.OrderRepository, catalog []model.Ingredient) *OrderServiceImpl {
	byID := make(map[string]model.Ingredient, len(catalog))
	for _, ing := range catalog {
		byID[ing.ID] = ing
	}
	return &OrderServiceImpl{orders: orders, catalog: catalog, byID: byID}
}

// Create checks every ingredient against the catalog and requires a bun.
func (s *OrderServiceImpl) Create(ctx context.Context, userID uuid.UUID, ingredientIDs []string) (*model.Order, error) {
	if len(ingredientIDs) == 0 {
		return nil, fmt.Errorf("validation: empty ingredient list")
	}
	var bun *model.Ingredient
	for _, id := range ingredientIDs {
		ing, ok := s.byID[id]
		if !ok {
			return nil, fmt.Errorf("validation: unknown ingredient %q", id)
		}
		if ing.Type == model.TypeBun && bun == nil {
			b := ing
			bun = &b
		}
	}
	if bun == nil {
		return nil, fmt.Errorf("validation: an order needs a bun")
	}

	oid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	stored := &model.StoredOrder{
		Order: model.Order{
			ID:          oid.String(),
			Ingredients: append([]string(nil), ingredientIDs...),
			Status:      model.StatusCreated,
			Name:        orderName(bun.Name),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		UserID: userID,
	}
	if err := s.orders.Create(ctx, stored); err != nil {
		return nil, err
	}
	o := stored.Order
	return &o, nil
}

// ByNumber loads one order by its public number.
func (s *OrderServiceImpl) ByNumber(ctx context.Context, number int) (*model.Order, error) {
	stored, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	o := stored.Order
	return &o, nil
}

// Ingredients returns the catalog.
func (s *OrderServiceImpl) Ingredients() []model.Ingredient {
	return s.catalog
}

// PublicSnapshot builds the all-orders feed frame.
func (s *OrderServiceImpl) PublicSnapshot(ctx context.Context) (*model.FeedSnapshot, error) {
	stored, total, today, err := s.orders.Recent(ctx, feedLimit)
	if err != nil {
		return nil, err
	}
	return snapshot(stored, total, today), nil
}

// UserSnapshot builds the feed frame scoped to one account.
func (s *OrderServiceImpl) UserSnapshot(ctx context.Context, userID uuid.UUID) (*model.FeedSnapshot, error) {
	stored, total, today, err := s.orders.RecentByUser(ctx, userID, feedLimit)
	if err != nil {
		return nil, err
	}
	return snapshot(stored, total, today), nil
}

// AdvanceStatuses moves every created order to pending and every pending
// order to done, returning how many orders changed.
func (s *OrderServiceImpl) AdvanceStatuses(ctx context.Context) (int, error) {
	moved := 0
	// pending first so a created order does not jump straight to done
	pending, err := s.orders.ByStatus(ctx, model.StatusPending)
	if err != nil {
		return 0, err
	}
	for i := range pending {
		if err := s.orders.SetStatus(ctx, pending[i].ID, model.StatusDone); err != nil {
			return moved, err
		}
		moved++
	}
	created, err := s.orders.ByStatus(ctx, model.StatusCreated)
	if err != nil {
		return moved, err
	}
	for i := range created {
		if err := s.orders.SetStatus(ctx, created[i].ID, model.StatusPending); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func snapshot(stored []model.StoredOrder, total, today int) *model.FeedSnapshot {
	orders := make([]model.Order, 0, len(stored))
	for i := range stored {
		orders = append(orders, stored[i].Order)
	}
	return &model.FeedSnapshot{Orders: orders, Total: total, TotalToday: today}
}

// orderName derives the dish name from its bun, e.g. "Krator space burger".
func orderName(bunName string) string {
	base := bunName
	if i := strings.Index(base, " bun"); i > 0 {
		base = base[:i]
	}
	return base + " space burger"
}
