package order

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/burger"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/errs"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

type fakeOrderAPI struct {
	validAccess string
	number      int
	createCalls int
	lastIDs     []string

	order model.Order
}

var _ API = (*fakeOrderAPI)(nil)

func (f *fakeOrderAPI) CreateOrder(_ context.Context, access string, ids []string) (int, error) {
	f.createCalls++
	f.lastIDs = ids
	if access != f.validAccess {
		return 0, fmt.Errorf("jwt expired: %w", errs.ErrUnauthorized)
	}
	return f.number, nil
}

func (f *fakeOrderAPI) Order(context.Context, int) (model.Order, error) {
	return f.order, nil
}

type fakeTokens struct {
	access       string
	refreshed    model.TokenPair
	refreshErr   error
	refreshCalls int
}

var _ Tokens = (*fakeTokens)(nil)

func (f *fakeTokens) AccessToken() string { return f.access }

func (f *fakeTokens) Refresh(context.Context) (model.TokenPair, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return model.TokenPair{}, f.refreshErr
	}
	return f.refreshed, nil
}

func composed() *burger.Builder {
	b := burger.New()
	b.SetBun(model.Ingredient{ID: "bun-1", Type: model.TypeBun, Price: 1255})
	b.AddIngredient(model.Ingredient{ID: "f1", Type: model.TypeMain, Price: 424})
	return b
}

func TestPlace_Success_ClearsBuilder(t *testing.T) {
	t.Parallel()
	api := &fakeOrderAPI{validAccess: "acc", number: 777}
	b := composed()
	s := NewService(api, &fakeTokens{access: "acc"}, b)

	num, err := s.Place(context.Background())
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if num != 777 {
		t.Fatalf("number = %d, want 777", num)
	}
	want := []string{"bun-1", "f1", "bun-1"}
	if len(api.lastIDs) != len(want) {
		t.Fatalf("ids = %v, want %v", api.lastIDs, want)
	}
	for i := range want {
		if api.lastIDs[i] != want[i] {
			t.Fatalf("ids = %v, want %v", api.lastIDs, want)
		}
	}
	if b.Bun() != nil || len(b.Fillings()) != 0 {
		t.Fatalf("builder must be cleared on success")
	}
}

func TestPlace_ExpiredToken_RefreshThenRetry(t *testing.T) {
	t.Parallel()
	api := &fakeOrderAPI{validAccess: "acc-new", number: 778}
	tokens := &fakeTokens{access: "acc-stale", refreshed: model.TokenPair{AccessToken: "acc-new"}}
	s := NewService(api, tokens, composed())

	num, err := s.Place(context.Background())
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if num != 778 || tokens.refreshCalls != 1 || api.createCalls != 2 {
		t.Fatalf("num=%d refreshes=%d creates=%d", num, tokens.refreshCalls, api.createCalls)
	}
}

func TestPlace_NoToken_RefreshFirst(t *testing.T) {
	t.Parallel()
	api := &fakeOrderAPI{validAccess: "acc-new", number: 779}
	tokens := &fakeTokens{refreshed: model.TokenPair{AccessToken: "acc-new"}}
	s := NewService(api, tokens, composed())

	if _, err := s.Place(context.Background()); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if tokens.refreshCalls != 1 || api.createCalls != 1 {
		t.Fatalf("refreshes=%d creates=%d", tokens.refreshCalls, api.createCalls)
	}
}

func TestPlace_RefreshFailurePropagates(t *testing.T) {
	t.Parallel()
	api := &fakeOrderAPI{validAccess: "acc"}
	tokens := &fakeTokens{refreshErr: errs.ErrNoRefreshToken}
	b := composed()
	s := NewService(api, tokens, b)

	_, err := s.Place(context.Background())
	if !errors.Is(err, errs.ErrNoRefreshToken) {
		t.Fatalf("want ErrNoRefreshToken, got %v", err)
	}
	if api.createCalls != 0 {
		t.Fatalf("order must not be attempted without a token")
	}
	if b.Bun() == nil {
		t.Fatalf("builder must be kept on failure")
	}
}

func TestPlace_WithoutBun(t *testing.T) {
	t.Parallel()
	s := NewService(&fakeOrderAPI{}, &fakeTokens{access: "acc"}, burger.New())
	if _, err := s.Place(context.Background()); err == nil {
		t.Fatalf("want error for bunless composition")
	}
}
