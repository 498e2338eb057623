// Package model defines domain entities shared by the client and the dev server.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// TokenPair collects issued access/refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics only, never validated locally)
}

// Empty reports whether neither token is present.
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// User is the profile record returned by the API. Passwords never leave the server.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserPatch carries the mutable profile fields for a partial update.
// Nil fields are left unchanged.
type UserPatch struct {
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Ingredient catalog types.
const (
	TypeBun   = "bun"
	TypeSauce = "sauce"
	TypeMain  = "main"
)

// Ingredient is a single catalog entry the burger is composed from.
type Ingredient struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Type          string `json:"type"` // bun | sauce | main
	Proteins      int    `json:"proteins"`
	Fat           int    `json:"fat"`
	Carbohydrates int    `json:"carbohydrates"`
	Calories      int    `json:"calories"`
	Price         int    `json:"price"`
	Image         string `json:"image"`
	ImageMobile   string `json:"image_mobile"`
	ImageLarge    string `json:"image_large"`
}

// Order statuses as reported by the feed.
const (
	StatusCreated = "created"
	StatusPending = "pending"
	StatusDone    = "done"
)

// Order is immutable once received; the client only ever replaces it with a
// fresh snapshot or a targeted fetch, never mutates it in place.
type Order struct {
	ID          string    `json:"_id"`
	Ingredients []string  `json:"ingredients"`
	Status      string    `json:"status"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Number      int       `json:"number"`
}

// FeedSnapshot is one wholesale feed frame: the order list plus running totals.
// Every frame replaces the previous one entirely; frames are never merged.
type FeedSnapshot struct {
	Orders     []Order `json:"orders"`
	Total      int     `json:"total"`
	TotalToday int     `json:"totalToday"`
}

// Account is a registered account as stored by the dev server. The password
// hash never leaves the server.
type Account struct {
	ID        uuid.UUID
	Email     string
	Name      string
	PwdHash   []byte
	CreatedAt time.Time
}

// Profile is the API-visible slice of an account.
func (a Account) Profile() User {
	return User{Email: a.Email, Name: a.Name}
}

// StoredOrder couples an order with its owner for the per-user feed.
type StoredOrder struct {
	Order
	UserID uuid.UUID
}
