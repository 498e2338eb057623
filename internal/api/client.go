// Package api implements the REST gateway to the storefront API.
//
// The gateway is deliberately stateless: it never reads or writes the token
// store, callers pass the bearer token explicitly. Every response is the
// {success, ...} envelope; failures come back as *Error with a structured
// Kind so callers branch on structure instead of matching message text.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/errs"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

// Kind classifies gateway failures.
type Kind int

const (
	// KindNetwork is a transport-level failure: the request never produced a
	// decodable response.
	KindNetwork Kind = iota + 1
	// KindUnauthorized is an expired/missing/invalid token rejection.
	KindUnauthorized
	// KindRejected is a success=false envelope with a server-supplied message.
	KindRejected
)

// Error is the gateway's failure type.
type Error struct {
	Kind    Kind
	Status  int // HTTP status; 0 for transport failures
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("request failed (status %d)", e.Status)
}

// Unwrap maps unauthorized rejections onto the shared sentinel so callers can
// use errors.Is(err, errs.ErrUnauthorized).
func (e *Error) Unwrap() error {
	if e.Kind == KindUnauthorized {
		return errs.ErrUnauthorized
	}
	return e.cause
}

// Client talks to one API origin.
type Client struct {
	base string
	http *http.Client
}

// New constructs a Client for the given base URL ("https://host/api").
// A nil httpClient selects a default with a request timeout.
func New(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: httpClient}
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// do performs one call and decodes the envelope into out (may be nil).
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindNetwork, Message: "encode request body", cause: err}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return &Error{Kind: KindNetwork, cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "server unreachable", cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "read response body", cause: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "malformed response body", cause: err}
	}

	if !env.Success || resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindRejected
		// 401 is always a token problem. 403 is overloaded: the API uses
		// it for token failures and for business rejections like a taken
		// email, told apart only by the message.
		if resp.StatusCode == http.StatusUnauthorized ||
			(resp.StatusCode == http.StatusForbidden && tokenFailure(env.Message)) {
			kind = KindUnauthorized
		}
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("request rejected (status %d)", resp.StatusCode)
		}
		return &Error{Kind: kind, Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: KindNetwork, Status: resp.StatusCode, Message: "malformed response body", cause: err}
		}
	}
	return nil
}

type authResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         model.User `json:"user"`
}

// stripBearer drops the transport-level prefix some endpoints embed in the
// access token string; tokens are always stored bare.
func stripBearer(tok string) string {
	return strings.TrimPrefix(tok, "Bearer ")
}

// tokenFailure reports whether a 403 message carries one of the token-problem
// signatures the API uses ("jwt expired", "jwt malformed", "Token is
// invalid", "You should be authorised") rather than a business rejection.
func tokenFailure(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "jwt") ||
		strings.Contains(m, "token") ||
		strings.Contains(m, "authorised") ||
		strings.Contains(m, "authorized")
}

// Login exchanges credentials for a token pair and the user profile.
func (c *Client) Login(ctx context.Context, email, password string) (model.TokenPair, model.User, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	return model.TokenPair{AccessToken: stripBearer(out.AccessToken), RefreshToken: out.RefreshToken}, out.User, nil
}

// Register creates an account; same response shape as Login.
func (c *Client) Register(ctx context.Context, email, password, name string) (model.TokenPair, model.User, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &out)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	return model.TokenPair{AccessToken: stripBearer(out.AccessToken), RefreshToken: out.RefreshToken}, out.User, nil
}

// User fetches the current profile with the given access token.
func (c *Client) User(ctx context.Context, access string) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/user", access, nil, &out); err != nil {
		return model.User{}, err
	}
	return out.User, nil
}

// UpdateUser patches the profile. The server may rotate tokens alongside the
// updated profile; the returned pair is zero when it did not.
func (c *Client) UpdateUser(ctx context.Context, access string, patch model.UserPatch) (model.User, model.TokenPair, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPatch, "/auth/user", access, patch, &out); err != nil {
		return model.User{}, model.TokenPair{}, err
	}
	return out.User, model.TokenPair{AccessToken: stripBearer(out.AccessToken), RefreshToken: out.RefreshToken}, nil
}

// Refresh mints a new token pair from a refresh token. The access token may
// arrive with an embedded "Bearer " prefix; it is stripped here so that only
// bare tokens are ever stored.
func (c *Client) Refresh(ctx context.Context, refresh string) (model.TokenPair, error) {
	var out authResponse
	err := c.do(ctx, http.MethodPost, "/auth/token", "", map[string]string{"token": refresh}, &out)
	if err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{AccessToken: stripBearer(out.AccessToken), RefreshToken: out.RefreshToken}, nil
}

// Logout invalidates the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", "", map[string]string{"token": refresh}, nil)
}

// Ingredients fetches the catalog.
func (c *Client) Ingredients(ctx context.Context) ([]model.Ingredient, error) {
	var out struct {
		Data []model.Ingredient `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/ingredients", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateOrder places an order and returns its number.
func (c *Client) CreateOrder(ctx context.Context, access string, ingredientIDs []string) (int, error) {
	var out struct {
		Order struct {
			Number int `json:"number"`
		} `json:"order"`
	}
	err := c.do(ctx, http.MethodPost, "/orders", access, map[string][]string{"ingredients": ingredientIDs}, &out)
	if err != nil {
		return 0, err
	}
	return out.Order.Number, nil
}

// Order fetches a single order by its public number.
func (c *Client) Order(ctx context.Context, number int) (model.Order, error) {
	var out struct {
		Orders []model.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", number), "", nil, &out); err != nil {
		return model.Order{}, err
	}
	if len(out.Orders) == 0 {
		return model.Order{}, &Error{Kind: KindRejected, Status: http.StatusNotFound, Message: "order not found"}
	}
	return out.Orders[0], nil
}
