// Package auth owns the client session: login, logout, registration, token
// refresh and the profile. All flows funnel persisted tokens through the
// token store and surface failures as messages on the session rather than
// letting them escape to the UI layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/errs"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/tokenstore"
)

// API is the subset of the REST gateway the session manager drives.
type API interface {
	// Login exchanges credentials for a token pair and the profile.
	Login(ctx context.Context, email, password string) (model.TokenPair, model.User, error)
	// Register creates an account; same contract as Login.
	Register(ctx context.Context, email, password, name string) (model.TokenPair, model.User, error)
	// User fetches the profile with an access token.
	User(ctx context.Context, access string) (model.User, error)
	// UpdateUser patches the profile; the returned pair is zero unless rotated.
	UpdateUser(ctx context.Context, access string, patch model.UserPatch) (model.User, model.TokenPair, error)
	// Refresh mints a new pair from a refresh token.
	Refresh(ctx context.Context, refresh string) (model.TokenPair, error)
	// Logout invalidates a refresh token server-side.
	Logout(ctx context.Context, refresh string) error
}

// Session is an observable snapshot of the authentication state.
type Session struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
	Loading      bool
	Err          string
	// AuthChecked flips to true exactly once, when the first Initialize
	// cycle reaches a terminal branch, and never reverts — not even on
	// logout.
	AuthChecked bool
}

// Manager is the auth session state machine.
type Manager struct {
	api   API
	store *tokenstore.Store
	log   *zap.Logger

	mu         sync.Mutex
	sess       Session
	refreshGen uint64

	// refreshMu serializes refresh cycles: concurrent triggers coalesce into
	// a single rotation instead of racing and double-rotating the refresh
	// token.
	refreshMu sync.Mutex
}

// NewManager constructs a Manager. A nil logger is replaced with a no-op one.
func NewManager(api API, store *tokenstore.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{api: api, store: store, log: log}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copySessionLocked()
}

func (m *Manager) copySessionLocked() Session {
	s := m.sess
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// AccessToken returns the current access token, empty when anonymous.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.AccessToken
}

// Initialize resolves the persisted tokens into a terminal session state.
// Every branch ends with AuthChecked=true and Loading=false; Initialize
// itself never fails, it only lands in anonymous when tokens are unusable.
func (m *Manager) Initialize(ctx context.Context) Session {
	m.begin()
	m.resolveStartup(ctx)
	m.finishCheck()
	return m.Snapshot()
}

func (m *Manager) resolveStartup(ctx context.Context) {
	pair, err := m.store.Load()
	if err != nil {
		m.log.Warn("token store unreadable", zap.Error(err))
		m.setAnonymous()
		return
	}

	switch {
	case pair.AccessToken != "":
		user, uerr := m.api.User(ctx, pair.AccessToken)
		if uerr == nil {
			// The user-fetch response carries no refresh token; it comes
			// from the store.
			m.setAuthenticated(user, pair)
			return
		}
		m.log.Debug("stored access token rejected", zap.Error(uerr))
		if pair.RefreshToken != "" {
			// refresh() tears the session down itself when it fails.
			if _, rerr := m.refresh(ctx); rerr != nil {
				m.log.Debug("startup refresh failed", zap.Error(rerr))
			}
			return
		}
		// Unusable access token and nothing to refresh with.
		if cerr := m.store.Clear(); cerr != nil {
			m.log.Warn("token store clear failed", zap.Error(cerr))
		}
		m.setAnonymous()

	case pair.RefreshToken != "":
		if _, rerr := m.refresh(ctx); rerr != nil {
			m.log.Debug("startup refresh failed", zap.Error(rerr))
		}

	default:
		m.setAnonymous()
	}
}

// Login authenticates with credentials and persists the returned pair.
func (m *Manager) Login(ctx context.Context, email, password string) (model.User, error) {
	m.begin()
	defer m.end()

	pair, user, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.setErr(err)
		return model.User{}, err
	}
	pair.ExpiresAt = accessExpiry(pair.AccessToken)
	m.persist(pair)
	m.setAuthenticated(user, pair)
	return user, nil
}

// Register creates an account; same contract as Login, different endpoint.
func (m *Manager) Register(ctx context.Context, email, password, name string) (model.User, error) {
	m.begin()
	defer m.end()

	pair, user, err := m.api.Register(ctx, email, password, name)
	if err != nil {
		m.setErr(err)
		return model.User{}, err
	}
	pair.ExpiresAt = accessExpiry(pair.AccessToken)
	m.persist(pair)
	m.setAuthenticated(user, pair)
	return user, nil
}

// Logout is a never-fails teardown: the server call is best-effort, local
// state is cleared regardless of its outcome.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	refresh := m.sess.RefreshToken
	m.mu.Unlock()
	if refresh == "" {
		if stored, err := m.store.Load(); err == nil {
			refresh = stored.RefreshToken
		}
	}

	if refresh != "" {
		if err := m.api.Logout(ctx, refresh); err != nil {
			m.log.Warn("server logout failed", zap.Error(err))
		}
	}
	if err := m.store.Clear(); err != nil {
		m.log.Warn("token store clear failed", zap.Error(err))
	}
	m.setAnonymous()
}

// FetchUser returns the current profile, refreshing the access token once
// when it is absent or rejected as expired.
func (m *Manager) FetchUser(ctx context.Context) (model.User, error) {
	access := m.AccessToken()
	if access == "" {
		pair, err := m.refresh(ctx)
		if err != nil {
			return model.User{}, err
		}
		access = pair.AccessToken
	}

	user, err := m.api.User(ctx, access)
	if err == nil {
		m.setUser(user)
		return user, nil
	}
	if errors.Is(err, errs.ErrUnauthorized) {
		pair, rerr := m.refresh(ctx)
		if rerr != nil {
			// refresh() already forced logout as a side effect
			return model.User{}, rerr
		}
		user, err = m.api.User(ctx, pair.AccessToken)
		if err == nil {
			m.setUser(user)
			return user, nil
		}
	}
	m.setErr(err)
	return model.User{}, err
}

// UpdateUser patches the mutable profile fields. Fails with
// errs.ErrMissingAccessToken when no token is available; persists any pair
// the server rotates alongside the updated profile.
func (m *Manager) UpdateUser(ctx context.Context, patch model.UserPatch) (model.User, error) {
	access := m.AccessToken()
	if access == "" {
		return model.User{}, errs.ErrMissingAccessToken
	}

	user, pair, err := m.api.UpdateUser(ctx, access, patch)
	if errors.Is(err, errs.ErrUnauthorized) {
		var fresh model.TokenPair
		if fresh, err = m.refresh(ctx); err == nil {
			user, pair, err = m.api.UpdateUser(ctx, fresh.AccessToken, patch)
		}
	}
	if err != nil {
		m.setErr(err)
		return model.User{}, err
	}

	if !pair.Empty() {
		pair.ExpiresAt = accessExpiry(pair.AccessToken)
		m.persist(pair)
		m.mu.Lock()
		m.sess.AccessToken = pair.AccessToken
		m.sess.RefreshToken = pair.RefreshToken
		m.mu.Unlock()
	}
	m.setUser(user)
	return user, nil
}

// Refresh rotates the token pair. See refresh for semantics.
func (m *Manager) Refresh(ctx context.Context) (model.TokenPair, error) {
	return m.refresh(ctx)
}

// refresh performs one serialized refresh cycle.
//
// Fails with errs.ErrNoRefreshToken when nothing is persisted, and with
// errs.ErrRefreshFailed when the refresh call is rejected — the latter tears
// the local session down first. A successful rotation then makes one
// best-effort profile fetch; that fetch failing does NOT fail the refresh,
// the session just carries a nil user until the next FetchUser.
func (m *Manager) refresh(ctx context.Context) (model.TokenPair, error) {
	m.mu.Lock()
	startGen := m.refreshGen
	m.mu.Unlock()

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.Lock()
	if m.refreshGen != startGen && m.sess.AccessToken != "" {
		// Another caller rotated while we waited; reuse its result.
		pair := model.TokenPair{AccessToken: m.sess.AccessToken, RefreshToken: m.sess.RefreshToken}
		m.mu.Unlock()
		return pair, nil
	}
	m.mu.Unlock()

	stored, err := m.store.Load()
	if err != nil {
		m.log.Warn("token store unreadable", zap.Error(err))
	}
	if stored.RefreshToken == "" {
		m.setAnonymous()
		return model.TokenPair{}, errs.ErrNoRefreshToken
	}

	pair, err := m.api.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		m.log.Debug("token refresh rejected", zap.Error(err))
		m.Logout(ctx)
		m.setErrMsg(err.Error())
		return model.TokenPair{}, fmt.Errorf("%w: %v", errs.ErrRefreshFailed, err)
	}

	pair.ExpiresAt = accessExpiry(pair.AccessToken)
	m.persist(pair)
	m.mu.Lock()
	m.sess.AccessToken = pair.AccessToken
	m.sess.RefreshToken = pair.RefreshToken
	m.refreshGen++
	m.mu.Unlock()

	if user, uerr := m.api.User(ctx, pair.AccessToken); uerr == nil {
		m.setUser(user)
	} else {
		m.log.Warn("profile fetch after refresh failed", zap.Error(uerr))
		m.mu.Lock()
		m.sess.User = nil
		m.mu.Unlock()
	}
	return pair, nil
}

// --- state helpers ---

func (m *Manager) begin() {
	m.mu.Lock()
	m.sess.Loading = true
	m.sess.Err = ""
	m.mu.Unlock()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.sess.Loading = false
	m.mu.Unlock()
}

func (m *Manager) finishCheck() {
	m.mu.Lock()
	m.sess.Loading = false
	m.sess.AuthChecked = true
	m.mu.Unlock()
}

func (m *Manager) setAuthenticated(user model.User, pair model.TokenPair) {
	m.mu.Lock()
	u := user
	m.sess.User = &u
	m.sess.AccessToken = pair.AccessToken
	m.sess.RefreshToken = pair.RefreshToken
	m.sess.Err = ""
	m.mu.Unlock()
}

func (m *Manager) setAnonymous() {
	m.mu.Lock()
	m.sess.User = nil
	m.sess.AccessToken = ""
	m.sess.RefreshToken = ""
	m.mu.Unlock()
}

func (m *Manager) setUser(user model.User) {
	m.mu.Lock()
	u := user
	m.sess.User = &u
	m.mu.Unlock()
}

func (m *Manager) setErr(err error) {
	m.setErrMsg(err.Error())
}

func (m *Manager) setErrMsg(msg string) {
	m.mu.Lock()
	m.sess.Err = msg
	m.mu.Unlock()
}

func (m *Manager) persist(pair model.TokenPair) {
	if err := m.store.Save(pair); err != nil {
		m.log.Warn("token store save failed", zap.Error(err))
	}
}

// accessExpiry extracts the exp claim without verifying the signature. The
// value is stored for diagnostics only; token validity is always discovered
// by the server rejecting a request.
func accessExpiry(tok string) time.Time {
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(tok, &claims,
		func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Time{}
}
