// Package service contains application services for authentication and orders.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/errs"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/limiter"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/repository"
)

// AuthService defines account and token operations.
type AuthService interface {
	// Register creates a new account and issues a token pair.
	Register(ctx context.Context, email, password, name string) (model.TokenPair, model.User, error)
	// LoginWithIP applies rate-limiting and authenticates the account.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.TokenPair, model.User, error)
	// Refresh exchanges a refresh token for a fresh pair. The presented
	// token is consumed; a second exchange with it fails.
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	// Logout revokes a refresh token.
	Logout(ctx context.Context, refreshToken string) error
	// UserByID loads the profile behind an access token subject.
	UserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	// UpdateUser applies a partial profile update.
	UpdateUser(ctx context.Context, id uuid.UUID, patch model.UserPatch) (model.User, error)
	// ParseAccess validates a signed access token and returns its subject.
	ParseAccess(token string) (uuid.UUID, error)
}

type AuthServiceImpl struct {
	accounts   repository.AccountRepository
	refresh    repository.RefreshTokenRepository
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	lim        limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(accounts repository.AccountRepository, refresh repository.RefreshTokenRepository, signKey []byte, accessTTL, refreshTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{
		accounts:   accounts,
		refresh:    refresh,
		signKey:    signKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		lim:        lim,
	}
}

// Register creates an account with a bcrypt password hash.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, name string) (model.TokenPair, model.User, error) {
	if email == "" || password == "" || name == "" {
		return model.TokenPair{}, model.User{}, errors.New("email, password and name are required")
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	a := &model.Account{
		ID:        uid,
		Email:     email,
		Name:      name,
		PwdHash:   hash,
		CreatedAt: time.Now(),
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	pair, err := s.issuePair(ctx, uid)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	return pair, a.Profile(), nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.TokenPair, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	if !allowed {
		return model.TokenPair{}, model.User{}, errs.ErrRateLimited
	}

	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil || bcrypt.CompareHashAndPassword(a.PwdHash, []byte(password)) != nil {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.TokenPair{}, model.User{}, errs.ErrRateLimited
		}
		// hide account existence on wrong password
		return model.TokenPair{}, model.User{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	pair, err := s.issuePair(ctx, a.ID)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	return pair, a.Profile(), nil
}

// Refresh consumes the presented refresh token and issues a new pair.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if refreshToken == "" {
		return model.TokenPair{}, errs.ErrUnauthorized
	}
	userID, err := s.refresh.Consume(ctx, hashToken(refreshToken))
	if err != nil {
		return model.TokenPair{}, err
	}
	return s.issuePair(ctx, userID)
}

// Logout revokes the refresh token. An already-consumed token is not an error.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errs.ErrUnauthorized
	}
	if _, err := s.refresh.Consume(ctx, hashToken(refreshToken)); err != nil && !errors.Is(err, errs.ErrUnauthorized) {
		return err
	}
	return nil
}

// UserByID loads the profile for an authenticated subject.
func (s *AuthServiceImpl) UserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	return a.Profile(), nil
}

// UpdateUser applies the non-nil patch fields and persists the account.
func (s *AuthServiceImpl) UpdateUser(ctx context.Context, id uuid.UUID, patch model.UserPatch) (model.User, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if patch.Email != nil {
		a.Email = *patch.Email
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Password != nil {
		hash, herr := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if herr != nil {
			return model.User{}, herr
		}
		a.PwdHash = hash
	}
	if err := s.accounts.Update(ctx, a); err != nil {
		return model.User{}, err
	}
	return a.Profile(), nil
}

// ParseAccess validates an HS256 access token and extracts the subject.
func (s *AuthServiceImpl) ParseAccess(token string) (uuid.UUID, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errs.ErrUnauthorized
	}
	uid, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return uid, nil
}

// issuePair creates a signed access token plus an opaque refresh token and
// records the refresh token's hash.
func (s *AuthServiceImpl) issuePair(ctx context.Context, userID uuid.UUID) (model.TokenPair, error) {
	access, exp, err := s.issueAccessToken(userID)
	if err != nil {
		return model.TokenPair{}, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return model.TokenPair{}, err
	}
	refreshToken := hex.EncodeToString(raw)
	if err := s.refresh.Save(ctx, hashToken(refreshToken), userID, time.Now().Add(s.refreshTTL)); err != nil {
		return model.TokenPair{}, err
	}
	return model.TokenPair{AccessToken: access, RefreshToken: refreshToken, ExpiresAt: exp}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
