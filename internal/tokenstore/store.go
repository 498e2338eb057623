// Package tokenstore persists the access/refresh token pair across runs.
//
// The pair lives in a primary token file; the refresh token is additionally
// duplicated into a fallback file so that losing the primary file (or an
// expired access entry being cleaned up) does not force a full re-login.
package tokenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

const (
	tokenFileName   = "token.json"
	refreshFileName = "refresh_token"
)

type tokenFile struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Store reads and writes tokens under a single directory.
type Store struct {
	dir string
}

// DefaultDir returns the per-user config dir for the client.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "stellar-burger")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stellar-burger")
}

// New constructs a Store rooted at dir; empty dir selects DefaultDir.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{dir: dir}
}

// Load returns the persisted pair. A missing store is not an error: the zero
// pair is returned. No expiry validation happens here; a stale access token is
// discovered by the server rejecting it.
func (s *Store) Load() (model.TokenPair, error) {
	var pair model.TokenPair

	b, err := os.ReadFile(filepath.Join(s.dir, tokenFileName))
	switch {
	case err == nil:
		var tf tokenFile
		if jerr := json.Unmarshal(b, &tf); jerr != nil {
			return model.TokenPair{}, jerr
		}
		pair = model.TokenPair{
			AccessToken:  tf.AccessToken,
			RefreshToken: tf.RefreshToken,
			ExpiresAt:    tf.ExpiresAt,
		}
	case os.IsNotExist(err):
		// fall through to the refresh fallback
	default:
		return model.TokenPair{}, err
	}

	if pair.RefreshToken == "" {
		if rb, rerr := os.ReadFile(filepath.Join(s.dir, refreshFileName)); rerr == nil {
			pair.RefreshToken = strings.TrimSpace(string(rb))
		}
	}
	return pair, nil
}

// Save persists the pair, duplicating the refresh token into the fallback file.
func (s *Store) Save(pair model.TokenPair) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	tf := tokenFile{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
	b, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, tokenFileName), b, 0o600); err != nil {
		return err
	}
	if pair.RefreshToken != "" {
		return os.WriteFile(filepath.Join(s.dir, refreshFileName), []byte(pair.RefreshToken), 0o600)
	}
	return nil
}

// Clear removes both files. Missing files are ignored.
func (s *Store) Clear() error {
	var firstErr error
	for _, name := range []string{tokenFileName, refreshFileName} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
