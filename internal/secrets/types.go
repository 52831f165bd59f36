package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// ServiceName is the keyring service under which the token pair is stored.
	ServiceName = "inoreader-mcp"

	// AccountName is the fixed keyring account for the token pair.
	AccountName = "oauth-token"
)

// ErrNotFound is returned by Load when no token pair has been stored.
var ErrNotFound = errors.New("no stored token")

// Store persists exactly one token pair.
type Store interface {
	// Save replaces the stored pair.
	Save(pair *TokenPair) error

	// Load returns the stored pair, or ErrNotFound.
	Load() (*TokenPair, error)

	// Delete removes the stored pair. Deleting a missing pair is not an error.
	Delete() error

	// IsAvailable reports whether the backend can be used on this machine.
	IsAvailable() bool

	// Name identifies the backend for status output.
	Name() string
}

// TokenPair is the persisted OAuth credential set.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is zero when the upstream did not report a lifetime.
	ExpiresAt time.Time
}

// storedPair is the on-disk / in-keyring JSON layout.
type storedPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"` // Unix milliseconds
}

// MarshalJSON encodes the pair with expiry as Unix milliseconds.
func (p TokenPair) MarshalJSON() ([]byte, error) {
	s := storedPair{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
	}
	if !p.ExpiresAt.IsZero() {
		s.ExpiresAt = p.ExpiresAt.UnixMilli()
	}
	return json.Marshal(s)
}

// UnmarshalJSON decodes the layout written by MarshalJSON.
func (p *TokenPair) UnmarshalJSON(data []byte) error {
	var s storedPair
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	p.AccessToken = s.AccessToken
	p.RefreshToken = s.RefreshToken
	p.ExpiresAt = time.Time{}
	if s.ExpiresAt > 0 {
		p.ExpiresAt = time.UnixMilli(s.ExpiresAt)
	}
	return nil
}

// ExpiresWithin reports whether the access token expires within d.
// A pair without a known expiry never reports expiring.
func (p *TokenPair) ExpiresWithin(d time.Duration) bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(d).After(p.ExpiresAt)
}

func encodePair(pair *TokenPair) (string, error) {
	if pair == nil {
		return "", fmt.Errorf("token pair is nil")
	}
	data, err := json.Marshal(pair)
	if err != nil {
		return "", fmt.Errorf("failed to encode token pair: %w", err)
	}
	return string(data), nil
}

func decodePair(data string) (*TokenPair, error) {
	var pair TokenPair
	if err := json.Unmarshal([]byte(data), &pair); err != nil {
		return nil, fmt.Errorf("invalid stored token: %w", err)
	}
	return &pair, nil
}
