// Package session owns the persisted authentication artifacts. A Store
// spans two tiers: a durable one that survives restarts and an ephemeral one
// scoped to the process, selected per write by the remember-me preference.
package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/empowerhr/empower-client/identity"
	"github.com/empowerhr/empower-client/internal/errors"
	"github.com/rs/zerolog"
)

// Store provides tier-transparent access to session state. Reads check the
// durable tier first and fall back to the ephemeral tier, so callers never
// need to know which tier a session was created with.
type Store struct {
	durable   Backend
	ephemeral Backend
	nowTime   func() time.Time
	logger    zerolog.Logger
}

// Option modifies a Store instance.
type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the logger used for storage diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store over the two tiers.
func New(durable, ephemeral Backend, options ...Option) *Store {
	store := &Store{
		durable:   durable,
		ephemeral: ephemeral,
		nowTime:   time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(store)
	}
	return store
}

// Save writes a value to the durable tier when durable is true, otherwise to
// the ephemeral tier.
func (s *Store) Save(key, value string, durable bool) error {
	if durable {
		return s.durable.Set(key, value)
	}
	return s.ephemeral.Set(key, value)
}

// Read resolves a key against both tiers, durable first. It returns false
// when neither tier holds the key or the stored value cannot be read.
func (s *Store) Read(key string) (string, bool) {
	if value, err := s.durable.Get(key); err == nil {
		return value, true
	} else if !errors.Is(err, errors.ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", key).Msg("durable tier read failed")
	}

	if value, err := s.ephemeral.Get(key); err == nil {
		return value, true
	} else if !errors.Is(err, errors.ErrNotFound) {
		s.logger.Warn().Err(err).Str("key", key).Msg("ephemeral tier read failed")
	}

	return "", false
}

// ClearSession removes every session key from both tiers except the
// remember-me preference.
func (s *Store) ClearSession() error {
	return s.clearKeys("[Store.ClearSession]", sessionKeys)
}

// ClearCredentials removes the token, user and expiry keys from both tiers,
// leaving the remember-me preference and any saved redirect target in place.
// Installing a new session clears with this so a pre-login deep link is still
// there for the post-login redirect to consume.
func (s *Store) ClearCredentials() error {
	return s.clearKeys("[Store.ClearCredentials]", credentialKeys)
}

func (s *Store) clearKeys(op string, keys []string) error {
	var firstErr error
	for _, key := range keys {
		for _, tier := range []Backend{s.durable, s.ephemeral} {
			if err := tier.Delete(key); err != nil && firstErr == nil {
				firstErr = errors.Wrapf(err, "%s delete %s", op, key)
			}
		}
	}
	return firstErr
}

// ClearAll removes everything from both tiers, remember-me included.
func (s *Store) ClearAll() error {
	if err := s.durable.Clear(); err != nil {
		return errors.Wrapf(err, "[Store.ClearAll] durable")
	}
	if err := s.ephemeral.Clear(); err != nil {
		return errors.Wrapf(err, "[Store.ClearAll] ephemeral")
	}
	return nil
}

// Close closes both tiers.
func (s *Store) Close() error {
	durableErr := s.durable.Close()
	ephemeralErr := s.ephemeral.Close()
	if durableErr != nil {
		return durableErr
	}
	return ephemeralErr
}

// IsExpired reports whether the stored access token has expired. A missing
// or unreadable expiry counts as expired (fail closed).
func (s *Store) IsExpired() bool {
	expiresAt, ok := s.ExpiresAt()
	if !ok {
		return true
	}
	return !s.nowTime().Before(expiresAt)
}

// SaveExpiry persists the absolute token expiry as epoch milliseconds.
func (s *Store) SaveExpiry(expiresAt time.Time, durable bool) error {
	return s.Save(KeyExpiresAt, strconv.FormatInt(expiresAt.UnixMilli(), 10), durable)
}

// ExpiresAt reads back the stored token expiry.
func (s *Store) ExpiresAt() (time.Time, bool) {
	raw, ok := s.Read(KeyExpiresAt)
	if !ok {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Warn().Str("value", raw).Msg("malformed expiry timestamp, treating as absent")
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// SaveUser persists the decoded user as JSON.
func (s *Store) SaveUser(user *identity.User, durable bool) error {
	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrapf(err, "[Store.SaveUser] marshal")
	}
	return s.Save(KeyCurrentUser, string(data), durable)
}

// User reads back the stored user. Malformed stored JSON is logged and
// treated as absent rather than surfaced to the caller.
func (s *Store) User() (*identity.User, bool) {
	raw, ok := s.Read(KeyCurrentUser)
	if !ok {
		return nil, false
	}
	var user identity.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn().Err(err).Msg("malformed stored user, treating as absent")
		return nil, false
	}
	return &user, true
}

// SaveRememberMe persists the remember-me preference. The preference itself
// is always durable so it survives logouts and restarts.
func (s *Store) SaveRememberMe(rememberMe bool) error {
	return s.Save(KeyRememberMe, strconv.FormatBool(rememberMe), true)
}

// RememberMe reads back the stored preference, defaulting to false.
func (s *Store) RememberMe() bool {
	raw, ok := s.Read(KeyRememberMe)
	if !ok {
		return false
	}
	rememberMe, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return rememberMe
}

// SaveRedirectURL records the route an unauthenticated access attempt was
// aiming for. It is always ephemeral.
func (s *Store) SaveRedirectURL(url string) error {
	return s.Save(KeyRedirectURL, url, false)
}

// TakeRedirectURL returns and clears any saved redirect target.
func (s *Store) TakeRedirectURL() (string, bool) {
	url, ok := s.Read(KeyRedirectURL)
	if !ok {
		return "", false
	}
	if err := s.ephemeral.Delete(KeyRedirectURL); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear redirect url")
	}
	return url, true
}
