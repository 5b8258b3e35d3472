// Package auth orchestrates the client's authentication lifecycle: the
// OAuth2 password-grant login, silent token refresh, claims-derived
// authorization state, and the post-login redirect policy.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/empowerhr/empower-client/identity"
	"github.com/empowerhr/empower-client/internal/errors"
	"github.com/empowerhr/empower-client/session"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultRefreshLead = 10 * time.Second

// refreshRequestTimeout bounds the scheduled silent refresh call.
const refreshRequestTimeout = 30 * time.Second

// errSuperseded marks a login or refresh result that completed after the
// session it belonged to was replaced. Such results are dropped, not applied.
var errSuperseded = pkgerrors.New("auth result superseded")

// Credentials are the login inputs, validated before any network call.
type Credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// State is a snapshot of the authentication state handed to listeners.
type State struct {
	User            *identity.User
	IsAuthenticated bool
}

// Listener receives state snapshots whenever the session changes.
type Listener func(State)

// Controller owns the in-memory session and drives logins, refreshes and
// logouts against a Session Store and a TokenExchanger. Construct one per
// process and inject it where needed; there is no package-level state.
type Controller struct {
	store       *session.Store
	exchanger   TokenExchanger
	clock       Clock
	refreshLead time.Duration
	logger      zerolog.Logger
	validate    *validator.Validate

	mu         sync.RWMutex
	user       *identity.User
	schedState ScheduleState
	timer      Timer
	generation uint64
	listeners  []Listener
}

// ControllerOption modifies a Controller instance.
type ControllerOption func(*Controller)

// WithClock sets the time source (primarily for testing).
func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithRefreshLead sets the margin before expiry at which refresh fires.
func WithRefreshLead(lead time.Duration) ControllerOption {
	return func(c *Controller) {
		c.refreshLead = lead
	}
}

// WithControllerLogger sets the controller's logger.
func WithControllerLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController initializes a Controller with required dependencies.
func NewController(store *session.Store, exchanger TokenExchanger, options ...ControllerOption) (*Controller, error) {
	if store == nil {
		return nil, pkgerrors.New("[NewController] store is required")
	}
	if exchanger == nil {
		return nil, pkgerrors.New("[NewController] exchanger is required")
	}

	controller := &Controller{
		store:       store,
		exchanger:   exchanger,
		clock:       SystemClock(),
		refreshLead: defaultRefreshLead,
		logger:      zerolog.Nop(),
		validate:    validator.New(),
	}

	for _, opt := range options {
		opt(controller)
	}

	return controller, nil
}

// OnChange registers a listener for session state changes. Listeners are
// invoked after each login, refresh and logout, outside of internal locks.
func (c *Controller) OnChange(listener Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// CurrentUser returns the decoded user, or nil when unauthenticated. The
// returned value is read-only downstream; it is re-derived from the identity
// token on every login and refresh.
func (c *Controller) CurrentUser() *identity.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// IsAuthenticated reports whether a decoded user is held in memory.
func (c *Controller) IsAuthenticated() bool {
	return c.CurrentUser() != nil
}

// Roles returns the current user's normalized role set.
func (c *Controller) Roles() []string {
	if user := c.CurrentUser(); user != nil {
		return user.Roles
	}
	return nil
}

// Permissions returns the current user's normalized permission set.
func (c *Controller) Permissions() []string {
	if user := c.CurrentUser(); user != nil {
		return user.Permissions
	}
	return nil
}

// ModuleAccess returns the current user's per-module entitlements.
func (c *Controller) ModuleAccess() identity.ModuleAccess {
	if user := c.CurrentUser(); user != nil {
		return user.ModuleAccess
	}
	return identity.ModuleAccess{}
}

// AccessToken returns the stored bearer credential for API calls.
func (c *Controller) AccessToken() (string, bool) {
	return c.store.Read(session.KeyAccessToken)
}

// Login performs the password-grant exchange and installs the session at the
// tier selected by rememberMe. Endpoint failures are returned untouched for
// caller-side message mapping (see Message); session state is unchanged on
// failure.
func (c *Controller) Login(ctx context.Context, username, password string, rememberMe bool) (*TokenResponse, error) {
	if err := c.validate.Struct(Credentials{Username: username, Password: password}); err != nil {
		return nil, pkgerrors.Wrap(errors.ErrInvalidCredentials, "[Controller.Login] username and password are required")
	}

	tokenResponse, err := c.exchanger.PasswordGrant(ctx, username, password)
	if err != nil {
		return nil, err
	}

	if err := c.installSession(tokenResponse, rememberMe, nil); err != nil {
		return nil, err
	}

	c.logger.Info().Str("username", username).Bool("remember_me", rememberMe).Msg("login succeeded")
	return tokenResponse, nil
}

// Refresh silently repeats the token exchange with the stored refresh token,
// reusing the stored remember-me tier. It fails fast with ErrNoRefreshToken
// when nothing is stored. Any exchange failure is terminal: the session is
// cleared via logout and never retried. A result that lands after the
// session was replaced or ended is dropped and reported as (nil, nil).
func (c *Controller) Refresh(ctx context.Context) (*TokenResponse, error) {
	refreshToken, ok := c.store.Read(session.KeyRefreshToken)
	if !ok || refreshToken == "" {
		return nil, pkgerrors.Wrap(ErrNoRefreshToken, "[Controller.Refresh]")
	}

	c.mu.RLock()
	generation := c.generation
	c.mu.RUnlock()
	rememberMe := c.store.RememberMe()

	tokenResponse, err := c.exchanger.RefreshGrant(ctx, refreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("token refresh failed, ending session")
		c.terminate(generation)
		return nil, err
	}

	guard := func() bool { return c.generation == generation }
	if err := c.installSession(tokenResponse, rememberMe, guard); err != nil {
		if errors.Is(err, errSuperseded) {
			c.logger.Debug().Msg("refresh result superseded, dropping")
			return nil, nil
		}
		c.logger.Warn().Err(err).Msg("refresh response rejected, ending session")
		c.terminate(generation)
		return nil, err
	}

	c.logger.Debug().Msg("token refresh succeeded")
	return tokenResponse, nil
}

// Logout cancels any pending refresh, clears the stored session (keeping the
// remember-me preference) and resets the in-memory state. It does not
// navigate; see RedirectLogoutUser.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.generation++
	c.cancelTimerLocked()
	c.schedState = ScheduleIdle
	c.user = nil
	c.mu.Unlock()

	if err := c.store.ClearSession(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear stored session")
	}
	c.notify()
}

// RestoreSession rebuilds the in-memory state from storage at startup. An
// expired or partial stored session (token without user, or vice versa) is
// cleared and treated as absent. It reports whether a session was restored.
func (c *Controller) RestoreSession() bool {
	if c.store.IsExpired() {
		if err := c.store.ClearSession(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to clear expired session")
		}
		return false
	}

	accessToken, hasToken := c.store.Read(session.KeyAccessToken)
	user, hasUser := c.store.User()
	if !hasToken || accessToken == "" || !hasUser {
		// Partial state is treated as no session at all.
		if err := c.store.ClearSession(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to clear partial session")
		}
		return false
	}

	expiresAt, _ := c.store.ExpiresAt()

	c.mu.Lock()
	c.generation++
	c.cancelTimerLocked()
	c.user = user
	c.armRefreshLocked(expiresAt)
	c.mu.Unlock()

	c.notify()
	c.logger.Info().Str("user_id", user.ID).Msg("session restored")
	return true
}

// installSession applies a successful token response: decode first, then
// swap storage and in-memory state under the lock so observers never see a
// partial session, then arm the refresh timer. guard, when non-nil, runs
// under the lock and aborts the install when it returns false.
func (c *Controller) installSession(tokenResponse *TokenResponse, rememberMe bool, guard func() bool) error {
	user, err := identity.DecodeIDToken(tokenResponse.IDToken)
	if err != nil {
		return err
	}
	if tokenResponse.AccessToken == "" {
		return pkgerrors.Wrap(errors.ErrNoAccessToken, "[Controller.installSession]")
	}

	expiresAt := c.clock.Now().Add(time.Duration(tokenResponse.ExpiresIn) * time.Second)

	c.mu.Lock()
	if guard != nil && !guard() {
		c.mu.Unlock()
		return errSuperseded
	}

	c.generation++
	c.cancelTimerLocked()

	// A refresh response may omit the refresh token; the previous one then
	// stays valid and must survive the re-install.
	refreshToken := tokenResponse.RefreshToken
	if refreshToken == "" {
		if previous, ok := c.store.Read(session.KeyRefreshToken); ok {
			refreshToken = previous
		}
	}

	if err := c.writeSession(tokenResponse, user, refreshToken, expiresAt, rememberMe); err != nil {
		c.user = nil
		c.schedState = ScheduleIdle
		c.mu.Unlock()
		return err
	}

	c.user = user
	c.armRefreshLocked(expiresAt)
	c.mu.Unlock()

	c.notify()
	return nil
}

// writeSession persists all artifacts at the tier selected by rememberMe.
// Called with the lock held. On any write failure the stored session is
// cleared so no partial session can be read back later. Only the credential
// keys are replaced: a redirect target saved before the login stays put.
func (c *Controller) writeSession(tokenResponse *TokenResponse, user *identity.User, refreshToken string, expiresAt time.Time, rememberMe bool) error {
	if err := c.store.ClearCredentials(); err != nil {
		return pkgerrors.Wrap(err, "[Controller.writeSession] clear previous")
	}

	write := func() error {
		if err := c.store.SaveRememberMe(rememberMe); err != nil {
			return err
		}
		if err := c.store.Save(session.KeyAccessToken, tokenResponse.AccessToken, rememberMe); err != nil {
			return err
		}
		if err := c.store.Save(session.KeyIDToken, tokenResponse.IDToken, rememberMe); err != nil {
			return err
		}
		if refreshToken != "" {
			if err := c.store.Save(session.KeyRefreshToken, refreshToken, rememberMe); err != nil {
				return err
			}
		}
		if err := c.store.SaveUser(user, rememberMe); err != nil {
			return err
		}
		return c.store.SaveExpiry(expiresAt, rememberMe)
	}

	if err := write(); err != nil {
		_ = c.store.ClearCredentials()
		return pkgerrors.Wrap(err, "[Controller.writeSession]")
	}
	return nil
}

// terminate ends the session a failed refresh belonged to. It is a no-op
// when a newer login already replaced that session.
func (c *Controller) terminate(generation uint64) {
	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.cancelTimerLocked()
	c.schedState = ScheduleTerminated
	c.user = nil
	c.mu.Unlock()

	if err := c.store.ClearSession(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear stored session")
	}
	c.notify()
}

func (c *Controller) notify() {
	c.mu.RLock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	state := State{User: c.user, IsAuthenticated: c.user != nil}
	c.mu.RUnlock()

	for _, listener := range listeners {
		listener(state)
	}
}
