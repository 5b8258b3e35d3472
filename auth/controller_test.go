package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/empowerhr/empower-client/auth"
	"github.com/empowerhr/empower-client/auth/exchangerfake"
	"github.com/empowerhr/empower-client/identity"
	"github.com/empowerhr/empower-client/internal/errors"
	"github.com/empowerhr/empower-client/internal/testfixtures"
	"github.com/empowerhr/empower-client/session"
	"github.com/empowerhr/empower-client/session/memstore"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "john.doe"
	testPassword = "password123"
)

// testFixture holds all controller test dependencies.
type testFixture struct {
	durable    *memstore.MemStore
	ephemeral  *memstore.MemStore
	store      *session.Store
	exchanger  *exchangerfake.FakeExchanger
	clock      *testfixtures.Clock
	controller *auth.Controller
	start      time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testfixtures.NewClock(start)

	durable := memstore.New()
	ephemeral := memstore.New()
	store := session.New(durable, ephemeral, session.WithNowTime(clock.Now))
	exchanger := exchangerfake.New()

	controller, err := auth.NewController(store, exchanger, auth.WithClock(clock))
	require.NoError(t, err)

	return &testFixture{
		durable:    durable,
		ephemeral:  ephemeral,
		store:      store,
		exchanger:  exchanger,
		clock:      clock,
		controller: controller,
		start:      start,
	}
}

// mintIDToken signs an identity token over claims; the decoder never
// verifies the signature.
func mintIDToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func defaultClaims() jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub":      "user-1",
		"name":     testUsername,
		"fullname": "John Doe",
		"email":    "john.doe@example.com",
		"role":     []string{"HRManager"},
		"type":     "admin",
		"leave":    "1",
	}
}

func (f *testFixture) tokenResponse(t *testing.T, claims jwtlib.MapClaims, expiresIn int, refreshToken string) *auth.TokenResponse {
	t.Helper()
	return &auth.TokenResponse{
		AccessToken:  "access-" + time.Now().Format("150405.000000000"),
		IDToken:      mintIDToken(t, claims),
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    expiresIn,
	}
}

// stubLogin configures a successful password grant and performs a login.
func (f *testFixture) stubLogin(t *testing.T, claims jwtlib.MapClaims, expiresIn int, refreshToken string, rememberMe bool) *auth.TokenResponse {
	t.Helper()

	response := f.tokenResponse(t, claims, expiresIn, refreshToken)
	f.exchanger.PasswordGrantFunc = func(ctx context.Context, username, password string) (*auth.TokenResponse, error) {
		return response, nil
	}

	got, err := f.controller.Login(context.Background(), testUsername, testPassword, rememberMe)
	require.NoError(t, err)
	require.Equal(t, response, got)
	return response
}

func TestLoginSuccessInstallsSession(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", false)

	require.True(t, f.controller.IsAuthenticated())
	user := f.controller.CurrentUser()
	require.NotNil(t, user)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, []string{"HRManager"}, f.controller.Roles())
	require.True(t, f.controller.ModuleAccess().Leave)

	// All artifacts persisted and readable.
	accessToken, ok := f.controller.AccessToken()
	require.True(t, ok)
	require.NotEmpty(t, accessToken)

	storedUser, ok := f.store.User()
	require.True(t, ok)
	require.Equal(t, user, storedUser)

	// expires_at derived from expires_in at install time.
	expiresAt, ok := f.store.ExpiresAt()
	require.True(t, ok)
	require.Equal(t, f.start.Add(120*time.Second).UnixMilli(), expiresAt.UnixMilli())

	require.Equal(t, auth.ScheduleScheduled, f.controller.RefreshState())
}

func TestLoginScalarRoleClaimNormalized(t *testing.T) {
	f := setupTestFixture(t)

	claims := defaultClaims()
	claims["role"] = "Employee"
	claims["permission"] = "profile.read"
	f.stubLogin(t, claims, 120, "", false)

	require.Equal(t, []string{"Employee"}, f.controller.Roles())
	require.Equal(t, []string{"profile.read"}, f.controller.Permissions())
}

func TestLoginRememberMeSelectsDurableTier(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", true)

	_, err := f.durable.Get(session.KeyAccessToken)
	require.NoError(t, err)
	_, err = f.ephemeral.Get(session.KeyAccessToken)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoginWithoutRememberMeStaysEphemeral(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", false)

	_, err := f.ephemeral.Get(session.KeyAccessToken)
	require.NoError(t, err)
	_, err = f.durable.Get(session.KeyAccessToken)
	require.ErrorIs(t, err, errors.ErrNotFound)

	// The remember-me preference itself is always durable.
	_, err = f.durable.Get(session.KeyRememberMe)
	require.NoError(t, err)
}

func TestLoginFailurePropagatesErrorUntouched(t *testing.T) {
	f := setupTestFixture(t)

	endpointErr := &auth.OAuthError{Code: "invalid_grant", Description: "bad credentials"}
	f.exchanger.PasswordGrantFunc = func(ctx context.Context, username, password string) (*auth.TokenResponse, error) {
		return nil, endpointErr
	}

	_, err := f.controller.Login(context.Background(), testUsername, "wrong", false)
	require.Same(t, error(endpointErr), err)

	require.False(t, f.controller.IsAuthenticated())
	_, ok := f.store.Read(session.KeyAccessToken)
	require.False(t, ok)
	require.Equal(t, auth.ScheduleIdle, f.controller.RefreshState())
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.controller.Login(context.Background(), "", "", false)
	require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	require.Zero(t, f.exchanger.PasswordGrantCalls())
}

func TestLoginWithUnparseableIDTokenInstallsNothing(t *testing.T) {
	f := setupTestFixture(t)

	f.exchanger.PasswordGrantFunc = func(ctx context.Context, username, password string) (*auth.TokenResponse, error) {
		return &auth.TokenResponse{AccessToken: "access", IDToken: "garbage", ExpiresIn: 120}, nil
	}

	_, err := f.controller.Login(context.Background(), testUsername, testPassword, false)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	require.False(t, f.controller.IsAuthenticated())
	_, ok := f.store.Read(session.KeyAccessToken)
	require.False(t, ok)
}

func TestLogoutClearsSessionAndCancelsTimer(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", true)
	require.NoError(t, f.store.SaveRedirectURL("/somewhere"))

	f.controller.Logout()

	require.False(t, f.controller.IsAuthenticated())
	require.Nil(t, f.controller.CurrentUser())
	require.Equal(t, auth.ScheduleIdle, f.controller.RefreshState())

	for _, key := range []string{
		session.KeyAccessToken,
		session.KeyIDToken,
		session.KeyRefreshToken,
		session.KeyCurrentUser,
		session.KeyExpiresAt,
		session.KeyRedirectURL,
	} {
		_, ok := f.store.Read(key)
		require.False(t, ok, "key %s should be absent after logout", key)
	}
	require.True(t, f.store.RememberMe())

	// The cancelled timer never fires: advance well past the old expiry.
	f.clock.Advance(time.Hour)
	require.Zero(t, f.exchanger.RefreshGrantCalls())
}

func TestRefreshWithoutStoredTokenFailsFast(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.controller.Refresh(context.Background())
	require.ErrorIs(t, err, auth.ErrNoRefreshToken)
	require.Zero(t, f.exchanger.RefreshGrantCalls())
}

func TestScheduledRefreshFiresBeforeExpiryAndRearms(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", false)

	f.exchanger.RefreshGrantFunc = func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
		return f.tokenResponse(t, defaultClaims(), 120, "refresh-2"), nil
	}

	// Lead is 10s, so the timer is armed for t+110s.
	f.clock.Advance(109 * time.Second)
	require.Zero(t, f.exchanger.RefreshGrantCalls())

	f.clock.Advance(2 * time.Second)
	require.Equal(t, 1, f.exchanger.RefreshGrantCalls())
	require.Equal(t, "refresh-1", f.exchanger.LastRefreshToken())

	require.True(t, f.controller.IsAuthenticated())
	require.Equal(t, auth.ScheduleScheduled, f.controller.RefreshState())

	// The rotated refresh token replaced the old one.
	stored, ok := f.store.Read(session.KeyRefreshToken)
	require.True(t, ok)
	require.Equal(t, "refresh-2", stored)
	require.Equal(t, 1, f.clock.PendingTimers())
}

func TestRefreshReusesRememberMeTier(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", true)

	f.exchanger.RefreshGrantFunc = func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
		return f.tokenResponse(t, defaultClaims(), 120, "refresh-2"), nil
	}

	_, err := f.controller.Refresh(context.Background())
	require.NoError(t, err)

	// Still durable after the silent refresh.
	_, err = f.durable.Get(session.KeyAccessToken)
	require.NoError(t, err)
	_, err = f.ephemeral.Get(session.KeyAccessToken)
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRefreshKeepsPreviousTokenWhenNotRotated(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", false)

	f.exchanger.RefreshGrantFunc = func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
		return f.tokenResponse(t, defaultClaims(), 120, ""), nil
	}

	_, err := f.controller.Refresh(context.Background())
	require.NoError(t, err)

	stored, ok := f.store.Read(session.KeyRefreshToken)
	require.True(t, ok)
	require.Equal(t, "refresh-1", stored)
}

func TestRefreshFailureIsTerminal(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", false)

	f.exchanger.RefreshGrantFunc = func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
		return nil, &auth.OAuthError{Code: "invalid_grant", Description: "refresh token revoked"}
	}

	f.clock.Advance(111 * time.Second)

	require.False(t, f.controller.IsAuthenticated())
	require.Equal(t, auth.ScheduleTerminated, f.controller.RefreshState())

	_, ok := f.store.Read(session.KeyAccessToken)
	require.False(t, ok)

	// Terminal: no retry is ever scheduled.
	f.clock.Advance(time.Hour)
	require.Equal(t, 1, f.exchanger.RefreshGrantCalls())
}

func TestStaleRefreshResultIsIgnoredAfterLogout(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", false)

	// The user logs out while the refresh exchange is in flight; the
	// completed response must not resurrect the session.
	f.exchanger.RefreshGrantFunc = func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
		f.controller.Logout()
		return f.tokenResponse(t, defaultClaims(), 120, "refresh-2"), nil
	}

	response, err := f.controller.Refresh(context.Background())
	require.NoError(t, err)
	require.Nil(t, response)

	require.False(t, f.controller.IsAuthenticated())
	_, ok := f.store.Read(session.KeyAccessToken)
	require.False(t, ok)
}

func TestNewLoginCancelsOutstandingTimer(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", false)
	require.Equal(t, 1, f.clock.PendingTimers())

	f.stubLogin(t, defaultClaims(), 300, "refresh-2", false)

	// At most one active timer per session.
	require.Equal(t, 1, f.clock.PendingTimers())

	f.exchanger.RefreshGrantFunc = func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
		return f.tokenResponse(t, defaultClaims(), 300, ""), nil
	}

	// The first login's timer (t+110s) is dead; only the second session's
	// (t+290s) fires.
	f.clock.Advance(120 * time.Second)
	require.Zero(t, f.exchanger.RefreshGrantCalls())

	f.clock.Advance(175 * time.Second)
	require.Equal(t, 1, f.exchanger.RefreshGrantCalls())
	require.Equal(t, "refresh-2", f.exchanger.LastRefreshToken())
}

func TestOnChangeNotifiesListeners(t *testing.T) {
	f := setupTestFixture(t)

	var states []auth.State
	f.controller.OnChange(func(state auth.State) {
		states = append(states, state)
	})

	f.stubLogin(t, defaultClaims(), 120, "", false)
	f.controller.Logout()

	require.Len(t, states, 2)
	require.True(t, states[0].IsAuthenticated)
	require.Equal(t, "user-1", states[0].User.ID)
	require.False(t, states[1].IsAuthenticated)
	require.Nil(t, states[1].User)
}

func TestRestoreSessionRebuildsState(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 3600, "refresh-1", true)

	// A fresh controller over the same store simulates a restart.
	restarted, err := auth.NewController(f.store, f.exchanger, auth.WithClock(f.clock))
	require.NoError(t, err)

	require.True(t, restarted.RestoreSession())
	require.True(t, restarted.IsAuthenticated())
	require.Equal(t, "user-1", restarted.CurrentUser().ID)
	require.Equal(t, auth.ScheduleScheduled, restarted.RefreshState())
}

func TestRestoreSessionClearsExpiredSession(t *testing.T) {
	f := setupTestFixture(t)

	f.stubLogin(t, defaultClaims(), 120, "refresh-1", true)
	f.controller.Logout() // drop the timer so only restore logic is at play

	require.NoError(t, f.store.Save(session.KeyAccessToken, "stale", true))
	require.NoError(t, f.store.SaveUser(&identity.User{ID: "user-1"}, true))
	require.NoError(t, f.store.SaveExpiry(f.start.Add(-time.Minute), true))

	restarted, err := auth.NewController(f.store, f.exchanger, auth.WithClock(f.clock))
	require.NoError(t, err)

	require.False(t, restarted.RestoreSession())
	require.False(t, restarted.IsAuthenticated())
	_, ok := f.store.Read(session.KeyAccessToken)
	require.False(t, ok)
}

func TestRestoreSessionClearsPartialState(t *testing.T) {
	f := setupTestFixture(t)

	// Token present but no user: must be treated as absent and cleared.
	require.NoError(t, f.store.Save(session.KeyAccessToken, "orphan-token", true))
	require.NoError(t, f.store.SaveExpiry(f.start.Add(time.Hour), true))

	require.False(t, f.controller.RestoreSession())
	require.False(t, f.controller.IsAuthenticated())

	_, ok := f.store.Read(session.KeyAccessToken)
	require.False(t, ok)
}
