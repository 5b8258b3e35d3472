// Package exchangerfake provides an in-memory TokenExchanger for tests.
package exchangerfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/empowerhr/empower-client/auth"
)

// FakeExchanger is a configurable auth.TokenExchanger that records calls.
type FakeExchanger struct {
	mu sync.Mutex

	// PasswordGrantFunc and RefreshGrantFunc supply the behaviour; a nil
	// func fails the call.
	PasswordGrantFunc func(ctx context.Context, username, password string) (*auth.TokenResponse, error)
	RefreshGrantFunc  func(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)

	passwordCalls    int
	refreshCalls     int
	lastRefreshToken string
}

var _ auth.TokenExchanger = (*FakeExchanger)(nil)

// New creates an unconfigured fake; both grants fail until the test sets
// their funcs.
func New() *FakeExchanger {
	return &FakeExchanger{}
}

// PasswordGrant delegates to PasswordGrantFunc.
func (f *FakeExchanger) PasswordGrant(ctx context.Context, username, password string) (*auth.TokenResponse, error) {
	f.mu.Lock()
	f.passwordCalls++
	fn := f.PasswordGrantFunc
	f.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("fake exchanger: PasswordGrant not configured")
	}
	return fn(ctx, username, password)
}

// RefreshGrant delegates to RefreshGrantFunc.
func (f *FakeExchanger) RefreshGrant(ctx context.Context, refreshToken string) (*auth.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.lastRefreshToken = refreshToken
	fn := f.RefreshGrantFunc
	f.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("fake exchanger: RefreshGrant not configured")
	}
	return fn(ctx, refreshToken)
}

// PasswordGrantCalls reports how many password grants were attempted.
func (f *FakeExchanger) PasswordGrantCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwordCalls
}

// RefreshGrantCalls reports how many refresh grants were attempted.
func (f *FakeExchanger) RefreshGrantCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// LastRefreshToken returns the refresh token of the most recent exchange.
func (f *FakeExchanger) LastRefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRefreshToken
}
