package auth

import (
	"context"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/empowerhr/empower-client/internal/config"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// TokenResponse is the token endpoint's reply to a password or refresh
// grant, as defined in RFC 6749.
type TokenResponse struct {
	// AccessToken is the bearer credential for API calls.
	AccessToken string `json:"access_token"`

	// IDToken carries the identity claims. The client decodes it without
	// verification; it is the sole source of the materialized User.
	IDToken string `json:"id_token"`

	// RefreshToken mints new access tokens without re-prompting
	// credentials. May be absent on refresh responses, in which case the
	// previous one stays valid.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "bearer" for this backend.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds. The absolute
	// expiry is always derived from it at the moment the response lands.
	ExpiresIn int `json:"expires_in"`
}

// TokenExchanger performs the OAuth2 grants against the token endpoint.
// Implementations translate endpoint failures into *OAuthError or
// *TransportError.
type TokenExchanger interface {
	PasswordGrant(ctx context.Context, username, password string) (*TokenResponse, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// OAuth2Exchanger is the production TokenExchanger, built on
// golang.org/x/oauth2 with the credentials posted in the form body.
type OAuth2Exchanger struct {
	oauthConfig *oauth2.Config
	nowTime     func() time.Time
}

var _ TokenExchanger = (*OAuth2Exchanger)(nil)

// ExchangerOption modifies an OAuth2Exchanger instance.
type ExchangerOption func(*OAuth2Exchanger)

// WithExchangerNowTime sets the now time function (primarily for testing)
func WithExchangerNowTime(nowFunc func() time.Time) ExchangerOption {
	return func(e *OAuth2Exchanger) {
		e.nowTime = nowFunc
	}
}

// NewOAuth2Exchanger builds an exchanger pointed at the configured token
// endpoint ({apiURL}/connect/token unless discovery overrides it).
func NewOAuth2Exchanger(cfg config.Config, options ...ExchangerOption) *OAuth2Exchanger {
	exchanger := &OAuth2Exchanger{
		oauthConfig: &oauth2.Config{
			ClientID: cfg.GetClientID(),
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.GetTokenEndpoint(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: cfg.GetScopes(),
		},
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(exchanger)
	}
	return exchanger
}

// Discover replaces the configured token endpoint with the one advertised in
// the issuer's OIDC discovery document. Optional: the static endpoint keeps
// working when the backend does not serve discovery.
func (e *OAuth2Exchanger) Discover(ctx context.Context, issuer string) error {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return errors.Wrap(err, "[OAuth2Exchanger.Discover] oidc.NewProvider")
	}
	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	e.oauthConfig.Endpoint = endpoint
	return nil
}

// PasswordGrant performs the grant_type=password exchange.
func (e *OAuth2Exchanger) PasswordGrant(ctx context.Context, username, password string) (*TokenResponse, error) {
	tok, err := e.oauthConfig.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, mapExchangeError(err)
	}
	return e.tokenResponse(tok)
}

// RefreshGrant performs the grant_type=refresh_token exchange.
func (e *OAuth2Exchanger) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	source := e.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := source.Token()
	if err != nil {
		return nil, mapExchangeError(err)
	}
	return e.tokenResponse(tok)
}

func (e *OAuth2Exchanger) tokenResponse(tok *oauth2.Token) (*TokenResponse, error) {
	idToken, _ := tok.Extra("id_token").(string)
	return &TokenResponse{
		AccessToken:  tok.AccessToken,
		IDToken:      idToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    e.expiresIn(tok),
	}, nil
}

// expiresIn recovers the expires_in seconds from the token response,
// falling back to the library-computed absolute expiry.
func (e *OAuth2Exchanger) expiresIn(tok *oauth2.Token) int {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	seconds := int(tok.Expiry.Sub(e.nowTime()).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

// mapExchangeError converts x/oauth2 failures into the client taxonomy:
// structured endpoint errors become *OAuthError, everything else becomes a
// status-coded *TransportError.
func mapExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode != "" {
			return &OAuthError{
				Code:        retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
			}
		}
		statusCode := 0
		if retrieveErr.Response != nil {
			statusCode = retrieveErr.Response.StatusCode
		}
		return &TransportError{StatusCode: statusCode, Err: err}
	}
	return &TransportError{Err: err}
}
