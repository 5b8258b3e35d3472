package config

import "time"

type OAuthConfig interface {
	GetTokenEndpoint() string
	GetScopes() []string
	GetRefreshLead() time.Duration
}

type OAuth struct {
	env EnvVars
}

var _ OAuthConfig = OAuth{}

// GetTokenEndpoint returns the OAuth2 token endpoint. The backend exposes it
// at /connect/token on the API host.
func (o OAuth) GetTokenEndpoint() string {
	return o.env.APIURL + "/connect/token"
}

// GetScopes returns the fixed scope list requested on every password grant.
func (o OAuth) GetScopes() []string {
	return []string{"openid", "profile", "email", "phone", "roles", "offline_access"}
}

// GetRefreshLead is the margin before access-token expiry at which the
// silent refresh fires.
func (o OAuth) GetRefreshLead() time.Duration {
	return 10 * time.Second
}
